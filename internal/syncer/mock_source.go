package syncer

import (
	"context"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"autoflightlog/internal/domain"
	"autoflightlog/internal/models"
)

var (
	mockAirports      = []string{"ENGM", "ENBR", "ENZV", "ENTC", "ENVA", "ENKB"}
	mockRegistrations = []string{"LN-ABC", "LN-DEF", "LN-GHI", "LN-JKL"}
)

const mockAircraftType = "AW169"

// MockSource stands in for an employer crew API. It returns one to three
// recent flights with stable positions so repeated runs hit the same keys.
type MockSource struct {
	clock domain.Clock

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewMockSource(clock domain.Clock, rnd *rand.Rand) *MockSource {
	if clock == nil {
		clock = domain.SystemClock
	}
	if rnd == nil {
		rnd = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &MockSource{clock: clock, rnd: rnd}
}

func (s *MockSource) Fetch(ctx context.Context, c *models.Connector) ([]domain.FlightRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	n := s.rnd.IntN(3) + 1
	records := make([]domain.FlightRecord, 0, n)
	for i := 0; i < n; i++ {
		daysAgo := s.rnd.Float64() * 30
		date := now.Add(-time.Duration(daysAgo * float64(24*time.Hour)))
		flightMinutes := s.rnd.IntN(180) + 30

		records = append(records, domain.FlightRecord{
			Position: i,
			Values: map[string]any{
				"date":         date.UTC().Format("2006-01-02"),
				"departure":    mockAirports[s.rnd.IntN(len(mockAirports))],
				"arrival":      mockAirports[s.rnd.IntN(len(mockAirports))],
				"aircraft":     mockAircraftType,
				"registration": mockRegistrations[s.rnd.IntN(len(mockRegistrations))],
				// decimal hours, two places
				"totalTime": math.Round(float64(flightMinutes)/60*100) / 100,
			},
		})
	}
	return records, nil
}
