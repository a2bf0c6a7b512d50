package service

import (
	"context"
	"io"
	"time"

	"autoflightlog/internal/domain"
	"autoflightlog/internal/models"
	"autoflightlog/internal/repository"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/mock"
)

var testNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func fixedClock() domain.Clock {
	return domain.ClockFunc(func() time.Time { return testNow })
}

func testLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}

type mockEventBus struct {
	mock.Mock
}

func (m *mockEventBus) PublishJSON(et string, p interface{}) error { return m.Called(et, p).Error(0) }

type mockExecutor struct {
	mock.Mock
}

func (m *mockExecutor) Run(ctx context.Context, id string) (models.SyncResult, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(models.SyncResult), args.Error(1)
}

func newStore() *repository.MemoryStore {
	return repository.NewMemoryStore()
}
