package syncer

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"autoflightlog/internal/domain"
	"autoflightlog/internal/events"
	"autoflightlog/internal/models"
	"autoflightlog/internal/worker"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	ErrConnectorNotFound  = errors.New("connector not found")
	ErrConnectorNotActive = errors.New("connector is not active")
)

// FailureMessage is the text stored in LastSyncError and shown to the pilot.
func FailureMessage(err error) string {
	switch {
	case errors.Is(err, ErrConnectorNotFound):
		return "Connector not found"
	case errors.Is(err, ErrConnectorNotActive):
		return "Connector is not active"
	default:
		return err.Error()
	}
}

// Options tunes an Executor; zero values get defaults.
type Options struct {
	Clock                  domain.Clock
	Backoff                worker.RetryPolicy
	DefaultIntervalMinutes int
	MaxJitterMinutes       int
	// Jitter overrides the random jitter source; used by tests.
	Jitter func() time.Duration
	Events domain.EventPublisher
}

// Executor performs exactly one synchronization attempt per Run call.
type Executor struct {
	connectors domain.ConnectorStore
	entries    domain.EntryStore
	source     domain.FlightSource
	clock      domain.Clock
	backoff    worker.RetryPolicy
	interval   int
	jitter     func() time.Duration
	events     domain.EventPublisher
	logger     *zerolog.Logger
}

func NewExecutor(
	connectors domain.ConnectorStore,
	entries domain.EntryStore,
	source domain.FlightSource,
	opts Options,
	logger *zerolog.Logger,
) *Executor {
	if opts.Clock == nil {
		opts.Clock = domain.SystemClock
	}
	if opts.Backoff == (worker.RetryPolicy{}) {
		opts.Backoff = worker.ConnectorBackoff
	}
	if opts.DefaultIntervalMinutes <= 0 {
		opts.DefaultIntervalMinutes = models.DefaultSyncIntervalMinutes
	}
	if opts.MaxJitterMinutes < 0 {
		opts.MaxJitterMinutes = 0
	}
	if opts.Jitter == nil {
		opts.Jitter = randomJitter(opts.MaxJitterMinutes)
	}
	if source == nil {
		source = NewMockSource(opts.Clock, nil)
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	return &Executor{
		connectors: connectors,
		entries:    entries,
		source:     source,
		clock:      opts.Clock,
		backoff:    opts.Backoff,
		interval:   opts.DefaultIntervalMinutes,
		jitter:     opts.Jitter,
		events:     opts.Events,
		logger:     logger,
	}
}

func randomJitter(maxMinutes int) func() time.Duration {
	var mu sync.Mutex
	rnd := rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	return func() time.Duration {
		mu.Lock()
		defer mu.Unlock()
		return time.Duration(rnd.IntN(maxMinutes+1)) * time.Minute
	}
}

// Run syncs one connector. On failure the connector's backoff state is
// recorded before the error is returned.
func (x *Executor) Run(ctx context.Context, connectorID string) (models.SyncResult, error) {
	now := x.clock.Now()

	c, res, err := x.run(ctx, connectorID, now)
	if err != nil {
		x.recordFailure(ctx, connectorID, c, now, err)
		return models.SyncResult{}, err
	}

	next, err := x.recordSuccess(ctx, c, now)
	if err != nil {
		x.recordFailure(ctx, connectorID, c, now, err)
		return models.SyncResult{}, err
	}

	x.logger.Info().
		Str("connector_id", connectorID).
		Int("inserted", res.Inserted).
		Int("updated", res.Updated).
		Time("next_sync_at", next).
		Msg("connector synced")
	x.publish(events.EventConnectorSynced, events.ConnectorSyncPayload{
		ConnectorID: connectorID,
		Inserted:    res.Inserted,
		Updated:     res.Updated,
		NextSyncAt:  &next,
	})
	return res, nil
}

func (x *Executor) run(ctx context.Context, connectorID string, now time.Time) (*models.Connector, models.SyncResult, error) {
	var res models.SyncResult

	c, err := x.connectors.GetConnector(ctx, connectorID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, res, ErrConnectorNotFound
	}
	if err != nil {
		return nil, res, fmt.Errorf("load connector: %w", err)
	}
	if c.Status != models.ConnectorStatusActive {
		return c, res, ErrConnectorNotActive
	}

	records, err := x.source.Fetch(ctx, c)
	if err != nil {
		return c, res, fmt.Errorf("fetch flights: %w", err)
	}

	for _, rec := range records {
		inserted, err := x.upsert(ctx, c.ID, rec, now)
		if err != nil {
			return c, res, err
		}
		if inserted {
			res.Inserted++
		} else {
			res.Updated++
		}
	}
	return c, res, nil
}

// upsert merges rec into the entry holding its external key, or inserts a new one.
func (x *Executor) upsert(ctx context.Context, connectorID string, rec domain.FlightRecord, now time.Time) (bool, error) {
	key := ExternalKey(connectorID, rec.Position)

	existing, err := x.entries.GetEntryByExternalKey(ctx, key)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		entry := &models.LogbookEntry{
			ID:         "e_" + uuid.NewString(),
			TemplateID: models.DefaultTemplateID,
			Values:     rec.Values,
			Source: models.EntrySource{
				System:      models.SourceGenericAPI,
				ConnectorID: connectorID,
				ExternalKey: key,
			},
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := x.entries.InsertEntry(ctx, entry); err != nil {
			return false, fmt.Errorf("insert entry %s: %w", key, err)
		}
		return true, nil
	case err != nil:
		return false, fmt.Errorf("lookup entry %s: %w", key, err)
	}

	MergeValues(existing, rec.Values)
	if existing.TemplateID == "" {
		existing.TemplateID = models.DefaultTemplateID
	}
	existing.UpdatedAt = now
	if err := x.entries.UpdateEntry(ctx, existing); err != nil {
		return false, fmt.Errorf("update entry %s: %w", key, err)
	}
	return false, nil
}

func (x *Executor) recordSuccess(ctx context.Context, c *models.Connector, now time.Time) (time.Time, error) {
	interval := x.interval
	if c.SyncIntervalMinutes != nil && *c.SyncIntervalMinutes > 0 {
		interval = *c.SyncIntervalMinutes
	}
	next := now.Add(time.Duration(interval)*time.Minute + x.jitter())

	patch := models.ConnectorPatch{
		LastSyncAt:          &now,
		LastSyncAttemptAt:   &now,
		LastSyncStatus:      models.Ptr(models.SyncStatusOK),
		ClearLastSyncError:  true,
		ConsecutiveFailures: models.Ptr(0),
		NextSyncAt:          &next,
	}
	x.fillDefaults(c, &patch)

	if err := x.connectors.PatchConnector(ctx, c.ID, patch); err != nil {
		return time.Time{}, fmt.Errorf("record sync success: %w", err)
	}
	return next, nil
}

func (x *Executor) recordFailure(ctx context.Context, connectorID string, c *models.Connector, now time.Time, cause error) {
	// The attempt ran until it failed; record state even if ctx was cancelled meanwhile.
	ctx = context.WithoutCancel(ctx)

	if c == nil {
		loaded, err := x.connectors.GetConnector(ctx, connectorID)
		if err != nil {
			x.logger.Warn().Err(cause).Str("connector_id", connectorID).Msg("sync failed for unknown connector")
			x.publish(events.EventConnectorSyncFailed, events.ConnectorSyncPayload{ConnectorID: connectorID, Error: FailureMessage(cause)})
			return
		}
		c = loaded
	}

	failures := c.ConsecutiveFailures
	if failures < 0 {
		failures = 0
	}
	next := now.Add(x.backoff.Backoff(failures))
	msg := FailureMessage(cause)

	patch := models.ConnectorPatch{
		LastSyncAttemptAt:   &now,
		LastSyncStatus:      models.Ptr(models.SyncStatusError),
		LastSyncError:       models.Ptr(msg),
		ConsecutiveFailures: models.Ptr(failures + 1),
		NextSyncAt:          &next,
	}
	x.fillDefaults(c, &patch)

	if err := x.connectors.PatchConnector(ctx, connectorID, patch); err != nil {
		x.logger.Error().Err(err).Str("connector_id", connectorID).Msg("record sync failure")
	}

	x.logger.Warn().
		Err(cause).
		Str("connector_id", connectorID).
		Int("consecutive_failures", failures+1).
		Time("next_sync_at", next).
		Msg("connector sync failed")
	x.publish(events.EventConnectorSyncFailed, events.ConnectorSyncPayload{
		ConnectorID:         connectorID,
		Error:               msg,
		ConsecutiveFailures: failures + 1,
		NextSyncAt:          &next,
	})
}

func (x *Executor) fillDefaults(c *models.Connector, patch *models.ConnectorPatch) {
	if c.AutoSyncEnabled == nil {
		patch.AutoSyncEnabled = models.Ptr(true)
	}
	if c.SyncIntervalMinutes == nil {
		patch.SyncIntervalMinutes = models.Ptr(x.interval)
	}
}

func (x *Executor) publish(eventType string, payload events.ConnectorSyncPayload) {
	if x.events == nil {
		return
	}
	if err := x.events.PublishJSON(eventType, payload); err != nil {
		x.logger.Warn().Err(err).Str("event", eventType).Msg("publish sync event")
	}
}
