package worker

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"autoflightlog/internal/domain"
	"autoflightlog/internal/events"
	"autoflightlog/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// SchedulerOptions tunes the scheduler; zero values get defaults.
type SchedulerOptions struct {
	TickInterval time.Duration
	OwnerID      string
	Clock        domain.Clock
	Events       domain.EventPublisher
}

// Scheduler decides when to attempt a sync tick. Whether an individual
// connector is due is decided by IsDue.
//
// Every trigger source (timer, network, focus, visibility, background wake)
// funnels into one request channel; ticks of one instance never overlap.
type Scheduler struct {
	connectors   domain.ConnectorStore
	executor     domain.SyncExecutor
	locker       domain.Locker
	clock        domain.Clock
	events       domain.EventPublisher
	logger       *zerolog.Logger
	ownerID      string
	tickInterval time.Duration

	running  atomic.Bool
	offline  atomic.Bool
	requests chan models.SyncReason
}

// NewScheduler builds a scheduler with sane defaults.
func NewScheduler(
	connectors domain.ConnectorStore,
	executor domain.SyncExecutor,
	locker domain.Locker,
	opts SchedulerOptions,
	logger *zerolog.Logger,
) *Scheduler {
	if opts.TickInterval <= 0 {
		opts.TickInterval = models.DefaultTickIntervalSeconds * time.Second
	}
	if opts.OwnerID == "" {
		opts.OwnerID = NewOwnerID()
	}
	if opts.Clock == nil {
		opts.Clock = domain.SystemClock
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	return &Scheduler{
		connectors:   connectors,
		executor:     executor,
		locker:       locker,
		clock:        opts.Clock,
		events:       opts.Events,
		logger:       logger,
		ownerID:      opts.OwnerID,
		tickInterval: opts.TickInterval,
		requests:     make(chan models.SyncReason, 1),
	}
}

// NewOwnerID returns a fresh lock owner id for one scheduler instance.
func NewOwnerID() string {
	return "sync_owner_" + uuid.NewString()
}

func (s *Scheduler) OwnerID() string {
	return s.ownerID
}

// Request asks for a tick without running it. Requests coalesce while one is
// already pending; the return value reports whether this one was queued.
func (s *Scheduler) Request(reason models.SyncReason) bool {
	select {
	case s.requests <- reason:
		return true
	default:
		s.logger.Debug().Str("reason", string(reason)).Msg("tick request coalesced")
		return false
	}
}

// SetOnline records network state. Coming back online requests a tick.
func (s *Scheduler) SetOnline(online bool) {
	wasOffline := s.offline.Swap(!online)
	if wasOffline && online {
		s.Request(models.ReasonOnline)
	}
}

func (s *Scheduler) Online() bool {
	return !s.offline.Load()
}

// Run fires a startup tick, then serves the timer and trigger requests until
// ctx is done.
func (s *Scheduler) Run(ctx context.Context) {
	s.logger.Info().Str("owner_id", s.ownerID).Dur("tick_interval", s.tickInterval).Msg("scheduler: started")
	defer s.logger.Info().Msg("scheduler: stopped")

	s.Tick(ctx, models.ReasonStartup)

	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Tick(ctx, models.ReasonTimer)
		case reason := <-s.requests:
			s.Tick(ctx, reason)
		}
	}
}

// Tick runs one sync pass over all due connectors. It never returns an error:
// per-connector failures are folded into the summary.
func (s *Scheduler) Tick(ctx context.Context, reason models.SyncReason) models.SyncSummary {
	if s.offline.Load() {
		return models.NewSyncSummary(reason, nil)
	}
	if !s.running.CompareAndSwap(false, true) {
		return models.NewSyncSummary(reason, nil)
	}
	defer s.running.Store(false)

	summary := s.tick(ctx, reason)

	if summary.Attempted > 0 {
		s.logger.Info().
			Str("reason", string(reason)).
			Int("attempted", summary.Attempted).
			Int("succeeded", summary.Succeeded).
			Int("failed", summary.Failed).
			Msg("sync tick completed")
	}
	if s.events != nil {
		if err := s.events.PublishJSON(events.EventSyncTickCompleted, summary); err != nil {
			s.logger.Warn().Err(err).Msg("publish tick event")
		}
	}
	return summary
}

func (s *Scheduler) tick(ctx context.Context, reason models.SyncReason) models.SyncSummary {
	connectors, err := s.connectors.ListConnectors(ctx)
	if err != nil {
		s.logger.Error().Err(err).Str("reason", string(reason)).Msg("list connectors")
		return models.NewSyncSummary(reason, nil)
	}

	due := DueConnectors(connectors, s.clock.Now())
	if len(due) == 0 {
		return models.NewSyncSummary(reason, nil)
	}

	acquired, err := s.locker.Acquire(ctx, s.ownerID)
	if err != nil {
		// Shared lock storage unavailable: run without cross-process coordination.
		s.logger.Warn().Err(err).Msg("sync lock unavailable, continuing without it")
		acquired = true
	}
	if !acquired {
		s.logger.Debug().Str("reason", string(reason)).Msg("sync lock held elsewhere")
		return models.NewSyncSummary(reason, nil)
	}
	defer func() {
		if err := s.locker.Release(context.WithoutCancel(ctx), s.ownerID); err != nil {
			s.logger.Warn().Err(err).Msg("release sync lock")
		}
	}()

	results := make([]models.SyncOutcome, 0, len(due))
	for _, c := range due {
		results = append(results, s.syncOne(ctx, c.ID))
	}
	return models.NewSyncSummary(reason, results)
}

func (s *Scheduler) syncOne(ctx context.Context, connectorID string) (outcome models.SyncOutcome) {
	outcome.ConnectorID = connectorID
	defer func() {
		if r := recover(); r != nil {
			outcome = models.SyncOutcome{ConnectorID: connectorID, Error: fmt.Sprintf("panic: %v", r)}
			s.logger.Error().Str("connector_id", connectorID).Interface("panic", r).Msg("sync executor panicked")
		}
	}()

	res, err := s.executor.Run(ctx, connectorID)
	if err != nil {
		outcome.Error = err.Error()
		return outcome
	}
	outcome.OK = true
	outcome.Inserted = res.Inserted
	outcome.Updated = res.Updated
	return outcome
}
