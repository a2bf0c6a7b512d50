package repository

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"autoflightlog/internal/domain"

	"github.com/rs/zerolog"
)

const failoverRecheck = time.Minute

// FailoverLocker prefers the shared primary lock and drops to the local
// fallback while the primary errors. The primary is retried after a minute.
type FailoverLocker struct {
	primary  domain.Locker
	fallback domain.Locker
	logger   *zerolog.Logger
	clock    domain.Clock

	isDown    atomic.Bool
	mu        sync.Mutex
	lastCheck time.Time
}

func NewFailoverLocker(primary, fallback domain.Locker, clock domain.Clock, logger *zerolog.Logger) *FailoverLocker {
	if clock == nil {
		clock = domain.SystemClock
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &FailoverLocker{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
		clock:    clock,
	}
}

func (l *FailoverLocker) markDown(err error) {
	l.logger.Error().Err(err).Msg("Primary sync lock failed, falling back to memory")
	l.isDown.Store(true)
	l.mu.Lock()
	l.lastCheck = l.clock.Now()
	l.mu.Unlock()
}

func (l *FailoverLocker) shouldRetryPrimary() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.clock.Now().Sub(l.lastCheck) > failoverRecheck
}

func (l *FailoverLocker) Acquire(ctx context.Context, ownerID string) (bool, error) {
	if !l.isDown.Load() {
		ok, err := l.primary.Acquire(ctx, ownerID)
		if err == nil {
			return ok, nil
		}
		l.markDown(err)
		return l.fallback.Acquire(ctx, ownerID)
	}

	if l.shouldRetryPrimary() {
		ok, err := l.primary.Acquire(ctx, ownerID)
		if err == nil {
			l.logger.Info().Msg("Primary sync lock recovered")
			l.isDown.Store(false)
			return ok, nil
		}
		l.markDown(err)
	}

	return l.fallback.Acquire(ctx, ownerID)
}

// Release frees both locks; the owner may have taken either one.
func (l *FailoverLocker) Release(ctx context.Context, ownerID string) error {
	fbErr := l.fallback.Release(ctx, ownerID)
	if l.isDown.Load() {
		return fbErr
	}
	if err := l.primary.Release(ctx, ownerID); err != nil {
		l.markDown(err)
	}
	return fbErr
}

// Degraded reports whether the fallback is in use.
func (l *FailoverLocker) Degraded() bool {
	return l.isDown.Load()
}
