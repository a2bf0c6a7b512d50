package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"autoflightlog/internal/domain"
	"autoflightlog/internal/models"
)

func encodeLockRecord(ownerID string, now time.Time, ttl time.Duration) (string, error) {
	data, err := json.Marshal(lockRecord{
		OwnerID: ownerID,
		Until:   now.Add(ttl).UnixMilli(),
		At:      now.UnixMilli(),
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal lock record: %w", err)
	}
	return string(data), nil
}

// MemoryLocker is an in-process lock with the same semantics as RedisLocker.
type MemoryLocker struct {
	mu    sync.Mutex
	ttl   time.Duration
	clock domain.Clock
	cur   *lockRecord
}

func NewMemoryLocker(ttl time.Duration, clock domain.Clock) *MemoryLocker {
	if ttl <= 0 {
		ttl = models.DefaultLockTTLSeconds * time.Second
	}
	if clock == nil {
		clock = domain.SystemClock
	}
	return &MemoryLocker{ttl: ttl, clock: clock}
}

func (l *MemoryLocker) Acquire(ctx context.Context, ownerID string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	if l.cur != nil && l.cur.OwnerID != ownerID && l.cur.Until > now.UnixMilli() {
		return false, nil
	}
	l.cur = &lockRecord{OwnerID: ownerID, Until: now.Add(l.ttl).UnixMilli(), At: now.UnixMilli()}
	return true, nil
}

func (l *MemoryLocker) Release(ctx context.Context, ownerID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.cur != nil && l.cur.OwnerID == ownerID {
		l.cur = nil
	}
	return nil
}

// Holder returns the current owner, or "" when the lock is free or expired.
func (l *MemoryLocker) Holder() string {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.cur == nil || l.cur.Until <= l.clock.Now().UnixMilli() {
		return ""
	}
	return l.cur.OwnerID
}
