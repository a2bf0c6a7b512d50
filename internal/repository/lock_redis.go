package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"autoflightlog/internal/domain"
	"autoflightlog/internal/models"

	"github.com/redis/go-redis/v9"
)

// lockRecord is the JSON stored under the lock key.
type lockRecord struct {
	OwnerID string `json:"owner_id"`
	Until   int64  `json:"until"`
	At      int64  `json:"at"`
}

// acquireScript takes the lock unless another owner holds an unexpired one.
// KEYS[1]=lock key, ARGV: owner, now ms, ttl ms, record json.
var acquireScript = redis.NewScript(`
local cur = redis.call("GET", KEYS[1])
if cur then
  local ok, rec = pcall(cjson.decode, cur)
  if ok and type(rec) == "table" and rec.owner_id ~= ARGV[1] and tonumber(rec["until"]) and tonumber(rec["until"]) > tonumber(ARGV[2]) then
    return 0
  end
end
redis.call("SET", KEYS[1], ARGV[4], "PX", ARGV[3])
return 1
`)

// releaseScript deletes the lock only when owned by ARGV[1].
var releaseScript = redis.NewScript(`
local cur = redis.call("GET", KEYS[1])
if not cur then
  return 0
end
local ok, rec = pcall(cjson.decode, cur)
if ok and type(rec) == "table" and rec.owner_id == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker is the sync lock shared by every process talking to one Redis.
type RedisLocker struct {
	client *redis.Client
	key    string
	ttl    time.Duration
	clock  domain.Clock
}

func NewRedisLocker(client *redis.Client, key string, ttl time.Duration, clock domain.Clock) *RedisLocker {
	if key == "" {
		key = models.DefaultLockKey
	}
	if ttl <= 0 {
		ttl = models.DefaultLockTTLSeconds * time.Second
	}
	if clock == nil {
		clock = domain.SystemClock
	}
	return &RedisLocker{client: client, key: key, ttl: ttl, clock: clock}
}

func (l *RedisLocker) Acquire(ctx context.Context, ownerID string) (bool, error) {
	if l.client == nil {
		return false, errors.New("redis client is nil")
	}
	now := l.clock.Now()
	rec, err := encodeLockRecord(ownerID, now, l.ttl)
	if err != nil {
		return false, err
	}

	n, err := acquireScript.Run(ctx, l.client, []string{l.key},
		ownerID, now.UnixMilli(), l.ttl.Milliseconds(), rec).Int()
	if err != nil {
		return false, fmt.Errorf("acquire sync lock: %w", err)
	}
	return n == 1, nil
}

func (l *RedisLocker) Release(ctx context.Context, ownerID string) error {
	if l.client == nil {
		return errors.New("redis client is nil")
	}
	if err := releaseScript.Run(ctx, l.client, []string{l.key}, ownerID).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("release sync lock: %w", err)
	}
	return nil
}
