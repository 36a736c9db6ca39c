package auth

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Revoker records per-admin cutoffs. Tokens issued before an admin's cutoff
// are rejected. Cutoffs only move forward.
type Revoker interface {
	RevokeBefore(ctx context.Context, adminID int64, cutoff time.Time) error
	RevokedBefore(ctx context.Context, adminID int64) (time.Time, error)
}

// MemoryRevoker keeps cutoffs in process memory (single instance only).
type MemoryRevoker struct {
	mu      sync.Mutex
	cutoffs map[int64]time.Time
}

func NewMemoryRevoker() *MemoryRevoker {
	return &MemoryRevoker{cutoffs: make(map[int64]time.Time)}
}

func (r *MemoryRevoker) RevokeBefore(_ context.Context, adminID int64, cutoff time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cutoff.After(r.cutoffs[adminID]) {
		r.cutoffs[adminID] = cutoff
	}
	return nil
}

func (r *MemoryRevoker) RevokedBefore(_ context.Context, adminID int64) (time.Time, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cutoffs[adminID], nil
}

// raiseCutoff sets KEYS[1] to ARGV[1] unless a later cutoff is stored.
var raiseCutoff = redis.NewScript(`
local current = redis.call("GET", KEYS[1])
if current and tonumber(current) >= tonumber(ARGV[1]) then
  return 0
end
redis.call("SET", KEYS[1], ARGV[1], "EX", ARGV[2])
return 1
`)

// RedisRevoker shares cutoffs across instances. Entries expire after the
// token TTL, when every token they could reject has expired anyway.
type RedisRevoker struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisRevoker(client *redis.Client, ttl time.Duration) *RedisRevoker {
	return &RedisRevoker{client: client, ttl: ttl}
}

func (r *RedisRevoker) RevokeBefore(ctx context.Context, adminID int64, cutoff time.Time) error {
	seconds := int64(r.ttl / time.Second)
	if seconds <= 0 {
		seconds = 1
	}
	return raiseCutoff.Run(ctx, r.client, []string{cutoffKey(adminID)}, cutoff.Unix(), seconds).Err()
}

func (r *RedisRevoker) RevokedBefore(ctx context.Context, adminID int64) (time.Time, error) {
	unix, err := r.client.Get(ctx, cutoffKey(adminID)).Int64()
	if err == redis.Nil {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(unix, 0), nil
}

func (r *RedisRevoker) Close() error {
	return r.client.Close()
}

func cutoffKey(adminID int64) string {
	return "memorial:admin-cutoff:" + strconv.FormatInt(adminID, 10)
}
