package workspace

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/virlhq/virl/pkg/planlimits"
	"github.com/virlhq/virl/pkg/redis"
)

// UsageCounter tracks AI generations per workspace per calendar month (UTC).
type UsageCounter interface {
	// Consume records one generation unless the month's count already reached
	// limit, in which case it returns a *LimitError and records nothing.
	Consume(ctx context.Context, workspaceID uuid.UUID, at time.Time, limit planlimits.Limit) (int64, error)
	// Used returns the count for the month containing at.
	Used(ctx context.Context, workspaceID uuid.UUID, at time.Time) (int64, error)
}

// Period formats the month bucket of t, e.g. "2025-03".
func Period(t time.Time) string {
	return t.UTC().Format("2006-01")
}

func periodEnd(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month()+1, 1, 0, 0, 0, 0, time.UTC)
}

// counterKeyGrace keeps the previous month's key briefly readable after rollover.
const counterKeyGrace = 24 * time.Hour

// RedisCounter is a UsageCounter on go-redis. Each month gets its own key that
// expires after the month ends.
type RedisCounter struct {
	client goredis.Cmdable
	prefix string
}

func NewRedisCounter(client goredis.Cmdable, prefix string) *RedisCounter {
	if prefix == "" {
		prefix = "virl"
	}
	return &RedisCounter{client: client, prefix: prefix}
}

func (c *RedisCounter) key(workspaceID uuid.UUID, at time.Time) string {
	return redis.Key(c.prefix, "ai", workspaceID.String(), Period(at))
}

// consumeScript increments KEYS[1] unless its value already reached ARGV[1]
// (a negative limit means unlimited) and returns {allowed, count}. Readers
// never observe a count above the limit.
var consumeScript = goredis.NewScript(`
local n = tonumber(redis.call('GET', KEYS[1]) or '0')
local limit = tonumber(ARGV[1])
if limit >= 0 and n >= limit then
	return {0, n}
end
n = redis.call('INCR', KEYS[1])
redis.call('EXPIREAT', KEYS[1], ARGV[2])
return {1, n}
`)

// Consume checks and increments in one script, so concurrent callers can
// never push the stored count above the limit.
func (c *RedisCounter) Consume(ctx context.Context, workspaceID uuid.UUID, at time.Time, limit planlimits.Limit) (int64, error) {
	limitArg := "-1"
	if n, finite := limit.Value(); finite {
		limitArg = strconv.FormatFloat(n, 'f', -1, 64)
	}

	res, err := consumeScript.Run(ctx, c.client,
		[]string{c.key(workspaceID, at)},
		limitArg, periodEnd(at).Add(counterKeyGrace).Unix(),
	).Int64Slice()
	if err != nil {
		return 0, errors.Join(ErrCounterFailure, err)
	}
	if len(res) != 2 {
		return 0, fmt.Errorf("%w: unexpected script reply %v", ErrCounterFailure, res)
	}

	allowed, n := res[0] == 1, res[1]
	if !allowed {
		return n, &LimitError{Metric: planlimits.MetricAIGenerations, Limit: limit, Current: float64(n)}
	}
	return n, nil
}

func (c *RedisCounter) Used(ctx context.Context, workspaceID uuid.UUID, at time.Time) (int64, error) {
	n, err := c.client.Get(ctx, c.key(workspaceID, at)).Int64()
	if errors.Is(err, goredis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, errors.Join(ErrCounterFailure, err)
	}
	return n, nil
}

// MemoryCounter is an in-process UsageCounter for tests and local development.
type MemoryCounter struct {
	mu     sync.Mutex
	counts map[string]int64
}

func NewMemoryCounter() *MemoryCounter {
	return &MemoryCounter{counts: make(map[string]int64)}
}

func (c *MemoryCounter) Consume(_ context.Context, workspaceID uuid.UUID, at time.Time, limit planlimits.Limit) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := workspaceID.String() + ":" + Period(at)
	used := c.counts[key]
	if limit.Exceeded(float64(used)) {
		return used, &LimitError{Metric: planlimits.MetricAIGenerations, Limit: limit, Current: float64(used)}
	}
	c.counts[key] = used + 1
	return used + 1, nil
}

func (c *MemoryCounter) Used(_ context.Context, workspaceID uuid.UUID, at time.Time) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[workspaceID.String()+":"+Period(at)], nil
}
