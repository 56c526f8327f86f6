package redis

import (
	"context"
	"time"

	"github.com/Aleph-Alpha/trackindex/v1/pipeline"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// reserveScript trims the log to the window and records a start when below the
// limit. It returns 0 on success, else the milliseconds until the oldest start
// leaves the window.
var reserveScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])

redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)
if redis.call('ZCARD', key) < limit then
  redis.call('ZADD', key, now, ARGV[4])
  redis.call('PEXPIRE', key, window)
  return 0
end

local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
local wait = tonumber(oldest[2]) + window - now
if wait < 1 then
  wait = 1
end
return wait
`)

// Throttle is a sliding-log pipeline.Throttle whose log lives in a sorted set, so
// the start rate is bounded across every process sharing it.
type Throttle struct {
	r      *RedisClient
	key    string
	limit  int
	window time.Duration
	now    func() time.Time
}

var _ pipeline.Throttle = (*Throttle)(nil)

// NewThrottle admits limit starts per window under the given name.
func NewThrottle(r *RedisClient, name string, limit int, window time.Duration) *Throttle {
	return &Throttle{
		r:      r,
		key:    r.cfg.KeyPrefix + ":throttle:" + name,
		limit:  limit,
		window: window,
		now:    time.Now,
	}
}

func (t *Throttle) Wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil || t.limit <= 0 {
		return err
	}
	start := time.Now()
	member := uuid.NewString()

	for {
		delay, err := t.reserve(ctx, member)
		if err != nil {
			t.r.observeOperation("throttle_wait", t.key, "", time.Since(start), err, 0, nil)
			return err
		}
		if delay <= 0 {
			t.r.observeOperation("throttle_wait", t.key, "", time.Since(start), nil, 0, nil)
			return nil
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func (t *Throttle) reserve(ctx context.Context, member string) (time.Duration, error) {
	ms, err := reserveScript.Run(ctx, t.r.client, []string{t.key},
		t.now().UnixMilli(), t.window.Milliseconds(), t.limit, member).Int64()
	if err != nil {
		return 0, err
	}
	return time.Duration(ms) * time.Millisecond, nil
}
