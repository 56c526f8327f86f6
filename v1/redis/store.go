package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Aleph-Alpha/trackindex/v1/pipeline"
	"github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"
)

// claimAttempts bounds the optimistic transaction retries of Claim and UpdateRun.
const claimAttempts = 10

// StepStore is a pipeline.Store shared by every process connected to the same
// Redis. Keys, below the configured prefix:
//
//	run:{isrc}:{runID}    msgpack pipeline.Run
//	latest:{isrc}         runID of the most recent claim
//	steps:{isrc}:{runID}  hash step -> msgpack pipeline.StepResult
//	active                sorted set of "{isrc}/{runID}" by creation time
type StepStore struct {
	r      *RedisClient
	prefix string
	ttl    time.Duration
}

var _ pipeline.Store = (*StepStore)(nil)

// NewStepStore returns a store using the client's key prefix and step TTL.
func NewStepStore(r *RedisClient) *StepStore {
	return &StepStore{r: r, prefix: r.cfg.KeyPrefix, ttl: r.cfg.StepTTL}
}

func (s *StepStore) runKey(isrc, runID string) string {
	return s.prefix + ":run:" + isrc + ":" + runID
}

func (s *StepStore) latestKey(isrc string) string { return s.prefix + ":latest:" + isrc }

func (s *StepStore) stepsKey(isrc, runID string) string {
	return s.prefix + ":steps:" + isrc + ":" + runID
}

func (s *StepStore) activeKey() string { return s.prefix + ":active" }

func activeMember(isrc, runID string) string { return isrc + "/" + runID }

func parseActiveMember(m string) (isrc, runID string, ok bool) {
	return strings.Cut(m, "/")
}

func (s *StepStore) Claim(ctx context.Context, candidate pipeline.Run, coalesce pipeline.CoalesceFunc) (pipeline.Run, bool, error) {
	start := time.Now()
	latestKey := s.latestKey(candidate.ISRC)

	var (
		result    pipeline.Run
		coalesced bool
	)
	txf := func(tx *redis.Tx) error {
		latest, err := s.latestWith(ctx, tx, candidate.ISRC)
		switch {
		case err == nil:
			if coalesce(&latest) {
				result, coalesced = latest, true
				return nil
			}
		case !errors.Is(err, pipeline.ErrRunNotFound):
			return err
		}

		data, err := msgpack.Marshal(&candidate)
		if err != nil {
			return fmt.Errorf("encode run: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, s.runKey(candidate.ISRC, candidate.RunID), data, 0)
			pipe.Set(ctx, latestKey, candidate.RunID, 0)
			pipe.ZAdd(ctx, s.activeKey(), redis.Z{
				Score:  float64(candidate.CreatedAt.UnixMicro()),
				Member: activeMember(candidate.ISRC, candidate.RunID),
			})
			return nil
		})
		if err == nil {
			result, coalesced = candidate, false
		}
		return err
	}

	err := s.retryOptimistic(ctx, txf, latestKey)
	s.r.observeOperation("claim", latestKey, "", time.Since(start), err, 0, map[string]interface{}{"coalesced": coalesced})
	if err != nil {
		return pipeline.Run{}, false, err
	}
	return result, coalesced, nil
}

func (s *StepStore) retryOptimistic(ctx context.Context, fn func(*redis.Tx) error, keys ...string) error {
	for i := 0; i < claimAttempts; i++ {
		err := s.r.client.Watch(ctx, fn, keys...)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
	}
	return ErrContention
}

func (s *StepStore) Run(ctx context.Context, isrc, runID string) (pipeline.Run, error) {
	return s.runWith(ctx, s.r.client, isrc, runID)
}

func (s *StepStore) Latest(ctx context.Context, isrc string) (pipeline.Run, error) {
	return s.latestWith(ctx, s.r.client, isrc)
}

func (s *StepStore) latestWith(ctx context.Context, c getter, isrc string) (pipeline.Run, error) {
	runID, err := c.Get(ctx, s.latestKey(isrc)).Result()
	if err != nil {
		if IsNilError(err) {
			return pipeline.Run{}, pipeline.ErrRunNotFound
		}
		return pipeline.Run{}, err
	}
	return s.runWith(ctx, c, isrc, runID)
}

func (s *StepStore) runWith(ctx context.Context, c getter, isrc, runID string) (pipeline.Run, error) {
	data, err := c.Get(ctx, s.runKey(isrc, runID)).Bytes()
	if err != nil {
		if IsNilError(err) {
			return pipeline.Run{}, pipeline.ErrRunNotFound
		}
		return pipeline.Run{}, err
	}
	return decodeRun(data)
}

func (s *StepStore) UpdateRun(ctx context.Context, run pipeline.Run) error {
	start := time.Now()
	key := s.runKey(run.ISRC, run.RunID)

	txf := func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return err
		}
		if n == 0 {
			return pipeline.ErrRunNotFound
		}

		data, err := msgpack.Marshal(&run)
		if err != nil {
			return fmt.Errorf("encode run: %w", err)
		}
		member := activeMember(run.ISRC, run.RunID)
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			if !run.Terminal() {
				pipe.ZAdd(ctx, s.activeKey(), redis.Z{Score: float64(run.CreatedAt.UnixMicro()), Member: member})
				return nil
			}
			pipe.ZRem(ctx, s.activeKey(), member)
			if s.ttl > 0 {
				pipe.Expire(ctx, key, s.ttl)
				pipe.Expire(ctx, s.stepsKey(run.ISRC, run.RunID), s.ttl)
			}
			return nil
		})
		return err
	}

	err := s.retryOptimistic(ctx, txf, key)
	s.r.observeOperation("update_run", key, string(run.Status), time.Since(start), err, 0, nil)
	return err
}

func (s *StepStore) Active(ctx context.Context) ([]pipeline.Run, error) {
	start := time.Now()
	members, err := s.r.client.ZRange(ctx, s.activeKey(), 0, -1).Result()
	if err != nil {
		s.r.observeOperation("active", s.activeKey(), "", time.Since(start), err, 0, nil)
		return nil, err
	}

	var out []pipeline.Run
	for _, m := range members {
		isrc, runID, ok := parseActiveMember(m)
		if !ok {
			continue
		}
		run, err := s.Run(ctx, isrc, runID)
		if errors.Is(err, pipeline.ErrRunNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if !run.Terminal() {
			out = append(out, run)
		}
	}
	s.r.observeOperation("active", s.activeKey(), "", time.Since(start), nil, int64(len(out)), nil)
	return out, nil
}

func (s *StepStore) SaveStep(ctx context.Context, result pipeline.StepResult) error {
	start := time.Now()
	key := s.stepsKey(result.ISRC, result.RunID)

	data, err := msgpack.Marshal(&result)
	if err != nil {
		return fmt.Errorf("encode step: %w", err)
	}
	_, err = s.r.client.HSetNX(ctx, key, string(result.Step), data).Result()
	s.r.observeOperation("save_step", key, string(result.Step), time.Since(start), err, int64(len(data)), nil)
	return err
}

func (s *StepStore) LoadSteps(ctx context.Context, isrc, runID string) (map[pipeline.Step]pipeline.StepResult, error) {
	start := time.Now()
	key := s.stepsKey(isrc, runID)

	fields, err := s.r.client.HGetAll(ctx, key).Result()
	s.r.observeOperation("load_steps", key, "", time.Since(start), err, int64(len(fields)), nil)
	if err != nil {
		return nil, err
	}

	out := make(map[pipeline.Step]pipeline.StepResult, len(fields))
	for step, raw := range fields {
		var res pipeline.StepResult
		if err := msgpack.Unmarshal([]byte(raw), &res); err != nil {
			return nil, fmt.Errorf("decode step %s: %w", step, err)
		}
		res.CompletedAt = utc(res.CompletedAt)
		out[pipeline.Step(step)] = res
	}
	return out, nil
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func decodeRun(data []byte) (pipeline.Run, error) {
	var run pipeline.Run
	if err := msgpack.Unmarshal(data, &run); err != nil {
		return pipeline.Run{}, fmt.Errorf("decode run: %w", err)
	}
	run.CreatedAt = utc(run.CreatedAt)
	run.UpdatedAt = utc(run.UpdatedAt)
	run.NextAttemptAt = utc(run.NextAttemptAt)
	run.CompletedAt = utc(run.CompletedAt)
	return run, nil
}

func utc(t time.Time) time.Time {
	if t.IsZero() {
		return time.Time{}
	}
	return t.UTC()
}
