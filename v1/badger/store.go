package badger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/Aleph-Alpha/trackindex/v1/observability"
	"github.com/Aleph-Alpha/trackindex/v1/pipeline"
	"github.com/dgraph-io/badger/v4"
	"github.com/vmihailenco/msgpack/v5"
)

// maxConflictRetries bounds the retries of a transaction aborted by a concurrent
// writer.
const maxConflictRetries = 16

// Logger is the subset of the logger package used by the store.
type Logger interface {
	Info(msg string, err error, fields ...map[string]interface{})
	Warn(msg string, err error, fields ...map[string]interface{})
}

// Store is a pipeline.Store in an embedded Badger database, for single-process
// deployments that must survive restarts. Keys:
//
//	run/{isrc}/{runID}          msgpack pipeline.Run
//	latest/{isrc}               runID
//	step/{isrc}/{runID}/{step}  msgpack pipeline.StepResult
type Store struct {
	db       *badger.DB
	cfg      Config
	logger   Logger
	observer observability.Observer

	stopGC chan struct{}
	gcDone chan struct{}
}

var _ pipeline.Store = (*Store)(nil)

// Open opens or creates the database.
func Open(cfg Config) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	opts := badger.DefaultOptions(cfg.Dir).
		WithInMemory(cfg.InMemory).
		WithSyncWrites(cfg.SyncWrites).
		WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badger: open %s: %w", cfg.Dir, err)
	}
	return &Store{db: db, cfg: cfg}, nil
}

// WithLogger sets the logger and returns the store for chaining.
func (s *Store) WithLogger(l Logger) *Store {
	s.logger = l
	return s
}

// WithObserver sets the observer and returns the store for chaining.
func (s *Store) WithObserver(o observability.Observer) *Store {
	s.observer = o
	return s
}

// Close stops garbage collection and closes the database.
func (s *Store) Close() error {
	s.StopGC()
	return s.db.Close()
}

func runKey(isrc, runID string) []byte { return []byte("run/" + isrc + "/" + runID) }

func latestKey(isrc string) []byte { return []byte("latest/" + isrc) }

func stepPrefix(isrc, runID string) []byte { return []byte("step/" + isrc + "/" + runID + "/") }

func stepKey(isrc, runID string, step pipeline.Step) []byte {
	return append(stepPrefix(isrc, runID), step...)
}

// update runs fn in a read-write transaction, retrying on conflicts.
func (s *Store) update(fn func(txn *badger.Txn) error) error {
	var err error
	for i := 0; i < maxConflictRetries; i++ {
		err = s.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
	}
	return err
}

func (s *Store) Claim(ctx context.Context, candidate pipeline.Run, coalesce pipeline.CoalesceFunc) (pipeline.Run, bool, error) {
	start := time.Now()
	var (
		result    pipeline.Run
		coalesced bool
	)
	err := s.update(func(txn *badger.Txn) error {
		latest, err := getLatest(txn, candidate.ISRC)
		switch {
		case err == nil:
			if coalesce(&latest) {
				result, coalesced = latest, true
				return nil
			}
		case !errors.Is(err, pipeline.ErrRunNotFound):
			return err
		}

		if err := putRun(txn, candidate); err != nil {
			return err
		}
		if err := txn.Set(latestKey(candidate.ISRC), []byte(candidate.RunID)); err != nil {
			return err
		}
		result, coalesced = candidate, false
		return nil
	})
	s.observeOperation("claim", candidate.ISRC, "", start, err, map[string]interface{}{"coalesced": coalesced})
	if err != nil {
		return pipeline.Run{}, false, err
	}
	return result, coalesced, nil
}

func (s *Store) Run(ctx context.Context, isrc, runID string) (pipeline.Run, error) {
	var run pipeline.Run
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		run, err = getRun(txn, isrc, runID)
		return err
	})
	return run, err
}

func (s *Store) Latest(ctx context.Context, isrc string) (pipeline.Run, error) {
	var run pipeline.Run
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		run, err = getLatest(txn, isrc)
		return err
	})
	return run, err
}

func (s *Store) UpdateRun(ctx context.Context, run pipeline.Run) error {
	start := time.Now()
	err := s.update(func(txn *badger.Txn) error {
		if _, err := txn.Get(runKey(run.ISRC, run.RunID)); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return pipeline.ErrRunNotFound
			}
			return err
		}
		return putRun(txn, run)
	})
	s.observeOperation("update_run", run.ISRC, string(run.Status), start, err, nil)
	return err
}

func (s *Store) Active(ctx context.Context) ([]pipeline.Run, error) {
	start := time.Now()
	var out []pipeline.Run
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte("run/")
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			data, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			run, err := decodeRun(data)
			if err != nil {
				return err
			}
			if !run.Terminal() {
				out = append(out, run)
			}
		}
		return nil
	})
	s.observeOperation("active", "run", "", start, err, map[string]interface{}{"count": len(out)})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) SaveStep(ctx context.Context, result pipeline.StepResult) error {
	start := time.Now()
	key := stepKey(result.ISRC, result.RunID, result.Step)
	err := s.update(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		if err == nil {
			return nil
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		data, err := msgpack.Marshal(&result)
		if err != nil {
			return fmt.Errorf("encode step: %w", err)
		}
		return txn.Set(key, data)
	})
	s.observeOperation("save_step", result.ISRC, string(result.Step), start, err, nil)
	return err
}

func (s *Store) LoadSteps(ctx context.Context, isrc, runID string) (map[pipeline.Step]pipeline.StepResult, error) {
	start := time.Now()
	out := make(map[pipeline.Step]pipeline.StepResult)
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = stepPrefix(isrc, runID)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var res pipeline.StepResult
				if err := msgpack.Unmarshal(val, &res); err != nil {
					return fmt.Errorf("decode step: %w", err)
				}
				res.Value = append([]byte(nil), res.Value...)
				out[res.Step] = res
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	s.observeOperation("load_steps", isrc, runID, start, err, nil)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func getLatest(txn *badger.Txn, isrc string) (pipeline.Run, error) {
	item, err := txn.Get(latestKey(isrc))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return pipeline.Run{}, pipeline.ErrRunNotFound
		}
		return pipeline.Run{}, err
	}
	runID, err := item.ValueCopy(nil)
	if err != nil {
		return pipeline.Run{}, err
	}
	return getRun(txn, isrc, string(runID))
}

func getRun(txn *badger.Txn, isrc, runID string) (pipeline.Run, error) {
	item, err := txn.Get(runKey(isrc, runID))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return pipeline.Run{}, pipeline.ErrRunNotFound
		}
		return pipeline.Run{}, err
	}
	data, err := item.ValueCopy(nil)
	if err != nil {
		return pipeline.Run{}, err
	}
	return decodeRun(data)
}

func putRun(txn *badger.Txn, run pipeline.Run) error {
	data, err := msgpack.Marshal(&run)
	if err != nil {
		return fmt.Errorf("encode run: %w", err)
	}
	return txn.Set(runKey(run.ISRC, run.RunID), data)
}

func decodeRun(data []byte) (pipeline.Run, error) {
	var run pipeline.Run
	if err := msgpack.Unmarshal(data, &run); err != nil {
		return pipeline.Run{}, fmt.Errorf("decode run: %w", err)
	}
	for _, t := range []*time.Time{&run.CreatedAt, &run.UpdatedAt, &run.NextAttemptAt, &run.CompletedAt} {
		if !t.IsZero() {
			*t = t.UTC()
		}
	}
	return run, nil
}
