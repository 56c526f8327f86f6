package pipeline

import (
	"context"
	"sort"
	"sync"
	"time"
)

// CoalesceFunc decides, given the latest run of an ISRC (nil when there is none),
// whether a new trigger joins it.
type CoalesceFunc func(latest *Run) bool

// Store persists runs and their step results. Implementations must make Claim atomic
// per ISRC and SaveStep write-once per (isrc, runID, step): a second save of the same
// step keeps the first value.
type Store interface {
	// Claim returns the latest run of candidate.ISRC with coalesced=true when coalesce
	// accepts it. Otherwise it stores candidate as the latest run and returns it.
	Claim(ctx context.Context, candidate Run, coalesce CoalesceFunc) (run Run, coalesced bool, err error)

	// Run returns one run, ErrRunNotFound if unknown.
	Run(ctx context.Context, isrc, runID string) (Run, error)

	// Latest returns the most recently claimed run of isrc, ErrRunNotFound if none.
	Latest(ctx context.Context, isrc string) (Run, error)

	// UpdateRun replaces a stored run.
	UpdateRun(ctx context.Context, run Run) error

	// Active lists every run that is not terminal.
	Active(ctx context.Context) ([]Run, error)

	SaveStep(ctx context.Context, result StepResult) error

	// LoadSteps returns the recorded results of a run, keyed by step.
	LoadSteps(ctx context.Context, isrc, runID string) (map[Step]StepResult, error)
}

// ShouldCoalesce is the idempotency rule: a trigger joins the latest run if it is
// still in progress, or if it completed less than window ago and force is not set.
// Failed runs never absorb triggers.
func ShouldCoalesce(latest *Run, force bool, window time.Duration, now time.Time) bool {
	if latest == nil {
		return false
	}
	switch latest.Status {
	case StatusPending, StatusRunning:
		return true
	case StatusCompleted:
		if force {
			return false
		}
		done := latest.CompletedAt
		if done.IsZero() {
			done = latest.CreatedAt
		}
		return now.Sub(done) < window
	default:
		return false
	}
}

type runKey struct{ isrc, runID string }

type stepKey struct {
	runKey
	step Step
}

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu     sync.Mutex
	runs   map[runKey]Run
	latest map[string]string
	steps  map[stepKey]StepResult
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		runs:   make(map[runKey]Run),
		latest: make(map[string]string),
		steps:  make(map[stepKey]StepResult),
	}
}

func (m *MemoryStore) Claim(ctx context.Context, candidate Run, coalesce CoalesceFunc) (Run, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if id, ok := m.latest[candidate.ISRC]; ok {
		latest := m.runs[runKey{candidate.ISRC, id}]
		if coalesce(&latest) {
			return latest, true, nil
		}
	}

	m.runs[runKey{candidate.ISRC, candidate.RunID}] = candidate
	m.latest[candidate.ISRC] = candidate.RunID
	return candidate, false, nil
}

func (m *MemoryStore) Run(ctx context.Context, isrc, runID string) (Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.runs[runKey{isrc, runID}]
	if !ok {
		return Run{}, ErrRunNotFound
	}
	return run, nil
}

func (m *MemoryStore) Latest(ctx context.Context, isrc string) (Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.latest[isrc]
	if !ok {
		return Run{}, ErrRunNotFound
	}
	return m.runs[runKey{isrc, id}], nil
}

func (m *MemoryStore) UpdateRun(ctx context.Context, run Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := runKey{run.ISRC, run.RunID}
	if _, ok := m.runs[key]; !ok {
		return ErrRunNotFound
	}
	m.runs[key] = run
	return nil
}

func (m *MemoryStore) Active(ctx context.Context) ([]Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Run
	for _, run := range m.runs {
		if !run.Terminal() {
			out = append(out, run)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *MemoryStore) SaveStep(ctx context.Context, result StepResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := stepKey{runKey{result.ISRC, result.RunID}, result.Step}
	if _, ok := m.steps[key]; ok {
		return nil
	}
	result.Value = append([]byte(nil), result.Value...)
	m.steps[key] = result
	return nil
}

func (m *MemoryStore) LoadSteps(ctx context.Context, isrc, runID string) (map[Step]StepResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[Step]StepResult)
	for _, step := range Steps {
		if r, ok := m.steps[stepKey{runKey{isrc, runID}, step}]; ok {
			out[step] = r
		}
	}
	return out, nil
}
