package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Aleph-Alpha/trackindex/v1/adapter"
	"github.com/Aleph-Alpha/trackindex/v1/events"
	"github.com/Aleph-Alpha/trackindex/v1/isrc"
	"github.com/Aleph-Alpha/trackindex/v1/metrics"
	"github.com/Aleph-Alpha/trackindex/v1/track"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/sync/semaphore"
)

// Logger is the subset of the logger package used by the orchestrator.
type Logger interface {
	InfoWithContext(ctx context.Context, msg string, err error, fields ...map[string]interface{})
	DebugWithContext(ctx context.Context, msg string, err error, fields ...map[string]interface{})
	WarnWithContext(ctx context.Context, msg string, err error, fields ...map[string]interface{})
	ErrorWithContext(ctx context.Context, msg string, err error, fields ...map[string]interface{})
}

// Ports are the collaborators of a run. Archive is optional.
type Ports struct {
	AudioFeatures AudioFeaturesSource
	Lyrics        LyricsSource
	Interpreter   Interpreter
	Embedder      Embedder
	Index         Indexer
	Archive       Archive
	Publisher     events.Publisher
}

func (p Ports) validate() error {
	switch {
	case p.AudioFeatures == nil:
		return errors.New("pipeline: audio features source is required")
	case p.Lyrics == nil:
		return errors.New("pipeline: lyrics source is required")
	case p.Interpreter == nil:
		return errors.New("pipeline: interpreter is required")
	case p.Embedder == nil:
		return errors.New("pipeline: embedder is required")
	case p.Index == nil:
		return errors.New("pipeline: index is required")
	case p.Publisher == nil:
		return errors.New("pipeline: publisher is required")
	}
	return nil
}

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

func WithLogger(l Logger) Option { return func(o *Orchestrator) { o.logger = l } }

// WithThrottle replaces the in-process sliding log, e.g. with a throttle shared
// across processes.
func WithThrottle(t Throttle) Option { return func(o *Orchestrator) { o.throttle = t } }

// Tracer is implemented by *tracer.Tracer.
type Tracer interface {
	StartSpan(ctx context.Context, name string) (context.Context, trace.Span)
	RecordErrorOnSpan(span trace.Span, err error)
	SetAttributes(span trace.Span, attrs map[string]interface{})
}

func WithTracer(t Tracer) Option { return func(o *Orchestrator) { o.tracer = t } }

func WithMetrics(c metrics.MetricsCollector) Option {
	return func(o *Orchestrator) { o.metrics = newRunMetrics(c) }
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option { return func(o *Orchestrator) { o.now = now } }

// Orchestrator drives ingestion runs through the fixed step sequence. Runs execute in
// background goroutines bounded by a semaphore and a start throttle; every step
// output is recorded in the Store before the next step starts.
type Orchestrator struct {
	cfg       Config
	ports     Ports
	store     Store
	throttle  Throttle
	sem       *semaphore.Weighted
	assembler *track.Assembler
	logger    Logger
	tracer    Tracer
	metrics   *runMetrics
	now       func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu        sync.Mutex
	scheduled map[string]bool
	closed    bool
}

// New validates cfg and ports and returns an idle orchestrator.
func New(cfg Config, ports Ports, store Store, opts ...Option) (*Orchestrator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := ports.validate(); err != nil {
		return nil, err
	}
	if store == nil {
		return nil, errors.New("pipeline: store is required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	o := &Orchestrator{
		cfg:       cfg,
		ports:     ports,
		store:     store,
		sem:       semaphore.NewWeighted(int64(cfg.MaxConcurrent)),
		assembler: track.NewAssembler(cfg.Dimension),
		logger:    nopLogger{},
		tracer:    nopTracer{},
		now:       time.Now,
		ctx:       ctx,
		cancel:    cancel,
		scheduled: make(map[string]bool),
	}
	if cfg.ThrottleLimit > 0 {
		o.throttle = NewSlidingLog(cfg.ThrottleLimit, cfg.ThrottleWindow)
	} else {
		o.throttle = unlimited{}
	}
	for _, opt := range opts {
		opt(o)
	}
	o.assembler.Now = o.now
	return o, nil
}

// Submit accepts a trigger and returns without waiting for the run. Adapter failures
// are never returned; they surface as the run's Failed completion event. A malformed
// ISRC is rejected with an immediate Failed event of kind validation. The only
// errors are store failures and ErrClosed.
func (o *Orchestrator) Submit(ctx context.Context, req Request) (Ticket, error) {
	if o.isClosed() {
		return Ticket{}, ErrClosed
	}

	runID := uuid.NewString()
	code, err := isrc.Normalize(req.ISRC)
	if err != nil {
		o.metrics.trigger("rejected")
		o.logger.WarnWithContext(ctx, "Rejected ingestion trigger", err, map[string]interface{}{"isrc": req.ISRC, "run_id": runID})
		o.publishFailure(ctx, Run{ISRC: req.ISRC, RunID: runID, ErrorKind: KindValidation, Error: err.Error()})
		return Ticket{RunID: runID, Status: StatusFailed}, nil
	}

	now := o.now().UTC()
	candidate := Run{
		ISRC:      code,
		RunID:     runID,
		Status:    StatusPending,
		Force:     req.ForceReprocess,
		CreatedAt: now,
		UpdatedAt: now,
	}
	run, coalesced, err := o.store.Claim(ctx, candidate, func(latest *Run) bool {
		return ShouldCoalesce(latest, req.ForceReprocess, o.cfg.CoalesceWindow, now)
	})
	if err != nil {
		return Ticket{}, fmt.Errorf("pipeline: claim run for %s: %w", code, err)
	}

	fields := map[string]interface{}{"isrc": code, "run_id": run.RunID, "force": req.ForceReprocess}
	if coalesced {
		o.metrics.trigger("coalesced")
		o.logger.DebugWithContext(ctx, "Coalesced ingestion trigger", nil, fields)
		return Ticket{RunID: run.RunID, Coalesced: true, Status: run.Status}, nil
	}

	o.metrics.trigger("started")
	o.logger.InfoWithContext(ctx, "Accepted ingestion trigger", nil, fields)
	o.schedule(run, 0)
	return Ticket{RunID: run.RunID, Status: run.Status}, nil
}

// Resume schedules every non-terminal run of the store, honoring pending backoff. It
// is called on startup to continue runs abandoned by a previous process.
func (o *Orchestrator) Resume(ctx context.Context) (int, error) {
	runs, err := o.store.Active(ctx)
	if err != nil {
		return 0, fmt.Errorf("pipeline: list active runs: %w", err)
	}
	n := 0
	for _, run := range runs {
		var delay time.Duration
		if run.Status == StatusPending && !run.NextAttemptAt.IsZero() {
			delay = run.NextAttemptAt.Sub(o.now())
		}
		if o.schedule(run, delay) {
			n++
		}
	}
	if n > 0 {
		o.logger.InfoWithContext(ctx, "Resumed ingestion runs", nil, map[string]interface{}{"count": n})
	}
	return n, nil
}

// Status returns the latest run of an ISRC.
func (o *Orchestrator) Status(ctx context.Context, code string) (Run, error) {
	normalized, err := isrc.Normalize(code)
	if err != nil {
		return Run{}, err
	}
	return o.store.Latest(ctx, normalized)
}

// Await polls the store until the run is terminal or ctx is done.
func (o *Orchestrator) Await(ctx context.Context, code, runID string, poll time.Duration) (Run, error) {
	if poll <= 0 {
		poll = 100 * time.Millisecond
	}
	ticker := time.NewTicker(poll)
	defer ticker.Stop()
	for {
		run, err := o.store.Run(ctx, code, runID)
		if err != nil {
			return Run{}, err
		}
		if run.Terminal() {
			return run, nil
		}
		select {
		case <-ctx.Done():
			return run, ctx.Err()
		case <-ticker.C:
		}
	}
}

// Close stops scheduling, cancels running attempts and waits for their goroutines.
// Cancelled attempts stay non-terminal and are picked up by Resume.
func (o *Orchestrator) Close(ctx context.Context) error {
	o.mu.Lock()
	o.closed = true
	o.mu.Unlock()
	o.cancel()

	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (o *Orchestrator) isClosed() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.closed
}

// schedule starts a background attempt after delay. A run already scheduled in this
// process is not scheduled twice.
func (o *Orchestrator) schedule(run Run, delay time.Duration) bool {
	return o.scheduleAttempt(run, delay, 0)
}

// scheduleAttempt is schedule with the number of consecutive stalled attempts of the
// run, which selects the backoff before the next try.
func (o *Orchestrator) scheduleAttempt(run Run, delay time.Duration, stalls int) bool {
	o.mu.Lock()
	if o.closed || o.scheduled[run.RunID] {
		o.mu.Unlock()
		return false
	}
	o.scheduled[run.RunID] = true
	o.wg.Add(1)
	o.mu.Unlock()

	go func() {
		defer o.wg.Done()
		next, err := o.attemptAfter(run, delay)

		o.mu.Lock()
		delete(o.scheduled, run.RunID)
		o.mu.Unlock()

		if err == nil || o.ctx.Err() != nil {
			return
		}
		switch {
		case isStalled(err):
			stalls++
			d := o.cfg.BackoffFor(stalls)
			o.logger.WarnWithContext(o.ctx, "Ingestion attempt stalled, rescheduling", err, map[string]interface{}{
				"isrc":   run.ISRC,
				"run_id": run.RunID,
				"stalls": stalls,
				"delay":  d.String(),
			})
			o.scheduleAttempt(run, d, stalls)
		case next.Status == StatusPending:
			o.scheduleAttempt(next, next.NextAttemptAt.Sub(o.now()), 0)
		}
	}()
	return true
}

// attemptAfter waits for delay, the throttle and a semaphore slot, then executes one
// attempt.
func (o *Orchestrator) attemptAfter(run Run, delay time.Duration) (Run, error) {
	ctx := o.ctx
	if delay > 0 {
		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return run, ctx.Err()
		case <-t.C:
		}
	}

	waitStart := time.Now()
	if err := o.throttle.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return run, ctx.Err()
		}
		return run, stalled("wait for throttle", err)
	}
	o.metrics.waited(time.Since(waitStart))

	if err := o.sem.Acquire(ctx, 1); err != nil {
		return run, err
	}
	defer o.sem.Release(1)

	return o.Execute(ctx, run.ISRC, run.RunID)
}

// Execute runs one attempt of a run synchronously, skipping every step whose result
// is already recorded. It returns the updated run and the attempt's error, if any.
// A cancelled ctx leaves the run non-terminal. When only the completion event fails
// through the last attempt, the run is Completed with the delivery error kept in
// run.Error and no error is returned.
func (o *Orchestrator) Execute(ctx context.Context, code, runID string) (Run, error) {
	run, err := o.store.Run(ctx, code, runID)
	if errors.Is(err, ErrRunNotFound) {
		return Run{}, fmt.Errorf("pipeline: load run: %w", err)
	}
	if err != nil {
		return Run{}, stalled("load run", err)
	}
	if run.Terminal() {
		return run, nil
	}

	ctx, span := o.tracer.StartSpan(ctx, "pipeline.attempt")
	defer span.End()
	o.tracer.SetAttributes(span, map[string]interface{}{
		"isrc":    run.ISRC,
		"run_id":  run.RunID,
		"attempt": run.Attempts + 1,
	})

	o.metrics.running(1)
	defer o.metrics.running(-1)

	run.Status = StatusRunning
	run.Attempts++
	run.UpdatedAt = o.now().UTC()
	if err := o.store.UpdateRun(ctx, run); err != nil {
		return run, stalled("mark running", err)
	}

	fields := map[string]interface{}{"isrc": run.ISRC, "run_id": run.RunID, "attempt": run.Attempts}
	stepErr := o.runSteps(ctx, run)

	if stepErr != nil && ctx.Err() != nil {
		o.logger.WarnWithContext(ctx, "Ingestion attempt abandoned", stepErr, fields)
		return run, stepErr
	}

	now := o.now().UTC()
	run.UpdatedAt = now
	if stepErr == nil {
		run.Status = StatusCompleted
		run.CompletedAt = now
		run.NextAttemptAt = time.Time{}
		run.ErrorKind, run.Error = "", ""
	} else {
		kind, retryable := Classify(stepErr)
		run.ErrorKind, run.Error = kind, stepErr.Error()
		fields["error_kind"] = kind
		step, _ := failedStep(stepErr)
		switch {
		case retryable && run.Attempts < o.cfg.MaxAttempts:
			run.Status = StatusPending
			run.NextAttemptAt = now.Add(o.retryDelay(run.Attempts, stepErr))
			fields["next_attempt_at"] = run.NextAttemptAt
		case step == StepEmitCompletion:
			// The document is already indexed; only the event is lost.
			run.Status = StatusCompleted
			run.CompletedAt = now
			run.NextAttemptAt = time.Time{}
		default:
			run.Status = StatusFailed
			run.CompletedAt = now
			run.NextAttemptAt = time.Time{}
		}
		o.tracer.RecordErrorOnSpan(span, stepErr)
	}

	// The outcome is recorded even if the attempt's context ends now.
	persistCtx := context.WithoutCancel(ctx)
	if err := o.store.UpdateRun(persistCtx, run); err != nil {
		o.logger.ErrorWithContext(ctx, "Failed to record run outcome", err, fields)
		return run, stalled("record outcome", err)
	}
	o.metrics.attempt(run.Status, run.ErrorKind)

	switch run.Status {
	case StatusCompleted:
		if stepErr != nil {
			o.logger.WarnWithContext(ctx, "Ingestion completed without completion event", stepErr, fields)
			return run, nil
		}
		o.logger.InfoWithContext(ctx, "Ingestion completed", nil, fields)
	case StatusPending:
		o.logger.WarnWithContext(ctx, "Ingestion attempt failed, retrying", stepErr, fields)
	case StatusFailed:
		o.logger.ErrorWithContext(ctx, "Ingestion failed", stepErr, fields)
		o.publishFailure(persistCtx, run)
	}
	return run, stepErr
}

func (o *Orchestrator) runSteps(ctx context.Context, run Run) error {
	recorded, err := o.store.LoadSteps(ctx, run.ISRC, run.RunID)
	if err != nil {
		return transient("load steps", err)
	}

	state := &runState{isrc: run.ISRC, runID: run.RunID}
	for _, step := range Steps {
		if res, ok := recorded[step]; ok {
			if err := state.restore(step, res.Value); err != nil {
				return fmt.Errorf("%s: restore recorded result: %w", step, err)
			}
			continue
		}

		if err := o.executeStep(ctx, step, state); err != nil {
			return &stepError{step: step, err: err}
		}

		value, err := state.snapshot(step)
		if err != nil {
			return fmt.Errorf("%s: encode result: %w", step, err)
		}
		err = o.store.SaveStep(ctx, StepResult{
			ISRC:        run.ISRC,
			RunID:       run.RunID,
			Step:        step,
			Value:       value,
			CompletedAt: o.now().UTC(),
		})
		if err != nil {
			return &stepError{step: step, err: transient("record step", err)}
		}
	}
	return nil
}

func (o *Orchestrator) executeStep(ctx context.Context, step Step, state *runState) error {
	ctx, span := o.tracer.StartSpan(ctx, "pipeline.step."+string(step))
	defer span.End()

	start := time.Now()
	err := o.runStep(ctx, step, state)
	o.metrics.step(step, time.Since(start), err)
	if err != nil {
		o.tracer.RecordErrorOnSpan(span, err)
	}
	return err
}

// retryDelay is the configured backoff for the attempt, extended to the server's
// Retry-After hint when that is longer.
func (o *Orchestrator) retryDelay(attempt int, err error) time.Duration {
	d := o.cfg.BackoffFor(attempt)
	if aerr, ok := adapter.As(err); ok && aerr.RetryAfter > d {
		d = aerr.RetryAfter
	}
	return d
}

// publishFailure emits the Failed event. Delivery is best effort: the run is already
// recorded as failed.
func (o *Orchestrator) publishFailure(ctx context.Context, run Run) {
	err := o.ports.Publisher.Publish(ctx, events.CompletionEvent{
		ISRC:       run.ISRC,
		RunID:      run.RunID,
		Status:     events.StatusFailed,
		ErrorKind:  string(run.ErrorKind),
		Error:      run.Error,
		OccurredAt: o.now().UTC(),
	})
	if err != nil {
		o.logger.WarnWithContext(ctx, "Failed to publish failure event", err, map[string]interface{}{
			"isrc":   run.ISRC,
			"run_id": run.RunID,
		})
	}
}

type nopLogger struct{}

func (nopLogger) InfoWithContext(context.Context, string, error, ...map[string]interface{}) {}
func (nopLogger) DebugWithContext(context.Context, string, error, ...map[string]interface{}) {}
func (nopLogger) WarnWithContext(context.Context, string, error, ...map[string]interface{}) {}
func (nopLogger) ErrorWithContext(context.Context, string, error, ...map[string]interface{}) {}

type nopTracer struct{}

func (nopTracer) StartSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return noop.NewTracerProvider().Tracer("").Start(ctx, name)
}
func (nopTracer) RecordErrorOnSpan(trace.Span, error) {}
func (nopTracer) SetAttributes(trace.Span, map[string]interface{}) {}
