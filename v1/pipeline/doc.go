// Package pipeline runs track ingestions.
//
// A run takes one ISRC through six steps in a fixed order:
//
//	FetchAudioFeatures -> FetchLyrics -> GenerateInterpretation ->
//	EmbedInterpretation -> StoreDocument -> EmitCompletion
//
// The output of each step is recorded in a Store before the next one starts. An
// attempt interrupted by an error, a crash or a shutdown continues from the first
// unrecorded step, so an adapter is never called twice for a step that already
// succeeded.
//
// Submit is fire and forget. Triggers for an ISRC whose run is still in progress, or
// completed within Config.CoalesceWindow, join that run unless ForceReprocess is
// set. Attempts are bounded by a semaphore (Config.MaxConcurrent) and a start
// throttle (Config.ThrottleLimit per Config.ThrottleWindow). Retryable failures are
// rescheduled with the configured backoff until Config.MaxAttempts is reached;
// everything else fails the run and publishes a Failed completion event.
//
// Basic usage:
//
//	orch, err := pipeline.New(pipeline.DefaultConfig(), pipeline.Ports{...}, pipeline.NewMemoryStore())
//	if err != nil {
//		return err
//	}
//	defer orch.Close(ctx)
//
//	ticket, err := orch.Submit(ctx, pipeline.Request{ISRC: "USRC17607839"})
//	run, err := orch.Await(ctx, "USRC17607839", ticket.RunID, time.Second)
//
// Durable stores live in the redis, badger and postgres packages; storetest holds the
// conformance suite they share with MemoryStore.
package pipeline
