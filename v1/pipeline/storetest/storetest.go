// Package storetest is the conformance suite for pipeline.Store implementations.
package storetest

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Aleph-Alpha/trackindex/v1/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory returns an empty store. Cleanup is registered on t.
type Factory func(t *testing.T) pipeline.Store

var base = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newRun(isrc, runID string, offset time.Duration) pipeline.Run {
	at := base.Add(offset)
	return pipeline.Run{
		ISRC:      isrc,
		RunID:     runID,
		Status:    pipeline.StatusPending,
		CreatedAt: at,
		UpdatedAt: at,
	}
}

func never(*pipeline.Run) bool { return false }

// Run executes every conformance test against stores from newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("ClaimStoresCandidate", func(t *testing.T) { testClaimStoresCandidate(t, newStore(t)) })
	t.Run("ClaimCoalesces", func(t *testing.T) { testClaimCoalesces(t, newStore(t)) })
	t.Run("ClaimReplacesLatest", func(t *testing.T) { testClaimReplacesLatest(t, newStore(t)) })
	t.Run("ClaimIsAtomic", func(t *testing.T) { testClaimIsAtomic(t, newStore(t)) })
	t.Run("UnknownRuns", func(t *testing.T) { testUnknownRuns(t, newStore(t)) })
	t.Run("UpdateRun", func(t *testing.T) { testUpdateRun(t, newStore(t)) })
	t.Run("Active", func(t *testing.T) { testActive(t, newStore(t)) })
	t.Run("StepsAreWriteOnce", func(t *testing.T) { testStepsAreWriteOnce(t, newStore(t)) })
	t.Run("StepsAreScopedToRun", func(t *testing.T) { testStepsAreScopedToRun(t, newStore(t)) })
}

func testClaimStoresCandidate(t *testing.T, s pipeline.Store) {
	ctx := context.Background()
	candidate := newRun("USRC17607839", "run-1", 0)

	var seen *pipeline.Run
	run, coalesced, err := s.Claim(ctx, candidate, func(latest *pipeline.Run) bool {
		seen = latest
		return true
	})
	require.NoError(t, err)
	assert.False(t, coalesced)
	assert.Nil(t, seen, "coalesce must see nil without a previous run")
	assert.Equal(t, "run-1", run.RunID)

	latest, err := s.Latest(ctx, "USRC17607839")
	require.NoError(t, err)
	assert.Equal(t, "run-1", latest.RunID)
	assert.Equal(t, pipeline.StatusPending, latest.Status)
	assert.True(t, candidate.CreatedAt.Equal(latest.CreatedAt))
}

func testClaimCoalesces(t *testing.T, s pipeline.Store) {
	ctx := context.Background()
	_, _, err := s.Claim(ctx, newRun("USRC17607839", "run-1", 0), never)
	require.NoError(t, err)

	var seen pipeline.Run
	run, coalesced, err := s.Claim(ctx, newRun("USRC17607839", "run-2", time.Second), func(latest *pipeline.Run) bool {
		require.NotNil(t, latest)
		seen = *latest
		return true
	})
	require.NoError(t, err)
	assert.True(t, coalesced)
	assert.Equal(t, "run-1", run.RunID)
	assert.Equal(t, "run-1", seen.RunID)

	_, err = s.Run(ctx, "USRC17607839", "run-2")
	assert.ErrorIs(t, err, pipeline.ErrRunNotFound)
}

func testClaimReplacesLatest(t *testing.T, s pipeline.Store) {
	ctx := context.Background()
	_, _, err := s.Claim(ctx, newRun("USRC17607839", "run-1", 0), never)
	require.NoError(t, err)
	_, coalesced, err := s.Claim(ctx, newRun("USRC17607839", "run-2", time.Second), never)
	require.NoError(t, err)
	assert.False(t, coalesced)

	latest, err := s.Latest(ctx, "USRC17607839")
	require.NoError(t, err)
	assert.Equal(t, "run-2", latest.RunID)

	first, err := s.Run(ctx, "USRC17607839", "run-1")
	require.NoError(t, err)
	assert.Equal(t, "run-1", first.RunID)
}

func testClaimIsAtomic(t *testing.T, s pipeline.Store) {
	ctx := context.Background()
	const n = 16

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		started int
		runIDs  = map[string]bool{}
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			run, coalesced, err := s.Claim(ctx, newRun("GBAYE0601498", fmt.Sprintf("run-%d", i), 0), func(latest *pipeline.Run) bool {
				return latest != nil
			})
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			defer mu.Unlock()
			if !coalesced {
				started++
			}
			runIDs[run.RunID] = true
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, started, "exactly one claim must start a run")
	assert.Len(t, runIDs, 1, "every claim must observe the same run")
}

func testUnknownRuns(t *testing.T, s pipeline.Store) {
	ctx := context.Background()

	_, err := s.Latest(ctx, "USRC17607839")
	assert.ErrorIs(t, err, pipeline.ErrRunNotFound)

	_, err = s.Run(ctx, "USRC17607839", "missing")
	assert.ErrorIs(t, err, pipeline.ErrRunNotFound)

	err = s.UpdateRun(ctx, newRun("USRC17607839", "missing", 0))
	assert.ErrorIs(t, err, pipeline.ErrRunNotFound)

	steps, err := s.LoadSteps(ctx, "USRC17607839", "missing")
	require.NoError(t, err)
	assert.Empty(t, steps)
}

func testUpdateRun(t *testing.T, s pipeline.Store) {
	ctx := context.Background()
	run, _, err := s.Claim(ctx, newRun("USRC17607839", "run-1", 0), never)
	require.NoError(t, err)

	run.Status = pipeline.StatusFailed
	run.Attempts = 3
	run.ErrorKind = pipeline.KindAdapter
	run.Error = "lyrics: status 404"
	run.CompletedAt = base.Add(time.Hour)
	require.NoError(t, s.UpdateRun(ctx, run))

	got, err := s.Run(ctx, "USRC17607839", "run-1")
	require.NoError(t, err)
	assert.Equal(t, pipeline.StatusFailed, got.Status)
	assert.Equal(t, 3, got.Attempts)
	assert.Equal(t, pipeline.KindAdapter, got.ErrorKind)
	assert.Equal(t, "lyrics: status 404", got.Error)
	assert.True(t, run.CompletedAt.Equal(got.CompletedAt))

	latest, err := s.Latest(ctx, "USRC17607839")
	require.NoError(t, err)
	assert.Equal(t, pipeline.StatusFailed, latest.Status)
}

func testActive(t *testing.T, s pipeline.Store) {
	ctx := context.Background()
	codes := []string{"USRC17607839", "GBAYE0601498", "USUM71703861"}
	for i, code := range codes {
		_, _, err := s.Claim(ctx, newRun(code, "run-"+code, time.Duration(i)*time.Minute), never)
		require.NoError(t, err)
	}

	done, err := s.Run(ctx, "GBAYE0601498", "run-GBAYE0601498")
	require.NoError(t, err)
	done.Status = pipeline.StatusCompleted
	require.NoError(t, s.UpdateRun(ctx, done))

	running, err := s.Run(ctx, "USUM71703861", "run-USUM71703861")
	require.NoError(t, err)
	running.Status = pipeline.StatusRunning
	require.NoError(t, s.UpdateRun(ctx, running))

	active, err := s.Active(ctx)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, "USRC17607839", active[0].ISRC)
	assert.Equal(t, "USUM71703861", active[1].ISRC)
	assert.Equal(t, pipeline.StatusRunning, active[1].Status)
}

func testStepsAreWriteOnce(t *testing.T, s pipeline.Store) {
	ctx := context.Background()
	_, _, err := s.Claim(ctx, newRun("USRC17607839", "run-1", 0), never)
	require.NoError(t, err)

	first := pipeline.StepResult{
		ISRC:        "USRC17607839",
		RunID:       "run-1",
		Step:        pipeline.StepEmbedInterpretation,
		Value:       json.RawMessage(`[0.1,0.2]`),
		CompletedAt: base,
	}
	require.NoError(t, s.SaveStep(ctx, first))

	second := first
	second.Value = json.RawMessage(`[0.9,0.9]`)
	require.NoError(t, s.SaveStep(ctx, second))

	steps, err := s.LoadSteps(ctx, "USRC17607839", "run-1")
	require.NoError(t, err)
	require.Contains(t, steps, pipeline.StepEmbedInterpretation)
	assert.JSONEq(t, `[0.1,0.2]`, string(steps[pipeline.StepEmbedInterpretation].Value))
}

func testStepsAreScopedToRun(t *testing.T, s pipeline.Store) {
	ctx := context.Background()
	_, _, err := s.Claim(ctx, newRun("USRC17607839", "run-1", 0), never)
	require.NoError(t, err)
	_, _, err = s.Claim(ctx, newRun("USRC17607839", "run-2", time.Second), never)
	require.NoError(t, err)

	require.NoError(t, s.SaveStep(ctx, pipeline.StepResult{
		ISRC: "USRC17607839", RunID: "run-1", Step: pipeline.StepFetchAudioFeatures,
		Value: json.RawMessage(`null`), CompletedAt: base,
	}))
	require.NoError(t, s.SaveStep(ctx, pipeline.StepResult{
		ISRC: "USRC17607839", RunID: "run-1", Step: pipeline.StepFetchLyrics,
		Value: json.RawMessage(`{"metadata":{"title":"Hotel California"}}`), CompletedAt: base,
	}))

	steps, err := s.LoadSteps(ctx, "USRC17607839", "run-1")
	require.NoError(t, err)
	assert.Len(t, steps, 2)
	assert.Equal(t, "null", string(steps[pipeline.StepFetchAudioFeatures].Value))

	other, err := s.LoadSteps(ctx, "USRC17607839", "run-2")
	require.NoError(t, err)
	assert.Empty(t, other)
}
