package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/Aleph-Alpha/trackindex/v1/events"
	"github.com/Aleph-Alpha/trackindex/v1/isrc"
	"github.com/Aleph-Alpha/trackindex/v1/pipeline"
	"github.com/Aleph-Alpha/trackindex/v1/sparseembedding"
	"github.com/Aleph-Alpha/trackindex/v1/track"
	"github.com/Aleph-Alpha/trackindex/v1/vectordb"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func newTestOrchestrator(t *testing.T, store pipeline.Store) *pipeline.Orchestrator {
	t.Helper()
	ctrl := gomock.NewController(t)
	offline := errors.New("provider offline")

	features := pipeline.NewMockAudioFeaturesSource(ctrl)
	features.EXPECT().Fetch(gomock.Any(), gomock.Any()).Return(nil, offline).AnyTimes()
	lyricsSource := pipeline.NewMockLyricsSource(ctrl)
	lyricsSource.EXPECT().Fetch(gomock.Any(), gomock.Any()).Return(nil, offline).AnyTimes()
	interpreter := pipeline.NewMockInterpreter(ctrl)
	interpreter.EXPECT().Interpret(gomock.Any(), gomock.Any()).Return(nil, offline).AnyTimes()
	embedder := pipeline.NewMockEmbedder(ctrl)
	embedder.EXPECT().Embed(gomock.Any(), gomock.Any()).Return(nil, offline).AnyTimes()

	cfg := pipeline.DefaultConfig()
	cfg.Dimension = 4
	orch, err := pipeline.New(cfg, pipeline.Ports{
		AudioFeatures: features,
		Lyrics:        lyricsSource,
		Interpreter:   interpreter,
		Embedder:      embedder,
		Index:         vectordb.NewMemoryIndex(4),
		Publisher:     events.NewMemoryPublisher(),
	}, store)
	require.NoError(t, err)

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		assert.NoError(t, orch.Close(ctx))
	})
	return orch
}

func outputCmd() (*cobra.Command, *bytes.Buffer) {
	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	return cmd, &out
}

type fakeSubmitter struct {
	requests []pipeline.Request
	final    map[string]pipeline.Run
}

func (f *fakeSubmitter) Submit(ctx context.Context, req pipeline.Request) (pipeline.Ticket, error) {
	f.requests = append(f.requests, req)
	if !isrc.Valid(req.ISRC) {
		return pipeline.Ticket{RunID: "rejected", Status: pipeline.StatusFailed}, nil
	}
	return pipeline.Ticket{RunID: "run-" + req.ISRC, Status: pipeline.StatusPending}, nil
}

func (f *fakeSubmitter) Await(ctx context.Context, code, runID string, poll time.Duration) (pipeline.Run, error) {
	run, ok := f.final[code]
	if !ok {
		return pipeline.Run{}, pipeline.ErrRunNotFound
	}
	run.RunID = runID
	return run, nil
}

func TestIngestWaitsForRuns(t *testing.T) {
	sub := &fakeSubmitter{final: map[string]pipeline.Run{
		"USRC17607839": {ISRC: "USRC17607839", Status: pipeline.StatusCompleted, Attempts: 1},
		"GBAYE0000351": {ISRC: "GBAYE0000351", Status: pipeline.StatusFailed, Attempts: 5,
			ErrorKind: pipeline.KindAdapter, Error: "lyrics: 503"},
	}}
	cmd, out := outputCmd()

	err := ingest(context.Background(), cmd, sub, []string{"usrc17607839", "GBAYE0000351"},
		&ingestOptions{force: true, wait: true, timeout: time.Second})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2 triggers failed")

	require.Len(t, sub.requests, 2)
	assert.True(t, sub.requests[0].ForceReprocess)
	assert.Contains(t, out.String(), "USRC17607839\trun=run-usrc17607839\tstatus=Completed")
	assert.Contains(t, out.String(), "error_kind=adapter")
}

func TestIngestWithoutWait(t *testing.T) {
	sub := &fakeSubmitter{}
	cmd, out := outputCmd()

	require.NoError(t, ingest(context.Background(), cmd, sub, []string{"USRC17607839"}, &ingestOptions{}))
	assert.Equal(t, 1, strings.Count(out.String(), "\n"))

	err := ingest(context.Background(), cmd, sub, []string{"not-an-isrc"}, &ingestOptions{})
	assert.ErrorContains(t, err, "1 invalid ISRCs rejected")
}

func TestPrintStatus(t *testing.T) {
	ctx := context.Background()
	store := pipeline.NewMemoryStore()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	_, _, err := store.Claim(ctx, pipeline.Run{
		ISRC: "USRC17607839", RunID: "r1", Status: pipeline.StatusPending, Attempts: 2,
		ErrorKind: pipeline.KindRateLimited, Error: "429",
		CreatedAt: now, UpdatedAt: now, NextAttemptAt: now.Add(15 * time.Minute),
	}, func(*pipeline.Run) bool { return false })
	require.NoError(t, err)

	cmd, out := outputCmd()
	require.NoError(t, printStatus(ctx, cmd, store, []string{"usrc17607839", "GBAYE0000351"}))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "USRC17607839\trun=r1\tstatus=Pending\tattempts=2\tupdated=2026-03-01T12:00:00Z"+
		"\tnext_attempt=2026-03-01T12:15:00Z\terror_kind=rate_limited\terror=\"429\"", lines[0])
	assert.Equal(t, "GBAYE0000351\tnever ingested", lines[1])

	assert.Error(t, printStatus(ctx, cmd, store, []string{"bad"}))
}

type sliceArchive []*track.TrackDocument

func (a sliceArchive) Walk(ctx context.Context, fn func(*track.TrackDocument) error) error {
	for _, doc := range a {
		if err := fn(doc); err != nil {
			return err
		}
	}
	return nil
}

func archivedDoc(code, title string, vec []float32) *track.TrackDocument {
	return &track.TrackDocument{ID: isrc.MustDeriveID(code), ISRC: code, Title: title, Artist: "Ana", DenseEmbedding: vec}
}

func TestReindexFromArchive(t *testing.T) {
	ctx := context.Background()
	index := vectordb.NewMemoryIndex(2)
	archive := sliceArchive{
		archivedDoc("USRC17607839", "Piano Ballad", []float32{1, 0}),
		archivedDoc("GBAYE0000351", "Drum Storm", []float32{0, 1}),
	}

	n, err := reindex(ctx, archive, index)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	count, err := index.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)

	doc, err := index.Get(ctx, "GBAYE0000351")
	require.NoError(t, err)
	assert.Equal(t, "Drum Storm", doc.Title)

	// The sparse vector is rebuilt from the text fields.
	hits, err := index.Query(ctx, vectordb.Query{Dense: []float32{0, 1}, Sparse: sparseembedding.Encode("storm")})
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Equal(t, "GBAYE0000351", hits[0].ISRC)
}

func TestReindexStopsOnUpsertError(t *testing.T) {
	index := vectordb.NewMemoryIndex(2)
	archive := sliceArchive{
		archivedDoc("USRC17607839", "Piano Ballad", []float32{1, 0}),
		archivedDoc("GBAYE0000351", "Wrong Size", []float32{0, 1, 0}),
	}

	n, err := reindex(context.Background(), archive, index)
	assert.Equal(t, 1, n)
	assert.ErrorContains(t, err, "upsert GBAYE0000351")
}

func TestQueryRequestFilter(t *testing.T) {
	opts := &queryOptions{topK: 5, artist: "Eagles", paraphrases: []string{"desert highway"}}
	req := opts.request("hotel")

	assert.Equal(t, "hotel", req.QueryText)
	assert.Equal(t, 5, req.TopK)
	assert.Equal(t, []string{"desert highway"}, req.Paraphrases)
	require.NotNil(t, req.Filter)
	assert.Len(t, req.Filter.Must, 1)

	assert.Nil(t, (&queryOptions{}).request("hotel").Filter)
}

func TestPrintHits(t *testing.T) {
	short := "A haunting tale of excess"
	hits := []vectordb.Hit{{ISRC: "USEE10001992", Title: "Hotel California", Artist: "Eagles", Album: "Hotel California", Score: 0.0325, ShortDescription: &short}}

	cmd, out := outputCmd()
	require.NoError(t, printHits(cmd, hits, false))
	assert.Contains(t, out.String(), " 1. Eagles - Hotel California (Hotel California) [USEE10001992] score=0.0325")
	assert.Contains(t, out.String(), short)

	cmd, out = outputCmd()
	require.NoError(t, printHits(cmd, nil, false))
	assert.Equal(t, "No results found.\n", out.String())

	cmd, out = outputCmd()
	require.NoError(t, printHits(cmd, hits, true))
	assert.Contains(t, out.String(), `"isrc": "USEE10001992"`)
}
