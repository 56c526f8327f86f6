package badger

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/Aleph-Alpha/trackindex/v1/observability"
	"github.com/Aleph-Alpha/trackindex/v1/pipeline"
	"github.com/Aleph-Alpha/trackindex/v1/pipeline/storetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"
)

func openInMemory(t *testing.T) *Store {
	t.Helper()
	s, err := Open(Config{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStoreConformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) pipeline.Store { return openInMemory(t) })
}

func TestStoreSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	now := time.Now().UTC()

	s, err := Open(Config{Dir: dir, SyncWrites: true})
	require.NoError(t, err)

	_, _, err = s.Claim(ctx, pipeline.Run{
		ISRC: "USRC17607839", RunID: "r1", Status: pipeline.StatusRunning, Attempts: 1, CreatedAt: now, UpdatedAt: now,
	}, func(*pipeline.Run) bool { return false })
	require.NoError(t, err)
	require.NoError(t, s.SaveStep(ctx, pipeline.StepResult{
		ISRC: "USRC17607839", RunID: "r1", Step: pipeline.StepFetchAudioFeatures, Value: json.RawMessage(`null`), CompletedAt: now,
	}))
	require.NoError(t, s.Close())

	s, err = Open(Config{Dir: dir})
	require.NoError(t, err)
	defer s.Close()

	active, err := s.Active(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "r1", active[0].RunID)
	assert.Equal(t, 1, active[0].Attempts)

	steps, err := s.LoadSteps(ctx, "USRC17607839", "r1")
	require.NoError(t, err)
	assert.Contains(t, steps, pipeline.StepFetchAudioFeatures)
}

func TestStoreObserver(t *testing.T) {
	var ops []observability.OperationContext
	s := openInMemory(t).WithObserver(observability.ObserverFunc(func(op observability.OperationContext) {
		ops = append(ops, op)
	}))

	_, _, err := s.Claim(context.Background(), pipeline.Run{ISRC: "USRC17607839", RunID: "r1", Status: pipeline.StatusPending},
		func(*pipeline.Run) bool { return false })
	require.NoError(t, err)

	require.Len(t, ops, 1)
	assert.Equal(t, "badger", ops[0].Component)
	assert.Equal(t, "claim", ops[0].Operation)
	assert.Equal(t, false, ops[0].Metadata["coalesced"])
}

func TestConfigValidate(t *testing.T) {
	assert.Error(t, Config{}.Validate())
	assert.Error(t, Config{Dir: "/tmp/x", GCInterval: -time.Second}.Validate())
	assert.NoError(t, Config{InMemory: true}.Validate())
	assert.NoError(t, Config{Dir: "/var/lib/trackindex"}.Validate())
}

func TestFXModule(t *testing.T) {
	var store pipeline.Store
	app := fxtest.New(t,
		FXModule,
		fx.Provide(func() Config { return Config{Dir: t.TempDir(), GCInterval: time.Hour} }),
		fx.Populate(&store),
	)
	app.RequireStart()

	_, err := store.Latest(context.Background(), "USRC17607839")
	assert.ErrorIs(t, err, pipeline.ErrRunNotFound)

	app.RequireStop()
}
