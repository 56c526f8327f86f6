package minio

import (
	"context"
	"testing"
	"time"

	"github.com/Aleph-Alpha/trackindex/v1/observability"
	"github.com/Aleph-Alpha/trackindex/v1/pipeline"
	"github.com/Aleph-Alpha/trackindex/v1/track"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"
)

func TestArchiveIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()
	req := testcontainers.ContainerRequest{
		Image:        "minio/minio:latest",
		ExposedPorts: []string{"9000/tcp"},
		Env: map[string]string{
			"MINIO_ROOT_USER":     "minioadmin",
			"MINIO_ROOT_PASSWORD": "minioadmin",
		},
		Cmd:        []string{"server", "/data"},
		WaitingFor: wait.ForHTTP("/minio/health/ready").WithPort("9000/tcp").WithStartupTimeout(60 * time.Second),
	}
	containerInstance, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	defer func() {
		if err := containerInstance.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	}()

	endpoint, err := containerInstance.PortEndpoint(ctx, "9000/tcp", "")
	require.NoError(t, err)

	cfg := Config{Connection: ConnectionConfig{
		Endpoint:             endpoint,
		AccessKeyID:          "minioadmin",
		SecretAccessKey:      "minioadmin",
		BucketName:           "tracks",
		AccessBucketCreation: true,
	}}

	var (
		archive *Archive
		port    pipeline.Archive
		ops     []observability.OperationContext
	)
	app := fxtest.New(t,
		FXModule,
		fx.Provide(
			func() Config { return cfg },
			func() observability.Observer {
				return observability.ObserverFunc(func(op observability.OperationContext) { ops = append(ops, op) })
			},
		),
		fx.Populate(&archive, &port),
	)
	app.RequireStart()
	defer app.RequireStop()

	desc := "A late-night drive."
	docs := []*track.TrackDocument{
		{ID: "a", ISRC: "USRC17607839", Title: "One", Artist: "X", ShortDescription: &desc, DenseEmbedding: []float32{1, 0}},
		{ID: "b", ISRC: "GBAYE0000351", Title: "Two", Artist: "Y", DenseEmbedding: []float32{0, 1}},
	}
	for _, d := range docs {
		require.NoError(t, port.Put(ctx, d))
	}
	// Overwrites keep one object per ISRC.
	require.NoError(t, archive.Put(ctx, docs[0]))

	got, err := archive.Get(ctx, "USRC17607839")
	require.NoError(t, err)
	assert.Equal(t, "One", got.Title)
	require.NotNil(t, got.ShortDescription)
	assert.Equal(t, desc, *got.ShortDescription)
	assert.Equal(t, []float32{1, 0}, got.DenseEmbedding)

	_, err = archive.Get(ctx, "FRZ039800212")
	assert.ErrorIs(t, err, ErrObjectNotFound)

	var seen []string
	require.NoError(t, archive.Walk(ctx, func(d *track.TrackDocument) error {
		seen = append(seen, d.ISRC)
		return nil
	}))
	assert.Equal(t, []string{"GBAYE0000351", "USRC17607839"}, seen)

	require.NoError(t, archive.Delete(ctx, "GBAYE0000351"))
	_, err = archive.Get(ctx, "GBAYE0000351")
	assert.ErrorIs(t, err, ErrObjectNotFound)

	require.NotEmpty(t, ops)
	assert.Equal(t, "minio", ops[0].Component)
	assert.Equal(t, "put", ops[0].Operation)
	assert.Equal(t, "tracks", ops[0].Resource)
}
