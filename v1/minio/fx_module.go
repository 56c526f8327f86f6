package minio

import (
	"context"
	"sync"

	"github.com/Aleph-Alpha/trackindex/v1/observability"
	"github.com/Aleph-Alpha/trackindex/v1/pipeline"
	"go.uber.org/fx"
)

// FXModule provides the MinIO client and the document archive, binds the archive as
// pipeline.Archive and registers the connection lifecycle.
var FXModule = fx.Module("minio",
	fx.Provide(
		NewClientWithDI,
		NewArchive,
		func(a *Archive) pipeline.Archive { return a },
	),
	fx.Invoke(RegisterLifecycle),
)

// MinioParams groups the dependencies needed to create a MinIO client.
type MinioParams struct {
	fx.In

	Config   Config
	Logger   Logger                 `optional:"true"`
	Observer observability.Observer `optional:"true"`
}

// NewClientWithDI creates a MinIO client from injected dependencies.
func NewClientWithDI(params MinioParams) (*MinioClient, error) {
	client, err := NewClient(params.Config)
	if err != nil {
		return nil, err
	}
	if params.Logger != nil {
		client.WithLogger(params.Logger)
	}
	if params.Observer != nil {
		client.WithObserver(params.Observer)
	}
	return client, nil
}

// RegisterLifecycle starts connection monitoring on start and stops it on shutdown.
func RegisterLifecycle(lc fx.Lifecycle, client *MinioClient) {
	var wg sync.WaitGroup
	ctx, cancel := context.WithCancel(context.Background())

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			wg.Add(2)
			go func() {
				defer wg.Done()
				client.monitorConnection(ctx)
			}()
			go func() {
				defer wg.Done()
				client.retryConnection(ctx)
			}()
			client.logInfo(ctx, "MinIO archive started", map[string]interface{}{
				"endpoint": client.cfg.Connection.Endpoint,
				"bucket":   client.cfg.Connection.BucketName,
			})
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			client.GracefulShutdown()
			wg.Wait()
			return nil
		},
	})
}
