package badger

import (
	"context"

	"github.com/Aleph-Alpha/trackindex/v1/observability"
	"github.com/Aleph-Alpha/trackindex/v1/pipeline"
	"go.uber.org/fx"
)

// FXModule provides *Store, binds it as pipeline.Store and manages garbage
// collection and shutdown.
var FXModule = fx.Module("badger",
	fx.Provide(
		NewStoreWithDI,
		func(s *Store) pipeline.Store { return s },
	),
	fx.Invoke(RegisterBadgerLifecycle),
)

// BadgerParams groups the dependencies of the store.
type BadgerParams struct {
	fx.In

	Config   Config
	Logger   Logger                 `optional:"true"`
	Observer observability.Observer `optional:"true"`
}

// NewStoreWithDI opens the store from injected dependencies.
func NewStoreWithDI(p BadgerParams) (*Store, error) {
	s, err := Open(p.Config)
	if err != nil {
		return nil, err
	}
	if p.Logger != nil {
		s.WithLogger(p.Logger)
	}
	if p.Observer != nil {
		s.WithObserver(p.Observer)
	}
	return s, nil
}

// RegisterBadgerLifecycle starts garbage collection and closes the database on stop.
func RegisterBadgerLifecycle(lc fx.Lifecycle, s *Store) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			s.StartGC()
			if s.logger != nil {
				s.logger.Info("Badger step store opened", nil, map[string]interface{}{
					"dir":       s.cfg.Dir,
					"in_memory": s.cfg.InMemory,
				})
			}
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return s.Close()
		},
	})
}
