package pipeline

import (
	"context"

	"github.com/Aleph-Alpha/trackindex/v1/events"
	"github.com/Aleph-Alpha/trackindex/v1/metrics"
	"go.uber.org/fx"
)

// FXModule provides *Orchestrator and resumes abandoned runs on start. The container
// must supply Config, a Store, the five ports and an events.Publisher.
var FXModule = fx.Module("pipeline",
	fx.Provide(NewOrchestratorWithDI),
	fx.Invoke(RegisterPipelineLifecycle),
)

// PipelineParams groups the dependencies of the orchestrator.
type PipelineParams struct {
	fx.In

	Config        Config
	Store         Store
	AudioFeatures AudioFeaturesSource
	Lyrics        LyricsSource
	Interpreter   Interpreter
	Embedder      Embedder
	Index         Indexer
	Publisher     events.Publisher
	Archive       Archive                  `optional:"true"`
	Throttle      Throttle                 `optional:"true"`
	Logger        Logger                   `optional:"true"`
	Tracer        Tracer                   `optional:"true"`
	Metrics       metrics.MetricsCollector `optional:"true"`
}

// NewOrchestratorWithDI creates the orchestrator from injected dependencies.
func NewOrchestratorWithDI(p PipelineParams) (*Orchestrator, error) {
	ports := Ports{
		AudioFeatures: p.AudioFeatures,
		Lyrics:        p.Lyrics,
		Interpreter:   p.Interpreter,
		Embedder:      p.Embedder,
		Index:         p.Index,
		Archive:       p.Archive,
		Publisher:     p.Publisher,
	}

	var opts []Option
	if p.Throttle != nil {
		opts = append(opts, WithThrottle(p.Throttle))
	}
	if p.Logger != nil {
		opts = append(opts, WithLogger(p.Logger))
	}
	if p.Tracer != nil {
		opts = append(opts, WithTracer(p.Tracer))
	}
	if p.Metrics != nil {
		opts = append(opts, WithMetrics(p.Metrics))
	}
	return New(p.Config, ports, p.Store, opts...)
}

// RegisterPipelineLifecycle resumes non-terminal runs on start and drains running
// attempts on stop.
func RegisterPipelineLifecycle(lc fx.Lifecycle, o *Orchestrator) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			_, err := o.Resume(ctx)
			return err
		},
		OnStop: func(ctx context.Context) error {
			return o.Close(ctx)
		},
	})
}
