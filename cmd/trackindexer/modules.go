package main

import (
	"context"

	"github.com/Aleph-Alpha/trackindex/v1/audiofeatures"
	"github.com/Aleph-Alpha/trackindex/v1/badger"
	"github.com/Aleph-Alpha/trackindex/v1/embedding"
	"github.com/Aleph-Alpha/trackindex/v1/events"
	"github.com/Aleph-Alpha/trackindex/v1/interpretation"
	"github.com/Aleph-Alpha/trackindex/v1/kafka"
	"github.com/Aleph-Alpha/trackindex/v1/logger"
	"github.com/Aleph-Alpha/trackindex/v1/lyrics"
	"github.com/Aleph-Alpha/trackindex/v1/metrics"
	"github.com/Aleph-Alpha/trackindex/v1/minio"
	"github.com/Aleph-Alpha/trackindex/v1/observability"
	"github.com/Aleph-Alpha/trackindex/v1/pipeline"
	"github.com/Aleph-Alpha/trackindex/v1/postgres"
	"github.com/Aleph-Alpha/trackindex/v1/qdrant"
	"github.com/Aleph-Alpha/trackindex/v1/rabbit"
	"github.com/Aleph-Alpha/trackindex/v1/redis"
	"github.com/Aleph-Alpha/trackindex/v1/search"
	"github.com/Aleph-Alpha/trackindex/v1/tracer"
	"github.com/Aleph-Alpha/trackindex/v1/vectordb"
	"go.uber.org/fx"
)

// ambientModule provides logging, metrics, tracing and the client observer, and
// narrows the concrete logger and tracer to the interfaces each package asks for.
// The metrics HTTP server only runs when serveMetrics is set.
func ambientModule(cfg Config, serveMetrics bool) fx.Option {
	metricsOption := fx.Options(
		fx.Provide(
			metrics.NewMetrics,
			func(m *metrics.Metrics) metrics.MetricsCollector { return m },
		),
	)
	if serveMetrics {
		metricsOption = metrics.FXModule
	}

	return fx.Options(
		fx.Supply(cfg.Logger, cfg.Metrics, cfg.Tracer),
		logger.FXModule,
		metricsOption,
		tracer.FXModule,
		fx.Provide(
			func(m *metrics.Metrics) observability.Observer { return observability.NewMetricsObserver(m) },

			func(l *logger.LoggerClient) metrics.Logger { return l },
			func(l *logger.LoggerClient) tracer.Logger { return l },
			func(l *logger.LoggerClient) pipeline.Logger { return l },
			func(l *logger.LoggerClient) events.Logger { return l },
			func(l *logger.LoggerClient) qdrant.Logger { return l },
			func(l *logger.LoggerClient) redis.Logger { return l },
			func(l *logger.LoggerClient) badger.Logger { return l },
			func(l *logger.LoggerClient) postgres.Logger { return l },
			func(l *logger.LoggerClient) minio.Logger { return l },
			func(l *logger.LoggerClient) kafka.Logger { return l },
			func(l *logger.LoggerClient) rabbit.Logger { return l },

			func(t *tracer.Tracer) pipeline.Tracer { return t },
			func(t *tracer.Tracer) kafka.Carrier { return t },
			func(t *tracer.Tracer) rabbit.Carrier { return t },
		),
	)
}

// indexModule provides vectordb.HybridIndex and ensures its schema on start.
func indexModule(cfg IndexConfig) fx.Option {
	if cfg.Backend == IndexMemory {
		return fx.Options(
			fx.Provide(func() vectordb.HybridIndex { return vectordb.NewMemoryIndex(cfg.Dimension) }),
			fx.Invoke(func(lc fx.Lifecycle, idx vectordb.HybridIndex) {
				lc.Append(fx.StartHook(idx.EnsureSchema))
			}),
		)
	}
	return fx.Options(
		fx.Supply(cfg.Qdrant),
		qdrant.FXModule,
	)
}

// storeModule provides pipeline.Store, plus a shared pipeline.Throttle for Redis.
func storeModule(cfg StoreConfig) fx.Option {
	switch cfg.Backend {
	case StoreRedis:
		return fx.Options(fx.Supply(cfg.Redis), redis.FXModule, redis.StoreFXModule)
	case StoreBadger:
		return fx.Options(fx.Supply(cfg.Badger), badger.FXModule)
	case StorePostgres:
		return fx.Options(fx.Supply(cfg.Postgres), postgres.FXModule)
	default:
		return fx.Provide(func() pipeline.Store { return pipeline.NewMemoryStore() })
	}
}

// publisherModule provides events.Publisher. With consume set, triggers from the
// broker's trigger topic or queue are fed to the events.TriggerHandler in the
// container.
func publisherModule(cfg EventsConfig, consume bool) fx.Option {
	switch cfg.Backend {
	case EventsKafka:
		opts := []fx.Option{fx.Supply(cfg.Kafka), kafka.FXModule}
		if cfg.Kafka.EventsTopic != "" {
			opts = append(opts, kafka.PublisherFXModule)
		} else {
			opts = append(opts, logPublisher)
		}
		if consume && cfg.Kafka.TriggerTopic != "" {
			opts = append(opts, fx.Invoke(kafka.RegisterTriggerConsumer))
		}
		return fx.Options(opts...)
	case EventsRabbit:
		opts := []fx.Option{fx.Supply(cfg.Rabbit), rabbit.FXModule, rabbit.PublisherFXModule}
		if consume && cfg.Rabbit.Channel.QueueName != "" {
			opts = append(opts, fx.Invoke(rabbit.RegisterTriggerConsumer))
		}
		return fx.Options(opts...)
	default:
		return logPublisher
	}
}

var logPublisher = fx.Provide(func(l events.Logger) events.Publisher { return events.LogPublisher{Logger: l} })

// archiveModule provides pipeline.Archive and *minio.Archive when enabled.
func archiveModule(cfg ArchiveConfig) fx.Option {
	if !cfg.Enabled {
		return fx.Options()
	}
	return fx.Options(fx.Supply(cfg.Minio), minio.FXModule)
}

// adapterModule provides the external adapters bound to the pipeline ports.
func adapterModule(cfg Config) fx.Option {
	return fx.Options(
		fx.Supply(cfg.AudioFeatures, cfg.Lyrics, cfg.Interpretation, cfg.Embedding),
		audiofeatures.FXModule,
		lyrics.FXModule,
		interpretation.FXModule,
		embedding.FXModule,
		fx.Provide(
			func(c *audiofeatures.Client) pipeline.AudioFeaturesSource { return c },
			func(c *lyrics.Client) pipeline.LyricsSource { return c },
			func(c *interpretation.Client) pipeline.Interpreter { return c },
			func(c *embedding.Client) pipeline.Embedder { return c },
			func(idx vectordb.HybridIndex) pipeline.Indexer { return idx },
		),
	)
}

// orchestratorModule provides *pipeline.Orchestrator. A resuming orchestrator picks
// up abandoned runs on start; either way it drains on stop.
func orchestratorModule(cfg Config, resume bool) fx.Option {
	opts := []fx.Option{
		fx.Supply(cfg.Pipeline),
		adapterModule(cfg),
		storeModule(cfg.Store),
		archiveModule(cfg.Archive),
	}
	if resume {
		opts = append(opts, pipeline.FXModule)
	} else {
		opts = append(opts,
			fx.Provide(pipeline.NewOrchestratorWithDI),
			fx.Invoke(func(lc fx.Lifecycle, o *pipeline.Orchestrator) {
				lc.Append(fx.StopHook(o.Close))
			}),
		)
	}
	return fx.Options(opts...)
}

// searchModule provides *search.Service over the index.
func searchModule(cfg Config) fx.Option {
	return fx.Options(
		fx.Supply(cfg.Embedding),
		embedding.FXModule,
		search.FXModule,
	)
}

// triggerHandler submits broker triggers to the orchestrator.
func triggerHandler(o *pipeline.Orchestrator) events.TriggerHandler {
	return func(ctx context.Context, t events.Trigger) error {
		_, err := o.Submit(ctx, pipeline.Request{ISRC: t.ISRC, ForceReprocess: t.ForceReprocess})
		return err
	}
}
