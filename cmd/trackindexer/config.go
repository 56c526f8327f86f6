package main

import (
	"errors"
	"fmt"

	"github.com/Aleph-Alpha/trackindex/v1/audiofeatures"
	"github.com/Aleph-Alpha/trackindex/v1/badger"
	"github.com/Aleph-Alpha/trackindex/v1/config"
	"github.com/Aleph-Alpha/trackindex/v1/embedding"
	"github.com/Aleph-Alpha/trackindex/v1/interpretation"
	"github.com/Aleph-Alpha/trackindex/v1/kafka"
	"github.com/Aleph-Alpha/trackindex/v1/logger"
	"github.com/Aleph-Alpha/trackindex/v1/lyrics"
	"github.com/Aleph-Alpha/trackindex/v1/metrics"
	"github.com/Aleph-Alpha/trackindex/v1/minio"
	"github.com/Aleph-Alpha/trackindex/v1/pipeline"
	"github.com/Aleph-Alpha/trackindex/v1/postgres"
	"github.com/Aleph-Alpha/trackindex/v1/qdrant"
	"github.com/Aleph-Alpha/trackindex/v1/rabbit"
	"github.com/Aleph-Alpha/trackindex/v1/redis"
	"github.com/Aleph-Alpha/trackindex/v1/tracer"
)

const serviceName = "trackindexer"

// Store backends.
const (
	StoreMemory   = "memory"
	StoreRedis    = "redis"
	StoreBadger   = "badger"
	StorePostgres = "postgres"
)

// Event backends.
const (
	EventsLog    = "log"
	EventsKafka  = "kafka"
	EventsRabbit = "rabbit"
)

// Index backends.
const (
	IndexQdrant = "qdrant"
	IndexMemory = "memory"
)

// Config is the whole process configuration. Every section can be overridden by the
// environment variables named in the envconfig tags of its package.
type Config struct {
	Logger  logger.Config  `yaml:"logger"`
	Metrics metrics.Config `yaml:"metrics"`
	Tracer  tracer.Config  `yaml:"tracer"`

	Pipeline pipeline.Config `yaml:"pipeline"`

	AudioFeatures  audiofeatures.Config  `yaml:"audio_features"`
	Lyrics         lyrics.Config         `yaml:"lyrics"`
	Interpretation interpretation.Config `yaml:"interpretation"`
	Embedding      embedding.Config      `yaml:"embedding"`

	Index   IndexConfig   `yaml:"index"`
	Store   StoreConfig   `yaml:"store"`
	Events  EventsConfig  `yaml:"events"`
	Archive ArchiveConfig `yaml:"archive"`
}

// IndexConfig selects the hybrid index. Dimension is shared by the collection, the
// embedding client and the document assembler.
type IndexConfig struct {
	Backend   string        `yaml:"backend" envconfig:"INDEX_BACKEND"`
	Dimension int           `yaml:"dimension" envconfig:"INDEX_DIMENSION"`
	Qdrant    qdrant.Config `yaml:"qdrant"`
}

// StoreConfig selects where runs and step results live.
type StoreConfig struct {
	Backend  string          `yaml:"backend" envconfig:"STORE_BACKEND"`
	Redis    redis.Config    `yaml:"redis"`
	Badger   badger.Config   `yaml:"badger"`
	Postgres postgres.Config `yaml:"postgres"`
}

// EventsConfig selects the broker for completion events and ingestion triggers.
type EventsConfig struct {
	Backend string        `yaml:"backend" envconfig:"EVENTS_BACKEND"`
	Kafka   kafka.Config  `yaml:"kafka"`
	Rabbit  rabbit.Config `yaml:"rabbit"`
}

// ArchiveConfig enables the object store copy of every indexed document.
type ArchiveConfig struct {
	Enabled bool         `yaml:"enabled" envconfig:"ARCHIVE_ENABLED"`
	Minio   minio.Config `yaml:"minio"`
}

func defaultConfig() Config {
	return Config{
		Logger:    logger.Config{Level: logger.Info, ServiceName: serviceName},
		Metrics:   metrics.Config{Address: metrics.DefaultMetricsAddress, Namespace: "trackindex", ServiceName: serviceName},
		Tracer:    tracer.Config{ServiceName: serviceName},
		Pipeline:  pipeline.DefaultConfig(),
		Embedding: embedding.DefaultConfig(),
		Index:     IndexConfig{Backend: IndexQdrant, Qdrant: qdrant.DefaultConfig()},
		Store:     StoreConfig{Backend: StoreMemory},
		Events:    EventsConfig{Backend: EventsLog},
	}
}

// loadConfig layers the file at path (optional) and the environment over the defaults.
func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()
	if err := config.Load(path, &cfg); err != nil {
		return Config{}, err
	}
	cfg.applyDimension()
	return cfg, nil
}

func (c *Config) applyDimension() {
	if c.Index.Dimension == 0 {
		return
	}
	if c.Index.Qdrant.Dimension == 0 {
		c.Index.Qdrant.Dimension = c.Index.Dimension
	}
	if c.Embedding.Dimension == 0 {
		c.Embedding.Dimension = c.Index.Dimension
	}
	if c.Pipeline.Dimension == 0 {
		c.Pipeline.Dimension = c.Index.Dimension
	}
}

// Validate checks the sections the selected backends use. Adapter endpoints are
// checked by the clients themselves once a command needs them.
func (c *Config) Validate() error {
	if err := c.Pipeline.Validate(); err != nil {
		return err
	}
	if c.Index.Dimension <= 0 {
		return errors.New("index: dimension must be positive")
	}

	switch c.Index.Backend {
	case IndexMemory:
	case IndexQdrant:
		q := c.Index.Qdrant
		if q.Dimension == 0 {
			q.Dimension = c.Index.Dimension
		}
		if err := q.Validate(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("index: unknown backend %q", c.Index.Backend)
	}

	switch c.Store.Backend {
	case StoreMemory:
	case StoreRedis:
		if err := c.Store.Redis.Validate(); err != nil {
			return err
		}
	case StoreBadger:
		if err := c.Store.Badger.Validate(); err != nil {
			return err
		}
	case StorePostgres:
		if err := c.Store.Postgres.Validate(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("store: unknown backend %q", c.Store.Backend)
	}

	switch c.Events.Backend {
	case EventsLog:
	case EventsKafka:
		if err := c.Events.Kafka.Validate(); err != nil {
			return err
		}
	case EventsRabbit:
		if err := c.Events.Rabbit.Validate(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("events: unknown backend %q", c.Events.Backend)
	}

	if c.Archive.Enabled {
		if err := c.Archive.Minio.Validate(); err != nil {
			return err
		}
	}
	return nil
}
