package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "trackindexer.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("INDEX_DIMENSION", "8")

	cfg, err := loadConfig("")
	require.NoError(t, err)

	assert.Equal(t, StoreMemory, cfg.Store.Backend)
	assert.Equal(t, EventsLog, cfg.Events.Backend)
	assert.Equal(t, IndexQdrant, cfg.Index.Backend)
	assert.Equal(t, 10, cfg.Pipeline.MaxConcurrent)
	assert.Equal(t, 24*time.Hour, cfg.Pipeline.CoalesceWindow)

	assert.Equal(t, 8, cfg.Index.Qdrant.Dimension)
	assert.Equal(t, 8, cfg.Embedding.Dimension)
	assert.Equal(t, 8, cfg.Pipeline.Dimension)
}

func TestLoadConfigFileAndEnvironment(t *testing.T) {
	path := writeConfig(t, `
index:
  backend: memory
  dimension: 4
store:
  backend: badger
  badger:
    dir: /var/lib/trackindexer
pipeline:
  max_concurrent: 3
  max_attempts: 2
  backoff: [1m]
  coalesce_window: 1h
events:
  backend: kafka
  kafka:
    brokers: [kafka-1:9092]
    events_topic: track-indexed
`)
	t.Setenv("STORE_BACKEND", "postgres")
	t.Setenv("POSTGRES_HOST", "db")
	t.Setenv("POSTGRES_USER", "indexer")
	t.Setenv("POSTGRES_DB_NAME", "tracks")

	cfg, err := loadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, StorePostgres, cfg.Store.Backend)
	assert.Equal(t, "db", cfg.Store.Postgres.Connection.Host)
	assert.Equal(t, "/var/lib/trackindexer", cfg.Store.Badger.Dir)
	assert.Equal(t, 3, cfg.Pipeline.MaxConcurrent)
	assert.Equal(t, []time.Duration{time.Minute}, cfg.Pipeline.Backoff)
	assert.Equal(t, time.Hour, cfg.Pipeline.CoalesceWindow)
	assert.Equal(t, []string{"kafka-1:9092"}, cfg.Events.Kafka.Brokers)
	assert.Equal(t, 4, cfg.Pipeline.Dimension)
}

func TestLoadConfigRejectsUnknownKeys(t *testing.T) {
	path := writeConfig(t, "index:\n  dimension: 4\n  shards: 2\n")
	_, err := loadConfig(path)
	assert.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	valid := func() Config {
		cfg := defaultConfig()
		cfg.Index.Dimension = 4
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "no dimension", mutate: func(c *Config) { c.Index.Dimension = 0 }, wantErr: "dimension"},
		{name: "unknown index", mutate: func(c *Config) { c.Index.Backend = "faiss" }, wantErr: "unknown backend"},
		{name: "unknown store", mutate: func(c *Config) { c.Store.Backend = "etcd" }, wantErr: "unknown backend"},
		{name: "unknown events", mutate: func(c *Config) { c.Events.Backend = "nats" }, wantErr: "unknown backend"},
		{name: "badger without dir", mutate: func(c *Config) { c.Store.Backend = StoreBadger }, wantErr: "badger"},
		{name: "badger in memory", mutate: func(c *Config) {
			c.Store.Backend = StoreBadger
			c.Store.Badger.InMemory = true
		}},
		{name: "kafka without brokers", mutate: func(c *Config) { c.Events.Backend = EventsKafka }, wantErr: "broker"},
		{name: "rabbit without host", mutate: func(c *Config) { c.Events.Backend = EventsRabbit }, wantErr: "host"},
		{name: "archive without bucket", mutate: func(c *Config) {
			c.Archive.Enabled = true
			c.Archive.Minio.Connection.Endpoint = "minio:9000"
		}, wantErr: "bucket"},
		{name: "invalid pipeline", mutate: func(c *Config) { c.Pipeline.MaxConcurrent = 0 }, wantErr: "max_concurrent"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
