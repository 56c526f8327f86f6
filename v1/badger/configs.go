package badger

import (
	"errors"
	"time"
)

// Config configures the embedded step store.
type Config struct {
	// Dir holds the database files. Required unless InMemory is set.
	Dir string `yaml:"dir" envconfig:"BADGER_DIR"`

	// InMemory keeps everything in memory; nothing survives Close.
	InMemory bool `yaml:"in_memory" envconfig:"BADGER_IN_MEMORY"`

	// SyncWrites fsyncs every commit.
	SyncWrites bool `yaml:"sync_writes" envconfig:"BADGER_SYNC_WRITES"`

	// GCInterval is how often value log garbage collection runs. Zero disables it.
	GCInterval time.Duration `yaml:"gc_interval" envconfig:"BADGER_GC_INTERVAL"`
}

// Validate checks that the store has somewhere to live.
func (c Config) Validate() error {
	if c.Dir == "" && !c.InMemory {
		return errors.New("badger: dir is required unless in_memory is set")
	}
	if c.GCInterval < 0 {
		return errors.New("badger: gc_interval must not be negative")
	}
	return nil
}
