package kafka

import (
	"errors"
	"time"

	"github.com/segmentio/kafka-go"
)

const (
	DefaultMinBytes       = 1
	DefaultMaxBytes       = 10e6
	DefaultMaxWait        = 500 * time.Millisecond
	DefaultCommitInterval = time.Second
	DefaultRequiredAcks   = kafka.RequireAll
	DefaultMaxAttempts    = 10
	DefaultWriteTimeout   = 10 * time.Second
	DefaultRetryDelay     = time.Second
)

// Config defines the Kafka connection, the completion event topic and the optional
// trigger topic.
type Config struct {
	Brokers []string `yaml:"brokers" envconfig:"KAFKA_BROKERS"`

	// EventsTopic receives one completion event per terminal run, keyed by ISRC.
	EventsTopic string `yaml:"events_topic" envconfig:"KAFKA_EVENTS_TOPIC"`

	// TriggerTopic, when set, is consumed for ingestion triggers.
	TriggerTopic string `yaml:"trigger_topic" envconfig:"KAFKA_TRIGGER_TOPIC"`
	GroupID      string `yaml:"group_id" envconfig:"KAFKA_GROUP_ID"`

	MinBytes       int           `yaml:"min_bytes" envconfig:"KAFKA_MIN_BYTES"`
	MaxBytes       int           `yaml:"max_bytes" envconfig:"KAFKA_MAX_BYTES"`
	MaxWait        time.Duration `yaml:"max_wait" envconfig:"KAFKA_MAX_WAIT"`
	CommitInterval time.Duration `yaml:"commit_interval" envconfig:"KAFKA_COMMIT_INTERVAL"`

	// StartOffset is kafka.FirstOffset (-2) or kafka.LastOffset (-1). Zero selects
	// FirstOffset.
	StartOffset int64 `yaml:"start_offset" envconfig:"KAFKA_START_OFFSET"`

	RequiredAcks     kafka.RequiredAcks `yaml:"required_acks" envconfig:"KAFKA_REQUIRED_ACKS"`
	MaxAttempts      int                `yaml:"max_attempts" envconfig:"KAFKA_MAX_ATTEMPTS"`
	WriteTimeout     time.Duration      `yaml:"write_timeout" envconfig:"KAFKA_WRITE_TIMEOUT"`
	CompressionCodec string             `yaml:"compression_codec" envconfig:"KAFKA_COMPRESSION_CODEC"`

	// RetryDelay is the pause before a trigger whose handler failed is retried.
	RetryDelay time.Duration `yaml:"retry_delay" envconfig:"KAFKA_RETRY_DELAY"`

	TLS  TLSConfig  `yaml:"tls"`
	SASL SASLConfig `yaml:"sasl"`
}

// TLSConfig enables TLS towards the brokers.
type TLSConfig struct {
	Enabled            bool   `yaml:"enabled" envconfig:"KAFKA_TLS_ENABLED"`
	CACertPath         string `yaml:"ca_cert_path" envconfig:"KAFKA_TLS_CA_CERT_PATH"`
	ClientCertPath     string `yaml:"client_cert_path" envconfig:"KAFKA_TLS_CLIENT_CERT_PATH"`
	ClientKeyPath      string `yaml:"client_key_path" envconfig:"KAFKA_TLS_CLIENT_KEY_PATH"`
	InsecureSkipVerify bool   `yaml:"insecure_skip_verify" envconfig:"KAFKA_TLS_INSECURE_SKIP_VERIFY"`
}

// SASLConfig enables SASL authentication. Mechanism is PLAIN, SCRAM-SHA-256 or
// SCRAM-SHA-512.
type SASLConfig struct {
	Enabled   bool   `yaml:"enabled" envconfig:"KAFKA_SASL_ENABLED"`
	Mechanism string `yaml:"mechanism" envconfig:"KAFKA_SASL_MECHANISM"`
	Username  string `yaml:"username" envconfig:"KAFKA_SASL_USERNAME"`
	Password  string `yaml:"password" envconfig:"KAFKA_SASL_PASSWORD"`
}

// Validate checks the fields needed by the configured roles.
func (c Config) Validate() error {
	if len(c.Brokers) == 0 {
		return errors.New("kafka: at least one broker is required")
	}
	if c.EventsTopic == "" && c.TriggerTopic == "" {
		return errors.New("kafka: events_topic or trigger_topic is required")
	}
	if c.TriggerTopic != "" && c.GroupID == "" {
		return errors.New("kafka: group_id is required to consume triggers")
	}
	switch c.CompressionCodec {
	case "", "gzip", "snappy", "lz4", "zstd":
	default:
		return errors.New("kafka: unsupported compression codec " + c.CompressionCodec)
	}
	return nil
}

func (c Config) withDefaults() Config {
	if c.MinBytes == 0 {
		c.MinBytes = DefaultMinBytes
	}
	if c.MaxBytes == 0 {
		c.MaxBytes = DefaultMaxBytes
	}
	if c.MaxWait == 0 {
		c.MaxWait = DefaultMaxWait
	}
	if c.CommitInterval == 0 {
		c.CommitInterval = DefaultCommitInterval
	}
	if c.StartOffset == 0 {
		c.StartOffset = kafka.FirstOffset
	}
	if c.RequiredAcks == 0 {
		c.RequiredAcks = DefaultRequiredAcks
	}
	if c.MaxAttempts == 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = DefaultWriteTimeout
	}
	if c.RetryDelay == 0 {
		c.RetryDelay = DefaultRetryDelay
	}
	return c
}
