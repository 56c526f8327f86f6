package kafka

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/Aleph-Alpha/trackindex/v1/observability"
	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/compress"
	"github.com/segmentio/kafka-go/sasl"
	"github.com/segmentio/kafka-go/sasl/plain"
	"github.com/segmentio/kafka-go/sasl/scram"
)

// Logger is the subset of the logger package used here.
type Logger interface {
	Info(msg string, err error, fields ...map[string]interface{})
	Warn(msg string, err error, fields ...map[string]interface{})
	Error(msg string, err error, fields ...map[string]interface{})
}

// Carrier moves trace context in and out of message headers. *tracer.Tracer
// implements it.
type Carrier interface {
	GetCarrier(ctx context.Context) map[string]string
	SetCarrierOnContext(ctx context.Context, carrier map[string]string) context.Context
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaClient publishes completion events and consumes ingestion triggers.
type KafkaClient struct {
	cfg Config

	// writer is nil without an events topic, reader without a trigger topic.
	writer messageWriter
	reader messageReader

	logger   Logger
	observer observability.Observer
	carrier  Carrier

	closeOnce sync.Once
}

// NewClient creates the writer and reader the configuration asks for. No
// connection is made until the first message is written or fetched.
//
// Example:
//
//	client, err := kafka.NewClient(config)
//	if err != nil {
//		return nil, err
//	}
//	defer client.Close()
func NewClient(cfg Config) (*KafkaClient, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()

	var tlsConfig *tls.Config
	var err error
	if cfg.TLS.Enabled {
		tlsConfig, err = createTLSConfig(cfg.TLS)
		if err != nil {
			return nil, fmt.Errorf("failed to create TLS config: %w", err)
		}
	}

	var mechanism sasl.Mechanism
	if cfg.SASL.Enabled {
		mechanism, err = createSASLMechanism(cfg.SASL)
		if err != nil {
			return nil, fmt.Errorf("failed to create SASL mechanism: %w", err)
		}
	}

	k := &KafkaClient{cfg: cfg}
	if cfg.EventsTopic != "" {
		k.writer = createWriter(cfg, tlsConfig, mechanism, k.errorLogger)
	}
	if cfg.TriggerTopic != "" {
		k.reader = createReader(cfg, tlsConfig, mechanism, k.errorLogger)
	}
	return k, nil
}

// WithLogger sets the logger and returns the client for chaining.
func (k *KafkaClient) WithLogger(l Logger) *KafkaClient {
	k.logger = l
	return k
}

// WithObserver sets the observer and returns the client for chaining.
func (k *KafkaClient) WithObserver(o observability.Observer) *KafkaClient {
	k.observer = o
	return k
}

// WithCarrier enables trace propagation through message headers.
func (k *KafkaClient) WithCarrier(c Carrier) *KafkaClient {
	k.carrier = c
	return k
}

// Close flushes the writer and closes the reader.
func (k *KafkaClient) Close() error {
	var errs []error
	k.closeOnce.Do(func() {
		if k.writer != nil {
			errs = append(errs, k.writer.Close())
		}
		if k.reader != nil {
			errs = append(errs, k.reader.Close())
		}
	})
	return errors.Join(errs...)
}

// errorLogger forwards kafka-go's internal errors. It reads k.logger on every call,
// so a logger set after NewClient is honored.
func (k *KafkaClient) errorLogger(msg string, args ...interface{}) {
	if k.logger == nil {
		return
	}
	k.logger.Error("Kafka internal error", nil, map[string]interface{}{
		"error": fmt.Sprintf(msg, args...),
	})
}

func createWriter(cfg Config, tlsConfig *tls.Config, mechanism sasl.Mechanism, errorLogger kafka.LoggerFunc) *kafka.Writer {
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.EventsTopic,
		Balancer:     &kafka.Hash{},
		MaxAttempts:  cfg.MaxAttempts,
		WriteTimeout: cfg.WriteTimeout,
		RequiredAcks: cfg.RequiredAcks,
		ErrorLogger:  errorLogger,
		Transport: &kafka.Transport{
			TLS:  tlsConfig,
			SASL: mechanism,
		},
	}

	switch cfg.CompressionCodec {
	case "gzip":
		w.Compression = compress.Gzip
	case "snappy":
		w.Compression = compress.Snappy
	case "lz4":
		w.Compression = compress.Lz4
	case "zstd":
		w.Compression = compress.Zstd
	}
	return w
}

func createReader(cfg Config, tlsConfig *tls.Config, mechanism sasl.Mechanism, errorLogger kafka.LoggerFunc) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		Topic:       cfg.TriggerTopic,
		GroupID:     cfg.GroupID,
		MinBytes:    cfg.MinBytes,
		MaxBytes:    cfg.MaxBytes,
		MaxWait:     cfg.MaxWait,
		StartOffset: cfg.StartOffset,
		// Offsets are committed explicitly after each trigger is handled.
		CommitInterval: 0,
		ErrorLogger:    errorLogger,
		Dialer: &kafka.Dialer{
			TLS:           tlsConfig,
			SASLMechanism: mechanism,
			DualStack:     true,
		},
	})
}

// createTLSConfig creates a TLS configuration from the provided config
func createTLSConfig(cfg TLSConfig) (*tls.Config, error) {
	tlsConfig := &tls.Config{
		InsecureSkipVerify: cfg.InsecureSkipVerify,
	}

	if cfg.CACertPath != "" {
		caCert, err := os.ReadFile(cfg.CACertPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA cert: %w", err)
		}
		caCertPool := x509.NewCertPool()
		if !caCertPool.AppendCertsFromPEM(caCert) {
			return nil, fmt.Errorf("failed to parse CA cert")
		}
		tlsConfig.RootCAs = caCertPool
	}

	if cfg.ClientCertPath != "" && cfg.ClientKeyPath != "" {
		cert, err := tls.LoadX509KeyPair(cfg.ClientCertPath, cfg.ClientKeyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load client cert: %w", err)
		}
		tlsConfig.Certificates = []tls.Certificate{cert}
	}

	return tlsConfig, nil
}

// createSASLMechanism creates a SASL mechanism from the provided config
func createSASLMechanism(cfg SASLConfig) (sasl.Mechanism, error) {
	switch cfg.Mechanism {
	case "PLAIN":
		return plain.Mechanism{
			Username: cfg.Username,
			Password: cfg.Password,
		}, nil
	case "SCRAM-SHA-256":
		return scram.Mechanism(scram.SHA256, cfg.Username, cfg.Password)
	case "SCRAM-SHA-512":
		return scram.Mechanism(scram.SHA512, cfg.Username, cfg.Password)
	default:
		return nil, fmt.Errorf("unsupported SASL mechanism: %s", cfg.Mechanism)
	}
}
