package rabbit

import (
	"context"
	"errors"
	"time"
)

// Config defines the top-level configuration structure for the RabbitMQ client.
type Config struct {
	// Connection contains the settings needed to establish a connection to the RabbitMQ server
	Connection Connection `yaml:"connection"`

	// Channel contains configuration for the exchange, the trigger queue and routing
	Channel Channel `yaml:"channel"`

	// DeadLetter contains configuration for the dead-letter exchange and queue
	// that receive triggers the queue expires
	DeadLetter DeadLetter `yaml:"dead_letter"`
}

// Connection contains the configuration parameters needed to establish
// a connection to a RabbitMQ server, including authentication and TLS settings.
type Connection struct {
	Host     string `yaml:"host" envconfig:"RABBITMQ_HOST"`
	Port     uint   `yaml:"port" envconfig:"RABBITMQ_PORT"`
	User     string `yaml:"user" envconfig:"RABBITMQ_USER"`
	Password string `yaml:"password" envconfig:"RABBITMQ_PASSWORD"`

	// IsSSLEnabled determines whether to use the amqps protocol
	IsSSLEnabled bool `yaml:"is_ssl_enabled" envconfig:"RABBITMQ_SSL_ENABLED"`

	// UseCert sends a client certificate for mutual TLS
	UseCert        bool   `yaml:"use_cert" envconfig:"RABBITMQ_USE_CERT"`
	CACertPath     string `yaml:"ca_cert_path" envconfig:"RABBITMQ_CA_CERT_PATH"`
	ClientCertPath string `yaml:"client_cert_path" envconfig:"RABBITMQ_CLIENT_CERT_PATH"`
	ClientKeyPath  string `yaml:"client_key_path" envconfig:"RABBITMQ_CLIENT_KEY_PATH"`

	// ServerName should match a CN or SAN in the server's certificate
	ServerName string `yaml:"server_name" envconfig:"RABBITMQ_SERVER_NAME"`
}

// Channel contains configuration for the exchange, the trigger queue and routing.
type Channel struct {
	// ExchangeName is the durable exchange completion events are published to and
	// the trigger queue is bound to
	ExchangeName string `yaml:"exchange_name" envconfig:"RABBITMQ_EXCHANGE_NAME"`

	// ExchangeType is "direct" or "topic"
	ExchangeType string `yaml:"exchange_type" envconfig:"RABBITMQ_EXCHANGE_TYPE"`

	// RoutingKey is the routing key of completion events
	RoutingKey string `yaml:"routing_key" envconfig:"RABBITMQ_ROUTING_KEY"`

	// QueueName, when set, is declared, bound with BindingKey and consumed for triggers
	QueueName  string `yaml:"queue_name" envconfig:"RABBITMQ_QUEUE_NAME"`
	BindingKey string `yaml:"binding_key" envconfig:"RABBITMQ_BINDING_KEY"`

	// DelayToReconnect is the time in milliseconds to wait between reconnection
	// attempts and between retries of a failed trigger
	DelayToReconnect int `yaml:"delay_to_reconnect" envconfig:"RABBITMQ_DELAY_TO_RECONNECT"`

	// PrefetchCount limits the number of unacknowledged triggers held by the consumer
	PrefetchCount int `yaml:"prefetch_count" envconfig:"RABBITMQ_PREFETCH_COUNT"`

	ContentType string `yaml:"content_type" envconfig:"RABBITMQ_CONTENT_TYPE"`
}

// DeadLetter contains configuration for dead-letter handling.
type DeadLetter struct {
	ExchangeName string `yaml:"exchange_name" envconfig:"RABBITMQ_DLX_EXCHANGE_NAME"`
	QueueName    string `yaml:"queue_name" envconfig:"RABBITMQ_DLX_QUEUE_NAME"`
	RoutingKey   string `yaml:"routing_key" envconfig:"RABBITMQ_DLX_ROUTING_KEY"`

	// Ttl is the time-to-live of queued triggers in seconds. Zero disables dead
	// lettering.
	Ttl int `yaml:"ttl" envconfig:"RABBITMQ_DLX_TTL"`
}

const (
	DefaultPort             = 5672
	DefaultExchangeType     = "direct"
	DefaultContentType      = "application/json"
	DefaultDelayToReconnect = 1000
)

// Validate requires a host and an exchange.
func (c Config) Validate() error {
	if c.Connection.Host == "" {
		return errors.New("rabbit: host is required")
	}
	if c.Channel.ExchangeName == "" {
		return errors.New("rabbit: exchange_name is required")
	}
	switch c.Channel.ExchangeType {
	case "", "direct", "topic", "fanout":
	default:
		return errors.New("rabbit: unsupported exchange type " + c.Channel.ExchangeType)
	}
	if c.DeadLetter.Ttl > 0 && (c.DeadLetter.ExchangeName == "" || c.DeadLetter.QueueName == "") {
		return errors.New("rabbit: dead letter ttl needs an exchange and a queue")
	}
	return nil
}

func (c Config) withDefaults() Config {
	if c.Connection.Port == 0 {
		c.Connection.Port = DefaultPort
	}
	if c.Channel.ExchangeType == "" {
		c.Channel.ExchangeType = DefaultExchangeType
	}
	if c.Channel.ContentType == "" {
		c.Channel.ContentType = DefaultContentType
	}
	if c.Channel.DelayToReconnect == 0 {
		c.Channel.DelayToReconnect = DefaultDelayToReconnect
	}
	return c
}

func (c Config) retryDelay() time.Duration {
	return time.Duration(c.Channel.DelayToReconnect) * time.Millisecond
}

// Logger is an interface that matches the logger.Logger methods used here.
// It provides context-aware structured logging with optional error and field parameters.
type Logger interface {
	InfoWithContext(ctx context.Context, msg string, err error, fields ...map[string]interface{})
	WarnWithContext(ctx context.Context, msg string, err error, fields ...map[string]interface{})
	ErrorWithContext(ctx context.Context, msg string, err error, fields ...map[string]interface{})
}

// Carrier moves trace context in and out of message headers. *tracer.Tracer
// implements it.
type Carrier interface {
	GetCarrier(ctx context.Context) map[string]string
	SetCarrierOnContext(ctx context.Context, carrier map[string]string) context.Context
}
