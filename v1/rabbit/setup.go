package rabbit

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net/url"
	"os"
	"sync"
	"time"

	"github.com/Aleph-Alpha/trackindex/v1/observability"
	amqp "github.com/rabbitmq/amqp091-go"
)

// RabbitClient publishes completion events and consumes ingestion triggers with
// automatic reconnection.
type RabbitClient struct {
	cfg Config

	// channel and conn are replaced on reconnection; mu guards both.
	channel *amqp.Channel
	conn    *amqp.Connection
	mu      sync.RWMutex

	logger   Logger
	observer observability.Observer
	carrier  Carrier

	// shutdownSignal is closed when the client is being shut down
	shutdownSignal chan struct{}

	closeShutdownOnce sync.Once
}

// NewClient connects to RabbitMQ and declares the exchange, and the trigger queue
// when one is configured.
//
// Example:
//
//	client, err := rabbit.NewClient(config)
//	if err != nil {
//		return err
//	}
//	defer client.GracefulShutdown()
func NewClient(config Config) (*RabbitClient, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	config = config.withDefaults()

	con, err := newConnection(config)
	if err != nil {
		return nil, fmt.Errorf("error in connecting to rabbit: %w", err)
	}

	ch, err := connectToChannel(con, config)
	if err != nil {
		_ = con.Close()
		return nil, fmt.Errorf("error in declaring channel: %w", err)
	}

	return &RabbitClient{
		cfg:            config,
		conn:           con,
		channel:        ch,
		shutdownSignal: make(chan struct{}),
	}, nil
}

// connectToChannel creates a channel in confirm mode and declares the topology:
// the exchange, then, for consumers, the optional dead-letter exchange and queue,
// the trigger queue and its binding.
func connectToChannel(rb *amqp.Connection, cfg Config) (*amqp.Channel, error) {
	ch, err := rb.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to create channel: %w", err)
	}

	if err = ch.Confirm(false); err != nil {
		return nil, fmt.Errorf("failed to enable publisher confirms: %w", err)
	}

	err = ch.ExchangeDeclare(
		cfg.Channel.ExchangeName,
		cfg.Channel.ExchangeType,
		true,  // Durable
		false, // AutoDelete
		false, // Internal
		false, // NoWait
		nil,   // Arguments
	)
	if err != nil {
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	if cfg.Channel.QueueName == "" {
		return ch, nil
	}

	queueArgs := amqp.Table{}
	if cfg.DeadLetter.ExchangeName != "" && cfg.DeadLetter.Ttl > 0 {
		err = ch.ExchangeDeclare(cfg.DeadLetter.ExchangeName, "direct", true, false, false, false, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to declare dead letter exchange: %w", err)
		}

		_, err = ch.QueueDeclare(cfg.DeadLetter.QueueName, true, false, false, false, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to declare dead letter queue: %w", err)
		}

		err = ch.QueueBind(cfg.DeadLetter.QueueName, cfg.DeadLetter.RoutingKey, cfg.DeadLetter.ExchangeName, false, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to bind dead letter queue: %w", err)
		}

		queueArgs = amqp.Table{
			"x-dead-letter-exchange":    cfg.DeadLetter.ExchangeName,
			"x-dead-letter-routing-key": cfg.DeadLetter.RoutingKey,
			"x-message-ttl":             cfg.DeadLetter.Ttl * 1000, // Convert to milliseconds
		}
	}

	_, err = ch.QueueDeclare(
		cfg.Channel.QueueName,
		true,      // Durable
		false,     // AutoDelete
		false,     // Exclusive
		false,     // NoWait
		queueArgs, // Arguments including dead letter config
	)
	if err != nil {
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}

	err = ch.QueueBind(cfg.Channel.QueueName, cfg.Channel.BindingKey, cfg.Channel.ExchangeName, false, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to bind queue: %w", err)
	}

	if cfg.Channel.PrefetchCount > 0 {
		if err = ch.Qos(cfg.Channel.PrefetchCount, 0, false); err != nil {
			return nil, fmt.Errorf("failed to set QoS: %w", err)
		}
	}

	return ch, nil
}

// RetryConnection watches the connection and re-establishes it, with its channel
// and topology, when it closes. It returns on shutdown.
func (rb *RabbitClient) RetryConnection() {
	ctx := context.Background()
outerLoop:
	for {
		errChan := make(chan *amqp.Error, 1)
		rb.mu.RLock()
		rb.conn.NotifyClose(errChan)
		rb.mu.RUnlock()

		select {
		case <-rb.shutdownSignal:
			return

		case err := <-errChan:
			if err == nil {
				// Closed by GracefulShutdown.
				return
			}
			rb.logWarn(ctx, "RabbitMQ connection closed, retrying", err, nil)
		reconnectLoop:
			for {
				select {
				case <-rb.shutdownSignal:
					return
				default:
					newConn, err := newConnection(rb.cfg)
					if err != nil {
						rb.logError(ctx, "RabbitMQ reconnection failed", err, nil)
						time.Sleep(rb.cfg.retryDelay())
						continue reconnectLoop
					}

					ch, err := connectToChannel(newConn, rb.cfg)
					if err != nil {
						_ = newConn.Close()
						rb.logError(ctx, "Failed to re-establish RabbitMQ channel", err, nil)
						time.Sleep(rb.cfg.retryDelay())
						continue reconnectLoop
					}

					rb.mu.Lock()
					rb.conn = newConn
					rb.channel = ch
					rb.mu.Unlock()

					rb.logInfo(ctx, "Successfully reconnected to RabbitMQ", nil)
					continue outerLoop
				}
			}
		}
	}
}

// amqpURL renders the connection URL with escaped credentials.
func amqpURL(cfg Config) string {
	scheme := "amqp"
	if cfg.Connection.IsSSLEnabled {
		scheme = "amqps"
	}
	u := url.URL{
		Scheme: scheme,
		User:   url.UserPassword(cfg.Connection.User, cfg.Connection.Password),
		Host:   fmt.Sprintf("%s:%d", cfg.Connection.Host, cfg.Connection.Port),
	}
	return u.String()
}

// newConnection dials RabbitMQ with a 2-second heartbeat, using TLS and client
// certificates when configured.
func newConnection(cfg Config) (*amqp.Connection, error) {
	amqpCfg := amqp.Config{Heartbeat: 2 * time.Second}

	if cfg.Connection.IsSSLEnabled && cfg.Connection.UseCert {
		caCert, err := os.ReadFile(cfg.Connection.CACertPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA cert: %w", err)
		}
		caCertPool := x509.NewCertPool()
		caCertPool.AppendCertsFromPEM(caCert)

		cert, err := tls.LoadX509KeyPair(cfg.Connection.ClientCertPath, cfg.Connection.ClientKeyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load client cert: %w", err)
		}

		amqpCfg.TLSClientConfig = &tls.Config{
			RootCAs:      caCertPool,
			Certificates: []tls.Certificate{cert},
			ServerName:   cfg.Connection.ServerName,
		}
	}

	conn, err := amqp.DialConfig(amqpURL(cfg), amqpCfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}
	return conn, nil
}

// GracefulShutdown closes the channel and the connection.
func (rb *RabbitClient) GracefulShutdown() {
	rb.closeShutdownOnce.Do(func() {
		close(rb.shutdownSignal)
	})

	rb.mu.Lock()
	defer rb.mu.Unlock()

	rb.logInfo(context.Background(), "Shutting down RabbitMQ client", nil)

	if rb.channel != nil && !rb.channel.IsClosed() {
		if err := rb.channel.Close(); err != nil {
			rb.logWarn(context.Background(), "Failed to close rabbit channel", err, nil)
		}
	}
	if rb.conn != nil && !rb.conn.IsClosed() {
		if err := rb.conn.Close(); err != nil {
			rb.logWarn(context.Background(), "Failed to close rabbit connection", err, nil)
		}
	}
}

// WithObserver attaches an observer and returns the client for chaining.
func (rb *RabbitClient) WithObserver(observer observability.Observer) *RabbitClient {
	rb.observer = observer
	return rb
}

// WithLogger attaches a logger and returns the client for chaining.
func (rb *RabbitClient) WithLogger(logger Logger) *RabbitClient {
	rb.logger = logger
	return rb
}

// WithCarrier enables trace propagation through message headers.
func (rb *RabbitClient) WithCarrier(c Carrier) *RabbitClient {
	rb.carrier = c
	return rb
}

func (rb *RabbitClient) logInfo(ctx context.Context, msg string, fields map[string]interface{}) {
	if rb.logger != nil {
		rb.logger.InfoWithContext(ctx, msg, nil, fields)
	}
}

func (rb *RabbitClient) logWarn(ctx context.Context, msg string, err error, fields map[string]interface{}) {
	if rb.logger != nil {
		rb.logger.WarnWithContext(ctx, msg, err, fields)
	}
}

func (rb *RabbitClient) logError(ctx context.Context, msg string, err error, fields map[string]interface{}) {
	if rb.logger != nil {
		rb.logger.ErrorWithContext(ctx, msg, err, fields)
	}
}
