package rabbit

import (
	"errors"
	"net"

	amqp "github.com/rabbitmq/amqp091-go"
)

var (
	// ErrConnectionFailed is returned when connection to RabbitMQ cannot be established
	ErrConnectionFailed = errors.New("connection failed")

	// ErrChannelClosed is returned when there is no open channel to publish on
	ErrChannelClosed = errors.New("channel closed")

	// ErrMessageNacked is returned when the broker rejects a published message
	ErrMessageNacked = errors.New("message nacked by broker")

	// ErrNoQueue is returned by Consume on a client without a trigger queue
	ErrNoQueue = errors.New("no trigger queue configured")
)

// ErrorCategory groups broker errors by how a caller should react.
type ErrorCategory int

const (
	CategoryUnknown ErrorCategory = iota
	CategoryConnection
	CategoryChannel
	CategoryPermission
	CategoryResource
	CategoryMessage
	CategoryNetwork
	CategoryServer
)

// GetErrorCategory returns the category of err, from AMQP reply codes when err
// carries one.
func GetErrorCategory(err error) ErrorCategory {
	if err == nil {
		return CategoryUnknown
	}
	switch {
	case errors.Is(err, ErrConnectionFailed), errors.Is(err, amqp.ErrClosed):
		return CategoryConnection
	case errors.Is(err, ErrChannelClosed):
		return CategoryChannel
	case errors.Is(err, ErrMessageNacked):
		return CategoryMessage
	}

	var amqpErr *amqp.Error
	if errors.As(err, &amqpErr) {
		switch amqpErr.Code {
		case amqp.AccessRefused:
			return CategoryPermission
		case amqp.NotFound, amqp.ResourceLocked, amqp.PreconditionFailed:
			return CategoryResource
		case amqp.ContentTooLarge, amqp.NoRoute, amqp.NoConsumers:
			return CategoryMessage
		case amqp.ConnectionForced, amqp.ChannelError:
			return CategoryConnection
		case amqp.InternalError, amqp.ResourceError:
			return CategoryServer
		}
		if amqpErr.Server && amqpErr.Recover {
			return CategoryChannel
		}
		return CategoryUnknown
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return CategoryNetwork
	}
	return CategoryUnknown
}

// IsRetryableError reports whether retrying may succeed once the client has
// reconnected.
func IsRetryableError(err error) bool {
	switch GetErrorCategory(err) {
	case CategoryConnection, CategoryChannel, CategoryNetwork, CategoryServer:
		return true
	default:
		return false
	}
}
