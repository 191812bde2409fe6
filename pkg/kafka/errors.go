package kafka

import (
	"context"
	"errors"
	"net"
	"strings"
	"syscall"

	"github.com/segmentio/kafka-go"
)

var (
	ErrProducerClosed = errors.New("kafka producer is closed")
	ErrConsumerClosed = errors.New("kafka consumer is closed")
	ErrEmptyKey       = errors.New("message key cannot be empty")
	ErrEmptyValue     = errors.New("message value cannot be empty")
)

// ErrorType tells the consumer whether a failed message is worth retrying.
type ErrorType int

const (
	ErrorTypeUnknown ErrorType = iota
	ErrorTypeTransient
	ErrorTypePermanent
)

// KafkaError lets handlers state the retry decision explicitly.
type KafkaError struct {
	Type    ErrorType
	Message string
	Err     error
}

func (e *KafkaError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *KafkaError) Unwrap() error {
	return e.Err
}

func NewTransientError(message string, err error) *KafkaError {
	return &KafkaError{Type: ErrorTypeTransient, Message: message, Err: err}
}

func NewPermanentError(message string, err error) *KafkaError {
	return &KafkaError{Type: ErrorTypePermanent, Message: message, Err: err}
}

// ClassifyError decides whether err is worth retrying. An explicit KafkaError
// wins; otherwise broker errors flagged temporary, timeouts and dropped
// connections are transient. Everything else is permanent.
func ClassifyError(err error) ErrorType {
	if err == nil {
		return ErrorTypeUnknown
	}

	var explicit *KafkaError
	if errors.As(err, &explicit) {
		return explicit.Type
	}

	var brokerErr kafka.Error
	if errors.As(err, &brokerErr) {
		if brokerErr.Temporary() {
			return ErrorTypeTransient
		}
		return ErrorTypePermanent
	}

	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, syscall.ECONNREFUSED),
		errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, syscall.EPIPE),
		errors.As(err, &netErr) && netErr.Timeout():
		return ErrorTypeTransient
	}

	// Errors that lost their type on the way, e.g. from an HTTP sender.
	msg := strings.ToLower(err.Error())
	for _, hint := range []string{"connection refused", "connection reset", "timeout", "no such host"} {
		if strings.Contains(msg, hint) {
			return ErrorTypeTransient
		}
	}
	return ErrorTypePermanent
}

func ShouldRetry(err error, currentRetries, maxRetries int) bool {
	return err != nil && currentRetries < maxRetries && ClassifyError(err) == ErrorTypeTransient
}
