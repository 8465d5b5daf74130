package nats

import (
	"errors"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/hybrid-rag/internal/infrastructure/resilience"
)

// classifyNATSError treats connection loss as transient; anything else
// (bad subject, oversized payload) will not fix itself on retry.
func classifyNATSError(err error) resilience.ErrorClassification {
	switch {
	case errors.Is(err, nats.ErrNoServers),
		errors.Is(err, nats.ErrTimeout),
		errors.Is(err, nats.ErrConnectionClosed),
		errors.Is(err, nats.ErrConnectionReconnecting),
		errors.Is(err, nats.ErrDisconnected):
		return resilience.Transient
	}
	return resilience.Permanent
}

func wrapTemporaryIfNeeded(err error) error {
	return resilience.WrapTemporary("nats publish", err, classifyNATSError)
}
