package resilience

import (
	"context"
	"errors"

	"github.com/sony/gobreaker/v2"

	"github.com/kirillkom/hybrid-rag/internal/core/domain"
)

// ErrCallTimeout marks an attempt cut short by Config.CallTimeout while the
// caller's context was still alive.
var ErrCallTimeout = errors.New("call timeout")

type ErrorClassification struct {
	Retryable     bool
	RecordFailure bool
}

type ErrorClassifier func(err error) ErrorClassification

var (
	// Transient failures are retried and count against the breaker.
	Transient = ErrorClassification{Retryable: true, RecordFailure: true}
	// Permanent failures count against the breaker but are not retried.
	Permanent = ErrorClassification{Retryable: false, RecordFailure: true}
	// Ignored failures are the caller's fault; the dependency stays healthy.
	Ignored = ErrorClassification{Retryable: false, RecordFailure: false}
)

func IsCircuitOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}

// WithCommon handles the cases every collaborator shares (attempt timeout,
// caller cancellation, open breaker) before deferring to adapter rules.
func WithCommon(classifier ErrorClassifier) ErrorClassifier {
	if classifier == nil {
		classifier = func(error) ErrorClassification { return Permanent }
	}
	return func(err error) ErrorClassification {
		switch {
		case err == nil:
			return ErrorClassification{}
		case errors.Is(err, ErrCallTimeout):
			return Transient
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return Ignored
		case IsCircuitOpen(err):
			return Transient
		}
		return classifier(err)
	}
}

// WrapTemporary tags errors worth retrying later with domain.ErrTemporary so
// the HTTP edge answers 503 instead of 500.
func WrapTemporary(operation string, err error, classifier ErrorClassifier) error {
	if err == nil || domain.IsKind(err, domain.ErrTemporary) {
		return err
	}
	if IsCircuitOpen(err) || WithCommon(classifier)(err).Retryable {
		return domain.WrapError(domain.ErrTemporary, operation, err)
	}
	return err
}
