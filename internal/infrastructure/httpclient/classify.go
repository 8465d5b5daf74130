package httpclient

import (
	"errors"
	"net"
	"net/http"

	"github.com/kirillkom/hybrid-rag/internal/infrastructure/resilience"
)

// Classify decides retry and breaker accounting for HTTP transport errors.
// Timeouts, cancellation and open breakers are handled by resilience.WithCommon.
func Classify(err error) resilience.ErrorClassification {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		if RetryableStatus(statusErr.StatusCode) {
			return resilience.Transient
		}
		// 4xx means our request was wrong, not that the model server is unhealthy.
		return resilience.Ignored
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return resilience.Transient
	}
	return resilience.Permanent
}

func WrapTemporary(operation string, err error) error {
	return resilience.WrapTemporary(operation, err, Classify)
}

func RetryableStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusRequestTimeout, http.StatusTooManyRequests, http.StatusInternalServerError,
		http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}
