package httpadapter

import (
	"net/http"

	"github.com/kirillkom/hybrid-rag/internal/core/domain"
)

func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrEmptyQuery),
		domain.IsKind(err, domain.ErrEmptyKnowledgeBase),
		domain.IsKind(err, domain.ErrEmptyCorpus),
		domain.IsKind(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrTemporary):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// responseMessage is the short text sent to clients; internal details stay in the logs.
func responseMessage(err error) string {
	switch {
	case domain.IsKind(err, domain.ErrEmptyQuery):
		return "Empty question."
	case domain.IsKind(err, domain.ErrEmptyKnowledgeBase), domain.IsKind(err, domain.ErrEmptyCorpus):
		return "Knowledge base empty."
	case domain.IsKind(err, domain.ErrInvalidInput):
		return "Invalid request."
	case domain.IsKind(err, domain.ErrTemporary):
		return "Service temporarily unavailable."
	default:
		return "Internal error."
	}
}
