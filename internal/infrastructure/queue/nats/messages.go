package nats

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/kirillkom/hybrid-rag/internal/core/domain"
)

type rebuildRequest struct {
	Trigger     domain.BuildTrigger `json:"trigger"`
	RequestedAt time.Time           `json:"requested_at"`
}

func encodeRebuildRequest(trigger domain.BuildTrigger, at time.Time) ([]byte, error) {
	if trigger == "" {
		trigger = domain.BuildTriggerQueue
	}
	data, err := json.Marshal(rebuildRequest{Trigger: trigger, RequestedAt: at})
	if err != nil {
		return nil, fmt.Errorf("encode rebuild request: %w", err)
	}
	return data, nil
}

// decodeRebuildRequest also accepts an empty body so `nats pub kb.rebuild ""` works.
func decodeRebuildRequest(data []byte) (rebuildRequest, error) {
	req := rebuildRequest{Trigger: domain.BuildTriggerQueue}
	if len(data) == 0 {
		return req, nil
	}
	if err := json.Unmarshal(data, &req); err != nil {
		return rebuildRequest{}, domain.WrapError(domain.ErrInvalidInput, "decode rebuild request", err)
	}
	if req.Trigger == "" {
		req.Trigger = domain.BuildTriggerQueue
	}
	return req, nil
}

func encodeUpdated(status domain.KnowledgeBaseStatus) ([]byte, error) {
	data, err := json.Marshal(status)
	if err != nil {
		return nil, fmt.Errorf("encode kb updated: %w", err)
	}
	return data, nil
}

func decodeUpdated(data []byte) (domain.KnowledgeBaseStatus, error) {
	var status domain.KnowledgeBaseStatus
	if err := json.Unmarshal(data, &status); err != nil {
		return domain.KnowledgeBaseStatus{}, domain.WrapError(domain.ErrInvalidInput, "decode kb updated", err)
	}
	return status, nil
}
