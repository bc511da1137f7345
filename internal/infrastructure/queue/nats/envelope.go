package nats

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/kirillkom/vat-compliance-checker/internal/core/domain"
)

type checkRequest struct {
	ID     string               `json:"id"`
	Record domain.InvoiceRecord `json:"record"`
}

type checkReply struct {
	ID        string              `json:"id,omitempty"`
	Result    *domain.CheckResult `json:"result,omitempty"`
	Error     string              `json:"error,omitempty"`
	ErrorKind string              `json:"error_kind,omitempty"`
}

func encodeRequest(req checkRequest) ([]byte, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode check request: %w", err)
	}
	return payload, nil
}

func decodeRequest(data []byte) (checkRequest, error) {
	var req checkRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return checkRequest{}, fmt.Errorf("decode check request: %w", err)
	}
	return req, nil
}

func encodeReply(reply checkReply) []byte {
	payload, err := json.Marshal(reply)
	if err != nil {
		payload, _ = json.Marshal(checkReply{ID: reply.ID, Error: err.Error(), ErrorKind: domain.CodeInternal})
	}
	return payload
}

// decodeReply turns a worker reply back into the result or a typed error.
func decodeReply(data []byte) (*domain.CheckResult, error) {
	var reply checkReply
	if err := json.Unmarshal(data, &reply); err != nil {
		return nil, fmt.Errorf("decode check reply: %w", err)
	}
	if reply.Error != "" {
		return nil, domain.ErrorFromCode(reply.ErrorKind, "remote check", errors.New(reply.Error))
	}
	if reply.Result == nil {
		return nil, fmt.Errorf("decode check reply: missing result")
	}
	return reply.Result, nil
}
