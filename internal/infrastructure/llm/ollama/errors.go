package ollama

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kirillkom/vat-compliance-checker/internal/core/domain"
)

type HTTPStatusError struct {
	Operation  string
	StatusCode int
	Status     string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	if e == nil {
		return "ollama status error"
	}
	if strings.TrimSpace(e.Body) == "" {
		return fmt.Sprintf("ollama %s status: %s", e.Operation, e.Status)
	}
	return fmt.Sprintf("ollama %s status: %s: %s", e.Operation, e.Status, strings.TrimSpace(e.Body))
}

func wrapOllamaError(endpoint string, err error) error {
	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		return &domain.GenerationError{
			Kind: domain.KindForHTTPStatus(statusErr.StatusCode),
			Err:  fmt.Errorf("ollama %s: %w", endpoint, err),
		}
	}
	var decErr *decodeError
	if errors.As(err, &decErr) {
		return &domain.GenerationError{
			Kind: domain.FailureInvalidResponse,
			Err:  fmt.Errorf("ollama %s: %w", endpoint, err),
		}
	}
	return fmt.Errorf("ollama %s: %w", endpoint, err)
}
