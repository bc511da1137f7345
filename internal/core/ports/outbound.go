package ports

import (
	"context"
	"time"

	"github.com/kirillkom/vat-compliance-checker/internal/core/domain"
)

// TextGenerator performs exactly one call against one model endpoint.
type TextGenerator interface {
	Generate(ctx context.Context, req domain.GenerateRequest) (string, error)
}

// EndpointQualifier is implemented by generators whose backend expects a
// different canonical endpoint form than "models/<name>".
type EndpointQualifier interface {
	QualifyEndpoint(name string) string
}

// RuleSource loads the business-rule table. A nil table with a nil error
// means no table is available.
type RuleSource interface {
	LoadRules(ctx context.Context) (*domain.RuleTable, error)
}

// AttemptObserver receives one observation per endpoint attempt.
type AttemptObserver interface {
	ObserveAttempt(endpoint string, kind domain.FailureKind, duration time.Duration)
}

// BreakerReporter is implemented by analyzers that guard endpoints with a
// circuit breaker.
type BreakerReporter interface {
	BreakerState(endpoint domain.Endpoint) string
	QualifiedName(endpoint domain.Endpoint) string
}
