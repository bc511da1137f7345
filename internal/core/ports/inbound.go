package ports

import (
	"context"

	"github.com/kirillkom/vat-compliance-checker/internal/core/domain"
)

// TaxIDValidator is the inbound contract for the checksum rule.
type TaxIDValidator interface {
	Validate(id string) domain.Verdict
}

// ComplianceChecker is the inbound contract for a full record check:
// identifier verdicts plus the model's compliance opinion.
type ComplianceChecker interface {
	Check(ctx context.Context, record domain.InvoiceRecord) (*domain.CheckResult, error)
}

// EndpointAnalyzer runs a prompt against an ordered endpoint list.
// Failures are returned as data in the outcome, never as an error.
type EndpointAnalyzer interface {
	Analyze(ctx context.Context, prompt string, endpoints []domain.Endpoint, credential string) domain.AnalysisOutcome
}

// EndpointCatalog exposes the configured endpoint priority list.
type EndpointCatalog interface {
	EndpointStatuses() []domain.EndpointStatus
}
