package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/kirillkom/vat-compliance-checker/internal/core/domain"
	"github.com/kirillkom/vat-compliance-checker/internal/core/ports"
)

// AnalysisSettings is the read-only configuration injected by the caller.
type AnalysisSettings struct {
	Credential string
	Endpoints  []domain.Endpoint
}

type ComplianceUseCase struct {
	validator ports.TaxIDValidator
	rules     ports.RuleSource
	analyzer  ports.EndpointAnalyzer
	settings  AnalysisSettings
}

func NewComplianceUseCase(
	validator ports.TaxIDValidator,
	rules ports.RuleSource,
	analyzer ports.EndpointAnalyzer,
	settings AnalysisSettings,
) *ComplianceUseCase {
	endpoints := make([]domain.Endpoint, len(settings.Endpoints))
	copy(endpoints, settings.Endpoints)
	settings.Endpoints = endpoints

	return &ComplianceUseCase{
		validator: validator,
		rules:     rules,
		analyzer:  analyzer,
		settings:  settings,
	}
}

func (uc *ComplianceUseCase) ValidateTaxID(id string) domain.Verdict {
	return uc.validator.Validate(id)
}

// Endpoints returns a copy of the configured priority list.
func (uc *ComplianceUseCase) Endpoints() []domain.Endpoint {
	out := make([]domain.Endpoint, len(uc.settings.Endpoints))
	copy(out, uc.settings.Endpoints)
	return out
}

// EndpointStatuses lists the endpoints in priority order with their
// breaker state when the analyzer reports one.
func (uc *ComplianceUseCase) EndpointStatuses() []domain.EndpointStatus {
	reporter, _ := uc.analyzer.(ports.BreakerReporter)
	out := make([]domain.EndpointStatus, 0, len(uc.settings.Endpoints))
	for i, endpoint := range uc.settings.Endpoints {
		status := domain.EndpointStatus{
			Priority:  i + 1,
			Name:      endpoint.Name,
			Qualified: endpoint.Qualified(),
			Breaker:   "disabled",
		}
		if reporter != nil {
			status.Qualified = reporter.QualifiedName(endpoint)
			status.Breaker = reporter.BreakerState(endpoint)
		}
		out = append(out, status)
	}
	return out
}

func (uc *ComplianceUseCase) Check(ctx context.Context, record domain.InvoiceRecord) (*domain.CheckResult, error) {
	if record.Direction == "" {
		record.Direction = domain.DirectionSales
	}
	if !record.Direction.Valid() {
		return nil, domain.WrapError(domain.ErrInvalidInput, "check", fmt.Errorf("unknown direction %q", record.Direction))
	}

	verdicts := uc.verdicts(record)

	var table *domain.RuleTable
	if uc.rules != nil {
		loaded, err := uc.rules.LoadRules(ctx)
		if err != nil {
			return nil, fmt.Errorf("load rules: %w", err)
		}
		table = loaded
	}

	prompt := BuildCompliancePrompt(record, verdicts, table)
	outcome := uc.analyzer.Analyze(ctx, prompt, uc.settings.Endpoints, uc.settings.Credential)

	result := &domain.CheckResult{
		Record:   record,
		Verdicts: verdicts,
		Outcome:  outcome,
	}
	if !table.Empty() {
		result.Rules = table.Source
	}
	return result, nil
}

func (uc *ComplianceUseCase) verdicts(record domain.InvoiceRecord) []domain.IdentifierVerdict {
	primary := record.PrimaryField()
	fields := []struct {
		field domain.IdentifierField
		value string
	}{
		{domain.FieldBuyerTaxID, record.BuyerTaxID},
		{domain.FieldSellerTaxID, record.SellerTaxID},
	}

	out := make([]domain.IdentifierVerdict, 0, len(fields))
	for _, f := range fields {
		isPrimary := f.field == primary
		if !isPrimary && strings.TrimSpace(f.value) == "" {
			continue
		}
		out = append(out, domain.IdentifierVerdict{
			Field:   f.field,
			TaxID:   f.value,
			Primary: isPrimary,
			Verdict: uc.validator.Validate(f.value),
		})
	}
	return out
}
