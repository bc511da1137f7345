package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/kirillkom/vat-compliance-checker/internal/core/domain"
	"github.com/kirillkom/vat-compliance-checker/internal/core/taxid"
)

type analyzerFake struct {
	prompt     string
	endpoints  []domain.Endpoint
	credential string
	outcome    domain.AnalysisOutcome
}

func (f *analyzerFake) Analyze(_ context.Context, prompt string, endpoints []domain.Endpoint, credential string) domain.AnalysisOutcome {
	f.prompt = prompt
	f.endpoints = endpoints
	f.credential = credential
	return f.outcome
}

type rulesFake struct {
	table *domain.RuleTable
	err   error
}

func (f rulesFake) LoadRules(context.Context) (*domain.RuleTable, error) {
	return f.table, f.err
}

func TestCheckValidatesCounterpartyAndForwardsPrompt(t *testing.T) {
	analyzer := &analyzerFake{outcome: domain.Succeeded("gemini-2.5-pro", "looks fine")}
	rules := rulesFake{table: &domain.RuleTable{
		Source: "rules.csv",
		Header: []string{"code", "rule"},
		Rows:   [][]string{{"R1", "格式32稅額應為0"}},
	}}
	uc := NewComplianceUseCase(taxid.Validator{}, rules, analyzer, AnalysisSettings{
		Credential: "key",
		Endpoints:  []domain.Endpoint{{Name: "gemini-2.5-pro"}},
	})

	result, err := uc.Check(context.Background(), domain.InvoiceRecord{
		Direction:   domain.DirectionSales,
		FormatCode:  "32",
		BuyerTaxID:  "04995255",
		SalesAmount: 1000,
		TaxAmount:   50,
		Period:      "11302",
		TaxType:     "1",
	})
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}

	primary, ok := result.PrimaryVerdict()
	if !ok || primary.Field != domain.FieldBuyerTaxID {
		t.Fatalf("expected buyer as primary verdict, got %+v", result.Verdicts)
	}
	if primary.Verdict.Reason != domain.ReasonChecksumFailed {
		t.Fatalf("unexpected verdict: %+v", primary.Verdict)
	}
	if len(result.Verdicts) != 1 {
		t.Fatalf("empty seller id should not produce a verdict, got %d", len(result.Verdicts))
	}
	if !result.Outcome.OK() || result.Rules != "rules.csv" {
		t.Fatalf("unexpected result: %+v", result)
	}
	if analyzer.credential != "key" || len(analyzer.endpoints) != 1 {
		t.Fatalf("settings not injected: %+v", analyzer)
	}
	for _, want := range []string{"格式32稅額應為0", "04995255", "42", "11302"} {
		if !strings.Contains(analyzer.prompt, want) {
			t.Fatalf("prompt missing %q:\n%s", want, analyzer.prompt)
		}
	}
}

func TestCheckPurchaseUsesSellerAsPrimary(t *testing.T) {
	analyzer := &analyzerFake{outcome: domain.Succeeded("x", "ok")}
	uc := NewComplianceUseCase(taxid.Validator{}, nil, analyzer, AnalysisSettings{Credential: "key"})

	result, err := uc.Check(context.Background(), domain.InvoiceRecord{
		Direction:   domain.DirectionPurchase,
		FormatCode:  "21",
		BuyerTaxID:  "04595257",
		SellerTaxID: "",
	})
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	primary, _ := result.PrimaryVerdict()
	if primary.Field != domain.FieldSellerTaxID || primary.Verdict.Reason != domain.ReasonNotApplicable {
		t.Fatalf("unexpected primary verdict: %+v", primary)
	}
	if len(result.Verdicts) != 2 {
		t.Fatalf("expected both verdicts, got %+v", result.Verdicts)
	}
	if !strings.Contains(analyzer.prompt, domain.DefaultRulesText) {
		t.Fatalf("expected default rules text in prompt")
	}
}

func TestCheckDefaultsDirectionToSales(t *testing.T) {
	uc := NewComplianceUseCase(taxid.Validator{}, nil, &analyzerFake{}, AnalysisSettings{})
	result, err := uc.Check(context.Background(), domain.InvoiceRecord{FormatCode: "31"})
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if result.Record.Direction != domain.DirectionSales {
		t.Fatalf("expected sales, got %q", result.Record.Direction)
	}
}

func TestCheckRejectsUnknownDirection(t *testing.T) {
	uc := NewComplianceUseCase(taxid.Validator{}, nil, &analyzerFake{}, AnalysisSettings{})
	_, err := uc.Check(context.Background(), domain.InvoiceRecord{Direction: "sideways"})
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestCheckStopsWhenRulesFailToLoad(t *testing.T) {
	analyzer := &analyzerFake{}
	uc := NewComplianceUseCase(taxid.Validator{}, rulesFake{err: domain.WrapError(domain.ErrTemporary, "load", errors.New("db down"))}, analyzer, AnalysisSettings{Credential: "key"})
	_, err := uc.Check(context.Background(), domain.InvoiceRecord{})
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected temporary error, got %v", err)
	}
	if analyzer.prompt != "" {
		t.Fatalf("analyzer must not run when rules fail")
	}
}

func TestEndpointsReturnsCopy(t *testing.T) {
	configured := []domain.Endpoint{{Name: "a"}, {Name: "b"}}
	uc := NewComplianceUseCase(taxid.Validator{}, nil, &analyzerFake{}, AnalysisSettings{Endpoints: configured})
	configured[0].Name = "mutated"

	got := uc.Endpoints()
	got[1].Name = "also-mutated"
	again := uc.Endpoints()
	if again[0].Name != "a" || again[1].Name != "b" {
		t.Fatalf("endpoint list was mutated: %+v", again)
	}
}

func TestEndpointStatusesReportsBreakerState(t *testing.T) {
	configured := []domain.Endpoint{{Name: "gemini-2.5-pro"}, {Name: "gemini-1.5-flash"}}

	plain := NewComplianceUseCase(taxid.Validator{}, nil, &analyzerFake{}, AnalysisSettings{Endpoints: configured})
	statuses := plain.EndpointStatuses()
	if len(statuses) != 2 || statuses[0].Priority != 1 || statuses[1].Qualified != "models/gemini-1.5-flash" {
		t.Fatalf("unexpected statuses %+v", statuses)
	}
	if statuses[0].Breaker != "disabled" {
		t.Fatalf("expected disabled breaker without reporter, got %q", statuses[0].Breaker)
	}

	analyzer := NewAnalyzer(&bareQualifierFake{})
	uc := NewComplianceUseCase(taxid.Validator{}, nil, analyzer, AnalysisSettings{Endpoints: configured})
	statuses = uc.EndpointStatuses()
	if statuses[0].Qualified != "gemini-2.5-pro" {
		t.Fatalf("expected generator qualification, got %q", statuses[0].Qualified)
	}
}
