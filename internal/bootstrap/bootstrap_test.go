package bootstrap

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kirillkom/vat-compliance-checker/internal/config"
	"github.com/kirillkom/vat-compliance-checker/internal/core/domain"
	"github.com/kirillkom/vat-compliance-checker/internal/infrastructure/llm/gemini"
	"github.com/kirillkom/vat-compliance-checker/internal/infrastructure/llm/ollama"
	"github.com/kirillkom/vat-compliance-checker/internal/infrastructure/llm/openai"
)

func TestBuildGeneratorSelectsProvider(t *testing.T) {
	gen, err := buildGenerator(config.Config{LLMProvider: config.ProviderGemini, LLMTimeoutSeconds: 10})
	if err != nil {
		t.Fatalf("buildGenerator(gemini) error = %v", err)
	}
	if _, ok := gen.(*gemini.Generator); !ok {
		t.Fatalf("expected gemini generator, got %T", gen)
	}

	gen, err = buildGenerator(config.Config{LLMProvider: config.ProviderOpenAI})
	if err != nil {
		t.Fatalf("buildGenerator(openai) error = %v", err)
	}
	if _, ok := gen.(*openai.Generator); !ok {
		t.Fatalf("expected openai generator, got %T", gen)
	}

	gen, err = buildGenerator(config.Config{LLMProvider: config.ProviderOllama})
	if err != nil {
		t.Fatalf("buildGenerator(ollama) error = %v", err)
	}
	if _, ok := gen.(*ollama.Generator); !ok {
		t.Fatalf("expected ollama generator, got %T", gen)
	}

	if _, err := buildGenerator(config.Config{LLMProvider: "anthropic"}); err == nil {
		t.Fatalf("expected error for unknown provider")
	}
}

func TestNewWithoutCredentialReportsMissingCredential(t *testing.T) {
	cfg := config.Config{
		LLMProvider:   config.ProviderGemini,
		LLMEndpoints:  config.DefaultEndpoints,
		RulesSource:   config.RulesSourceNone,
		CheckDispatch: config.DispatchLocal,
	}
	app, err := New(context.Background(), cfg, Options{Registerer: prometheus.NewRegistry(), Service: "test"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer app.Close()

	result, err := app.Checker.Check(context.Background(), domain.InvoiceRecord{BuyerTaxID: "04595257"})
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if result.Outcome.OK() || len(result.Outcome.Errors) != 1 || result.Outcome.Errors[0].Kind != domain.FailureMissingCredential {
		t.Fatalf("expected missing credential failure, got %+v", result.Outcome)
	}
	if !result.Verdicts[0].Verdict.Valid {
		t.Fatalf("expected valid buyer verdict, got %+v", result.Verdicts[0])
	}

	statuses := app.Compliance.EndpointStatuses()
	if len(statuses) != len(config.DefaultEndpoints) || statuses[0].Breaker != "disabled" {
		t.Fatalf("unexpected endpoint statuses %+v", statuses)
	}
}

func TestNewUsesFileRulesAndEndpointsFile(t *testing.T) {
	dir := t.TempDir()
	endpointsPath := filepath.Join(dir, "endpoints.yaml")
	if err := os.WriteFile(endpointsPath, []byte("endpoints:\n  - name: gemini-2.0-flash\n"), 0o644); err != nil {
		t.Fatalf("write endpoints: %v", err)
	}

	cfg := config.Config{
		LLMProvider:       config.ProviderGemini,
		LLMEndpointsFile:  endpointsPath,
		LLMBreakerEnabled: true,
		RulesSource:       config.RulesSourceFile,
		RulesPath:         filepath.Join(dir, "missing.csv"),
	}
	app, err := New(context.Background(), cfg, Options{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer app.Close()

	statuses := app.Compliance.EndpointStatuses()
	if len(statuses) != 1 || statuses[0].Name != "gemini-2.0-flash" || statuses[0].Breaker != "closed" {
		t.Fatalf("unexpected endpoint statuses %+v", statuses)
	}
}

func TestNewRejectsUnknownRulesSource(t *testing.T) {
	_, err := New(context.Background(), config.Config{RulesSource: "s3"}, Options{})
	if err == nil {
		t.Fatalf("expected error for unknown rules source")
	}
}
