package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kirillkom/vat-compliance-checker/internal/config"
	"github.com/kirillkom/vat-compliance-checker/internal/core/domain"
	"github.com/kirillkom/vat-compliance-checker/internal/core/ports"
	"github.com/kirillkom/vat-compliance-checker/internal/core/taxid"
	"github.com/kirillkom/vat-compliance-checker/internal/core/usecase"
	"github.com/kirillkom/vat-compliance-checker/internal/infrastructure/llm/gemini"
	"github.com/kirillkom/vat-compliance-checker/internal/infrastructure/llm/ollama"
	"github.com/kirillkom/vat-compliance-checker/internal/infrastructure/llm/openai"
	"github.com/kirillkom/vat-compliance-checker/internal/infrastructure/queue/nats"
	"github.com/kirillkom/vat-compliance-checker/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/vat-compliance-checker/internal/infrastructure/resilience"
	"github.com/kirillkom/vat-compliance-checker/internal/infrastructure/rules/localfs"
	"github.com/kirillkom/vat-compliance-checker/internal/observability/metrics"
)

type App struct {
	Config config.Config

	Validator  ports.TaxIDValidator
	Compliance *usecase.ComplianceUseCase
	// Checker runs checks in-process or on a worker, per CHECK_DISPATCH.
	Checker ports.ComplianceChecker
	Queue   *nats.Queue

	closers []func()
}

type Options struct {
	// Registerer receives the per-endpoint attempt metrics when set.
	Registerer prometheus.Registerer
	// ConnectQueue forces a NATS connection regardless of CHECK_DISPATCH.
	ConnectQueue bool
	// Service labels attempt metrics.
	Service string
}

func New(ctx context.Context, cfg config.Config, opts Options) (*App, error) {
	app := &App{Config: cfg}

	rules, err := app.buildRuleSource(ctx, cfg)
	if err != nil {
		app.Close()
		return nil, err
	}

	generator, err := buildGenerator(cfg)
	if err != nil {
		app.Close()
		return nil, err
	}

	endpointNames, err := cfg.ResolveEndpoints()
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("resolve endpoints: %w", err)
	}

	analyzerOpts := []usecase.AnalyzerOption{}
	if cfg.LLMBreakerEnabled {
		analyzerOpts = append(analyzerOpts, usecase.WithExecutor(resilience.NewExecutor(resilience.EndpointConfig(
			cfg.LLMBreakerMinCalls,
			cfg.LLMBreakerFailRatio,
			time.Duration(cfg.LLMBreakerOpenSecs)*time.Second,
		))))
	}
	if opts.Registerer != nil {
		service := opts.Service
		if service == "" {
			service = "vat"
		}
		analyzerOpts = append(analyzerOpts, usecase.WithAttemptObserver(metrics.NewAnalysisMetrics(service, opts.Registerer)))
	}
	analyzer := usecase.NewAnalyzer(generator, analyzerOpts...)

	validator := taxid.Validator{}
	app.Validator = validator
	app.Compliance = usecase.NewComplianceUseCase(validator, rules, analyzer, usecase.AnalysisSettings{
		Credential: cfg.LLMAPIKey,
		Endpoints:  domain.EndpointsFromNames(endpointNames),
	})
	app.Checker = app.Compliance

	if cfg.LLMAPIKey == "" {
		slog.Warn("llm_credential_missing", "detail", "checks will report missing_credential without calling any endpoint")
	}
	slog.Info("analysis_configured",
		"provider", cfg.LLMProvider,
		"endpoints", endpointNames,
		"breaker_enabled", cfg.LLMBreakerEnabled,
		"rules_source", cfg.RulesSource,
	)

	if opts.ConnectQueue || cfg.CheckDispatch == config.DispatchNATS {
		queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
			RequestTimeout:     time.Duration(cfg.NATSRequestTimeoutSeconds) * time.Second,
			ResilienceExecutor: resilience.NewExecutor(resilience.DefaultConfig()),
		})
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("init message queue: %w", err)
		}
		app.Queue = queue
		app.closers = append(app.closers, queue.Close)
		if cfg.CheckDispatch == config.DispatchNATS {
			app.Checker = queue
		}
	}

	return app, nil
}

func (a *App) buildRuleSource(ctx context.Context, cfg config.Config) (ports.RuleSource, error) {
	switch cfg.RulesSource {
	case config.RulesSourceNone:
		return nil, nil
	case config.RulesSourceFile, "":
		return localfs.New(cfg.RulesPath), nil
	case config.RulesSourcePostgres:
		db, err := postgres.OpenDB(cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		a.closers = append(a.closers, func() { _ = db.Close() })
		repo := postgres.NewRuleRepository(db, resilience.NewExecutor(resilience.DefaultConfig()))
		if err := repo.EnsureSchema(ctx); err != nil {
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
		if cfg.RulesImportPath != "" {
			if err := importRules(ctx, repo, cfg.RulesImportPath); err != nil {
				return nil, err
			}
		}
		return repo, nil
	default:
		return nil, fmt.Errorf("unknown RULES_SOURCE %q", cfg.RulesSource)
	}
}

// importRules seeds vat_rules from a rule file. Only the first two columns
// of each row are stored.
func importRules(ctx context.Context, repo *postgres.RuleRepository, path string) error {
	table, err := localfs.New(path).LoadRules(ctx)
	if err != nil {
		return fmt.Errorf("read rules import: %w", err)
	}
	if table == nil {
		return fmt.Errorf("read rules import: %s does not exist", path)
	}
	if err := repo.ReplaceRules(ctx, table.Rows); err != nil {
		return fmt.Errorf("import rules: %w", err)
	}
	slog.Info("rules_imported", "path", path, "rows", len(table.Rows))
	return nil
}

func buildGenerator(cfg config.Config) (ports.TextGenerator, error) {
	timeout := time.Duration(cfg.LLMTimeoutSeconds) * time.Second
	httpClient := &http.Client{Timeout: timeout + 5*time.Second}

	switch cfg.LLMProvider {
	case config.ProviderGemini, "":
		temperature := float32(cfg.LLMTemperature)
		return gemini.New(gemini.Options{
			BaseURL:         cfg.LLMBaseURL,
			Timeout:         timeout,
			Temperature:     &temperature,
			MaxOutputTokens: int32(cfg.LLMMaxOutputTokens),
			HTTPClient:      httpClient,
		}), nil
	case config.ProviderOpenAI:
		return openai.New(openai.Options{
			BaseURL:     cfg.LLMBaseURL,
			Timeout:     timeout,
			Temperature: float32(cfg.LLMTemperature),
			MaxTokens:   cfg.LLMMaxOutputTokens,
			HTTPClient:  httpClient,
		}), nil
	case config.ProviderOllama:
		return ollama.New(ollama.Options{
			BaseURL:     cfg.LLMBaseURL,
			Timeout:     timeout,
			Temperature: float32(cfg.LLMTemperature),
			NumPredict:  cfg.LLMMaxOutputTokens,
			HTTPClient:  httpClient,
		}), nil
	default:
		return nil, fmt.Errorf("unknown LLM_PROVIDER %q", cfg.LLMProvider)
	}
}

func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
