package usecase

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/kirillkom/vat-compliance-checker/internal/core/domain"
	"github.com/kirillkom/vat-compliance-checker/internal/core/ports"
	"github.com/kirillkom/vat-compliance-checker/internal/infrastructure/resilience"
)

// Analyzer tries an ordered endpoint list one endpoint at a time and stops
// at the first success. Every endpoint gets at most one call; the order is
// never changed at runtime.
type Analyzer struct {
	generator ports.TextGenerator
	executor  *resilience.Executor
	observer  ports.AttemptObserver
}

type AnalyzerOption func(*Analyzer)

// WithExecutor routes each attempt through a resilience executor so an
// endpoint with an open circuit is skipped without a call.
func WithExecutor(executor *resilience.Executor) AnalyzerOption {
	return func(a *Analyzer) {
		a.executor = executor
	}
}

func WithAttemptObserver(observer ports.AttemptObserver) AnalyzerOption {
	return func(a *Analyzer) {
		a.observer = observer
	}
}

func NewAnalyzer(generator ports.TextGenerator, opts ...AnalyzerOption) *Analyzer {
	a := &Analyzer{generator: generator}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

type attemptResult struct {
	report  string
	failure *domain.EndpointError
}

// Analyze returns the first successful report, or a failure with one entry
// per endpoint in list order. If ctx is done before the list is exhausted,
// the endpoints that were never called still get a canceled entry, so
// Errors can name endpoints that were not attempted.
func (a *Analyzer) Analyze(
	ctx context.Context,
	prompt string,
	endpoints []domain.Endpoint,
	credential string,
) domain.AnalysisOutcome {
	if strings.TrimSpace(credential) == "" {
		return domain.Failed([]domain.EndpointError{{
			Kind:   domain.FailureMissingCredential,
			Detail: "missing credential: no API key is configured, no endpoint was called",
		}})
	}
	if len(endpoints) == 0 {
		return domain.Failed([]domain.EndpointError{{
			Kind:   domain.FailureNoEndpoints,
			Detail: "no model endpoints are configured",
		}})
	}

	errs := make([]domain.EndpointError, 0, len(endpoints))
	for i, endpoint := range endpoints {
		if err := ctx.Err(); err != nil {
			for _, skipped := range endpoints[i:] {
				errs = append(errs, domain.EndpointError{
					Endpoint: skipped.Name,
					Kind:     domain.FailureCanceled,
					Detail:   "not attempted: " + err.Error(),
					Err:      err,
				})
			}
			break
		}

		result := a.attempt(ctx, endpoint, prompt, credential)
		if result.failure == nil {
			return domain.Succeeded(endpoint.Name, result.report)
		}
		errs = append(errs, *result.failure)
	}
	return domain.Failed(errs)
}

func (a *Analyzer) attempt(ctx context.Context, endpoint domain.Endpoint, prompt, credential string) attemptResult {
	qualified := a.qualify(endpoint)
	start := time.Now()

	var report string
	call := func(callCtx context.Context) error {
		text, err := a.generator.Generate(callCtx, domain.GenerateRequest{
			Endpoint:   qualified,
			Prompt:     prompt,
			Credential: credential,
		})
		if err != nil {
			return err
		}
		if strings.TrimSpace(text) == "" {
			return &domain.GenerationError{
				Kind: domain.FailureInvalidResponse,
				Err:  errors.New("endpoint returned an empty report"),
			}
		}
		report = text
		return nil
	}

	var err error
	if a.executor != nil {
		err = a.executor.Execute(ctx, "llm."+qualified, call, breakerClassifier, resilience.WithMaxAttempts(1))
	} else {
		err = call(ctx)
	}
	duration := time.Since(start)

	if err == nil {
		a.observe(endpoint.Name, "", duration)
		slog.Info("analysis_attempt",
			"endpoint", endpoint.Name,
			"qualified", qualified,
			"status", "succeeded",
			"duration_ms", float64(duration.Microseconds())/1000.0,
		)
		return attemptResult{report: strings.TrimSpace(report)}
	}

	kind := ClassifyFailure(err)
	if kind == domain.FailureCanceled && ctx.Err() == nil {
		// The generator's own call deadline expired, not the caller's.
		kind = domain.FailureUnavailable
	}
	a.observe(endpoint.Name, kind, duration)
	slog.Warn("analysis_attempt",
		"endpoint", endpoint.Name,
		"qualified", qualified,
		"status", "failed",
		"kind", string(kind),
		"duration_ms", float64(duration.Microseconds())/1000.0,
		"error", err,
	)
	return attemptResult{failure: &domain.EndpointError{
		Endpoint: endpoint.Name,
		Kind:     kind,
		Detail:   err.Error(),
		Err:      err,
	}}
}

// BreakerState reports the circuit state guarding one endpoint.
func (a *Analyzer) BreakerState(endpoint domain.Endpoint) string {
	if a.executor == nil {
		return "disabled"
	}
	return a.executor.BreakerState("llm." + a.qualify(endpoint))
}

// QualifiedName is the endpoint name as sent to the generator.
func (a *Analyzer) QualifiedName(endpoint domain.Endpoint) string {
	return a.qualify(endpoint)
}

func (a *Analyzer) qualify(endpoint domain.Endpoint) string {
	if q, ok := a.generator.(ports.EndpointQualifier); ok {
		return q.QualifyEndpoint(endpoint.Name)
	}
	return endpoint.Qualified()
}

func (a *Analyzer) observe(endpoint string, kind domain.FailureKind, duration time.Duration) {
	if a.observer != nil {
		a.observer.ObserveAttempt(endpoint, kind, duration)
	}
}

// ClassifyFailure maps a generator error onto the closed FailureKind set.
func ClassifyFailure(err error) domain.FailureKind {
	if err == nil {
		return ""
	}
	var genErr *domain.GenerationError
	if errors.As(err, &genErr) && genErr.Kind != "" {
		return genErr.Kind
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return domain.FailureCanceled
	}
	if resilience.IsCircuitOpen(err) {
		return domain.FailureUnavailable
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return domain.FailureNetwork
	}
	return domain.FailureUnknown
}

func breakerClassifier(err error) resilience.ErrorClassification {
	if ClassifyFailure(err) == domain.FailureCanceled {
		return resilience.ErrorClassification{Retryable: false, RecordFailure: false}
	}
	return resilience.ErrorClassification{Retryable: false, RecordFailure: true}
}
