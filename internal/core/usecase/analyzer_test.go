package usecase

import (
	"context"
	"errors"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/kirillkom/vat-compliance-checker/internal/core/domain"
	"github.com/kirillkom/vat-compliance-checker/internal/infrastructure/resilience"
)

type generatorFake struct {
	responses map[string]string
	errs      map[string]error
	calls     []domain.GenerateRequest
}

func (f *generatorFake) Generate(_ context.Context, req domain.GenerateRequest) (string, error) {
	f.calls = append(f.calls, req)
	if err, ok := f.errs[req.Endpoint]; ok {
		return "", err
	}
	if text, ok := f.responses[req.Endpoint]; ok {
		return text, nil
	}
	return "", errors.New("unexpected endpoint " + req.Endpoint)
}

func (f *generatorFake) endpointsCalled() []string {
	out := make([]string, 0, len(f.calls))
	for _, c := range f.calls {
		out = append(out, c.Endpoint)
	}
	return out
}

type bareQualifierFake struct {
	generatorFake
}

func (f *bareQualifierFake) QualifyEndpoint(name string) string {
	return domain.BareModelName(name)
}

type observerFake struct {
	kinds []domain.FailureKind
}

func (f *observerFake) ObserveAttempt(_ string, kind domain.FailureKind, _ time.Duration) {
	f.kinds = append(f.kinds, kind)
}

var threeEndpoints = []domain.Endpoint{
	{Name: "gemini-2.5-pro"},
	{Name: "models/gemini-2.5-flash"},
	{Name: "gemini-1.5-flash"},
}

func TestAnalyzeFirstSuccessWins(t *testing.T) {
	gen := &generatorFake{responses: map[string]string{
		"models/gemini-2.5-pro":   "report A",
		"models/gemini-2.5-flash": "report B",
	}}
	outcome := NewAnalyzer(gen).Analyze(context.Background(), "prompt", threeEndpoints, "key")

	if !outcome.OK() {
		t.Fatalf("expected success, got %+v", outcome)
	}
	if outcome.Endpoint != "gemini-2.5-pro" || outcome.Report != "report A" {
		t.Fatalf("unexpected outcome: %+v", outcome)
	}
	if len(gen.calls) != 1 {
		t.Fatalf("expected 1 call, got %d", len(gen.calls))
	}
	if gen.calls[0].Prompt != "prompt" || gen.calls[0].Credential != "key" {
		t.Fatalf("unexpected request: %+v", gen.calls[0])
	}
}

func TestAnalyzeFailsOverInOrder(t *testing.T) {
	gen := &generatorFake{
		errs: map[string]error{
			"models/gemini-2.5-pro":   &domain.GenerationError{Kind: domain.FailureNotFound, Err: errors.New("404 model not found")},
			"models/gemini-2.5-flash": &domain.GenerationError{Kind: domain.FailureRateLimited, Err: errors.New("429 quota")},
		},
		responses: map[string]string{"models/gemini-1.5-flash": "report C"},
	}
	observer := &observerFake{}
	outcome := NewAnalyzer(gen, WithAttemptObserver(observer)).Analyze(context.Background(), "prompt", threeEndpoints, "key")

	if !outcome.OK() || outcome.Endpoint != "gemini-1.5-flash" || outcome.Report != "report C" {
		t.Fatalf("unexpected outcome: %+v", outcome)
	}
	want := []string{"models/gemini-2.5-pro", "models/gemini-2.5-flash", "models/gemini-1.5-flash"}
	got := gen.endpointsCalled()
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("expected calls %v, got %v", want, got)
	}
	if len(observer.kinds) != 3 || observer.kinds[0] != domain.FailureNotFound || observer.kinds[1] != domain.FailureRateLimited || observer.kinds[2] != "" {
		t.Fatalf("unexpected observations: %v", observer.kinds)
	}
}

func TestAnalyzeExhaustionItemizesEveryEndpoint(t *testing.T) {
	gen := &generatorFake{errs: map[string]error{
		"models/gemini-2.5-pro":   &domain.GenerationError{Kind: domain.FailureUnauthorized, Err: errors.New("403 permission denied")},
		"models/gemini-2.5-flash": &net.OpError{Op: "dial", Err: errors.New("connection refused")},
		"models/gemini-1.5-flash": errors.New("something odd"),
	}}
	outcome := NewAnalyzer(gen).Analyze(context.Background(), "prompt", threeEndpoints, "key")

	if outcome.OK() {
		t.Fatalf("expected failure")
	}
	if len(outcome.Errors) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(outcome.Errors))
	}
	wantKinds := []domain.FailureKind{domain.FailureUnauthorized, domain.FailureNetwork, domain.FailureUnknown}
	for i, e := range outcome.Errors {
		if e.Endpoint != threeEndpoints[i].Name {
			t.Fatalf("entry %d endpoint = %q, want %q", i, e.Endpoint, threeEndpoints[i].Name)
		}
		if e.Kind != wantKinds[i] {
			t.Fatalf("entry %d kind = %q, want %q", i, e.Kind, wantKinds[i])
		}
		if e.Detail == "" || e.Err == nil {
			t.Fatalf("entry %d missing raw detail: %+v", i, e)
		}
	}
	if len(gen.calls) != 3 {
		t.Fatalf("expected 3 calls, got %d", len(gen.calls))
	}
	if !strings.Contains(outcome.Summary(), "403 permission denied") {
		t.Fatalf("summary should carry raw errors: %s", outcome.Summary())
	}
}

func TestAnalyzeMissingCredentialShortCircuits(t *testing.T) {
	for _, credential := range []string{"", "   "} {
		gen := &generatorFake{}
		outcome := NewAnalyzer(gen).Analyze(context.Background(), "prompt", threeEndpoints, credential)

		if outcome.OK() {
			t.Fatalf("expected failure")
		}
		if len(outcome.Errors) != 1 || outcome.Errors[0].Kind != domain.FailureMissingCredential {
			t.Fatalf("expected single missing credential entry, got %+v", outcome.Errors)
		}
		if len(gen.calls) != 0 {
			t.Fatalf("expected 0 calls, got %d", len(gen.calls))
		}
	}
}

func TestAnalyzeEmptyEndpointList(t *testing.T) {
	gen := &generatorFake{}
	outcome := NewAnalyzer(gen).Analyze(context.Background(), "prompt", nil, "key")
	if outcome.OK() || len(outcome.Errors) != 1 || outcome.Errors[0].Kind != domain.FailureNoEndpoints {
		t.Fatalf("unexpected outcome: %+v", outcome)
	}
	if len(gen.calls) != 0 {
		t.Fatalf("expected 0 calls, got %d", len(gen.calls))
	}
}

func TestAnalyzeTreatsEmptyReportAsFailure(t *testing.T) {
	gen := &generatorFake{responses: map[string]string{
		"models/gemini-2.5-pro":   "  ",
		"models/gemini-2.5-flash": "report B",
	}}
	outcome := NewAnalyzer(gen).Analyze(context.Background(), "prompt", threeEndpoints, "key")
	if !outcome.OK() || outcome.Endpoint != "models/gemini-2.5-flash" {
		t.Fatalf("unexpected outcome: %+v", outcome)
	}
	if len(gen.calls) != 2 {
		t.Fatalf("expected 2 calls, got %d", len(gen.calls))
	}
}

func TestAnalyzeUsesGeneratorQualifier(t *testing.T) {
	gen := &bareQualifierFake{generatorFake{responses: map[string]string{"gemini-2.5-flash": "ok"}}}
	outcome := NewAnalyzer(gen).Analyze(context.Background(), "prompt", []domain.Endpoint{{Name: "models/gemini-2.5-flash"}}, "key")
	if !outcome.OK() {
		t.Fatalf("unexpected outcome: %+v", outcome)
	}
	if gen.calls[0].Endpoint != "gemini-2.5-flash" {
		t.Fatalf("expected bare endpoint, got %q", gen.calls[0].Endpoint)
	}
}

func TestAnalyzeCanceledContextRecordsRemainingEndpoints(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	gen := &cancelingGenerator{cancel: cancel}
	outcome := NewAnalyzer(gen).Analyze(ctx, "prompt", threeEndpoints, "key")

	if outcome.OK() {
		t.Fatalf("expected failure")
	}
	if gen.calls != 1 {
		t.Fatalf("expected 1 call, got %d", gen.calls)
	}
	if len(outcome.Errors) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(outcome.Errors))
	}
	for i, e := range outcome.Errors {
		if e.Kind != domain.FailureCanceled {
			t.Fatalf("entry %d kind = %q, want canceled", i, e.Kind)
		}
	}
}

type cancelingGenerator struct {
	cancel context.CancelFunc
	calls  int
}

func (g *cancelingGenerator) Generate(ctx context.Context, _ domain.GenerateRequest) (string, error) {
	g.calls++
	g.cancel()
	return "", ctx.Err()
}

func TestAnalyzeSkipsEndpointWithOpenCircuit(t *testing.T) {
	exec := resilience.NewExecutor(resilience.Config{
		RetryMaxAttempts:        3,
		BreakerEnabled:          true,
		BreakerMinRequests:      1,
		BreakerFailureRatio:     0.5,
		BreakerOpenTimeout:      time.Minute,
		BreakerHalfOpenMaxCalls: 1,
	})
	gen := &generatorFake{
		errs:      map[string]error{"models/gemini-2.5-pro": &domain.GenerationError{Kind: domain.FailureUnavailable, Err: errors.New("503")}},
		responses: map[string]string{"models/gemini-2.5-flash": "report B"},
	}
	analyzer := NewAnalyzer(gen, WithExecutor(exec))

	first := analyzer.Analyze(context.Background(), "prompt", threeEndpoints, "key")
	if !first.OK() || len(gen.calls) != 2 {
		t.Fatalf("unexpected first run: %+v calls=%d", first, len(gen.calls))
	}

	second := analyzer.Analyze(context.Background(), "prompt", threeEndpoints, "key")
	if !second.OK() || second.Endpoint != "models/gemini-2.5-flash" {
		t.Fatalf("unexpected second run: %+v", second)
	}
	if len(gen.calls) != 3 {
		t.Fatalf("expected open circuit to skip the first endpoint, calls=%v", gen.endpointsCalled())
	}
}

func TestAnalyzeEndpointDeadlineIsUnavailable(t *testing.T) {
	gen := &generatorFake{
		errs: map[string]error{
			"models/gemini-2.5-pro": context.DeadlineExceeded,
		},
		responses: map[string]string{"models/gemini-2.5-flash": "ok"},
	}
	outcome := NewAnalyzer(gen).Analyze(context.Background(), "p", threeEndpoints[:2], "key")
	if !outcome.OK() || outcome.Endpoint != "models/gemini-2.5-flash" {
		t.Fatalf("expected failover after endpoint timeout, got %+v", outcome)
	}

	gen.responses = nil
	outcome = NewAnalyzer(gen).Analyze(context.Background(), "p", threeEndpoints[:1], "key")
	if outcome.Errors[0].Kind != domain.FailureUnavailable {
		t.Fatalf("expected unavailable for endpoint deadline, got %s", outcome.Errors[0].Kind)
	}
}

func TestBreakerStateWithoutExecutor(t *testing.T) {
	if got := NewAnalyzer(&generatorFake{}).BreakerState(domain.Endpoint{Name: "x"}); got != "disabled" {
		t.Fatalf("expected disabled, got %q", got)
	}
}

func TestClassifyFailure(t *testing.T) {
	cases := []struct {
		err  error
		want domain.FailureKind
	}{
		{context.Canceled, domain.FailureCanceled},
		{context.DeadlineExceeded, domain.FailureCanceled},
		{&domain.GenerationError{Kind: domain.FailureRateLimited, Err: errors.New("x")}, domain.FailureRateLimited},
		{&net.DNSError{Err: "no such host", Name: "example.invalid"}, domain.FailureNetwork},
		{errors.New("plain"), domain.FailureUnknown},
	}
	for _, tc := range cases {
		if got := ClassifyFailure(tc.err); got != tc.want {
			t.Fatalf("ClassifyFailure(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}
