package domain

import "strings"

const qualifiedModelPrefix = "models/"

// Endpoint names one remote model variant. Lists of endpoints are kept in
// strict priority order: most capable first, most available last.
type Endpoint struct {
	Name string `json:"name" yaml:"name"`
}

// Qualified returns the canonical resource path used to address the endpoint.
func (e Endpoint) Qualified() string {
	return QualifyModelName(e.Name)
}

func QualifyModelName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" || strings.Contains(name, "/") {
		return name
	}
	return qualifiedModelPrefix + name
}

// BareModelName strips a "models/" style qualifier.
func BareModelName(name string) string {
	name = strings.TrimSpace(name)
	if idx := strings.LastIndex(name, "/"); idx >= 0 {
		return name[idx+1:]
	}
	return name
}

func EndpointsFromNames(names []string) []Endpoint {
	out := make([]Endpoint, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		out = append(out, Endpoint{Name: name})
	}
	return out
}

// EndpointStatus describes one configured endpoint for operators.
type EndpointStatus struct {
	Priority  int    `json:"priority"`
	Name      string `json:"name"`
	Qualified string `json:"qualified"`
	Breaker   string `json:"breaker"`
}

// GenerateRequest is a single call against one endpoint.
type GenerateRequest struct {
	Endpoint   string
	Prompt     string
	Credential string
}

// FailureKind classifies why an endpoint attempt failed.
type FailureKind string

const (
	FailureMissingCredential FailureKind = "missing_credential"
	FailureNoEndpoints       FailureKind = "no_endpoints"
	FailureUnauthorized      FailureKind = "unauthorized"
	FailureNotFound          FailureKind = "not_found"
	FailureRateLimited       FailureKind = "rate_limited"
	FailureUnavailable       FailureKind = "unavailable"
	FailureNetwork           FailureKind = "network"
	FailureCanceled          FailureKind = "canceled"
	FailureInvalidResponse   FailureKind = "invalid_response"
	FailureUnknown           FailureKind = "unknown"
)

// GenerationError lets generator adapters attach a FailureKind to a raw error.
type GenerationError struct {
	Kind FailureKind
	Err  error
}

func (e *GenerationError) Error() string {
	if e == nil || e.Err == nil {
		return string(FailureUnknown)
	}
	return e.Err.Error()
}

func (e *GenerationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// EndpointError is one itemized failure. Endpoint is empty for synthetic
// entries produced before any endpoint was attempted.
type EndpointError struct {
	Endpoint string      `json:"endpoint"`
	Kind     FailureKind `json:"kind"`
	Detail   string      `json:"detail"`
	Err      error       `json:"-"`
}

type OutcomeStatus string

const (
	OutcomeSucceeded OutcomeStatus = "succeeded"
	OutcomeFailed    OutcomeStatus = "failed"
)

// AnalysisOutcome is either a success attributed to one endpoint or an
// aggregated failure with one entry per endpoint attempted, in attempt order.
type AnalysisOutcome struct {
	Status   OutcomeStatus   `json:"status"`
	Endpoint string          `json:"endpoint,omitempty"`
	Report   string          `json:"report,omitempty"`
	Errors   []EndpointError `json:"errors,omitempty"`
}

func Succeeded(endpoint, report string) AnalysisOutcome {
	return AnalysisOutcome{Status: OutcomeSucceeded, Endpoint: endpoint, Report: report}
}

func Failed(errs []EndpointError) AnalysisOutcome {
	return AnalysisOutcome{Status: OutcomeFailed, Errors: errs}
}

func (o AnalysisOutcome) OK() bool {
	return o.Status == OutcomeSucceeded
}

// Summary renders the failure detail for an operator, one line per endpoint.
func (o AnalysisOutcome) Summary() string {
	if o.OK() {
		return "served by " + o.Endpoint
	}
	var b strings.Builder
	for i, e := range o.Errors {
		if i > 0 {
			b.WriteString("\n")
		}
		name := e.Endpoint
		if name == "" {
			name = "-"
		}
		b.WriteString(name)
		b.WriteString(" [")
		b.WriteString(string(e.Kind))
		b.WriteString("]: ")
		b.WriteString(e.Detail)
	}
	return b.String()
}

// KindForHTTPStatus maps a provider HTTP status onto a FailureKind.
func KindForHTTPStatus(code int) FailureKind {
	switch {
	case code == 401 || code == 403:
		return FailureUnauthorized
	case code == 404:
		return FailureNotFound
	case code == 429:
		return FailureRateLimited
	case code == 408 || code >= 500:
		return FailureUnavailable
	case code >= 200 && code < 300:
		return FailureInvalidResponse
	default:
		return FailureUnknown
	}
}
