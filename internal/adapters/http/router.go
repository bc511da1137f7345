package httpadapter

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/kirillkom/vat-compliance-checker/internal/config"
	"github.com/kirillkom/vat-compliance-checker/internal/core/domain"
	"github.com/kirillkom/vat-compliance-checker/internal/core/ports"
	"github.com/kirillkom/vat-compliance-checker/internal/observability/metrics"
)

const (
	serviceName     = "vat-api"
	maxRequestBytes = 1 << 20
)

type Router struct {
	cfg       config.Config
	validator ports.TaxIDValidator
	checker   ports.ComplianceChecker
	catalog   ports.EndpointCatalog
	metrics   *metrics.HTTPServerMetrics
}

type RouterOption func(*Router)

func WithMetrics(m *metrics.HTTPServerMetrics) RouterOption {
	return func(rt *Router) {
		rt.metrics = m
	}
}

func NewRouter(
	cfg config.Config,
	validator ports.TaxIDValidator,
	checker ports.ComplianceChecker,
	catalog ports.EndpointCatalog,
	opts ...RouterOption,
) *Router {
	rt := &Router{
		cfg:       cfg,
		validator: validator,
		checker:   checker,
		catalog:   catalog,
	}
	for _, opt := range opts {
		opt(rt)
	}
	return rt
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/taxid/validate", rt.validateTaxID)
	mux.HandleFunc("/v1/checks", rt.checkInvoice)
	mux.HandleFunc("/v1/endpoints", rt.listEndpoints)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	if rt.cfg.APIRequestValidation {
		openAPIRouter, err := loadOpenAPIRouter()
		if err != nil {
			slog.Error("openapi_validation_disabled", "error", err)
		} else {
			handler = requestValidationMiddleware(openAPIRouter, handler)
		}
	}
	handler = backpressureMiddleware(handler, rt.cfg.APIBackpressureMaxInFlight, time.Duration(rt.cfg.APIBackpressureWaitMS)*time.Millisecond)
	handler = rateLimitMiddleware(handler, rt.cfg.APIRateLimitRPS, rt.cfg.APIRateLimitBurst)
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(serviceName, handler)
	}
	handler = accessLogMiddleware(handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type validateRequest struct {
	TaxID string `json:"tax_id"`
}

type validateResponse struct {
	TaxID string `json:"tax_id"`
	domain.Verdict
}

func (rt *Router) validateTaxID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req validateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	verdict := rt.validator.Validate(req.TaxID)
	if rt.metrics != nil {
		rt.metrics.RecordValidation(serviceName, string(verdict.Reason))
	}
	writeJSON(w, http.StatusOK, validateResponse{TaxID: req.TaxID, Verdict: verdict})
}

type checkResponse struct {
	*domain.CheckResult
	Summary string `json:"summary"`
}

// checkInvoice answers 200 for both analysis outcomes; a failed analysis is
// reported in the body with one entry per endpoint.
func (rt *Router) checkInvoice(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var record domain.InvoiceRecord
	if err := decodeJSON(w, r, &record); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	result, err := rt.checker.Check(r.Context(), record)
	if err != nil {
		slog.Error("check_failed",
			"request_id", requestIDFromContext(r.Context()),
			"error", err,
		)
		writeError(w, err)
		return
	}

	if rt.metrics != nil {
		rt.metrics.RecordCheck(serviceName, result.Outcome.OK())
	}
	w.Header().Set(analysisStatusHeader, string(result.Outcome.Status))
	writeJSON(w, http.StatusOK, checkResponse{CheckResult: result, Summary: result.Outcome.Summary()})
}

func (rt *Router) listEndpoints(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"endpoints": rt.catalog.EndpointStatuses(),
	})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
