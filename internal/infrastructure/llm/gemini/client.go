package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/kirillkom/vat-compliance-checker/internal/core/domain"
)

type Options struct {
	// BaseURL overrides the Gemini API host, mainly for proxies and tests.
	BaseURL         string
	APIVersion      string
	Timeout         time.Duration
	Temperature     *float32
	MaxOutputTokens int32
	HTTPClient      *http.Client
}

// Generator calls the Gemini API through the genai SDK. The credential is
// supplied per request, so one Generator serves any key the caller injects.
type Generator struct {
	opts Options
}

func New(opts Options) *Generator {
	if opts.Timeout <= 0 {
		opts.Timeout = 120 * time.Second
	}
	return &Generator{opts: opts}
}

func (g *Generator) Generate(ctx context.Context, req domain.GenerateRequest) (string, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     req.Credential,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: g.opts.HTTPClient,
		HTTPOptions: genai.HTTPOptions{
			BaseURL:    g.opts.BaseURL,
			APIVersion: g.opts.APIVersion,
		},
	})
	if err != nil {
		return "", fmt.Errorf("create genai client: %w", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, g.opts.Timeout)
	defer cancel()

	resp, err := client.Models.GenerateContent(callCtx, req.Endpoint, genai.Text(req.Prompt), g.contentConfig())
	if err != nil {
		return "", wrapGeminiError(req.Endpoint, err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", &domain.GenerationError{
			Kind: domain.FailureInvalidResponse,
			Err:  fmt.Errorf("gemini %s: empty response%s", req.Endpoint, finishReason(resp)),
		}
	}
	return text, nil
}

func (g *Generator) contentConfig() *genai.GenerateContentConfig {
	if g.opts.Temperature == nil && g.opts.MaxOutputTokens <= 0 {
		return nil
	}
	return &genai.GenerateContentConfig{
		Temperature:     g.opts.Temperature,
		MaxOutputTokens: g.opts.MaxOutputTokens,
	}
}

func finishReason(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		if resp != nil && resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
			return fmt.Sprintf(" (prompt blocked: %s)", resp.PromptFeedback.BlockReason)
		}
		return " (no candidates)"
	}
	if reason := resp.Candidates[0].FinishReason; reason != "" {
		return fmt.Sprintf(" (finish reason %s)", reason)
	}
	return ""
}

func wrapGeminiError(endpoint string, err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &domain.GenerationError{
			Kind: domain.KindForHTTPStatus(apiErr.Code),
			Err:  fmt.Errorf("gemini %s: %w", endpoint, err),
		}
	}
	return fmt.Errorf("gemini %s: %w", endpoint, err)
}
