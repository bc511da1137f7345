package ollama

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/vat-compliance-checker/internal/core/domain"
)

type Options struct {
	BaseURL     string
	Timeout     time.Duration
	Temperature float32
	NumPredict  int
	HTTPClient  *http.Client
}

// Generator calls a self-hosted Ollama server. The credential is sent as a
// bearer token for deployments that sit behind an authenticating proxy.
type Generator struct {
	baseURL    string
	opts       Options
	httpClient *http.Client
}

func New(opts Options) *Generator {
	if opts.Timeout <= 0 {
		opts.Timeout = 120 * time.Second
	}
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Generator{baseURL: baseURL, opts: opts, httpClient: httpClient}
}

func (g *Generator) QualifyEndpoint(name string) string {
	return domain.BareModelName(name)
}

type generateOptions struct {
	Temperature float32 `json:"temperature"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type generateRequest struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	Stream  bool            `json:"stream"`
	Options generateOptions `json:"options"`
}

type generateResponse struct {
	Response   string `json:"response"`
	Done       bool   `json:"done"`
	DoneReason string `json:"done_reason"`
}

func (g *Generator) Generate(ctx context.Context, req domain.GenerateRequest) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, g.opts.Timeout)
	defer cancel()

	var out generateResponse
	err := g.postJSON(callCtx, "/api/generate", req.Credential, generateRequest{
		Model:  req.Endpoint,
		Prompt: req.Prompt,
		Stream: false,
		Options: generateOptions{
			Temperature: g.opts.Temperature,
			NumPredict:  g.opts.NumPredict,
		},
	}, &out, "generate")
	if err != nil {
		return "", wrapOllamaError(req.Endpoint, err)
	}

	text := strings.TrimSpace(out.Response)
	if text == "" {
		return "", &domain.GenerationError{
			Kind: domain.FailureInvalidResponse,
			Err:  fmt.Errorf("ollama %s: empty response (done reason %q)", req.Endpoint, out.DoneReason),
		}
	}
	return text, nil
}
