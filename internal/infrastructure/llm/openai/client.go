package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/kirillkom/vat-compliance-checker/internal/core/domain"
)

type Options struct {
	BaseURL     string
	Timeout     time.Duration
	Temperature float32
	MaxTokens   int
	HTTPClient  *http.Client
}

// Generator talks to any OpenAI-compatible chat completions API. Endpoint
// names are sent bare, without the Gemini "models/" prefix.
type Generator struct {
	opts Options
}

func New(opts Options) *Generator {
	if opts.Timeout <= 0 {
		opts.Timeout = 120 * time.Second
	}
	return &Generator{opts: opts}
}

func (g *Generator) QualifyEndpoint(name string) string {
	return domain.BareModelName(name)
}

func (g *Generator) Generate(ctx context.Context, req domain.GenerateRequest) (string, error) {
	cfg := goopenai.DefaultConfig(req.Credential)
	if g.opts.BaseURL != "" {
		cfg.BaseURL = strings.TrimRight(g.opts.BaseURL, "/")
	}
	if g.opts.HTTPClient != nil {
		cfg.HTTPClient = g.opts.HTTPClient
	}
	client := goopenai.NewClientWithConfig(cfg)

	callCtx, cancel := context.WithTimeout(ctx, g.opts.Timeout)
	defer cancel()

	resp, err := client.CreateChatCompletion(callCtx, goopenai.ChatCompletionRequest{
		Model: req.Endpoint,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleUser, Content: req.Prompt},
		},
		Temperature: g.opts.Temperature,
		MaxTokens:   g.opts.MaxTokens,
	})
	if err != nil {
		return "", wrapOpenAIError(req.Endpoint, err)
	}
	if len(resp.Choices) == 0 {
		return "", &domain.GenerationError{
			Kind: domain.FailureInvalidResponse,
			Err:  fmt.Errorf("openai %s: no choices in response", req.Endpoint),
		}
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", &domain.GenerationError{
			Kind: domain.FailureInvalidResponse,
			Err:  fmt.Errorf("openai %s: empty response (finish reason %s)", req.Endpoint, resp.Choices[0].FinishReason),
		}
	}
	return text, nil
}

func wrapOpenAIError(endpoint string, err error) error {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		return &domain.GenerationError{
			Kind: domain.KindForHTTPStatus(apiErr.HTTPStatusCode),
			Err:  fmt.Errorf("openai %s: %w", endpoint, err),
		}
	}
	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) {
		return &domain.GenerationError{
			Kind: domain.KindForHTTPStatus(reqErr.HTTPStatusCode),
			Err:  fmt.Errorf("openai %s: %w", endpoint, err),
		}
	}
	return fmt.Errorf("openai %s: %w", endpoint, err)
}
