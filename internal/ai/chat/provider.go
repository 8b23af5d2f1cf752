// Package chat implements models.ChatProvider against an OpenAI-compatible
// chat-completions endpoint.
package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"

	"github.com/kiranshivaraju/alertsage/internal/ai"
	"github.com/kiranshivaraju/alertsage/pkg/models"
)

// Config holds endpoint, credentials and sampling parameters.
type Config struct {
	URL         string
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
	TopP        float64
	TopK        int
}

// Provider sends one non-streaming completion per Complete call.
type Provider struct {
	cfg        Config
	httpClient *http.Client
}

// NewProvider creates a Provider. Per-call deadlines come from the context.
func NewProvider(cfg Config) *Provider {
	return &Provider{
		cfg:        cfg,
		httpClient: &http.Client{},
	}
}

func (p *Provider) Name() string { return p.cfg.Model }

type completionRequest struct {
	Model       string               `json:"model"`
	Messages    []models.ChatMessage `json:"messages"`
	MaxTokens   int                  `json:"max_tokens"`
	Temperature float64              `json:"temperature"`
	TopP        float64              `json:"top_p"`
	TopK        int                  `json:"top_k"`
	Stream      bool                 `json:"stream"`
}

type completionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete returns the first choice's message content.
func (p *Provider) Complete(ctx context.Context, messages []models.ChatMessage) (string, error) {
	body, err := json.Marshal(completionRequest{
		Model:       p.cfg.Model,
		Messages:    messages,
		MaxTokens:   p.cfg.MaxTokens,
		Temperature: p.cfg.Temperature,
		TopP:        p.cfg.TopP,
		TopK:        p.cfg.TopK,
		Stream:      false,
	})
	if err != nil {
		return "", fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", classifyError(ctx, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", statusError(resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var out completionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		if ctx.Err() != nil {
			return "", classifyError(ctx, err)
		}
		return "", fmt.Errorf("%w: decoding response: %v", ai.ErrInvalidResponse, err)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("%w: response has no choices", ai.ErrInvalidResponse)
	}
	return out.Choices[0].Message.Content, nil
}

func statusError(code int, body string) error {
	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return fmt.Errorf("%w: status %d", ai.ErrAuthentication, code)
	case code == http.StatusTooManyRequests:
		return fmt.Errorf("%w: status %d", ai.ErrRateLimited, code)
	case code >= 500:
		return fmt.Errorf("%w: status %d: %s", ai.ErrProviderUnavailable, code, body)
	default:
		return fmt.Errorf("%w: status %d: %s", ai.ErrInvalidResponse, code, body)
	}
}

func classifyError(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.Canceled) {
		return fmt.Errorf("llm request canceled: %w", ctx.Err())
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ai.ErrInferenceTimeout, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", ai.ErrInferenceTimeout, err)
	}
	return fmt.Errorf("%w: %v", ai.ErrProviderUnavailable, err)
}

var _ models.ChatProvider = (*Provider)(nil)
