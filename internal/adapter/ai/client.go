// Package ai implements the model-facing ports against an OpenAI-compatible
// chat completions API. The production deployment points it at Groq; any
// provider speaking the same wire format works.
//
// Calls are single-shot. Upstream failures map onto domain sentinel errors so
// the use cases can route to their deterministic fallbacks instead of
// retrying.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/fairyhunter13/ai-interview-coach/internal/adapter/ai/tokencount"
	"github.com/fairyhunter13/ai-interview-coach/internal/adapter/observability"
	"github.com/fairyhunter13/ai-interview-coach/internal/config"
	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
)

// maxBodySnippet bounds how much of an upstream error body lands in logs.
const maxBodySnippet = 512

// Client talks to an OpenAI-compatible provider.
type Client struct {
	cfg   config.Config
	httpc *http.Client
}

// New constructs a model client from configuration. The HTTP transport is
// wrapped with otel instrumentation so provider latency shows up in traces.
func New(cfg config.Config) *Client {
	return &Client{
		cfg: cfg,
		httpc: &http.Client{
			Timeout: cfg.AITimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport,
				otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
					return fmt.Sprintf("ai.%s %s", r.Method, r.URL.Path)
				})),
		},
	}
}

// ChatJSON sends a system+user prompt pair to the chat completions endpoint
// and returns the raw message content. The content is whatever the model
// produced; callers extract and validate JSON themselves.
func (c *Client) ChatJSON(ctx domain.Context, systemPrompt, userPrompt string, maxTokens int) (string, error) {
	if c.cfg.AIAPIKey == "" {
		return "", fmt.Errorf("%w: AI_API_KEY missing", domain.ErrInvalidArgument)
	}
	if maxTokens <= 0 {
		maxTokens = c.cfg.AIMaxTokens
	}

	body := map[string]any{
		"model":       c.cfg.ChatModel,
		"temperature": 0.2,
		"max_tokens":  maxTokens,
		"messages": []map[string]string{
			{"role": "system", "content": systemPrompt},
			{"role": "user", "content": userPrompt},
		},
	}
	b, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("op=ai.ChatJSON: marshal request: %w", err)
	}

	var out struct {
		Model   string `json:"model"`
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}

	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.AIBaseURL+"/chat/completions", bytes.NewReader(b))
	if err != nil {
		return "", fmt.Errorf("op=ai.ChatJSON: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.AIAPIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	dur := time.Since(start)
	if err != nil {
		observability.ObserveAIRequest("chat", "transport_error", dur)
		if errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
			return "", fmt.Errorf("%w: chat completions: %v", domain.ErrUpstreamTimeout, err)
		}
		return "", fmt.Errorf("%w: chat completions: %v", domain.ErrUpstreamAI, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		observability.ObserveAIRequest("chat", "read_error", dur)
		return "", fmt.Errorf("%w: read response: %v", domain.ErrUpstreamAI, err)
	}

	if resp.StatusCode != http.StatusOK {
		observability.ObserveAIRequest("chat", fmt.Sprintf("status_%d", resp.StatusCode), dur)
		slog.Warn("ai provider returned non-200",
			slog.String("op", "chat"),
			slog.Int("status", resp.StatusCode),
			slog.String("x_request_id", resp.Header.Get("X-Request-Id")),
			slog.String("body", snippet(respBody)))
		if resp.StatusCode == http.StatusTooManyRequests {
			return "", fmt.Errorf("%w: provider rate limited (status 429)", domain.ErrUpstreamAI)
		}
		return "", fmt.Errorf("%w: chat completions status %d", domain.ErrUpstreamAI, resp.StatusCode)
	}

	if err := json.Unmarshal(respBody, &out); err != nil {
		observability.ObserveAIRequest("chat", "decode_error", dur)
		slog.Warn("ai provider returned undecodable body",
			slog.String("op", "chat"),
			slog.String("body", snippet(respBody)))
		return "", fmt.Errorf("%w: decode response: %v", domain.ErrUpstreamAI, err)
	}
	if len(out.Choices) == 0 {
		observability.ObserveAIRequest("chat", "empty_choices", dur)
		return "", fmt.Errorf("%w: no choices in response", domain.ErrUpstreamAI)
	}

	content := out.Choices[0].Message.Content
	observability.ObserveAIRequest("chat", "ok", dur)

	model := out.Model
	if model == "" {
		model = c.cfg.ChatModel
	}
	if usage, uerr := tokencount.CalculateUsage(systemPrompt, userPrompt, content, model); uerr == nil {
		slog.Debug("chat completion ok",
			slog.String("model", model),
			slog.Int("prompt_tokens", usage.PromptTokens),
			slog.Int("completion_tokens", usage.CompletionTokens),
			slog.Duration("duration", dur))
	}
	return content, nil
}

// snippet truncates an upstream body for logging.
func snippet(b []byte) string {
	if len(b) > maxBodySnippet {
		return string(b[:maxBodySnippet]) + "..."
	}
	return string(b)
}
