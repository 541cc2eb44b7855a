package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/fairyhunter13/ai-interview-coach/internal/adapter/observability"
	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
)

// Transcribe sends recorded audio to the provider's transcription endpoint
// and returns the recognized text. Failures map onto upstream sentinels so
// callers can substitute the transcript placeholder.
func (c *Client) Transcribe(ctx domain.Context, filename string, audio io.Reader) (string, error) {
	if c.cfg.AIAPIKey == "" {
		return "", fmt.Errorf("%w: AI_API_KEY missing", domain.ErrInvalidArgument)
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("op=ai.Transcribe: build form: %w", err)
	}
	if _, err := io.Copy(fw, audio); err != nil {
		return "", fmt.Errorf("op=ai.Transcribe: copy audio: %w", err)
	}
	if err := mw.WriteField("model", c.cfg.TranscribeModel); err != nil {
		return "", fmt.Errorf("op=ai.Transcribe: build form: %w", err)
	}
	if err := mw.WriteField("response_format", "json"); err != nil {
		return "", fmt.Errorf("op=ai.Transcribe: build form: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("op=ai.Transcribe: build form: %w", err)
	}

	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.AIBaseURL+"/audio/transcriptions", &buf)
	if err != nil {
		return "", fmt.Errorf("op=ai.Transcribe: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.AIAPIKey)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpc.Do(req)
	dur := time.Since(start)
	if err != nil {
		observability.ObserveAIRequest("transcribe", "transport_error", dur)
		if errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
			return "", fmt.Errorf("%w: transcription: %v", domain.ErrUpstreamTimeout, err)
		}
		return "", fmt.Errorf("%w: transcription: %v", domain.ErrUpstreamAI, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		observability.ObserveAIRequest("transcribe", "read_error", dur)
		return "", fmt.Errorf("%w: read response: %v", domain.ErrUpstreamAI, err)
	}

	if resp.StatusCode != http.StatusOK {
		observability.ObserveAIRequest("transcribe", fmt.Sprintf("status_%d", resp.StatusCode), dur)
		slog.Warn("transcription returned non-200",
			slog.Int("status", resp.StatusCode),
			slog.String("x_request_id", resp.Header.Get("X-Request-Id")),
			slog.String("body", snippet(respBody)))
		return "", fmt.Errorf("%w: transcription status %d", domain.ErrUpstreamAI, resp.StatusCode)
	}

	var out struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(respBody, &out); err != nil {
		observability.ObserveAIRequest("transcribe", "decode_error", dur)
		return "", fmt.Errorf("%w: decode response: %v", domain.ErrUpstreamAI, err)
	}
	observability.ObserveAIRequest("transcribe", "ok", dur)
	return strings.TrimSpace(out.Text), nil
}
