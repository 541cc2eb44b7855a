// Package tokencount counts prompt and completion tokens for LLM calls.
//
// It uses tiktoken-go, a Go port of OpenAI's tiktoken. Exact encodings only
// exist for OpenAI models, so other model families are approximated with
// cl100k_base; close enough for budget enforcement and usage logging.
package tokencount

import (
	"strings"
	"sync"

	"log/slog"

	tiktoken "github.com/pkoukk/tiktoken-go"
)

// Usage is the token accounting for one chat completion.
type Usage struct {
	PromptTokens     int    `json:"prompt_tokens"`
	CompletionTokens int    `json:"completion_tokens"`
	TotalTokens      int    `json:"total_tokens"`
	Model            string `json:"model"`
}

// Counter provides thread-safe token counting with cached encodings.
type Counter struct {
	encodingCache map[string]*tiktoken.Tiktoken
	mu            sync.RWMutex
}

// NewCounter creates a new token counter instance.
func NewCounter() *Counter {
	return &Counter{
		encodingCache: make(map[string]*tiktoken.Tiktoken),
	}
}

// DefaultCounter is a global token counter instance.
var DefaultCounter = NewCounter()

func (c *Counter) getEncodingForModel(model string) (*tiktoken.Tiktoken, error) {
	normalizedModel := normalizeModelName(model)

	c.mu.RLock()
	if enc, ok := c.encodingCache[normalizedModel]; ok {
		c.mu.RUnlock()
		return enc, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	// Double-check after acquiring write lock
	if enc, ok := c.encodingCache[normalizedModel]; ok {
		return enc, nil
	}

	enc, err := tiktoken.EncodingForModel(normalizedModel)
	if err != nil {
		slog.Debug("falling back to cl100k_base encoding",
			slog.String("model", model),
			slog.String("normalized", normalizedModel),
			slog.Any("error", err))
		enc, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return nil, err
		}
	}

	c.encodingCache[normalizedModel] = enc
	return enc, nil
}

// normalizeModelName maps provider model IDs to tiktoken-compatible names.
// Groq IDs sometimes carry an org prefix, e.g. "meta-llama/llama-4-scout".
func normalizeModelName(model string) string {
	model = strings.ToLower(model)

	if strings.Contains(model, "/") {
		parts := strings.Split(model, "/")
		model = parts[len(parts)-1]
	}

	switch {
	case strings.Contains(model, "gpt-4"):
		return "gpt-4"
	case strings.Contains(model, "gpt-3.5"):
		return "gpt-3.5-turbo"
	default:
		// Llama, Mixtral, Gemma, Qwen and friends tokenize close enough to
		// GPT-4's cl100k_base for budgeting purposes.
		return "gpt-4"
	}
}

// CountTokens counts the tokens in text for the given model.
func (c *Counter) CountTokens(text, model string) (int, error) {
	enc, err := c.getEncodingForModel(model)
	if err != nil {
		return 0, err
	}

	tokens := enc.Encode(text, nil, nil)
	return len(tokens), nil
}

// CountChatTokens counts the prompt tokens for a system+user message pair,
// including the per-message overhead used by OpenAI-compatible APIs.
func (c *Counter) CountChatTokens(systemPrompt, userPrompt, model string) (int, error) {
	enc, err := c.getEncodingForModel(model)
	if err != nil {
		return 0, err
	}

	// 3 tokens per message plus 1 for the role name, and every reply is
	// primed with <|start|>assistant<|message|>.
	tokensPerMessage := 3
	tokensPerRole := 1

	numTokens := 0

	numTokens += tokensPerMessage
	numTokens += len(enc.Encode("system", nil, nil))
	numTokens += len(enc.Encode(systemPrompt, nil, nil))
	numTokens += tokensPerRole

	numTokens += tokensPerMessage
	numTokens += len(enc.Encode("user", nil, nil))
	numTokens += len(enc.Encode(userPrompt, nil, nil))
	numTokens += tokensPerRole

	numTokens += 3

	return numTokens, nil
}

// Truncate cuts text to at most maxTokens tokens for the given model. Used to
// keep resume and transcript excerpts inside the prompt budget.
func (c *Counter) Truncate(text, model string, maxTokens int) string {
	if maxTokens <= 0 {
		return ""
	}
	enc, err := c.getEncodingForModel(model)
	if err != nil {
		// Rough fallback: ~4 chars per token
		if len(text) > maxTokens*4 {
			return text[:maxTokens*4]
		}
		return text
	}
	tokens := enc.Encode(text, nil, nil)
	if len(tokens) <= maxTokens {
		return text
	}
	return enc.Decode(tokens[:maxTokens])
}

// CalculateUsage computes full token usage for one chat completion.
func (c *Counter) CalculateUsage(systemPrompt, userPrompt, completion, model string) (*Usage, error) {
	promptTokens, err := c.CountChatTokens(systemPrompt, userPrompt, model)
	if err != nil {
		slog.Warn("failed to count prompt tokens, using estimate",
			slog.String("model", model),
			slog.Any("error", err))
		// ~4 chars per token
		promptTokens = (len(systemPrompt) + len(userPrompt)) / 4
	}

	completionTokens, err := c.CountTokens(completion, model)
	if err != nil {
		slog.Warn("failed to count completion tokens, using estimate",
			slog.String("model", model),
			slog.Any("error", err))
		completionTokens = len(completion) / 4
	}

	return &Usage{
		PromptTokens:     promptTokens,
		CompletionTokens: completionTokens,
		TotalTokens:      promptTokens + completionTokens,
		Model:            model,
	}, nil
}

// CountTokens uses the default counter.
func CountTokens(text, model string) (int, error) {
	return DefaultCounter.CountTokens(text, model)
}

// Truncate uses the default counter.
func Truncate(text, model string, maxTokens int) string {
	return DefaultCounter.Truncate(text, model, maxTokens)
}

// CalculateUsage uses the default counter.
func CalculateUsage(systemPrompt, userPrompt, completion, model string) (*Usage, error) {
	return DefaultCounter.CalculateUsage(systemPrompt, userPrompt, completion, model)
}
