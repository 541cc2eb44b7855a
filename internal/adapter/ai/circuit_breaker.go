package ai

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
)

// CircuitState represents the state of the upstream circuit breaker.
type CircuitState int

const (
	// CircuitClosed allows requests through.
	CircuitClosed CircuitState = iota
	// CircuitOpen short-circuits requests after repeated failures.
	CircuitOpen
	// CircuitHalfOpen probes recovery with a single request.
	CircuitHalfOpen
)

// String returns the state name used in logs.
func (cs CircuitState) String() string {
	switch cs {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreaker guards the AI provider. After failureThreshold consecutive
// failures it opens and short-circuits calls until recoveryTimeout passes,
// then lets one probe through.
type CircuitBreaker struct {
	mu               sync.Mutex
	failureThreshold int
	recoveryTimeout  time.Duration
	state            CircuitState
	failureCount     int
	lastFailureTime  time.Time
}

// NewCircuitBreaker creates a breaker with the given threshold and cooldown.
func NewCircuitBreaker(failureThreshold int, recoveryTimeout time.Duration) *CircuitBreaker {
	if failureThreshold <= 0 {
		failureThreshold = 5
	}
	if recoveryTimeout <= 0 {
		recoveryTimeout = 30 * time.Second
	}
	return &CircuitBreaker{
		failureThreshold: failureThreshold,
		recoveryTimeout:  recoveryTimeout,
		state:            CircuitClosed,
	}
}

// Allow reports whether a request may proceed, transitioning an open circuit
// to half-open once the cooldown has passed.
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CircuitClosed, CircuitHalfOpen:
		return true
	case CircuitOpen:
		if time.Since(cb.lastFailureTime) > cb.recoveryTimeout {
			cb.state = CircuitHalfOpen
			slog.Info("circuit breaker half-open, probing recovery")
			return true
		}
		return false
	default:
		return false
	}
}

// RecordSuccess resets the failure count and closes the circuit.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failureCount = 0
	if cb.state != CircuitClosed {
		cb.state = CircuitClosed
		slog.Info("circuit breaker closed after successful recovery")
	}
}

// RecordFailure counts a failure and opens the circuit at the threshold. A
// failed half-open probe reopens immediately.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failureCount++
	cb.lastFailureTime = time.Now()

	if cb.state == CircuitHalfOpen || cb.failureCount >= cb.failureThreshold {
		if cb.state != CircuitOpen {
			slog.Warn("circuit breaker opened",
				slog.Int("failure_count", cb.failureCount),
				slog.Int("threshold", cb.failureThreshold))
		}
		cb.state = CircuitOpen
	}
}

// State returns the current circuit state.
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// BreakerClient wraps a model client and transcriber with a shared circuit
// breaker. When the circuit is open both operations fail fast with
// ErrUpstreamAI, which sends callers down their fallback paths without
// waiting out provider timeouts.
type BreakerClient struct {
	next    interface {
		domain.AIClient
		domain.Transcriber
	}
	breaker *CircuitBreaker
}

// NewBreakerClient wraps next with a circuit breaker.
func NewBreakerClient(next interface {
	domain.AIClient
	domain.Transcriber
}, breaker *CircuitBreaker) *BreakerClient {
	return &BreakerClient{next: next, breaker: breaker}
}

// ChatJSON delegates to the wrapped client, tracking the outcome.
func (b *BreakerClient) ChatJSON(ctx domain.Context, systemPrompt, userPrompt string, maxTokens int) (string, error) {
	if !b.breaker.Allow() {
		return "", fmt.Errorf("%w: circuit breaker open", domain.ErrUpstreamAI)
	}
	out, err := b.next.ChatJSON(ctx, systemPrompt, userPrompt, maxTokens)
	b.record(err)
	return out, err
}

// Transcribe delegates to the wrapped transcriber, tracking the outcome.
func (b *BreakerClient) Transcribe(ctx domain.Context, filename string, audio io.Reader) (string, error) {
	if !b.breaker.Allow() {
		return "", fmt.Errorf("%w: circuit breaker open", domain.ErrUpstreamAI)
	}
	out, err := b.next.Transcribe(ctx, filename, audio)
	b.record(err)
	return out, err
}

// record updates breaker state. Only upstream failures trip the breaker;
// caller-side errors like invalid arguments say nothing about provider
// health.
func (b *BreakerClient) record(err error) {
	switch {
	case err == nil:
		b.breaker.RecordSuccess()
	case errors.Is(err, domain.ErrUpstreamAI), errors.Is(err, domain.ErrUpstreamTimeout):
		b.breaker.RecordFailure()
	}
}
