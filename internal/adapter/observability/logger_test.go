package observability

import (
	"context"
	"log/slog"
	"testing"

	"github.com/fairyhunter13/ai-interview-coach/internal/config"
)

func TestSetupLogger_DevAndProd(t *testing.T) {
	lg := SetupLogger(config.Config{AppEnv: "dev", OTELServiceName: "svc"})
	if lg == nil {
		t.Fatalf("nil logger")
	}
	lg2 := SetupLogger(config.Config{AppEnv: "prod", OTELServiceName: "svc"})
	if lg2 == nil {
		t.Fatalf("nil logger prod")
	}
}

func TestLoggerContextRoundTrip(t *testing.T) {
	base := context.Background()
	if got := LoggerFromContext(base); got != slog.Default() {
		t.Fatalf("expected default logger for bare context")
	}

	lg := slog.Default().With(slog.String("k", "v"))
	ctx := ContextWithLogger(base, lg)
	if got := LoggerFromContext(ctx); got != lg {
		t.Fatalf("expected stored logger back")
	}

	// nil logger must not clobber the context
	ctx2 := ContextWithLogger(ctx, nil)
	if got := LoggerFromContext(ctx2); got != lg {
		t.Fatalf("expected stored logger to survive nil attach")
	}
}

func TestRequestIDContextRoundTrip(t *testing.T) {
	base := context.Background()
	if got := RequestIDFromContext(base); got != "" {
		t.Fatalf("expected empty request id, got %q", got)
	}
	ctx := ContextWithRequestID(base, "req-123")
	if got := RequestIDFromContext(ctx); got != "req-123" {
		t.Fatalf("expected req-123, got %q", got)
	}
	// empty request id is a no-op
	ctx2 := ContextWithRequestID(ctx, "")
	if got := RequestIDFromContext(ctx2); got != "req-123" {
		t.Fatalf("expected req-123 to survive empty attach, got %q", got)
	}
}
