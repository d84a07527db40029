package telemetry

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestInfoWritesFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	SetLogger(zap.New(core))
	t.Cleanup(func() { Init("info") })

	Info("generation.complete", map[string]any{"owner_id": "u1", "attempts": 2})
	Error("generation.failed", map[string]any{"error": errors.New("boom")})

	entries := logs.AllUntimed()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	ctx := entries[0].ContextMap()
	if ctx["owner_id"] != "u1" {
		t.Fatalf("owner_id field missing: %#v", ctx)
	}
	if got := entries[1].ContextMap()["error"]; got != "boom" {
		t.Fatalf("expected error rendered as string, got %#v", got)
	}
}

func TestRequestIDRoundTrip(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-1")
	if got := RequestIDFromContext(ctx); got != "req-1" {
		t.Fatalf("expected req-1, got %q", got)
	}
	detached := Detach(ctx)
	if got := RequestIDFromContext(detached); got != "req-1" {
		t.Fatalf("detached context lost request id: %q", got)
	}
	if RequestIDFromContext(context.Background()) != "" {
		t.Fatalf("expected empty id for bare context")
	}
}
