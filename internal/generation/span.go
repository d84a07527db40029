package generation

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"jobtracker-backend/internal/shared/metrics"
	"jobtracker-backend/internal/shared/telemetry"
)

var tracer = telemetry.Tracer("generation")

// Span tracks one generation request across logs, metrics and traces.
type Span struct {
	ctx     context.Context
	trace   trace.Span
	task    string
	ownerID string
	start   time.Time
}

// Start opens the request span, logs generation.start and counts the
// request. Callers must pass the returned context downstream.
func Start(ctx context.Context, task, ownerID string) (context.Context, *Span) {
	ctx, ts := tracer.Start(ctx, "generation."+task, trace.WithAttributes(
		attribute.String("generation.task", task),
		attribute.String("generation.owner_id", ownerID),
	))
	metrics.IncGenerationStarted(task)
	metrics.GenerationsInFlight.Add(1)
	telemetry.Info("generation.start", map[string]any{
		"request_id": telemetry.RequestIDFromContext(ctx),
		"trace_id":   telemetry.TraceIDFromContext(ctx),
		"task_type":  task,
		"owner_id":   ownerID,
	})
	return ctx, &Span{ctx: ctx, trace: ts, task: task, ownerID: ownerID, start: time.Now()}
}

// Complete logs generation.complete for the persisted version.
func (s *Span) Complete(versionID string, versionNumber int) {
	elapsed := metrics.SinceMillis(s.start)
	metrics.GenerationsInFlight.Add(-1)
	metrics.IncGenerationCompleted(s.task)
	metrics.ObserveGenerationDurationMs(s.task, elapsed)

	s.trace.SetAttributes(
		attribute.String("generation.version_id", versionID),
		attribute.Int("generation.version_number", versionNumber),
	)
	s.trace.SetStatus(codes.Ok, "")
	s.trace.End()

	telemetry.Info("generation.complete", map[string]any{
		"request_id":     telemetry.RequestIDFromContext(s.ctx),
		"trace_id":       telemetry.TraceIDFromContext(s.ctx),
		"task_type":      s.task,
		"owner_id":       s.ownerID,
		"version_id":     versionID,
		"version_number": versionNumber,
		"duration_ms":    elapsed,
	})
}

// Fail translates err, logs generation.failed and returns the translated error.
func (s *Span) Fail(err error) *Error {
	ge := Translate(err)
	elapsed := metrics.SinceMillis(s.start)
	metrics.GenerationsInFlight.Add(-1)
	metrics.IncGenerationFailed(s.task, string(ge.Code))
	metrics.ObserveGenerationDurationMs(s.task, elapsed)

	s.trace.RecordError(err)
	s.trace.SetAttributes(
		attribute.String("generation.error_code", string(ge.Code)),
		attribute.Bool("generation.retryable", ge.Retryable),
	)
	s.trace.SetStatus(codes.Error, string(ge.Code))
	s.trace.End()

	fields := map[string]any{
		"request_id":  telemetry.RequestIDFromContext(s.ctx),
		"trace_id":    telemetry.TraceIDFromContext(s.ctx),
		"task_type":   s.task,
		"owner_id":    s.ownerID,
		"error_code":  string(ge.Code),
		"retryable":   ge.Retryable,
		"duration_ms": elapsed,
		"error":       err,
	}
	if ge.Bound != "" {
		fields["bound"] = ge.Bound
	}
	if ge.Code == CodeInternal || ge.Code == CodeConfiguration {
		telemetry.Error("generation.failed", fields)
	} else {
		telemetry.Warn("generation.failed", fields)
	}
	return ge
}
