package llm

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"jobtracker-backend/internal/shared/metrics"
	"jobtracker-backend/internal/shared/telemetry"
	"jobtracker-backend/internal/usage"
)

var tracer = telemetry.Tracer("llm")

// ErrEmptyPrompt is returned when Generate is called without a prompt.
var ErrEmptyPrompt = errors.New("prompt is empty")

// Gateway is the single path from document services to a model provider.
type Gateway struct {
	provider Provider
	cfg      Config
	limiter  *Limiter
	usage    usage.Recorder
	now      func() time.Time
	jitter   func() float64
}

// Option customizes a Gateway.
type Option func(*Gateway)

// WithUsageRecorder records one usage event per attempt. The recorder must not
// block; wrap slow stores in usage.AsyncRecorder.
func WithUsageRecorder(r usage.Recorder) Option {
	return func(g *Gateway) { g.usage = r }
}

// WithLimiter replaces the limiter derived from Config.RequestsPerMinute.
func WithLimiter(l *Limiter) Option {
	return func(g *Gateway) { g.limiter = l }
}

// NewGateway validates cfg and binds it to provider.
func NewGateway(provider Provider, cfg Config, opts ...Option) (*Gateway, error) {
	if provider == nil {
		return nil, fmt.Errorf("%w: provider is nil", ErrInvalidConfig)
	}
	valid, err := cfg.Validate()
	if err != nil {
		return nil, err
	}
	g := &Gateway{
		provider: provider,
		cfg:      valid,
		now:      time.Now,
		jitter:   rand.Float64,
	}
	g.limiter = NewLimiter(valid.RequestsPerMinute, nil)
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Config returns a copy of the gateway configuration.
func (g *Gateway) Config() Config {
	return g.cfg
}

// Generate sends prompt to the provider. Each attempt is bounded by
// Config.Timeout; transient failures are retried up to Config.MaxRetries
// times with exponential backoff. Auth and bad-request failures are returned
// immediately.
func (g *Gateway) Generate(ctx context.Context, req Request) (Completion, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return Completion{}, &ProviderError{Provider: g.provider.Name(), Kind: KindBadRequest, Err: ErrEmptyPrompt}
	}
	if req.Mode == "" {
		req.Mode = ModeStructured
	}
	req.Model = g.cfg.Model
	req.MaxTokens = g.cfg.MaxTokens
	req.Temperature = g.cfg.Temperature

	maxAttempts := g.cfg.MaxRetries + 1
	var lastErr *ProviderError
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := g.limiter.Wait(ctx); err != nil {
			return Completion{}, err
		}

		start := g.now()
		out, err := g.attempt(ctx, req, attempt)
		latency := g.now().Sub(start)
		metrics.ObserveLLMLatencyMs(g.provider.Name(), float64(latency.Milliseconds()))

		if err == nil {
			g.record(ctx, req, attempt, latency, out, nil)
			metrics.IncLLMCall(g.provider.Name(), usage.OutcomeSuccess)
			metrics.AddLLMTokens(g.provider.Name(), out.PromptTokens, out.CompletionTokens)
			return out, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Completion{}, ctxErr
		}

		pe := ClassifyTransport(g.provider.Name(), err)
		lastErr = pe
		g.record(ctx, req, attempt, latency, Completion{}, pe)
		metrics.IncLLMCall(g.provider.Name(), string(pe.Kind))

		if !pe.Retryable() || attempt == maxAttempts {
			break
		}

		delay := g.backoff(attempt, pe)
		telemetry.Warn("llm.retry", map[string]any{
			"request_id":  telemetry.RequestIDFromContext(ctx),
			"provider":    g.provider.Name(),
			"attempt":     attempt,
			"max_retries": g.cfg.MaxRetries,
			"kind":        string(pe.Kind),
			"delay_ms":    delay.Milliseconds(),
		})
		metrics.IncLLMRetry(g.provider.Name())
		if err := sleep(ctx, delay); err != nil {
			return Completion{}, err
		}
	}
	return Completion{}, lastErr
}

func (g *Gateway) attempt(ctx context.Context, req Request, n int) (out Completion, err error) {
	ctx, span := tracer.Start(ctx, "llm.generate", trace.WithSpanKind(trace.SpanKindClient), trace.WithAttributes(
		attribute.String("llm.provider", g.provider.Name()),
		attribute.String("llm.model", req.Model),
		attribute.String("llm.mode", string(req.Mode)),
		attribute.Int("llm.attempt", n),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetAttributes(
				attribute.Int("llm.prompt_tokens", out.PromptTokens),
				attribute.Int("llm.completion_tokens", out.CompletionTokens),
			)
		}
		span.End()
	}()

	attemptCtx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	out, err = g.provider.Generate(attemptCtx, req)
	if err != nil {
		// A provider that ignores the deadline still reports a timeout.
		if errors.Is(attemptCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			var pe *ProviderError
			if !errors.As(err, &pe) || pe.Kind != KindTimeout {
				return Completion{}, &ProviderError{Provider: g.provider.Name(), Kind: KindTimeout, Err: err}
			}
		}
		return Completion{}, err
	}
	if out.Provider == "" {
		out.Provider = g.provider.Name()
	}
	if out.Model == "" {
		out.Model = req.Model
	}
	return out, nil
}

// backoff doubles from RetryBaseDelay, caps at RetryMaxDelay and applies
// ±20% jitter. A provider Retry-After wins when it is longer.
func (g *Gateway) backoff(attempt int, pe *ProviderError) time.Duration {
	delay := g.cfg.RetryBaseDelay
	for i := 1; i < attempt && delay < g.cfg.RetryMaxDelay; i++ {
		delay *= 2
	}
	if delay > g.cfg.RetryMaxDelay {
		delay = g.cfg.RetryMaxDelay
	}
	factor := 0.8 + 0.4*g.jitter()
	delay = time.Duration(float64(delay) * factor)
	if pe != nil && pe.RetryAfter > delay {
		delay = pe.RetryAfter
	}
	return delay
}

func (g *Gateway) record(ctx context.Context, req Request, attempt int, latency time.Duration, out Completion, pe *ProviderError) {
	if g.usage == nil {
		return
	}
	e := usage.Event{
		OwnerID:          req.OwnerID,
		TaskType:         req.Task,
		Provider:         g.provider.Name(),
		Model:            req.Model,
		Mode:             string(req.Mode),
		Attempt:          attempt,
		Outcome:          usage.OutcomeSuccess,
		LatencyMs:        latency.Milliseconds(),
		PromptTokens:     out.PromptTokens,
		CompletionTokens: out.CompletionTokens,
		CreatedAt:        g.now().UTC(),
	}
	if pe != nil {
		e.Outcome = usage.OutcomeError
		e.ErrorKind = string(pe.Kind)
	}
	if err := g.usage.Record(telemetry.Detach(ctx), e); err != nil {
		telemetry.Warn("llm.usage_record_failed", map[string]any{
			"provider": e.Provider,
			"error":    err,
		})
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
