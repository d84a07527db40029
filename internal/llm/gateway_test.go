package llm

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"jobtracker-backend/internal/usage"
)

type scriptedProvider struct {
	mu     sync.Mutex
	script []error
	calls  int
	seen   []Request
}

func (p *scriptedProvider) Name() string { return "fake" }

func (p *scriptedProvider) Generate(ctx context.Context, req Request) (Completion, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	p.seen = append(p.seen, req)
	if len(p.script) > 0 {
		err := p.script[0]
		p.script = p.script[1:]
		if err != nil {
			return Completion{}, err
		}
	}
	return Completion{Text: `{"summary":"ok"}`, PromptTokens: 10, CompletionTokens: 5}, nil
}

func testConfig() Config {
	return Config{
		Provider:       "fake",
		Model:          "fake-model",
		MaxRetries:     3,
		Timeout:        time.Second,
		RetryBaseDelay: time.Millisecond,
		RetryMaxDelay:  2 * time.Millisecond,
	}
}

func timeoutErr() error { return &ProviderError{Provider: "fake", Kind: KindTimeout} }

func TestGatewayRetriesTransientFailures(t *testing.T) {
	provider := &scriptedProvider{script: []error{timeoutErr(), timeoutErr()}}
	store := usage.NewMemoryStore()
	g, err := NewGateway(provider, testConfig(), WithUsageRecorder(store))
	if err != nil {
		t.Fatalf("NewGateway: %v", err)
	}

	out, err := g.Generate(context.Background(), Request{Prompt: "tailor", Mode: ModeStructured, OwnerID: "u1"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if provider.calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", provider.calls)
	}
	if out.Provider != "fake" || out.Model != "fake-model" {
		t.Fatalf("completion metadata not filled: %+v", out)
	}

	s, _ := store.Summary(context.Background(), "u1")
	if s.Calls != 3 || s.ByOutcome[usage.OutcomeError] != 2 || s.ByOutcome[usage.OutcomeSuccess] != 1 {
		t.Fatalf("unexpected usage summary %+v", s)
	}
}

func TestGatewayDoesNotRetryPermanentFailures(t *testing.T) {
	tests := []struct {
		name string
		kind ErrorKind
	}{
		{name: "auth", kind: KindAuth},
		{name: "bad request", kind: KindBadRequest},
		{name: "quota", kind: KindQuota},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := &scriptedProvider{script: []error{&ProviderError{Provider: "fake", Kind: tt.kind, StatusCode: 401}}}
			g, _ := NewGateway(provider, testConfig())

			_, err := g.Generate(context.Background(), Request{Prompt: "x"})
			if KindOf(err) != tt.kind {
				t.Fatalf("expected %s, got %v", tt.kind, err)
			}
			if provider.calls != 1 {
				t.Fatalf("expected 1 attempt, got %d", provider.calls)
			}
		})
	}
}

func TestGatewayGivesUpAfterMaxRetries(t *testing.T) {
	provider := &scriptedProvider{script: []error{timeoutErr(), timeoutErr(), timeoutErr(), timeoutErr(), nil}}
	g, _ := NewGateway(provider, testConfig())

	_, err := g.Generate(context.Background(), Request{Prompt: "x"})
	if KindOf(err) != KindTimeout {
		t.Fatalf("expected timeout, got %v", err)
	}
	if provider.calls != 4 {
		t.Fatalf("expected 1 attempt plus 3 retries, got %d", provider.calls)
	}
}

type hangingProvider struct{ calls int }

func (p *hangingProvider) Name() string { return "hang" }

func (p *hangingProvider) Generate(ctx context.Context, req Request) (Completion, error) {
	p.calls++
	<-ctx.Done()
	return Completion{}, ctx.Err()
}

func TestGatewayEnforcesPerAttemptTimeout(t *testing.T) {
	cfg := testConfig()
	cfg.Timeout = 10 * time.Millisecond
	cfg.MaxRetries = 1
	provider := &hangingProvider{}
	g, _ := NewGateway(provider, cfg)

	start := time.Now()
	_, err := g.Generate(context.Background(), Request{Prompt: "x"})
	if KindOf(err) != KindTimeout {
		t.Fatalf("expected timeout, got %v", err)
	}
	if provider.calls != 2 {
		t.Fatalf("expected 2 attempts, got %d", provider.calls)
	}
	if time.Since(start) > time.Second {
		t.Fatalf("timeout not enforced")
	}
}

func TestGatewayStopsOnCallerCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	provider := &scriptedProvider{}
	g, _ := NewGateway(provider, testConfig())

	_, err := g.Generate(ctx, Request{Prompt: "x"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestGatewayAppliesConfigToRequest(t *testing.T) {
	cfg := testConfig()
	cfg.Temperature = 0.7
	cfg.MaxTokens = 900
	provider := &scriptedProvider{}
	g, _ := NewGateway(provider, cfg)

	if _, err := g.Generate(context.Background(), Request{Prompt: "x", Model: "override-ignored"}); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	got := provider.seen[0]
	if got.Model != "fake-model" || got.MaxTokens != 900 || got.Temperature != 0.7 || got.Mode != ModeStructured {
		t.Fatalf("request not populated from config: %+v", got)
	}
}

func TestGatewayRejectsEmptyPrompt(t *testing.T) {
	g, _ := NewGateway(&scriptedProvider{}, testConfig())
	_, err := g.Generate(context.Background(), Request{Prompt: "   "})
	if !errors.Is(err, ErrEmptyPrompt) {
		t.Fatalf("expected ErrEmptyPrompt, got %v", err)
	}
}

type failingRecorder struct{}

func (failingRecorder) Record(ctx context.Context, e usage.Event) error {
	return errors.New("usage store down")
}

func TestGatewayIgnoresUsageFailures(t *testing.T) {
	g, _ := NewGateway(&scriptedProvider{}, testConfig(), WithUsageRecorder(failingRecorder{}))
	if _, err := g.Generate(context.Background(), Request{Prompt: "x"}); err != nil {
		t.Fatalf("usage failure must not fail generation: %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	if _, err := (Config{Provider: "openai"}).Validate(); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected missing model error, got %v", err)
	}
	if _, err := (Config{Provider: "openai", Model: "m", Temperature: 3}).Validate(); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected temperature error, got %v", err)
	}
	cfg, err := (Config{Provider: "openai", Model: "m"}).Validate()
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if cfg.Timeout != DefaultTimeout || cfg.MaxTokens != DefaultMaxTokens {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
}

func TestGatewayConfigIsACopy(t *testing.T) {
	g, _ := NewGateway(&scriptedProvider{}, testConfig())
	cfg := g.Config()
	cfg.Model = "mutated"
	if g.Config().Model != "fake-model" {
		t.Fatalf("gateway config mutated through copy")
	}
}

func TestBackoffHonoursRetryAfter(t *testing.T) {
	g, _ := NewGateway(&scriptedProvider{}, testConfig())
	g.jitter = func() float64 { return 0.5 }
	if d := g.backoff(1, &ProviderError{Kind: KindRateLimit, RetryAfter: time.Second}); d != time.Second {
		t.Fatalf("expected Retry-After to win, got %v", d)
	}
	if d := g.backoff(5, &ProviderError{Kind: KindServer}); d != 2*time.Millisecond {
		t.Fatalf("expected capped delay, got %v", d)
	}
}
