package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "")
	t.Setenv("LLM_TIMEOUT_SECONDS", "")
	t.Setenv("LLM_MAX_RETRIES", "")
	t.Setenv("CONTENT_MAX_STRUCTURED_BYTES", "")

	cfg := Load()
	if cfg.LLM.Provider != "openai" {
		t.Fatalf("expected openai default, got %q", cfg.LLM.Provider)
	}
	if cfg.LLM.Timeout != 30*time.Second {
		t.Fatalf("expected 30s timeout, got %v", cfg.LLM.Timeout)
	}
	if cfg.LLM.MaxRetries != 3 {
		t.Fatalf("expected 3 retries, got %d", cfg.LLM.MaxRetries)
	}
	if cfg.Content.MaxStructuredBytes != 51200 {
		t.Fatalf("expected 50KB ceiling, got %d", cfg.Content.MaxStructuredBytes)
	}
}

func TestLoadProviderOverrides(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "Claude")
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant")
	t.Setenv("LLM_TIMEOUT_SECONDS", "5")
	t.Setenv("LLM_MAX_RETRIES", "bogus")

	cfg := Load()
	if cfg.LLM.Provider != "anthropic" {
		t.Fatalf("expected anthropic, got %q", cfg.LLM.Provider)
	}
	if cfg.LLM.APIKey() != "sk-ant" {
		t.Fatalf("expected anthropic key, got %q", cfg.LLM.APIKey())
	}
	if cfg.LLM.Timeout != 5*time.Second {
		t.Fatalf("expected 5s, got %v", cfg.LLM.Timeout)
	}
	if cfg.LLM.MaxRetries != 3 {
		t.Fatalf("invalid value should fall back to default, got %d", cfg.LLM.MaxRetries)
	}
}

func TestNormalizeEnv(t *testing.T) {
	cases := map[string]string{"prod": "production", "Staging": "staging", "": "dev", "local": "local"}
	for in, want := range cases {
		if got := normalizeEnv(in); got != want {
			t.Fatalf("normalizeEnv(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestLoadDatabasePool(t *testing.T) {
	t.Setenv("DB_MAX_OPEN_CONNS", "7")
	t.Setenv("DB_CONN_MAX_LIFETIME", "20m")
	t.Setenv("DB_PING_TIMEOUT", "nope")
	t.Setenv("DB_CONNECT_ATTEMPTS", "")

	db := Load().DB
	if db.MaxOpenConns != 7 || db.ConnMaxLifetime != 20*time.Minute {
		t.Fatalf("overrides not applied: %+v", db)
	}
	if db.ConnectTimeout != 5*time.Second {
		t.Fatalf("invalid duration should fall back, got %v", db.ConnectTimeout)
	}
	if db.ConnectAttempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", db.ConnectAttempts)
	}
}

func TestLoadTracing(t *testing.T) {
	t.Setenv("OTEL_ENABLED", "true")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "collector:4318")
	t.Setenv("OTEL_SAMPLER_RATIO", "")
	t.Setenv("OTEL_SERVICE_NAME", "")

	tr := Load().Tracing
	if !tr.Enabled || tr.Endpoint != "collector:4318" {
		t.Fatalf("unexpected tracing config: %+v", tr)
	}
	if tr.SampleRatio != 0.1 || tr.ServiceName != "jobtracker-api" {
		t.Fatalf("defaults not applied: %+v", tr)
	}
}
