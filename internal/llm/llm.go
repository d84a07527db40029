// Package llm is the provider gateway: a single entry point that sends a
// rendered prompt to the configured model provider with timeouts, retries,
// rate limiting and usage recording.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Mode selects what kind of output the caller expects.
type Mode string

const (
	ModeStructured Mode = "structured"
	ModeProse      Mode = "prose"
)

// Request is one generation call as seen by a Provider.
type Request struct {
	Prompt      string
	System      string
	Mode        Mode
	Model       string
	MaxTokens   int
	Temperature float64

	// OwnerID and Task are carried for usage accounting only.
	OwnerID string
	Task    string
}

// Completion is the raw provider output.
type Completion struct {
	Text             string
	Provider         string
	Model            string
	FinishReason     string
	PromptTokens     int
	CompletionTokens int
}

// Provider sends a single request to a model API. Implementations must honour
// ctx cancellation and report failures as *ProviderError.
type Provider interface {
	Name() string
	Generate(ctx context.Context, req Request) (Completion, error)
}

const (
	DefaultTimeout        = 30 * time.Second
	DefaultMaxRetries     = 3
	DefaultMaxTokens      = 2048
	DefaultRetryBaseDelay = 500 * time.Millisecond
	DefaultRetryMaxDelay  = 8 * time.Second
)

// Config is the provider configuration. It is built once at startup and
// copied into the Gateway, which never mutates it.
type Config struct {
	Provider          string
	Model             string
	MaxTokens         int
	Temperature       float64
	Timeout           time.Duration
	MaxRetries        int
	RequestsPerMinute int
	RetryBaseDelay    time.Duration
	RetryMaxDelay     time.Duration
}

// ErrInvalidConfig marks configuration that cannot be used.
var ErrInvalidConfig = errors.New("invalid llm config")

// Validate fills defaults and checks required fields.
func (c Config) Validate() (Config, error) {
	if strings.TrimSpace(c.Provider) == "" {
		return c, fmt.Errorf("%w: provider is required", ErrInvalidConfig)
	}
	if strings.TrimSpace(c.Model) == "" {
		return c, fmt.Errorf("%w: model is required", ErrInvalidConfig)
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return c, fmt.Errorf("%w: temperature %v out of range", ErrInvalidConfig, c.Temperature)
	}
	if c.MaxRetries < 0 {
		return c, fmt.Errorf("%w: max retries must not be negative", ErrInvalidConfig)
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = DefaultMaxTokens
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.RetryBaseDelay <= 0 {
		c.RetryBaseDelay = DefaultRetryBaseDelay
	}
	if c.RetryMaxDelay <= 0 {
		c.RetryMaxDelay = DefaultRetryMaxDelay
	}
	if c.RetryMaxDelay < c.RetryBaseDelay {
		c.RetryMaxDelay = c.RetryBaseDelay
	}
	return c, nil
}
