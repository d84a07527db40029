package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// ErrorKind classifies provider failures.
type ErrorKind string

const (
	KindAuth        ErrorKind = "auth"
	KindRateLimit   ErrorKind = "rate_limit"
	KindQuota       ErrorKind = "quota"
	KindTimeout     ErrorKind = "timeout"
	KindServer      ErrorKind = "server"
	KindUnavailable ErrorKind = "unavailable"
	KindBadRequest  ErrorKind = "bad_request"
	KindUnknown     ErrorKind = "unknown"
)

// ProviderError is the only error shape providers return.
type ProviderError struct {
	Provider   string
	Kind       ErrorKind
	StatusCode int
	RetryAfter time.Duration
	Message    string
	Err        error
}

func (e *ProviderError) Error() string {
	var b strings.Builder
	b.WriteString(e.Provider)
	b.WriteString(" ")
	b.WriteString(string(e.Kind))
	if e.StatusCode > 0 {
		fmt.Fprintf(&b, " (status %d)", e.StatusCode)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	} else if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Retryable reports whether another attempt may succeed.
func (e *ProviderError) Retryable() bool {
	switch e.Kind {
	case KindTimeout, KindRateLimit, KindServer, KindUnavailable:
		return true
	default:
		return false
	}
}

// KindOf returns the kind of a provider error, or KindUnknown.
func KindOf(err error) ErrorKind {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return KindUnknown
}

// ClassifyStatus maps an HTTP error response to a ProviderError.
func ClassifyStatus(provider string, status int, message string, header http.Header) *ProviderError {
	pe := &ProviderError{Provider: provider, StatusCode: status, Message: truncate(message, 512)}
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		pe.Kind = KindAuth
	case status == http.StatusTooManyRequests:
		pe.Kind = KindRateLimit
		if strings.Contains(strings.ToLower(message), "quota") {
			pe.Kind = KindQuota
		}
		pe.RetryAfter = parseRetryAfter(header)
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		pe.Kind = KindTimeout
	case status >= 500:
		pe.Kind = KindServer
		pe.RetryAfter = parseRetryAfter(header)
	case status >= 400:
		pe.Kind = KindBadRequest
	default:
		pe.Kind = KindUnknown
	}
	return pe
}

// ClassifyTransport maps a transport-level failure to a ProviderError.
func ClassifyTransport(provider string, err error) *ProviderError {
	if err == nil {
		return nil
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe
	}
	if errors.Is(err, context.DeadlineExceeded) || strings.Contains(err.Error(), "Client.Timeout") {
		return &ProviderError{Provider: provider, Kind: KindTimeout, Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &ProviderError{Provider: provider, Kind: KindTimeout, Err: err}
	}
	if errors.Is(err, context.Canceled) {
		return &ProviderError{Provider: provider, Kind: KindUnknown, Err: err}
	}
	return &ProviderError{Provider: provider, Kind: KindUnavailable, Err: err}
}

func parseRetryAfter(header http.Header) time.Duration {
	if header == nil {
		return 0
	}
	raw := strings.TrimSpace(header.Get("Retry-After"))
	if raw == "" {
		return 0
	}
	if secs, err := strconv.Atoi(raw); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(raw); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}
	return 0
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n]
}
