package generation

import (
	"context"
	"errors"
	"net/http"

	"jobtracker-backend/internal/extraction"
	"jobtracker-backend/internal/llm"
	"jobtracker-backend/internal/modifications"
	"jobtracker-backend/internal/prompts"
	"jobtracker-backend/internal/sources"
	"jobtracker-backend/internal/versions"
)

// Code is the fixed set of failures a document service reports.
type Code string

const (
	CodeConfiguration       Code = "CONFIGURATION_ERROR"
	CodeTemplateNotFound    Code = "TEMPLATE_NOT_FOUND"
	CodeProviderAuth        Code = "PROVIDER_AUTH"
	CodeProviderRateLimit   Code = "PROVIDER_RATE_LIMIT"
	CodeProviderTimeout     Code = "PROVIDER_TIMEOUT"
	CodeProviderUnavailable Code = "PROVIDER_UNAVAILABLE"
	CodeResponseParse       Code = "RESPONSE_PARSE"
	CodeContentValidation   Code = "CONTENT_VALIDATION"
	CodeVersionConflict     Code = "VERSION_CONFLICT"
	CodeNotFound            Code = "NOT_FOUND"
	CodeInvalidInput        Code = "INVALID_INPUT"
	CodeInternal            Code = "INTERNAL"
)

// Error is the structured failure returned by document services. Raw holds
// unparseable provider output for diagnostics and is never serialized.
type Error struct {
	Code      Code   `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
	Bound     string `json:"bound,omitempty"`
	Raw       string `json:"-"`
	Err       error  `json:"-"`
}

func (e *Error) Error() string {
	if e.Err != nil {
		return string(e.Code) + ": " + e.Err.Error()
	}
	return string(e.Code) + ": " + e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// HTTPStatus maps the code to a response status.
func (e *Error) HTTPStatus() int {
	switch e.Code {
	case CodeTemplateNotFound, CodeNotFound:
		return http.StatusNotFound
	case CodeInvalidInput:
		return http.StatusBadRequest
	case CodeContentValidation:
		return http.StatusUnprocessableEntity
	case CodeVersionConflict:
		return http.StatusConflict
	case CodeProviderRateLimit:
		return http.StatusTooManyRequests
	case CodeProviderTimeout:
		return http.StatusGatewayTimeout
	case CodeProviderAuth, CodeProviderUnavailable, CodeResponseParse:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Translate maps any error from the generation pipeline onto the taxonomy.
// It returns nil for nil and is idempotent.
func Translate(err error) *Error {
	if err == nil {
		return nil
	}
	var ge *Error
	if errors.As(err, &ge) {
		return ge
	}

	var (
		pe *llm.ProviderError
		xe *extraction.ParseError
		ce *extraction.ContentError
		me *modifications.ValidationError
	)
	switch {
	case errors.As(err, &pe):
		return translateProvider(pe)
	case errors.As(err, &xe):
		return &Error{Code: CodeResponseParse, Message: "provider response could not be parsed", Raw: xe.Raw, Err: err}
	case errors.As(err, &ce):
		return &Error{Code: CodeContentValidation, Message: ce.Error(), Bound: ce.Bound, Err: err}
	case errors.As(err, &me):
		return &Error{Code: CodeContentValidation, Message: me.Error(), Bound: me.Bound, Err: err}
	case errors.Is(err, context.DeadlineExceeded):
		return &Error{Code: CodeProviderTimeout, Message: "generation timed out", Retryable: true, Err: err}
	case errors.Is(err, context.Canceled):
		return &Error{Code: CodeInternal, Message: "generation canceled", Retryable: true, Err: err}
	case errors.Is(err, prompts.ErrTemplateNotFound):
		return &Error{Code: CodeTemplateNotFound, Message: "template not found", Err: err}
	case errors.Is(err, prompts.ErrNoSystemDefault), errors.Is(err, llm.ErrInvalidConfig):
		return &Error{Code: CodeConfiguration, Message: "generation is not configured", Err: err}
	case errors.Is(err, versions.ErrVersionConflict):
		return &Error{Code: CodeVersionConflict, Message: "concurrent version update, try again", Retryable: true, Err: err}
	case errors.Is(err, versions.ErrNotFound), errors.Is(err, sources.ErrNotFound), errors.Is(err, prompts.ErrNotFound):
		return &Error{Code: CodeNotFound, Message: "not found", Err: err}
	case errors.Is(err, versions.ErrInvalidInput), errors.Is(err, prompts.ErrInvalidInput),
		errors.Is(err, sources.ErrNoContent), errors.Is(err, ErrInvalidInput):
		return &Error{Code: CodeInvalidInput, Message: err.Error(), Err: err}
	default:
		return &Error{Code: CodeInternal, Message: "internal error", Err: err}
	}
}

func translateProvider(pe *llm.ProviderError) *Error {
	out := &Error{Err: pe, Retryable: pe.Retryable()}
	switch pe.Kind {
	case llm.KindAuth:
		out.Code, out.Message = CodeProviderAuth, "provider rejected credentials"
	case llm.KindRateLimit, llm.KindQuota:
		out.Code, out.Message = CodeProviderRateLimit, "provider rate limit reached"
	case llm.KindTimeout:
		out.Code, out.Message = CodeProviderTimeout, "provider timed out"
	case llm.KindBadRequest:
		out.Code, out.Message = CodeInvalidInput, "provider rejected the request"
	default:
		out.Code, out.Message = CodeProviderUnavailable, "provider unavailable"
	}
	return out
}

// ErrInvalidInput marks caller mistakes detected by document services.
var ErrInvalidInput = errors.New("invalid input")
