package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies a request failure for standardized handling.
// Retry and fallback decisions are a pattern match on the kind instead of
// probing arbitrary error values for status fields.
type ErrorKind int

const (
	// KindUnknown indicates an error of an undetermined category.
	KindUnknown ErrorKind = iota
	// KindNetwork indicates a client-side connectivity problem.
	KindNetwork
	// KindRateLimited indicates the provider rejected the call with HTTP 429.
	KindRateLimited
	// KindServerError indicates a 5xx failure on the provider's end.
	KindServerError
	// KindClientError indicates a non-retryable 4xx failure.
	KindClientError
	// KindTimeout indicates the deadline guard fired before the call finished.
	KindTimeout
	// KindModelUnavailable indicates the model cannot serve requests right
	// now: unknown, overloaded, or out of quota. The fallback router treats
	// this kind as a signal to try the next candidate.
	KindModelUnavailable
)

// String returns a human-readable kind name.
func (k ErrorKind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindRateLimited:
		return "rate_limited"
	case KindServerError:
		return "server_error"
	case KindClientError:
		return "client_error"
	case KindTimeout:
		return "timeout"
	case KindModelUnavailable:
		return "model_unavailable"
	default:
		return "unknown"
	}
}

// RequestError is the structured error produced by the orchestration layer
// and its provider callers. It normalizes provider-specific failures into a
// tagged variant carrying the HTTP status when one exists.
type RequestError struct {
	// Kind classifies the failure.
	Kind ErrorKind
	// Model names the model the failed call targeted, when known.
	Model string
	// Status holds the HTTP status code from the provider, if applicable.
	Status int
	// Message is the provider's or guard's description of the failure.
	Message string
	// Err holds the underlying error for errors.Is/As chains.
	Err error
}

// Error satisfies the error interface.
func (e *RequestError) Error() string {
	base := e.Kind.String() + " error"
	if e.Model != "" {
		base += " (model " + e.Model + ")"
	}
	if e.Status > 0 {
		base += fmt.Sprintf(" (HTTP %d)", e.Status)
	}
	if e.Message != "" {
		base += ": " + e.Message
	}
	if e.Err != nil {
		base += fmt.Sprintf(": %v", e.Err)
	}
	return base
}

// Unwrap returns the underlying error.
func (e *RequestError) Unwrap() error { return e.Err }

// Retryable reports whether the failure is transient enough that repeating
// the call may succeed. Client errors other than 429 are never retried.
func (e *RequestError) Retryable() bool {
	switch e.Kind {
	case KindNetwork, KindRateLimited, KindServerError, KindTimeout:
		return true
	default:
		return false
	}
}

// ClassifyHTTP builds a RequestError from an HTTP status code.
// 429 maps to rate limiting, 5xx to server errors, remaining 4xx to
// client errors.
func ClassifyHTTP(model string, status int, message string, cause error) *RequestError {
	kind := KindUnknown
	switch {
	case status == 429:
		kind = KindRateLimited
	case status == 404:
		kind = KindModelUnavailable
	case status >= 500:
		kind = KindServerError
	case status >= 400:
		kind = KindClientError
	}
	return &RequestError{Kind: kind, Model: model, Status: status, Message: message, Err: cause}
}

// classifyContext maps context errors onto kinds: a deadline becomes a
// timeout, a cancellation a network-class failure.
func classifyContext(model string, err error) *RequestError {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &RequestError{Kind: KindTimeout, Model: model, Message: "deadline exceeded", Err: err}
	case errors.Is(err, context.Canceled):
		return &RequestError{Kind: KindNetwork, Model: model, Message: "request canceled", Err: err}
	default:
		return &RequestError{Kind: KindUnknown, Model: model, Err: err}
	}
}

// retryablePatterns are message fragments that mark a failure as transient
// when no structured classification is available.
var retryablePatterns = []string{
	"rate limit", "too many requests", "timeout", "connection refused",
	"connection reset", "temporary failure", "service unavailable",
	"internal server error", "bad gateway", "gateway timeout", "network",
}

// unavailablePatterns are message fragments that mark a model as unable to
// serve requests right now, prompting the fallback router to move on.
var unavailablePatterns = []string{
	"overload", "quota", "not found", "unavailable", "exhausted", "capacity",
}

// IsRetryable reports whether an arbitrary error should be retried.
// Structured RequestErrors decide by kind; context deadlines are retryable
// because each retry attempt gets a fresh deadline; anything else falls back
// to message inspection.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr.Retryable()
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, context.Canceled) {
		return false
	}

	return matchesAny(err.Error(), retryablePatterns)
}

// IsModelUnavailable reports whether a failure means the targeted model
// cannot serve requests right now. HTTP 404, 429, and 503 all count, as do
// overload and quota messages, matching how providers signal saturation.
func IsModelUnavailable(err error) bool {
	if err == nil {
		return false
	}

	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		if reqErr.Kind == KindModelUnavailable || reqErr.Kind == KindRateLimited {
			return true
		}
		switch reqErr.Status {
		case 404, 429, 503:
			return true
		}
		return matchesAny(reqErr.Message, unavailablePatterns)
	}

	return matchesAny(err.Error(), unavailablePatterns)
}

func matchesAny(msg string, patterns []string) bool {
	msg = strings.ToLower(msg)
	for _, p := range patterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}
