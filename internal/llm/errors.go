package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// Category buckets a provider failure into one user-facing class.
type Category string

const (
	CategoryConfig              Category = "config"
	CategoryTimeout             Category = "timeout"
	CategoryRateLimited         Category = "rate_limited"
	CategoryUnauthorized        Category = "unauthorized"
	CategoryInsufficientBalance Category = "insufficient_balance"
	CategoryUpstreamUnavailable Category = "upstream_unavailable"
	CategoryModelNotFound       Category = "model_not_found"
	CategoryGeneric             Category = "generic"
)

// ErrMissingAPIKey marks a terminal configuration error: an external provider
// is selected but no usable key is stored. Never retried.
var ErrMissingAPIKey = errors.New("llm provider has no api key configured")

const rawErrorLimit = 200

// CallError is the classified outcome of an exhausted call. Message is
// human-readable and provider-agnostic; the raw upstream error stays wrapped.
type CallError struct {
	Category Category
	Message  string
	Err      error
}

func (e *CallError) Error() string {
	return fmt.Sprintf("llm call failed (%s): %s", e.Category, e.Message)
}

func (e *CallError) Unwrap() error { return e.Err }

// httpError carries a non-2xx provider response for classification.
type httpError struct {
	Status int
	Body   string
}

func (e *httpError) Error() string {
	return fmt.Sprintf("llm response status %d: %s", e.Status, truncate(e.Body, rawErrorLimit))
}

// classify maps a raw call error onto a category.
func classify(err error) Category {
	if err == nil {
		return CategoryGeneric
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return CategoryTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return CategoryTimeout
	}

	var he *httpError
	if errors.As(err, &he) {
		body := strings.ToLower(he.Body)
		switch {
		case he.Status == 401 || he.Status == 403:
			return CategoryUnauthorized
		case he.Status == 402 || strings.Contains(body, "insufficient") || strings.Contains(body, "quota") || strings.Contains(body, "balance"):
			return CategoryInsufficientBalance
		case he.Status == 404 || strings.Contains(body, "model_not_found") || strings.Contains(body, "does not exist"):
			return CategoryModelNotFound
		case he.Status == 429:
			return CategoryRateLimited
		case he.Status == 408:
			return CategoryTimeout
		case he.Status >= 500:
			return CategoryUpstreamUnavailable
		}
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline") {
		return CategoryTimeout
	}
	if strings.Contains(msg, "connection refused") || strings.Contains(msg, "no such host") {
		return CategoryUpstreamUnavailable
	}
	return CategoryGeneric
}

// retryable reports whether a category is worth another attempt. Only
// transient upstream failures are; auth, balance and model errors never
// resolve on their own.
func retryable(cat Category) bool {
	switch cat {
	case CategoryTimeout, CategoryRateLimited, CategoryUpstreamUnavailable:
		return true
	default:
		return false
	}
}

func userMessage(cat Category, err error) string {
	switch cat {
	case CategoryConfig:
		return "LLM provider is not configured; set an API key in the provider settings"
	case CategoryTimeout:
		return "the model took too long to respond; please try again"
	case CategoryRateLimited:
		return "the provider is rate limiting requests; please retry shortly"
	case CategoryUnauthorized:
		return "the provider rejected the API key; check the provider settings"
	case CategoryInsufficientBalance:
		return "the provider account has insufficient balance"
	case CategoryUpstreamUnavailable:
		return "the model provider is temporarily unavailable"
	case CategoryModelNotFound:
		return "the configured model does not exist at this provider"
	default:
		return "model call failed: " + truncate(err.Error(), rawErrorLimit)
	}
}

// wrapCallError turns an exhausted raw error into its user-facing form.
func wrapCallError(err error) *CallError {
	cat := classify(err)
	return &CallError{Category: cat, Message: userMessage(cat, err), Err: err}
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}
