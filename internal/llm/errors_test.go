package llm

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Category
	}{
		{"deadline exceeded", context.DeadlineExceeded, CategoryTimeout},
		{"401", &httpError{Status: 401, Body: "bad key"}, CategoryUnauthorized},
		{"403", &httpError{Status: 403, Body: "forbidden"}, CategoryUnauthorized},
		{"402", &httpError{Status: 402, Body: "pay up"}, CategoryInsufficientBalance},
		{"quota body", &httpError{Status: 400, Body: "insufficient quota remaining"}, CategoryInsufficientBalance},
		{"404", &httpError{Status: 404, Body: "nope"}, CategoryModelNotFound},
		{"model body", &httpError{Status: 400, Body: "model_not_found: gpt-x"}, CategoryModelNotFound},
		{"429", &httpError{Status: 429, Body: "slow down"}, CategoryRateLimited},
		{"408", &httpError{Status: 408, Body: ""}, CategoryTimeout},
		{"500", &httpError{Status: 500, Body: "oops"}, CategoryUpstreamUnavailable},
		{"503", &httpError{Status: 503, Body: "oops"}, CategoryUpstreamUnavailable},
		{"connection refused", errors.New("dial tcp: connection refused"), CategoryUpstreamUnavailable},
		{"client timeout", errors.New("Client.Timeout exceeded while awaiting headers"), CategoryTimeout},
		{"unknown", errors.New("something odd"), CategoryGeneric},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classify(tt.err))
		})
	}
}

func TestRetryableOnlyTransient(t *testing.T) {
	assert.True(t, retryable(CategoryTimeout))
	assert.True(t, retryable(CategoryRateLimited))
	assert.True(t, retryable(CategoryUpstreamUnavailable))

	assert.False(t, retryable(CategoryUnauthorized))
	assert.False(t, retryable(CategoryInsufficientBalance))
	assert.False(t, retryable(CategoryModelNotFound))
	assert.False(t, retryable(CategoryConfig))
	assert.False(t, retryable(CategoryGeneric))
}

func TestUserMessageHidesRawBody(t *testing.T) {
	raw := &httpError{Status: 401, Body: strings.Repeat("secret upstream detail ", 50)}
	callErr := wrapCallError(raw)

	assert.Equal(t, CategoryUnauthorized, callErr.Category)
	assert.NotContains(t, callErr.Message, "secret upstream detail")
}

func TestGenericMessageTruncatesRawError(t *testing.T) {
	callErr := wrapCallError(errors.New(strings.Repeat("x", 1000)))

	assert.Equal(t, CategoryGeneric, callErr.Category)
	assert.LessOrEqual(t, len(callErr.Message), rawErrorLimit+len("model call failed: ")+3)
}
