package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docbrain/internal/config"
	"docbrain/internal/model"
)

type fakeSource struct {
	setting *model.LLMSetting
	err     error
}

func (f *fakeSource) ActiveLLMSetting(ctx context.Context) (*model.LLMSetting, error) {
	return f.setting, f.err
}

type fakeCompleter struct {
	attempts int
	// errs are returned in order; once exhausted, out is returned.
	errs []error
	out  string
	cfgs []ClientConfig
}

func (f *fakeCompleter) Complete(ctx context.Context, cfg ClientConfig, req Request) (string, error) {
	f.cfgs = append(f.cfgs, cfg)
	f.attempts++
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		return "", err
	}
	return f.out, nil
}

func newTestGateway(source SettingSource, client completer) *Gateway {
	g := NewGateway(source, config.LLMConfig{
		BaseURL: "https://builtin.example/v1",
		APIKey:  "builtin-key",
		Model:   "builtin-model",
	})
	g.client = client
	g.retryDelay = time.Millisecond
	return g
}

func externalSetting() *model.LLMSetting {
	s := &model.LLMSetting{
		Provider: model.ProviderOpenAI,
		BaseURL:  "https://api.example/v1",
		Model:    "base-model",
		Active:   true,
	}
	s.SetAPIKey("sk-test")
	return s
}

func TestCallMissingKeyFailsWithoutAttempt(t *testing.T) {
	setting := &model.LLMSetting{Provider: model.ProviderOpenAI, BaseURL: "https://api.example/v1", Model: "m"}
	client := &fakeCompleter{}
	g := newTestGateway(&fakeSource{setting: setting}, client)

	_, err := g.Call(context.Background(), []ChatMessage{{Role: "user", Content: "hi"}}, TaskExploration, nil)

	var callErr *CallError
	require.ErrorAs(t, err, &callErr)
	assert.Equal(t, CategoryConfig, callErr.Category)
	assert.ErrorIs(t, err, ErrMissingAPIKey)
	assert.Equal(t, 0, client.attempts, "configuration errors must not reach the provider")
}

func TestCallInvalidKeyFailsAfterOneAttempt(t *testing.T) {
	client := &fakeCompleter{errs: []error{
		&httpError{Status: 401, Body: `{"error":"invalid api key"}`},
		&httpError{Status: 401, Body: `{"error":"invalid api key"}`},
		&httpError{Status: 401, Body: `{"error":"invalid api key"}`},
	}}
	g := newTestGateway(&fakeSource{setting: externalSetting()}, client)

	_, err := g.Call(context.Background(), []ChatMessage{{Role: "user", Content: "hi"}}, TaskExploration, nil)

	var callErr *CallError
	require.ErrorAs(t, err, &callErr)
	assert.Equal(t, CategoryUnauthorized, callErr.Category)
	assert.Equal(t, 1, client.attempts)
}

func TestCallRetriesTransientThenSucceeds(t *testing.T) {
	client := &fakeCompleter{
		errs: []error{
			&httpError{Status: 503, Body: "unavailable"},
			&httpError{Status: 429, Body: "slow down"},
		},
		out: "answer",
	}
	g := newTestGateway(&fakeSource{setting: externalSetting()}, client)

	out, err := g.Call(context.Background(), []ChatMessage{{Role: "user", Content: "hi"}}, TaskExploration, nil)

	require.NoError(t, err)
	assert.Equal(t, "answer", out)
	assert.Equal(t, 3, client.attempts)
}

func TestCallExhaustsTransientRetries(t *testing.T) {
	client := &fakeCompleter{errs: []error{
		&httpError{Status: 500, Body: "boom"},
		&httpError{Status: 500, Body: "boom"},
		&httpError{Status: 500, Body: "boom"},
		&httpError{Status: 500, Body: "boom"},
	}}
	g := newTestGateway(&fakeSource{setting: externalSetting()}, client)

	_, err := g.Call(context.Background(), []ChatMessage{{Role: "user", Content: "hi"}}, TaskMerge, nil)

	var callErr *CallError
	require.ErrorAs(t, err, &callErr)
	assert.Equal(t, CategoryUpstreamUnavailable, callErr.Category)
	assert.Equal(t, 3, client.attempts, "2 retries means 3 attempts total")
}

func TestCallFallsBackToBuiltinProvider(t *testing.T) {
	client := &fakeCompleter{out: "ok"}
	g := newTestGateway(&fakeSource{setting: nil}, client)

	_, err := g.Call(context.Background(), []ChatMessage{{Role: "user", Content: "hi"}}, TaskExploration, nil)

	require.NoError(t, err)
	require.Len(t, client.cfgs, 1)
	assert.Equal(t, model.ProviderBuiltin, client.cfgs[0].Provider)
	assert.Equal(t, "https://builtin.example/v1", client.cfgs[0].BaseURL)
	assert.Equal(t, "builtin-model", client.cfgs[0].Model)
}

func TestCallUsesTaskModelOverride(t *testing.T) {
	setting := externalSetting()
	setting.SetTaskModelMap(map[string]string{string(TaskMerge): "merge-model"})
	client := &fakeCompleter{out: "ok"}
	g := newTestGateway(&fakeSource{setting: setting}, client)

	_, err := g.Call(context.Background(), []ChatMessage{{Role: "user", Content: "hi"}}, TaskMerge, nil)
	require.NoError(t, err)
	require.Len(t, client.cfgs, 1)
	assert.Equal(t, "merge-model", client.cfgs[0].Model)

	// Other tasks keep the provider default.
	_, err = g.Call(context.Background(), []ChatMessage{{Role: "user", Content: "hi"}}, TaskExploration, nil)
	require.NoError(t, err)
	assert.Equal(t, "base-model", client.cfgs[1].Model)
}

func TestCallSettingSourceErrorIsTerminal(t *testing.T) {
	client := &fakeCompleter{}
	g := newTestGateway(&fakeSource{err: errors.New("db down")}, client)

	_, err := g.Call(context.Background(), []ChatMessage{{Role: "user", Content: "hi"}}, TaskExploration, nil)

	var callErr *CallError
	require.ErrorAs(t, err, &callErr)
	assert.Equal(t, CategoryConfig, callErr.Category)
	assert.Equal(t, 0, client.attempts)
}
