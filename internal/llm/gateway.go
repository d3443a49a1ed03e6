package llm

import (
	"context"
	"fmt"
	"time"

	"docbrain/internal/config"
	"docbrain/internal/model"
)

const (
	defaultMaxAttempts = 3 // 2 retries
	defaultRetryDelay  = 1 * time.Second
)

// SettingSource resolves the active chat-provider row. A nil row means no row
// is active and the builtin provider applies.
type SettingSource interface {
	ActiveLLMSetting(ctx context.Context) (*model.LLMSetting, error)
}

type completer interface {
	Complete(ctx context.Context, cfg ClientConfig, req Request) (string, error)
}

// Gateway normalizes requests across providers, retries transient failures
// and classifies exhausted errors into user-facing categories.
type Gateway struct {
	source      SettingSource
	client      completer
	builtin     config.LLMConfig
	maxAttempts int
	retryDelay  time.Duration
}

func NewGateway(source SettingSource, builtin config.LLMConfig) *Gateway {
	return &Gateway{
		source:      source,
		client:      NewOpenAICompatibleClient(),
		builtin:     builtin,
		maxAttempts: defaultMaxAttempts,
		retryDelay:  defaultRetryDelay,
	}
}

// Call resolves the provider, runs the completion with the retry policy and
// returns the raw completion text. Schema may be nil for free-form output.
func (g *Gateway) Call(ctx context.Context, messages []ChatMessage, taskType TaskType, schema *JSONSchema) (string, error) {
	cfg, err := g.resolveConfig(ctx, taskType)
	if err != nil {
		// Configuration problems are terminal; no attempt is made.
		return "", &CallError{Category: CategoryConfig, Message: userMessage(CategoryConfig, err), Err: err}
	}

	req := Request{Messages: messages, Schema: schema}

	var lastErr error
	for attempt := 0; attempt < g.maxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", wrapCallError(ctx.Err())
			case <-time.After(g.retryDelay):
			}
		}

		out, err := g.client.Complete(ctx, cfg, req)
		if err == nil {
			return out, nil
		}
		lastErr = err
		if !retryable(classify(err)) {
			break
		}
	}
	return "", wrapCallError(lastErr)
}

// resolveConfig loads the active setting row, falling back to the builtin
// provider when none is active. External providers without a stored key are
// a terminal configuration error; the builtin path uses compiled-in
// credentials and is not expected to fail this way.
func (g *Gateway) resolveConfig(ctx context.Context, taskType TaskType) (ClientConfig, error) {
	setting, err := g.source.ActiveLLMSetting(ctx)
	if err != nil {
		return ClientConfig{}, fmt.Errorf("resolve llm setting failed: %w", err)
	}

	if setting == nil || setting.Provider == model.ProviderBuiltin {
		return ClientConfig{
			Provider: model.ProviderBuiltin,
			BaseURL:  g.builtin.BaseURL,
			APIKey:   g.builtin.APIKey,
			Model:    g.builtin.Model,
		}, nil
	}

	key := setting.APIKey()
	if key == "" {
		return ClientConfig{}, ErrMissingAPIKey
	}

	modelName := setting.Model
	if override, ok := setting.TaskModelMap()[string(taskType)]; ok && override != "" {
		modelName = override
	}

	return ClientConfig{
		Provider: setting.Provider,
		BaseURL:  setting.BaseURL,
		APIKey:   key,
		Model:    modelName,
	}, nil
}
