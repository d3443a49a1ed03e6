package app

import (
	"context"
	"fmt"
	"strings"

	"docbrain/internal/model"
)

type settingStore interface {
	ActiveLLMSetting(ctx context.Context) (*model.LLMSetting, error)
	ActiveEmbeddingSetting(ctx context.Context) (*model.EmbeddingSetting, error)
	SaveLLMSetting(ctx context.Context, setting *model.LLMSetting) error
	SaveEmbeddingSetting(ctx context.Context, setting *model.EmbeddingSetting) error
}

type settingInvalidator interface {
	Invalidate(ctx context.Context)
}

// SettingService manages the active provider rows. Saving a row deactivates
// the previous one and drops the cached copy so the pipeline picks the new
// provider up within one call.
type SettingService struct {
	store settingStore
	cache settingInvalidator
}

func NewSettingService(store settingStore, cache settingInvalidator) *SettingService {
	return &SettingService{store: store, cache: cache}
}

// Settings is the current provider view. API keys never leave the service;
// the setting models exclude them from JSON.
type Settings struct {
	LLM       *model.LLMSetting       `json:"llm"`
	Embedding *model.EmbeddingSetting `json:"embedding"`
}

func (s *SettingService) Get(ctx context.Context) (*Settings, error) {
	llmSetting, err := s.store.ActiveLLMSetting(ctx)
	if err != nil {
		return nil, err
	}
	embSetting, err := s.store.ActiveEmbeddingSetting(ctx)
	if err != nil {
		return nil, err
	}
	return &Settings{LLM: llmSetting, Embedding: embSetting}, nil
}

type UpdateLLMSettingInput struct {
	Provider   string
	BaseURL    string
	APIKey     string
	Model      string
	TaskModels map[string]string
}

func (s *SettingService) UpdateLLM(ctx context.Context, input UpdateLLMSettingInput) (*model.LLMSetting, error) {
	provider, err := validateProvider(input.Provider)
	if err != nil {
		return nil, err
	}
	if provider != model.ProviderBuiltin {
		if strings.TrimSpace(input.BaseURL) == "" || strings.TrimSpace(input.Model) == "" {
			return nil, fmt.Errorf("external provider needs base_url and model: %w", ErrInvalidInput)
		}
	}

	setting := &model.LLMSetting{
		Provider: provider,
		BaseURL:  strings.TrimSpace(input.BaseURL),
		Model:    strings.TrimSpace(input.Model),
	}
	setting.SetAPIKey(strings.TrimSpace(input.APIKey))
	setting.SetTaskModelMap(input.TaskModels)

	if err := s.store.SaveLLMSetting(ctx, setting); err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx)
	return setting, nil
}

type UpdateEmbeddingSettingInput struct {
	Provider   string
	BaseURL    string
	APIKey     string
	Model      string
	Dimensions int
}

func (s *SettingService) UpdateEmbedding(ctx context.Context, input UpdateEmbeddingSettingInput) (*model.EmbeddingSetting, error) {
	provider, err := validateProvider(input.Provider)
	if err != nil {
		return nil, err
	}
	if provider != model.ProviderBuiltin {
		if strings.TrimSpace(input.BaseURL) == "" || strings.TrimSpace(input.Model) == "" {
			return nil, fmt.Errorf("external provider needs base_url and model: %w", ErrInvalidInput)
		}
	}
	if input.Dimensions < 0 {
		return nil, fmt.Errorf("dimensions must be non-negative: %w", ErrInvalidInput)
	}

	setting := &model.EmbeddingSetting{
		Provider:   provider,
		BaseURL:    strings.TrimSpace(input.BaseURL),
		Model:      strings.TrimSpace(input.Model),
		Dimensions: input.Dimensions,
	}
	setting.SetAPIKey(strings.TrimSpace(input.APIKey))

	if err := s.store.SaveEmbeddingSetting(ctx, setting); err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx)
	return setting, nil
}

func validateProvider(provider string) (string, error) {
	provider = strings.ToLower(strings.TrimSpace(provider))
	switch provider {
	case model.ProviderBuiltin, model.ProviderOpenAI, model.ProviderOpenRouter, model.ProviderDeepSeek:
		return provider, nil
	default:
		return "", fmt.Errorf("unknown provider %q: %w", provider, ErrInvalidInput)
	}
}
