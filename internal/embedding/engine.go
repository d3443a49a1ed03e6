// Package embedding generates chunk vectors through an OpenAI-compatible
// /embeddings endpoint and scores them with cosine similarity.
package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"sort"
	"strings"
	"time"

	"docbrain/internal/config"
	"docbrain/internal/model"
)

const (
	defaultBatchSize = 100
	// maxInputRunes bounds token usage per embedded text.
	maxInputRunes = 6000
)

// SettingSource resolves the active embedding-provider row; nil means no row
// is active and the builtin provider applies.
type SettingSource interface {
	ActiveEmbeddingSetting(ctx context.Context) (*model.EmbeddingSetting, error)
}

// Result is one embedded text.
type Result struct {
	Vector    []float32 `json:"vector"`
	Model     string    `json:"model"`
	Dimension int       `json:"dimension"`
}

type resolvedConfig struct {
	BaseURL    string
	APIKey     string
	Model      string
	Dimensions int
}

// Engine batches embedding requests against the resolved provider.
type Engine struct {
	source     SettingSource
	httpClient *http.Client
	builtin    config.EmbeddingConfig
	batchSize  int
}

func NewEngine(source SettingSource, builtin config.EmbeddingConfig, batchSize int) *Engine {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &Engine{
		source:     source,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		builtin:    builtin,
		batchSize:  batchSize,
	}
}

// Embed returns one result per input text, in input order. Texts are
// truncated to bound token usage and sent in fixed-size batches.
func (e *Engine) Embed(ctx context.Context, texts []string) ([]Result, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	cfg := e.resolveConfig(ctx)

	inputs := make([]string, len(texts))
	for i, t := range texts {
		t = truncateRunes(strings.TrimSpace(t), maxInputRunes)
		if t == "" {
			// Keep 1:1 correspondence with the input; providers reject
			// empty strings.
			t = " "
		}
		inputs[i] = t
	}

	results := make([]Result, 0, len(inputs))
	for start := 0; start < len(inputs); start += e.batchSize {
		end := start + e.batchSize
		if end > len(inputs) {
			end = len(inputs)
		}
		batch, err := e.embedBatch(ctx, cfg, inputs[start:end])
		if err != nil {
			return nil, err
		}
		results = append(results, batch...)
	}
	if len(results) != len(texts) {
		return nil, fmt.Errorf("embedding count mismatch: got %d for %d texts", len(results), len(texts))
	}
	return results, nil
}

// resolveConfig mirrors the chat gateway's resolution but degrades silently:
// an external provider without a stored key falls back to the builtin
// provider so semantic features stay available without configuration.
func (e *Engine) resolveConfig(ctx context.Context) resolvedConfig {
	builtin := resolvedConfig{
		BaseURL:    e.builtin.BaseURL,
		APIKey:     e.builtin.APIKey,
		Model:      e.builtin.Model,
		Dimensions: e.builtin.Dimensions,
	}

	setting, err := e.source.ActiveEmbeddingSetting(ctx)
	if err != nil {
		log.Printf("resolve embedding setting failed, using builtin: %v", err)
		return builtin
	}
	if setting == nil || setting.Provider == model.ProviderBuiltin {
		return builtin
	}

	key := setting.APIKey()
	if key == "" {
		log.Printf("embedding provider %q has no api key, using builtin", setting.Provider)
		return builtin
	}

	return resolvedConfig{
		BaseURL:    setting.BaseURL,
		APIKey:     key,
		Model:      setting.Model,
		Dimensions: setting.Dimensions,
	}
}

func (e *Engine) embedBatch(ctx context.Context, cfg resolvedConfig, inputs []string) ([]Result, error) {
	body := map[string]interface{}{
		"model": cfg.Model,
		"input": inputs,
	}
	if cfg.Dimensions > 0 {
		body["dimensions"] = cfg.Dimensions
	}
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal embedding request failed: %w", err)
	}

	url := strings.TrimRight(cfg.BaseURL, "/") + "/embeddings"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("build embedding request failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+cfg.APIKey)
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read embedding response failed: %w", err)
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("embedding response status %d: %s", resp.StatusCode, truncateRunes(string(raw), 200))
	}

	var parsed struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
			Index     int       `json:"index"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("parse embedding json failed: %w", err)
	}
	if len(parsed.Data) != len(inputs) {
		return nil, fmt.Errorf("embedding batch size mismatch: got %d for %d inputs", len(parsed.Data), len(inputs))
	}

	// Providers may return entries out of order; the index field is the
	// contract for input correspondence.
	sort.Slice(parsed.Data, func(i, j int) bool {
		return parsed.Data[i].Index < parsed.Data[j].Index
	})

	results := make([]Result, len(parsed.Data))
	for i, d := range parsed.Data {
		if len(d.Embedding) == 0 {
			return nil, fmt.Errorf("empty embedding at index %d", d.Index)
		}
		results[i] = Result{
			Vector:    d.Embedding,
			Model:     cfg.Model,
			Dimension: len(d.Embedding),
		}
	}
	return results, nil
}

func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
