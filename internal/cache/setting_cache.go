package cache

import (
	"context"
	"encoding/json"
	"log"
	"time"

	redisv9 "github.com/redis/go-redis/v9"

	"docbrain/internal/model"
)

const (
	llmSettingKey       = "setting:llm:active"
	embeddingSettingKey = "setting:embedding:active"
	// absentMarker caches "no active row" so misses do not hit mysql on
	// every pipeline call.
	absentMarker = "null"
)

// SettingSource is the underlying resolver, normally the setting repository.
type SettingSource interface {
	ActiveLLMSetting(ctx context.Context) (*model.LLMSetting, error)
	ActiveEmbeddingSetting(ctx context.Context) (*model.EmbeddingSetting, error)
}

// SettingCache caches the active provider rows in redis with a short TTL.
// It satisfies llm.SettingSource and embedding.SettingSource. Cache failures
// degrade to the underlying source, never to an error.
type SettingCache struct {
	client *redisv9.Client
	source SettingSource
	ttl    time.Duration
}

func NewSettingCache(client *redisv9.Client, source SettingSource, ttl time.Duration) *SettingCache {
	if ttl <= 0 {
		ttl = 60 * time.Second
	}
	return &SettingCache{client: client, source: source, ttl: ttl}
}

func (c *SettingCache) ActiveLLMSetting(ctx context.Context) (*model.LLMSetting, error) {
	var cached model.LLMSetting
	hit, absent := c.lookup(ctx, llmSettingKey, &cached)
	if absent {
		return nil, nil
	}
	if hit {
		return &cached, nil
	}

	setting, err := c.source.ActiveLLMSetting(ctx)
	if err != nil {
		return nil, err
	}
	c.store(ctx, llmSettingKey, setting)
	return setting, nil
}

func (c *SettingCache) ActiveEmbeddingSetting(ctx context.Context) (*model.EmbeddingSetting, error) {
	var cached model.EmbeddingSetting
	hit, absent := c.lookup(ctx, embeddingSettingKey, &cached)
	if absent {
		return nil, nil
	}
	if hit {
		return &cached, nil
	}

	setting, err := c.source.ActiveEmbeddingSetting(ctx)
	if err != nil {
		return nil, err
	}
	c.store(ctx, embeddingSettingKey, setting)
	return setting, nil
}

// Invalidate drops both cached rows, called after a setting update.
func (c *SettingCache) Invalidate(ctx context.Context) {
	if err := c.client.Del(ctx, llmSettingKey, embeddingSettingKey).Err(); err != nil {
		log.Printf("invalidate setting cache failed: %v", err)
	}
}

func (c *SettingCache) lookup(ctx context.Context, key string, out interface{}) (hit, absent bool) {
	raw, err := c.client.Get(ctx, key).Result()
	if err == redisv9.Nil {
		return false, false
	}
	if err != nil {
		log.Printf("setting cache get failed: %v", err)
		return false, false
	}
	if raw == absentMarker {
		return false, true
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		log.Printf("setting cache decode failed: %v", err)
		return false, false
	}
	return true, false
}

func (c *SettingCache) store(ctx context.Context, key string, setting interface{}) {
	payload := absentMarker
	if setting != nil && !isNilPointer(setting) {
		b, err := json.Marshal(setting)
		if err != nil {
			log.Printf("setting cache encode failed: %v", err)
			return
		}
		payload = string(b)
	}
	if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		log.Printf("setting cache set failed: %v", err)
	}
}

func isNilPointer(v interface{}) bool {
	switch s := v.(type) {
	case *model.LLMSetting:
		return s == nil
	case *model.EmbeddingSetting:
		return s == nil
	default:
		return false
	}
}
