package model

import (
	"encoding/base64"
	"encoding/json"
	"time"
)

// Provider identifiers. "builtin" delegates to the credentials compiled into
// the service configuration; everything else requires a stored API key.
const (
	ProviderBuiltin    = "builtin"
	ProviderOpenAI     = "openai"
	ProviderOpenRouter = "openrouter"
	ProviderDeepSeek   = "deepseek"
)

// LLMSetting is the active chat-provider row. At most one row has Active set;
// resolution falls back to the builtin provider when none does.
type LLMSetting struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Provider   string    `gorm:"size:32;not null" json:"provider"`
	BaseURL    string    `gorm:"size:512;not null" json:"base_url"`
	APIKeyEnc  string    `gorm:"size:1024" json:"-"`
	Model      string    `gorm:"size:128;not null" json:"model"`
	TaskModels string    `gorm:"type:text" json:"-"` // JSON map of task type -> model
	Active     bool      `gorm:"not null;default:false;index" json:"active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// APIKey returns the decoded key; empty when unset or undecodable.
func (s *LLMSetting) APIKey() string {
	return decodeAPIKey(s.APIKeyEnc)
}

// SetAPIKey stores the key base64-encoded.
func (s *LLMSetting) SetAPIKey(key string) {
	s.APIKeyEnc = encodeAPIKey(key)
}

// TaskModelMap returns the per-task model overrides; empty on parse error.
func (s *LLMSetting) TaskModelMap() map[string]string {
	if s.TaskModels == "" {
		return nil
	}
	var m map[string]string
	_ = json.Unmarshal([]byte(s.TaskModels), &m)
	return m
}

// SetTaskModelMap stores the per-task model overrides as JSON.
func (s *LLMSetting) SetTaskModelMap(m map[string]string) {
	if len(m) == 0 {
		s.TaskModels = ""
		return
	}
	b, _ := json.Marshal(m)
	s.TaskModels = string(b)
}

// EmbeddingSetting is the active embedding-provider row, resolved
// independently from the chat provider.
type EmbeddingSetting struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Provider   string    `gorm:"size:32;not null" json:"provider"`
	BaseURL    string    `gorm:"size:512;not null" json:"base_url"`
	APIKeyEnc  string    `gorm:"size:1024" json:"-"`
	Model      string    `gorm:"size:128;not null" json:"model"`
	Dimensions int       `gorm:"not null;default:0" json:"dimensions"`
	Active     bool      `gorm:"not null;default:false;index" json:"active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (s *EmbeddingSetting) APIKey() string {
	return decodeAPIKey(s.APIKeyEnc)
}

func (s *EmbeddingSetting) SetAPIKey(key string) {
	s.APIKeyEnc = encodeAPIKey(key)
}

func encodeAPIKey(key string) string {
	if key == "" {
		return ""
	}
	return base64.StdEncoding.EncodeToString([]byte(key))
}

func decodeAPIKey(enc string) string {
	if enc == "" {
		return ""
	}
	raw, err := base64.StdEncoding.DecodeString(enc)
	if err != nil {
		return ""
	}
	return string(raw)
}
