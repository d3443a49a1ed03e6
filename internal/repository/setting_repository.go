package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"docbrain/internal/model"
)

// SettingRepository resolves and updates the active provider rows. It
// satisfies both llm.SettingSource and embedding.SettingSource.
type SettingRepository struct {
	db *gorm.DB
}

func NewSettingRepository(db *gorm.DB) *SettingRepository {
	return &SettingRepository{db: db}
}

// ActiveLLMSetting returns the active chat-provider row, nil when none is.
func (r *SettingRepository) ActiveLLMSetting(ctx context.Context) (*model.LLMSetting, error) {
	var setting model.LLMSetting
	err := r.db.WithContext(ctx).Where("active = ?", true).Order("updated_at DESC").First(&setting).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get active llm setting failed: %w", err)
	}
	return &setting, nil
}

// ActiveEmbeddingSetting returns the active embedding-provider row, nil when
// none is.
func (r *SettingRepository) ActiveEmbeddingSetting(ctx context.Context) (*model.EmbeddingSetting, error) {
	var setting model.EmbeddingSetting
	err := r.db.WithContext(ctx).Where("active = ?", true).Order("updated_at DESC").First(&setting).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get active embedding setting failed: %w", err)
	}
	return &setting, nil
}

// SaveLLMSetting deactivates all chat rows and inserts the new active one.
func (r *SettingRepository) SaveLLMSetting(ctx context.Context, setting *model.LLMSetting) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.LLMSetting{}).Where("active = ?", true).Update("active", false).Error; err != nil {
			return err
		}
		setting.Active = true
		return tx.Create(setting).Error
	})
	if err != nil {
		return fmt.Errorf("save llm setting failed: %w", err)
	}
	return nil
}

// SaveEmbeddingSetting deactivates all embedding rows and inserts the new
// active one.
func (r *SettingRepository) SaveEmbeddingSetting(ctx context.Context, setting *model.EmbeddingSetting) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.EmbeddingSetting{}).Where("active = ?", true).Update("active", false).Error; err != nil {
			return err
		}
		setting.Active = true
		return tx.Create(setting).Error
	})
	if err != nil {
		return fmt.Errorf("save embedding setting failed: %w", err)
	}
	return nil
}
