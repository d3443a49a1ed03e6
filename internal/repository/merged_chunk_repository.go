package repository

import (
	"fmt"

	"gorm.io/gorm"

	"docbrain/internal/model"
)

type MergedChunkRepository struct {
	db *gorm.DB
}

func NewMergedChunkRepository(db *gorm.DB) *MergedChunkRepository {
	return &MergedChunkRepository{db: db}
}

// ReplaceForTopic deletes all merged chunks of the topic and inserts the new
// set in one transaction. A merge run is always a full recompute.
func (r *MergedChunkRepository) ReplaceForTopic(topicID uint, merged []model.MergedChunk) error {
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("topic_id = ?", topicID).Delete(&model.MergedChunk{}).Error; err != nil {
			return err
		}
		if len(merged) == 0 {
			return nil
		}
		return tx.Create(&merged).Error
	})
	if err != nil {
		return fmt.Errorf("replace merged chunks failed: %w", err)
	}
	return nil
}

func (r *MergedChunkRepository) ListByTopicID(topicID uint) ([]model.MergedChunk, error) {
	var merged []model.MergedChunk
	if err := r.db.Where("topic_id = ?", topicID).Order("position ASC").Find(&merged).Error; err != nil {
		return nil, fmt.Errorf("list merged chunks failed: %w", err)
	}
	return merged, nil
}

func (r *MergedChunkRepository) DeleteByTopicID(topicID uint) error {
	if err := r.db.Where("topic_id = ?", topicID).Delete(&model.MergedChunk{}).Error; err != nil {
		return fmt.Errorf("delete merged chunks failed: %w", err)
	}
	return nil
}
