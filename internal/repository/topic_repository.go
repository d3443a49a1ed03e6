package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"docbrain/internal/model"
)

type TopicRepository struct {
	db *gorm.DB
}

func NewTopicRepository(db *gorm.DB) *TopicRepository {
	return &TopicRepository{db: db}
}

func (r *TopicRepository) GetByID(id uint) (*model.Topic, error) {
	var topic model.Topic
	if err := r.db.First(&topic, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get topic failed: %w", err)
	}
	return &topic, nil
}

func (r *TopicRepository) ListByProjectID(projectID uint) ([]model.Topic, error) {
	var topics []model.Topic
	if err := r.db.Where("project_id = ?", projectID).Order("weight DESC, name ASC").Find(&topics).Error; err != nil {
		return nil, fmt.Errorf("list topics failed: %w", err)
	}
	return topics, nil
}

// UpsertByName finds or creates the topic and increments its weight on every
// (re)assignment.
func (r *TopicRepository) UpsertByName(projectID uint, name string) (*model.Topic, error) {
	var topic model.Topic
	err := r.db.Where("project_id = ? AND name = ?", projectID, name).First(&topic).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		topic = model.Topic{ProjectID: projectID, Name: name, Weight: 1}
		if err := r.db.Create(&topic).Error; err != nil {
			return nil, fmt.Errorf("create topic failed: %w", err)
		}
		return &topic, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find topic failed: %w", err)
	}

	topic.Weight++
	if err := r.db.Model(&topic).Update("weight", topic.Weight).Error; err != nil {
		return nil, fmt.Errorf("bump topic weight failed: %w", err)
	}
	return &topic, nil
}

func (r *TopicRepository) CreateChunkTopic(link *model.ChunkTopic) error {
	if err := r.db.Create(link).Error; err != nil {
		return fmt.Errorf("create chunk topic failed: %w", err)
	}
	return nil
}

func (r *TopicRepository) DeleteChunkTopicsByChunkIDs(chunkIDs []uint) error {
	if len(chunkIDs) == 0 {
		return nil
	}
	if err := r.db.Where("chunk_id IN ?", chunkIDs).Delete(&model.ChunkTopic{}).Error; err != nil {
		return fmt.Errorf("delete chunk topics failed: %w", err)
	}
	return nil
}
