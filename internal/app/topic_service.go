package app

import (
	"docbrain/internal/model"
)

type topicListStore interface {
	GetByID(id uint) (*model.Topic, error)
	ListByProjectID(projectID uint) ([]model.Topic, error)
}

type mergedChunkListStore interface {
	ListByTopicID(topicID uint) ([]model.MergedChunk, error)
}

// TopicService serves the topic browsing views: the per-project topic list
// and a topic's merged chunks.
type TopicService struct {
	topics topicListStore
	merged mergedChunkListStore
}

func NewTopicService(topics topicListStore, merged mergedChunkListStore) *TopicService {
	return &TopicService{topics: topics, merged: merged}
}

func (s *TopicService) List(projectID uint) ([]model.Topic, error) {
	if projectID == 0 {
		return nil, ErrInvalidInput
	}
	return s.topics.ListByProjectID(projectID)
}

// MergedChunks returns the merged view of a topic, empty until a merge ran.
func (s *TopicService) MergedChunks(topicID, projectID uint) ([]model.MergedChunk, error) {
	topic, err := s.topics.GetByID(topicID)
	if err != nil {
		return nil, err
	}
	if topic == nil || topic.ProjectID != projectID {
		return nil, ErrTopicNotFound
	}
	return s.merged.ListByTopicID(topicID)
}
