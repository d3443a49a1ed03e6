package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docbrain/internal/model"
)

type fakeTopicListStore struct {
	topic *model.Topic
}

func (f *fakeTopicListStore) GetByID(id uint) (*model.Topic, error) {
	if f.topic != nil && f.topic.ID == id {
		return f.topic, nil
	}
	return nil, nil
}

func (f *fakeTopicListStore) ListByProjectID(projectID uint) ([]model.Topic, error) {
	if f.topic != nil && f.topic.ProjectID == projectID {
		return []model.Topic{*f.topic}, nil
	}
	return nil, nil
}

type fakeMergedListStore struct {
	merged []model.MergedChunk
}

func (f *fakeMergedListStore) ListByTopicID(topicID uint) ([]model.MergedChunk, error) {
	return f.merged, nil
}

func TestTopicMergedChunks(t *testing.T) {
	store := &fakeTopicListStore{topic: &model.Topic{ID: 1, ProjectID: 10, Name: "history"}}
	merged := &fakeMergedListStore{merged: []model.MergedChunk{{ID: 5, TopicID: 1}}}
	svc := NewTopicService(store, merged)

	out, err := svc.MergedChunks(1, 10)
	require.NoError(t, err)
	assert.Len(t, out, 1)

	_, err = svc.MergedChunks(42, 10)
	assert.ErrorIs(t, err, ErrTopicNotFound)

	_, err = svc.MergedChunks(1, 999)
	assert.ErrorIs(t, err, ErrTopicNotFound, "topics are scoped to their project")
}

func TestTopicListRequiresProject(t *testing.T) {
	store := &fakeTopicListStore{topic: &model.Topic{ID: 1, ProjectID: 10, Name: "history"}}
	svc := NewTopicService(store, &fakeMergedListStore{})

	_, err := svc.List(0)
	assert.ErrorIs(t, err, ErrInvalidInput)

	topics, err := svc.List(10)
	require.NoError(t, err)
	assert.Len(t, topics, 1)
}
