package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docbrain/internal/llm"
	"docbrain/internal/model"
)

type fakeTopicStore struct {
	topic *model.Topic
}

func (f *fakeTopicStore) GetByID(id uint) (*model.Topic, error) {
	if f.topic != nil && f.topic.ID == id {
		return f.topic, nil
	}
	return nil, nil
}

type fakeMergeChunkStore struct {
	chunks []model.Chunk
}

func (f *fakeMergeChunkStore) ListByTopicID(topicID, projectID uint) ([]model.Chunk, error) {
	return f.chunks, nil
}

type fakeMergedStore struct {
	topicID uint
	saved   []model.MergedChunk
	calls   int
}

func (f *fakeMergedStore) ReplaceForTopic(topicID uint, merged []model.MergedChunk) error {
	f.topicID = topicID
	f.saved = merged
	f.calls++
	return nil
}

type fakeLock struct {
	held     bool
	acquired int
	released int
}

func (f *fakeLock) Acquire(ctx context.Context, topicID uint) (bool, error) {
	f.acquired++
	return !f.held, nil
}

func (f *fakeLock) Release(ctx context.Context, topicID uint) error {
	f.released++
	return nil
}

// fakeGateway returns scripted responses in order; a nil entry means error.
type fakeGateway struct {
	responses []string
	errs      []error
	calls     int
}

func (f *fakeGateway) Call(ctx context.Context, messages []llm.ChatMessage, taskType llm.TaskType, schema *llm.JSONSchema) (string, error) {
	i := f.calls
	f.calls++
	if i < len(f.errs) && f.errs[i] != nil {
		return "", f.errs[i]
	}
	if i < len(f.responses) {
		return f.responses[i], nil
	}
	return "", errors.New("no scripted response")
}

func makeChunks(n int) []model.Chunk {
	chunks := make([]model.Chunk, n)
	for i := range chunks {
		chunks[i] = model.Chunk{ID: uint(i + 1), Content: fmt.Sprintf("chunk %d text", i+1)}
	}
	return chunks
}

func newMergeService(chunks []model.Chunk, gw gateway, lock topicLocker) (*MergeService, *fakeMergedStore) {
	merged := &fakeMergedStore{}
	topic := &model.Topic{ID: 1, ProjectID: 10, Name: "history"}
	svc := NewMergeService(&fakeTopicStore{topic: topic}, &fakeMergeChunkStore{chunks: chunks}, merged, gw, lock)
	return svc, merged
}

func mergedUnion(t *testing.T, merged []model.MergedChunk) []uint {
	t.Helper()
	seen := map[uint]bool{}
	var union []uint
	for _, m := range merged {
		for _, id := range m.SourceChunkIDList() {
			require.False(t, seen[id], "chunk %d appears in more than one merged chunk", id)
			seen[id] = true
			union = append(union, id)
		}
	}
	return union
}

func TestMergeUnionInvariantUnderFallback(t *testing.T) {
	for _, n := range []int{3, 7, 12, 20} {
		t.Run(fmt.Sprintf("n=%d", n), func(t *testing.T) {
			// Gateway always fails: every batch takes the concatenation path.
			gw := &fakeGateway{errs: []error{errors.New("outage"), errors.New("outage"), errors.New("outage")}}
			svc, merged := newMergeService(makeChunks(n), gw, nil)

			res, err := svc.MergeTopicChunks(context.Background(), 1, 10)
			require.NoError(t, err)
			assert.Equal(t, n, res.OriginalCount)

			union := mergedUnion(t, merged.saved)
			assert.Len(t, union, n)
			for i, id := range union {
				assert.Equal(t, uint(i+1), id, "source order must be preserved")
			}
		})
	}
}

func TestMergeBatchSizes(t *testing.T) {
	tests := []struct {
		n     int
		sizes []int
	}{
		{3, []int{3}},
		{7, []int{7}},
		{8, []int{8}},
		{9, []int{5, 4}}, // remainder split in half, no tiny trailing batch
		{12, []int{8, 4}},
		{17, []int{8, 5, 4}},
		{20, []int{8, 8, 4}},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("n=%d", tt.n), func(t *testing.T) {
			batches := batchChunks(makeChunks(tt.n))
			var sizes []int
			for _, b := range batches {
				sizes = append(sizes, len(b))
			}
			assert.Equal(t, tt.sizes, sizes)
		})
	}
}

func TestMergeUsesModelGroups(t *testing.T) {
	resp, _ := json.Marshal(mergeResponse{Groups: []mergeGroup{
		{ChunkIDs: []uint{1, 2}, Content: "chunk 1 text\n\nchunk 2 text"},
		{ChunkIDs: []uint{3}, Content: "chunk 3 text"},
	}})
	gw := &fakeGateway{responses: []string{string(resp)}}
	svc, merged := newMergeService(makeChunks(3), gw, nil)

	res, err := svc.MergeTopicChunks(context.Background(), 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, res.MergedCount)
	assert.Equal(t, 3, res.OriginalCount)

	require.Len(t, merged.saved, 2)
	assert.Equal(t, []uint{1, 2}, merged.saved[0].SourceChunkIDList())
	assert.Equal(t, 0, merged.saved[0].Position)
	assert.Equal(t, 1, merged.saved[1].Position)
}

func TestMergeRepairsModelDrift(t *testing.T) {
	// The model invents ID 99, repeats ID 1 and forgets ID 3.
	resp, _ := json.Marshal(mergeResponse{Groups: []mergeGroup{
		{ChunkIDs: []uint{1, 99}, Content: "chunk 1 text"},
		{ChunkIDs: []uint{1, 2}, Content: "chunk 2 text"},
	}})
	gw := &fakeGateway{responses: []string{string(resp)}}
	svc, merged := newMergeService(makeChunks(3), gw, nil)

	_, err := svc.MergeTopicChunks(context.Background(), 1, 10)
	require.NoError(t, err)

	union := mergedUnion(t, merged.saved)
	assert.ElementsMatch(t, []uint{1, 2, 3}, union)
}

func TestMergeEmptyGroupContentRebuiltVerbatim(t *testing.T) {
	resp, _ := json.Marshal(mergeResponse{Groups: []mergeGroup{
		{ChunkIDs: []uint{1, 2, 3}, Content: "   "},
	}})
	gw := &fakeGateway{responses: []string{string(resp)}}
	svc, merged := newMergeService(makeChunks(3), gw, nil)

	_, err := svc.MergeTopicChunks(context.Background(), 1, 10)
	require.NoError(t, err)
	require.Len(t, merged.saved, 1)
	assert.Equal(t, "chunk 1 text\n\nchunk 2 text\n\nchunk 3 text", merged.saved[0].Content)
}

func TestMergeNoChunks(t *testing.T) {
	svc, _ := newMergeService(nil, &fakeGateway{}, nil)
	_, err := svc.MergeTopicChunks(context.Background(), 1, 10)
	assert.ErrorIs(t, err, ErrNoChunks)
}

func TestMergeUnknownTopic(t *testing.T) {
	svc, _ := newMergeService(makeChunks(3), &fakeGateway{}, nil)
	_, err := svc.MergeTopicChunks(context.Background(), 42, 10)
	assert.ErrorIs(t, err, ErrTopicNotFound)
}

func TestMergeWrongProject(t *testing.T) {
	svc, _ := newMergeService(makeChunks(3), &fakeGateway{}, nil)
	_, err := svc.MergeTopicChunks(context.Background(), 1, 999)
	assert.ErrorIs(t, err, ErrTopicNotFound)
}

func TestMergeRejectsConcurrentRun(t *testing.T) {
	lock := &fakeLock{held: true}
	svc, merged := newMergeService(makeChunks(3), &fakeGateway{}, lock)

	_, err := svc.MergeTopicChunks(context.Background(), 1, 10)
	assert.ErrorIs(t, err, ErrMergeInProgress)
	assert.Zero(t, merged.calls, "a rejected run must not touch merged chunks")
}

func TestMergeReleasesLock(t *testing.T) {
	lock := &fakeLock{}
	gw := &fakeGateway{errs: []error{errors.New("outage")}}
	svc, _ := newMergeService(makeChunks(3), gw, lock)

	_, err := svc.MergeTopicChunks(context.Background(), 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, lock.acquired)
	assert.Equal(t, 1, lock.released)
}
