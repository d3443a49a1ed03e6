package app

import (
	"context"
	"fmt"
	"log"
	"strings"

	"docbrain/internal/llm"
	"docbrain/internal/model"
)

const (
	mergeBatchMin = 5
	mergeBatchMax = 8
)

type mergeTopicStore interface {
	GetByID(id uint) (*model.Topic, error)
}

type mergeChunkStore interface {
	ListByTopicID(topicID, projectID uint) ([]model.Chunk, error)
}

type mergedChunkStore interface {
	ReplaceForTopic(topicID uint, merged []model.MergedChunk) error
}

type topicLocker interface {
	Acquire(ctx context.Context, topicID uint) (bool, error)
	Release(ctx context.Context, topicID uint) error
}

type gateway interface {
	Call(ctx context.Context, messages []llm.ChatMessage, taskType llm.TaskType, schema *llm.JSONSchema) (string, error)
}

// MergeService recomputes the merged view of a topic's chunks. Every run is a
// full replace: prior merged chunks are deleted and rebuilt from scratch.
type MergeService struct {
	topics  mergeTopicStore
	chunks  mergeChunkStore
	merged  mergedChunkStore
	gateway gateway
	lock    topicLocker
}

func NewMergeService(topics mergeTopicStore, chunks mergeChunkStore, merged mergedChunkStore, gw gateway, lock topicLocker) *MergeService {
	return &MergeService{topics: topics, chunks: chunks, merged: merged, gateway: gw, lock: lock}
}

type MergeResult struct {
	MergedCount   int `json:"merged_count"`
	OriginalCount int `json:"original_count"`
}

// mergeGroup is one coherent segment proposed by the model.
type mergeGroup struct {
	ChunkIDs []uint `json:"chunk_ids"`
	Content  string `json:"content"`
}

type mergeResponse struct {
	Groups []mergeGroup `json:"groups"`
}

// MergeTopicChunks rebuilds all merged chunks for the topic. Chunks are
// processed in sequential batches; a failing batch degrades to a naive
// concatenation instead of aborting the run. The union of all resulting
// source chunk IDs always equals the topic's chunk set.
func (s *MergeService) MergeTopicChunks(ctx context.Context, topicID, projectID uint) (*MergeResult, error) {
	topic, err := s.topics.GetByID(topicID)
	if err != nil {
		return nil, err
	}
	if topic == nil || topic.ProjectID != projectID {
		return nil, ErrTopicNotFound
	}

	chunks, err := s.chunks.ListByTopicID(topicID, projectID)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return nil, ErrNoChunks
	}

	if s.lock != nil {
		ok, err := s.lock.Acquire(ctx, topicID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrMergeInProgress
		}
		defer func() {
			if err := s.lock.Release(ctx, topicID); err != nil {
				log.Printf("release merge lock for topic %d failed: %v", topicID, err)
			}
		}()
	}

	var merged []model.MergedChunk
	position := 0
	for _, batch := range batchChunks(chunks) {
		groups := s.mergeBatch(ctx, topic.Name, batch)
		for _, g := range groups {
			mc := model.MergedChunk{
				TopicID:  topicID,
				Content:  g.Content,
				Position: position,
			}
			mc.SetSourceChunkIDs(g.ChunkIDs)
			merged = append(merged, mc)
			position++
		}
	}

	if err := s.merged.ReplaceForTopic(topicID, merged); err != nil {
		return nil, err
	}

	return &MergeResult{MergedCount: len(merged), OriginalCount: len(chunks)}, nil
}

// mergeBatch asks the model to group one batch and repairs its answer so the
// batch's chunk IDs are covered exactly once. Any model failure falls back to
// a single concatenated group so the run always makes progress.
func (s *MergeService) mergeBatch(ctx context.Context, topicName string, batch []model.Chunk) []mergeGroup {
	raw, err := s.gateway.Call(ctx, mergePrompt(topicName, batch), llm.TaskMerge, mergeSchema())
	if err != nil {
		log.Printf("merge batch llm call failed, using concatenation: %v", err)
		return []mergeGroup{fallbackGroup(batch)}
	}

	var resp mergeResponse
	if err := llm.DecodeStructured(raw, &resp); err != nil {
		log.Printf("merge batch output rejected, using concatenation: %v", err)
		return []mergeGroup{fallbackGroup(batch)}
	}

	return repairGroups(resp.Groups, batch)
}

// repairGroups enforces the coverage invariant against model drift: IDs
// outside the batch or already used are dropped, chunks the model never
// mentioned become singleton groups, and empty content is rebuilt from the
// member chunks verbatim.
func repairGroups(groups []mergeGroup, batch []model.Chunk) []mergeGroup {
	byID := make(map[uint]model.Chunk, len(batch))
	for _, c := range batch {
		byID[c.ID] = c
	}
	used := make(map[uint]bool, len(batch))

	var out []mergeGroup
	for _, g := range groups {
		var ids []uint
		for _, id := range g.ChunkIDs {
			if _, ok := byID[id]; ok && !used[id] {
				ids = append(ids, id)
				used[id] = true
			}
		}
		if len(ids) == 0 {
			continue
		}
		content := strings.TrimSpace(g.Content)
		if content == "" {
			content = concatChunks(byID, ids)
		}
		out = append(out, mergeGroup{ChunkIDs: ids, Content: content})
	}

	for _, c := range batch {
		if !used[c.ID] {
			out = append(out, mergeGroup{ChunkIDs: []uint{c.ID}, Content: c.Content})
		}
	}
	return out
}

func fallbackGroup(batch []model.Chunk) mergeGroup {
	ids := make([]uint, len(batch))
	contents := make([]string, len(batch))
	for i, c := range batch {
		ids[i] = c.ID
		contents[i] = c.Content
	}
	return mergeGroup{ChunkIDs: ids, Content: strings.Join(contents, "\n\n")}
}

func concatChunks(byID map[uint]model.Chunk, ids []uint) string {
	contents := make([]string, 0, len(ids))
	for _, id := range ids {
		contents = append(contents, byID[id].Content)
	}
	return strings.Join(contents, "\n\n")
}

// batchChunks cuts the chunk list into batches of mergeBatchMin..mergeBatchMax.
// When the remaining count sits just above a full batch (9 chunks), it is
// split roughly in half rather than leaving a tiny trailing batch.
func batchChunks(chunks []model.Chunk) [][]model.Chunk {
	var batches [][]model.Chunk
	for start := 0; start < len(chunks); {
		remaining := len(chunks) - start
		if remaining > mergeBatchMax && remaining < 2*mergeBatchMin {
			half := (remaining + 1) / 2
			batches = append(batches, chunks[start:start+half], chunks[start+half:])
			break
		}
		take := mergeBatchMax
		if take > remaining {
			take = remaining
		}
		batches = append(batches, chunks[start:start+take])
		start += take
	}
	return batches
}

func mergePrompt(topicName string, batch []model.Chunk) []llm.ChatMessage {
	var b strings.Builder
	fmt.Fprintf(&b, "Topic: %s\n\nChunks:\n", topicName)
	for _, c := range batch {
		fmt.Fprintf(&b, "[id=%d]\n%s\n\n", c.ID, c.Content)
	}

	system := "You merge text chunks that belong to one topic into coherent segments. " +
		"Group the given chunk IDs into one or more segments. Preserve the original wording " +
		"exactly; concatenate, never paraphrase. If a chunk's content diverges from the " +
		"topic, put it in its own single-chunk group. Every chunk ID must appear in exactly " +
		"one group."

	return []llm.ChatMessage{
		{Role: "system", Content: system},
		{Role: "user", Content: b.String()},
	}
}

func mergeSchema() *llm.JSONSchema {
	return &llm.JSONSchema{
		Name: "chunk_merge",
		Schema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"groups": map[string]interface{}{
					"type": "array",
					"items": map[string]interface{}{
						"type": "object",
						"properties": map[string]interface{}{
							"chunk_ids": map[string]interface{}{
								"type":  "array",
								"items": map[string]interface{}{"type": "integer"},
							},
							"content": map[string]interface{}{"type": "string"},
						},
						"required":             []string{"chunk_ids", "content"},
						"additionalProperties": false,
					},
				},
			},
			"required":             []string{"groups"},
			"additionalProperties": false,
		},
	}
}
