package app

import (
	"context"
	"fmt"
	"log"
	"strings"

	"docbrain/internal/chunker"
	"docbrain/internal/llm"
	"docbrain/internal/model"
)

type ingestDocStore interface {
	GetByID(id uint) (*model.Document, error)
	Create(doc *model.Document) error
	UpdateStatus(id uint, status string) error
	UpdateChunkCount(id uint, count int) error
}

type ingestChunkStore interface {
	CreateBatch(chunks []model.Chunk) error
	ListByDocumentID(documentID uint) ([]model.Chunk, error)
	DeleteByDocumentID(documentID uint) error
}

type ingestEmbeddingStore interface {
	ReplaceForChunks(chunkIDs []uint, embeddings []model.ChunkEmbedding) error
}

type ingestTopicStore interface {
	UpsertByName(projectID uint, name string) (*model.Topic, error)
	CreateChunkTopic(link *model.ChunkTopic) error
	DeleteChunkTopicsByChunkIDs(chunkIDs []uint) error
}

// IngestService runs the per-document pipeline: chunk the raw text, embed
// every chunk, extract topics per chunk. Stages run sequentially; the
// document status column is the only progress marker.
type IngestService struct {
	docs       ingestDocStore
	chunks     ingestChunkStore
	embeddings ingestEmbeddingStore
	topics     ingestTopicStore
	embedder   embedder
	gateway    gateway
	chunkOpts  chunker.Options
}

func NewIngestService(
	docs ingestDocStore,
	chunks ingestChunkStore,
	embeddings ingestEmbeddingStore,
	topics ingestTopicStore,
	emb embedder,
	gw gateway,
	chunkOpts chunker.Options,
) *IngestService {
	return &IngestService{
		docs:       docs,
		chunks:     chunks,
		embeddings: embeddings,
		topics:     topics,
		embedder:   emb,
		gateway:    gw,
		chunkOpts:  chunkOpts,
	}
}

// CreateDocumentInput describes an uploaded document awaiting processing.
type CreateDocumentInput struct {
	ProjectID uint
	Name      string
	Content   string
}

// CreateDocument stores the raw text with status "uploading"; processing
// happens when the queued job is consumed.
func (s *IngestService) CreateDocument(input CreateDocumentInput) (*model.Document, error) {
	if input.ProjectID == 0 || strings.TrimSpace(input.Content) == "" {
		return nil, ErrInvalidInput
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		name = "Untitled"
	}

	doc := &model.Document{
		ProjectID: input.ProjectID,
		Name:      name,
		Status:    model.DocumentStatusUploading,
		RawText:   input.Content,
	}
	if err := s.docs.Create(doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// TopicExtractionReport accounts for per-chunk extraction over one document.
// Extraction continues past individual chunk failures.
type TopicExtractionReport struct {
	Processed int      `json:"processed"`
	Total     int      `json:"total"`
	Errors    []string `json:"errors,omitempty"`
}

type IngestReport struct {
	DocumentID      uint                  `json:"document_id"`
	ChunkCount      int                   `json:"chunk_count"`
	EmbeddedCount   int                   `json:"embedded_count"`
	TopicExtraction TopicExtractionReport `json:"topic_extraction"`
}

// ProcessDocument runs the full pipeline for a stored document. Re-running
// replaces the document's chunks, vectors and topic links. A chunking failure
// marks the document "error"; embedding and topic failures degrade (search
// falls back to keywords, topics stay sparse) and leave the document "done".
func (s *IngestService) ProcessDocument(ctx context.Context, documentID uint) (*IngestReport, error) {
	doc, err := s.docs.GetByID(documentID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, ErrDocumentNotFound
	}

	if err := s.docs.UpdateStatus(doc.ID, model.DocumentStatusParsing); err != nil {
		return nil, err
	}

	segments := chunker.ChunkWithOptions(doc.RawText, s.chunkOpts)
	if len(segments) == 0 {
		_ = s.docs.UpdateStatus(doc.ID, model.DocumentStatusError)
		return nil, fmt.Errorf("document %d produced no chunks: %w", doc.ID, ErrInvalidInput)
	}

	chunks, err := s.replaceChunks(doc, segments)
	if err != nil {
		_ = s.docs.UpdateStatus(doc.ID, model.DocumentStatusError)
		return nil, err
	}

	if err := s.docs.UpdateStatus(doc.ID, model.DocumentStatusExtracting); err != nil {
		return nil, err
	}

	report := &IngestReport{DocumentID: doc.ID, ChunkCount: len(chunks)}

	embedded, err := s.embedChunks(ctx, chunks)
	if err != nil {
		// Search degrades to keywords without vectors; not fatal.
		log.Printf("embed chunks for document %d failed: %v", doc.ID, err)
	}
	report.EmbeddedCount = embedded

	report.TopicExtraction = s.extractTopics(ctx, doc.ProjectID, chunks)

	if err := s.docs.UpdateStatus(doc.ID, model.DocumentStatusDone); err != nil {
		return nil, err
	}
	return report, nil
}

func (s *IngestService) replaceChunks(doc *model.Document, segments []string) ([]model.Chunk, error) {
	old, err := s.chunks.ListByDocumentID(doc.ID)
	if err != nil {
		return nil, err
	}
	if len(old) > 0 {
		oldIDs := make([]uint, len(old))
		for i, c := range old {
			oldIDs[i] = c.ID
		}
		if err := s.topics.DeleteChunkTopicsByChunkIDs(oldIDs); err != nil {
			return nil, err
		}
		if err := s.embeddings.ReplaceForChunks(oldIDs, nil); err != nil {
			return nil, err
		}
		if err := s.chunks.DeleteByDocumentID(doc.ID); err != nil {
			return nil, err
		}
	}

	chunks := make([]model.Chunk, len(segments))
	for i, content := range segments {
		chunks[i] = model.Chunk{
			DocumentID: doc.ID,
			ProjectID:  doc.ProjectID,
			Content:    content,
			Position:   i,
			CharLen:    len([]rune(content)),
		}
	}
	if err := s.chunks.CreateBatch(chunks); err != nil {
		return nil, err
	}
	if err := s.docs.UpdateChunkCount(doc.ID, len(chunks)); err != nil {
		return nil, err
	}
	return chunks, nil
}

func (s *IngestService) embedChunks(ctx context.Context, chunks []model.Chunk) (int, error) {
	texts := make([]string, len(chunks))
	ids := make([]uint, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
		ids[i] = c.ID
	}

	results, err := s.embedder.Embed(ctx, texts)
	if err != nil {
		return 0, err
	}

	rows := make([]model.ChunkEmbedding, len(results))
	for i, res := range results {
		rows[i] = model.ChunkEmbedding{
			ChunkID:   ids[i],
			Model:     res.Model,
			Dimension: res.Dimension,
		}
		rows[i].SetVector(res.Vector)
	}
	if err := s.embeddings.ReplaceForChunks(ids, rows); err != nil {
		return 0, err
	}
	return len(rows), nil
}

type topicExtraction struct {
	Topics []struct {
		Name      string  `json:"name"`
		Relevance float64 `json:"relevance"`
	} `json:"topics"`
}

// extractTopics runs per-chunk topic extraction sequentially, collecting
// errors instead of aborting the document.
func (s *IngestService) extractTopics(ctx context.Context, projectID uint, chunks []model.Chunk) TopicExtractionReport {
	report := TopicExtractionReport{Total: len(chunks)}

	for _, chunk := range chunks {
		if err := s.extractChunkTopics(ctx, projectID, chunk); err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("chunk %d: %v", chunk.ID, err))
			continue
		}
		report.Processed++
	}
	return report
}

func (s *IngestService) extractChunkTopics(ctx context.Context, projectID uint, chunk model.Chunk) error {
	raw, err := s.gateway.Call(ctx, topicPrompt(chunk.Content), llm.TaskTopicExtraction, topicSchema())
	if err != nil {
		return err
	}

	var extracted topicExtraction
	if err := llm.DecodeStructured(raw, &extracted); err != nil {
		return err
	}

	for _, t := range extracted.Topics {
		name := strings.TrimSpace(t.Name)
		if name == "" {
			continue
		}
		topic, err := s.topics.UpsertByName(projectID, name)
		if err != nil {
			return err
		}
		link := &model.ChunkTopic{
			ChunkID:   chunk.ID,
			TopicID:   topic.ID,
			Relevance: clampRelevance(t.Relevance),
		}
		if err := s.topics.CreateChunkTopic(link); err != nil {
			return err
		}
	}
	return nil
}

func clampRelevance(r float64) float64 {
	if r < 0 {
		return 0
	}
	if r > 1 {
		return 1
	}
	return r
}

func topicPrompt(content string) []llm.ChatMessage {
	system := "Extract 1-3 concise topic labels for the given text. Labels are short " +
		"noun phrases reusable across documents. Rate each label's relevance to the " +
		"text between 0 and 1."
	return []llm.ChatMessage{
		{Role: "system", Content: system},
		{Role: "user", Content: content},
	}
}

func topicSchema() *llm.JSONSchema {
	return &llm.JSONSchema{
		Name: "topic_extraction",
		Schema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"topics": map[string]interface{}{
					"type": "array",
					"items": map[string]interface{}{
						"type": "object",
						"properties": map[string]interface{}{
							"name":      map[string]interface{}{"type": "string"},
							"relevance": map[string]interface{}{"type": "number"},
						},
						"required":             []string{"name", "relevance"},
						"additionalProperties": false,
					},
				},
			},
			"required":             []string{"topics"},
			"additionalProperties": false,
		},
	}
}
