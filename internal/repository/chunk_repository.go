package repository

import (
	"fmt"
	"strings"

	"gorm.io/gorm"

	"docbrain/internal/model"
)

type ChunkRepository struct {
	db *gorm.DB
}

func NewChunkRepository(db *gorm.DB) *ChunkRepository {
	return &ChunkRepository{db: db}
}

func (r *ChunkRepository) CreateBatch(chunks []model.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	if err := r.db.Create(&chunks).Error; err != nil {
		return fmt.Errorf("create chunks batch failed: %w", err)
	}
	return nil
}

func (r *ChunkRepository) ListByDocumentID(documentID uint) ([]model.Chunk, error) {
	var chunks []model.Chunk
	if err := r.db.Where("document_id = ?", documentID).Order("position ASC").Find(&chunks).Error; err != nil {
		return nil, fmt.Errorf("list chunks by document failed: %w", err)
	}
	return chunks, nil
}

func (r *ChunkRepository) ListByProjectID(projectID uint) ([]model.Chunk, error) {
	var chunks []model.Chunk
	if err := r.db.Where("project_id = ?", projectID).Order("document_id ASC, position ASC").Find(&chunks).Error; err != nil {
		return nil, fmt.Errorf("list chunks by project failed: %w", err)
	}
	return chunks, nil
}

func (r *ChunkRepository) ListByIDs(ids []uint) ([]model.Chunk, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var chunks []model.Chunk
	if err := r.db.Where("id IN ?", ids).Find(&chunks).Error; err != nil {
		return nil, fmt.Errorf("list chunks by ids failed: %w", err)
	}
	return chunks, nil
}

// ListByTopicID returns a topic's chunks within a project, in document order.
func (r *ChunkRepository) ListByTopicID(topicID, projectID uint) ([]model.Chunk, error) {
	var chunks []model.Chunk
	err := r.db.
		Joins("JOIN chunk_topics ON chunk_topics.chunk_id = chunks.id").
		Where("chunk_topics.topic_id = ? AND chunks.project_id = ?", topicID, projectID).
		Order("chunks.document_id ASC, chunks.position ASC").
		Find(&chunks).Error
	if err != nil {
		return nil, fmt.Errorf("list chunks by topic failed: %w", err)
	}
	return chunks, nil
}

// SearchKeyword matches chunks containing any of the whitespace-delimited
// query terms (OR-combined substring match).
func (r *ChunkRepository) SearchKeyword(projectID uint, query string, limit int) ([]model.Chunk, error) {
	terms := strings.Fields(query)
	if len(terms) == 0 {
		return nil, nil
	}

	q := r.db.Where("project_id = ?", projectID)
	var conds []string
	var args []interface{}
	for _, term := range terms {
		conds = append(conds, "content LIKE ?")
		args = append(args, "%"+term+"%")
	}
	q = q.Where(strings.Join(conds, " OR "), args...)

	var chunks []model.Chunk
	if err := q.Limit(limit).Find(&chunks).Error; err != nil {
		return nil, fmt.Errorf("keyword search chunks failed: %w", err)
	}
	return chunks, nil
}

func (r *ChunkRepository) DeleteByDocumentID(documentID uint) error {
	if err := r.db.Where("document_id = ?", documentID).Delete(&model.Chunk{}).Error; err != nil {
		return fmt.Errorf("delete chunks by document failed: %w", err)
	}
	return nil
}
