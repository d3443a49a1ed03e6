package repository

import (
	"fmt"

	"gorm.io/gorm"

	"docbrain/internal/model"
)

type EmbeddingRepository struct {
	db *gorm.DB
}

func NewEmbeddingRepository(db *gorm.DB) *EmbeddingRepository {
	return &EmbeddingRepository{db: db}
}

// ReplaceForChunks deletes any existing vectors for the chunks and inserts
// the new ones, keeping one active embedding per chunk.
func (r *EmbeddingRepository) ReplaceForChunks(chunkIDs []uint, embeddings []model.ChunkEmbedding) error {
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if len(chunkIDs) > 0 {
			if err := tx.Where("chunk_id IN ?", chunkIDs).Delete(&model.ChunkEmbedding{}).Error; err != nil {
				return err
			}
		}
		if len(embeddings) == 0 {
			return nil
		}
		return tx.Create(&embeddings).Error
	})
	if err != nil {
		return fmt.Errorf("replace chunk embeddings failed: %w", err)
	}
	return nil
}

// ListByProjectID returns all stored embeddings for a project's chunks.
func (r *EmbeddingRepository) ListByProjectID(projectID uint) ([]model.ChunkEmbedding, error) {
	var embeddings []model.ChunkEmbedding
	err := r.db.
		Joins("JOIN chunks ON chunks.id = chunk_embeddings.chunk_id").
		Where("chunks.project_id = ?", projectID).
		Find(&embeddings).Error
	if err != nil {
		return nil, fmt.Errorf("list embeddings by project failed: %w", err)
	}
	return embeddings, nil
}

func (r *EmbeddingRepository) DeleteByChunkIDs(chunkIDs []uint) error {
	if len(chunkIDs) == 0 {
		return nil
	}
	if err := r.db.Where("chunk_id IN ?", chunkIDs).Delete(&model.ChunkEmbedding{}).Error; err != nil {
		return fmt.Errorf("delete embeddings by chunks failed: %w", err)
	}
	return nil
}
