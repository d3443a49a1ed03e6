package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"docbrain/internal/model"
)

type DocumentRepository struct {
	db *gorm.DB
}

func NewDocumentRepository(db *gorm.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

func (r *DocumentRepository) Create(doc *model.Document) error {
	if err := r.db.Create(doc).Error; err != nil {
		return fmt.Errorf("create document failed: %w", err)
	}
	return nil
}

func (r *DocumentRepository) GetByID(id uint) (*model.Document, error) {
	var doc model.Document
	if err := r.db.First(&doc, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get document failed: %w", err)
	}
	return &doc, nil
}

func (r *DocumentRepository) ListByProjectID(projectID uint) ([]model.Document, error) {
	var list []model.Document
	if err := r.db.Where("project_id = ?", projectID).Order("created_at DESC").Find(&list).Error; err != nil {
		return nil, fmt.Errorf("list documents failed: %w", err)
	}
	return list, nil
}

func (r *DocumentRepository) UpdateStatus(id uint, status string) error {
	if err := r.db.Model(&model.Document{}).Where("id = ?", id).Update("status", status).Error; err != nil {
		return fmt.Errorf("update document status failed: %w", err)
	}
	return nil
}

func (r *DocumentRepository) UpdateChunkCount(id uint, count int) error {
	if err := r.db.Model(&model.Document{}).Where("id = ?", id).Update("chunk_count", count).Error; err != nil {
		return fmt.Errorf("update document chunk count failed: %w", err)
	}
	return nil
}

func (r *DocumentRepository) Delete(id uint) error {
	if err := r.db.Delete(&model.Document{}, id).Error; err != nil {
		return fmt.Errorf("delete document failed: %w", err)
	}
	return nil
}
