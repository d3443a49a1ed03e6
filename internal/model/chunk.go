package model

import "time"

// Chunk is an immutable, bounded text segment cut from one document.
// Position is 0-based and dense within the document.
type Chunk struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	DocumentID uint      `gorm:"not null;index" json:"document_id"`
	ProjectID  uint      `gorm:"not null;index" json:"project_id"`
	Content    string    `gorm:"type:text;not null" json:"content"`
	Position   int       `gorm:"not null" json:"position"`
	CharLen    int       `gorm:"not null" json:"char_len"`
	CreatedAt  time.Time `json:"created_at"`
}
