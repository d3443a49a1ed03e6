package model

import "time"

// Document status values form the pipeline progress marker; there is no other
// coordination between pipeline stages.
const (
	DocumentStatusUploading  = "uploading"
	DocumentStatusParsing    = "parsing"
	DocumentStatusExtracting = "extracting"
	DocumentStatusDone       = "done"
	DocumentStatusError      = "error"
)

type Document struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	ProjectID  uint      `gorm:"not null;index" json:"project_id"`
	Name       string    `gorm:"size:256;not null" json:"name"`
	Status     string    `gorm:"size:16;not null" json:"status"`
	RawText    string    `gorm:"type:longtext" json:"-"`
	ChunkCount int       `gorm:"not null;default:0" json:"chunk_count"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
