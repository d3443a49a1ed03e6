package model

import "time"

// Topic is an LLM-assigned label shared by chunks across documents.
// Weight increments each time the label is (re)assigned.
type Topic struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ProjectID uint      `gorm:"not null;uniqueIndex:idx_project_topic" json:"project_id"`
	Name      string    `gorm:"size:128;not null;uniqueIndex:idx_project_topic" json:"name"`
	Weight    int       `gorm:"not null;default:1" json:"weight"`
	CreatedAt time.Time `json:"created_at"`
}

// ChunkTopic joins chunks and topics with a relevance score in [0,1].
type ChunkTopic struct {
	ID        uint    `gorm:"primaryKey" json:"id"`
	ChunkID   uint    `gorm:"not null;index" json:"chunk_id"`
	TopicID   uint    `gorm:"not null;index" json:"topic_id"`
	Relevance float64 `gorm:"not null;default:0" json:"relevance"`
}
