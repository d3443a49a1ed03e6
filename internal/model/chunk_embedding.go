package model

import (
	"encoding/json"
	"time"
)

// ChunkEmbedding stores one active vector per chunk.
// Vector is stored as a JSON array of float32 for portability.
type ChunkEmbedding struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ChunkID   uint      `gorm:"not null;uniqueIndex" json:"chunk_id"`
	Vector    string    `gorm:"type:text;not null" json:"-"`
	Model     string    `gorm:"size:128;not null" json:"model"`
	Dimension int       `gorm:"not null" json:"dimension"`
	CreatedAt time.Time `json:"created_at"`
}

// VectorData returns the parsed vector; empty on parse error.
func (e *ChunkEmbedding) VectorData() []float32 {
	if e.Vector == "" {
		return nil
	}
	var v []float32
	_ = json.Unmarshal([]byte(e.Vector), &v)
	return v
}

// SetVector stores the vector as JSON.
func (e *ChunkEmbedding) SetVector(vec []float32) {
	if len(vec) == 0 {
		e.Vector = "[]"
		return
	}
	b, _ := json.Marshal(vec)
	e.Vector = string(b)
}
