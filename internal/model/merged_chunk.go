package model

import (
	"encoding/json"
	"time"
)

// MergedChunk is a derived, replaceable aggregate over original chunks of one
// topic. Re-running a merge deletes all prior rows for the topic and inserts
// the new set. SourceChunkIDs is stored as a JSON array for portability.
type MergedChunk struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	TopicID        uint      `gorm:"not null;index" json:"topic_id"`
	Content        string    `gorm:"type:text;not null" json:"content"`
	SourceChunkIDs string    `gorm:"type:text;not null" json:"-"`
	Position       int       `gorm:"not null" json:"position"`
	CreatedAt      time.Time `json:"created_at"`
}

// SourceChunkIDList returns the parsed source chunk IDs; empty on parse error.
func (m *MergedChunk) SourceChunkIDList() []uint {
	if m.SourceChunkIDs == "" {
		return nil
	}
	var ids []uint
	_ = json.Unmarshal([]byte(m.SourceChunkIDs), &ids)
	return ids
}

// SetSourceChunkIDs stores the source chunk IDs as JSON.
func (m *MergedChunk) SetSourceChunkIDs(ids []uint) {
	if len(ids) == 0 {
		m.SourceChunkIDs = "[]"
		return
	}
	b, _ := json.Marshal(ids)
	m.SourceChunkIDs = string(b)
}
