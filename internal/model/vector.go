package model

import (
	"encoding/json"
	"time"
)

// VectorCollection is one document's index. Name is derived deterministically
// from the document id and is the only coupling between the document record
// and its vectors.
type VectorCollection struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Name       string    `gorm:"size:128;not null;uniqueIndex" json:"name"`
	DocumentID uint      `gorm:"not null;index" json:"document_id"`
	Dimension  int       `gorm:"not null" json:"dimension"`
	ChunkCount int       `gorm:"not null" json:"chunk_count"`
	CreatedAt  time.Time `json:"created_at"`
}

// VectorChunk stores one text chunk and its embedding.
// Embedding is stored as a JSON array of float32 for portability.
type VectorChunk struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	CollectionID uint   `gorm:"not null;index" json:"collection_id"`
	Position     int    `gorm:"not null" json:"position"`
	Content      string `gorm:"type:text;not null" json:"content"`
	Embedding    string `gorm:"type:mediumtext" json:"-"`
}

// EmbeddingVector returns the parsed embedding slice; empty on parse error.
func (c *VectorChunk) EmbeddingVector() []float32 {
	if c.Embedding == "" {
		return nil
	}
	var v []float32
	_ = json.Unmarshal([]byte(c.Embedding), &v)
	return v
}

// SetEmbedding stores the embedding as JSON.
func (c *VectorChunk) SetEmbedding(vec []float32) {
	if len(vec) == 0 {
		c.Embedding = "[]"
		return
	}
	b, _ := json.Marshal(vec)
	c.Embedding = string(b)
}
