package model

import (
	"time"

	"gorm.io/gorm"
)

// Metadata statuses.
const (
	StatusStored     = "stored"
	StatusProcessing = "processing"
	StatusIndexed    = "indexed"
	StatusFailed     = "failed"
)

// Metadata describes an uploaded file and its ingestion state.
type Metadata struct {
	ID        string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	FileName  string    `gorm:"type:varchar(255);not null" json:"fileName"`
	DocID     string    `gorm:"type:varchar(36);uniqueIndex;not null" json:"docId"`
	FileURL   string    `gorm:"type:varchar(512);not null" json:"fileUrl"`
	Type      string    `gorm:"type:varchar(50)" json:"type"`
	Folder    string    `gorm:"type:varchar(20);not null" json:"folder"`
	UserID    string    `gorm:"type:varchar(36);index" json:"userId"`
	Status    string    `gorm:"type:varchar(20);not null;default:stored" json:"status"`
	Chunks    int       `gorm:"not null;default:0" json:"chunks"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

func (Metadata) TableName() string {
	return "metadata"
}

func (m *Metadata) BeforeCreate(*gorm.DB) error {
	assignID(&m.ID)
	if m.Status == "" {
		m.Status = StatusStored
	}
	return nil
}

// ObjectKey is the storage key of the file, "<folder>/<docId>-<fileName>".
// The document id keeps uploads with the same name apart.
func (m *Metadata) ObjectKey() string {
	return m.Folder + "/" + m.DocID + "-" + m.FileName
}

// DocumentChunk keeps the text of every indexed chunk so vector entries can be
// rebuilt or deleted.
type DocumentChunk struct {
	ID          string `gorm:"type:varchar(36);primaryKey" json:"id"`
	DocID       string `gorm:"type:varchar(36);not null;index" json:"docId"`
	ChunkIndex  int    `gorm:"not null" json:"chunkIndex"`
	TotalChunks int    `gorm:"not null" json:"totalChunks"`
	TextContent string `gorm:"type:text" json:"textContent"`
	FileName    string `gorm:"type:varchar(255)" json:"fileName"`
	UserID      string `gorm:"type:varchar(36)" json:"userId"`
}

func (DocumentChunk) TableName() string {
	return "document_chunks"
}

func (c *DocumentChunk) BeforeCreate(*gorm.DB) error {
	assignID(&c.ID)
	return nil
}

// ChunkDocument is the shape of a chunk stored in the vector index.
type ChunkDocument struct {
	VectorID    string    `json:"vector_id"` // docId + "_" + chunkIndex
	DocID       string    `json:"doc_id"`
	FileName    string    `json:"file_name"`
	ChunkIndex  int       `json:"chunk_index"`
	TotalChunks int       `json:"total_chunks"`
	TextContent string    `json:"text_content"`
	Vector      []float32 `json:"vector"`
	UserID      string    `json:"user_id"`
}

// SearchHit is a chunk returned by a similarity query.
type SearchHit struct {
	DocID       string  `json:"docId"`
	FileName    string  `json:"fileName"`
	ChunkIndex  int     `json:"chunkIndex"`
	TextContent string  `json:"textContent"`
	Score       float64 `json:"score"`
}

// AllModels lists every model for auto-migration.
func AllModels() []interface{} {
	return []interface{}{
		&User{}, &RefreshToken{},
		&Copropriete{}, &Resident{}, &Incident{},
		&Assembly{}, &AgendaItem{}, &Decision{}, &Voter{}, &Attendee{}, &AssemblyDocument{},
		&Conversation{}, &Message{},
		&Metadata{}, &DocumentChunk{},
	}
}
