package repository

import (
	"context"

	"copro-smart-go/internal/model"

	"gorm.io/gorm"
)

// DocumentChunkRepository stores the text of indexed chunks.
type DocumentChunkRepository interface {
	BatchCreate(ctx context.Context, chunks []*model.DocumentChunk) error
	FindByDocID(ctx context.Context, docID string) ([]model.DocumentChunk, error)
	DeleteByDocID(ctx context.Context, docID string) error
}

type documentChunkRepository struct {
	db *gorm.DB
}

func NewDocumentChunkRepository(db *gorm.DB) DocumentChunkRepository {
	return &documentChunkRepository{db: db}
}

func (r *documentChunkRepository) BatchCreate(ctx context.Context, chunks []*model.DocumentChunk) error {
	if len(chunks) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).CreateInBatches(chunks, 100).Error
}

func (r *documentChunkRepository) FindByDocID(ctx context.Context, docID string) ([]model.DocumentChunk, error) {
	var chunks []model.DocumentChunk
	err := r.db.WithContext(ctx).Where("doc_id = ?", docID).Order("chunk_index ASC").Find(&chunks).Error
	return chunks, err
}

func (r *documentChunkRepository) DeleteByDocID(ctx context.Context, docID string) error {
	return r.db.WithContext(ctx).Where("doc_id = ?", docID).Delete(&model.DocumentChunk{}).Error
}
