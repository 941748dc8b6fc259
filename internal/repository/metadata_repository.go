package repository

import (
	"context"

	"copro-smart-go/internal/model"

	"gorm.io/gorm"
)

// MetadataRepository persists uploaded file records.
type MetadataRepository interface {
	Create(ctx context.Context, m *model.Metadata) error
	FindByDocID(ctx context.Context, docID string) (*model.Metadata, error)
	FindByUser(ctx context.Context, userID string) ([]model.Metadata, error)
	UpdateStatus(ctx context.Context, docID, status string, chunks int) error
	DeleteByDocID(ctx context.Context, docID string) error
}

type metadataRepository struct {
	db *gorm.DB
}

func NewMetadataRepository(db *gorm.DB) MetadataRepository {
	return &metadataRepository{db: db}
}

func (r *metadataRepository) Create(ctx context.Context, m *model.Metadata) error {
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *metadataRepository) FindByDocID(ctx context.Context, docID string) (*model.Metadata, error) {
	var m model.Metadata
	if err := r.db.WithContext(ctx).Where("doc_id = ?", docID).First(&m).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *metadataRepository) FindByUser(ctx context.Context, userID string) ([]model.Metadata, error) {
	var list []model.Metadata
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC").Find(&list).Error
	return list, err
}

func (r *metadataRepository) UpdateStatus(ctx context.Context, docID, status string, chunks int) error {
	return r.db.WithContext(ctx).Model(&model.Metadata{}).
		Where("doc_id = ?", docID).
		Updates(map[string]interface{}{"status": status, "chunks": chunks}).Error
}

func (r *metadataRepository) DeleteByDocID(ctx context.Context, docID string) error {
	result := r.db.WithContext(ctx).Where("doc_id = ?", docID).Delete(&model.Metadata{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
