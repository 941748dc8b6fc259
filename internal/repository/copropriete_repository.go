package repository

import (
	"context"

	"copro-smart-go/internal/model"

	"gorm.io/gorm"
)

// CoproprieteRepository persists coproprietes.
type CoproprieteRepository interface {
	Create(ctx context.Context, c *model.Copropriete) error
	FindByID(ctx context.Context, id string) (*model.Copropriete, error)
	FindByUser(ctx context.Context, userID string) ([]model.Copropriete, error)
	Update(ctx context.Context, c *model.Copropriete) error
	Delete(ctx context.Context, id string) error
}

type coproprieteRepository struct {
	db *gorm.DB
}

func NewCoproprieteRepository(db *gorm.DB) CoproprieteRepository {
	return &coproprieteRepository{db: db}
}

func (r *coproprieteRepository) Create(ctx context.Context, c *model.Copropriete) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *coproprieteRepository) FindByID(ctx context.Context, id string) (*model.Copropriete, error) {
	var c model.Copropriete
	if err := r.db.WithContext(ctx).First(&c, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *coproprieteRepository) FindByUser(ctx context.Context, userID string) ([]model.Copropriete, error) {
	var list []model.Copropriete
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC").Find(&list).Error
	return list, err
}

func (r *coproprieteRepository) Update(ctx context.Context, c *model.Copropriete) error {
	return r.db.WithContext(ctx).Save(c).Error
}

func (r *coproprieteRepository) Delete(ctx context.Context, id string) error {
	return deleteByID(r.db.WithContext(ctx), &model.Copropriete{}, id)
}

// deleteByID deletes one row and maps "nothing deleted" to gorm.ErrRecordNotFound.
func deleteByID(db *gorm.DB, value interface{}, id string) error {
	result := db.Delete(value, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
