package repository

import (
	"context"

	"copro-smart-go/internal/model"

	"gorm.io/gorm"
)

// ResidentRepository persists residents.
type ResidentRepository interface {
	Create(ctx context.Context, r *model.Resident) error
	FindByID(ctx context.Context, id string) (*model.Resident, error)
	FindByEmail(ctx context.Context, email string) (*model.Resident, error)
	FindAll(ctx context.Context) ([]model.Resident, error)
	FindByCopropriete(ctx context.Context, coproprieteID string) ([]model.Resident, error)
	Update(ctx context.Context, r *model.Resident) error
	Delete(ctx context.Context, id string) error
}

type residentRepository struct {
	db *gorm.DB
}

func NewResidentRepository(db *gorm.DB) ResidentRepository {
	return &residentRepository{db: db}
}

func (r *residentRepository) Create(ctx context.Context, res *model.Resident) error {
	return r.db.WithContext(ctx).Create(res).Error
}

func (r *residentRepository) FindByID(ctx context.Context, id string) (*model.Resident, error) {
	var res model.Resident
	if err := r.db.WithContext(ctx).First(&res, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &res, nil
}

func (r *residentRepository) FindByEmail(ctx context.Context, email string) (*model.Resident, error) {
	var res model.Resident
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&res).Error; err != nil {
		return nil, err
	}
	return &res, nil
}

func (r *residentRepository) FindAll(ctx context.Context) ([]model.Resident, error) {
	var list []model.Resident
	err := r.db.WithContext(ctx).Order("last_name ASC, first_name ASC").Find(&list).Error
	return list, err
}

func (r *residentRepository) FindByCopropriete(ctx context.Context, coproprieteID string) ([]model.Resident, error) {
	var list []model.Resident
	err := r.db.WithContext(ctx).
		Where("coproperty_id = ?", coproprieteID).
		Order("last_name ASC, first_name ASC").
		Find(&list).Error
	return list, err
}

func (r *residentRepository) Update(ctx context.Context, res *model.Resident) error {
	return r.db.WithContext(ctx).Save(res).Error
}

func (r *residentRepository) Delete(ctx context.Context, id string) error {
	return deleteByID(r.db.WithContext(ctx), &model.Resident{}, id)
}
