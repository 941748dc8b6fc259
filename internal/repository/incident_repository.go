package repository

import (
	"context"

	"copro-smart-go/internal/model"

	"gorm.io/gorm"
)

// IncidentRepository persists incidents. Reads include the reporting resident.
type IncidentRepository interface {
	Create(ctx context.Context, i *model.Incident) error
	FindByID(ctx context.Context, id string) (*model.Incident, error)
	FindAll(ctx context.Context) ([]model.Incident, error)
	FindByCopropriete(ctx context.Context, coproprieteID string) ([]model.Incident, error)
	FindByResident(ctx context.Context, residentID string) ([]model.Incident, error)
	Update(ctx context.Context, i *model.Incident) error
	Delete(ctx context.Context, id string) error
}

type incidentRepository struct {
	db *gorm.DB
}

func NewIncidentRepository(db *gorm.DB) IncidentRepository {
	return &incidentRepository{db: db}
}

func (r *incidentRepository) Create(ctx context.Context, i *model.Incident) error {
	return r.db.WithContext(ctx).Omit("Resident", "Copropriete").Create(i).Error
}

func (r *incidentRepository) FindByID(ctx context.Context, id string) (*model.Incident, error) {
	var i model.Incident
	if err := r.db.WithContext(ctx).Preload("Resident").First(&i, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &i, nil
}

func (r *incidentRepository) FindAll(ctx context.Context) ([]model.Incident, error) {
	return r.find(ctx, "")
}

func (r *incidentRepository) FindByCopropriete(ctx context.Context, coproprieteID string) ([]model.Incident, error) {
	return r.find(ctx, "copropriete_id = ?", coproprieteID)
}

func (r *incidentRepository) FindByResident(ctx context.Context, residentID string) ([]model.Incident, error) {
	return r.find(ctx, "resident_id = ?", residentID)
}

func (r *incidentRepository) find(ctx context.Context, where string, args ...interface{}) ([]model.Incident, error) {
	q := r.db.WithContext(ctx).Preload("Resident").Order("reported_at DESC")
	if where != "" {
		q = q.Where(where, args...)
	}
	var list []model.Incident
	err := q.Find(&list).Error
	return list, err
}

func (r *incidentRepository) Update(ctx context.Context, i *model.Incident) error {
	return r.db.WithContext(ctx).Omit("Resident", "Copropriete").Save(i).Error
}

func (r *incidentRepository) Delete(ctx context.Context, id string) error {
	return deleteByID(r.db.WithContext(ctx), &model.Incident{}, id)
}
