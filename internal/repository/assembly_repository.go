package repository

import (
	"context"

	"copro-smart-go/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AssemblyRepository persists assemblies and their children.
type AssemblyRepository interface {
	Create(ctx context.Context, a *model.Assembly) error
	FindAll(ctx context.Context) ([]model.Assembly, error)
	FindByCopropriete(ctx context.Context, coproprieteID string) ([]model.Assembly, error)
	FindByID(ctx context.Context, id string) (*model.Assembly, error)
	Update(ctx context.Context, a *model.Assembly) error
	Delete(ctx context.Context, id string) error

	CreateAgendaItem(ctx context.Context, item *model.AgendaItem) error
	FindAgendaItem(ctx context.Context, assemblyID, itemID string) (*model.AgendaItem, error)
	UpdateAgendaItem(ctx context.Context, item *model.AgendaItem) error
	DeleteAgendaItem(ctx context.Context, assemblyID, itemID string) error

	CreateDecision(ctx context.Context, d *model.Decision) error
	CreateAttendee(ctx context.Context, a *model.Attendee) error
	CreateDocument(ctx context.Context, d *model.AssemblyDocument) error
}

type assemblyRepository struct {
	db *gorm.DB
}

func NewAssemblyRepository(db *gorm.DB) AssemblyRepository {
	return &assemblyRepository{db: db}
}

// withChildren preloads every child collection, agenda items in agenda order.
func withChildren(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Agenda", func(db *gorm.DB) *gorm.DB { return db.Order("item_order ASC") }).
		Preload("Decisions.Voters").
		Preload("Documents").
		Preload("Attendees")
}

func (r *assemblyRepository) Create(ctx context.Context, a *model.Assembly) error {
	return r.db.WithContext(ctx).Create(a).Error
}

func (r *assemblyRepository) FindAll(ctx context.Context) ([]model.Assembly, error) {
	var list []model.Assembly
	err := withChildren(r.db.WithContext(ctx)).Order("date DESC").Find(&list).Error
	return list, err
}

func (r *assemblyRepository) FindByCopropriete(ctx context.Context, coproprieteID string) ([]model.Assembly, error) {
	var list []model.Assembly
	err := withChildren(r.db.WithContext(ctx)).
		Where("copropriety_id = ?", coproprieteID).
		Order("date DESC").
		Find(&list).Error
	return list, err
}

func (r *assemblyRepository) FindByID(ctx context.Context, id string) (*model.Assembly, error) {
	var a model.Assembly
	if err := withChildren(r.db.WithContext(ctx)).First(&a, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

// Update saves the assembly row only; children are managed through their own methods.
func (r *assemblyRepository) Update(ctx context.Context, a *model.Assembly) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(a).Error
}

// Delete removes the assembly and all its children in one transaction.
func (r *assemblyRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var decisionIDs []string
		if err := tx.Model(&model.Decision{}).Where("assembly_id = ?", id).Pluck("id", &decisionIDs).Error; err != nil {
			return err
		}
		if len(decisionIDs) > 0 {
			if err := tx.Where("decision_id IN ?", decisionIDs).Delete(&model.Voter{}).Error; err != nil {
				return err
			}
		}
		for _, child := range []interface{}{&model.Decision{}, &model.AgendaItem{}, &model.Attendee{}, &model.AssemblyDocument{}} {
			if err := tx.Where("assembly_id = ?", id).Delete(child).Error; err != nil {
				return err
			}
		}
		return deleteByID(tx, &model.Assembly{}, id)
	})
}

func (r *assemblyRepository) CreateAgendaItem(ctx context.Context, item *model.AgendaItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *assemblyRepository) FindAgendaItem(ctx context.Context, assemblyID, itemID string) (*model.AgendaItem, error) {
	var item model.AgendaItem
	err := r.db.WithContext(ctx).Where("id = ? AND assembly_id = ?", itemID, assemblyID).First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *assemblyRepository) UpdateAgendaItem(ctx context.Context, item *model.AgendaItem) error {
	return r.db.WithContext(ctx).Save(item).Error
}

func (r *assemblyRepository) DeleteAgendaItem(ctx context.Context, assemblyID, itemID string) error {
	result := r.db.WithContext(ctx).Where("id = ? AND assembly_id = ?", itemID, assemblyID).Delete(&model.AgendaItem{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// CreateDecision stores the decision together with its voters.
func (r *assemblyRepository) CreateDecision(ctx context.Context, d *model.Decision) error {
	return r.db.WithContext(ctx).Create(d).Error
}

func (r *assemblyRepository) CreateAttendee(ctx context.Context, a *model.Attendee) error {
	return r.db.WithContext(ctx).Create(a).Error
}

func (r *assemblyRepository) CreateDocument(ctx context.Context, d *model.AssemblyDocument) error {
	return r.db.WithContext(ctx).Create(d).Error
}
