package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"copro-smart-go/internal/apperr"
	"copro-smart-go/internal/model"
	"copro-smart-go/internal/repository"
	"copro-smart-go/pkg/filename"
	"copro-smart-go/pkg/log"
	"copro-smart-go/pkg/storage"

	"gorm.io/gorm"
)

// IncidentService manages incidents reported by residents.
type IncidentService interface {
	List(ctx context.Context) ([]model.Incident, error)
	ListByCopropriete(ctx context.Context, coproprieteID string) ([]model.Incident, error)
	ListByResident(ctx context.Context, residentID string) ([]model.Incident, error)
	Get(ctx context.Context, id string) (*model.Incident, error)
	// Create stores the incident; photo is optional.
	Create(ctx context.Context, in IncidentInput, photo *Attachment) (*model.Incident, error)
	Update(ctx context.Context, id string, in IncidentInput) (*model.Incident, error)
	Delete(ctx context.Context, id string) error
}

// IncidentInput is the body of create and update requests.
type IncidentInput struct {
	Title       *string  `json:"title" form:"title"`
	Description *string  `json:"description" form:"description"`
	Location    *string  `json:"location" form:"location"`
	Type        *string  `json:"type" form:"type"`
	Status      *string  `json:"status" form:"status"`
	Urgent      *bool    `json:"urgent" form:"urgent"`
	ReportedBy  *string  `json:"reported_by" form:"reported_by"`
	ResolvedBy  *string  `json:"resolved_by" form:"resolved_by"`
	ResidentID  *string  `json:"residentId" form:"residentId"`
	Photos      []string `json:"photos" form:"photos"`
}

// Attachment is an uploaded file on its way to storage.
type Attachment struct {
	Name        string
	Size        int64
	ContentType string
	Reader      io.Reader
}

type incidentService struct {
	repo         repository.IncidentRepository
	residentRepo repository.ResidentRepository
	store        storage.Storage
	now          func() time.Time
}

func NewIncidentService(repo repository.IncidentRepository, residentRepo repository.ResidentRepository, store storage.Storage) IncidentService {
	return &incidentService{repo: repo, residentRepo: residentRepo, store: store, now: time.Now}
}

func (s *incidentService) List(ctx context.Context) ([]model.Incident, error) {
	return s.repo.FindAll(ctx)
}

func (s *incidentService) ListByCopropriete(ctx context.Context, coproprieteID string) ([]model.Incident, error) {
	return s.repo.FindByCopropriete(ctx, coproprieteID)
}

func (s *incidentService) ListByResident(ctx context.Context, residentID string) ([]model.Incident, error) {
	return s.repo.FindByResident(ctx, residentID)
}

func (s *incidentService) Get(ctx context.Context, id string) (*model.Incident, error) {
	i, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "incident", "find incident")
	}
	return i, nil
}

func (s *incidentService) Create(ctx context.Context, in IncidentInput, photo *Attachment) (*model.Incident, error) {
	required := []struct {
		name  string
		value *string
	}{
		{"title", in.Title},
		{"description", in.Description},
		{"location", in.Location},
		{"reported_by", in.ReportedBy},
		{"residentId", in.ResidentID},
	}
	for _, f := range required {
		if f.value == nil || strings.TrimSpace(*f.value) == "" {
			return nil, apperr.Validation("%s is required", f.name)
		}
	}

	incident := &model.Incident{Photos: []string{}}
	if err := s.apply(ctx, incident, in); err != nil {
		return nil, err
	}

	if photo != nil {
		url, err := s.storePhoto(ctx, photo)
		if err != nil {
			return nil, err
		}
		incident.Photos = append(incident.Photos, url)
	}

	if err := s.repo.Create(ctx, incident); err != nil {
		return nil, fmt.Errorf("create incident: %w", err)
	}
	log.Infof("[IncidentService] incident %s reported for resident %s", incident.ID, incident.ResidentID)
	return incident, nil
}

func (s *incidentService) Update(ctx context.Context, id string, in IncidentInput) (*model.Incident, error) {
	incident, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.apply(ctx, incident, in); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, incident); err != nil {
		return nil, fmt.Errorf("update incident: %w", err)
	}
	return incident, nil
}

func (s *incidentService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return notFoundOr(err, "incident", "delete incident")
	}
	return nil
}

func (s *incidentService) apply(ctx context.Context, i *model.Incident, in IncidentInput) error {
	if in.Title != nil {
		i.Title = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		i.Description = strings.TrimSpace(*in.Description)
	}
	if in.Location != nil {
		i.Location = strings.TrimSpace(*in.Location)
	}
	if in.ReportedBy != nil {
		i.ReportedBy = strings.TrimSpace(*in.ReportedBy)
	}
	if in.ResolvedBy != nil {
		i.ResolvedBy = strings.TrimSpace(*in.ResolvedBy)
	}
	if in.Type != nil && *in.Type != "" {
		if !model.ValidIncidentType(*in.Type) {
			return apperr.Validation("unknown incident type %q", *in.Type)
		}
		i.Type = *in.Type
	}
	if in.Urgent != nil {
		i.Urgent = *in.Urgent
	}
	if in.Status != nil && *in.Status != "" {
		if !model.ValidIncidentStatus(*in.Status) {
			return apperr.Validation("unknown incident status %q", *in.Status)
		}
		i.Status = *in.Status
	} else if in.Urgent != nil && *in.Urgent {
		i.Status = model.IncidentUrgent
	}
	if i.Status == model.IncidentResolved && i.ResolvedBy == "" {
		return apperr.Validation("resolved_by is required to resolve an incident")
	}
	if in.Photos != nil {
		i.Photos = in.Photos
	}
	if in.ResidentID != nil {
		resident, err := s.residentRepo.FindByID(ctx, strings.TrimSpace(*in.ResidentID))
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.Validation("resident %s does not exist", *in.ResidentID)
			}
			return fmt.Errorf("find resident: %w", err)
		}
		i.ResidentID = resident.ID
		i.CoproprieteID = resident.CopropertyID
		i.Resident = nil
	}
	return nil
}

// storePhoto saves photo under incident/<unix millis>-<sanitized name> and
// returns its public URL.
func (s *incidentService) storePhoto(ctx context.Context, photo *Attachment) (string, error) {
	key := fmt.Sprintf("incident/%d-%s", s.now().UnixMilli(), filename.Sanitize(photo.Name))
	if err := s.store.Put(ctx, key, photo.Reader, photo.Size, photo.ContentType); err != nil {
		return "", fmt.Errorf("store incident photo: %w", err)
	}
	return "/uploads/" + key, nil
}
