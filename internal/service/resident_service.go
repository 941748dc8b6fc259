package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"copro-smart-go/internal/apperr"
	"copro-smart-go/internal/model"
	"copro-smart-go/internal/repository"

	"gorm.io/gorm"
)

// ResidentService manages residents of coproprietes.
type ResidentService interface {
	List(ctx context.Context) ([]model.Resident, error)
	ListByCopropriete(ctx context.Context, coproprieteID string) ([]model.Resident, error)
	Get(ctx context.Context, id string) (*model.Resident, error)
	Create(ctx context.Context, in ResidentInput) (*model.Resident, error)
	Update(ctx context.Context, id string, in ResidentInput) (*model.Resident, error)
	Delete(ctx context.Context, id string) error
}

// ResidentInput is the body of create and update requests. Update only
// applies the fields that are set.
type ResidentInput struct {
	FirstName    *string    `json:"firstName"`
	LastName     *string    `json:"lastName"`
	Email        *string    `json:"email"`
	Phone        *string    `json:"phone"`
	Apartment    *string    `json:"apartment"`
	ProfileImage *string    `json:"profileImage"`
	CopropertyID *string    `json:"copropertyId"`
	Status       *string    `json:"status"`
	MoveInDate   *time.Time `json:"moveInDate"`
	Notes        *string    `json:"notes"`
}

type residentService struct {
	repo      repository.ResidentRepository
	coproRepo repository.CoproprieteRepository
}

func NewResidentService(repo repository.ResidentRepository, coproRepo repository.CoproprieteRepository) ResidentService {
	return &residentService{repo: repo, coproRepo: coproRepo}
}

func (s *residentService) List(ctx context.Context) ([]model.Resident, error) {
	return s.repo.FindAll(ctx)
}

func (s *residentService) ListByCopropriete(ctx context.Context, coproprieteID string) ([]model.Resident, error) {
	if coproprieteID == "" {
		return nil, apperr.Validation("copropriete id is required")
	}
	return s.repo.FindByCopropriete(ctx, coproprieteID)
}

func (s *residentService) Get(ctx context.Context, id string) (*model.Resident, error) {
	r, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "resident", "find resident")
	}
	return r, nil
}

func (s *residentService) Create(ctx context.Context, in ResidentInput) (*model.Resident, error) {
	if in.CopropertyID == nil || strings.TrimSpace(*in.CopropertyID) == "" {
		return nil, apperr.Validation("copropertyId is required")
	}
	if in.FirstName == nil || in.LastName == nil || in.Email == nil {
		return nil, apperr.Validation("firstName, lastName and email are required")
	}
	r := &model.Resident{}
	if err := s.apply(ctx, r, in); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, r); err != nil {
		return nil, fmt.Errorf("create resident: %w", err)
	}
	return r, nil
}

func (s *residentService) Update(ctx context.Context, id string, in ResidentInput) (*model.Resident, error) {
	r, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.apply(ctx, r, in); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, r); err != nil {
		return nil, fmt.Errorf("update resident: %w", err)
	}
	return r, nil
}

func (s *residentService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return notFoundOr(err, "resident", "delete resident")
	}
	return nil
}

// apply validates the set fields of in and copies them onto r.
func (s *residentService) apply(ctx context.Context, r *model.Resident, in ResidentInput) error {
	if in.FirstName != nil {
		if strings.TrimSpace(*in.FirstName) == "" {
			return apperr.Validation("firstName cannot be empty")
		}
		r.FirstName = strings.TrimSpace(*in.FirstName)
	}
	if in.LastName != nil {
		if strings.TrimSpace(*in.LastName) == "" {
			return apperr.Validation("lastName cannot be empty")
		}
		r.LastName = strings.TrimSpace(*in.LastName)
	}
	if in.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*in.Email))
		if _, err := mail.ParseAddress(email); err != nil {
			return apperr.Validation("email is invalid")
		}
		if email != r.Email {
			existing, err := s.repo.FindByEmail(ctx, email)
			if err == nil && existing.ID != r.ID {
				return apperr.Conflict("a resident with this email already exists")
			}
			if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("find resident by email: %w", err)
			}
		}
		r.Email = email
	}
	if in.CopropertyID != nil {
		id := strings.TrimSpace(*in.CopropertyID)
		if _, err := s.coproRepo.FindByID(ctx, id); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.Validation("copropriete %s does not exist", id)
			}
			return fmt.Errorf("find copropriete: %w", err)
		}
		r.CopropertyID = id
	}
	if in.Status != nil {
		if !model.ValidResidentStatus(*in.Status) {
			return apperr.Validation("status must be owner, tenant or both")
		}
		r.Status = *in.Status
	}
	if in.Phone != nil {
		r.Phone = *in.Phone
	}
	if in.Apartment != nil {
		r.Apartment = *in.Apartment
	}
	if in.ProfileImage != nil {
		r.ProfileImage = *in.ProfileImage
	}
	if in.MoveInDate != nil {
		r.MoveInDate = in.MoveInDate
	}
	if in.Notes != nil {
		r.Notes = *in.Notes
	}
	return nil
}
