package service

import (
	"context"
	"fmt"
	"strings"

	"copro-smart-go/internal/apperr"
	"copro-smart-go/internal/model"
	"copro-smart-go/internal/repository"
)

// CoproprieteService manages the coproprietes owned by a user. Coproprietes
// of other users are reported as missing.
type CoproprieteService interface {
	List(ctx context.Context, userID string) ([]model.Copropriete, error)
	Get(ctx context.Context, userID, id string) (*model.Copropriete, error)
	Create(ctx context.Context, userID string, in CoproprieteInput) (*model.Copropriete, error)
	Update(ctx context.Context, userID, id string, in CoproprieteInput) (*model.Copropriete, error)
	Delete(ctx context.Context, userID, id string) error
}

// CoproprieteInput is the body of create and update requests.
type CoproprieteInput struct {
	Name         string `json:"name"`
	Address      string `json:"address"`
	Description  string `json:"description"`
	Units        int    `json:"units"`
	AdvisorName  string `json:"advisor_name"`
	AdvisorEmail string `json:"advisor_email"`
	AdvisorPhone string `json:"advisor_phone"`
}

func (in CoproprieteInput) validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return apperr.Validation("name is required")
	}
	if strings.TrimSpace(in.Address) == "" {
		return apperr.Validation("address is required")
	}
	if in.Units < 0 {
		return apperr.Validation("units must not be negative")
	}
	return nil
}

func (in CoproprieteInput) apply(c *model.Copropriete) {
	c.Name = strings.TrimSpace(in.Name)
	c.Address = strings.TrimSpace(in.Address)
	c.Description = in.Description
	c.Units = in.Units
	c.AdvisorName = in.AdvisorName
	c.AdvisorEmail = in.AdvisorEmail
	c.AdvisorPhone = in.AdvisorPhone
}

type coproprieteService struct {
	repo repository.CoproprieteRepository
}

func NewCoproprieteService(repo repository.CoproprieteRepository) CoproprieteService {
	return &coproprieteService{repo: repo}
}

func (s *coproprieteService) List(ctx context.Context, userID string) ([]model.Copropriete, error) {
	return s.repo.FindByUser(ctx, userID)
}

func (s *coproprieteService) Get(ctx context.Context, userID, id string) (*model.Copropriete, error) {
	c, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "copropriete", "find copropriete")
	}
	if c.UserID != userID {
		return nil, apperr.NotFound("copropriete not found")
	}
	return c, nil
}

func (s *coproprieteService) Create(ctx context.Context, userID string, in CoproprieteInput) (*model.Copropriete, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	c := &model.Copropriete{UserID: userID}
	in.apply(c)
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("create copropriete: %w", err)
	}
	return c, nil
}

func (s *coproprieteService) Update(ctx context.Context, userID, id string, in CoproprieteInput) (*model.Copropriete, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	c, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	in.apply(c)
	if err := s.repo.Update(ctx, c); err != nil {
		return nil, fmt.Errorf("update copropriete: %w", err)
	}
	return c, nil
}

func (s *coproprieteService) Delete(ctx context.Context, userID, id string) error {
	if _, err := s.Get(ctx, userID, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return notFoundOr(err, "copropriete", "delete copropriete")
	}
	return nil
}
