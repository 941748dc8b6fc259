package service

import (
	"context"
	"fmt"
	"strings"

	"copro-smart-go/internal/apperr"
	"copro-smart-go/internal/model"
	"copro-smart-go/internal/repository"
	"copro-smart-go/pkg/hash"
	"copro-smart-go/pkg/log"
)

// UserService exposes user profiles. Mutations are allowed on one's own
// profile, or on any profile for admins.
type UserService interface {
	List(ctx context.Context) ([]model.User, error)
	Get(ctx context.Context, id string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	Update(ctx context.Context, actor *model.User, id string, in UpdateUserInput) (*model.User, error)
	ChangePassword(ctx context.Context, actor *model.User, id, currentPassword, newPassword string) error
}

// UpdateUserInput holds the editable profile fields.
type UpdateUserInput struct {
	Username *string `json:"username"`
	Phone    *string `json:"phone"`
	Address  *string `json:"address"`
}

type userService struct {
	userRepo repository.UserRepository
}

func NewUserService(userRepo repository.UserRepository) UserService {
	return &userService{userRepo: userRepo}
}

func (s *userService) List(ctx context.Context) ([]model.User, error) {
	return s.userRepo.FindAll(ctx)
}

func (s *userService) Get(ctx context.Context, id string) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "user", "find user")
	}
	return user, nil
}

func (s *userService) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	user, err := s.userRepo.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, notFoundOr(err, "user", "find user by email")
	}
	return user, nil
}

func (s *userService) Update(ctx context.Context, actor *model.User, id string, in UpdateUserInput) (*model.User, error) {
	if err := checkSelfOrAdmin(actor, id); err != nil {
		return nil, err
	}
	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Username != nil {
		name := strings.TrimSpace(*in.Username)
		if n := len([]rune(name)); n < 4 || n > 20 {
			return nil, apperr.Validation("username must be between 4 and 20 characters")
		}
		user.Username = name
	}
	if in.Phone != nil {
		user.Phone = strings.TrimSpace(*in.Phone)
	}
	if in.Address != nil {
		user.Address = strings.TrimSpace(*in.Address)
	}
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	return user, nil
}

func (s *userService) ChangePassword(ctx context.Context, actor *model.User, id, currentPassword, newPassword string) error {
	if err := checkSelfOrAdmin(actor, id); err != nil {
		return err
	}
	user, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if !hash.CheckPasswordHash(currentPassword, user.Password) {
		return apperr.Unauthorized("current password is incorrect")
	}
	if err := validatePassword(newPassword); err != nil {
		return err
	}
	hashed, err := hash.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	user.Password = hashed
	if err := s.userRepo.Update(ctx, user); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	log.Infof("[UserService] password changed, userId=%s", id)
	return nil
}

func checkSelfOrAdmin(actor *model.User, id string) error {
	if actor == nil {
		return apperr.Unauthorized("authentication required")
	}
	if actor.ID != id && !actor.IsAdmin() {
		return apperr.Unauthorized("you may only modify your own account")
	}
	return nil
}
