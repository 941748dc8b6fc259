package service

import (
	"context"
	"fmt"
	"time"

	"copro-smart-go/internal/apperr"
	"copro-smart-go/internal/model"
	"copro-smart-go/internal/repository"
	"copro-smart-go/pkg/log"
)

// UserListResponse is one page of users.
type UserListResponse struct {
	Content       []UserDetailResponse `json:"content"`
	TotalElements int64                `json:"totalElements"`
	TotalPages    int                  `json:"totalPages"`
	Size          int                  `json:"size"`
	Number        int                  `json:"number"`
}

// UserDetailResponse is a user as shown in the admin list.
type UserDetailResponse struct {
	UserID    string    `json:"userId"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	Google    bool      `json:"google"`
	CreatedAt time.Time `json:"createdAt"`
}

// AdminService groups the operations reserved to administrators.
type AdminService interface {
	ListUsers(ctx context.Context, page, size int) (*UserListResponse, error)
	SetUserRole(ctx context.Context, actor *model.User, userID, role string) (*model.User, error)
	// RecentConversations lists the latest conversations of every user, or
	// of userID when it is set.
	RecentConversations(ctx context.Context, userID string, limit int) ([]model.Conversation, error)
}

type adminService struct {
	userRepo      repository.UserRepository
	conversations ConversationService
}

func NewAdminService(userRepo repository.UserRepository, conversations ConversationService) AdminService {
	return &adminService{userRepo: userRepo, conversations: conversations}
}

// ListUsers returns page (1-based) of size users.
func (s *adminService) ListUsers(ctx context.Context, page, size int) (*UserListResponse, error) {
	if page < 1 {
		page = 1
	}
	if size < 1 || size > 100 {
		size = 20
	}
	users, total, err := s.userRepo.FindWithPagination(ctx, (page-1)*size, size)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	content := make([]UserDetailResponse, 0, len(users))
	for _, u := range users {
		content = append(content, UserDetailResponse{
			UserID:    u.ID,
			Username:  u.Username,
			Email:     u.Email,
			Role:      u.Role,
			Google:    u.GoogleID != "",
			CreatedAt: u.CreatedAt,
		})
	}

	totalPages := 0
	if total > 0 {
		totalPages = (int(total) + size - 1) / size
	}
	return &UserListResponse{
		Content:       content,
		TotalElements: total,
		TotalPages:    totalPages,
		Size:          size,
		Number:        page,
	}, nil
}

func (s *adminService) SetUserRole(ctx context.Context, actor *model.User, userID, role string) (*model.User, error) {
	if role != model.RoleUser && role != model.RoleAdmin {
		return nil, apperr.Validation("role must be user or admin")
	}
	if actor != nil && actor.ID == userID && role != model.RoleAdmin {
		return nil, apperr.Validation("administrators cannot demote themselves")
	}
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, notFoundOr(err, "user", "find user")
	}
	user.Role = role
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("update role: %w", err)
	}
	log.Infof("[AdminService] role of user %s set to %s", userID, role)
	return user, nil
}

func (s *adminService) RecentConversations(ctx context.Context, userID string, limit int) ([]model.Conversation, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	return s.conversations.ListRecent(ctx, userID, limit)
}
