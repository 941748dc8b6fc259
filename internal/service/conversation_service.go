package service

import (
	"context"
	"strings"

	"copro-smart-go/internal/apperr"
	"copro-smart-go/internal/config"
	"copro-smart-go/internal/model"
	"copro-smart-go/internal/repository"
	"copro-smart-go/pkg/log"
)

const defaultGreeting = "Bonjour, comment puis-je vous aider aujourd'hui ?"

// ConversationService manages conversations and their ordered messages.
// Every lookup that takes a userID treats conversations of other users as
// missing.
type ConversationService interface {
	Create(ctx context.Context, userID, title, coproprietyID string) (*model.Conversation, error)
	Get(ctx context.Context, userID, id string) (*model.Conversation, error)
	ListForUser(ctx context.Context, userID string) ([]model.Conversation, error)
	// ListRecent returns the latest conversations of userID, or of everyone
	// when userID is empty.
	ListRecent(ctx context.Context, userID string, limit int) ([]model.Conversation, error)
	Update(ctx context.Context, userID, id string, upd ConversationUpdate) (*model.Conversation, error)
	Delete(ctx context.Context, userID, id string) error
	// AppendMessages persists msgs with consecutive sequence numbers and
	// schedules a summary whenever a number reaches a multiple of the
	// configured threshold.
	AppendMessages(ctx context.Context, conversationID string, msgs ...*model.Message) error
	RecentMessages(ctx context.Context, conversationID string, limit int) ([]model.Message, error)
}

// ConversationUpdate carries the optional fields of an update.
type ConversationUpdate struct {
	Title         *string `json:"title"`
	CoproprietyID *string `json:"copropriety_id"`
}

type conversationService struct {
	repo       repository.ConversationRepository
	summarizer Summarizer
	cfg        config.ChatConfig
}

// NewConversationService creates a ConversationService. summarizer may be nil.
func NewConversationService(repo repository.ConversationRepository, summarizer Summarizer, cfg config.ChatConfig) ConversationService {
	if cfg.Greeting == "" {
		cfg.Greeting = defaultGreeting
	}
	if cfg.SummaryThreshold <= 0 {
		cfg.SummaryThreshold = 10
	}
	return &conversationService{repo: repo, summarizer: summarizer, cfg: cfg}
}

func (s *conversationService) Create(ctx context.Context, userID, title, coproprietyID string) (*model.Conversation, error) {
	title = strings.TrimSpace(title)
	coproprietyID = strings.TrimSpace(coproprietyID)
	if title == "" {
		return nil, apperr.Validation("title is required")
	}
	if coproprietyID == "" {
		return nil, apperr.Validation("copropriety_id is required")
	}

	conv := &model.Conversation{UserID: userID, Title: title, CoproprietyID: coproprietyID}
	seed := &model.Message{
		Role:    model.RoleAssistantMessage,
		Content: s.cfg.Greeting,
		UserID:  userID,
	}
	if err := s.repo.CreateWithSeed(ctx, conv, seed); err != nil {
		log.Errorf("[ConversationService] create failed, userId=%s: %v", userID, err)
		return nil, notFoundOr(err, "conversation", "create conversation")
	}
	return conv, nil
}

func (s *conversationService) Get(ctx context.Context, userID, id string) (*model.Conversation, error) {
	conv, err := s.repo.FindByID(ctx, id, true)
	if err != nil {
		return nil, notFoundOr(err, "conversation", "find conversation")
	}
	if userID != "" && conv.UserID != userID {
		return nil, apperr.NotFound("conversation not found")
	}
	return conv, nil
}

// owned loads the conversation without its messages and checks ownership.
func (s *conversationService) owned(ctx context.Context, userID, id string) (*model.Conversation, error) {
	conv, err := s.repo.FindByID(ctx, id, false)
	if err != nil {
		return nil, notFoundOr(err, "conversation", "find conversation")
	}
	if userID != "" && conv.UserID != userID {
		return nil, apperr.NotFound("conversation not found")
	}
	return conv, nil
}

func (s *conversationService) ListForUser(ctx context.Context, userID string) ([]model.Conversation, error) {
	return s.repo.FindByUser(ctx, userID)
}

func (s *conversationService) ListRecent(ctx context.Context, userID string, limit int) ([]model.Conversation, error) {
	if limit <= 0 {
		limit = 10
	}
	return s.repo.FindRecent(ctx, userID, limit)
}

func (s *conversationService) Update(ctx context.Context, userID, id string, upd ConversationUpdate) (*model.Conversation, error) {
	fields := map[string]interface{}{}
	if upd.Title != nil {
		if strings.TrimSpace(*upd.Title) == "" {
			return nil, apperr.Validation("title cannot be empty")
		}
		fields["title"] = strings.TrimSpace(*upd.Title)
	}
	if upd.CoproprietyID != nil {
		if strings.TrimSpace(*upd.CoproprietyID) == "" {
			return nil, apperr.Validation("copropriety_id cannot be empty")
		}
		fields["copropriety_id"] = strings.TrimSpace(*upd.CoproprietyID)
	}
	if len(fields) == 0 {
		return nil, apperr.Validation("nothing to update")
	}

	if _, err := s.owned(ctx, userID, id); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, id, fields); err != nil {
		return nil, notFoundOr(err, "conversation", "update conversation")
	}
	return s.owned(ctx, userID, id)
}

func (s *conversationService) Delete(ctx context.Context, userID, id string) error {
	if _, err := s.owned(ctx, userID, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return notFoundOr(err, "conversation", "delete conversation")
	}
	log.Infof("[ConversationService] deleted conversation %s", id)
	return nil
}

func (s *conversationService) AppendMessages(ctx context.Context, conversationID string, msgs ...*model.Message) error {
	if err := s.repo.AppendMessages(ctx, conversationID, msgs...); err != nil {
		return notFoundOr(err, "conversation", "append messages")
	}
	if s.summarizer == nil {
		return nil
	}
	for _, m := range msgs {
		if m.SequenceNumber%s.cfg.SummaryThreshold == 0 {
			s.summarizer.Enqueue(conversationID)
			break
		}
	}
	return nil
}

func (s *conversationService) RecentMessages(ctx context.Context, conversationID string, limit int) ([]model.Message, error) {
	return s.repo.RecentMessages(ctx, conversationID, limit)
}
