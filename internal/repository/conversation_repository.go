package repository

import (
	"context"
	"time"

	"copro-smart-go/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ConversationRepository persists conversations and their ordered messages.
type ConversationRepository interface {
	// CreateWithSeed stores conv and seed (sequence number 1) in one transaction.
	CreateWithSeed(ctx context.Context, conv *model.Conversation, seed *model.Message) error
	FindByID(ctx context.Context, id string, withMessages bool) (*model.Conversation, error)
	FindByUser(ctx context.Context, userID string) ([]model.Conversation, error)
	// FindRecent lists the latest conversations, across all users when userID is empty.
	FindRecent(ctx context.Context, userID string, limit int) ([]model.Conversation, error)
	Update(ctx context.Context, id string, fields map[string]interface{}) error
	UpdateSummary(ctx context.Context, id, summary string) error
	// Delete removes the conversation and all of its messages.
	Delete(ctx context.Context, id string) error

	// AppendMessages assigns consecutive sequence numbers to msgs, following
	// the highest existing one, and inserts them atomically.
	AppendMessages(ctx context.Context, conversationID string, msgs ...*model.Message) error
	// RecentMessages returns up to limit latest messages in ascending order.
	RecentMessages(ctx context.Context, conversationID string, limit int) ([]model.Message, error)
	CountMessages(ctx context.Context, conversationID string) (int64, error)
}

type conversationRepository struct {
	db *gorm.DB
}

// NewConversationRepository creates a gorm backed ConversationRepository.
func NewConversationRepository(db *gorm.DB) ConversationRepository {
	return &conversationRepository{db: db}
}

func (r *conversationRepository) CreateWithSeed(ctx context.Context, conv *model.Conversation, seed *model.Message) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Messages").Create(conv).Error; err != nil {
			return err
		}
		seed.ConversationID = conv.ID
		seed.SequenceNumber = 1
		if err := tx.Create(seed).Error; err != nil {
			return err
		}
		conv.Messages = []model.Message{*seed}
		return nil
	})
}

func (r *conversationRepository) FindByID(ctx context.Context, id string, withMessages bool) (*model.Conversation, error) {
	q := r.db.WithContext(ctx)
	if withMessages {
		q = q.Preload("Messages", func(db *gorm.DB) *gorm.DB { return db.Order("sequence_number ASC") })
	}
	var conv model.Conversation
	if err := q.First(&conv, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &conv, nil
}

func (r *conversationRepository) FindByUser(ctx context.Context, userID string) ([]model.Conversation, error) {
	var list []model.Conversation
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("updated_at DESC").Find(&list).Error
	return list, err
}

func (r *conversationRepository) FindRecent(ctx context.Context, userID string, limit int) ([]model.Conversation, error) {
	var list []model.Conversation
	q := r.db.WithContext(ctx).Order("updated_at DESC").Limit(limit)
	if userID != "" {
		q = q.Where("user_id = ?", userID)
	}
	err := q.Find(&list).Error
	return list, err
}

func (r *conversationRepository) Update(ctx context.Context, id string, fields map[string]interface{}) error {
	result := r.db.WithContext(ctx).Model(&model.Conversation{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// UpdateSummary leaves updated_at alone so summaries do not reorder the recent list.
func (r *conversationRepository) UpdateSummary(ctx context.Context, id, summary string) error {
	return r.db.WithContext(ctx).Model(&model.Conversation{}).Where("id = ?", id).UpdateColumn("summary", summary).Error
}

func (r *conversationRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("conversation_id = ?", id).Delete(&model.Message{}).Error; err != nil {
			return err
		}
		return deleteByID(tx, &model.Conversation{}, id)
	})
}

func (r *conversationRepository) AppendMessages(ctx context.Context, conversationID string, msgs ...*model.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// The row lock serialises appenders of the same conversation.
		var conv model.Conversation
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Select("id").First(&conv, "id = ?", conversationID).Error; err != nil {
			return err
		}

		var last int
		row := tx.Model(&model.Message{}).
			Where("conversation_id = ?", conversationID).
			Select("COALESCE(MAX(sequence_number), 0)").
			Row()
		if err := row.Scan(&last); err != nil {
			return err
		}

		for i, m := range msgs {
			m.ConversationID = conversationID
			m.SequenceNumber = last + i + 1
		}
		if err := tx.Create(msgs).Error; err != nil {
			return err
		}
		return tx.Model(&model.Conversation{}).Where("id = ?", conversationID).UpdateColumn("updated_at", time.Now()).Error
	})
}

func (r *conversationRepository) RecentMessages(ctx context.Context, conversationID string, limit int) ([]model.Message, error) {
	var msgs []model.Message
	err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("sequence_number DESC").
		Limit(limit).
		Find(&msgs).Error
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

func (r *conversationRepository) CountMessages(ctx context.Context, conversationID string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Message{}).Where("conversation_id = ?", conversationID).Count(&n).Error
	return n, err
}
