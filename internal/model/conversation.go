package model

import (
	"time"

	"gorm.io/gorm"
)

const (
	RoleUserMessage      = "user"
	RoleAssistantMessage = "assistant"
)

// Conversation is a chat thread owned by a user and scoped to a copropriete.
type Conversation struct {
	ID            string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	UserID        string    `gorm:"type:varchar(36);index;not null" json:"userId"`
	Title         string    `gorm:"type:varchar(255);not null" json:"title"`
	CoproprietyID string    `gorm:"type:varchar(36);index;not null" json:"copropriety_id"`
	Summary       string    `gorm:"type:text" json:"summary"`
	Messages      []Message `gorm:"constraint:OnDelete:CASCADE" json:"messages,omitempty"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime;index" json:"updated_at"`
}

func (Conversation) TableName() string {
	return "conversations"
}

func (c *Conversation) BeforeCreate(*gorm.DB) error {
	assignID(&c.ID)
	return nil
}

// Message is one turn of a conversation. SequenceNumber starts at 1 and has
// no gaps within a conversation.
type Message struct {
	ID             string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	ConversationID string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_conversation_sequence,priority:1" json:"conversation_id"`
	Role           string    `gorm:"type:varchar(20);not null" json:"role"`
	Content        string    `gorm:"type:text;not null" json:"content"`
	UserID         string    `gorm:"type:varchar(36)" json:"userId"`
	SequenceNumber int       `gorm:"not null;uniqueIndex:idx_conversation_sequence,priority:2" json:"sequence_number"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Message) TableName() string {
	return "messages"
}

func (m *Message) BeforeCreate(*gorm.DB) error {
	assignID(&m.ID)
	return nil
}
