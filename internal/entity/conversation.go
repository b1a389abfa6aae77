package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	ConversationDirect = "direct"
	ConversationGroup  = "group"
)

type Conversation struct {
	ID   uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Type string    `gorm:"size:10;not null;index" json:"type"`
	Name *string   `gorm:"size:150" json:"name,omitempty"`
	// CohortName is set for group conversations only.
	CohortName *string `gorm:"size:100;uniqueIndex:idx_conversations_group_cohort,where:type = 'group'" json:"cohort_name,omitempty"`
	// DirectKey is the sorted member pair of a direct conversation.
	DirectKey     *string    `gorm:"size:80;uniqueIndex" json:"-"`
	LastSeq       int64      `gorm:"not null;default:0" json:"last_seq"`
	LastMessageAt *time.Time `json:"last_message_at,omitempty"`
	CreatedAt     time.Time  `gorm:"autoCreateTime" json:"created_at"`

	Members []ConversationMember `gorm:"constraint:OnDelete:CASCADE" json:"members,omitempty"`
}

func (c *Conversation) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

type ConversationMember struct {
	ConversationID uuid.UUID `gorm:"type:uuid;primaryKey" json:"conversation_id"`
	UserID         uuid.UUID `gorm:"type:uuid;primaryKey;index" json:"user_id"`
	JoinedAt       time.Time `gorm:"autoCreateTime" json:"joined_at"`
	Profile        *Profile  `gorm:"foreignKey:UserID;references:UserID" json:"profile,omitempty"`
}

// Message is immutable once stored. Seq is dense per conversation and
// defines the delivery order.
type Message struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ConversationID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_messages_conversation_seq,priority:1" json:"conversation_id"`
	SenderID       uuid.UUID `gorm:"type:uuid;not null" json:"sender_id"`
	Content        string    `gorm:"type:text;not null" json:"content"`
	Seq            int64     `gorm:"not null;uniqueIndex:idx_messages_conversation_seq,priority:2" json:"seq"`
	CreatedAt      time.Time `gorm:"not null" json:"created_at"`
}

func (m *Message) BeforeCreate(tx *gorm.DB) (err error) {
	if m.ID == uuid.Nil {
		m.ID, err = uuid.NewV7()
	}
	return
}
