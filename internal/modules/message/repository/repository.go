package repository

import (
	"context"
	"time"

	"anoa.com/scholarhub/internal/entity"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type MessageRepository interface {
	Append(ctx context.Context, msg *entity.Message, now time.Time) error
	ListAfter(ctx context.Context, conversationID uuid.UUID, afterSeq int64, limit int) ([]entity.Message, error)
	ListBefore(ctx context.Context, conversationID uuid.UUID, beforeSeq int64, limit int) ([]entity.Message, error)
}

type messageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

// Append allocates the next sequence number while holding the conversation
// row lock, so seq and created_at never go backwards within a conversation.
func (r *messageRepository) Append(ctx context.Context, msg *entity.Message, now time.Time) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var conv entity.Conversation
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id", "last_seq", "last_message_at").
			First(&conv, "id = ?", msg.ConversationID).Error; err != nil {
			return err
		}

		createdAt := now
		if conv.LastMessageAt != nil && createdAt.Before(*conv.LastMessageAt) {
			createdAt = *conv.LastMessageAt
		}
		msg.Seq = conv.LastSeq + 1
		msg.CreatedAt = createdAt

		if err := tx.Create(msg).Error; err != nil {
			return err
		}

		return tx.Model(&entity.Conversation{}).
			Where("id = ?", conv.ID).
			Updates(map[string]any{
				"last_seq":        msg.Seq,
				"last_message_at": createdAt,
			}).Error
	})
}

func (r *messageRepository) ListAfter(ctx context.Context, conversationID uuid.UUID, afterSeq int64, limit int) ([]entity.Message, error) {
	var messages []entity.Message
	err := r.db.WithContext(ctx).
		Where("conversation_id = ? AND seq > ?", conversationID, afterSeq).
		Order("seq asc").
		Limit(limit).
		Find(&messages).Error
	return messages, err
}

// ListBefore returns up to limit messages preceding beforeSeq in ascending
// order. A zero beforeSeq means the latest messages.
func (r *messageRepository) ListBefore(ctx context.Context, conversationID uuid.UUID, beforeSeq int64, limit int) ([]entity.Message, error) {
	query := r.db.WithContext(ctx).Where("conversation_id = ?", conversationID)
	if beforeSeq > 0 {
		query = query.Where("seq < ?", beforeSeq)
	}

	var messages []entity.Message
	if err := query.Order("seq desc").Limit(limit).Find(&messages).Error; err != nil {
		return nil, err
	}

	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}
