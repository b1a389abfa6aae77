package repository

import (
	"context"

	"anoa.com/scholarhub/internal/entity"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ConversationRepository interface {
	Create(ctx context.Context, conv *entity.Conversation) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Conversation, error)
	FindByDirectKey(ctx context.Context, key string) (*entity.Conversation, error)
	FindDirectWithDirector(ctx context.Context, userID uuid.UUID) (*entity.Conversation, error)
	FindGroupByCohort(ctx context.Context, cohort string) (*entity.Conversation, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]entity.Conversation, error)
	LastMessages(ctx context.Context, conversationIDs []uuid.UUID) (map[uuid.UUID]entity.Message, error)

	AddMembers(ctx context.Context, conversationID uuid.UUID, userIDs []uuid.UUID) error
	IsMember(ctx context.Context, conversationID, userID uuid.UUID) (bool, error)
	MemberIDs(ctx context.Context, conversationID uuid.UUID) ([]uuid.UUID, error)
}

type conversationRepository struct {
	db *gorm.DB
}

func NewConversationRepository(db *gorm.DB) ConversationRepository {
	return &conversationRepository{db: db}
}

func (r *conversationRepository) Create(ctx context.Context, conv *entity.Conversation) error {
	return r.db.WithContext(ctx).Omit("Members").Create(conv).Error
}

func (r *conversationRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("conversation_id = ?", id).Delete(&entity.ConversationMember{}).Error; err != nil {
			return err
		}
		return tx.Delete(&entity.Conversation{}, "id = ?", id).Error
	})
}

func (r *conversationRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Conversation, error) {
	var conv entity.Conversation
	if err := r.db.WithContext(ctx).
		Preload("Members.Profile").
		First(&conv, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &conv, nil
}

func (r *conversationRepository) FindByDirectKey(ctx context.Context, key string) (*entity.Conversation, error) {
	var conv entity.Conversation
	if err := r.db.WithContext(ctx).
		Where("type = ? AND direct_key = ?", entity.ConversationDirect, key).
		First(&conv).Error; err != nil {
		return nil, err
	}
	return &conv, nil
}

// FindDirectWithDirector returns the oldest direct conversation pairing the
// user with any director.
func (r *conversationRepository) FindDirectWithDirector(ctx context.Context, userID uuid.UUID) (*entity.Conversation, error) {
	var conv entity.Conversation
	err := r.db.WithContext(ctx).
		Joins("JOIN conversation_members me ON me.conversation_id = conversations.id AND me.user_id = ?", userID).
		Joins("JOIN conversation_members other ON other.conversation_id = conversations.id AND other.user_id <> ?", userID).
		Joins("JOIN profiles ON profiles.user_id = other.user_id").
		Where("conversations.type = ? AND profiles.role = ?", entity.ConversationDirect, entity.RoleDirector).
		Order("conversations.created_at asc").
		First(&conv).Error
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

func (r *conversationRepository) FindGroupByCohort(ctx context.Context, cohort string) (*entity.Conversation, error) {
	var conv entity.Conversation
	if err := r.db.WithContext(ctx).
		Where("type = ? AND cohort_name = ?", entity.ConversationGroup, cohort).
		First(&conv).Error; err != nil {
		return nil, err
	}
	return &conv, nil
}

func (r *conversationRepository) ListForUser(ctx context.Context, userID uuid.UUID) ([]entity.Conversation, error) {
	var convs []entity.Conversation
	err := r.db.WithContext(ctx).
		Preload("Members.Profile").
		Where("id IN (?)", r.db.Model(&entity.ConversationMember{}).Select("conversation_id").Where("user_id = ?", userID)).
		Order("last_message_at desc nulls last").
		Order("created_at desc").
		Find(&convs).Error
	return convs, err
}

func (r *conversationRepository) LastMessages(ctx context.Context, conversationIDs []uuid.UUID) (map[uuid.UUID]entity.Message, error) {
	out := make(map[uuid.UUID]entity.Message, len(conversationIDs))
	if len(conversationIDs) == 0 {
		return out, nil
	}

	var messages []entity.Message
	err := r.db.WithContext(ctx).
		Where("(conversation_id, seq) IN (?)",
			r.db.Model(&entity.Conversation{}).Select("id, last_seq").Where("id IN ? AND last_seq > 0", conversationIDs)).
		Find(&messages).Error
	if err != nil {
		return nil, err
	}

	for _, m := range messages {
		out[m.ConversationID] = m
	}
	return out, nil
}

// AddMembers is idempotent: existing memberships are left alone.
func (r *conversationRepository) AddMembers(ctx context.Context, conversationID uuid.UUID, userIDs []uuid.UUID) error {
	if len(userIDs) == 0 {
		return nil
	}

	members := make([]entity.ConversationMember, 0, len(userIDs))
	for _, id := range userIDs {
		members = append(members, entity.ConversationMember{ConversationID: conversationID, UserID: id})
	}

	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Omit("Profile").
		Create(&members).Error
}

func (r *conversationRepository) IsMember(ctx context.Context, conversationID, userID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.ConversationMember{}).
		Where("conversation_id = ? AND user_id = ?", conversationID, userID).
		Count(&count).Error
	return count > 0, err
}

func (r *conversationRepository) MemberIDs(ctx context.Context, conversationID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).Model(&entity.ConversationMember{}).
		Where("conversation_id = ?", conversationID).
		Pluck("user_id", &ids).Error
	return ids, err
}
