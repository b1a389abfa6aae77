package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"anoa.com/scholarhub/internal/entity"
	"anoa.com/scholarhub/internal/metrics"
	conversationRepo "anoa.com/scholarhub/internal/modules/conversation/repository"
	"anoa.com/scholarhub/internal/modules/message/broker"
	"anoa.com/scholarhub/internal/modules/message/dto"
	"anoa.com/scholarhub/internal/modules/message/repository"
	"anoa.com/scholarhub/pkg/apperror"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

const (
	MaxMessageLength = 4000
	defaultPageSize  = 50
	replayPageSize   = 200
)

var ErrSubscriptionClosed = errors.New("message subscription closed")

// Throttler claims a per-user action for a fixed window.
type Throttler interface {
	Allow(ctx context.Context, userID uuid.UUID, action string) (bool, error)
}

type MessageService interface {
	Send(ctx context.Context, actor entity.Actor, conversationID uuid.UUID, content string) (*entity.Message, error)
	List(ctx context.Context, actor entity.Actor, conversationID uuid.UUID, query dto.ListQuery) ([]entity.Message, error)
	Stream(ctx context.Context, actor entity.Actor, conversationID uuid.UUID, afterSeq int64, deliver func(entity.Message) error) error
}

type messageService struct {
	repo          repository.MessageRepository
	conversations conversationRepo.ConversationRepository
	broker        broker.Broker
	throttle      Throttler
	now           func() time.Time
}

func NewMessageService(repo repository.MessageRepository, conversations conversationRepo.ConversationRepository, b broker.Broker, throttle Throttler) MessageService {
	return &messageService{
		repo:          repo,
		conversations: conversations,
		broker:        b,
		throttle:      throttle,
		now:           time.Now,
	}
}

func (s *messageService) Send(ctx context.Context, actor entity.Actor, conversationID uuid.UUID, content string) (*entity.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperror.NewValidationError(map[string]string{"content": "Message cannot be empty"})
	}
	if utf8.RuneCountInString(content) > MaxMessageLength {
		return nil, apperror.NewValidationError(map[string]string{
			"content": fmt.Sprintf("Message must be at most %d characters", MaxMessageLength),
		})
	}

	conv, err := s.findConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	if err := s.ensureMember(ctx, actor, conv); err != nil {
		return nil, err
	}

	if s.throttle != nil {
		allowed, err := s.throttle.Allow(ctx, actor.UserID, "message:"+conversationID.String())
		if err != nil {
			return nil, err
		}
		if !allowed {
			return nil, fmt.Errorf("you are sending messages too quickly: %w", apperror.ErrRateLimitExceeded)
		}
	}

	msg := &entity.Message{
		ConversationID: conversationID,
		SenderID:       actor.UserID,
		Content:        content,
	}
	if err := s.repo.Append(ctx, msg, s.now()); err != nil {
		return nil, err
	}
	metrics.MessagesSent.Inc()

	// Stored is sent; live subscribers that miss the publish reload on the next gap.
	if err := s.broker.Publish(ctx, msg); err != nil {
		log.Warn().Err(err).Str("conversation_id", conversationID.String()).Int64("seq", msg.Seq).Msg("failed to publish message")
	}

	return msg, nil
}

func (s *messageService) List(ctx context.Context, actor entity.Actor, conversationID uuid.UUID, query dto.ListQuery) ([]entity.Message, error) {
	if err := s.requireMember(ctx, actor, conversationID); err != nil {
		return nil, err
	}

	limit := query.Limit
	if limit <= 0 {
		limit = defaultPageSize
	}

	if query.AfterSeq > 0 {
		return s.repo.ListAfter(ctx, conversationID, query.AfterSeq, limit)
	}
	return s.repo.ListBefore(ctx, conversationID, query.BeforeSeq, limit)
}

// Stream subscribes before replaying history, so nothing committed after
// afterSeq can fall between the two. Live messages already replayed are
// dropped; a jump in seq triggers another replay.
func (s *messageService) Stream(ctx context.Context, actor entity.Actor, conversationID uuid.UUID, afterSeq int64, deliver func(entity.Message) error) error {
	if err := s.requireMember(ctx, actor, conversationID); err != nil {
		return err
	}

	sub, err := s.broker.Subscribe(ctx, conversationID)
	if err != nil {
		return err
	}
	defer sub.Close()

	metrics.StreamSubscribers.Inc()
	defer metrics.StreamSubscribers.Dec()

	last := afterSeq
	if last < 0 {
		last = 0
	}

	catchUp := func() error {
		for {
			page, err := s.repo.ListAfter(ctx, conversationID, last, replayPageSize)
			if err != nil {
				return err
			}
			for _, m := range page {
				if err := deliver(m); err != nil {
					return err
				}
				last = m.Seq
			}
			if len(page) < replayPageSize {
				return nil
			}
		}
	}

	if err := catchUp(); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case m, ok := <-sub.Messages():
			if !ok {
				return ErrSubscriptionClosed
			}
			switch {
			case m.Seq <= last:
				continue
			case m.Seq == last+1:
				if err := deliver(m); err != nil {
					return err
				}
				last = m.Seq
			default:
				if err := catchUp(); err != nil {
					return err
				}
			}
		}
	}
}

func (s *messageService) findConversation(ctx context.Context, id uuid.UUID) (*entity.Conversation, error) {
	conv, err := s.conversations.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("conversation not found: %w", apperror.ErrNotFound)
		}
		return nil, err
	}
	return conv, nil
}

func (s *messageService) requireMember(ctx context.Context, actor entity.Actor, conversationID uuid.UUID) error {
	ok, err := s.conversations.IsMember(ctx, conversationID, actor.UserID)
	if err != nil {
		return err
	}
	if !ok {
		if _, err := s.findConversation(ctx, conversationID); err != nil {
			return err
		}
		return fmt.Errorf("not a member of this conversation: %w", apperror.ErrForbidden)
	}
	return nil
}

// ensureMember joins an eligible sender before the first message. Direct
// conversations are fixed pairs; group conversations admit their cohort
// and directors.
func (s *messageService) ensureMember(ctx context.Context, actor entity.Actor, conv *entity.Conversation) error {
	ok, err := s.conversations.IsMember(ctx, conv.ID, actor.UserID)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}

	if !canJoin(actor, conv) {
		return fmt.Errorf("not a member of this conversation: %w", apperror.ErrForbidden)
	}

	if err := s.conversations.AddMembers(ctx, conv.ID, []uuid.UUID{actor.UserID}); err != nil {
		return err
	}
	log.Info().Str("conversation_id", conv.ID.String()).Str("user_id", actor.UserID.String()).Msg("member joined on first message")
	return nil
}

func canJoin(actor entity.Actor, conv *entity.Conversation) bool {
	if conv.Type != entity.ConversationGroup {
		return false
	}
	if actor.IsDirector() {
		return true
	}
	return conv.CohortName != nil && actor.ClassName != "" && *conv.CohortName == actor.ClassName
}
