package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"anoa.com/scholarhub/internal/entity"
	"anoa.com/scholarhub/internal/metrics"
	"anoa.com/scholarhub/internal/modules/conversation/dto"
	"anoa.com/scholarhub/internal/modules/conversation/repository"
	"anoa.com/scholarhub/pkg/apperror"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Directory looks up the people a conversation can be opened with.
type Directory interface {
	FindFirstDirector(ctx context.Context) (*entity.Profile, error)
	FindByClassName(ctx context.Context, className string, roles []string) ([]entity.Profile, error)
}

type ConversationService interface {
	StartDirect(ctx context.Context, actor entity.Actor) (*entity.Conversation, error)
	EnsureCohortGroup(ctx context.Context, actor entity.Actor) (*entity.Conversation, error)
	ListMine(ctx context.Context, actor entity.Actor) ([]dto.ConversationSummary, error)
}

type conversationService struct {
	repo      repository.ConversationRepository
	directory Directory
}

func NewConversationService(repo repository.ConversationRepository, directory Directory) ConversationService {
	return &conversationService{
		repo:      repo,
		directory: directory,
	}
}

func (s *conversationService) StartDirect(ctx context.Context, actor entity.Actor) (*entity.Conversation, error) {
	if actor.IsDirector() {
		return nil, fmt.Errorf("directors cannot contact the director pool: %w", apperror.ErrForbidden)
	}

	existing, err := s.repo.FindDirectWithDirector(ctx, actor.UserID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	director, err := s.directory.FindFirstDirector(ctx)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("no director is available: %w", apperror.ErrPrecondition)
		}
		return nil, err
	}

	key := DirectKey(actor.UserID, director.UserID)
	conv := &entity.Conversation{
		Type:      entity.ConversationDirect,
		DirectKey: &key,
	}
	if err := s.repo.Create(ctx, conv); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return s.repo.FindByDirectKey(ctx, key)
		}
		return nil, err
	}

	if err := s.repo.AddMembers(ctx, conv.ID, []uuid.UUID{actor.UserID, director.UserID}); err != nil {
		metrics.PartialFailures.WithLabelValues("start_direct_conversation").Inc()
		completed := "conversation created and removed again"
		if delErr := s.repo.Delete(ctx, conv.ID); delErr != nil {
			log.Error().Err(delErr).Str("conversation_id", conv.ID.String()).Msg("failed to remove memberless conversation")
			completed = "conversation created but could not be removed"
		}
		return nil, &apperror.PartialFailureError{
			Operation: "start direct conversation",
			Completed: completed,
			Failed:    "members were not added",
			IDs:       map[string]string{"conversation_id": conv.ID.String()},
			Err:       err,
		}
	}

	log.Info().
		Str("conversation_id", conv.ID.String()).
		Str("user_id", actor.UserID.String()).
		Str("director_id", director.UserID.String()).
		Msg("direct conversation started")

	return conv, nil
}

func (s *conversationService) EnsureCohortGroup(ctx context.Context, actor entity.Actor) (*entity.Conversation, error) {
	cohort := strings.TrimSpace(actor.ClassName)
	if cohort == "" {
		return nil, fmt.Errorf("no cohort assigned: %w", apperror.ErrPrecondition)
	}

	conv, err := s.findOrCreateGroup(ctx, cohort)
	if err != nil {
		return nil, err
	}

	if err := s.repo.AddMembers(ctx, conv.ID, []uuid.UUID{actor.UserID}); err != nil {
		return nil, err
	}

	if err := s.reconcileMembers(ctx, conv.ID, cohort); err != nil {
		return nil, err
	}

	return s.repo.FindByID(ctx, conv.ID)
}

func (s *conversationService) findOrCreateGroup(ctx context.Context, cohort string) (*entity.Conversation, error) {
	conv, err := s.repo.FindGroupByCohort(ctx, cohort)
	if err == nil {
		return conv, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	name := cohort + " Chat"
	conv = &entity.Conversation{
		Type:       entity.ConversationGroup,
		Name:       &name,
		CohortName: &cohort,
	}
	if err := s.repo.Create(ctx, conv); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return s.repo.FindGroupByCohort(ctx, cohort)
		}
		return nil, err
	}

	log.Info().Str("conversation_id", conv.ID.String()).Str("cohort", cohort).Msg("cohort group created")
	return conv, nil
}

// reconcileMembers adds every scholar and director of the cohort that is
// not yet a member.
func (s *conversationService) reconcileMembers(ctx context.Context, conversationID uuid.UUID, cohort string) error {
	profiles, err := s.directory.FindByClassName(ctx, cohort, []string{entity.RoleScholar, entity.RoleDirector})
	if err != nil {
		return err
	}

	current, err := s.repo.MemberIDs(ctx, conversationID)
	if err != nil {
		return err
	}

	present := make(map[uuid.UUID]struct{}, len(current))
	for _, id := range current {
		present[id] = struct{}{}
	}

	var missing []uuid.UUID
	for _, p := range profiles {
		if _, ok := present[p.UserID]; ok {
			continue
		}
		present[p.UserID] = struct{}{}
		missing = append(missing, p.UserID)
	}

	return s.repo.AddMembers(ctx, conversationID, missing)
}

func (s *conversationService) ListMine(ctx context.Context, actor entity.Actor) ([]dto.ConversationSummary, error) {
	convs, err := s.repo.ListForUser(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(convs))
	for _, c := range convs {
		ids = append(ids, c.ID)
	}

	last, err := s.repo.LastMessages(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]dto.ConversationSummary, 0, len(convs))
	for i := range convs {
		conv := &convs[i]
		summary := dto.ConversationSummary{Conversation: conv}
		if m, ok := last[conv.ID]; ok {
			summary.LastMessage = &m
		}
		if conv.Type == entity.ConversationDirect {
			for _, member := range conv.Members {
				if member.UserID != actor.UserID {
					summary.Partner = member.Profile
					break
				}
			}
		}
		out = append(out, summary)
	}
	return out, nil
}

// DirectKey identifies the unordered pair of a direct conversation.
func DirectKey(a, b uuid.UUID) string {
	x, y := a.String(), b.String()
	if y < x {
		x, y = y, x
	}
	return x + ":" + y
}
