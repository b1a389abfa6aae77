package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"anoa.com/scholarhub/internal/entity"
	"anoa.com/scholarhub/internal/metrics"
	"anoa.com/scholarhub/internal/modules/interview/dto"
	"anoa.com/scholarhub/internal/modules/interview/repository"
	"anoa.com/scholarhub/pkg/apperror"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

type InterviewService interface {
	CreateBatch(ctx context.Context, actor entity.Actor, req dto.CreateBatchRequest) (*dto.BatchResult, error)
	Assign(ctx context.Context, actor entity.Actor, batchID uuid.UUID, applicationIDs []uuid.UUID) (*dto.BatchResult, error)
	ListSlots(ctx context.Context, actor entity.Actor) ([]dto.SlotSummary, error)
	MySlot(ctx context.Context, actor entity.Actor) (*entity.InterviewSlot, error)
}

type interviewService struct {
	repo repository.InterviewRepository
}

func NewInterviewService(repo repository.InterviewRepository) InterviewService {
	return &interviewService{repo: repo}
}

func (s *interviewService) CreateBatch(ctx context.Context, actor entity.Actor, req dto.CreateBatchRequest) (*dto.BatchResult, error) {
	if !actor.IsDirector() {
		return nil, fmt.Errorf("only directors can schedule interviews: %w", apperror.ErrForbidden)
	}

	slot, err := buildSlot(actor, req)
	if err != nil {
		return nil, err
	}

	if err := s.repo.CreateSlot(ctx, slot); err != nil {
		return nil, err
	}

	ids := uniqueIDs(req.ApplicationIDs)
	result := &dto.BatchResult{BatchID: slot.ID}

	assigned, err := s.repo.AssignSlot(ctx, slot.ID, ids)
	if err != nil {
		metrics.PartialFailures.WithLabelValues("create_interview_batch").Inc()
		return result, &apperror.PartialFailureError{
			Operation: "create interview batch",
			Completed: "batch created",
			Failed:    "applications were not assigned",
			IDs:       map[string]string{"batch_id": slot.ID.String()},
			Err:       err,
		}
	}

	result.AssignedCount = assigned
	result.ExcludedCount = int64(len(ids)) - assigned

	log.Info().
		Str("batch_id", slot.ID.String()).
		Int64("assigned", result.AssignedCount).
		Int64("excluded", result.ExcludedCount).
		Msg("interview batch created")

	return result, nil
}

func (s *interviewService) Assign(ctx context.Context, actor entity.Actor, batchID uuid.UUID, applicationIDs []uuid.UUID) (*dto.BatchResult, error) {
	if !actor.IsDirector() {
		return nil, fmt.Errorf("only directors can schedule interviews: %w", apperror.ErrForbidden)
	}

	if _, err := s.repo.FindSlotByID(ctx, batchID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("interview batch not found: %w", apperror.ErrNotFound)
		}
		return nil, err
	}

	ids := uniqueIDs(applicationIDs)
	assigned, err := s.repo.AssignSlot(ctx, batchID, ids)
	if err != nil {
		return nil, err
	}

	return &dto.BatchResult{
		BatchID:       batchID,
		AssignedCount: assigned,
		ExcludedCount: int64(len(ids)) - assigned,
	}, nil
}

func (s *interviewService) ListSlots(ctx context.Context, actor entity.Actor) ([]dto.SlotSummary, error) {
	if !actor.IsDirector() {
		return nil, fmt.Errorf("only directors can list interview batches: %w", apperror.ErrForbidden)
	}

	slots, err := s.repo.ListSlots(ctx)
	if err != nil {
		return nil, err
	}

	counts, err := s.repo.CountAssignments(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]dto.SlotSummary, 0, len(slots))
	for _, slot := range slots {
		out = append(out, dto.SlotSummary{InterviewSlot: slot, AssignedCount: counts[slot.ID]})
	}
	return out, nil
}

func (s *interviewService) MySlot(ctx context.Context, actor entity.Actor) (*entity.InterviewSlot, error) {
	slot, err := s.repo.FindSlotForUser(ctx, actor.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("no interview scheduled: %w", apperror.ErrNotFound)
		}
		return nil, err
	}
	return slot, nil
}

func buildSlot(actor entity.Actor, req dto.CreateBatchRequest) (*entity.InterviewSlot, error) {
	fields := map[string]string{}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		fields["name"] = "Batch name is required"
	}
	interviewTime := strings.TrimSpace(req.InterviewTime)
	if interviewTime == "" {
		fields["interview_time"] = "Interview time is required"
	}
	location := strings.TrimSpace(req.Location)
	if location == "" {
		fields["location"] = "Location is required"
	}
	date, err := time.Parse(time.DateOnly, strings.TrimSpace(req.InterviewDate))
	if err != nil {
		fields["interview_date"] = "Interview date must be YYYY-MM-DD"
	}

	if len(fields) > 0 {
		return nil, apperror.NewValidationError(fields)
	}

	var congratulations *string
	if req.CongratulationsMessage != nil {
		if msg := strings.TrimSpace(*req.CongratulationsMessage); msg != "" {
			congratulations = &msg
		}
	}

	return &entity.InterviewSlot{
		Name:                   name,
		InterviewDate:          date,
		InterviewTime:          interviewTime,
		Location:               location,
		CongratulationsMessage: congratulations,
		CreatedBy:              actor.UserID,
	}, nil
}

func uniqueIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id == uuid.Nil {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
