package repository

import (
	"context"
	"time"

	"anoa.com/scholarhub/internal/entity"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type InterviewRepository interface {
	CreateSlot(ctx context.Context, slot *entity.InterviewSlot) error
	FindSlotByID(ctx context.Context, id uuid.UUID) (*entity.InterviewSlot, error)
	ListSlots(ctx context.Context) ([]entity.InterviewSlot, error)
	CountAssignments(ctx context.Context) (map[uuid.UUID]int64, error)
	AssignSlot(ctx context.Context, slotID uuid.UUID, applicationIDs []uuid.UUID) (int64, error)
	FindSlotForUser(ctx context.Context, userID uuid.UUID) (*entity.InterviewSlot, error)
}

type interviewRepository struct {
	db *gorm.DB
}

func NewInterviewRepository(db *gorm.DB) InterviewRepository {
	return &interviewRepository{db: db}
}

func (r *interviewRepository) CreateSlot(ctx context.Context, slot *entity.InterviewSlot) error {
	return r.db.WithContext(ctx).Create(slot).Error
}

func (r *interviewRepository) FindSlotByID(ctx context.Context, id uuid.UUID) (*entity.InterviewSlot, error) {
	var slot entity.InterviewSlot
	if err := r.db.WithContext(ctx).First(&slot, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &slot, nil
}

func (r *interviewRepository) ListSlots(ctx context.Context) ([]entity.InterviewSlot, error) {
	var slots []entity.InterviewSlot
	err := r.db.WithContext(ctx).
		Order("interview_date asc").
		Order("created_at asc").
		Find(&slots).Error
	return slots, err
}

func (r *interviewRepository) CountAssignments(ctx context.Context) (map[uuid.UUID]int64, error) {
	var rows []struct {
		InterviewSlotID uuid.UUID
		Total           int64
	}
	err := r.db.WithContext(ctx).Model(&entity.Application{}).
		Select("interview_slot_id, count(*) as total").
		Where("interview_slot_id IS NOT NULL").
		Group("interview_slot_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[uuid.UUID]int64, len(rows))
	for _, row := range rows {
		counts[row.InterviewSlotID] = row.Total
	}
	return counts, nil
}

// AssignSlot overwrites the slot of every listed application still in the
// interview stage and reports how many rows matched.
func (r *interviewRepository) AssignSlot(ctx context.Context, slotID uuid.UUID, applicationIDs []uuid.UUID) (int64, error) {
	if len(applicationIDs) == 0 {
		return 0, nil
	}

	res := r.db.WithContext(ctx).Model(&entity.Application{}).
		Where("id IN ? AND status = ?", applicationIDs, entity.StatusInterview).
		Updates(map[string]any{
			"interview_slot_id": slotID,
			"version":           gorm.Expr("version + 1"),
			"updated_at":        time.Now(),
		})
	return res.RowsAffected, res.Error
}

func (r *interviewRepository) FindSlotForUser(ctx context.Context, userID uuid.UUID) (*entity.InterviewSlot, error) {
	var slot entity.InterviewSlot
	err := r.db.WithContext(ctx).
		Joins("JOIN applications ON applications.interview_slot_id = interview_slots.id").
		Where("applications.user_id = ?", userID).
		Order("applications.updated_at desc").
		First(&slot).Error
	if err != nil {
		return nil, err
	}
	return &slot, nil
}
