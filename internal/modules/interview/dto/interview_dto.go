package dto

import (
	"anoa.com/scholarhub/internal/entity"
	"github.com/google/uuid"
)

type CreateBatchRequest struct {
	Name                   string      `json:"name" binding:"required,max=150"`
	InterviewDate          string      `json:"interview_date" binding:"required,datetime=2006-01-02"`
	InterviewTime          string      `json:"interview_time" binding:"required,max=50"`
	Location               string      `json:"location" binding:"required"`
	CongratulationsMessage *string     `json:"congratulations_message"`
	ApplicationIDs         []uuid.UUID `json:"application_ids"`
}

type AssignRequest struct {
	ApplicationIDs []uuid.UUID `json:"application_ids" binding:"required,min=1"`
}

// BatchResult lets the caller tell how many requested applications were
// not in the interview stage and therefore skipped.
type BatchResult struct {
	BatchID       uuid.UUID `json:"batch_id"`
	AssignedCount int64     `json:"assigned_count"`
	ExcludedCount int64     `json:"excluded_count"`
}

type SlotSummary struct {
	entity.InterviewSlot
	AssignedCount int64 `json:"assigned_count"`
}
