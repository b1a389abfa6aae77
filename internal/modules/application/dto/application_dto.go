package dto

import (
	"time"

	"anoa.com/scholarhub/internal/entity"
	"anoa.com/scholarhub/internal/modules/application/validation"
	commonDto "anoa.com/scholarhub/pkg/dto"
	"github.com/google/uuid"
)

type SaveApplicationRequest struct {
	validation.Fields
}

type ValidateStepRequest struct {
	Step   *int              `json:"step" binding:"required"`
	Fields validation.Fields `json:"fields"`
}

type ValidateStepResponse struct {
	Valid  bool              `json:"valid"`
	Errors map[string]string `json:"errors"`
}

type AdvanceStatusRequest struct {
	Status          string  `json:"status" binding:"required"`
	Notes           *string `json:"notes"`
	CohortName      string  `json:"cohort_name"`
	ExpectedVersion *int    `json:"expected_version"`
}

type ReviewFilter struct {
	Status string `form:"status"`
	commonDto.PageFilter
}

type ApplicationSummary struct {
	ID              uuid.UUID                `json:"id"`
	UserID          uuid.UUID                `json:"user_id"`
	FullName        string                   `json:"full_name"`
	University      string                   `json:"university"`
	Program         string                   `json:"program"`
	Status          entity.ApplicationStatus `json:"status"`
	CohortName      *string                  `json:"cohort_name,omitempty"`
	InterviewSlotID *uuid.UUID               `json:"interview_slot_id,omitempty"`
	SubmittedAt     *time.Time               `json:"submitted_at,omitempty"`
	UpdatedAt       time.Time                `json:"updated_at"`
	Version         int                      `json:"version"`
}

type PaginatedApplications struct {
	Data []ApplicationSummary     `json:"data"`
	Meta commonDto.PaginationMeta `json:"meta"`
}

func ToSummary(app *entity.Application) ApplicationSummary {
	return ApplicationSummary{
		ID:              app.ID,
		UserID:          app.UserID,
		FullName:        app.FullName,
		University:      app.University,
		Program:         app.Program,
		Status:          app.Status,
		CohortName:      app.CohortName,
		InterviewSlotID: app.InterviewSlotID,
		SubmittedAt:     app.SubmittedAt,
		UpdatedAt:       app.UpdatedAt,
		Version:         app.Version,
	}
}
