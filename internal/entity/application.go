package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ApplicationStatus string

const (
	StatusDraft       ApplicationStatus = "draft"
	StatusSubmitted   ApplicationStatus = "submitted"
	StatusUnderReview ApplicationStatus = "under_review"
	StatusShortlisted ApplicationStatus = "shortlisted"
	StatusInterview   ApplicationStatus = "interview"
	StatusAccepted    ApplicationStatus = "accepted"
	StatusRejected    ApplicationStatus = "rejected"
)

type Application struct {
	ID     uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	UserID uuid.UUID         `gorm:"type:uuid;not null;index;uniqueIndex:idx_applications_one_draft,where:status = 'draft'" json:"user_id"`
	Status ApplicationStatus `gorm:"size:20;not null;default:draft;index" json:"status"`

	FullName    string `gorm:"size:150" json:"full_name"`
	DateOfBirth string `gorm:"size:20" json:"date_of_birth"`
	Phone       string `gorm:"size:40" json:"phone"`
	Address     string `gorm:"type:text" json:"address"`
	Nationality string `gorm:"size:80" json:"nationality"`

	University  string `gorm:"size:150" json:"university"`
	Program     string `gorm:"size:150" json:"program"`
	YearOfStudy string `gorm:"size:20" json:"year_of_study"`
	GPA         string `gorm:"column:gpa;size:20" json:"gpa"`

	Essay    string `gorm:"type:text" json:"essay"`
	VideoURL string `gorm:"type:text" json:"video_url"`

	CVURL             string `gorm:"column:cv_url;type:text" json:"cv_url"`
	RecommendationURL string `gorm:"type:text" json:"recommendation_url"`
	PhotoURL          string `gorm:"type:text" json:"photo_url"`

	DirectorNotes     *string        `gorm:"type:text" json:"director_notes,omitempty"`
	CohortName        *string        `gorm:"size:100" json:"cohort_name,omitempty"`
	InterviewSlotID   *uuid.UUID     `gorm:"type:uuid;index" json:"interview_slot_id,omitempty"`
	InterviewSlot     *InterviewSlot `gorm:"constraint:OnDelete:SET NULL" json:"interview_slot,omitempty"`
	SubmittedAt       *time.Time     `json:"submitted_at,omitempty"`
	ProfilePromotedAt *time.Time     `json:"profile_promoted_at,omitempty"`

	Version   int       `gorm:"not null;default:0" json:"version"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (a *Application) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// ApplicationEvent is the audit trail of status transitions.
type ApplicationEvent struct {
	ID            uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	ApplicationID uuid.UUID         `gorm:"type:uuid;not null;index" json:"application_id"`
	ActorID       uuid.UUID         `gorm:"type:uuid;not null" json:"actor_id"`
	FromStatus    ApplicationStatus `gorm:"size:20;not null" json:"from_status"`
	ToStatus      ApplicationStatus `gorm:"size:20;not null" json:"to_status"`
	Payload       datatypes.JSON    `gorm:"type:jsonb" json:"payload"`
	CreatedAt     time.Time         `gorm:"autoCreateTime" json:"created_at"`
}

func (e *ApplicationEvent) BeforeCreate(tx *gorm.DB) (err error) {
	if e.ID == uuid.Nil {
		e.ID, err = uuid.NewV7()
	}
	return
}
