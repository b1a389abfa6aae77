package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type InterviewSlot struct {
	ID                     uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name                   string    `gorm:"size:150;not null" json:"name"`
	InterviewDate          time.Time `gorm:"type:date;not null;index" json:"interview_date"`
	InterviewTime          string    `gorm:"size:50;not null" json:"interview_time"`
	Location               string    `gorm:"type:text;not null" json:"location"`
	CongratulationsMessage *string   `gorm:"type:text" json:"congratulations_message,omitempty"`
	CreatedBy              uuid.UUID `gorm:"type:uuid;not null" json:"created_by"`
	CreatedAt              time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (s *InterviewSlot) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
