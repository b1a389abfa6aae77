package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	AudienceAll        = "all"
	AudienceApplicants = "applicants"
	AudienceScholars   = "scholars"
)

type Announcement struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	DirectorID uuid.UUID `gorm:"type:uuid;not null" json:"director_id"`
	Director   *Profile  `gorm:"foreignKey:DirectorID;references:UserID" json:"director,omitempty"`
	Title      string    `gorm:"size:200;not null" json:"title"`
	Body       string    `gorm:"type:text;not null" json:"body"`
	Audience   string    `gorm:"size:20;not null;default:all;index" json:"audience"`
	CreatedAt  time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

func (a *Announcement) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

const (
	SettingApplicationsOpen    = "applications_open"
	SettingApplicationDeadline = "application_deadline"
)

type SiteSetting struct {
	Key       string    `gorm:"size:100;primaryKey" json:"key"`
	Value     string    `gorm:"type:text;not null" json:"value"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// AudiencesFor lists the announcement audiences a role may read.
func AudiencesFor(role string) []string {
	switch role {
	case RoleDirector:
		return []string{AudienceAll, AudienceApplicants, AudienceScholars}
	case RoleScholar:
		return []string{AudienceAll, AudienceScholars}
	default:
		return []string{AudienceAll, AudienceApplicants}
	}
}
