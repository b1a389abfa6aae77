package entity

import (
	"time"

	"github.com/google/uuid"
)

const (
	DocumentCV             = "cv"
	DocumentRecommendation = "recommendation"
	DocumentPhoto          = "photo"
)

// Document is an uploaded applicant file. Path follows {ownerId}/{category}/{filename}.
type Document struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	OwnerID     uuid.UUID `gorm:"type:uuid;not null;index" json:"owner_id"`
	Category    string    `gorm:"size:20;not null" json:"category"`
	Path        string    `gorm:"type:text;not null;uniqueIndex" json:"path"`
	URL         string    `gorm:"type:text;not null" json:"-"`
	StorageID   string    `gorm:"type:text;not null" json:"-"`
	StorageKind string    `gorm:"size:20;not null" json:"-"`
	Size        int64     `gorm:"not null" json:"size"`
	ContentType string    `gorm:"size:100" json:"content_type"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}
