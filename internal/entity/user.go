package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	RoleApplicant = "applicant"
	RoleDirector  = "director"
	RoleScholar   = "scholar"
)

type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Email        string    `gorm:"size:100;uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	Profile      *Profile  `gorm:"constraint:OnDelete:CASCADE" json:"profile,omitempty"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// Profile holds the program-facing identity of a user. Role and ClassName
// change when an application is accepted.
type Profile struct {
	UserID    uuid.UUID `gorm:"type:uuid;primaryKey" json:"user_id"`
	FullName  string    `gorm:"size:100;not null" json:"full_name"`
	Role      string    `gorm:"size:20;not null;default:applicant;index" json:"role"`
	ClassName *string   `gorm:"size:100;index" json:"class_name,omitempty"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// Actor is the authenticated caller of a command.
type Actor struct {
	UserID    uuid.UUID
	Role      string
	ClassName string
}

func (a Actor) IsDirector() bool {
	return a.Role == RoleDirector
}

func IsKnownRole(role string) bool {
	switch role {
	case RoleApplicant, RoleDirector, RoleScholar:
		return true
	}
	return false
}
