package bootstrap

import (
	"errors"
	"strconv"

	"anoa.com/scholarhub/internal/entity"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	devDirectorEmail    = "director@scholarhub.local"
	devDirectorPassword = "director123"
)

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&entity.User{},
		&entity.Profile{},
		&entity.InterviewSlot{},
		&entity.Application{},
		&entity.ApplicationEvent{},
		&entity.Conversation{},
		&entity.ConversationMember{},
		&entity.Message{},
		&entity.Document{},
		&entity.Announcement{},
		&entity.SiteSetting{},
	)
}

// SeedSettings inserts the intake settings when absent; existing values win.
func SeedSettings(db *gorm.DB, open bool) error {
	return db.Clauses(clause.OnConflict{DoNothing: true}).Create(&entity.SiteSetting{
		Key:   entity.SettingApplicationsOpen,
		Value: strconv.FormatBool(open),
	}).Error
}

// SeedDirector creates a development director account.
func SeedDirector(db *gorm.DB) error {
	var existing entity.User
	err := db.Where("email = ?", devDirectorEmail).First(&existing).Error
	if err == nil {
		log.Debug().Str("email", devDirectorEmail).Msg("director user already exists, skipping seed")
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(devDirectorPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	return db.Transaction(func(tx *gorm.DB) error {
		user := entity.User{Email: devDirectorEmail, PasswordHash: string(hash)}
		if err := tx.Omit("Profile").Create(&user).Error; err != nil {
			return err
		}
		profile := entity.Profile{UserID: user.ID, FullName: "Program Director", Role: entity.RoleDirector}
		if err := tx.Create(&profile).Error; err != nil {
			return err
		}
		log.Info().Str("email", devDirectorEmail).Msg("seeded development director")
		return nil
	})
}
