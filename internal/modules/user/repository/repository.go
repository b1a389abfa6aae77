package repository

import (
	"context"
	"fmt"

	"anoa.com/scholarhub/internal/entity"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserRepository interface {
	Create(ctx context.Context, user *entity.User, profile *entity.Profile) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error)
	FindByEmail(ctx context.Context, email string) (*entity.User, error)
	FindProfile(ctx context.Context, userID uuid.UUID) (*entity.Profile, error)
	FindFirstDirector(ctx context.Context) (*entity.Profile, error)
	FindByClassName(ctx context.Context, className string, roles []string) ([]entity.Profile, error)
	PromoteToScholar(ctx context.Context, userID uuid.UUID, cohort string) error
}

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *entity.User, profile *entity.Profile) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Profile").Create(user).Error; err != nil {
			return err
		}

		if profile != nil {
			profile.UserID = user.ID
			if err := tx.Create(profile).Error; err != nil {
				return err
			}
			user.Profile = profile
		}

		return nil
	})
}

func (r *userRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	var user entity.User
	if err := r.db.WithContext(ctx).
		Preload("Profile").
		Where("id = ?", id).
		First(&user).Error; err != nil {
		return nil, err
	}

	return &user, nil
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	var user entity.User
	if err := r.db.WithContext(ctx).
		Preload("Profile").
		Where("email = ?", email).
		First(&user).Error; err != nil {
		return nil, err
	}

	return &user, nil
}

func (r *userRepository) FindProfile(ctx context.Context, userID uuid.UUID) (*entity.Profile, error) {
	var profile entity.Profile
	if err := r.db.WithContext(ctx).First(&profile, "user_id = ?", userID).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

// FindFirstDirector picks the longest-standing director account.
func (r *userRepository) FindFirstDirector(ctx context.Context) (*entity.Profile, error) {
	var profile entity.Profile
	if err := r.db.WithContext(ctx).
		Where("role = ?", entity.RoleDirector).
		Order("created_at asc").
		First(&profile).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *userRepository) FindByClassName(ctx context.Context, className string, roles []string) ([]entity.Profile, error) {
	var profiles []entity.Profile
	err := r.db.WithContext(ctx).
		Where("class_name = ? AND role IN ?", className, roles).
		Find(&profiles).Error
	return profiles, err
}

func (r *userRepository) PromoteToScholar(ctx context.Context, userID uuid.UUID, cohort string) error {
	res := r.db.WithContext(ctx).Model(&entity.Profile{}).
		Where("user_id = ?", userID).
		Updates(map[string]any{
			"role":       entity.RoleScholar,
			"class_name": cohort,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("profile %s: %w", userID, gorm.ErrRecordNotFound)
	}
	return nil
}
