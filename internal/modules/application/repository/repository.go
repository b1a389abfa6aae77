package repository

import (
	"context"
	"fmt"
	"time"

	"anoa.com/scholarhub/internal/entity"
	"anoa.com/scholarhub/pkg/apperror"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// StatusChange is a compare-and-swap on (id, status[, version]).
type StatusChange struct {
	ID              uuid.UUID
	From            entity.ApplicationStatus
	To              entity.ApplicationStatus
	ExpectedVersion *int
	Columns         map[string]any
	Event           *entity.ApplicationEvent
	At              time.Time
}

type ApplicationRepository interface {
	Create(ctx context.Context, app *entity.Application) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Application, error)
	FindCurrentByUser(ctx context.Context, userID uuid.UUID) (*entity.Application, error)
	UpdateDraft(ctx context.Context, app *entity.Application) error
	ChangeStatus(ctx context.Context, change StatusChange) error
	MarkProfilePromoted(ctx context.Context, id uuid.UUID, at time.Time) error
	FindForReview(ctx context.Context, status entity.ApplicationStatus, limit, offset int) ([]entity.Application, int64, error)
	FindPendingPromotions(ctx context.Context, limit int) ([]entity.Application, error)
}

type applicationRepository struct {
	db *gorm.DB
}

func NewApplicationRepository(db *gorm.DB) ApplicationRepository {
	return &applicationRepository{db: db}
}

func (r *applicationRepository) Create(ctx context.Context, app *entity.Application) error {
	return r.db.WithContext(ctx).Create(app).Error
}

func (r *applicationRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Application, error) {
	var app entity.Application
	if err := r.db.WithContext(ctx).Preload("InterviewSlot").First(&app, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &app, nil
}

// FindCurrentByUser returns the most recently updated application of the user.
func (r *applicationRepository) FindCurrentByUser(ctx context.Context, userID uuid.UUID) (*entity.Application, error) {
	var app entity.Application
	err := r.db.WithContext(ctx).
		Preload("InterviewSlot").
		Where("user_id = ?", userID).
		Order("updated_at desc").
		First(&app).Error
	if err != nil {
		return nil, err
	}
	return &app, nil
}

func (r *applicationRepository) UpdateDraft(ctx context.Context, app *entity.Application) error {
	res := r.db.WithContext(ctx).Model(&entity.Application{}).
		Where("id = ? AND user_id = ? AND status = ?", app.ID, app.UserID, entity.StatusDraft).
		Updates(map[string]any{
			"full_name":          app.FullName,
			"date_of_birth":      app.DateOfBirth,
			"phone":              app.Phone,
			"address":            app.Address,
			"nationality":        app.Nationality,
			"university":         app.University,
			"program":            app.Program,
			"year_of_study":      app.YearOfStudy,
			"gpa":                app.GPA,
			"essay":              app.Essay,
			"video_url":          app.VideoURL,
			"cv_url":             app.CVURL,
			"recommendation_url": app.RecommendationURL,
			"photo_url":          app.PhotoURL,
			"updated_at":         app.UpdatedAt,
			"version":            gorm.Expr("version + 1"),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("draft %s is no longer editable: %w", app.ID, apperror.ErrConflict)
	}
	return nil
}

func (r *applicationRepository) ChangeStatus(ctx context.Context, change StatusChange) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		columns := map[string]any{
			"status":     change.To,
			"updated_at": change.At,
			"version":    gorm.Expr("version + 1"),
		}
		for k, v := range change.Columns {
			columns[k] = v
		}

		query := tx.Model(&entity.Application{}).Where("id = ? AND status = ?", change.ID, change.From)
		if change.ExpectedVersion != nil {
			query = query.Where("version = ?", *change.ExpectedVersion)
		}

		res := query.Updates(columns)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("application %s changed since it was read: %w", change.ID, apperror.ErrConflict)
		}

		if change.Event != nil {
			if err := tx.Create(change.Event).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *applicationRepository) MarkProfilePromoted(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).Model(&entity.Application{}).
		Where("id = ?", id).
		Update("profile_promoted_at", at).Error
}

func (r *applicationRepository) FindForReview(ctx context.Context, status entity.ApplicationStatus, limit, offset int) ([]entity.Application, int64, error) {
	var apps []entity.Application
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.Application{}).Where("status <> ?", entity.StatusDraft)
	if status != "" {
		query = query.Where("status = ?", status)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Order("submitted_at desc").
		Limit(limit).
		Offset(offset).
		Find(&apps).Error
	return apps, total, err
}

func (r *applicationRepository) FindPendingPromotions(ctx context.Context, limit int) ([]entity.Application, error) {
	var apps []entity.Application
	err := r.db.WithContext(ctx).
		Where("status = ? AND profile_promoted_at IS NULL AND cohort_name IS NOT NULL", entity.StatusAccepted).
		Order("updated_at asc").
		Limit(limit).
		Find(&apps).Error
	return apps, err
}
