package repository

import (
	"context"

	"anoa.com/scholarhub/internal/entity"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AnnouncementRepository interface {
	Create(ctx context.Context, a *entity.Announcement) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Announcement, error)
	List(ctx context.Context, audiences []string, limit, offset int) ([]entity.Announcement, int64, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type announcementRepository struct {
	db *gorm.DB
}

func NewAnnouncementRepository(db *gorm.DB) AnnouncementRepository {
	return &announcementRepository{db: db}
}

func (r *announcementRepository) Create(ctx context.Context, a *entity.Announcement) error {
	return r.db.WithContext(ctx).Omit("Director").Create(a).Error
}

func (r *announcementRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Announcement, error) {
	var a entity.Announcement
	if err := r.db.WithContext(ctx).Preload("Director").First(&a, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *announcementRepository) List(ctx context.Context, audiences []string, limit, offset int) ([]entity.Announcement, int64, error) {
	var (
		items []entity.Announcement
		total int64
	)

	query := r.db.WithContext(ctx).Model(&entity.Announcement{}).Where("audience IN ?", audiences)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Preload("Director").
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&items).Error
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *announcementRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&entity.Announcement{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
