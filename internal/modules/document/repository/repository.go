package repository

import (
	"context"
	"time"

	"anoa.com/scholarhub/internal/entity"
	"gorm.io/gorm"
)

type DocumentRepository interface {
	Create(ctx context.Context, doc *entity.Document) error
	FindByPath(ctx context.Context, path string) (*entity.Document, error)
	FindOrphans(ctx context.Context, cutoffTime time.Time) ([]entity.Document, error)
	Delete(ctx context.Context, id uint) error
}

type documentRepository struct {
	db *gorm.DB
}

func NewDocumentRepository(db *gorm.DB) DocumentRepository {
	return &documentRepository{db: db}
}

func (r *documentRepository) Create(ctx context.Context, doc *entity.Document) error {
	return r.db.WithContext(ctx).Create(doc).Error
}

func (r *documentRepository) FindByPath(ctx context.Context, path string) (*entity.Document, error) {
	var doc entity.Document
	if err := r.db.WithContext(ctx).Where("path = ?", path).First(&doc).Error; err != nil {
		return nil, err
	}
	return &doc, nil
}

// FindOrphans lists uploads older than the cutoff that no application points at.
func (r *documentRepository) FindOrphans(ctx context.Context, cutoffTime time.Time) ([]entity.Document, error) {
	referenced := r.db.Model(&entity.Application{}).
		Select("1").
		Where("applications.cv_url = documents.path OR applications.recommendation_url = documents.path OR applications.photo_url = documents.path")

	var docs []entity.Document
	err := r.db.WithContext(ctx).
		Where("created_at < ?", cutoffTime).
		Where("NOT EXISTS (?)", referenced).
		Find(&docs).Error
	return docs, err
}

func (r *documentRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&entity.Document{}, id).Error
}
