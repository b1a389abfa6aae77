package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"anoa.com/scholarhub/internal/entity"
	"anoa.com/scholarhub/internal/modules/announcement/dto"
	"anoa.com/scholarhub/internal/modules/announcement/repository"
	search "anoa.com/scholarhub/internal/modules/search/service"
	"anoa.com/scholarhub/pkg/apperror"
	commonDto "anoa.com/scholarhub/pkg/dto"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

type AnnouncementService interface {
	Create(ctx context.Context, actor entity.Actor, req dto.CreateAnnouncementRequest) (*entity.Announcement, error)
	List(ctx context.Context, actor entity.Actor, filter dto.ListAnnouncementsFilter) (*dto.PaginatedAnnouncements, error)
	Delete(ctx context.Context, actor entity.Actor, id uuid.UUID) error
}

type announcementService struct {
	repo   repository.AnnouncementRepository
	search search.SearchService
	titles *bluemonday.Policy
	bodies *bluemonday.Policy
}

// NewAnnouncementService accepts a nil search service; indexing is then skipped.
func NewAnnouncementService(repo repository.AnnouncementRepository, searchService search.SearchService) AnnouncementService {
	return &announcementService{
		repo:   repo,
		search: searchService,
		titles: bluemonday.StrictPolicy(),
		bodies: bluemonday.UGCPolicy(),
	}
}

func (s *announcementService) Create(ctx context.Context, actor entity.Actor, req dto.CreateAnnouncementRequest) (*entity.Announcement, error) {
	if !actor.IsDirector() {
		return nil, fmt.Errorf("only directors can publish announcements: %w", apperror.ErrForbidden)
	}

	title := strings.TrimSpace(s.titles.Sanitize(req.Title))
	body := strings.TrimSpace(s.bodies.Sanitize(req.Body))

	fields := map[string]string{}
	if title == "" {
		fields["title"] = "Title is required"
	}
	if body == "" {
		fields["body"] = "Body is required"
	}

	audience := strings.ToLower(strings.TrimSpace(req.Audience))
	switch audience {
	case "":
		audience = entity.AudienceAll
	case entity.AudienceAll, entity.AudienceApplicants, entity.AudienceScholars:
	default:
		fields["audience"] = "Audience must be one of: all applicants scholars"
	}
	if len(fields) > 0 {
		return nil, apperror.NewValidationError(fields)
	}

	a := &entity.Announcement{
		DirectorID: actor.UserID,
		Title:      title,
		Body:       body,
		Audience:   audience,
	}
	if err := s.repo.Create(ctx, a); err != nil {
		return nil, err
	}

	if s.search != nil {
		if err := s.search.IndexAnnouncement(a); err != nil {
			log.Warn().Err(err).Str("announcement_id", a.ID.String()).Msg("failed to index announcement")
		}
	}

	return a, nil
}

func (s *announcementService) List(ctx context.Context, actor entity.Actor, filter dto.ListAnnouncementsFilter) (*dto.PaginatedAnnouncements, error) {
	offset := filter.Normalize()

	items, total, err := s.repo.List(ctx, entity.AudiencesFor(actor.Role), filter.Limit, offset)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []entity.Announcement{}
	}

	return &dto.PaginatedAnnouncements{
		Data: items,
		Meta: commonDto.NewPaginationMeta(filter.PageFilter, total),
	}, nil
}

func (s *announcementService) Delete(ctx context.Context, actor entity.Actor, id uuid.UUID) error {
	if !actor.IsDirector() {
		return fmt.Errorf("only directors can delete announcements: %w", apperror.ErrForbidden)
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("announcement not found: %w", apperror.ErrNotFound)
		}
		return err
	}

	if s.search != nil {
		if err := s.search.DeleteAnnouncement(id.String()); err != nil {
			log.Warn().Err(err).Str("announcement_id", id.String()).Msg("failed to remove announcement from index")
		}
	}
	return nil
}
