package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"anoa.com/scholarhub/internal/entity"
	"anoa.com/scholarhub/internal/metrics"
	"anoa.com/scholarhub/internal/modules/application/dto"
	"anoa.com/scholarhub/internal/modules/application/repository"
	"anoa.com/scholarhub/internal/modules/application/validation"
	search "anoa.com/scholarhub/internal/modules/search/service"
	"anoa.com/scholarhub/pkg/apperror"
	commonDto "anoa.com/scholarhub/pkg/dto"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// ProfilePromoter turns an accepted applicant into a scholar of a cohort.
type ProfilePromoter interface {
	PromoteToScholar(ctx context.Context, userID uuid.UUID, cohort string) error
}

// IntakeChecker reports whether new applications may be started.
type IntakeChecker interface {
	AcceptingApplications(ctx context.Context, now time.Time) (bool, error)
}

type ApplicationService interface {
	SaveDraft(ctx context.Context, actor entity.Actor, fields validation.Fields) (*entity.Application, error)
	Submit(ctx context.Context, actor entity.Actor, fields validation.Fields) (*entity.Application, error)
	ValidateStep(step int, fields validation.Fields) (map[string]string, error)
	GetCurrent(ctx context.Context, actor entity.Actor) (*entity.Application, error)
	AdvanceStatus(ctx context.Context, actor entity.Actor, id uuid.UUID, req dto.AdvanceStatusRequest) (*entity.Application, error)
	RetryPromotion(ctx context.Context, actor entity.Actor, id uuid.UUID) (*entity.Application, error)
	RetryPendingPromotions(ctx context.Context) (int, error)
	ListForReview(ctx context.Context, actor entity.Actor, filter dto.ReviewFilter) (*dto.PaginatedApplications, error)
	GetForReview(ctx context.Context, actor entity.Actor, id uuid.UUID) (*entity.Application, error)
	Search(ctx context.Context, actor entity.Actor, query, status string) ([]search.ApplicationHit, error)
}

type applicationService struct {
	repo     repository.ApplicationRepository
	profiles ProfilePromoter
	intake   IntakeChecker
	search   search.SearchService
	now      func() time.Time
}

func NewApplicationService(repo repository.ApplicationRepository, profiles ProfilePromoter, intake IntakeChecker, searchSvc search.SearchService) ApplicationService {
	return &applicationService{
		repo:     repo,
		profiles: profiles,
		intake:   intake,
		search:   searchSvc,
		now:      time.Now,
	}
}

func (s *applicationService) SaveDraft(ctx context.Context, actor entity.Actor, fields validation.Fields) (*entity.Application, error) {
	app, isNew, err := s.mergeDraft(ctx, actor, fields)
	if err != nil {
		return nil, err
	}
	if err := s.storeDraft(ctx, app, isNew); err != nil {
		return nil, err
	}
	return app, nil
}

// mergeDraft applies fields to the applicant's draft, or to a fresh one, in
// memory only. Nothing is written.
func (s *applicationService) mergeDraft(ctx context.Context, actor entity.Actor, fields validation.Fields) (*entity.Application, bool, error) {
	if actor.Role != entity.RoleApplicant {
		return nil, false, fmt.Errorf("only applicants can edit an application: %w", apperror.ErrForbidden)
	}

	current, err := s.repo.FindCurrentByUser(ctx, actor.UserID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	now := s.now()

	if current == nil {
		if s.intake != nil {
			open, err := s.intake.AcceptingApplications(ctx, now)
			if err != nil {
				return nil, false, err
			}
			if !open {
				return nil, false, fmt.Errorf("applications are closed: %w", apperror.ErrPrecondition)
			}
		}

		app := &entity.Application{
			UserID:    actor.UserID,
			Status:    entity.StatusDraft,
			UpdatedAt: now,
		}
		fields.ApplyTo(app)
		return app, true, nil
	}

	if current.Status != entity.StatusDraft {
		return nil, false, fmt.Errorf("application is %s and can no longer be edited: %w", current.Status, apperror.ErrForbidden)
	}

	fields.ApplyTo(current)
	current.UpdatedAt = now
	return current, false, nil
}

func (s *applicationService) storeDraft(ctx context.Context, app *entity.Application, isNew bool) error {
	if isNew {
		if err := s.repo.Create(ctx, app); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return fmt.Errorf("a draft already exists for this applicant: %w", apperror.ErrConflict)
			}
			return err
		}
		return nil
	}

	if err := s.repo.UpdateDraft(ctx, app); err != nil {
		return err
	}
	app.Version++
	return nil
}

// Submit validates the merged draft before anything is stored; a rejected
// submission leaves the stored draft as it was.
func (s *applicationService) Submit(ctx context.Context, actor entity.Actor, fields validation.Fields) (*entity.Application, error) {
	app, isNew, err := s.mergeDraft(ctx, actor, fields)
	if err != nil {
		return nil, err
	}

	if errs := validation.ValidateForSubmit(validation.FieldsOf(app)); len(errs) > 0 {
		return nil, apperror.NewValidationError(errs)
	}

	if err := s.storeDraft(ctx, app, isNew); err != nil {
		return nil, err
	}

	now := s.now()
	err = s.repo.ChangeStatus(ctx, repository.StatusChange{
		ID:      app.ID,
		From:    entity.StatusDraft,
		To:      entity.StatusSubmitted,
		Columns: map[string]any{"submitted_at": now},
		Event:   newEvent(app.ID, actor.UserID, entity.StatusDraft, entity.StatusSubmitted, nil),
		At:      now,
	})
	if err != nil {
		return nil, err
	}

	app.Status = entity.StatusSubmitted
	app.SubmittedAt = &now
	app.UpdatedAt = now
	app.Version++

	metrics.StatusTransitions.WithLabelValues(string(entity.StatusSubmitted)).Inc()
	s.index(app)
	return app, nil
}

func (s *applicationService) ValidateStep(step int, fields validation.Fields) (map[string]string, error) {
	st, ok := validation.ParseStep(step)
	if !ok {
		return nil, fmt.Errorf("step must be between 0 and %d: %w", len(validation.Steps)-1, apperror.ErrInvalidInput)
	}
	return validation.ValidateStep(st, fields), nil
}

func (s *applicationService) GetCurrent(ctx context.Context, actor entity.Actor) (*entity.Application, error) {
	app, err := s.repo.FindCurrentByUser(ctx, actor.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("no application yet: %w", apperror.ErrNotFound)
		}
		return nil, err
	}
	return app, nil
}

func (s *applicationService) AdvanceStatus(ctx context.Context, actor entity.Actor, id uuid.UUID, req dto.AdvanceStatusRequest) (*entity.Application, error) {
	if !actor.IsDirector() {
		return nil, fmt.Errorf("only directors can change an application status: %w", apperror.ErrForbidden)
	}

	target, ok := parseStatus(req.Status)
	if !ok {
		return nil, fmt.Errorf("unknown status %q: %w", req.Status, apperror.ErrInvalidInput)
	}
	if target == entity.StatusDraft || target == entity.StatusSubmitted {
		return nil, fmt.Errorf("status %s is set by the applicant: %w", target, apperror.ErrForbidden)
	}

	cohort := strings.TrimSpace(req.CohortName)
	if target == entity.StatusAccepted && cohort == "" {
		return nil, apperror.NewValidationError(map[string]string{
			"cohort_name": "Cohort name is required to accept an application",
		})
	}

	app, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("application not found: %w", apperror.ErrNotFound)
		}
		return nil, err
	}

	if !isAllowedTransition(app.Status, target) {
		if isFinalStatus(app.Status) {
			return nil, fmt.Errorf("application is already %s: %w", app.Status, apperror.ErrPrecondition)
		}
		return nil, fmt.Errorf("cannot move application from %s to %s: %w", app.Status, target, apperror.ErrPrecondition)
	}

	columns := map[string]any{}
	if req.Notes != nil {
		columns["director_notes"] = *req.Notes
	}
	if target == entity.StatusAccepted {
		columns["cohort_name"] = cohort
	}

	from := app.Status
	now := s.now()
	err = s.repo.ChangeStatus(ctx, repository.StatusChange{
		ID:              app.ID,
		From:            from,
		To:              target,
		ExpectedVersion: req.ExpectedVersion,
		Columns:         columns,
		Event:           newEvent(app.ID, actor.UserID, from, target, map[string]any{"notes": req.Notes, "cohort_name": cohort}),
		At:              now,
	})
	if err != nil {
		return nil, err
	}

	app.Status = target
	app.UpdatedAt = now
	app.Version++
	if req.Notes != nil {
		notes := *req.Notes
		app.DirectorNotes = &notes
	}
	if target == entity.StatusAccepted {
		app.CohortName = &cohort
	}

	metrics.StatusTransitions.WithLabelValues(string(target)).Inc()
	log.Info().
		Str("application_id", app.ID.String()).
		Str("from", string(from)).
		Str("to", string(target)).
		Str("director_id", actor.UserID.String()).
		Msg("application status changed")

	if target == entity.StatusAccepted {
		if err := s.promote(ctx, app); err != nil {
			metrics.PartialFailures.WithLabelValues("accept_application").Inc()
			s.index(app)
			return app, &apperror.PartialFailureError{
				Operation: "accept application",
				Completed: "application status set to accepted",
				Failed:    "applicant profile was not promoted to scholar",
				IDs: map[string]string{
					"application_id": app.ID.String(),
					"user_id":        app.UserID.String(),
				},
				Err: err,
			}
		}
	}

	s.index(app)
	return app, nil
}

func (s *applicationService) RetryPromotion(ctx context.Context, actor entity.Actor, id uuid.UUID) (*entity.Application, error) {
	if !actor.IsDirector() {
		return nil, fmt.Errorf("only directors can retry a promotion: %w", apperror.ErrForbidden)
	}

	app, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("application not found: %w", apperror.ErrNotFound)
		}
		return nil, err
	}

	if app.Status != entity.StatusAccepted || app.CohortName == nil {
		return nil, fmt.Errorf("application is %s, only accepted applications are promoted: %w", app.Status, apperror.ErrPrecondition)
	}
	if app.ProfilePromotedAt != nil {
		return app, nil
	}

	if err := s.promote(ctx, app); err != nil {
		return nil, fmt.Errorf("promote profile of %s: %w", app.UserID, err)
	}
	return app, nil
}

// RetryPendingPromotions promotes every accepted applicant whose profile was
// left behind by a partial failure.
func (s *applicationService) RetryPendingPromotions(ctx context.Context) (int, error) {
	apps, err := s.repo.FindPendingPromotions(ctx, 50)
	if err != nil {
		return 0, err
	}

	promoted := 0
	var errs []error
	for i := range apps {
		if err := s.promote(ctx, &apps[i]); err != nil {
			errs = append(errs, fmt.Errorf("application %s: %w", apps[i].ID, err))
			continue
		}
		promoted++
	}
	return promoted, errors.Join(errs...)
}

func (s *applicationService) ListForReview(ctx context.Context, actor entity.Actor, filter dto.ReviewFilter) (*dto.PaginatedApplications, error) {
	if !actor.IsDirector() {
		return nil, fmt.Errorf("only directors can review applications: %w", apperror.ErrForbidden)
	}

	var status entity.ApplicationStatus
	if filter.Status != "" {
		var ok bool
		status, ok = parseStatus(filter.Status)
		if !ok || status == entity.StatusDraft {
			return nil, fmt.Errorf("unknown status filter %q: %w", filter.Status, apperror.ErrInvalidInput)
		}
	}

	offset := filter.Normalize()

	apps, total, err := s.repo.FindForReview(ctx, status, filter.Limit, offset)
	if err != nil {
		return nil, err
	}

	data := make([]dto.ApplicationSummary, 0, len(apps))
	for i := range apps {
		data = append(data, dto.ToSummary(&apps[i]))
	}

	return &dto.PaginatedApplications{
		Data: data,
		Meta: commonDto.NewPaginationMeta(filter.PageFilter, total),
	}, nil
}

func (s *applicationService) GetForReview(ctx context.Context, actor entity.Actor, id uuid.UUID) (*entity.Application, error) {
	app, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("application not found: %w", apperror.ErrNotFound)
		}
		return nil, err
	}

	if !actor.IsDirector() && app.UserID != actor.UserID {
		return nil, fmt.Errorf("not your application: %w", apperror.ErrForbidden)
	}
	return app, nil
}

func (s *applicationService) Search(ctx context.Context, actor entity.Actor, query, status string) ([]search.ApplicationHit, error) {
	if !actor.IsDirector() {
		return nil, fmt.Errorf("only directors can search applications: %w", apperror.ErrForbidden)
	}
	if s.search == nil {
		return nil, apperror.New(http.StatusServiceUnavailable, "search is unavailable", nil)
	}
	if status != "" {
		if _, ok := parseStatus(status); !ok {
			return nil, fmt.Errorf("unknown status filter %q: %w", status, apperror.ErrInvalidInput)
		}
	}
	return s.search.SearchApplications(query, status, 20)
}

func (s *applicationService) promote(ctx context.Context, app *entity.Application) error {
	if err := s.profiles.PromoteToScholar(ctx, app.UserID, *app.CohortName); err != nil {
		return err
	}

	now := s.now()
	app.ProfilePromotedAt = &now
	if err := s.repo.MarkProfilePromoted(ctx, app.ID, now); err != nil {
		// The profile is promoted; the retry job will redo it idempotently.
		log.Warn().Err(err).Str("application_id", app.ID.String()).Msg("failed to stamp profile promotion")
	}
	return nil
}

func (s *applicationService) index(app *entity.Application) {
	if s.search == nil {
		return
	}
	if err := s.search.IndexApplication(app); err != nil {
		log.Warn().Err(err).Str("application_id", app.ID.String()).Msg("failed to index application")
	}
}

func newEvent(appID, actorID uuid.UUID, from, to entity.ApplicationStatus, payload map[string]any) *entity.ApplicationEvent {
	event := &entity.ApplicationEvent{
		ApplicationID: appID,
		ActorID:       actorID,
		FromStatus:    from,
		ToStatus:      to,
	}
	if payload != nil {
		if raw, err := json.Marshal(payload); err == nil {
			event.Payload = raw
		}
	}
	return event
}
