package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"anoa.com/scholarhub/internal/entity"
	"anoa.com/scholarhub/internal/modules/setting/dto"
	"anoa.com/scholarhub/internal/modules/setting/repository"
	"anoa.com/scholarhub/pkg/apperror"
	"github.com/rs/zerolog/log"
)

type SettingService interface {
	Get(ctx context.Context) (*dto.SettingsResponse, error)
	Update(ctx context.Context, actor entity.Actor, req dto.UpdateSettingsRequest) (*dto.SettingsResponse, error)
	AcceptingApplications(ctx context.Context, now time.Time) (bool, error)
	CloseIfPastDeadline(ctx context.Context, now time.Time) (bool, error)
}

type settingService struct {
	repo repository.SettingRepository
}

func NewSettingService(repo repository.SettingRepository) SettingService {
	return &settingService{repo: repo}
}

func (s *settingService) Get(ctx context.Context) (*dto.SettingsResponse, error) {
	values, err := s.repo.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	return parseSettings(values), nil
}

func (s *settingService) Update(ctx context.Context, actor entity.Actor, req dto.UpdateSettingsRequest) (*dto.SettingsResponse, error) {
	if !actor.IsDirector() {
		return nil, fmt.Errorf("only directors can change settings: %w", apperror.ErrForbidden)
	}

	values := map[string]string{}
	if req.ApplicationsOpen != nil {
		values[entity.SettingApplicationsOpen] = strconv.FormatBool(*req.ApplicationsOpen)
	}
	if req.ApplicationDeadline != nil {
		raw := strings.TrimSpace(*req.ApplicationDeadline)
		if raw != "" {
			deadline, err := time.Parse(time.RFC3339, raw)
			if err != nil {
				return nil, apperror.NewValidationError(map[string]string{
					"application_deadline": "Deadline must be an RFC 3339 timestamp",
				})
			}
			raw = deadline.UTC().Format(time.RFC3339)
		}
		values[entity.SettingApplicationDeadline] = raw
	}

	if err := s.repo.Upsert(ctx, values); err != nil {
		return nil, err
	}

	log.Info().Str("director_id", actor.UserID.String()).Interface("settings", values).Msg("site settings updated")
	return s.Get(ctx)
}

// AcceptingApplications is true only while intake is switched on and the
// deadline, when set, lies in the future.
func (s *settingService) AcceptingApplications(ctx context.Context, now time.Time) (bool, error) {
	settings, err := s.Get(ctx)
	if err != nil {
		return false, err
	}
	return accepting(settings, now), nil
}

func (s *settingService) CloseIfPastDeadline(ctx context.Context, now time.Time) (bool, error) {
	settings, err := s.Get(ctx)
	if err != nil {
		return false, err
	}
	if !settings.ApplicationsOpen || settings.ApplicationDeadline == nil || now.Before(*settings.ApplicationDeadline) {
		return false, nil
	}

	if err := s.repo.Upsert(ctx, map[string]string{entity.SettingApplicationsOpen: "false"}); err != nil {
		return false, err
	}
	log.Info().Time("deadline", *settings.ApplicationDeadline).Msg("applications closed after deadline")
	return true, nil
}

func accepting(settings *dto.SettingsResponse, now time.Time) bool {
	if !settings.ApplicationsOpen {
		return false
	}
	return settings.ApplicationDeadline == nil || now.Before(*settings.ApplicationDeadline)
}

// Missing or unparsable values read as closed with no deadline.
func parseSettings(values map[string]string) *dto.SettingsResponse {
	res := &dto.SettingsResponse{
		ApplicationsOpen: values[entity.SettingApplicationsOpen] == "true",
	}
	if raw := values[entity.SettingApplicationDeadline]; raw != "" {
		if deadline, err := time.Parse(time.RFC3339, raw); err == nil {
			res.ApplicationDeadline = &deadline
		} else {
			log.Warn().Str("value", raw).Msg("ignoring malformed application deadline")
		}
	}
	return res
}
