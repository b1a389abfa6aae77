package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"anoa.com/scholarhub/internal/entity"
	search "anoa.com/scholarhub/internal/modules/search/service"
	"anoa.com/scholarhub/internal/modules/user/dto"
	"anoa.com/scholarhub/internal/modules/user/repository"
	"anoa.com/scholarhub/pkg/apperror"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var errInvalidCredentials = fmt.Errorf("invalid credentials: %w", apperror.ErrUnauthorized)

type AuthService interface {
	Register(ctx context.Context, input dto.RegisterInput) (*dto.AuthResponse, error)
	Login(ctx context.Context, input dto.LoginInput) (*dto.AuthResponse, error)
	VerifyDirectorCode(code string) bool
	Me(ctx context.Context, actor entity.Actor) (*entity.User, error)
	SearchToken(actor entity.Actor) (string, error)
}

type AuthConfig struct {
	Secret       string
	TokenTTL     time.Duration
	DirectorCode string
}

type authService struct {
	repo   repository.UserRepository
	meili  search.SearchService
	config AuthConfig
}

func NewAuthService(repo repository.UserRepository, meili search.SearchService, config AuthConfig) AuthService {
	if config.TokenTTL <= 0 {
		config.TokenTTL = time.Hour
	}
	return &authService{
		repo:   repo,
		meili:  meili,
		config: config,
	}
}

func (s *authService) Register(ctx context.Context, input dto.RegisterInput) (*dto.AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))

	role := entity.RoleApplicant
	if code := strings.TrimSpace(input.DirectorCode); code != "" {
		if !s.VerifyDirectorCode(code) {
			return nil, fmt.Errorf("invalid director registration code: %w", apperror.ErrForbidden)
		}
		role = entity.RoleDirector
	}

	if _, err := s.repo.FindByEmail(ctx, email); err == nil {
		return nil, fmt.Errorf("email is already registered: %w", apperror.ErrConflict)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &entity.User{
		Email:        email,
		PasswordHash: string(hash),
	}
	profile := &entity.Profile{
		FullName: strings.TrimSpace(input.FullName),
		Role:     role,
	}

	if err := s.repo.Create(ctx, user, profile); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("email is already registered: %w", apperror.ErrConflict)
		}
		return nil, err
	}
	user.Profile = profile

	log.Info().Str("user_id", user.ID.String()).Str("role", role).Msg("user registered")
	return s.buildAuthResponse(user)
}

func (s *authService) Login(ctx context.Context, input dto.LoginInput) (*dto.AuthResponse, error) {
	user, err := s.repo.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(input.Email)))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return nil, errInvalidCredentials
	}

	return s.buildAuthResponse(user)
}

// VerifyDirectorCode compares against the configured secret. An unset secret
// matches nothing.
func (s *authService) VerifyDirectorCode(code string) bool {
	if s.config.DirectorCode == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(strings.TrimSpace(code)), []byte(s.config.DirectorCode)) == 1
}

func (s *authService) Me(ctx context.Context, actor entity.Actor) (*entity.User, error) {
	user, err := s.repo.FindByID(ctx, actor.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("user not found: %w", apperror.ErrNotFound)
		}
		return nil, err
	}
	return user, nil
}

func (s *authService) SearchToken(actor entity.Actor) (string, error) {
	if s.meili == nil {
		return "", fmt.Errorf("search is not configured: %w", apperror.ErrPrecondition)
	}
	return s.meili.GenerateSearchToken(actor.Role)
}

func (s *authService) buildAuthResponse(user *entity.User) (*dto.AuthResponse, error) {
	token, expiresAt, err := s.generateToken(user.ID)
	if err != nil {
		return nil, err
	}

	var searchToken string
	if s.meili != nil && user.Profile != nil {
		st, err := s.meili.GenerateSearchToken(user.Profile.Role)
		if err != nil {
			log.Warn().Err(err).Str("user_id", user.ID.String()).Msg("failed to generate search token")
		} else {
			searchToken = st
		}
	}

	return &dto.AuthResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   expiresAt,
		User:        user,
		Profile:     user.Profile,
		SearchToken: searchToken,
	}, nil
}

func (s *authService) generateToken(userID uuid.UUID) (string, int64, error) {
	now := time.Now()
	expiresAt := now.Add(s.config.TokenTTL)

	claims := jwt.RegisteredClaims{
		Subject:   userID.String(),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
		IssuedAt:  jwt.NewNumericDate(now),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.config.Secret))
	if err != nil {
		return "", 0, err
	}

	return signed, expiresAt.Unix(), nil
}
