package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"path/filepath"
	"strings"
	"time"

	"anoa.com/scholarhub/internal/entity"
	"anoa.com/scholarhub/internal/modules/application/validation"
	"anoa.com/scholarhub/internal/modules/document/dto"
	"anoa.com/scholarhub/internal/modules/document/repository"
	"anoa.com/scholarhub/pkg/apperror"
	"anoa.com/scholarhub/pkg/storage"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

const (
	DefaultLinkTTL = time.Hour
	linkAudience   = "document-download"
)

var allowedExtensions = map[string][]string{
	entity.DocumentCV:             {".pdf", ".doc", ".docx"},
	entity.DocumentRecommendation: {".pdf", ".doc", ".docx"},
	entity.DocumentPhoto:          {".jpg", ".jpeg", ".png", ".webp"},
}

type Upload struct {
	Category    string
	FileName    string
	Size        int64
	ContentType string
	Body        io.Reader
}

type DocumentService interface {
	Upload(ctx context.Context, actor entity.Actor, upload Upload) (*entity.Document, error)
	SignedURL(ctx context.Context, actor entity.Actor, objectPath string) (*dto.SignedURLResponse, error)
	Resolve(ctx context.Context, token string) (string, error)
	CleanupOrphans(ctx context.Context, olderThan time.Duration) (int, error)
}

type LinkConfig struct {
	Secret  string
	TTL     time.Duration
	BaseURL string
}

type documentService struct {
	repo    repository.DocumentRepository
	storage storage.FileStorage
	links   LinkConfig
	now     func() time.Time
}

func NewDocumentService(repo repository.DocumentRepository, fileStorage storage.FileStorage, links LinkConfig) DocumentService {
	if links.TTL <= 0 {
		links.TTL = DefaultLinkTTL
	}
	links.BaseURL = strings.TrimRight(links.BaseURL, "/")
	return &documentService{
		repo:    repo,
		storage: fileStorage,
		links:   links,
		now:     time.Now,
	}
}

func (s *documentService) Upload(ctx context.Context, actor entity.Actor, upload Upload) (*entity.Document, error) {
	exts, ok := allowedExtensions[upload.Category]
	if !ok {
		return nil, apperror.NewValidationError(map[string]string{
			"category": "Category must be one of: cv, recommendation, photo",
		})
	}

	// size is checked before anything is sent to storage
	if err := validation.CheckFileSize(upload.Category, upload.Size); err != nil {
		return nil, err
	}

	ext := strings.ToLower(filepath.Ext(upload.FileName))
	if !contains(exts, ext) {
		return nil, apperror.NewValidationError(map[string]string{
			"file": fmt.Sprintf("Unsupported file type, allowed: %s", strings.Join(exts, ", ")),
		})
	}

	if s.storage == nil {
		return nil, apperror.New(http.StatusServiceUnavailable, "file storage is not configured", fmt.Errorf("file storage is not configured: %w", apperror.ErrInternal))
	}

	objectPath := fmt.Sprintf("%s/%s/%d%s", actor.UserID.String(), upload.Category, s.now().UnixNano(), ext)

	stored, err := s.storage.UploadFile(ctx, upload.Body, objectPath)
	if err != nil {
		return nil, err
	}

	doc := &entity.Document{
		OwnerID:     actor.UserID,
		Category:    upload.Category,
		Path:        objectPath,
		URL:         stored.URL,
		StorageID:   stored.PublicID,
		StorageKind: stored.ResourceType,
		Size:        upload.Size,
		ContentType: upload.ContentType,
	}
	if err := s.repo.Create(ctx, doc); err != nil {
		if delErr := s.storage.DeleteFile(ctx, stored.PublicID, stored.ResourceType); delErr != nil {
			log.Error().Err(delErr).Str("path", objectPath).Msg("failed to remove untracked upload")
		}
		return nil, err
	}

	log.Info().Str("owner_id", actor.UserID.String()).Str("path", objectPath).Int64("size", upload.Size).Msg("document uploaded")
	return doc, nil
}

// SignedURL issues a short-lived download link. Only the owner of the path
// or a director may request one.
func (s *documentService) SignedURL(ctx context.Context, actor entity.Actor, objectPath string) (*dto.SignedURLResponse, error) {
	objectPath = strings.TrimPrefix(path.Clean("/"+strings.TrimSpace(objectPath)), "/")

	if !CanAccess(actor, objectPath) {
		return nil, fmt.Errorf("document access denied: %w", apperror.ErrForbidden)
	}

	if _, err := s.repo.FindByPath(ctx, objectPath); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("document not found: %w", apperror.ErrNotFound)
		}
		return nil, err
	}

	now := s.now()
	expiresAt := now.Add(s.links.TTL)
	claims := jwt.RegisteredClaims{
		Subject:   objectPath,
		Audience:  jwt.ClaimStrings{linkAudience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.links.Secret))
	if err != nil {
		return nil, err
	}

	return &dto.SignedURLResponse{
		URL:       s.links.BaseURL + "/api/documents/download?token=" + url.QueryEscape(token),
		ExpiresAt: time.Unix(expiresAt.Unix(), 0).UTC(),
	}, nil
}

func (s *documentService) Resolve(ctx context.Context, token string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.links.Secret), nil
	}, jwt.WithAudience(linkAudience), jwt.WithTimeFunc(s.now), jwt.WithExpirationRequired())
	if err != nil || !parsed.Valid {
		return "", fmt.Errorf("invalid or expired link: %w", apperror.ErrUnauthorized)
	}

	doc, err := s.repo.FindByPath(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", fmt.Errorf("document not found: %w", apperror.ErrNotFound)
		}
		return "", err
	}
	return doc.URL, nil
}

func (s *documentService) CleanupOrphans(ctx context.Context, olderThan time.Duration) (int, error) {
	orphans, err := s.repo.FindOrphans(ctx, s.now().Add(-olderThan))
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, doc := range orphans {
		if s.storage != nil {
			if err := s.storage.DeleteFile(ctx, doc.StorageID, doc.StorageKind); err != nil {
				log.Warn().Err(err).Str("path", doc.Path).Msg("failed to delete orphan from storage")
				continue
			}
		}
		if err := s.repo.Delete(ctx, doc.ID); err != nil {
			log.Warn().Err(err).Uint("document_id", doc.ID).Msg("failed to delete orphan record")
			continue
		}
		removed++
	}
	return removed, nil
}

// CanAccess reports whether actor may read the object at objectPath.
func CanAccess(actor entity.Actor, objectPath string) bool {
	if actor.IsDirector() {
		return true
	}
	return strings.HasPrefix(objectPath, actor.UserID.String()+"/")
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
