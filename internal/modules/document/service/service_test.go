package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"anoa.com/scholarhub/internal/entity"
	"anoa.com/scholarhub/pkg/apperror"
	"anoa.com/scholarhub/pkg/storage"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type fakeStorage struct {
	mu       sync.Mutex
	uploads  map[string][]byte
	deleted  []string
	failWith error
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{uploads: map[string][]byte{}}
}

func (s *fakeStorage) UploadFile(_ context.Context, r io.Reader, publicID string) (*storage.StoredObject, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return nil, s.failWith
	}
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	s.uploads[publicID] = body
	return &storage.StoredObject{
		URL:          "https://files.example.com/" + publicID,
		PublicID:     publicID,
		ResourceType: "raw",
		Bytes:        len(body),
	}, nil
}

func (s *fakeStorage) DeleteFile(_ context.Context, publicID, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.uploads, publicID)
	s.deleted = append(s.deleted, publicID)
	return nil
}

type fakeDocumentRepo struct {
	mu        sync.Mutex
	docs      map[uint]*entity.Document
	nextID    uint
	createErr error

	// referenced paths stand in for application file columns
	referenced map[string]bool
}

func newFakeDocumentRepo() *fakeDocumentRepo {
	return &fakeDocumentRepo{docs: map[uint]*entity.Document{}, referenced: map[string]bool{}}
}

func (r *fakeDocumentRepo) Create(_ context.Context, doc *entity.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	r.nextID++
	doc.ID = r.nextID
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now()
	}
	cp := *doc
	r.docs[doc.ID] = &cp
	return nil
}

func (r *fakeDocumentRepo) FindByPath(_ context.Context, path string) (*entity.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range r.docs {
		if d.Path == path {
			cp := *d
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeDocumentRepo) FindOrphans(_ context.Context, cutoff time.Time) ([]entity.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []entity.Document
	for _, d := range r.docs {
		if d.CreatedAt.Before(cutoff) && !r.referenced[d.Path] {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (r *fakeDocumentRepo) Delete(_ context.Context, id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.docs, id)
	return nil
}

func newTestService(repo *fakeDocumentRepo, store *fakeStorage, now time.Time) *documentService {
	svc := NewDocumentService(repo, store, LinkConfig{Secret: "link-secret", BaseURL: "https://api.example.com/"}).(*documentService)
	svc.now = func() time.Time { return now }
	return svc
}

func pdfUpload(category string, size int) Upload {
	return Upload{
		Category:    category,
		FileName:    "Resume.PDF",
		Size:        int64(size),
		ContentType: "application/pdf",
		Body:        bytes.NewReader(make([]byte, size)),
	}
}

var fixedNow = time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)

func TestUploadStoresUnderOwnerPath(t *testing.T) {
	repo, store := newFakeDocumentRepo(), newFakeStorage()
	svc := newTestService(repo, store, fixedNow)
	owner := entity.Actor{UserID: uuid.New(), Role: entity.RoleApplicant}

	doc, err := svc.Upload(context.Background(), owner, pdfUpload(entity.DocumentCV, 1024))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}

	wantPrefix := owner.UserID.String() + "/cv/"
	if !strings.HasPrefix(doc.Path, wantPrefix) || !strings.HasSuffix(doc.Path, ".pdf") {
		t.Fatalf("path = %s, want %s<nanos>.pdf", doc.Path, wantPrefix)
	}
	if _, ok := store.uploads[doc.Path]; !ok {
		t.Fatal("file not sent to storage")
	}
}

func TestUploadRejectsOversizeBeforeStorage(t *testing.T) {
	repo, store := newFakeDocumentRepo(), newFakeStorage()
	svc := newTestService(repo, store, fixedNow)
	owner := entity.Actor{UserID: uuid.New()}

	photo := Upload{Category: entity.DocumentPhoto, FileName: "me.jpg", Size: 2*1024*1024 + 1, Body: strings.NewReader("")}
	_, err := svc.Upload(context.Background(), owner, photo)
	var verr *apperror.ValidationError
	if !errors.As(err, &verr) || verr.Fields["file"] != "file too large: max 2MB" {
		t.Fatalf("err = %v, want photo size error", err)
	}

	_, err = svc.Upload(context.Background(), owner, pdfUpload(entity.DocumentRecommendation, 5*1024*1024+1))
	if !errors.As(err, &verr) || verr.Fields["file"] != "file too large: max 5MB" {
		t.Fatalf("err = %v, want document size error", err)
	}

	if len(store.uploads) != 0 {
		t.Fatal("oversize files must never reach storage")
	}
}

func TestUploadRejectsUnknownCategoryAndType(t *testing.T) {
	svc := newTestService(newFakeDocumentRepo(), newFakeStorage(), fixedNow)
	owner := entity.Actor{UserID: uuid.New()}

	var verr *apperror.ValidationError
	if _, err := svc.Upload(context.Background(), owner, pdfUpload("transcript", 10)); !errors.As(err, &verr) {
		t.Fatalf("unknown category err = %v", err)
	}

	exe := Upload{Category: entity.DocumentCV, FileName: "cv.exe", Size: 10, Body: strings.NewReader("x")}
	if _, err := svc.Upload(context.Background(), owner, exe); !errors.As(err, &verr) {
		t.Fatalf("bad extension err = %v", err)
	}
}

func TestUploadRemovesFileWhenRecordFails(t *testing.T) {
	repo, store := newFakeDocumentRepo(), newFakeStorage()
	repo.createErr = errors.New("db down")
	svc := newTestService(repo, store, fixedNow)

	_, err := svc.Upload(context.Background(), entity.Actor{UserID: uuid.New()}, pdfUpload(entity.DocumentCV, 10))
	if err == nil {
		t.Fatal("expected error")
	}
	if len(store.uploads) != 0 || len(store.deleted) != 1 {
		t.Fatalf("uploads=%d deleted=%d, want the stored file removed", len(store.uploads), len(store.deleted))
	}
}

func TestSignedURLAccessPolicy(t *testing.T) {
	repo, store := newFakeDocumentRepo(), newFakeStorage()
	svc := newTestService(repo, store, fixedNow)
	ctx := context.Background()
	owner := entity.Actor{UserID: uuid.New(), Role: entity.RoleApplicant}

	doc, err := svc.Upload(ctx, owner, pdfUpload(entity.DocumentCV, 10))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}

	tests := []struct {
		name  string
		actor entity.Actor
		path  string
		want  error
	}{
		{name: "owner", actor: owner, path: doc.Path},
		{name: "director", actor: entity.Actor{UserID: uuid.New(), Role: entity.RoleDirector}, path: doc.Path},
		{name: "other applicant", actor: entity.Actor{UserID: uuid.New(), Role: entity.RoleApplicant}, path: doc.Path, want: apperror.ErrForbidden},
		{name: "scholar", actor: entity.Actor{UserID: uuid.New(), Role: entity.RoleScholar}, path: doc.Path, want: apperror.ErrForbidden},
		{name: "traversal", actor: owner, path: owner.UserID.String() + "/../" + uuid.NewString() + "/cv/x.pdf", want: apperror.ErrForbidden},
		{name: "missing", actor: owner, path: owner.UserID.String() + "/cv/none.pdf", want: apperror.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := svc.SignedURL(ctx, tt.actor, tt.path)
			if tt.want != nil {
				if !errors.Is(err, tt.want) {
					t.Fatalf("err = %v, want %v", err, tt.want)
				}
				return
			}
			if err != nil {
				t.Fatalf("SignedURL: %v", err)
			}
			if !res.ExpiresAt.Equal(fixedNow.Add(time.Hour)) {
				t.Fatalf("expires_at = %v, want now+1h", res.ExpiresAt)
			}
			if !strings.HasPrefix(res.URL, "https://api.example.com/api/documents/download?token=") {
				t.Fatalf("url = %s", res.URL)
			}
		})
	}
}

func TestResolveLink(t *testing.T) {
	repo, store := newFakeDocumentRepo(), newFakeStorage()
	svc := newTestService(repo, store, fixedNow)
	ctx := context.Background()
	owner := entity.Actor{UserID: uuid.New(), Role: entity.RoleApplicant}

	doc, err := svc.Upload(ctx, owner, pdfUpload(entity.DocumentCV, 10))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	link, err := svc.SignedURL(ctx, owner, doc.Path)
	if err != nil {
		t.Fatalf("SignedURL: %v", err)
	}
	u, _ := url.Parse(link.URL)
	token := u.Query().Get("token")

	target, err := svc.Resolve(ctx, token)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if target != "https://files.example.com/"+doc.Path {
		t.Fatalf("target = %s", target)
	}

	svc.now = func() time.Time { return fixedNow.Add(time.Hour + time.Second) }
	if _, err := svc.Resolve(ctx, token); !errors.Is(err, apperror.ErrUnauthorized) {
		t.Fatalf("expired link err = %v, want ErrUnauthorized", err)
	}

	if _, err := svc.Resolve(ctx, "garbage"); !errors.Is(err, apperror.ErrUnauthorized) {
		t.Fatalf("garbage err = %v, want ErrUnauthorized", err)
	}
}

func TestCleanupOrphans(t *testing.T) {
	repo, store := newFakeDocumentRepo(), newFakeStorage()
	svc := newTestService(repo, store, fixedNow)
	ctx := context.Background()
	owner := entity.Actor{UserID: uuid.New()}

	kept, _ := svc.Upload(ctx, owner, pdfUpload(entity.DocumentCV, 10))
	orphan, _ := svc.Upload(ctx, owner, pdfUpload(entity.DocumentRecommendation, 10))
	repo.referenced[kept.Path] = true
	for _, d := range repo.docs {
		d.CreatedAt = fixedNow.Add(-48 * time.Hour)
	}

	removed, err := svc.CleanupOrphans(ctx, 24*time.Hour)
	if err != nil {
		t.Fatalf("CleanupOrphans: %v", err)
	}
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
	if _, err := repo.FindByPath(ctx, orphan.Path); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatal("orphan record still present")
	}
	if _, err := repo.FindByPath(ctx, kept.Path); err != nil {
		t.Fatal("referenced document removed")
	}
}
