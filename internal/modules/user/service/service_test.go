package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"anoa.com/scholarhub/internal/entity"
	"anoa.com/scholarhub/internal/modules/user/dto"
	"anoa.com/scholarhub/pkg/apperror"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]*entity.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[uuid.UUID]*entity.User{}}
}

func (r *fakeUserRepo) Create(_ context.Context, user *entity.User, profile *entity.Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == user.Email {
			return gorm.ErrDuplicatedKey
		}
	}
	user.ID = uuid.New()
	profile.UserID = user.ID
	user.Profile = profile
	r.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return u, nil
}

func (r *fakeUserRepo) FindByEmail(_ context.Context, email string) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeUserRepo) FindProfile(ctx context.Context, userID uuid.UUID) (*entity.Profile, error) {
	u, err := r.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return u.Profile, nil
}

func (r *fakeUserRepo) FindFirstDirector(context.Context) (*entity.Profile, error) {
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeUserRepo) FindByClassName(context.Context, string, []string) ([]entity.Profile, error) {
	return nil, nil
}

func (r *fakeUserRepo) PromoteToScholar(context.Context, uuid.UUID, string) error {
	return nil
}

func newTestAuthService(repo *fakeUserRepo) AuthService {
	return NewAuthService(repo, nil, AuthConfig{
		Secret:       "test-secret",
		TokenTTL:     time.Hour,
		DirectorCode: "open-sesame",
	})
}

func TestRegisterDefaultsToApplicant(t *testing.T) {
	svc := newTestAuthService(newFakeUserRepo())

	res, err := svc.Register(context.Background(), dto.RegisterInput{
		Email:    "  Ada@Example.com ",
		Password: "correct-horse",
		FullName: "Ada",
	})
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if res.Profile.Role != entity.RoleApplicant {
		t.Fatalf("role = %q, want applicant", res.Profile.Role)
	}
	if res.User.Email != "ada@example.com" {
		t.Fatalf("email = %q, want normalized", res.User.Email)
	}
	if res.User.PasswordHash == "correct-horse" {
		t.Fatal("password stored in clear text")
	}

	claims := &jwt.RegisteredClaims{}
	_, err = jwt.ParseWithClaims(res.AccessToken, claims, func(*jwt.Token) (interface{}, error) {
		return []byte("test-secret"), nil
	})
	if err != nil {
		t.Fatalf("token does not verify: %v", err)
	}
	if claims.Subject != res.User.ID.String() {
		t.Fatalf("subject = %q, want %q", claims.Subject, res.User.ID)
	}
}

func TestRegisterDirectorCode(t *testing.T) {
	svc := newTestAuthService(newFakeUserRepo())

	res, err := svc.Register(context.Background(), dto.RegisterInput{
		Email: "dir@example.com", Password: "password1", FullName: "Dir", DirectorCode: "open-sesame",
	})
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if res.Profile.Role != entity.RoleDirector {
		t.Fatalf("role = %q, want director", res.Profile.Role)
	}

	_, err = svc.Register(context.Background(), dto.RegisterInput{
		Email: "other@example.com", Password: "password1", FullName: "Other", DirectorCode: "guess",
	})
	if !errors.Is(err, apperror.ErrForbidden) {
		t.Fatalf("wrong code err = %v, want ErrForbidden", err)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc := newTestAuthService(newFakeUserRepo())
	input := dto.RegisterInput{Email: "a@example.com", Password: "password1", FullName: "A"}

	if _, err := svc.Register(context.Background(), input); err != nil {
		t.Fatalf("first Register: %v", err)
	}
	if _, err := svc.Register(context.Background(), input); !errors.Is(err, apperror.ErrConflict) {
		t.Fatalf("second Register err = %v, want ErrConflict", err)
	}
}

func TestLogin(t *testing.T) {
	svc := newTestAuthService(newFakeUserRepo())
	ctx := context.Background()

	if _, err := svc.Register(ctx, dto.RegisterInput{Email: "a@example.com", Password: "password1", FullName: "A"}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	res, err := svc.Login(ctx, dto.LoginInput{Email: "A@example.com", Password: "password1"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if res.AccessToken == "" || res.TokenType != "Bearer" {
		t.Fatalf("unexpected response: %+v", res)
	}

	if _, err := svc.Login(ctx, dto.LoginInput{Email: "a@example.com", Password: "wrong-pass"}); !errors.Is(err, apperror.ErrUnauthorized) {
		t.Fatalf("bad password err = %v, want ErrUnauthorized", err)
	}
	if _, err := svc.Login(ctx, dto.LoginInput{Email: "nobody@example.com", Password: "password1"}); !errors.Is(err, apperror.ErrUnauthorized) {
		t.Fatalf("unknown email err = %v, want ErrUnauthorized", err)
	}
}

func TestVerifyDirectorCode(t *testing.T) {
	svc := newTestAuthService(newFakeUserRepo())
	if !svc.VerifyDirectorCode("open-sesame") {
		t.Fatal("expected configured code to verify")
	}
	if svc.VerifyDirectorCode("open-sesame!") {
		t.Fatal("expected near miss to fail")
	}

	unset := NewAuthService(newFakeUserRepo(), nil, AuthConfig{Secret: "x"})
	if unset.VerifyDirectorCode("") {
		t.Fatal("empty code must not verify when no code is configured")
	}
}

func TestMeUnknownUser(t *testing.T) {
	svc := newTestAuthService(newFakeUserRepo())
	_, err := svc.Me(context.Background(), entity.Actor{UserID: uuid.New()})
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}
