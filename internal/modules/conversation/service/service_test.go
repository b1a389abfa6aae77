package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"

	"anoa.com/scholarhub/internal/entity"
	"anoa.com/scholarhub/pkg/apperror"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type fakeConversationRepo struct {
	mu         sync.Mutex
	convs      map[uuid.UUID]*entity.Conversation
	members    map[uuid.UUID]map[uuid.UUID]bool
	roles      map[uuid.UUID]string
	addErr     error
	deleted    []uuid.UUID
	createCall int
}

func newFakeConversationRepo(roles map[uuid.UUID]string) *fakeConversationRepo {
	return &fakeConversationRepo{
		convs:   map[uuid.UUID]*entity.Conversation{},
		members: map[uuid.UUID]map[uuid.UUID]bool{},
		roles:   roles,
	}
}

func (r *fakeConversationRepo) Create(_ context.Context, conv *entity.Conversation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.createCall++
	for _, c := range r.convs {
		if conv.DirectKey != nil && c.DirectKey != nil && *c.DirectKey == *conv.DirectKey {
			return gorm.ErrDuplicatedKey
		}
		if conv.Type == entity.ConversationGroup && c.Type == entity.ConversationGroup && *c.CohortName == *conv.CohortName {
			return gorm.ErrDuplicatedKey
		}
	}
	conv.ID = uuid.New()
	r.convs[conv.ID] = conv
	r.members[conv.ID] = map[uuid.UUID]bool{}
	return nil
}

func (r *fakeConversationRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.convs, id)
	delete(r.members, id)
	r.deleted = append(r.deleted, id)
	return nil
}

func (r *fakeConversationRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.convs[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *c
	cp.Members = nil
	for uid := range r.members[id] {
		cp.Members = append(cp.Members, entity.ConversationMember{ConversationID: id, UserID: uid})
	}
	return &cp, nil
}

func (r *fakeConversationRepo) FindByDirectKey(_ context.Context, key string) (*entity.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.convs {
		if c.DirectKey != nil && *c.DirectKey == key {
			return c, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeConversationRepo) FindDirectWithDirector(_ context.Context, userID uuid.UUID) (*entity.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, c := range r.convs {
		if c.Type != entity.ConversationDirect || !r.members[id][userID] {
			continue
		}
		for other := range r.members[id] {
			if other != userID && r.roles[other] == entity.RoleDirector {
				return c, nil
			}
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeConversationRepo) FindGroupByCohort(_ context.Context, cohort string) (*entity.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.convs {
		if c.Type == entity.ConversationGroup && *c.CohortName == cohort {
			return c, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeConversationRepo) ListForUser(ctx context.Context, userID uuid.UUID) ([]entity.Conversation, error) {
	r.mu.Lock()
	var ids []uuid.UUID
	for id, m := range r.members {
		if m[userID] {
			ids = append(ids, id)
		}
	}
	r.mu.Unlock()

	var out []entity.Conversation
	for _, id := range ids {
		c, _ := r.FindByID(ctx, id)
		for i := range c.Members {
			c.Members[i].Profile = &entity.Profile{UserID: c.Members[i].UserID, Role: r.roles[c.Members[i].UserID]}
		}
		out = append(out, *c)
	}
	return out, nil
}

func (r *fakeConversationRepo) LastMessages(context.Context, []uuid.UUID) (map[uuid.UUID]entity.Message, error) {
	return map[uuid.UUID]entity.Message{}, nil
}

func (r *fakeConversationRepo) AddMembers(_ context.Context, conversationID uuid.UUID, userIDs []uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.addErr != nil {
		return r.addErr
	}
	for _, id := range userIDs {
		r.members[conversationID][id] = true
	}
	return nil
}

func (r *fakeConversationRepo) IsMember(_ context.Context, conversationID, userID uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.members[conversationID][userID], nil
}

func (r *fakeConversationRepo) MemberIDs(_ context.Context, conversationID uuid.UUID) ([]uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []uuid.UUID
	for id := range r.members[conversationID] {
		ids = append(ids, id)
	}
	return ids, nil
}

type fakeDirectory struct {
	profiles []entity.Profile
}

func (d *fakeDirectory) FindFirstDirector(context.Context) (*entity.Profile, error) {
	for i := range d.profiles {
		if d.profiles[i].Role == entity.RoleDirector {
			return &d.profiles[i], nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (d *fakeDirectory) FindByClassName(_ context.Context, className string, roles []string) ([]entity.Profile, error) {
	var out []entity.Profile
	for _, p := range d.profiles {
		if p.ClassName == nil || *p.ClassName != className {
			continue
		}
		for _, role := range roles {
			if p.Role == role {
				out = append(out, p)
			}
		}
	}
	return out, nil
}

func profile(role, cohort string) entity.Profile {
	p := entity.Profile{UserID: uuid.New(), Role: role}
	if cohort != "" {
		p.ClassName = &cohort
	}
	return p
}

func rolesOf(profiles ...entity.Profile) map[uuid.UUID]string {
	roles := map[uuid.UUID]string{}
	for _, p := range profiles {
		roles[p.UserID] = p.Role
	}
	return roles
}

func TestStartDirectIsIdempotent(t *testing.T) {
	dir := profile(entity.RoleDirector, "")
	applicant := profile(entity.RoleApplicant, "")
	repo := newFakeConversationRepo(rolesOf(dir, applicant))
	svc := NewConversationService(repo, &fakeDirectory{profiles: []entity.Profile{dir, applicant}})
	actor := entity.Actor{UserID: applicant.UserID, Role: entity.RoleApplicant}

	first, err := svc.StartDirect(context.Background(), actor)
	if err != nil {
		t.Fatalf("StartDirect: %v", err)
	}
	second, err := svc.StartDirect(context.Background(), actor)
	if err != nil {
		t.Fatalf("second StartDirect: %v", err)
	}

	if first.ID != second.ID {
		t.Fatalf("got two conversations %s and %s", first.ID, second.ID)
	}
	if repo.createCall != 1 {
		t.Fatalf("create calls = %d, want 1", repo.createCall)
	}
	if !repo.members[first.ID][dir.UserID] || !repo.members[first.ID][applicant.UserID] {
		t.Fatal("both participants must be members")
	}
	if *first.DirectKey != DirectKey(dir.UserID, applicant.UserID) {
		t.Fatalf("direct key = %s", *first.DirectKey)
	}
}

func TestStartDirectRejectsDirector(t *testing.T) {
	dir := profile(entity.RoleDirector, "")
	svc := NewConversationService(newFakeConversationRepo(rolesOf(dir)), &fakeDirectory{profiles: []entity.Profile{dir}})

	_, err := svc.StartDirect(context.Background(), entity.Actor{UserID: dir.UserID, Role: entity.RoleDirector})
	if !errors.Is(err, apperror.ErrForbidden) {
		t.Fatalf("err = %v, want ErrForbidden", err)
	}
}

func TestStartDirectNoDirector(t *testing.T) {
	applicant := profile(entity.RoleApplicant, "")
	svc := NewConversationService(newFakeConversationRepo(rolesOf(applicant)), &fakeDirectory{})

	_, err := svc.StartDirect(context.Background(), entity.Actor{UserID: applicant.UserID, Role: entity.RoleApplicant})
	if !errors.Is(err, apperror.ErrPrecondition) {
		t.Fatalf("err = %v, want ErrPrecondition", err)
	}
}

func TestStartDirectRemovesMemberlessConversation(t *testing.T) {
	dir := profile(entity.RoleDirector, "")
	applicant := profile(entity.RoleApplicant, "")
	repo := newFakeConversationRepo(rolesOf(dir, applicant))
	repo.addErr = errors.New("insert failed")
	svc := NewConversationService(repo, &fakeDirectory{profiles: []entity.Profile{dir}})

	_, err := svc.StartDirect(context.Background(), entity.Actor{UserID: applicant.UserID, Role: entity.RoleApplicant})
	if !errors.Is(err, apperror.ErrPartialFailure) {
		t.Fatalf("err = %v, want partial failure", err)
	}
	if len(repo.deleted) != 1 || len(repo.convs) != 0 {
		t.Fatalf("deleted=%v remaining=%d, want the conversation removed", repo.deleted, len(repo.convs))
	}
}

func TestEnsureCohortGroupRequiresCohort(t *testing.T) {
	svc := NewConversationService(newFakeConversationRepo(nil), &fakeDirectory{})

	_, err := svc.EnsureCohortGroup(context.Background(), entity.Actor{UserID: uuid.New(), Role: entity.RoleScholar})
	if !errors.Is(err, apperror.ErrPrecondition) {
		t.Fatalf("err = %v, want ErrPrecondition", err)
	}
}

func TestEnsureCohortGroupReconcilesMembers(t *testing.T) {
	s1 := profile(entity.RoleScholar, "Cohort 2026")
	s2 := profile(entity.RoleScholar, "Cohort 2026")
	dir := profile(entity.RoleDirector, "Cohort 2026")
	other := profile(entity.RoleScholar, "Cohort 2025")
	applicant := profile(entity.RoleApplicant, "Cohort 2026")

	directory := &fakeDirectory{profiles: []entity.Profile{s1, dir, other, applicant}}
	repo := newFakeConversationRepo(rolesOf(s1, s2, dir, other, applicant))
	svc := NewConversationService(repo, directory)
	ctx := context.Background()

	conv, err := svc.EnsureCohortGroup(ctx, entity.Actor{UserID: s1.UserID, Role: entity.RoleScholar, ClassName: "Cohort 2026"})
	if err != nil {
		t.Fatalf("EnsureCohortGroup: %v", err)
	}
	if conv.Name == nil || *conv.Name != "Cohort 2026 Chat" {
		t.Fatalf("name = %v", conv.Name)
	}

	got := memberSet(conv)
	want := []uuid.UUID{s1.UserID, dir.UserID}
	if !sameIDs(got, want) {
		t.Fatalf("members = %v, want %v", got, want)
	}

	// a scholar promoted later is picked up on the next call
	directory.profiles = append(directory.profiles, s2)
	again, err := svc.EnsureCohortGroup(ctx, entity.Actor{UserID: dir.UserID, Role: entity.RoleDirector, ClassName: "Cohort 2026"})
	if err != nil {
		t.Fatalf("second EnsureCohortGroup: %v", err)
	}
	if again.ID != conv.ID {
		t.Fatal("cohort must resolve to one group")
	}
	if !sameIDs(memberSet(again), []uuid.UUID{s1.UserID, s2.UserID, dir.UserID}) {
		t.Fatalf("members after reconcile = %v", memberSet(again))
	}
	if repo.createCall != 1 {
		t.Fatalf("create calls = %d, want 1", repo.createCall)
	}
}

func TestListMineSetsPartner(t *testing.T) {
	dir := profile(entity.RoleDirector, "")
	applicant := profile(entity.RoleApplicant, "")
	repo := newFakeConversationRepo(rolesOf(dir, applicant))
	svc := NewConversationService(repo, &fakeDirectory{profiles: []entity.Profile{dir}})
	actor := entity.Actor{UserID: applicant.UserID, Role: entity.RoleApplicant}

	if _, err := svc.StartDirect(context.Background(), actor); err != nil {
		t.Fatalf("StartDirect: %v", err)
	}

	list, err := svc.ListMine(context.Background(), actor)
	if err != nil {
		t.Fatalf("ListMine: %v", err)
	}
	if len(list) != 1 || list[0].Partner == nil || list[0].Partner.UserID != dir.UserID {
		t.Fatalf("unexpected list: %+v", list)
	}
}

func TestDirectKeyIsOrderIndependent(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	if DirectKey(a, b) != DirectKey(b, a) {
		t.Fatal("direct key depends on argument order")
	}
}

func memberSet(c *entity.Conversation) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(c.Members))
	for _, m := range c.Members {
		ids = append(ids, m.UserID)
	}
	return ids
}

func sameIDs(a, b []uuid.UUID) bool {
	if len(a) != len(b) {
		return false
	}
	as := make([]string, len(a))
	bs := make([]string, len(b))
	for i := range a {
		as[i] = a[i].String()
		bs[i] = b[i].String()
	}
	sort.Strings(as)
	sort.Strings(bs)
	for i := range as {
		if as[i] != bs[i] {
			return false
		}
	}
	return true
}
