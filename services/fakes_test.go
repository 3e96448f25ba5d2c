package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/snakr/snakr-api/models"
	"github.com/snakr/snakr-api/repositories"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func memberKey(householdID, userID string) string {
	return householdID + "/" + userID
}

type fakeMemberRepo struct {
	mu      sync.Mutex
	members map[string]*models.Member
	nextID  int

	createErr error // если задана, Create возвращает её
	getErr    error // если задана, Get возвращает её вместо поиска
}

func newFakeMemberRepo() *fakeMemberRepo {
	return &fakeMemberRepo{members: map[string]*models.Member{}}
}

func (f *fakeMemberRepo) add(householdID, userID string, role models.Role) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.members[memberKey(householdID, userID)] = &models.Member{
		ID:          fmt.Sprintf("m-%d", f.nextID),
		HouseholdID: householdID,
		UserID:      userID,
		Role:        role,
		JoinedAt:    time.Now(),
	}
}

func (f *fakeMemberRepo) Create(ctx context.Context, member *models.Member) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	key := memberKey(member.HouseholdID, member.UserID)
	if _, exists := f.members[key]; exists {
		return repositories.ErrMemberConflict
	}
	f.nextID++
	member.ID = fmt.Sprintf("m-%d", f.nextID)
	member.JoinedAt = time.Now()
	stored := *member
	f.members[key] = &stored
	return nil
}

func (f *fakeMemberRepo) Get(ctx context.Context, householdID, userID string) (*models.Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	member, ok := f.members[memberKey(householdID, userID)]
	if !ok {
		return nil, repositories.ErrMemberNotFound
	}
	copied := *member
	return &copied, nil
}

func (f *fakeMemberRepo) ListByHouseholdID(ctx context.Context, householdID string) ([]models.Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Member
	for _, m := range f.members {
		if m.HouseholdID == householdID {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (f *fakeMemberRepo) UpdateRole(ctx context.Context, householdID, userID string, role models.Role) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	member, ok := f.members[memberKey(householdID, userID)]
	if !ok {
		return repositories.ErrMemberNotFound
	}
	member.Role = role
	return nil
}

func (f *fakeMemberRepo) Delete(ctx context.Context, householdID, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := memberKey(householdID, userID)
	if _, ok := f.members[key]; !ok {
		return repositories.ErrMemberNotFound
	}
	delete(f.members, key)
	return nil
}

func (f *fakeMemberRepo) CountAdmins(ctx context.Context, householdID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, m := range f.members {
		if m.HouseholdID == householdID && m.Role == models.RoleAdmin {
			count++
		}
	}
	return count, nil
}

type fakeHouseholdRepo struct {
	mu         sync.Mutex
	households map[string]*models.Household
	nextID     int

	deleteCalls []string
}

func newFakeHouseholdRepo() *fakeHouseholdRepo {
	return &fakeHouseholdRepo{households: map[string]*models.Household{}}
}

func (f *fakeHouseholdRepo) add(id, name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.households[id] = &models.Household{ID: id, Name: name, CreatedAt: time.Now()}
}

func (f *fakeHouseholdRepo) Create(ctx context.Context, household *models.Household) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	household.ID = fmt.Sprintf("hh-%d", f.nextID)
	household.CreatedAt = time.Now()
	household.UpdatedAt = household.CreatedAt
	stored := *household
	f.households[household.ID] = &stored
	return nil
}

func (f *fakeHouseholdRepo) GetByID(ctx context.Context, id string) (*models.Household, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	household, ok := f.households[id]
	if !ok {
		return nil, repositories.ErrHouseholdNotFound
	}
	copied := *household
	return &copied, nil
}

func (f *fakeHouseholdRepo) ListByUserID(ctx context.Context, userID string) ([]*models.Household, error) {
	return nil, nil
}

func (f *fakeHouseholdRepo) UpdateName(ctx context.Context, id, name string) (*models.Household, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	household, ok := f.households[id]
	if !ok {
		return nil, repositories.ErrHouseholdNotFound
	}
	household.Name = name
	household.UpdatedAt = time.Now()
	copied := *household
	return &copied, nil
}

func (f *fakeHouseholdRepo) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteCalls = append(f.deleteCalls, id)
	if _, ok := f.households[id]; !ok {
		return repositories.ErrHouseholdNotFound
	}
	delete(f.households, id)
	return nil
}

type fakeInvitationRepo struct {
	mu          sync.Mutex
	invitations map[string]*models.Invitation
	nextID      int

	createErrs      []error // очередь ошибок для последовательных Create
	updateStatusErr error
}

func newFakeInvitationRepo() *fakeInvitationRepo {
	return &fakeInvitationRepo{invitations: map[string]*models.Invitation{}}
}

func (f *fakeInvitationRepo) add(inv *models.Invitation) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	if inv.ID == "" {
		inv.ID = fmt.Sprintf("inv-%d", f.nextID)
	}
	stored := *inv
	f.invitations[inv.ID] = &stored
}

func (f *fakeInvitationRepo) get(id string) *models.Invitation {
	f.mu.Lock()
	defer f.mu.Unlock()
	inv, ok := f.invitations[id]
	if !ok {
		return nil
	}
	copied := *inv
	return &copied
}

func (f *fakeInvitationRepo) Create(ctx context.Context, invitation *models.Invitation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.createErrs) > 0 {
		err := f.createErrs[0]
		f.createErrs = f.createErrs[1:]
		if err != nil {
			return err
		}
	}
	for _, existing := range f.invitations {
		if existing.Token == invitation.Token {
			return repositories.ErrInvitationTokenConflict
		}
		if existing.HouseholdID == invitation.HouseholdID &&
			existing.InviteeEmail == invitation.InviteeEmail &&
			existing.Status == models.InvitationPending {
			return repositories.ErrInvitationPendingConflict
		}
	}
	f.nextID++
	invitation.ID = fmt.Sprintf("inv-%d", f.nextID)
	invitation.CreatedAt = time.Now()
	invitation.UpdatedAt = invitation.CreatedAt
	stored := *invitation
	f.invitations[invitation.ID] = &stored
	return nil
}

func (f *fakeInvitationRepo) GetByToken(ctx context.Context, token string) (*models.Invitation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, inv := range f.invitations {
		if inv.Token == token {
			copied := *inv
			return &copied, nil
		}
	}
	return nil, repositories.ErrInvitationNotFound
}

func (f *fakeInvitationRepo) ListByHouseholdID(ctx context.Context, householdID string) ([]*models.Invitation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*models.Invitation, 0)
	for _, inv := range f.invitations {
		if inv.HouseholdID == householdID {
			copied := *inv
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (f *fakeInvitationRepo) GetPending(ctx context.Context, householdID, inviteeEmail string) (*models.Invitation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, inv := range f.invitations {
		if inv.HouseholdID == householdID && inv.InviteeEmail == inviteeEmail && inv.Status == models.InvitationPending {
			copied := *inv
			return &copied, nil
		}
	}
	return nil, repositories.ErrInvitationNotFound
}

func (f *fakeInvitationRepo) UpdateStatus(ctx context.Context, id string, status models.InvitationStatus, acceptedAt *time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateStatusErr != nil {
		return f.updateStatusErr
	}
	inv, ok := f.invitations[id]
	if !ok {
		return repositories.ErrInvitationNotFound
	}
	inv.Status = status
	inv.AcceptedAt = acceptedAt
	inv.UpdatedAt = time.Now()
	return nil
}

func (f *fakeInvitationRepo) ExpireOverdue(ctx context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	now := time.Now()
	for _, inv := range f.invitations {
		if inv.Status == models.InvitationPending && now.After(inv.ExpiresAt) {
			inv.Status = models.InvitationExpired
			n++
		}
	}
	return n, nil
}

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]*models.User // по ID

	err error // если задана, оба метода возвращают её
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[string]*models.User{}}
}

func (f *fakeUserRepo) add(id, email string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[id] = &models.User{ID: id, Email: email, CreatedAt: time.Now()}
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	user, ok := f.users[id]
	if !ok {
		return nil, repositories.ErrUserNotFound
	}
	copied := *user
	return &copied, nil
}

func (f *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	for _, user := range f.users {
		if user.Email == email {
			copied := *user
			return &copied, nil
		}
	}
	return nil, repositories.ErrUserNotFound
}

type fakeNotifier struct {
	mu    sync.Mutex
	sent  []string // адреса получателей
	links []string
	err   error
}

func (f *fakeNotifier) SendInvitationEmail(email, householdName, inviteLink string, expiresAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, email)
	f.links = append(f.links, inviteLink)
	return nil
}
