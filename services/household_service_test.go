package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/snakr/snakr-api/models"
)

type householdFixture struct {
	service       HouseholdService
	householdRepo *fakeHouseholdRepo
	memberRepo    *fakeMemberRepo
}

func newHouseholdFixture() *householdFixture {
	householdRepo := newFakeHouseholdRepo()
	memberRepo := newFakeMemberRepo()

	service := NewHouseholdService(
		householdRepo,
		memberRepo,
		NewAccessService(memberRepo),
		testLogger(),
	)

	return &householdFixture{
		service:       service,
		householdRepo: householdRepo,
		memberRepo:    memberRepo,
	}
}

func TestCreateHousehold_CreatorBecomesAdmin(t *testing.T) {
	f := newHouseholdFixture()
	ctx := context.Background()

	household, err := f.service.CreateHousehold(ctx, "  Our Flat  ", "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if household.Name != "Our Flat" {
		t.Errorf("Name = %q, want trimmed %q", household.Name, "Our Flat")
	}

	member, err := f.memberRepo.Get(ctx, household.ID, "user-1")
	if err != nil {
		t.Fatalf("creator membership missing: %v", err)
	}
	if member.Role != models.RoleAdmin {
		t.Errorf("creator role = %q, want admin", member.Role)
	}
}

func TestCreateHousehold_NameValidation(t *testing.T) {
	f := newHouseholdFixture()
	ctx := context.Background()

	if _, err := f.service.CreateHousehold(ctx, "   ", "user-1"); !errors.Is(err, ErrNameRequired) {
		t.Errorf("blank name: error = %v, want ErrNameRequired", err)
	}

	long := strings.Repeat("x", 256)
	if _, err := f.service.CreateHousehold(ctx, long, "user-1"); !errors.Is(err, ErrNameTooLong) {
		t.Errorf("long name: error = %v, want ErrNameTooLong", err)
	}
}

func TestCreateHousehold_RollsBackOnMemberFailure(t *testing.T) {
	f := newHouseholdFixture()
	f.memberRepo.createErr = errors.New("insert failed")

	_, err := f.service.CreateHousehold(context.Background(), "Doomed", "user-1")
	if err == nil {
		t.Fatal("expected error when admin membership insert fails")
	}

	// Домохозяйство без администратора не должно пережить сбой.
	if len(f.householdRepo.deleteCalls) != 1 {
		t.Fatalf("delete calls = %d, want 1 (compensating delete)", len(f.householdRepo.deleteCalls))
	}
	if len(f.householdRepo.households) != 0 {
		t.Errorf("households left = %d, want 0", len(f.householdRepo.households))
	}
}

func TestGetHouseholdByID_MembersAndCounts(t *testing.T) {
	f := newHouseholdFixture()
	f.householdRepo.add("hh-1", "Home")
	f.memberRepo.add("hh-1", "admin-1", models.RoleAdmin)
	f.memberRepo.add("hh-1", "member-1", models.RoleMember)

	household, err := f.service.GetHouseholdByID(context.Background(), "hh-1", "member-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if household.MemberCount != 2 {
		t.Errorf("MemberCount = %d, want 2", household.MemberCount)
	}
	if household.AdminCount != 1 {
		t.Errorf("AdminCount = %d, want 1", household.AdminCount)
	}
}

func TestGetHouseholdByID_NonMemberForbidden(t *testing.T) {
	f := newHouseholdFixture()
	f.householdRepo.add("hh-1", "Home")
	f.memberRepo.add("hh-1", "admin-1", models.RoleAdmin)

	_, err := f.service.GetHouseholdByID(context.Background(), "hh-1", "stranger-1")
	if !errors.Is(err, ErrNotHouseholdMember) {
		t.Fatalf("error = %v, want ErrNotHouseholdMember", err)
	}
}

func TestUpdateHousehold_AdminOnly(t *testing.T) {
	f := newHouseholdFixture()
	f.householdRepo.add("hh-1", "Home")
	f.memberRepo.add("hh-1", "admin-1", models.RoleAdmin)
	f.memberRepo.add("hh-1", "member-1", models.RoleMember)
	ctx := context.Background()

	if _, err := f.service.UpdateHousehold(ctx, "hh-1", "New Name", "member-1"); !errors.Is(err, ErrAdminRequired) {
		t.Fatalf("member update: error = %v, want ErrAdminRequired", err)
	}

	household, err := f.service.UpdateHousehold(ctx, "hh-1", "New Name", "admin-1")
	if err != nil {
		t.Fatalf("admin update failed: %v", err)
	}
	if household.Name != "New Name" {
		t.Errorf("Name = %q, want %q", household.Name, "New Name")
	}
}

func TestDeleteHousehold_AdminOnly(t *testing.T) {
	f := newHouseholdFixture()
	f.householdRepo.add("hh-1", "Home")
	f.memberRepo.add("hh-1", "admin-1", models.RoleAdmin)
	f.memberRepo.add("hh-1", "member-1", models.RoleMember)
	ctx := context.Background()

	if err := f.service.DeleteHousehold(ctx, "hh-1", "member-1"); !errors.Is(err, ErrAdminRequired) {
		t.Fatalf("member delete: error = %v, want ErrAdminRequired", err)
	}

	if err := f.service.DeleteHousehold(ctx, "hh-1", "admin-1"); err != nil {
		t.Fatalf("admin delete failed: %v", err)
	}
	if len(f.householdRepo.households) != 0 {
		t.Errorf("households left = %d, want 0", len(f.householdRepo.households))
	}
}

func TestUpdateMemberRole_LastAdminProtected(t *testing.T) {
	f := newHouseholdFixture()
	f.householdRepo.add("hh-1", "Home")
	f.memberRepo.add("hh-1", "admin-1", models.RoleAdmin)
	f.memberRepo.add("hh-1", "member-1", models.RoleMember)
	ctx := context.Background()

	err := f.service.UpdateMemberRole(ctx, "hh-1", "admin-1", "admin-1", models.RoleMember)
	if !errors.Is(err, ErrLastAdmin) {
		t.Fatalf("error = %v, want ErrLastAdmin", err)
	}

	// С двумя администраторами понижение проходит.
	if err := f.service.UpdateMemberRole(ctx, "hh-1", "admin-1", "member-1", models.RoleAdmin); err != nil {
		t.Fatalf("promotion failed: %v", err)
	}
	if err := f.service.UpdateMemberRole(ctx, "hh-1", "admin-1", "admin-1", models.RoleMember); err != nil {
		t.Fatalf("demotion with second admin failed: %v", err)
	}
}

func TestRemoveMember_LastAdminProtected(t *testing.T) {
	f := newHouseholdFixture()
	f.householdRepo.add("hh-1", "Home")
	f.memberRepo.add("hh-1", "admin-1", models.RoleAdmin)
	f.memberRepo.add("hh-1", "member-1", models.RoleMember)
	ctx := context.Background()

	if err := f.service.RemoveMember(ctx, "hh-1", "admin-1", "admin-1"); !errors.Is(err, ErrLastAdmin) {
		t.Fatalf("error = %v, want ErrLastAdmin", err)
	}

	if err := f.service.RemoveMember(ctx, "hh-1", "admin-1", "member-1"); err != nil {
		t.Fatalf("removing a regular member failed: %v", err)
	}
}
