package authz

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/deskly/backend/internal/models"
)

type stubRoomAccess struct {
	grants map[uuid.UUID]models.RoomRole // keyed by user ID
}

func (s *stubRoomAccess) RoomRole(_ context.Context, _, userID uuid.UUID) (models.RoomRole, bool, error) {
	role, ok := s.grants[userID]
	return role, ok, nil
}

func userWithRole(role models.Role) *models.User {
	return &models.User{ID: uuid.New(), Role: role, IsActive: true}
}

func TestIsGlobalAdmin(t *testing.T) {
	cases := []struct {
		role models.Role
		want bool
	}{
		{models.RoleMember, false},
		{models.RoleAdmin, true},
		{models.RoleSuperAdmin, true},
	}
	for _, tc := range cases {
		if got := IsGlobalAdmin(userWithRole(tc.role)); got != tc.want {
			t.Errorf("IsGlobalAdmin(%s) = %v, want %v", tc.role, got, tc.want)
		}
	}
	if IsGlobalAdmin(nil) {
		t.Error("IsGlobalAdmin(nil) = true, want false")
	}
}

func TestCanAccessOffice(t *testing.T) {
	shared := &models.Office{ID: uuid.New(), IsShared: true}
	private := &models.Office{ID: uuid.New(), IsShared: false}

	cases := []struct {
		name   string
		user   *models.User
		office *models.Office
		want   bool
	}{
		{"member shared", userWithRole(models.RoleMember), shared, true},
		{"member private", userWithRole(models.RoleMember), private, false},
		{"admin private", userWithRole(models.RoleAdmin), private, true},
		{"super admin private", userWithRole(models.RoleSuperAdmin), private, true},
		{"nil office", userWithRole(models.RoleAdmin), nil, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := CanAccessOffice(tc.user, tc.office); got != tc.want {
				t.Errorf("CanAccessOffice = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestRoomPredicates(t *testing.T) {
	roomID := uuid.New()
	roomAdmin := userWithRole(models.RoleMember)
	roomMember := userWithRole(models.RoleMember)
	// A global admin's platform role does not imply room access.
	globalAdmin := userWithRole(models.RoleAdmin)
	superAdmin := userWithRole(models.RoleSuperAdmin)
	stranger := userWithRole(models.RoleMember)

	az := New(&stubRoomAccess{grants: map[uuid.UUID]models.RoomRole{
		roomAdmin.ID:  models.RoomRoleAdmin,
		roomMember.ID: models.RoomRoleMember,
	}})
	ctx := context.Background()

	cases := []struct {
		name             string
		user             *models.User
		wantAdmin, wantAccess bool
	}{
		{"room admin", roomAdmin, true, true},
		{"room member", roomMember, false, true},
		{"global admin without grant", globalAdmin, false, false},
		{"super admin short-circuits", superAdmin, true, true},
		{"stranger", stranger, false, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			gotAdmin, err := az.IsRoomAdmin(ctx, tc.user, roomID)
			if err != nil {
				t.Fatalf("IsRoomAdmin: %v", err)
			}
			if gotAdmin != tc.wantAdmin {
				t.Errorf("IsRoomAdmin = %v, want %v", gotAdmin, tc.wantAdmin)
			}
			gotAccess, err := az.HasRoomAccess(ctx, tc.user, roomID)
			if err != nil {
				t.Fatalf("HasRoomAccess: %v", err)
			}
			if gotAccess != tc.wantAccess {
				t.Errorf("HasRoomAccess = %v, want %v", gotAccess, tc.wantAccess)
			}
		})
	}
}
