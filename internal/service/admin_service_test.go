package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/medlink-api/internal/dto"
	"github.com/noah-isme/medlink-api/internal/events"
	"github.com/noah-isme/medlink-api/internal/models"
)

func TestAdminBlockAndUnblock(t *testing.T) {
	m := newMarketplace(t)
	ctx := context.Background()

	helper := m.seedAdmin(t, "helper_mod", models.AdminRoleHelper)
	moderator := m.seedAdmin(t, "moderator_mod", models.AdminRoleModerator)
	patient := m.register(t, models.RolePatient, "target_pat")

	_, err := m.admin.Block(ctx, helper, patient.ID, dto.BlockUserRequest{Reason: "spam messages"})
	require.ErrorIs(t, err, ErrModeratorRequired)

	_, err = m.admin.Block(ctx, moderator, moderator.ID, dto.BlockUserRequest{Reason: "spam messages"})
	require.ErrorIs(t, err, ErrSelfModeration)

	_, err = m.admin.Block(ctx, moderator, 9999, dto.BlockUserRequest{Reason: "spam messages"})
	require.ErrorIs(t, err, ErrUserNotFound)

	blocked, err := m.admin.Block(ctx, moderator, patient.ID, dto.BlockUserRequest{Reason: "<b>spam</b> messages"})
	require.NoError(t, err)
	require.True(t, blocked.IsBlocked)
	require.Equal(t, "spam messages", blocked.BlockReason)
	require.NotNil(t, blocked.BlockedAt)
	require.Contains(t, m.events.Types(), events.TypeUserBlocked)

	_, err = m.admin.Block(ctx, moderator, patient.ID, dto.BlockUserRequest{Reason: "again and again"})
	require.ErrorIs(t, err, ErrAlreadyBlocked)
	require.ErrorIs(t, err, ErrDuplicate)

	unblocked, err := m.admin.Unblock(ctx, moderator, patient.ID)
	require.NoError(t, err)
	require.False(t, unblocked.IsBlocked)

	_, err = m.admin.Unblock(ctx, moderator, patient.ID)
	require.ErrorIs(t, err, ErrNotBlocked)

	_, err = m.auth.Login(ctx, dto.LoginRequest{Nickname: "target_pat", Password: "s3cret-pass"})
	require.NoError(t, err)
}

func TestAdminNonAdminCallerDenied(t *testing.T) {
	m := newMarketplace(t)
	ctx := context.Background()

	patient := m.register(t, models.RolePatient, "plain_pat")
	other := m.register(t, models.RolePatient, "other_pat")

	_, err := m.admin.Block(ctx, patient, other.ID, dto.BlockUserRequest{Reason: "spam messages"})
	require.ErrorIs(t, err, ErrPermissionDenied)

	_, err = m.admin.Me(ctx, patient)
	require.ErrorIs(t, err, ErrPermissionDenied)

	_, err = m.admin.Statistics(ctx, patient)
	require.ErrorIs(t, err, ErrPermissionDenied)
}

func TestAdminDeleteUserNeedsAdministrator(t *testing.T) {
	m := newMarketplace(t)
	ctx := context.Background()

	moderator := m.seedAdmin(t, "mod_delete", models.AdminRoleModerator)
	administrator := m.seedAdmin(t, "admin_delete", models.AdminRoleAdministrator)
	specialist := m.register(t, models.RoleSpecialist, "spec_delete")

	err := m.admin.DeleteUser(ctx, moderator, specialist.ID)
	require.ErrorIs(t, err, ErrAdministratorRequired)

	err = m.admin.DeleteUser(ctx, administrator, administrator.ID)
	require.ErrorIs(t, err, ErrSelfModeration)

	require.NoError(t, m.admin.DeleteUser(ctx, administrator, specialist.ID))

	_, err = m.profiles.Public(ctx, specialist.ID)
	require.ErrorIs(t, err, ErrUserNotFound)
	require.ErrorIs(t, err, ErrNotFound)

	err = m.admin.DeleteUser(ctx, administrator, specialist.ID)
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestAdminUpdatePrivileges(t *testing.T) {
	m := newMarketplace(t)
	ctx := context.Background()

	helper := m.seedAdmin(t, "helper_priv", models.AdminRoleHelper)
	administrator := m.seedAdmin(t, "admin_priv", models.AdminRoleAdministrator)
	patient := m.register(t, models.RolePatient, "pat_priv_target")

	role := string(models.AdminRoleTechAdmin)
	_, err := m.admin.UpdatePrivileges(ctx, helper, administrator.ID, dto.AdminPrivilegesRequest{AdminRole: &role})
	require.ErrorIs(t, err, ErrPermissionDenied)

	_, err = m.admin.UpdatePrivileges(ctx, administrator, patient.ID, dto.AdminPrivilegesRequest{AdminRole: &role})
	require.ErrorIs(t, err, ErrNotAnAdmin)

	bogus := "emperor"
	_, err = m.admin.UpdatePrivileges(ctx, administrator, helper.ID, dto.AdminPrivilegesRequest{AdminRole: &bogus})
	require.ErrorIs(t, err, ErrValidation)

	profile, err := m.admin.UpdatePrivileges(ctx, administrator, helper.ID, dto.AdminPrivilegesRequest{
		AdminRole:    &role,
		IsSuperadmin: boolPtr(true),
	})
	require.NoError(t, err)
	require.Equal(t, "tech_admin", profile.Admin.AdminRole)
	require.True(t, profile.Admin.IsSuperadmin)

	me, err := m.admin.Me(ctx, helper)
	require.NoError(t, err)
	require.Equal(t, "tech_admin", me.Admin.AdminRole)
}

func TestAdminListUsersAndStatistics(t *testing.T) {
	m := newMarketplace(t)
	ctx := context.Background()

	moderator := m.seedAdmin(t, "mod_stats", models.AdminRoleModerator)
	patient := m.register(t, models.RolePatient, "pat_stats")
	m.register(t, models.RolePatient, "pat_stats_two")
	specialist := m.register(t, models.RoleSpecialist, "spec_stats")
	m.createOrder(t, specialist, nil)

	_, err := m.admin.Block(ctx, moderator, patient.ID, dto.BlockUserRequest{Reason: "fake identity"})
	require.NoError(t, err)

	list, err := m.admin.ListUsers(ctx, moderator, dto.AdminUserListRequest{Role: "patient", PageSize: 1})
	require.NoError(t, err)
	require.Len(t, list.Items, 1)
	require.Equal(t, int64(2), list.Pagination.TotalItems)
	require.Equal(t, 2, list.Pagination.TotalPages)

	_, err = m.admin.ListUsers(ctx, moderator, dto.AdminUserListRequest{Role: "robot"})
	require.ErrorIs(t, err, ErrValidation)

	stats, err := m.admin.Statistics(ctx, moderator)
	require.NoError(t, err)
	require.Equal(t, int64(4), stats.TotalUsers)
	require.Equal(t, int64(2), stats.UsersByRole["patient"])
	require.Equal(t, int64(1), stats.BlockedUsers)
	require.Equal(t, int64(1), stats.OrdersByStatus["active"])
	require.False(t, stats.GeneratedAt.IsZero())
}
