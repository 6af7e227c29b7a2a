package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/noah-isme/medlink-api/internal/models"
)

func TestAdminRepositoryBlockLifecycle(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAdminRepository(db)
	ctx := context.Background()

	user := seedUser(t, db, models.RolePatient, "patient")

	require.NoError(t, repo.Block(ctx, &models.BlockedUser{UserID: user.ID, Reason: "spam", BlockedAt: time.Now()}))
	err := repo.Block(ctx, &models.BlockedUser{UserID: user.ID, Reason: "again", BlockedAt: time.Now()})
	require.ErrorIs(t, err, gorm.ErrDuplicatedKey)

	require.NoError(t, repo.Unblock(ctx, user.ID))
	require.ErrorIs(t, repo.Unblock(ctx, user.ID), gorm.ErrRecordNotFound)
}

func TestAdminRepositoryUpdatePrivileges(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAdminRepository(db)
	ctx := context.Background()

	admin := seedUser(t, db, models.RoleAdmin, "helper_admin")
	require.NoError(t, repo.UpdatePrivileges(ctx, &models.AdminProfile{UserID: admin.ID, AdminRole: models.AdminRoleModerator, IsSuperadmin: true}))

	loaded, err := NewUserRepository(db).GetByID(ctx, admin.ID)
	require.NoError(t, err)
	require.Equal(t, models.AdminRoleModerator, loaded.Admin.AdminRole)
	require.True(t, loaded.Admin.IsSuperadmin)

	err = repo.UpdatePrivileges(ctx, &models.AdminProfile{UserID: 999, AdminRole: models.AdminRoleHelper})
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestAdminRepositoryStatistics(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAdminRepository(db)
	ctx := context.Background()

	specialist := seedUser(t, db, models.RoleSpecialist, "special")
	patient := seedUser(t, db, models.RolePatient, "patient")
	seedUser(t, db, models.RolePatient, "patient_two")
	order := seedOrder(t, db, specialist, "Consultation")
	seedOrder(t, db, specialist, "Surgery")
	require.NoError(t, NewResponseRepository(db).Create(ctx, &models.Response{OrderID: order.ID, ResponderID: patient.ID, ResponderRole: models.RolePatient, Text: "take me please"}))
	require.NoError(t, repo.Block(ctx, &models.BlockedUser{UserID: patient.ID, Reason: "spam", BlockedAt: time.Now()}))

	stats, err := repo.Statistics(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(2), stats.UsersByRole["patient"])
	require.Equal(t, int64(1), stats.UsersByRole["specialist"])
	require.Equal(t, int64(2), stats.OrdersByStatus["active"])
	require.Equal(t, int64(1), stats.ResponsesByStatus["proposed"])
	require.Equal(t, int64(1), stats.BlockedUsers)
	require.Zero(t, stats.Clinics)
	require.Zero(t, stats.Reviews)
}
