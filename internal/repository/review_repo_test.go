package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/noah-isme/medlink-api/internal/models"
)

func TestReviewRepositoryUniquePerOrderSenderTarget(t *testing.T) {
	db := setupTestDB(t)
	repo := NewReviewRepository(db)
	ctx := context.Background()

	patient := seedUser(t, db, models.RolePatient, "patient")
	specialist := seedUser(t, db, models.RoleSpecialist, "special")
	order := seedOrder(t, db, specialist, "Consultation")

	review := models.Review{SenderID: patient.ID, OrderID: order.ID, TargetID: specialist.ID, TargetType: models.ReviewTargetSpecialist, Text: "Very attentive doctor", Rate: 9}
	require.NoError(t, repo.Create(ctx, &review))

	exists, err := repo.Exists(ctx, order.ID, patient.ID, specialist.ID, models.ReviewTargetSpecialist)
	require.NoError(t, err)
	require.True(t, exists)

	again := review
	again.ID = 0
	require.ErrorIs(t, repo.Create(ctx, &again), gorm.ErrDuplicatedKey)

	clinicReview := review
	clinicReview.ID = 0
	clinicReview.TargetType = models.ReviewTargetClinic
	require.NoError(t, repo.Create(ctx, &clinicReview), "same id under another target type is a different target")
}

func TestReviewRepositoryListAndRating(t *testing.T) {
	db := setupTestDB(t)
	repo := NewReviewRepository(db)
	ctx := context.Background()

	specialist := seedUser(t, db, models.RoleSpecialist, "special")
	order := seedOrder(t, db, specialist, "Consultation")

	for i, rate := range []int{4, 9, 10} {
		sender := seedUser(t, db, models.RolePatient, []string{"pat_a", "pat_b", "pat_c"}[i])
		require.NoError(t, repo.Create(ctx, &models.Review{SenderID: sender.ID, OrderID: order.ID, TargetID: specialist.ID, TargetType: models.ReviewTargetSpecialist, Text: "Some review text", Rate: rate}))
	}

	reviews, total, err := repo.List(ctx, ReviewFilter{TargetID: specialist.ID, TargetType: models.ReviewTargetSpecialist, MinRating: 5})
	require.NoError(t, err)
	require.Equal(t, int64(2), total)
	require.Len(t, reviews, 2)

	_, total, err = repo.List(ctx, ReviewFilter{TargetID: specialist.ID, TargetType: models.ReviewTargetSpecialist, MaxRating: 9, Page: 1, PageSize: 1})
	require.NoError(t, err)
	require.Equal(t, int64(2), total)

	summary, err := repo.Rating(ctx, specialist.ID, models.ReviewTargetSpecialist)
	require.NoError(t, err)
	require.Equal(t, int64(3), summary.Count)
	require.InDelta(t, 7.666, summary.Average, 0.01)

	empty, err := repo.Rating(ctx, specialist.ID, models.ReviewTargetClinic)
	require.NoError(t, err)
	require.Zero(t, empty.Count)
	require.Zero(t, empty.Average)
}
