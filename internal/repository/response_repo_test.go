package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/noah-isme/medlink-api/internal/models"
)

func TestResponseRepositoryConcurrentDuplicateOnlyOneWins(t *testing.T) {
	db := setupTestDB(t)
	repo := NewResponseRepository(db)

	creator := seedUser(t, db, models.RoleSpecialist, "creator")
	responder := seedUser(t, db, models.RoleOrganization, "responder")
	order := seedOrder(t, db, creator, "Consultation")

	const attempts = 8
	var (
		wg         sync.WaitGroup
		mu         sync.Mutex
		successes  int
		duplicates int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := repo.Create(context.Background(), &models.Response{
				OrderID:       order.ID,
				ResponderID:   responder.ID,
				ResponderRole: models.RoleOrganization,
				Text:          fmt.Sprintf("offer number %d", i),
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, gorm.ErrDuplicatedKey):
				duplicates++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	require.Equal(t, 1, successes)
	require.Equal(t, attempts-1, duplicates)

	reloaded, err := NewOrderRepository(db).GetByID(context.Background(), order.ID)
	require.NoError(t, err)
	require.Equal(t, 1, reloaded.ResponsesCount, "counter only moves for the winning insert")
}

func TestResponseRepositoryCreateRequiresActiveOrder(t *testing.T) {
	db := setupTestDB(t)
	repo := NewResponseRepository(db)

	creator := seedUser(t, db, models.RoleSpecialist, "creator")
	responder := seedUser(t, db, models.RolePatient, "responder")
	order := seedOrder(t, db, creator, "Consultation")
	require.NoError(t, NewOrderRepository(db).UpdateStatus(context.Background(), order.ID, models.OrderStatusCancelled))

	err := repo.Create(context.Background(), &models.Response{OrderID: order.ID, ResponderID: responder.ID, ResponderRole: models.RolePatient, Text: "late offer here"})
	require.ErrorIs(t, err, ErrStaleState)

	var count int64
	require.NoError(t, db.Model(&models.Response{}).Count(&count).Error)
	require.Zero(t, count, "insert is rolled back with the counter update")
}

func TestResponseRepositoryAcceptCascade(t *testing.T) {
	db := setupTestDB(t)
	repo := NewResponseRepository(db)
	ctx := context.Background()

	creator := seedUser(t, db, models.RoleSpecialist, "creator")
	order := seedOrder(t, db, creator, "Consultation")

	var bids []models.Response
	for _, nick := range []string{"bidder_a", "bidder_b", "bidder_c"} {
		bidder := seedUser(t, db, models.RoleOrganization, nick)
		bid := models.Response{OrderID: order.ID, ResponderID: bidder.ID, ResponderRole: models.RoleOrganization, Text: "we can help you"}
		require.NoError(t, repo.Create(ctx, &bid))
		bids = append(bids, bid)
	}
	require.NoError(t, repo.Deny(ctx, bids[2].ID))

	denied, err := repo.Accept(ctx, bids[0])
	require.NoError(t, err)
	require.Equal(t, int64(1), denied, "already denied bids are not counted again")

	statuses := map[uint]models.ResponseStatus{}
	all, total, err := repo.List(ctx, ResponseFilter{OrderID: order.ID})
	require.NoError(t, err)
	require.Equal(t, int64(3), total)
	for _, bid := range all {
		statuses[bid.ID] = bid.Status
	}
	require.Equal(t, models.ResponseStatusTaken, statuses[bids[0].ID])
	require.Equal(t, models.ResponseStatusDenied, statuses[bids[1].ID])
	require.Equal(t, models.ResponseStatusDenied, statuses[bids[2].ID])

	reloaded, err := NewOrderRepository(db).GetByID(ctx, order.ID)
	require.NoError(t, err)
	require.Equal(t, models.OrderStatusCompleted, reloaded.Status)

	_, err = repo.Accept(ctx, bids[1])
	require.ErrorIs(t, err, ErrStaleState)
}

func TestResponseRepositoryAcceptRollsBackWhenOrderNotActive(t *testing.T) {
	db := setupTestDB(t)
	repo := NewResponseRepository(db)
	ctx := context.Background()

	creator := seedUser(t, db, models.RoleSpecialist, "creator")
	bidder := seedUser(t, db, models.RolePatient, "bidder")
	order := seedOrder(t, db, creator, "Consultation")
	bid := models.Response{OrderID: order.ID, ResponderID: bidder.ID, ResponderRole: models.RolePatient, Text: "please pick me"}
	require.NoError(t, repo.Create(ctx, &bid))
	require.NoError(t, NewOrderRepository(db).UpdateStatus(ctx, order.ID, models.OrderStatusInactive))

	_, err := repo.Accept(ctx, bid)
	require.ErrorIs(t, err, ErrStaleState)

	reloaded, err := repo.GetByID(ctx, bid.ID)
	require.NoError(t, err)
	require.Equal(t, models.ResponseStatusProposed, reloaded.Status, "taken write is rolled back")
}

func TestResponseRepositoryDeleteDecrementsCounter(t *testing.T) {
	db := setupTestDB(t)
	repo := NewResponseRepository(db)
	ctx := context.Background()

	creator := seedUser(t, db, models.RoleSpecialist, "creator")
	bidder := seedUser(t, db, models.RolePatient, "bidder")
	order := seedOrder(t, db, creator, "Consultation")
	bid := models.Response{OrderID: order.ID, ResponderID: bidder.ID, ResponderRole: models.RolePatient, Text: "please pick me"}
	require.NoError(t, repo.Create(ctx, &bid))

	require.NoError(t, repo.Delete(ctx, bid))
	reloaded, err := NewOrderRepository(db).GetByID(ctx, order.ID)
	require.NoError(t, err)
	require.Zero(t, reloaded.ResponsesCount)

	_, err = repo.GetByID(ctx, bid.ID)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
	require.ErrorIs(t, repo.Delete(ctx, bid), ErrStaleState)
}

func seedOrder(t *testing.T, db *gorm.DB, creator models.User, serviceType string) models.Order {
	t.Helper()
	order := models.Order{
		CreatorID:      creator.ID,
		CreatorRole:    creator.Role,
		ServiceType:    serviceType,
		Description:    "Need a follow-up consultation",
		Specifications: []string{serviceType},
		PreferredDate:  time.Now().Add(48 * time.Hour),
		Status:         models.OrderStatusActive,
	}
	require.NoError(t, NewOrderRepository(db).Create(context.Background(), &order))
	return order
}
