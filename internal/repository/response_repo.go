package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/noah-isme/medlink-api/internal/models"
)

// ErrStaleState is returned when a conditional write finds the row in another state
// than the one the caller checked.
var ErrStaleState = errors.New("row is no longer in the expected state")

// ResponseFilter narrows bid listings.
type ResponseFilter struct {
	OrderID     uint
	ResponderID uint
	Status      models.ResponseStatus
	Page        int
	PageSize    int
}

// ResponseRepository persists bids and keeps the owning order in step with them.
type ResponseRepository interface {
	Create(ctx context.Context, response *models.Response) error
	GetByID(ctx context.Context, id uint) (models.Response, error)
	List(ctx context.Context, filter ResponseFilter) ([]models.Response, int64, error)
	Accept(ctx context.Context, response models.Response) (int64, error)
	Deny(ctx context.Context, id uint) error
	Delete(ctx context.Context, response models.Response) error
}

type responseRepository struct {
	db *gorm.DB
}

// NewResponseRepository constructs a response repository.
func NewResponseRepository(db *gorm.DB) ResponseRepository {
	return &responseRepository{db: db}
}

// Create inserts the bid and bumps the order counter in one transaction. The
// (order_id, responder_id) unique index rejects duplicates with gorm.ErrDuplicatedKey,
// and ErrStaleState is returned when the order stopped being active.
func (r *responseRepository) Create(ctx context.Context, response *models.Response) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(response).Error; err != nil {
			return err
		}
		result := tx.Model(&models.Order{}).
			Where("id = ? AND status = ?", response.OrderID, models.OrderStatusActive).
			UpdateColumn("responses_count", gorm.Expr("responses_count + ?", 1))
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrStaleState
		}
		return nil
	})
}

func (r *responseRepository) GetByID(ctx context.Context, id uint) (models.Response, error) {
	var response models.Response
	err := r.db.WithContext(ctx).First(&response, id).Error
	return response, err
}

func (r *responseRepository) List(ctx context.Context, filter ResponseFilter) ([]models.Response, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Response{})
	if filter.OrderID != 0 {
		query = query.Where("order_id = ?", filter.OrderID)
	}
	if filter.ResponderID != 0 {
		query = query.Where("responder_id = ?", filter.ResponderID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.PageSize > 0 {
		page := filter.Page
		if page <= 0 {
			page = 1
		}
		query = query.Offset((page - 1) * filter.PageSize).Limit(filter.PageSize)
	}

	var responses []models.Response
	if err := query.Order("created_at ASC").Order("id ASC").Find(&responses).Error; err != nil {
		return nil, 0, err
	}
	return responses, total, nil
}

// Accept marks the bid taken, completes the order and denies every other proposed
// bid on it. Either all three writes land or none does. It returns the number of
// denied siblings.
func (r *responseRepository) Accept(ctx context.Context, response models.Response) (int64, error) {
	var denied int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		taken := tx.Model(&models.Response{}).
			Where("id = ? AND status = ?", response.ID, models.ResponseStatusProposed).
			Update("status", models.ResponseStatusTaken)
		if taken.Error != nil {
			return taken.Error
		}
		if taken.RowsAffected == 0 {
			return ErrStaleState
		}

		completed := tx.Model(&models.Order{}).
			Where("id = ? AND status = ?", response.OrderID, models.OrderStatusActive).
			Update("status", models.OrderStatusCompleted)
		if completed.Error != nil {
			return completed.Error
		}
		if completed.RowsAffected == 0 {
			return ErrStaleState
		}

		siblings := tx.Model(&models.Response{}).
			Where("order_id = ? AND id <> ? AND status = ?", response.OrderID, response.ID, models.ResponseStatusProposed).
			Update("status", models.ResponseStatusDenied)
		if siblings.Error != nil {
			return siblings.Error
		}
		denied = siblings.RowsAffected
		return nil
	})
	if err != nil {
		return 0, err
	}
	return denied, nil
}

func (r *responseRepository) Deny(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).
		Model(&models.Response{}).
		Where("id = ? AND status = ?", id, models.ResponseStatusProposed).
		Update("status", models.ResponseStatusDenied)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrStaleState
	}
	return nil
}

// Delete removes a still proposed bid and decrements the order counter.
func (r *responseRepository) Delete(ctx context.Context, response models.Response) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("id = ? AND status = ?", response.ID, models.ResponseStatusProposed).
			Delete(&models.Response{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrStaleState
		}
		return tx.Model(&models.Order{}).
			Where("id = ? AND responses_count > 0", response.OrderID).
			UpdateColumn("responses_count", gorm.Expr("responses_count - ?", 1)).Error
	})
}
