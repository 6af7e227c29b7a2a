package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/medlink-api/internal/models"
)

// ReviewFilter narrows review listings.
type ReviewFilter struct {
	TargetID   uint
	TargetType models.ReviewTargetType
	SenderID   uint
	MinRating  int
	MaxRating  int
	Page       int
	PageSize   int
}

// RatingSummary is the aggregate rating of one target.
type RatingSummary struct {
	Average float64
	Count   int64
}

// ReviewRepository persists reviews.
type ReviewRepository interface {
	Create(ctx context.Context, review *models.Review) error
	GetByID(ctx context.Context, id uint) (models.Review, error)
	Exists(ctx context.Context, orderID, senderID, targetID uint, targetType models.ReviewTargetType) (bool, error)
	List(ctx context.Context, filter ReviewFilter) ([]models.Review, int64, error)
	Update(ctx context.Context, review *models.Review) error
	Delete(ctx context.Context, id uint) error
	Rating(ctx context.Context, targetID uint, targetType models.ReviewTargetType) (RatingSummary, error)
}

type reviewRepository struct {
	db *gorm.DB
}

// NewReviewRepository constructs a review repository.
func NewReviewRepository(db *gorm.DB) ReviewRepository {
	return &reviewRepository{db: db}
}

func (r *reviewRepository) Create(ctx context.Context, review *models.Review) error {
	return r.db.WithContext(ctx).Create(review).Error
}

func (r *reviewRepository) GetByID(ctx context.Context, id uint) (models.Review, error) {
	var review models.Review
	err := r.db.WithContext(ctx).First(&review, id).Error
	return review, err
}

func (r *reviewRepository) Exists(ctx context.Context, orderID, senderID, targetID uint, targetType models.ReviewTargetType) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Review{}).
		Where("order_id = ? AND sender_id = ? AND target_id = ? AND target_type = ?", orderID, senderID, targetID, targetType).
		Count(&count).Error
	return count > 0, err
}

func (r *reviewRepository) List(ctx context.Context, filter ReviewFilter) ([]models.Review, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Review{})
	if filter.TargetID != 0 {
		query = query.Where("target_id = ?", filter.TargetID)
	}
	if filter.TargetType != "" {
		query = query.Where("target_type = ?", filter.TargetType)
	}
	if filter.SenderID != 0 {
		query = query.Where("sender_id = ?", filter.SenderID)
	}
	if filter.MinRating > 0 {
		query = query.Where("rate >= ?", filter.MinRating)
	}
	if filter.MaxRating > 0 {
		query = query.Where("rate <= ?", filter.MaxRating)
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

	var reviews []models.Review
	if err := query.Order("created_at DESC").Order("id DESC").Find(&reviews).Error; err != nil {
		return nil, 0, err
	}
	return reviews, total, nil
}

func (r *reviewRepository) Update(ctx context.Context, review *models.Review) error {
	return r.db.WithContext(ctx).Save(review).Error
}

func (r *reviewRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.Review{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *reviewRepository) Rating(ctx context.Context, targetID uint, targetType models.ReviewTargetType) (RatingSummary, error) {
	var row struct {
		Average *float64
		Total   int64
	}
	err := r.db.WithContext(ctx).
		Model(&models.Review{}).
		Select("AVG(rate) AS average, COUNT(*) AS total").
		Where("target_id = ? AND target_type = ?", targetID, targetType).
		Scan(&row).Error
	if err != nil {
		return RatingSummary{}, err
	}

	summary := RatingSummary{Count: row.Total}
	if row.Average != nil {
		summary.Average = *row.Average
	}
	return summary, nil
}
