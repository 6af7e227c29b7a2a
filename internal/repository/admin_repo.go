package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/medlink-api/internal/models"
)

// MarketplaceStatistics is the raw aggregate behind the admin statistics endpoint.
type MarketplaceStatistics struct {
	UsersByRole       map[string]int64
	BlockedUsers      int64
	Clinics           int64
	OrdersByStatus    map[string]int64
	ResponsesByStatus map[string]int64
	Reviews           int64
}

// AdminRepository groups moderation writes and reporting queries.
type AdminRepository interface {
	Block(ctx context.Context, marker *models.BlockedUser) error
	Unblock(ctx context.Context, userID uint) error
	UpdatePrivileges(ctx context.Context, profile *models.AdminProfile) error
	Statistics(ctx context.Context) (MarketplaceStatistics, error)
}

type adminRepository struct {
	db *gorm.DB
}

// NewAdminRepository constructs the admin repository.
func NewAdminRepository(db *gorm.DB) AdminRepository {
	return &adminRepository{db: db}
}

// Block stores the marker; a second marker for the same user fails with gorm.ErrDuplicatedKey.
func (r *adminRepository) Block(ctx context.Context, marker *models.BlockedUser) error {
	return r.db.WithContext(ctx).Create(marker).Error
}

func (r *adminRepository) Unblock(ctx context.Context, userID uint) error {
	result := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.BlockedUser{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *adminRepository) UpdatePrivileges(ctx context.Context, profile *models.AdminProfile) error {
	result := r.db.WithContext(ctx).
		Model(&models.AdminProfile{}).
		Where("user_id = ?", profile.UserID).
		Updates(map[string]interface{}{
			"admin_role":    profile.AdminRole,
			"is_superadmin": profile.IsSuperadmin,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *adminRepository) Statistics(ctx context.Context) (MarketplaceStatistics, error) {
	db := r.db.WithContext(ctx)
	stats := MarketplaceStatistics{}

	var err error
	if stats.UsersByRole, err = groupCount(db, &models.User{}, "role"); err != nil {
		return MarketplaceStatistics{}, err
	}
	if stats.OrdersByStatus, err = groupCount(db, &models.Order{}, "status"); err != nil {
		return MarketplaceStatistics{}, err
	}
	if stats.ResponsesByStatus, err = groupCount(db, &models.Response{}, "status"); err != nil {
		return MarketplaceStatistics{}, err
	}
	if err := db.Model(&models.BlockedUser{}).Count(&stats.BlockedUsers).Error; err != nil {
		return MarketplaceStatistics{}, err
	}
	if err := db.Model(&models.Clinic{}).Count(&stats.Clinics).Error; err != nil {
		return MarketplaceStatistics{}, err
	}
	if err := db.Model(&models.Review{}).Count(&stats.Reviews).Error; err != nil {
		return MarketplaceStatistics{}, err
	}

	return stats, nil
}

func groupCount(db *gorm.DB, model interface{}, column string) (map[string]int64, error) {
	var rows []struct {
		GroupKey string
		Total    int64
	}
	err := db.Model(model).
		Select(column + " AS group_key, COUNT(*) AS total").
		Group(column).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make(map[string]int64, len(rows))
	for _, row := range rows {
		out[row.GroupKey] = row.Total
	}
	return out, nil
}
