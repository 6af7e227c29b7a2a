package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/medlink-api/internal/models"
)

// UserFilter narrows account listings.
type UserFilter struct {
	Role     models.Role
	Page     int
	PageSize int
}

// UserRepository persists accounts together with their role satellites.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uint) (models.User, error)
	GetByNickname(ctx context.Context, nickname string) (models.User, error)
	NicknameTaken(ctx context.Context, nickname string, excludeID uint) (bool, error)
	EmailTaken(ctx context.Context, email string, excludeID uint) (bool, error)
	Update(ctx context.Context, user *models.User) error
	List(ctx context.Context, filter UserFilter) ([]models.User, int64, error)
	Delete(ctx context.Context, id uint) error
	ClinicIDs(ctx context.Context, organizationID uint) ([]uint, error)
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository constructs a user repository backed by GORM.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// Create inserts the base row and whichever satellite is attached in one transaction.
func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(user).Error; err != nil {
			return err
		}
		return saveSatellite(tx, user)
	})
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (models.User, error) {
	var user models.User
	err := r.withProfiles(ctx).First(&user, id).Error
	return user, err
}

func (r *userRepository) GetByNickname(ctx context.Context, nickname string) (models.User, error) {
	var user models.User
	err := r.withProfiles(ctx).Where("nickname = ?", nickname).First(&user).Error
	return user, err
}

func (r *userRepository) NicknameTaken(ctx context.Context, nickname string, excludeID uint) (bool, error) {
	return r.exists(ctx, "nickname = ?", nickname, excludeID)
}

func (r *userRepository) EmailTaken(ctx context.Context, email string, excludeID uint) (bool, error) {
	return r.exists(ctx, "email = ?", email, excludeID)
}

func (r *userRepository) Update(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Save(user).Error; err != nil {
			return err
		}
		return saveSatellite(tx, user)
	})
}

func (r *userRepository) List(ctx context.Context, filter UserFilter) ([]models.User, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.User{})
	if filter.Role != "" {
		query = query.Where("role = ?", filter.Role)
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

	var users []models.User
	if err := query.Preload("Blocked").Order("id ASC").Find(&users).Error; err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// Delete removes the account and its satellites. Orders, reviews and chats are kept as history.
func (r *userRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, model := range []interface{}{
			&models.PatientProfile{},
			&models.SpecialistProfile{},
			&models.OrganizationProfile{},
			&models.AdminProfile{},
			&models.BlockedUser{},
		} {
			if err := tx.Where("user_id = ?", id).Delete(model).Error; err != nil {
				return err
			}
		}

		result := tx.Delete(&models.User{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

func (r *userRepository) ClinicIDs(ctx context.Context, organizationID uint) ([]uint, error) {
	ids := make([]uint, 0)
	err := r.db.WithContext(ctx).
		Model(&models.Clinic{}).
		Where("organization_id = ?", organizationID).
		Order("id ASC").
		Pluck("id", &ids).Error
	return ids, err
}

func (r *userRepository) withProfiles(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("Patient").
		Preload("Specialist").
		Preload("Organization").
		Preload("Admin").
		Preload("Blocked")
}

func (r *userRepository) exists(ctx context.Context, condition string, value string, excludeID uint) (bool, error) {
	query := r.db.WithContext(ctx).Model(&models.User{}).Where(condition, value)
	if excludeID != 0 {
		query = query.Where("id <> ?", excludeID)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func saveSatellite(tx *gorm.DB, user *models.User) error {
	switch {
	case user.Patient != nil:
		user.Patient.UserID = user.ID
		return tx.Save(user.Patient).Error
	case user.Specialist != nil:
		user.Specialist.UserID = user.ID
		return tx.Save(user.Specialist).Error
	case user.Organization != nil:
		user.Organization.UserID = user.ID
		return tx.Save(user.Organization).Error
	case user.Admin != nil:
		user.Admin.UserID = user.ID
		return tx.Save(user.Admin).Error
	}
	return nil
}
