package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/noah-isme/medlink-api/internal/models"
)

// ClinicFilter narrows clinic listings.
type ClinicFilter struct {
	Location       string
	OrganizationID uint
	Page           int
	PageSize       int
}

// ClinicRepository manages clinic persistence.
type ClinicRepository interface {
	Create(ctx context.Context, clinic *models.Clinic) error
	GetByID(ctx context.Context, id uint) (models.Clinic, error)
	Update(ctx context.Context, clinic *models.Clinic) error
	Delete(ctx context.Context, id uint) error
	List(ctx context.Context, filter ClinicFilter) ([]models.Clinic, int64, error)
}

type clinicRepository struct {
	db *gorm.DB
}

// NewClinicRepository constructs a clinic repository.
func NewClinicRepository(db *gorm.DB) ClinicRepository {
	return &clinicRepository{db: db}
}

func (r *clinicRepository) Create(ctx context.Context, clinic *models.Clinic) error {
	return r.db.WithContext(ctx).Create(clinic).Error
}

func (r *clinicRepository) GetByID(ctx context.Context, id uint) (models.Clinic, error) {
	var clinic models.Clinic
	err := r.db.WithContext(ctx).First(&clinic, id).Error
	return clinic, err
}

func (r *clinicRepository) Update(ctx context.Context, clinic *models.Clinic) error {
	return r.db.WithContext(ctx).Save(clinic).Error
}

func (r *clinicRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.Clinic{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// List matches Location as a case-insensitive substring.
func (r *clinicRepository) List(ctx context.Context, filter ClinicFilter) ([]models.Clinic, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Clinic{})

	if location := strings.TrimSpace(filter.Location); location != "" {
		query = query.Where("LOWER(location) LIKE ? ESCAPE '\\'", "%"+escapeLike(strings.ToLower(location))+"%")
	}
	if filter.OrganizationID != 0 {
		query = query.Where("organization_id = ?", filter.OrganizationID)
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

	var clinics []models.Clinic
	if err := query.Order("id ASC").Find(&clinics).Error; err != nil {
		return nil, 0, err
	}
	return clinics, total, nil
}
