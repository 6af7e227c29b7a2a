package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/noah-isme/medlink-api/internal/models"
)

// OrderFilter narrows order listings. Zero values are ignored.
type OrderFilter struct {
	CreatorID     uint
	Status        models.OrderStatus
	ServiceType   string
	Specification string
	// AssignedTo restricts to orders linked to the user through patient_id,
	// specialist_id or one of ClinicIDs.
	AssignedTo *AssignedFilter
	Page       int
	PageSize   int
}

// AssignedFilter describes how an order is linked to a user.
type AssignedFilter struct {
	PatientID    uint
	SpecialistID uint
	ClinicIDs    []uint
}

// OrderRepository persists orders.
type OrderRepository interface {
	Create(ctx context.Context, order *models.Order) error
	GetByID(ctx context.Context, id uint) (models.Order, error)
	List(ctx context.Context, filter OrderFilter) ([]models.Order, int64, error)
	UpdateStatus(ctx context.Context, id uint, status models.OrderStatus) error
	Delete(ctx context.Context, id uint) error
}

type orderRepository struct {
	db *gorm.DB
}

// NewOrderRepository constructs an order repository.
func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) Create(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *orderRepository) GetByID(ctx context.Context, id uint) (models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).First(&order, id).Error
	return order, err
}

func (r *orderRepository) List(ctx context.Context, filter OrderFilter) ([]models.Order, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Order{})

	if filter.CreatorID != 0 {
		query = query.Where("creator_id = ?", filter.CreatorID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if serviceType := strings.TrimSpace(filter.ServiceType); serviceType != "" {
		query = query.Where("LOWER(service_type) = ?", strings.ToLower(serviceType))
	}
	if spec := strings.TrimSpace(filter.Specification); spec != "" {
		query = query.Where("specification_tags LIKE ? ESCAPE '\\'", "%|"+escapeLike(models.NormalizeTag(spec))+"|%")
	}
	if assigned := filter.AssignedTo; assigned != nil {
		query = query.Where(r.assignedScope(assigned))
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

	var orders []models.Order
	if err := query.Order("created_at DESC").Order("id DESC").Find(&orders).Error; err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func (r *orderRepository) UpdateStatus(ctx context.Context, id uint, status models.OrderStatus) error {
	result := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", id).
		Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Delete removes the order together with its bids.
func (r *orderRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("order_id = ?", id).Delete(&models.Response{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&models.Order{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

func (r *orderRepository) assignedScope(assigned *AssignedFilter) *gorm.DB {
	scope := r.db.Where("1 = 0")
	if assigned.PatientID != 0 {
		scope = scope.Or("patient_id = ?", assigned.PatientID)
	}
	if assigned.SpecialistID != 0 {
		scope = scope.Or("specialist_id = ?", assigned.SpecialistID)
	}
	if len(assigned.ClinicIDs) > 0 {
		scope = scope.Or("clinic_id IN ?", assigned.ClinicIDs)
	}
	return scope
}
