package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"example.com/backstage/services/fieldservice/internal/db"
	"example.com/backstage/services/fieldservice/internal/model"
)

// EquipmentRepository defines the interface for equipment data access
type EquipmentRepository interface {
	Create(ctx context.Context, equipment *model.Equipment) (*model.Equipment, error)
	Update(ctx context.Context, equipment *model.Equipment) (*model.Equipment, error)
	GetByID(ctx context.Context, id string) (*model.Equipment, error)
	GetByCode(ctx context.Context, code string) (*model.Equipment, error)
	GetBySerial(ctx context.Context, serial string) (*model.Equipment, error)
	ListByCustomer(ctx context.Context, customerID string) ([]*model.Equipment, error)
	CountOpenOrders(ctx context.Context, equipmentID string) (int64, error)
	LastServiceDate(ctx context.Context, equipmentID string) (*time.Time, error)
}

// equipmentRepository implements EquipmentRepository
type equipmentRepository struct {
	db *gorm.DB
}

// NewEquipmentRepository creates a new equipment repository
func NewEquipmentRepository(gdb *gorm.DB) EquipmentRepository {
	return &equipmentRepository{db: gdb}
}

// Create creates a new equipment record
func (r *equipmentRepository) Create(ctx context.Context, equipment *model.Equipment) (*model.Equipment, error) {
	if err := r.db.WithContext(ctx).Create(equipment).Error; err != nil {
		return nil, err
	}
	return equipment, nil
}

// Update updates an equipment record
func (r *equipmentRepository) Update(ctx context.Context, equipment *model.Equipment) (*model.Equipment, error) {
	if err := r.db.WithContext(ctx).Save(equipment).Error; err != nil {
		return nil, err
	}
	return equipment, nil
}

// GetByID gets equipment by ID, preloading the owning customer
func (r *equipmentRepository) GetByID(ctx context.Context, id string) (*model.Equipment, error) {
	var equipment model.Equipment
	err := r.db.WithContext(ctx).Preload("Customer").Where("uuid = ?", id).First(&equipment).Error
	if err != nil {
		if db.IsRecordNotFoundError(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &equipment, nil
}

// GetByCode gets equipment by its sequence code
func (r *equipmentRepository) GetByCode(ctx context.Context, code string) (*model.Equipment, error) {
	var equipment model.Equipment
	err := r.db.WithContext(ctx).Preload("Customer").Where("code = ?", code).First(&equipment).Error
	if err != nil {
		if db.IsRecordNotFoundError(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &equipment, nil
}

// GetBySerial gets equipment by serial number
func (r *equipmentRepository) GetBySerial(ctx context.Context, serial string) (*model.Equipment, error) {
	var equipment model.Equipment
	err := r.db.WithContext(ctx).Where("serial_number = ?", serial).First(&equipment).Error
	if err != nil {
		if db.IsRecordNotFoundError(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &equipment, nil
}

// ListByCustomer lists equipment owned by a customer
func (r *equipmentRepository) ListByCustomer(ctx context.Context, customerID string) ([]*model.Equipment, error) {
	var equipment []*model.Equipment
	err := r.db.WithContext(ctx).
		Where("customer_id = ?", customerID).
		Order("code").
		Find(&equipment).Error
	if err != nil {
		return nil, err
	}
	return equipment, nil
}

// CountOpenOrders counts orders for the equipment still in flight, that is
// neither done nor cancelled
func (r *equipmentRepository) CountOpenOrders(ctx context.Context, equipmentID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.ServiceOrder{}).
		Where("equipment_id = ?", equipmentID).
		Where("state NOT IN ?", []model.OrderState{model.OrderStateDone, model.OrderStateCancelled}).
		Count(&count).Error
	return count, err
}

// LastServiceDate returns the end timestamp of the most recent completed
// order for the equipment, or nil when it has never been serviced.
func (r *equipmentRepository) LastServiceDate(ctx context.Context, equipmentID string) (*time.Time, error) {
	var order model.ServiceOrder
	err := r.db.WithContext(ctx).
		Where("equipment_id = ?", equipmentID).
		Where("state = ?", model.OrderStateDone).
		Order("ended_at DESC").
		First(&order).Error
	if err != nil {
		if db.IsRecordNotFoundError(err) {
			return nil, nil
		}
		return nil, err
	}
	return order.EndedAt, nil
}
