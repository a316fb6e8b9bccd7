package repository

import (
	"context"

	"gorm.io/gorm"

	"example.com/backstage/services/fieldservice/internal/db"
	"example.com/backstage/services/fieldservice/internal/model"
)

// TechnicianRepository defines the interface for technician data access
type TechnicianRepository interface {
	Create(ctx context.Context, technician *model.Technician) (*model.Technician, error)
	Update(ctx context.Context, technician *model.Technician) (*model.Technician, error)
	GetByID(ctx context.Context, id string) (*model.Technician, error)
	ListTechnicians(ctx context.Context) ([]*model.Technician, error)
	CountCompletedOrders(ctx context.Context, technicianID string) (int64, error)
}

// technicianRepository implements TechnicianRepository
type technicianRepository struct {
	db *gorm.DB
}

// NewTechnicianRepository creates a new technician repository
func NewTechnicianRepository(gdb *gorm.DB) TechnicianRepository {
	return &technicianRepository{db: gdb}
}

// Create creates a new technician record
func (r *technicianRepository) Create(ctx context.Context, technician *model.Technician) (*model.Technician, error) {
	if err := r.db.WithContext(ctx).Create(technician).Error; err != nil {
		return nil, err
	}
	return technician, nil
}

// Update updates a technician record
func (r *technicianRepository) Update(ctx context.Context, technician *model.Technician) (*model.Technician, error) {
	if err := r.db.WithContext(ctx).Save(technician).Error; err != nil {
		return nil, err
	}
	return technician, nil
}

// GetByID gets a technician by ID
func (r *technicianRepository) GetByID(ctx context.Context, id string) (*model.Technician, error) {
	var technician model.Technician
	err := r.db.WithContext(ctx).Where("uuid = ?", id).First(&technician).Error
	if err != nil {
		if db.IsRecordNotFoundError(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &technician, nil
}

// ListTechnicians lists all personnel with the technician role
func (r *technicianRepository) ListTechnicians(ctx context.Context) ([]*model.Technician, error) {
	var technicians []*model.Technician
	err := r.db.WithContext(ctx).
		Where("is_technician = ?", true).
		Order("name").
		Find(&technicians).Error
	if err != nil {
		return nil, err
	}
	return technicians, nil
}

// CountCompletedOrders counts orders the technician has completed
func (r *technicianRepository) CountCompletedOrders(ctx context.Context, technicianID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.ServiceOrder{}).
		Where("technician_id = ?", technicianID).
		Where("state = ?", model.OrderStateDone).
		Count(&count).Error
	return count, err
}
