package repository

import (
	"context"

	"gorm.io/gorm"

	"example.com/backstage/services/fieldservice/internal/db"
	"example.com/backstage/services/fieldservice/internal/model"
)

// CustomerRepository defines the interface for customer data access
type CustomerRepository interface {
	Create(ctx context.Context, customer *model.Customer) (*model.Customer, error)
	Update(ctx context.Context, customer *model.Customer) (*model.Customer, error)
	GetByID(ctx context.Context, id string) (*model.Customer, error)
	GetBySequence(ctx context.Context, sequence string) (*model.Customer, error)
	List(ctx context.Context, serviceClientsOnly bool) ([]*model.Customer, error)
	CountOrders(ctx context.Context, customerID string) (int64, error)
}

// customerRepository implements CustomerRepository
type customerRepository struct {
	db *gorm.DB
}

// NewCustomerRepository creates a new customer repository
func NewCustomerRepository(gdb *gorm.DB) CustomerRepository {
	return &customerRepository{db: gdb}
}

// Create creates a new customer
func (r *customerRepository) Create(ctx context.Context, customer *model.Customer) (*model.Customer, error) {
	if err := r.db.WithContext(ctx).Create(customer).Error; err != nil {
		return nil, err
	}
	return customer, nil
}

// Update updates a customer
func (r *customerRepository) Update(ctx context.Context, customer *model.Customer) (*model.Customer, error) {
	if err := r.db.WithContext(ctx).Save(customer).Error; err != nil {
		return nil, err
	}
	return customer, nil
}

// GetByID gets a customer by ID
func (r *customerRepository) GetByID(ctx context.Context, id string) (*model.Customer, error) {
	var customer model.Customer
	err := r.db.WithContext(ctx).Where("uuid = ?", id).First(&customer).Error
	if err != nil {
		if db.IsRecordNotFoundError(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &customer, nil
}

// GetBySequence gets a customer by client sequence code
func (r *customerRepository) GetBySequence(ctx context.Context, sequence string) (*model.Customer, error) {
	var customer model.Customer
	err := r.db.WithContext(ctx).Where("client_sequence = ?", sequence).First(&customer).Error
	if err != nil {
		if db.IsRecordNotFoundError(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &customer, nil
}

// List lists customers, optionally restricted to service clients
func (r *customerRepository) List(ctx context.Context, serviceClientsOnly bool) ([]*model.Customer, error) {
	var customers []*model.Customer
	query := r.db.WithContext(ctx).Order("name")
	if serviceClientsOnly {
		query = query.Where("is_service_client = ?", true)
	}
	if err := query.Find(&customers).Error; err != nil {
		return nil, err
	}
	return customers, nil
}

// CountOrders counts all service orders for a customer
func (r *customerRepository) CountOrders(ctx context.Context, customerID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.ServiceOrder{}).
		Where("customer_id = ?", customerID).
		Count(&count).Error
	return count, err
}
