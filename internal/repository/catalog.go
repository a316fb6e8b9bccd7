package repository

import (
	"context"

	"gorm.io/gorm"

	"example.com/backstage/services/fieldservice/internal/db"
	"example.com/backstage/services/fieldservice/internal/model"
)

// ServiceTypeRepository defines the interface for service type data access
type ServiceTypeRepository interface {
	Create(ctx context.Context, serviceType *model.ServiceType) (*model.ServiceType, error)
	Update(ctx context.Context, serviceType *model.ServiceType) (*model.ServiceType, error)
	GetByID(ctx context.Context, id string) (*model.ServiceType, error)
	GetByCode(ctx context.Context, code string) (*model.ServiceType, error)
	ListActive(ctx context.Context) ([]*model.ServiceType, error)
}

// serviceTypeRepository implements ServiceTypeRepository
type serviceTypeRepository struct {
	db *gorm.DB
}

// NewServiceTypeRepository creates a new service type repository
func NewServiceTypeRepository(gdb *gorm.DB) ServiceTypeRepository {
	return &serviceTypeRepository{db: gdb}
}

// Create creates a new service type
func (r *serviceTypeRepository) Create(ctx context.Context, serviceType *model.ServiceType) (*model.ServiceType, error) {
	if err := r.db.WithContext(ctx).Create(serviceType).Error; err != nil {
		return nil, err
	}
	return serviceType, nil
}

// Update updates a service type
func (r *serviceTypeRepository) Update(ctx context.Context, serviceType *model.ServiceType) (*model.ServiceType, error) {
	if err := r.db.WithContext(ctx).Save(serviceType).Error; err != nil {
		return nil, err
	}
	return serviceType, nil
}

// GetByID gets a service type by ID
func (r *serviceTypeRepository) GetByID(ctx context.Context, id string) (*model.ServiceType, error) {
	var serviceType model.ServiceType
	err := r.db.WithContext(ctx).Where("uuid = ?", id).First(&serviceType).Error
	if err != nil {
		if db.IsRecordNotFoundError(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &serviceType, nil
}

// GetByCode gets a service type by its unique code
func (r *serviceTypeRepository) GetByCode(ctx context.Context, code string) (*model.ServiceType, error) {
	var serviceType model.ServiceType
	err := r.db.WithContext(ctx).Where("code = ?", code).First(&serviceType).Error
	if err != nil {
		if db.IsRecordNotFoundError(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &serviceType, nil
}

// ListActive lists all active service types
func (r *serviceTypeRepository) ListActive(ctx context.Context) ([]*model.ServiceType, error) {
	var serviceTypes []*model.ServiceType
	err := r.db.WithContext(ctx).
		Where("active = ?", true).
		Order("code").
		Find(&serviceTypes).Error
	if err != nil {
		return nil, err
	}
	return serviceTypes, nil
}

// ProductRepository defines the interface for product data access
type ProductRepository interface {
	Create(ctx context.Context, product *model.Product) (*model.Product, error)
	Update(ctx context.Context, product *model.Product) (*model.Product, error)
	GetByID(ctx context.Context, id string) (*model.Product, error)
	List(ctx context.Context) ([]*model.Product, error)
}

// productRepository implements ProductRepository
type productRepository struct {
	db *gorm.DB
}

// NewProductRepository creates a new product repository
func NewProductRepository(gdb *gorm.DB) ProductRepository {
	return &productRepository{db: gdb}
}

// Create creates a new product
func (r *productRepository) Create(ctx context.Context, product *model.Product) (*model.Product, error) {
	if err := r.db.WithContext(ctx).Create(product).Error; err != nil {
		return nil, err
	}
	return product, nil
}

// Update updates a product
func (r *productRepository) Update(ctx context.Context, product *model.Product) (*model.Product, error) {
	if err := r.db.WithContext(ctx).Save(product).Error; err != nil {
		return nil, err
	}
	return product, nil
}

// GetByID gets a product by ID
func (r *productRepository) GetByID(ctx context.Context, id string) (*model.Product, error) {
	var product model.Product
	err := r.db.WithContext(ctx).Where("uuid = ?", id).First(&product).Error
	if err != nil {
		if db.IsRecordNotFoundError(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &product, nil
}

// List lists all products
func (r *productRepository) List(ctx context.Context) ([]*model.Product, error) {
	var products []*model.Product
	if err := r.db.WithContext(ctx).Order("code").Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}
