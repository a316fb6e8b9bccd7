package repository

import (
	"context"

	"gorm.io/gorm"

	"example.com/backstage/services/fieldservice/internal/db"
	"example.com/backstage/services/fieldservice/internal/model"
)

// InvoiceRepository defines the interface for invoice data access
type InvoiceRepository interface {
	Create(ctx context.Context, tx *gorm.DB, invoice *model.Invoice) (*model.Invoice, error)
	GetByID(ctx context.Context, id string) (*model.Invoice, error)
	GetByOrigin(ctx context.Context, origin string) (*model.Invoice, error)
	ListByCustomer(ctx context.Context, customerID string) ([]*model.Invoice, error)
}

// invoiceRepository implements InvoiceRepository
type invoiceRepository struct {
	db *gorm.DB
}

// NewInvoiceRepository creates a new invoice repository
func NewInvoiceRepository(gdb *gorm.DB) InvoiceRepository {
	return &invoiceRepository{db: gdb}
}

// Create creates an invoice with its lines, joining the caller's transaction
// when one is given
func (r *invoiceRepository) Create(ctx context.Context, tx *gorm.DB, invoice *model.Invoice) (*model.Invoice, error) {
	conn := tx
	if conn == nil {
		conn = r.db
	}
	if err := conn.WithContext(ctx).Create(invoice).Error; err != nil {
		return nil, err
	}
	return invoice, nil
}

// GetByID gets an invoice by ID with its lines
func (r *invoiceRepository) GetByID(ctx context.Context, id string) (*model.Invoice, error) {
	var invoice model.Invoice
	err := r.db.WithContext(ctx).Preload("Lines").Where("uuid = ?", id).First(&invoice).Error
	if err != nil {
		if db.IsRecordNotFoundError(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &invoice, nil
}

// GetByOrigin gets the invoice generated for an origin document number
func (r *invoiceRepository) GetByOrigin(ctx context.Context, origin string) (*model.Invoice, error) {
	var invoice model.Invoice
	err := r.db.WithContext(ctx).Preload("Lines").Where("origin = ?", origin).First(&invoice).Error
	if err != nil {
		if db.IsRecordNotFoundError(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &invoice, nil
}

// ListByCustomer lists invoices issued to a customer
func (r *invoiceRepository) ListByCustomer(ctx context.Context, customerID string) ([]*model.Invoice, error) {
	var invoices []*model.Invoice
	err := r.db.WithContext(ctx).
		Where("customer_id = ?", customerID).
		Order("created_at DESC").
		Find(&invoices).Error
	if err != nil {
		return nil, err
	}
	return invoices, nil
}
