package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"example.com/backstage/services/fieldservice/internal/metrics"
	"example.com/backstage/services/fieldservice/internal/model"
	"example.com/backstage/services/fieldservice/internal/notify"
	"example.com/backstage/services/fieldservice/internal/repository"
	"example.com/backstage/services/fieldservice/internal/tracing"
)

// BillingService turns completed orders into invoices
type BillingService struct {
	db              *gorm.DB
	orderRepo       repository.OrderRepository
	invoiceRepo     repository.InvoiceRepository
	serviceTypeRepo repository.ServiceTypeRepository
	sequences       repository.SequenceGenerator
	notifier        notify.Notifier
	metrics         *metrics.Metrics
	tracer          tracing.Tracer
}

// NewBillingService creates a new billing service
func NewBillingService(
	db *gorm.DB,
	orderRepo repository.OrderRepository,
	invoiceRepo repository.InvoiceRepository,
	serviceTypeRepo repository.ServiceTypeRepository,
	sequences repository.SequenceGenerator,
	notifier notify.Notifier,
	metricsCollector *metrics.Metrics,
	tracer tracing.Tracer,
) *BillingService {
	return &BillingService{
		db:              db,
		orderRepo:       orderRepo,
		invoiceRepo:     invoiceRepo,
		serviceTypeRepo: serviceTypeRepo,
		sequences:       sequences,
		notifier:        notifier,
		metrics:         metricsCollector,
		tracer:          tracer,
	}
}

// GenerateForOrder creates the invoice for a completed order. Idempotent:
// an order that already carries an invoice returns the existing one. The
// invoice gets one line for the service base price (when positive) and one
// line per refaction part, each carrying the product's income account with
// category fallback.
func (s *BillingService) GenerateForOrder(ctx context.Context, orderID string) (*model.Invoice, error) {
	txn := s.tracer.StartTransaction("generate-invoice")
	defer s.tracer.EndTransaction(txn)

	var invoice *model.Invoice
	err := s.db.Transaction(func(tx *gorm.DB) error {
		order, err := s.orderRepo.GetByIDForUpdate(ctx, tx, orderID)
		if err != nil {
			return err
		}

		if order.State != model.OrderStateDone {
			return NewPreconditionError("invoice", order.State)
		}
		if order.InvoiceID != nil {
			invoice, err = s.invoiceRepo.GetByID(ctx, *order.InvoiceID)
			return err
		}

		serviceType, err := s.serviceTypeRepo.GetByID(ctx, order.ServiceTypeID)
		if err != nil {
			return err
		}

		lines, total, err := buildInvoiceLines(order, serviceType)
		if err != nil {
			return err
		}

		number, err := s.sequences.Next(ctx, tx, model.SequenceInvoice)
		if err != nil {
			return errors.Wrap(err, "failed to generate invoice number")
		}

		invoice = &model.Invoice{
			Base:       model.Base{UUID: uuid.New().String()},
			Number:     number,
			CustomerID: order.CustomerID,
			Origin:     order.Number,
			Total:      total,
			Lines:      lines,
		}
		if _, err := s.invoiceRepo.Create(ctx, tx, invoice); err != nil {
			return errors.Wrap(err, "failed to create invoice")
		}

		return tx.WithContext(ctx).Model(&model.ServiceOrder{}).
			Where("uuid = ?", order.UUID).
			Update("invoice_id", invoice.UUID).Error
	})
	if err != nil {
		s.tracer.RecordError(txn, err)
		s.metrics.RecordError("generate_invoice")
		return nil, err
	}

	s.metrics.IncrementCounter("invoices_created")
	s.metrics.RecordSuccess("generate_invoice")

	log.Info().
		Str("invoice_id", invoice.UUID).
		Str("number", invoice.Number).
		Str("origin", invoice.Origin).
		Float64("total", invoice.Total).
		Msg("invoice generated")

	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err == nil {
		s.notifier.Publish(ctx, notify.OrderEvent(notify.EventInvoiceCreated, order, invoice.Number))
	}
	return invoice, nil
}

// buildInvoiceLines assembles the billed lines and total for the order
func buildInvoiceLines(order *model.ServiceOrder, serviceType *model.ServiceType) ([]model.InvoiceLine, float64, error) {
	var lines []model.InvoiceLine
	var total float64

	if serviceType.BasePrice > 0 {
		if serviceType.IncomeAccount == "" {
			return nil, 0, NewValidationError("income_account",
				fmt.Sprintf("service type %s has no income account", serviceType.Code))
		}
		lines = append(lines, model.InvoiceLine{
			Base:        model.Base{UUID: uuid.New().String()},
			Description: serviceType.Name,
			Quantity:    1,
			UnitPrice:   serviceType.BasePrice,
			AccountCode: serviceType.IncomeAccount,
		})
		total += serviceType.BasePrice
	}

	for _, line := range order.RefactionLines {
		if line.Product == nil {
			return nil, 0, errors.Errorf("refaction line %s has no product loaded", line.UUID)
		}
		account := line.Product.IncomeAccountCode()
		if account == "" {
			return nil, 0, NewValidationError("income_account",
				fmt.Sprintf("product %s has no income account", line.Product.Code))
		}
		productID := line.ProductID
		lines = append(lines, model.InvoiceLine{
			Base:        model.Base{UUID: uuid.New().String()},
			ProductID:   &productID,
			Description: line.Product.Name,
			Quantity:    line.Quantity,
			UnitPrice:   line.UnitPrice,
			AccountCode: account,
		})
		total += line.TotalPrice
	}

	return lines, total, nil
}

// SweepUninvoiced generates invoices for completed orders that missed the
// post-completion generation, a fallback driven by the worker
func (s *BillingService) SweepUninvoiced(ctx context.Context, batchSize int) (int, error) {
	orders, err := s.orderRepo.FindDoneWithoutInvoice(ctx, batchSize)
	if err != nil {
		return 0, err
	}

	created := 0
	for _, order := range orders {
		if _, err := s.GenerateForOrder(ctx, order.UUID); err != nil {
			log.Error().Err(err).Str("order_id", order.UUID).Msg("failed to generate invoice in sweep")
			continue
		}
		created++
	}

	if created > 0 {
		log.Info().Int("count", created).Msg("invoices generated by sweep")
	}
	return created, nil
}

// GetInvoice returns an invoice by ID
func (s *BillingService) GetInvoice(ctx context.Context, id string) (*model.Invoice, error) {
	return s.invoiceRepo.GetByID(ctx, id)
}

// ListCustomerInvoices lists invoices issued to a customer
func (s *BillingService) ListCustomerInvoices(ctx context.Context, customerID string) ([]*model.Invoice, error) {
	return s.invoiceRepo.ListByCustomer(ctx, customerID)
}
