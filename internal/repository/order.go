package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"example.com/backstage/services/fieldservice/internal/db"
	"example.com/backstage/services/fieldservice/internal/model"
)

// OrderFilter restricts the List query
type OrderFilter struct {
	State        model.OrderState
	Priority     model.OrderPriority
	CustomerID   string
	TechnicianID string
	EquipmentID  string
	From         *time.Time
	To           *time.Time
	Limit        int
	Offset       int
}

// OrderRepository defines the interface for service order data access
type OrderRepository interface {
	Create(ctx context.Context, order *model.ServiceOrder) (*model.ServiceOrder, error)
	Update(ctx context.Context, order *model.ServiceOrder) (*model.ServiceOrder, error)
	GetByID(ctx context.Context, id string) (*model.ServiceOrder, error)
	GetByIDForUpdate(ctx context.Context, tx *gorm.DB, id string) (*model.ServiceOrder, error)
	GetByNumber(ctx context.Context, number string) (*model.ServiceOrder, error)
	List(ctx context.Context, filter OrderFilter) ([]*model.ServiceOrder, error)
	FindActiveByTechnicianDay(ctx context.Context, tx *gorm.DB, technicianID string, day time.Time) ([]*model.ServiceOrder, error)
	FindOverdue(ctx context.Context, now time.Time) ([]*model.ServiceOrder, error)
	FindDoneWithoutInvoice(ctx context.Context, limit int) ([]*model.ServiceOrder, error)
	CreateLine(ctx context.Context, line *model.RefactionLine) (*model.RefactionLine, error)
	GetLine(ctx context.Context, lineID string) (*model.RefactionLine, error)
	DeleteLine(ctx context.Context, tx *gorm.DB, lineID string) error
	AppendLog(ctx context.Context, tx *gorm.DB, entry *model.OrderLog) error
	ListLogs(ctx context.Context, orderID string) ([]*model.OrderLog, error)
}

// orderRepository implements OrderRepository
type orderRepository struct {
	db *gorm.DB
}

// NewOrderRepository creates a new service order repository
func NewOrderRepository(gdb *gorm.DB) OrderRepository {
	return &orderRepository{db: gdb}
}

// Create creates a new service order
func (r *orderRepository) Create(ctx context.Context, order *model.ServiceOrder) (*model.ServiceOrder, error) {
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		return nil, err
	}
	return order, nil
}

// Update updates a service order
func (r *orderRepository) Update(ctx context.Context, order *model.ServiceOrder) (*model.ServiceOrder, error) {
	if err := r.db.WithContext(ctx).Save(order).Error; err != nil {
		return nil, err
	}
	return order, nil
}

func preloadOrder(query *gorm.DB) *gorm.DB {
	return query.
		Preload("Customer").
		Preload("Equipment").
		Preload("ServiceType").
		Preload("Technician").
		Preload("RefactionLines").
		Preload("RefactionLines.Product")
}

// GetByID gets a service order by ID with its associations loaded
func (r *orderRepository) GetByID(ctx context.Context, id string) (*model.ServiceOrder, error) {
	var order model.ServiceOrder
	err := preloadOrder(r.db.WithContext(ctx)).Where("uuid = ?", id).First(&order).Error
	if err != nil {
		if db.IsRecordNotFoundError(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &order, nil
}

// GetByIDForUpdate locks the order row inside the given transaction and
// returns it with lines loaded. Used by state transitions so concurrent
// requests on the same order serialize.
func (r *orderRepository) GetByIDForUpdate(ctx context.Context, tx *gorm.DB, id string) (*model.ServiceOrder, error) {
	var order model.ServiceOrder
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("uuid = ?", id).
		First(&order).Error
	if err != nil {
		if db.IsRecordNotFoundError(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if err := tx.WithContext(ctx).
		Preload("Product").
		Where("order_id = ?", id).
		Find(&order.RefactionLines).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// GetByNumber gets a service order by its order number
func (r *orderRepository) GetByNumber(ctx context.Context, number string) (*model.ServiceOrder, error) {
	var order model.ServiceOrder
	err := preloadOrder(r.db.WithContext(ctx)).Where("number = ?", number).First(&order).Error
	if err != nil {
		if db.IsRecordNotFoundError(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &order, nil
}

// List lists service orders matching the filter
func (r *orderRepository) List(ctx context.Context, filter OrderFilter) ([]*model.ServiceOrder, error) {
	query := r.db.WithContext(ctx).Model(&model.ServiceOrder{})

	if filter.State != "" {
		query = query.Where("state = ?", filter.State)
	}
	if filter.Priority != "" {
		query = query.Where("priority = ?", filter.Priority)
	}
	if filter.CustomerID != "" {
		query = query.Where("customer_id = ?", filter.CustomerID)
	}
	if filter.TechnicianID != "" {
		query = query.Where("technician_id = ?", filter.TechnicianID)
	}
	if filter.EquipmentID != "" {
		query = query.Where("equipment_id = ?", filter.EquipmentID)
	}
	if filter.From != nil {
		query = query.Where("scheduled_at >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("scheduled_at < ?", *filter.To)
	}

	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	var orders []*model.ServiceOrder
	err := query.
		Order("created_at DESC").
		Limit(limit).
		Offset(filter.Offset).
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// FindActiveByTechnicianDay returns the technician's non-terminal orders
// scheduled on the given calendar day. Runs on the provided transaction when
// one is given so capacity checks see a consistent snapshot.
func (r *orderRepository) FindActiveByTechnicianDay(ctx context.Context, tx *gorm.DB, technicianID string, day time.Time) ([]*model.ServiceOrder, error) {
	conn := tx
	if conn == nil {
		conn = r.db
	}

	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	dayEnd := dayStart.AddDate(0, 0, 1)

	var orders []*model.ServiceOrder
	err := conn.WithContext(ctx).
		Where("technician_id = ?", technicianID).
		Where("scheduled_at >= ? AND scheduled_at < ?", dayStart, dayEnd).
		Where("state NOT IN ?", []model.OrderState{model.OrderStateDone, model.OrderStateCancelled}).
		Order("scheduled_at").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// FindOverdue returns non-terminal orders scheduled before now that have not
// yet been flagged overdue
func (r *orderRepository) FindOverdue(ctx context.Context, now time.Time) ([]*model.ServiceOrder, error) {
	var orders []*model.ServiceOrder
	err := r.db.WithContext(ctx).
		Where("scheduled_at < ?", now).
		Where("state NOT IN ?", []model.OrderState{model.OrderStateDone, model.OrderStateCancelled}).
		Where("overdue_notified_at IS NULL").
		Order("scheduled_at").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// FindDoneWithoutInvoice returns completed orders that have no invoice yet
func (r *orderRepository) FindDoneWithoutInvoice(ctx context.Context, limit int) ([]*model.ServiceOrder, error) {
	if limit <= 0 {
		limit = 100
	}
	var orders []*model.ServiceOrder
	err := preloadOrder(r.db.WithContext(ctx)).
		Where("state = ?", model.OrderStateDone).
		Where("invoice_id IS NULL").
		Order("ended_at").
		Limit(limit).
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// CreateLine creates a refaction line
func (r *orderRepository) CreateLine(ctx context.Context, line *model.RefactionLine) (*model.RefactionLine, error) {
	if err := r.db.WithContext(ctx).Create(line).Error; err != nil {
		return nil, err
	}
	return line, nil
}

// GetLine gets a refaction line by ID
func (r *orderRepository) GetLine(ctx context.Context, lineID string) (*model.RefactionLine, error) {
	var line model.RefactionLine
	err := r.db.WithContext(ctx).Preload("Product").Where("uuid = ?", lineID).First(&line).Error
	if err != nil {
		if db.IsRecordNotFoundError(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &line, nil
}

// DeleteLine deletes a refaction line inside the given transaction
func (r *orderRepository) DeleteLine(ctx context.Context, tx *gorm.DB, lineID string) error {
	conn := tx
	if conn == nil {
		conn = r.db
	}
	result := conn.WithContext(ctx).Where("uuid = ?", lineID).Delete(&model.RefactionLine{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// AppendLog writes an audit log entry, joining the caller's transaction when
// one is given
func (r *orderRepository) AppendLog(ctx context.Context, tx *gorm.DB, entry *model.OrderLog) error {
	conn := tx
	if conn == nil {
		conn = r.db
	}
	return conn.WithContext(ctx).Create(entry).Error
}

// ListLogs returns the audit trail for an order, oldest first
func (r *orderRepository) ListLogs(ctx context.Context, orderID string) ([]*model.OrderLog, error) {
	var logs []*model.OrderLog
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at").
		Find(&logs).Error
	if err != nil {
		return nil, err
	}
	return logs, nil
}
