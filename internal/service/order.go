package service

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"example.com/backstage/services/fieldservice/internal/cache"
	"example.com/backstage/services/fieldservice/internal/inventory"
	"example.com/backstage/services/fieldservice/internal/metrics"
	"example.com/backstage/services/fieldservice/internal/model"
	"example.com/backstage/services/fieldservice/internal/notify"
	"example.com/backstage/services/fieldservice/internal/repository"
	"example.com/backstage/services/fieldservice/internal/search"
	"example.com/backstage/services/fieldservice/internal/tracing"
)

// OrderService handles service order business logic
type OrderService struct {
	db              *gorm.DB
	orderRepo       repository.OrderRepository
	customerRepo    repository.CustomerRepository
	equipmentRepo   repository.EquipmentRepository
	serviceTypeRepo repository.ServiceTypeRepository
	productRepo     repository.ProductRepository
	sequences       repository.SequenceGenerator
	registry        *RegistryService
	inventory       inventory.Service
	notifier        notify.Notifier
	indexer         search.Indexer
	cache           cache.CacheClient
	metrics         *metrics.Metrics
	tracer          tracing.Tracer
	validate        *validator.Validate
	now             func() time.Time
}

// NewOrderService creates a new order service
func NewOrderService(
	db *gorm.DB,
	orderRepo repository.OrderRepository,
	customerRepo repository.CustomerRepository,
	equipmentRepo repository.EquipmentRepository,
	serviceTypeRepo repository.ServiceTypeRepository,
	productRepo repository.ProductRepository,
	sequences repository.SequenceGenerator,
	registry *RegistryService,
	inventoryService inventory.Service,
	notifier notify.Notifier,
	indexer search.Indexer,
	cacheClient cache.CacheClient,
	metricsCollector *metrics.Metrics,
	tracer tracing.Tracer,
) *OrderService {
	return &OrderService{
		db:              db,
		orderRepo:       orderRepo,
		customerRepo:    customerRepo,
		equipmentRepo:   equipmentRepo,
		serviceTypeRepo: serviceTypeRepo,
		productRepo:     productRepo,
		sequences:       sequences,
		registry:        registry,
		inventory:       inventoryService,
		notifier:        notifier,
		indexer:         indexer,
		cache:           cacheClient,
		metrics:         metricsCollector,
		tracer:          tracer,
		validate:        validator.New(),
		now:             time.Now,
	}
}

// CreateOrderRequest is the payload for opening a new service order
type CreateOrderRequest struct {
	CustomerID    string `json:"customer_id" validate:"required,uuid4"`
	EquipmentID   string `json:"equipment_id" validate:"required,uuid4"`
	ServiceTypeID string `json:"service_type_id" validate:"required,uuid4"`
	ReportedFault string `json:"reported_fault" validate:"required"`
	Priority      string `json:"priority" validate:"omitempty,oneof=low normal high urgent"`
	Notes         string `json:"notes"`
}

// CreateOrder opens a new order in draft state with a generated number
func (s *OrderService) CreateOrder(ctx context.Context, req *CreateOrderRequest) (*model.ServiceOrder, error) {
	txn := s.tracer.StartTransaction("create-order")
	defer s.tracer.EndTransaction(txn)

	if err := s.validate.Struct(req); err != nil {
		return nil, NewValidationError("", err.Error())
	}

	customer, err := s.customerRepo.GetByID(ctx, req.CustomerID)
	if err != nil {
		return nil, err
	}
	if !customer.IsServiceClient {
		return nil, NewValidationError("customer_id", "customer is not a service client")
	}

	equipment, err := s.equipmentRepo.GetByID(ctx, req.EquipmentID)
	if err != nil {
		return nil, err
	}
	if equipment.CustomerID != customer.UUID {
		return nil, NewValidationError("equipment_id", "equipment does not belong to the customer")
	}
	if !equipment.Active {
		return nil, NewValidationError("equipment_id", "equipment is inactive")
	}

	serviceType, err := s.serviceTypeRepo.GetByID(ctx, req.ServiceTypeID)
	if err != nil {
		return nil, err
	}
	if !serviceType.Active {
		return nil, NewValidationError("service_type_id", "service type is inactive")
	}

	priority := model.OrderPriority(req.Priority)
	if req.Priority == "" {
		priority = model.PriorityNormal
	}

	order := &model.ServiceOrder{
		Base:             model.Base{UUID: uuid.New().String()},
		CustomerID:       customer.UUID,
		EquipmentID:      equipment.UUID,
		ServiceTypeID:    serviceType.UUID,
		State:            model.OrderStateDraft,
		Priority:         priority,
		ReportedFault:    req.ReportedFault,
		Notes:            req.Notes,
		AcceptanceStatus: model.AcceptancePending,
		TotalAmount:      serviceType.BasePrice,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		number, err := s.sequences.Next(ctx, tx, model.SequenceServiceOrder)
		if err != nil {
			return errors.Wrap(err, "failed to generate order number")
		}
		order.Number = number

		if err := tx.WithContext(ctx).Create(order).Error; err != nil {
			return errors.Wrap(err, "failed to create order")
		}

		return s.orderRepo.AppendLog(ctx, tx, &model.OrderLog{
			Base:     model.Base{UUID: uuid.New().String()},
			OrderID:  order.UUID,
			OldState: "",
			NewState: string(model.OrderStateDraft),
			Note:     "order created",
		})
	})
	if err != nil {
		s.tracer.RecordError(txn, err)
		s.metrics.RecordError("create_order")
		return nil, err
	}

	s.metrics.IncrementCounter("orders_created")
	s.metrics.RecordSuccess("create_order")

	log.Info().
		Str("order_id", order.UUID).
		Str("number", order.Number).
		Str("customer_id", order.CustomerID).
		Msg("service order created")

	s.indexOrder(ctx, order)
	return s.GetOrder(ctx, order.UUID)
}

// GetOrder returns an order by ID, trying the cache first
func (s *OrderService) GetOrder(ctx context.Context, id string) (*model.ServiceOrder, error) {
	if cached, err := s.cache.GetOrder(ctx, id); err == nil {
		return cached, nil
	}

	order, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.cache.SetOrder(ctx, order); err != nil {
		log.Warn().Err(err).Str("order_id", id).Msg("failed to cache order")
	}
	return order, nil
}

// GetOrderByNumber returns an order by its public number
func (s *OrderService) GetOrderByNumber(ctx context.Context, number string) (*model.ServiceOrder, error) {
	if cached, err := s.cache.GetOrderByNumber(ctx, number); err == nil {
		return cached, nil
	}

	order, err := s.orderRepo.GetByNumber(ctx, number)
	if err != nil {
		return nil, err
	}

	if err := s.cache.SetOrderByNumber(ctx, order); err != nil {
		log.Warn().Err(err).Str("number", number).Msg("failed to cache order")
	}
	return order, nil
}

// ListOrders lists orders matching the filter
func (s *OrderService) ListOrders(ctx context.Context, filter repository.OrderFilter) ([]*model.ServiceOrder, error) {
	return s.orderRepo.List(ctx, filter)
}

// GetOrderLogs returns the audit trail for an order
func (s *OrderService) GetOrderLogs(ctx context.Context, orderID string) ([]*model.OrderLog, error) {
	if _, err := s.orderRepo.GetByID(ctx, orderID); err != nil {
		return nil, err
	}
	return s.orderRepo.ListLogs(ctx, orderID)
}

// PublicStatus is the customer-facing view of an order
type PublicStatus struct {
	Number          string     `json:"number"`
	State           string     `json:"state"`
	StateLabel      string     `json:"state_label"`
	ProgressPercent int        `json:"progress_percent"`
	Priority        string     `json:"priority"`
	ScheduledAt     *time.Time `json:"scheduled_at,omitempty"`
	TechnicianName  string     `json:"technician_name,omitempty"`
	EquipmentCode   string     `json:"equipment_code,omitempty"`
	TotalAmount     float64    `json:"total_amount"`
}

// GetPublicStatus returns the portal view of an order looked up by number,
// served from the by-number cache when it is warm
func (s *OrderService) GetPublicStatus(ctx context.Context, number string) (*PublicStatus, error) {
	order, err := s.GetOrderByNumber(ctx, number)
	if err != nil {
		return nil, err
	}

	status := &PublicStatus{
		Number:          order.Number,
		State:           string(order.State),
		StateLabel:      order.State.Label(),
		ProgressPercent: order.State.ProgressPercent(),
		Priority:        string(order.Priority),
		ScheduledAt:     order.ScheduledAt,
		TotalAmount:     order.TotalAmount,
	}
	if order.Technician != nil {
		status.TechnicianName = order.Technician.Name
	}
	if order.Equipment != nil {
		status.EquipmentCode = order.Equipment.Code
	}
	return status, nil
}

// AddLineRequest is the payload for attaching a refaction line
type AddLineRequest struct {
	ProductID   string  `json:"product_id" validate:"required,uuid4"`
	Quantity    float64 `json:"quantity" validate:"required,gt=0"`
	UnitPrice   *float64 `json:"unit_price" validate:"omitempty,gte=0"`
	Description string  `json:"description"`
}

// States in which the parts list may still change
var lineMutableStates = map[model.OrderState]bool{
	model.OrderStateDraft:      true,
	model.OrderStateAssigned:   true,
	model.OrderStateInProgress: true,
}

// AddLine attaches a refaction line to the order, reserves the stock and
// recomputes the order total
func (s *OrderService) AddLine(ctx context.Context, orderID string, req *AddLineRequest) (*model.RefactionLine, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, NewValidationError("", err.Error())
	}

	product, err := s.productRepo.GetByID(ctx, req.ProductID)
	if err != nil {
		return nil, err
	}

	unitPrice := product.ListPrice
	if req.UnitPrice != nil {
		unitPrice = *req.UnitPrice
	}

	line := &model.RefactionLine{
		Base:        model.Base{UUID: uuid.New().String()},
		ProductID:   product.UUID,
		Quantity:    req.Quantity,
		UnitPrice:   unitPrice,
		Description: req.Description,
	}
	line.RecomputeTotal()

	var order *model.ServiceOrder
	err = s.db.Transaction(func(tx *gorm.DB) error {
		order, err = s.orderRepo.GetByIDForUpdate(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if !lineMutableStates[order.State] {
			return NewPreconditionError("add line", order.State)
		}

		line.OrderID = order.UUID
		if err := tx.WithContext(ctx).Create(line).Error; err != nil {
			return errors.Wrap(err, "failed to create refaction line")
		}

		if err := s.inventory.Reserve(ctx, tx, line); err != nil {
			return err
		}

		return s.recomputeTotal(ctx, tx, order, line, "")
	})
	if err != nil {
		return nil, err
	}

	s.invalidateOrder(ctx, order)
	return line, nil
}

// RemoveLine detaches a refaction line, releases its stock hold and
// recomputes the order total
func (s *OrderService) RemoveLine(ctx context.Context, orderID, lineID string) error {
	line, err := s.orderRepo.GetLine(ctx, lineID)
	if err != nil {
		return err
	}
	if line.OrderID != orderID {
		return NewValidationError("line_id", "line does not belong to the order")
	}

	var order *model.ServiceOrder
	err = s.db.Transaction(func(tx *gorm.DB) error {
		order, err = s.orderRepo.GetByIDForUpdate(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if !lineMutableStates[order.State] {
			return NewPreconditionError("remove line", order.State)
		}

		if err := s.inventory.Release(ctx, tx, lineID); err != nil {
			return err
		}
		if err := s.orderRepo.DeleteLine(ctx, tx, lineID); err != nil {
			return err
		}

		return s.recomputeTotal(ctx, tx, order, nil, lineID)
	})
	if err != nil {
		return err
	}

	s.invalidateOrder(ctx, order)
	return nil
}

// recomputeTotal recalculates and persists the order total inside the
// transaction. The order's lines were loaded before this call's mutation so
// added is appended and removedID is skipped.
func (s *OrderService) recomputeTotal(ctx context.Context, tx *gorm.DB, order *model.ServiceOrder, added *model.RefactionLine, removedID string) error {
	serviceType, err := s.serviceTypeRepo.GetByID(ctx, order.ServiceTypeID)
	if err != nil {
		return err
	}

	lines := make([]model.RefactionLine, 0, len(order.RefactionLines)+1)
	for _, line := range order.RefactionLines {
		if removedID != "" && line.UUID == removedID {
			continue
		}
		lines = append(lines, line)
	}
	if added != nil {
		lines = append(lines, *added)
	}

	order.RefactionLines = lines
	order.RecomputeTotal(serviceType.BasePrice)

	return tx.WithContext(ctx).Model(&model.ServiceOrder{}).
		Where("uuid = ?", order.UUID).
		Update("total_amount", order.TotalAmount).Error
}

// indexOrder pushes the order into the search index. Failures are logged,
// never surfaced.
func (s *OrderService) indexOrder(ctx context.Context, order *model.ServiceOrder) {
	if err := s.indexer.IndexOrder(ctx, order); err != nil {
		log.Warn().Err(err).Str("order_id", order.UUID).Msg("failed to index order")
	}
}

// invalidateOrder drops the order and its number alias from the cache after
// a mutation
func (s *OrderService) invalidateOrder(ctx context.Context, order *model.ServiceOrder) {
	if err := s.cache.DeleteOrder(ctx, order.UUID, order.Number); err != nil {
		log.Warn().Err(err).Str("order_id", order.UUID).Msg("failed to invalidate order cache")
	}
}

// SearchOrders runs a full-text query against the search index
func (s *OrderService) SearchOrders(ctx context.Context, text string, limit int) ([]map[string]interface{}, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	query := map[string]interface{}{
		"size": limit,
		"query": map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  text,
				"fields": []string{"number^3", "reported_fault", "diagnosis", "work_performed", "customer_name", "equipment_code"},
			},
		},
	}
	return s.indexer.SearchOrders(ctx, query)
}
