package service

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"example.com/backstage/services/fieldservice/config"
	"example.com/backstage/services/fieldservice/internal/model"
	"example.com/backstage/services/fieldservice/internal/repository"
	"example.com/backstage/services/fieldservice/internal/scheduling"
)

// CatalogService manages customers, equipment, technicians and reference
// data
type CatalogService struct {
	db              *gorm.DB
	customerRepo    repository.CustomerRepository
	equipmentRepo   repository.EquipmentRepository
	technicianRepo  repository.TechnicianRepository
	serviceTypeRepo repository.ServiceTypeRepository
	productRepo     repository.ProductRepository
	sequences       repository.SequenceGenerator
	scheduling      config.SchedulingConfig
	validate        *validator.Validate
}

// NewCatalogService creates a new catalog service
func NewCatalogService(
	db *gorm.DB,
	customerRepo repository.CustomerRepository,
	equipmentRepo repository.EquipmentRepository,
	technicianRepo repository.TechnicianRepository,
	serviceTypeRepo repository.ServiceTypeRepository,
	productRepo repository.ProductRepository,
	sequences repository.SequenceGenerator,
	schedulingCfg config.SchedulingConfig,
) *CatalogService {
	return &CatalogService{
		db:              db,
		customerRepo:    customerRepo,
		equipmentRepo:   equipmentRepo,
		technicianRepo:  technicianRepo,
		serviceTypeRepo: serviceTypeRepo,
		productRepo:     productRepo,
		sequences:       sequences,
		scheduling:      schedulingCfg,
		validate:        validator.New(),
	}
}

// CustomerRequest is the payload for creating or updating a customer
type CustomerRequest struct {
	Name            string `json:"name" validate:"required"`
	Email           string `json:"email" validate:"omitempty,email"`
	Phone           string `json:"phone"`
	SecondaryPhone  string `json:"secondary_phone"`
	IsServiceClient bool   `json:"is_service_client"`
	Notes           string `json:"notes"`
}

// CreateCustomer creates a customer. Service clients get a client sequence
// assigned immediately.
func (s *CatalogService) CreateCustomer(ctx context.Context, req *CustomerRequest) (*model.Customer, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, NewValidationError("", err.Error())
	}

	customer := &model.Customer{
		Base:            model.Base{UUID: uuid.New().String()},
		Name:            req.Name,
		Email:           req.Email,
		Phone:           req.Phone,
		SecondaryPhone:  req.SecondaryPhone,
		IsServiceClient: req.IsServiceClient,
		Notes:           req.Notes,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if customer.IsServiceClient {
			sequence, err := s.sequences.Next(ctx, tx, model.SequenceClient)
			if err != nil {
				return errors.Wrap(err, "failed to generate client sequence")
			}
			customer.ClientSequence = &sequence
		}
		return tx.WithContext(ctx).Create(customer).Error
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("customer_id", customer.UUID).Str("name", customer.Name).Msg("customer created")
	return customer, nil
}

// UpdateCustomer updates a customer. The client sequence is assigned once,
// when the customer first becomes a service client, and never changes after
// that.
func (s *CatalogService) UpdateCustomer(ctx context.Context, id string, req *CustomerRequest) (*model.Customer, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, NewValidationError("", err.Error())
	}

	var customer *model.Customer
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		customer, err = s.customerRepo.GetByID(ctx, id)
		if err != nil {
			return err
		}

		customer.Name = req.Name
		customer.Email = req.Email
		customer.Phone = req.Phone
		customer.SecondaryPhone = req.SecondaryPhone
		customer.IsServiceClient = req.IsServiceClient
		customer.Notes = req.Notes

		if customer.IsServiceClient && customer.ClientSequence == nil {
			sequence, err := s.sequences.Next(ctx, tx, model.SequenceClient)
			if err != nil {
				return errors.Wrap(err, "failed to generate client sequence")
			}
			customer.ClientSequence = &sequence
		}

		return tx.WithContext(ctx).Save(customer).Error
	})
	if err != nil {
		return nil, err
	}
	return customer, nil
}

// GetCustomer returns a customer by ID
func (s *CatalogService) GetCustomer(ctx context.Context, id string) (*model.Customer, error) {
	return s.customerRepo.GetByID(ctx, id)
}

// ListCustomers lists customers, optionally only service clients
func (s *CatalogService) ListCustomers(ctx context.Context, serviceClientsOnly bool) ([]*model.Customer, error) {
	return s.customerRepo.List(ctx, serviceClientsOnly)
}

// EquipmentRequest is the payload for registering equipment
type EquipmentRequest struct {
	EquipmentType string `json:"equipment_type" validate:"required"`
	Brand         string `json:"brand" validate:"required"`
	Model         string `json:"model"`
	SerialNumber  string `json:"serial_number"`
	Location      string `json:"location"`
	CustomerID    string `json:"customer_id" validate:"required,uuid4"`
}

// CreateEquipment registers equipment for a customer with a generated code.
// Serial numbers must be unique across the fleet.
func (s *CatalogService) CreateEquipment(ctx context.Context, req *EquipmentRequest) (*model.Equipment, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, NewValidationError("", err.Error())
	}

	if _, err := s.customerRepo.GetByID(ctx, req.CustomerID); err != nil {
		return nil, err
	}

	if req.SerialNumber != "" {
		existing, err := s.equipmentRepo.GetBySerial(ctx, req.SerialNumber)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		if existing != nil {
			return nil, NewConflictError("serial number already registered")
		}
	}

	equipment := &model.Equipment{
		Base:          model.Base{UUID: uuid.New().String()},
		EquipmentType: req.EquipmentType,
		Brand:         req.Brand,
		Model:         req.Model,
		Location:      req.Location,
		CustomerID:    req.CustomerID,
		Active:        true,
	}
	if req.SerialNumber != "" {
		serial := req.SerialNumber
		equipment.SerialNumber = &serial
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		code, err := s.sequences.Next(ctx, tx, model.SequenceEquipment)
		if err != nil {
			return errors.Wrap(err, "failed to generate equipment code")
		}
		equipment.Code = code
		return tx.WithContext(ctx).Create(equipment).Error
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("equipment_id", equipment.UUID).Str("code", equipment.Code).Msg("equipment registered")
	return equipment, nil
}

// GetEquipment returns equipment by ID with its owner loaded
func (s *CatalogService) GetEquipment(ctx context.Context, id string) (*model.Equipment, error) {
	return s.equipmentRepo.GetByID(ctx, id)
}

// ListCustomerEquipment lists equipment owned by a customer
func (s *CatalogService) ListCustomerEquipment(ctx context.Context, customerID string) ([]*model.Equipment, error) {
	return s.equipmentRepo.ListByCustomer(ctx, customerID)
}

// EquipmentCard is the public view behind the QR code on the equipment
type EquipmentCard struct {
	LookupKey     string     `json:"lookup_key"`
	Code          string     `json:"code"`
	EquipmentType string     `json:"equipment_type"`
	Brand         string     `json:"brand"`
	Model         string     `json:"model"`
	Location      string     `json:"location"`
	CustomerName  string     `json:"customer_name"`
	OpenOrders    int64      `json:"open_orders"`
	LastServiced  *time.Time `json:"last_serviced,omitempty"`
}

// LookupEquipment resolves a QR lookup key of the form
// <client_sequence>-<equipment_code> and verifies ownership
func (s *CatalogService) LookupEquipment(ctx context.Context, key string) (*EquipmentCard, error) {
	idx := strings.Index(key, "-")
	if idx <= 0 || idx == len(key)-1 {
		return nil, NewValidationError("key", "malformed lookup key")
	}
	clientSequence := key[:idx]
	equipmentCode := key[idx+1:]

	customer, err := s.customerRepo.GetBySequence(ctx, clientSequence)
	if err != nil {
		return nil, err
	}

	equipment, err := s.equipmentRepo.GetByCode(ctx, equipmentCode)
	if err != nil {
		return nil, err
	}
	if equipment.CustomerID != customer.UUID {
		return nil, repository.ErrNotFound
	}

	lastServiced, err := s.equipmentRepo.LastServiceDate(ctx, equipment.UUID)
	if err != nil {
		return nil, err
	}

	openOrders, err := s.equipmentRepo.CountOpenOrders(ctx, equipment.UUID)
	if err != nil {
		return nil, err
	}

	return &EquipmentCard{
		LookupKey:     key,
		Code:          equipment.Code,
		EquipmentType: equipment.EquipmentType,
		Brand:         equipment.Brand,
		Model:         equipment.Model,
		Location:      equipment.Location,
		CustomerName:  customer.Name,
		OpenOrders:    openOrders,
		LastServiced:  lastServiced,
	}, nil
}

// TechnicianRequest is the payload for creating or updating a technician.
// AvailableHours and MaxDailyOrders fall back to the configured scheduling
// defaults when omitted.
type TechnicianRequest struct {
	Name           string `json:"name" validate:"required"`
	Email          string `json:"email" validate:"omitempty,email"`
	Phone          string `json:"phone"`
	AvailableHours string `json:"available_hours"`
	MaxDailyOrders int    `json:"max_daily_orders" validate:"omitempty,gte=1,lte=24"`
	Level          string `json:"level"`
	Specialties    string `json:"specialties"`
}

func (s *CatalogService) applySchedulingDefaults(req *TechnicianRequest) {
	if req.AvailableHours == "" {
		req.AvailableHours = s.scheduling.DefaultAvailableHours
	}
	if req.MaxDailyOrders == 0 {
		req.MaxDailyOrders = s.scheduling.DefaultMaxDailyOrders
	}
}

// CreateTechnician registers a technician with validated availability hours
func (s *CatalogService) CreateTechnician(ctx context.Context, req *TechnicianRequest) (*model.Technician, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, NewValidationError("", err.Error())
	}
	s.applySchedulingDefaults(req)
	if err := scheduling.ValidateHours(req.AvailableHours); err != nil {
		return nil, NewValidationError("available_hours", err.Error())
	}

	technician := &model.Technician{
		Base:           model.Base{UUID: uuid.New().String()},
		Name:           req.Name,
		Email:          req.Email,
		Phone:          req.Phone,
		IsTechnician:   true,
		AvailableHours: req.AvailableHours,
		MaxDailyOrders: req.MaxDailyOrders,
		Level:          req.Level,
		Specialties:    req.Specialties,
	}
	return s.technicianRepo.Create(ctx, technician)
}

// UpdateTechnician updates a technician's profile and availability
func (s *CatalogService) UpdateTechnician(ctx context.Context, id string, req *TechnicianRequest) (*model.Technician, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, NewValidationError("", err.Error())
	}
	s.applySchedulingDefaults(req)
	if err := scheduling.ValidateHours(req.AvailableHours); err != nil {
		return nil, NewValidationError("available_hours", err.Error())
	}

	technician, err := s.technicianRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	technician.Name = req.Name
	technician.Email = req.Email
	technician.Phone = req.Phone
	technician.AvailableHours = req.AvailableHours
	technician.MaxDailyOrders = req.MaxDailyOrders
	technician.Level = req.Level
	technician.Specialties = req.Specialties

	return s.technicianRepo.Update(ctx, technician)
}

// ListTechnicians lists all technicians
func (s *CatalogService) ListTechnicians(ctx context.Context) ([]*model.Technician, error) {
	return s.technicianRepo.ListTechnicians(ctx)
}

// GetTechnician returns a technician by ID
func (s *CatalogService) GetTechnician(ctx context.Context, id string) (*model.Technician, error) {
	return s.technicianRepo.GetByID(ctx, id)
}

// ServiceTypeRequest is the payload for reference service types
type ServiceTypeRequest struct {
	Code              string  `json:"code" validate:"required"`
	Name              string  `json:"name" validate:"required"`
	Description       string  `json:"description"`
	BasePrice         float64 `json:"base_price" validate:"gte=0"`
	EstimatedDuration float64 `json:"estimated_duration" validate:"gte=0"`
	IncomeAccount     string  `json:"income_account"`
	Active            bool    `json:"active"`
}

// CreateServiceType creates a service type
func (s *CatalogService) CreateServiceType(ctx context.Context, req *ServiceTypeRequest) (*model.ServiceType, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, NewValidationError("", err.Error())
	}

	existing, err := s.serviceTypeRepo.GetByCode(ctx, req.Code)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	if existing != nil {
		return nil, NewConflictError("service type code already exists")
	}

	return s.serviceTypeRepo.Create(ctx, &model.ServiceType{
		Base:              model.Base{UUID: uuid.New().String()},
		Code:              req.Code,
		Name:              req.Name,
		Description:       req.Description,
		BasePrice:         req.BasePrice,
		EstimatedDuration: req.EstimatedDuration,
		IncomeAccount:     req.IncomeAccount,
		Active:            req.Active,
	})
}

// ListServiceTypes lists active service types
func (s *CatalogService) ListServiceTypes(ctx context.Context) ([]*model.ServiceType, error) {
	return s.serviceTypeRepo.ListActive(ctx)
}

// ProductRequest is the payload for stockable products
type ProductRequest struct {
	Code                  string  `json:"code" validate:"required"`
	Name                  string  `json:"name" validate:"required"`
	ListPrice             float64 `json:"list_price" validate:"gte=0"`
	IncomeAccount         string  `json:"income_account"`
	CategoryIncomeAccount string  `json:"category_income_account"`
	QtyOnHand             float64 `json:"qty_on_hand" validate:"gte=0"`
}

// CreateProduct creates a product
func (s *CatalogService) CreateProduct(ctx context.Context, req *ProductRequest) (*model.Product, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, NewValidationError("", err.Error())
	}

	return s.productRepo.Create(ctx, &model.Product{
		Base:                  model.Base{UUID: uuid.New().String()},
		Code:                  req.Code,
		Name:                  req.Name,
		ListPrice:             req.ListPrice,
		IncomeAccount:         req.IncomeAccount,
		CategoryIncomeAccount: req.CategoryIncomeAccount,
		QtyOnHand:             req.QtyOnHand,
	})
}

// ListProducts lists all products
func (s *CatalogService) ListProducts(ctx context.Context) ([]*model.Product, error) {
	return s.productRepo.List(ctx)
}
