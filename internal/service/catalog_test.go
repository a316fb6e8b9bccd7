package service

import (
	"context"
	"testing"
	"time"

	"example.com/backstage/services/fieldservice/config"
	"example.com/backstage/services/fieldservice/internal/model"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockCustomerRepository struct {
	mock.Mock
}

func (m *MockCustomerRepository) Create(ctx context.Context, customer *model.Customer) (*model.Customer, error) {
	args := m.Called(ctx, customer)
	return args.Get(0).(*model.Customer), args.Error(1)
}

func (m *MockCustomerRepository) Update(ctx context.Context, customer *model.Customer) (*model.Customer, error) {
	args := m.Called(ctx, customer)
	return args.Get(0).(*model.Customer), args.Error(1)
}

func (m *MockCustomerRepository) GetByID(ctx context.Context, id string) (*model.Customer, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Customer), args.Error(1)
}

func (m *MockCustomerRepository) GetBySequence(ctx context.Context, sequence string) (*model.Customer, error) {
	args := m.Called(ctx, sequence)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Customer), args.Error(1)
}

func (m *MockCustomerRepository) List(ctx context.Context, serviceClientsOnly bool) ([]*model.Customer, error) {
	args := m.Called(ctx, serviceClientsOnly)
	return args.Get(0).([]*model.Customer), args.Error(1)
}

func (m *MockCustomerRepository) CountOrders(ctx context.Context, customerID string) (int64, error) {
	args := m.Called(ctx, customerID)
	return args.Get(0).(int64), args.Error(1)
}

type MockEquipmentRepository struct {
	mock.Mock
}

func (m *MockEquipmentRepository) Create(ctx context.Context, equipment *model.Equipment) (*model.Equipment, error) {
	args := m.Called(ctx, equipment)
	return args.Get(0).(*model.Equipment), args.Error(1)
}

func (m *MockEquipmentRepository) Update(ctx context.Context, equipment *model.Equipment) (*model.Equipment, error) {
	args := m.Called(ctx, equipment)
	return args.Get(0).(*model.Equipment), args.Error(1)
}

func (m *MockEquipmentRepository) GetByID(ctx context.Context, id string) (*model.Equipment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Equipment), args.Error(1)
}

func (m *MockEquipmentRepository) GetByCode(ctx context.Context, code string) (*model.Equipment, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Equipment), args.Error(1)
}

func (m *MockEquipmentRepository) GetBySerial(ctx context.Context, serial string) (*model.Equipment, error) {
	args := m.Called(ctx, serial)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Equipment), args.Error(1)
}

func (m *MockEquipmentRepository) ListByCustomer(ctx context.Context, customerID string) ([]*model.Equipment, error) {
	args := m.Called(ctx, customerID)
	return args.Get(0).([]*model.Equipment), args.Error(1)
}

func (m *MockEquipmentRepository) CountOpenOrders(ctx context.Context, equipmentID string) (int64, error) {
	args := m.Called(ctx, equipmentID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockEquipmentRepository) LastServiceDate(ctx context.Context, equipmentID string) (*time.Time, error) {
	args := m.Called(ctx, equipmentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*time.Time), args.Error(1)
}

func TestLookupEquipment(t *testing.T) {
	customerRepo := new(MockCustomerRepository)
	equipmentRepo := new(MockEquipmentRepository)
	lastServiced := time.Date(2026, 2, 20, 16, 0, 0, 0, time.UTC)

	customerRepo.On("GetBySequence", mock.Anything, "C00042").Return(&model.Customer{
		Base: model.Base{UUID: "cust-1"},
		Name: "Acme Refrigeration",
	}, nil)
	equipmentRepo.On("GetByCode", mock.Anything, "E00007").Return(&model.Equipment{
		Base:          model.Base{UUID: "equip-1"},
		Code:          "E00007",
		EquipmentType: "freezer",
		Brand:         "Frigus",
		CustomerID:    "cust-1",
	}, nil)
	equipmentRepo.On("LastServiceDate", mock.Anything, "equip-1").Return(&lastServiced, nil)
	equipmentRepo.On("CountOpenOrders", mock.Anything, "equip-1").Return(int64(2), nil)

	catalog := &CatalogService{customerRepo: customerRepo, equipmentRepo: equipmentRepo}

	card, err := catalog.LookupEquipment(context.Background(), "C00042-E00007")
	require.NoError(t, err)
	require.Equal(t, "E00007", card.Code)
	require.Equal(t, "Acme Refrigeration", card.CustomerName)
	require.Equal(t, int64(2), card.OpenOrders)
	require.Equal(t, &lastServiced, card.LastServiced)
	equipmentRepo.AssertExpectations(t)
}

func TestLookupEquipmentOwnershipMismatch(t *testing.T) {
	customerRepo := new(MockCustomerRepository)
	equipmentRepo := new(MockEquipmentRepository)

	customerRepo.On("GetBySequence", mock.Anything, "C00042").Return(&model.Customer{
		Base: model.Base{UUID: "cust-1"},
	}, nil)
	equipmentRepo.On("GetByCode", mock.Anything, "E00007").Return(&model.Equipment{
		Base:       model.Base{UUID: "equip-1"},
		CustomerID: "someone-else",
	}, nil)

	catalog := &CatalogService{customerRepo: customerRepo, equipmentRepo: equipmentRepo}

	_, err := catalog.LookupEquipment(context.Background(), "C00042-E00007")
	require.Error(t, err)
}

func TestLookupEquipmentMalformedKey(t *testing.T) {
	catalog := &CatalogService{}

	for _, key := range []string{"", "-", "C00042-", "-E00007", "C00042"} {
		_, err := catalog.LookupEquipment(context.Background(), key)
		require.Error(t, err, "key %q", key)
	}
}

func TestCreateTechnicianAppliesSchedulingDefaults(t *testing.T) {
	techRepo := new(MockTechnicianRepository)
	var created *model.Technician
	techRepo.On("Create", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			created = args.Get(1).(*model.Technician)
		}).
		Return(&model.Technician{}, nil)

	catalog := NewCatalogService(nil, nil, nil, techRepo, nil, nil, nil, config.SchedulingConfig{
		DefaultMaxDailyOrders: 4,
		DefaultAvailableHours: "8-12,14-18",
	})

	_, err := catalog.CreateTechnician(context.Background(), &TechnicianRequest{Name: "Dana Reyes"})
	require.NoError(t, err)
	require.NotNil(t, created)
	require.Equal(t, "8-12,14-18", created.AvailableHours)
	require.Equal(t, 4, created.MaxDailyOrders)
}

func TestCreateTechnicianKeepsExplicitSettings(t *testing.T) {
	techRepo := new(MockTechnicianRepository)
	var created *model.Technician
	techRepo.On("Create", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			created = args.Get(1).(*model.Technician)
		}).
		Return(&model.Technician{}, nil)

	catalog := NewCatalogService(nil, nil, nil, techRepo, nil, nil, nil, config.SchedulingConfig{
		DefaultMaxDailyOrders: 4,
		DefaultAvailableHours: "8-12,14-18",
	})

	_, err := catalog.CreateTechnician(context.Background(), &TechnicianRequest{
		Name:           "Dana Reyes",
		AvailableHours: "9-13",
		MaxDailyOrders: 2,
	})
	require.NoError(t, err)
	require.Equal(t, "9-13", created.AvailableHours)
	require.Equal(t, 2, created.MaxDailyOrders)
}
