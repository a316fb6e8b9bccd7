package service

import (
	"context"
	"testing"
	"time"

	"example.com/backstage/services/fieldservice/internal/model"
	"example.com/backstage/services/fieldservice/internal/repository"
	"example.com/backstage/services/fieldservice/internal/scheduling"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// Mock repositories for testing
type MockTechnicianRepository struct {
	mock.Mock
}

func (m *MockTechnicianRepository) Create(ctx context.Context, technician *model.Technician) (*model.Technician, error) {
	args := m.Called(ctx, technician)
	return args.Get(0).(*model.Technician), args.Error(1)
}

func (m *MockTechnicianRepository) Update(ctx context.Context, technician *model.Technician) (*model.Technician, error) {
	args := m.Called(ctx, technician)
	return args.Get(0).(*model.Technician), args.Error(1)
}

func (m *MockTechnicianRepository) GetByID(ctx context.Context, id string) (*model.Technician, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Technician), args.Error(1)
}

func (m *MockTechnicianRepository) ListTechnicians(ctx context.Context) ([]*model.Technician, error) {
	args := m.Called(ctx)
	return args.Get(0).([]*model.Technician), args.Error(1)
}

func (m *MockTechnicianRepository) CountCompletedOrders(ctx context.Context, technicianID string) (int64, error) {
	args := m.Called(ctx, technicianID)
	return args.Get(0).(int64), args.Error(1)
}

type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) Create(ctx context.Context, order *model.ServiceOrder) (*model.ServiceOrder, error) {
	args := m.Called(ctx, order)
	return args.Get(0).(*model.ServiceOrder), args.Error(1)
}

func (m *MockOrderRepository) Update(ctx context.Context, order *model.ServiceOrder) (*model.ServiceOrder, error) {
	args := m.Called(ctx, order)
	return args.Get(0).(*model.ServiceOrder), args.Error(1)
}

func (m *MockOrderRepository) GetByID(ctx context.Context, id string) (*model.ServiceOrder, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ServiceOrder), args.Error(1)
}

func (m *MockOrderRepository) GetByIDForUpdate(ctx context.Context, tx *gorm.DB, id string) (*model.ServiceOrder, error) {
	args := m.Called(ctx, tx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ServiceOrder), args.Error(1)
}

func (m *MockOrderRepository) GetByNumber(ctx context.Context, number string) (*model.ServiceOrder, error) {
	args := m.Called(ctx, number)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ServiceOrder), args.Error(1)
}

func (m *MockOrderRepository) List(ctx context.Context, filter repository.OrderFilter) ([]*model.ServiceOrder, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]*model.ServiceOrder), args.Error(1)
}

func (m *MockOrderRepository) FindActiveByTechnicianDay(ctx context.Context, tx *gorm.DB, technicianID string, day time.Time) ([]*model.ServiceOrder, error) {
	args := m.Called(ctx, tx, technicianID, day)
	return args.Get(0).([]*model.ServiceOrder), args.Error(1)
}

func (m *MockOrderRepository) FindOverdue(ctx context.Context, now time.Time) ([]*model.ServiceOrder, error) {
	args := m.Called(ctx, now)
	return args.Get(0).([]*model.ServiceOrder), args.Error(1)
}

func (m *MockOrderRepository) FindDoneWithoutInvoice(ctx context.Context, limit int) ([]*model.ServiceOrder, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]*model.ServiceOrder), args.Error(1)
}

func (m *MockOrderRepository) CreateLine(ctx context.Context, line *model.RefactionLine) (*model.RefactionLine, error) {
	args := m.Called(ctx, line)
	return args.Get(0).(*model.RefactionLine), args.Error(1)
}

func (m *MockOrderRepository) GetLine(ctx context.Context, lineID string) (*model.RefactionLine, error) {
	args := m.Called(ctx, lineID)
	return args.Get(0).(*model.RefactionLine), args.Error(1)
}

func (m *MockOrderRepository) DeleteLine(ctx context.Context, tx *gorm.DB, lineID string) error {
	args := m.Called(ctx, tx, lineID)
	return args.Error(0)
}

func (m *MockOrderRepository) AppendLog(ctx context.Context, tx *gorm.DB, entry *model.OrderLog) error {
	args := m.Called(ctx, tx, entry)
	return args.Error(0)
}

func (m *MockOrderRepository) ListLogs(ctx context.Context, orderID string) ([]*model.OrderLog, error) {
	args := m.Called(ctx, orderID)
	return args.Get(0).([]*model.OrderLog), args.Error(1)
}

// Mock cache that always misses
type MockCacheClient struct {
	mock.Mock
}

var errCacheMiss = errors.New("cache miss")

func (m *MockCacheClient) GetOrder(ctx context.Context, id string) (*model.ServiceOrder, error) {
	return nil, errCacheMiss
}

func (m *MockCacheClient) SetOrder(ctx context.Context, order *model.ServiceOrder) error {
	return nil
}

func (m *MockCacheClient) DeleteOrder(ctx context.Context, id, number string) error {
	return nil
}

func (m *MockCacheClient) GetOrderByNumber(ctx context.Context, number string) (*model.ServiceOrder, error) {
	return nil, errCacheMiss
}

func (m *MockCacheClient) SetOrderByNumber(ctx context.Context, order *model.ServiceOrder) error {
	return nil
}

func (m *MockCacheClient) GetDaySlots(ctx context.Context, technicianID string, day time.Time) ([]scheduling.Slot, error) {
	return nil, errCacheMiss
}

func (m *MockCacheClient) SetDaySlots(ctx context.Context, technicianID string, day time.Time, slots []scheduling.Slot) error {
	return nil
}

func (m *MockCacheClient) DeleteDaySlots(ctx context.Context, technicianID string, day time.Time) error {
	return nil
}

func (m *MockCacheClient) FlushAll(ctx context.Context) error {
	return nil
}

func scheduledAt(hour int) *time.Time {
	ts := time.Date(2026, 3, 10, hour, 0, 0, 0, time.UTC)
	return &ts
}

func TestAvailableSlots(t *testing.T) {
	techRepo := new(MockTechnicianRepository)
	orderRepo := new(MockOrderRepository)
	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	techRepo.On("GetByID", mock.Anything, "tech-1").Return(&model.Technician{
		Base:           model.Base{UUID: "tech-1"},
		Name:           "Ana",
		IsTechnician:   true,
		AvailableHours: "8-12,14-18",
		MaxDailyOrders: 4,
	}, nil)
	orderRepo.On("FindActiveByTechnicianDay", mock.Anything, mock.Anything, "tech-1", day).
		Return([]*model.ServiceOrder{
			{State: model.OrderStateAssigned, ScheduledAt: scheduledAt(8)},
		}, nil)

	registry := NewRegistryService(techRepo, orderRepo, new(MockCacheClient))

	slots, err := registry.AvailableSlots(context.Background(), "tech-1", day)
	require.NoError(t, err)
	require.Equal(t, []scheduling.Slot{
		{StartHour: 10, EndHour: 12},
		{StartHour: 14, EndHour: 16},
		{StartHour: 16, EndHour: 18},
	}, slots)

	techRepo.AssertExpectations(t)
	orderRepo.AssertExpectations(t)
}

func TestAvailableSlotsRejectsNonTechnician(t *testing.T) {
	techRepo := new(MockTechnicianRepository)
	orderRepo := new(MockOrderRepository)
	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	techRepo.On("GetByID", mock.Anything, "person-1").Return(&model.Technician{
		Base:         model.Base{UUID: "person-1"},
		IsTechnician: false,
	}, nil)

	registry := NewRegistryService(techRepo, orderRepo, new(MockCacheClient))

	_, err := registry.AvailableSlots(context.Background(), "person-1", day)
	require.Error(t, err)
	var validation *ValidationError
	require.ErrorAs(t, err, &validation)
}

func TestHasCapacity(t *testing.T) {
	techRepo := new(MockTechnicianRepository)
	orderRepo := new(MockOrderRepository)
	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	techRepo.On("GetByID", mock.Anything, "tech-1").Return(&model.Technician{
		Base:           model.Base{UUID: "tech-1"},
		IsTechnician:   true,
		AvailableHours: "8-18",
		MaxDailyOrders: 2,
	}, nil)
	orderRepo.On("FindActiveByTechnicianDay", mock.Anything, mock.Anything, "tech-1", day).
		Return([]*model.ServiceOrder{
			{State: model.OrderStateAssigned, ScheduledAt: scheduledAt(8)},
			{State: model.OrderStateInProgress, ScheduledAt: scheduledAt(10)},
			{State: model.OrderStateCancelled, ScheduledAt: scheduledAt(12)},
		}, nil)

	registry := NewRegistryService(techRepo, orderRepo, new(MockCacheClient))

	// Two active orders against a maximum of two, the cancelled one does not count
	ok, err := registry.HasCapacity(context.Background(), nil, "tech-1", day, "")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestHasCapacityExcludesMovingOrder(t *testing.T) {
	techRepo := new(MockTechnicianRepository)
	orderRepo := new(MockOrderRepository)
	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	techRepo.On("GetByID", mock.Anything, "tech-1").Return(&model.Technician{
		Base:           model.Base{UUID: "tech-1"},
		IsTechnician:   true,
		AvailableHours: "8-18",
		MaxDailyOrders: 2,
	}, nil)
	orderRepo.On("FindActiveByTechnicianDay", mock.Anything, mock.Anything, "tech-1", day).
		Return([]*model.ServiceOrder{
			{Base: model.Base{UUID: "order-1"}, State: model.OrderStateAssigned, ScheduledAt: scheduledAt(8)},
			{Base: model.Base{UUID: "order-2"}, State: model.OrderStateAssigned, ScheduledAt: scheduledAt(10)},
		}, nil)

	registry := NewRegistryService(techRepo, orderRepo, new(MockCacheClient))

	// The technician is at the limit, but an order being moved within the day
	// does not count against its own reschedule
	ok, err := registry.HasCapacity(context.Background(), nil, "tech-1", day, "order-2")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = registry.HasCapacity(context.Background(), nil, "tech-1", day, "")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestSlotFree(t *testing.T) {
	techRepo := new(MockTechnicianRepository)
	orderRepo := new(MockOrderRepository)

	techRepo.On("GetByID", mock.Anything, "tech-1").Return(&model.Technician{
		Base:           model.Base{UUID: "tech-1"},
		IsTechnician:   true,
		AvailableHours: "8-12",
		MaxDailyOrders: 4,
	}, nil)
	orderRepo.On("FindActiveByTechnicianDay", mock.Anything, mock.Anything, "tech-1", mock.Anything).
		Return([]*model.ServiceOrder{
			{Base: model.Base{UUID: "order-1"}, State: model.OrderStateAssigned, ScheduledAt: scheduledAt(8)},
		}, nil)

	registry := NewRegistryService(techRepo, orderRepo, new(MockCacheClient))

	ok, err := registry.SlotFree(context.Background(), nil, "tech-1", *scheduledAt(10), "")
	require.NoError(t, err)
	require.True(t, ok)

	// The 8 o'clock slot is taken
	ok, err = registry.SlotFree(context.Background(), nil, "tech-1", *scheduledAt(8), "")
	require.NoError(t, err)
	require.False(t, ok)

	// Unless it is taken by the order being rescheduled onto it
	ok, err = registry.SlotFree(context.Background(), nil, "tech-1", *scheduledAt(8), "order-1")
	require.NoError(t, err)
	require.True(t, ok)

	// Hours outside the configured windows are never free
	ok, err = registry.SlotFree(context.Background(), nil, "tech-1", *scheduledAt(20), "")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestFindAvailable(t *testing.T) {
	techRepo := new(MockTechnicianRepository)
	orderRepo := new(MockOrderRepository)
	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	free := &model.Technician{
		Base: model.Base{UUID: "tech-1"}, Name: "Ana",
		IsTechnician: true, AvailableHours: "8-12", MaxDailyOrders: 4,
	}
	booked := &model.Technician{
		Base: model.Base{UUID: "tech-2"}, Name: "Luis",
		IsTechnician: true, AvailableHours: "8-12", MaxDailyOrders: 1,
	}
	misconfigured := &model.Technician{
		Base: model.Base{UUID: "tech-3"}, Name: "Eva",
		IsTechnician: true, AvailableHours: "nonsense", MaxDailyOrders: 4,
	}

	techRepo.On("ListTechnicians", mock.Anything).
		Return([]*model.Technician{free, booked, misconfigured}, nil)
	orderRepo.On("FindActiveByTechnicianDay", mock.Anything, mock.Anything, "tech-1", day).
		Return([]*model.ServiceOrder{}, nil)
	orderRepo.On("FindActiveByTechnicianDay", mock.Anything, mock.Anything, "tech-2", day).
		Return([]*model.ServiceOrder{
			{State: model.OrderStateAssigned, ScheduledAt: scheduledAt(8)},
		}, nil)
	orderRepo.On("FindActiveByTechnicianDay", mock.Anything, mock.Anything, "tech-3", day).
		Return([]*model.ServiceOrder{}, nil)

	registry := NewRegistryService(techRepo, orderRepo, new(MockCacheClient))

	available, err := registry.FindAvailable(context.Background(), day)
	require.NoError(t, err)
	require.Len(t, available, 1)
	require.Equal(t, "tech-1", available[0].Technician.UUID)
	require.Len(t, available[0].Slots, 2)
}

func TestGetWorkload(t *testing.T) {
	techRepo := new(MockTechnicianRepository)
	orderRepo := new(MockOrderRepository)
	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)

	techRepo.On("GetByID", mock.Anything, "tech-1").Return(&model.Technician{
		Base: model.Base{UUID: "tech-1"}, Name: "Ana", MaxDailyOrders: 4,
	}, nil)

	start := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	end := start.Add(2 * time.Hour)
	orderRepo.On("List", mock.Anything, mock.Anything).Return([]*model.ServiceOrder{
		{State: model.OrderStateDone, StartedAt: &start, EndedAt: &end},
		{State: model.OrderStateDone},
		{State: model.OrderStateCancelled},
		{State: model.OrderStateAssigned},
		{State: model.OrderStateInProgress},
	}, nil)

	registry := NewRegistryService(techRepo, orderRepo, new(MockCacheClient))

	workload, err := registry.GetWorkload(context.Background(), "tech-1", from, to)
	require.NoError(t, err)
	require.Equal(t, "Ana", workload.TechnicianName)
	require.Equal(t, 2, workload.CompletedOrders)
	require.Equal(t, 1, workload.CancelledOrders)
	require.Equal(t, 2, workload.ActiveOrders)
	require.Equal(t, 2.0, workload.HoursWorked)
	require.Equal(t, 4, workload.MaxDailyOrders)
}
