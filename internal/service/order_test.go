package service

import (
	"context"
	"testing"
	"time"

	"example.com/backstage/services/fieldservice/internal/model"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// warmOrderCache serves one order for by-number lookups and misses on
// everything else
type warmOrderCache struct {
	MockCacheClient
	order *model.ServiceOrder
}

func (c *warmOrderCache) GetOrderByNumber(ctx context.Context, number string) (*model.ServiceOrder, error) {
	if c.order != nil && c.order.Number == number {
		return c.order, nil
	}
	return nil, errCacheMiss
}

func portalOrder() *model.ServiceOrder {
	scheduled := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	return &model.ServiceOrder{
		Base:        model.Base{UUID: "order-1"},
		Number:      "SO00042",
		State:       model.OrderStateAssigned,
		Priority:    model.PriorityNormal,
		ScheduledAt: &scheduled,
		TotalAmount: 150,
		Technician:  &model.Technician{Name: "Dana Reyes"},
		Equipment:   &model.Equipment{Code: "E00007"},
	}
}

func TestGetPublicStatus(t *testing.T) {
	orderRepo := new(MockOrderRepository)
	order := portalOrder()
	orderRepo.On("GetByNumber", mock.Anything, "SO00042").Return(order, nil)

	svc := &OrderService{orderRepo: orderRepo, cache: new(MockCacheClient)}

	status, err := svc.GetPublicStatus(context.Background(), "SO00042")
	require.NoError(t, err)
	require.Equal(t, "SO00042", status.Number)
	require.Equal(t, "assigned", status.State)
	require.Equal(t, "Dana Reyes", status.TechnicianName)
	require.Equal(t, "E00007", status.EquipmentCode)
	orderRepo.AssertExpectations(t)
}

func TestGetPublicStatusServedFromCache(t *testing.T) {
	orderRepo := new(MockOrderRepository)
	order := portalOrder()

	svc := &OrderService{orderRepo: orderRepo, cache: &warmOrderCache{order: order}}

	status, err := svc.GetPublicStatus(context.Background(), "SO00042")
	require.NoError(t, err)
	require.Equal(t, "Dana Reyes", status.TechnicianName)
	require.Equal(t, "E00007", status.EquipmentCode)

	// The warm cache answered, the repository was never touched
	orderRepo.AssertNotCalled(t, "GetByNumber", mock.Anything, mock.Anything)
}

func TestInvalidateOrderDropsNumberAlias(t *testing.T) {
	order := portalOrder()
	cacheClient := new(spyCache)
	svc := &OrderService{cache: cacheClient}

	svc.invalidateOrder(context.Background(), order)

	require.Equal(t, "order-1", cacheClient.deletedID)
	require.Equal(t, "SO00042", cacheClient.deletedNumber)
}

// spyCache records the keys passed to DeleteOrder
type spyCache struct {
	MockCacheClient
	deletedID     string
	deletedNumber string
}

func (c *spyCache) DeleteOrder(ctx context.Context, id, number string) error {
	c.deletedID = id
	c.deletedNumber = number
	return nil
}
