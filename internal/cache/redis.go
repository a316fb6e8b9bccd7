package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"example.com/backstage/services/fieldservice/config"
	"example.com/backstage/services/fieldservice/internal/model"
	"example.com/backstage/services/fieldservice/internal/scheduling"
)

// CacheClient defines the interface for cache operations
type CacheClient interface {
	// Order caching methods
	GetOrder(ctx context.Context, id string) (*model.ServiceOrder, error)
	SetOrder(ctx context.Context, order *model.ServiceOrder) error
	DeleteOrder(ctx context.Context, id, number string) error

	// Order lookup by public number
	GetOrderByNumber(ctx context.Context, number string) (*model.ServiceOrder, error)
	SetOrderByNumber(ctx context.Context, order *model.ServiceOrder) error

	// Technician day slot caching methods
	GetDaySlots(ctx context.Context, technicianID string, day time.Time) ([]scheduling.Slot, error)
	SetDaySlots(ctx context.Context, technicianID string, day time.Time, slots []scheduling.Slot) error
	DeleteDaySlots(ctx context.Context, technicianID string, day time.Time) error

	// Clear all cache
	FlushAll(ctx context.Context) error
}

// RedisClient implements CacheClient using Redis
type RedisClient struct {
	client  *redis.Client
	enabled bool
	ttl     time.Duration
}

// NewRedisClient creates a new Redis client
func NewRedisClient(cfg *config.RedisConfig) (CacheClient, error) {
	if !cfg.Enabled {
		return &RedisClient{enabled: false}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisClient{
		client:  client,
		enabled: true,
		ttl:     time.Hour, // Default TTL
	}, nil
}

// Prefix keys to avoid collisions
func orderKey(id string) string {
	return fmt.Sprintf("order:%s", id)
}

func orderNumberKey(number string) string {
	return fmt.Sprintf("order_number:%s", number)
}

func daySlotsKey(technicianID string, day time.Time) string {
	return fmt.Sprintf("day_slots:%s:%s", technicianID, day.Format("2006-01-02"))
}

// GetOrder retrieves a service order from cache
func (c *RedisClient) GetOrder(ctx context.Context, id string) (*model.ServiceOrder, error) {
	if !c.enabled {
		return nil, redis.Nil
	}

	data, err := c.client.Get(ctx, orderKey(id)).Bytes()
	if err != nil {
		return nil, err
	}

	var order model.ServiceOrder
	if err := json.Unmarshal(data, &order); err != nil {
		return nil, err
	}

	return &order, nil
}

// SetOrder caches a service order
func (c *RedisClient) SetOrder(ctx context.Context, order *model.ServiceOrder) error {
	if !c.enabled {
		return nil
	}

	data, err := json.Marshal(order)
	if err != nil {
		return err
	}

	return c.client.Set(ctx, orderKey(order.UUID), data, c.ttl).Err()
}

// DeleteOrder removes a service order and its number alias from cache
func (c *RedisClient) DeleteOrder(ctx context.Context, id, number string) error {
	if !c.enabled {
		return nil
	}

	return c.client.Del(ctx, orderKey(id), orderNumberKey(number)).Err()
}

// GetOrderByNumber retrieves a service order by its public number
func (c *RedisClient) GetOrderByNumber(ctx context.Context, number string) (*model.ServiceOrder, error) {
	if !c.enabled {
		return nil, redis.Nil
	}

	data, err := c.client.Get(ctx, orderNumberKey(number)).Bytes()
	if err != nil {
		return nil, err
	}

	var order model.ServiceOrder
	if err := json.Unmarshal(data, &order); err != nil {
		return nil, err
	}

	return &order, nil
}

// SetOrderByNumber caches a service order under its public number
func (c *RedisClient) SetOrderByNumber(ctx context.Context, order *model.ServiceOrder) error {
	if !c.enabled {
		return nil
	}

	data, err := json.Marshal(order)
	if err != nil {
		return err
	}

	return c.client.Set(ctx, orderNumberKey(order.Number), data, c.ttl).Err()
}

// GetDaySlots retrieves a technician's free slots for a day
func (c *RedisClient) GetDaySlots(ctx context.Context, technicianID string, day time.Time) ([]scheduling.Slot, error) {
	if !c.enabled {
		return nil, redis.Nil
	}

	data, err := c.client.Get(ctx, daySlotsKey(technicianID, day)).Bytes()
	if err != nil {
		return nil, err
	}

	var slots []scheduling.Slot
	if err := json.Unmarshal(data, &slots); err != nil {
		return nil, err
	}

	return slots, nil
}

// SetDaySlots caches a technician's free slots for a day. Slot sets go stale
// on every assignment so they get a short TTL.
func (c *RedisClient) SetDaySlots(ctx context.Context, technicianID string, day time.Time, slots []scheduling.Slot) error {
	if !c.enabled {
		return nil
	}

	data, err := json.Marshal(slots)
	if err != nil {
		return err
	}

	return c.client.Set(ctx, daySlotsKey(technicianID, day), data, 5*time.Minute).Err()
}

// DeleteDaySlots invalidates a technician's cached slots for a day
func (c *RedisClient) DeleteDaySlots(ctx context.Context, technicianID string, day time.Time) error {
	if !c.enabled {
		return nil
	}

	return c.client.Del(ctx, daySlotsKey(technicianID, day)).Err()
}

// FlushAll clears all cache
func (c *RedisClient) FlushAll(ctx context.Context) error {
	if !c.enabled {
		return nil
	}

	return c.client.FlushAll(ctx).Err()
}
