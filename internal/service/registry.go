package service

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"example.com/backstage/services/fieldservice/internal/cache"
	"example.com/backstage/services/fieldservice/internal/model"
	"example.com/backstage/services/fieldservice/internal/repository"
	"example.com/backstage/services/fieldservice/internal/scheduling"
)

// Workload summarizes a technician's load over a date range
type Workload struct {
	TechnicianID    string  `json:"technician_id"`
	TechnicianName  string  `json:"technician_name"`
	ActiveOrders    int     `json:"active_orders"`
	CompletedOrders int     `json:"completed_orders"`
	CancelledOrders int     `json:"cancelled_orders"`
	HoursWorked     float64 `json:"hours_worked"`
	MaxDailyOrders  int     `json:"max_daily_orders"`
}

// TechnicianAvailability pairs a technician with their free slots for a day
type TechnicianAvailability struct {
	Technician *model.Technician `json:"technician"`
	Slots      []scheduling.Slot `json:"slots"`
}

// RegistryService answers availability and workload questions about
// technicians
type RegistryService struct {
	technicianRepo repository.TechnicianRepository
	orderRepo      repository.OrderRepository
	cache          cache.CacheClient
}

// NewRegistryService creates a new registry service
func NewRegistryService(
	technicianRepo repository.TechnicianRepository,
	orderRepo repository.OrderRepository,
	cacheClient cache.CacheClient,
) *RegistryService {
	return &RegistryService{
		technicianRepo: technicianRepo,
		orderRepo:      orderRepo,
		cache:          cacheClient,
	}
}

// AvailableSlots computes the technician's free slots for a day from their
// configured hours minus the footprints of already scheduled orders
func (s *RegistryService) AvailableSlots(ctx context.Context, technicianID string, day time.Time) ([]scheduling.Slot, error) {
	if cached, err := s.cache.GetDaySlots(ctx, technicianID, day); err == nil {
		return cached, nil
	}

	slots, err := s.computeSlots(ctx, nil, technicianID, day, "")
	if err != nil {
		return nil, err
	}

	if err := s.cache.SetDaySlots(ctx, technicianID, day, slots); err != nil {
		log.Warn().Err(err).Str("technician_id", technicianID).Msg("failed to cache day slots")
	}
	return slots, nil
}

// computeSlots builds the slot list, bypassing the cache. Runs on the given
// transaction when one is provided. excludeOrderID drops the footprint of an
// order that is being moved so it does not block its own reschedule.
func (s *RegistryService) computeSlots(ctx context.Context, tx *gorm.DB, technicianID string, day time.Time, excludeOrderID string) ([]scheduling.Slot, error) {
	technician, err := s.technicianRepo.GetByID(ctx, technicianID)
	if err != nil {
		return nil, err
	}
	if !technician.IsTechnician {
		return nil, NewValidationError("technician_id", "person is not a technician")
	}

	ranges, err := scheduling.ParseHours(technician.AvailableHours)
	if err != nil {
		return nil, errors.Wrapf(err, "technician %s has invalid available hours", technicianID)
	}

	orders, err := s.activeOrders(ctx, tx, technicianID, day, excludeOrderID)
	if err != nil {
		return nil, err
	}

	occupied := scheduling.OccupiedHours(orders, day)
	return scheduling.FreeSlots(ranges, occupied), nil
}

// activeOrders loads the technician's non-terminal orders for the day,
// dropping the excluded order when one is given
func (s *RegistryService) activeOrders(ctx context.Context, tx *gorm.DB, technicianID string, day time.Time, excludeOrderID string) ([]*model.ServiceOrder, error) {
	orders, err := s.orderRepo.FindActiveByTechnicianDay(ctx, tx, technicianID, day)
	if err != nil {
		return nil, err
	}
	if excludeOrderID == "" {
		return orders, nil
	}

	filtered := orders[:0]
	for _, order := range orders {
		if order.UUID != excludeOrderID {
			filtered = append(filtered, order)
		}
	}
	return filtered, nil
}

// HasCapacity reports whether the technician can take one more order on the
// day, not counting the order identified by excludeOrderID. Runs on the
// given transaction when one is provided so assignment checks see a locked
// snapshot.
func (s *RegistryService) HasCapacity(ctx context.Context, tx *gorm.DB, technicianID string, day time.Time, excludeOrderID string) (bool, error) {
	technician, err := s.technicianRepo.GetByID(ctx, technicianID)
	if err != nil {
		return false, err
	}

	orders, err := s.activeOrders(ctx, tx, technicianID, day, excludeOrderID)
	if err != nil {
		return false, err
	}

	active := scheduling.CountActive(orders, day)
	return scheduling.HasCapacity(active, technician.MaxDailyOrders), nil
}

// SlotFree reports whether the technician is free for the slot starting at
// the given hour, considering both configured hours and existing footprints.
// The excluded order's own footprint does not count.
func (s *RegistryService) SlotFree(ctx context.Context, tx *gorm.DB, technicianID string, scheduledAt time.Time, excludeOrderID string) (bool, error) {
	slots, err := s.computeSlots(ctx, tx, technicianID, scheduledAt, excludeOrderID)
	if err != nil {
		return false, err
	}
	hour := scheduledAt.Hour()
	for _, slot := range slots {
		if slot.StartHour == hour {
			return true, nil
		}
	}
	return false, nil
}

// FindAvailable returns every technician with at least one free slot and
// remaining capacity on the day
func (s *RegistryService) FindAvailable(ctx context.Context, day time.Time) ([]TechnicianAvailability, error) {
	technicians, err := s.technicianRepo.ListTechnicians(ctx)
	if err != nil {
		return nil, err
	}

	var available []TechnicianAvailability
	for _, technician := range technicians {
		orders, err := s.orderRepo.FindActiveByTechnicianDay(ctx, nil, technician.UUID, day)
		if err != nil {
			return nil, err
		}

		active := scheduling.CountActive(orders, day)
		if !scheduling.HasCapacity(active, technician.MaxDailyOrders) {
			continue
		}

		ranges, err := scheduling.ParseHours(technician.AvailableHours)
		if err != nil {
			log.Warn().Err(err).Str("technician_id", technician.UUID).Msg("skipping technician with invalid hours")
			continue
		}

		slots := scheduling.FreeSlots(ranges, scheduling.OccupiedHours(orders, day))
		if len(slots) == 0 {
			continue
		}

		available = append(available, TechnicianAvailability{
			Technician: technician,
			Slots:      slots,
		})
	}

	return available, nil
}

// GetWorkload aggregates a technician's order counts and hours worked over
// the date range
func (s *RegistryService) GetWorkload(ctx context.Context, technicianID string, from, to time.Time) (*Workload, error) {
	technician, err := s.technicianRepo.GetByID(ctx, technicianID)
	if err != nil {
		return nil, err
	}

	orders, err := s.orderRepo.List(ctx, repository.OrderFilter{
		TechnicianID: technicianID,
		From:         &from,
		To:           &to,
		Limit:        200,
	})
	if err != nil {
		return nil, err
	}

	workload := &Workload{
		TechnicianID:   technician.UUID,
		TechnicianName: technician.Name,
		MaxDailyOrders: technician.MaxDailyOrders,
	}

	for _, order := range orders {
		switch order.State {
		case model.OrderStateDone:
			workload.CompletedOrders++
			workload.HoursWorked += order.Duration()
		case model.OrderStateCancelled:
			workload.CancelledOrders++
		default:
			workload.ActiveOrders++
		}
	}

	return workload, nil
}
