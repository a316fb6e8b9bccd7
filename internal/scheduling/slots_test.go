package scheduling

import (
	"testing"
	"time"

	"example.com/backstage/services/fieldservice/internal/model"

	"github.com/stretchr/testify/require"
)

func dayAt(hour int) *time.Time {
	ts := time.Date(2026, 3, 10, hour, 0, 0, 0, time.UTC)
	return &ts
}

func TestOccupiedHours(t *testing.T) {
	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	orders := []*model.ServiceOrder{
		{State: model.OrderStateAssigned, ScheduledAt: dayAt(8)},
		{State: model.OrderStateInProgress, ScheduledAt: dayAt(14)},
	}

	occupied := OccupiedHours(orders, day)

	// Each order blocks its hour plus the following one
	require.True(t, occupied[8])
	require.True(t, occupied[9])
	require.True(t, occupied[14])
	require.True(t, occupied[15])
	require.False(t, occupied[10])
	require.False(t, occupied[16])
}

func TestOccupiedHoursIgnoresTerminalOrders(t *testing.T) {
	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	orders := []*model.ServiceOrder{
		{State: model.OrderStateDone, ScheduledAt: dayAt(8)},
		{State: model.OrderStateCancelled, ScheduledAt: dayAt(10)},
	}

	occupied := OccupiedHours(orders, day)
	require.Empty(t, occupied)
}

func TestOccupiedHoursIgnoresOtherDays(t *testing.T) {
	day := time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC)
	orders := []*model.ServiceOrder{
		{State: model.OrderStateAssigned, ScheduledAt: dayAt(8)},
	}

	occupied := OccupiedHours(orders, day)
	require.Empty(t, occupied)
}

func TestFreeSlots(t *testing.T) {
	ranges, err := ParseHours("8-12,14-18")
	require.NoError(t, err)

	slots := FreeSlots(ranges, map[int]bool{})
	require.Equal(t, []Slot{
		{StartHour: 8, EndHour: 10},
		{StartHour: 10, EndHour: 12},
		{StartHour: 14, EndHour: 16},
		{StartHour: 16, EndHour: 18},
	}, slots)
}

func TestFreeSlotsSkipsOccupied(t *testing.T) {
	ranges, err := ParseHours("8-12")
	require.NoError(t, err)

	// An occupied second hour blocks the whole slot
	slots := FreeSlots(ranges, map[int]bool{9: true})
	require.Equal(t, []Slot{{StartHour: 10, EndHour: 12}}, slots)
}

func TestFreeSlotsShortWindow(t *testing.T) {
	// A one-hour window cannot fit the two-hour footprint
	ranges, err := ParseHours("8-9")
	require.NoError(t, err)

	slots := FreeSlots(ranges, map[int]bool{})
	require.Empty(t, slots)
}

func TestFreeSlotsOddWindow(t *testing.T) {
	// A 9-14 window yields 9-11 and 11-13, the trailing hour is unusable
	ranges, err := ParseHours("9-14")
	require.NoError(t, err)

	slots := FreeSlots(ranges, map[int]bool{})
	require.Equal(t, []Slot{
		{StartHour: 9, EndHour: 11},
		{StartHour: 11, EndHour: 13},
	}, slots)
}

func TestCountActive(t *testing.T) {
	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	orders := []*model.ServiceOrder{
		{State: model.OrderStateAssigned, ScheduledAt: dayAt(8)},
		{State: model.OrderStateInProgress, ScheduledAt: dayAt(10)},
		{State: model.OrderStateDone, ScheduledAt: dayAt(12)},
		{State: model.OrderStateCancelled, ScheduledAt: dayAt(14)},
	}

	require.Equal(t, 2, CountActive(orders, day))
}

func TestHasCapacity(t *testing.T) {
	require.True(t, HasCapacity(0, 4))
	require.True(t, HasCapacity(3, 4))
	require.False(t, HasCapacity(4, 4))
	require.False(t, HasCapacity(5, 4))
	require.False(t, HasCapacity(0, 0))
}
