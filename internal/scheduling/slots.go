package scheduling

import (
	"time"

	"example.com/backstage/services/fieldservice/internal/model"
)

// SlotHours is the fixed scheduling footprint of a service order. Every
// order occupies its scheduled hour plus the following hour, regardless of
// the service type's estimated duration.
const SlotHours = 2

// Slot is a bookable window [StartHour, EndHour) on a given day
type Slot struct {
	StartHour int `json:"start_hour"`
	EndHour   int `json:"end_hour"`
}

// OccupiedHours collects the hours blocked by the given orders on a
// calendar day. Terminal orders do not block hours. The day comparison uses
// the scheduled timestamp's location.
func OccupiedHours(orders []*model.ServiceOrder, day time.Time) map[int]bool {
	occupied := make(map[int]bool)
	y, m, d := day.Date()
	for _, order := range orders {
		if order.ScheduledAt == nil || order.State.IsTerminal() {
			continue
		}
		oy, om, od := order.ScheduledAt.Date()
		if oy != y || om != m || od != d {
			continue
		}
		hour := order.ScheduledAt.Hour()
		occupied[hour] = true
		occupied[hour+1] = true
	}
	return occupied
}

// FreeSlots computes the bookable two-hour slots within the configured
// working windows, skipping any slot whose hours collide with occupied
// hours. Windows shorter than the slot footprint yield no slots.
func FreeSlots(ranges HourRanges, occupied map[int]bool) []Slot {
	slots := make([]Slot, 0)
	for _, r := range ranges {
		for hour := r.Start; hour+SlotHours <= r.End; hour += SlotHours {
			if occupied[hour] || occupied[hour+1] {
				continue
			}
			slots = append(slots, Slot{StartHour: hour, EndHour: hour + SlotHours})
		}
	}
	return slots
}

// CountActive counts orders scheduled on the given day that are not in a
// terminal state. This is the figure checked against a technician's daily
// capacity.
func CountActive(orders []*model.ServiceOrder, day time.Time) int {
	count := 0
	y, m, d := day.Date()
	for _, order := range orders {
		if order.ScheduledAt == nil || order.State.IsTerminal() {
			continue
		}
		oy, om, od := order.ScheduledAt.Date()
		if oy == y && om == m && od == d {
			count++
		}
	}
	return count
}

// HasCapacity reports whether a technician with the given daily maximum can
// accept one more order on top of the current active count.
func HasCapacity(activeCount, maxDaily int) bool {
	if maxDaily <= 0 {
		return false
	}
	return activeCount < maxDaily
}
