package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestEquipmentLookupKey(t *testing.T) {
	seq := "CLI00042"
	equipment := &Equipment{
		Code:     "EQ00007",
		Customer: &Customer{ClientSequence: &seq},
	}
	require.Equal(t, "CLI00042-EQ00007", equipment.LookupKey())
}

func TestEquipmentLookupKeyWithoutSequence(t *testing.T) {
	// No key until the owner has a client sequence
	equipment := &Equipment{Code: "EQ00007", Customer: &Customer{}}
	require.Equal(t, "", equipment.LookupKey())

	equipment = &Equipment{Code: "EQ00007"}
	require.Equal(t, "", equipment.LookupKey())
}

func TestProductIncomeAccountCode(t *testing.T) {
	p := &Product{IncomeAccount: "4100", CategoryIncomeAccount: "4200"}
	require.Equal(t, "4100", p.IncomeAccountCode())

	p = &Product{CategoryIncomeAccount: "4200"}
	require.Equal(t, "4200", p.IncomeAccountCode())

	p = &Product{}
	require.Equal(t, "", p.IncomeAccountCode())
}

func TestOrderStateIsTerminal(t *testing.T) {
	require.True(t, OrderStateDone.IsTerminal())
	require.True(t, OrderStateCancelled.IsTerminal())
	require.False(t, OrderStateDraft.IsTerminal())
	require.False(t, OrderStateAssigned.IsTerminal())
	require.False(t, OrderStateInProgress.IsTerminal())
	require.False(t, OrderStatePendingApproval.IsTerminal())
	require.False(t, OrderStateAccepted.IsTerminal())
}

func TestOrderStateLabel(t *testing.T) {
	require.Equal(t, "Pending Approval", OrderStatePendingApproval.Label())
	require.Equal(t, "Unknown", OrderState("bogus").Label())
}

func TestOrderStateProgressPercent(t *testing.T) {
	require.Equal(t, 0, OrderStateDraft.ProgressPercent())
	require.Equal(t, 25, OrderStateAssigned.ProgressPercent())
	require.Equal(t, 50, OrderStateInProgress.ProgressPercent())
	require.Equal(t, 75, OrderStatePendingApproval.ProgressPercent())
	require.Equal(t, 85, OrderStateAccepted.ProgressPercent())
	require.Equal(t, 100, OrderStateDone.ProgressPercent())
	require.Equal(t, 0, OrderStateCancelled.ProgressPercent())
}

func TestOrderPriorityValid(t *testing.T) {
	require.True(t, PriorityNormal.Valid())
	require.True(t, PriorityUrgent.Valid())
	require.False(t, OrderPriority("asap").Valid())
}

func TestServiceOrderRecomputeTotal(t *testing.T) {
	order := &ServiceOrder{
		RefactionLines: []RefactionLine{
			{TotalPrice: 160},
			{TotalPrice: 45},
		},
	}
	order.RecomputeTotal(350)
	require.Equal(t, 555.0, order.TotalAmount)

	order.RefactionLines = nil
	order.RecomputeTotal(350)
	require.Equal(t, 350.0, order.TotalAmount)
}

func TestRefactionLineRecomputeTotal(t *testing.T) {
	line := &RefactionLine{Quantity: 2.5, UnitPrice: 80}
	line.RecomputeTotal()
	require.Equal(t, 200.0, line.TotalPrice)
}

func TestServiceOrderDuration(t *testing.T) {
	start := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	end := start.Add(90 * time.Minute)

	order := &ServiceOrder{StartedAt: &start, EndedAt: &end}
	require.Equal(t, 1.5, order.Duration())

	// Zero until both timestamps exist
	order = &ServiceOrder{StartedAt: &start}
	require.Equal(t, 0.0, order.Duration())
}

func TestServiceOrderIsOverdue(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	past := now.Add(-2 * time.Hour)
	future := now.Add(2 * time.Hour)

	require.True(t, (&ServiceOrder{State: OrderStateAssigned, ScheduledAt: &past}).IsOverdue(now))
	require.False(t, (&ServiceOrder{State: OrderStateAssigned, ScheduledAt: &future}).IsOverdue(now))
	require.False(t, (&ServiceOrder{State: OrderStateDone, ScheduledAt: &past}).IsOverdue(now))
	require.False(t, (&ServiceOrder{State: OrderStateCancelled, ScheduledAt: &past}).IsOverdue(now))
	require.False(t, (&ServiceOrder{State: OrderStateDraft}).IsOverdue(now))
}

func TestServiceOrderCanStart(t *testing.T) {
	techID := "tech-1"
	ts := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	order := &ServiceOrder{State: OrderStateAssigned, TechnicianID: &techID, ScheduledAt: &ts}
	require.True(t, order.CanStart())

	require.False(t, (&ServiceOrder{State: OrderStateDraft, TechnicianID: &techID, ScheduledAt: &ts}).CanStart())
	require.False(t, (&ServiceOrder{State: OrderStateAssigned, ScheduledAt: &ts}).CanStart())
	require.False(t, (&ServiceOrder{State: OrderStateAssigned, TechnicianID: &techID}).CanStart())
}
