package service

import (
	"testing"
	"time"

	"example.com/backstage/services/fieldservice/internal/model"

	"github.com/stretchr/testify/require"
)

func TestNextStateLifecycle(t *testing.T) {
	// Walk the happy path through the full lifecycle
	state, err := NextState(OpAssign, model.OrderStateDraft)
	require.NoError(t, err)
	require.Equal(t, model.OrderStateAssigned, state)

	state, err = NextState(OpStart, state)
	require.NoError(t, err)
	require.Equal(t, model.OrderStateInProgress, state)

	state, err = NextState(OpRequestApproval, state)
	require.NoError(t, err)
	require.Equal(t, model.OrderStatePendingApproval, state)

	state, err = NextState(OpAccept, state)
	require.NoError(t, err)
	require.Equal(t, model.OrderStateAccepted, state)

	state, err = NextState(OpComplete, state)
	require.NoError(t, err)
	require.Equal(t, model.OrderStateDone, state)
}

func TestNextStateRejectReturnsToInProgress(t *testing.T) {
	state, err := NextState(OpReject, model.OrderStatePendingApproval)
	require.NoError(t, err)
	require.Equal(t, model.OrderStateInProgress, state)

	// A revised diagnosis can go back for approval
	state, err = NextState(OpRequestApproval, state)
	require.NoError(t, err)
	require.Equal(t, model.OrderStatePendingApproval, state)
}

func TestNextStateRescheduleKeepsAssigned(t *testing.T) {
	state, err := NextState(OpReschedule, model.OrderStateAssigned)
	require.NoError(t, err)
	require.Equal(t, model.OrderStateAssigned, state)

	// Reschedule is only valid while the order is assigned
	_, err = NextState(OpReschedule, model.OrderStateInProgress)
	require.Error(t, err)
}

func TestNextStateCompleteRequiresAccepted(t *testing.T) {
	for _, from := range []model.OrderState{
		model.OrderStateDraft, model.OrderStateAssigned, model.OrderStateInProgress,
		model.OrderStatePendingApproval, model.OrderStateDone, model.OrderStateCancelled,
	} {
		_, err := NextState(OpComplete, from)
		require.Error(t, err, "from %s", from)
		var precondition *PreconditionError
		require.ErrorAs(t, err, &precondition)
	}
}

func TestNextStateCancelFromAnyNonTerminal(t *testing.T) {
	for _, from := range []model.OrderState{
		model.OrderStateDraft, model.OrderStateAssigned, model.OrderStateInProgress,
		model.OrderStatePendingApproval, model.OrderStateAccepted,
	} {
		state, err := NextState(OpCancel, from)
		require.NoError(t, err, "from %s", from)
		require.Equal(t, model.OrderStateCancelled, state)
	}

	// Terminal states stay terminal
	_, err := NextState(OpCancel, model.OrderStateDone)
	require.Error(t, err)
	_, err = NextState(OpCancel, model.OrderStateCancelled)
	require.Error(t, err)
}

func TestNextStateInvalidTransitions(t *testing.T) {
	cases := []struct {
		op   Operation
		from model.OrderState
	}{
		{OpAssign, model.OrderStateAssigned},
		{OpAssign, model.OrderStateDone},
		{OpStart, model.OrderStateDraft},
		{OpStart, model.OrderStateInProgress},
		{OpRequestApproval, model.OrderStateAssigned},
		{OpAccept, model.OrderStateInProgress},
		{OpReject, model.OrderStateAccepted},
	}
	for _, tc := range cases {
		_, err := NextState(tc.op, tc.from)
		require.Error(t, err, "%s from %s", tc.op, tc.from)
	}
}

func TestNextStateUnknownOperation(t *testing.T) {
	_, err := NextState(Operation("teleport"), model.OrderStateDraft)
	require.Error(t, err)
	var validation *ValidationError
	require.ErrorAs(t, err, &validation)
}

func TestAllowedFrom(t *testing.T) {
	require.Equal(t, []model.OrderState{model.OrderStateDraft}, AllowedFrom(OpAssign))
	require.Len(t, AllowedFrom(OpCancel), 5)
	require.Nil(t, AllowedFrom(Operation("teleport")))
}

func TestValidateScheduleTime(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)

	require.NoError(t, ValidateScheduleTime(OpAssign, time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC), now))

	// First assignment rejects past or present times
	err := ValidateScheduleTime(OpAssign, time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC), now)
	require.Error(t, err)
	err = ValidateScheduleTime(OpAssign, now, now)
	require.Error(t, err)

	// A reschedule may land on any date, past included
	require.NoError(t, ValidateScheduleTime(OpReschedule, time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC), now))
	require.NoError(t, ValidateScheduleTime(OpReschedule, time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC), now))

	// Off-hour times are rejected for every operation
	for _, op := range []Operation{OpAssign, OpReschedule} {
		err = ValidateScheduleTime(op, time.Date(2026, 3, 10, 14, 30, 0, 0, time.UTC), now)
		require.Error(t, err)
		var validation *ValidationError
		require.ErrorAs(t, err, &validation)
		require.Equal(t, "scheduled_at", validation.Field)
	}
}
