package service

import (
	"time"

	"example.com/backstage/services/fieldservice/internal/model"
)

// Operation names a lifecycle transition on a service order
type Operation string

const (
	OpAssign          Operation = "assign"
	OpStart           Operation = "start"
	OpRequestApproval Operation = "request_approval"
	OpAccept          Operation = "accept"
	OpReject          Operation = "reject"
	OpComplete        Operation = "complete"
	OpCancel          Operation = "cancel"
	OpReschedule      Operation = "reschedule"
)

// transitionRule holds the states an operation may run from and the state it
// lands in
type transitionRule struct {
	from []model.OrderState
	to   model.OrderState
}

// The order lifecycle. Reject sends the order back to in_progress so the
// technician can revise the diagnosis. Reschedule keeps the order assigned,
// only the slot moves. Cancel is allowed from any non-terminal state.
var transitionRules = map[Operation]transitionRule{
	OpAssign: {
		from: []model.OrderState{model.OrderStateDraft},
		to:   model.OrderStateAssigned,
	},
	OpStart: {
		from: []model.OrderState{model.OrderStateAssigned},
		to:   model.OrderStateInProgress,
	},
	OpRequestApproval: {
		from: []model.OrderState{model.OrderStateInProgress},
		to:   model.OrderStatePendingApproval,
	},
	OpAccept: {
		from: []model.OrderState{model.OrderStatePendingApproval},
		to:   model.OrderStateAccepted,
	},
	OpReject: {
		from: []model.OrderState{model.OrderStatePendingApproval},
		to:   model.OrderStateInProgress,
	},
	OpComplete: {
		from: []model.OrderState{model.OrderStateAccepted},
		to:   model.OrderStateDone,
	},
	OpCancel: {
		from: []model.OrderState{
			model.OrderStateDraft, model.OrderStateAssigned, model.OrderStateInProgress,
			model.OrderStatePendingApproval, model.OrderStateAccepted,
		},
		to: model.OrderStateCancelled,
	},
	OpReschedule: {
		from: []model.OrderState{model.OrderStateAssigned},
		to:   model.OrderStateAssigned,
	},
}

// NextState returns the state the operation moves the order into, or a
// precondition error when the operation is not allowed from the current state.
func NextState(op Operation, from model.OrderState) (model.OrderState, error) {
	rule, ok := transitionRules[op]
	if !ok {
		return "", NewValidationError("operation", "unknown operation "+string(op))
	}
	for _, allowed := range rule.from {
		if allowed == from {
			return rule.to, nil
		}
	}
	return "", NewPreconditionError(string(op), from)
}

// AllowedFrom returns the states the operation may run from
func AllowedFrom(op Operation) []model.OrderState {
	rule, ok := transitionRules[op]
	if !ok {
		return nil
	}
	out := make([]model.OrderState, len(rule.from))
	copy(out, rule.from)
	return out
}

// ValidateScheduleTime checks the requested slot time for a scheduling
// operation. Slots always start on a whole hour. Only first-time assignment
// requires a future time, an already assigned order may be rescheduled onto
// any date.
func ValidateScheduleTime(op Operation, scheduledAt, now time.Time) error {
	if scheduledAt.Minute() != 0 || scheduledAt.Second() != 0 || scheduledAt.Nanosecond() != 0 {
		return NewValidationError("scheduled_at", "must start on a whole hour")
	}
	if op == OpAssign && !scheduledAt.After(now) {
		return NewValidationError("scheduled_at", "must be in the future")
	}
	return nil
}
