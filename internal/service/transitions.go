package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"example.com/backstage/services/fieldservice/internal/model"
	"example.com/backstage/services/fieldservice/internal/notify"
)

// AssignRequest is the payload for scheduling an order onto a technician
type AssignRequest struct {
	TechnicianID string    `json:"technician_id" validate:"required,uuid4"`
	ScheduledAt  time.Time `json:"scheduled_at" validate:"required"`
}

// Assign schedules a draft order onto a technician's slot. The slot and the
// technician's daily capacity are re-checked inside the transaction so two
// concurrent assignments cannot both land on the same slot.
func (s *OrderService) Assign(ctx context.Context, orderID string, req *AssignRequest) (*model.ServiceOrder, error) {
	return s.schedule(ctx, orderID, req, OpAssign, "")
}

// Reschedule moves an assigned order to a new technician or slot. The order
// stays assigned, the move is recorded in the audit trail.
func (s *OrderService) Reschedule(ctx context.Context, orderID string, req *AssignRequest, reason string) (*model.ServiceOrder, error) {
	return s.schedule(ctx, orderID, req, OpReschedule, reason)
}

func (s *OrderService) schedule(ctx context.Context, orderID string, req *AssignRequest, op Operation, reason string) (*model.ServiceOrder, error) {
	txn := s.tracer.StartTransaction(string(op) + "-order")
	defer s.tracer.EndTransaction(txn)

	if err := s.validate.Struct(req); err != nil {
		return nil, NewValidationError("", err.Error())
	}
	if err := ValidateScheduleTime(op, req.ScheduledAt, s.now()); err != nil {
		return nil, err
	}

	technician, err := s.registry.technicianRepo.GetByID(ctx, req.TechnicianID)
	if err != nil {
		return nil, err
	}
	if !technician.IsTechnician {
		return nil, NewValidationError("technician_id", "person is not a technician")
	}

	var order *model.ServiceOrder
	var previousTechnician *string
	var previousDay *time.Time

	err = s.db.Transaction(func(tx *gorm.DB) error {
		order, err = s.orderRepo.GetByIDForUpdate(ctx, tx, orderID)
		if err != nil {
			return err
		}

		next, err := NextState(op, order.State)
		if err != nil {
			return err
		}

		previousTechnician = order.TechnicianID
		if order.ScheduledAt != nil {
			day := *order.ScheduledAt
			previousDay = &day
		}

		// The order's own footprint never blocks its move
		free, err := s.registry.SlotFree(ctx, tx, req.TechnicianID, req.ScheduledAt, order.UUID)
		if err != nil {
			return err
		}
		if !free {
			return NewCapacityError(req.TechnicianID, "requested slot is not available")
		}

		hasCapacity, err := s.registry.HasCapacity(ctx, tx, req.TechnicianID, req.ScheduledAt, order.UUID)
		if err != nil {
			return err
		}
		if !hasCapacity {
			return NewCapacityError(req.TechnicianID, "technician has reached the daily order limit")
		}

		oldState := order.State
		order.State = next
		order.TechnicianID = &technician.UUID
		order.ScheduledAt = &req.ScheduledAt

		err = tx.WithContext(ctx).Model(&model.ServiceOrder{}).
			Where("uuid = ?", order.UUID).
			Updates(map[string]interface{}{
				"state":         order.State,
				"technician_id": order.TechnicianID,
				"scheduled_at":  order.ScheduledAt,
			}).Error
		if err != nil {
			return errors.Wrap(err, "failed to update order schedule")
		}

		note := "assigned to " + technician.Name
		if op == OpReschedule {
			note = "rescheduled to " + technician.Name
			if reason != "" {
				note += ": " + reason
			}
		}
		return s.orderRepo.AppendLog(ctx, tx, &model.OrderLog{
			Base:     model.Base{UUID: uuid.New().String()},
			OrderID:  order.UUID,
			OldState: string(oldState),
			NewState: string(order.State),
			Note:     note,
		})
	})
	if err != nil {
		s.tracer.RecordError(txn, err)
		s.metrics.RecordError(string(op))
		return nil, err
	}

	s.metrics.IncrementCounter("orders_" + string(op) + "ed")
	s.metrics.RecordSuccess(string(op))

	s.afterSchedule(ctx, order, technician.UUID, req.ScheduledAt, previousTechnician, previousDay, op)
	return s.orderRepo.GetByID(ctx, orderID)
}

func (s *OrderService) afterSchedule(ctx context.Context, order *model.ServiceOrder, technicianID string, day time.Time, previousTechnician *string, previousDay *time.Time, op Operation) {
	s.invalidateOrder(ctx, order)
	if err := s.cache.DeleteDaySlots(ctx, technicianID, day); err != nil {
		log.Warn().Err(err).Msg("failed to invalidate day slots")
	}
	if previousTechnician != nil && previousDay != nil {
		if err := s.cache.DeleteDaySlots(ctx, *previousTechnician, *previousDay); err != nil {
			log.Warn().Err(err).Msg("failed to invalidate previous day slots")
		}
	}

	eventType := notify.EventOrderAssigned
	if op == OpReschedule {
		eventType = notify.EventOrderRescheduled
	}
	s.notifier.Publish(ctx, notify.OrderEvent(eventType, order, ""))
	s.indexOrder(ctx, order)

	log.Info().
		Str("order_id", order.UUID).
		Str("number", order.Number).
		Str("technician_id", technicianID).
		Time("scheduled_at", day).
		Msg(string(op) + " completed")
}

// Start marks the order in progress and stamps the start time
func (s *OrderService) Start(ctx context.Context, orderID string) (*model.ServiceOrder, error) {
	return s.transition(ctx, orderID, OpStart, notify.EventOrderStarted, "work started",
		func(order *model.ServiceOrder, updates map[string]interface{}) error {
			if !order.CanStart() {
				return NewPreconditionError("start", order.State)
			}
			startedAt := s.now()
			order.StartedAt = &startedAt
			updates["started_at"] = order.StartedAt
			return nil
		}, nil)
}

// RequestApprovalRequest carries the technician's diagnosis
type RequestApprovalRequest struct {
	Diagnosis string `json:"diagnosis" validate:"required"`
}

// RequestApproval records the diagnosis and parks the order until the
// customer decides
func (s *OrderService) RequestApproval(ctx context.Context, orderID string, req *RequestApprovalRequest) (*model.ServiceOrder, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, NewValidationError("", err.Error())
	}
	return s.transition(ctx, orderID, OpRequestApproval, notify.EventOrderDiagnosed, "diagnosis submitted",
		func(order *model.ServiceOrder, updates map[string]interface{}) error {
			order.Diagnosis = req.Diagnosis
			order.AcceptanceStatus = model.AcceptancePending
			updates["diagnosis"] = req.Diagnosis
			updates["acceptance_status"] = model.AcceptancePending
			return nil
		}, nil)
}

// Accept records the customer's approval of the diagnosis. Stock holds that
// were released by an earlier rejection are re-established, insufficient
// stock aborts the acceptance.
func (s *OrderService) Accept(ctx context.Context, orderID string) (*model.ServiceOrder, error) {
	return s.transition(ctx, orderID, OpAccept, notify.EventOrderAccepted, "diagnosis accepted by customer",
		func(order *model.ServiceOrder, updates map[string]interface{}) error {
			order.AcceptanceStatus = model.AcceptanceAccepted
			updates["acceptance_status"] = model.AcceptanceAccepted
			return nil
		},
		func(ctx context.Context, tx *gorm.DB, order *model.ServiceOrder) error {
			return s.inventory.ReserveOrder(ctx, tx, order.UUID)
		})
}

// RejectRequest carries the customer's reason for rejecting the diagnosis
type RejectRequest struct {
	Reason string `json:"reason" validate:"required"`
}

// Reject sends the order back to the technician with the customer's reason.
// Stock holds for the proposed parts are released.
func (s *OrderService) Reject(ctx context.Context, orderID string, req *RejectRequest) (*model.ServiceOrder, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, NewValidationError("", err.Error())
	}
	return s.transition(ctx, orderID, OpReject, notify.EventOrderRejected, "diagnosis rejected: "+req.Reason,
		func(order *model.ServiceOrder, updates map[string]interface{}) error {
			order.AcceptanceStatus = model.AcceptanceRejected
			order.RejectionReason = req.Reason
			updates["acceptance_status"] = model.AcceptanceRejected
			updates["rejection_reason"] = req.Reason
			return nil
		},
		func(ctx context.Context, tx *gorm.DB, order *model.ServiceOrder) error {
			return s.inventory.ReleaseOrder(ctx, tx, order.UUID)
		})
}

// CompleteRequest is the payload for closing out the work
type CompleteRequest struct {
	WorkPerformed     string `json:"work_performed" validate:"required"`
	CustomerSignature []byte `json:"customer_signature,omitempty"`
	PhotoBefore       []byte `json:"photo_before,omitempty"`
	PhotoAfter        []byte `json:"photo_after,omitempty"`
}

// Complete closes the order. Reserved parts are consumed in the same
// transaction, a consumption failure aborts the completion.
func (s *OrderService) Complete(ctx context.Context, orderID string, req *CompleteRequest) (*model.ServiceOrder, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, NewValidationError("", err.Error())
	}
	order, err := s.transition(ctx, orderID, OpComplete, notify.EventOrderCompleted, "work completed",
		func(order *model.ServiceOrder, updates map[string]interface{}) error {
			endedAt := s.now()
			order.EndedAt = &endedAt
			order.WorkPerformed = req.WorkPerformed
			updates["ended_at"] = order.EndedAt
			updates["work_performed"] = req.WorkPerformed
			if len(req.CustomerSignature) > 0 {
				order.CustomerSignature = req.CustomerSignature
				updates["customer_signature"] = req.CustomerSignature
			}
			if len(req.PhotoBefore) > 0 {
				updates["photo_before"] = req.PhotoBefore
			}
			if len(req.PhotoAfter) > 0 {
				updates["photo_after"] = req.PhotoAfter
			}
			return nil
		},
		func(ctx context.Context, tx *gorm.DB, order *model.ServiceOrder) error {
			return s.inventory.ConsumeOrder(ctx, tx, order.UUID)
		})
	if err != nil {
		return nil, err
	}
	s.metrics.IncrementCounter("orders_completed")
	return order, nil
}

// CancelRequest carries an optional cancellation reason
type CancelRequest struct {
	Reason string `json:"reason"`
}

// Cancel terminates the order from any non-terminal state and releases all
// outstanding stock holds
func (s *OrderService) Cancel(ctx context.Context, orderID string, req *CancelRequest) (*model.ServiceOrder, error) {
	note := "order cancelled"
	if req != nil && req.Reason != "" {
		note += ": " + req.Reason
	}
	order, err := s.transition(ctx, orderID, OpCancel, notify.EventOrderCancelled, note,
		nil,
		func(ctx context.Context, tx *gorm.DB, order *model.ServiceOrder) error {
			return s.inventory.ReleaseOrder(ctx, tx, order.UUID)
		})
	if err != nil {
		return nil, err
	}
	s.metrics.IncrementCounter("orders_cancelled")
	return order, nil
}

// mutator adjusts order fields and the update set inside the transition
type mutator func(order *model.ServiceOrder, updates map[string]interface{}) error

// sideEffect runs extra transactional work after the state update
type sideEffect func(ctx context.Context, tx *gorm.DB, order *model.ServiceOrder) error

// transition runs a lifecycle operation under a row lock: validate the
// transition table, apply field changes, write the audit log, run any
// transactional side effect, then publish and reindex after commit.
func (s *OrderService) transition(ctx context.Context, orderID string, op Operation, eventType, note string, mutate mutator, effect sideEffect) (*model.ServiceOrder, error) {
	txn := s.tracer.StartTransaction(string(op) + "-order")
	defer s.tracer.EndTransaction(txn)

	var order *model.ServiceOrder
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		order, err = s.orderRepo.GetByIDForUpdate(ctx, tx, orderID)
		if err != nil {
			return err
		}

		next, err := NextState(op, order.State)
		if err != nil {
			return err
		}

		oldState := order.State
		order.State = next
		updates := map[string]interface{}{"state": next}

		if mutate != nil {
			if err := mutate(order, updates); err != nil {
				return err
			}
		}

		err = tx.WithContext(ctx).Model(&model.ServiceOrder{}).
			Where("uuid = ?", order.UUID).
			Updates(updates).Error
		if err != nil {
			return errors.Wrapf(err, "failed to %s order", op)
		}

		if effect != nil {
			if err := effect(ctx, tx, order); err != nil {
				return err
			}
		}

		return s.orderRepo.AppendLog(ctx, tx, &model.OrderLog{
			Base:     model.Base{UUID: uuid.New().String()},
			OrderID:  order.UUID,
			OldState: string(oldState),
			NewState: string(next),
			Note:     note,
		})
	})
	if err != nil {
		s.tracer.RecordError(txn, err)
		s.metrics.RecordError(string(op))
		return nil, err
	}

	s.metrics.RecordSuccess(string(op))
	s.invalidateOrder(ctx, order)
	s.notifier.Publish(ctx, notify.OrderEvent(eventType, order, note))
	s.indexOrder(ctx, order)

	log.Info().
		Str("order_id", order.UUID).
		Str("number", order.Number).
		Str("state", string(order.State)).
		Msg("order transition applied")

	return s.orderRepo.GetByID(ctx, orderID)
}

// BatchAssignItem is one assignment in a batch request
type BatchAssignItem struct {
	OrderID      string    `json:"order_id" validate:"required,uuid4"`
	TechnicianID string    `json:"technician_id" validate:"required,uuid4"`
	ScheduledAt  time.Time `json:"scheduled_at" validate:"required"`
}

// BatchAssignResult reports the outcome for one item
type BatchAssignResult struct {
	OrderID string `json:"order_id"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// BatchAssign assigns a set of draft orders. Items are independent, a
// failure in one does not roll back the others.
func (s *OrderService) BatchAssign(ctx context.Context, items []BatchAssignItem) []BatchAssignResult {
	results := make([]BatchAssignResult, 0, len(items))
	for _, item := range items {
		result := BatchAssignResult{OrderID: item.OrderID}
		_, err := s.Assign(ctx, item.OrderID, &AssignRequest{
			TechnicianID: item.TechnicianID,
			ScheduledAt:  item.ScheduledAt,
		})
		if err != nil {
			result.Error = err.Error()
		} else {
			result.Success = true
		}
		results = append(results, result)
	}
	return results
}

// MarkOverdue flags orders scheduled in the past that never progressed and
// publishes an overdue event for each. Called from the background worker.
func (s *OrderService) MarkOverdue(ctx context.Context) (int, error) {
	now := s.now()
	orders, err := s.orderRepo.FindOverdue(ctx, now)
	if err != nil {
		return 0, err
	}

	flagged := 0
	for _, order := range orders {
		err := s.db.WithContext(ctx).Model(&model.ServiceOrder{}).
			Where("uuid = ?", order.UUID).
			Where("overdue_notified_at IS NULL").
			Update("overdue_notified_at", now).Error
		if err != nil {
			log.Error().Err(err).Str("order_id", order.UUID).Msg("failed to flag overdue order")
			continue
		}
		s.notifier.Publish(ctx, notify.OrderEvent(notify.EventOrderOverdue, order, "order is overdue"))
		flagged++
	}

	if flagged > 0 {
		log.Info().Int("count", flagged).Msg("overdue orders flagged")
	}
	return flagged, nil
}
