package notify

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"example.com/backstage/services/fieldservice/internal/messaging"
	"example.com/backstage/services/fieldservice/internal/model"
)

// Event types published on order lifecycle changes
const (
	EventOrderAssigned    = "order.assigned"
	EventOrderStarted     = "order.started"
	EventOrderDiagnosed   = "order.diagnosed"
	EventOrderAccepted    = "order.accepted"
	EventOrderRejected    = "order.rejected"
	EventOrderCompleted   = "order.completed"
	EventOrderCancelled   = "order.cancelled"
	EventOrderRescheduled = "order.rescheduled"
	EventOrderOverdue     = "order.overdue"
	EventInvoiceCreated   = "invoice.created"
)

// Event is the message published for a lifecycle change
type Event struct {
	Type         string    `json:"type"`
	OrderID      string    `json:"order_id"`
	OrderNumber  string    `json:"order_number"`
	CustomerID   string    `json:"customer_id"`
	TechnicianID string    `json:"technician_id,omitempty"`
	State        string    `json:"state"`
	Note         string    `json:"note,omitempty"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// Notifier publishes order lifecycle events for downstream consumers
// (customer email, technician calendar sync)
type Notifier interface {
	Publish(ctx context.Context, event Event) error
}

// busNotifier implements Notifier over Azure Service Bus
type busNotifier struct {
	bus messaging.ServiceBusClient
}

// NewNotifier creates a notifier publishing to the service bus
func NewNotifier(bus messaging.ServiceBusClient) Notifier {
	return &busNotifier{bus: bus}
}

// Publish sends the event. Failures are logged but never surfaced to the
// caller, lifecycle transitions must not fail because a notification did.
func (n *busNotifier) Publish(ctx context.Context, event Event) error {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	if err := n.bus.SendMessage(ctx, event); err != nil {
		log.Error().Err(err).
			Str("event_type", event.Type).
			Str("order_id", event.OrderID).
			Msg("failed to publish order event")
		return nil
	}

	log.Info().
		Str("event_type", event.Type).
		Str("order_number", event.OrderNumber).
		Msg("order event published")
	return nil
}

// OrderEvent builds an event from an order and type
func OrderEvent(eventType string, order *model.ServiceOrder, note string) Event {
	event := Event{
		Type:        eventType,
		OrderID:     order.UUID,
		OrderNumber: order.Number,
		CustomerID:  order.CustomerID,
		State:       string(order.State),
		Note:        note,
		OccurredAt:  time.Now().UTC(),
	}
	if order.TechnicianID != nil {
		event.TechnicianID = *order.TechnicianID
	}
	return event
}
