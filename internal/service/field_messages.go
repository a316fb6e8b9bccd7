package service

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// FieldMessage is the payload technicians' devices push through the queue
// when they work offline. Each message maps to one lifecycle operation.
type FieldMessage struct {
	Type          string `json:"type"`
	OrderID       string `json:"order_id"`
	Diagnosis     string `json:"diagnosis,omitempty"`
	WorkPerformed string `json:"work_performed,omitempty"`
	Reason        string `json:"reason,omitempty"`
}

// Field message types
const (
	FieldMessageStart           = "start"
	FieldMessageRequestApproval = "request_approval"
	FieldMessageComplete        = "complete"
)

// ProcessFieldMessage applies a queued field report to its order. Precondition
// failures are logged and swallowed so a stale duplicate does not poison the
// queue.
func (s *OrderService) ProcessFieldMessage(ctx context.Context, body []byte) error {
	var msg FieldMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return errors.Wrap(err, "failed to unmarshal field message")
	}
	if msg.OrderID == "" {
		return errors.New("field message missing order_id")
	}

	log.Info().
		Str("type", msg.Type).
		Str("order_id", msg.OrderID).
		Msg("processing field message")

	var err error
	switch msg.Type {
	case FieldMessageStart:
		_, err = s.Start(ctx, msg.OrderID)
	case FieldMessageRequestApproval:
		_, err = s.RequestApproval(ctx, msg.OrderID, &RequestApprovalRequest{Diagnosis: msg.Diagnosis})
	case FieldMessageComplete:
		_, err = s.Complete(ctx, msg.OrderID, &CompleteRequest{WorkPerformed: msg.WorkPerformed})
	default:
		return errors.Errorf("unknown field message type %q", msg.Type)
	}

	var precondition *PreconditionError
	if errors.As(err, &precondition) {
		log.Warn().
			Str("order_id", msg.OrderID).
			Str("type", msg.Type).
			Msg("field message skipped, order already moved on")
		return nil
	}
	return err
}
