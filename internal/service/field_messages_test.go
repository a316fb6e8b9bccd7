package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestProcessFieldMessageRejectsBadPayloads(t *testing.T) {
	service := &OrderService{}

	// Malformed JSON
	err := service.ProcessFieldMessage(context.Background(), []byte("{not json"))
	require.Error(t, err)

	// Missing order reference
	err = service.ProcessFieldMessage(context.Background(), []byte(`{"type":"start"}`))
	require.Error(t, err)

	// Unknown message type
	err = service.ProcessFieldMessage(context.Background(), []byte(`{"type":"levitate","order_id":"abc"}`))
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown field message type")
}
