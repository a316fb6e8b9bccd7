package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azservicebus"
	"github.com/rs/zerolog/log"

	"example.com/backstage/services/fieldservice/config"
	"example.com/backstage/services/fieldservice/internal/tracing"
)

// MessageHandler processes one raw message body
type MessageHandler func(ctx context.Context, body []byte) error

// ServiceBusClient is an interface for Azure Service Bus operations
type ServiceBusClient interface {
	SendMessage(ctx context.Context, body interface{}) error
	ProcessMessages(ctx context.Context, handler MessageHandler) error
	Close() error
}

// serviceBusClient implements the ServiceBusClient interface
type serviceBusClient struct {
	client    *azservicebus.Client
	sender    *azservicebus.Sender
	queueName string
	tracer    tracing.Tracer
}

// mockServiceBusClient is a mock implementation for local development
type mockServiceBusClient struct{}

// NewAzureServiceBus creates a new Azure Service Bus client. Without a
// connection string a mock client is returned so local development works
// without Azure.
func NewAzureServiceBus(cfg config.AzureConfig, tracer tracing.Tracer) (ServiceBusClient, error) {
	if cfg.QueueConnStr == "" {
		log.Warn().Msg("Azure Service Bus connection string not provided, using mock client")
		return &mockServiceBusClient{}, nil
	}

	// Create the Service Bus client
	client, err := azservicebus.NewClientFromConnectionString(cfg.QueueConnStr, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Service Bus client: %w", err)
	}

	// Create a sender for the queue
	sender, err := client.NewSender(cfg.QueueName, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Service Bus sender: %w", err)
	}

	return &serviceBusClient{
		client:    client,
		sender:    sender,
		queueName: cfg.QueueName,
		tracer:    tracer,
	}, nil
}

// SendMessage sends a message to the Service Bus queue
func (s *serviceBusClient) SendMessage(ctx context.Context, body interface{}) error {
	// Convert the body to JSON
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal message body: %w", err)
	}

	// Create the message
	msg := &azservicebus.Message{
		Body: data,
		ApplicationProperties: map[string]interface{}{
			"source": "fieldservice",
			"time":   time.Now().UTC().Format(time.RFC3339),
		},
	}

	// Send the message
	return s.sender.SendMessage(ctx, msg, nil)
}

// ProcessMessages receives messages from the queue in a loop and dispatches
// them to the handler. Handler failures abandon the message so it redelivers.
// Returns when the context is cancelled.
func (s *serviceBusClient) ProcessMessages(ctx context.Context, handler MessageHandler) error {
	receiver, err := s.client.NewReceiverForQueue(s.queueName, nil)
	if err != nil {
		return fmt.Errorf("failed to create Service Bus receiver: %w", err)
	}
	defer receiver.Close(context.Background())

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		messages, err := receiver.ReceiveMessages(ctx, 10, nil)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			log.Error().Err(err).Msg("failed to receive messages, retrying")
			time.Sleep(5 * time.Second)
			continue
		}

		for _, message := range messages {
			txn := s.tracer.StartTransaction("servicebus.message")
			if err := handler(ctx, message.Body); err != nil {
				log.Error().Err(err).Str("message_id", message.MessageID).Msg("failed to process message")
				s.tracer.RecordError(txn, err)
				if abandonErr := receiver.AbandonMessage(ctx, message, nil); abandonErr != nil {
					log.Error().Err(abandonErr).Msg("failed to abandon message")
				}
				s.tracer.EndTransaction(txn)
				continue
			}

			if err := receiver.CompleteMessage(ctx, message, nil); err != nil {
				log.Error().Err(err).Msg("failed to complete message")
			}
			s.tracer.EndTransaction(txn)
		}
	}
}

// Close closes the Service Bus client
func (s *serviceBusClient) Close() error {
	// Close the sender
	if s.sender != nil {
		if err := s.sender.Close(context.Background()); err != nil {
			return err
		}
	}

	// Close the client
	if s.client != nil {
		return s.client.Close(context.Background())
	}

	return nil
}

// SendMessage implementation for mock client
func (m *mockServiceBusClient) SendMessage(ctx context.Context, body interface{}) error {
	log.Debug().Interface("body", body).Msg("[MOCK ServiceBus] message sent")
	return nil
}

// ProcessMessages implementation for mock client blocks until cancelled
func (m *mockServiceBusClient) ProcessMessages(ctx context.Context, handler MessageHandler) error {
	<-ctx.Done()
	return nil
}

// Close implementation for mock client
func (m *mockServiceBusClient) Close() error {
	return nil
}
