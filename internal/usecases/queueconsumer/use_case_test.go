package queueconsumer

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/chadland/notification-service/internal/app/bus"
	"github.com/chadland/notification-service/internal/domain"
	"github.com/chadland/notification-service/internal/domain/port/broker"
	"github.com/chadland/notification-service/internal/domain/port/repository"
	"github.com/chadland/notification-service/internal/infrastructure/persistence/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- Mocks ---

type MockMessage struct {
	mock.Mock
	name          string
	payload       []byte
	deliveryCount int
}

func (m *MockMessage) Name() string {
	return m.name
}
func (m *MockMessage) Payload() []byte {
	return m.payload
}
func (m *MockMessage) DeliveryCount() int {
	return m.deliveryCount
}
func (m *MockMessage) Ack(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
func (m *MockMessage) Redeliver(ctx context.Context, delay time.Duration) error {
	args := m.Called(ctx, delay)
	return args.Error(0)
}
func (m *MockMessage) MoveToDLQ(ctx context.Context, processingError error) error {
	args := m.Called(ctx, processingError)
	return args.Error(0)
}

var _ broker.Message = (*MockMessage)(nil)

type MockMessageBroker struct {
	mock.Mock
}

func (m *MockMessageBroker) Consume(ctx context.Context, consumeFunc func(ctx context.Context, msg broker.Message) error) error {
	args := m.Called(ctx, consumeFunc)
	return args.Error(0)
}
func (m *MockMessageBroker) Close() error {
	args := m.Called()
	return args.Error(0)
}

var _ broker.MessageBroker = (*MockMessageBroker)(nil)

// --- Helpers ---

func newTestBus(t *testing.T, handler bus.CommandHandlerFunc) *bus.MessageBus {
	t.Helper()
	table := bus.NewHandlerTable()
	require.NoError(t, table.RegisterCommand(domain.RetryNotificationName, handler))
	return bus.NewMessageBus(table, memory.NewFactory(memory.NewStore()))
}

func retryMessage(deliveryCount int) *MockMessage {
	payload, _ := json.Marshal(domain.RetryNotification{NotificationID: strings.Repeat("1", 32)})
	return &MockMessage{
		name:          domain.RetryNotificationName,
		payload:       payload,
		deliveryCount: deliveryCount,
	}
}

// --- Tests ---

func TestProcessMessage(t *testing.T) {
	handleErr := errors.New("handler failed")

	tests := []struct {
		name          string
		message       *MockMessage
		handler       bus.CommandHandlerFunc
		setupMock     func(msg *MockMessage)
		wantHandled   bool
		wantProcessed bool
	}{
		{
			name:    "Successful cascade acks",
			message: retryMessage(0),
			handler: func(ctx context.Context, uow repository.UnitOfWork, cmd domain.Command) error {
				return nil
			},
			setupMock: func(msg *MockMessage) {
				msg.On("Ack", mock.Anything).Return(nil).Once()
			},
			wantHandled: true,
		},
		{
			name:    "Failed cascade with budget left redelivers",
			message: retryMessage(0),
			handler: func(ctx context.Context, uow repository.UnitOfWork, cmd domain.Command) error {
				return handleErr
			},
			setupMock: func(msg *MockMessage) {
				msg.On("Redeliver", mock.Anything, mock.AnythingOfType("time.Duration")).Return(nil).Once()
			},
			wantHandled: true,
		},
		{
			name:    "Failed cascade at redelivery limit dead-letters",
			message: retryMessage(3),
			handler: func(ctx context.Context, uow repository.UnitOfWork, cmd domain.Command) error {
				return handleErr
			},
			setupMock: func(msg *MockMessage) {
				msg.On("MoveToDLQ", mock.Anything, mock.Anything).Return(nil).Once()
			},
			wantHandled: true,
		},
		{
			name: "Undecodable payload dead-letters without dispatch",
			message: &MockMessage{
				name:    domain.RetryNotificationName,
				payload: []byte("{not json"),
			},
			handler: func(ctx context.Context, uow repository.UnitOfWork, cmd domain.Command) error {
				t.Fatal("handler must not run for an undecodable message")
				return nil
			},
			setupMock: func(msg *MockMessage) {
				msg.On("MoveToDLQ", mock.Anything, mock.Anything).Return(nil).Once()
			},
		},
		{
			name: "Unknown message name dead-letters",
			message: &MockMessage{
				name:    "no.such.message",
				payload: []byte("{}"),
			},
			handler: func(ctx context.Context, uow repository.UnitOfWork, cmd domain.Command) error {
				return nil
			},
			setupMock: func(msg *MockMessage) {
				msg.On("MoveToDLQ", mock.Anything, mock.Anything).Return(nil).Once()
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			messageBus := newTestBus(t, tt.handler)
			useCase := NewQueueConsumerUseCase(new(MockMessageBroker), messageBus, 3, 0)

			tt.setupMock(tt.message)
			err := useCase.processMessage(context.Background(), tt.message)
			assert.NoError(t, err)
			tt.message.AssertExpectations(t)
		})
	}
}

func TestProcessMessage_RedeliverFailureFallsBackToDLQ(t *testing.T) {
	messageBus := newTestBus(t, func(ctx context.Context, uow repository.UnitOfWork, cmd domain.Command) error {
		return errors.New("handler failed")
	})
	useCase := NewQueueConsumerUseCase(new(MockMessageBroker), messageBus, 3, 0)

	msg := retryMessage(1)
	msg.On("Redeliver", mock.Anything, mock.Anything).Return(errors.New("writer down")).Once()
	msg.On("MoveToDLQ", mock.Anything, mock.Anything).Return(nil).Once()

	err := useCase.processMessage(context.Background(), msg)
	assert.NoError(t, err)
	msg.AssertExpectations(t)
}

func TestNewQueueConsumerUseCase_DefaultsInvalidRedeliveries(t *testing.T) {
	useCase := NewQueueConsumerUseCase(new(MockMessageBroker), nil, 0, 0)
	assert.Equal(t, defaultMaxRedeliveries, useCase.maxRedeliveries)
}
