package bus

import (
	"context"
	"fmt"

	"github.com/chadland/notification-service/internal/domain"
	"github.com/chadland/notification-service/internal/domain/port/repository"
	"github.com/chadland/notification-service/internal/observability/metrics"
	"github.com/chadland/notification-service/pkg/logger"
	"go.uber.org/zap"
)

// Message is either a domain.Command or a domain.Event.
type Message any

// MessageBus routes one inbound message to its handlers and drains the
// cascade of domain events the handlers produce. Each Handle call owns a
// fresh unit of work, so independent cascades can run concurrently with the
// underlying storage transactions as the only shared state.
type MessageBus struct {
	table      *HandlerTable
	uowFactory repository.UnitOfWorkFactory
}

func NewMessageBus(table *HandlerTable, uowFactory repository.UnitOfWorkFactory) *MessageBus {
	return &MessageBus{
		table:      table,
		uowFactory: uowFactory,
	}
}

// Handle processes the inbound message and the full cascade it triggers.
//
// Processing is breadth-first over a FIFO queue: after each message's
// handlers complete, the events its transaction committed are appended to
// the back of the queue, so all direct effects of one message are enqueued
// together before the next layer runs. A command handler error propagates
// immediately and aborts the cascade; event handler errors are logged and
// isolated.
func (b *MessageBus) Handle(ctx context.Context, msg Message) error {
	uow := b.uowFactory.New()
	queue := []Message{msg}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		switch m := current.(type) {
		case domain.Command:
			if err := b.handleCommand(ctx, uow, m); err != nil {
				return err
			}
		case domain.Event:
			b.handleEvent(ctx, uow, m)
		default:
			return fmt.Errorf("message bus received unknown message type %T", current)
		}

		for _, evt := range uow.CollectNewEvents() {
			queue = append(queue, evt)
		}
	}
	return nil
}

func (b *MessageBus) handleCommand(ctx context.Context, uow repository.UnitOfWork, cmd domain.Command) error {
	handler, ok := b.table.commandHandler(cmd.CommandName())
	if !ok {
		// Startup validation makes this unreachable for the closed command
		// set; hitting it means a message slipped in outside that set.
		return fmt.Errorf("no handler registered for command %q", cmd.CommandName())
	}

	logger.L().Debug("Handling command",
		zap.String("command", cmd.CommandName()),
		zap.String("traceID", logger.TraceIDFromContext(ctx)),
	)
	if err := handler(ctx, uow, cmd); err != nil {
		metrics.CommandProcessed(cmd.CommandName(), false)
		logger.L().Error("Command handler failed, aborting cascade",
			zap.String("command", cmd.CommandName()),
			zap.String("traceID", logger.TraceIDFromContext(ctx)),
			zap.Error(err),
		)
		return fmt.Errorf("handling command %q: %w", cmd.CommandName(), err)
	}
	metrics.CommandProcessed(cmd.CommandName(), true)
	return nil
}

func (b *MessageBus) handleEvent(ctx context.Context, uow repository.UnitOfWork, evt domain.Event) {
	for _, handler := range b.table.eventHandlers(evt.EventName()) {
		if err := handler(ctx, uow, evt); err != nil {
			// Side-effect fallout stays isolated: remaining handlers and the
			// rest of the cascade still run.
			logger.L().Error("Event handler failed, continuing cascade",
				zap.String("event", evt.EventName()),
				zap.String("traceID", logger.TraceIDFromContext(ctx)),
				zap.Error(err),
			)
		}
	}
}
