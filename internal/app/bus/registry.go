package bus

import (
	"context"
	"fmt"

	"github.com/chadland/notification-service/internal/domain"
	"github.com/chadland/notification-service/internal/domain/port/repository"
)

// CommandHandlerFunc processes one command inside the cascade's unit of
// work. A returned error aborts the whole cascade.
type CommandHandlerFunc func(ctx context.Context, uow repository.UnitOfWork, cmd domain.Command) error

// EventHandlerFunc processes one event inside the cascade's unit of work.
// Errors are logged and isolated; they never abort the cascade.
type EventHandlerFunc func(ctx context.Context, uow repository.UnitOfWork, evt domain.Event) error

// HandlerTable is the statically built dispatch table mapping the closed
// set of message names to their handlers. It is assembled once at process
// start by the composition root and validated before the bus accepts
// traffic.
type HandlerTable struct {
	commands map[string]CommandHandlerFunc
	events   map[string][]EventHandlerFunc
}

func NewHandlerTable() *HandlerTable {
	return &HandlerTable{
		commands: make(map[string]CommandHandlerFunc),
		events:   make(map[string][]EventHandlerFunc),
	}
}

// RegisterCommand binds a command name to its single handler. Registering a
// second handler for the same name is a configuration error.
func (t *HandlerTable) RegisterCommand(name string, handler CommandHandlerFunc) error {
	if handler == nil {
		return fmt.Errorf("nil handler for command %q", name)
	}
	if _, exists := t.commands[name]; exists {
		return fmt.Errorf("command %q already has a handler registered", name)
	}
	t.commands[name] = handler
	return nil
}

// Subscribe appends an event handler for the given event name. Handlers are
// invoked in registration order.
func (t *HandlerTable) Subscribe(eventName string, handler EventHandlerFunc) {
	t.events[eventName] = append(t.events[eventName], handler)
}

// Validate checks that every command in the closed set has exactly one
// handler and that no handler is registered for an unknown command name.
// Called once at startup; a failure here is a wiring bug.
func (t *HandlerTable) Validate(commandNames []string) error {
	known := make(map[string]struct{}, len(commandNames))
	for _, name := range commandNames {
		known[name] = struct{}{}
		if _, ok := t.commands[name]; !ok {
			return fmt.Errorf("no handler registered for command %q", name)
		}
	}
	for name := range t.commands {
		if _, ok := known[name]; !ok {
			return fmt.Errorf("handler registered for unknown command %q", name)
		}
	}
	return nil
}

func (t *HandlerTable) commandHandler(name string) (CommandHandlerFunc, bool) {
	h, ok := t.commands[name]
	return h, ok
}

func (t *HandlerTable) eventHandlers(name string) []EventHandlerFunc {
	return t.events[name]
}
