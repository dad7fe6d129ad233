package bus

import (
	"context"
	"errors"
	"testing"

	"github.com/chadland/notification-service/internal/domain"
	"github.com/chadland/notification-service/internal/domain/port/repository"
	"github.com/chadland/notification-service/internal/infrastructure/persistence/memory"
	"github.com/chadland/notification-service/internal/observability/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Test messages ---

type testCommand struct{ name string }

func (c testCommand) CommandName() string { return c.name }

type testEvent struct{ name string }

func (e testEvent) EventName() string { return e.name }

func newTestBus(t *testing.T, table *HandlerTable) *MessageBus {
	t.Helper()
	return NewMessageBus(table, memory.NewFactory(memory.NewStore()))
}

// --- Tests ---

func TestHandlerTable_RegisterCommand(t *testing.T) {
	table := NewHandlerTable()
	noop := func(ctx context.Context, uow repository.UnitOfWork, cmd domain.Command) error { return nil }

	require.NoError(t, table.RegisterCommand("do_thing", noop))

	// A command has exactly one handler: duplicates fail fast.
	err := table.RegisterCommand("do_thing", noop)
	assert.Error(t, err)

	assert.Error(t, table.RegisterCommand("nil_handler", nil))
}

func TestHandlerTable_Validate(t *testing.T) {
	noop := func(ctx context.Context, uow repository.UnitOfWork, cmd domain.Command) error { return nil }

	t.Run("Missing handler", func(t *testing.T) {
		table := NewHandlerTable()
		err := table.Validate([]string{"do_thing"})
		assert.ErrorContains(t, err, "no handler registered")
	})

	t.Run("Unknown command", func(t *testing.T) {
		table := NewHandlerTable()
		require.NoError(t, table.RegisterCommand("rogue", noop))
		err := table.Validate([]string{})
		assert.ErrorContains(t, err, "unknown command")
	})

	t.Run("Complete table", func(t *testing.T) {
		table := NewHandlerTable()
		require.NoError(t, table.RegisterCommand("do_thing", noop))
		assert.NoError(t, table.Validate([]string{"do_thing"}))
	})
}

func TestMessageBus_CommandErrorAbortsCascade(t *testing.T) {
	table := NewHandlerTable()
	boom := errors.New("boom")
	require.NoError(t, table.RegisterCommand("explode", func(ctx context.Context, uow repository.UnitOfWork, cmd domain.Command) error {
		return boom
	}))

	err := newTestBus(t, table).Handle(context.Background(), testCommand{name: "explode"})
	assert.ErrorIs(t, err, boom)
}

func TestMessageBus_UnregisteredCommandFails(t *testing.T) {
	err := newTestBus(t, NewHandlerTable()).Handle(context.Background(), testCommand{name: "ghost"})
	assert.ErrorContains(t, err, "no handler registered")
}

func TestMessageBus_UnknownMessageTypeFails(t *testing.T) {
	err := newTestBus(t, NewHandlerTable()).Handle(context.Background(), 42)
	assert.ErrorContains(t, err, "unknown message type")
}

func TestMessageBus_BreadthFirstOrdering(t *testing.T) {
	// The command emits A then B; A's handler emits C. Breadth-first means
	// the observed order is A, B, C rather than A, C, B.
	table := NewHandlerTable()
	var observed []string

	require.NoError(t, table.RegisterCommand("start", func(ctx context.Context, uow repository.UnitOfWork, cmd domain.Command) error {
		if err := uow.Begin(ctx); err != nil {
			return err
		}
		uow.Record(testEvent{name: "A"}, testEvent{name: "B"})
		return uow.Commit(ctx)
	}))
	table.Subscribe("A", func(ctx context.Context, uow repository.UnitOfWork, evt domain.Event) error {
		observed = append(observed, "A")
		if err := uow.Begin(ctx); err != nil {
			return err
		}
		uow.Record(testEvent{name: "C"})
		return uow.Commit(ctx)
	})
	table.Subscribe("B", func(ctx context.Context, uow repository.UnitOfWork, evt domain.Event) error {
		observed = append(observed, "B")
		return nil
	})
	table.Subscribe("C", func(ctx context.Context, uow repository.UnitOfWork, evt domain.Event) error {
		observed = append(observed, "C")
		return nil
	})

	err := newTestBus(t, table).Handle(context.Background(), testCommand{name: "start"})
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C"}, observed)
}

func TestMessageBus_EventHandlerFailureIsIsolated(t *testing.T) {
	table := NewHandlerTable()
	var secondRan, cascadeContinued bool

	require.NoError(t, table.RegisterCommand("start", func(ctx context.Context, uow repository.UnitOfWork, cmd domain.Command) error {
		if err := uow.Begin(ctx); err != nil {
			return err
		}
		uow.Record(testEvent{name: "A"})
		return uow.Commit(ctx)
	}))
	table.Subscribe("A", func(ctx context.Context, uow repository.UnitOfWork, evt domain.Event) error {
		return errors.New("handler one failed")
	})
	table.Subscribe("A", func(ctx context.Context, uow repository.UnitOfWork, evt domain.Event) error {
		// Runs despite the first handler's failure.
		secondRan = true
		if err := uow.Begin(ctx); err != nil {
			return err
		}
		uow.Record(testEvent{name: "B"})
		return uow.Commit(ctx)
	})
	table.Subscribe("B", func(ctx context.Context, uow repository.UnitOfWork, evt domain.Event) error {
		cascadeContinued = true
		return nil
	})

	err := newTestBus(t, table).Handle(context.Background(), testCommand{name: "start"})
	require.NoError(t, err, "event handler failures must not abort the cascade")
	assert.True(t, secondRan)
	assert.True(t, cascadeContinued)
}

func TestMessageBus_EventWithNoHandlersDrainsCleanly(t *testing.T) {
	table := NewHandlerTable()
	require.NoError(t, table.RegisterCommand("start", func(ctx context.Context, uow repository.UnitOfWork, cmd domain.Command) error {
		if err := uow.Begin(ctx); err != nil {
			return err
		}
		uow.Record(testEvent{name: "unheard"})
		return uow.Commit(ctx)
	}))

	err := newTestBus(t, table).Handle(context.Background(), testCommand{name: "start"})
	assert.NoError(t, err)
}

func TestMessageBus_CommandDispatchIsCounted(t *testing.T) {
	table := NewHandlerTable()
	require.NoError(t, table.RegisterCommand("count_ok", func(ctx context.Context, uow repository.UnitOfWork, cmd domain.Command) error {
		return nil
	}))
	require.NoError(t, table.RegisterCommand("count_fail", func(ctx context.Context, uow repository.UnitOfWork, cmd domain.Command) error {
		return errors.New("boom")
	}))

	okBefore := testutil.ToFloat64(metrics.CommandsProcessed.WithLabelValues("count_ok", "true"))
	failBefore := testutil.ToFloat64(metrics.CommandsProcessed.WithLabelValues("count_fail", "false"))

	b := newTestBus(t, table)
	require.NoError(t, b.Handle(context.Background(), testCommand{name: "count_ok"}))
	require.Error(t, b.Handle(context.Background(), testCommand{name: "count_fail"}))

	assert.Equal(t, okBefore+1, testutil.ToFloat64(metrics.CommandsProcessed.WithLabelValues("count_ok", "true")))
	assert.Equal(t, failBefore+1, testutil.ToFloat64(metrics.CommandsProcessed.WithLabelValues("count_fail", "false")))
}
