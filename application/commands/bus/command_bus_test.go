package bus_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"tutormatch-backend/application/commands/bus"
)

type testCommand struct {
	validateErr error
}

func (c testCommand) Validate() error { return c.validateErr }

type otherCommand struct{}

func (c otherCommand) Validate() error { return nil }

func TestCommandBus_DispatchesToRegisteredHandler(t *testing.T) {
	b := bus.NewCommandBus()

	require.NoError(t, b.Register(testCommand{}, bus.CommandHandlerFunc(
		func(ctx context.Context, cmd bus.Command) (interface{}, error) {
			return "done", nil
		})))

	result, err := b.Send(context.Background(), testCommand{})
	require.NoError(t, err)
	assert.Equal(t, "done", result)
}

func TestCommandBus_UnknownCommand(t *testing.T) {
	b := bus.NewCommandBus()

	_, err := b.Send(context.Background(), otherCommand{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no handler registered")
}

func TestCommandBus_DuplicateRegistration(t *testing.T) {
	b := bus.NewCommandBus()
	handler := bus.CommandHandlerFunc(func(ctx context.Context, cmd bus.Command) (interface{}, error) {
		return nil, nil
	})

	require.NoError(t, b.Register(testCommand{}, handler))
	assert.Error(t, b.Register(testCommand{}, handler))
}

func TestCommandBus_MiddlewareOrder(t *testing.T) {
	var order []string
	tag := func(name string) bus.Middleware {
		return func(next bus.CommandHandler) bus.CommandHandler {
			return bus.CommandHandlerFunc(func(ctx context.Context, cmd bus.Command) (interface{}, error) {
				order = append(order, name)
				return next.Handle(ctx, cmd)
			})
		}
	}

	b := bus.NewCommandBus(tag("outer"), tag("inner"))
	require.NoError(t, b.Register(testCommand{}, bus.CommandHandlerFunc(
		func(ctx context.Context, cmd bus.Command) (interface{}, error) {
			order = append(order, "handler")
			return nil, nil
		})))

	_, err := b.Send(context.Background(), testCommand{})
	require.NoError(t, err)
	assert.Equal(t, []string{"outer", "inner", "handler"}, order)
}

func TestValidationMiddleware_RejectsInvalidCommand(t *testing.T) {
	b := bus.NewCommandBus(bus.ValidationMiddleware())

	handlerCalled := false
	require.NoError(t, b.Register(testCommand{}, bus.CommandHandlerFunc(
		func(ctx context.Context, cmd bus.Command) (interface{}, error) {
			handlerCalled = true
			return nil, nil
		})))

	_, err := b.Send(context.Background(), testCommand{validateErr: errors.New("bad input")})
	require.Error(t, err)
	assert.False(t, handlerCalled)
}

func TestLoggingMiddleware_PassesResultThrough(t *testing.T) {
	b := bus.NewCommandBus(bus.LoggingMiddleware(zap.NewNop()))

	require.NoError(t, b.Register(testCommand{}, bus.CommandHandlerFunc(
		func(ctx context.Context, cmd bus.Command) (interface{}, error) {
			return 42, nil
		})))

	result, err := b.Send(context.Background(), testCommand{})
	require.NoError(t, err)
	assert.Equal(t, 42, result)
}
