package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type orderEvent struct{ N int }

type otherEvent struct{ S string }

func TestBus_HandlersRunInRegistrationOrder(t *testing.T) {
	bus := NewBus(nil)
	var order []string

	Subscribe(bus, func(_ context.Context, _ orderEvent) error {
		order = append(order, "first")
		return nil
	})
	Subscribe(bus, func(_ context.Context, _ orderEvent) error {
		order = append(order, "second")
		return nil
	})
	Subscribe(bus, func(_ context.Context, _ orderEvent) error {
		order = append(order, "third")
		return nil
	})

	Publish(context.Background(), bus, orderEvent{N: 1})

	assert.Equal(t, []string{"first", "second", "third"}, order)
}

func TestBus_DispatchesByType(t *testing.T) {
	bus := NewBus(nil)
	var gotOrder, gotOther int

	Subscribe(bus, func(_ context.Context, _ orderEvent) error {
		gotOrder++
		return nil
	})
	Subscribe(bus, func(_ context.Context, _ otherEvent) error {
		gotOther++
		return nil
	})

	Publish(context.Background(), bus, orderEvent{})
	Publish(context.Background(), bus, orderEvent{})
	Publish(context.Background(), bus, otherEvent{})

	assert.Equal(t, 2, gotOrder)
	assert.Equal(t, 1, gotOther)
}

func TestBus_HandlerErrorDoesNotStopLaterHandlers(t *testing.T) {
	bus := NewBus(nil)
	var ran bool

	Subscribe(bus, func(_ context.Context, _ orderEvent) error {
		return errors.New("boom")
	})
	Subscribe(bus, func(_ context.Context, _ orderEvent) error {
		ran = true
		return nil
	})

	// Must not panic and must not skip the second handler
	Publish(context.Background(), bus, orderEvent{})

	assert.True(t, ran)
}

func TestBus_HandlerPanicIsRecovered(t *testing.T) {
	bus := NewBus(nil)
	var ran bool

	Subscribe(bus, func(_ context.Context, _ orderEvent) error {
		panic("handler blew up")
	})
	Subscribe(bus, func(_ context.Context, _ orderEvent) error {
		ran = true
		return nil
	})

	assert.NotPanics(t, func() {
		Publish(context.Background(), bus, orderEvent{})
	})
	assert.True(t, ran)
}

func TestBus_PublishWithNoSubscribersIsANoop(t *testing.T) {
	bus := NewBus(nil)
	assert.NotPanics(t, func() {
		Publish(context.Background(), bus, orderEvent{N: 42})
	})
}
