// Package events provides a typed, in-process publish/subscribe bus.
// Handlers are registered explicitly and invoked synchronously in
// registration order; there is no auto-discovery and no delivery across
// process boundaries.
package events

import (
	"context"
	"log/slog"
	"reflect"
	"sync"
)

// Handler processes a single published event. A non-nil error is logged
// by the bus and never propagated to the publisher: side effects hang
// off events precisely so their failures cannot fail the triggering
// operation.
type Handler[T any] func(ctx context.Context, event T) error

// Bus dispatches typed events to registered handlers.
type Bus struct {
	mu       sync.RWMutex
	handlers map[reflect.Type][]func(ctx context.Context, event any) error
	logger   *slog.Logger
}

// NewBus returns an empty Bus logging handler failures to logger.
func NewBus(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{
		handlers: make(map[reflect.Type][]func(ctx context.Context, event any) error),
		logger:   logger,
	}
}

// Subscribe registers fn for events of type T. Handlers for the same
// type run in the order they were registered.
func Subscribe[T any](b *Bus, fn Handler[T]) {
	b.mu.Lock()
	defer b.mu.Unlock()

	t := reflect.TypeOf((*T)(nil)).Elem()
	b.handlers[t] = append(b.handlers[t], func(ctx context.Context, event any) error {
		return fn(ctx, event.(T))
	})
}

// Publish delivers event to every subscribed handler, synchronously, on
// the caller's goroutine. Handler errors and panics are logged and
// swallowed; publishing never fails.
func Publish[T any](ctx context.Context, b *Bus, event T) {
	b.mu.RLock()
	t := reflect.TypeOf((*T)(nil)).Elem()
	handlers := b.handlers[t]
	b.mu.RUnlock()

	for _, h := range handlers {
		invoke(ctx, b, t, h, event)
	}
}

func invoke(ctx context.Context, b *Bus, t reflect.Type, h func(ctx context.Context, event any) error, event any) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.ErrorContext(ctx, "event handler panic",
				slog.String("event", t.String()),
				slog.Any("panic", r),
			)
		}
	}()
	if err := h(ctx, event); err != nil {
		b.logger.ErrorContext(ctx, "event handler failed",
			slog.String("event", t.String()),
			slog.String("error", err.Error()),
		)
	}
}
