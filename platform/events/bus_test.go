package events

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"crm_insights_backend/platform/logger"
)

type pingEvent struct {
	BaseEvent
}

func (pingEvent) EventName() string { return "test.ping" }

func TestPublishSyncJoinsHandlerErrors(t *testing.T) {
	bus := NewInMemoryBus(logger.Discard())
	first := errors.New("first")
	second := errors.New("second")
	bus.Subscribe("test.ping", HandlerFunc(func(context.Context, Event) error { return first }))
	bus.Subscribe("test.ping", HandlerFunc(func(context.Context, Event) error { return nil }))
	bus.Subscribe("test.ping", HandlerFunc(func(context.Context, Event) error { return second }))

	err := bus.PublishSync(context.Background(), pingEvent{BaseEvent: NewBaseEvent()})
	if !errors.Is(err, first) || !errors.Is(err, second) {
		t.Fatalf("expected both handler errors, got %v", err)
	}
}

func TestPublishDeliversAsynchronously(t *testing.T) {
	bus := NewInMemoryBus(logger.Discard())
	var calls atomic.Int32
	for i := 0; i < 3; i++ {
		bus.Subscribe("test.ping", HandlerFunc(func(context.Context, Event) error {
			calls.Add(1)
			return nil
		}))
	}

	ctx, cancel := context.WithCancel(context.Background())
	bus.Publish(ctx, pingEvent{BaseEvent: NewBaseEvent()})
	cancel()
	bus.Wait()

	if calls.Load() != 3 {
		t.Fatalf("expected 3 handler calls, got %d", calls.Load())
	}
}

func TestPublishIgnoresOtherEvents(t *testing.T) {
	bus := NewInMemoryBus(logger.Discard())
	called := false
	bus.Subscribe("other.event", HandlerFunc(func(context.Context, Event) error {
		called = true
		return nil
	}))

	if err := bus.PublishSync(context.Background(), pingEvent{BaseEvent: NewBaseEvent()}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if called {
		t.Fatalf("handler for another event must not run")
	}
}
