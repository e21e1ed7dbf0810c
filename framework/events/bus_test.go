package events

import (
	"context"
	"fmt"
	"testing"

	"github.com/akriventsev/agentapi/framework/core"
	"github.com/akriventsev/agentapi/framework/logging"
)

func TestBus_PublishDeliversInSubscriptionOrder(t *testing.T) {
	bus := NewBus(logging.Nop())

	var calls []string
	for _, name := range []string{"first", "second", "third"} {
		name := name
		bus.Subscribe("task.created", func(ctx context.Context, e Event) error {
			calls = append(calls, name)
			return nil
		})
	}

	bus.Publish(context.Background(), "task.created", core.Params{"id": "t-1"})

	if len(calls) != 3 || calls[0] != "first" || calls[1] != "second" || calls[2] != "third" {
		t.Errorf("expected subscription order, got %v", calls)
	}
}

func TestBus_EventCarriesTypeAndPayload(t *testing.T) {
	bus := NewBus(logging.Nop())

	var got Event
	bus.Subscribe("task.created", func(ctx context.Context, e Event) error {
		got = e
		return nil
	})

	bus.Publish(context.Background(), "task.created", core.Params{"id": "t-1"})

	if got.Type != "task.created" {
		t.Errorf("expected type task.created, got %s", got.Type)
	}
	if got.Payload["id"] != "t-1" {
		t.Errorf("payload not delivered: %v", got.Payload)
	}
	if got.ID == "" {
		t.Error("event must carry an id")
	}
	if got.OccurredAt.IsZero() {
		t.Error("event must carry a timestamp")
	}
}

func TestBus_SnapshotExcludesMidPublishSubscribers(t *testing.T) {
	bus := NewBus(logging.Nop())

	var lateCalls int
	bus.Subscribe("tick", func(ctx context.Context, e Event) error {
		bus.Subscribe("tick", func(ctx context.Context, e Event) error {
			lateCalls++
			return nil
		})
		return nil
	})

	bus.Publish(context.Background(), "tick", nil)
	if lateCalls != 0 {
		t.Fatal("subscriber added during publish must not see that publish")
	}

	bus.Publish(context.Background(), "tick", nil)
	if lateCalls != 1 {
		t.Errorf("late subscriber must see subsequent publishes, got %d calls", lateCalls)
	}
}

func TestBus_HandlerErrorDoesNotStopDelivery(t *testing.T) {
	bus := NewBus(logging.Nop())

	var delivered bool
	bus.Subscribe("tick", func(ctx context.Context, e Event) error {
		return fmt.Errorf("broken handler")
	})
	bus.Subscribe("tick", func(ctx context.Context, e Event) error {
		delivered = true
		return nil
	})

	bus.Publish(context.Background(), "tick", nil)
	if !delivered {
		t.Error("handler after a failing one must still be invoked")
	}
}

func TestBus_Cancel(t *testing.T) {
	bus := NewBus(logging.Nop())

	var calls int
	sub := bus.Subscribe("tick", func(ctx context.Context, e Event) error {
		calls++
		return nil
	})

	bus.Publish(context.Background(), "tick", nil)
	sub.Cancel()
	bus.Publish(context.Background(), "tick", nil)

	if calls != 1 {
		t.Errorf("cancelled subscription must not be invoked, got %d calls", calls)
	}
	if bus.SubscriberCount("tick") != 0 {
		t.Errorf("expected 0 subscribers, got %d", bus.SubscriberCount("tick"))
	}
}

func TestBus_NoSubscribersIsNoop(t *testing.T) {
	bus := NewBus(logging.Nop())
	bus.Publish(context.Background(), "unheard", core.Params{"x": 1})
}
