package events

import (
	"context"
	"errors"
	"testing"
)

func TestDispatcherDeliversToSubscribers(t *testing.T) {
	d := NewInMemoryDispatcher()

	var got []Event
	d.Subscribe(EventClaimCreated, func(_ context.Context, event Event) error {
		got = append(got, event)
		return nil
	})

	err := d.Publish(context.Background(), Event{ID: "e1", Type: EventClaimCreated, ClaimID: "claim-1"})
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if len(got) != 1 || got[0].ClaimID != "claim-1" {
		t.Fatalf("delivered = %v", got)
	}
}

func TestDispatcherIgnoresOtherEventTypes(t *testing.T) {
	d := NewInMemoryDispatcher()

	calls := 0
	d.Subscribe(EventClaimAssigned, func(_ context.Context, _ Event) error {
		calls++
		return nil
	})

	_ = d.Publish(context.Background(), Event{Type: EventClaimCreated})
	if calls != 0 {
		t.Fatalf("handler called %d times for foreign event type", calls)
	}
}

func TestDispatcherHandlerErrorDoesNotStopDelivery(t *testing.T) {
	d := NewInMemoryDispatcher()

	second := false
	d.Subscribe(EventClaimStateChanged, func(_ context.Context, _ Event) error {
		return errors.New("boom")
	})
	d.Subscribe(EventClaimStateChanged, func(_ context.Context, _ Event) error {
		second = true
		return nil
	})

	_ = d.Publish(context.Background(), Event{Type: EventClaimStateChanged})
	if !second {
		t.Fatal("second handler should still run")
	}
}
