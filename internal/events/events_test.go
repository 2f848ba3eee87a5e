package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"freight-service/pkg/logger"
)

func TestLocalBusDeliversToSubscribers(t *testing.T) {
	bus := NewLocal()
	ctx := context.Background()

	var got []BidPlacedEvent
	bus.Subscribe(ctx, "bid.placed", "g", func(data []byte) error {
		var ev BidPlacedEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return err
		}
		got = append(got, ev)
		return nil
	})

	if err := bus.Publish(ctx, "bid.placed", "a1", BidPlacedEvent{BidID: "b1", AdID: "a1"}); err != nil {
		t.Fatal(err)
	}
	if err := bus.Publish(ctx, "booking.created", "a1", BookingCreatedEvent{}); err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].BidID != "b1" {
		t.Fatalf("got %+v", got)
	}
}

func TestLocalBusReturnsHandlerError(t *testing.T) {
	bus := NewLocal()
	boom := errors.New("boom")
	bus.Subscribe(context.Background(), "t", "g", func([]byte) error { return boom })

	if err := bus.Publish(context.Background(), "t", "", struct{}{}); !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
}

func TestEmitPublishesInBackground(t *testing.T) {
	bus := NewLocal()
	done := make(chan string, 1)
	bus.Subscribe(context.Background(), "booking.created", "g", func(data []byte) error {
		var ev BookingCreatedEvent
		_ = json.Unmarshal(data, &ev)
		done <- ev.BookingID
		return nil
	})

	Emit(bus, logger.NewNop(), "booking.created", "k1", BookingCreatedEvent{BookingID: "k1"})

	select {
	case id := <-done:
		if id != "k1" {
			t.Fatalf("got booking %q", id)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("event never delivered")
	}
}

func TestEmitToleratesNilPublisher(t *testing.T) {
	Emit(nil, logger.NewNop(), "t", "k", nil)
}
