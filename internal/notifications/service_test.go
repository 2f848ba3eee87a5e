package notifications

import (
	"context"
	"errors"
	"testing"

	"freight-service/internal/domain"
	"freight-service/internal/events"
	"freight-service/internal/storage"
	"freight-service/internal/storage/memory"
	"freight-service/internal/testfixture"
	"freight-service/pkg/kafka"
	"freight-service/pkg/logger"
)

func TestConsumerFansOutEvents(t *testing.T) {
	store := memory.New()
	svc := NewService(store, logger.NewNop())
	bus := events.NewLocal()
	ctx := context.Background()
	NewConsumer(svc, logger.NewNop()).Start(ctx, bus)

	driver := testfixture.User(t, store, "Driver")
	customer := testfixture.User(t, store, "Customer")

	publish := func(topic string, ev any) {
		t.Helper()
		if err := bus.Publish(ctx, topic, "k", ev); err != nil {
			t.Fatalf("%s: %v", topic, err)
		}
	}
	publish(kafka.TopicBidPlaced, events.BidPlacedEvent{AdID: "ad", PosterUserID: customer.ID, BidderUserID: driver.ID, Cost: 80})
	publish(kafka.TopicBookingCreated, events.BookingCreatedEvent{BookingID: "bk", DriverUserID: driver.ID, CustomerUserID: customer.ID, BidderUserID: driver.ID, Price: 80})
	publish(kafka.TopicBookingStatus, events.BookingStatusEvent{BookingID: "bk", From: "ACCEPTED", To: "DISPATCHED", DriverUserID: driver.ID, CustomerUserID: customer.ID})
	publish(kafka.TopicTransactionRecorded, events.TransactionRecordedEvent{BookingID: "bk", DriverUserID: driver.ID, CustomerUserID: customer.ID, Amount: 80})
	publish(kafka.TopicVerificationDecided, events.VerificationDecidedEvent{UserID: customer.ID, Role: "customer", State: "verified"})

	count := func(userID string) map[string]int {
		page, err := svc.List(ctx, userID, storage.ListQuery{})
		if err != nil {
			t.Fatal(err)
		}
		kinds := map[string]int{}
		for _, n := range page.Items {
			kinds[n.Kind]++
		}
		return kinds
	}

	d := count(driver.ID)
	if d[kafka.TopicBookingCreated] != 1 || d[kafka.TopicBookingStatus] != 1 || d[kafka.TopicTransactionRecorded] != 1 || len(d) != 3 {
		t.Fatalf("driver notifications = %v", d)
	}
	c := count(customer.ID)
	if c[kafka.TopicBidPlaced] != 1 || c[kafka.TopicBookingStatus] != 1 || c[kafka.TopicVerificationDecided] != 1 || len(c) != 3 {
		t.Fatalf("customer notifications = %v", c)
	}
}

func TestConsumerRejectsGarbage(t *testing.T) {
	svc := NewService(memory.New(), logger.NewNop())
	bus := events.NewLocal()
	NewConsumer(svc, logger.NewNop()).Start(context.Background(), bus)

	if err := bus.Publish(context.Background(), kafka.TopicBidPlaced, "k", "not an object"); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestMarkRead(t *testing.T) {
	store := memory.New()
	svc := NewService(store, logger.NewNop())
	ctx := context.Background()
	u := testfixture.User(t, store, "Reader")

	if err := svc.Notify(ctx, u.ID, "test", "Hello", "World"); err != nil {
		t.Fatal(err)
	}
	page, _ := svc.List(ctx, u.ID, storage.ListQuery{})
	if len(page.Items) != 1 || page.Items[0].Read {
		t.Fatalf("unexpected page %+v", page)
	}
	id := page.Items[0].ID

	if err := svc.MarkRead(ctx, "someone-else", id); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("foreign notification: got %v", err)
	}
	if err := svc.MarkRead(ctx, u.ID, id); err != nil {
		t.Fatal(err)
	}
	page, _ = svc.List(ctx, u.ID, storage.ListQuery{})
	if !page.Items[0].Read {
		t.Fatal("notification not marked read")
	}
}

func TestRegisterDevice(t *testing.T) {
	store := memory.New()
	svc := NewService(store, logger.NewNop())
	ctx := context.Background()
	first := testfixture.User(t, store, "First")
	second := testfixture.User(t, store, "Second")

	if err := svc.RegisterDevice(ctx, first.ID, "reg-1", "blackberry"); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("bad type: got %v", err)
	}
	if err := svc.RegisterDevice(ctx, first.ID, " ", "ios"); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("empty id: got %v", err)
	}
	if err := svc.RegisterDevice(ctx, first.ID, "reg-1", "Android"); err != nil {
		t.Fatal(err)
	}
	if err := svc.RegisterDevice(ctx, second.ID, "reg-1", "ios"); err != nil {
		t.Fatal(err)
	}

	mine, _ := svc.Devices(ctx, first.ID)
	if len(mine) != 0 {
		t.Fatalf("device should have moved, first has %d", len(mine))
	}
	theirs, _ := svc.Devices(ctx, second.ID)
	if len(theirs) != 1 || theirs[0].Type != "ios" {
		t.Fatalf("second devices = %+v", theirs)
	}
}
