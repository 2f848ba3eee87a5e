package notifications

import (
	"context"
	"encoding/json"
	"fmt"

	"freight-service/internal/events"
	"freight-service/pkg/kafka"
	"freight-service/pkg/logger"
)

const consumerGroup = "notifications"

// Consumer turns lifecycle events into notifications for the people they
// concern.
type Consumer struct {
	svc *Service
	log logger.ILogger
}

func NewConsumer(svc *Service, log logger.ILogger) *Consumer {
	return &Consumer{svc: svc, log: log}
}

// Start subscribes to every lifecycle topic. Subscriptions end with ctx.
func (c *Consumer) Start(ctx context.Context, sub events.Subscriber) {
	sub.Subscribe(ctx, kafka.TopicBidPlaced, consumerGroup, handle(c, c.bidPlaced))
	sub.Subscribe(ctx, kafka.TopicBookingCreated, consumerGroup, handle(c, c.bookingCreated))
	sub.Subscribe(ctx, kafka.TopicBookingStatus, consumerGroup, handle(c, c.bookingStatus))
	sub.Subscribe(ctx, kafka.TopicTransactionRecorded, consumerGroup, handle(c, c.transactionRecorded))
	sub.Subscribe(ctx, kafka.TopicVerificationDecided, consumerGroup, handle(c, c.verificationDecided))
	c.log.Info("notification consumer started", logger.Int("topics", len(kafka.Topics)))
}

// handle decodes one payload type. Handlers run on the consumer's own
// goroutine, detached from any request.
func handle[E any](c *Consumer, fn func(ctx context.Context, ev E) error) func([]byte) error {
	return func(data []byte) error {
		var ev E
		if err := json.Unmarshal(data, &ev); err != nil {
			return fmt.Errorf("decode event: %w", err)
		}
		return fn(context.Background(), ev)
	}
}

func (c *Consumer) bidPlaced(ctx context.Context, ev events.BidPlacedEvent) error {
	return c.svc.Notify(ctx, ev.PosterUserID, kafka.TopicBidPlaced,
		"New bid on your ad",
		fmt.Sprintf("A bid of %.2f was placed on your ad.", ev.Cost))
}

func (c *Consumer) bookingCreated(ctx context.Context, ev events.BookingCreatedEvent) error {
	return c.svc.Notify(ctx, ev.BidderUserID, kafka.TopicBookingCreated,
		"Your bid was accepted",
		fmt.Sprintf("Booking %s was formed at %.2f.", ev.BookingID, ev.Price))
}

func (c *Consumer) bookingStatus(ctx context.Context, ev events.BookingStatusEvent) error {
	body := fmt.Sprintf("Booking %s moved from %s to %s.", ev.BookingID, ev.From, ev.To)
	for _, userID := range []string{ev.DriverUserID, ev.CustomerUserID} {
		if err := c.svc.Notify(ctx, userID, kafka.TopicBookingStatus, "Booking "+ev.To, body); err != nil {
			return err
		}
	}
	return nil
}

func (c *Consumer) transactionRecorded(ctx context.Context, ev events.TransactionRecordedEvent) error {
	return c.svc.Notify(ctx, ev.DriverUserID, kafka.TopicTransactionRecorded,
		"Payment recorded",
		fmt.Sprintf("A payment of %.2f was recorded for booking %s.", ev.Amount, ev.BookingID))
}

func (c *Consumer) verificationDecided(ctx context.Context, ev events.VerificationDecidedEvent) error {
	return c.svc.Notify(ctx, ev.UserID, kafka.TopicVerificationDecided,
		"Verification "+ev.State,
		fmt.Sprintf("Your %s profile is %s.", ev.Role, ev.State))
}
