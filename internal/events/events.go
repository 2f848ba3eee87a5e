// Package events holds lifecycle event payloads and the bus they travel on.
package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"freight-service/pkg/logger"
)

const emitTimeout = 5 * time.Second

// Publisher sends one event. pkg/kafka.Client implements it.
type Publisher interface {
	Publish(ctx context.Context, topic, key string, value any) error
}

// Subscriber delivers raw event payloads of a topic to handler.
type Subscriber interface {
	Subscribe(ctx context.Context, topic, groupID string, handler func([]byte) error)
}

type Bus interface {
	Publisher
	Subscriber
}

// BidPlacedEvent is published to bid.placed.
type BidPlacedEvent struct {
	BidID        string    `json:"bid_id"`
	AdID         string    `json:"ad_id"`
	AdKind       string    `json:"ad_kind"`
	PosterUserID string    `json:"poster_user_id"`
	BidderUserID string    `json:"bidder_user_id"`
	Cost         float64   `json:"cost"`
	PlacedAt     time.Time `json:"placed_at"`
}

// BookingCreatedEvent is published to booking.created.
type BookingCreatedEvent struct {
	BookingID      string    `json:"booking_id"`
	AdID           string    `json:"ad_id"`
	BidID          string    `json:"bid_id"`
	DriverUserID   string    `json:"driver_user_id"`
	CustomerUserID string    `json:"customer_user_id"`
	BidderUserID   string    `json:"bidder_user_id"`
	Price          float64   `json:"price"`
	CreatedAt      time.Time `json:"created_at"`
}

// BookingStatusEvent is published to booking.status_changed.
type BookingStatusEvent struct {
	BookingID      string    `json:"booking_id"`
	From           string    `json:"from"`
	To             string    `json:"to"`
	DriverUserID   string    `json:"driver_user_id"`
	CustomerUserID string    `json:"customer_user_id"`
	ChangedAt      time.Time `json:"changed_at"`
}

// TransactionRecordedEvent is published to transaction.recorded.
type TransactionRecordedEvent struct {
	TransactionID  string    `json:"transaction_id"`
	BookingID      string    `json:"booking_id"`
	DriverUserID   string    `json:"driver_user_id"`
	CustomerUserID string    `json:"customer_user_id"`
	Amount         float64   `json:"amount"`
	RecordedAt     time.Time `json:"recorded_at"`
}

// VerificationDecidedEvent is published to verification.decided.
type VerificationDecidedEvent struct {
	ProfileID string    `json:"profile_id"`
	UserID    string    `json:"user_id"`
	Role      string    `json:"role"`
	State     string    `json:"state"`
	DecidedAt time.Time `json:"decided_at"`
}

// Local is an in-process bus used when Kafka is disabled. Handlers run
// synchronously on the publishing goroutine.
type Local struct {
	mu       sync.RWMutex
	handlers map[string][]func([]byte) error
}

func NewLocal() *Local {
	return &Local{handlers: make(map[string][]func([]byte) error)}
}

func (l *Local) Publish(_ context.Context, topic, _ string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	l.mu.RLock()
	hs := l.handlers[topic]
	l.mu.RUnlock()

	var first error
	for _, h := range hs {
		if err := h(data); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (l *Local) Subscribe(_ context.Context, topic, _ string, handler func([]byte) error) {
	l.mu.Lock()
	l.handlers[topic] = append(l.handlers[topic], handler)
	l.mu.Unlock()
}

// Emit publishes in the background after the caller's transaction has
// committed. Failures are logged, never returned: events are notifications,
// not part of the write.
func Emit(pub Publisher, log logger.ILogger, topic, key string, value any) {
	if pub == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), emitTimeout)
		defer cancel()
		if err := pub.Publish(ctx, topic, key, value); err != nil {
			log.Error("failed to publish event", logger.String("topic", topic), logger.String("key", key), logger.Error(err))
			return
		}
		log.Debug("published event", logger.String("topic", topic), logger.String("key", key))
	}()
}
