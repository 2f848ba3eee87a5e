package bookings

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"freight-service/internal/domain"
	"freight-service/internal/events"
	"freight-service/internal/storage"
	"freight-service/pkg/kafka"
	"freight-service/pkg/logger"
	"freight-service/pkg/metrics"
)

// StatusBroadcaster pushes status changes to live subscribers of a booking.
type StatusBroadcaster interface {
	BroadcastStatus(bookingID string, status domain.BookingStatus)
}

// Service forms bookings from accepted bids and walks them through their
// lifecycle to payment.
type Service struct {
	store storage.IStorage
	bus   events.Publisher
	hub   StatusBroadcaster
	log   logger.ILogger
	now   func() time.Time
}

func NewService(store storage.IStorage, bus events.Publisher, hub StatusBroadcaster, log logger.ILogger) *Service {
	return &Service{store: store, bus: bus, hub: hub, log: log, now: time.Now}
}

// AcceptBid turns one bid into the ad's booking. The ad row stays locked
// for the whole transaction and bookings(ad_id) is unique, so of several
// concurrent acceptances exactly one wins and the rest see AdClosed.
func (s *Service) AcceptBid(ctx context.Context, by domain.Principal, adID, bidID string) (*BookingView, error) {
	var b *domain.Booking
	var bidderID string
	err := s.store.WithTx(ctx, func(tx storage.IStorage) error {
		if err := tx.Booking().LockAd(ctx, adID); err != nil {
			return err
		}
		ad, err := tx.Ad().GetByID(ctx, adID)
		if err != nil {
			return err
		}
		if ad.Poster.UserID != by.UserID {
			return domain.NewError(domain.CodeForbidden, "ad", "only the poster may accept a bid")
		}
		bid, err := tx.Bid().GetByID(ctx, bidID)
		if err != nil {
			return err
		}
		if bid.AdID != ad.ID {
			return domain.NewError(domain.CodeInvalidBid, "bid", "bid does not belong to this ad")
		}
		if ad.Closed() {
			return domain.NewError(domain.CodeAdClosed, "ad", "ad already has an accepted bid")
		}

		if b, err = domain.NewBooking(uuid.NewString(), ad, bid, s.now().UTC()); err != nil {
			return err
		}
		bidderID = bid.Bidder.UserID
		return tx.Booking().Create(ctx, b)
	})
	if err != nil {
		if errors.Is(err, domain.ErrAdClosed) {
			metrics.AcceptConflicts.Inc()
			s.log.Info("bid acceptance lost", logger.String("ad_id", adID), logger.String("bid_id", bidID))
		}
		return nil, err
	}

	metrics.BookingsFormed.Inc()
	s.log.Info("booking formed",
		logger.String("booking_id", b.ID),
		logger.String("ad_id", adID),
		logger.String("bid_id", bidID),
		logger.Float64("price", b.Price))

	events.Emit(s.bus, s.log, kafka.TopicBookingCreated, b.ID, events.BookingCreatedEvent{
		BookingID:      b.ID,
		AdID:           b.AdID,
		BidID:          b.BidID,
		DriverUserID:   b.Driver.UserID,
		CustomerUserID: b.Customer.UserID,
		BidderUserID:   bidderID,
		Price:          b.Price,
		CreatedAt:      b.CreatedAt,
	})
	s.broadcast(b)
	return newView(b), nil
}

// Advance moves a booking one step forward. Only its driver or staff may do
// so, and only to the next status.
func (s *Service) Advance(ctx context.Context, by domain.Principal, id string, to domain.BookingStatus) (*BookingView, error) {
	b, err := s.store.Booking().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !by.IsStaff && b.Driver.UserID != by.UserID {
		return nil, domain.NewError(domain.CodeForbidden, "booking", "only the driver may advance this booking")
	}

	from := b.Status
	if to == "" {
		next, ok := from.Next()
		if !ok {
			return nil, domain.NewError(domain.CodeInvalidState, "status", "booking is already "+from.Label())
		}
		to = next
	}
	if !domain.CanTransition(from, to) {
		return nil, domain.NewError(domain.CodeInvalidState, "status", "cannot move from "+string(from)+" to "+string(to))
	}

	at := s.now().UTC()
	if err := s.store.Booking().UpdateStatus(ctx, id, from, to, at); err != nil {
		return nil, err
	}
	b.Status, b.UpdatedAt = to, at

	metrics.StatusTransitions.WithLabelValues(string(to)).Inc()
	s.log.Info("booking advanced",
		logger.String("booking_id", id),
		logger.String("from", string(from)),
		logger.String("to", string(to)))

	events.Emit(s.bus, s.log, kafka.TopicBookingStatus, id, events.BookingStatusEvent{
		BookingID:      id,
		From:           string(from),
		To:             string(to),
		DriverUserID:   b.Driver.UserID,
		CustomerUserID: b.Customer.UserID,
		ChangedAt:      at,
	})
	s.broadcast(b)
	return newView(b), nil
}

// RecordTransaction books a payment against a fulfilled booking. The
// booking's customer or staff may record; a booking may carry many.
func (s *Service) RecordTransaction(ctx context.Context, by domain.Principal, bookingID string, amount float64) (*domain.Transaction, error) {
	b, err := s.store.Booking().GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !by.IsStaff && b.Customer.UserID != by.UserID {
		return nil, domain.NewError(domain.CodeForbidden, "booking", "only the customer may record a payment")
	}
	if b.Status != domain.StatusFulfilled {
		return nil, domain.NewError(domain.CodeInvalidState, "status", "payments are recorded for fulfilled bookings only")
	}
	if err := domain.ValidateAmount(amount); err != nil {
		return nil, err
	}

	t := &domain.Transaction{
		ID:        uuid.NewString(),
		BookingID: b.ID,
		Amount:    amount,
		CreatedAt: s.now().UTC(),
	}
	if err := s.store.Transaction().Create(ctx, t); err != nil {
		return nil, err
	}

	metrics.TransactionsRecorded.Inc()
	s.log.Info("transaction recorded",
		logger.String("transaction_id", t.ID),
		logger.String("booking_id", b.ID),
		logger.Float64("amount", amount))

	events.Emit(s.bus, s.log, kafka.TopicTransactionRecorded, b.ID, events.TransactionRecordedEvent{
		TransactionID:  t.ID,
		BookingID:      b.ID,
		DriverUserID:   b.Driver.UserID,
		CustomerUserID: b.Customer.UserID,
		Amount:         amount,
		RecordedAt:     t.CreatedAt,
	})
	return t, nil
}

func (s *Service) ListTransactions(ctx context.Context, by domain.Principal, bookingID string) ([]domain.Transaction, error) {
	if _, err := s.visible(ctx, by, bookingID); err != nil {
		return nil, err
	}
	ts, err := s.store.Transaction().ListByBooking(ctx, bookingID)
	if ts == nil && err == nil {
		ts = []domain.Transaction{}
	}
	return ts, err
}

func (s *Service) Get(ctx context.Context, by domain.Principal, id string) (*BookingView, error) {
	b, err := s.visible(ctx, by, id)
	if err != nil {
		return nil, err
	}
	return newView(b), nil
}

// ListMine returns bookings where the user is the driver or the customer.
func (s *Service) ListMine(ctx context.Context, userID string) ([]BookingView, error) {
	bs, err := s.store.Booking().ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]BookingView, 0, len(bs))
	for i := range bs {
		out = append(out, *newView(&bs[i]))
	}
	return out, nil
}

// Authorize admits the booking's parties and staff to its live status feed.
func (s *Service) Authorize(ctx context.Context, p domain.Principal, bookingID string) error {
	_, err := s.visible(ctx, p, bookingID)
	return err
}

func (s *Service) visible(ctx context.Context, by domain.Principal, id string) (*domain.Booking, error) {
	b, err := s.store.Booking().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !by.IsStaff && !b.Involves(by.UserID) {
		return nil, domain.NewError(domain.CodeForbidden, "booking", "not a party to this booking")
	}
	return b, nil
}

func (s *Service) broadcast(b *domain.Booking) {
	if s.hub != nil {
		s.hub.BroadcastStatus(b.ID, b.Status)
	}
}
