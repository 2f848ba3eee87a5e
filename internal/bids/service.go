package bids

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"freight-service/internal/domain"
	"freight-service/internal/events"
	"freight-service/internal/profiles"
	"freight-service/internal/storage"
	"freight-service/internal/vehicles"
	"freight-service/pkg/kafka"
	"freight-service/pkg/logger"
	"freight-service/pkg/metrics"
)

// Service contains bidding logic.
type Service struct {
	store storage.IStorage
	bus   events.Publisher
	log   logger.ILogger
	now   func() time.Time
}

func NewService(store storage.IStorage, bus events.Publisher, log logger.ILogger) *Service {
	return &Service{store: store, bus: bus, log: log, now: time.Now}
}

// Place records a counter-offer on an open ad. Checks run in order: role
// against the ad kind, self-dealing, bidder verification, then whether the
// ad is still open. Re-bidding creates a new bid each time.
func (s *Service) Place(ctx context.Context, by domain.Principal, adID string, req PlaceRequest) (*domain.Bid, error) {
	role, err := domain.ParseRole(req.Role)
	if err != nil {
		return nil, err
	}
	if err := domain.ValidateMoney("cost", req.Cost); err != nil {
		return nil, err
	}

	var bid *domain.Bid
	var ad *domain.Ad
	err = s.store.WithTx(ctx, func(tx storage.IStorage) error {
		if err := tx.Booking().LockAd(ctx, adID); err != nil {
			return err
		}
		var err error
		if ad, err = tx.Ad().GetByID(ctx, adID); err != nil {
			return err
		}
		if role != ad.Kind.Opposite() {
			return domain.NewError(domain.CodeRoleMismatch, "role", "a "+string(ad.Kind)+" ad accepts only "+string(ad.Kind.Opposite())+" bids")
		}
		if ad.Poster.UserID == by.UserID {
			return domain.NewError(domain.CodeForbidden, "ad", "you cannot bid on your own ad")
		}
		bidder, err := profiles.RequireVerified(ctx, tx, by.UserID, role)
		if err != nil {
			return err
		}
		if ad.Closed() {
			return domain.NewError(domain.CodeAdClosed, "ad", "ad already has an accepted bid")
		}

		bid = &domain.Bid{
			ID:        uuid.NewString(),
			AdID:      ad.ID,
			AdKind:    ad.Kind,
			Bidder:    bidder,
			Cost:      req.Cost,
			CreatedAt: s.now().UTC(),
		}
		if bid.Vehicle, err = bidVehicle(ctx, tx, role, bidder, req.VehicleID); err != nil {
			return err
		}
		return tx.Bid().Create(ctx, bid)
	})
	if err != nil {
		return nil, err
	}

	metrics.BidsPlaced.WithLabelValues(string(ad.Kind)).Inc()
	s.log.Info("bid placed",
		logger.String("bid_id", bid.ID),
		logger.String("ad_id", ad.ID),
		logger.String("bidder_id", bid.Bidder.ProfileID),
		logger.Float64("cost", bid.Cost))

	events.Emit(s.bus, s.log, kafka.TopicBidPlaced, ad.ID, events.BidPlacedEvent{
		BidID:        bid.ID,
		AdID:         ad.ID,
		AdKind:       string(ad.Kind),
		PosterUserID: ad.Poster.UserID,
		BidderUserID: by.UserID,
		Cost:         bid.Cost,
		PlacedAt:     bid.CreatedAt,
	})
	return bid, nil
}

// bidVehicle resolves the vehicle of a bid. A driver bidding on a customer
// ad must name one of their vehicles; customer bids carry none.
func bidVehicle(ctx context.Context, stg storage.IStorage, role domain.Role, bidder domain.Party, vehicleID string) (*domain.Vehicle, error) {
	vehicleID = strings.TrimSpace(vehicleID)
	if role == domain.RoleCustomer {
		if vehicleID != "" {
			return nil, domain.NewError(domain.CodeInvalidInput, "vehicle_id", "customer bids carry no vehicle")
		}
		return nil, nil
	}
	if vehicleID == "" {
		return nil, domain.NewError(domain.CodeInvalidInput, "vehicle_id", "driver bids require a vehicle")
	}
	return vehicles.Owned(ctx, stg, vehicleID, bidder)
}

// ListForAd returns the full bid history to the poster and staff, and only
// their own bids to anybody else.
func (s *Service) ListForAd(ctx context.Context, by domain.Principal, adID string) ([]domain.Bid, error) {
	ad, err := s.store.Ad().GetByID(ctx, adID)
	if err != nil {
		return nil, err
	}
	all, err := s.store.Bid().ListByAd(ctx, adID)
	if err != nil {
		return nil, err
	}
	if by.IsStaff || ad.Poster.UserID == by.UserID {
		return nonNil(all), nil
	}
	own := make([]domain.Bid, 0)
	for _, b := range all {
		if b.Bidder.UserID == by.UserID {
			own = append(own, b)
		}
	}
	return own, nil
}

// ListMine returns the caller's bids, newest first.
func (s *Service) ListMine(ctx context.Context, userID string) ([]domain.Bid, error) {
	bs, err := s.store.Bid().ListByBidder(ctx, userID)
	return nonNil(bs), err
}

func nonNil(bs []domain.Bid) []domain.Bid {
	if bs == nil {
		return []domain.Bid{}
	}
	return bs
}
