package ads

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"freight-service/internal/domain"
	"freight-service/internal/profiles"
	"freight-service/internal/storage"
	"freight-service/internal/vehicles"
	"freight-service/pkg/logger"
	"freight-service/pkg/metrics"
)

// Service contains ad posting logic.
type Service struct {
	store storage.IStorage
	log   logger.ILogger
	now   func() time.Time
}

func NewService(store storage.IStorage, log logger.ILogger) *Service {
	return &Service{store: store, log: log, now: time.Now}
}

// Create posts an ad under the caller's verified profile of the ad's kind.
func (s *Service) Create(ctx context.Context, by domain.Principal, req CreateRequest) (*domain.Ad, error) {
	kind, err := domain.ParseRole(req.Kind)
	if err != nil {
		return nil, err
	}
	if err := domain.ValidateAdTerms(req.StartPlace, req.EndPlace, req.StartTime, req.EndTime, req.Cost, req.Quantity); err != nil {
		return nil, err
	}
	poster, err := profiles.RequireVerified(ctx, s.store, by.UserID, kind)
	if err != nil {
		return nil, err
	}
	vehicle, err := s.adVehicle(ctx, s.store, kind, poster, req.VehicleID)
	if err != nil {
		return nil, err
	}

	ad := &domain.Ad{
		ID:         uuid.NewString(),
		Kind:       kind,
		Poster:     poster,
		Vehicle:    vehicle,
		StartPlace: strings.TrimSpace(req.StartPlace),
		EndPlace:   strings.TrimSpace(req.EndPlace),
		StartTime:  req.StartTime.UTC(),
		EndTime:    req.EndTime.UTC(),
		Cost:       req.Cost,
		Quantity:   req.Quantity,
		CreatedAt:  s.now().UTC(),
	}
	if err := s.store.Ad().Create(ctx, ad); err != nil {
		return nil, err
	}

	metrics.AdsPosted.WithLabelValues(string(kind)).Inc()
	s.log.Info("ad posted",
		logger.String("ad_id", ad.ID),
		logger.String("kind", string(kind)),
		logger.String("poster_id", poster.ProfileID))
	return ad, nil
}

// adVehicle resolves the optional vehicle of an ad. Only driver ads carry
// one, and it must belong to the posting driver.
func (s *Service) adVehicle(ctx context.Context, stg storage.IStorage, kind domain.Role, poster domain.Party, vehicleID string) (*domain.Vehicle, error) {
	vehicleID = strings.TrimSpace(vehicleID)
	if vehicleID == "" {
		return nil, nil
	}
	if kind != domain.RoleDriver {
		return nil, domain.NewError(domain.CodeInvalidInput, "vehicle_id", "customer ads carry no vehicle")
	}
	return vehicles.Owned(ctx, stg, vehicleID, poster)
}

// Update edits an ad. Only the poster may edit, and only until a bid has
// been accepted.
func (s *Service) Update(ctx context.Context, by domain.Principal, id string, req UpdateRequest) (*domain.Ad, error) {
	var ad *domain.Ad
	err := s.store.WithTx(ctx, func(tx storage.IStorage) error {
		var err error
		if ad, err = s.lockOwn(ctx, tx, by, id); err != nil {
			return err
		}

		if req.StartPlace != nil {
			ad.StartPlace = strings.TrimSpace(*req.StartPlace)
		}
		if req.EndPlace != nil {
			ad.EndPlace = strings.TrimSpace(*req.EndPlace)
		}
		if req.StartTime != nil {
			ad.StartTime = req.StartTime.UTC()
		}
		if req.EndTime != nil {
			ad.EndTime = req.EndTime.UTC()
		}
		if req.Cost != nil {
			ad.Cost = *req.Cost
		}
		if req.Quantity != nil {
			ad.Quantity = *req.Quantity
		}
		if req.VehicleID != nil {
			if ad.Vehicle, err = s.adVehicle(ctx, tx, ad.Kind, ad.Poster, *req.VehicleID); err != nil {
				return err
			}
		}
		if err := domain.ValidateAdTerms(ad.StartPlace, ad.EndPlace, ad.StartTime, ad.EndTime, ad.Cost, ad.Quantity); err != nil {
			return err
		}
		return tx.Ad().Update(ctx, ad)
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("ad updated", logger.String("ad_id", id))
	return ad, nil
}

// Delete removes an open ad with its bids.
func (s *Service) Delete(ctx context.Context, by domain.Principal, id string) error {
	err := s.store.WithTx(ctx, func(tx storage.IStorage) error {
		if _, err := s.lockOwn(ctx, tx, by, id); err != nil {
			return err
		}
		return tx.Ad().Delete(ctx, id)
	})
	if err != nil {
		return err
	}
	s.log.Info("ad deleted", logger.String("ad_id", id))
	return nil
}

// lockOwn takes the ad's booking lock so an edit cannot interleave with an
// acceptance, then checks ownership and that the ad is still open.
func (s *Service) lockOwn(ctx context.Context, tx storage.IStorage, by domain.Principal, id string) (*domain.Ad, error) {
	if err := tx.Booking().LockAd(ctx, id); err != nil {
		return nil, err
	}
	ad, err := tx.Ad().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if ad.Poster.UserID != by.UserID {
		return nil, domain.NewError(domain.CodeForbidden, "ad", "only the poster may change this ad")
	}
	if ad.Closed() {
		return nil, domain.NewError(domain.CodeAdClosed, "ad", "ad already has an accepted bid")
	}
	return ad, nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Ad, error) {
	return s.store.Ad().GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, f storage.AdFilter) (storage.Page[domain.Ad], error) {
	return s.store.Ad().List(ctx, f)
}
