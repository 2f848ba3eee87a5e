package vehicles

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"freight-service/internal/domain"
	"freight-service/internal/profiles"
	"freight-service/internal/storage"
	"freight-service/pkg/logger"
)

// Service manages vehicle categories and the vehicles of drivers.
type Service struct {
	store storage.IStorage
	log   logger.ILogger
	now   func() time.Time
}

func NewService(store storage.IStorage, log logger.ILogger) *Service {
	return &Service{store: store, log: log, now: time.Now}
}

// DefaultCategories are seeded for the memory storage driver; Postgres gets
// the same rows from migrations.
var DefaultCategories = []string{"Mini truck", "Open body truck", "Container", "Trailer"}

// EnsureCategories creates the listed categories that do not exist yet.
func (s *Service) EnsureCategories(ctx context.Context, titles []string) error {
	for _, title := range titles {
		c := &domain.VehicleCategory{ID: uuid.NewString(), Title: title}
		if err := s.store.Vehicle().CreateCategory(ctx, c); err != nil && !errors.Is(err, domain.ErrConflict) {
			return err
		}
	}
	return nil
}

func (s *Service) Categories(ctx context.Context) ([]domain.VehicleCategory, error) {
	return s.store.Vehicle().Categories(ctx)
}

// CreateCategory is staff only.
func (s *Service) CreateCategory(ctx context.Context, by domain.Principal, req CategoryRequest) (*domain.VehicleCategory, error) {
	if !by.IsStaff {
		return nil, domain.NewError(domain.CodeForbidden, "", "staff only")
	}
	c := &domain.VehicleCategory{ID: uuid.NewString(), Title: strings.TrimSpace(req.Title)}
	if err := s.store.Vehicle().CreateCategory(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Create registers a vehicle under the caller's verified driver profile.
func (s *Service) Create(ctx context.Context, by domain.Principal, req CreateRequest) (*domain.Vehicle, error) {
	driver, err := profiles.RequireVerified(ctx, s.store, by.UserID, domain.RoleDriver)
	if err != nil {
		return nil, err
	}
	cat, err := s.store.Vehicle().GetCategory(ctx, req.CategoryID)
	if err != nil {
		return nil, err
	}

	v := &domain.Vehicle{
		ID:                 uuid.NewString(),
		DriverID:           driver.ProfileID,
		RegistrationNumber: strings.ToUpper(strings.TrimSpace(req.RegistrationNumber)),
		Capacity:           req.Capacity,
		CategoryID:         cat.ID,
		CategoryTitle:      cat.Title,
		CreatedAt:          s.now().UTC(),
	}
	if err := s.store.Vehicle().Create(ctx, v); err != nil {
		return nil, err
	}
	s.log.Info("vehicle registered",
		logger.String("vehicle_id", v.ID),
		logger.String("driver_id", driver.ProfileID),
		logger.String("registration_number", v.RegistrationNumber))
	return v, nil
}

// ListMine returns the caller's vehicles; none without a driver profile.
func (s *Service) ListMine(ctx context.Context, userID string) ([]domain.Vehicle, error) {
	p, err := s.store.Profile().Get(ctx, userID, domain.RoleDriver)
	if errors.Is(err, domain.ErrNotFound) {
		return []domain.Vehicle{}, nil
	}
	if err != nil {
		return nil, err
	}
	vs, err := s.store.Vehicle().ListByDriver(ctx, p.ID)
	if vs == nil && err == nil {
		vs = []domain.Vehicle{}
	}
	return vs, err
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Vehicle, error) {
	return s.store.Vehicle().GetByID(ctx, id)
}

// Delete removes a vehicle of the caller (or any vehicle, for staff). A
// vehicle referenced by an ad, bid or booking stays.
func (s *Service) Delete(ctx context.Context, by domain.Principal, id string) error {
	return s.store.WithTx(ctx, func(tx storage.IStorage) error {
		v, err := tx.Vehicle().GetByID(ctx, id)
		if err != nil {
			return err
		}
		if !by.IsStaff {
			owner, err := tx.Profile().GetByID(ctx, v.DriverID)
			if err != nil {
				return err
			}
			if owner.UserID != by.UserID {
				return domain.NewError(domain.CodeForbidden, "vehicle", "not your vehicle")
			}
		}
		used, err := tx.Vehicle().InUse(ctx, id)
		if err != nil {
			return err
		}
		if used {
			return domain.NewError(domain.CodeConflict, "vehicle", "vehicle is referenced by an ad, bid or booking")
		}
		if err := tx.Vehicle().Delete(ctx, id); err != nil {
			return err
		}
		s.log.Info("vehicle deleted", logger.String("vehicle_id", id), logger.String("by", by.UserID))
		return nil
	})
}

// Owned loads a vehicle and checks that it belongs to the driver profile.
func Owned(ctx context.Context, stg storage.IStorage, vehicleID string, driver domain.Party) (*domain.Vehicle, error) {
	v, err := stg.Vehicle().GetByID(ctx, vehicleID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.NewError(domain.CodeNotFound, "vehicle_id", "vehicle not found")
		}
		return nil, err
	}
	if v.DriverID != driver.ProfileID {
		return nil, domain.NewError(domain.CodeForbidden, "vehicle_id", "vehicle belongs to another driver")
	}
	return v, nil
}
