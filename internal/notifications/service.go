package notifications

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"freight-service/internal/domain"
	"freight-service/internal/storage"
	"freight-service/pkg/logger"
)

var deviceTypes = map[string]bool{"android": true, "ios": true, "web": true}

// Service stores in-app notifications and push device registrations.
// Delivery to devices is not done here.
type Service struct {
	store storage.IStorage
	log   logger.ILogger
	now   func() time.Time
}

func NewService(store storage.IStorage, log logger.ILogger) *Service {
	return &Service{store: store, log: log, now: time.Now}
}

// Notify stores one notification for a user.
func (s *Service) Notify(ctx context.Context, userID, kind, title, body string) error {
	if userID == "" {
		return nil
	}
	n := &domain.Notification{
		ID:        uuid.NewString(),
		UserID:    userID,
		Kind:      kind,
		Title:     title,
		Body:      body,
		CreatedAt: s.now().UTC(),
	}
	if err := s.store.Notification().Create(ctx, n); err != nil {
		return err
	}
	s.log.Debug("notification stored", logger.String("user_id", userID), logger.String("kind", kind))
	return nil
}

func (s *Service) List(ctx context.Context, userID string, q storage.ListQuery) (storage.Page[domain.Notification], error) {
	return s.store.Notification().ListByUser(ctx, userID, q)
}

func (s *Service) MarkRead(ctx context.Context, userID, id string) error {
	return s.store.Notification().MarkRead(ctx, id, userID)
}

// RegisterDevice records a push registration. The same registration id
// moves to the latest user that presents it.
func (s *Service) RegisterDevice(ctx context.Context, userID, registrationID, deviceType string) error {
	registrationID = strings.TrimSpace(registrationID)
	if registrationID == "" {
		return domain.NewError(domain.CodeInvalidInput, "registration_id", "registration id is required")
	}
	deviceType = strings.ToLower(strings.TrimSpace(deviceType))
	if !deviceTypes[deviceType] {
		return domain.NewError(domain.CodeInvalidInput, "device_type", "device type must be android, ios or web")
	}

	d := &domain.Device{
		ID:             uuid.NewString(),
		UserID:         userID,
		RegistrationID: registrationID,
		Type:           deviceType,
		CreatedAt:      s.now().UTC(),
	}
	if err := s.store.Device().Register(ctx, d); err != nil {
		return err
	}
	s.log.Info("device registered", logger.String("user_id", userID), logger.String("device_type", deviceType))
	return nil
}

func (s *Service) Devices(ctx context.Context, userID string) ([]domain.Device, error) {
	ds, err := s.store.Device().ListByUser(ctx, userID)
	if ds == nil && err == nil {
		ds = []domain.Device{}
	}
	return ds, err
}
