package users

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"freight-service/internal/domain"
	"freight-service/internal/profiles"
	"freight-service/internal/storage"
	"freight-service/pkg/jwt"
	"freight-service/pkg/logger"
	"freight-service/pkg/validation"
)

const deviceTimeout = 5 * time.Second

// DeviceRegistrar records push registrations. Failures never fail the caller.
type DeviceRegistrar interface {
	RegisterDevice(ctx context.Context, userID, registrationID, deviceType string) error
}

// TokenRevoker withdraws a token until it would have expired anyway.
type TokenRevoker interface {
	RevokeToken(ctx context.Context, tokenID string, ttl time.Duration) error
}

// Service contains account business logic.
type Service struct {
	store    storage.IStorage
	profiles *profiles.Service
	devices  DeviceRegistrar
	tokens   TokenRevoker
	issue    func(userID, phone string, staff bool) (string, error)
	log      logger.ILogger
	now      func() time.Time
}

// NewService creates a user service. tokens may be nil, in which case logout
// only ends the client's session.
func NewService(store storage.IStorage, ps *profiles.Service, devices DeviceRegistrar, tokens TokenRevoker, log logger.ILogger) *Service {
	return &Service{
		store:    store,
		profiles: ps,
		devices:  devices,
		tokens:   tokens,
		issue:    jwt.Generate,
		log:      log,
		now:      time.Now,
	}
}

// Register creates the user, sets the password and files the verification
// request of the declared role as one transaction. Nothing persists unless
// all three succeed.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*AuthResponse, error) {
	role, err := domain.ParseRole(in.Role)
	if err != nil {
		return nil, err
	}

	u := &domain.User{
		ID:          uuid.NewString(),
		Phone:       strings.TrimSpace(in.Phone),
		FullName:    domain.NormalizeFullName(in.FullName),
		DateOfBirth: in.DateOfBirth,
		DateJoined:  s.now().UTC(),
	}
	if e := strings.TrimSpace(in.Email); e != "" {
		u.Email = &e
	}
	if in.Gender != "" {
		g := in.Gender
		u.Gender = &g
	}

	var saved []string
	err = s.store.WithTx(ctx, func(tx storage.IStorage) error {
		if err := tx.User().Create(ctx, u); err != nil {
			return err
		}
		hash, err := s.hashPassword(in.Password, u)
		if err != nil {
			return err
		}
		if err := tx.User().SetPassword(ctx, u.ID, hash); err != nil {
			return err
		}
		u.PasswordHash = hash
		_, err = s.profiles.Submit(ctx, tx, u.ID, role, in.Documents, &saved)
		return err
	})
	if err != nil {
		s.profiles.Discard(saved)
		return nil, err
	}

	s.log.Info("user registered", logger.String("user_id", u.ID), logger.String("role", string(role)))
	s.registerDevice(u.ID, in.Device.RegistrationID, in.Device.Type)

	token, err := s.issue(u.ID, u.Phone, u.IsStaff)
	if err != nil {
		return nil, err
	}
	return &AuthResponse{Token: token, Account: &Account{User: *u, Role: role}}, nil
}

// Login authenticates by phone number and password and returns a JWT.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	u, err := s.store.User().GetByPhone(ctx, strings.TrimSpace(req.Phone))
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.NewError(domain.CodeUnauthorized, "", "invalid credentials")
	}
	if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)) != nil {
		return nil, domain.NewError(domain.CodeUnauthorized, "", "invalid credentials")
	}

	acc, err := s.account(ctx, u)
	if err != nil {
		return nil, err
	}
	s.registerDevice(u.ID, req.RegistrationID, req.DeviceType)

	token, err := s.issue(u.ID, u.Phone, u.IsStaff)
	if err != nil {
		return nil, err
	}
	return &AuthResponse{Token: token, Account: acc}, nil
}

// Logout revokes the presented token for the rest of its lifetime.
func (s *Service) Logout(ctx context.Context, tokenID string, remaining time.Duration) error {
	if s.tokens == nil {
		s.log.Warning("token revocation unavailable", logger.String("token_id", tokenID))
		return nil
	}
	if remaining <= 0 {
		return nil
	}
	return s.tokens.RevokeToken(ctx, tokenID, remaining)
}

// Me returns the caller's account.
func (s *Service) Me(ctx context.Context, userID string) (*Account, error) {
	u, err := s.store.User().GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.account(ctx, u)
}

// UpdateMe changes the editable account fields.
func (s *Service) UpdateMe(ctx context.Context, userID string, req UpdateRequest) (*Account, error) {
	u, err := s.store.User().GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if req.FullName != nil {
		u.FullName = domain.NormalizeFullName(*req.FullName)
	}
	if req.Email != nil {
		if e := strings.TrimSpace(*req.Email); e != "" {
			u.Email = &e
		} else {
			u.Email = nil
		}
	}
	if req.Gender != nil {
		if !domain.ValidGender(*req.Gender) {
			return nil, domain.NewError(domain.CodeInvalidInput, "gender", "gender must be one of M, F, D")
		}
		g := *req.Gender
		u.Gender = &g
	}
	if req.DateOfBirth != nil {
		u.DateOfBirth = req.DateOfBirth
	}
	if err := s.store.User().Update(ctx, u); err != nil {
		return nil, err
	}
	return s.account(ctx, u)
}

// ChangePassword replaces the password after checking the current one.
func (s *Service) ChangePassword(ctx context.Context, userID string, req PasswordRequest) error {
	u, err := s.store.User().GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.OldPassword)) != nil {
		return domain.NewError(domain.CodeInvalidPassword, "old_password", "current password is incorrect")
	}
	hash, err := s.hashPassword(req.NewPassword, u)
	if err != nil {
		return err
	}
	if err := s.store.User().SetPassword(ctx, u.ID, hash); err != nil {
		return err
	}
	s.log.Info("password changed", logger.String("user_id", u.ID))
	return nil
}

// hashPassword applies the password policy against the user's own
// attributes, then hashes.
func (s *Service) hashPassword(password string, u *domain.User) (string, error) {
	attrs := validation.PasswordAttrs{Phone: u.Phone, FullName: u.FullName}
	if u.Email != nil {
		attrs.Email = *u.Email
	}
	if problems := validation.CheckPassword(password, attrs); len(problems) > 0 {
		return "", domain.NewError(domain.CodeInvalidPassword, "password", strings.Join(problems, " "))
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func (s *Service) account(ctx context.Context, u *domain.User) (*Account, error) {
	ps, err := s.store.Profile().ListByUser(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	role := domain.RoleCustomer
	for _, p := range ps {
		if p.Role == domain.RoleDriver {
			role = domain.RoleDriver
		}
	}
	return &Account{User: *u, Role: role}, nil
}

// registerDevice is fire-and-forget.
func (s *Service) registerDevice(userID, registrationID, deviceType string) {
	if s.devices == nil || registrationID == "" {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), deviceTimeout)
		defer cancel()
		if err := s.devices.RegisterDevice(ctx, userID, registrationID, deviceType); err != nil {
			s.log.Warning("device registration failed", logger.String("user_id", userID), logger.Error(err))
		}
	}()
}
