// Package admin is the staff back-office: the dashboard aggregates, the
// searchable listings behind its grids and the verification queue.
package admin

import (
	"context"
	"time"

	"freight-service/internal/domain"
	"freight-service/internal/profiles"
	"freight-service/internal/storage"
	"freight-service/pkg/logger"
)

const seriesDays = 7

// DayCount is one point of the new-user series.
type DayCount struct {
	Date  string `json:"date"`
	Label string `json:"label"`
	Count int    `json:"count"`
}

type Dashboard struct {
	VerifiedDrivers   int                  `json:"verified_drivers"`
	VerifiedCustomers int                  `json:"verified_customers"`
	Ads               int                  `json:"ads"`
	Bookings          int                  `json:"bookings"`
	NewUsers          []DayCount           `json:"new_users"`
	PendingDrivers    []storage.ProfileRow `json:"pending_drivers"`
	PendingCustomers  []storage.ProfileRow `json:"pending_customers"`
}

type Service struct {
	store    storage.IStorage
	profiles *profiles.Service
	log      logger.ILogger
	now      func() time.Time
}

func NewService(store storage.IStorage, ps *profiles.Service, log logger.ILogger) *Service {
	return &Service{store: store, profiles: ps, log: log, now: time.Now}
}

func (s *Service) Dashboard(ctx context.Context) (*Dashboard, error) {
	dash := s.store.Dashboard()
	var d Dashboard
	var err error

	if d.VerifiedDrivers, err = dash.CountVerified(ctx, domain.RoleDriver); err != nil {
		return nil, err
	}
	if d.VerifiedCustomers, err = dash.CountVerified(ctx, domain.RoleCustomer); err != nil {
		return nil, err
	}
	if d.Ads, err = dash.CountAds(ctx); err != nil {
		return nil, err
	}
	if d.Bookings, err = dash.CountBookings(ctx); err != nil {
		return nil, err
	}
	if d.NewUsers, err = s.newUsers(ctx); err != nil {
		return nil, err
	}
	if d.PendingDrivers, err = s.store.Profile().ListPending(ctx, domain.RoleDriver); err != nil {
		return nil, err
	}
	if d.PendingCustomers, err = s.store.Profile().ListPending(ctx, domain.RoleCustomer); err != nil {
		return nil, err
	}
	return &d, nil
}

// newUsers counts sign-ups for today and the six days before it, oldest
// first, labelled by weekday.
func (s *Service) newUsers(ctx context.Context) ([]DayCount, error) {
	now := s.now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	since := today.AddDate(0, 0, -(seriesDays - 1))

	counts, err := s.store.Dashboard().NewUsersByDay(ctx, since)
	if err != nil {
		return nil, err
	}
	series := make([]DayCount, 0, seriesDays)
	for day := since; !day.After(today); day = day.AddDate(0, 0, 1) {
		key := day.Format("2006-01-02")
		series = append(series, DayCount{Date: key, Label: day.Format("Mon"), Count: counts[key]})
	}
	return series, nil
}

func (s *Service) Users(ctx context.Context, q storage.ListQuery) (storage.Page[domain.User], error) {
	return s.store.User().List(ctx, q)
}

// Profiles lists verified profiles of a role.
func (s *Service) Profiles(ctx context.Context, role domain.Role, q storage.ListQuery) (storage.Page[storage.ProfileRow], error) {
	return s.store.Profile().ListVerified(ctx, role, q)
}

func (s *Service) Vehicles(ctx context.Context, q storage.ListQuery) (storage.Page[storage.VehicleRow], error) {
	return s.store.Vehicle().List(ctx, q)
}

func (s *Service) Ads(ctx context.Context, kind domain.Role, q storage.ListQuery) (storage.Page[domain.Ad], error) {
	return s.store.Ad().List(ctx, storage.AdFilter{ListQuery: q, Kind: kind})
}

// Bookings lists bookings with the driver, customer, vehicle and price
// frozen when the bid was accepted.
func (s *Service) Bookings(ctx context.Context, q storage.ListQuery) (storage.Page[domain.Booking], error) {
	return s.store.Booking().List(ctx, q)
}

func (s *Service) Transactions(ctx context.Context, q storage.ListQuery) (storage.Page[domain.Transaction], error) {
	return s.store.Transaction().List(ctx, q)
}

func (s *Service) Decide(ctx context.Context, by domain.Principal, role domain.Role, profileID string, approve bool) (*profiles.ProfileView, error) {
	if approve {
		return s.profiles.Approve(ctx, by, role, profileID)
	}
	return s.profiles.Reject(ctx, by, role, profileID)
}
