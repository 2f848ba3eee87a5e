package storage

import (
	"context"
	"time"

	"freight-service/internal/domain"
)

// ListQuery is a case-insensitive prefix search plus an offset window.
// Limit <= 0 means no limit.
type ListQuery struct {
	Search string
	Offset int
	Limit  int
}

// Page is one window of a listing. Total counts the unfiltered collection,
// Filtered counts the rows matching the search.
type Page[T any] struct {
	Items    []T
	Total    int
	Filtered int
}

type IStorage interface {
	User() IUserStorage
	Profile() IProfileStorage
	Vehicle() IVehicleStorage
	Ad() IAdStorage
	Bid() IBidStorage
	Booking() IBookingStorage
	Transaction() ITransactionStorage
	Notification() INotificationStorage
	Device() IDeviceStorage
	Dashboard() IDashboardStorage

	// WithTx runs fn against a transaction-scoped storage. The transaction
	// commits when fn returns nil and rolls back on error or panic. Nested
	// calls join the outer transaction.
	WithTx(ctx context.Context, fn func(tx IStorage) error) error
	Close()
}

type IUserStorage interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByPhone(ctx context.Context, phone string) (*domain.User, error)
	Update(ctx context.Context, user *domain.User) error
	SetPassword(ctx context.Context, id, hash string) error
	List(ctx context.Context, q ListQuery) (Page[domain.User], error)
}

// ProfileRow pairs a role profile with its owner for listings.
type ProfileRow struct {
	Profile domain.Profile `json:"profile"`
	User    domain.User    `json:"user"`
}

type IProfileStorage interface {
	GetOrCreate(ctx context.Context, userID string, role domain.Role) (*domain.Profile, error)
	Get(ctx context.Context, userID string, role domain.Role) (*domain.Profile, error)
	GetByID(ctx context.Context, id string) (*domain.Profile, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Profile, error)
	SetVerification(ctx context.Context, id string, flag *bool) error
	AddDocument(ctx context.Context, doc *domain.Document) error
	Documents(ctx context.Context, profileID string) ([]domain.Document, error)
	// ListPending returns profiles awaiting review, oldest first.
	ListPending(ctx context.Context, role domain.Role) ([]ProfileRow, error)
	ListVerified(ctx context.Context, role domain.Role, q ListQuery) (Page[ProfileRow], error)
}

// VehicleRow is a vehicle with its driver's name for listings.
type VehicleRow struct {
	Vehicle    domain.Vehicle `json:"vehicle"`
	DriverName string         `json:"driver_name"`
}

type IVehicleStorage interface {
	CreateCategory(ctx context.Context, c *domain.VehicleCategory) error
	Categories(ctx context.Context) ([]domain.VehicleCategory, error)
	GetCategory(ctx context.Context, id string) (*domain.VehicleCategory, error)
	Create(ctx context.Context, v *domain.Vehicle) error
	GetByID(ctx context.Context, id string) (*domain.Vehicle, error)
	ListByDriver(ctx context.Context, driverID string) ([]domain.Vehicle, error)
	// InUse reports whether any ad, bid or booking references the vehicle.
	InUse(ctx context.Context, id string) (bool, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, q ListQuery) (Page[VehicleRow], error)
}

type AdFilter struct {
	ListQuery
	Kind         domain.Role
	PosterUserID string
	OpenOnly     bool
}

type IAdStorage interface {
	Create(ctx context.Context, ad *domain.Ad) error
	GetByID(ctx context.Context, id string) (*domain.Ad, error)
	Update(ctx context.Context, ad *domain.Ad) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, f AdFilter) (Page[domain.Ad], error)
}

type IBidStorage interface {
	Create(ctx context.Context, bid *domain.Bid) error
	GetByID(ctx context.Context, id string) (*domain.Bid, error)
	ListByAd(ctx context.Context, adID string) ([]domain.Bid, error)
	ListByBidder(ctx context.Context, userID string) ([]domain.Bid, error)
}

type IBookingStorage interface {
	// LockAd serializes booking formation per ad for the rest of the
	// transaction.
	LockAd(ctx context.Context, adID string) error
	// Create fails with domain.ErrAdClosed when the ad already has a booking.
	Create(ctx context.Context, b *domain.Booking) error
	GetByID(ctx context.Context, id string) (*domain.Booking, error)
	GetByAd(ctx context.Context, adID string) (*domain.Booking, error)
	// UpdateStatus moves a booking from one status to the next; it fails
	// with domain.ErrInvalidState when the booking is no longer in from.
	UpdateStatus(ctx context.Context, id string, from, to domain.BookingStatus, at time.Time) error
	ListByUser(ctx context.Context, userID string) ([]domain.Booking, error)
	List(ctx context.Context, q ListQuery) (Page[domain.Booking], error)
}

type ITransactionStorage interface {
	Create(ctx context.Context, tx *domain.Transaction) error
	ListByBooking(ctx context.Context, bookingID string) ([]domain.Transaction, error)
	List(ctx context.Context, q ListQuery) (Page[domain.Transaction], error)
}

type INotificationStorage interface {
	Create(ctx context.Context, n *domain.Notification) error
	ListByUser(ctx context.Context, userID string, q ListQuery) (Page[domain.Notification], error)
	MarkRead(ctx context.Context, id, userID string) error
}

type IDeviceStorage interface {
	// Register upserts by registration id.
	Register(ctx context.Context, d *domain.Device) error
	ListByUser(ctx context.Context, userID string) ([]domain.Device, error)
}

type IDashboardStorage interface {
	CountVerified(ctx context.Context, role domain.Role) (int, error)
	CountAds(ctx context.Context) (int, error)
	// CountBookings counts bookings past the PENDING state.
	CountBookings(ctx context.Context) (int, error)
	// NewUsersByDay counts users joined per calendar day (UTC, key
	// "2006-01-02") from since onwards.
	NewUsersByDay(ctx context.Context, since time.Time) (map[string]int, error)
}
