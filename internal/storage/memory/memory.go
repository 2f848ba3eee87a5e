// Package memory is an in-process storage used by tests and by the
// memory storage driver. All access is serialized by one mutex; WithTx holds
// it for the whole callback and restores a snapshot on failure.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"freight-service/internal/domain"
	"freight-service/internal/storage"
)

type data struct {
	users         map[string]domain.User
	profiles      map[string]domain.Profile
	documents     map[string]domain.Document
	categories    map[string]domain.VehicleCategory
	vehicles      map[string]domain.Vehicle
	ads           map[string]domain.Ad
	bids          map[string]domain.Bid
	bookings      map[string]domain.Booking
	transactions  map[string]domain.Transaction
	notifications map[string]domain.Notification
	devices       map[string]domain.Device
}

func newData() *data {
	return &data{
		users:         map[string]domain.User{},
		profiles:      map[string]domain.Profile{},
		documents:     map[string]domain.Document{},
		categories:    map[string]domain.VehicleCategory{},
		vehicles:      map[string]domain.Vehicle{},
		ads:           map[string]domain.Ad{},
		bids:          map[string]domain.Bid{},
		bookings:      map[string]domain.Booking{},
		transactions:  map[string]domain.Transaction{},
		notifications: map[string]domain.Notification{},
		devices:       map[string]domain.Device{},
	}
}

func cloneMap[V any](m map[string]V) map[string]V {
	out := make(map[string]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (d *data) clone() *data {
	return &data{
		users:         cloneMap(d.users),
		profiles:      cloneMap(d.profiles),
		documents:     cloneMap(d.documents),
		categories:    cloneMap(d.categories),
		vehicles:      cloneMap(d.vehicles),
		ads:           cloneMap(d.ads),
		bids:          cloneMap(d.bids),
		bookings:      cloneMap(d.bookings),
		transactions:  cloneMap(d.transactions),
		notifications: cloneMap(d.notifications),
		devices:       cloneMap(d.devices),
	}
}

type state struct {
	mu   sync.Mutex
	data *data
}

type Store struct {
	st   *state
	inTx bool
}

func New() *Store {
	return &Store{st: &state{data: newData()}}
}

// do runs fn with the store locked, unless the caller already holds the lock
// through WithTx.
func (s *Store) do(fn func(d *data) error) error {
	if !s.inTx {
		s.st.mu.Lock()
		defer s.st.mu.Unlock()
	}
	return fn(s.st.data)
}

func (s *Store) WithTx(ctx context.Context, fn func(tx storage.IStorage) error) (err error) {
	if s.inTx {
		return fn(s)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.st.mu.Lock()
	defer s.st.mu.Unlock()

	snapshot := s.st.data.clone()
	defer func() {
		if p := recover(); p != nil {
			s.st.data = snapshot
			panic(p)
		}
		if err != nil {
			s.st.data = snapshot
		}
	}()

	return fn(&Store{st: s.st, inTx: true})
}

func (s *Store) Close() {}

func (s *Store) User() storage.IUserStorage                 { return &userRepo{s} }
func (s *Store) Profile() storage.IProfileStorage           { return &profileRepo{s} }
func (s *Store) Vehicle() storage.IVehicleStorage           { return &vehicleRepo{s} }
func (s *Store) Ad() storage.IAdStorage                     { return &adRepo{s} }
func (s *Store) Bid() storage.IBidStorage                   { return &bidRepo{s} }
func (s *Store) Booking() storage.IBookingStorage           { return &bookingRepo{s} }
func (s *Store) Transaction() storage.ITransactionStorage   { return &transactionRepo{s} }
func (s *Store) Notification() storage.INotificationStorage { return &notificationRepo{s} }
func (s *Store) Device() storage.IDeviceStorage             { return &deviceRepo{s} }
func (s *Store) Dashboard() storage.IDashboardStorage       { return &dashboardRepo{s} }

// ---- helpers ----

// matchPrefix is the case-insensitive prefix search used by listings.
func matchPrefix(search string, fields ...string) bool {
	if search == "" {
		return true
	}
	search = strings.ToLower(search)
	for _, f := range fields {
		if strings.HasPrefix(strings.ToLower(f), search) {
			return true
		}
	}
	return false
}

func paginate[T any](all []T, total int, match func(T) bool, q storage.ListQuery) storage.Page[T] {
	page := storage.Page[T]{Total: total}
	var filtered []T
	for _, item := range all {
		if match(item) {
			filtered = append(filtered, item)
		}
	}
	page.Filtered = len(filtered)

	start := q.Offset
	if start < 0 {
		start = 0
	}
	if start > len(filtered) {
		start = len(filtered)
	}
	end := len(filtered)
	if q.Limit > 0 && start+q.Limit < end {
		end = start + q.Limit
	}
	page.Items = filtered[start:end]
	return page
}

// sortedValues returns map values ordered by less.
func sortedValues[V any](m map[string]V, less func(a, b V) bool) []V {
	out := make([]V, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

func strOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func registration(v *domain.Vehicle) string {
	if v == nil {
		return ""
	}
	return v.RegistrationNumber
}

// party refreshes the owner details of a profile, like the SQL joins do.
func (d *data) party(profileID string, role domain.Role) domain.Party {
	p := domain.Party{ProfileID: profileID, Role: role}
	if prof, ok := d.profiles[profileID]; ok {
		p.UserID = prof.UserID
		if u, ok := d.users[prof.UserID]; ok {
			p.FullName = u.FullName
		}
	}
	return p
}

func (d *data) vehicle(v *domain.Vehicle) *domain.Vehicle {
	if v == nil {
		return nil
	}
	cur, ok := d.vehicles[v.ID]
	if !ok {
		return nil
	}
	if c, ok := d.categories[cur.CategoryID]; ok {
		cur.CategoryTitle = c.Title
	}
	return &cur
}

func (d *data) hydrateAd(a domain.Ad) domain.Ad {
	a.Poster = d.party(a.Poster.ProfileID, a.Kind)
	a.Vehicle = d.vehicle(a.Vehicle)
	a.BookingID = nil
	for _, b := range d.bookings {
		if b.AdID == a.ID {
			id := b.ID
			a.BookingID = &id
			break
		}
	}
	return a
}

func (d *data) hydrateBid(b domain.Bid) domain.Bid {
	b.Bidder = d.party(b.Bidder.ProfileID, b.AdKind.Opposite())
	b.Vehicle = d.vehicle(b.Vehicle)
	return b
}

func (d *data) hydrateBooking(b domain.Booking) domain.Booking {
	b.Driver = d.party(b.Driver.ProfileID, domain.RoleDriver)
	b.Customer = d.party(b.Customer.ProfileID, domain.RoleCustomer)
	b.Vehicle = d.vehicle(b.Vehicle)
	return b
}
