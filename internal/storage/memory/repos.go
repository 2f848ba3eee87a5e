package memory

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"freight-service/internal/domain"
	"freight-service/internal/storage"
)

// ---- users ----

type userRepo struct{ s *Store }

func (r *userRepo) Create(_ context.Context, u *domain.User) error {
	return r.s.do(func(d *data) error {
		for _, existing := range d.users {
			if existing.Phone == u.Phone {
				return domain.NewError(domain.CodeConflict, "phone_number", "phone number already exists")
			}
			if u.Email != nil && existing.Email != nil && strings.EqualFold(*existing.Email, *u.Email) {
				return domain.NewError(domain.CodeConflict, "email", "email already exists")
			}
		}
		d.users[u.ID] = *u
		return nil
	})
}

func (r *userRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	var out *domain.User
	err := r.s.do(func(d *data) error {
		u, ok := d.users[id]
		if !ok {
			return domain.NotFound("user")
		}
		out = &u
		return nil
	})
	return out, err
}

func (r *userRepo) GetByPhone(_ context.Context, phone string) (*domain.User, error) {
	var out *domain.User
	err := r.s.do(func(d *data) error {
		for _, u := range d.users {
			if u.Phone == phone {
				u := u
				out = &u
				return nil
			}
		}
		return domain.NotFound("user")
	})
	return out, err
}

func (r *userRepo) Update(_ context.Context, u *domain.User) error {
	return r.s.do(func(d *data) error {
		cur, ok := d.users[u.ID]
		if !ok {
			return domain.NotFound("user")
		}
		if u.Email != nil {
			for id, existing := range d.users {
				if id != u.ID && existing.Email != nil && strings.EqualFold(*existing.Email, *u.Email) {
					return domain.NewError(domain.CodeConflict, "email", "email already exists")
				}
			}
		}
		cur.Email, cur.FullName, cur.Gender, cur.DateOfBirth = u.Email, u.FullName, u.Gender, u.DateOfBirth
		d.users[u.ID] = cur
		return nil
	})
}

func (r *userRepo) SetPassword(_ context.Context, id, hash string) error {
	return r.s.do(func(d *data) error {
		u, ok := d.users[id]
		if !ok {
			return domain.NotFound("user")
		}
		u.PasswordHash = hash
		d.users[id] = u
		return nil
	})
}

func (r *userRepo) List(_ context.Context, q storage.ListQuery) (storage.Page[domain.User], error) {
	var page storage.Page[domain.User]
	err := r.s.do(func(d *data) error {
		all := sortedValues(d.users, func(a, b domain.User) bool { return a.DateJoined.After(b.DateJoined) })
		page = paginate(all, len(all), func(u domain.User) bool {
			return matchPrefix(q.Search, u.FullName, u.Phone, strOrEmpty(u.Email))
		}, q)
		return nil
	})
	return page, err
}

// ---- profiles ----

type profileRepo struct{ s *Store }

func findProfile(d *data, userID string, role domain.Role) (domain.Profile, bool) {
	for _, p := range d.profiles {
		if p.UserID == userID && p.Role == role {
			return p, true
		}
	}
	return domain.Profile{}, false
}

func (r *profileRepo) GetOrCreate(_ context.Context, userID string, role domain.Role) (*domain.Profile, error) {
	var out *domain.Profile
	err := r.s.do(func(d *data) error {
		if _, ok := d.users[userID]; !ok {
			return domain.NotFound("user")
		}
		p, ok := findProfile(d, userID, role)
		if !ok {
			p = domain.Profile{ID: uuid.NewString(), UserID: userID, Role: role, CreatedAt: time.Now().UTC()}
			d.profiles[p.ID] = p
		}
		out = &p
		return nil
	})
	return out, err
}

func (r *profileRepo) Get(_ context.Context, userID string, role domain.Role) (*domain.Profile, error) {
	var out *domain.Profile
	err := r.s.do(func(d *data) error {
		p, ok := findProfile(d, userID, role)
		if !ok {
			return domain.NotFound("profile")
		}
		out = &p
		return nil
	})
	return out, err
}

func (r *profileRepo) GetByID(_ context.Context, id string) (*domain.Profile, error) {
	var out *domain.Profile
	err := r.s.do(func(d *data) error {
		p, ok := d.profiles[id]
		if !ok {
			return domain.NotFound("profile")
		}
		out = &p
		return nil
	})
	return out, err
}

func (r *profileRepo) ListByUser(_ context.Context, userID string) ([]domain.Profile, error) {
	var out []domain.Profile
	err := r.s.do(func(d *data) error {
		for _, p := range sortedValues(d.profiles, func(a, b domain.Profile) bool { return a.Role < b.Role }) {
			if p.UserID == userID {
				out = append(out, p)
			}
		}
		return nil
	})
	return out, err
}

func (r *profileRepo) SetVerification(_ context.Context, id string, flag *bool) error {
	return r.s.do(func(d *data) error {
		p, ok := d.profiles[id]
		if !ok {
			return domain.NotFound("profile")
		}
		if flag != nil {
			v := *flag
			flag = &v
		}
		p.IsVerified = flag
		d.profiles[id] = p
		return nil
	})
}

func (r *profileRepo) AddDocument(_ context.Context, doc *domain.Document) error {
	return r.s.do(func(d *data) error {
		if _, ok := d.profiles[doc.ProfileID]; !ok {
			return domain.NotFound("profile")
		}
		d.documents[doc.ID] = *doc
		return nil
	})
}

func (r *profileRepo) Documents(_ context.Context, profileID string) ([]domain.Document, error) {
	var out []domain.Document
	err := r.s.do(func(d *data) error {
		for _, doc := range sortedValues(d.documents, func(a, b domain.Document) bool { return a.CreatedAt.Before(b.CreatedAt) }) {
			if doc.ProfileID == profileID {
				out = append(out, doc)
			}
		}
		return nil
	})
	return out, err
}

func profileRows(d *data, role domain.Role, keep func(domain.Profile) bool, less func(a, b domain.Profile) bool) []storage.ProfileRow {
	var out []storage.ProfileRow
	for _, p := range sortedValues(d.profiles, less) {
		if p.Role == role && keep(p) {
			out = append(out, storage.ProfileRow{Profile: p, User: d.users[p.UserID]})
		}
	}
	return out
}

func (r *profileRepo) ListPending(_ context.Context, role domain.Role) ([]storage.ProfileRow, error) {
	var out []storage.ProfileRow
	err := r.s.do(func(d *data) error {
		out = profileRows(d, role,
			func(p domain.Profile) bool { return p.IsVerified == nil },
			func(a, b domain.Profile) bool { return a.CreatedAt.Before(b.CreatedAt) })
		return nil
	})
	return out, err
}

func (r *profileRepo) ListVerified(_ context.Context, role domain.Role, q storage.ListQuery) (storage.Page[storage.ProfileRow], error) {
	var page storage.Page[storage.ProfileRow]
	err := r.s.do(func(d *data) error {
		all := profileRows(d, role,
			func(p domain.Profile) bool { return p.IsVerified != nil && *p.IsVerified },
			func(a, b domain.Profile) bool { return a.CreatedAt.After(b.CreatedAt) })
		page = paginate(all, len(all), func(pr storage.ProfileRow) bool {
			return matchPrefix(q.Search, pr.User.FullName, pr.User.Phone)
		}, q)
		return nil
	})
	return page, err
}

// ---- vehicles ----

type vehicleRepo struct{ s *Store }

func (r *vehicleRepo) CreateCategory(_ context.Context, c *domain.VehicleCategory) error {
	return r.s.do(func(d *data) error {
		for _, existing := range d.categories {
			if existing.Title == c.Title {
				return domain.NewError(domain.CodeConflict, "title", "category already exists")
			}
		}
		d.categories[c.ID] = *c
		return nil
	})
}

func (r *vehicleRepo) Categories(_ context.Context) ([]domain.VehicleCategory, error) {
	var out []domain.VehicleCategory
	err := r.s.do(func(d *data) error {
		out = sortedValues(d.categories, func(a, b domain.VehicleCategory) bool { return a.Title < b.Title })
		return nil
	})
	return out, err
}

func (r *vehicleRepo) GetCategory(_ context.Context, id string) (*domain.VehicleCategory, error) {
	var out *domain.VehicleCategory
	err := r.s.do(func(d *data) error {
		c, ok := d.categories[id]
		if !ok {
			return domain.NotFound("category")
		}
		out = &c
		return nil
	})
	return out, err
}

func (r *vehicleRepo) Create(_ context.Context, v *domain.Vehicle) error {
	return r.s.do(func(d *data) error {
		if _, ok := d.categories[v.CategoryID]; !ok {
			return domain.NotFound("category")
		}
		for _, existing := range d.vehicles {
			if existing.RegistrationNumber == v.RegistrationNumber {
				return domain.NewError(domain.CodeConflict, "registration_number", "vehicle already registered")
			}
		}
		d.vehicles[v.ID] = *v
		return nil
	})
}

func (r *vehicleRepo) GetByID(_ context.Context, id string) (*domain.Vehicle, error) {
	var out *domain.Vehicle
	err := r.s.do(func(d *data) error {
		out = d.vehicle(&domain.Vehicle{ID: id})
		if out == nil {
			return domain.NotFound("vehicle")
		}
		return nil
	})
	return out, err
}

func (r *vehicleRepo) ListByDriver(_ context.Context, driverID string) ([]domain.Vehicle, error) {
	var out []domain.Vehicle
	err := r.s.do(func(d *data) error {
		for _, v := range sortedValues(d.vehicles, func(a, b domain.Vehicle) bool { return a.CreatedAt.Before(b.CreatedAt) }) {
			if v.DriverID == driverID {
				out = append(out, *d.vehicle(&v))
			}
		}
		return nil
	})
	return out, err
}

func inUse(d *data, id string) bool {
	for _, a := range d.ads {
		if a.Vehicle != nil && a.Vehicle.ID == id {
			return true
		}
	}
	for _, b := range d.bids {
		if b.Vehicle != nil && b.Vehicle.ID == id {
			return true
		}
	}
	for _, b := range d.bookings {
		if b.Vehicle != nil && b.Vehicle.ID == id {
			return true
		}
	}
	return false
}

func (r *vehicleRepo) InUse(_ context.Context, id string) (bool, error) {
	var used bool
	err := r.s.do(func(d *data) error {
		used = inUse(d, id)
		return nil
	})
	return used, err
}

func (r *vehicleRepo) Delete(_ context.Context, id string) error {
	return r.s.do(func(d *data) error {
		if _, ok := d.vehicles[id]; !ok {
			return domain.NotFound("vehicle")
		}
		if inUse(d, id) {
			return domain.NewError(domain.CodeConflict, "vehicle", "vehicle is referenced by an ad, bid or booking")
		}
		delete(d.vehicles, id)
		return nil
	})
}

func (r *vehicleRepo) List(_ context.Context, q storage.ListQuery) (storage.Page[storage.VehicleRow], error) {
	var page storage.Page[storage.VehicleRow]
	err := r.s.do(func(d *data) error {
		var all []storage.VehicleRow
		for _, v := range sortedValues(d.vehicles, func(a, b domain.Vehicle) bool { return a.CreatedAt.After(b.CreatedAt) }) {
			all = append(all, storage.VehicleRow{
				Vehicle:    *d.vehicle(&v),
				DriverName: d.party(v.DriverID, domain.RoleDriver).FullName,
			})
		}
		page = paginate(all, len(all), func(row storage.VehicleRow) bool {
			return matchPrefix(q.Search, row.Vehicle.RegistrationNumber, row.DriverName, row.Vehicle.CategoryTitle)
		}, q)
		return nil
	})
	return page, err
}

// ---- ads ----

type adRepo struct{ s *Store }

func (r *adRepo) Create(_ context.Context, a *domain.Ad) error {
	return r.s.do(func(d *data) error {
		if _, ok := d.profiles[a.Poster.ProfileID]; !ok {
			return domain.NotFound("profile")
		}
		stored := *a
		stored.BookingID = nil
		d.ads[a.ID] = stored
		return nil
	})
}

func (r *adRepo) GetByID(_ context.Context, id string) (*domain.Ad, error) {
	var out *domain.Ad
	err := r.s.do(func(d *data) error {
		a, ok := d.ads[id]
		if !ok {
			return domain.NotFound("ad")
		}
		a = d.hydrateAd(a)
		out = &a
		return nil
	})
	return out, err
}

func (r *adRepo) Update(_ context.Context, a *domain.Ad) error {
	return r.s.do(func(d *data) error {
		cur, ok := d.ads[a.ID]
		if !ok {
			return domain.NotFound("ad")
		}
		cur.Vehicle, cur.StartPlace, cur.EndPlace = a.Vehicle, a.StartPlace, a.EndPlace
		cur.StartTime, cur.EndTime, cur.Cost, cur.Quantity = a.StartTime, a.EndTime, a.Cost, a.Quantity
		d.ads[a.ID] = cur
		return nil
	})
}

func (r *adRepo) Delete(_ context.Context, id string) error {
	return r.s.do(func(d *data) error {
		if _, ok := d.ads[id]; !ok {
			return domain.NotFound("ad")
		}
		for _, b := range d.bookings {
			if b.AdID == id {
				return domain.ErrAdClosed
			}
		}
		delete(d.ads, id)
		for bidID, b := range d.bids {
			if b.AdID == id {
				delete(d.bids, bidID)
			}
		}
		return nil
	})
}

func (r *adRepo) List(_ context.Context, f storage.AdFilter) (storage.Page[domain.Ad], error) {
	var page storage.Page[domain.Ad]
	err := r.s.do(func(d *data) error {
		var all []domain.Ad
		for _, a := range sortedValues(d.ads, func(a, b domain.Ad) bool { return a.CreatedAt.After(b.CreatedAt) }) {
			a = d.hydrateAd(a)
			if f.Kind != "" && a.Kind != f.Kind {
				continue
			}
			if f.PosterUserID != "" && a.Poster.UserID != f.PosterUserID {
				continue
			}
			if f.OpenOnly && a.Closed() {
				continue
			}
			all = append(all, a)
		}
		page = paginate(all, len(all), func(a domain.Ad) bool {
			return matchPrefix(f.Search, a.StartPlace, a.EndPlace, a.Poster.FullName, registration(a.Vehicle))
		}, f.ListQuery)
		return nil
	})
	return page, err
}

// ---- bids ----

type bidRepo struct{ s *Store }

func (r *bidRepo) Create(_ context.Context, b *domain.Bid) error {
	return r.s.do(func(d *data) error {
		if _, ok := d.ads[b.AdID]; !ok {
			return domain.NotFound("ad")
		}
		d.bids[b.ID] = *b
		return nil
	})
}

func (r *bidRepo) GetByID(_ context.Context, id string) (*domain.Bid, error) {
	var out *domain.Bid
	err := r.s.do(func(d *data) error {
		b, ok := d.bids[id]
		if !ok {
			return domain.NotFound("bid")
		}
		b = d.hydrateBid(b)
		out = &b
		return nil
	})
	return out, err
}

func (r *bidRepo) list(keep func(b domain.Bid) bool, less func(a, b domain.Bid) bool) ([]domain.Bid, error) {
	var out []domain.Bid
	err := r.s.do(func(d *data) error {
		for _, b := range sortedValues(d.bids, less) {
			b = d.hydrateBid(b)
			if keep(b) {
				out = append(out, b)
			}
		}
		return nil
	})
	return out, err
}

func (r *bidRepo) ListByAd(_ context.Context, adID string) ([]domain.Bid, error) {
	return r.list(
		func(b domain.Bid) bool { return b.AdID == adID },
		func(a, b domain.Bid) bool { return a.CreatedAt.Before(b.CreatedAt) })
}

func (r *bidRepo) ListByBidder(_ context.Context, userID string) ([]domain.Bid, error) {
	return r.list(
		func(b domain.Bid) bool { return b.Bidder.UserID == userID },
		func(a, b domain.Bid) bool { return a.CreatedAt.After(b.CreatedAt) })
}

// ---- bookings ----

type bookingRepo struct{ s *Store }

// LockAd only checks existence; the store mutex already serializes writers.
func (r *bookingRepo) LockAd(_ context.Context, adID string) error {
	return r.s.do(func(d *data) error {
		if _, ok := d.ads[adID]; !ok {
			return domain.NotFound("ad")
		}
		return nil
	})
}

func (r *bookingRepo) Create(_ context.Context, b *domain.Booking) error {
	return r.s.do(func(d *data) error {
		if _, ok := d.ads[b.AdID]; !ok {
			return domain.NotFound("ad")
		}
		for _, existing := range d.bookings {
			if existing.AdID == b.AdID {
				return domain.ErrAdClosed
			}
		}
		d.bookings[b.ID] = *b
		return nil
	})
}

func (r *bookingRepo) find(match func(domain.Booking) bool) (*domain.Booking, error) {
	var out *domain.Booking
	err := r.s.do(func(d *data) error {
		for _, b := range d.bookings {
			if match(b) {
				b = d.hydrateBooking(b)
				out = &b
				return nil
			}
		}
		return domain.NotFound("booking")
	})
	return out, err
}

func (r *bookingRepo) GetByID(_ context.Context, id string) (*domain.Booking, error) {
	return r.find(func(b domain.Booking) bool { return b.ID == id })
}

func (r *bookingRepo) GetByAd(_ context.Context, adID string) (*domain.Booking, error) {
	return r.find(func(b domain.Booking) bool { return b.AdID == adID })
}

func (r *bookingRepo) UpdateStatus(_ context.Context, id string, from, to domain.BookingStatus, at time.Time) error {
	return r.s.do(func(d *data) error {
		b, ok := d.bookings[id]
		if !ok {
			return domain.NotFound("booking")
		}
		if b.Status != from {
			return domain.NewError(domain.CodeInvalidState, "status", "booking status changed concurrently")
		}
		b.Status, b.UpdatedAt = to, at
		d.bookings[id] = b
		return nil
	})
}

func (r *bookingRepo) ListByUser(_ context.Context, userID string) ([]domain.Booking, error) {
	var out []domain.Booking
	err := r.s.do(func(d *data) error {
		for _, b := range sortedValues(d.bookings, func(a, b domain.Booking) bool { return a.CreatedAt.After(b.CreatedAt) }) {
			b = d.hydrateBooking(b)
			if b.Involves(userID) {
				out = append(out, b)
			}
		}
		return nil
	})
	return out, err
}

func (r *bookingRepo) List(_ context.Context, q storage.ListQuery) (storage.Page[domain.Booking], error) {
	var page storage.Page[domain.Booking]
	err := r.s.do(func(d *data) error {
		var all []domain.Booking
		for _, b := range sortedValues(d.bookings, func(a, b domain.Booking) bool { return a.CreatedAt.After(b.CreatedAt) }) {
			all = append(all, d.hydrateBooking(b))
		}
		page = paginate(all, len(all), func(b domain.Booking) bool {
			return matchPrefix(q.Search, b.Driver.FullName, b.Customer.FullName, b.StartPlace, b.EndPlace, string(b.Status), registration(b.Vehicle))
		}, q)
		return nil
	})
	return page, err
}

// ---- transactions ----

type transactionRepo struct{ s *Store }

func (r *transactionRepo) Create(_ context.Context, t *domain.Transaction) error {
	return r.s.do(func(d *data) error {
		if _, ok := d.bookings[t.BookingID]; !ok {
			return domain.NotFound("booking")
		}
		d.transactions[t.ID] = *t
		return nil
	})
}

func (r *transactionRepo) ListByBooking(_ context.Context, bookingID string) ([]domain.Transaction, error) {
	var out []domain.Transaction
	err := r.s.do(func(d *data) error {
		for _, t := range sortedValues(d.transactions, func(a, b domain.Transaction) bool { return a.CreatedAt.Before(b.CreatedAt) }) {
			if t.BookingID == bookingID {
				out = append(out, t)
			}
		}
		return nil
	})
	return out, err
}

func (r *transactionRepo) List(_ context.Context, q storage.ListQuery) (storage.Page[domain.Transaction], error) {
	var page storage.Page[domain.Transaction]
	err := r.s.do(func(d *data) error {
		all := sortedValues(d.transactions, func(a, b domain.Transaction) bool { return a.CreatedAt.After(b.CreatedAt) })
		page = paginate(all, len(all), func(t domain.Transaction) bool {
			return matchPrefix(q.Search, t.BookingID)
		}, q)
		return nil
	})
	return page, err
}

// ---- notifications and devices ----

type notificationRepo struct{ s *Store }

func (r *notificationRepo) Create(_ context.Context, n *domain.Notification) error {
	return r.s.do(func(d *data) error {
		if _, ok := d.users[n.UserID]; !ok {
			return domain.NotFound("user")
		}
		d.notifications[n.ID] = *n
		return nil
	})
}

func (r *notificationRepo) ListByUser(_ context.Context, userID string, q storage.ListQuery) (storage.Page[domain.Notification], error) {
	var page storage.Page[domain.Notification]
	err := r.s.do(func(d *data) error {
		var all []domain.Notification
		for _, n := range sortedValues(d.notifications, func(a, b domain.Notification) bool { return a.CreatedAt.After(b.CreatedAt) }) {
			if n.UserID == userID {
				all = append(all, n)
			}
		}
		page = paginate(all, len(all), func(n domain.Notification) bool {
			return matchPrefix(q.Search, n.Title, n.Kind)
		}, q)
		return nil
	})
	return page, err
}

func (r *notificationRepo) MarkRead(_ context.Context, id, userID string) error {
	return r.s.do(func(d *data) error {
		n, ok := d.notifications[id]
		if !ok || n.UserID != userID {
			return domain.NotFound("notification")
		}
		n.Read = true
		d.notifications[id] = n
		return nil
	})
}

type deviceRepo struct{ s *Store }

func (r *deviceRepo) Register(_ context.Context, dev *domain.Device) error {
	return r.s.do(func(d *data) error {
		if _, ok := d.users[dev.UserID]; !ok {
			return domain.NotFound("user")
		}
		for id, existing := range d.devices {
			if existing.RegistrationID == dev.RegistrationID {
				existing.UserID, existing.Type = dev.UserID, dev.Type
				d.devices[id] = existing
				*dev = existing
				return nil
			}
		}
		d.devices[dev.ID] = *dev
		return nil
	})
}

func (r *deviceRepo) ListByUser(_ context.Context, userID string) ([]domain.Device, error) {
	var out []domain.Device
	err := r.s.do(func(d *data) error {
		for _, dev := range sortedValues(d.devices, func(a, b domain.Device) bool { return a.CreatedAt.Before(b.CreatedAt) }) {
			if dev.UserID == userID {
				out = append(out, dev)
			}
		}
		return nil
	})
	return out, err
}

// ---- dashboard ----

type dashboardRepo struct{ s *Store }

func (r *dashboardRepo) CountVerified(_ context.Context, role domain.Role) (int, error) {
	var n int
	err := r.s.do(func(d *data) error {
		for _, p := range d.profiles {
			if p.Role == role && p.IsVerified != nil && *p.IsVerified {
				n++
			}
		}
		return nil
	})
	return n, err
}

func (r *dashboardRepo) CountAds(_ context.Context) (int, error) {
	var n int
	err := r.s.do(func(d *data) error {
		n = len(d.ads)
		return nil
	})
	return n, err
}

func (r *dashboardRepo) CountBookings(_ context.Context) (int, error) {
	var n int
	err := r.s.do(func(d *data) error {
		for _, b := range d.bookings {
			if b.Status != domain.StatusPending {
				n++
			}
		}
		return nil
	})
	return n, err
}

func (r *dashboardRepo) NewUsersByDay(_ context.Context, since time.Time) (map[string]int, error) {
	out := make(map[string]int)
	err := r.s.do(func(d *data) error {
		for _, u := range d.users {
			if !u.DateJoined.Before(since) {
				out[u.DateJoined.UTC().Format("2006-01-02")]++
			}
		}
		return nil
	})
	return out, err
}
