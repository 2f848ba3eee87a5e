package postgres

import (
	"context"
	"time"

	"freight-service/internal/domain"
	"freight-service/internal/storage"
	"freight-service/pkg/logger"
)

type bookingRepo struct {
	db  querier
	log logger.ILogger
}

const bookingSelect = `
	SELECT bk.id, bk.ad_id, bk.bid_id, bk.customer_ad, bk.status,
	       bk.driver_id, du.id, du.full_name, bk.customer_id, cu.id, cu.full_name, ` + vehicleCols + `,
	       bk.price, bk.start_place, bk.end_place, bk.created_at, bk.updated_at
	FROM bookings bk
	JOIN profiles dp ON dp.id = bk.driver_id
	JOIN users du ON du.id = dp.user_id
	JOIN profiles cp ON cp.id = bk.customer_id
	JOIN users cu ON cu.id = cp.user_id
	LEFT JOIN vehicles v ON v.id = bk.vehicle_id` + vehicleJoin

func scanBooking(row interface{ Scan(...any) error }) (*domain.Booking, error) {
	var b domain.Booking
	var nv nullVehicle
	dest := []any{&b.ID, &b.AdID, &b.BidID, &b.CustomerAd, &b.Status,
		&b.Driver.ProfileID, &b.Driver.UserID, &b.Driver.FullName,
		&b.Customer.ProfileID, &b.Customer.UserID, &b.Customer.FullName}
	dest = append(dest, nv.dest()...)
	dest = append(dest, &b.Price, &b.StartPlace, &b.EndPlace, &b.CreatedAt, &b.UpdatedAt)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	b.Driver.Role = domain.RoleDriver
	b.Customer.Role = domain.RoleCustomer
	b.Vehicle = nv.vehicle()
	return &b, nil
}

// LockAd takes a row lock on the ad until the surrounding transaction ends.
func (r *bookingRepo) LockAd(ctx context.Context, adID string) error {
	var id string
	err := r.db.QueryRow(ctx, `SELECT id FROM ads WHERE id = $1 FOR UPDATE`, adID).Scan(&id)
	return notFound(err, "ad")
}

func (r *bookingRepo) Create(ctx context.Context, b *domain.Booking) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO bookings (id, ad_id, bid_id, customer_ad, status, driver_id, customer_id, vehicle_id,
		                      price, start_place, end_place, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, b.ID, b.AdID, b.BidID, b.CustomerAd, b.Status, b.Driver.ProfileID, b.Customer.ProfileID,
		vehicleID(b.Vehicle), b.Price, b.StartPlace, b.EndPlace, b.CreatedAt, b.UpdatedAt)
	if err != nil {
		if code, _ := pgCode(err); code == pgUniqueViolation {
			return domain.ErrAdClosed
		}
		r.log.Error("failed to create booking", logger.Error(err))
		return err
	}
	return nil
}

func (r *bookingRepo) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	b, err := scanBooking(r.db.QueryRow(ctx, bookingSelect+` WHERE bk.id = $1`, id))
	if err != nil {
		return nil, notFound(err, "booking")
	}
	return b, nil
}

func (r *bookingRepo) GetByAd(ctx context.Context, adID string) (*domain.Booking, error) {
	b, err := scanBooking(r.db.QueryRow(ctx, bookingSelect+` WHERE bk.ad_id = $1`, adID))
	if err != nil {
		return nil, notFound(err, "booking")
	}
	return b, nil
}

// UpdateStatus is a conditional write: it only applies while the booking is
// still in from.
func (r *bookingRepo) UpdateStatus(ctx context.Context, id string, from, to domain.BookingStatus, at time.Time) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE bookings SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4`,
		to, at, id, from)
	if err != nil {
		return notFound(err, "booking")
	}
	if tag.RowsAffected() == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return domain.NewError(domain.CodeInvalidState, "status", "booking status changed concurrently")
	}
	return nil
}

func (r *bookingRepo) ListByUser(ctx context.Context, userID string) ([]domain.Booking, error) {
	rows, err := r.db.Query(ctx, bookingSelect+` WHERE du.id = $1 OR cu.id = $1 ORDER BY bk.created_at DESC`, userID)
	if err != nil {
		return nil, notFound(err, "user")
	}
	defer rows.Close()

	var out []domain.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

func (r *bookingRepo) List(ctx context.Context, q storage.ListQuery) (storage.Page[domain.Booking], error) {
	var page storage.Page[domain.Booking]
	var err error

	if page.Total, err = count(ctx, r.db, `SELECT count(*) FROM bookings`); err != nil {
		return page, err
	}

	where := ` WHERE $1 = '' OR du.full_name ILIKE $2 OR cu.full_name ILIKE $2 OR bk.start_place ILIKE $2 OR bk.end_place ILIKE $2 OR bk.status ILIKE $2 OR v.registration_number ILIKE $2`
	if page.Filtered, err = count(ctx, r.db, `SELECT count(*) FROM (`+bookingSelect+where+`) t`, q.Search, likePrefix(q.Search)); err != nil {
		return page, err
	}

	rows, err := r.db.Query(ctx, bookingSelect+where+` ORDER BY bk.created_at DESC LIMIT $3 OFFSET $4`,
		q.Search, likePrefix(q.Search), limitArg(q), offsetArg(q))
	if err != nil {
		return page, err
	}
	defer rows.Close()

	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return page, err
		}
		page.Items = append(page.Items, *b)
	}
	return page, rows.Err()
}
