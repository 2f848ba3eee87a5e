package postgres

import (
	"context"
	"fmt"

	"freight-service/internal/domain"
	"freight-service/internal/storage"
	"freight-service/pkg/logger"
)

type adRepo struct {
	db  querier
	log logger.ILogger
}

const adSelect = `
	SELECT a.id, a.kind, a.poster_id, pu.id, pu.full_name, ` + vehicleCols + `,
	       a.start_place, a.end_place, a.start_time, a.end_time, a.cost, a.quantity, a.created_at, bk.id
	FROM ads a
	JOIN profiles pp ON pp.id = a.poster_id
	JOIN users pu ON pu.id = pp.user_id
	LEFT JOIN vehicles v ON v.id = a.vehicle_id` + vehicleJoin + `
	LEFT JOIN bookings bk ON bk.ad_id = a.id`

func scanAd(row interface{ Scan(...any) error }) (*domain.Ad, error) {
	var a domain.Ad
	var nv nullVehicle
	dest := []any{&a.ID, &a.Kind, &a.Poster.ProfileID, &a.Poster.UserID, &a.Poster.FullName}
	dest = append(dest, nv.dest()...)
	dest = append(dest, &a.StartPlace, &a.EndPlace, &a.StartTime, &a.EndTime, &a.Cost, &a.Quantity, &a.CreatedAt, &a.BookingID)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	a.Poster.Role = a.Kind
	a.Vehicle = nv.vehicle()
	return &a, nil
}

func (r *adRepo) Create(ctx context.Context, a *domain.Ad) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO ads (id, kind, poster_id, vehicle_id, start_place, end_place, start_time, end_time, cost, quantity, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, a.ID, a.Kind, a.Poster.ProfileID, vehicleID(a.Vehicle), a.StartPlace, a.EndPlace,
		a.StartTime, a.EndTime, a.Cost, a.Quantity, a.CreatedAt)
	if err != nil {
		r.log.Error("failed to create ad", logger.Error(err))
		return err
	}
	return nil
}

func (r *adRepo) GetByID(ctx context.Context, id string) (*domain.Ad, error) {
	a, err := scanAd(r.db.QueryRow(ctx, adSelect+` WHERE a.id = $1`, id))
	if err != nil {
		return nil, notFound(err, "ad")
	}
	return a, nil
}

func (r *adRepo) Update(ctx context.Context, a *domain.Ad) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE ads SET vehicle_id = $1, start_place = $2, end_place = $3, start_time = $4,
		       end_time = $5, cost = $6, quantity = $7
		WHERE id = $8
	`, vehicleID(a.Vehicle), a.StartPlace, a.EndPlace, a.StartTime, a.EndTime, a.Cost, a.Quantity, a.ID)
	if err != nil {
		return notFound(err, "ad")
	}
	if tag.RowsAffected() == 0 {
		return domain.NotFound("ad")
	}
	return nil
}

func (r *adRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM ads WHERE id = $1`, id)
	if err != nil {
		if code, _ := pgCode(err); code == pgForeignKeyViolation {
			return domain.ErrAdClosed
		}
		return notFound(err, "ad")
	}
	if tag.RowsAffected() == 0 {
		return domain.NotFound("ad")
	}
	return nil
}

func (r *adRepo) List(ctx context.Context, f storage.AdFilter) (storage.Page[domain.Ad], error) {
	var page storage.Page[domain.Ad]

	where := ` WHERE ($1 = '' OR a.kind = $1) AND ($2 = '' OR pu.id::text = $2)`
	if f.OpenOnly {
		where += ` AND bk.id IS NULL`
	}
	base := []any{string(f.Kind), f.PosterUserID}

	var err error
	if page.Total, err = count(ctx, r.db, `SELECT count(*) FROM (`+adSelect+where+`) t`, base...); err != nil {
		return page, err
	}

	filter := where + ` AND ($3 = '' OR a.start_place ILIKE $4 OR a.end_place ILIKE $4 OR pu.full_name ILIKE $4 OR v.registration_number ILIKE $4)`
	args := append(base, f.Search, likePrefix(f.Search))
	if page.Filtered, err = count(ctx, r.db, `SELECT count(*) FROM (`+adSelect+filter+`) t`, args...); err != nil {
		return page, err
	}

	rows, err := r.db.Query(ctx,
		fmt.Sprintf(`%s%s ORDER BY a.created_at DESC LIMIT $5 OFFSET $6`, adSelect, filter),
		append(args, limitArg(f.ListQuery), offsetArg(f.ListQuery))...)
	if err != nil {
		return page, err
	}
	defer rows.Close()

	for rows.Next() {
		a, err := scanAd(rows)
		if err != nil {
			return page, err
		}
		page.Items = append(page.Items, *a)
	}
	return page, rows.Err()
}
