package postgres

import (
	"context"
	"time"

	"freight-service/internal/domain"
	"freight-service/pkg/logger"
)

type dashboardRepo struct {
	db  querier
	log logger.ILogger
}

func (r *dashboardRepo) CountVerified(ctx context.Context, role domain.Role) (int, error) {
	return count(ctx, r.db, `SELECT count(*) FROM profiles WHERE role = $1 AND is_verified IS TRUE`, role)
}

func (r *dashboardRepo) CountAds(ctx context.Context) (int, error) {
	return count(ctx, r.db, `SELECT count(*) FROM ads`)
}

func (r *dashboardRepo) CountBookings(ctx context.Context) (int, error) {
	return count(ctx, r.db, `SELECT count(*) FROM bookings WHERE status <> $1`, domain.StatusPending)
}

func (r *dashboardRepo) NewUsersByDay(ctx context.Context, since time.Time) (map[string]int, error) {
	rows, err := r.db.Query(ctx, `
		SELECT to_char(date_joined AT TIME ZONE 'UTC', 'YYYY-MM-DD') AS day, count(*)
		FROM users WHERE date_joined >= $1
		GROUP BY day
	`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var day string
		var n int
		if err := rows.Scan(&day, &n); err != nil {
			return nil, err
		}
		out[day] = n
	}
	return out, rows.Err()
}
