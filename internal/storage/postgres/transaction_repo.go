package postgres

import (
	"context"

	"freight-service/internal/domain"
	"freight-service/internal/storage"
	"freight-service/pkg/logger"
)

type transactionRepo struct {
	db  querier
	log logger.ILogger
}

func (r *transactionRepo) Create(ctx context.Context, t *domain.Transaction) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO transactions (id, booking_id, amount, created_at) VALUES ($1, $2, $3, $4)`,
		t.ID, t.BookingID, t.Amount, t.CreatedAt)
	if err != nil {
		switch code, _ := pgCode(err); code {
		case pgForeignKeyViolation:
			return domain.NotFound("booking")
		case pgNumericOverflow:
			return domain.NewError(domain.CodeInvalidAmount, "amount", "amount is out of range")
		}
		r.log.Error("failed to record transaction", logger.Error(err))
		return err
	}
	return nil
}

func (r *transactionRepo) scan(ctx context.Context, query string, args ...any) ([]domain.Transaction, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Transaction
	for rows.Next() {
		var t domain.Transaction
		if err := rows.Scan(&t.ID, &t.BookingID, &t.Amount, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *transactionRepo) ListByBooking(ctx context.Context, bookingID string) ([]domain.Transaction, error) {
	out, err := r.scan(ctx,
		`SELECT id, booking_id, amount, created_at FROM transactions WHERE booking_id = $1 ORDER BY created_at`, bookingID)
	return out, notFound(err, "booking")
}

func (r *transactionRepo) List(ctx context.Context, q storage.ListQuery) (storage.Page[domain.Transaction], error) {
	var page storage.Page[domain.Transaction]
	var err error

	if page.Total, err = count(ctx, r.db, `SELECT count(*) FROM transactions`); err != nil {
		return page, err
	}
	where := ` WHERE $1 = '' OR booking_id::text ILIKE $2`
	if page.Filtered, err = count(ctx, r.db, `SELECT count(*) FROM transactions`+where, q.Search, likePrefix(q.Search)); err != nil {
		return page, err
	}
	page.Items, err = r.scan(ctx,
		`SELECT id, booking_id, amount, created_at FROM transactions`+where+` ORDER BY created_at DESC LIMIT $3 OFFSET $4`,
		q.Search, likePrefix(q.Search), limitArg(q), offsetArg(q))
	return page, err
}
