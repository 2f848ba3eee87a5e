package postgres

import (
	"context"

	"freight-service/internal/domain"
	"freight-service/internal/storage"
	"freight-service/pkg/logger"
)

type notificationRepo struct {
	db  querier
	log logger.ILogger
}

func (r *notificationRepo) Create(ctx context.Context, n *domain.Notification) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO notifications (id, user_id, kind, title, body, read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, n.ID, n.UserID, n.Kind, n.Title, n.Body, n.Read, n.CreatedAt)
	if err != nil {
		if code, _ := pgCode(err); code == pgForeignKeyViolation {
			return domain.NotFound("user")
		}
		return err
	}
	return nil
}

func (r *notificationRepo) ListByUser(ctx context.Context, userID string, q storage.ListQuery) (storage.Page[domain.Notification], error) {
	var page storage.Page[domain.Notification]
	var err error

	if page.Total, err = count(ctx, r.db, `SELECT count(*) FROM notifications WHERE user_id = $1`, userID); err != nil {
		return page, notFound(err, "user")
	}
	where := ` WHERE user_id = $1 AND ($2 = '' OR title ILIKE $3 OR kind ILIKE $3)`
	if page.Filtered, err = count(ctx, r.db, `SELECT count(*) FROM notifications`+where, userID, q.Search, likePrefix(q.Search)); err != nil {
		return page, err
	}

	rows, err := r.db.Query(ctx, `
		SELECT id, user_id, kind, title, body, read, created_at FROM notifications`+where+`
		ORDER BY created_at DESC LIMIT $4 OFFSET $5
	`, userID, q.Search, likePrefix(q.Search), limitArg(q), offsetArg(q))
	if err != nil {
		return page, err
	}
	defer rows.Close()

	for rows.Next() {
		var n domain.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Kind, &n.Title, &n.Body, &n.Read, &n.CreatedAt); err != nil {
			return page, err
		}
		page.Items = append(page.Items, n)
	}
	return page, rows.Err()
}

func (r *notificationRepo) MarkRead(ctx context.Context, id, userID string) error {
	tag, err := r.db.Exec(ctx, `UPDATE notifications SET read = TRUE WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return notFound(err, "notification")
	}
	if tag.RowsAffected() == 0 {
		return domain.NotFound("notification")
	}
	return nil
}

type deviceRepo struct {
	db  querier
	log logger.ILogger
}

func (r *deviceRepo) Register(ctx context.Context, d *domain.Device) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO devices (id, user_id, registration_id, type, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (registration_id) DO UPDATE SET user_id = EXCLUDED.user_id, type = EXCLUDED.type
		RETURNING id, created_at
	`, d.ID, d.UserID, d.RegistrationID, d.Type, d.CreatedAt).Scan(&d.ID, &d.CreatedAt)
	if err != nil {
		if code, _ := pgCode(err); code == pgForeignKeyViolation {
			return domain.NotFound("user")
		}
		return err
	}
	return nil
}

func (r *deviceRepo) ListByUser(ctx context.Context, userID string) ([]domain.Device, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, user_id, registration_id, type, created_at
		FROM devices WHERE user_id = $1 ORDER BY created_at
	`, userID)
	if err != nil {
		return nil, notFound(err, "user")
	}
	defer rows.Close()

	var out []domain.Device
	for rows.Next() {
		var d domain.Device
		if err := rows.Scan(&d.ID, &d.UserID, &d.RegistrationID, &d.Type, &d.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
