package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"

	"freight-service/internal/domain"
	"freight-service/internal/storage"
	"freight-service/pkg/logger"
)

type profileRepo struct {
	db  querier
	log logger.ILogger
}

const profileCols = `p.id, p.user_id, p.role, p.is_verified, p.created_at`

func profileDest(p *domain.Profile) []any {
	return []any{&p.ID, &p.UserID, &p.Role, &p.IsVerified, &p.CreatedAt}
}

func (r *profileRepo) GetOrCreate(ctx context.Context, userID string, role domain.Role) (*domain.Profile, error) {
	_, err := r.db.Exec(ctx, `
		INSERT INTO profiles (id, user_id, role, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, role) DO NOTHING
	`, uuid.NewString(), userID, role, time.Now().UTC())
	if err != nil {
		if code, _ := pgCode(err); code == pgForeignKeyViolation || code == pgInvalidText {
			return nil, domain.NotFound("user")
		}
		return nil, err
	}
	return r.Get(ctx, userID, role)
}

func (r *profileRepo) Get(ctx context.Context, userID string, role domain.Role) (*domain.Profile, error) {
	var p domain.Profile
	err := r.db.QueryRow(ctx,
		`SELECT `+profileCols+` FROM profiles p WHERE p.user_id = $1 AND p.role = $2`,
		userID, role).Scan(profileDest(&p)...)
	if err != nil {
		return nil, notFound(err, "profile")
	}
	return &p, nil
}

func (r *profileRepo) GetByID(ctx context.Context, id string) (*domain.Profile, error) {
	var p domain.Profile
	err := r.db.QueryRow(ctx, `SELECT `+profileCols+` FROM profiles p WHERE p.id = $1`, id).Scan(profileDest(&p)...)
	if err != nil {
		return nil, notFound(err, "profile")
	}
	return &p, nil
}

func (r *profileRepo) ListByUser(ctx context.Context, userID string) ([]domain.Profile, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+profileCols+` FROM profiles p WHERE p.user_id = $1 ORDER BY p.role`, userID)
	if err != nil {
		return nil, notFound(err, "user")
	}
	defer rows.Close()

	var out []domain.Profile
	for rows.Next() {
		var p domain.Profile
		if err := rows.Scan(profileDest(&p)...); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *profileRepo) SetVerification(ctx context.Context, id string, flag *bool) error {
	tag, err := r.db.Exec(ctx, `UPDATE profiles SET is_verified = $1 WHERE id = $2`, flag, id)
	if err != nil {
		return notFound(err, "profile")
	}
	if tag.RowsAffected() == 0 {
		return domain.NotFound("profile")
	}
	return nil
}

func (r *profileRepo) AddDocument(ctx context.Context, d *domain.Document) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO documents (id, profile_id, role, file_ref, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, d.ID, d.ProfileID, d.Role, d.FileRef, d.CreatedAt)
	if err != nil {
		if code, _ := pgCode(err); code == pgForeignKeyViolation {
			return domain.NotFound("profile")
		}
		r.log.Error("failed to add document", logger.Error(err))
		return err
	}
	return nil
}

func (r *profileRepo) Documents(ctx context.Context, profileID string) ([]domain.Document, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, profile_id, role, file_ref, created_at
		FROM documents WHERE profile_id = $1 ORDER BY created_at
	`, profileID)
	if err != nil {
		return nil, notFound(err, "profile")
	}
	defer rows.Close()

	var out []domain.Document
	for rows.Next() {
		var d domain.Document
		if err := rows.Scan(&d.ID, &d.ProfileID, &d.Role, &d.FileRef, &d.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *profileRepo) scanRows(ctx context.Context, query string, args ...any) ([]storage.ProfileRow, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []storage.ProfileRow
	for rows.Next() {
		var pr storage.ProfileRow
		dest := append(profileDest(&pr.Profile),
			&pr.User.ID, &pr.User.Phone, &pr.User.Email, &pr.User.FullName,
			&pr.User.Gender, &pr.User.DateOfBirth, &pr.User.IsStaff, &pr.User.PasswordHash, &pr.User.DateJoined)
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		out = append(out, pr)
	}
	return out, rows.Err()
}

const profileUserCols = profileCols + `, u.id, u.phone_number, u.email, u.full_name, u.gender, u.date_of_birth, u.is_staff, u.password_hash, u.date_joined`

func (r *profileRepo) ListPending(ctx context.Context, role domain.Role) ([]storage.ProfileRow, error) {
	return r.scanRows(ctx, `
		SELECT `+profileUserCols+`
		FROM profiles p JOIN users u ON u.id = p.user_id
		WHERE p.role = $1 AND p.is_verified IS NULL
		ORDER BY p.created_at
	`, role)
}

func (r *profileRepo) ListVerified(ctx context.Context, role domain.Role, q storage.ListQuery) (storage.Page[storage.ProfileRow], error) {
	var page storage.Page[storage.ProfileRow]
	var err error

	from := `FROM profiles p JOIN users u ON u.id = p.user_id WHERE p.role = $1 AND p.is_verified IS TRUE`
	if page.Total, err = count(ctx, r.db, `SELECT count(*) `+from, role); err != nil {
		return page, err
	}

	filter := ` AND ($2 = '' OR u.full_name ILIKE $3 OR u.phone_number ILIKE $3)`
	if page.Filtered, err = count(ctx, r.db, `SELECT count(*) `+from+filter, role, q.Search, likePrefix(q.Search)); err != nil {
		return page, err
	}

	page.Items, err = r.scanRows(ctx,
		`SELECT `+profileUserCols+` `+from+filter+` ORDER BY p.created_at DESC LIMIT $4 OFFSET $5`,
		role, q.Search, likePrefix(q.Search), limitArg(q), offsetArg(q))
	return page, err
}
