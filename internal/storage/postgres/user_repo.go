package postgres

import (
	"context"

	"freight-service/internal/domain"
	"freight-service/internal/storage"
	"freight-service/pkg/logger"
)

type userRepo struct {
	db  querier
	log logger.ILogger
}

const userCols = `id, phone_number, email, full_name, gender, date_of_birth, is_staff, password_hash, date_joined`

func scanUser(row interface{ Scan(...any) error }, u *domain.User) error {
	return row.Scan(&u.ID, &u.Phone, &u.Email, &u.FullName, &u.Gender, &u.DateOfBirth, &u.IsStaff, &u.PasswordHash, &u.DateJoined)
}

func (r *userRepo) Create(ctx context.Context, u *domain.User) error {
	query := `
		INSERT INTO users (id, phone_number, email, full_name, gender, date_of_birth, is_staff, password_hash, date_joined)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.db.Exec(ctx, query, u.ID, u.Phone, u.Email, u.FullName, u.Gender, u.DateOfBirth, u.IsStaff, u.PasswordHash, u.DateJoined)
	if err != nil {
		if code, constraint := pgCode(err); code == pgUniqueViolation {
			if constraint == "users_email_key" {
				return domain.NewError(domain.CodeConflict, "email", "email already exists")
			}
			return domain.NewError(domain.CodeConflict, "phone_number", "phone number already exists")
		}
		r.log.Error("failed to create user", logger.Error(err))
		return err
	}
	return nil
}

func (r *userRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	var u domain.User
	err := scanUser(r.db.QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE id = $1`, id), &u)
	if err != nil {
		return nil, notFound(err, "user")
	}
	return &u, nil
}

func (r *userRepo) GetByPhone(ctx context.Context, phone string) (*domain.User, error) {
	var u domain.User
	err := scanUser(r.db.QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE phone_number = $1`, phone), &u)
	if err != nil {
		return nil, notFound(err, "user")
	}
	return &u, nil
}

func (r *userRepo) Update(ctx context.Context, u *domain.User) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE users SET email = $1, full_name = $2, gender = $3, date_of_birth = $4 WHERE id = $5`,
		u.Email, u.FullName, u.Gender, u.DateOfBirth, u.ID)
	if err != nil {
		if code, _ := pgCode(err); code == pgUniqueViolation {
			return domain.NewError(domain.CodeConflict, "email", "email already exists")
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.NotFound("user")
	}
	return nil
}

func (r *userRepo) SetPassword(ctx context.Context, id, hash string) error {
	tag, err := r.db.Exec(ctx, `UPDATE users SET password_hash = $1 WHERE id = $2`, hash, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.NotFound("user")
	}
	return nil
}

func (r *userRepo) List(ctx context.Context, q storage.ListQuery) (storage.Page[domain.User], error) {
	var page storage.Page[domain.User]
	var err error

	if page.Total, err = count(ctx, r.db, `SELECT count(*) FROM users`); err != nil {
		return page, err
	}

	where := `WHERE $1 = '' OR full_name ILIKE $2 OR phone_number ILIKE $2 OR email ILIKE $2`
	if page.Filtered, err = count(ctx, r.db, `SELECT count(*) FROM users `+where, q.Search, likePrefix(q.Search)); err != nil {
		return page, err
	}

	rows, err := r.db.Query(ctx,
		`SELECT `+userCols+` FROM users `+where+` ORDER BY date_joined DESC LIMIT $3 OFFSET $4`,
		q.Search, likePrefix(q.Search), limitArg(q), offsetArg(q))
	if err != nil {
		return page, err
	}
	defer rows.Close()

	for rows.Next() {
		var u domain.User
		if err := scanUser(rows, &u); err != nil {
			return page, err
		}
		page.Items = append(page.Items, u)
	}
	return page, rows.Err()
}
