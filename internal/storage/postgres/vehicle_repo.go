package postgres

import (
	"context"

	"freight-service/internal/domain"
	"freight-service/internal/storage"
	"freight-service/pkg/logger"
)

type vehicleRepo struct {
	db  querier
	log logger.ILogger
}

func (r *vehicleRepo) CreateCategory(ctx context.Context, c *domain.VehicleCategory) error {
	_, err := r.db.Exec(ctx, `INSERT INTO vehicle_categories (id, title) VALUES ($1, $2)`, c.ID, c.Title)
	if code, _ := pgCode(err); code == pgUniqueViolation {
		return domain.NewError(domain.CodeConflict, "title", "category already exists")
	}
	return err
}

func (r *vehicleRepo) Categories(ctx context.Context) ([]domain.VehicleCategory, error) {
	rows, err := r.db.Query(ctx, `SELECT id, title FROM vehicle_categories ORDER BY title`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.VehicleCategory
	for rows.Next() {
		var c domain.VehicleCategory
		if err := rows.Scan(&c.ID, &c.Title); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *vehicleRepo) GetCategory(ctx context.Context, id string) (*domain.VehicleCategory, error) {
	var c domain.VehicleCategory
	err := r.db.QueryRow(ctx, `SELECT id, title FROM vehicle_categories WHERE id = $1`, id).Scan(&c.ID, &c.Title)
	if err != nil {
		return nil, notFound(err, "category")
	}
	return &c, nil
}

func (r *vehicleRepo) Create(ctx context.Context, v *domain.Vehicle) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO vehicles (id, driver_id, registration_number, capacity, category_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, v.ID, v.DriverID, v.RegistrationNumber, v.Capacity, v.CategoryID, v.CreatedAt)
	if err != nil {
		switch code, _ := pgCode(err); code {
		case pgUniqueViolation:
			return domain.NewError(domain.CodeConflict, "registration_number", "vehicle already registered")
		case pgForeignKeyViolation:
			return domain.NotFound("category")
		}
		r.log.Error("failed to create vehicle", logger.Error(err))
		return err
	}
	return nil
}

const vehicleSelect = `SELECT ` + vehicleCols + ` FROM vehicles v` + vehicleJoin

func (r *vehicleRepo) GetByID(ctx context.Context, id string) (*domain.Vehicle, error) {
	var nv nullVehicle
	if err := r.db.QueryRow(ctx, vehicleSelect+` WHERE v.id = $1`, id).Scan(nv.dest()...); err != nil {
		return nil, notFound(err, "vehicle")
	}
	return nv.vehicle(), nil
}

func (r *vehicleRepo) ListByDriver(ctx context.Context, driverID string) ([]domain.Vehicle, error) {
	rows, err := r.db.Query(ctx, vehicleSelect+` WHERE v.driver_id = $1 ORDER BY v.created_at`, driverID)
	if err != nil {
		return nil, notFound(err, "profile")
	}
	defer rows.Close()

	var out []domain.Vehicle
	for rows.Next() {
		var nv nullVehicle
		if err := rows.Scan(nv.dest()...); err != nil {
			return nil, err
		}
		out = append(out, *nv.vehicle())
	}
	return out, rows.Err()
}

func (r *vehicleRepo) InUse(ctx context.Context, id string) (bool, error) {
	var used bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM ads WHERE vehicle_id = $1)
		    OR EXISTS (SELECT 1 FROM bids WHERE vehicle_id = $1)
		    OR EXISTS (SELECT 1 FROM bookings WHERE vehicle_id = $1)
	`, id).Scan(&used)
	return used, notFound(err, "vehicle")
}

func (r *vehicleRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM vehicles WHERE id = $1`, id)
	if err != nil {
		if code, _ := pgCode(err); code == pgForeignKeyViolation {
			return domain.NewError(domain.CodeConflict, "vehicle", "vehicle is referenced by an ad, bid or booking")
		}
		return notFound(err, "vehicle")
	}
	if tag.RowsAffected() == 0 {
		return domain.NotFound("vehicle")
	}
	return nil
}

func (r *vehicleRepo) List(ctx context.Context, q storage.ListQuery) (storage.Page[storage.VehicleRow], error) {
	var page storage.Page[storage.VehicleRow]
	var err error

	if page.Total, err = count(ctx, r.db, `SELECT count(*) FROM vehicles`); err != nil {
		return page, err
	}

	from := ` FROM vehicles v` + vehicleJoin + `
		JOIN profiles dp ON dp.id = v.driver_id
		JOIN users du ON du.id = dp.user_id
		WHERE $1 = '' OR v.registration_number ILIKE $2 OR du.full_name ILIKE $2 OR vc.title ILIKE $2`
	if page.Filtered, err = count(ctx, r.db, `SELECT count(*)`+from, q.Search, likePrefix(q.Search)); err != nil {
		return page, err
	}

	rows, err := r.db.Query(ctx,
		`SELECT `+vehicleCols+`, du.full_name`+from+` ORDER BY v.created_at DESC LIMIT $3 OFFSET $4`,
		q.Search, likePrefix(q.Search), limitArg(q), offsetArg(q))
	if err != nil {
		return page, err
	}
	defer rows.Close()

	for rows.Next() {
		var nv nullVehicle
		var row storage.VehicleRow
		if err := rows.Scan(append(nv.dest(), &row.DriverName)...); err != nil {
			return page, err
		}
		row.Vehicle = *nv.vehicle()
		page.Items = append(page.Items, row)
	}
	return page, rows.Err()
}
