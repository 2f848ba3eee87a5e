package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"freight-service/internal/domain"
	"freight-service/internal/storage"
	"freight-service/pkg/logger"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Store struct {
	pool *pgxpool.Pool
	db   querier
	inTx bool
	log  logger.ILogger
}

func New(pool *pgxpool.Pool, log logger.ILogger) storage.IStorage {
	return &Store{pool: pool, db: pool, log: log}
}

func (s *Store) Close() {
	if !s.inTx {
		s.pool.Close()
	}
}

func (s *Store) WithTx(ctx context.Context, fn func(tx storage.IStorage) error) (err error) {
	if s.inTx {
		return fn(s)
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				s.log.Error("rollback failed", logger.Error(rbErr))
			}
		}
	}()

	if err = fn(&Store{pool: s.pool, db: tx, inTx: true, log: s.log}); err != nil {
		return err
	}
	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (s *Store) User() storage.IUserStorage           { return &userRepo{db: s.db, log: s.log} }
func (s *Store) Profile() storage.IProfileStorage     { return &profileRepo{db: s.db, log: s.log} }
func (s *Store) Vehicle() storage.IVehicleStorage     { return &vehicleRepo{db: s.db, log: s.log} }
func (s *Store) Ad() storage.IAdStorage               { return &adRepo{db: s.db, log: s.log} }
func (s *Store) Bid() storage.IBidStorage             { return &bidRepo{db: s.db, log: s.log} }
func (s *Store) Booking() storage.IBookingStorage     { return &bookingRepo{db: s.db, log: s.log} }
func (s *Store) Transaction() storage.ITransactionStorage {
	return &transactionRepo{db: s.db, log: s.log}
}
func (s *Store) Notification() storage.INotificationStorage {
	return &notificationRepo{db: s.db, log: s.log}
}
func (s *Store) Device() storage.IDeviceStorage       { return &deviceRepo{db: s.db, log: s.log} }
func (s *Store) Dashboard() storage.IDashboardStorage { return &dashboardRepo{db: s.db, log: s.log} }

// ---- helpers ----

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgInvalidText         = "22P02"
	pgNumericOverflow     = "22003"
)

func pgCode(err error) (string, string) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code, pgErr.ConstraintName
	}
	return "", ""
}

// notFound maps missing rows and malformed ids to a domain NotFound.
func notFound(err error, entity string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.NotFound(entity)
	}
	if code, _ := pgCode(err); code == pgInvalidText {
		return domain.NotFound(entity)
	}
	return err
}

// likePrefix escapes LIKE wildcards and appends the prefix match.
func likePrefix(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s) + "%"
}

func limitArg(q storage.ListQuery) any {
	if q.Limit <= 0 {
		return nil
	}
	return q.Limit
}

func offsetArg(q storage.ListQuery) int {
	if q.Offset < 0 {
		return 0
	}
	return q.Offset
}

func count(ctx context.Context, db querier, query string, args ...any) (int, error) {
	var n int
	err := db.QueryRow(ctx, query, args...).Scan(&n)
	return n, err
}

const vehicleCols = `v.id, v.driver_id, v.registration_number, v.capacity, v.category_id, vc.title, v.created_at`

const vehicleJoin = `
	LEFT JOIN vehicle_categories vc ON vc.id = v.category_id`

// nullVehicle scans the optional vehicle side of an outer join.
type nullVehicle struct {
	id, driverID, reg, categoryID, categoryTitle *string
	capacity                                     *int
	createdAt                                    *time.Time
}

func (n *nullVehicle) dest() []any {
	return []any{&n.id, &n.driverID, &n.reg, &n.capacity, &n.categoryID, &n.categoryTitle, &n.createdAt}
}

func (n *nullVehicle) vehicle() *domain.Vehicle {
	if n.id == nil {
		return nil
	}
	v := &domain.Vehicle{ID: *n.id}
	if n.driverID != nil {
		v.DriverID = *n.driverID
	}
	if n.reg != nil {
		v.RegistrationNumber = *n.reg
	}
	if n.capacity != nil {
		v.Capacity = *n.capacity
	}
	if n.categoryID != nil {
		v.CategoryID = *n.categoryID
	}
	if n.categoryTitle != nil {
		v.CategoryTitle = *n.categoryTitle
	}
	if n.createdAt != nil {
		v.CreatedAt = *n.createdAt
	}
	return v
}

func vehicleID(v *domain.Vehicle) *string {
	if v == nil {
		return nil
	}
	return &v.ID
}
