package postgres

import (
	"context"

	"freight-service/internal/domain"
	"freight-service/pkg/logger"
)

type bidRepo struct {
	db  querier
	log logger.ILogger
}

const bidSelect = `
	SELECT b.id, b.ad_id, b.ad_kind, b.bidder_id, bu.id, bu.full_name, ` + vehicleCols + `, b.cost, b.created_at
	FROM bids b
	JOIN profiles bp ON bp.id = b.bidder_id
	JOIN users bu ON bu.id = bp.user_id
	LEFT JOIN vehicles v ON v.id = b.vehicle_id` + vehicleJoin

func scanBid(row interface{ Scan(...any) error }) (*domain.Bid, error) {
	var b domain.Bid
	var nv nullVehicle
	dest := []any{&b.ID, &b.AdID, &b.AdKind, &b.Bidder.ProfileID, &b.Bidder.UserID, &b.Bidder.FullName}
	dest = append(dest, nv.dest()...)
	dest = append(dest, &b.Cost, &b.CreatedAt)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	b.Bidder.Role = b.AdKind.Opposite()
	b.Vehicle = nv.vehicle()
	return &b, nil
}

func (r *bidRepo) Create(ctx context.Context, b *domain.Bid) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO bids (id, ad_id, ad_kind, bidder_id, vehicle_id, cost, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, b.ID, b.AdID, b.AdKind, b.Bidder.ProfileID, vehicleID(b.Vehicle), b.Cost, b.CreatedAt)
	if err != nil {
		if code, _ := pgCode(err); code == pgForeignKeyViolation {
			return domain.NotFound("ad")
		}
		r.log.Error("failed to create bid", logger.Error(err))
		return err
	}
	return nil
}

func (r *bidRepo) GetByID(ctx context.Context, id string) (*domain.Bid, error) {
	b, err := scanBid(r.db.QueryRow(ctx, bidSelect+` WHERE b.id = $1`, id))
	if err != nil {
		return nil, notFound(err, "bid")
	}
	return b, nil
}

func (r *bidRepo) list(ctx context.Context, query string, args ...any) ([]domain.Bid, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Bid
	for rows.Next() {
		b, err := scanBid(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

func (r *bidRepo) ListByAd(ctx context.Context, adID string) ([]domain.Bid, error) {
	out, err := r.list(ctx, bidSelect+` WHERE b.ad_id = $1 ORDER BY b.created_at`, adID)
	return out, notFound(err, "ad")
}

func (r *bidRepo) ListByBidder(ctx context.Context, userID string) ([]domain.Bid, error) {
	out, err := r.list(ctx, bidSelect+` WHERE bu.id = $1 ORDER BY b.created_at DESC`, userID)
	return out, notFound(err, "user")
}
