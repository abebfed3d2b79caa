package listing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
)

type Repository interface {
	GetByID(ctx context.Context, id string) (*Listing, error)
	List(ctx context.Context, filter Filter) ([]*Listing, error)
}

type pgxRepository struct {
	pool   *pgxpool.Pool
	logger *logrus.Logger
}

func NewPgxRepository(pool *pgxpool.Pool, logger *logrus.Logger) Repository {
	return &pgxRepository{pool: pool, logger: logger}
}

var listingColumns = []string{
	"id", "host_id", "title", "price::float8", "price_unit", "availability",
	"capacity", "included_guests", "price_per_extra_guest::float8", "caution_fee::float8",
	"add_ons", "settings", "is_active", "created_at",
}

func (r *pgxRepository) GetByID(ctx context.Context, id string) (*Listing, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select(listingColumns...).
		From("public.listings").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get listing query failed: %w", err)
	}

	l, err := r.scan(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get listing failed: %w", err)
	}
	return l, nil
}

func (r *pgxRepository) List(ctx context.Context, filter Filter) ([]*Listing, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query := psql.Select(listingColumns...).From("public.listings")

	if filter.HostID != "" {
		query = query.Where(squirrel.Eq{"host_id": filter.HostID})
	}
	if filter.IDs != nil {
		query = query.Where(squirrel.Eq{"id": filter.IDs})
	}
	if filter.ActiveOnly {
		query = query.Where(squirrel.Eq{"is_active": true})
	}
	query = query.OrderBy("created_at DESC")

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list listings query failed: %w", err)
	}

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list listings failed: %w", err)
	}
	defer rows.Close()

	var listings []*Listing
	for rows.Next() {
		l, err := r.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan listing failed: %w", err)
		}
		listings = append(listings, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate listings failed: %w", err)
	}
	return listings, nil
}

func (r *pgxRepository) scan(row pgx.Row) (*Listing, error) {
	var (
		l                            Listing
		availabilityJSON, addOnsJSON []byte
		settingsJSON                 []byte
		priceUnit                    string
	)
	if err := row.Scan(
		&l.ID, &l.HostID, &l.Title, &l.Price, &priceUnit, &availabilityJSON,
		&l.Capacity, &l.IncludedGuests, &l.PricePerExtraGuest, &l.CautionFee,
		&addOnsJSON, &settingsJSON, &l.IsActive, &l.CreatedAt,
	); err != nil {
		return nil, err
	}
	l.PriceUnit = PriceUnit(priceUnit)

	decodeJSONColumn(r.logger, l.ID, "availability", availabilityJSON, &l.Availability)
	decodeJSONColumn(r.logger, l.ID, "add_ons", addOnsJSON, &l.AddOns)
	decodeJSONColumn(r.logger, l.ID, "settings", settingsJSON, &l.Settings)

	return &l, nil
}

// decodeJSONColumn fails closed: a malformed document leaves dst at its zero
// value, which for availability means "no open dates".
func decodeJSONColumn[T any](logger *logrus.Logger, listingID, column string, raw []byte, dst *T) {
	if len(raw) == 0 {
		return
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		if logger != nil {
			logger.WithFields(logrus.Fields{
				"listing_id": listingID,
				"column":     column,
			}).WithError(err).Warn("malformed listing column, treating as absent")
		}
		return
	}
	*dst = v
}
