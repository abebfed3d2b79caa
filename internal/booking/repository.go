package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository interface {
	// CreateMany inserts every booking or none of them.
	CreateMany(ctx context.Context, bookings []*Booking) error
	GetByID(ctx context.Context, id string) (*Booking, error)
	List(ctx context.Context, filter Filter) ([]*Booking, error)
	UpdateStatus(ctx context.Context, id string, from, to Status) (bool, error)

	// CompareAndSwapPaymentStatus moves the payment status from -> to only if
	// the stored value still equals from. It reports whether the swap happened.
	CompareAndSwapPaymentStatus(ctx context.Context, id string, from, to PaymentStatus) (bool, error)
	AppendTransactionIDs(ctx context.Context, id string, txIDs []string) error
}

type pgxRepository struct {
	pool *pgxpool.Pool
}

func NewPgxRepository(pool *pgxpool.Pool) Repository {
	return &pgxRepository{pool: pool}
}

var bookingColumns = []string{
	"id", "listing_id", "user_id", "to_char(date, 'YYYY-MM-DD')", "duration", "hours",
	"total_price", "service_fee", "caution_fee", "status", "payment_status",
	"escrow_release_date", "group_id", "guest_count", "selected_add_ons", "transaction_ids",
	"created_at", "updated_at",
}

func (r *pgxRepository) CreateMany(ctx context.Context, bookings []*Booking) error {
	if len(bookings) == 0 {
		return nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin create bookings failed: %w", err)
	}
	defer tx.Rollback(ctx)

	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	for _, b := range bookings {
		query, args, err := psql.Insert("public.bookings").
			Columns(
				"id", "listing_id", "user_id", "date", "duration", "hours",
				"total_price", "service_fee", "caution_fee", "status", "payment_status",
				"escrow_release_date", "group_id", "guest_count", "selected_add_ons", "transaction_ids",
			).
			Values(
				b.ID, b.ListingID, b.UserID, b.Date, b.Duration, nonNilInts(b.Hours),
				b.TotalPrice, b.ServiceFee, b.CautionFee, b.Status, b.PaymentStatus,
				b.EscrowReleaseDate, b.GroupID, b.GuestCount, nonNilStrings(b.SelectedAddOns), nonNilStrings(b.TransactionIDs),
			).
			Suffix("RETURNING created_at, updated_at").
			ToSql()
		if err != nil {
			return fmt.Errorf("build create booking query failed: %w", err)
		}

		if err := tx.QueryRow(ctx, query, args...).Scan(&b.CreatedAt, &b.UpdatedAt); err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
				return ErrDuplicateID
			}
			return fmt.Errorf("create booking failed: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit create bookings failed: %w", err)
	}
	return nil
}

func (r *pgxRepository) GetByID(ctx context.Context, id string) (*Booking, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select(bookingColumns...).
		From("public.bookings").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get booking query failed: %w", err)
	}

	b, err := scanBooking(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get booking failed: %w", err)
	}
	return b, nil
}

func (r *pgxRepository) List(ctx context.Context, filter Filter) ([]*Booking, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query := psql.Select(bookingColumns...).From("public.bookings")

	if filter.ListingID != "" {
		query = query.Where(squirrel.Eq{"listing_id": filter.ListingID})
	}
	if filter.ListingIDs != nil {
		query = query.Where(squirrel.Eq{"listing_id": filter.ListingIDs})
	}
	if filter.UserID != "" {
		query = query.Where(squirrel.Eq{"user_id": filter.UserID})
	}
	if filter.GroupID != "" {
		query = query.Where(squirrel.Eq{"group_id": filter.GroupID})
	}
	if filter.PaymentStatus != nil {
		query = query.Where(squirrel.Eq{"payment_status": *filter.PaymentStatus})
	}
	if filter.ReleaseDueBefore != nil {
		query = query.Where(squirrel.LtOrEq{"escrow_release_date": *filter.ReleaseDueBefore})
	}
	if filter.ExcludeCancelled {
		query = query.Where(squirrel.NotEq{"status": StatusCancelled})
	}
	query = query.OrderBy("date ASC", "created_at ASC")

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list bookings query failed: %w", err)
	}

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list bookings failed: %w", err)
	}
	defer rows.Close()

	var bookings []*Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan booking failed: %w", err)
		}
		bookings = append(bookings, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bookings failed: %w", err)
	}
	return bookings, nil
}

func (r *pgxRepository) UpdateStatus(ctx context.Context, id string, from, to Status) (bool, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Update("public.bookings").
		Set("status", to).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": id, "status": from}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build update booking status query failed: %w", err)
	}

	ct, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("update booking status failed: %w", err)
	}
	return ct.RowsAffected() == 1, nil
}

func (r *pgxRepository) CompareAndSwapPaymentStatus(ctx context.Context, id string, from, to PaymentStatus) (bool, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Update("public.bookings").
		Set("payment_status", to).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": id, "payment_status": from}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build swap payment status query failed: %w", err)
	}

	ct, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("swap payment status failed: %w", err)
	}
	return ct.RowsAffected() == 1, nil
}

func (r *pgxRepository) AppendTransactionIDs(ctx context.Context, id string, txIDs []string) error {
	if len(txIDs) == 0 {
		return nil
	}
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Update("public.bookings").
		Set("transaction_ids", squirrel.Expr("transaction_ids || ?::text[]", txIDs)).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build append transaction ids query failed: %w", err)
	}

	ct, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("append transaction ids failed: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanBooking(row pgx.Row) (*Booking, error) {
	var (
		b             Booking
		status        string
		paymentStatus string
		releaseDate   *time.Time
	)
	if err := row.Scan(
		&b.ID, &b.ListingID, &b.UserID, &b.Date, &b.Duration, &b.Hours,
		&b.TotalPrice, &b.ServiceFee, &b.CautionFee, &status, &paymentStatus,
		&releaseDate, &b.GroupID, &b.GuestCount, &b.SelectedAddOns, &b.TransactionIDs,
		&b.CreatedAt, &b.UpdatedAt,
	); err != nil {
		return nil, err
	}
	b.Status = Status(status)
	b.PaymentStatus = PaymentStatus(paymentStatus)
	b.EscrowReleaseDate = releaseDate
	return &b, nil
}

func nonNilInts(v []int) []int {
	if v == nil {
		return []int{}
	}
	return v
}

func nonNilStrings(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}
