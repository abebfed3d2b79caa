package escrow

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sirupsen/logrus"
)

// Repository stores ledger rows. There is deliberately no update or delete.
type Repository interface {
	// Append writes every row or none of them.
	Append(ctx context.Context, txs []*Transaction) error
	List(ctx context.Context, filter Filter) ([]*Transaction, error)
}

const payoutIndex = "ux_escrow_payout_per_booking"

var transactionColumns = []string{
	"id", "booking_id", "type", "amount", "status", "timestamp",
	"from_user_id", "to_user_id", "paystack_reference", "metadata",
}

// sqlRepository runs on database/sql through the pgx stdlib driver.
type sqlRepository struct {
	db     *sql.DB
	logger *logrus.Logger
}

func NewSQLRepository(db *sql.DB, logger *logrus.Logger) Repository {
	return &sqlRepository{db: db, logger: logger}
}

func (r *sqlRepository) Append(ctx context.Context, txs []*Transaction) error {
	if len(txs) == 0 {
		return nil
	}

	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	builder := psql.Insert("public.escrow_transactions").Columns(transactionColumns...)
	for _, tx := range txs {
		metadata, err := json.Marshal(tx.Metadata)
		if err != nil {
			return fmt.Errorf("encode metadata failed: %w", err)
		}
		if tx.Metadata == nil {
			metadata = []byte("{}")
		}
		builder = builder.Values(
			tx.ID, tx.BookingID, string(tx.Type), tx.Amount, string(tx.Status), tx.Timestamp,
			tx.FromUserID, tx.ToUserID, tx.PaystackReference, string(metadata),
		)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return fmt.Errorf("build insert transactions query failed: %w", err)
	}

	// One multi-row INSERT is a single statement, so it commits or fails whole.
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation && pgErr.ConstraintName == payoutIndex {
			return ErrDuplicatePayout
		}
		return fmt.Errorf("insert transactions failed: %w", err)
	}
	return nil
}

func (r *sqlRepository) List(ctx context.Context, filter Filter) ([]*Transaction, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	builder := psql.Select(transactionColumns...).
		From("public.escrow_transactions").
		OrderBy("timestamp ASC", "id ASC")

	if filter.BookingID != "" {
		builder = builder.Where(squirrel.Eq{"booking_id": filter.BookingID})
	}
	if filter.Type != "" {
		builder = builder.Where(squirrel.Eq{"type": string(filter.Type)})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list transactions query failed: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions failed: %w", err)
	}
	defer rows.Close()

	var txs []*Transaction
	for rows.Next() {
		var (
			tx       Transaction
			txType   string
			status   string
			metadata []byte
		)
		if err := rows.Scan(
			&tx.ID, &tx.BookingID, &txType, &tx.Amount, &status, &tx.Timestamp,
			&tx.FromUserID, &tx.ToUserID, &tx.PaystackReference, &metadata,
		); err != nil {
			return nil, fmt.Errorf("scan transaction failed: %w", err)
		}
		tx.Type = Type(txType)
		tx.Status = TxStatus(status)
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &tx.Metadata); err != nil {
				r.logger.WithError(err).WithField("transaction_id", tx.ID).Warn("malformed transaction metadata, ignoring")
				tx.Metadata = nil
			}
		}
		txs = append(txs, &tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions failed: %w", err)
	}
	return txs, nil
}
