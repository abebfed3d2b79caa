package db

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var Schema string

// migrationLockID serializes schema application across processes.
const migrationLockID = 7_312_004

// Migrate applies schema.sql. Every statement is idempotent, so running it
// on an up-to-date database is a no-op.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire migration connection failed: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "SELECT pg_advisory_lock($1)", migrationLockID); err != nil {
		return fmt.Errorf("take migration lock failed: %w", err)
	}
	defer conn.Exec(context.WithoutCancel(ctx), "SELECT pg_advisory_unlock($1)", migrationLockID)

	// No arguments, so pgx sends the whole file over the simple protocol.
	if _, err := conn.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("apply schema failed: %w", err)
	}
	return nil
}
