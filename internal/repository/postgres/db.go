package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/grcspl/storefront/internal/config"
)

// NewConnection opens and pings a Postgres pool
func NewConnection(cfg config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS pending_orders (
	transaction_id  TEXT PRIMARY KEY,
	invoice_id      TEXT NOT NULL,
	payload         JSONB NOT NULL,
	attempts        INTEGER NOT NULL DEFAULT 0,
	last_error      TEXT NOT NULL DEFAULT '',
	enqueued_at     TIMESTAMPTZ NOT NULL,
	next_attempt_at TIMESTAMPTZ NOT NULL,
	claimed_at      TIMESTAMPTZ,
	resolved_at     TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS pending_orders_due_idx
	ON pending_orders (next_attempt_at)
	WHERE resolved_at IS NULL;
CREATE INDEX IF NOT EXISTS pending_orders_invoice_idx
	ON pending_orders (invoice_id);
`

// Migrate creates the tables this service owns
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}
