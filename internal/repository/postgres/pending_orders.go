package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/grcspl/storefront/internal/domain"
	"github.com/grcspl/storefront/internal/reconcile"
)

type pendingOrderRepository struct {
	db     *sql.DB
	now    func() time.Time
	logger *zap.Logger
}

// NewPendingOrderRepository creates a reconciliation queue backed by the pending_orders table
func NewPendingOrderRepository(db *sql.DB, logger *zap.Logger) *pendingOrderRepository {
	return &pendingOrderRepository{
		db:     db,
		now:    time.Now,
		logger: logger,
	}
}

var _ reconcile.Queue = (*pendingOrderRepository)(nil)

const entryColumns = `transaction_id, payload, attempts, last_error, enqueued_at, next_attempt_at, claimed_at`

func (r *pendingOrderRepository) Enqueue(ctx context.Context, order *domain.Order, cause error) error {
	if err := reconcile.ValidateOrder(order); err != nil {
		return err
	}

	payload, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("failed to marshal order: %w", err)
	}

	query := `
		INSERT INTO pending_orders (transaction_id, invoice_id, payload, last_error, enqueued_at, next_attempt_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		ON CONFLICT (transaction_id) DO UPDATE
		SET last_error = EXCLUDED.last_error
		WHERE pending_orders.resolved_at IS NULL
	`

	_, err = r.db.ExecContext(ctx, query,
		order.TransactionID,
		order.InvoiceID,
		payload,
		errorText(cause),
		r.now().UTC(),
	)
	if err != nil {
		r.logger.Error("Failed to enqueue pending order",
			zap.String("transaction_id", order.TransactionID),
			zap.String("invoice_id", order.InvoiceID),
			zap.Error(err),
		)
		return err
	}

	return nil
}

func (r *pendingOrderRepository) Claim(ctx context.Context, transactionID string) (*reconcile.Entry, error) {
	now := r.now().UTC()
	query := `
		UPDATE pending_orders
		SET claimed_at = $2
		WHERE transaction_id = $1
		  AND resolved_at IS NULL
		  AND (claimed_at IS NULL OR claimed_at < $3)
		RETURNING ` + entryColumns

	entry, err := scanEntry(r.db.QueryRowContext(ctx, query, transactionID, now, now.Add(-reconcile.ClaimLease)))
	if err == nil {
		return entry, nil
	}
	if err != sql.ErrNoRows {
		r.logger.Error("Failed to claim pending order", zap.String("transaction_id", transactionID), zap.Error(err))
		return nil, err
	}

	// Nothing claimed: find out why
	var resolved bool
	err = r.db.QueryRowContext(ctx,
		`SELECT resolved_at IS NOT NULL FROM pending_orders WHERE transaction_id = $1`, transactionID,
	).Scan(&resolved)
	if err == sql.ErrNoRows {
		return nil, reconcile.ErrNotQueued
	}
	if err != nil {
		return nil, err
	}
	if resolved {
		return nil, reconcile.ErrResolved
	}
	return nil, reconcile.ErrAlreadyClaimed
}

func (r *pendingOrderRepository) ClaimDue(ctx context.Context, now time.Time, limit int) ([]*reconcile.Entry, error) {
	now = now.UTC()
	query := `
		UPDATE pending_orders
		SET claimed_at = $1
		WHERE transaction_id IN (
			SELECT transaction_id FROM pending_orders
			WHERE resolved_at IS NULL
			  AND next_attempt_at <= $1
			  AND (claimed_at IS NULL OR claimed_at < $2)
			ORDER BY next_attempt_at
			LIMIT $3
			FOR UPDATE SKIP LOCKED
		)
		RETURNING ` + entryColumns

	rows, err := r.db.QueryContext(ctx, query, now, now.Add(-reconcile.ClaimLease), limit)
	if err != nil {
		r.logger.Error("Failed to claim due pending orders", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var entries []*reconcile.Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func (r *pendingOrderRepository) Resolve(ctx context.Context, transactionID string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE pending_orders SET resolved_at = $2, claimed_at = NULL WHERE transaction_id = $1`,
		transactionID, r.now().UTC(),
	)
	if err != nil {
		r.logger.Error("Failed to resolve pending order", zap.String("transaction_id", transactionID), zap.Error(err))
		return err
	}
	return requireRow(res)
}

func (r *pendingOrderRepository) Release(ctx context.Context, transactionID string, cause error, retryAt time.Time) error {
	query := `
		UPDATE pending_orders
		SET attempts = attempts + 1, last_error = $2, next_attempt_at = $3, claimed_at = NULL
		WHERE transaction_id = $1 AND resolved_at IS NULL
	`

	res, err := r.db.ExecContext(ctx, query, transactionID, errorText(cause), retryAt.UTC())
	if err != nil {
		r.logger.Error("Failed to release pending order", zap.String("transaction_id", transactionID), zap.Error(err))
		return err
	}
	return requireRow(res)
}

func (r *pendingOrderRepository) Pending(ctx context.Context) ([]*reconcile.Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM pending_orders WHERE resolved_at IS NULL ORDER BY enqueued_at`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		r.logger.Error("Failed to list pending orders", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var entries []*reconcile.Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanEntry(row scanner) (*reconcile.Entry, error) {
	var (
		transactionID string
		payload       []byte
		claimedAt     sql.NullTime
		entry         reconcile.Entry
	)

	err := row.Scan(
		&transactionID,
		&payload,
		&entry.Attempts,
		&entry.LastError,
		&entry.EnqueuedAt,
		&entry.NextAttemptAt,
		&claimedAt,
	)
	if err != nil {
		return nil, err
	}

	var order domain.Order
	if err := json.Unmarshal(payload, &order); err != nil {
		return nil, fmt.Errorf("failed to unmarshal pending order %s: %w", transactionID, err)
	}
	entry.Order = &order
	if claimedAt.Valid {
		at := claimedAt.Time
		entry.ClaimedAt = &at
	}
	return &entry, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return reconcile.ErrNotQueued
	}
	return nil
}

func errorText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
