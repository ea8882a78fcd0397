package reconcile

import (
	"context"
	"time"

	"github.com/grcspl/storefront/internal/domain"
	"github.com/grcspl/storefront/pkg/errors"
)

var (
	// ErrNotQueued means nothing is held for the transaction id
	ErrNotQueued = errors.New("order is not queued for reconciliation")
	// ErrAlreadyClaimed means another submitter holds the entry right now
	ErrAlreadyClaimed = errors.New("order submission already in progress")
	// ErrResolved means the order has since been recorded
	ErrResolved = errors.New("order already recorded")
)

// ClaimLease is how long a claim blocks other submitters before it is considered abandoned
const ClaimLease = 5 * time.Minute

// Entry is a paid order that the store API has not accepted yet
type Entry struct {
	Order         *domain.Order
	Attempts      int
	LastError     string
	EnqueuedAt    time.Time
	NextAttemptAt time.Time
	ClaimedAt     *time.Time
}

// Queue holds paid-but-unrecorded orders keyed by the gateway transaction id, which is
// unique per payment. Invoice ids are not: two paid orders may share one.
// Claim must be atomic: a claimed entry is never handed to a second submitter until released.
type Queue interface {
	// Enqueue is idempotent per transaction id. Orders without one are rejected.
	Enqueue(ctx context.Context, order *domain.Order, cause error) error
	Claim(ctx context.Context, transactionID string) (*Entry, error)
	ClaimDue(ctx context.Context, now time.Time, limit int) ([]*Entry, error)
	Resolve(ctx context.Context, transactionID string) error
	Release(ctx context.Context, transactionID string, cause error, retryAt time.Time) error
	Pending(ctx context.Context) ([]*Entry, error)
}

// ValidateOrder checks an order can be queued
func ValidateOrder(order *domain.Order) error {
	if order == nil || order.TransactionID == "" {
		return &errors.ErrValidation{Message: "only paid orders with a transaction id can be queued"}
	}
	return nil
}

// Backoff doubles the base interval per attempt, capped at 64 intervals
func Backoff(base time.Duration, attempts int) time.Duration {
	if attempts < 0 {
		attempts = 0
	}
	if attempts > 6 {
		attempts = 6
	}
	return base * time.Duration(1<<attempts)
}

func causeText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
