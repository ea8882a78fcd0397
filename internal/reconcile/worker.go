package reconcile

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/grcspl/storefront/internal/config"
	"github.com/grcspl/storefront/internal/domain"
)

// Submitter records an order with the store API
type Submitter interface {
	CreateOrder(ctx context.Context, order *domain.Order) (*domain.OrderRecord, error)
}

// Worker re-submits queued orders until the store API accepts them
type Worker struct {
	queue        Queue
	submitter    Submitter
	interval     time.Duration
	orderTimeout time.Duration
	maxAttempts  int
	batchSize    int
	now          func() time.Time
	logger       *zap.Logger
}

// NewWorker creates a worker polling queue every cfg.Interval
func NewWorker(queue Queue, submitter Submitter, cfg config.ReconcileConfig, orderTimeout time.Duration, logger *zap.Logger) *Worker {
	interval := cfg.Interval
	if interval <= 0 {
		interval = time.Minute
	}
	return &Worker{
		queue:        queue,
		submitter:    submitter,
		interval:     interval,
		orderTimeout: orderTimeout,
		maxAttempts:  cfg.MaxAttempts,
		batchSize:    20,
		now:          time.Now,
		logger:       logger.With(zap.String("component", "reconcile")),
	}
}

// Run polls until ctx is cancelled
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info("Reconciliation worker started", zap.Duration("interval", w.interval))

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		if _, err := w.RunOnce(ctx); err != nil && ctx.Err() == nil {
			w.logger.Error("Reconciliation pass failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			w.logger.Info("Reconciliation worker stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// RunOnce submits every due entry once and returns how many were recorded
func (w *Worker) RunOnce(ctx context.Context) (int, error) {
	entries, err := w.queue.ClaimDue(ctx, w.now(), w.batchSize)
	if err != nil {
		return 0, err
	}

	resolved := 0
	for _, e := range entries {
		if ctx.Err() != nil {
			// Hand back what we did not get to
			_ = w.queue.Release(context.WithoutCancel(ctx), e.Order.TransactionID, ctx.Err(), w.now())
			continue
		}
		if w.submit(ctx, e) {
			resolved++
		}
	}
	return resolved, nil
}

func (w *Worker) submit(ctx context.Context, e *Entry) bool {
	log := w.logger.With(
		zap.String("invoice_id", e.Order.InvoiceID),
		zap.String("transaction_id", e.Order.TransactionID),
		zap.Int("attempts", e.Attempts),
	)

	submitCtx, cancel := context.WithTimeout(ctx, w.orderTimeout)
	_, err := w.submitter.CreateOrder(submitCtx, e.Order)
	cancel()

	if err == nil {
		if rerr := w.queue.Resolve(ctx, e.Order.TransactionID); rerr != nil {
			log.Error("Order recorded but queue entry not resolved", zap.Error(rerr))
			return true
		}
		log.Info("Queued order recorded")
		return true
	}

	retryAt := w.now().Add(Backoff(w.interval, e.Attempts+1))
	if rerr := w.queue.Release(context.WithoutCancel(ctx), e.Order.TransactionID, err, retryAt); rerr != nil {
		log.Error("Failed to release queue entry", zap.Error(rerr))
	}

	if w.maxAttempts > 0 && e.Attempts+1 >= w.maxAttempts {
		log.Error("Paid order still unrecorded, needs manual reconciliation", zap.Error(err))
	} else {
		log.Warn("Queued order submission failed", zap.Error(err), zap.Time("retry_at", retryAt))
	}
	return false
}
