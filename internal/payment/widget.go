package payment

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/grcspl/storefront/internal/config"
	"github.com/grcspl/storefront/pkg/errors"
)

var (
	// ErrPaymentPending is returned when a payment is already open for the reference
	ErrPaymentPending = errors.New("payment already pending")
	// ErrPaymentFailed wraps every gateway-reported failure and customer dismissal
	ErrPaymentFailed = errors.New("payment failed")
	// ErrUnknownPayment is returned when a callback names no open payment
	ErrUnknownPayment = errors.New("no pending payment for reference")
)

// Prefill is the customer data shown in the widget form
type Prefill struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Contact string `json:"contact"`
}

// Request describes one payment. Amount is in minor units.
type Request struct {
	Reference   string
	Amount      int64
	Currency    string
	Description string
	Customer    Prefill
	Address     string
}

// Gateway takes a payment and returns its transaction id once the outcome is known
type Gateway interface {
	Pay(ctx context.Context, req Request) (string, error)
}

// Capturer settles an authorized payment
type Capturer interface {
	Capture(ctx context.Context, paymentID string, amount int64, currency string) error
}

// Theme is the widget colour scheme
type Theme struct {
	Color string `json:"color"`
}

// WidgetOptions is what the browser passes to the Razorpay checkout script
type WidgetOptions struct {
	Key         string            `json:"key"`
	Amount      int64             `json:"amount"`
	Currency    string            `json:"currency"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Prefill     Prefill           `json:"prefill"`
	Notes       map[string]string `json:"notes"`
	Theme       Theme             `json:"theme"`
}

type outcome struct {
	paymentID string
	reason    string
}

type slot struct {
	ready   chan struct{}
	active  bool
	options WidgetOptions
	request Request
	result  chan outcome
}

// Widget is a Gateway whose outcome arrives from the browser via Complete or Fail
type Widget struct {
	cfg      config.PaymentConfig
	capturer Capturer
	logger   *zap.Logger

	mu    sync.Mutex
	slots map[string]*slot
}

// NewWidget creates a widget gateway. capturer may be nil.
func NewWidget(cfg config.PaymentConfig, capturer Capturer, logger *zap.Logger) *Widget {
	return &Widget{
		cfg:      cfg,
		capturer: capturer,
		logger:   logger,
		slots:    make(map[string]*slot),
	}
}

// Pay opens the payment and blocks until the browser reports back or ctx ends
func (w *Widget) Pay(ctx context.Context, req Request) (string, error) {
	if strings.TrimSpace(req.Reference) == "" {
		return "", &errors.ErrValidation{Message: "payment reference is required"}
	}
	if req.Amount <= 0 {
		return "", &errors.ErrValidation{Message: "payment amount must be positive"}
	}

	s, err := w.open(req)
	if err != nil {
		return "", err
	}
	defer w.close(req.Reference, s)

	w.logger.Info("Payment opened",
		zap.String("reference", req.Reference),
		zap.Int64("amount", req.Amount),
	)

	select {
	case <-ctx.Done():
		return "", fmt.Errorf("%w: %v", ErrPaymentFailed, ctx.Err())
	case out := <-s.result:
		if out.paymentID == "" {
			w.logger.Warn("Payment failed",
				zap.String("reference", req.Reference),
				zap.String("reason", out.reason),
			)
			return "", fmt.Errorf("%w: %s", ErrPaymentFailed, out.reason)
		}
		w.capture(ctx, req, out.paymentID)
		return out.paymentID, nil
	}
}

// Opened waits until a payment is open for reference and returns its widget options
func (w *Widget) Opened(ctx context.Context, reference string) (WidgetOptions, error) {
	w.mu.Lock()
	s, ok := w.slots[reference]
	if !ok {
		s = &slot{ready: make(chan struct{})}
		w.slots[reference] = s
	}
	w.mu.Unlock()

	select {
	case <-s.ready:
		return s.options, nil
	case <-ctx.Done():
		w.mu.Lock()
		if !s.active && w.slots[reference] == s {
			delete(w.slots, reference)
		}
		w.mu.Unlock()
		return WidgetOptions{}, ctx.Err()
	}
}

// Complete delivers a successful payment from the widget callback
func (w *Widget) Complete(reference, paymentID string) error {
	if strings.TrimSpace(paymentID) == "" {
		return &errors.ErrValidation{
			Message: "payment id is required",
			Fields:  map[string]string{"payment_id": "payment id is required"},
		}
	}
	return w.deliver(reference, outcome{paymentID: paymentID})
}

// Fail delivers a failed or dismissed payment
func (w *Widget) Fail(reference, reason string) error {
	if reason == "" {
		reason = "payment cancelled"
	}
	return w.deliver(reference, outcome{reason: reason})
}

// Pending reports whether a payment is open for reference
func (w *Widget) Pending(reference string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	s, ok := w.slots[reference]
	return ok && s.active
}

func (w *Widget) open(req Request) (*slot, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	s, ok := w.slots[req.Reference]
	if ok && s.active {
		return nil, ErrPaymentPending
	}
	if !ok {
		s = &slot{ready: make(chan struct{})}
		w.slots[req.Reference] = s
	}

	s.active = true
	s.request = req
	s.options = w.options(req)
	s.result = make(chan outcome, 1)
	close(s.ready)
	return s, nil
}

func (w *Widget) close(reference string, s *slot) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.slots[reference] == s {
		delete(w.slots, reference)
	}
}

func (w *Widget) deliver(reference string, out outcome) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	s, ok := w.slots[reference]
	if !ok || !s.active {
		return ErrUnknownPayment
	}
	select {
	case s.result <- out:
		return nil
	default:
		return ErrPaymentPending
	}
}

func (w *Widget) options(req Request) WidgetOptions {
	currency := req.Currency
	if currency == "" {
		currency = "INR"
	}
	description := req.Description
	if description == "" {
		description = w.cfg.Description
	}
	return WidgetOptions{
		Key:         w.cfg.KeyID,
		Amount:      req.Amount,
		Currency:    currency,
		Name:        w.cfg.MerchantName,
		Description: description,
		Prefill:     req.Customer,
		Notes:       map[string]string{"address": req.Address},
		Theme:       Theme{Color: w.cfg.ThemeColor},
	}
}

// capture failures never undo a payment the customer has already made
func (w *Widget) capture(ctx context.Context, req Request, paymentID string) {
	if w.capturer == nil {
		return
	}
	currency := req.Currency
	if currency == "" {
		currency = "INR"
	}
	if err := w.capturer.Capture(context.WithoutCancel(ctx), paymentID, req.Amount, currency); err != nil {
		w.logger.Error("Failed to capture payment",
			zap.String("reference", req.Reference),
			zap.String("payment_id", paymentID),
			zap.Error(err),
		)
		return
	}
	w.logger.Info("Payment captured", zap.String("payment_id", paymentID))
}
