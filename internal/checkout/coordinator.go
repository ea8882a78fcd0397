package checkout

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/grcspl/storefront/internal/domain"
	"github.com/grcspl/storefront/internal/order"
	"github.com/grcspl/storefront/internal/payment"
	"github.com/grcspl/storefront/internal/pricing"
	"github.com/grcspl/storefront/internal/reconcile"
	"github.com/grcspl/storefront/pkg/errors"
)

var (
	// ErrCheckoutInProgress is returned while another attempt for the same cart is running
	ErrCheckoutInProgress = errors.New("checkout already in progress")
	// ErrPaidOrderPending blocks anything but a retry while a paid order is unrecorded
	ErrPaidOrderPending = errors.New("a paid order is waiting to be recorded, retry submission instead")
	// ErrNothingToRetry is returned by RetrySubmission when no paid order is held
	ErrNothingToRetry = errors.New("no order is waiting to be submitted")
	// ErrOnlinePaymentUnavailable is returned when no gateway is configured
	ErrOnlinePaymentUnavailable = errors.New("online payment is not available")
	// ErrAttemptAbandoned is returned to an attempt that finished after Abandon
	ErrAttemptAbandoned = errors.New("checkout attempt was abandoned")
)

// CartSource is the cart a coordinator checks out
type CartSource interface {
	ID() string
	PricedQuote() ([]domain.PricedLine, pricing.Quote, uint64)
	ClearOrdered(ctx context.Context, ordered []domain.CartLine, version uint64) error
}

// OrderSubmitter records orders with the store API
type OrderSubmitter interface {
	CreateOrder(ctx context.Context, order *domain.Order) (*domain.OrderRecord, error)
}

// OrderNotifier sends the confirmation for a recorded order
type OrderNotifier interface {
	Notify(ctx context.Context, order *domain.Order) domain.NotificationStatus
}

// Confirmation is what the customer is shown once an order is recorded
type Confirmation struct {
	Order        *domain.Order
	Record       *domain.OrderRecord
	ConfirmedAt  time.Time
	Notification domain.NotificationStatus
}

// Status is a point-in-time view of a checkout
type Status struct {
	State         domain.CheckoutState
	PaymentMethod domain.PaymentMethod
	Attempt       uint64
	InFlight      bool
	Confirmation  *Confirmation
	PendingOrder  *domain.Order
	LastError     error
}

// Deps are the collaborators of a Coordinator. Gateway, Queue and Notifier may be nil.
type Deps struct {
	Cart         CartSource
	Builder      *order.Builder
	Submitter    OrderSubmitter
	Gateway      payment.Gateway
	Queue        reconcile.Queue
	Notifier     OrderNotifier
	OrderTimeout time.Duration
}

type attempt struct {
	seq    uint64
	method domain.PaymentMethod
	cancel context.CancelFunc
	done   chan struct{}
	// cart version the order was built from
	cartVersion uint64
}

// Coordinator drives one cart through checkout. At most one attempt runs at a time.
type Coordinator struct {
	cart         CartSource
	builder      *order.Builder
	submitter    OrderSubmitter
	gateway      payment.Gateway
	queue        reconcile.Queue
	notifier     OrderNotifier
	orderTimeout time.Duration
	now          func() time.Time
	logger       *zap.Logger
	tracer       trace.Tracer

	mu           sync.Mutex
	state        domain.CheckoutState
	method       domain.PaymentMethod
	seq          uint64
	current      *attempt
	pending      *domain.Order
	pendingCart  uint64
	confirmation *Confirmation
	lastErr      error
}

// NewCoordinator creates an idle coordinator for deps.Cart
func NewCoordinator(deps Deps, logger *zap.Logger) *Coordinator {
	timeout := deps.OrderTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	builder := deps.Builder
	if builder == nil {
		builder = order.NewBuilder()
	}
	return &Coordinator{
		cart:         deps.Cart,
		builder:      builder,
		submitter:    deps.Submitter,
		gateway:      deps.Gateway,
		queue:        deps.Queue,
		notifier:     deps.Notifier,
		orderTimeout: timeout,
		now:          time.Now,
		logger:       logger.With(zap.String("cart_id", deps.Cart.ID())),
		tracer:       otel.Tracer("github.com/grcspl/storefront/internal/checkout"),
		state:        domain.CheckoutStateIdle,
	}
}

// Status returns the current checkout state
func (c *Coordinator) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := Status{
		State:         c.state,
		PaymentMethod: c.method,
		Attempt:       c.seq,
		InFlight:      c.current != nil,
		PendingOrder:  c.pending,
		LastError:     c.lastErr,
	}
	if c.confirmation != nil {
		conf := *c.confirmation
		st.Confirmation = &conf
	}
	return st
}

// Wait blocks until the in-flight attempt, if any, has finished
func (c *Coordinator) Wait(ctx context.Context) (Status, error) {
	c.mu.Lock()
	cur := c.current
	c.mu.Unlock()

	if cur != nil {
		select {
		case <-cur.done:
		case <-ctx.Done():
			return c.Status(), ctx.Err()
		}
	}
	return c.Status(), nil
}

// PlaceCashOnDelivery records an unpaid order. A failed submission returns the checkout to idle.
func (c *Coordinator) PlaceCashOnDelivery(ctx context.Context, customer domain.CustomerInfo) (*Confirmation, error) {
	ctx, span := c.tracer.Start(ctx, "checkout.cash_on_delivery")
	defer span.End()

	att, prev, err := c.begin(domain.CheckoutStateSubmitting, domain.PaymentMethodCashOnDelivery)
	if err != nil {
		return nil, err
	}
	defer close(att.done)

	lines, quote, version := c.cart.PricedQuote()
	att.cartVersion = version
	o, err := c.builder.BuildCODOrder(customer, lines, quote)
	if err != nil {
		c.finish(att, prev, err)
		return nil, err
	}
	span.SetAttributes(attribute.String("invoice_id", o.InvoiceID))

	rec, err := c.submit(ctx, o)
	if err != nil {
		recordError(span, err)
		c.logger.Warn("Cash on delivery order not recorded", zap.String("invoice_id", o.InvoiceID), zap.Error(err))
		c.finish(att, domain.CheckoutStateIdle, err)
		return nil, err
	}

	return c.confirm(ctx, att, o, rec)
}

// PayOnline takes payment through the gateway, then records a paid order.
// If payment succeeds but recording fails, the order is queued for reconciliation,
// the cart is kept and *errors.ErrReconciliation is returned.
func (c *Coordinator) PayOnline(ctx context.Context, customer domain.CustomerInfo) (*Confirmation, error) {
	if c.gateway == nil {
		return nil, ErrOnlinePaymentUnavailable
	}

	ctx, span := c.tracer.Start(ctx, "checkout.online")
	defer span.End()

	att, prev, err := c.begin(domain.CheckoutStateAwaitingPayment, domain.PaymentMethodOnline)
	if err != nil {
		return nil, err
	}
	defer close(att.done)

	lines, quote, version := c.cart.PricedQuote()
	att.cartVersion = version
	if err := validateCheckout(customer, lines); err != nil {
		c.finish(att, prev, err)
		return nil, err
	}

	payCtx, cancel := context.WithCancel(ctx)
	c.mu.Lock()
	att.cancel = cancel
	if c.current != att {
		cancel()
	}
	c.mu.Unlock()

	txnID, err := c.gateway.Pay(payCtx, paymentRequest(c.cart.ID(), customer, quote))
	cancel()
	if err != nil {
		if !errors.Is(err, payment.ErrPaymentFailed) {
			err = fmt.Errorf("%w: %v", payment.ErrPaymentFailed, err)
		}
		recordError(span, err)
		c.logger.Warn("Online payment failed", zap.Error(err))
		c.finish(att, domain.CheckoutStateFailed, err)
		return nil, err
	}
	span.SetAttributes(attribute.String("transaction_id", txnID))

	// Money has been taken from here on; nothing may cancel the recording
	ctx = context.WithoutCancel(ctx)
	live := c.advance(att, domain.CheckoutStateSubmitting)

	o, err := c.builder.BuildOnlineOrder(customer, lines, quote, txnID)
	if err != nil {
		c.logger.Error("Paid order could not be built", zap.String("transaction_id", txnID), zap.Error(err))
		c.finish(att, domain.CheckoutStateFailed, err)
		return nil, err
	}
	span.SetAttributes(attribute.String("invoice_id", o.InvoiceID))

	rec, err := c.submit(ctx, o)
	if err != nil {
		recordError(span, err)
		return nil, c.holdForReconciliation(ctx, att, o, err, false)
	}

	if !live {
		c.logger.Warn("Paid order recorded after checkout was abandoned",
			zap.String("invoice_id", o.InvoiceID),
			zap.String("transaction_id", txnID),
		)
		return nil, ErrAttemptAbandoned
	}
	return c.confirm(ctx, att, o, rec)
}

// RetrySubmission re-submits the held paid order. The customer is not charged again.
func (c *Coordinator) RetrySubmission(ctx context.Context) (*Confirmation, error) {
	ctx, span := c.tracer.Start(ctx, "checkout.retry")
	defer span.End()

	c.mu.Lock()
	o, version := c.pending, c.pendingCart
	c.mu.Unlock()
	if o == nil {
		return nil, ErrNothingToRetry
	}
	span.SetAttributes(attribute.String("invoice_id", o.InvoiceID))

	att, prev, err := c.begin(domain.CheckoutStateSubmitting, domain.PaymentMethodOnline)
	if err != nil {
		return nil, err
	}
	defer close(att.done)
	att.cartVersion = version

	claimed := false
	if c.queue != nil {
		_, err := c.queue.Claim(ctx, o.TransactionID)
		switch {
		case err == nil:
			claimed = true
		case errors.Is(err, reconcile.ErrResolved):
			c.logger.Info("Queued order was already recorded", zap.String("invoice_id", o.InvoiceID))
			return c.confirm(ctx, att, o, nil)
		case errors.Is(err, reconcile.ErrAlreadyClaimed):
			c.finish(att, prev, ErrCheckoutInProgress)
			return nil, ErrCheckoutInProgress
		case errors.Is(err, reconcile.ErrNotQueued):
		default:
			c.logger.Warn("Could not claim queued order, submitting anyway", zap.Error(err))
		}
	}

	rec, err := c.submit(ctx, o)
	if err != nil {
		recordError(span, err)
		return nil, c.holdForReconciliation(ctx, att, o, err, claimed)
	}
	if claimed {
		if err := c.queue.Resolve(context.WithoutCancel(ctx), o.TransactionID); err != nil {
			c.logger.Error("Order recorded but queue entry not resolved", zap.String("invoice_id", o.InvoiceID), zap.Error(err))
		}
	}
	return c.confirm(ctx, att, o, rec)
}

// Abandon resets the checkout to idle. An open payment is cancelled.
// A running submission and a held paid order cannot be abandoned.
func (c *Coordinator) Abandon() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.pending != nil {
		return ErrPaidOrderPending
	}
	switch c.state {
	case domain.CheckoutStateIdle:
		return nil
	case domain.CheckoutStateSubmitting:
		return ErrCheckoutInProgress
	}
	if !c.state.CanTransitionTo(domain.CheckoutStateIdle) {
		return &errors.ErrInvalidStateTransition{From: c.state.String(), To: domain.CheckoutStateIdle.String()}
	}

	if c.current != nil {
		if c.current.cancel != nil {
			c.current.cancel()
		}
		c.current = nil
	}
	c.seq++
	c.logger.Info("Checkout abandoned", zap.String("from", c.state.String()))
	c.state = domain.CheckoutStateIdle
	c.method = ""
	c.lastErr = nil
	return nil
}

func (c *Coordinator) begin(to domain.CheckoutState, method domain.PaymentMethod) (*attempt, domain.CheckoutState, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current != nil {
		return nil, "", ErrCheckoutInProgress
	}
	// Only a retry may move a held paid order forward
	if c.pending != nil && !(to == domain.CheckoutStateSubmitting && method == domain.PaymentMethodOnline) {
		return nil, "", ErrPaidOrderPending
	}
	if !c.state.CanTransitionTo(to) {
		return nil, "", &errors.ErrInvalidStateTransition{From: c.state.String(), To: to.String()}
	}

	c.seq++
	att := &attempt{seq: c.seq, method: method, done: make(chan struct{})}
	prev := c.state
	c.current = att
	c.state = to
	c.method = method
	c.lastErr = nil

	c.logger.Debug("Checkout attempt started",
		zap.Uint64("attempt", att.seq),
		zap.String("from", prev.String()),
		zap.String("to", to.String()),
	)
	return att, prev, nil
}

// advance moves a live attempt to the next state and reports whether it is still live
func (c *Coordinator) advance(att *attempt, to domain.CheckoutState) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current != att {
		return false
	}
	if c.state.CanTransitionTo(to) {
		c.state = to
	}
	return true
}

// finish ends the attempt in state to. Results of an abandoned attempt are dropped.
func (c *Coordinator) finish(att *attempt, to domain.CheckoutState, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current != att {
		c.logger.Debug("Discarding result of abandoned checkout attempt", zap.Uint64("attempt", att.seq), zap.Error(err))
		return
	}
	c.current = nil
	if c.state != to && !c.state.CanTransitionTo(to) {
		c.logger.Error("Invalid checkout transition", zap.String("from", c.state.String()), zap.String("to", to.String()))
	}
	c.state = to
	c.lastErr = err
}

func (c *Coordinator) submit(ctx context.Context, o *domain.Order) (*domain.OrderRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, c.orderTimeout)
	defer cancel()

	rec, err := c.submitter.CreateOrder(ctx, o)
	if err != nil {
		if ctx.Err() != nil && !errors.IsTransport(err) {
			err = &errors.ErrTransport{Op: "create order", Err: err}
		}
		return nil, err
	}
	return rec, nil
}

// holdForReconciliation keeps the paid order and the cart so nothing is lost
func (c *Coordinator) holdForReconciliation(ctx context.Context, att *attempt, o *domain.Order, cause error, claimed bool) error {
	log := c.logger.With(zap.String("invoice_id", o.InvoiceID), zap.String("transaction_id", o.TransactionID))
	log.Error("Payment taken but order not recorded", zap.Error(cause))

	if c.queue != nil {
		var qerr error
		if claimed {
			qerr = c.queue.Release(ctx, o.TransactionID, cause, c.now())
		} else {
			qerr = c.queue.Enqueue(ctx, o, cause)
		}
		if qerr != nil {
			log.Error("Failed to queue paid order for reconciliation", zap.Error(qerr))
		}
	}

	rerr := &errors.ErrReconciliation{TransactionID: o.TransactionID, InvoiceID: o.InvoiceID, Err: cause}

	c.mu.Lock()
	if c.current == att {
		c.pending = o
		c.pendingCart = att.cartVersion
	}
	c.mu.Unlock()
	c.finish(att, domain.CheckoutStateFailed, rerr)
	return rerr
}

func (c *Coordinator) confirm(ctx context.Context, att *attempt, o *domain.Order, rec *domain.OrderRecord) (*Confirmation, error) {
	conf := &Confirmation{Order: o, Record: rec, ConfirmedAt: c.now(), Notification: domain.NotificationPending}

	c.mu.Lock()
	if c.current != att {
		c.mu.Unlock()
		c.logger.Warn("Order recorded for an abandoned checkout attempt", zap.String("invoice_id", o.InvoiceID))
		return nil, ErrAttemptAbandoned
	}
	c.current = nil
	c.state = domain.CheckoutStateConfirmed
	c.pending = nil
	c.lastErr = nil
	c.confirmation = conf
	c.mu.Unlock()

	c.logger.Info("Order confirmed",
		zap.String("invoice_id", o.InvoiceID),
		zap.String("order_id", o.OrderID),
		zap.String("payment_method", string(o.PaymentMethod)),
		zap.String("total", o.TotalAmount.String()),
	)

	ctx = context.WithoutCancel(ctx)
	if err := c.cart.ClearOrdered(ctx, orderedLines(o), att.cartVersion); err != nil {
		c.logger.Error("Order confirmed but cart not cleared", zap.Error(err))
	}

	status := domain.NotificationSkipped
	if c.notifier != nil {
		status = c.notifier.Notify(ctx, o)
	}
	c.mu.Lock()
	conf.Notification = status
	c.mu.Unlock()

	return conf, nil
}

func orderedLines(o *domain.Order) []domain.CartLine {
	lines := make([]domain.CartLine, 0, len(o.Items))
	for _, item := range o.Items {
		lines = append(lines, domain.CartLine{ProductCode: item.ProductCode, Quantity: item.Quantity})
	}
	return lines
}

func validateCheckout(customer domain.CustomerInfo, lines []domain.PricedLine) error {
	if err := customer.Validate(); err != nil {
		return err
	}
	if len(lines) == 0 {
		return &errors.ErrValidation{Message: "cart is empty"}
	}
	return nil
}

func paymentRequest(reference string, customer domain.CustomerInfo, quote pricing.Quote) payment.Request {
	return payment.Request{
		Reference: reference,
		Amount:    pricing.ToMinorUnits(quote.Total),
		Currency:  pricing.Currency,
		Customer: payment.Prefill{
			Name:    customer.Name,
			Email:   customer.Email,
			Contact: customer.Phone,
		},
		Address: fmt.Sprintf("Address: %s, City: %s, State: %s, Pincode: %s",
			customer.Address, customer.City, customer.City, customer.Pincode),
	}
}

func recordError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
