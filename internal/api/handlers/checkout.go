package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/grcspl/storefront/internal/checkout"
	"github.com/grcspl/storefront/internal/domain"
	"github.com/grcspl/storefront/internal/payment"
	"github.com/grcspl/storefront/internal/session"
)

// openTimeout bounds how long POST .../online waits for the payment to open
const openTimeout = 10 * time.Second

// PaymentBridge connects the browser widget to a pending payment
type PaymentBridge interface {
	Opened(ctx context.Context, reference string) (payment.WidgetOptions, error)
	Complete(reference, paymentID string) error
	Fail(reference, reason string) error
}

// CheckoutOptions holds the timeouts of the checkout endpoints
type CheckoutOptions struct {
	// PaymentWait is how long an opened payment waits for the browser
	PaymentWait time.Duration
	// OrderTimeout bounds the wait for a submission after a callback
	OrderTimeout time.Duration
}

type PaymentCallbackRequest struct {
	PaymentID string `json:"payment_id" binding:"required"`
}

type PaymentFailureRequest struct {
	Reason string `json:"reason"`
}

// OrderItemResponse represents a line of a placed order
type OrderItemResponse struct {
	ProductCode string `json:"product_code,omitempty"`
	ProductName string `json:"product_name"`
	Category    string `json:"category,omitempty"`
	Price       string `json:"price"`
	Quantity    int    `json:"quantity"`
	Subtotal    string `json:"subtotal"`
}

// ConfirmationResponse is the success page
type ConfirmationResponse struct {
	OrderID           string                    `json:"order_id"`
	InvoiceID         string                    `json:"invoice_id"`
	RecordID          string                    `json:"record_id,omitempty"`
	PaymentMethod     domain.PaymentMethod      `json:"payment_method"`
	PaymentStatus     domain.PaymentStatus      `json:"payment_status"`
	TransactionID     string                    `json:"transaction_id,omitempty"`
	Customer          domain.CustomerInfo       `json:"customer"`
	Items             []OrderItemResponse       `json:"items"`
	Subtotal          string                    `json:"subtotal"`
	ShippingCharges   string                    `json:"shipping_charges"`
	TotalAmount       string                    `json:"total_amount"`
	EstimatedDelivery string                    `json:"estimated_delivery"`
	ConfirmedAt       string                    `json:"confirmed_at"`
	Notification      domain.NotificationStatus `json:"notification"`
}

// CheckoutResponse represents the checkout state of a cart
type CheckoutResponse struct {
	State            domain.CheckoutState   `json:"state"`
	PaymentMethod    domain.PaymentMethod   `json:"payment_method,omitempty"`
	Attempt          uint64                 `json:"attempt"`
	InFlight         bool                   `json:"in_flight"`
	PendingInvoiceID string                 `json:"pending_invoice_id,omitempty"`
	Confirmation     *ConfirmationResponse  `json:"confirmation,omitempty"`
	Error            *errorResponse         `json:"error,omitempty"`
	Widget           *payment.WidgetOptions `json:"widget,omitempty"`
}

func newConfirmationResponse(conf *checkout.Confirmation) *ConfirmationResponse {
	o := conf.Order
	resp := &ConfirmationResponse{
		OrderID:           o.OrderID,
		InvoiceID:         o.InvoiceID,
		PaymentMethod:     o.PaymentMethod,
		PaymentStatus:     o.PaymentStatus,
		TransactionID:     o.TransactionID,
		Customer:          o.Customer,
		Items:             make([]OrderItemResponse, 0, len(o.Items)),
		Subtotal:          o.Subtotal.StringFixed(2),
		ShippingCharges:   o.ShippingCharges.StringFixed(2),
		TotalAmount:       o.TotalAmount.StringFixed(2),
		EstimatedDelivery: o.EstimatedDelivery.Format(time.RFC3339),
		ConfirmedAt:       conf.ConfirmedAt.Format(time.RFC3339),
		Notification:      conf.Notification,
	}
	if conf.Record != nil {
		resp.RecordID = conf.Record.ID
	}
	for _, it := range o.Items {
		resp.Items = append(resp.Items, OrderItemResponse{
			ProductCode: it.ProductCode,
			ProductName: it.ProductName,
			Category:    it.Category,
			Price:       it.Price.StringFixed(2),
			Quantity:    it.Quantity,
			Subtotal:    it.Subtotal.StringFixed(2),
		})
	}
	return resp
}

func newCheckoutResponse(st checkout.Status) CheckoutResponse {
	resp := CheckoutResponse{
		State:         st.State,
		PaymentMethod: st.PaymentMethod,
		Attempt:       st.Attempt,
		InFlight:      st.InFlight,
	}
	if st.PendingOrder != nil {
		resp.PendingInvoiceID = st.PendingOrder.InvoiceID
	}
	if st.Confirmation != nil {
		resp.Confirmation = newConfirmationResponse(st.Confirmation)
	}
	if st.LastError != nil {
		_, body := mapError(st.LastError)
		resp.Error = &body
	}
	return resp
}

// bindCustomer stores a customer form sent with a checkout request
func bindCustomer(c *gin.Context, s *session.Session) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	var req domain.CustomerInfo
	if err := c.ShouldBindJSON(&req); err != nil {
		bindingError(c, err)
		return false
	}
	s.SetCustomer(req)
	return true
}

// HandleGetCheckout handles GET /v1/carts/:id/checkout
func HandleGetCheckout(sessions *session.Registry, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, ok := loadSession(c, sessions, logger)
		if !ok {
			return
		}
		c.JSON(http.StatusOK, newCheckoutResponse(s.Checkout().Status()))
	}
}

// HandlePlaceCOD handles POST /v1/carts/:id/checkout/cod
func HandlePlaceCOD(sessions *session.Registry, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, ok := loadSession(c, sessions, logger)
		if !ok || !bindCustomer(c, s) {
			return
		}

		// A dropped connection must not leave an order recorded upstream but unconfirmed here
		ctx := context.WithoutCancel(c.Request.Context())
		coord := s.StartCheckout()
		if _, err := coord.PlaceCashOnDelivery(ctx, s.Customer()); err != nil {
			writeError(c, err, logger)
			return
		}
		c.JSON(http.StatusCreated, newCheckoutResponse(coord.Status()))
	}
}

// HandleStartOnlinePayment handles POST /v1/carts/:id/checkout/online.
// It opens the payment and returns the widget options; the outcome arrives on the callback endpoints.
func HandleStartOnlinePayment(sessions *session.Registry, bridge PaymentBridge, opts CheckoutOptions, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if bridge == nil {
			writeError(c, checkout.ErrOnlinePaymentUnavailable, logger)
			return
		}
		s, ok := loadSession(c, sessions, logger)
		if !ok || !bindCustomer(c, s) {
			return
		}

		coord := s.StartCheckout()
		// Opened would hand back the options of the payment already open
		if coord.Status().InFlight {
			writeError(c, checkout.ErrCheckoutInProgress, logger)
			return
		}
		customer := s.Customer()

		payCtx, cancelPay := context.WithTimeout(context.WithoutCancel(c.Request.Context()), opts.PaymentWait)
		finished := make(chan error, 1)
		go func() {
			defer cancelPay()
			_, err := coord.PayOnline(payCtx, customer)
			finished <- err
		}()

		openCtx, cancelOpen := context.WithTimeout(c.Request.Context(), openTimeout)
		defer cancelOpen()
		opened := make(chan payment.WidgetOptions, 1)
		go func() {
			if widget, err := bridge.Opened(openCtx, s.ID); err == nil {
				opened <- widget
			}
		}()

		select {
		case widget := <-opened:
			resp := newCheckoutResponse(coord.Status())
			resp.Widget = &widget
			c.JSON(http.StatusAccepted, resp)
		case err := <-finished:
			// The attempt ended before a payment opened: refused or invalid
			if err != nil {
				writeError(c, err, logger)
				return
			}
			c.JSON(http.StatusOK, newCheckoutResponse(coord.Status()))
		case <-openCtx.Done():
			logger.Warn("Payment did not open in time", zap.String("cart_id", s.ID))
			if err := coord.Abandon(); err != nil {
				logger.Warn("Failed to abandon checkout", zap.String("cart_id", s.ID), zap.Error(err))
			}
			c.JSON(http.StatusGatewayTimeout, errorResponse{Error: retryPrompt, Code: CodeUpstreamDown})
		}
	}
}

// HandlePaymentCallback handles POST /v1/carts/:id/checkout/online/callback
func HandlePaymentCallback(sessions *session.Registry, bridge PaymentBridge, opts CheckoutOptions, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if bridge == nil {
			writeError(c, checkout.ErrOnlinePaymentUnavailable, logger)
			return
		}
		var req PaymentCallbackRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			bindingError(c, err)
			return
		}
		s, ok := loadSession(c, sessions, logger)
		if !ok {
			return
		}
		if err := bridge.Complete(s.ID, req.PaymentID); err != nil {
			writeError(c, err, logger)
			return
		}
		respondAfterOutcome(c, s, opts, logger)
	}
}

// HandlePaymentFailure handles POST /v1/carts/:id/checkout/online/failure
func HandlePaymentFailure(sessions *session.Registry, bridge PaymentBridge, opts CheckoutOptions, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if bridge == nil {
			writeError(c, checkout.ErrOnlinePaymentUnavailable, logger)
			return
		}
		var req PaymentFailureRequest
		if c.Request.ContentLength != 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				bindingError(c, err)
				return
			}
		}
		s, ok := loadSession(c, sessions, logger)
		if !ok {
			return
		}
		if err := bridge.Fail(s.ID, req.Reason); err != nil {
			writeError(c, err, logger)
			return
		}
		respondAfterOutcome(c, s, opts, logger)
	}
}

// respondAfterOutcome waits for the attempt the browser just resolved and reports how it ended
func respondAfterOutcome(c *gin.Context, s *session.Session, opts CheckoutOptions, logger *zap.Logger) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), opts.OrderTimeout+5*time.Second)
	defer cancel()

	st, err := s.Checkout().Wait(ctx)
	if err != nil {
		// Still submitting; the browser polls GET .../checkout
		c.JSON(http.StatusAccepted, newCheckoutResponse(st))
		return
	}
	resp := newCheckoutResponse(st)
	if st.State == domain.CheckoutStateConfirmed || st.LastError == nil {
		c.JSON(http.StatusOK, resp)
		return
	}
	status, _ := mapError(st.LastError)
	c.JSON(status, resp)
}

// HandleRetrySubmission handles POST /v1/carts/:id/checkout/retry
func HandleRetrySubmission(sessions *session.Registry, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, ok := loadSession(c, sessions, logger)
		if !ok {
			return
		}
		coord := s.Checkout()
		if _, err := coord.RetrySubmission(context.WithoutCancel(c.Request.Context())); err != nil {
			writeError(c, err, logger)
			return
		}
		c.JSON(http.StatusCreated, newCheckoutResponse(coord.Status()))
	}
}

// HandleAbandonCheckout handles DELETE /v1/carts/:id/checkout
func HandleAbandonCheckout(sessions *session.Registry, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, ok := loadSession(c, sessions, logger)
		if !ok {
			return
		}
		coord := s.Checkout()
		if err := coord.Abandon(); err != nil {
			writeError(c, err, logger)
			return
		}
		c.JSON(http.StatusOK, newCheckoutResponse(coord.Status()))
	}
}
