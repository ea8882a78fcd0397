package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/grcspl/storefront/internal/cart"
	"github.com/grcspl/storefront/internal/checkout"
	"github.com/grcspl/storefront/internal/payment"
	"github.com/grcspl/storefront/internal/service"
	"github.com/grcspl/storefront/pkg/errors"
)

// Error codes let the browser pick the right message without parsing text
const (
	CodeValidation         = "validation_failed"
	CodeNotFound           = "not_found"
	CodeConflict           = "conflict"
	CodeUpstreamDown       = "upstream_unavailable"
	CodeUpstreamRejected   = "upstream_rejected"
	CodePaymentFailed      = "payment_failed"
	CodeReconciliation     = "payment_recorded_order_failed"
	CodePaymentUnavailable = "payment_unavailable"
	CodeOTPRejected        = "otp_rejected"
	CodeInternal           = "internal_error"
)

const retryPrompt = "Something went wrong. Please try again later."

type errorResponse struct {
	Error         string            `json:"error"`
	Code          string            `json:"code"`
	Fields        map[string]string `json:"fields,omitempty"`
	TransactionID string            `json:"transaction_id,omitempty"`
	InvoiceID     string            `json:"invoice_id,omitempty"`
}

// writeError maps an error to its HTTP status and body
func writeError(c *gin.Context, err error, logger *zap.Logger) {
	status, body := mapError(err)
	if status >= http.StatusInternalServerError {
		c.Error(err)
	}
	if status == http.StatusInternalServerError {
		logger.Error("Unhandled error", zap.String("path", c.Request.URL.Path), zap.Error(err))
	}
	c.JSON(status, body)
}

func mapError(err error) (int, errorResponse) {
	var (
		validation *errors.ErrValidation
		notFound   *errors.ErrNotFound
		transition *errors.ErrInvalidStateTransition
		gap        *errors.ErrReconciliation
		rejected   *errors.ErrRejected
	)

	switch {
	case errors.As(err, &validation):
		return http.StatusUnprocessableEntity, errorResponse{Error: validation.Message, Code: CodeValidation, Fields: validation.Fields}
	case errors.As(err, &notFound):
		return http.StatusNotFound, errorResponse{Error: notFound.Error(), Code: CodeNotFound}
	case errors.Is(err, payment.ErrUnknownPayment):
		return http.StatusNotFound, errorResponse{Error: err.Error(), Code: CodeNotFound}
	case errors.As(err, &transition),
		errors.Is(err, checkout.ErrCheckoutInProgress),
		errors.Is(err, checkout.ErrPaidOrderPending),
		errors.Is(err, checkout.ErrNothingToRetry),
		errors.Is(err, checkout.ErrAttemptAbandoned),
		errors.Is(err, payment.ErrPaymentPending),
		errors.Is(err, cart.ErrOutOfStock):
		return http.StatusConflict, errorResponse{Error: err.Error(), Code: CodeConflict}
	// Checked before transport: a reconciliation gap usually wraps a transport error
	case errors.As(err, &gap):
		return http.StatusBadGateway, errorResponse{
			Error:         "Payment was successful but your order could not be recorded. Please retry, or contact support with your payment id.",
			Code:          CodeReconciliation,
			TransactionID: gap.TransactionID,
			InvoiceID:     gap.InvoiceID,
		}
	case errors.Is(err, payment.ErrPaymentFailed):
		return http.StatusPaymentRequired, errorResponse{Error: err.Error(), Code: CodePaymentFailed}
	case errors.Is(err, checkout.ErrOnlinePaymentUnavailable):
		return http.StatusServiceUnavailable, errorResponse{Error: err.Error(), Code: CodePaymentUnavailable}
	case errors.Is(err, service.ErrOTPRejected):
		return http.StatusUnprocessableEntity, errorResponse{Error: "Incorrect OTP. Please try again.", Code: CodeOTPRejected}
	case errors.As(err, &rejected):
		return http.StatusBadGateway, errorResponse{Error: rejected.Message, Code: CodeUpstreamRejected}
	case errors.IsTransport(err), errors.Is(err, service.ErrOTPNotSent):
		return http.StatusBadGateway, errorResponse{Error: retryPrompt, Code: CodeUpstreamDown}
	default:
		return http.StatusInternalServerError, errorResponse{Error: "internal error", Code: CodeInternal}
	}
}
