package checkout

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/grcspl/storefront/internal/domain"
)

func sampleOrder() *domain.Order {
	return &domain.Order{
		OrderID:       "12345678",
		InvoiceID:     "INV-20260307-042",
		Customer:      validCustomer(),
		PaymentMethod: domain.PaymentMethodOnline,
		PaymentStatus: domain.PaymentStatusPaid,
		TransactionID: "pay_abc",
		Items: []domain.OrderItem{{
			ProductCode: "HN1001",
			ProductName: "Fabricare Liquid Detergent 500ml",
			Category:    "HOME CARE",
			Price:       decimal.NewFromInt(110),
			Quantity:    2,
			Subtotal:    decimal.NewFromInt(220),
		}},
		Subtotal:        decimal.NewFromInt(220),
		ShippingCharges: decimal.NewFromInt(60),
		TotalAmount:     decimal.NewFromInt(280),
		CreatedAt:       time.Date(2026, 3, 7, 10, 30, 0, 0, time.UTC),
	}
}

func TestRenderConfirmation(t *testing.T) {
	body, err := RenderConfirmation(sampleOrder())
	require.NoError(t, err)

	assert.Contains(t, body, "#ORD12345678")
	assert.Contains(t, body, "INV-20260307-042")
	assert.Contains(t, body, "07/03/2026, 10:30:00")
	assert.Contains(t, body, "Online Payment")
	assert.Contains(t, body, "pay_abc")
	assert.Contains(t, body, "Payment Successful, Order Confirmed")
	assert.Contains(t, body, "Fabricare Liquid Detergent 500ml")
	assert.Contains(t, body, "&#8377;110.00")
	assert.Contains(t, body, "280.00")
	assert.Contains(t, body, "12 Gandhi Street, Madurai, 625001")
}

func TestRenderConfirmationCashOnDelivery(t *testing.T) {
	o := sampleOrder()
	o.PaymentMethod = domain.PaymentMethodCashOnDelivery
	o.PaymentStatus = domain.PaymentStatusUnpaid
	o.TransactionID = ""

	body, err := RenderConfirmation(o)
	require.NoError(t, err)
	assert.Contains(t, body, "Cash on Delivery")
	assert.Contains(t, body, "Order Confirmed")
	assert.NotContains(t, body, "Payment Successful")
	assert.NotContains(t, body, "Transaction ID")
}

func TestRenderConfirmationEscapesCustomerInput(t *testing.T) {
	o := sampleOrder()
	o.Customer.Name = "<script>alert(1)</script>"

	body, err := RenderConfirmation(o)
	require.NoError(t, err)
	assert.NotContains(t, body, "<script>")
}

func TestNotify(t *testing.T) {
	ctx := context.Background()

	t.Run("sent", func(t *testing.T) {
		m := &fakeMailer{}
		status := NewNotifier(m, zap.NewNop()).Notify(ctx, sampleOrder())
		assert.Equal(t, domain.NotificationSent, status)
		require.Len(t, m.sent, 1)
		assert.Equal(t, "priya@example.com", m.sent[0].Email)
		assert.Equal(t, confirmationSubject, m.sent[0].Subject)
		assert.Contains(t, m.sent[0].HTML, "INV-20260307-042")
	})

	t.Run("falls back to minimal body", func(t *testing.T) {
		m := &fakeMailer{fail: 1}
		status := NewNotifier(m, zap.NewNop()).Notify(ctx, sampleOrder())
		assert.Equal(t, domain.NotificationSentFallback, status)
		require.Len(t, m.sent, 1)
		assert.Equal(t, fallbackSubject, m.sent[0].Subject)
		assert.Equal(t, fallbackBody, m.sent[0].HTML)
	})

	t.Run("both attempts fail", func(t *testing.T) {
		m := &fakeMailer{fail: 2}
		status := NewNotifier(m, zap.NewNop()).Notify(ctx, sampleOrder())
		assert.Equal(t, domain.NotificationFailed, status)
		assert.Equal(t, 2, m.calls)
	})

	t.Run("skipped without email or items", func(t *testing.T) {
		m := &fakeMailer{}
		n := NewNotifier(m, zap.NewNop())

		o := sampleOrder()
		o.Customer.Email = ""
		assert.Equal(t, domain.NotificationSkipped, n.Notify(ctx, o))

		o = sampleOrder()
		o.Items = nil
		assert.Equal(t, domain.NotificationSkipped, n.Notify(ctx, o))
		assert.Zero(t, m.calls)
	})
}
