package order

import (
	"math/rand"
	"regexp"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grcspl/storefront/internal/domain"
	"github.com/grcspl/storefront/internal/pricing"
	"github.com/grcspl/storefront/pkg/errors"
)

var fixedNow = time.Date(2026, 3, 7, 10, 30, 0, 0, time.UTC)

func testBuilder() *Builder {
	return NewBuilderWithClock(func() time.Time { return fixedNow }, rand.New(rand.NewSource(1)))
}

func testCustomer() domain.CustomerInfo {
	return domain.CustomerInfo{
		Name:    "Priya",
		Email:   "priya@example.com",
		Phone:   "9876543210",
		Address: "12 Gandhi Street",
		City:    "Madurai",
		Pincode: "625001",
	}
}

func testLines() []domain.PricedLine {
	return []domain.PricedLine{
		{ProductCode: "HN1001", Name: "Detergent", UnitPrice: decimal.NewFromInt(110), WeightGrams: 500, Quantity: 2},
		{ProductCode: "HN1003", Name: "After Wash", UnitPrice: decimal.NewFromInt(50), WeightGrams: 250, Quantity: 1},
	}
}

func TestBuildCODOrder(t *testing.T) {
	o, err := testBuilder().BuildCODOrder(testCustomer(), testLines(), pricing.NewQuote(decimal.NewFromInt(270), 1250))
	require.NoError(t, err)

	assert.Equal(t, domain.PaymentMethodCashOnDelivery, o.PaymentMethod)
	assert.Equal(t, domain.PaymentStatusUnpaid, o.PaymentStatus)
	assert.Empty(t, o.TransactionID)
	assert.Equal(t, "270", o.Subtotal.String())
	assert.Equal(t, "80", o.ShippingCharges.String())
	assert.Equal(t, "350", o.TotalAmount.String())
	assert.True(t, o.TaxAmount.IsZero())
	assert.True(t, o.DiscountAmount.IsZero())
	assert.Nil(t, o.ActualDelivery)
	assert.Equal(t, fixedNow.AddDate(0, 0, 5), o.EstimatedDelivery)

	require.Len(t, o.Items, 2)
	assert.Equal(t, "Detergent", o.Items[0].ProductName)
	assert.Equal(t, "220", o.Items[0].Subtotal.String())

	assert.Regexp(t, regexp.MustCompile(`^INV-20260307-\d{3}$`), o.InvoiceID)
	assert.Len(t, o.OrderID, 6)
}

func TestBuildOnlineOrder(t *testing.T) {
	b := testBuilder()
	quote := pricing.NewQuote(decimal.NewFromInt(270), 1250)

	o, err := b.BuildOnlineOrder(testCustomer(), testLines(), quote, "pay_123")
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentMethodOnline, o.PaymentMethod)
	assert.Equal(t, domain.PaymentStatusPaid, o.PaymentStatus)
	assert.Equal(t, "pay_123", o.TransactionID)

	_, err = b.BuildOnlineOrder(testCustomer(), testLines(), quote, " ")
	assert.True(t, errors.IsValidation(err))
}

func TestBuildRejectsBadInput(t *testing.T) {
	b := testBuilder()

	_, err := b.BuildCODOrder(testCustomer(), nil, pricing.NewQuote(decimal.Zero, 0))
	assert.True(t, errors.IsValidation(err))

	bad := testCustomer()
	bad.Email = "nope"
	_, err = b.BuildCODOrder(bad, testLines(), pricing.NewQuote(decimal.NewFromInt(270), 1250))
	assert.True(t, errors.IsValidation(err))

	_, err = b.BuildCODOrder(testCustomer(), testLines(), pricing.NewQuote(decimal.NewFromInt(1), 1250))
	assert.Error(t, err)
}

func TestCapturedPriceIsIndependentOfLines(t *testing.T) {
	lines := testLines()
	o, err := testBuilder().BuildCODOrder(testCustomer(), lines, pricing.NewQuote(decimal.NewFromInt(270), 1250))
	require.NoError(t, err)

	lines[0].UnitPrice = decimal.NewFromInt(999)
	assert.Equal(t, "110", o.Items[0].Price.String())
}

func TestDisplayOrderID(t *testing.T) {
	ts := time.UnixMilli(1717000123456)
	assert.Equal(t, "123456", DisplayOrderID(ts))
}
