package order

import (
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/grcspl/storefront/internal/domain"
	"github.com/grcspl/storefront/internal/pricing"
	"github.com/grcspl/storefront/pkg/errors"
)

// DeliveryDays is how far out the estimated delivery date is set
const DeliveryDays = 5

// Builder assembles immutable orders from a priced cart
type Builder struct {
	now func() time.Time

	mu  sync.Mutex
	rnd *rand.Rand
}

// NewBuilder creates a builder using the wall clock
func NewBuilder() *Builder {
	return NewBuilderWithClock(time.Now, rand.New(rand.NewSource(time.Now().UnixNano())))
}

// NewBuilderWithClock creates a builder with a fixed clock and random source
func NewBuilderWithClock(now func() time.Time, rnd *rand.Rand) *Builder {
	return &Builder{now: now, rnd: rnd}
}

// BuildCODOrder builds an unpaid cash-on-delivery order
func (b *Builder) BuildCODOrder(customer domain.CustomerInfo, lines []domain.PricedLine, quote pricing.Quote) (*domain.Order, error) {
	return b.build(customer, lines, quote, domain.PaymentMethodCashOnDelivery, "")
}

// BuildOnlineOrder builds a paid order for a gateway transaction
func (b *Builder) BuildOnlineOrder(customer domain.CustomerInfo, lines []domain.PricedLine, quote pricing.Quote, transactionID string) (*domain.Order, error) {
	if strings.TrimSpace(transactionID) == "" {
		return nil, &errors.ErrValidation{
			Message: "online order requires a transaction id",
			Fields:  map[string]string{"transaction_id": "transaction id is required"},
		}
	}
	return b.build(customer, lines, quote, domain.PaymentMethodOnline, transactionID)
}

func (b *Builder) build(
	customer domain.CustomerInfo,
	lines []domain.PricedLine,
	quote pricing.Quote,
	method domain.PaymentMethod,
	transactionID string,
) (*domain.Order, error) {
	if err := customer.Validate(); err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, &errors.ErrValidation{Message: "cart is empty"}
	}

	// Capture prices now so the order reflects what was charged
	items := make([]domain.OrderItem, 0, len(lines))
	subtotal := decimal.Zero
	for _, line := range lines {
		item := domain.OrderItem{
			ProductCode: line.ProductCode,
			ProductName: line.Name,
			Category:    line.Category,
			Price:       line.UnitPrice,
			Quantity:    line.Quantity,
			Subtotal:    line.Subtotal(),
		}
		subtotal = subtotal.Add(item.Subtotal)
		items = append(items, item)
	}
	if !subtotal.Equal(quote.Subtotal) {
		return nil, fmt.Errorf("quote subtotal %s does not match cart subtotal %s", quote.Subtotal, subtotal)
	}

	status := domain.PaymentStatusUnpaid
	if method == domain.PaymentMethodOnline {
		status = domain.PaymentStatusPaid
	}

	now := b.now()
	return &domain.Order{
		OrderID:           DisplayOrderID(now),
		InvoiceID:         b.invoiceID(now),
		Customer:          customer,
		Items:             items,
		PaymentMethod:     method,
		PaymentStatus:     status,
		TransactionID:     transactionID,
		Subtotal:          subtotal,
		TaxAmount:         decimal.Zero,
		DiscountAmount:    decimal.Zero,
		ShippingCharges:   quote.TransportCharge,
		TotalAmount:       subtotal.Add(quote.TransportCharge),
		TotalWeightGrams:  quote.TotalWeight,
		CreatedAt:         now,
		EstimatedDelivery: now.AddDate(0, 0, DeliveryDays),
	}, nil
}

// invoiceID is INV-YYYYMMDD-NNN. Uniqueness is the store API's concern.
func (b *Builder) invoiceID(now time.Time) string {
	b.mu.Lock()
	n := b.rnd.Intn(1000)
	b.mu.Unlock()
	return fmt.Sprintf("INV-%s-%03d", now.Format("20060102"), n)
}

// DisplayOrderID is the last six digits of the epoch-millisecond timestamp
func DisplayOrderID(now time.Time) string {
	ms := fmt.Sprintf("%d", now.UnixMilli())
	if len(ms) > 6 {
		ms = ms[len(ms)-6:]
	}
	return ms
}
