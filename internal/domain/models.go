package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a catalog item. Products are loaded once and never mutated.
type Product struct {
	Code          string
	Name          string
	Category      string
	Image         string
	MRP           decimal.Decimal
	DiscountPrice decimal.Decimal
	BusinessValue int
	WeightGrams   int
	InStock       bool
	Rating        float64
	Reviews       int
	Description   string
	Benefit       string
	UsageTips     string
}

// DiscountPercent is the rounded saving against MRP shown on product cards
func (p *Product) DiscountPercent() int {
	if p.MRP.IsZero() {
		return 0
	}
	return int(p.MRP.Sub(p.DiscountPrice).Div(p.MRP).Mul(decimal.NewFromInt(100)).Round(0).IntPart())
}

// CartLine is a product code and a positive quantity
type CartLine struct {
	ProductCode string `json:"product_code"`
	Quantity    int    `json:"quantity"`
}

// PricedLine is a cart line joined with the catalog at the time it was read
type PricedLine struct {
	ProductCode string
	Name        string
	Category    string
	UnitPrice   decimal.Decimal
	WeightGrams int
	Quantity    int
}

// Subtotal is unit price times quantity
func (l PricedLine) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// CustomerInfo is what the checkout form collects
type CustomerInfo struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
	City    string `json:"city"`
	Pincode string `json:"pincode"`
}

// Order is built once at checkout and never changed afterwards
type Order struct {
	OrderID           string
	InvoiceID         string
	Customer          CustomerInfo
	Items             []OrderItem
	PaymentMethod     PaymentMethod
	PaymentStatus     PaymentStatus
	TransactionID     string
	Subtotal          decimal.Decimal
	TaxAmount         decimal.Decimal
	DiscountAmount    decimal.Decimal
	ShippingCharges   decimal.Decimal
	TotalAmount       decimal.Decimal
	TotalWeightGrams  int
	Notes             string
	TrackingNumber    string
	CreatedAt         time.Time
	EstimatedDelivery time.Time
	ActualDelivery    *time.Time
}

// OrderItem captures the price charged, decoupled from the live catalog
type OrderItem struct {
	ProductCode string
	ProductName string
	Category    string
	Price       decimal.Decimal
	Quantity    int
	Subtotal    decimal.Decimal
}

// OrderRecord is an order as the store API reports it back
type OrderRecord struct {
	ID                string
	OrderID           string
	InvoiceID         string
	Status            OrderStatus
	Customer          CustomerInfo
	Items             []OrderItem
	PaymentMethod     PaymentMethod
	PaymentStatus     PaymentStatus
	TransactionID     string
	Subtotal          decimal.Decimal
	ShippingCharges   decimal.Decimal
	TotalAmount       decimal.Decimal
	TrackingNumber    string
	EstimatedDelivery *time.Time
	ActualDelivery    *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
