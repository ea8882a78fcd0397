package storeapi

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/grcspl/storefront/internal/domain"
)

// Amount is a decimal that goes on the wire as a JSON number
type Amount struct {
	decimal.Decimal
}

// NewAmount wraps a decimal for the JSON number the store API expects
func NewAmount(d decimal.Decimal) Amount {
	return Amount{Decimal: d}
}

func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.Decimal.String()), nil
}

// looseString accepts a JSON string or number
type looseString string

func (s *looseString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = looseString(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*s = looseString(n.String())
	return nil
}

type AddressInput struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	ZipCode string `json:"zipCode"`
	Country string `json:"country"`
}

type CustomerInput struct {
	Name    string       `json:"name"`
	Email   string       `json:"email"`
	Phone   string       `json:"phone"`
	Address AddressInput `json:"address"`
}

type OrderItemInput struct {
	ProductName string `json:"productName"`
	Price       Amount `json:"price"`
	Quantity    int    `json:"quantity"`
	Subtotal    Amount `json:"subtotal"`
}

// OrderInput is the order payload POSTed to /api/orders
type OrderInput struct {
	Customer          CustomerInput    `json:"customer"`
	Items             []OrderItemInput `json:"items"`
	PaymentMethod     string           `json:"paymentMethod"`
	PaymentStatus     string           `json:"paymentStatus"`
	TransactionID     string           `json:"transactionId"`
	InvoiceID         string           `json:"invoiceId"`
	Subtotal          Amount           `json:"subtotal"`
	TaxAmount         Amount           `json:"taxAmount"`
	DiscountAmount    Amount           `json:"discountAmount"`
	ShippingCharges   Amount           `json:"shippingCharges"`
	TotalAmount       Amount           `json:"totalAmount"`
	Notes             string           `json:"notes"`
	TrackingNumber    string           `json:"trackingNumber"`
	EstimatedDelivery string           `json:"estimatedDelivery"`
	ActualDelivery    *string          `json:"actualDelivery"`
}

// isoMillis matches what browsers produce for Date.toISOString
const isoMillis = "2006-01-02T15:04:05.000Z07:00"

// NewOrderInput maps a built order to the store API payload.
// The API requires a non-empty state, so city doubles as state.
func NewOrderInput(o *domain.Order) OrderInput {
	items := make([]OrderItemInput, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, OrderItemInput{
			ProductName: it.ProductName,
			Price:       NewAmount(it.Price),
			Quantity:    it.Quantity,
			Subtotal:    NewAmount(it.Subtotal),
		})
	}

	var actual *string
	if o.ActualDelivery != nil {
		s := o.ActualDelivery.UTC().Format(isoMillis)
		actual = &s
	}

	return OrderInput{
		Customer: CustomerInput{
			Name:  o.Customer.Name,
			Email: o.Customer.Email,
			Phone: o.Customer.Phone,
			Address: AddressInput{
				Street:  o.Customer.Address,
				City:    o.Customer.City,
				State:   o.Customer.City,
				ZipCode: o.Customer.Pincode,
				Country: "IN",
			},
		},
		Items:             items,
		PaymentMethod:     string(o.PaymentMethod),
		PaymentStatus:     string(o.PaymentStatus),
		TransactionID:     o.TransactionID,
		InvoiceID:         o.InvoiceID,
		Subtotal:          NewAmount(o.Subtotal),
		TaxAmount:         NewAmount(o.TaxAmount),
		DiscountAmount:    NewAmount(o.DiscountAmount),
		ShippingCharges:   NewAmount(o.ShippingCharges),
		TotalAmount:       NewAmount(o.TotalAmount),
		Notes:             o.Notes,
		TrackingNumber:    o.TrackingNumber,
		EstimatedDelivery: o.EstimatedDelivery.UTC().Format(isoMillis),
		ActualDelivery:    actual,
	}
}

// orderRecord is an order as returned by the store API
type orderRecord struct {
	ID                string           `json:"_id"`
	OrderID           looseString      `json:"orderId"`
	InvoiceID         string           `json:"invoiceId"`
	Status            string           `json:"status"`
	Customer          CustomerInput    `json:"customer"`
	Items             []OrderItemInput `json:"items"`
	PaymentMethod     string           `json:"paymentMethod"`
	PaymentStatus     string           `json:"paymentStatus"`
	TransactionID     string           `json:"transactionId"`
	Subtotal          Amount           `json:"subtotal"`
	ShippingCharges   Amount           `json:"shippingCharges"`
	TotalAmount       Amount           `json:"totalAmount"`
	TrackingNumber    string           `json:"trackingNumber"`
	EstimatedDelivery *time.Time       `json:"estimatedDelivery"`
	ActualDelivery    *time.Time       `json:"actualDelivery"`
	CreatedAt         time.Time        `json:"createdAt"`
	UpdatedAt         time.Time        `json:"updatedAt"`
}

func (r orderRecord) toDomain() domain.OrderRecord {
	items := make([]domain.OrderItem, 0, len(r.Items))
	for _, it := range r.Items {
		items = append(items, domain.OrderItem{
			ProductName: it.ProductName,
			Price:       it.Price.Decimal,
			Quantity:    it.Quantity,
			Subtotal:    it.Subtotal.Decimal,
		})
	}

	return domain.OrderRecord{
		ID:        r.ID,
		OrderID:   string(r.OrderID),
		InvoiceID: r.InvoiceID,
		Status:    domain.OrderStatus(r.Status),
		Customer: domain.CustomerInfo{
			Name:    r.Customer.Name,
			Email:   r.Customer.Email,
			Phone:   r.Customer.Phone,
			Address: r.Customer.Address.Street,
			City:    r.Customer.Address.City,
			Pincode: r.Customer.Address.ZipCode,
		},
		Items:             items,
		PaymentMethod:     domain.PaymentMethod(r.PaymentMethod),
		PaymentStatus:     domain.PaymentStatus(r.PaymentStatus),
		TransactionID:     r.TransactionID,
		Subtotal:          r.Subtotal.Decimal,
		ShippingCharges:   r.ShippingCharges.Decimal,
		TotalAmount:       r.TotalAmount.Decimal,
		TrackingNumber:    r.TrackingNumber,
		EstimatedDelivery: r.EstimatedDelivery,
		ActualDelivery:    r.ActualDelivery,
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
	}
}

// FieldError is one server-side validation message
type FieldError struct {
	Path string `json:"path"`
	Msg  string `json:"msg"`
}
