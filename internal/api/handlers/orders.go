package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/grcspl/storefront/internal/domain"
	"github.com/grcspl/storefront/internal/service"
)

// OrderLookup finds a customer's past orders
type OrderLookup interface {
	Lookup(ctx context.Context, phone string) (*service.LookupResult, error)
}

// OrderResponse represents an order recorded by the store API
type OrderResponse struct {
	ID                string               `json:"id"`
	OrderID           string               `json:"order_id,omitempty"`
	InvoiceID         string               `json:"invoice_id"`
	Status            domain.OrderStatus   `json:"status"`
	Customer          domain.CustomerInfo  `json:"customer"`
	Items             []OrderItemResponse  `json:"items"`
	PaymentMethod     domain.PaymentMethod `json:"payment_method"`
	PaymentStatus     domain.PaymentStatus `json:"payment_status"`
	TransactionID     string               `json:"transaction_id,omitempty"`
	Subtotal          string               `json:"subtotal"`
	ShippingCharges   string               `json:"shipping_charges"`
	TotalAmount       string               `json:"total_amount"`
	TrackingNumber    string               `json:"tracking_number,omitempty"`
	EstimatedDelivery *string              `json:"estimated_delivery,omitempty"`
	ActualDelivery    *string              `json:"actual_delivery,omitempty"`
	CreatedAt         string               `json:"created_at,omitempty"`
}

// OrderLookupResponse keeps "no orders" apart from a failed lookup, which is an error response
type OrderLookupResponse struct {
	Phone  string          `json:"phone"`
	Found  bool            `json:"found"`
	Orders []OrderResponse `json:"orders"`
}

func formatTime(t *time.Time) *string {
	if t == nil || t.IsZero() {
		return nil
	}
	s := t.Format(time.RFC3339)
	return &s
}

func newOrderResponse(rec domain.OrderRecord) OrderResponse {
	resp := OrderResponse{
		ID:                rec.ID,
		OrderID:           rec.OrderID,
		InvoiceID:         rec.InvoiceID,
		Status:            rec.Status,
		Customer:          rec.Customer,
		Items:             make([]OrderItemResponse, 0, len(rec.Items)),
		PaymentMethod:     rec.PaymentMethod,
		PaymentStatus:     rec.PaymentStatus,
		TransactionID:     rec.TransactionID,
		Subtotal:          rec.Subtotal.StringFixed(2),
		ShippingCharges:   rec.ShippingCharges.StringFixed(2),
		TotalAmount:       rec.TotalAmount.StringFixed(2),
		TrackingNumber:    rec.TrackingNumber,
		EstimatedDelivery: formatTime(rec.EstimatedDelivery),
		ActualDelivery:    formatTime(rec.ActualDelivery),
	}
	if !rec.CreatedAt.IsZero() {
		resp.CreatedAt = rec.CreatedAt.Format(time.RFC3339)
	}
	for _, it := range rec.Items {
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

// HandleLookupOrders handles GET /v1/orders?phone=
func HandleLookupOrders(lookup OrderLookup, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		result, err := lookup.Lookup(c.Request.Context(), c.Query("phone"))
		if err != nil {
			writeError(c, err, logger)
			return
		}

		resp := OrderLookupResponse{
			Phone:  result.Phone,
			Found:  result.Found,
			Orders: make([]OrderResponse, 0, len(result.Orders)),
		}
		for _, rec := range result.Orders {
			resp.Orders = append(resp.Orders, newOrderResponse(rec))
		}
		c.JSON(http.StatusOK, resp)
	}
}
