package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/grcspl/storefront/internal/domain"
	"github.com/grcspl/storefront/internal/pricing"
	"github.com/grcspl/storefront/internal/session"
)

// AddItemRequest represents an add-to-cart click
type AddItemRequest struct {
	ProductCode string `json:"product_code" binding:"required"`
}

// UpdateQuantityRequest sets a line's quantity; zero removes it
type UpdateQuantityRequest struct {
	Quantity *int `json:"quantity" binding:"required"`
}

// CartLineResponse represents one priced cart line
type CartLineResponse struct {
	ProductCode string `json:"product_code"`
	Name        string `json:"name"`
	Category    string `json:"category"`
	UnitPrice   string `json:"unit_price"`
	Quantity    int    `json:"quantity"`
	WeightGrams int    `json:"weight_grams"`
	Subtotal    string `json:"subtotal"`
}

// QuoteResponse is the order summary shown beside the checkout form
type QuoteResponse struct {
	Subtotal        string `json:"subtotal"`
	TotalWeight     int    `json:"total_weight_grams"`
	TransportCharge string `json:"transport_charge"`
	Tax             string `json:"tax"`
	Discount        string `json:"discount"`
	Total           string `json:"total"`
	Currency        string `json:"currency"`
}

// CartResponse represents the cart
type CartResponse struct {
	ID       string              `json:"id"`
	Lines    []CartLineResponse  `json:"lines"`
	Quote    QuoteResponse       `json:"quote"`
	Version  uint64              `json:"version"`
	Customer domain.CustomerInfo `json:"customer"`
}

func newQuoteResponse(q pricing.Quote) QuoteResponse {
	return QuoteResponse{
		Subtotal:        q.Subtotal.StringFixed(2),
		TotalWeight:     q.TotalWeight,
		TransportCharge: q.TransportCharge.StringFixed(2),
		Tax:             q.Tax.StringFixed(2),
		Discount:        q.Discount.StringFixed(2),
		Total:           q.Total.StringFixed(2),
		Currency:        pricing.Currency,
	}
}

func newCartResponse(s *session.Session) CartResponse {
	lines, quote, version := s.Cart.PricedQuote()
	resp := CartResponse{
		ID:       s.ID,
		Lines:    make([]CartLineResponse, 0, len(lines)),
		Quote:    newQuoteResponse(quote),
		Version:  version,
		Customer: s.Customer(),
	}
	for _, l := range lines {
		resp.Lines = append(resp.Lines, CartLineResponse{
			ProductCode: l.ProductCode,
			Name:        l.Name,
			Category:    l.Category,
			UnitPrice:   l.UnitPrice.StringFixed(2),
			Quantity:    l.Quantity,
			WeightGrams: l.WeightGrams,
			Subtotal:    l.Subtotal().StringFixed(2),
		})
	}
	return resp
}

func bindingError(c *gin.Context, err error) {
	c.JSON(http.StatusUnprocessableEntity, errorResponse{
		Error: "validation failed: " + err.Error(),
		Code:  CodeValidation,
	})
}

// loadSession resolves :id or writes the error response
func loadSession(c *gin.Context, sessions *session.Registry, logger *zap.Logger) (*session.Session, bool) {
	s, err := sessions.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err, logger)
		return nil, false
	}
	return s, true
}

// HandleCreateCart handles POST /v1/carts
func HandleCreateCart(sessions *session.Registry, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, err := sessions.Create(c.Request.Context())
		if err != nil {
			writeError(c, err, logger)
			return
		}
		c.JSON(http.StatusCreated, newCartResponse(s))
	}
}

// HandleGetCart handles GET /v1/carts/:id
func HandleGetCart(sessions *session.Registry, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, ok := loadSession(c, sessions, logger)
		if !ok {
			return
		}
		c.JSON(http.StatusOK, newCartResponse(s))
	}
}

// HandleAddItem handles POST /v1/carts/:id/items
func HandleAddItem(sessions *session.Registry, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req AddItemRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			bindingError(c, err)
			return
		}
		s, ok := loadSession(c, sessions, logger)
		if !ok {
			return
		}
		if err := s.Cart.AddItem(c.Request.Context(), req.ProductCode); err != nil {
			writeError(c, err, logger)
			return
		}
		c.JSON(http.StatusOK, newCartResponse(s))
	}
}

// HandleUpdateQuantity handles PUT /v1/carts/:id/items/:code
func HandleUpdateQuantity(sessions *session.Registry, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req UpdateQuantityRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			bindingError(c, err)
			return
		}
		s, ok := loadSession(c, sessions, logger)
		if !ok {
			return
		}
		if err := s.Cart.UpdateQuantity(c.Request.Context(), c.Param("code"), *req.Quantity); err != nil {
			writeError(c, err, logger)
			return
		}
		c.JSON(http.StatusOK, newCartResponse(s))
	}
}

// HandleRemoveItem handles DELETE /v1/carts/:id/items/:code
func HandleRemoveItem(sessions *session.Registry, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, ok := loadSession(c, sessions, logger)
		if !ok {
			return
		}
		if err := s.Cart.RemoveItem(c.Request.Context(), c.Param("code")); err != nil {
			writeError(c, err, logger)
			return
		}
		c.JSON(http.StatusOK, newCartResponse(s))
	}
}

// HandleSetCustomer handles PUT /v1/carts/:id/customer.
// The form is stored as typed; it is validated when an order is placed.
func HandleSetCustomer(sessions *session.Registry, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req domain.CustomerInfo
		if err := c.ShouldBindJSON(&req); err != nil {
			bindingError(c, err)
			return
		}
		s, ok := loadSession(c, sessions, logger)
		if !ok {
			return
		}
		s.SetCustomer(req)
		c.JSON(http.StatusOK, newCartResponse(s))
	}
}
