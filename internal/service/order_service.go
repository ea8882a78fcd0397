package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/grcspl/storefront/internal/domain"
	"github.com/grcspl/storefront/pkg/errors"
)

// OrderFinder lists the orders recorded for a phone number
type OrderFinder interface {
	OrdersByPhone(ctx context.Context, phone string) ([]domain.OrderRecord, error)
}

type orderLookupService struct {
	finder OrderFinder
	logger *zap.Logger
}

// NewOrderLookupService creates a new order lookup service
func NewOrderLookupService(finder OrderFinder, logger *zap.Logger) *orderLookupService {
	return &orderLookupService{
		finder: finder,
		logger: logger,
	}
}

// Lookup returns the orders placed with phone. No orders is a result, not an error.
func (s *orderLookupService) Lookup(ctx context.Context, phone string) (*LookupResult, error) {
	normalized, ok := domain.NormalizePhone(phone)
	if !ok {
		return nil, &errors.ErrValidation{
			Message: "invalid phone number",
			Fields:  map[string]string{"phone": "phone must have 10 digits"},
		}
	}

	orders, err := s.finder.OrdersByPhone(ctx, normalized)
	if err != nil {
		s.logger.Warn("Order lookup failed", zap.String("phone", maskPhone(normalized)), zap.Error(err))
		return nil, err
	}
	if orders == nil {
		orders = []domain.OrderRecord{}
	}

	s.logger.Debug("Order lookup",
		zap.String("phone", maskPhone(normalized)),
		zap.Int("orders", len(orders)),
	)

	return &LookupResult{
		Phone:  normalized,
		Found:  len(orders) > 0,
		Orders: orders,
	}, nil
}

// maskPhone keeps the last four digits for logs
func maskPhone(phone string) string {
	if len(phone) <= 4 {
		return phone
	}
	masked := make([]byte, len(phone))
	for i := range masked {
		masked[i] = '*'
	}
	copy(masked[len(phone)-4:], phone[len(phone)-4:])
	return string(masked)
}
