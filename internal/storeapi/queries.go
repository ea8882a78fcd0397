package storeapi

import (
	"context"
	"net/http"

	"github.com/grcspl/storefront/internal/domain"
)

// OrdersByPhonePath is followed by the phone number with its +91 prefix
const OrdersByPhonePath = "/api/orders/phone/"

type ordersByPhoneResult struct {
	Success bool          `json:"success"`
	Data    []orderRecord `json:"data"`
}

// OrdersByPhone lists orders placed with a 10-digit phone number.
// Only a successful response without data means no orders; any non-2xx status is an error.
func (c *Client) OrdersByPhone(ctx context.Context, phone string) ([]domain.OrderRecord, error) {
	var result ordersByPhoneResult
	err := c.do(ctx, "lookup orders", http.MethodGet, OrdersByPhonePath+domain.CountryCode+phone, nil, &result)
	if err != nil {
		return nil, err
	}

	if !result.Success {
		return []domain.OrderRecord{}, nil
	}

	records := make([]domain.OrderRecord, 0, len(result.Data))
	for _, r := range result.Data {
		records = append(records, r.toDomain())
	}
	return records, nil
}
