package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/grcspl/storefront/internal/catalog"
	"github.com/grcspl/storefront/internal/domain"
)

// ProductResponse represents a catalog product
type ProductResponse struct {
	Code            string  `json:"code"`
	Name            string  `json:"name"`
	Category        string  `json:"category"`
	Image           string  `json:"image"`
	MRP             string  `json:"mrp"`
	DiscountPrice   string  `json:"discount_price"`
	DiscountPercent int     `json:"discount_percent"`
	BusinessValue   int     `json:"business_value"`
	WeightGrams     int     `json:"weight_grams"`
	InStock         bool    `json:"in_stock"`
	Rating          float64 `json:"rating"`
	Reviews         int     `json:"reviews"`
	Description     string  `json:"description,omitempty"`
	Benefit         string  `json:"benefit,omitempty"`
	UsageTips       string  `json:"usage_tips,omitempty"`
}

func newProductResponse(p *domain.Product) ProductResponse {
	return ProductResponse{
		Code:            p.Code,
		Name:            p.Name,
		Category:        p.Category,
		Image:           p.Image,
		MRP:             p.MRP.StringFixed(2),
		DiscountPrice:   p.DiscountPrice.StringFixed(2),
		DiscountPercent: p.DiscountPercent(),
		BusinessValue:   p.BusinessValue,
		WeightGrams:     p.WeightGrams,
		InStock:         p.InStock,
		Rating:          p.Rating,
		Reviews:         p.Reviews,
		Description:     p.Description,
		Benefit:         p.Benefit,
		UsageTips:       p.UsageTips,
	}
}

// HandleListProducts handles GET /v1/products
func HandleListProducts(products *catalog.Catalog, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		list := products.All()
		if q := strings.TrimSpace(c.Query("q")); q != "" {
			list = products.Search(q)
		}

		category := strings.TrimSpace(c.Query("category"))
		items := make([]ProductResponse, 0, len(list))
		for _, p := range list {
			if category != "" && !strings.EqualFold(p.Category, category) {
				continue
			}
			items = append(items, newProductResponse(p))
		}

		c.JSON(http.StatusOK, gin.H{
			"products":   items,
			"categories": products.Categories(),
		})
	}
}

// HandleGetProduct handles GET /v1/products/:code
func HandleGetProduct(products *catalog.Catalog, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, err := products.Get(c.Param("code"))
		if err != nil {
			writeError(c, err, logger)
			return
		}
		c.JSON(http.StatusOK, newProductResponse(p))
	}
}
