package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/grcspl/storefront/internal/domain"
	"github.com/grcspl/storefront/pkg/errors"
)

//go:embed products.yaml
var defaultCatalog []byte

type productFile struct {
	Products []productEntry `yaml:"products"`
}

type productEntry struct {
	Code          string          `yaml:"code"`
	Name          string          `yaml:"name"`
	Category      string          `yaml:"category"`
	Image         string          `yaml:"image"`
	MRP           decimal.Decimal `yaml:"mrp"`
	DiscountPrice decimal.Decimal `yaml:"discount_price"`
	BusinessValue int             `yaml:"business_value"`
	WeightGrams   int             `yaml:"weight_grams"`
	InStock       *bool           `yaml:"in_stock"`
	Rating        float64         `yaml:"rating"`
	Reviews       int             `yaml:"reviews"`
	Description   string          `yaml:"description"`
	Benefit       string          `yaml:"benefit"`
	UsageTips     string          `yaml:"usage_tips"`
}

// Catalog is the immutable list of purchasable products
type Catalog struct {
	products []*domain.Product
	byCode   map[string]*domain.Product
}

// Default returns the catalog embedded in the binary
func Default() (*Catalog, error) {
	return Load(defaultCatalog)
}

// LoadFile reads a catalog from path, falling back to the embedded one when path is empty
func LoadFile(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	return Load(data)
}

// Load parses and validates a YAML catalog. Every invalid product is reported.
func Load(data []byte) (*Catalog, error) {
	var file productFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}

	c := &Catalog{
		products: make([]*domain.Product, 0, len(file.Products)),
		byCode:   make(map[string]*domain.Product, len(file.Products)),
	}
	problems := make(map[string]string)

	for i, entry := range file.Products {
		key := entry.Code
		if key == "" {
			key = fmt.Sprintf("products[%d]", i)
		}
		if msg := validateEntry(entry); msg != "" {
			problems[key] = msg
			continue
		}
		if _, dup := c.byCode[entry.Code]; dup {
			problems[key] = "duplicate product code"
			continue
		}

		// Products without an explicit stock flag are sellable
		inStock := true
		if entry.InStock != nil {
			inStock = *entry.InStock
		}

		p := &domain.Product{
			Code:          entry.Code,
			Name:          entry.Name,
			Category:      entry.Category,
			Image:         entry.Image,
			MRP:           entry.MRP,
			DiscountPrice: entry.DiscountPrice,
			BusinessValue: entry.BusinessValue,
			WeightGrams:   entry.WeightGrams,
			InStock:       inStock,
			Rating:        entry.Rating,
			Reviews:       entry.Reviews,
			Description:   entry.Description,
			Benefit:       entry.Benefit,
			UsageTips:     entry.UsageTips,
		}
		c.products = append(c.products, p)
		c.byCode[p.Code] = p
	}

	if len(problems) > 0 {
		return nil, &errors.ErrValidation{Message: "invalid catalog", Fields: problems}
	}
	return c, nil
}

func validateEntry(e productEntry) string {
	switch {
	case e.Code == "":
		return "code is required"
	case strings.TrimSpace(e.Name) == "":
		return "name is required"
	case e.WeightGrams < 0:
		return "weight must not be negative"
	case e.MRP.IsNegative() || e.DiscountPrice.IsNegative():
		return "prices must not be negative"
	case e.DiscountPrice.GreaterThan(e.MRP):
		return "discount price must not exceed MRP"
	}
	return ""
}

// All returns every product in catalog order
func (c *Catalog) All() []*domain.Product {
	out := make([]*domain.Product, len(c.products))
	copy(out, c.products)
	return out
}

// Get looks a product up by code
func (c *Catalog) Get(code string) (*domain.Product, error) {
	p, ok := c.byCode[code]
	if !ok {
		return nil, &errors.ErrNotFound{Resource: "product", ID: code}
	}
	return p, nil
}

// Search matches the query against product name and category, case-insensitively.
// An empty query returns everything.
func (c *Catalog) Search(query string) []*domain.Product {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return c.All()
	}

	var out []*domain.Product
	for _, p := range c.products {
		if strings.Contains(strings.ToLower(p.Name), q) || strings.Contains(strings.ToLower(p.Category), q) {
			out = append(out, p)
		}
	}
	return out
}

// Categories lists the distinct categories, sorted
func (c *Catalog) Categories() []string {
	seen := make(map[string]struct{})
	for _, p := range c.products {
		seen[p.Category] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for cat := range seen {
		out = append(out, cat)
	}
	sort.Strings(out)
	return out
}

// Len is the number of products
func (c *Catalog) Len() int {
	return len(c.products)
}
