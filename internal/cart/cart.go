package cart

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/grcspl/storefront/internal/domain"
	"github.com/grcspl/storefront/internal/pricing"
	"github.com/grcspl/storefront/pkg/errors"
)

// ErrOutOfStock is returned when adding a product flagged out of stock
var ErrOutOfStock = errors.New("product is out of stock")

// MaxQuantity is the most units of one product a cart line may hold
const MaxQuantity = 999

// ProductSource resolves product codes to live catalog entries
type ProductSource interface {
	Get(code string) (*domain.Product, error)
}

// Store persists cart lines between requests
type Store interface {
	Load(ctx context.Context, cartID string) ([]domain.CartLine, error)
	Save(ctx context.Context, cartID string, lines []domain.CartLine) error
	Clear(ctx context.Context, cartID string) error
}

// Cart owns the product-to-quantity mapping for one cart session
type Cart struct {
	id       string
	products ProductSource
	store    Store
	logger   *zap.Logger

	mu      sync.Mutex
	lines   []domain.CartLine
	version uint64
}

// New opens the cart with the given id, restoring whatever the store holds for it
func New(ctx context.Context, id string, products ProductSource, store Store, logger *zap.Logger) (*Cart, error) {
	stored, err := store.Load(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}

	c := &Cart{
		id:       id,
		products: products,
		store:    store,
		logger:   logger.With(zap.String("cart_id", id)),
	}

	// Drop anything the catalog no longer knows or that has no quantity
	for _, line := range stored {
		if line.Quantity <= 0 {
			continue
		}
		if _, err := products.Get(line.ProductCode); err != nil {
			c.logger.Warn("Dropping unknown product from stored cart", zap.String("product_code", line.ProductCode))
			continue
		}
		if i := c.indexOf(line.ProductCode); i >= 0 {
			c.lines[i].Quantity = min(c.lines[i].Quantity+min(line.Quantity, MaxQuantity), MaxQuantity)
			continue
		}
		line.Quantity = min(line.Quantity, MaxQuantity)
		c.lines = append(c.lines, line)
	}

	return c, nil
}

// ID is the cart session id
func (c *Cart) ID() string {
	return c.id
}

// AddItem adds one unit of the product, creating the line if needed
func (c *Cart) AddItem(ctx context.Context, code string) error {
	product, err := c.products.Get(code)
	if err != nil {
		return err
	}
	if !product.InStock {
		return fmt.Errorf("%w: %s", ErrOutOfStock, code)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	prev := c.copyLines()
	if i := c.indexOf(code); i >= 0 {
		if c.lines[i].Quantity >= MaxQuantity {
			return quantityError()
		}
		c.lines[i].Quantity++
	} else {
		c.lines = append(c.lines, domain.CartLine{ProductCode: code, Quantity: 1})
	}
	return c.persist(ctx, prev)
}

// UpdateQuantity sets the quantity of an existing line. Zero or less removes the line.
func (c *Cart) UpdateQuantity(ctx context.Context, code string, quantity int) error {
	if quantity <= 0 {
		return c.RemoveItem(ctx, code)
	}
	if quantity > MaxQuantity {
		return quantityError()
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.indexOf(code)
	if i < 0 {
		return &errors.ErrNotFound{Resource: "cart line", ID: code}
	}

	prev := c.copyLines()
	c.lines[i].Quantity = quantity
	return c.persist(ctx, prev)
}

// RemoveItem deletes the line for code. Removing an absent line is not an error.
func (c *Cart) RemoveItem(ctx context.Context, code string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.indexOf(code)
	if i < 0 {
		return nil
	}

	prev := c.copyLines()
	c.lines = append(c.lines[:i], c.lines[i+1:]...)
	return c.persist(ctx, prev)
}

// Clear empties the cart and its stored copy
func (c *Cart) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.clear(ctx)
}

// ClearOrdered takes an ordered set of lines out of the cart. When the cart is still at
// version it is emptied; if it changed since, only the ordered quantities are removed and
// anything added in the meantime stays.
func (c *Cart) ClearOrdered(ctx context.Context, ordered []domain.CartLine, version uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.version == version {
		return c.clear(ctx)
	}

	prev := c.copyLines()
	for _, o := range ordered {
		i := c.indexOf(o.ProductCode)
		if i < 0 {
			continue
		}
		c.lines[i].Quantity -= o.Quantity
		if c.lines[i].Quantity <= 0 {
			c.lines = append(c.lines[:i], c.lines[i+1:]...)
		}
	}
	if len(c.lines) == 0 {
		return c.clear(ctx)
	}
	c.logger.Info("Cart changed during checkout, keeping lines that were not ordered", zap.Int("lines", len(c.lines)))
	return c.persist(ctx, prev)
}

// Lines returns a copy of the cart lines in insertion order
func (c *Cart) Lines() []domain.CartLine {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.copyLines()
}

// IsEmpty reports whether the cart has no lines
func (c *Cart) IsEmpty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.lines) == 0
}

// Version increases on every mutation
func (c *Cart) Version() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.version
}

// Snapshot prices every line at the live catalog price
func (c *Cart) Snapshot() []domain.PricedLine {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.priceLines()
}

// Subtotal is the pre-checkout estimate at live catalog prices
func (c *Cart) Subtotal() decimal.Decimal {
	return sumSubtotal(c.Snapshot())
}

// TotalWeight is the summed weight in grams
func (c *Cart) TotalWeight() int {
	return sumWeight(c.Snapshot())
}

// Quote prices the current cart
func (c *Cart) Quote() pricing.Quote {
	_, quote, _ := c.PricedQuote()
	return quote
}

// PricedQuote returns the priced lines, their quote and the cart version they were read at,
// all from one consistent view of the cart
func (c *Cart) PricedQuote() ([]domain.PricedLine, pricing.Quote, uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	lines := c.priceLines()
	quote := pricing.NewQuote(sumSubtotal(lines), sumWeight(lines))
	return lines, quote, c.version
}

func (c *Cart) priceLines() []domain.PricedLine {
	priced := make([]domain.PricedLine, 0, len(c.lines))
	for _, line := range c.lines {
		product, err := c.products.Get(line.ProductCode)
		if err != nil {
			continue
		}
		priced = append(priced, domain.PricedLine{
			ProductCode: product.Code,
			Name:        product.Name,
			Category:    product.Category,
			UnitPrice:   product.DiscountPrice,
			WeightGrams: product.WeightGrams,
			Quantity:    line.Quantity,
		})
	}
	return priced
}

// clear empties the lines and the stored copy. Caller holds mu.
func (c *Cart) clear(ctx context.Context) error {
	c.lines = nil
	c.version++

	if err := c.store.Clear(ctx, c.id); err != nil {
		c.logger.Error("Failed to clear stored cart", zap.Error(err))
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return nil
}

// persist mirrors the lines to the store, restoring prev if that fails. Caller holds mu.
func (c *Cart) persist(ctx context.Context, prev []domain.CartLine) error {
	if err := c.store.Save(ctx, c.id, c.copyLines()); err != nil {
		c.lines = prev
		c.logger.Error("Failed to save cart", zap.Error(err))
		return fmt.Errorf("failed to save cart: %w", err)
	}
	c.version++
	return nil
}

func (c *Cart) indexOf(code string) int {
	for i, line := range c.lines {
		if line.ProductCode == code {
			return i
		}
	}
	return -1
}

func (c *Cart) copyLines() []domain.CartLine {
	out := make([]domain.CartLine, len(c.lines))
	copy(out, c.lines)
	return out
}

func sumSubtotal(lines []domain.PricedLine) decimal.Decimal {
	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(line.Subtotal())
	}
	return total
}

// sumWeight saturates at math.MaxInt rather than wrapping
func sumWeight(lines []domain.PricedLine) int {
	total := 0
	for _, line := range lines {
		if line.WeightGrams <= 0 || line.Quantity <= 0 {
			continue
		}
		if line.Quantity > (math.MaxInt-total)/line.WeightGrams {
			return math.MaxInt
		}
		total += line.WeightGrams * line.Quantity
	}
	return total
}

func quantityError() error {
	return &errors.ErrValidation{
		Message: fmt.Sprintf("quantity cannot exceed %d", MaxQuantity),
		Fields:  map[string]string{"quantity": fmt.Sprintf("must be between 1 and %d", MaxQuantity)},
	}
}
