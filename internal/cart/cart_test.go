package cart

import (
	"context"
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"

	"github.com/grcspl/storefront/internal/domain"
	"github.com/grcspl/storefront/pkg/errors"
)

type fakeCatalog map[string]*domain.Product

func (f fakeCatalog) Get(code string) (*domain.Product, error) {
	p, ok := f[code]
	if !ok {
		return nil, &errors.ErrNotFound{Resource: "product", ID: code}
	}
	return p, nil
}

func testCatalog() fakeCatalog {
	return fakeCatalog{
		"HN1001": {Code: "HN1001", Name: "Detergent", MRP: decimal.NewFromInt(215), DiscountPrice: decimal.NewFromInt(110), WeightGrams: 500, InStock: true},
		"HN1003": {Code: "HN1003", Name: "After Wash", MRP: decimal.NewFromInt(146), DiscountPrice: decimal.NewFromInt(50), WeightGrams: 250, InStock: true},
		"SOLD":   {Code: "SOLD", Name: "Sold out", MRP: decimal.NewFromInt(10), DiscountPrice: decimal.NewFromInt(10), WeightGrams: 10, InStock: false},
	}
}

type failingStore struct {
	*MemoryStore
	failSave bool
}

func (s *failingStore) Save(ctx context.Context, cartID string, lines []domain.CartLine) error {
	if s.failSave {
		return errors.New("disk full")
	}
	return s.MemoryStore.Save(ctx, cartID, lines)
}

type CartTestSuite struct {
	suite.Suite
	ctx   context.Context
	store *MemoryStore
	cart  *Cart
}

func TestCartTestSuite(t *testing.T) {
	suite.Run(t, new(CartTestSuite))
}

func (s *CartTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = NewMemoryStore()
	c, err := New(s.ctx, "cart-1", testCatalog(), s.store, zap.NewNop())
	s.Require().NoError(err)
	s.cart = c
}

func (s *CartTestSuite) TestAddThenRemoveLeavesEmptyCart() {
	s.Require().NoError(s.cart.AddItem(s.ctx, "HN1001"))
	s.Require().NoError(s.cart.RemoveItem(s.ctx, "HN1001"))

	s.True(s.cart.IsEmpty())
	stored, _ := s.store.Load(s.ctx, "cart-1")
	s.Empty(stored)
}

func (s *CartTestSuite) TestRepeatedAddIncrementsQuantity() {
	for i := 0; i < 4; i++ {
		s.Require().NoError(s.cart.AddItem(s.ctx, "HN1001"))
	}

	lines := s.cart.Lines()
	s.Require().Len(lines, 1)
	s.Equal(4, lines[0].Quantity)
	s.Equal("440", s.cart.Subtotal().String())
}

func (s *CartTestSuite) TestUpdateQuantityZeroRemovesLine() {
	s.Require().NoError(s.cart.AddItem(s.ctx, "HN1001"))
	s.Require().NoError(s.cart.AddItem(s.ctx, "HN1003"))

	s.Require().NoError(s.cart.UpdateQuantity(s.ctx, "HN1001", 0))
	s.Equal([]domain.CartLine{{ProductCode: "HN1003", Quantity: 1}}, s.cart.Lines())

	s.Require().NoError(s.cart.UpdateQuantity(s.ctx, "HN1003", -3))
	s.True(s.cart.IsEmpty())
}

func (s *CartTestSuite) TestUpdateQuantitySetsValue() {
	s.Require().NoError(s.cart.AddItem(s.ctx, "HN1001"))
	s.Require().NoError(s.cart.UpdateQuantity(s.ctx, "HN1001", 7))
	s.Equal(7, s.cart.Lines()[0].Quantity)

	err := s.cart.UpdateQuantity(s.ctx, "HN1003", 2)
	s.True(errors.IsNotFound(err))
}

func (s *CartTestSuite) TestQuantityIsCapped() {
	s.Require().NoError(s.cart.AddItem(s.ctx, "HN1001"))

	err := s.cart.UpdateQuantity(s.ctx, "HN1001", 1<<62)
	s.True(errors.IsValidation(err))
	s.Equal(1, s.cart.Lines()[0].Quantity)

	s.Require().NoError(s.cart.UpdateQuantity(s.ctx, "HN1001", MaxQuantity))
	err = s.cart.AddItem(s.ctx, "HN1001")
	s.True(errors.IsValidation(err))
	s.Equal(MaxQuantity, s.cart.Lines()[0].Quantity)

	q := s.cart.Quote()
	s.Equal(MaxQuantity*500, q.TotalWeight)
	s.Equal("109890", q.Subtotal.String())
	s.Equal("10020", q.TransportCharge.String())
	s.Equal("119910", q.Total.String())
}

func (s *CartTestSuite) TestClearOrderedEmptiesUnchangedCart() {
	s.Require().NoError(s.cart.AddItem(s.ctx, "HN1001"))
	s.Require().NoError(s.cart.AddItem(s.ctx, "HN1003"))
	_, _, version := s.cart.PricedQuote()

	ordered := []domain.CartLine{{ProductCode: "HN1001", Quantity: 1}, {ProductCode: "HN1003", Quantity: 1}}
	s.Require().NoError(s.cart.ClearOrdered(s.ctx, ordered, version))
	s.True(s.cart.IsEmpty())

	stored, err := s.store.Load(s.ctx, "cart-1")
	s.Require().NoError(err)
	s.Empty(stored)
}

func (s *CartTestSuite) TestClearOrderedKeepsLaterAdditions() {
	s.Require().NoError(s.cart.AddItem(s.ctx, "HN1001"))
	s.Require().NoError(s.cart.AddItem(s.ctx, "HN1001"))
	_, _, version := s.cart.PricedQuote()

	s.Require().NoError(s.cart.AddItem(s.ctx, "HN1001"))
	s.Require().NoError(s.cart.AddItem(s.ctx, "HN1003"))

	ordered := []domain.CartLine{{ProductCode: "HN1001", Quantity: 2}}
	s.Require().NoError(s.cart.ClearOrdered(s.ctx, ordered, version))
	s.Equal([]domain.CartLine{
		{ProductCode: "HN1001", Quantity: 1},
		{ProductCode: "HN1003", Quantity: 1},
	}, s.cart.Lines())
}

func (s *CartTestSuite) TestRemoveAbsentIsNoop() {
	s.NoError(s.cart.RemoveItem(s.ctx, "HN1001"))
	s.NoError(s.cart.RemoveItem(s.ctx, "UNKNOWN"))
}

func (s *CartTestSuite) TestAddRejectsOutOfStockAndUnknown() {
	err := s.cart.AddItem(s.ctx, "SOLD")
	s.ErrorIs(err, ErrOutOfStock)

	err = s.cart.AddItem(s.ctx, "UNKNOWN")
	s.True(errors.IsNotFound(err))
	s.True(s.cart.IsEmpty())
}

func (s *CartTestSuite) TestQuoteForMixedCart() {
	s.Require().NoError(s.cart.AddItem(s.ctx, "HN1001"))
	s.Require().NoError(s.cart.AddItem(s.ctx, "HN1001"))
	s.Require().NoError(s.cart.AddItem(s.ctx, "HN1003"))

	q := s.cart.Quote()
	s.Equal("270", q.Subtotal.String())
	s.Equal(1250, q.TotalWeight)
	s.Equal("80", q.TransportCharge.String())
	s.Equal("350", q.Total.String())
}

func (s *CartTestSuite) TestVersionAdvancesOnMutation() {
	v0 := s.cart.Version()
	s.Require().NoError(s.cart.AddItem(s.ctx, "HN1001"))
	v1 := s.cart.Version()
	s.Greater(v1, v0)

	s.Require().NoError(s.cart.Clear(s.ctx))
	s.Greater(s.cart.Version(), v1)
	s.True(s.cart.IsEmpty())
}

func TestSumWeightSaturates(t *testing.T) {
	lines := []domain.PricedLine{
		{ProductCode: "A", WeightGrams: 1 << 40, Quantity: 1 << 30},
		{ProductCode: "B", WeightGrams: 500, Quantity: 2},
	}
	assert.Equal(t, math.MaxInt, sumWeight(lines))
	assert.Equal(t, 1000, sumWeight(lines[1:]))
}

func TestCartRestoresFromStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Save(ctx, "c", []domain.CartLine{
		{ProductCode: "HN1001", Quantity: 2},
		{ProductCode: "GONE", Quantity: 1},
		{ProductCode: "HN1003", Quantity: 0},
	}))

	c, err := New(ctx, "c", testCatalog(), store, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, []domain.CartLine{{ProductCode: "HN1001", Quantity: 2}}, c.Lines())
}

func TestCartRollsBackWhenStoreFails(t *testing.T) {
	ctx := context.Background()
	store := &failingStore{MemoryStore: NewMemoryStore()}

	c, err := New(ctx, "c", testCatalog(), store, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, c.AddItem(ctx, "HN1001"))

	store.failSave = true
	err = c.AddItem(ctx, "HN1001")
	require.Error(t, err)
	assert.Equal(t, 1, c.Lines()[0].Quantity)

	err = c.RemoveItem(ctx, "HN1001")
	require.Error(t, err)
	assert.Len(t, c.Lines(), 1)
}
