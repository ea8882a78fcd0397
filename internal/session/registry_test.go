package session

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/grcspl/storefront/internal/cart"
	"github.com/grcspl/storefront/internal/catalog"
	"github.com/grcspl/storefront/internal/checkout"
	"github.com/grcspl/storefront/internal/config"
	"github.com/grcspl/storefront/internal/domain"
	"github.com/grcspl/storefront/pkg/errors"
)

type okSubmitter struct{}

func (okSubmitter) CreateOrder(_ context.Context, o *domain.Order) (*domain.OrderRecord, error) {
	return &domain.OrderRecord{InvoiceID: o.InvoiceID}, nil
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newTestRegistry(t *testing.T, store cart.Store) (*Registry, *clock) {
	t.Helper()
	products, err := catalog.Default()
	require.NoError(t, err)

	factory := func(c *cart.Cart) *checkout.Coordinator {
		return checkout.NewCoordinator(checkout.Deps{Cart: c, Submitter: okSubmitter{}}, zap.NewNop())
	}
	r := NewRegistry(products, store, factory, sessionConfig(time.Hour), zap.NewNop())
	clk := &clock{t: time.Date(2026, 3, 7, 10, 0, 0, 0, time.UTC)}
	r.now = clk.now
	return r, clk
}

func customer() domain.CustomerInfo {
	return domain.CustomerInfo{
		Name: "Priya", Email: "priya@example.com", Phone: "9876543210",
		Address: "12 Gandhi Street", City: "Madurai", Pincode: "625001",
	}
}

func TestCreateAndGet(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestRegistry(t, cart.NewMemoryStore())

	s, err := r.Create(ctx)
	require.NoError(t, err)
	_, err = uuid.Parse(s.ID)
	require.NoError(t, err)

	got, err := r.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Same(t, s, got)

	_, err = r.Get(ctx, uuid.NewString())
	assert.True(t, errors.IsNotFound(err))
	_, err = r.Get(ctx, "not-a-uuid")
	assert.True(t, errors.IsNotFound(err))
}

func TestGetReopensStoredCart(t *testing.T) {
	ctx := context.Background()
	store := cart.NewMemoryStore()
	r, _ := newTestRegistry(t, store)

	s, err := r.Create(ctx)
	require.NoError(t, err)
	require.NoError(t, s.Cart.AddItem(ctx, "HN1001"))

	// a fresh registry over the same store, as after a restart
	restarted, _ := newTestRegistry(t, store)
	got, err := restarted.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, s.Cart.Lines(), got.Cart.Lines())
}

func TestStartCheckoutReplacesConfirmedCheckout(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestRegistry(t, cart.NewMemoryStore())

	s, err := r.Create(ctx)
	require.NoError(t, err)
	require.NoError(t, s.Cart.AddItem(ctx, "HN1001"))

	first := s.StartCheckout()
	assert.Same(t, first, s.StartCheckout(), "an idle checkout is reused")

	_, err = first.PlaceCashOnDelivery(ctx, customer())
	require.NoError(t, err)
	assert.Same(t, first, s.Checkout(), "status stays readable after confirmation")

	second := s.StartCheckout()
	assert.NotSame(t, first, second)
	assert.Equal(t, domain.CheckoutStateIdle, second.Status().State)
}

func TestCustomerInfo(t *testing.T) {
	r, _ := newTestRegistry(t, cart.NewMemoryStore())
	s, err := r.Create(context.Background())
	require.NoError(t, err)

	s.SetCustomer(customer())
	assert.Equal(t, "Priya", s.Customer().Name)
}

func TestExpireDropsIdleSessions(t *testing.T) {
	ctx := context.Background()
	r, clk := newTestRegistry(t, cart.NewMemoryStore())

	idle, err := r.Create(ctx)
	require.NoError(t, err)
	clk.t = clk.t.Add(50 * time.Minute)
	active, err := r.Create(ctx)
	require.NoError(t, err)

	clk.t = clk.t.Add(20 * time.Minute)
	assert.Equal(t, 1, r.Expire())
	assert.Equal(t, 1, r.Len())

	_, err = r.Get(ctx, idle.ID)
	assert.True(t, errors.IsNotFound(err), "an expired empty cart is gone")
	_, err = r.Get(ctx, active.ID)
	assert.NoError(t, err)
}

func TestRunStopsOnCancel(t *testing.T) {
	r, _ := newTestRegistry(t, cart.NewMemoryStore())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return")
	}
}

func sessionConfig(idle time.Duration) config.SessionConfig {
	return config.SessionConfig{IdleTimeout: idle}
}
