// Package session keeps the server-side state of each shopper: cart, checkout form and checkout.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/grcspl/storefront/internal/cart"
	"github.com/grcspl/storefront/internal/checkout"
	"github.com/grcspl/storefront/internal/config"
	"github.com/grcspl/storefront/internal/domain"
	"github.com/grcspl/storefront/pkg/errors"
)

// CoordinatorFactory builds the checkout for a cart
type CoordinatorFactory func(c *cart.Cart) *checkout.Coordinator

// Session is one shopper's cart and checkout
type Session struct {
	ID   string
	Cart *cart.Cart

	newCoordinator CoordinatorFactory

	mu          sync.Mutex
	customer    domain.CustomerInfo
	coordinator *checkout.Coordinator
	lastSeen    time.Time
}

func (s *Session) Customer() domain.CustomerInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.customer
}

func (s *Session) SetCustomer(info domain.CustomerInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.customer = info
}

// Checkout returns the current checkout, including a confirmed one
func (s *Session) Checkout() *checkout.Coordinator {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.coordinator
}

// StartCheckout returns a checkout that can take a new attempt.
// A confirmed checkout is replaced, since its cart has already been ordered.
func (s *Session) StartCheckout() *checkout.Coordinator {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.coordinator.Status().State.IsTerminal() {
		s.coordinator = s.newCoordinator(s.Cart)
	}
	return s.coordinator
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

// busy sessions hold a running attempt or a paid order and are never expired
func (s *Session) idleSince(now time.Time) (time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.coordinator.Status()
	if st.InFlight || st.PendingOrder != nil {
		return 0, false
	}
	return now.Sub(s.lastSeen), true
}

// Registry holds the live sessions
type Registry struct {
	products       cart.ProductSource
	store          cart.Store
	newCoordinator CoordinatorFactory
	idleTimeout    time.Duration
	now            func() time.Time
	logger         *zap.Logger

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewRegistry creates an empty registry. newCoordinator builds the checkout for each session cart.
func NewRegistry(
	products cart.ProductSource,
	store cart.Store,
	newCoordinator CoordinatorFactory,
	cfg config.SessionConfig,
	logger *zap.Logger,
) *Registry {
	return &Registry{
		products:       products,
		store:          store,
		newCoordinator: newCoordinator,
		idleTimeout:    cfg.IdleTimeout,
		now:            time.Now,
		logger:         logger,
		sessions:       make(map[string]*Session),
	}
}

// Create opens a session with a new, empty cart
func (r *Registry) Create(ctx context.Context) (*Session, error) {
	return r.open(ctx, uuid.NewString())
}

// Get returns the session for id. A session whose cart survived a restart in the cart store is reopened.
func (r *Registry) Get(ctx context.Context, id string) (*Session, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, &errors.ErrNotFound{Resource: "cart", ID: id}
	}

	r.mu.Lock()
	s, ok := r.sessions[id]
	r.mu.Unlock()
	if ok {
		s.touch(r.now())
		return s, nil
	}

	lines, err := r.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, &errors.ErrNotFound{Resource: "cart", ID: id}
	}
	r.logger.Info("Reopening stored cart", zap.String("cart_id", id))
	return r.open(ctx, id)
}

func (r *Registry) open(ctx context.Context, id string) (*Session, error) {
	c, err := cart.New(ctx, id, r.products, r.store, r.logger)
	if err != nil {
		return nil, err
	}
	s := &Session{
		ID:             id,
		Cart:           c,
		newCoordinator: r.newCoordinator,
		coordinator:    r.newCoordinator(c),
		lastSeen:       r.now(),
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	// Two requests may reopen the same stored cart at once
	if existing, ok := r.sessions[id]; ok {
		return existing, nil
	}
	r.sessions[id] = s
	return s, nil
}

// Len returns the number of live sessions
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Expire drops sessions idle for longer than the idle timeout. Stored carts are kept.
func (r *Registry) Expire() int {
	if r.idleTimeout <= 0 {
		return 0
	}
	now := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()

	expired := 0
	for id, s := range r.sessions {
		idle, ok := s.idleSince(now)
		if !ok || idle < r.idleTimeout {
			continue
		}
		delete(r.sessions, id)
		expired++
	}
	if expired > 0 {
		r.logger.Info("Expired idle sessions", zap.Int("count", expired), zap.Int("remaining", len(r.sessions)))
	}
	return expired
}

// Run expires idle sessions until ctx is cancelled
func (r *Registry) Run(ctx context.Context) error {
	if r.idleTimeout <= 0 {
		<-ctx.Done()
		return nil
	}
	interval := r.idleTimeout / 4
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			r.Expire()
		}
	}
}
