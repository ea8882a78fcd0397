package postgres

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"

	"github.com/grcspl/storefront/internal/config"
	"github.com/grcspl/storefront/internal/domain"
	"github.com/grcspl/storefront/internal/reconcile"
	"github.com/grcspl/storefront/pkg/errors"
)

type PendingOrdersTestSuite struct {
	suite.Suite
	db   *sql.DB
	repo *pendingOrderRepository
	ctx  context.Context
}

func TestPendingOrdersTestSuite(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	suite.Run(t, &PendingOrdersTestSuite{db: mustConnect(t, dsn)})
}

func mustConnect(t *testing.T, dsn string) *sql.DB {
	db, err := NewConnection(config.DatabaseConfig{URL: dsn})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	return db
}

func (s *PendingOrdersTestSuite) SetupSuite() {
	s.ctx = context.Background()
	s.Require().NoError(Migrate(s.ctx, s.db))
	s.repo = NewPendingOrderRepository(s.db, zap.NewNop())
}

func (s *PendingOrdersTestSuite) TearDownSuite() {
	s.db.Close()
}

func (s *PendingOrdersTestSuite) order() *domain.Order {
	return &domain.Order{
		InvoiceID:     "INV-TEST-" + uuid.NewString(),
		TransactionID: "pay_" + uuid.NewString(),
		PaymentMethod: domain.PaymentMethodOnline,
		PaymentStatus: domain.PaymentStatusPaid,
		Subtotal:      decimal.NewFromInt(270),
		TotalAmount:   decimal.NewFromInt(350),
		Items: []domain.OrderItem{
			{ProductName: "Detergent", Price: decimal.NewFromInt(110), Quantity: 2, Subtotal: decimal.NewFromInt(220)},
		},
	}
}

func (s *PendingOrdersTestSuite) TestRoundTrip() {
	o := s.order()
	s.Require().NoError(s.repo.Enqueue(s.ctx, o, errors.New("timeout")))
	s.Require().NoError(s.repo.Enqueue(s.ctx, o, errors.New("timeout")))

	e, err := s.repo.Claim(s.ctx, o.TransactionID)
	s.Require().NoError(err)
	s.Equal(o.InvoiceID, e.Order.InvoiceID)
	s.Equal("350", e.Order.TotalAmount.String())
	s.Equal("timeout", e.LastError)

	_, err = s.repo.Claim(s.ctx, o.TransactionID)
	s.ErrorIs(err, reconcile.ErrAlreadyClaimed)

	s.Require().NoError(s.repo.Release(s.ctx, o.TransactionID, errors.New("503"), time.Now().Add(-time.Second)))

	due, err := s.repo.ClaimDue(s.ctx, time.Now(), 100)
	s.Require().NoError(err)
	found := false
	for _, d := range due {
		if d.Order.TransactionID == o.TransactionID {
			found = true
			s.Equal(1, d.Attempts)
		}
	}
	s.True(found)

	s.Require().NoError(s.repo.Resolve(s.ctx, o.TransactionID))
	_, err = s.repo.Claim(s.ctx, o.TransactionID)
	s.ErrorIs(err, reconcile.ErrResolved)
}

func (s *PendingOrdersTestSuite) TestOrdersSharingAnInvoiceIDAreBothKept() {
	first, second := s.order(), s.order()
	second.InvoiceID = first.InvoiceID

	s.Require().NoError(s.repo.Enqueue(s.ctx, first, errors.New("timeout")))
	s.Require().NoError(s.repo.Enqueue(s.ctx, second, errors.New("timeout")))

	pending, err := s.repo.Pending(s.ctx)
	s.Require().NoError(err)
	var txns []string
	for _, e := range pending {
		if e.Order.InvoiceID == first.InvoiceID {
			txns = append(txns, e.Order.TransactionID)
		}
	}
	s.ElementsMatch([]string{first.TransactionID, second.TransactionID}, txns)

	s.Require().NoError(s.repo.Resolve(s.ctx, first.TransactionID))
	_, err = s.repo.Claim(s.ctx, second.TransactionID)
	s.NoError(err)
}

func (s *PendingOrdersTestSuite) TestEnqueueRequiresTransaction() {
	o := s.order()
	o.TransactionID = ""
	s.True(errors.IsValidation(s.repo.Enqueue(s.ctx, o, nil)))
}

func (s *PendingOrdersTestSuite) TestClaimUnknown() {
	_, err := s.repo.Claim(s.ctx, "pay_nope_"+uuid.NewString())
	s.ErrorIs(err, reconcile.ErrNotQueued)
}
