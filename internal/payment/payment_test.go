package payment

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/grcspl/storefront/internal/config"
	"github.com/grcspl/storefront/pkg/errors"
)

func testPaymentConfig(apiURL string) config.PaymentConfig {
	return config.PaymentConfig{
		KeyID:        "rzp_test_key",
		KeySecret:    "shh",
		APIURL:       apiURL,
		MerchantName: "GRCSPL",
		Description:  "Order Payment",
		ThemeColor:   "#39b54b",
	}
}

func testRequest() Request {
	return Request{
		Reference: "cart-1",
		Amount:    35000,
		Currency:  "INR",
		Customer:  Prefill{Name: "Priya", Email: "priya@example.com", Contact: "9876543210"},
		Address:   "12 Gandhi Street",
	}
}

type recordingCapturer struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (r *recordingCapturer) Capture(_ context.Context, paymentID string, amount int64, currency string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, paymentID)
	return r.err
}

type payResult struct {
	id  string
	err error
}

func startPay(w *Widget, req Request) <-chan payResult {
	done := make(chan payResult, 1)
	go func() {
		id, err := w.Pay(context.Background(), req)
		done <- payResult{id, err}
	}()
	return done
}

func TestWidgetCompletes(t *testing.T) {
	capturer := &recordingCapturer{}
	w := NewWidget(testPaymentConfig(""), capturer, zap.NewNop())

	done := startPay(w, testRequest())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	opts, err := w.Opened(ctx, "cart-1")
	require.NoError(t, err)
	assert.Equal(t, "rzp_test_key", opts.Key)
	assert.Equal(t, int64(35000), opts.Amount)
	assert.Equal(t, "INR", opts.Currency)
	assert.Equal(t, "GRCSPL", opts.Name)
	assert.Equal(t, "Order Payment", opts.Description)
	assert.Equal(t, "9876543210", opts.Prefill.Contact)
	assert.Equal(t, "12 Gandhi Street", opts.Notes["address"])
	assert.Equal(t, "#39b54b", opts.Theme.Color)
	assert.True(t, w.Pending("cart-1"))

	require.NoError(t, w.Complete("cart-1", "pay_abc"))

	res := <-done
	require.NoError(t, res.err)
	assert.Equal(t, "pay_abc", res.id)
	assert.Equal(t, []string{"pay_abc"}, capturer.calls)
	assert.False(t, w.Pending("cart-1"))
}

func TestWidgetFails(t *testing.T) {
	w := NewWidget(testPaymentConfig(""), nil, zap.NewNop())
	done := startPay(w, testRequest())

	_, err := w.Opened(context.Background(), "cart-1")
	require.NoError(t, err)
	require.NoError(t, w.Fail("cart-1", "card declined"))

	res := <-done
	assert.ErrorIs(t, res.err, ErrPaymentFailed)
	assert.ErrorContains(t, res.err, "card declined")
}

func TestWidgetCaptureFailureKeepsPayment(t *testing.T) {
	capturer := &recordingCapturer{err: errors.New("gateway down")}
	w := NewWidget(testPaymentConfig(""), capturer, zap.NewNop())
	done := startPay(w, testRequest())

	_, err := w.Opened(context.Background(), "cart-1")
	require.NoError(t, err)
	require.NoError(t, w.Complete("cart-1", "pay_abc"))

	res := <-done
	require.NoError(t, res.err)
	assert.Equal(t, "pay_abc", res.id)
}

func TestWidgetRejectsDuplicateReference(t *testing.T) {
	w := NewWidget(testPaymentConfig(""), nil, zap.NewNop())
	done := startPay(w, testRequest())

	_, err := w.Opened(context.Background(), "cart-1")
	require.NoError(t, err)

	_, err = w.Pay(context.Background(), testRequest())
	assert.ErrorIs(t, err, ErrPaymentPending)

	require.NoError(t, w.Fail("cart-1", ""))
	<-done
}

func TestWidgetCallbackWithoutPayment(t *testing.T) {
	w := NewWidget(testPaymentConfig(""), nil, zap.NewNop())

	assert.ErrorIs(t, w.Complete("nope", "pay_1"), ErrUnknownPayment)
	assert.ErrorIs(t, w.Fail("nope", "x"), ErrUnknownPayment)
	assert.True(t, errors.IsValidation(w.Complete("nope", "")))
}

func TestWidgetPayHonoursContext(t *testing.T) {
	w := NewWidget(testPaymentConfig(""), nil, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		_, err := w.Pay(ctx, testRequest())
		done <- err
	}()

	_, err := w.Opened(context.Background(), "cart-1")
	require.NoError(t, err)
	cancel()

	assert.ErrorIs(t, <-done, ErrPaymentFailed)
	assert.False(t, w.Pending("cart-1"))
}

func TestWidgetOpenedGivesUp(t *testing.T) {
	w := NewWidget(testPaymentConfig(""), nil, zap.NewNop())
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := w.Opened(ctx, "cart-1")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	w.mu.Lock()
	assert.Empty(t, w.slots)
	w.mu.Unlock()
}

func TestWidgetValidatesRequest(t *testing.T) {
	w := NewWidget(testPaymentConfig(""), nil, zap.NewNop())

	req := testRequest()
	req.Amount = 0
	_, err := w.Pay(context.Background(), req)
	assert.True(t, errors.IsValidation(err))

	req = testRequest()
	req.Reference = ""
	_, err = w.Pay(context.Background(), req)
	assert.True(t, errors.IsValidation(err))
}

func TestRazorpayCapture(t *testing.T) {
	var gotPath, gotAmount, gotCurrency, gotUser, gotPass string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, r.ParseForm())
		gotAmount = r.PostForm.Get("amount")
		gotCurrency = r.PostForm.Get("currency")
		gotUser, gotPass, _ = r.BasicAuth()
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"id":"pay_abc","status":"captured"}`))
	}))
	defer srv.Close()

	c := NewRazorpayClient(testPaymentConfig(srv.URL), zap.NewNop())
	require.NoError(t, c.Capture(context.Background(), "pay_abc", 35000, "INR"))

	assert.Equal(t, "/v1/payments/pay_abc/capture", gotPath)
	assert.Equal(t, "35000", gotAmount)
	assert.Equal(t, "INR", gotCurrency)
	assert.Equal(t, "rzp_test_key", gotUser)
	assert.Equal(t, "shh", gotPass)
}

func TestRazorpayCaptureRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"description":"already captured"}}`))
	}))
	defer srv.Close()

	c := NewRazorpayClient(testPaymentConfig(srv.URL), zap.NewNop())
	err := c.Capture(context.Background(), "pay_abc", 35000, "INR")

	var rejected *errors.ErrRejected
	require.True(t, errors.As(err, &rejected))
	assert.Equal(t, http.StatusBadRequest, rejected.Status)
	assert.Contains(t, rejected.Message, "already captured")
}

func TestRazorpayCaptureTransport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := NewRazorpayClient(testPaymentConfig(url), zap.NewNop())
	err := c.Capture(context.Background(), "pay_abc", 35000, "INR")
	assert.True(t, errors.IsTransport(err))
}
