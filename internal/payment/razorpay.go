package payment

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/grcspl/storefront/internal/config"
	"github.com/grcspl/storefront/pkg/errors"
)

// RazorpayClient talks to the Razorpay REST API with the server-side key pair
type RazorpayClient struct {
	baseURL    string
	keyID      string
	keySecret  string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewRazorpayClient creates a new Razorpay API client
func NewRazorpayClient(cfg config.PaymentConfig, logger *zap.Logger) *RazorpayClient {
	return &RazorpayClient{
		baseURL:   strings.TrimSuffix(cfg.APIURL, "/"),
		keyID:     cfg.KeyID,
		keySecret: cfg.KeySecret,
		httpClient: &http.Client{
			Timeout:   30 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		logger: logger,
	}
}

// Capture settles an authorized payment for amount minor units
func (c *RazorpayClient) Capture(ctx context.Context, paymentID string, amount int64, currency string) error {
	const op = "capture payment"

	form := url.Values{}
	form.Set("amount", strconv.FormatInt(amount, 10))
	form.Set("currency", currency)

	endpoint := fmt.Sprintf("%s/v1/payments/%s/capture", c.baseURL, url.PathEscape(paymentID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(c.keyID, c.keySecret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &errors.ErrTransport{Op: op, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &errors.ErrTransport{Op: op, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Warn("Razorpay capture rejected",
			zap.String("payment_id", paymentID),
			zap.Int("status", resp.StatusCode),
		)
		return &errors.ErrRejected{Op: op, Status: resp.StatusCode, Message: string(body)}
	}
	return nil
}
