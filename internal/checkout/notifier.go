package checkout

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"time"

	"go.uber.org/zap"

	"github.com/grcspl/storefront/internal/domain"
	"github.com/grcspl/storefront/internal/storeapi"
)

const (
	confirmationSubject = "Your Order Confirmation"
	fallbackSubject     = "Your Order Confirmation (Retry)"
	fallbackBody        = "<p>Order confirmation - please check your account for details.</p>"
)

//go:embed templates/confirmation.html
var templateFS embed.FS

var confirmationTemplate = template.Must(template.ParseFS(templateFS, "templates/confirmation.html"))

// Mailer relays an HTML email
type Mailer interface {
	SendEmail(ctx context.Context, input storeapi.EmailInput) error
}

// Notifier sends the invoice email for a confirmed order
type Notifier struct {
	mailer  Mailer
	timeout time.Duration
	logger  *zap.Logger
}

// NewNotifier creates a notifier sending through mailer
func NewNotifier(mailer Mailer, logger *zap.Logger) *Notifier {
	return &Notifier{mailer: mailer, timeout: 10 * time.Second, logger: logger}
}

type emailItem struct {
	Name     string
	Category string
	Price    string
	Quantity int
	Subtotal string
}

type emailView struct {
	OrderID       string
	InvoiceID     string
	Date          string
	PaymentMethod string
	TransactionID string
	StatusLine    string
	Customer      domain.CustomerInfo
	Items         []emailItem
	Subtotal      string
	Transport     string
	Total         string
}

// RenderConfirmation builds the invoice email body
func RenderConfirmation(o *domain.Order) (string, error) {
	view := emailView{
		OrderID:       o.OrderID,
		InvoiceID:     o.InvoiceID,
		Date:          o.CreatedAt.Format("02/01/2006, 15:04:05"),
		PaymentMethod: o.PaymentMethod.Label(),
		TransactionID: o.TransactionID,
		StatusLine:    "Order Confirmed",
		Customer:      o.Customer,
		Subtotal:      o.Subtotal.StringFixed(2),
		Transport:     o.ShippingCharges.StringFixed(2),
		Total:         o.TotalAmount.StringFixed(2),
	}
	if o.PaymentMethod == domain.PaymentMethodOnline && o.TransactionID != "" {
		view.StatusLine = "Payment Successful, Order Confirmed"
	}
	for _, it := range o.Items {
		view.Items = append(view.Items, emailItem{
			Name:     it.ProductName,
			Category: it.Category,
			Price:    it.Price.StringFixed(2),
			Quantity: it.Quantity,
			Subtotal: it.Subtotal.StringFixed(2),
		})
	}

	var buf bytes.Buffer
	if err := confirmationTemplate.Execute(&buf, view); err != nil {
		return "", fmt.Errorf("failed to render confirmation email: %w", err)
	}
	return buf.String(), nil
}

// Notify sends the confirmation and, if that fails, one minimal retry.
// It never returns an error: the order stands whatever happens here.
func (n *Notifier) Notify(ctx context.Context, o *domain.Order) domain.NotificationStatus {
	log := n.logger.With(zap.String("invoice_id", o.InvoiceID))

	if o.Customer.Email == "" || len(o.Items) == 0 {
		log.Info("Skipping confirmation email")
		return domain.NotificationSkipped
	}

	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	body, err := RenderConfirmation(o)
	if err == nil {
		err = n.mailer.SendEmail(ctx, storeapi.EmailInput{
			Email:   o.Customer.Email,
			Subject: confirmationSubject,
			HTML:    body,
		})
		if err == nil {
			log.Info("Confirmation email sent")
			return domain.NotificationSent
		}
	}
	log.Warn("Confirmation email failed, retrying with minimal body", zap.Error(err))

	err = n.mailer.SendEmail(ctx, storeapi.EmailInput{
		Email:   o.Customer.Email,
		Subject: fallbackSubject,
		HTML:    fallbackBody,
	})
	if err != nil {
		log.Error("Confirmation email retry failed", zap.Error(err))
		return domain.NotificationFailed
	}
	log.Info("Fallback confirmation email sent")
	return domain.NotificationSentFallback
}
