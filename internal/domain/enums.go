package domain

// PaymentMethod is how the customer pays for an order
type PaymentMethod string

const (
	PaymentMethodCashOnDelivery PaymentMethod = "cash_on_delivery"
	PaymentMethodOnline         PaymentMethod = "online"
)

// IsValid checks if the payment method is valid
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodCashOnDelivery, PaymentMethodOnline:
		return true
	default:
		return false
	}
}

// Label is the customer facing name used on confirmations
func (m PaymentMethod) Label() string {
	switch m {
	case PaymentMethodCashOnDelivery:
		return "Cash on Delivery"
	case PaymentMethodOnline:
		return "Online Payment"
	default:
		return string(m)
	}
}

// PaymentStatus represents whether money has been taken for an order
type PaymentStatus string

const (
	PaymentStatusUnpaid PaymentStatus = "unpaid"
	PaymentStatusPaid   PaymentStatus = "paid"
)

// OrderStatus is the fulfilment status reported by the store API
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// IsValid checks if the order status is one the store API is known to report
func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusPending,
		OrderStatusConfirmed,
		OrderStatusShipped,
		OrderStatusDelivered,
		OrderStatusCancelled:
		return true
	default:
		return false
	}
}

// CheckoutState is the state of a cart's checkout
type CheckoutState string

const (
	CheckoutStateIdle            CheckoutState = "idle"
	CheckoutStateAwaitingPayment CheckoutState = "awaiting_payment"
	CheckoutStateSubmitting      CheckoutState = "submitting"
	CheckoutStateConfirmed       CheckoutState = "confirmed"
	CheckoutStateFailed          CheckoutState = "failed"
)

func (s CheckoutState) String() string {
	return string(s)
}

// IsTerminal reports whether no further transition is possible
func (s CheckoutState) IsTerminal() bool {
	return s == CheckoutStateConfirmed
}

// CanTransitionTo checks if a checkout state transition is valid
func (s CheckoutState) CanTransitionTo(next CheckoutState) bool {
	switch s {
	case CheckoutStateIdle:
		return next == CheckoutStateAwaitingPayment ||
			next == CheckoutStateSubmitting
	case CheckoutStateAwaitingPayment:
		return next == CheckoutStateSubmitting ||
			next == CheckoutStateFailed ||
			next == CheckoutStateIdle
	case CheckoutStateSubmitting:
		return next == CheckoutStateConfirmed ||
			next == CheckoutStateFailed ||
			next == CheckoutStateIdle
	case CheckoutStateFailed:
		return next == CheckoutStateSubmitting ||
			next == CheckoutStateAwaitingPayment ||
			next == CheckoutStateIdle
	case CheckoutStateConfirmed:
		return false // Terminal state
	default:
		return false
	}
}

// NotificationStatus tracks the confirmation email for a confirmed checkout
type NotificationStatus string

const (
	NotificationPending      NotificationStatus = "pending"
	NotificationSent         NotificationStatus = "sent"
	NotificationSentFallback NotificationStatus = "sent_fallback"
	NotificationFailed       NotificationStatus = "failed"
	NotificationSkipped      NotificationStatus = "skipped"
)
