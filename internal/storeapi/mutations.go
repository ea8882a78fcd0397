package storeapi

import (
	"context"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/grcspl/storefront/internal/domain"
	"github.com/grcspl/storefront/pkg/errors"
)

const (
	SendOTPPath              = "/api/otp/send-otp"
	VerifyOTPPath            = "/api/otp/verify-otp"
	RegisterUserPath         = "/api/users/register"
	CreateOrderPath          = "/api/orders"
	RegisterNotificationPath = "/api/notify/register"
	SendEmailPath            = "/api/send-email"
	ContactPath              = "/api/contact"
)

type OTPInput struct {
	PhoneNumber string `json:"phoneNumber"`
	OTP         string `json:"otp,omitempty"`
}

// OTPResult is the store API's answer to both OTP calls
type OTPResult struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// SendOTP asks the store API to text a one-time password to the phone
func (c *Client) SendOTP(ctx context.Context, phoneNumber string) (*OTPResult, error) {
	var result OTPResult
	if err := c.do(ctx, "send otp", http.MethodPost, SendOTPPath, OTPInput{PhoneNumber: phoneNumber}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// VerifyOTP checks the code. A well-formed reply with success false is not an error here.
func (c *Client) VerifyOTP(ctx context.Context, phoneNumber, otp string) (*OTPResult, error) {
	var result OTPResult
	input := OTPInput{PhoneNumber: phoneNumber, OTP: otp}
	if err := c.do(ctx, "verify otp", http.MethodPost, VerifyOTPPath, input, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

type LocationInput struct {
	City string `json:"city"`
}

// RegisterUserInput is the account payload for /api/users/register
type RegisterUserInput struct {
	FullName     string        `json:"fullName"`
	Email        string        `json:"email"`
	PhoneNumber  string        `json:"phoneNumber"`
	Password     string        `json:"password"`
	DateOfBirth  string        `json:"dateOfBirth"`
	Gender       string        `json:"gender"`
	Occupation   string        `json:"occupation"`
	Location     LocationInput `json:"location"`
	Purpose      string        `json:"purpose"`
	ReferralCode string        `json:"referralCode"`
	OTPCode      string        `json:"otpCode"`
	OTPVerified  bool          `json:"otpVerified"`
}

type registerUserResult struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	Errors  []FieldError `json:"errors"`
}

func (r registerUserResult) validationError() error {
	if r.Success || len(r.Errors) == 0 {
		return nil
	}
	fields := make(map[string]string, len(r.Errors))
	for _, fe := range r.Errors {
		if fe.Path != "" && fe.Msg != "" {
			fields[fe.Path] = fe.Msg
		}
	}
	msg := r.Message
	if msg == "" {
		msg = "Registration failed. Please try again."
	}
	return &errors.ErrValidation{Message: msg, Fields: fields}
}

// RegisterUser creates a member account. Server-side field errors come back as *errors.ErrValidation.
func (c *Client) RegisterUser(ctx context.Context, input RegisterUserInput) error {
	var result registerUserResult
	err := c.do(ctx, "register user", http.MethodPost, RegisterUserPath, input, &result)
	if err != nil {
		// Validation failures are sometimes sent with a 4xx status
		var rejected *errors.ErrRejected
		if errors.As(err, &rejected) {
			var body registerUserResult
			if json.Unmarshal([]byte(rejected.Message), &body) == nil {
				if verr := body.validationError(); verr != nil {
					return verr
				}
			}
		}
		return err
	}
	return result.validationError()
}

// CreateOrder records the order and returns what the store API stored
func (c *Client) CreateOrder(ctx context.Context, order *domain.Order) (*domain.OrderRecord, error) {
	var raw json.RawMessage
	if err := c.do(ctx, "create order", http.MethodPost, CreateOrderPath, NewOrderInput(order), &raw); err != nil {
		return nil, err
	}

	record, err := decodeCreatedOrder(raw)
	if err != nil {
		// The order is recorded; an unexpected reply shape must not turn that into a failure
		c.logger.Warn("Unexpected create order response",
			zap.String("invoice_id", order.InvoiceID),
			zap.Error(err),
		)
		return &domain.OrderRecord{InvoiceID: order.InvoiceID, OrderID: order.OrderID}, nil
	}
	if record.InvoiceID == "" {
		record.InvoiceID = order.InvoiceID
	}
	return record, nil
}

// decodeCreatedOrder accepts either the bare record or one wrapped in {data: ...}
func decodeCreatedOrder(raw json.RawMessage) (*domain.OrderRecord, error) {
	if len(raw) == 0 {
		return nil, errors.New("empty response")
	}

	var wrapped struct {
		Data *orderRecord `json:"data"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil && wrapped.Data != nil {
		rec := wrapped.Data.toDomain()
		return &rec, nil
	}

	var bare orderRecord
	if err := json.Unmarshal(raw, &bare); err != nil {
		return nil, err
	}
	rec := bare.toDomain()
	return &rec, nil
}

// NotificationInput is the event opt-in payload
type NotificationInput struct {
	Name                    string          `json:"name"`
	PhoneNumber             string          `json:"phoneNumber"`
	Email                   string          `json:"email"`
	NotificationPreferences map[string]bool `json:"notificationPreferences"`
}

// RegisterNotification opts a person in to event notifications
func (c *Client) RegisterNotification(ctx context.Context, input NotificationInput) error {
	return c.do(ctx, "register notification", http.MethodPost, RegisterNotificationPath, input, nil)
}

// EmailInput is a transactional email relayed by the store API
type EmailInput struct {
	Email   string `json:"email"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
}

// SendEmail relays an HTML email
func (c *Client) SendEmail(ctx context.Context, input EmailInput) error {
	return c.do(ctx, "send email", http.MethodPost, SendEmailPath, input, nil)
}

// ContactInput is the contact form payload
type ContactInput struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}

// SubmitContact delivers a contact form
func (c *Client) SubmitContact(ctx context.Context, input ContactInput) error {
	return c.do(ctx, "submit contact form", http.MethodPost, ContactPath, input, nil)
}
