package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/grcspl/storefront/internal/config"
	"github.com/grcspl/storefront/internal/domain"
	"github.com/grcspl/storefront/internal/storeapi"
	"github.com/grcspl/storefront/pkg/errors"
)

var (
	// ErrOTPNotSent is returned when the store API answers a send request with success false
	ErrOTPNotSent = errors.New("something went wrong, please try again later")
	// ErrOTPRejected is returned when the code does not verify
	ErrOTPRejected = errors.New("incorrect OTP, please try again")
)

// MemberAPI is the part of the store API that handles member sign-up
type MemberAPI interface {
	SendOTP(ctx context.Context, phoneNumber string) (*storeapi.OTPResult, error)
	VerifyOTP(ctx context.Context, phoneNumber, otp string) (*storeapi.OTPResult, error)
	RegisterUser(ctx context.Context, input storeapi.RegisterUserInput) error
}

type registrationService struct {
	api      MemberAPI
	password string
	logger   *zap.Logger
}

// NewRegistrationService creates a new registration service.
// Every account is created with the configured initial password.
func NewRegistrationService(api MemberAPI, cfg config.RegistrationConfig, logger *zap.Logger) *registrationService {
	return &registrationService{
		api:      api,
		password: cfg.Password,
		logger:   logger,
	}
}

func (s *registrationService) SendOTP(ctx context.Context, phone string) error {
	normalized, err := validPhone(phone, "phone_number")
	if err != nil {
		return err
	}
	res, err := s.api.SendOTP(ctx, normalized)
	if err != nil {
		return err
	}
	if !res.Success {
		s.logger.Warn("OTP not sent", zap.String("message", res.Message))
		return ErrOTPNotSent
	}
	return nil
}

func (s *registrationService) VerifyOTP(ctx context.Context, phone, otp string) error {
	normalized, err := validPhone(phone, "phone_number")
	if err != nil {
		return err
	}
	if strings.TrimSpace(otp) == "" {
		return &errors.ErrValidation{Message: "otp is required", Fields: map[string]string{"otp": "otp is required"}}
	}
	res, err := s.api.VerifyOTP(ctx, normalized, strings.TrimSpace(otp))
	if err != nil {
		return err
	}
	if !res.Success {
		return ErrOTPRejected
	}
	return nil
}

// Register creates the member account. Field errors from the store API come back as *errors.ErrValidation.
func (s *registrationService) Register(ctx context.Context, req RegistrationRequest) error {
	fields := make(map[string]string)
	if strings.TrimSpace(req.FullName) == "" {
		fields["full_name"] = "Full name is required"
	}
	if !domain.IsValidEmail(req.Email) {
		fields["email"] = "Valid email is required"
	}
	if strings.TrimSpace(req.Purpose) == "" {
		fields["purpose"] = "Valid purpose is required"
	}
	phone, ok := domain.NormalizePhone(req.PhoneNumber)
	if !ok {
		fields["phone_number"] = "phone must have 10 digits"
	}
	if len(fields) > 0 {
		return &errors.ErrValidation{Message: "Please fix the errors in the form.", Fields: fields}
	}

	input := storeapi.RegisterUserInput{
		FullName:     strings.TrimSpace(req.FullName),
		Email:        strings.TrimSpace(req.Email),
		PhoneNumber:  domain.CountryCode + phone,
		Password:     s.password,
		DateOfBirth:  req.DateOfBirth,
		Gender:       req.Gender,
		Occupation:   req.Occupation,
		Location:     storeapi.LocationInput{City: req.City},
		Purpose:      req.Purpose,
		ReferralCode: req.ReferralCode,
		OTPCode:      req.OTPCode,
		OTPVerified:  true,
	}
	if err := s.api.RegisterUser(ctx, input); err != nil {
		if !errors.IsValidation(err) {
			s.logger.Error("Failed to register member", zap.Error(err))
		}
		return err
	}

	s.logger.Info("Member registered", zap.String("phone", maskPhone(phone)))
	return nil
}

func validPhone(phone, field string) (string, error) {
	normalized, ok := domain.NormalizePhone(phone)
	if !ok {
		return "", &errors.ErrValidation{
			Message: "invalid phone number",
			Fields:  map[string]string{field: "phone must have 10 digits"},
		}
	}
	return normalized, nil
}
