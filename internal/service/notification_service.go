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

// Preferences every event sign-up is registered with
var defaultPreferences = map[string]bool{
	"newProduct":       true,
	"discount & offer": true,
	"Product Traning":  false,
	"Business updates": true,
}

// contactSubjects are the options offered by the contact form
var contactSubjects = map[string]bool{
	"business": true,
	"products": true,
	"support":  true,
	"other":    true,
}

// OutreachAPI is the part of the store API that takes event sign-ups and contact forms
type OutreachAPI interface {
	RegisterNotification(ctx context.Context, input storeapi.NotificationInput) error
	SubmitContact(ctx context.Context, input storeapi.ContactInput) error
}

type notificationService struct {
	api          OutreachAPI
	defaultEmail string
	logger       *zap.Logger
}

// NewNotificationService creates a new notification service
func NewNotificationService(api OutreachAPI, cfg config.RegistrationConfig, logger *zap.Logger) *notificationService {
	return &notificationService{
		api:          api,
		defaultEmail: cfg.NotifyDefaultEmail,
		logger:       logger,
	}
}

// Subscribe opts a person in to event notifications. A missing email falls back to the shop address.
func (s *notificationService) Subscribe(ctx context.Context, req SubscribeRequest) error {
	fields := make(map[string]string)
	if strings.TrimSpace(req.Name) == "" {
		fields["name"] = "name is required"
	}
	if strings.TrimSpace(req.PhoneNumber) == "" {
		fields["phone_number"] = "phone is required"
	}
	email := strings.TrimSpace(req.Email)
	if email != "" && !domain.IsValidEmail(email) {
		fields["email"] = "valid email is required"
	}
	if len(fields) > 0 {
		return &errors.ErrValidation{Message: "invalid notification request", Fields: fields}
	}
	if email == "" {
		email = s.defaultEmail
	}

	prefs := make(map[string]bool, len(defaultPreferences))
	for k, v := range defaultPreferences {
		prefs[k] = v
	}

	err := s.api.RegisterNotification(ctx, storeapi.NotificationInput{
		Name:                    strings.TrimSpace(req.Name),
		PhoneNumber:             strings.TrimSpace(req.PhoneNumber),
		Email:                   email,
		NotificationPreferences: prefs,
	})
	if err != nil {
		s.logger.Error("Failed to register for notifications", zap.Error(err))
		return err
	}
	return nil
}

// SubmitContact validates and forwards the contact form
func (s *notificationService) SubmitContact(ctx context.Context, req ContactRequest) error {
	fields := make(map[string]string)
	if strings.TrimSpace(req.Name) == "" {
		fields["name"] = "name is required"
	}
	if !domain.IsValidEmail(req.Email) {
		fields["email"] = "valid email is required"
	}
	if !contactSubjects[req.Subject] {
		fields["subject"] = "select a subject"
	}
	if strings.TrimSpace(req.Message) == "" {
		fields["message"] = "message is required"
	}
	if len(fields) > 0 {
		return &errors.ErrValidation{Message: "invalid contact form", Fields: fields}
	}

	err := s.api.SubmitContact(ctx, storeapi.ContactInput{
		Name:    strings.TrimSpace(req.Name),
		Email:   strings.TrimSpace(req.Email),
		Phone:   strings.TrimSpace(req.Phone),
		Subject: req.Subject,
		Message: strings.TrimSpace(req.Message),
	})
	if err != nil {
		s.logger.Error("Failed to submit contact form", zap.Error(err))
		return err
	}
	return nil
}
