package service

import "github.com/grcspl/storefront/internal/domain"

// RegistrationRequest represents the member registration form
type RegistrationRequest struct {
	FullName     string `json:"full_name"`
	Email        string `json:"email"`
	PhoneNumber  string `json:"phone_number"`
	DateOfBirth  string `json:"date_of_birth"`
	Gender       string `json:"gender"`
	Occupation   string `json:"occupation"`
	City         string `json:"city"`
	Purpose      string `json:"purpose"`
	ReferralCode string `json:"referral_code"`
	OTPCode      string `json:"otp_code"`
}

type OTPRequest struct {
	PhoneNumber string `json:"phone_number" binding:"required"`
	OTP         string `json:"otp"`
}

// SubscribeRequest represents the event notification opt-in
type SubscribeRequest struct {
	Name        string `json:"name" binding:"required"`
	PhoneNumber string `json:"phone_number" binding:"required"`
	Email       string `json:"email"`
}

// ContactRequest represents the contact form
type ContactRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}

// LookupResult separates "no orders" from a failed lookup, which is returned as an error
type LookupResult struct {
	Phone  string               `json:"phone"`
	Found  bool                 `json:"found"`
	Orders []domain.OrderRecord `json:"orders"`
}

// Location is a reverse-geocoded position used to pre-fill the address form
type Location struct {
	Address string `json:"address"`
	City    string `json:"city"`
	Pincode string `json:"pincode"`
}
