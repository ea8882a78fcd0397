package domain

import (
	"regexp"
	"strings"

	"github.com/grcspl/storefront/pkg/errors"
)

// CountryCode is prefixed to every phone number sent upstream
const CountryCode = "+91"

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	digitsOnly   = regexp.MustCompile(`^[0-9]{10}$`)
)

// IsValidEmail applies the same loose check as the website forms
func IsValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// NormalizePhone strips separators and the country prefix.
// The result is only valid when it is exactly ten digits.
func NormalizePhone(phone string) (string, bool) {
	replacer := strings.NewReplacer(" ", "", "-", "", "(", "", ")", "")
	p := replacer.Replace(strings.TrimSpace(phone))
	p = strings.TrimPrefix(p, CountryCode)
	if len(p) == 12 && strings.HasPrefix(p, "91") {
		p = p[2:]
	}
	return p, digitsOnly.MatchString(p)
}

// Validate checks the fields that gate the place-order button
func (c CustomerInfo) Validate() error {
	fields := make(map[string]string)

	if strings.TrimSpace(c.Name) == "" {
		fields["name"] = "name is required"
	}
	if strings.TrimSpace(c.Email) == "" {
		fields["email"] = "email is required"
	} else if !IsValidEmail(c.Email) {
		fields["email"] = "valid email is required"
	}
	if strings.TrimSpace(c.Phone) == "" {
		fields["phone"] = "phone is required"
	} else if _, ok := NormalizePhone(c.Phone); !ok {
		fields["phone"] = "phone must have 10 digits"
	}
	if strings.TrimSpace(c.Address) == "" {
		fields["address"] = "address is required"
	}

	if len(fields) > 0 {
		return &errors.ErrValidation{Message: "invalid customer information", Fields: fields}
	}
	return nil
}
