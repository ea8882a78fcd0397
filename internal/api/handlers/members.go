package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/grcspl/storefront/internal/service"
	"github.com/grcspl/storefront/pkg/errors"
)

// Registration is the member sign-up flow
type Registration interface {
	SendOTP(ctx context.Context, phone string) error
	VerifyOTP(ctx context.Context, phone, otp string) error
	Register(ctx context.Context, req service.RegistrationRequest) error
}

// Outreach takes event sign-ups and contact forms
type Outreach interface {
	Subscribe(ctx context.Context, req service.SubscribeRequest) error
	SubmitContact(ctx context.Context, req service.ContactRequest) error
}

// Locator reverse-geocodes the shopper's position
type Locator interface {
	Locate(ctx context.Context, lat, lon float64) (*service.Location, error)
}

// HandleSendOTP handles POST /v1/otp/send
func HandleSendOTP(registration Registration, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req service.OTPRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			bindingError(c, err)
			return
		}
		if err := registration.SendOTP(c.Request.Context(), req.PhoneNumber); err != nil {
			writeError(c, err, logger)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "OTP sent successfully!"})
	}
}

// HandleVerifyOTP handles POST /v1/otp/verify
func HandleVerifyOTP(registration Registration, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req service.OTPRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			bindingError(c, err)
			return
		}
		if err := registration.VerifyOTP(c.Request.Context(), req.PhoneNumber, req.OTP); err != nil {
			writeError(c, err, logger)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "OTP verified successfully!"})
	}
}

// HandleRegister handles POST /v1/registrations
func HandleRegister(registration Registration, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req service.RegistrationRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			bindingError(c, err)
			return
		}
		if err := registration.Register(c.Request.Context(), req); err != nil {
			writeError(c, err, logger)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"success": true})
	}
}

// HandleSubscribe handles POST /v1/notifications
func HandleSubscribe(outreach Outreach, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req service.SubscribeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			bindingError(c, err)
			return
		}
		if err := outreach.Subscribe(c.Request.Context(), req); err != nil {
			writeError(c, err, logger)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"success": true})
	}
}

// HandleContact handles POST /v1/contact
func HandleContact(outreach Outreach, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req service.ContactRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			bindingError(c, err)
			return
		}
		if err := outreach.SubmitContact(c.Request.Context(), req); err != nil {
			writeError(c, err, logger)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"success": true})
	}
}

// HandleLocate handles GET /v1/location?lat=&lon=
func HandleLocate(locator Locator, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		fields := make(map[string]string)
		lat, err := strconv.ParseFloat(c.Query("lat"), 64)
		if err != nil {
			fields["lat"] = "latitude must be a number"
		}
		lon, err := strconv.ParseFloat(c.Query("lon"), 64)
		if err != nil {
			fields["lon"] = "longitude must be a number"
		}
		if len(fields) > 0 {
			writeError(c, &errors.ErrValidation{Message: "invalid coordinates", Fields: fields}, logger)
			return
		}

		loc, err := locator.Locate(c.Request.Context(), lat, lon)
		if err != nil {
			writeError(c, err, logger)
			return
		}
		c.JSON(http.StatusOK, loc)
	}
}
