package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/grcspl/storefront/internal/api/handlers"
	"github.com/grcspl/storefront/internal/api/middleware"
	"github.com/grcspl/storefront/internal/catalog"
	"github.com/grcspl/storefront/internal/config"
	"github.com/grcspl/storefront/internal/session"
)

// Dependencies are the components the HTTP API serves
type Dependencies struct {
	Catalog      *catalog.Catalog
	Sessions     *session.Registry
	Payments     handlers.PaymentBridge // nil when online payment is disabled
	Orders       handlers.OrderLookup
	Registration handlers.Registration
	Outreach     handlers.Outreach
	Locator      handlers.Locator
}

// NewRouter creates and configures the Gin router
func NewRouter(cfg *config.Config, deps Dependencies, logger *zap.Logger) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Middleware
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.Logging(logger))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":          "ok",
			"online_payments": deps.Payments != nil,
			"sessions":        deps.Sessions.Len(),
		})
	})

	checkoutOpts := handlers.CheckoutOptions{
		PaymentWait:  cfg.Payment.WaitTimeout,
		OrderTimeout: cfg.StoreAPI.OrderTimeout,
	}

	// API v1 routes
	v1 := router.Group("/v1")
	{
		v1.GET("/products", handlers.HandleListProducts(deps.Catalog, logger))
		v1.GET("/products/:code", handlers.HandleGetProduct(deps.Catalog, logger))

		carts := v1.Group("/carts")
		{
			carts.POST("", handlers.HandleCreateCart(deps.Sessions, logger))
			carts.GET("/:id", handlers.HandleGetCart(deps.Sessions, logger))
			carts.POST("/:id/items", handlers.HandleAddItem(deps.Sessions, logger))
			carts.PUT("/:id/items/:code", handlers.HandleUpdateQuantity(deps.Sessions, logger))
			carts.DELETE("/:id/items/:code", handlers.HandleRemoveItem(deps.Sessions, logger))
			carts.PUT("/:id/customer", handlers.HandleSetCustomer(deps.Sessions, logger))

			carts.GET("/:id/checkout", handlers.HandleGetCheckout(deps.Sessions, logger))
			carts.DELETE("/:id/checkout", handlers.HandleAbandonCheckout(deps.Sessions, logger))
			carts.POST("/:id/checkout/cod", handlers.HandlePlaceCOD(deps.Sessions, logger))
			carts.POST("/:id/checkout/online", handlers.HandleStartOnlinePayment(deps.Sessions, deps.Payments, checkoutOpts, logger))
			carts.POST("/:id/checkout/online/callback", handlers.HandlePaymentCallback(deps.Sessions, deps.Payments, checkoutOpts, logger))
			carts.POST("/:id/checkout/online/failure", handlers.HandlePaymentFailure(deps.Sessions, deps.Payments, checkoutOpts, logger))
			carts.POST("/:id/checkout/retry", handlers.HandleRetrySubmission(deps.Sessions, logger))
		}

		v1.GET("/orders", handlers.HandleLookupOrders(deps.Orders, logger))

		v1.POST("/otp/send", handlers.HandleSendOTP(deps.Registration, logger))
		v1.POST("/otp/verify", handlers.HandleVerifyOTP(deps.Registration, logger))
		v1.POST("/registrations", handlers.HandleRegister(deps.Registration, logger))
		v1.POST("/notifications", handlers.HandleSubscribe(deps.Outreach, logger))
		v1.POST("/contact", handlers.HandleContact(deps.Outreach, logger))
		v1.GET("/location", handlers.HandleLocate(deps.Locator, logger))
	}

	return router
}

// NewHandler wraps the router with server-side tracing
func NewHandler(router *gin.Engine) http.Handler {
	return otelhttp.NewHandler(router, "storefront")
}
