package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/grcspl/storefront/internal/api"
	"github.com/grcspl/storefront/internal/api/handlers"
	"github.com/grcspl/storefront/internal/cart"
	"github.com/grcspl/storefront/internal/catalog"
	"github.com/grcspl/storefront/internal/checkout"
	"github.com/grcspl/storefront/internal/config"
	"github.com/grcspl/storefront/internal/order"
	"github.com/grcspl/storefront/internal/payment"
	"github.com/grcspl/storefront/internal/reconcile"
	"github.com/grcspl/storefront/internal/repository/postgres"
	"github.com/grcspl/storefront/internal/repository/redis"
	"github.com/grcspl/storefront/internal/service"
	"github.com/grcspl/storefront/internal/session"
	"github.com/grcspl/storefront/internal/storeapi"
	"github.com/grcspl/storefront/internal/telemetry"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("Server stopped", zap.Error(err))
	}
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}

	zapCfg := zap.NewDevelopmentConfig()
	if cfg.Environment == "production" {
		zapCfg = zap.NewProductionConfig()
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)
	return zapCfg.Build()
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(cfg.TracingEnabled, cfg.Environment, os.Stdout)
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Warn("Failed to flush traces", zap.Error(err))
		}
	}()

	products, err := catalog.LoadFile(cfg.CatalogPath)
	if err != nil {
		return err
	}
	logger.Info("Catalog loaded", zap.Int("products", products.Len()))

	client := storeapi.NewClient(cfg.StoreAPI, logger)

	// Cart persistence
	var carts cart.Store
	switch cfg.CartStore.Driver {
	case "redis":
		rdb, err := redis.NewClient(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		defer rdb.Close()
		carts = redis.NewCartStore(rdb, cfg.CartStore.TTL, logger)
	default:
		carts = cart.NewMemoryStore()
	}

	// Pending paid orders
	var queue reconcile.Queue
	switch cfg.Reconcile.Store {
	case "postgres":
		db, err := postgres.NewConnection(cfg.Database)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := postgres.Migrate(ctx, db); err != nil {
			return err
		}
		queue = postgres.NewPendingOrderRepository(db, logger)
	default:
		logger.Warn("Pending orders are kept in memory and will not survive a restart")
		queue = reconcile.NewMemoryQueue()
	}

	// Online payment stays nil unless configured
	var gateway payment.Gateway
	var bridge handlers.PaymentBridge
	if cfg.Payment.Enabled() {
		widget := payment.NewWidget(cfg.Payment, payment.NewRazorpayClient(cfg.Payment, logger), logger)
		gateway = widget
		bridge = widget
	} else {
		logger.Info("Online payment disabled, only cash on delivery is offered")
	}

	notifier := checkout.NewNotifier(client, logger)
	builder := order.NewBuilder()

	sessions := session.NewRegistry(products, carts, func(c *cart.Cart) *checkout.Coordinator {
		return checkout.NewCoordinator(checkout.Deps{
			Cart:         c,
			Builder:      builder,
			Submitter:    client,
			Gateway:      gateway,
			Queue:        queue,
			Notifier:     notifier,
			OrderTimeout: cfg.StoreAPI.OrderTimeout,
		}, logger)
	}, cfg.Session, logger)

	router := api.NewRouter(cfg, api.Dependencies{
		Catalog:      products,
		Sessions:     sessions,
		Payments:     bridge,
		Orders:       service.NewOrderLookupService(client, logger),
		Registration: service.NewRegistrationService(client, cfg.Registration, logger),
		Outreach:     service.NewNotificationService(client, cfg.Registration, logger),
		Locator:      service.NewLocationService(cfg.Location, logger),
	}, logger)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           api.NewHandler(router),
		ReadHeaderTimeout: 10 * time.Second,
	}

	worker := reconcile.NewWorker(queue, client, cfg.Reconcile, cfg.StoreAPI.OrderTimeout, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting server", zap.String("port", cfg.Port), zap.String("environment", cfg.Environment))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return worker.Run(gctx)
	})
	g.Go(func() error {
		return sessions.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.StoreAPI.OrderTimeout+5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
