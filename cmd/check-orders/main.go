package main

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/grcspl/storefront/internal/config"
	"github.com/grcspl/storefront/internal/service"
	"github.com/grcspl/storefront/internal/storeapi"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: go run cmd/check-orders/main.go <phone-number>")
		fmt.Println("Example: go run cmd/check-orders/main.go 9876543210")
		os.Exit(1)
	}

	phone := os.Args[1]

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	client := storeapi.NewClient(cfg.StoreAPI, logger)
	lookup := service.NewOrderLookupService(client, logger)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.StoreAPI.OrderTimeout)
	defer cancel()

	result, err := lookup.Lookup(ctx, phone)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to look up orders: %v\n", err)
		os.Exit(1)
	}

	if !result.Found {
		fmt.Printf("❌ No orders found for %s\n", result.Phone)
		os.Exit(1)
	}

	fmt.Printf("✅ %d orders for %s\n\n", len(result.Orders), result.Phone)
	for _, o := range result.Orders {
		fmt.Printf("Order %s  Invoice %s\n", o.OrderID, o.InvoiceID)
		fmt.Printf("  Placed: %s\n", o.CreatedAt.Format("02 Jan 2006 15:04"))
		fmt.Printf("  Status: %s  Payment: %s (%s)\n", o.Status, o.PaymentMethod, o.PaymentStatus)
		if o.TransactionID != "" {
			fmt.Printf("  Transaction: %s\n", o.TransactionID)
		}
		for _, item := range o.Items {
			fmt.Printf("  - %s x%d  ₹%s\n", item.ProductName, item.Quantity, item.Subtotal.StringFixed(2))
		}
		fmt.Printf("  Total: ₹%s (shipping ₹%s)\n", o.TotalAmount.StringFixed(2), o.ShippingCharges.StringFixed(2))
		if o.TrackingNumber != "" {
			fmt.Printf("  Tracking: %s\n", o.TrackingNumber)
		}
		if o.EstimatedDelivery != nil {
			fmt.Printf("  Estimated delivery: %s\n", o.EstimatedDelivery.Format("02 Jan 2006"))
		}
		fmt.Println()
	}
}
