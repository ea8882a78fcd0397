package main

import (
	"fmt"
	"os"

	"github.com/grcspl/storefront/internal/catalog"
	"github.com/grcspl/storefront/internal/config"
	"github.com/grcspl/storefront/internal/domain"
	"github.com/grcspl/storefront/internal/pricing"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: go run cmd/find-product/main.go <product-code | search text>")
		fmt.Println("Example: go run cmd/find-product/main.go HN1001")
		fmt.Println("Example: go run cmd/find-product/main.go \"herbal tea\"")
		os.Exit(1)
	}

	query := os.Args[1]

	// CATALOG_PATH is the only setting needed, so a missing store API URL is not fatal here
	path := os.Getenv("CATALOG_PATH")
	if cfg, err := config.Load(); err == nil {
		path = cfg.CatalogPath
	}

	products, err := catalog.LoadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load catalog: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("🔍 Searching %d products for: %s\n\n", products.Len(), query)

	if p, err := products.Get(query); err == nil {
		fmt.Printf("✅ Found product!\n\n")
		printProduct(p)
		return
	}

	matches := products.Search(query)
	if len(matches) == 0 {
		fmt.Printf("❌ Nothing in the catalog matches '%s'.\n", query)
		fmt.Printf("\nCategories:\n")
		for _, c := range products.Categories() {
			fmt.Printf("  - %s\n", c)
		}
		os.Exit(1)
	}

	fmt.Printf("✅ %d matching products\n\n", len(matches))
	for _, p := range matches {
		printProduct(p)
		fmt.Println()
	}
}

func printProduct(p *domain.Product) {
	stock := "in stock"
	if !p.InStock {
		stock = "out of stock"
	}
	fmt.Printf("Code: %s\n", p.Code)
	fmt.Printf("Name: %s\n", p.Name)
	fmt.Printf("Category: %s\n", p.Category)
	fmt.Printf("MRP: ₹%s  Price: ₹%s (%d%% off)\n", p.MRP.StringFixed(2), p.DiscountPrice.StringFixed(2), p.DiscountPercent())
	fmt.Printf("Weight: %dg  Business value: %d  (%s)\n", p.WeightGrams, p.BusinessValue, stock)
	fmt.Printf("Shipping for one unit: ₹%s\n", pricing.TransportCharge(p.WeightGrams).StringFixed(2))
}
