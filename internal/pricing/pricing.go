// Package pricing derives transport charges and order totals from cart aggregates.
package pricing

import (
	"github.com/shopspring/decimal"
)

// Currency is the only currency the storefront sells in
const Currency = "INR"

type tier struct {
	maxGrams int
	charge   int64
}

// Inclusive upper bounds; weights above the last tier pay the overweight rate
var tiers = []tier{
	{maxGrams: 500, charge: 40},
	{maxGrams: 1000, charge: 60},
	{maxGrams: 2000, charge: 80},
	{maxGrams: 5000, charge: 120},
}

const (
	overweightBase      = 120
	overweightStepGrams = 1000
	overweightStepPrice = 20
)

// TransportCharge returns the delivery charge for a cart weighing weightGrams.
// An empty cart (0g) falls in the first tier and is charged 40.
func TransportCharge(weightGrams int) decimal.Decimal {
	for _, t := range tiers {
		if weightGrams <= t.maxGrams {
			return decimal.NewFromInt(t.charge)
		}
	}

	last := tiers[len(tiers)-1].maxGrams
	extra := weightGrams - last
	steps := (extra + overweightStepGrams - 1) / overweightStepGrams
	return decimal.NewFromInt(overweightBase + int64(steps)*overweightStepPrice)
}

// Quote is the price breakdown shown on the checkout page
type Quote struct {
	Subtotal        decimal.Decimal
	TotalWeight     int
	TransportCharge decimal.Decimal
	Tax             decimal.Decimal
	Discount        decimal.Decimal
	Total           decimal.Decimal
}

// NewQuote prices a cart from its subtotal and total weight.
// Tax and discount are reserved and always zero.
func NewQuote(subtotal decimal.Decimal, totalWeight int) Quote {
	transport := TransportCharge(totalWeight)
	return Quote{
		Subtotal:        subtotal,
		TotalWeight:     totalWeight,
		TransportCharge: transport,
		Tax:             decimal.Zero,
		Discount:        decimal.Zero,
		Total:           subtotal.Add(transport),
	}
}

// ToMinorUnits converts rupees to paise for the payment gateway
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}
