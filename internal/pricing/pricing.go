// Package pricing computes order totals from item prices.
package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/fjod/cats-den/internal/domain"
)

// Policy holds the flat shipping charge and the sales tax rate.
type Policy struct {
	ShippingFlat float64
	TaxRate      float64
}

func Default() Policy {
	return Policy{ShippingFlat: 150, TaxRate: 0.08}
}

// Compute derives subtotal, shipping, tax and total for the given prices.
// Shipping is charged only when there is at least one item. Amounts are
// rounded to cents.
func (p Policy) Compute(prices []float64) domain.Totals {
	subtotal := decimal.Zero
	for _, price := range prices {
		subtotal = subtotal.Add(decimal.NewFromFloat(price))
	}

	shipping := decimal.Zero
	if len(prices) > 0 {
		shipping = decimal.NewFromFloat(p.ShippingFlat)
	}
	tax := subtotal.Mul(decimal.NewFromFloat(p.TaxRate)).Round(2)
	total := subtotal.Add(shipping).Add(tax)

	return domain.Totals{
		Subtotal: subtotal.Round(2).InexactFloat64(),
		Shipping: shipping.Round(2).InexactFloat64(),
		Tax:      tax.InexactFloat64(),
		Total:    total.Round(2).InexactFloat64(),
	}
}

// Mismatch returns the name of the first amount in claimed that differs from
// computed by a cent or more, or "" when they agree.
func Mismatch(claimed, computed domain.Totals) string {
	fields := []struct {
		name      string
		got, want float64
	}{
		{"subtotal", claimed.Subtotal, computed.Subtotal},
		{"shipping", claimed.Shipping, computed.Shipping},
		{"tax", claimed.Tax, computed.Tax},
		{"total", claimed.Total, computed.Total},
	}
	for _, f := range fields {
		if !cents(f.got).Equal(cents(f.want)) {
			return f.name
		}
	}
	return ""
}

// Cents converts an amount to integer minor units.
func Cents(amount float64) int64 {
	return cents(amount).Shift(2).IntPart()
}

func cents(amount float64) decimal.Decimal {
	return decimal.NewFromFloat(amount).Round(2)
}
