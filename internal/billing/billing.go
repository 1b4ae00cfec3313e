// Package billing is the single place tax is computed. Every stored or
// displayed amount in the service is derived from Compute.
package billing

import (
	"strings"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/certihub/pkg/errkind"
)

// TaxRate is the flat rate applied on top of the certification price.
var TaxRate = decimal.RequireFromString("0.16")

var (
	ErrNegativeAmount = errkind.New(errkind.InvalidInput, "negative_amount", "amount must not be negative")
	ErrInvalidAmount  = errkind.New(errkind.InvalidInput, "invalid_amount", "amount must be a decimal number")
)

// Breakdown is the exclusive tax split of a base amount.
type Breakdown struct {
	Base  decimal.Decimal `json:"base"`
	Tax   decimal.Decimal `json:"tax"`
	Total decimal.Decimal `json:"total"`
}

// Compute returns base, tax = round2(base * TaxRate) and total = base + tax.
// Rounding is half away from zero, which equals half-up for non-negative input.
func Compute(base decimal.Decimal) (Breakdown, error) {
	if base.IsNegative() {
		return Breakdown{}, ErrNegativeAmount
	}
	tax := base.Mul(TaxRate).Round(2)
	return Breakdown{
		Base:  base,
		Tax:   tax,
		Total: base.Add(tax),
	}, nil
}

// ParseAmount parses a decimal amount from user or gateway input.
func ParseAmount(raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	return amount, nil
}

// Equal compares two breakdowns by value, ignoring decimal exponent.
func (b Breakdown) Equal(other Breakdown) bool {
	return b.Base.Equal(other.Base) && b.Tax.Equal(other.Tax) && b.Total.Equal(other.Total)
}

// MatchesTotal reports whether an externally reported amount equals Total.
func (b Breakdown) MatchesTotal(amount decimal.Decimal) bool {
	return b.Total.Round(2).Equal(amount.Round(2))
}
