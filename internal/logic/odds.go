package logic

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	hundred = decimal.NewFromInt(100)
	one     = decimal.NewFromInt(1)
	two     = decimal.NewFromInt(2)
)

// ValidateAmericanOdds rejects values outside the American odds domain.
// Valid prices are +100 and above or -100 and below.
func ValidateAmericanOdds(odds int) error {
	if odds >= 100 || odds <= -100 {
		return nil
	}
	return fmt.Errorf("%w: american odds %d", ErrInvalidOdds, odds)
}

// ImpliedProbability converts American odds to the bookmaker's implied
// probability: 100/(odds+100) for plus prices, -odds/(-odds+100) for minus.
func ImpliedProbability(odds int) (float64, error) {
	if err := ValidateAmericanOdds(odds); err != nil {
		return 0, err
	}
	o := decimal.NewFromInt(int64(odds))
	var p decimal.Decimal
	if odds > 0 {
		p = hundred.Div(o.Add(hundred))
	} else {
		neg := o.Neg()
		p = neg.Div(neg.Add(hundred))
	}
	f, _ := p.Float64()
	return f, nil
}

// Edge is the model estimate minus the implied probability of odds.
func Edge(estimate float64, odds int) (float64, error) {
	implied, err := ImpliedProbability(odds)
	if err != nil {
		return 0, err
	}
	e, _ := decimal.NewFromFloat(estimate).Sub(decimal.NewFromFloat(implied)).Float64()
	return e, nil
}

// DecimalToAmerican converts decimal odds (e.g. 2.50) to American (+150).
func DecimalToAmerican(d decimal.Decimal) (int, error) {
	if d.LessThanOrEqual(one) {
		return 0, fmt.Errorf("%w: decimal odds %s", ErrInvalidOdds, d)
	}
	profit := d.Sub(one)
	if d.GreaterThanOrEqual(two) {
		return int(profit.Mul(hundred).Round(0).IntPart()), nil
	}
	return int(hundred.Div(profit).Neg().Round(0).IntPart()), nil
}

// AmericanToDecimal converts American odds to decimal odds.
func AmericanToDecimal(odds int) (decimal.Decimal, error) {
	if err := ValidateAmericanOdds(odds); err != nil {
		return decimal.Zero, err
	}
	o := decimal.NewFromInt(int64(odds))
	if odds > 0 {
		return o.Div(hundred).Add(one), nil
	}
	return hundred.Div(o.Neg()).Add(one), nil
}

// ParseOdds reads a provider price. Signed or three-plus digit integers are
// American ("+150", "-110", "150"); anything else is decimal ("2.50").
func ParseOdds(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty odds", ErrInvalidOdds)
	}
	d, err := decimal.NewFromString(strings.TrimPrefix(s, "+"))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidOdds, s)
	}

	signed := strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-")
	if d.Equal(d.Truncate(0)) && (signed || d.Abs().GreaterThanOrEqual(hundred)) {
		odds := int(d.IntPart())
		if err := ValidateAmericanOdds(odds); err != nil {
			return 0, err
		}
		return odds, nil
	}
	return DecimalToAmerican(d)
}
