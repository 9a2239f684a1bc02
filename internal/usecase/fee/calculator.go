package fee

import (
	"errors"

	"github.com/shopspring/decimal"
)

// Schedule is a percentage fee with a floor and a ceiling
type Schedule struct {
	Rate    decimal.Decimal // Fraction of the amount, e.g. 0.015 for 1.5%
	Floor   decimal.Decimal
	Ceiling decimal.Decimal
}

// DefaultSchedule charges 1.5% with a 2.99 floor and a 50.00 ceiling
var DefaultSchedule = Schedule{
	Rate:    decimal.RequireFromString("0.015"),
	Floor:   decimal.RequireFromString("2.99"),
	Ceiling: decimal.RequireFromString("50"),
}

// Validate ensures the schedule is internally consistent
func (s Schedule) Validate() error {
	if s.Rate.LessThan(decimal.Zero) || s.Rate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return errors.New("fee rate must be between 0 and 1")
	}
	if s.Floor.LessThan(decimal.Zero) {
		return errors.New("fee floor cannot be negative")
	}
	if s.Ceiling.LessThan(s.Floor) {
		return errors.New("fee ceiling must not be below the floor")
	}
	return nil
}

// Calculate returns the fee for a send amount.
// Logic:
//  1. Raw fee = amount × rate, rounded to cents
//  2. Clamp the raw fee into [Floor, Ceiling]
//
// The amount is not validated here; the caller rejects non-positive amounts.
func (s Schedule) Calculate(amount decimal.Decimal) decimal.Decimal {
	raw := amount.Mul(s.Rate).Round(2)
	if raw.LessThan(s.Floor) {
		return s.Floor
	}
	if raw.GreaterThan(s.Ceiling) {
		return s.Ceiling
	}
	return raw
}
