package domain

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrInvalidQuantity = errors.New("invalid quantity")
)

// Amount is a positive decimal price held in hundredths.
type Amount int64

// decimalPattern admits plain base-10 numbers: no sign, exponent or hex form.
var decimalPattern = regexp.MustCompile(`^[0-9]+(\.[0-9]*)?$|^\.[0-9]+$`)

// maxAmountUnits keeps Amount*100 inside int64.
const maxAmountUnits = 9e16

// ParseAmount parses user input such as "199,99" or "199.99".
// Comma and dot are both accepted as the fractional separator; the result must be > 0.
func ParseAmount(input string) (Amount, error) {
	text := strings.ReplaceAll(strings.TrimSpace(input), ",", ".")
	if !decimalPattern.MatchString(text) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, input)
	}
	value, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, input)
	}
	if math.IsNaN(value) || math.IsInf(value, 0) || value <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, input)
	}
	if value > maxAmountUnits {
		return 0, fmt.Errorf("%w: too large", ErrInvalidAmount)
	}
	units := int64(math.Round(value * 100))
	if units <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, input)
	}
	return Amount(units), nil
}

// ParseQuantity parses a positive base-10 integer.
func ParseQuantity(input string) (int, error) {
	value, err := strconv.Atoi(strings.TrimSpace(input))
	if err != nil || value <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidQuantity, input)
	}
	return value, nil
}

// String formats the amount with two decimals, e.g. "199.99".
func (a Amount) String() string {
	sign := ""
	units := int64(a)
	if units < 0 {
		sign = "-"
		units = -units
	}
	return fmt.Sprintf("%s%d.%02d", sign, units/100, units%100)
}

// Float returns the amount as a float for presentation and metrics only.
func (a Amount) Float() float64 {
	return float64(a) / 100
}
