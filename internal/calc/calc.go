// Package calc provides arbitrary-precision decimal arithmetic on
// string-encoded numbers. Amounts never touch native floating point.
package calc

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidNumber is returned when an input is not a valid decimal string.
	ErrInvalidNumber = errors.New("calc: invalid decimal number")
	// ErrDivisionByZero is returned when dividing by zero.
	ErrDivisionByZero = errors.New("calc: division by zero")
	// ErrUnknownRoundMode is returned for an unrecognised rounding mode.
	ErrUnknownRoundMode = errors.New("calc: unknown rounding mode")
)

// RoundMode selects how ties and remainders are resolved when rounding.
type RoundMode string

const (
	// RoundHalfUp rounds ties away from zero. This is the default mode.
	RoundHalfUp RoundMode = "half_up"
	// RoundHalfDown rounds ties toward zero.
	RoundHalfDown RoundMode = "half_down"
	// RoundHalfEven rounds ties to the nearest even digit (banker's rounding).
	RoundHalfEven RoundMode = "half_even"
	// RoundUp always rounds away from zero.
	RoundUp RoundMode = "up"
	// RoundDown always rounds toward zero.
	RoundDown RoundMode = "down"
	// RoundCeiling always rounds toward positive infinity.
	RoundCeiling RoundMode = "ceiling"
	// RoundFloor always rounds toward negative infinity.
	RoundFloor RoundMode = "floor"
)

func parse(value string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: %q", ErrInvalidNumber, value)
	}
	return d, nil
}

func parsePair(a, b string) (decimal.Decimal, decimal.Decimal, error) {
	da, err := parse(a)
	if err != nil {
		return decimal.Decimal{}, decimal.Decimal{}, err
	}
	db, err := parse(b)
	if err != nil {
		return decimal.Decimal{}, decimal.Decimal{}, err
	}
	return da, db, nil
}

// Add returns a + b.
func Add(a, b string) (string, error) {
	da, db, err := parsePair(a, b)
	if err != nil {
		return "", err
	}
	return da.Add(db).String(), nil
}

// Subtract returns a - b.
func Subtract(a, b string) (string, error) {
	da, db, err := parsePair(a, b)
	if err != nil {
		return "", err
	}
	return da.Sub(db).String(), nil
}

// Multiply returns a * b.
func Multiply(a, b string) (string, error) {
	da, db, err := parsePair(a, b)
	if err != nil {
		return "", err
	}
	return da.Mul(db).String(), nil
}

// Divide returns a / b. Division by zero is an error, never a panic.
func Divide(a, b string) (string, error) {
	da, db, err := parsePair(a, b)
	if err != nil {
		return "", err
	}
	if db.IsZero() {
		return "", ErrDivisionByZero
	}
	return da.Div(db).String(), nil
}

// Round rounds a to the given number of decimal digits using the provided mode.
func Round(a string, precision int32, mode RoundMode) (string, error) {
	d, err := parse(a)
	if err != nil {
		return "", err
	}
	rounded, err := round(d, precision, mode)
	if err != nil {
		return "", err
	}
	return rounded.String(), nil
}

func round(d decimal.Decimal, precision int32, mode RoundMode) (decimal.Decimal, error) {
	switch mode {
	case RoundHalfUp, "":
		return d.Round(precision), nil
	case RoundHalfDown:
		return roundHalfDown(d, precision), nil
	case RoundHalfEven:
		return d.RoundBank(precision), nil
	case RoundUp:
		return d.RoundUp(precision), nil
	case RoundDown:
		return d.RoundDown(precision), nil
	case RoundCeiling:
		return d.RoundCeil(precision), nil
	case RoundFloor:
		return d.RoundFloor(precision), nil
	default:
		return decimal.Decimal{}, fmt.Errorf("%w: %q", ErrUnknownRoundMode, mode)
	}
}

// roundHalfDown resolves exact ties toward zero and defers everything else to
// half-up, which agrees with half-down for non-tie remainders.
func roundHalfDown(d decimal.Decimal, precision int32) decimal.Decimal {
	shifted := d.Shift(precision)
	remainder := shifted.Sub(shifted.Truncate(0)).Abs()
	if remainder.Equal(decimal.New(5, -1)) {
		return shifted.Truncate(0).Shift(-precision)
	}
	return d.Round(precision)
}

// Ceil rounds a toward positive infinity to an integer string.
func Ceil(a string) (string, error) {
	d, err := parse(a)
	if err != nil {
		return "", err
	}
	return d.Ceil().String(), nil
}

// Floor rounds a toward negative infinity to an integer string.
func Floor(a string) (string, error) {
	d, err := parse(a)
	if err != nil {
		return "", err
	}
	return d.Floor().String(), nil
}

// Compare returns -1, 0 or 1 when a is numerically less than, equal to, or
// greater than b.
func Compare(a, b string) (int, error) {
	da, db, err := parsePair(a, b)
	if err != nil {
		return 0, err
	}
	return da.Cmp(db), nil
}

// Trim removes trailing fractional zeros, and the decimal point itself when no
// fraction remains ("3.00" becomes "3", "3.030" becomes "3.03").
func Trim(a string) (string, error) {
	d, err := parse(a)
	if err != nil {
		return "", err
	}
	return d.String(), nil
}

// Valid reports whether value parses as a decimal number.
func Valid(value string) bool {
	_, err := decimal.NewFromString(value)
	return err == nil
}
