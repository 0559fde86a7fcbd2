package record

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// ErrNegativeAmount is returned when constructing an Amount below zero.
var ErrNegativeAmount = errors.New("amount must not be negative")

// Amount is a non-negative monetary value in US dollars.
// The zero value is $0, which is distinct from an unset (nil) *Amount.
type Amount struct {
	d decimal.Decimal
}

// NewAmount wraps d, rejecting negative values.
func NewAmount(d decimal.Decimal) (*Amount, error) {
	if d.IsNegative() {
		return nil, fmt.Errorf("%w: %s", ErrNegativeAmount, d.String())
	}
	return &Amount{d: d}, nil
}

// AmountFromInt is a convenience for whole-dollar amounts.
func AmountFromInt(dollars int64) *Amount {
	if dollars < 0 {
		dollars = 0
	}
	return &Amount{d: decimal.NewFromInt(dollars)}
}

// Decimal returns the underlying value.
func (a Amount) Decimal() decimal.Decimal { return a.d }

// String renders the value without currency formatting.
func (a Amount) String() string { return a.d.String() }

// Cmp compares a and b like decimal.Cmp.
func (a Amount) Cmp(b Amount) int { return a.d.Cmp(b.d) }

// Equal reports whether a and b hold the same value.
func (a Amount) Equal(b Amount) bool { return a.d.Equal(b.d) }

// IsPositive reports whether the amount is strictly greater than zero.
func (a Amount) IsPositive() bool { return a.d.IsPositive() }

// MarshalJSON writes the amount as a bare JSON number.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.d.String()), nil
}

// UnmarshalJSON accepts a JSON number or a numeric string.
func (a *Amount) UnmarshalJSON(b []byte) error {
	b = bytes.Trim(bytes.TrimSpace(b), `"`)
	d, err := decimal.NewFromString(string(b))
	if err != nil {
		return fmt.Errorf("invalid amount %q: %w", string(b), err)
	}
	if d.IsNegative() {
		return fmt.Errorf("%w: %s", ErrNegativeAmount, d.String())
	}
	a.d = d
	return nil
}

// MarshalYAML writes the amount as a plain YAML number.
func (a Amount) MarshalYAML() (any, error) {
	return &yaml.Node{Kind: yaml.ScalarNode, Value: a.d.String()}, nil
}
