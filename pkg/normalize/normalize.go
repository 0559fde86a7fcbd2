// Package normalize converts the free text found on loan pages into typed
// values: currency strings into amounts and approval dates into a cleaned
// display form.
package normalize

import (
	"regexp"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"

	"github.com/jmylchreest/pppscrape/pkg/record"
)

var (
	currencyStripper = strings.NewReplacer("$", "", ",", "")
	plainNumber      = regexp.MustCompile(`^\d+(\.\d+)?$`)
)

// ParseCurrency turns text such as "$1,234,567.89" into an amount.
// It reports false for anything that is not a plain non-negative number
// once the dollar sign and commas are removed.
func ParseCurrency(text string) (*record.Amount, bool) {
	cleaned := strings.TrimSpace(currencyStripper.Replace(text))
	// Digits only: the decimal parser would also take exponents like 1e400000000.
	if !plainNumber.MatchString(cleaned) {
		return nil, false
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return nil, false
	}
	a, err := record.NewAmount(d)
	if err != nil {
		return nil, false
	}
	return a, true
}

// Date strips any parenthetical suffix from a date string and trims it.
// "04/15/2020 (Tuesday)" becomes "04/15/2020". No calendar validation is done.
func Date(text string) string {
	if i := strings.IndexByte(text, '('); i >= 0 {
		text = text[:i]
	}
	return strings.TrimSpace(text)
}

// FormatCurrency renders an amount in whole dollars with thousands
// separators, e.g. "$1,234". Cents round half to even.
func FormatCurrency(a record.Amount) string {
	return "$" + humanize.Comma(a.Decimal().RoundBank(0).IntPart())
}
