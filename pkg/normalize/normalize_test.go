package normalize

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/jmylchreest/pppscrape/pkg/record"
)

func TestParseCurrency(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
		ok    bool
	}{
		{"dollar with commas", "$1,234,567.89", "1234567.89", true},
		{"whole dollars", "$1,234,567", "1234567", true},
		{"not available", "N/A", "", false},
		{"exponent", "1e5", "", false},
		{"huge exponent", "$1e400000000", "", false},
		{"leading dot", ".5", "", false},
		{"surrounding whitespace", "  $20,833 \n", "20833", true},
		{"plain number", "150000", "150000", true},
		{"zero", "$0", "0", true},
		{"empty", "", "", false},
		{"symbol only", "$", "", false},
		{"whitespace only", "   ", "", false},
		{"words", "Not disclosed", "", false},
		{"negative", "-$5", "", false},
		{"nan", "NaN", "", false},
		{"infinity", "Inf", "", false},
		{"mixed text", "$1,000 approx", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseCurrency(tt.input)
			if ok != tt.ok {
				t.Fatalf("ParseCurrency(%q) ok = %v, want %v", tt.input, ok, tt.ok)
			}
			if !ok {
				if got != nil {
					t.Errorf("ParseCurrency(%q) should return nil on failure", tt.input)
				}
				return
			}
			if !got.Decimal().Equal(decimal.RequireFromString(tt.want)) {
				t.Errorf("ParseCurrency(%q) = %s, want %s", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseCurrency_NeverNegative(t *testing.T) {
	inputs := []string{"-1", "$-1,000", "-0.01", "--5", "$$$", "1,2,3", ",,,"}
	for _, in := range inputs {
		if a, ok := ParseCurrency(in); ok && a.Decimal().IsNegative() {
			t.Errorf("ParseCurrency(%q) returned negative amount %s", in, a)
		}
	}
}

func TestDate(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"04/15/2020 (Tuesday)", "04/15/2020"},
		{"May 1, 2020 (First Round)", "May 1, 2020"},
		{"  May 1, 2020  ", "May 1, 2020"},
		{"2021-02-03", "2021-02-03"},
		{"(unknown)", ""},
		{"", ""},
		{"Jan 5 (approx) (est)", "Jan 5"},
	}
	for _, tt := range tests {
		if got := Date(tt.input); got != tt.want {
			t.Errorf("Date(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestFormatCurrency(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"1000", "$1,000"},
		{"1234567.89", "$1,234,568"},
		{"2.5", "$2"},
		{"3.5", "$4"},
		{"0", "$0"},
	}
	for _, tt := range tests {
		a, err := record.NewAmount(decimal.RequireFromString(tt.input))
		if err != nil {
			t.Fatalf("NewAmount(%s): %v", tt.input, err)
		}
		if got := FormatCurrency(*a); got != tt.want {
			t.Errorf("FormatCurrency(%s) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
