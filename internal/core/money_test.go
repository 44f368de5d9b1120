package core

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantCents int64
		wantErr   bool
	}{
		{name: "simple decimal", input: "12.34", wantCents: 1234},
		{name: "decimal comma", input: "12,34", wantCents: 1234},
		{name: "no fraction", input: "40", wantCents: 4000},
		{name: "single fraction digit", input: "7.5", wantCents: 750},
		{name: "rounds half up", input: "12.346", wantCents: 1235},
		{name: "rounds down", input: "12.344", wantCents: 1234},
		{name: "surrounding whitespace", input: "  9.99 ", wantCents: 999},
		{name: "empty", input: "", wantErr: true},
		{name: "zero", input: "0", wantErr: true},
		{name: "zero with fraction", input: "0.00", wantErr: true},
		{name: "negative", input: "-5.00", wantErr: true},
		{name: "not a number", input: "abc", wantErr: true},
		{name: "double separator", input: "1.2.3", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAmount(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseAmount(%q) = %d, want error", tt.input, got.Cents)
				}
				if !errors.Is(err, ErrInvalidAmount) {
					t.Errorf("ParseAmount(%q) error = %v, want ErrInvalidAmount", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseAmount(%q) unexpected error: %v", tt.input, err)
			}
			if got.Cents != tt.wantCents {
				t.Errorf("ParseAmount(%q) = %d cents, want %d", tt.input, got.Cents, tt.wantCents)
			}
		})
	}
}

func TestMoneyFromDecimal(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantCents int64
	}{
		{name: "two places", input: "12.50", wantCents: 1250},
		{name: "thousands", input: "1234.56", wantCents: 123456},
		{name: "negative keeps sign", input: "-40", wantCents: -4000},
		{name: "rounds half up", input: "0.005", wantCents: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := decimal.NewFromString(tt.input)
			if err != nil {
				t.Fatalf("bad test input %q: %v", tt.input, err)
			}
			if got := MoneyFromDecimal(d); got.Cents != tt.wantCents {
				t.Errorf("MoneyFromDecimal(%s) = %d cents, want %d", tt.input, got.Cents, tt.wantCents)
			}
		})
	}
}

func TestMoneyString(t *testing.T) {
	if s := (Money{Cents: 1250}).String(); s != "12.50" {
		t.Errorf("String() = %q, want %q", s, "12.50")
	}
	if s := (Money{Cents: -75}).String(); s != "-0.75" {
		t.Errorf("String() = %q, want %q", s, "-0.75")
	}
}

func TestMoneyAbs(t *testing.T) {
	if got := (Money{Cents: -4000}).Abs(); got.Cents != 4000 {
		t.Errorf("Abs() = %d, want 4000", got.Cents)
	}
	if got := (Money{Cents: 4000}).Abs(); got.Cents != 4000 {
		t.Errorf("Abs() = %d, want 4000", got.Cents)
	}
}
