package receipt

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/shopspring/decimal"
)

func TestNormalizeAmount(t *testing.T) {
	tests := []struct {
		name string
		raw  any
		want string
		ok   bool
	}{
		{"rupee with grouping", "₹1,234.50", "1234.5", true},
		{"dollar with space", "$ 12.34", "12.34", true},
		{"euro", "€99.99", "99.99", true},
		{"plain string", "42.00", "42", true},
		{"negative string", "-5", "-5", true},
		{"spaced digits", "1 234,50", "123450", true},
		{"trailing text", "18.50 USD", "18.5", true},
		{"no digits", "abc", "", false},
		{"empty string", "", "", false},
		{"json number", json.Number("1234.50"), "1234.5", true},
		{"float", 12.5, "12.5", true},
		{"nan", math.NaN(), "", false},
		{"positive infinity", math.Inf(1), "", false},
		{"int", 7, "7", true},
		{"nil", nil, "", false},
		{"bool", true, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := NormalizeAmount(tt.raw)
			if ok != tt.ok {
				t.Fatalf("NormalizeAmount(%v) ok = %v, want %v", tt.raw, ok, tt.ok)
			}
			if !ok {
				return
			}
			want, err := decimal.NewFromString(tt.want)
			if err != nil {
				t.Fatal(err)
			}
			if !got.Equal(want) {
				t.Errorf("NormalizeAmount(%v) = %s, want %s", tt.raw, got, want)
			}
		})
	}
}

func TestSumLineItems(t *testing.T) {
	tests := []struct {
		name  string
		items []any
		want  string
		ok    bool
	}{
		{
			// Negative and unparseable entries are noise, not purchase lines.
			name: "mixed validity",
			items: []any{
				map[string]any{"amount": "10.00"},
				map[string]any{"amount": "-2"},
				map[string]any{"amount": "abc"},
				map[string]any{"amount": json.Number("5")},
			},
			want: "15",
			ok:   true,
		},
		{
			name: "falls back to total and price keys",
			items: []any{
				map[string]any{"total": "3.50"},
				map[string]any{"price": json.Number("1.25")},
			},
			want: "4.75",
			ok:   true,
		},
		{
			name:  "bare numbers",
			items: []any{json.Number("2.50"), json.Number("2.50")},
			want:  "5",
			ok:    true,
		},
		{
			name:  "zero amount discarded",
			items: []any{map[string]any{"amount": json.Number("0")}},
			ok:    false,
		},
		{
			name:  "all invalid",
			items: []any{map[string]any{"amount": "abc"}, map[string]any{"name": "widget"}},
			ok:    false,
		},
		{name: "empty", items: nil, ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := SumLineItems(tt.items)
			if ok != tt.ok {
				t.Fatalf("SumLineItems() ok = %v, want %v", ok, tt.ok)
			}
			if !ok {
				return
			}
			want, err := decimal.NewFromString(tt.want)
			if err != nil {
				t.Fatal(err)
			}
			if !got.Equal(want) {
				t.Errorf("SumLineItems() = %s, want %s", got, want)
			}
		})
	}
}
