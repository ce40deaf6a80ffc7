package receipt

import (
	"encoding/json"
	"math"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	whitespaceRE    = regexp.MustCompile(`\s+`)
	currencyGlyphRE = regexp.MustCompile(`[₹$€£]`)
	amountTokenRE   = regexp.MustCompile(`-?[0-9]+(?:\.[0-9]+)?`)
)

// NormalizeAmount converts a heterogeneous value from model output into a
// decimal amount. Numeric values are kept if finite; strings are stripped of
// whitespace, comma grouping and currency glyphs before the first decimal
// number token is taken (handles "₹1,234.50", "$ 12.34", "1 234,50"). The
// second return value is false when nothing parseable remains.
func NormalizeAmount(raw any) (decimal.Decimal, bool) {
	switch v := raw.(type) {
	case decimal.Decimal:
		return v, true
	case json.Number:
		d, err := decimal.NewFromString(v.String())
		if err != nil {
			return decimal.Decimal{}, false
		}
		return d, true
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return decimal.Decimal{}, false
		}
		return decimal.NewFromFloat(v), true
	case int:
		return decimal.NewFromInt(int64(v)), true
	case int64:
		return decimal.NewFromInt(v), true
	case string:
		return normalizeAmountString(v)
	}
	return decimal.Decimal{}, false
}

func normalizeAmountString(s string) (decimal.Decimal, bool) {
	s = whitespaceRE.ReplaceAllString(strings.TrimSpace(s), "")
	s = strings.ReplaceAll(s, ",", "")
	s = currencyGlyphRE.ReplaceAllString(s, "")

	token := amountTokenRE.FindString(s)
	if token == "" {
		return decimal.Decimal{}, false
	}
	d, err := decimal.NewFromString(token)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}

// SumLineItems adds up the reported line items of a receipt. Each item is
// either a bare number or an object carrying amount/total/price. Items that
// do not normalize, or normalize to a non-positive value, are noise rather
// than purchase lines and are skipped. A sum over zero valid items is not a
// usable total, so ok is false.
func SumLineItems(items []any) (decimal.Decimal, bool) {
	sum := decimal.Zero
	count := 0
	for _, item := range items {
		amt, ok := NormalizeAmount(lineItemValue(item))
		if !ok || !amt.IsPositive() {
			continue
		}
		sum = sum.Add(amt)
		count++
	}
	if count == 0 {
		return decimal.Decimal{}, false
	}
	return sum, true
}

func lineItemValue(item any) any {
	m, ok := item.(map[string]any)
	if !ok {
		return item
	}
	for _, key := range []string{"amount", "total", "price"} {
		if v, ok := m[key]; ok && v != nil {
			return v
		}
	}
	return nil
}
