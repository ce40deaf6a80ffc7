package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ExtractedReceipt is the transient output of the receipt extraction
// pipeline. Every field is optional; a record with no populated field is
// never returned (the pipeline reports "nothing extracted" instead).
type ExtractedReceipt struct {
	Amount       *decimal.Decimal  `json:"amount,omitempty"`
	Date         *time.Time        `json:"date,omitempty"`
	Description  string            `json:"description,omitempty"`
	Category     string            `json:"category,omitempty"`
	MerchantName string            `json:"merchant_name,omitempty"`
	LineItems    []ReceiptLineItem `json:"line_items,omitempty"`
}

type ReceiptLineItem struct {
	Name   string          `json:"name"`
	Amount decimal.Decimal `json:"amount"`
}

// Empty reports whether no field at all was extracted.
func (r *ExtractedReceipt) Empty() bool {
	return r == nil ||
		(r.Amount == nil && r.Date == nil && r.Description == "" &&
			r.Category == "" && r.MerchantName == "" && len(r.LineItems) == 0)
}
