package receipt

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/avolkov/finledger/internal/apperr"
	"github.com/avolkov/finledger/internal/models"
)

type fakeDescriber struct {
	response string
	err      error
}

func (f *fakeDescriber) DescribeImage(ctx context.Context, image []byte, mimeType, prompt string) (string, error) {
	return f.response, f.err
}

func extract(t *testing.T, response string) (*models.ExtractedReceipt, error) {
	t.Helper()
	svc := NewService(&fakeDescriber{response: response}, zerolog.Nop())
	return svc.Extract(context.Background(), []byte("fake image"), "image/png")
}

func requireAmount(t *testing.T, rec *models.ExtractedReceipt, want string) {
	t.Helper()
	if rec == nil || rec.Amount == nil {
		t.Fatalf("expected amount %s, got nil receipt or amount", want)
	}
	if !rec.Amount.Equal(decimal.RequireFromString(want)) {
		t.Fatalf("amount = %s, want %s", rec.Amount, want)
	}
}

func TestExtract_StructuredResponse(t *testing.T) {
	rec, err := extract(t, `{
		"amount": 1234.50,
		"date": "2024-03-05",
		"description": "weekly shop",
		"merchantName": "Acme Grocers",
		"category": "groceries",
		"lineItems": [
			{"name": "milk", "amount": "2.50"},
			{"name": "bread", "amount": "1.80"}
		]
	}`)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	requireAmount(t, rec, "1234.50")
	if rec.Date == nil || !rec.Date.Equal(time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("date = %v, want 2024-03-05", rec.Date)
	}
	if rec.MerchantName != "Acme Grocers" {
		t.Errorf("merchant = %q", rec.MerchantName)
	}
	if rec.Category != "groceries" {
		t.Errorf("category = %q", rec.Category)
	}
	if rec.Description != "weekly shop" {
		t.Errorf("description = %q", rec.Description)
	}
	if len(rec.LineItems) != 2 {
		t.Fatalf("line items = %d, want 2", len(rec.LineItems))
	}
	if rec.LineItems[0].Name != "milk" || !rec.LineItems[0].Amount.Equal(decimal.RequireFromString("2.50")) {
		t.Errorf("unexpected first line item %+v", rec.LineItems[0])
	}
}

func TestExtract_StripsCodeFences(t *testing.T) {
	rec, err := extract(t, "```json\n{\"amount\": \"42.00\", \"merchantName\": \"Corner Cafe\"}\n```")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	requireAmount(t, rec, "42")
	if rec.MerchantName != "Corner Cafe" {
		t.Errorf("merchant = %q", rec.MerchantName)
	}
}

func TestExtract_EmptyObjectMeansNoData(t *testing.T) {
	rec, err := extract(t, "{}")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if rec != nil {
		t.Errorf("expected nil receipt, got %+v", rec)
	}
}

func TestExtract_PartialObject(t *testing.T) {
	rec, err := extract(t, `{"merchantName": "Acme"}`)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if rec == nil {
		t.Fatal("expected a receipt with just the merchant")
	}
	if rec.MerchantName != "Acme" || rec.Amount != nil || rec.Date != nil {
		t.Errorf("unexpected receipt %+v", rec)
	}
}

func TestExtract_AmountFromLineItemSum(t *testing.T) {
	rec, err := extract(t, `{
		"amount": "n/a",
		"lineItems": [{"amount": "10.00"}, {"amount": "5.50"}, {"amount": "junk"}]
	}`)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	requireAmount(t, rec, "15.50")
}

func TestExtract_InvalidFieldsDropped(t *testing.T) {
	rec, err := extract(t, `{
		"amount": "9.99",
		"date": "13/45/2024",
		"category": "spaceships"
	}`)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	requireAmount(t, rec, "9.99")
	if rec.Date != nil {
		t.Errorf("unparseable date should be dropped, got %v", rec.Date)
	}
	if rec.Category != "" {
		t.Errorf("unknown category should be dropped, got %q", rec.Category)
	}
}

func TestExtract_CategoryLowercased(t *testing.T) {
	rec, err := extract(t, `{"amount": "5", "category": "Groceries"}`)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if rec.Category != "groceries" {
		t.Errorf("category = %q, want %q", rec.Category, "groceries")
	}
}

func TestExtract_LabeledTotalFallback(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     string
	}{
		{"plain total", "Thanks for shopping!\nTotal: 18.50\nCash: 20.00", "18.50"},
		{"grand total outranks total", "Subtotal: 90.00\nTotal: 5.00\nGrand Total: 99.99", "99.99"},
		{"amount due", "AMOUNT DUE $47.30\nthank you", "47.30"},
		{"currency glyph", "total ₹1,234.50", "1234.50"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := extract(t, tt.response)
			if err != nil {
				t.Fatalf("Extract() error = %v", err)
			}
			requireAmount(t, rec, tt.want)
		})
	}
}

func TestExtract_BackwardScanFallback(t *testing.T) {
	rec, err := extract(t, "items were 12.00 and 3.50, receipt ends with 42.00")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	requireAmount(t, rec, "42")
}

func TestExtract_MalformedJSONFallsThroughToTextScan(t *testing.T) {
	rec, err := extract(t, `{"merchantName": "Acme",} Total: 9.99`)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	requireAmount(t, rec, "9.99")
}

func TestExtract_NothingUsable(t *testing.T) {
	rec, err := extract(t, "thanks for visiting, see you soon")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if rec != nil {
		t.Errorf("expected nil receipt, got %+v", rec)
	}
}

func TestExtract_DescriberError(t *testing.T) {
	svc := NewService(&fakeDescriber{err: errors.New("rate limited")}, zerolog.Nop())
	_, err := svc.Extract(context.Background(), []byte("fake image"), "image/png")
	if !apperr.IsKind(err, apperr.External) {
		t.Errorf("expected external error, got %v", err)
	}
}

func TestExtract_EmptyImage(t *testing.T) {
	svc := NewService(&fakeDescriber{}, zerolog.Nop())
	_, err := svc.Extract(context.Background(), nil, "image/png")
	if !apperr.IsKind(err, apperr.Validation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestExtract_NotConfigured(t *testing.T) {
	svc := NewService(nil, zerolog.Nop())
	_, err := svc.Extract(context.Background(), []byte("fake image"), "image/png")
	if !apperr.IsKind(err, apperr.External) {
		t.Errorf("expected external error, got %v", err)
	}
}
