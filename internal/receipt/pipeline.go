// Package receipt turns a vision model's description of a receipt image into
// a validated partial transaction record. The model's output is untrusted:
// structured parsing is attempted first, reconciled field by field, and a
// plain-text scan of the response is the fallback when the output is not
// parseable at all. Malformed model output degrades; it never fails the
// operation.
package receipt

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/avolkov/finledger/internal/apperr"
	"github.com/avolkov/finledger/internal/models"
)

// Describer is the inference collaborator: one blocking, cancellable round
// trip per call.
type Describer interface {
	DescribeImage(ctx context.Context, image []byte, mimeType, prompt string) (string, error)
}

type Service struct {
	vision Describer
	log    zerolog.Logger
}

func NewService(vision Describer, log zerolog.Logger) *Service {
	return &Service{vision: vision, log: log}
}

// Extract runs the three-stage pipeline. A nil receipt with a nil error
// means nothing usable was found, which is distinct from the error cases:
// unreadable input, missing credentials, or a failed inference call.
func (s *Service) Extract(ctx context.Context, image []byte, mimeType string) (*models.ExtractedReceipt, error) {
	if len(image) == 0 {
		return nil, apperr.New(apperr.Validation, "receipt image is empty")
	}
	if s.vision == nil {
		return nil, apperr.New(apperr.External, "receipt scanning is not configured")
	}
	if mimeType == "" {
		mimeType = "image/jpeg"
	}

	raw, err := s.vision.DescribeImage(ctx, image, mimeType, receiptPrompt)
	if err != nil {
		return nil, apperr.Wrap(apperr.External, "describe receipt image", err)
	}

	cleaned := stripCodeFences(raw)
	obj, ok := decodeObject(cleaned)
	if !ok {
		// The model did not produce parseable JSON; scan its text instead.
		s.log.Debug().Msg("receipt response not parseable as JSON, falling back to text scan")
		return s.totalFromText(cleaned), nil
	}
	if len(obj) == 0 {
		// An empty object is the model's way of declaring "no data".
		return nil, nil
	}
	return reconcile(obj), nil
}

// stripCodeFences removes markdown code-fence markers the model was told not
// to emit but often does anyway.
var jsonFenceRE = regexp.MustCompile("(?i)```json\\s*")

func stripCodeFences(raw string) string {
	s := jsonFenceRE.ReplaceAllString(raw, "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}

// decodeObject locates the outermost {...} span and decodes it, keeping
// numbers as json.Number so amounts survive without float rounding.
func decodeObject(text string) (map[string]any, bool) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end <= start {
		return nil, false
	}
	dec := json.NewDecoder(strings.NewReader(text[start : end+1]))
	dec.UseNumber()
	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return nil, false
	}
	return obj, true
}

// reconcile validates the parsed object field by field. The authoritative
// amount is the direct field when it normalizes, else the line-item sum.
// Invalid dates are dropped, not defaulted. Returns nil when no field at all
// survives.
func reconcile(obj map[string]any) *models.ExtractedReceipt {
	rec := &models.ExtractedReceipt{}

	items := lineItemsOf(obj)
	if amt, ok := NormalizeAmount(obj["amount"]); ok {
		rec.Amount = &amt
	} else if sum, ok := SumLineItems(items); ok {
		rec.Amount = &sum
	}
	rec.LineItems = normalizeLineItems(items)

	if d, ok := parseReceiptDate(obj["date"]); ok {
		rec.Date = &d
	}
	rec.Description = textField(obj, "description")
	rec.MerchantName = textField(obj, "merchantName")
	if c := strings.ToLower(textField(obj, "category")); validCategory(c) {
		rec.Category = c
	}

	if rec.Empty() {
		return nil
	}
	return rec
}

func lineItemsOf(obj map[string]any) []any {
	for _, key := range []string{"lineItems", "items"} {
		if items, ok := obj[key].([]any); ok {
			return items
		}
	}
	return nil
}

func normalizeLineItems(items []any) []models.ReceiptLineItem {
	var out []models.ReceiptLineItem
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		amt, ok := NormalizeAmount(lineItemValue(item))
		if !ok || !amt.IsPositive() {
			continue
		}
		name, _ := m["name"].(string)
		out = append(out, models.ReceiptLineItem{Name: strings.TrimSpace(name), Amount: amt})
	}
	return out
}

var receiptDateLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"}

func parseReceiptDate(v any) (time.Time, bool) {
	s, ok := v.(string)
	if !ok {
		return time.Time{}, false
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range receiptDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func textField(obj map[string]any, key string) string {
	s, _ := obj[key].(string)
	return strings.TrimSpace(s)
}

// totalLabelREs are tried in order of trust; receipts label the payable
// amount many ways and "total" alone is the least specific.
var totalLabelREs = []*regexp.Regexp{
	regexp.MustCompile(`(?i)grand\s*total\s*[:\-]?\s*([₹$€£]?\s*[0-9][0-9.,\s]*)`),
	regexp.MustCompile(`(?i)amount\s*due\s*[:\-]?\s*([₹$€£]?\s*[0-9][0-9.,\s]*)`),
	regexp.MustCompile(`(?i)balance\s*due\s*[:\-]?\s*([₹$€£]?\s*[0-9][0-9.,\s]*)`),
	regexp.MustCompile(`(?i)total\s*due\s*[:\-]?\s*([₹$€£]?\s*[0-9][0-9.,\s]*)`),
	regexp.MustCompile(`(?i)total\s*[:\-]?\s*([₹$€£]?\s*[0-9][0-9.,\s]*)`),
}

var moneyTokenRE = regexp.MustCompile(`[₹$€£]?\s*[0-9][0-9.,]+`)

// totalFromText is the last pipeline stage: find a labeled total, else walk
// all money-like tokens from the end of the text backward, since totals are
// conventionally printed near the bottom of a receipt. Returns nil when
// nothing normalizes.
func (s *Service) totalFromText(text string) *models.ExtractedReceipt {
	for _, re := range totalLabelREs {
		m := re.FindStringSubmatch(text)
		if len(m) < 2 {
			continue
		}
		if amt, ok := NormalizeAmount(m[1]); ok {
			return &models.ExtractedReceipt{Amount: &amt}
		}
	}

	tokens := moneyTokenRE.FindAllString(text, -1)
	for i := len(tokens) - 1; i >= 0; i-- {
		if amt, ok := NormalizeAmount(tokens[i]); ok {
			return &models.ExtractedReceipt{Amount: &amt}
		}
	}
	return nil
}
