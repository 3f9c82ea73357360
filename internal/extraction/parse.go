package extraction

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// wireReceipt mirrors the JSON shape the extraction prompt asks for. Pointer
// fields distinguish "not readable on the receipt" (null or missing) from an
// empty string.
type wireReceipt struct {
	MerchantName  *flexString    `json:"merchant_name"`
	Date          *flexString    `json:"date"`
	TotalAmount   *flexString    `json:"total_amount"`
	PaymentMethod *flexString    `json:"payment_method"`
	Category      *flexString    `json:"category"`
	CostCenter    *flexString    `json:"cost_center"`
	LineItems     []wireLineItem `json:"line_items"`
}

type wireLineItem struct {
	Description *flexString `json:"description"`
	Amount      *flexString `json:"amount"`
}

// flexString accepts both JSON strings and bare numbers; models are
// inconsistent about quoting amounts.
type flexString string

func (s *flexString) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = flexString(v)
		return nil
	}
	*s = flexString(strings.TrimSpace(string(b)))
	return nil
}

// extractJSONObject strips markdown fences and returns the first {...} span.
func extractJSONObject(text string) (string, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSpace(text)

	start := strings.Index(text, "{")
	if start == -1 {
		return "", fmt.Errorf("no JSON object found in response")
	}
	end := strings.LastIndex(text, "}")
	if end == -1 || end < start {
		return "", fmt.Errorf("invalid JSON object in response")
	}
	return text[start : end+1], nil
}

// parseExtraction turns a raw model response into a field set. Unknown keys
// are ignored by the decoder; null or missing keys stay absent so the
// conversation can tell "unknown" from "empty".
func parseExtraction(text string) (Fields, error) {
	obj, err := extractJSONObject(text)
	if err != nil {
		return Fields{}, err
	}

	var wire wireReceipt
	if err := json.Unmarshal([]byte(obj), &wire); err != nil {
		return Fields{}, fmt.Errorf("unmarshaling json: %w", err)
	}

	fields := NewFields()
	setPresent := func(name Field, v *flexString) {
		if v == nil {
			return
		}
		value := strings.TrimSpace(string(*v))
		if value == "" || strings.EqualFold(value, "null") {
			return
		}
		fields.Set(name, value)
	}
	setPresent(FieldMerchant, wire.MerchantName)
	setPresent(FieldTotalAmount, wire.TotalAmount)
	setPresent(FieldPaymentMethod, wire.PaymentMethod)
	setPresent(FieldCategory, wire.Category)
	setPresent(FieldCostCenter, wire.CostCenter)

	if wire.Date != nil {
		if date := strings.TrimSpace(string(*wire.Date)); date != "" && !strings.EqualFold(date, "null") {
			fields.Set(FieldDate, normalizeDate(date))
		}
	}

	items := make([]LineItem, 0, len(wire.LineItems))
	for _, wi := range wire.LineItems {
		if wi.Description == nil {
			continue
		}
		desc := strings.TrimSpace(string(*wi.Description))
		if desc == "" {
			continue
		}
		item := LineItem{Description: desc}
		if wi.Amount != nil {
			item.Amount = strings.TrimSpace(string(*wi.Amount))
		}
		items = append(items, item)
	}
	if len(items) > 0 {
		fields.SetLineItems(items)
	}

	return fields, nil
}

// normalizeDate converts common receipt date formats to ISO 8601. An
// unparseable date is kept literally rather than replaced; the date field is
// informational and never blocks finalization.
func normalizeDate(date string) string {
	if _, err := time.Parse("2006-01-02", date); err == nil {
		return date
	}
	formats := []string{
		"2006/01/02",
		"01/02/2006",
		"02-01-2006",
		"Jan 2, 2006",
	}
	for _, format := range formats {
		if d, err := time.Parse(format, date); err == nil {
			return d.Format("2006-01-02")
		}
	}
	return date
}

// cleanReply trims formatting noise from a submitter's answer without
// substituting anything they did not say.
func cleanReply(field Field, text string) string {
	text = strings.TrimSpace(text)
	text = strings.Trim(text, `"'`)
	text = strings.TrimSpace(text)
	if field == FieldTotalAmount {
		text = strings.TrimLeft(text, "$€£ ")
		text = strings.ReplaceAll(text, ",", "")
		text = strings.TrimSpace(text)
	}
	return text
}

// parseReplyValue reads the {"value": ...} object the reply-parse prompt asks
// for. A null or blank value means the model judged the reply unresponsive.
func parseReplyValue(text string) (string, bool) {
	obj, err := extractJSONObject(text)
	if err != nil {
		return "", false
	}
	var wire struct {
		Value *flexString `json:"value"`
	}
	if err := json.Unmarshal([]byte(obj), &wire); err != nil {
		return "", false
	}
	if wire.Value == nil {
		return "", false
	}
	value := strings.TrimSpace(string(*wire.Value))
	if value == "" || strings.EqualFold(value, "null") {
		return "", false
	}
	return value, true
}

// promptJSON renders the currently known fields for inclusion in a prompt.
func promptJSON(f Fields) string {
	m := make(map[string]any)
	for _, name := range []Field{FieldMerchant, FieldDate, FieldTotalAmount, FieldCategory, FieldCostCenter, FieldPaymentMethod} {
		if v, ok := f.Get(name); ok {
			m[string(name)] = v
		}
	}
	if items := f.LineItems(); len(items) > 0 {
		m["line_items"] = items
	}
	out, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(out)
}
