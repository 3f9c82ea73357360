package extraction

import (
	"fmt"
	"strings"
)

// Field names a structured receipt field.
type Field string

const (
	FieldMerchant      Field = "merchant"
	FieldDate          Field = "date"
	FieldTotalAmount   Field = "total_amount"
	FieldCategory      Field = "category"
	FieldCostCenter    Field = "cost_center"
	FieldPaymentMethod Field = "payment_method"
)

// LineItem is a single purchased item on a receipt.
type LineItem struct {
	Description string `json:"description"`
	Amount      string `json:"amount"`
}

// Fields is a partially populated set of receipt fields. A field that was
// never extracted or supplied is absent, which is distinct from a field set
// to an empty value. Line items are kept in receipt order.
type Fields struct {
	values    map[Field]string
	lineItems []LineItem
}

// NewFields returns an empty field set.
func NewFields() Fields {
	return Fields{values: make(map[Field]string)}
}

// Set stores a value for the named field.
func (f *Fields) Set(name Field, value string) {
	if f.values == nil {
		f.values = make(map[Field]string)
	}
	f.values[name] = value
}

// Get returns the value for the named field and whether it is present.
func (f Fields) Get(name Field) (string, bool) {
	v, ok := f.values[name]
	return v, ok
}

// Has reports whether the named field is present with a non-blank value.
func (f Fields) Has(name Field) bool {
	v, ok := f.values[name]
	return ok && strings.TrimSpace(v) != ""
}

// Merge copies every field present in other into f, overwriting existing
// values. Line items are replaced if other carries any.
func (f *Fields) Merge(other Fields) {
	for name, value := range other.values {
		f.Set(name, value)
	}
	if len(other.lineItems) > 0 {
		f.lineItems = other.lineItems
	}
}

// SetLineItems replaces the line items.
func (f *Fields) SetLineItems(items []LineItem) {
	f.lineItems = items
}

// LineItems returns the line items in receipt order.
func (f Fields) LineItems() []LineItem {
	return f.lineItems
}

// FormatLineItems renders line items as "desc: $amt; desc: $amt".
func FormatLineItems(items []LineItem) string {
	if len(items) == 0 {
		return ""
	}
	parts := make([]string, 0, len(items))
	for _, item := range items {
		parts = append(parts, fmt.Sprintf("%s: $%s", item.Description, item.Amount))
	}
	return strings.Join(parts, "; ")
}
