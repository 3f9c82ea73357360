package receipt

import (
	"time"

	"github.com/zombor/expense-bot/internal/extraction"
)

// Record is a finalized receipt as appended to the ledger sink. Immutable
// once written; repeat submissions are prevented by the fingerprint gate
// upstream, not by uniqueness enforcement at the sink.
type Record struct {
	Timestamp     time.Time             `json:"timestamp"`
	Merchant      string                `json:"merchant"`
	Date          string                `json:"date"`
	TotalAmount   string                `json:"total_amount"`
	Category      string                `json:"category"`
	CostCenter    string                `json:"cost_center"`
	PaymentMethod string                `json:"payment_method"`
	LineItems     []extraction.LineItem `json:"line_items,omitempty"`
	StorageURL    string                `json:"storage_url"`
	Fingerprint   string                `json:"fingerprint"`
	SubmittedBy   string                `json:"submitted_by"`
	Scope         string                `json:"scope"`
}
