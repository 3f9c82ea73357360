package receipt

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/zombor/expense-bot/internal/extraction"
)

// TimeSource provides the current time.
type TimeSource interface {
	Now() time.Time
}

// defaultTimeSource provides the current time.
type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Submission carries everything the finalizer needs from a completed session.
type Submission struct {
	SubmitterID string
	Scope       string
	ImageData   []byte
	ContentType string
	Fingerprint string
	Fields      extraction.Fields
}

// Finalizer persists a completed submission: upload the image, append the
// ledger row, register the fingerprint. At-most-once per user interaction;
// the caller clears the session whatever the outcome.
type Finalizer struct {
	uploader   Uploader
	ledger     Ledger
	index      DedupIndex
	timeSource TimeSource
}

// NewFinalizer creates a Finalizer with the default time source.
func NewFinalizer(uploader Uploader, ledger Ledger, index DedupIndex) *Finalizer {
	return &Finalizer{
		uploader:   uploader,
		ledger:     ledger,
		index:      index,
		timeSource: &defaultTimeSource{},
	}
}

// NewFinalizerWithDeps creates a Finalizer with a custom time source for testing.
func NewFinalizerWithDeps(uploader Uploader, ledger Ledger, index DedupIndex, timeSource TimeSource) *Finalizer {
	return &Finalizer{
		uploader:   uploader,
		ledger:     ledger,
		index:      index,
		timeSource: timeSource,
	}
}

// Finalize uploads the image, appends the record to the ledger and registers
// the fingerprint in the dedup index. Upload and append failures surface as
// *FinalizeError naming the sub-step; an index failure after a successful
// append is logged and swallowed, since the record already persisted.
func (f *Finalizer) Finalize(ctx context.Context, sub Submission) (*Record, error) {
	get := func(name extraction.Field) string {
		v, _ := sub.Fields.Get(name)
		return v
	}

	now := f.timeSource.Now()
	filename := uploadFilename(get(extraction.FieldMerchant), sub.ContentType, now)

	url, err := f.uploader.Upload(ctx, filename, sub.ImageData, sub.ContentType)
	if err != nil {
		return nil, &FinalizeError{Step: StepUpload, Err: err}
	}

	record := &Record{
		Timestamp:     now,
		Merchant:      get(extraction.FieldMerchant),
		Date:          get(extraction.FieldDate),
		TotalAmount:   get(extraction.FieldTotalAmount),
		Category:      get(extraction.FieldCategory),
		CostCenter:    get(extraction.FieldCostCenter),
		PaymentMethod: get(extraction.FieldPaymentMethod),
		LineItems:     sub.Fields.LineItems(),
		StorageURL:    url,
		Fingerprint:   sub.Fingerprint,
		SubmittedBy:   sub.SubmitterID,
		Scope:         sub.Scope,
	}

	if err := f.ledger.Append(ctx, record); err != nil {
		return nil, &FinalizeError{Step: StepAppend, Err: err}
	}

	if err := f.index.Add(record); err != nil {
		slog.Warn("Failed to register fingerprint, future duplicates will not be detected",
			"fingerprint", record.Fingerprint,
			"scope", record.Scope,
			"error", err,
		)
	}

	return record, nil
}

// Summary composes the human-readable confirmation for a saved record.
func (f *Finalizer) Summary(record *Record, lang string) string {
	amount := record.TotalAmount
	if amount != "" && !strings.HasPrefix(amount, "$") {
		amount = "$" + amount
	}

	if lang == "en" {
		return fmt.Sprintf("✅ Receipt saved!\n• Merchant: %s\n• Date: %s\n• Amount: %s\n• Category: %s\n• Property: %s\n\nSend me another receipt anytime!",
			record.Merchant, record.Date, amount, record.Category, record.CostCenter)
	}
	return fmt.Sprintf("✅ ¡Recibo guardado!\n• Comercio: %s\n• Fecha: %s\n• Monto: %s\n• Categoría: %s\n• Propiedad: %s\n\n¡Envíame otro recibo cuando quieras!",
		record.Merchant, record.Date, amount, record.Category, record.CostCenter)
}

var filenameCleaner = regexp.MustCompile(`[^a-zA-Z0-9\s\-_]`)
var spaceCollapser = regexp.MustCompile(`\s+`)

// uploadFilename builds a storage name from the merchant and timestamp,
// stripping characters that upset storage backends.
func uploadFilename(merchant string, contentType string, now time.Time) string {
	base := filenameCleaner.ReplaceAllString(merchant, "")
	base = spaceCollapser.ReplaceAllString(base, " ")
	base = strings.TrimSpace(base)
	if len(base) > 50 {
		base = base[:50]
	}
	if base == "" {
		base = "receipt"
	}
	base = strings.ReplaceAll(base, " ", "_")

	ext := ".jpg"
	switch strings.ToLower(strings.TrimSpace(contentType)) {
	case "image/png":
		ext = ".png"
	case "application/pdf":
		ext = ".pdf"
	case "image/heic", "image/heif":
		ext = ".heic"
	}

	return fmt.Sprintf("%s_%s%s", now.Format("20060102-150405"), base, ext)
}
