package receipt

import (
	"context"
	"fmt"
	"log/slog"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/zombor/expense-bot/internal/extraction"
)

// Ledger is the append-only sink for finalized receipt rows.
type Ledger interface {
	Append(ctx context.Context, record *Record) error
}

var sheetHeaders = []any{
	"Timestamp",
	"Merchant Name",
	"Date",
	"Total Amount",
	"Category",
	"Cost Center",
	"Payment Method",
	"Line Items",
	"Storage URL",
	"Fingerprint",
	"Submitted By",
}

// SheetsLedger implements Ledger against a Google Sheet.
type SheetsLedger struct {
	svc     *sheets.Service
	sheetID string
}

// NewSheetsLedger creates a ledger for the given spreadsheet, writing the
// header row if the sheet is empty.
func NewSheetsLedger(ctx context.Context, credentialsFile string, sheetID string) (*SheetsLedger, error) {
	if sheetID == "" {
		return nil, fmt.Errorf("sheet id is required")
	}

	svc, err := sheets.NewService(ctx,
		option.WithCredentialsFile(credentialsFile),
		option.WithScopes(sheets.SpreadsheetsScope),
	)
	if err != nil {
		return nil, fmt.Errorf("creating sheets service: %w", err)
	}

	l := &SheetsLedger{svc: svc, sheetID: sheetID}
	l.ensureHeaders(ctx)
	return l, nil
}

// ensureHeaders writes the header row when the sheet has none. Best effort:
// a transient read failure here must not prevent startup.
func (l *SheetsLedger) ensureHeaders(ctx context.Context) {
	resp, err := l.svc.Spreadsheets.Values.Get(l.sheetID, "A1:K1").Context(ctx).Do()
	if err != nil {
		slog.Warn("Could not read sheet headers", "error", err)
		return
	}
	if len(resp.Values) > 0 {
		return
	}

	_, err = l.svc.Spreadsheets.Values.Update(l.sheetID, "A1:K1", &sheets.ValueRange{
		Values: [][]any{sheetHeaders},
	}).ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		slog.Warn("Could not write sheet headers", "error", err)
	}
}

// Append adds one row for the record.
func (l *SheetsLedger) Append(ctx context.Context, record *Record) error {
	row := []any{
		record.Timestamp.Format("2006-01-02 15:04:05"),
		record.Merchant,
		record.Date,
		record.TotalAmount,
		record.Category,
		record.CostCenter,
		record.PaymentMethod,
		extraction.FormatLineItems(record.LineItems),
		record.StorageURL,
		record.Fingerprint,
		record.SubmittedBy,
	}

	_, err := l.svc.Spreadsheets.Values.Append(l.sheetID, "A:K", &sheets.ValueRange{
		Values: [][]any{row},
	}).ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("appending sheet row: %w", err)
	}
	return nil
}
