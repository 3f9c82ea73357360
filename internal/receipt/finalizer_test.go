package receipt

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/zombor/expense-bot/internal/extraction"
)

func TestReceipt(t *testing.T) {
	// Disable logging during tests
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))

	RegisterFailHandler(Fail)
	RunSpecs(t, "Receipt Suite")
}

type fakeUploader struct {
	err       error
	filenames []string
	data      [][]byte
}

func (f *fakeUploader) Upload(_ context.Context, filename string, data []byte, _ string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.filenames = append(f.filenames, filename)
	f.data = append(f.data, data)
	return "https://files.example/" + filename, nil
}

type fakeLedger struct {
	err     error
	records []*Record
}

func (f *fakeLedger) Append(_ context.Context, record *Record) error {
	if f.err != nil {
		return f.err
	}
	f.records = append(f.records, record)
	return nil
}

type fakeIndex struct {
	err   error
	added []*Record
}

func (f *fakeIndex) Lookup(string, string) (*Record, error) { return nil, nil }

func (f *fakeIndex) Add(record *Record) error {
	if f.err != nil {
		return f.err
	}
	f.added = append(f.added, record)
	return nil
}

func (f *fakeIndex) Close() error { return nil }

type stubTime struct{ t time.Time }

func (s *stubTime) Now() time.Time { return s.t }

var _ = Describe("Finalizer", func() {
	var (
		finalizer *Finalizer
		uploader  *fakeUploader
		ledger    *fakeLedger
		index     *fakeIndex
		now       time.Time
		sub       Submission
	)

	BeforeEach(func() {
		uploader = &fakeUploader{}
		ledger = &fakeLedger{}
		index = &fakeIndex{}
		now = time.Date(2024, 11, 25, 14, 30, 45, 0, time.UTC)
		finalizer = NewFinalizerWithDeps(uploader, ledger, index, &stubTime{t: now})

		fields := extraction.NewFields()
		fields.Set(extraction.FieldMerchant, "Starbucks")
		fields.Set(extraction.FieldDate, "2024-11-25")
		fields.Set(extraction.FieldTotalAmount, "15.67")
		fields.Set(extraction.FieldCategory, "Meals")
		fields.Set(extraction.FieldCostCenter, "Marketing")
		fields.Set(extraction.FieldPaymentMethod, "Credit Card")
		fields.SetLineItems([]extraction.LineItem{{Description: "Latte", Amount: "5.50"}})

		sub = Submission{
			SubmitterID: "+5491100001111",
			Scope:       "acme",
			ImageData:   []byte("image bytes"),
			ContentType: "image/jpeg",
			Fingerprint: "abc123",
			Fields:      fields,
		}
	})

	It("uploads, appends and registers the fingerprint", func() {
		record, err := finalizer.Finalize(context.Background(), sub)

		Expect(err).ToNot(HaveOccurred())
		Expect(uploader.filenames).To(Equal([]string{"20241125-143045_Starbucks.jpg"}))
		Expect(uploader.data[0]).To(Equal([]byte("image bytes")))

		Expect(ledger.records).To(HaveLen(1))
		Expect(record).To(Equal(ledger.records[0]))
		Expect(record.Timestamp).To(Equal(now))
		Expect(record.Merchant).To(Equal("Starbucks"))
		Expect(record.TotalAmount).To(Equal("15.67"))
		Expect(record.CostCenter).To(Equal("Marketing"))
		Expect(record.LineItems).To(HaveLen(1))
		Expect(record.StorageURL).To(Equal("https://files.example/20241125-143045_Starbucks.jpg"))
		Expect(record.Fingerprint).To(Equal("abc123"))
		Expect(record.Scope).To(Equal("acme"))

		Expect(index.added).To(Equal([]*Record{record}))
	})

	It("returns an upload-step error and appends nothing", func() {
		uploader.err = errors.New("bucket gone")

		_, err := finalizer.Finalize(context.Background(), sub)

		var finalizeErr *FinalizeError
		Expect(errors.As(err, &finalizeErr)).To(BeTrue())
		Expect(finalizeErr.Step).To(Equal(StepUpload))
		Expect(ledger.records).To(BeEmpty())
		Expect(index.added).To(BeEmpty())
	})

	It("returns an append-step error after a successful upload", func() {
		ledger.err = errors.New("quota exceeded")

		_, err := finalizer.Finalize(context.Background(), sub)

		var finalizeErr *FinalizeError
		Expect(errors.As(err, &finalizeErr)).To(BeTrue())
		Expect(finalizeErr.Step).To(Equal(StepAppend))
		Expect(uploader.filenames).To(HaveLen(1))
		Expect(index.added).To(BeEmpty())
	})

	It("swallows an index failure once the row is appended", func() {
		index.err = errors.New("db closed")

		record, err := finalizer.Finalize(context.Background(), sub)

		Expect(err).ToNot(HaveOccurred())
		Expect(record).ToNot(BeNil())
		Expect(ledger.records).To(HaveLen(1))
	})

	Describe("Summary", func() {
		It("renders a Spanish confirmation with a dollar-prefixed amount", func() {
			record, err := finalizer.Finalize(context.Background(), sub)
			Expect(err).ToNot(HaveOccurred())

			summary := finalizer.Summary(record, "es")
			Expect(summary).To(ContainSubstring("¡Recibo guardado!"))
			Expect(summary).To(ContainSubstring("Comercio: Starbucks"))
			Expect(summary).To(ContainSubstring("Monto: $15.67"))
			Expect(summary).To(ContainSubstring("Propiedad: Marketing"))
		})

		It("renders an English confirmation", func() {
			record, err := finalizer.Finalize(context.Background(), sub)
			Expect(err).ToNot(HaveOccurred())

			summary := finalizer.Summary(record, "en")
			Expect(summary).To(ContainSubstring("Receipt saved!"))
			Expect(summary).To(ContainSubstring("Property: Marketing"))
		})
	})
})

var _ = Describe("uploadFilename", func() {
	now := time.Date(2024, 11, 25, 14, 30, 45, 0, time.UTC)

	It("strips special characters and collapses spaces", func() {
		name := uploadFilename("Joe's  Café #42!", "image/png", now)
		Expect(name).To(Equal("20241125-143045_Joes_Caf_42.png"))
	})

	It("falls back to a generic base for an empty merchant", func() {
		Expect(uploadFilename("", "image/jpeg", now)).To(Equal("20241125-143045_receipt.jpg"))
		Expect(uploadFilename("@#$%", "image/jpeg", now)).To(Equal("20241125-143045_receipt.jpg"))
	})

	It("caps very long merchant names", func() {
		long := ""
		for i := 0; i < 20; i++ {
			long += "abcde"
		}
		name := uploadFilename(long, "image/jpeg", now)
		Expect(len(name)).To(BeNumerically("<=", len("20241125-143045_")+50+len(".jpg")))
	})

	It("picks the extension from the content type", func() {
		Expect(uploadFilename("Shop", "application/pdf", now)).To(HaveSuffix(".pdf"))
		Expect(uploadFilename("Shop", "image/heic", now)).To(HaveSuffix(".heic"))
		Expect(uploadFilename("Shop", "text/weird", now)).To(HaveSuffix(".jpg"))
	})
})
