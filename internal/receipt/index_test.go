package receipt

import (
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("BoltIndex", func() {
	var (
		index  *BoltIndex
		tmpDir string
	)

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "expense-bot-index")
		Expect(err).ToNot(HaveOccurred())

		index, err = NewBoltIndex(filepath.Join(tmpDir, "index.db"))
		Expect(err).ToNot(HaveOccurred())
	})

	AfterEach(func() {
		index.Close()
		os.RemoveAll(tmpDir)
	})

	It("returns nil for an unknown fingerprint", func() {
		record, err := index.Lookup("acme", "deadbeef")
		Expect(err).ToNot(HaveOccurred())
		Expect(record).To(BeNil())
	})

	It("round-trips a record", func() {
		record := &Record{
			Timestamp:   time.Date(2024, 11, 25, 14, 30, 45, 0, time.UTC),
			Merchant:    "Starbucks",
			Date:        "2024-11-25",
			TotalAmount: "15.67",
			Category:    "Meals",
			CostCenter:  "Marketing",
			Fingerprint: "deadbeef",
			Scope:       "acme",
			SubmittedBy: "+5491100001111",
		}
		Expect(index.Add(record)).To(Succeed())

		got, err := index.Lookup("acme", "deadbeef")
		Expect(err).ToNot(HaveOccurred())
		Expect(got).ToNot(BeNil())
		Expect(got.Merchant).To(Equal("Starbucks"))
		Expect(got.TotalAmount).To(Equal("15.67"))
		Expect(got.Timestamp.Equal(record.Timestamp)).To(BeTrue())
	})

	It("isolates fingerprints between scopes", func() {
		Expect(index.Add(&Record{Fingerprint: "deadbeef", Scope: "acme", Merchant: "Starbucks"})).To(Succeed())

		got, err := index.Lookup("globex", "deadbeef")
		Expect(err).ToNot(HaveOccurred())
		Expect(got).To(BeNil())
	})

	It("overwrites an existing fingerprint with the newer record", func() {
		Expect(index.Add(&Record{Fingerprint: "deadbeef", Scope: "acme", Merchant: "First"})).To(Succeed())
		Expect(index.Add(&Record{Fingerprint: "deadbeef", Scope: "acme", Merchant: "Second"})).To(Succeed())

		got, err := index.Lookup("acme", "deadbeef")
		Expect(err).ToNot(HaveOccurred())
		Expect(got.Merchant).To(Equal("Second"))
	})

	It("persists across reopen", func() {
		path := filepath.Join(tmpDir, "index.db")
		Expect(index.Add(&Record{Fingerprint: "deadbeef", Scope: "acme", Merchant: "Starbucks"})).To(Succeed())
		Expect(index.Close()).To(Succeed())

		reopened, err := NewBoltIndex(path)
		Expect(err).ToNot(HaveOccurred())
		index = reopened

		got, err := index.Lookup("acme", "deadbeef")
		Expect(err).ToNot(HaveOccurred())
		Expect(got).ToNot(BeNil())
	})
})
