package fingerprint

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestFingerprint(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Fingerprint Suite")
}

var _ = Describe("Sum", func() {
	It("is deterministic across repeated calls", func() {
		data := []byte("receipt image bytes")
		Expect(Sum(data)).To(Equal(Sum(data)))
	})

	It("returns a 64-character hex string", func() {
		Expect(Sum([]byte("anything"))).To(MatchRegexp(`^[0-9a-f]{64}$`))
	})

	It("produces a different digest for a single flipped bit", func() {
		original := []byte{0x01, 0x02, 0x03, 0x04}
		flipped := []byte{0x01, 0x02, 0x03, 0x05}
		Expect(Sum(original)).NotTo(Equal(Sum(flipped)))
	})

	It("handles empty input", func() {
		Expect(Sum(nil)).To(Equal(Sum([]byte{})))
	})
})
