package conversation

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Reaper", func() {
	var store *Store

	BeforeEach(func() {
		store = NewStore()
	})

	It("drops a stale session on its own", func() {
		store.Update("user", func(*Session) *Session {
			return &Session{State: StateCollectingInfo, LastActivityAt: time.Now().Add(-time.Hour)}
		})

		reaper := NewReaper(store, 30*time.Minute, 5*time.Millisecond)
		reaper.Start(context.Background())
		defer reaper.Stop()

		Eventually(store.Len).Should(BeZero())
	})

	It("leaves active sessions alone while running", func() {
		store.Update("user", func(*Session) *Session {
			return &Session{State: StateCollectingInfo, LastActivityAt: time.Now()}
		})

		reaper := NewReaper(store, 30*time.Minute, 5*time.Millisecond)
		reaper.Start(context.Background())
		defer reaper.Stop()

		Consistently(store.Len).Should(Equal(1))
	})

	It("stops cleanly and tolerates repeated Stop calls", func() {
		reaper := NewReaper(store, time.Minute, time.Millisecond)
		reaper.Start(context.Background())

		done := make(chan struct{})
		go func() {
			reaper.Stop()
			reaper.Stop()
			close(done)
		}()
		Eventually(done).Should(BeClosed())
	})

	It("ignores a second Start while running", func() {
		reaper := NewReaper(store, time.Minute, time.Millisecond)
		ctx := context.Background()
		reaper.Start(ctx)
		reaper.Start(ctx)
		reaper.Stop()
	})

	It("falls back to defaults for non-positive settings", func() {
		reaper := NewReaper(store, 0, -time.Second)
		Expect(reaper.maxIdle).To(Equal(DefaultMaxIdle))
		Expect(reaper.interval).To(Equal(DefaultReapInterval))
	})
})
