package conversation

import (
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Store", func() {
	var store *Store

	BeforeEach(func() {
		store = NewStore()
	})

	It("passes nil for a submitter with no session", func() {
		var got *Session
		called := false
		store.Update("user", func(sess *Session) *Session {
			called = true
			got = sess
			return nil
		})
		Expect(called).To(BeTrue())
		Expect(got).To(BeNil())
		Expect(store.Len()).To(BeZero())
	})

	It("keeps the returned session for the next update", func() {
		store.Update("user", func(*Session) *Session {
			return &Session{State: StateCollectingInfo}
		})
		Expect(store.Len()).To(Equal(1))

		store.Update("user", func(sess *Session) *Session {
			Expect(sess).NotTo(BeNil())
			Expect(sess.State).To(Equal(StateCollectingInfo))
			return nil
		})
		Expect(store.Len()).To(BeZero())
	})

	It("isolates sessions between submitters", func() {
		store.Update("alice", func(*Session) *Session {
			return &Session{State: StateCollectingInfo}
		})
		store.Update("bob", func(sess *Session) *Session {
			Expect(sess).To(BeNil())
			return nil
		})
		Expect(store.Len()).To(Equal(1))
	})

	It("serializes updates for the same submitter", func() {
		const workers = 8
		counter := 0

		var wg sync.WaitGroup
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				store.Update("user", func(sess *Session) *Session {
					// Unsynchronized on purpose: only per-key serialization
					// makes this safe.
					counter++
					if sess == nil {
						sess = &Session{}
					}
					return sess
				})
			}()
		}
		wg.Wait()

		Expect(counter).To(Equal(workers))
		Expect(store.Len()).To(Equal(1))
	})

	It("does not block updates for other submitters behind a slow one", func() {
		release := make(chan struct{})
		slowStarted := make(chan struct{})
		go func() {
			store.Update("slow", func(*Session) *Session {
				close(slowStarted)
				<-release
				return nil
			})
		}()
		<-slowStarted

		done := make(chan struct{})
		go func() {
			store.Update("fast", func(*Session) *Session { return nil })
			close(done)
		}()

		Eventually(done).Should(BeClosed())
		close(release)
	})

	Describe("Reap", func() {
		now := time.Date(2024, 11, 25, 12, 0, 0, 0, time.UTC)

		It("drops sessions idle past the limit and keeps fresh ones", func() {
			store.Update("stale", func(*Session) *Session {
				return &Session{LastActivityAt: now.Add(-time.Hour)}
			})
			store.Update("fresh", func(*Session) *Session {
				return &Session{LastActivityAt: now.Add(-time.Minute)}
			})

			reaped := store.Reap(30*time.Minute, now)

			Expect(reaped).To(Equal(1))
			Expect(store.Len()).To(Equal(1))
			store.Update("stale", func(sess *Session) *Session {
				Expect(sess).To(BeNil())
				return nil
			})
		})

		It("lets a new session claim a reaped slot", func() {
			store.Update("user", func(*Session) *Session {
				return &Session{LastActivityAt: now.Add(-time.Hour)}
			})
			store.Reap(30*time.Minute, now)

			store.Update("user", func(sess *Session) *Session {
				Expect(sess).To(BeNil())
				return &Session{LastActivityAt: now}
			})
			Expect(store.Len()).To(Equal(1))
		})

		It("returns zero on an empty store", func() {
			Expect(store.Reap(time.Minute, now)).To(BeZero())
		})
	})
})
