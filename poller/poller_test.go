/*
 * MIT License
 *
 * Copyright (c) 2025 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

package poller_test

import (
	"os"
	"sync"
	"sync/atomic"
	"time"

	libpol "github.com/nabbar/reactor/poller"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Poller", func() {
	var p libpol.Poller

	BeforeEach(func() {
		var e error
		p, e = libpol.New(nil)
		Expect(e).ToNot(HaveOccurred())
	})

	AfterEach(func() {
		p.Shutdown()
	})

	Context("Async/Sync task handoff", func() {
		It("runs queued tasks in FIFO order", func() {
			var mu sync.Mutex
			var order []int

			var wg sync.WaitGroup
			wg.Add(3)

			for i := 0; i < 3; i++ {
				i := i
				p.Async(func() {
					mu.Lock()
					order = append(order, i)
					mu.Unlock()
					wg.Done()
				}, false)
			}

			wg.Wait()
			Expect(order).To(Equal([]int{0, 1, 2}))
		})

		It("runs an AsyncFirst task ahead of already-queued tasks", func() {
			var mu sync.Mutex
			var order []string
			var wg sync.WaitGroup
			wg.Add(2)

			block := make(chan struct{})
			p.Async(func() {
				<-block
				mu.Lock()
				order = append(order, "later")
				mu.Unlock()
				wg.Done()
			}, false)

			p.AsyncFirst(func() {
				mu.Lock()
				order = append(order, "first")
				mu.Unlock()
				wg.Done()
				close(block)
			}, false)

			wg.Wait()
			Expect(order).To(Equal([]string{"first", "later"}))
		})

		It("blocks the caller until a Sync task completes", func() {
			var ran int32
			p.Sync(func() {
				atomic.StoreInt32(&ran, 1)
			})
			Expect(atomic.LoadInt32(&ran)).To(Equal(int32(1)))
		})

		It("runs an Async task inline when maySync is set from the loop goroutine", func() {
			done := make(chan bool, 1)
			p.Async(func() {
				// from the loop, a maySync submission has run by the time
				// Async returns.
				ranInline := false
				p.Async(func() {
					ranInline = true
				}, true)
				done <- ranInline
			}, false)
			Eventually(done).Should(Receive(BeTrue()))
		})

		It("panics with ErrSyncDeadlock when Sync is called from its own loop", func() {
			caught := make(chan interface{}, 1)
			p.Async(func() {
				defer func() { caught <- recover() }()
				p.Sync(func() {})
			}, false)

			var got interface{}
			Eventually(caught).Should(Receive(&got))
			Expect(got).To(Equal(libpol.ErrSyncDeadlock))
		})
	})

	Context("DoDelayTask", func() {
		It("fires once after the delay and stops when returning zero", func() {
			var n int32
			p.DoDelayTask(20*time.Millisecond, func() time.Duration {
				atomic.AddInt32(&n, 1)
				return 0
			})

			Eventually(func() int32 { return atomic.LoadInt32(&n) }, time.Second, 5*time.Millisecond).
				Should(Equal(int32(1)))
			Consistently(func() int32 { return atomic.LoadInt32(&n) }, 100*time.Millisecond, 10*time.Millisecond).
				Should(Equal(int32(1)))
		})

		It("reschedules itself while returning a positive duration", func() {
			var n int32
			p.DoDelayTask(10*time.Millisecond, func() time.Duration {
				if atomic.AddInt32(&n, 1) >= 3 {
					return 0
				}
				return 10 * time.Millisecond
			})

			Eventually(func() int32 { return atomic.LoadInt32(&n) }, time.Second, 5*time.Millisecond).
				Should(Equal(int32(3)))
		})

		It("tolerates Cancel racing the first fire", func() {
			var n int32
			h := p.DoDelayTask(time.Millisecond, func() time.Duration {
				atomic.AddInt32(&n, 1)
				return 0
			})
			h.Cancel()

			Consistently(func() int32 { return atomic.LoadInt32(&n) }, 50*time.Millisecond, 10*time.Millisecond).
				Should(BeNumerically("<=", 1))
		})
	})

	Context("fd registration", func() {
		It("rejects AddEvent with a nil callback", func() {
			r, w, e := os.Pipe()
			Expect(e).ToNot(HaveOccurred())
			defer r.Close()
			defer w.Close()

			err := p.AddEvent(int(r.Fd()), libpol.EventRead, nil)
			Expect(err).To(Equal(libpol.ErrEventCBNil))
		})

		It("delivers a read event once the peer writes", func() {
			r, w, e := os.Pipe()
			Expect(e).ToNot(HaveOccurred())
			defer w.Close()

			got := make(chan libpol.Event, 1)
			Expect(p.AddEvent(int(r.Fd()), libpol.EventRead, func(ev libpol.Event) {
				got <- ev
				p.DelEvent(int(r.Fd()), func(bool) { _ = r.Close() })
			})).To(Succeed())

			_, e = w.Write([]byte("x"))
			Expect(e).ToNot(HaveOccurred())

			Eventually(got, time.Second).Should(Receive())
		})

		It("reports ErrFdNotFound for ModifyEvent on an unregistered fd", func() {
			err := p.ModifyEvent(999999, libpol.EventRead)
			Expect(err).To(Equal(libpol.ErrFdNotFound))
		})
	})

	Context("CurrentPoller", func() {
		It("is nil outside any loop goroutine", func() {
			Expect(libpol.CurrentPoller()).To(BeNil())
		})

		It("resolves to the owning Poller from inside a callback", func() {
			found := make(chan libpol.Poller, 1)
			p.Async(func() {
				found <- libpol.CurrentPoller()
			}, false)

			Eventually(found, time.Second).Should(Receive(Equal(p)))
		})
	})

	Context("Shutdown", func() {
		It("is idempotent", func() {
			p.Shutdown()
			Expect(func() { p.Shutdown() }).ToNot(Panic())
		})
	})
})
