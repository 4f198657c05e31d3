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

package poller

import (
	"container/heap"
	"sync/atomic"
	"time"
)

// delayTask is one entry of the Poller's delay-task heap, keyed by absolute
// deadline. It mirrors the strong/weak cooperative-cancellation split: the
// loop goroutine holds the only strong reference via fn; Cancel clears it,
// so a task already popped off the heap for this tick still runs at most
// once more (the copy taken before the cancel takes effect), matching the
// cross-thread cancellation race the module's delay tasks are specified to
// tolerate.
type delayTask struct {
	deadline time.Time
	seq      uint64 // tie-breaker for equal deadlines, preserves insertion order
	fn       atomic.Value // holds DelayTaskFunc, or nil once cancelled
}

func newDelayTask(deadline time.Time, seq uint64, fn DelayTaskFunc) *delayTask {
	d := &delayTask{deadline: deadline, seq: seq}
	d.fn.Store(fn)
	return d
}

func (d *delayTask) Cancel() {
	d.fn.Store(DelayTaskFunc(nil))
}

// fetch returns the task's current function, or nil if it was cancelled.
func (d *delayTask) fetch() DelayTaskFunc {
	v := d.fn.Load()
	if v == nil {
		return nil
	}

	f, ok := v.(DelayTaskFunc)
	if !ok {
		return nil
	}
	return f
}

// delayHeap implements container/heap.Interface, ordering by deadline then
// by insertion sequence.
type delayHeap []*delayTask

func (h delayHeap) Len() int { return len(h) }

func (h delayHeap) Less(i, j int) bool {
	if h[i].deadline.Equal(h[j].deadline) {
		return h[i].seq < h[j].seq
	}
	return h[i].deadline.Before(h[j].deadline)
}

func (h delayHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *delayHeap) Push(x any) {
	*h = append(*h, x.(*delayTask))
}

func (h *delayHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}

var _ heap.Interface = (*delayHeap)(nil)
