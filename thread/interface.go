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

// Package thread is a pool of worker goroutines pulling from one shared
// FIFO task queue. It complements the poller package: a Poller serializes
// work onto its single loop goroutine, a ThreadPool spreads independent
// work across many. Workers may optionally be locked to OS threads with a
// CPU affinity mask and a scheduling priority applied at start.
package thread

// Task is a unit of work handed to Async/Sync.
type Task func()

// Priority is the OS scheduling priority applied to each worker's backing
// thread at start. Mapping to the platform's priority scale is best effort;
// an unprivileged process may be refused the higher levels.
type Priority int

// PriorityNormal is the zero value.
const (
	PriorityLowest Priority = iota - 2
	PriorityLow
	PriorityNormal
	PriorityHigh
	PriorityHighest
)

// Executor is the task-submission surface shared by ThreadPool and any
// other component that accepts work for deferred execution.
type Executor interface {
	// Async queues task for execution by any worker. If maySync is true and
	// the caller is itself a pool worker, task runs inline instead. Returns
	// false after Shutdown.
	Async(task Task, maySync bool) bool

	// AsyncFirst is Async but pushes to the head of the queue, overtaking
	// tasks already waiting but not ones already picked up by a worker.
	AsyncFirst(task Task, maySync bool) bool

	// Sync queues task and blocks the caller until a worker (or the caller
	// itself, when invoked from a worker) has completed it.
	Sync(task Task) bool

	// SyncFirst is Sync with head insertion.
	SyncFirst(task Task) bool
}
