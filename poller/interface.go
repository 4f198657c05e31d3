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

// Package poller is a single-threaded reactor: one goroutine per Poller
// multiplexes file-descriptor readiness, cross-goroutine task handoff, and a
// min-heap of delayed tasks. Every Socket, Server, and KCP Transport in this
// module runs its callbacks on the Poller that owns it; no locking is needed
// for per-Poller state because only that Poller's loop goroutine ever
// touches it.
package poller

import (
	"time"
)

// Event is the interest bitmask passed to AddEvent/ModifyEvent.
type Event int

const (
	EventRead Event = 1 << iota
	EventWrite
	EventError
	// EventLevelTriggered requests level-triggered delivery; edge-triggered
	// is the default for every other bit.
	EventLevelTriggered
)

// EventCB is invoked with the event mask actually observed.
type EventCB func(event Event)

// DelCB is invoked once, on the poller goroutine, after DelEvent completes.
type DelCB func(success bool)

// Task is unit of work handed to Async/Sync.
type Task func()

// DelayTaskFunc is invoked each time its delay expires. The returned
// duration schedules the next invocation; zero stops the task; a panic
// inside the task is caught, logged, and also stops it.
type DelayTaskFunc func() time.Duration

// DelayHandle cancels a delay task. Cancellation is cooperative: a task
// cancelled from a goroutine other than its Poller's may still fire once
// more before the cancellation takes effect.
type DelayHandle interface {
	Cancel()
}

// Poller drives one event loop. All of its methods are safe to call from
// any goroutine; methods that accept a Task run it on the loop goroutine.
type Poller interface {
	// AddEvent registers read/write/error interest on fd with a single
	// callback. Off the loop goroutine this is dispatched through Sync.
	AddEvent(fd int, ev Event, cb EventCB) error

	// DelEvent removes interest on fd. cb fires once, on the loop goroutine;
	// a nil cb is replaced with a no-op.
	DelEvent(fd int, cb DelCB)

	// ModifyEvent atomically updates the interest mask for fd.
	ModifyEvent(fd int, ev Event) error

	// Async schedules task at the tail of the loop's task queue. If the
	// caller already runs on the loop goroutine and maySync is true, task
	// runs inline instead.
	Async(task Task, maySync bool)

	// AsyncFirst is Async but pushes to the head of the queue.
	AsyncFirst(task Task, maySync bool)

	// Sync runs task on the loop goroutine and blocks the caller until it
	// completes. Calling Sync from the Poller's own loop goroutine against
	// itself panics with ErrSyncDeadlock.
	Sync(task Task)

	// SyncFirst is Sync but pushes to the head of the queue.
	SyncFirst(task Task)

	// DoDelayTask inserts task into the delay-task heap, first firing after
	// delay elapses.
	DoDelayTask(delay time.Duration, task DelayTaskFunc) DelayHandle

	// IsCurrentThread reports whether the calling goroutine is this
	// Poller's loop goroutine.
	IsCurrentThread() bool

	// LoadRatio reports the fraction of recent wall time this Poller spent
	// executing callbacks, tasks, and delay tasks — the figure
	// Pool.GetPoller compares for least-loaded selection.
	LoadRatio() float64

	// FdCount reports how many fds are currently registered.
	FdCount() int

	// Shutdown stops the loop: pokes the wake mechanism, drains pending
	// tasks, deregisters every fd, and joins the loop goroutine. On a
	// shut-down Poller, AddEvent and ModifyEvent return ErrClosed; tasks and
	// callbacks handed to Async, Sync, DelEvent and DoDelayTask are dropped
	// without running, and Sync returns at once.
	Shutdown()
}

// CurrentPoller returns the Poller owning the calling goroutine's loop, or
// nil if the caller is not running inside any Poller's loop.
func CurrentPoller() Poller {
	return currentPoller()
}
