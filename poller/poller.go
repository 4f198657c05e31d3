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
	"container/list"
	"os"
	"sync"
	"sync/atomic"
	"time"

	liblog "github.com/nabbar/reactor/logger"

	"golang.org/x/sys/unix"
)

// maxPollTimeout bounds how long a single wait() call blocks when the delay
// heap is empty, so a Poller notices Shutdown even with no pending fd or
// delay-task activity.
const maxPollTimeout = time.Second

// loadWindow is the width of the rolling CPU-utilization sample used by
// Pool.GetPoller for least-loaded selection.
const loadWindow = 2 * time.Second

type fdEntry struct {
	ev Event
	cb EventCB
}

// poller is the concrete, unexported implementation of Poller. Every field
// below the wake pipe is only ever touched from the loop goroutine itself or
// guarded by mu; the wake pipe lets other goroutines interrupt a blocked
// wait() without a lock.
type poller struct {
	log liblog.Logger

	backend multiplexer

	wakeR *os.File
	wakeW *os.File

	mu       sync.Mutex
	fds      map[int]*fdEntry
	tasks    *list.List // of Task
	delays   delayHeap
	delaySeq uint64
	closed   bool

	loopID   atomic.Uint64
	shutdown chan struct{}
	done     chan struct{}
	once     sync.Once

	busyNanos        atomic.Int64
	windowStartNanos atomic.Int64
}

// New starts a Poller and its loop goroutine.
func New(log liblog.Logger) (Poller, error) {
	if log == nil {
		log = liblog.NewSilent()
	}

	r, w, e := os.Pipe()
	if e != nil {
		return nil, e
	}

	p := &poller{
		log:      log,
		backend:  newMultiplexer(),
		wakeR:    r,
		wakeW:    w,
		fds:      make(map[int]*fdEntry),
		tasks:    list.New(),
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
	}

	if e = p.backend.open(); e != nil {
		_ = r.Close()
		_ = w.Close()
		return nil, e
	}

	// os.File.Fd puts the fds back into blocking mode; the wake pipe must
	// stay non-blocking so draining it can never stall the loop.
	_ = unix.SetNonblock(int(r.Fd()), true)
	_ = unix.SetNonblock(int(w.Fd()), true)

	if e = p.backend.add(int(r.Fd()), EventRead|EventLevelTriggered); e != nil {
		_ = p.backend.close()
		_ = r.Close()
		_ = w.Close()
		return nil, e
	}

	p.windowStartNanos.Store(time.Now().UnixNano())

	go p.run()

	return p, nil
}

func (p *poller) wake() {
	// EAGAIN on a full pipe is fine: a wake byte is already pending.
	_, _ = unix.Write(int(p.wakeW.Fd()), []byte{0})
}

func (p *poller) drainWake() {
	var buf [64]byte
	fd := int(p.wakeR.Fd())
	for {
		n, e := unix.Read(fd, buf[:])
		if n <= 0 || e != nil || n < len(buf) {
			return
		}
	}
}

func (p *poller) run() {
	registerCurrent(p)
	p.loopID.Store(goroutineID())

	defer func() {
		unregisterCurrent()
		close(p.done)
	}()

	events := make([]readyFd, 0, 64)

	for {
		select {
		case <-p.shutdown:
			// Pending tasks run before teardown so a blocked Sync caller
			// is always released.
			p.runDueTasks()
			p.teardown()
			return
		default:
		}

		timeout := p.nextTimeout()

		events = events[:0]
		var werr error
		events, werr = p.backend.wait(timeout, events)
		if werr != nil {
			// interrupted waits are retried inside the backend; anything
			// surfacing here means the multiplexer handle itself is gone.
			p.log.Error("terminating loop", ErrMultiplexerDead, werr)
			p.runDueTasks()
			p.teardown()
			return
		}

		for _, ev := range events {
			if ev.fd == int(p.wakeR.Fd()) {
				p.drainWake()
				continue
			}
			p.dispatch(ev.fd, ev.ev)
		}

		p.runDueTasks()
		p.runDueDelays()
	}
}

func (p *poller) dispatch(fd int, ev Event) {
	p.mu.Lock()
	e, ok := p.fds[fd]
	p.mu.Unlock()

	if !ok || e.cb == nil {
		return
	}

	p.safeCall(func() { e.cb(ev) })
}

func (p *poller) safeCall(fn func()) {
	start := time.Now()
	defer func() {
		p.busyNanos.Add(time.Since(start).Nanoseconds())
		if r := recover(); r != nil {
			p.log.Error("recovered panic in poller callback", r)
		}
	}()
	fn()
}

// loadRatio reports the fraction of wall time, since the current sampling
// window opened, spent inside callback/task/delay execution. The window
// resets whenever it is found older than the target width, giving a cheap
// approximation of a rolling 2-second CPU-utilization counter without
// keeping a full sample history.
func (p *poller) loadRatio() float64 {
	now := time.Now().UnixNano()
	start := p.windowStartNanos.Load()
	elapsed := now - start

	if elapsed > int64(loadWindow) {
		p.windowStartNanos.Store(now)
		p.busyNanos.Store(0)
		return 0
	}
	if elapsed <= 0 {
		return 0
	}

	busy := p.busyNanos.Load()
	return float64(busy) / float64(elapsed)
}

func (p *poller) runDueTasks() {
	for {
		p.mu.Lock()
		front := p.tasks.Front()
		if front == nil {
			p.mu.Unlock()
			return
		}
		p.tasks.Remove(front)
		p.mu.Unlock()

		t := front.Value.(Task)
		p.safeCall(t)
	}
}

func (p *poller) nextTimeout() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.tasks.Len() > 0 {
		return 0
	}
	if len(p.delays) == 0 {
		return maxPollTimeout
	}

	d := time.Until(p.delays[0].deadline)
	if d < 0 {
		return 0
	}
	if d > maxPollTimeout {
		return maxPollTimeout
	}
	return d
}

func (p *poller) runDueDelays() {
	now := time.Now()

	for {
		p.mu.Lock()
		if len(p.delays) == 0 || p.delays[0].deadline.After(now) {
			p.mu.Unlock()
			return
		}
		d := heap.Pop(&p.delays).(*delayTask)
		p.mu.Unlock()

		fn := d.fetch()
		if fn == nil {
			continue
		}

		var next time.Duration
		p.safeCall(func() {
			next = fn()
		})

		if next <= 0 {
			continue
		}

		p.mu.Lock()
		d.deadline = now.Add(next)
		heap.Push(&p.delays, d)
		p.mu.Unlock()
	}
}

func (p *poller) teardown() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	_ = p.backend.close()
	_ = p.wakeR.Close()
	_ = p.wakeW.Close()
}

func (p *poller) AddEvent(fd int, ev Event, cb EventCB) error {
	if cb == nil {
		return ErrEventCBNil
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrClosed
	}
	p.fds[fd] = &fdEntry{ev: ev, cb: cb}
	p.mu.Unlock()

	var err error
	p.runInline(func() {
		err = p.backend.add(fd, ev)
	})
	return err
}

// runInline executes fn on the loop goroutine: immediately when the caller
// already is the loop, else through Sync. Backend mutations go through here
// so API calls work the same from loop callbacks and foreign goroutines.
func (p *poller) runInline(fn func()) {
	if p.IsCurrentThread() {
		fn()
		return
	}
	p.Sync(fn)
}

func (p *poller) DelEvent(fd int, cb DelCB) {
	if cb == nil {
		cb = func(bool) {}
	}

	p.Async(func() {
		p.mu.Lock()
		_, ok := p.fds[fd]
		delete(p.fds, fd)
		p.mu.Unlock()

		if !ok {
			cb(false)
			return
		}

		_ = p.backend.del(fd)
		cb(true)
	}, true)
}

func (p *poller) ModifyEvent(fd int, ev Event) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrClosed
	}
	e, ok := p.fds[fd]
	if ok {
		e.ev = ev
	}
	p.mu.Unlock()

	if !ok {
		return ErrFdNotFound
	}

	var err error
	p.runInline(func() {
		err = p.backend.modify(fd, ev)
	})
	return err
}

func (p *poller) pushTask(task Task, front bool) bool {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return false
	}
	if front {
		p.tasks.PushFront(task)
	} else {
		p.tasks.PushBack(task)
	}
	p.mu.Unlock()
	p.wake()
	return true
}

func (p *poller) Async(task Task, maySync bool) {
	if maySync && p.IsCurrentThread() {
		p.safeCall(task)
		return
	}
	_ = p.pushTask(task, false)
}

func (p *poller) AsyncFirst(task Task, maySync bool) {
	if maySync && p.IsCurrentThread() {
		p.safeCall(task)
		return
	}
	_ = p.pushTask(task, true)
}

func (p *poller) syncVia(task Task, front bool) {
	if p.IsCurrentThread() {
		panic(ErrSyncDeadlock)
	}

	wait := make(chan struct{})
	if !p.pushTask(func() {
		defer close(wait)
		task()
	}, front) {
		return
	}

	// The loop drains tasks before teardown, but a push that lands between
	// that final drain and the closed flag would otherwise block forever.
	select {
	case <-wait:
	case <-p.done:
	}
}

func (p *poller) Sync(task Task)      { p.syncVia(task, false) }
func (p *poller) SyncFirst(task Task) { p.syncVia(task, true) }

func (p *poller) DoDelayTask(delay time.Duration, task DelayTaskFunc) DelayHandle {
	p.mu.Lock()
	p.delaySeq++
	d := newDelayTask(time.Now().Add(delay), p.delaySeq, task)
	heap.Push(&p.delays, d)
	p.mu.Unlock()

	p.wake()
	return d
}

func (p *poller) IsCurrentThread() bool {
	return p.loopID.Load() == goroutineID()
}

func (p *poller) LoadRatio() float64 {
	return p.loadRatio()
}

func (p *poller) FdCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.fds)
}

func (p *poller) Shutdown() {
	p.once.Do(func() {
		close(p.shutdown)
		p.wake()
		<-p.done
	})
}
