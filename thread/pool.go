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

package thread

import (
	"bytes"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"

	liblog "github.com/nabbar/reactor/logger"
)

// Config tunes a ThreadPool at construction. The zero value is usable:
// NumCPU workers, normal priority, no pinning.
type Config struct {
	// Workers is the worker count; <= 0 defaults to runtime.NumCPU().
	Workers int

	// Priority is applied to each worker's backing OS thread at start.
	// Anything other than PriorityNormal forces the worker goroutines onto
	// locked OS threads for their whole lifetime.
	Priority Priority

	// CPUAffinity, when non-empty, pins each worker's backing OS thread to
	// the given CPU set. Implies locked OS threads, like Priority.
	CPUAffinity []int
}

// ThreadPool runs Config.Workers goroutines draining one shared FIFO task
// queue. Task panics are caught and logged; they never kill a worker.
type ThreadPool struct {
	log   liblog.Logger
	queue *taskQueue
	size  int

	avail atomic.Bool
	wg    sync.WaitGroup

	idMu sync.RWMutex
	ids  map[uint64]struct{}
}

// NewThreadPool starts the workers immediately.
func NewThreadPool(cfg Config, log liblog.Logger) *ThreadPool {
	if log == nil {
		log = liblog.NewSilent()
	}

	size := cfg.Workers
	if size <= 0 {
		size = runtime.NumCPU()
	}

	p := &ThreadPool{
		log:   log.WithField("component", "threadpool"),
		queue: newTaskQueue(),
		size:  size,
		ids:   make(map[uint64]struct{}, size),
	}
	p.avail.Store(true)

	lockThread := cfg.Priority != PriorityNormal || len(cfg.CPUAffinity) > 0

	p.wg.Add(size)
	for i := 0; i < size; i++ {
		go p.worker(cfg, lockThread)
	}

	return p
}

func (p *ThreadPool) worker(cfg Config, lockThread bool) {
	defer p.wg.Done()

	if lockThread {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()

		if cfg.Priority != PriorityNormal {
			if e := setThreadPriority(cfg.Priority); e != nil {
				p.log.Warn("set worker thread priority", e)
			}
		}
		if len(cfg.CPUAffinity) > 0 {
			if e := setThreadAffinity(cfg.CPUAffinity); e != nil {
				p.log.Warn("set worker thread affinity", e)
			}
		}
	}

	id := goroutineID()
	p.idMu.Lock()
	p.ids[id] = struct{}{}
	p.idMu.Unlock()

	defer func() {
		p.idMu.Lock()
		delete(p.ids, id)
		p.idMu.Unlock()
	}()

	for {
		task := p.queue.pop()
		if task == nil {
			return
		}
		p.safeCall(task)
	}
}

func (p *ThreadPool) safeCall(task Task) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Error("recovered panic in thread pool task", r)
		}
	}()
	task()
}

// isWorker reports whether the calling goroutine is one of this pool's
// workers.
func (p *ThreadPool) isWorker() bool {
	id := goroutineID()
	p.idMu.RLock()
	_, ok := p.ids[id]
	p.idMu.RUnlock()
	return ok
}

func (p *ThreadPool) submit(task Task, maySync, front bool) bool {
	if task == nil || !p.avail.Load() {
		return false
	}

	if maySync && p.isWorker() {
		p.safeCall(task)
		return true
	}

	if front {
		p.queue.pushFirst(task)
	} else {
		p.queue.push(task)
	}
	return true
}

func (p *ThreadPool) Async(task Task, maySync bool) bool {
	return p.submit(task, maySync, false)
}

func (p *ThreadPool) AsyncFirst(task Task, maySync bool) bool {
	return p.submit(task, maySync, true)
}

func (p *ThreadPool) syncVia(task Task, front bool) bool {
	if task == nil {
		return false
	}

	done := make(chan struct{})
	ok := p.submit(func() {
		defer close(done)
		task()
	}, true, front)

	if ok {
		<-done
	}
	return ok
}

func (p *ThreadPool) Sync(task Task) bool      { return p.syncVia(task, false) }
func (p *ThreadPool) SyncFirst(task Task) bool { return p.syncVia(task, true) }

// Size reports the number of tasks currently waiting in the queue.
func (p *ThreadPool) Size() uint64 {
	return p.queue.size()
}

// Workers reports the worker count the pool was started with.
func (p *ThreadPool) Workers() int {
	return p.size
}

// Shutdown refuses further submissions, posts one exit sentinel per worker,
// and joins them. Tasks already queued ahead of the sentinels still run.
func (p *ThreadPool) Shutdown() {
	if !p.avail.CompareAndSwap(true, false) {
		return
	}

	for i := 0; i < p.size; i++ {
		p.queue.push(nil)
	}
	p.wg.Wait()
}

// goroutineID extracts the numeric id the runtime prints at the head of a
// goroutine's stack dump, the same trick the poller package uses to answer
// IsCurrentThread. Only consulted for the run-inline fast path.
func goroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	b := bytes.TrimPrefix(buf[:n], []byte("goroutine "))
	if i := bytes.IndexByte(b, ' '); i >= 0 {
		b = b[:i]
	}
	id, _ := strconv.ParseUint(string(b), 10, 64)
	return id
}
