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

package socket

import (
	"fmt"
	"net"
	"time"
)

// Send copies buf into the waiting queue and triggers a flush attempt.
// Every enqueue is followed by an immediate drain attempt so a Socket that
// is not backlogged never pays queueing latency.
func (s *sock) Send(buf []byte, addr net.Addr, done func(error)) (int, error) {
	if len(buf) == 0 {
		return 0, nil
	}

	cp := make([]byte, len(buf))
	copy(cp, buf)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return -1, fmt.Errorf("socket: send on closed socket")
	}
	s.waiting = append(s.waiting, &buffer{data: cp, addr: addr, done: done})
	s.mu.Unlock()

	s.flush()
	return len(buf), nil
}

// flush drains as much of the waiting/sending queue as the transport will
// currently accept. It always runs on the owning Poller's loop goroutine:
// callers off that goroutine are redirected through Async.
func (s *sock) flush() {
	if !s.poller.IsCurrentThread() {
		s.poller.Async(s.flush, false)
		return
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	if s.sending == nil || s.sending.empty() {
		if len(s.waiting) == 0 {
			s.mu.Unlock()
			return
		}
		s.sending = newBufferList(s.waiting)
		s.waiting = nil
	}
	s.mu.Unlock()

	switch s.kind {
	case TCP:
		s.flushTCP()
	case UDP:
		s.flushUDP()
	}
}

// flushDone is invoked by the per-kind flush implementation once the
// sending snapshot has been fully drained (or found still non-empty and
// Write-interest armed): it fires OnFlush when the queue just went empty.
func (s *sock) flushDone(wentEmpty bool) {
	if !wentEmpty {
		return
	}

	s.lastFlushed.Store(time.Now().UnixNano())

	cb := s.getOnFlush()
	if cb == nil {
		return
	}
	if !cb() {
		s.SetOnFlush(nil)
	}
}
