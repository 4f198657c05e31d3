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

//go:build unix && !linux

package poller

import (
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

func newMultiplexer() multiplexer {
	return &selectMultiplexer{interest: make(map[int]Event)}
}

// selectMultiplexer backs a Poller on the non-Linux unix targets (darwin,
// the BSDs) with select(2). Every wait() call rebuilds the three fd_sets
// from the interest map instead of incrementally programming a kernel-side
// table the way epoll does; select offers no persistent registration to
// keep, so re-deriving per pass is the natural shape here.
type selectMultiplexer struct {
	mu       sync.Mutex
	interest map[int]Event
}

const fdSetWordBits = 32

func fdSet(set *unix.FdSet, fd int) {
	set.Bits[fd/fdSetWordBits] |= 1 << uint(fd%fdSetWordBits)
}

func fdIsSet(set *unix.FdSet, fd int) bool {
	return set.Bits[fd/fdSetWordBits]&(1<<uint(fd%fdSetWordBits)) != 0
}

func (m *selectMultiplexer) open() error {
	return nil
}

func (m *selectMultiplexer) add(fd int, ev Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.interest[fd] = ev
	return nil
}

func (m *selectMultiplexer) modify(fd int, ev Event) error {
	return m.add(fd, ev)
}

func (m *selectMultiplexer) del(fd int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.interest, fd)
	return nil
}

func (m *selectMultiplexer) wait(timeout time.Duration, dst []readyFd) ([]readyFd, error) {
	m.mu.Lock()
	interest := make(map[int]Event, len(m.interest))
	for fd, ev := range m.interest {
		interest[fd] = ev
	}
	m.mu.Unlock()

	var rset, wset, eset unix.FdSet
	maxFd := 0

	for fd, ev := range interest {
		if ev&EventRead != 0 {
			fdSet(&rset, fd)
		}
		if ev&EventWrite != 0 {
			fdSet(&wset, fd)
		}
		if ev&EventError != 0 {
			fdSet(&eset, fd)
		}
		if fd > maxFd {
			maxFd = fd
		}
	}

	var tv *unix.Timeval
	if timeout >= 0 {
		t := unix.NsecToTimeval(timeout.Nanoseconds())
		tv = &t
	}

	n, e := unix.Select(maxFd+1, &rset, &wset, &eset, tv)
	for e == unix.EINTR {
		n, e = unix.Select(maxFd+1, &rset, &wset, &eset, tv)
	}
	if e != nil {
		return dst, e
	}
	if n == 0 {
		return dst, nil
	}

	for fd, ev := range interest {
		var got Event
		if ev&EventRead != 0 && fdIsSet(&rset, fd) {
			got |= EventRead
		}
		if ev&EventWrite != 0 && fdIsSet(&wset, fd) {
			got |= EventWrite
		}
		if ev&EventError != 0 && fdIsSet(&eset, fd) {
			got |= EventError
		}
		if got != 0 {
			dst = append(dst, readyFd{fd: fd, ev: got})
		}
	}

	return dst, nil
}

func (m *selectMultiplexer) close() error {
	return nil
}
