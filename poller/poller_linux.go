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

//go:build linux

package poller

import (
	"time"

	"golang.org/x/sys/unix"
)

func newMultiplexer() multiplexer {
	return &epollMultiplexer{fd: -1}
}

// epollMultiplexer backs a Poller with epoll(7). Edge-triggered is the
// default per fd, matching EventRead/EventWrite; EventLevelTriggered opts a
// registration back into level-triggered delivery.
type epollMultiplexer struct {
	fd int
}

func toEpollEvents(ev Event) uint32 {
	var m uint32
	if ev&EventRead != 0 {
		m |= unix.EPOLLIN
	}
	if ev&EventWrite != 0 {
		m |= unix.EPOLLOUT
	}
	if ev&EventError != 0 {
		m |= unix.EPOLLERR | unix.EPOLLHUP
	}
	if ev&EventLevelTriggered == 0 {
		m |= unix.EPOLLET
	}
	return m
}

func fromEpollEvents(m uint32) Event {
	var ev Event
	if m&(unix.EPOLLIN|unix.EPOLLHUP) != 0 {
		ev |= EventRead
	}
	if m&unix.EPOLLOUT != 0 {
		ev |= EventWrite
	}
	if m&(unix.EPOLLERR|unix.EPOLLHUP) != 0 {
		ev |= EventError
	}
	return ev
}

func (m *epollMultiplexer) open() error {
	fd, e := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if e != nil {
		return e
	}
	m.fd = fd
	return nil
}

func (m *epollMultiplexer) add(fd int, ev Event) error {
	return unix.EpollCtl(m.fd, unix.EPOLL_CTL_ADD, fd, &unix.EpollEvent{
		Events: toEpollEvents(ev),
		Fd:     int32(fd),
	})
}

func (m *epollMultiplexer) modify(fd int, ev Event) error {
	return unix.EpollCtl(m.fd, unix.EPOLL_CTL_MOD, fd, &unix.EpollEvent{
		Events: toEpollEvents(ev),
		Fd:     int32(fd),
	})
}

func (m *epollMultiplexer) del(fd int) error {
	e := unix.EpollCtl(m.fd, unix.EPOLL_CTL_DEL, fd, nil)
	if e == unix.ENOENT || e == unix.EBADF {
		return nil
	}
	return e
}

func (m *epollMultiplexer) wait(timeout time.Duration, dst []readyFd) ([]readyFd, error) {
	ms := -1
	if timeout >= 0 {
		ms = int(timeout / time.Millisecond)
	}

	var raw [128]unix.EpollEvent

	n, e := unix.EpollWait(m.fd, raw[:], ms)
	for e == unix.EINTR {
		n, e = unix.EpollWait(m.fd, raw[:], ms)
	}
	if e != nil {
		return dst, e
	}

	for i := 0; i < n; i++ {
		dst = append(dst, readyFd{
			fd: int(raw[i].Fd),
			ev: fromEpollEvents(raw[i].Events),
		})
	}
	return dst, nil
}

func (m *epollMultiplexer) close() error {
	if m.fd < 0 {
		return nil
	}
	return unix.Close(m.fd)
}
