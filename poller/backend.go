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

import "time"

// readyFd is one multiplexer-reported readiness notification.
type readyFd struct {
	fd int
	ev Event
}

// multiplexer is the platform-specific half of a Poller: registering fd
// interest and waiting for readiness. poller_linux.go implements it over
// epoll; poller_unix.go implements it over select(2) for the other unix
// targets the module supports (darwin, the BSDs). Windows is not a target,
// so no third, IOCP-shaped backend exists.
type multiplexer interface {
	open() error
	add(fd int, ev Event) error
	modify(fd int, ev Event) error
	del(fd int) error
	// wait blocks up to timeout (< 0 means indefinitely) and appends ready
	// fds into dst, returning the extended slice.
	wait(timeout time.Duration, dst []readyFd) ([]readyFd, error)
	close() error
}
