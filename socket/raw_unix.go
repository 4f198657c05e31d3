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

//go:build unix

package socket

import (
	"golang.org/x/sys/unix"
)

const (
	recvBufSize = 4 * 1024 * 1024
	sendBufSize = 4 * 1024 * 1024
)

// newRawSocket opens a non-blocking socket of the given domain/type,
// CLOEXEC'd so it never leaks across a fork+exec elsewhere in the process.
func newRawSocket(domain, typ int) (int, error) {
	fd, e := unix.Socket(domain, typ|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, 0)
	if e != nil {
		return -1, e
	}
	return fd, nil
}

// setCommonSockOpts applies the option set every Socket gets at creation:
// SO_REUSEADDR, large send/receive buffers, and for TCP TCP_NODELAY plus
// SO_LINGER left off (close returns immediately, queued data still
// delivered).
func setCommonSockOpts(fd int, tcp bool) {
	_ = unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
	_ = unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_RCVBUF, recvBufSize)
	_ = unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_SNDBUF, sendBufSize)

	if tcp {
		_ = unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_NODELAY, 1)
		// linger disabled: close returns immediately and the kernel delivers
		// what is queued, the graceful close-wait the option set asks for.
		_ = unix.SetsockoptLinger(fd, unix.SOL_SOCKET, unix.SO_LINGER, &unix.Linger{Onoff: 0, Linger: 0})
	}
}

// sockErrno reads and clears SO_ERROR, the readiness check run once a
// connecting socket becomes writable.
func sockErrno(fd int) error {
	errno, e := unix.GetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_ERROR)
	if e != nil {
		return e
	}
	if errno == 0 {
		return nil
	}
	return unix.Errno(errno)
}
