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

// Package socket is a non-blocking, Poller-driven Socket abstraction: one
// fd, a waiting/sending split outbound queue with batched platform I/O, and
// a small set of callbacks (OnRead, OnErr, OnAccept, OnFlush) invoked on the
// owning Poller's loop goroutine.
package socket

import (
	"net"
	"syscall"
	"time"

	libpol "github.com/nabbar/reactor/poller"
	libsnd "github.com/nabbar/reactor/sockerr"
)

// Kind distinguishes the wire protocol a Socket carries.
type Kind int

const (
	TCP Kind = iota
	UDP
)

// OnRead is invoked for every datagram/chunk received. For TCP, addr is nil.
type OnRead func(buf []byte, addr net.Addr)

// OnErr is invoked once, the last callback a Socket ever makes: the fd is
// already closed by the time it runs.
type OnErr func(err *libsnd.Exception)

// OnAccept is invoked on a listening TCP Socket for each accepted peer.
type OnAccept func(peer Socket)

// OnFlush is invoked when the sending queue drains to empty. Returning
// false unregisters it; returning true keeps it armed for the next drain.
type OnFlush func() bool

// OnBeforeAccept selects the Poller a newly-accepted peer Socket should be
// created on, enabling per-connection load spread across a poller.Pool.
type OnBeforeAccept func() libpol.Poller

// Socket is the non-blocking transport primitive every Server/Client/KCP
// Transport in this module is built on.
type Socket interface {
	// Connect dials a TCP peer asynchronously; cb fires exactly once, with
	// a nil *sockerr.Exception on success.
	Connect(host string, port uint16, cb OnErr, timeout time.Duration, localIP string, localPort uint16)

	// Listen creates a TCP listening socket bound to localIP:port.
	Listen(port uint16, localIP string, backlog int) error

	// BindUDP creates a UDP socket bound to localIP:port (port 0 picks a
	// free port).
	BindUDP(port uint16, localIP string) error

	// BindPeerAddr restricts this UDP socket to one peer. If soft is
	// false, the kernel socket is connect(2)'d to addr (recvfrom only
	// delivers that peer's datagrams); if true, addr is only remembered as
	// the default destination for Send.
	BindPeerAddr(addr net.Addr, soft bool) error

	SetOnRead(cb OnRead)
	SetOnErr(cb OnErr)
	SetOnAccept(cb OnAccept)
	SetOnFlush(cb OnFlush)
	SetOnBeforeAccept(cb OnBeforeAccept)

	// Send enqueues buf (copied) for asynchronous delivery. addr is used by
	// UDP sockets without a hard peer binding; nil for TCP. done, if
	// non-nil, fires once buf has actually left the kernel or the Socket
	// closed before that happened.
	Send(buf []byte, addr net.Addr, done func(err error)) (queued int, err error)

	// EmitErr closes the Socket and invokes OnErr with err on the owning
	// Poller.
	EmitErr(err *libsnd.Exception)

	// EnableRecv toggles whether Read interest is registered.
	EnableRecv(enabled bool)

	RawFD() (int, bool)
	LocalAddr() net.Addr
	PeerAddr() net.Addr

	SetSendTimeout(d time.Duration)

	// IsBusy reports whether the sending queue is non-empty (backpressure
	// signal for callers that want to throttle Send).
	IsBusy() bool

	Poller() libpol.Poller

	// CloneTo creates a second Socket wrapping the same underlying fd,
	// registered on a different Poller. Used by TCP Server to spread one
	// listener's accepts across a poller.Pool.
	CloneTo(p libpol.Poller) (Socket, error)

	Kind() Kind

	Close() error
}

// rawConn is satisfied by *net.TCPConn/*net.UDPConn: the subset of
// syscall.Conn this package needs to pull an os-level fd out of a
// standard-library connection while keeping net's own portable dial/listen
// machinery (DNS, IPv6 literal parsing, SO_REUSEADDR quirks) instead of
// re-deriving it from raw syscalls.
type rawConn interface {
	syscall.Conn
}
