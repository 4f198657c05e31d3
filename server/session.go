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

// Package server hosts TCP/UDP connection acceptance and session
// demultiplexing on top of the socket and poller packages: a Session is the
// application's handler for one peer, keyed by a stable identifier so
// neither side has to hold a strong back-reference to the other.
package server

import (
	"net"

	libsck "github.com/nabbar/reactor/socket"
	libsnd "github.com/nabbar/reactor/sockerr"
)

// Session is the application-level handler for one peer connection or UDP
// peer flow.
type Session interface {
	// Identifier is this session's session-map key, a uuid string assigned
	// at creation.
	Identifier() string

	// AttachServer is called exactly once, immediately after creation and
	// before any OnRecv, so the session can reach back into the server
	// (e.g. to enumerate sibling sessions).
	AttachServer(srv Server)

	// OnRecv delivers one read chunk (TCP) or one datagram (UDP) in
	// arrival order.
	OnRecv(buf []byte)

	// OnError is this session's exactly-once terminal callback.
	OnError(err *libsnd.Exception)

	// OnManager is invoked on every manager tick, always on the session's
	// owning Poller.
	OnManager()
}

// Allocator builds the Session for a newly accepted TCP peer or a UDP
// peer's first datagram.
type Allocator func(srv Server, peer libsck.Socket, addr net.Addr) Session

// Server is the subset of TCPServer/UDPServer visible to AttachServer, kept
// narrow so Session implementations do not need the concrete server type.
type Server interface {
	// SessionCount reports the number of live sessions this server
	// currently tracks.
	SessionCount() int
}
