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
	"net"
	"sync"
	"sync/atomic"
	"time"

	liblog "github.com/nabbar/reactor/logger"
	libpol "github.com/nabbar/reactor/poller"
	libsnd "github.com/nabbar/reactor/sockerr"
	"golang.org/x/sys/unix"
)

// defaultSendTimeout is the "sending queue stuck" watchdog width.
const defaultSendTimeout = 10 * time.Second

// sock is the concrete Socket: it carries both the raw-fd/epoll TCP path
// and the net.UDPConn/x-net-batched UDP path, since the two transports
// drive I/O through genuinely different mechanisms (see udp.go). Every
// field is only ever touched from the owning Poller's loop goroutine or
// guarded by mu.
type sock struct {
	log    liblog.Logger
	poller libpol.Poller
	kind   Kind

	fd       int // TCP: connected/listening fd. UDP: -1, see udpConn.
	udpConn  *net.UDPConn
	udpPeer  net.Addr // hard (connect'd) or soft (default sendto) peer
	udpHard  bool
	batch    batchConn
	registered bool

	local net.Addr
	peer  net.Addr

	connected atomic.Bool // TCP dial handshake finished

	mu       sync.Mutex
	waiting  []*buffer
	sending  *bufferList
	closed   bool

	onRead          OnRead
	onErr           OnErr
	onAccept        OnAccept
	onFlush         OnFlush
	onBeforeAccept  OnBeforeAccept

	sendTimeout  atomic.Int64 // time.Duration
	lastFlushed  atomic.Int64 // unix nano
	timeoutTask  libpol.DelayHandle

	connectTask libpol.DelayHandle
}

func newSock(p libpol.Poller, log liblog.Logger, kind Kind) *sock {
	if log == nil {
		log = liblog.NewSilent()
	}
	s := &sock{
		log:    log,
		poller: p,
		kind:   kind,
		fd:     -1,
	}
	s.sendTimeout.Store(int64(defaultSendTimeout))
	s.lastFlushed.Store(time.Now().UnixNano())
	return s
}

// New creates a Socket bound to poller p. Within a single Poller's own
// callbacks no locking would be required, but the waiting queue is always
// guarded since Go gives no cheap way to assert "no concurrent caller" at
// compile time.
func New(p libpol.Poller, kind Kind, log liblog.Logger) Socket {
	return newSock(p, log, kind)
}

func (s *sock) Kind() Kind           { return s.kind }
func (s *sock) Poller() libpol.Poller { return s.poller }
func (s *sock) LocalAddr() net.Addr  { return s.local }
func (s *sock) PeerAddr() net.Addr   { return s.peer }

func (s *sock) RawFD() (int, bool) {
	if s.fd >= 0 {
		return s.fd, true
	}
	if s.udpConn != nil {
		if fd, ok := udpConnFD(s.udpConn); ok {
			return fd, true
		}
	}
	return -1, false
}

func (s *sock) SetOnRead(cb OnRead) {
	s.mu.Lock()
	s.onRead = cb
	s.mu.Unlock()
}

func (s *sock) SetOnErr(cb OnErr) {
	s.mu.Lock()
	s.onErr = cb
	s.mu.Unlock()
}

func (s *sock) SetOnAccept(cb OnAccept) {
	s.mu.Lock()
	s.onAccept = cb
	s.mu.Unlock()
}

func (s *sock) SetOnFlush(cb OnFlush) {
	s.mu.Lock()
	s.onFlush = cb
	s.mu.Unlock()
}

func (s *sock) SetOnBeforeAccept(cb OnBeforeAccept) {
	s.mu.Lock()
	s.onBeforeAccept = cb
	s.mu.Unlock()
}

func (s *sock) SetSendTimeout(d time.Duration) {
	s.sendTimeout.Store(int64(d))
}

func (s *sock) IsBusy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.waiting) > 0 || (s.sending != nil && !s.sending.empty())
}

func (s *sock) getOnRead() OnRead {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.onRead
}

func (s *sock) getOnErr() OnErr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.onErr
}

func (s *sock) getOnAccept() OnAccept {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.onAccept
}

func (s *sock) getOnFlush() OnFlush {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.onFlush
}

func (s *sock) getOnBeforeAccept() OnBeforeAccept {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.onBeforeAccept
}

// EmitErr closes the socket and invokes OnErr exactly once, on the owning
// Poller's loop goroutine.
func (s *sock) EmitErr(err *libsnd.Exception) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	waiting := s.waiting
	sending := s.sending
	s.waiting = nil
	s.sending = nil
	s.mu.Unlock()

	s.teardown()

	var plain error
	if err != nil {
		plain = err
		s.log.Debug("socket closing on error", err.Trace(), err)
	}
	for _, b := range waiting {
		if b.done != nil {
			b.done(plain)
		}
	}
	if sending != nil {
		sending.completeAll(plain)
	}

	s.poller.Async(func() {
		if cb := s.getOnErr(); cb != nil {
			cb(err)
		}
	}, true)
}

func (s *sock) Close() error {
	s.EmitErr(libsnd.New(libsnd.Shutdown))
	return nil
}

func (s *sock) teardown() {
	if s.registered {
		s.poller.DelEvent(s.fd, nil)
		s.registered = false
	}
	if s.fd >= 0 {
		_ = unix.Close(s.fd)
		s.fd = -1
	}
	if s.udpConn != nil {
		_ = s.udpConn.Close()
		s.udpConn = nil
	}
	if s.timeoutTask != nil {
		s.timeoutTask.Cancel()
	}
	if s.connectTask != nil {
		s.connectTask.Cancel()
	}
}

func (s *sock) EnableRecv(enabled bool) {
	// UDP's recv loop is its own goroutine (see udp.go); TCP toggles the
	// Read bit in the multiplexer interest mask.
	if s.kind != TCP || s.fd < 0 {
		return
	}
	ev := libpol.EventError
	if enabled {
		ev |= libpol.EventRead
	}
	s.mu.Lock()
	busy := s.sending != nil && !s.sending.empty()
	s.mu.Unlock()
	if busy {
		ev |= libpol.EventWrite
	}
	_ = s.poller.ModifyEvent(s.fd, ev)
}

func (s *sock) armSendTimeoutLocked() {
	if s.timeoutTask != nil {
		return
	}
	s.timeoutTask = s.poller.DoDelayTask(time.Second, func() time.Duration {
		d := time.Duration(s.sendTimeout.Load())
		if d <= 0 {
			return time.Second
		}

		s.mu.Lock()
		busy := s.sending != nil && !s.sending.empty()
		s.mu.Unlock()

		if !busy {
			return time.Second
		}

		if time.Since(time.Unix(0, s.lastFlushed.Load())) > d {
			s.EmitErr(libsnd.New(libsnd.Timeout))
			return 0
		}
		return time.Second
	})
}
