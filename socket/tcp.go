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
	"sync"
	"time"

	libpol "github.com/nabbar/reactor/poller"
	libsnd "github.com/nabbar/reactor/sockerr"
	"golang.org/x/sys/unix"
)

// Connect dials host:port asynchronously; host is resolved on the calling
// goroutine first. cb fires once with the classified result: on the calling
// goroutine when the attempt fails before the fd is registered with the
// Poller (resolution, socket creation, an immediate connect error, or the
// registration itself), on the Poller's loop otherwise.
func (s *sock) Connect(host string, port uint16, cb OnErr, timeout time.Duration, localIP string, localPort uint16) {
	if s.kind != TCP {
		if cb != nil {
			cb(libsnd.New(libsnd.Other, fmt.Errorf("socket: Connect on a non-TCP socket")))
		}
		return
	}

	ip, err := resolveHost(host)
	if err != nil {
		if cb != nil {
			cb(libsnd.New(libsnd.DNS, err))
		}
		return
	}

	domain := unix.AF_INET
	if ip.To4() == nil {
		domain = unix.AF_INET6
	}

	fd, err := newRawSocket(domain, unix.SOCK_STREAM)
	if err != nil {
		if cb != nil {
			cb(libsnd.New(libsnd.Other, err))
		}
		return
	}
	setCommonSockOpts(fd, true)

	if localIP != "" || localPort != 0 {
		lsa, _, e := resolveLocal(localIP, localPort)
		if e == nil {
			_ = unix.Bind(fd, lsa)
		}
	}

	s.fd = fd
	s.peer = &net.TCPAddr{IP: ip, Port: int(port)}

	rsa, e := toSockaddr(s.peer)
	if e != nil {
		_ = unix.Close(fd)
		s.fd = -1
		if cb != nil {
			cb(libsnd.New(libsnd.Other, e))
		}
		return
	}

	e = unix.Connect(fd, rsa)
	if e != nil && e != unix.EINPROGRESS {
		_ = unix.Close(fd)
		s.fd = -1
		if cb != nil {
			cb(classifyConnectErr(e))
		}
		return
	}

	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	// The writable event and the timeout watchdog race; whichever loses
	// must not fire the user's callback a second time.
	var once sync.Once
	fire := func(ex *libsnd.Exception) {
		if cb == nil {
			return
		}
		once.Do(func() { cb(ex) })
	}

	s.connectTask = s.poller.DoDelayTask(timeout, func() time.Duration {
		s.connectTask = nil
		ex := libsnd.New(libsnd.Timeout)
		s.EmitErr(ex)
		fire(ex)
		return 0
	})

	// One registration serves the socket's whole lifetime: the connect
	// handshake first, then ordinary read/write dispatch — ModifyEvent
	// changes the interest mask but never the callback.
	e = s.poller.AddEvent(fd, libpol.EventWrite|libpol.EventError, func(ev libpol.Event) {
		if s.connected.Load() {
			s.onEvents(ev)
			return
		}
		s.onConnected(fire, ev)
	})
	if e != nil {
		_ = unix.Close(fd)
		s.fd = -1
		fire(libsnd.New(libsnd.Other, e))
		return
	}
	s.registered = true
}

func (s *sock) onConnected(cb OnErr, ev libpol.Event) {
	if s.connectTask != nil {
		s.connectTask.Cancel()
		s.connectTask = nil
	}

	if err := sockErrno(s.fd); err != nil {
		ex := classifyConnectErr(err)
		s.EmitErr(ex)
		if cb != nil {
			cb(ex)
		}
		return
	}

	s.connected.Store(true)
	_ = s.poller.ModifyEvent(s.fd, libpol.EventRead|libpol.EventError)
	if cb != nil {
		cb(nil)
	}
}

// onEvents routes readiness for an established TCP socket: fatal error
// first, then drain any pending flush, then the read loop.
func (s *sock) onEvents(ev libpol.Event) {
	if ev&libpol.EventError != 0 {
		s.EmitErr(libsnd.New(libsnd.Other, fmt.Errorf("socket: error event on fd")))
		return
	}
	if ev&libpol.EventWrite != 0 {
		s.onWritable(ev)
	}
	if ev&libpol.EventRead != 0 {
		s.onReadable(ev)
	}
}

// Listen creates a TCP listening socket. Read events fire onAccept inline.
func (s *sock) Listen(port uint16, localIP string, backlog int) error {
	if s.kind != TCP {
		return fmt.Errorf("socket: Listen on a non-TCP socket")
	}
	if backlog <= 0 {
		backlog = 1024
	}

	lsa, domain, err := resolveLocal(localIP, port)
	if err != nil {
		return err
	}

	fd, err := newRawSocket(domain, unix.SOCK_STREAM)
	if err != nil {
		return err
	}
	setCommonSockOpts(fd, true)

	if err = unix.Bind(fd, lsa); err != nil {
		_ = unix.Close(fd)
		return err
	}
	if err = unix.Listen(fd, backlog); err != nil {
		_ = unix.Close(fd)
		return err
	}

	s.fd = fd
	if sa, e := unix.Getsockname(fd); e == nil {
		s.local = fromSockaddr(sa, false)
	}

	err = s.poller.AddEvent(fd, libpol.EventRead|libpol.EventError, s.onAcceptable)
	if err != nil {
		_ = unix.Close(fd)
		s.fd = -1
		return err
	}
	s.registered = true
	return nil
}

// onAcceptable drains the accept queue until EAGAIN, spreading new peers
// across the Poller onBeforeAccept selects.
func (s *sock) onAcceptable(ev libpol.Event) {
	for {
		nfd, sa, err := unix.Accept4(s.fd, unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC)
		if err != nil {
			if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
				return
			}
			return
		}
		setCommonSockOpts(nfd, true)

		dest := s.poller
		if fn := s.getOnBeforeAccept(); fn != nil {
			if p := fn(); p != nil {
				dest = p
			}
		}

		peer := newSock(dest, s.log, TCP)
		peer.fd = nfd
		peer.peer = fromSockaddr(sa, false)
		if lsa, e := unix.Getsockname(nfd); e == nil {
			peer.local = fromSockaddr(lsa, false)
		}

		register := func() {
			e := peer.poller.AddEvent(nfd, libpol.EventRead|libpol.EventError, peer.onEvents)
			if e != nil {
				_ = unix.Close(nfd)
				return
			}
			peer.registered = true
			if cb := s.getOnAccept(); cb != nil {
				cb(peer)
			}
		}

		if dest == s.poller || dest.IsCurrentThread() {
			register()
		} else {
			dest.Async(register, false)
		}
	}
}

const tcpReadChunk = 64 * 1024

func (s *sock) onReadable(ev libpol.Event) {
	if ev&libpol.EventError != 0 {
		s.EmitErr(libsnd.New(libsnd.Other, fmt.Errorf("socket: error event on fd")))
		return
	}

	buf := make([]byte, tcpReadChunk)
	for {
		n, err := unix.Read(s.fd, buf)
		if n > 0 {
			if cb := s.getOnRead(); cb != nil {
				cb(buf[:n], nil)
			}
		}
		if err != nil {
			if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
				return
			}
			s.EmitErr(libsnd.New(libsnd.Other, err))
			return
		}
		if n == 0 {
			s.EmitErr(libsnd.New(libsnd.EOF))
			return
		}
		if n < len(buf) {
			return
		}
	}
}

// flushTCP drains the sending snapshot with batched writev calls, bounded
// to maxIOVec buffers per syscall.
func (s *sock) flushTCP() {
	for {
		s.mu.Lock()
		sl := s.sending
		s.mu.Unlock()
		if sl == nil || sl.empty() {
			break
		}

		n := len(sl.buffers)
		if n > maxIOVec {
			n = maxIOVec
		}

		iov := make([][]byte, n)
		for i := 0; i < n; i++ {
			data := sl.buffers[i].data
			if i == 0 {
				data = data[sl.off:]
			}
			iov[i] = data
		}

		written, err := unix.Writev(s.fd, iov)
		if err != nil {
			if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
				s.enableWriteInterest()
				return
			}
			s.EmitErr(libsnd.New(libsnd.Other, err))
			return
		}

		s.consumeTCP(written)
	}

	s.mu.Lock()
	empty := s.sending == nil || s.sending.empty()
	s.mu.Unlock()

	if empty {
		s.disableWriteInterest()
	}
	s.flushDone(empty)
}

func (s *sock) consumeTCP(written int) {
	for written > 0 {
		s.mu.Lock()
		if s.sending == nil || s.sending.empty() {
			s.mu.Unlock()
			return
		}
		front := s.sending.buffers[0]
		remain := len(front.data) - s.sending.off
		if written < remain {
			s.sending.off += written
			s.mu.Unlock()
			return
		}
		written -= remain
		s.mu.Unlock()
		s.sending.completeFront(nil)
	}
}

func (s *sock) enableWriteInterest() {
	if s.fd < 0 {
		return
	}
	s.mu.Lock()
	s.armSendTimeoutLocked()
	s.mu.Unlock()
	_ = s.poller.ModifyEvent(s.fd, libpol.EventRead|libpol.EventWrite|libpol.EventError)
}

func (s *sock) disableWriteInterest() {
	if s.fd < 0 {
		return
	}
	_ = s.poller.ModifyEvent(s.fd, libpol.EventRead|libpol.EventError)
}

// onWritable re-attempts the flush once the fd reports writable again.
func (s *sock) onWritable(ev libpol.Event) {
	s.flushTCP()
}

// CloneTo registers a second Socket over the same underlying fd on a
// different Poller, used to spread one listener's accepts.
func (s *sock) CloneTo(p libpol.Poller) (Socket, error) {
	if s.fd < 0 {
		return nil, fmt.Errorf("socket: CloneTo on a socket with no fd")
	}
	clone := newSock(p, s.log, s.kind)
	clone.fd = s.fd
	clone.local = s.local
	clone.peer = s.peer

	if err := p.AddEvent(s.fd, libpol.EventRead|libpol.EventError, clone.onAcceptable); err != nil {
		return nil, err
	}
	clone.registered = true
	return clone, nil
}
