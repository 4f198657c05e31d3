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

package server

import (
	"net"
	"sync"
	"time"

	liblog "github.com/nabbar/reactor/logger"
	libpol "github.com/nabbar/reactor/poller"
	libsck "github.com/nabbar/reactor/socket"
	libsnd "github.com/nabbar/reactor/sockerr"

	"github.com/google/uuid"
)

// sessionRemovalDelay absorbs re-creation flaps from late datagrams that
// arrive under the same peer id right after a teardown.
const sessionRemovalDelay = 3 * time.Second

type udpEntry struct {
	id      string
	session Session
	poller  libpol.Poller
	addr    net.Addr
}

// UDPServer binds a single shared UDP Socket and demultiplexes inbound
// datagrams into per-peer sessions by a fixed-size key derived from the
// remote address. The original binds one kernel socket per poller on the
// same port so the kernel itself load-spreads accepts; Go's net package
// does not expose the SO_REUSEPORT control needed to bind the same port
// from more than one *net.UDPConn, so this Server instead keeps the single
// socket.BindUDP listener built by this module and load-spreads at the
// session level: each new peer is assigned a Poller from the pool and every
// read for that peer is handed off there via Async, preserving the
// scaling property (work fans out across Pollers) without the literal
// per-poller bind.
type UDPServer struct {
	pool      libpol.Pool
	sock      libsck.Socket
	allocator Allocator
	log       liblog.Logger

	mu       sync.Mutex
	sessions map[string]*udpEntry

	manager libpol.DelayHandle
}

// NewUDPServer creates a UDPServer. home is the Poller the shared listening
// Socket is bound on; pool assigns each new peer's session to a Poller
// (pass the same pool home belongs to, or nil to keep every session on
// home).
func NewUDPServer(home libpol.Poller, pool libpol.Pool, alloc Allocator, log liblog.Logger) *UDPServer {
	srv := &UDPServer{
		pool:      pool,
		allocator: alloc,
		log:       log,
		sessions:  make(map[string]*udpEntry),
	}
	srv.sock = libsck.New(home, libsck.UDP, log)
	return srv
}

func (srv *UDPServer) Bind(port uint16, localIP string) error {
	if err := srv.sock.BindUDP(port, localIP); err != nil {
		return err
	}
	srv.sock.SetOnRead(srv.onDatagram)
	srv.manager = srv.sock.Poller().DoDelayTask(managerInterval, srv.runManager)
	return nil
}

// runManager snapshots the session map and dispatches OnManager onto each
// session's owning Poller, mirroring TCPServer's housekeeping tick.
func (srv *UDPServer) runManager() time.Duration {
	srv.mu.Lock()
	snapshot := make([]*udpEntry, 0, len(srv.sessions))
	for _, e := range srv.sessions {
		snapshot = append(snapshot, e)
	}
	srv.mu.Unlock()

	for _, e := range snapshot {
		entry := e
		entry.poller.Async(func() {
			defer func() {
				if r := recover(); r != nil && srv.log != nil {
					srv.log.Error("session manager panic", r)
				}
			}()
			entry.session.OnManager()
		}, true)
	}

	return managerInterval
}

func (srv *UDPServer) LocalAddr() net.Addr { return srv.sock.LocalAddr() }

func (srv *UDPServer) SessionCount() int {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	return len(srv.sessions)
}

// peerKey derives the fixed-size [port_hi, port_lo, 16-byte address] key
// the original computes with make_sock_id, using net's IPv4-mapped IPv6
// form so v4 and v6 peers share one key format.
func peerKey(addr net.Addr) string {
	ua, ok := addr.(*net.UDPAddr)
	if !ok {
		return addr.String()
	}
	var key [18]byte
	key[0] = byte(ua.Port >> 8)
	key[1] = byte(ua.Port)
	copy(key[2:], ua.IP.To16())
	return string(key[:])
}

func (srv *UDPServer) onDatagram(buf []byte, addr net.Addr) {
	key := peerKey(addr)

	srv.mu.Lock()
	entry, ok := srv.sessions[key]
	srv.mu.Unlock()

	if ok {
		srv.deliver(entry, buf)
		return
	}

	srv.createSession(key, addr, buf)
}

func (srv *UDPServer) deliver(entry *udpEntry, buf []byte) {
	if entry.poller.IsCurrentThread() {
		entry.session.OnRecv(buf)
		return
	}
	cp := append([]byte(nil), buf...)
	entry.poller.Async(func() {
		entry.session.OnRecv(cp)
	}, false)
}

// createSession allocates a Session for a never-seen-before peer address.
// The Session is handed the shared listening Socket and the peer's addr;
// replies go out via Socket.Send(buf, addr, nil) using that remembered
// addr, the soft-bind equivalent the interface documents.
func (srv *UDPServer) createSession(key string, addr net.Addr, firstBuf []byte) {
	target := srv.sock.Poller()
	if srv.pool != nil {
		target = srv.pool.GetPoller(true)
	}

	session := srv.allocator(srv, srv.sock, addr)
	session.AttachServer(srv)

	id := session.Identifier()
	if id == "" {
		id = uuid.NewString()
	}

	entry := &udpEntry{id: id, session: session, poller: target, addr: addr}

	srv.mu.Lock()
	srv.sessions[key] = entry
	srv.mu.Unlock()

	cp := append([]byte(nil), firstBuf...)
	srv.deliver(entry, cp)
}

// Forget tears a single peer's session down immediately: since every
// session shares one listening Socket, there is no per-peer EmitErr to
// trigger this, so a Session (or its OnManager idle check) calls Forget
// explicitly once it decides the peer is gone.
func (srv *UDPServer) Forget(addr net.Addr) {
	key := peerKey(addr)
	srv.mu.Lock()
	entry, ok := srv.sessions[key]
	srv.mu.Unlock()
	if !ok {
		return
	}
	entry.poller.Async(func() {
		entry.session.OnError(libsnd.New(libsnd.Shutdown))
	}, true)
	srv.scheduleRemoval(key, entry.poller)
}

func (srv *UDPServer) scheduleRemoval(key string, p libpol.Poller) {
	p.DoDelayTask(sessionRemovalDelay, func() time.Duration {
		srv.mu.Lock()
		delete(srv.sessions, key)
		srv.mu.Unlock()
		return 0
	})
}

// Close shuts down the shared listening socket, which ends every session
// still attached to it; Forget any still-tracked peer first so its
// OnError fires.
func (srv *UDPServer) Close() error {
	if srv.manager != nil {
		srv.manager.Cancel()
		srv.manager = nil
	}

	srv.mu.Lock()
	snapshot := make([]*udpEntry, 0, len(srv.sessions))
	for _, e := range srv.sessions {
		snapshot = append(snapshot, e)
	}
	srv.sessions = make(map[string]*udpEntry)
	srv.mu.Unlock()

	for _, e := range snapshot {
		entry := e
		entry.poller.Async(func() {
			entry.session.OnError(libsnd.New(libsnd.Shutdown))
		}, true)
	}

	return srv.sock.Close()
}
