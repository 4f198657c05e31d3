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

// managerInterval is the session housekeeping cadence.
const managerInterval = 2 * time.Second

type tcpEntry struct {
	id      string
	session Session
	poller  libpol.Poller
}

// TCPServer hosts one listening Socket and a session map keyed by uuid.
// Accept fan-out across a poller.Pool already happens inside the listening
// Socket itself (its OnBeforeAccept callback picks the target Poller for
// each new peer and registers it there), so one shared listener suffices;
// TCPServer layers the session map and manager tick on top of it.
type TCPServer struct {
	poller    libpol.Poller
	pool      libpol.Pool
	listener  libsck.Socket
	allocator Allocator
	log       liblog.Logger

	mu         sync.Mutex
	sessions   map[string]*tcpEntry
	inManager  bool
	pendingDel []string

	manager libpol.DelayHandle
}

// NewTCPServer creates a TCPServer bound to the primary poller p. pool, if
// non-nil, spreads accepted peers across its members; pass nil to keep
// every peer on p.
func NewTCPServer(p libpol.Poller, pool libpol.Pool, alloc Allocator, log liblog.Logger) *TCPServer {
	srv := &TCPServer{
		poller:    p,
		pool:      pool,
		allocator: alloc,
		log:       log,
		sessions:  make(map[string]*tcpEntry),
	}
	srv.listener = libsck.New(p, libsck.TCP, log)
	if pool != nil {
		srv.listener.SetOnBeforeAccept(func() libpol.Poller {
			return pool.GetPoller(false)
		})
	}
	srv.listener.SetOnAccept(srv.onAccept)
	return srv
}

// Listen binds and starts accepting, then arms the 2-second manager tick.
func (srv *TCPServer) Listen(port uint16, localIP string, backlog int) error {
	if err := srv.listener.Listen(port, localIP, backlog); err != nil {
		return err
	}
	srv.manager = srv.poller.DoDelayTask(managerInterval, srv.runManager)
	return nil
}

func (srv *TCPServer) LocalAddr() net.Addr { return srv.listener.LocalAddr() }

func (srv *TCPServer) SessionCount() int {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	return len(srv.sessions)
}

func (srv *TCPServer) onAccept(peer libsck.Socket) {
	session := srv.allocator(srv, peer, peer.PeerAddr())
	session.AttachServer(srv)

	entry := &tcpEntry{id: session.Identifier(), session: session, poller: peer.Poller()}
	if entry.id == "" {
		entry.id = uuid.NewString()
	}

	srv.mu.Lock()
	srv.sessions[entry.id] = entry
	srv.mu.Unlock()

	peer.SetOnRead(func(buf []byte, _ net.Addr) {
		session.OnRecv(buf)
	})
	peer.SetOnErr(func(err *libsnd.Exception) {
		session.OnError(err)
		srv.removeSession(entry.id)
	})
}

func (srv *TCPServer) removeSession(id string) {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	if srv.inManager {
		srv.pendingDel = append(srv.pendingDel, id)
		return
	}
	delete(srv.sessions, id)
}

// runManager snapshots the session map (so OnError removals during
// iteration are deferred, not applied mid-range) and asks each session to
// run its housekeeping, always on that session's own owning Poller.
func (srv *TCPServer) runManager() time.Duration {
	srv.mu.Lock()
	srv.inManager = true
	snapshot := make([]*tcpEntry, 0, len(srv.sessions))
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

	srv.mu.Lock()
	srv.inManager = false
	for _, id := range srv.pendingDel {
		delete(srv.sessions, id)
	}
	srv.pendingDel = nil
	srv.mu.Unlock()

	return managerInterval
}

// Close tears the server down listener first (stop new accepts), then the
// manager timer, then every session (observing a Shutdown error), finally
// the session map itself.
func (srv *TCPServer) Close() error {
	err := srv.listener.Close()

	if srv.manager != nil {
		srv.manager.Cancel()
		srv.manager = nil
	}

	srv.mu.Lock()
	snapshot := make([]*tcpEntry, 0, len(srv.sessions))
	for _, e := range srv.sessions {
		snapshot = append(snapshot, e)
	}
	srv.sessions = make(map[string]*tcpEntry)
	srv.mu.Unlock()

	for _, e := range snapshot {
		e.session.OnError(libsnd.New(libsnd.Shutdown))
	}

	return err
}
