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

package server_test

import (
	"net"
	"sync"
	"sync/atomic"
	"time"

	liblog "github.com/nabbar/reactor/logger"
	libpol "github.com/nabbar/reactor/poller"
	libsck "github.com/nabbar/reactor/socket"
	libsnd "github.com/nabbar/reactor/sockerr"
	srvr "github.com/nabbar/reactor/server"

	"github.com/google/uuid"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type echoSession struct {
	id      string
	peer    libsck.Socket
	mu      sync.Mutex
	recv    [][]byte
	errCh   chan *libsnd.Exception
	manager int32
}

func newEchoSession(_ srvr.Server, peer libsck.Socket, _ net.Addr) srvr.Session {
	return &echoSession{id: uuid.NewString(), peer: peer, errCh: make(chan *libsnd.Exception, 1)}
}

func (s *echoSession) Identifier() string           { return s.id }
func (s *echoSession) AttachServer(_ srvr.Server)    {}
func (s *echoSession) OnManager()                    { atomic.AddInt32(&s.manager, 1) }

func (s *echoSession) OnRecv(buf []byte) {
	s.mu.Lock()
	s.recv = append(s.recv, append([]byte(nil), buf...))
	s.mu.Unlock()
	_, _ = s.peer.Send(buf, nil, nil)
}

func (s *echoSession) OnError(err *libsnd.Exception) {
	select {
	case s.errCh <- err:
	default:
	}
}

var _ = Describe("TCPServer", func() {
	var p libpol.Poller

	BeforeEach(func() {
		var err error
		p, err = libpol.New(liblog.NewSilent())
		Expect(err).ToNot(HaveOccurred())
	})

	AfterEach(func() {
		p.Shutdown()
	})

	It("allocates a session on accept and echoes data back through it", func() {
		var allocated *echoSession
		alloc := func(srv srvr.Server, peer libsck.Socket, addr net.Addr) srvr.Session {
			s := newEchoSession(srv, peer, addr).(*echoSession)
			allocated = s
			return s
		}

		srv := srvr.NewTCPServer(p, nil, alloc, nil)
		Expect(srv.Listen(0, "127.0.0.1", 0)).To(Succeed())

		local := srv.LocalAddr().(*net.TCPAddr)
		cli := libsck.New(p, libsck.TCP, nil)
		connected := make(chan *libsnd.Exception, 1)
		cli.Connect("127.0.0.1", uint16(local.Port), func(err *libsnd.Exception) {
			connected <- err
		}, 2*time.Second, "", 0)
		Eventually(connected, time.Second).Should(Receive())

		Eventually(srv.SessionCount, time.Second).Should(Equal(1))

		received := make(chan []byte, 1)
		cli.SetOnRead(func(buf []byte, _ net.Addr) {
			received <- append([]byte(nil), buf...)
		})
		_, err := cli.Send([]byte("ping"), nil, nil)
		Expect(err).ToNot(HaveOccurred())

		var got []byte
		Eventually(received, time.Second).Should(Receive(&got))
		Expect(got).To(Equal([]byte("ping")))
		Expect(allocated).ToNot(BeNil())
	})

	It("removes the session and notifies it once the peer disconnects", func() {
		var allocated *echoSession
		alloc := func(srv srvr.Server, peer libsck.Socket, addr net.Addr) srvr.Session {
			s := newEchoSession(srv, peer, addr).(*echoSession)
			allocated = s
			return s
		}

		srv := srvr.NewTCPServer(p, nil, alloc, nil)
		Expect(srv.Listen(0, "127.0.0.1", 0)).To(Succeed())

		local := srv.LocalAddr().(*net.TCPAddr)
		cli := libsck.New(p, libsck.TCP, nil)
		connected := make(chan *libsnd.Exception, 1)
		cli.Connect("127.0.0.1", uint16(local.Port), func(err *libsnd.Exception) {
			connected <- err
		}, 2*time.Second, "", 0)
		Eventually(connected, time.Second).Should(Receive())
		Eventually(srv.SessionCount, time.Second).Should(Equal(1))

		Expect(cli.Close()).To(Succeed())

		Eventually(allocated.errCh, time.Second).Should(Receive())
		Eventually(srv.SessionCount, time.Second).Should(Equal(0))
	})
})
