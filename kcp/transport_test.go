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

// Reactor-integration tests: a real Poller and two real UDP Sockets on
// loopback, driving Transport end-to-end instead of the synthetic,
// manually-clocked channel engine_test.go uses for the protocol math.
package kcp

import (
	"net"
	"time"

	liblog "github.com/nabbar/reactor/logger"
	libpol "github.com/nabbar/reactor/poller"
	libsck "github.com/nabbar/reactor/socket"
	libsnd "github.com/nabbar/reactor/sockerr"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func newKcpTestPoller() libpol.Poller {
	p, err := libpol.New(liblog.NewSilent())
	Expect(err).ToNot(HaveOccurred())
	return p
}

var _ = Describe("KCP transport", func() {
	var p libpol.Poller

	BeforeEach(func() {
		p = newKcpTestPoller()
	})

	AfterEach(func() {
		p.Shutdown()
	})

	It("delivers a message end-to-end over a real UDP socket pair", func() {
		serverSock := libsck.New(p, libsck.UDP, nil)
		Expect(serverSock.BindUDP(0, "127.0.0.1")).To(Succeed())
		serverAddr := serverSock.LocalAddr()

		clientSock := libsck.New(p, libsck.UDP, nil)
		Expect(clientSock.BindUDP(0, "127.0.0.1")).To(Succeed())

		var server *Transport
		serverReady := make(chan struct{})
		received := make(chan []byte, 1)
		serverSock.SetOnRead(func(buf []byte, addr net.Addr) {
			if server == nil {
				server = NewServer(p, serverSock, addr)
				// wired before the first datagram is fed in, so the message
				// it completes is not delivered to a nil callback.
				server.SetOnMessage(func(msg []byte) {
					received <- append([]byte(nil), msg...)
				})
				close(serverReady)
			}
			server.onSocketRead(buf, addr)
		})

		client := NewClient(p, clientSock, serverAddr)

		clientDone := make(chan []byte, 1)
		Eventually(func() error {
			return client.Send([]byte("hello over kcp"), true)
		}).Should(Succeed())

		Eventually(serverReady, time.Second).Should(BeClosed())

		var got []byte
		Eventually(received, 2*time.Second).Should(Receive(&got))
		Expect(got).To(Equal([]byte("hello over kcp")))
		Expect(clientDone).To(BeEmpty())
	})

	It("adopts the client's conv on the server side once the first packet arrives", func() {
		serverSock := libsck.New(p, libsck.UDP, nil)
		Expect(serverSock.BindUDP(0, "127.0.0.1")).To(Succeed())
		serverAddr := serverSock.LocalAddr()

		clientSock := libsck.New(p, libsck.UDP, nil)
		Expect(clientSock.BindUDP(0, "127.0.0.1")).To(Succeed())

		client := NewClient(p, clientSock, serverAddr)

		var server *Transport
		serverReady := make(chan struct{})
		serverSock.SetOnRead(func(buf []byte, addr net.Addr) {
			if server == nil {
				server = NewServer(p, serverSock, addr)
				close(serverReady)
			}
			server.onSocketRead(buf, addr)
		})

		Expect(client.Send([]byte("conv probe"), true)).To(Succeed())
		Eventually(serverReady, time.Second).Should(BeClosed())

		Eventually(func() uint32 {
			return server.Conv()
		}, time.Second).Should(Equal(client.Conv()))
	})

	It("reports a dead link through OnErr once the peer stops responding entirely", func() {
		clientSock := libsck.New(p, libsck.UDP, nil)
		Expect(clientSock.BindUDP(0, "127.0.0.1")).To(Succeed())

		// Nothing listens on this address: every flush goes unanswered,
		// so xmit keeps climbing until SetDeadLink's threshold trips.
		unreachable := &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 1}

		client := NewClient(p, clientSock, unreachable)
		client.SetDeadLink(2)
		client.SetMode(ModeFast)

		errs := make(chan *libsnd.Exception, 1)
		client.SetOnErr(func(err *libsnd.Exception) {
			select {
			case errs <- err:
			default:
			}
		})

		Expect(client.Send([]byte("into the void"), true)).To(Succeed())

		Eventually(errs, 5*time.Second).Should(Receive())
	})
})
