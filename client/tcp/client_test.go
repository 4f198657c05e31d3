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

package tcp_test

import (
	"net"
	"time"

	clitcp "github.com/nabbar/reactor/client/tcp"
	liblog "github.com/nabbar/reactor/logger"
	libpol "github.com/nabbar/reactor/poller"
	libsck "github.com/nabbar/reactor/socket"
	libsnd "github.com/nabbar/reactor/sockerr"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// startEcho brings up a raw echoing listener socket and returns its port.
func startEcho(p libpol.Poller) (libsck.Socket, uint16) {
	srv := libsck.New(p, libsck.TCP, nil)
	srv.SetOnAccept(func(peer libsck.Socket) {
		peer.SetOnRead(func(buf []byte, _ net.Addr) {
			_, _ = peer.Send(buf, nil, nil)
		})
		peer.SetOnErr(func(_ *libsnd.Exception) {})
		peer.EnableRecv(true)
	})
	Expect(srv.Listen(0, "127.0.0.1", 0)).To(Succeed())
	return srv, uint16(srv.LocalAddr().(*net.TCPAddr).Port)
}

var _ = Describe("Client", func() {
	var p libpol.Poller

	BeforeEach(func() {
		var err error
		p, err = libpol.New(liblog.NewSilent())
		Expect(err).ToNot(HaveOccurred())
	})

	AfterEach(func() {
		p.Shutdown()
	})

	It("connects, sends, and receives the echo", func() {
		srv, port := startEcho(p)
		defer srv.Close()

		cli := clitcp.New(p, nil)
		defer cli.Shutdown()

		connected := make(chan *libsnd.Exception, 1)
		received := make(chan []byte, 1)
		cli.SetOnConnect(func(err *libsnd.Exception) { connected <- err })
		cli.SetOnRecv(func(buf []byte) { received <- append([]byte(nil), buf...) })

		cli.Connect("127.0.0.1", port, 2*time.Second)

		var cerr *libsnd.Exception
		Eventually(connected, time.Second).Should(Receive(&cerr))
		Expect(cerr.Ok()).To(BeTrue())
		Expect(cli.Alive()).To(BeTrue())

		_, err := cli.Send([]byte("hello"))
		Expect(err).ToNot(HaveOccurred())

		var got []byte
		Eventually(received, time.Second).Should(Receive(&got))
		Expect(got).To(Equal([]byte("hello")))

		Expect(cli.SendSpeed().Total()).To(BeEquivalentTo(5))
		Expect(cli.RecvSpeed().Total()).To(BeEquivalentTo(5))
		Expect(cli.IdleTime()).To(BeNumerically("<", time.Second))
	})

	It("reports a failed attempt through OnConnect, not OnErr", func() {
		// Grab a port nothing listens on.
		l, err := net.Listen("tcp", "127.0.0.1:0")
		Expect(err).ToNot(HaveOccurred())
		port := uint16(l.Addr().(*net.TCPAddr).Port)
		Expect(l.Close()).To(Succeed())

		cli := clitcp.New(p, nil)
		defer cli.Shutdown()

		connected := make(chan *libsnd.Exception, 1)
		failed := make(chan *libsnd.Exception, 1)
		cli.SetOnConnect(func(e *libsnd.Exception) { connected <- e })
		cli.SetOnErr(func(e *libsnd.Exception) { failed <- e })

		cli.Connect("127.0.0.1", port, time.Second)

		var cerr *libsnd.Exception
		Eventually(connected, 2*time.Second).Should(Receive(&cerr))
		Expect(cerr.Ok()).To(BeFalse())
		Consistently(failed, 100*time.Millisecond).ShouldNot(Receive())

		_, err = cli.Send([]byte("nope"))
		Expect(err).To(HaveOccurred())
	})

	It("redials with backoff until a listener appears", func() {
		l, err := net.Listen("tcp", "127.0.0.1:0")
		Expect(err).ToNot(HaveOccurred())
		port := uint16(l.Addr().(*net.TCPAddr).Port)
		Expect(l.Close()).To(Succeed())

		cli := clitcp.New(p, nil)
		defer cli.Shutdown()
		cli.EnableReconnect(100*time.Millisecond, 0)

		results := make(chan *libsnd.Exception, 16)
		cli.SetOnConnect(func(e *libsnd.Exception) { results <- e })

		cli.Connect("127.0.0.1", port, time.Second)

		// First attempt fails: nobody is listening yet.
		var first *libsnd.Exception
		Eventually(results, 2*time.Second).Should(Receive(&first))
		Expect(first.Ok()).To(BeFalse())

		// Now bring the server up on that same port; a retry should land.
		srv := libsck.New(p, libsck.TCP, nil)
		srv.SetOnAccept(func(peer libsck.Socket) {
			peer.SetOnErr(func(_ *libsnd.Exception) {})
			peer.EnableRecv(true)
		})
		Expect(srv.Listen(port, "127.0.0.1", 0)).To(Succeed())
		defer srv.Close()

		Eventually(func() bool {
			select {
			case e := <-results:
				return e.Ok()
			default:
				return false
			}
		}, 5*time.Second, 50*time.Millisecond).Should(BeTrue())
	})

	It("stops retrying after maxRetry failed attempts", func() {
		l, err := net.Listen("tcp", "127.0.0.1:0")
		Expect(err).ToNot(HaveOccurred())
		port := uint16(l.Addr().(*net.TCPAddr).Port)
		Expect(l.Close()).To(Succeed())

		cli := clitcp.New(p, nil)
		defer cli.Shutdown()
		cli.EnableReconnect(50*time.Millisecond, 2)

		results := make(chan *libsnd.Exception, 16)
		cli.SetOnConnect(func(e *libsnd.Exception) { results <- e })

		cli.Connect("127.0.0.1", port, time.Second)

		// Initial attempt plus two retries, then silence.
		for i := 0; i < 3; i++ {
			var e *libsnd.Exception
			Eventually(results, 2*time.Second).Should(Receive(&e))
			Expect(e.Ok()).To(BeFalse())
		}
		Consistently(results, 300*time.Millisecond).ShouldNot(Receive())
	})
})
