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

package socket_test

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

func newTestPoller() libpol.Poller {
	p, err := libpol.New(liblog.NewSilent())
	Expect(err).ToNot(HaveOccurred())
	return p
}

var _ = Describe("TCP Socket", func() {
	var p libpol.Poller

	BeforeEach(func() {
		p = newTestPoller()
	})

	AfterEach(func() {
		p.Shutdown()
	})

	It("echoes a payload round-trip over an accepted connection", func() {
		srv := libsck.New(p, libsck.TCP, nil)
		Expect(srv.Listen(0, "127.0.0.1", 0)).To(Succeed())

		accepted := make(chan libsck.Socket, 1)
		srv.SetOnAccept(func(peer libsck.Socket) {
			peer.SetOnRead(func(buf []byte, _ net.Addr) {
				data := append([]byte(nil), buf...)
				_, _ = peer.Send(data, nil, nil)
			})
			accepted <- peer
		})

		local := srv.LocalAddr().(*net.TCPAddr)

		cli := libsck.New(p, libsck.TCP, nil)
		connected := make(chan *libsnd.Exception, 1)
		cli.Connect("127.0.0.1", uint16(local.Port), func(err *libsnd.Exception) {
			connected <- err
		}, 2*time.Second, "", 0)

		var connErr *libsnd.Exception
		Eventually(connected, time.Second).Should(Receive(&connErr))
		Expect(connErr.Ok()).To(BeTrue())

		Eventually(accepted, time.Second).Should(Receive())

		received := make(chan []byte, 1)
		cli.SetOnRead(func(buf []byte, _ net.Addr) {
			received <- append([]byte(nil), buf...)
		})

		_, err := cli.Send([]byte("ping"), nil, nil)
		Expect(err).ToNot(HaveOccurred())

		var got []byte
		Eventually(received, time.Second).Should(Receive(&got))
		Expect(got).To(Equal([]byte("ping")))
	})

	It("reports connection refused when nothing listens on the port", func() {
		cli := libsck.New(p, libsck.TCP, nil)
		result := make(chan *libsnd.Exception, 1)
		cli.Connect("127.0.0.1", 1, func(err *libsnd.Exception) {
			result <- err
		}, time.Second, "", 0)

		var err *libsnd.Exception
		Eventually(result, 2*time.Second).Should(Receive(&err))
		Expect(err.Ok()).To(BeFalse())
		Expect(err.Code()).To(Equal(libsnd.Refused))
	})

	It("fires OnErr with Shutdown on a voluntary Close", func() {
		srv := libsck.New(p, libsck.TCP, nil)
		Expect(srv.Listen(0, "127.0.0.1", 0)).To(Succeed())

		errs := make(chan *libsnd.Exception, 1)
		srv.SetOnErr(func(err *libsnd.Exception) {
			errs <- err
		})

		Expect(srv.Close()).To(Succeed())

		var err *libsnd.Exception
		Eventually(errs, time.Second).Should(Receive(&err))
		Expect(err.Code()).To(Equal(libsnd.Shutdown))
	})

	It("reports IsBusy and fires OnFlush once the send queue drains", func() {
		srv := libsck.New(p, libsck.TCP, nil)
		Expect(srv.Listen(0, "127.0.0.1", 0)).To(Succeed())

		accepted := make(chan libsck.Socket, 1)
		srv.SetOnAccept(func(peer libsck.Socket) {
			peer.SetOnRead(func(buf []byte, _ net.Addr) {})
			accepted <- peer
		})

		local := srv.LocalAddr().(*net.TCPAddr)
		cli := libsck.New(p, libsck.TCP, nil)
		connected := make(chan *libsnd.Exception, 1)
		cli.Connect("127.0.0.1", uint16(local.Port), func(err *libsnd.Exception) {
			connected <- err
		}, 2*time.Second, "", 0)
		Eventually(connected, time.Second).Should(Receive())
		Eventually(accepted, time.Second).Should(Receive())

		flushed := make(chan struct{}, 1)
		cli.SetOnFlush(func() bool {
			flushed <- struct{}{}
			return true
		})

		_, err := cli.Send([]byte("hello"), nil, nil)
		Expect(err).ToNot(HaveOccurred())

		Eventually(flushed, time.Second).Should(Receive())
		Eventually(cli.IsBusy, time.Second).Should(BeFalse())
	})
})

var _ = Describe("UDP Socket", func() {
	var p libpol.Poller

	BeforeEach(func() {
		p = newTestPoller()
	})

	AfterEach(func() {
		p.Shutdown()
	})

	It("delivers datagrams between two bound sockets with their peer address", func() {
		a := libsck.New(p, libsck.UDP, nil)
		Expect(a.BindUDP(0, "127.0.0.1")).To(Succeed())

		b := libsck.New(p, libsck.UDP, nil)
		Expect(b.BindUDP(0, "127.0.0.1")).To(Succeed())

		type datagram struct {
			data []byte
			addr net.Addr
		}
		received := make(chan datagram, 1)
		b.SetOnRead(func(buf []byte, addr net.Addr) {
			received <- datagram{data: append([]byte(nil), buf...), addr: addr}
		})

		bAddr := b.LocalAddr()
		_, err := a.Send([]byte("hi"), bAddr, nil)
		Expect(err).ToNot(HaveOccurred())

		var dg datagram
		Eventually(received, time.Second).Should(Receive(&dg))
		Expect(dg.data).To(Equal([]byte("hi")))
		Expect(dg.addr.(*net.UDPAddr).Port).To(Equal(a.LocalAddr().(*net.UDPAddr).Port))
	})

	It("restricts a hard-bound peer socket to its single remote address", func() {
		a := libsck.New(p, libsck.UDP, nil)
		Expect(a.BindUDP(0, "127.0.0.1")).To(Succeed())

		b := libsck.New(p, libsck.UDP, nil)
		Expect(b.BindUDP(0, "127.0.0.1")).To(Succeed())
		Expect(b.BindPeerAddr(a.LocalAddr(), false)).To(Succeed())

		received := make(chan []byte, 1)
		a.SetOnRead(func(buf []byte, _ net.Addr) {
			received <- append([]byte(nil), buf...)
		})

		_, err := b.Send([]byte("bound"), nil, nil)
		Expect(err).ToNot(HaveOccurred())

		var got []byte
		Eventually(received, time.Second).Should(Receive(&got))
		Expect(got).To(Equal([]byte("bound")))
	})
})
