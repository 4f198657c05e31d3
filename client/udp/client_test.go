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

package udp_test

import (
	"net"
	"time"

	cliudp "github.com/nabbar/reactor/client/udp"
	liblog "github.com/nabbar/reactor/logger"
	libpol "github.com/nabbar/reactor/poller"
	libsck "github.com/nabbar/reactor/socket"
	libsnd "github.com/nabbar/reactor/sockerr"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// startEcho binds a UDP socket that echoes every datagram back to its
// sender, returning the socket and its port.
func startEcho(p libpol.Poller) (libsck.Socket, uint16) {
	srv := libsck.New(p, libsck.UDP, nil)
	Expect(srv.BindUDP(0, "127.0.0.1")).To(Succeed())
	srv.SetOnRead(func(buf []byte, addr net.Addr) {
		_, _ = srv.Send(append([]byte(nil), buf...), addr, nil)
	})
	srv.SetOnErr(func(_ *libsnd.Exception) {})
	return srv, uint16(srv.LocalAddr().(*net.UDPAddr).Port)
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

	for _, soft := range []bool{false, true} {
		soft := soft
		name := "hard peer binding"
		if soft {
			name = "soft peer binding"
		}

		It("round-trips datagrams with "+name, func() {
			srv, port := startEcho(p)
			defer srv.Close()

			cli := cliudp.New(p, nil)
			defer cli.Shutdown()

			received := make(chan []byte, 4)
			cli.SetOnRecv(func(buf []byte) {
				received <- append([]byte(nil), buf...)
			})

			Expect(cli.Connect("127.0.0.1", port, 0, soft)).To(Succeed())
			Expect(cli.Alive()).To(BeTrue())
			Expect(cli.LocalAddr()).ToNot(BeNil())

			_, err := cli.Send([]byte("marco"))
			Expect(err).ToNot(HaveOccurred())

			var got []byte
			Eventually(received, time.Second).Should(Receive(&got))
			Expect(got).To(Equal([]byte("marco")))

			Expect(cli.SendSpeed().Total()).To(BeEquivalentTo(5))
			Expect(cli.RecvSpeed().Total()).To(BeEquivalentTo(5))
		})
	}

	It("refuses a second Connect while bound", func() {
		srv, port := startEcho(p)
		defer srv.Close()

		cli := cliudp.New(p, nil)
		defer cli.Shutdown()

		Expect(cli.Connect("127.0.0.1", port, 0, true)).To(Succeed())
		Expect(cli.Connect("127.0.0.1", port, 0, true)).To(HaveOccurred())
	})

	It("rejects Send before Connect and after Shutdown", func() {
		cli := cliudp.New(p, nil)

		_, err := cli.Send([]byte("nope"))
		Expect(err).To(HaveOccurred())

		srv, port := startEcho(p)
		defer srv.Close()

		Expect(cli.Connect("127.0.0.1", port, 0, true)).To(Succeed())
		cli.Shutdown()
		Expect(cli.Alive()).To(BeFalse())

		_, err = cli.Send([]byte("nope"))
		Expect(err).To(HaveOccurred())
	})
})
