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

// Internal (white-box) tests for the protocol engine: driven by a
// synthetic, manually-advanced clock and a lossless/lossy in-memory
// channel instead of real sockets or timers, so the ARQ behavior is
// exercised deterministically.
package kcp

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// linkedPair builds two engines that feed each other's Input directly,
// simulating a lossless datagram channel between them.
func linkedPair() (client *engine, clientRecv *[][]byte, server *engine, serverRecv *[][]byte) {
	clientRecv = &[][]byte{}
	serverRecv = &[][]byte{}

	client = newEngine(0xC0FFEE, true, nil, func(msg []byte) {
		*clientRecv = append(*clientRecv, msg)
	})
	server = newEngine(0, false, nil, func(msg []byte) {
		*serverRecv = append(*serverRecv, msg)
	})

	client.output = func(data []byte) {
		_ = server.Input(data, 0)
	}
	server.output = func(data []byte) {
		_ = client.Input(data, 0)
	}

	return client, clientRecv, server, serverRecv
}

var _ = Describe("KCP engine", func() {
	It("delivers a single-segment message in order", func() {
		client, _, _, serverRecv := linkedPair()

		Expect(client.Send([]byte("hello kcp"))).To(Succeed())
		client.flush(0, false)

		Expect(*serverRecv).To(HaveLen(1))
		Expect((*serverRecv)[0]).To(Equal([]byte("hello kcp")))
	})

	It("adopts the client's conv on the server's first received packet", func() {
		client, _, server, _ := linkedPair()

		Expect(server.convInit).To(BeFalse())
		Expect(client.Send([]byte("x"))).To(Succeed())
		client.flush(0, false)

		Expect(server.convInit).To(BeTrue())
		Expect(server.conv).To(Equal(client.conv))
	})

	It("fragments a message larger than mss and reassembles it in order", func() {
		client, _, server, serverRecv := linkedPair()

		big := make([]byte, int(client.mss)*3+17)
		for i := range big {
			big[i] = byte(i % 251)
		}

		Expect(client.Send(big)).To(Succeed())
		// the congestion window opens one ack round at a time, so the four
		// fragments cross over several client/server flush rounds.
		for now := uint32(0); now < 1000 && len(*serverRecv) == 0; now += 10 {
			client.flush(now, false)
			server.flush(now, false)
		}

		Expect(*serverRecv).To(HaveLen(1))
		Expect((*serverRecv)[0]).To(Equal(big))
	})

	It("acks pushed data and advances snd_una on the sender once acked", func() {
		client, _, server, _ := linkedPair()

		Expect(client.Send([]byte("ack me"))).To(Succeed())
		client.flush(0, false)
		Expect(client.sndNxt).To(Equal(uint32(1)))

		// server's flush at a later tick emits the ack for the pushed segment.
		server.flush(50, false)
		Expect(client.sndUna).To(Equal(uint32(1)))
		Expect(client.sndBuf).To(BeEmpty())
	})

	It("retransmits a segment whose RTO has elapsed without an ack", func() {
		client, _, server, _ := linkedPair()

		// sever the return path: server never acks, so the segment stays
		// in snd_buf past its resendts.
		server.output = func([]byte) {}

		Expect(client.Send([]byte("lossy"))).To(Succeed())
		client.flush(0, false)
		Expect(client.sndBuf).To(HaveLen(1))

		firstXmit := client.sndBuf[0].xmit
		resendAt := client.sndBuf[0].resendts

		client.flush(resendAt+1, false)
		Expect(client.sndBuf[0].xmit).To(Equal(firstXmit + 1))
	})

	It("rejects a Send larger than the maximum message size", func() {
		client := newEngine(1, true, func([]byte) {}, func([]byte) {})
		tooBig := make([]byte, client.maxMessage()+1)
		Expect(client.Send(tooBig)).To(HaveOccurred())
	})

	It("drops packets whose conv does not match after initialization", func() {
		client, _, server, serverRecv := linkedPair()

		Expect(client.Send([]byte("first"))).To(Succeed())
		client.flush(0, false)
		Expect(*serverRecv).To(HaveLen(1))

		// a packet from a different conv must be silently dropped.
		foreign := newEngine(0xBADC0DE, true, func(data []byte) {
			_ = server.Input(data, 100)
		}, func([]byte) {})
		Expect(foreign.Send([]byte("intruder"))).To(Succeed())
		foreign.flush(100, false)

		Expect(*serverRecv).To(HaveLen(1))
	})
})
