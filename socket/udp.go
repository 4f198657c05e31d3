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

	libsnd "github.com/nabbar/reactor/sockerr"
	"golang.org/x/net/ipv4"
	"golang.org/x/net/ipv6"
	"golang.org/x/sys/unix"
)

// udpBatch bounds how many datagrams one ReadBatch/WriteBatch syscall
// moves.
const udpBatch = 64

// udpRecvChunk is the per-message buffer size; large enough for any
// unfragmented UDP datagram this module sends (KCP caps its own segment
// size well under this).
const udpRecvChunk = 64 * 1024

// batchConn is satisfied by *ipv4.PacketConn and *ipv6.PacketConn, which
// route through recvmmsg/sendmmsg where the platform supports them.
type batchConn interface {
	ReadBatch(ms []ipv4.Message, flags int) (int, error)
	WriteBatch(ms []ipv4.Message, flags int) (int, error)
}

// BindUDP opens a UDP socket bound to localIP:port and starts its dedicated
// recv goroutine. UDP does not share this module's raw-fd epoll Poller: the
// Go runtime's own netpoller already owns readiness for net.UDPConn, and
// registering the same fd with both would race two independent non-blocking
// I/O mechanisms over one descriptor. Every OnRead/OnErr dispatch is still
// funneled back through Poller.Async/Sync so callback-affinity holds for
// both transports alike.
func (s *sock) BindUDP(port uint16, localIP string) error {
	if s.kind != UDP {
		return fmt.Errorf("socket: BindUDP on a non-UDP socket")
	}

	addr := fmt.Sprintf("%s:%d", localIP, port)
	if localIP == "" {
		addr = fmt.Sprintf(":%d", port)
	}

	conn, err := net.ListenPacket("udp", addr)
	if err != nil {
		return err
	}

	udpConn, ok := conn.(*net.UDPConn)
	if !ok {
		_ = conn.Close()
		return fmt.Errorf("socket: ListenPacket did not return a *net.UDPConn")
	}

	s.udpConn = udpConn
	s.local = udpConn.LocalAddr()
	s.batch = wrapBatchConn(udpConn)

	go s.udpRecvLoop(udpConn)
	return nil
}

// BindPeerAddr restricts Send's default destination. A hard bind connect(2)s
// the kernel socket so recvfrom only ever delivers that peer's datagrams
// (any other peer's packets are dropped by the kernel, not by this code); a
// soft bind only changes Send's default addr argument.
func (s *sock) BindPeerAddr(addr net.Addr, soft bool) error {
	if s.kind != UDP {
		return fmt.Errorf("socket: BindPeerAddr on a non-UDP socket")
	}
	if s.udpConn == nil {
		return fmt.Errorf("socket: BindPeerAddr before BindUDP")
	}

	udpAddr, ok := addr.(*net.UDPAddr)
	if !ok {
		return fmt.Errorf("socket: BindPeerAddr requires a *net.UDPAddr")
	}

	if !soft {
		// net.UDPConn exposes no connect(2); go through the raw fd so the
		// kernel filters recvfrom down to this one peer.
		fd, ok := udpConnFD(s.udpConn)
		if !ok {
			return fmt.Errorf("socket: BindPeerAddr cannot reach the raw fd")
		}
		sa, err := toSockaddr(udpAddr)
		if err != nil {
			return err
		}
		if err = unix.Connect(fd, sa); err != nil {
			return err
		}
	}

	s.udpPeer = udpAddr
	s.udpHard = !soft
	s.peer = udpAddr
	return nil
}

// udpConnFD extracts the os-level fd backing conn, used by RawFD so callers
// that want to attach a profiler/eBPF probe or a raw setsockopt can still
// reach it despite UDP's I/O running over net.UDPConn, not this socket's own
// raw fd.
func udpConnFD(conn rawConn) (int, bool) {
	raw, err := conn.SyscallConn()
	if err != nil {
		return -1, false
	}
	var fd int
	var ctrlErr error
	err = raw.Control(func(f uintptr) {
		fd = int(f)
	})
	if err != nil || ctrlErr != nil {
		return -1, false
	}
	return fd, true
}

func wrapBatchConn(c *net.UDPConn) batchConn {
	if c.LocalAddr().(*net.UDPAddr).IP.To4() != nil {
		return ipv4.NewPacketConn(c)
	}
	return ipv6.NewPacketConn(c)
}

func (s *sock) udpRecvLoop(conn *net.UDPConn) {
	msgs := make([]ipv4.Message, udpBatch)
	for i := range msgs {
		msgs[i].Buffers = [][]byte{make([]byte, udpRecvChunk)}
	}

	for {
		n, err := s.batch.ReadBatch(msgs, 0)
		if err != nil {
			s.EmitErr(classifyUDPErr(err))
			return
		}
		if n == 0 {
			continue
		}

		type datagram struct {
			data []byte
			addr net.Addr
		}
		batch := make([]datagram, 0, n)
		for i := 0; i < n; i++ {
			data := make([]byte, msgs[i].N)
			copy(data, msgs[i].Buffers[0][:msgs[i].N])
			batch = append(batch, datagram{data: data, addr: msgs[i].Addr})
		}

		s.poller.Async(func() {
			cb := s.getOnRead()
			if cb == nil {
				return
			}
			for _, d := range batch {
				cb(d.data, d.addr)
			}
		}, false)
	}
}

func classifyUDPErr(err error) *libsnd.Exception {
	if err == nil {
		return libsnd.New(libsnd.Shutdown)
	}
	return libsnd.New(libsnd.Other, err)
}

// flushUDP drains the sending snapshot with WriteBatch, each datagram sent
// whole (no partial-write carry the way TCP's off cursor does).
func (s *sock) flushUDP() {
	s.mu.Lock()
	sl := s.sending
	s.mu.Unlock()
	if sl == nil || sl.empty() {
		s.flushDone(true)
		return
	}

	for !sl.empty() {
		n := len(sl.buffers)
		if n > udpBatch {
			n = udpBatch
		}

		msgs := make([]ipv4.Message, n)
		for i := 0; i < n; i++ {
			b := sl.buffers[i]
			dest := b.addr
			if dest == nil {
				dest = s.udpPeer
			}
			msgs[i].Buffers = [][]byte{b.data}
			if !s.udpHard {
				msgs[i].Addr = dest
			}
		}

		sent, err := s.batch.WriteBatch(msgs, 0)
		if err != nil {
			s.EmitErr(libsnd.New(libsnd.Other, err))
			return
		}
		for i := 0; i < sent; i++ {
			sl.completeFront(nil)
		}
		if sent < n {
			// kernel send buffer is full; retry once more datagrams are flushed.
			return
		}
	}

	s.flushDone(true)
}
