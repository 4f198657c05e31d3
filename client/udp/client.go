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

// Package udp is the datagram sibling of client/tcp: it binds a local UDP
// socket, points it at one peer (hard or soft), and delivers that peer's
// datagrams through a single OnRecv callback.
package udp

import (
	"fmt"
	"net"
	"sync"
	"time"

	liblog "github.com/nabbar/reactor/logger"
	libpol "github.com/nabbar/reactor/poller"
	libsck "github.com/nabbar/reactor/socket"
	libsnd "github.com/nabbar/reactor/sockerr"
	libsts "github.com/nabbar/reactor/stats"

	"github.com/pkg/errors"
)

// OnRecv delivers one datagram from the connected peer.
type OnRecv func(buf []byte)

// OnErr fires once when the socket dies.
type OnErr func(err *libsnd.Exception)

// Client owns one bound UDP socket pointed at a single peer.
type Client struct {
	poller libpol.Poller
	log    liblog.Logger

	mu  sync.Mutex
	sck libsck.Socket

	onRecv OnRecv
	onErr  OnErr

	closed     bool
	lastActive time.Time

	recvSpeed *libsts.BytesSpeed
	sendSpeed *libsts.BytesSpeed
}

// New creates a Client whose socket will dispatch callbacks through p.
func New(p libpol.Poller, log liblog.Logger) *Client {
	if log == nil {
		log = liblog.NewSilent()
	}
	return &Client{
		poller:     p,
		log:        log.WithField("component", "udpclient"),
		lastActive: time.Now(),
		recvSpeed:  libsts.NewBytesSpeed(),
		sendSpeed:  libsts.NewBytesSpeed(),
	}
}

func (c *Client) SetOnRecv(cb OnRecv) {
	c.mu.Lock()
	c.onRecv = cb
	c.mu.Unlock()
}

func (c *Client) SetOnErr(cb OnErr) {
	c.mu.Lock()
	c.onErr = cb
	c.mu.Unlock()
}

// Connect binds a local UDP socket on localPort (0 picks a free port) and
// points it at host:port. With soft=false the kernel socket is connected to
// the peer, so only that peer's datagrams are ever delivered; with
// soft=true the peer is only the default Send destination. Unlike TCP there
// is no handshake: Connect returning nil means the socket is ready.
func (c *Client) Connect(host string, port uint16, localPort uint16, soft bool) error {
	peer, err := net.ResolveUDPAddr("udp", fmt.Sprintf("%s:%d", host, port))
	if err != nil {
		return errors.Wrap(err, "udp client: resolve peer")
	}

	c.mu.Lock()
	if c.sck != nil {
		c.mu.Unlock()
		return errors.New("udp client: already connected")
	}
	c.closed = false

	sck := libsck.New(c.poller, libsck.UDP, c.log)
	c.sck = sck
	c.mu.Unlock()

	if err = sck.BindUDP(localPort, ""); err != nil {
		c.dropSocket(sck)
		return errors.Wrap(err, "udp client: bind local")
	}
	if err = sck.BindPeerAddr(peer, soft); err != nil {
		c.dropSocket(sck)
		return errors.Wrap(err, "udp client: bind peer")
	}

	c.wire(sck)
	return nil
}

func (c *Client) wire(sck libsck.Socket) {
	sck.SetOnRead(func(buf []byte, _ net.Addr) {
		c.mu.Lock()
		live := c.sck == sck
		cb := c.onRecv
		c.lastActive = time.Now()
		c.mu.Unlock()

		if !live {
			return
		}

		c.recvSpeed.Add(len(buf))
		if cb != nil {
			cb(buf)
		}
	})

	sck.SetOnErr(func(err *libsnd.Exception) {
		c.mu.Lock()
		if c.sck != sck {
			c.mu.Unlock()
			return
		}
		c.sck = nil
		cb := c.onErr
		c.mu.Unlock()

		if cb != nil {
			cb(err)
		}
	})
}

// Send enqueues one datagram to the connected peer.
func (c *Client) Send(buf []byte) (int, error) {
	c.mu.Lock()
	sck := c.sck
	c.lastActive = time.Now()
	c.mu.Unlock()

	if sck == nil {
		return 0, errors.New("udp client: not connected")
	}

	c.sendSpeed.Add(len(buf))
	return sck.Send(buf, nil, nil)
}

// Alive reports whether the socket is bound and not shut down.
func (c *Client) Alive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sck != nil && !c.closed
}

// IdleTime reports how long ago the socket last saw traffic.
func (c *Client) IdleTime() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return time.Since(c.lastActive)
}

// LocalAddr returns the bound local address, or nil before Connect.
func (c *Client) LocalAddr() net.Addr {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sck == nil {
		return nil
	}
	return c.sck.LocalAddr()
}

// RecvSpeed exposes the inbound transfer counter.
func (c *Client) RecvSpeed() *libsts.BytesSpeed { return c.recvSpeed }

// SendSpeed exposes the outbound transfer counter.
func (c *Client) SendSpeed() *libsts.BytesSpeed { return c.sendSpeed }

func (c *Client) dropSocket(sck libsck.Socket) {
	c.mu.Lock()
	if c.sck == sck {
		c.sck = nil
	}
	c.mu.Unlock()

	sck.SetOnRead(nil)
	sck.SetOnErr(nil)
	_ = sck.Close()
}

// Shutdown closes the socket without firing OnErr.
func (c *Client) Shutdown() {
	c.mu.Lock()
	c.closed = true
	sck := c.sck
	c.sck = nil
	c.mu.Unlock()

	if sck != nil {
		sck.SetOnRead(nil)
		sck.SetOnErr(nil)
		_ = sck.Close()
	}
}
