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

// Package tcp is a dialing-side convenience over socket.Socket: one live
// connection at a time, callback rewiring across reconnects, an optional
// fixed-backoff reconnect policy, and per-direction transfer counters.
package tcp

import (
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

// OnConnect fires once per connection attempt: nil on success, the
// classified failure otherwise. With reconnect enabled it fires again for
// every retry.
type OnConnect func(err *libsnd.Exception)

// OnRecv delivers one read chunk in arrival order.
type OnRecv func(buf []byte)

// OnErr fires when an established connection dies. It never fires for a
// failed connection attempt (that is OnConnect's job) nor for a local
// Shutdown.
type OnErr func(err *libsnd.Exception)

// Client dials one TCP peer and keeps at most one Socket alive at a time.
// Callbacks survive reconnects: they are rewired onto each fresh Socket.
type Client struct {
	poller libpol.Poller
	log    liblog.Logger

	mu  sync.Mutex
	sck libsck.Socket

	host    string
	port    uint16
	timeout time.Duration

	onConnect OnConnect
	onRecv    OnRecv
	onErr     OnErr

	reconnect bool
	backoff   time.Duration
	maxRetry  int
	attempts  int
	retry     libpol.DelayHandle

	closed     bool
	lastActive time.Time

	recvSpeed *libsts.BytesSpeed
	sendSpeed *libsts.BytesSpeed
}

// New creates a Client whose Sockets will live on p.
func New(p libpol.Poller, log liblog.Logger) *Client {
	if log == nil {
		log = liblog.NewSilent()
	}
	return &Client{
		poller:     p,
		log:        log.WithField("component", "tcpclient"),
		lastActive: time.Now(),
		recvSpeed:  libsts.NewBytesSpeed(),
		sendSpeed:  libsts.NewBytesSpeed(),
	}
}

func (c *Client) SetOnConnect(cb OnConnect) {
	c.mu.Lock()
	c.onConnect = cb
	c.mu.Unlock()
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

// EnableReconnect turns on the retry policy: after a failed attempt or a
// dead connection, redial after backoff. maxRetry bounds consecutive
// failed attempts (a successful connection resets the count); <= 0 means
// unbounded.
func (c *Client) EnableReconnect(backoff time.Duration, maxRetry int) {
	if backoff <= 0 {
		backoff = time.Second
	}
	c.mu.Lock()
	c.reconnect = true
	c.backoff = backoff
	c.maxRetry = maxRetry
	c.mu.Unlock()
}

// Connect starts dialing host:port. A host name that is neither an IP
// literal nor cached is looked up on the calling goroutine, so Connect blocks
// for that lookup. The result arrives through OnConnect: on the calling
// goroutine when the attempt fails before the socket is registered with the
// Poller, on the owning Poller otherwise.
func (c *Client) Connect(host string, port uint16, timeout time.Duration) {
	c.mu.Lock()
	c.host = host
	c.port = port
	c.timeout = timeout
	c.attempts = 0
	c.closed = false
	c.mu.Unlock()

	c.startConnect()
}

func (c *Client) startConnect() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}

	c.dropSocketLocked()

	sck := libsck.New(c.poller, libsck.TCP, c.log)
	c.sck = sck
	host, port, timeout := c.host, c.port, c.timeout
	c.mu.Unlock()

	sck.Connect(host, port, func(err *libsnd.Exception) {
		c.onSockConnect(sck, err)
	}, timeout, "", 0)
}

// onSockConnect finishes one attempt. The sck argument guards against late
// callbacks from a socket the client already replaced.
func (c *Client) onSockConnect(sck libsck.Socket, err *libsnd.Exception) {
	c.mu.Lock()
	if c.sck != sck {
		c.mu.Unlock()
		return
	}

	if err != nil && !err.Ok() {
		c.sck = nil
		cb := c.onConnect
		c.mu.Unlock()

		if cb != nil {
			cb(err)
		}
		c.scheduleRetry()
		return
	}

	c.attempts = 0
	c.lastActive = time.Now()
	cb := c.onConnect
	c.mu.Unlock()

	c.wire(sck)

	if cb != nil {
		cb(nil)
	}
}

// wire attaches this client's callbacks to sck. Each closure re-checks that
// sck is still the live socket, the same guard the attempt callback uses.
func (c *Client) wire(sck libsck.Socket) {
	sck.SetOnRead(func(buf []byte, _ net.Addr) {
		c.mu.Lock()
		live := c.sck == sck
		cb := c.onRecv
		c.mu.Unlock()

		if !live {
			return
		}

		c.recvSpeed.Add(len(buf))
		c.touch()
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
		if err.HasCode(libsnd.Shutdown) {
			// a deliberate close anywhere in the chain is not worth redialing
			return
		}
		c.scheduleRetry()
	})
}

// touch refreshes the idle ticker.
func (c *Client) touch() {
	c.mu.Lock()
	c.lastActive = time.Now()
	c.mu.Unlock()
}

// IdleTime reports how long ago the connection last saw traffic in either
// direction.
func (c *Client) IdleTime() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return time.Since(c.lastActive)
}

// Alive reports whether a connection attempt is in flight or established.
func (c *Client) Alive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sck != nil && !c.closed
}

// RecvSpeed exposes the inbound transfer counter, suitable for a
// stats.SpeedCollector.
func (c *Client) RecvSpeed() *libsts.BytesSpeed { return c.recvSpeed }

// SendSpeed exposes the outbound transfer counter.
func (c *Client) SendSpeed() *libsts.BytesSpeed { return c.sendSpeed }

// Send enqueues buf on the live connection.
func (c *Client) Send(buf []byte) (int, error) {
	c.mu.Lock()
	sck := c.sck
	c.mu.Unlock()

	if sck == nil {
		return 0, errors.New("tcp client: not connected")
	}

	c.sendSpeed.Add(len(buf))
	c.touch()
	return sck.Send(buf, nil, nil)
}

func (c *Client) scheduleRetry() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || !c.reconnect {
		return
	}
	if c.maxRetry > 0 && c.attempts >= c.maxRetry {
		c.log.Warn("giving up reconnecting", nil, c.host, c.port, c.attempts)
		return
	}

	c.attempts++
	c.retry = c.poller.DoDelayTask(c.backoff, func() time.Duration {
		c.startConnect()
		return 0
	})
}

// dropSocketLocked detaches and closes the current socket without firing
// user callbacks. Caller holds c.mu.
func (c *Client) dropSocketLocked() {
	if c.sck == nil {
		return
	}
	old := c.sck
	c.sck = nil

	old.SetOnRead(nil)
	old.SetOnErr(nil)
	old.SetOnFlush(nil)
	_ = old.Close()
}

// Shutdown closes the connection and stops any pending retry. The user's
// OnErr does not fire; a local shutdown is not an error.
func (c *Client) Shutdown() {
	c.mu.Lock()
	c.closed = true
	if c.retry != nil {
		c.retry.Cancel()
		c.retry = nil
	}
	c.dropSocketLocked()
	c.mu.Unlock()
}
