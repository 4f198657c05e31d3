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

package kcp

import (
	"net"
	"time"

	libsnd "github.com/nabbar/reactor/sockerr"
)

// Conn adapts a Transport to the familiar blocking net.Conn shape for
// callers that would rather not write callback-style code: every message
// Transport delivers is queued to a channel that Read drains.
type Conn struct {
	t        *Transport
	incoming chan []byte
	closed   chan struct{}
	leftover []byte

	readDeadline time.Time
}

// NewConn wraps t, taking over its OnMessage/OnErr callbacks.
func NewConn(t *Transport) *Conn {
	c := &Conn{
		t:        t,
		incoming: make(chan []byte, 128),
		closed:   make(chan struct{}),
	}
	t.SetOnMessage(func(msg []byte) {
		select {
		case c.incoming <- msg:
		default:
			// receiver is not keeping up; drop rather than block the
			// Poller's loop goroutine delivering it.
		}
	})
	t.SetOnErr(func(err *libsnd.Exception) {
		close(c.closed)
	})
	return c
}

func (c *Conn) Read(b []byte) (int, error) {
	if len(c.leftover) > 0 {
		n := copy(b, c.leftover)
		c.leftover = c.leftover[n:]
		return n, nil
	}

	var timeout <-chan time.Time
	if !c.readDeadline.IsZero() {
		timer := time.NewTimer(time.Until(c.readDeadline))
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case msg, ok := <-c.incoming:
		if !ok {
			return 0, net.ErrClosed
		}
		n := copy(b, msg)
		if n < len(msg) {
			c.leftover = msg[n:]
		}
		return n, nil
	case <-c.closed:
		return 0, net.ErrClosed
	case <-timeout:
		return 0, timeoutError{}
	}
}

func (c *Conn) Write(b []byte) (int, error) {
	if err := c.t.Send(b, true); err != nil {
		return 0, err
	}
	return len(b), nil
}

func (c *Conn) Close() error {
	return c.t.Close()
}

func (c *Conn) LocalAddr() net.Addr  { return c.t.sock.LocalAddr() }
func (c *Conn) RemoteAddr() net.Addr { return c.t.peer }

func (c *Conn) SetDeadline(t time.Time) error {
	c.readDeadline = t
	return nil
}

func (c *Conn) SetReadDeadline(t time.Time) error {
	c.readDeadline = t
	return nil
}

func (c *Conn) SetWriteDeadline(t time.Time) error { return nil }

type timeoutError struct{}

func (timeoutError) Error() string   { return "kcp: read deadline exceeded" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }
