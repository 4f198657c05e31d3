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
	"math/rand"
	"net"
	"time"

	libpol "github.com/nabbar/reactor/poller"
	libsck "github.com/nabbar/reactor/socket"
	libsnd "github.com/nabbar/reactor/sockerr"
)

// OnMessage is invoked with one fully reassembled application message.
type OnMessage func(msg []byte)

// OnErr is invoked once, when the underlying Socket errors or Close is
// called; the Transport is unusable afterward.
type OnErr func(err *libsnd.Exception)

// Transport wires the engine protocol state machine to a Socket and a
// Poller's delay-task timer: it is the reactor-integrated half of KCP
// described separately from the protocol math in engine.go. Every method
// other than Send, which hops onto the loop itself when called from another
// goroutine, must be called on the owning Poller's loop goroutine, the same
// single-writer discipline every other component in this module follows.
type Transport struct {
	eng    *engine
	poller libpol.Poller
	sock   libsck.Socket
	peer   net.Addr

	timer libpol.DelayHandle

	onMessage OnMessage
	onErr     OnErr

	closed bool
}

func nowMs() uint32 {
	return uint32(time.Now().UnixNano() / int64(time.Millisecond))
}

func newTransport(p libpol.Poller, sock libsck.Socket, peer net.Addr, conv uint32, convInit bool) *Transport {
	t := &Transport{poller: p, sock: sock, peer: peer}
	t.eng = newEngine(conv, convInit, t.output, t.deliver)

	sock.SetOnRead(t.onSocketRead)
	sock.SetOnErr(t.onSocketErr)
	return t
}

// NewClient creates a client-mode Transport: conv is generated locally at
// construction and sent from the first packet onward.
func NewClient(p libpol.Poller, sock libsck.Socket, peer net.Addr) *Transport {
	return newTransport(p, sock, peer, rand.Uint32(), true)
}

// NewServer creates a server-mode Transport: conv is adopted from the
// first received packet.
func NewServer(p libpol.Poller, sock libsck.Socket, peer net.Addr) *Transport {
	return newTransport(p, sock, peer, 0, false)
}

func (t *Transport) output(data []byte) {
	cp := append([]byte(nil), data...)
	_, _ = t.sock.Send(cp, t.peer, nil)
}

func (t *Transport) deliver(msg []byte) {
	if t.onMessage != nil {
		t.onMessage(msg)
	}
}

func (t *Transport) onSocketRead(buf []byte, _ net.Addr) {
	if t.closed {
		return
	}
	_ = t.eng.Input(buf, nowMs())
	t.ensureTimer()
	if t.eng.DeadLink() {
		t.EmitErr(libsnd.New(libsnd.Timeout))
	}
}

func (t *Transport) onSocketErr(err *libsnd.Exception) {
	t.teardown()
	if t.onErr != nil {
		t.onErr(err)
	}
}

// ensureTimer starts the interval-ms repeating flush tick on first send or
// input.
func (t *Transport) ensureTimer() {
	if t.timer != nil || t.closed {
		return
	}
	t.timer = t.poller.DoDelayTask(time.Duration(t.eng.interval)*time.Millisecond, t.tick)
}

func (t *Transport) tick() time.Duration {
	if t.closed {
		return 0
	}
	current := nowMs()
	t.eng.Update(current)
	if t.eng.DeadLink() {
		t.EmitErr(libsnd.New(libsnd.Timeout))
		return 0
	}
	next := t.eng.Check(current)
	delay := int64(next) - int64(current)
	if delay <= 0 {
		delay = 1
	}
	return time.Duration(delay) * time.Millisecond
}

// Send pushes buf into the engine's outbound queue. If flush is true the
// transmit path runs immediately instead of waiting for the next timer
// tick, trading a syscall now for lower latency. Callers off the owning
// Poller's loop goroutine are transparently redirected through Sync, the
// same off-loop accommodation Socket.Send makes for its own queue.
func (t *Transport) Send(buf []byte, flush bool) error {
	if !t.poller.IsCurrentThread() {
		var err error
		t.poller.Sync(func() {
			err = t.sendLocked(buf, flush)
		})
		return err
	}
	return t.sendLocked(buf, flush)
}

func (t *Transport) sendLocked(buf []byte, flush bool) error {
	if t.closed {
		return libsnd.New(libsnd.Shutdown)
	}
	if err := t.eng.Send(buf); err != nil {
		return err
	}
	t.ensureTimer()
	if flush {
		t.eng.flush(nowMs(), false)
	}
	return nil
}

func (t *Transport) SetOnMessage(cb OnMessage) { t.onMessage = cb }
func (t *Transport) SetOnErr(cb OnErr)         { t.onErr = cb }

func (t *Transport) SetInterval(ms uint32)           { t.eng.SetInterval(ms) }
func (t *Transport) SetMode(m Mode)                  { t.eng.SetMode(m) }
func (t *Transport) SetWindow(sndWnd, rcvWnd int)    { t.eng.SetWindow(sndWnd, rcvWnd) }
func (t *Transport) SetMtu(mtu int) error            { return t.eng.SetMtu(mtu) }
func (t *Transport) SetStream(v bool)                { t.eng.SetStream(v) }
func (t *Transport) SetFastResend(n int32)           { t.eng.SetFastResend(n) }
func (t *Transport) SetFastLimit(n int32)            { t.eng.SetFastLimit(n) }
func (t *Transport) SetNoCwnd(v bool)                { t.eng.SetNoCwnd(v) }
func (t *Transport) SetDeadLink(n uint32)            { t.eng.SetDeadLink(n) }
func (t *Transport) SetFastackConserve(v bool)       { t.eng.SetFastackConserve(v) }

// WaitSnd reports how many segments are queued or unacknowledged, a
// backpressure signal analogous to Socket.IsBusy.
func (t *Transport) WaitSnd() int { return t.eng.WaitSnd() }

func (t *Transport) Conv() uint32 { return t.eng.conv }

func (t *Transport) teardown() {
	if t.closed {
		return
	}
	t.closed = true
	if t.timer != nil {
		t.timer.Cancel()
	}
}

// EmitErr tears down the timer and invokes OnErr. It does not close the
// underlying Socket: for a server-mode Transport accepted off a shared UDP
// Socket, closing the Socket would take every other peer down with it.
func (t *Transport) EmitErr(err *libsnd.Exception) {
	t.teardown()
	if t.onErr != nil {
		t.onErr(err)
	}
}

// Close tears down the timer and closes the underlying Socket. Use this
// for a client-mode Transport (or a server one holding a cloned,
// peer-bound Socket); for a shared demux Socket use EmitErr instead.
func (t *Transport) Close() error {
	t.teardown()
	return t.sock.Close()
}
