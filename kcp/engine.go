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

// Package kcp implements the canonical KCP ARQ protocol: reliable, ordered
// delivery with selective ACK, fast retransmit, two-mode RTO backoff, and
// sliding-window congestion control over an unreliable datagram channel.
//
// engine.go holds the protocol state machine in isolation from any socket
// or timer — every entry point takes the current timestamp explicitly, so
// it can be driven by a Poller's delay task (see transport.go) or by a test
// with synthetic clocks.
package kcp

import "fmt"

// Mode selects the RTO/fast-resend profile, matching the three canonical
// KCP presets (normal / fast / nodelay).
type Mode int

const (
	ModeNormal Mode = iota
	ModeFast
	ModeNoDelay
)

const (
	mtuDefault = 1400

	rtoNoDelayMin = 30
	rtoNormalMin  = 100
	rtoDefault    = 200
	rtoMax        = 60000

	thresholdInit = 2
	thresholdMin  = 2

	probeInit  = 7000
	probeLimit = 120000

	intervalDefault = 100
	intervalMin     = 10
	intervalMax     = 5000

	sndWndDefault = 32
	rcvWndDefault = 128
	rcvWndMin     = 128

	deadLinkDefault  = 20
	fastLimitDefault = 5
)

type ackItem struct {
	sn uint32
	ts uint32
}

// engine is the bare KCP state machine for one connection. None of its
// methods are safe for concurrent use; transport.go serializes every call
// onto one Poller's loop goroutine, matching the "single reactor owns this
// object" rule every other component in this module follows.
type engine struct {
	conv     uint32
	convInit bool
	mtu, mss uint32
	dead     bool

	sndUna, sndNxt, rcvNxt uint32
	ssthresh               uint32
	rxRttval               int32
	rxSrtt                 int32
	rxRTO                  uint32
	rxMinRTO               uint32

	sndWnd, rcvWnd, rmtWnd, cwnd, incr uint32
	probe                              uint32

	interval uint32
	tsFlush  uint32
	xmit     uint32
	updated  bool

	mode Mode

	tsProbe, probeWait uint32
	deadLink           uint32

	fastresend      int32
	fastlimit       int32
	fastackConserve bool
	nocwnd          bool
	stream          bool

	sndQueue []segment
	rcvQueue []segment
	sndBuf   []segment
	rcvBuf   []segment

	acklist []ackItem

	buffer []byte

	output func(data []byte)
	onData func(msg []byte)
}

// newEngine creates an engine for conv (0 means "not yet initialized;
// adopt the first received packet's conv", i.e. server mode). output is
// invoked with one or more coalesced wire packets ready to hand to a
// Socket; onData is invoked with one fully reassembled application message.
func newEngine(conv uint32, convInit bool, output func([]byte), onData func([]byte)) *engine {
	e := &engine{
		conv:      conv,
		convInit:  convInit,
		mtu:       mtuDefault,
		mss:       mtuDefault - headerSize,
		sndWnd:    sndWndDefault,
		rcvWnd:    rcvWndDefault,
		rmtWnd:    rcvWndDefault,
		rxRTO:     rtoDefault,
		rxMinRTO:  rtoNormalMin,
		interval:  intervalDefault,
		tsFlush:   intervalDefault,
		ssthresh:  thresholdInit,
		cwnd:      1,
		incr:      mtuDefault - headerSize,
		deadLink:  deadLinkDefault,
		fastlimit: fastLimitDefault,
		output:    output,
		onData:    onData,
	}
	e.buffer = make([]byte, (e.mtu+headerSize)*3)
	return e
}

// SetMode applies one of the canonical nodelay/fast/normal presets.
func (e *engine) SetMode(m Mode) {
	e.mode = m
	if m == ModeNoDelay {
		e.rxMinRTO = rtoNoDelayMin
	} else {
		e.rxMinRTO = rtoNormalMin
	}
}

func (e *engine) SetInterval(ms uint32) {
	if ms > intervalMax {
		ms = intervalMax
	} else if ms < intervalMin {
		ms = intervalMin
	}
	e.interval = ms
}

func (e *engine) SetFastResend(n int32)   { e.fastresend = n }
func (e *engine) SetFastLimit(n int32)    { e.fastlimit = n }
func (e *engine) SetNoCwnd(v bool)        { e.nocwnd = v }
func (e *engine) SetStream(v bool)        { e.stream = v }
func (e *engine) SetFastackConserve(v bool) { e.fastackConserve = v }
func (e *engine) SetDeadLink(n uint32)    { e.deadLink = n }

func (e *engine) SetWindow(sndWnd, rcvWnd int) {
	if sndWnd > 0 {
		e.sndWnd = uint32(sndWnd)
	}
	if rcvWnd > 0 {
		if rcvWnd < rcvWndMin {
			rcvWnd = rcvWndMin
		}
		e.rcvWnd = uint32(rcvWnd)
	}
}

func (e *engine) SetMtu(mtu int) error {
	if mtu < 50 || uint32(mtu) < headerSize {
		return fmt.Errorf("kcp: mtu %d too small", mtu)
	}
	e.mtu = uint32(mtu)
	e.mss = e.mtu - headerSize
	e.buffer = make([]byte, (e.mtu+headerSize)*3)
	return nil
}

func (e *engine) maxMessage() int {
	return int(e.mss) * rcvWndDefault
}

// Send pushes application bytes into snd_queue, fragmenting by mss.
func (e *engine) Send(buf []byte) error {
	if len(buf) == 0 {
		return fmt.Errorf("kcp: empty send")
	}
	if len(buf) > e.maxMessage() {
		return fmt.Errorf("kcp: message of %d bytes exceeds limit of %d", len(buf), e.maxMessage())
	}

	if e.stream && len(e.sndQueue) > 0 {
		tail := &e.sndQueue[len(e.sndQueue)-1]
		if uint32(len(tail.data)) < e.mss {
			extend := int(e.mss) - len(tail.data)
			if extend > len(buf) {
				extend = len(buf)
			}
			tail.data = append(tail.data, buf[:extend]...)
			tail.frg = 0
			buf = buf[extend:]
		}
		if len(buf) == 0 {
			return nil
		}
	}

	var count int
	if len(buf) <= int(e.mss) {
		count = 1
	} else {
		count = (len(buf) + int(e.mss) - 1) / int(e.mss)
	}

	for i := 0; i < count; i++ {
		size := int(e.mss)
		if size > len(buf) {
			size = len(buf)
		}
		data := make([]byte, size)
		copy(data, buf[:size])

		seg := segment{data: data}
		if e.stream {
			seg.frg = 0
		} else {
			seg.frg = uint8(count - i - 1)
		}
		e.sndQueue = append(e.sndQueue, seg)
		buf = buf[size:]
	}
	return nil
}

func (e *engine) updateAck(rtt int32) {
	if e.rxSrtt == 0 {
		e.rxSrtt = rtt
		e.rxRttval = rtt / 2
	} else {
		delta := rtt - e.rxSrtt
		if delta < 0 {
			delta = -delta
		}
		e.rxRttval = (3*e.rxRttval + delta) / 4
		e.rxSrtt = (7*e.rxSrtt + rtt) / 8
		if e.rxSrtt < 1 {
			e.rxSrtt = 1
		}
	}
	rto := uint32(e.rxSrtt) + maxU32(e.interval, uint32(4*e.rxRttval))
	e.rxRTO = boundU32(e.rxMinRTO, rto, rtoMax)
}

func (e *engine) shrinkBuf() {
	if len(e.sndBuf) > 0 {
		e.sndUna = e.sndBuf[0].sn
	} else {
		e.sndUna = e.sndNxt
	}
}

func (e *engine) parseAck(sn uint32) {
	if timeDiff(sn, e.sndUna) < 0 || timeDiff(sn, e.sndNxt) >= 0 {
		return
	}
	for i := range e.sndBuf {
		if sn == e.sndBuf[i].sn {
			e.sndBuf = append(e.sndBuf[:i], e.sndBuf[i+1:]...)
			return
		}
		if timeDiff(sn, e.sndBuf[i].sn) < 0 {
			return
		}
	}
}

func (e *engine) parseFastack(sn, ts uint32) {
	if timeDiff(sn, e.sndUna) < 0 || timeDiff(sn, e.sndNxt) >= 0 {
		return
	}
	for i := range e.sndBuf {
		seg := &e.sndBuf[i]
		if timeDiff(sn, seg.sn) < 0 {
			break
		} else if sn != seg.sn {
			if !e.fastackConserve || timeDiff(ts, seg.ts) >= 0 {
				seg.fastack++
			}
		}
	}
}

func (e *engine) parseUna(una uint32) {
	count := 0
	for _, seg := range e.sndBuf {
		if timeDiff(una, seg.sn) > 0 {
			count++
		} else {
			break
		}
	}
	e.sndBuf = e.sndBuf[count:]
}

func (e *engine) ackPush(sn, ts uint32) {
	e.acklist = append(e.acklist, ackItem{sn: sn, ts: ts})
}

func (e *engine) parseData(seg segment) {
	sn := seg.sn
	if timeDiff(sn, e.rcvNxt+e.rcvWnd) >= 0 || timeDiff(sn, e.rcvNxt) < 0 {
		return
	}

	n := len(e.rcvBuf) - 1
	insertAt := len(e.rcvBuf)
	repeat := false
	for i := n; i >= 0; i-- {
		if e.rcvBuf[i].sn == sn {
			repeat = true
			break
		}
		if timeDiff(sn, e.rcvBuf[i].sn) > 0 {
			insertAt = i + 1
			break
		}
		insertAt = i
	}

	if !repeat {
		e.rcvBuf = append(e.rcvBuf, segment{})
		copy(e.rcvBuf[insertAt+1:], e.rcvBuf[insertAt:])
		e.rcvBuf[insertAt] = seg
	}

	e.moveRcvBufToQueue()
}

func (e *engine) moveRcvBufToQueue() {
	count := 0
	for _, seg := range e.rcvBuf {
		if seg.sn == e.rcvNxt && uint32(len(e.rcvQueue)) < e.rcvWnd {
			e.rcvNxt++
			count++
		} else {
			break
		}
	}
	e.rcvQueue = append(e.rcvQueue, e.rcvBuf[:count]...)
	e.rcvBuf = e.rcvBuf[count:]
	e.emitReady()
}

// peekSize returns the byte length of the next fully-received message, or
// -1 if none is ready.
func (e *engine) peekSize() int {
	if len(e.rcvQueue) == 0 {
		return -1
	}
	front := &e.rcvQueue[0]
	if front.frg == 0 {
		return len(front.data)
	}
	if len(e.rcvQueue) < int(front.frg)+1 {
		return -1
	}
	length := 0
	for i := range e.rcvQueue {
		length += len(e.rcvQueue[i].data)
		if e.rcvQueue[i].frg == 0 {
			break
		}
	}
	return length
}

// emitReady assembles and hands off every complete message currently
// sitting at the front of rcv_queue.
func (e *engine) emitReady() {
	for {
		size := e.peekSize()
		if size < 0 {
			return
		}

		wasFull := uint32(len(e.rcvQueue)) >= e.rcvWnd

		msg := make([]byte, 0, size)
		count := 0
		for i := range e.rcvQueue {
			msg = append(msg, e.rcvQueue[i].data...)
			count++
			if e.rcvQueue[i].frg == 0 {
				break
			}
		}
		e.rcvQueue = e.rcvQueue[count:]

		if e.onData != nil {
			e.onData(msg)
		}

		if wasFull && uint32(len(e.rcvQueue)) < e.rcvWnd {
			e.probe |= askTell
		}
	}
}

// Input parses back-to-back packets out of one received datagram.
func (e *engine) Input(data []byte, current uint32) error {
	if len(data) < headerSize {
		return fmt.Errorf("kcp: datagram shorter than header")
	}

	var hadAck bool
	var maxAckSN, maxAckTS uint32
	prevUna := e.sndUna

	for len(data) >= headerSize {
		h, rest, ok := decodeHeader(data)
		if !ok {
			break
		}
		if len(rest) < int(h.length) {
			return fmt.Errorf("kcp: truncated payload")
		}
		payload := rest[:h.length]
		data = rest[h.length:]

		if !e.convInit {
			e.conv = h.conv
			e.convInit = true
		} else if h.conv != e.conv {
			continue
		}

		switch h.cmd {
		case cmdPush, cmdAck, cmdWask, cmdWins:
		default:
			continue
		}

		e.rmtWnd = uint32(h.wnd)
		e.parseUna(h.una)
		e.shrinkBuf()

		switch h.cmd {
		case cmdAck:
			if timeDiff(current, h.ts) >= 0 {
				e.updateAck(timeDiff(current, h.ts))
			}
			e.parseAck(h.sn)
			e.shrinkBuf()
			if !hadAck || timeDiff(h.sn, maxAckSN) > 0 {
				maxAckSN, maxAckTS = h.sn, h.ts
			}
			hadAck = true
		case cmdPush:
			if timeDiff(h.sn, e.rcvNxt+e.rcvWnd) < 0 {
				e.ackPush(h.sn, h.ts)
				if timeDiff(h.sn, e.rcvNxt) >= 0 {
					seg := segment{conv: h.conv, cmd: h.cmd, frg: h.frg, wnd: h.wnd, ts: h.ts, sn: h.sn, una: h.una}
					seg.data = append([]byte(nil), payload...)
					e.parseData(seg)
				}
			}
		case cmdWask:
			e.probe |= askTell
		case cmdWins:
			// no-op beyond the common effects applied above.
		}
	}

	if hadAck {
		e.parseFastack(maxAckSN, maxAckTS)
	}

	if timeDiff(e.sndUna, prevUna) > 0 {
		e.increaseCwnd()
	}

	return nil
}

func (e *engine) increaseCwnd() {
	if e.cwnd >= e.rmtWnd {
		return
	}
	mss := e.mss
	if e.cwnd < e.ssthresh {
		e.cwnd++
		e.incr += mss
	} else {
		if e.incr < mss {
			e.incr = mss
		}
		e.incr += (mss*mss)/e.incr + mss/16
		if (e.cwnd+1)*mss <= e.incr {
			e.cwnd++
		}
	}
	if e.cwnd > e.rmtWnd {
		e.cwnd = e.rmtWnd
		e.incr = e.rmtWnd * mss
	}
}

func (e *engine) decreaseCwnd(change, lost bool, effectiveCwnd, resent uint32) {
	if change {
		inflight := e.sndNxt - e.sndUna
		e.ssthresh = maxU32(inflight/2, thresholdMin)
		e.cwnd = e.ssthresh + resent
		e.incr = e.cwnd * e.mss
	}
	if lost {
		e.ssthresh = maxU32(effectiveCwnd/2, thresholdMin)
		e.cwnd = 1
		e.incr = e.mss
	}
	if e.cwnd < 1 {
		e.cwnd = 1
		e.incr = e.mss
	}
}

func (e *engine) wndUnused() uint16 {
	if uint32(len(e.rcvQueue)) < e.rcvWnd {
		return uint16(e.rcvWnd - uint32(len(e.rcvQueue)))
	}
	return 0
}

// flush emits every pending ack, probe, and data segment, coalescing as
// many as fit into mtu-sized datagrams before calling output.
func (e *engine) flush(current uint32, ackOnly bool) {
	ptr := e.buffer
	used := func() int { return len(e.buffer) - len(ptr) }
	emit := func() {
		if size := used(); size > 0 {
			e.output(e.buffer[:size])
		}
		ptr = e.buffer
	}

	var base segment
	base.conv = e.conv
	base.cmd = cmdAck
	base.wnd = e.wndUnused()
	base.una = e.rcvNxt

	for _, ack := range e.acklist {
		if used()+headerSize > int(e.mtu) {
			emit()
		}
		base.sn, base.ts = ack.sn, ack.ts
		ptr = base.encode(ptr)
	}
	e.acklist = nil
	emit()

	if ackOnly {
		return
	}

	if e.rmtWnd == 0 {
		if e.probeWait == 0 {
			e.probeWait = probeInit
			e.tsProbe = current + e.probeWait
		} else if timeDiff(current, e.tsProbe) >= 0 {
			if e.probeWait < probeInit {
				e.probeWait = probeInit
			}
			e.probeWait += e.probeWait / 2
			if e.probeWait > probeLimit {
				e.probeWait = probeLimit
			}
			e.tsProbe = current + e.probeWait
			e.probe |= askSend
		}
	} else {
		e.tsProbe = 0
		e.probeWait = 0
	}

	if e.probe&askSend != 0 {
		probe := segment{conv: e.conv, cmd: cmdWask}
		if used()+headerSize > int(e.mtu) {
			emit()
		}
		ptr = probe.encode(ptr)
	}
	if e.probe&askTell != 0 {
		probe := segment{conv: e.conv, cmd: cmdWins, wnd: e.wndUnused()}
		if used()+headerSize > int(e.mtu) {
			emit()
		}
		ptr = probe.encode(ptr)
	}
	e.probe = 0

	effectiveCwnd := minU32(e.sndWnd, e.rmtWnd)
	if !e.nocwnd {
		effectiveCwnd = minU32(e.cwnd, effectiveCwnd)
	}

	newSegs := 0
	for timeDiff(e.sndNxt, e.sndUna+effectiveCwnd) < 0 && len(e.sndQueue) > 0 {
		seg := e.sndQueue[0]
		e.sndQueue = e.sndQueue[1:]
		seg.conv = e.conv
		seg.cmd = cmdPush
		seg.sn = e.sndNxt
		seg.resendts = current
		seg.rto = e.rxRTO
		seg.fastack = 0
		seg.xmit = 0
		e.sndBuf = append(e.sndBuf, seg)
		e.sndNxt++
		newSegs++
	}

	resent := uint32(e.fastresend)
	if e.fastresend <= 0 {
		resent = ^uint32(0)
	}
	rtoMin := uint32(0)
	if e.mode == ModeNormal {
		rtoMin = e.rxRTO >> 3
	}

	var lost, change bool
	for i := range e.sndBuf {
		seg := &e.sndBuf[i]
		needSend := false

		if seg.xmit == 0 {
			needSend = true
			seg.rto = e.rxRTO
			seg.resendts = current + seg.rto + rtoMin
		} else if timeDiff(current, seg.resendts) >= 0 {
			needSend = true
			switch e.mode {
			case ModeNoDelay:
				seg.rto += e.rxRTO / 2
			case ModeFast:
				seg.rto += seg.rto / 2
			default:
				seg.rto += maxU32(seg.rto, e.rxRTO)
			}
			seg.resendts = current + seg.rto
			lost = true
		} else if seg.fastack >= resent && int32(seg.xmit) <= e.fastlimit {
			needSend = true
			seg.fastack = 0
			seg.resendts = current + seg.rto
			change = true
		}

		if !needSend {
			continue
		}

		seg.xmit++
		e.xmit++
		seg.ts = current
		seg.wnd = base.wnd
		seg.una = e.rcvNxt

		need := headerSize + len(seg.data)
		if used()+need > int(e.mtu) {
			emit()
		}
		ptr = seg.encode(ptr)
		ptr = ptr[copy(ptr, seg.data):]

		if seg.xmit >= e.deadLink {
			e.dead = true
		}
	}
	emit()

	e.decreaseCwnd(change, lost, effectiveCwnd, resent)
}

// Update drives the timer tick: flush pending data once ts_flush elapses
// (or immediately on the first call).
func (e *engine) Update(current uint32) {
	if !e.updated {
		e.updated = true
		e.tsFlush = current
	}

	slap := timeDiff(current, e.tsFlush)
	if slap >= 10000 || slap < -10000 {
		e.tsFlush = current
		slap = 0
	}
	if slap >= 0 {
		e.tsFlush += e.interval
		if timeDiff(current, e.tsFlush) >= 0 {
			e.tsFlush = current + e.interval
		}
		e.flush(current, false)
	}
}

// Check reports when Update should next be invoked, letting a caller
// schedule one delay task instead of polling at a fixed cadence.
func (e *engine) Check(current uint32) uint32 {
	if !e.updated {
		return current
	}

	tsFlush := e.tsFlush
	if timeDiff(current, tsFlush) >= 10000 || timeDiff(current, tsFlush) < -10000 {
		tsFlush = current
	}
	if timeDiff(current, tsFlush) >= 0 {
		return current
	}

	tmFlush := timeDiff(tsFlush, current)
	tmPacket := int32(0x7fffffff)
	for i := range e.sndBuf {
		diff := timeDiff(e.sndBuf[i].resendts, current)
		if diff <= 0 {
			return current
		}
		if diff < tmPacket {
			tmPacket = diff
		}
	}

	minimal := uint32(tmPacket)
	if tmPacket >= tmFlush {
		minimal = uint32(tmFlush)
	}
	if minimal >= e.interval {
		minimal = e.interval
	}
	return current + minimal
}

// WaitSnd reports how many segments are queued or in flight.
func (e *engine) WaitSnd() int {
	return len(e.sndQueue) + len(e.sndBuf)
}

// DeadLink reports whether a segment has been sent deadLink times (its first
// transmission included),
// the protocol's own notion of a broken underlying channel.
func (e *engine) DeadLink() bool {
	return e.dead
}
