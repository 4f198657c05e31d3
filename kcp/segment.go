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

import "encoding/binary"

// Packet command codes.
const (
	cmdPush uint8 = 81 // data
	cmdAck  uint8 = 82 // acknowledgement
	cmdWask uint8 = 83 // window probe ask
	cmdWins uint8 = 84 // window size tell
)

const (
	askSend = 1 // need to send cmdWask
	askTell = 2 // need to send cmdWins
)

// headerSize is the wire size of one segment header: conv, cmd, frg, wnd,
// ts, sn, una, len — all big-endian, no implicit padding.
const headerSize = 24

// segment is one KCP packet: the header plus its payload. Segments sitting
// in snd_buf additionally carry retransmission bookkeeping (resendts, rto,
// fastack, xmit); segments elsewhere leave those at zero.
type segment struct {
	conv uint32
	cmd  uint8
	frg  uint8
	wnd  uint16
	ts   uint32
	sn   uint32
	una  uint32
	data []byte

	resendts uint32
	rto      uint32
	fastack  uint32
	xmit     uint32
}

// encode writes the segment header (not the payload) into b, returning the
// slice past the header. Callers append data themselves so the scratch
// buffer can coalesce header+payload without an extra copy.
func (s *segment) encode(b []byte) []byte {
	binary.BigEndian.PutUint32(b[0:4], s.conv)
	b[4] = s.cmd
	b[5] = s.frg
	binary.BigEndian.PutUint16(b[6:8], s.wnd)
	binary.BigEndian.PutUint32(b[8:12], s.ts)
	binary.BigEndian.PutUint32(b[12:16], s.sn)
	binary.BigEndian.PutUint32(b[16:20], s.una)
	binary.BigEndian.PutUint32(b[20:24], uint32(len(s.data)))
	return b[headerSize:]
}

// header is one decoded segment header, returned by decodeHeader ahead of
// slicing off its payload.
type header struct {
	conv uint32
	cmd  uint8
	frg  uint8
	wnd  uint16
	ts   uint32
	sn   uint32
	una  uint32
	length uint32
}

// decodeHeader parses one header off the front of data, returning the
// remaining bytes (payload + any following packets). ok is false if data is
// shorter than headerSize.
func decodeHeader(data []byte) (h header, rest []byte, ok bool) {
	if len(data) < headerSize {
		return header{}, data, false
	}
	h.conv = binary.BigEndian.Uint32(data[0:4])
	h.cmd = data[4]
	h.frg = data[5]
	h.wnd = binary.BigEndian.Uint16(data[6:8])
	h.ts = binary.BigEndian.Uint32(data[8:12])
	h.sn = binary.BigEndian.Uint32(data[12:16])
	h.una = binary.BigEndian.Uint32(data[16:20])
	h.length = binary.BigEndian.Uint32(data[20:24])
	return h, data[headerSize:], true
}

func timeDiff(later, earlier uint32) int32 {
	return int32(later - earlier)
}

func minU32(a, b uint32) uint32 {
	if a < b {
		return a
	}
	return b
}

func maxU32(a, b uint32) uint32 {
	if a > b {
		return a
	}
	return b
}

func boundU32(lower, v, upper uint32) uint32 {
	return minU32(maxU32(lower, v), upper)
}
