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
	"net"
)

// maxIOVec bounds how many pending buffers one batched syscall will ever
// carry, mirroring IOV_MAX/UIO_MAXIOV on every unix target this module
// supports.
const maxIOVec = 1024

// buffer is one queued outbound write: the payload, its destination (nil
// for TCP, or a UDP socket without a hard peer binding), and an optional
// per-buffer completion callback for UDP's per-packet semantics.
type buffer struct {
	data []byte
	addr net.Addr
	done func(error)
}

// bufferList is a snapshot of the waiting queue taken under lock, drained
// by repeated calls to send until empty or the socket would block. off is
// the TCP byte cursor into buffers[0]; UDP packets are always sent whole,
// so off is unused for Kind == UDP.
type bufferList struct {
	buffers []*buffer
	off     int
}

func newBufferList(items []*buffer) *bufferList {
	return &bufferList{buffers: items}
}

func (b *bufferList) empty() bool {
	return len(b.buffers) == 0
}

// completeFront fires the completion callback of buffers[0] (if any) and
// drops it, resetting the cursor for the new front buffer.
func (b *bufferList) completeFront(err error) {
	if len(b.buffers) == 0 {
		return
	}
	if b.buffers[0].done != nil {
		b.buffers[0].done(err)
	}
	b.buffers = b.buffers[1:]
	b.off = 0
}

// completeAll fires every remaining completion callback with err, used when
// a Socket closes with buffers still queued.
func (b *bufferList) completeAll(err error) {
	for _, buf := range b.buffers {
		if buf.done != nil {
			buf.done(err)
		}
	}
	b.buffers = nil
	b.off = 0
}
