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

package poller

import (
	liberr "github.com/nabbar/reactor/errors"
)

const minErrCode liberr.CodeError = 6300

const (
	codeClosed uint16 = iota + uint16(minErrCode)
	codeSyncDeadlock
	codeEventCBNil
	codeFdNotFound
	codeMultiplexerDead
)

func init() {
	liberr.RegisterIdFctMessage(minErrCode, messages)
}

func messages(code liberr.CodeError) string {
	switch uint16(code) {
	case codeClosed:
		return "poller is shut down"
	case codeSyncDeadlock:
		return "sync called from the poller's own loop goroutine"
	case codeEventCBNil:
		return "event callback is nil"
	case codeFdNotFound:
		return "fd not registered"
	case codeMultiplexerDead:
		return "multiplexer handle is dead"
	default:
		return "poller error"
	}
}

// ErrClosed is returned by AddEvent and ModifyEvent after Shutdown.
var ErrClosed = liberr.New(codeClosed, messages(liberr.CodeError(codeClosed)))

// ErrSyncDeadlock is the panic value of a Sync/SyncFirst call made from the
// Poller's own loop goroutine against itself.
var ErrSyncDeadlock = liberr.New(codeSyncDeadlock, messages(liberr.CodeError(codeSyncDeadlock)))

// ErrEventCBNil is returned by AddEvent when cb is nil.
var ErrEventCBNil = liberr.New(codeEventCBNil, messages(liberr.CodeError(codeEventCBNil)))

// ErrFdNotFound is returned by ModifyEvent/DelEvent for an unregistered fd.
var ErrFdNotFound = liberr.New(codeFdNotFound, messages(liberr.CodeError(codeFdNotFound)))

// ErrMultiplexerDead is logged when the multiplexer wait fails
// unrecoverably and the loop terminates.
var ErrMultiplexerDead = liberr.New(codeMultiplexerDead, messages(liberr.CodeError(codeMultiplexerDead)))
