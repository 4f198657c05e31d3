/*
 * MIT License
 *
 * Copyright (c) 2020 Nicolas JUHEL
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

// Package sockerr defines the Socket-layer error taxonomy: a small, closed
// set of error codes plus a free integer slot for application use, built on
// top of the coded-error hierarchy in the errors package.
package sockerr

import (
	liberr "github.com/nabbar/reactor/errors"
)

// Code is the Socket-layer error classification.
type Code uint16

const (
	// Success means no error; Socket operations do not normally allocate
	// an Error for this code, it exists so the enum is total.
	Success Code = iota
	// EOF means the peer closed the connection (TCP 0-byte read, ECONNRESET).
	EOF
	// Timeout means a connect, send, or KCP dead-link timeout elapsed.
	Timeout
	// Refused means the peer actively refused the connection (ECONNREFUSED).
	Refused
	// DNS means host resolution failed.
	DNS
	// Shutdown means the Socket was closed by a local, voluntary shutdown(reason) call.
	Shutdown
	// Other is every other OS/runtime error, carried as the parent error.
	Other Code = 0xFF
)

func (c Code) String() string {
	switch c {
	case Success:
		return "success"
	case EOF:
		return "eof"
	case Timeout:
		return "timeout"
	case Refused:
		return "refused"
	case DNS:
		return "dns"
	case Shutdown:
		return "shutdown"
	case Other:
		return "other"
	default:
		return "unknown"
	}
}

func init() {
	liberr.RegisterIdFctMessage(minErrCode, messages)
}

// minErrCode is the base of the code range this package registers into the
// shared errors package message table, chosen above the HTTP-like ranges
// other packages claim.
const minErrCode liberr.CodeError = 6000

func messages(code liberr.CodeError) string {
	switch Code(code - minErrCode) {
	case Success:
		return "success"
	case EOF:
		return "connection closed by peer"
	case Timeout:
		return "operation timed out"
	case Refused:
		return "connection refused"
	case DNS:
		return "dns resolution failed"
	case Shutdown:
		return "shutdown by local endpoint"
	default:
		return "socket error"
	}
}

// code turns a Socket-layer Code (plus an optional custom sub-code, added to
// the base so distinct custom values produce distinct registered codes) into
// the shared package's CodeError space.
func code(c Code, custom int) liberr.CodeError {
	return minErrCode + liberr.CodeError(c) + liberr.CodeError(custom)
}

// Exception is the Socket layer's error value: one of the fixed Code values,
// an optional custom application code, and an optional parent error (the
// underlying syscall or KCP error that caused it).
type Exception struct {
	err    liberr.Error
	code   Code
	custom int
}

// New builds an Exception for the given code, optionally wrapping parent
// errors (e.g. the underlying os.SyscallError). The message comes from the
// code table this package registered.
func New(c Code, parent ...error) *Exception {
	cod := code(c, 0)
	return &Exception{
		err:    liberr.NewSkip(1, cod.Uint16(), cod.Message(), parent...),
		code:   c,
		custom: 0,
	}
}

// NewCustom builds an Exception carrying an application-defined sub-code in
// addition to the fixed Code classification.
func NewCustom(c Code, custom int, parent ...error) *Exception {
	cod := code(c, custom)
	return &Exception{
		err:    liberr.NewSkip(1, cod.Uint16(), cod.Message(), parent...),
		code:   c,
		custom: custom,
	}
}

// Code returns the fixed Socket-layer classification of this Exception.
func (e *Exception) Code() Code {
	if e == nil {
		return Success
	}
	return e.code
}

// CustomCode returns the application-defined sub-code, or 0 if none was set.
func (e *Exception) CustomCode() int {
	if e == nil {
		return 0
	}
	return e.custom
}

// Reset clears an Exception back to the Success zero value, allowing a
// caller to reuse one exception slot across a Socket's lifetime.
func (e *Exception) Reset() {
	if e == nil {
		return
	}
	e.code = Success
	e.custom = 0
	e.err = nil
}

// Ok reports whether this Exception represents the absence of an error.
func (e *Exception) Ok() bool {
	return e == nil || e.code == Success
}

// HasCode reports whether this Exception, or any coded error wrapped
// anywhere in its parent chain, carries the classification c. Unlike Code
// it sees through layered Exceptions (a Timeout wrapping the Shutdown that
// interrupted it, say).
func (e *Exception) HasCode(c Code) bool {
	if e == nil {
		return c == Success
	}
	if e.code == c {
		return true
	}
	if e.err == nil {
		return false
	}
	return e.err.HasCode(code(c, 0))
}

// Trace returns the source location the Exception was raised at, for debug
// logging; empty when unavailable.
func (e *Exception) Trace() string {
	if e == nil || e.err == nil {
		return ""
	}
	return e.err.GetTrace()
}

// Unwrap exposes the underlying coded error, for use with errors.Is/As and
// the errors package's own inspection helpers.
func (e *Exception) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.err
}

func (e *Exception) Error() string {
	if e == nil || e.err == nil {
		return Success.String()
	}
	return e.err.Error()
}
