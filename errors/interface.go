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

// Package errors is the coded-error foundation under the sockerr and poller
// error tables: each consumer package claims a CodeError range, registers a
// message function for it, and builds Error values carrying a code, a
// creation-site trace, and an optional parent chain. The surface is the set
// those two tables actually need — codes, registry, parents, trace — and
// nothing more.
package errors

// Error is a coded error: a CodeError classifying it, the message its
// code's registered Message function produced (or a caller override), the
// source location it was created at, and zero or more parent errors it
// wraps.
type Error interface {
	error

	// Code returns this error's own classification code.
	Code() CodeError

	// IsCode reports whether this error's own code equals code, ignoring
	// parents.
	IsCode(code CodeError) bool

	// HasCode reports whether this error or any error in its parent chain
	// carries code.
	HasCode(code CodeError) bool

	// GetTrace returns the "file:line" the error was created at.
	GetTrace() string

	// Unwrap returns the first parent, integrating the chain with the
	// standard library's errors.Is/errors.As walking.
	Unwrap() error
}

// New builds an Error for code. message overrides the registered message
// when non-empty; parent errors (nils skipped) become the wrapped chain.
// The trace records New's caller.
func New(code uint16, message string, parent ...error) Error {
	return build(1, code, message, parent)
}

// NewSkip is New for wrapper packages: skip extra frames are dropped so
// the trace points at the wrapper's own caller instead of the wrapper.
func NewSkip(skip int, code uint16, message string, parent ...error) Error {
	return build(1+skip, code, message, parent)
}

func build(skip int, code uint16, message string, parent []error) Error {
	c := CodeError(code)
	if message == "" {
		message = c.Message()
	}

	e := &err{
		code:    c,
		message: message,
		frame:   captureFrame(2 + skip),
	}
	for _, p := range parent {
		if p != nil {
			e.parents = append(e.parents, p)
		}
	}
	return e
}
