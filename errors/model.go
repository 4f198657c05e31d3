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

package errors

import (
	stderr "errors"
	"strings"
)

type err struct {
	code    CodeError
	message string
	frame   frame
	parents []error
}

func (e *err) Error() string {
	if len(e.parents) == 0 {
		return e.message
	}

	var b strings.Builder
	b.WriteString(e.message)
	for _, p := range e.parents {
		b.WriteString(": ")
		b.WriteString(p.Error())
	}
	return b.String()
}

func (e *err) Code() CodeError {
	return e.code
}

func (e *err) IsCode(code CodeError) bool {
	return e.code == code
}

func (e *err) HasCode(code CodeError) bool {
	if e.IsCode(code) {
		return true
	}
	for _, p := range e.parents {
		var pe Error
		if stderr.As(p, &pe) && pe.HasCode(code) {
			return true
		}
	}
	return false
}

func (e *err) GetTrace() string {
	return e.frame.String()
}

func (e *err) Unwrap() error {
	if len(e.parents) == 0 {
		return nil
	}
	return e.parents[0]
}
