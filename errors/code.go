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
	"sort"
	"strconv"
	"sync"
)

// CodeError is a numeric error classification. Each consumer package claims
// a contiguous range starting at its registered base (sockerr at 6000,
// poller at 6300) so codes stay unique process-wide without a central enum.
type CodeError uint16

// UnknownMessage is returned for a code no registered range covers.
const UnknownMessage = "unknown error"

// Message produces the text for one code of a registered range.
type Message func(code CodeError) string

type msgRange struct {
	base CodeError
	fct  Message
}

var (
	msgMu     sync.RWMutex
	msgRanges []msgRange
)

// RegisterIdFctMessage claims the code range starting at minCode for fct: a
// code belongs to the registered range with the greatest base not above it.
// Called from consumer package init functions.
func RegisterIdFctMessage(minCode CodeError, fct Message) {
	if fct == nil {
		return
	}

	msgMu.Lock()
	defer msgMu.Unlock()

	for i := range msgRanges {
		if msgRanges[i].base == minCode {
			msgRanges[i].fct = fct
			return
		}
	}
	msgRanges = append(msgRanges, msgRange{base: minCode, fct: fct})
	sort.Slice(msgRanges, func(i, j int) bool {
		return msgRanges[i].base < msgRanges[j].base
	})
}

// Uint16 returns the code as its underlying uint16.
func (c CodeError) Uint16() uint16 {
	return uint16(c)
}

// String returns the code as a decimal string.
func (c CodeError) String() string {
	return strconv.Itoa(int(c))
}

// Message resolves the code through the registered ranges, falling back to
// UnknownMessage for an unclaimed code or an empty result.
func (c CodeError) Message() string {
	msgMu.RLock()
	defer msgMu.RUnlock()

	for i := len(msgRanges) - 1; i >= 0; i-- {
		if msgRanges[i].base <= c {
			if m := msgRanges[i].fct(c); m != "" {
				return m
			}
			break
		}
	}
	return UnknownMessage
}
