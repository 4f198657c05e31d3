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

package errors_test

import (
	stderr "errors"
	"fmt"
	"strings"

	liberr "github.com/nabbar/reactor/errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// testCodeBase claims a range far from the ones the sockerr/poller tables
// register, so these specs never collide with the real consumers.
const testCodeBase liberr.CodeError = 60000

const (
	testCodeAlpha = testCodeBase
	testCodeBeta  = testCodeBase + 1
)

var _ = BeforeSuite(func() {
	liberr.RegisterIdFctMessage(testCodeBase, func(code liberr.CodeError) string {
		switch code {
		case testCodeAlpha:
			return "alpha failed"
		case testCodeBeta:
			return "beta failed"
		default:
			return ""
		}
	})
})

var _ = Describe("CodeError", func() {
	It("exposes its numeric value and decimal string", func() {
		Expect(testCodeAlpha.Uint16()).To(Equal(uint16(60000)))
		Expect(testCodeAlpha.String()).To(Equal("60000"))
	})

	It("resolves a registered code to its message", func() {
		Expect(testCodeAlpha.Message()).To(Equal("alpha failed"))
		Expect(testCodeBeta.Message()).To(Equal("beta failed"))
	})

	It("falls back to the unknown message outside every registered range", func() {
		Expect(liberr.CodeError(1).Message()).To(Equal(liberr.UnknownMessage))
	})

	It("falls back when the owning range returns an empty message", func() {
		Expect((testCodeBase + 500).Message()).To(Equal(liberr.UnknownMessage))
	})
})

var _ = Describe("Error", func() {
	It("carries its code and registered message", func() {
		e := liberr.New(testCodeAlpha.Uint16(), testCodeAlpha.Message())

		Expect(e.Code()).To(Equal(testCodeAlpha))
		Expect(e.IsCode(testCodeAlpha)).To(BeTrue())
		Expect(e.IsCode(testCodeBeta)).To(BeFalse())
		Expect(e.Error()).To(Equal("alpha failed"))
	})

	It("uses the registered message when none is given", func() {
		e := liberr.New(testCodeBeta.Uint16(), "")
		Expect(e.Error()).To(Equal("beta failed"))
	})

	It("renders its parent chain into the message", func() {
		root := stderr.New("disk on fire")
		e := liberr.New(testCodeAlpha.Uint16(), "", root)

		Expect(e.Error()).To(Equal("alpha failed: disk on fire"))
		Expect(stderr.Is(e, root)).To(BeTrue())
	})

	It("skips nil parents", func() {
		e := liberr.New(testCodeAlpha.Uint16(), "", nil, stderr.New("real"), nil)
		Expect(e.Error()).To(Equal("alpha failed: real"))
		Expect(e.Unwrap()).ToNot(BeNil())
	})

	It("finds a code anywhere in the parent chain with HasCode", func() {
		inner := liberr.New(testCodeBeta.Uint16(), "")
		outer := liberr.New(testCodeAlpha.Uint16(), "", fmt.Errorf("wrapped: %w", inner))

		Expect(outer.HasCode(testCodeAlpha)).To(BeTrue())
		Expect(outer.HasCode(testCodeBeta)).To(BeTrue())
		Expect(outer.HasCode(testCodeBase + 7)).To(BeFalse())
	})

	It("records the creation site in its trace", func() {
		e := liberr.New(testCodeAlpha.Uint16(), "")
		Expect(e.GetTrace()).To(ContainSubstring("errors_test.go:"))
		Expect(strings.Count(e.GetTrace(), ":")).To(Equal(1))
	})
})
