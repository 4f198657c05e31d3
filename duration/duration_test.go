/*
 * MIT License
 *
 * Copyright (c) 2023 Nicolas JUHEL
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

package duration_test

import (
	"encoding/json"

	libdur "github.com/nabbar/reactor/duration"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type StructExample struct {
	Value libdur.Duration `json:"value"`
}

var valueExample = StructExample{Value: libdur.Days(5) + libdur.Hours(23) + libdur.Minutes(15) + libdur.Seconds(13)}

func jsonDuration() []byte {
	return []byte(`{"value":"5d23h15m13s"}`)
}

var _ = Describe("duration", func() {
	Context("decoding value from json", func() {
		It("success when json decoding", func() {
			obj := StructExample{}
			err := json.Unmarshal(jsonDuration(), &obj)
			Expect(err).ToNot(HaveOccurred())
			Expect(obj.Value).To(Equal(valueExample.Value))
		})
	})

	Context("encoding value to json", func() {
		It("success when json encoding", func() {
			res, err := json.Marshal(&valueExample)
			Expect(err).ToNot(HaveOccurred())
			Expect(string(res)).To(Equal(string(jsonDuration())))
		})
	})

	Context("round-tripping the day notation through Parse/String", func() {
		It("parses a plain time.Duration string", func() {
			d, err := libdur.Parse("1h30m")
			Expect(err).ToNot(HaveOccurred())
			Expect(d).To(Equal(libdur.Hours(1) + libdur.Minutes(30)))
		})

		It("parses and reformats a day-qualified string", func() {
			d, err := libdur.Parse("5d23h15m13s")
			Expect(err).ToNot(HaveOccurred())
			Expect(d).To(Equal(valueExample.Value))
			Expect(d.String()).To(Equal("5d23h15m13s"))
		})

		It("parses a bare day count with no remainder", func() {
			d, err := libdur.Parse("2d")
			Expect(err).ToNot(HaveOccurred())
			Expect(d).To(Equal(libdur.Days(2)))
			Expect(d.String()).To(Equal("2d"))
		})

		It("rejects a malformed day prefix", func() {
			_, err := libdur.Parse("xd5s")
			Expect(err).To(HaveOccurred())
		})
	})
})
