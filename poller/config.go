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
	libdur "github.com/nabbar/reactor/duration"
)

// Config reports the tunables a Poller's loop observes. MaxPollTimeout and
// LoadWindow mirror the package's compile-time bounds on the wait() call and
// the CPU-utilization sampling window respectively; they are surfaced here
// for logging/diagnostics rather than threaded into New, since both bound an
// already-verified event loop and every Pool member must agree on them to
// keep load figures comparable across pollers.
type Config struct {
	MaxPollTimeout libdur.Duration
	LoadWindow     libdur.Duration
}

// DefaultConfig reflects the values New actually runs with.
func DefaultConfig() Config {
	return Config{
		MaxPollTimeout: libdur.ParseDuration(maxPollTimeout),
		LoadWindow:     libdur.ParseDuration(loadWindow),
	}
}
