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
	libdur "github.com/nabbar/reactor/duration"
)

// Config bundles the timeouts a caller otherwise has to pass as bare
// time.Duration values at each call site: ConnectTimeout feeds Connect's
// timeout argument, SendTimeout is applied via SetSendTimeout.
type Config struct {
	ConnectTimeout libdur.Duration
	SendTimeout    libdur.Duration
}

// DefaultConfig mirrors the package's own fallbacks (Connect's 5s default
// and defaultSendTimeout) so a zero-value caller observes the same
// behavior whether or not it builds a Config.
func DefaultConfig() Config {
	return Config{
		ConnectTimeout: libdur.Seconds(5),
		SendTimeout:    libdur.ParseDuration(defaultSendTimeout),
	}
}

// Apply pushes SendTimeout onto s; ConnectTimeout has no persistent state to
// set ahead of time and is instead passed directly to Connect.
func (c Config) Apply(s Socket) {
	s.SetSendTimeout(c.SendTimeout.Time())
}
