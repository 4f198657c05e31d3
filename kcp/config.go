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

package kcp

import (
	libdur "github.com/nabbar/reactor/duration"
)

// Config bundles every per-connection tunable SetMode/SetWindow/etc. expose
// individually, so a caller building a Transport from parsed configuration
// (file, env, flags) can apply it in one call instead of one Set per field.
type Config struct {
	Interval        libdur.Duration
	Mode            Mode
	SndWnd          int
	RcvWnd          int
	Mtu             int
	FastResend      int32
	FastLimit       int32
	NoCwnd          bool
	Stream          bool
	FastackConserve bool
	DeadLink        uint32
}

// DefaultConfig mirrors the engine's own zero-value defaults.
func DefaultConfig() Config {
	return Config{
		Interval:   libdur.ParseDuration(intervalDefault * 1_000_000), // ms to ns
		Mode:       ModeNormal,
		SndWnd:     sndWndDefault,
		RcvWnd:     rcvWndDefault,
		Mtu:        mtuDefault,
		FastResend: 0,
		FastLimit:  fastLimitDefault,
		DeadLink:   deadLinkDefault,
	}
}

// Apply pushes every field onto t in the order that lets later calls see
// earlier ones' effects (mode before window, since mode can move the
// minimum RTO window checks key off of).
func (c Config) Apply(t *Transport) error {
	t.SetMode(c.Mode)
	if c.Interval > 0 {
		t.SetInterval(uint32(c.Interval.Time().Milliseconds()))
	}
	t.SetWindow(c.SndWnd, c.RcvWnd)
	t.SetStream(c.Stream)
	t.SetFastResend(c.FastResend)
	if c.FastLimit > 0 {
		t.SetFastLimit(c.FastLimit)
	}
	t.SetNoCwnd(c.NoCwnd)
	t.SetFastackConserve(c.FastackConserve)
	if c.DeadLink > 0 {
		t.SetDeadLink(c.DeadLink)
	}
	if c.Mtu > 0 {
		return t.SetMtu(c.Mtu)
	}
	return nil
}
