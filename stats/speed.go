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

// Package stats carries the observability leaves of the toolkit: a rolling
// bytes-per-second counter attachable to a Socket's read/write path, and
// prometheus collectors exposing those counters plus per-poller load.
package stats

import (
	"sync"
	"time"
)

// speedRecomputeBytes forces a speed recomputation once this many bytes
// accumulate between reads, so a burst shows up without waiting a full
// sampling second.
const speedRecomputeBytes = 1024 * 1024

// speedSampleMin is the minimum age of a sample before Speed recomputes.
const speedSampleMin = time.Second

// BytesSpeed is a rolling bytes/s counter. All methods are safe for
// concurrent use, since a Socket's read and write paths may live on
// different pollers.
type BytesSpeed struct {
	mu    sync.Mutex
	speed uint64
	bytes uint64
	total uint64
	since time.Time
}

func NewBytesSpeed() *BytesSpeed {
	return &BytesSpeed{since: time.Now()}
}

// Add records n transferred bytes.
func (s *BytesSpeed) Add(n int) {
	if n <= 0 {
		return
	}

	s.mu.Lock()
	s.bytes += uint64(n)
	s.total += uint64(n)
	if s.bytes > speedRecomputeBytes {
		s.compute()
	}
	s.mu.Unlock()
}

// Speed returns the current transfer rate in bytes per second. Reads within
// one second of the last recomputation return the cached figure.
func (s *BytesSpeed) Speed() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	if time.Since(s.since) < speedSampleMin {
		return s.speed
	}
	return s.compute()
}

// Total returns the lifetime byte count.
func (s *BytesSpeed) Total() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total
}

// compute folds the accumulated bytes into a fresh rate and restarts the
// sampling window. Caller holds s.mu.
func (s *BytesSpeed) compute() uint64 {
	elapsed := time.Since(s.since)
	if elapsed <= 0 {
		return s.speed
	}

	s.speed = uint64(float64(s.bytes) / elapsed.Seconds())
	s.bytes = 0
	s.since = time.Now()
	return s.speed
}
