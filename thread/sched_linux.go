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

package thread

import (
	"golang.org/x/sys/unix"
)

// niceValue maps the portable Priority scale onto Linux nice levels. The
// negative levels require CAP_SYS_NICE; Setpriority then fails with EACCES
// and the caller logs it as best effort.
func niceValue(p Priority) int {
	switch p {
	case PriorityLowest:
		return 19
	case PriorityLow:
		return 10
	case PriorityHigh:
		return -10
	case PriorityHighest:
		return -19
	default:
		return 0
	}
}

// setThreadPriority adjusts the calling thread's nice level. The caller must
// hold runtime.LockOSThread so the tid stays bound to this goroutine.
func setThreadPriority(p Priority) error {
	return unix.Setpriority(unix.PRIO_PROCESS, unix.Gettid(), niceValue(p))
}

// setThreadAffinity pins the calling thread to the given CPU set. Same
// LockOSThread requirement as setThreadPriority.
func setThreadAffinity(cpus []int) error {
	var set unix.CPUSet
	set.Zero()
	for _, c := range cpus {
		set.Set(c)
	}
	return unix.SchedSetaffinity(0, &set)
}
