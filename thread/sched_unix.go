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

//go:build unix && !linux

package thread

import (
	"golang.org/x/sys/unix"
)

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

// setThreadPriority adjusts the whole process's nice level: the BSDs expose
// no per-thread Setpriority through portable syscalls, matching the
// original's own fallback on non-Linux targets.
func setThreadPriority(p Priority) error {
	return unix.Setpriority(unix.PRIO_PROCESS, 0, niceValue(p))
}

// setThreadAffinity is a no-op off Linux; the affinity syscall family is
// Linux-specific.
func setThreadAffinity(_ []int) error {
	return nil
}
