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
	"path"
	"runtime"
	"strconv"
)

// frame is the creation site captured by New: just enough to answer "where
// did this error come from" in a log line, not a full stack.
type frame struct {
	file string
	line int
}

// captureFrame records the caller skip levels up, trimming the file path to
// its last two elements so log lines stay readable without leaking build
// roots.
func captureFrame(skip int) frame {
	_, file, line, ok := runtime.Caller(skip)
	if !ok {
		return frame{}
	}

	dir, base := path.Split(file)
	if dir != "" {
		base = path.Join(path.Base(path.Clean(dir)), base)
	}
	return frame{file: base, line: line}
}

func (f frame) String() string {
	if f.file == "" {
		return ""
	}
	return f.file + ":" + strconv.Itoa(f.line)
}
