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
	"runtime"

	liblog "github.com/nabbar/reactor/logger"
)

// Pool runs a fixed set of Pollers, one loop goroutine each, and spreads
// work across them by runtime load rather than round-robin.
type Pool interface {
	// GetPoller returns the current-thread Poller if preferCurrent is true
	// and the caller already runs on one of the pool's loop goroutines;
	// otherwise it returns the least-loaded member.
	GetPoller(preferCurrent bool) Poller

	// GetFirstPoller returns the pool's first Poller, for callers that only
	// need a single fixed affinity (e.g. a process-wide timer Socket).
	GetFirstPoller() Poller

	// ForEach invokes fn once per Poller in the pool, in index order.
	ForEach(fn func(Poller))

	// Shutdown stops every Poller in the pool and waits for their loops to
	// exit.
	Shutdown()
}

type pool struct {
	members []*poller
}

// NewPool starts size Pollers (size <= 0 defaults to runtime.NumCPU()).
func NewPool(size int, log liblog.Logger) (Pool, error) {
	if size <= 0 {
		size = runtime.NumCPU()
	}

	p := &pool{members: make([]*poller, 0, size)}

	for i := 0; i < size; i++ {
		np, e := New(log)
		if e != nil {
			p.Shutdown()
			return nil, e
		}
		p.members = append(p.members, np.(*poller))
	}

	return p, nil
}

func (p *pool) GetFirstPoller() Poller {
	if len(p.members) == 0 {
		return nil
	}
	return p.members[0]
}

func (p *pool) GetPoller(preferCurrent bool) Poller {
	if preferCurrent {
		if cur, ok := currentPoller().(*poller); ok && cur != nil {
			for _, m := range p.members {
				if m == cur {
					return cur
				}
			}
		}
	}

	var best *poller
	bestLoad := -1.0

	for _, m := range p.members {
		l := m.loadRatio()
		if best == nil || l < bestLoad {
			best = m
			bestLoad = l
		}
	}

	return best
}

func (p *pool) ForEach(fn func(Poller)) {
	for _, m := range p.members {
		fn(m)
	}
}

func (p *pool) Shutdown() {
	for _, m := range p.members {
		m.Shutdown()
	}
}
