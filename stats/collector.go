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

package stats

import (
	"strconv"
	"sync"

	libpol "github.com/nabbar/reactor/poller"

	"github.com/prometheus/client_golang/prometheus"
)

// PoolCollector exposes a poller.Pool's per-member load ratio and fd count
// as prometheus gauges, labeled by member index.
type PoolCollector struct {
	pool      libpol.Pool
	descLoad  *prometheus.Desc
	descCount *prometheus.Desc
}

// NewPoolCollector builds a collector over pool; prefix namespaces the
// metric names (e.g. "reactor" yields reactor_poller_load_ratio).
func NewPoolCollector(prefix string, pool libpol.Pool, constLabels prometheus.Labels) *PoolCollector {
	return &PoolCollector{
		pool: pool,
		descLoad: prometheus.NewDesc(
			prometheus.BuildFQName(prefix, "poller", "load_ratio"),
			"Fraction of recent wall time the poller spent executing callbacks and tasks.",
			[]string{"poller"}, constLabels,
		),
		descCount: prometheus.NewDesc(
			prometheus.BuildFQName(prefix, "poller", "fd_count"),
			"Number of file descriptors currently registered with the poller.",
			[]string{"poller"}, constLabels,
		),
	}
}

func (c *PoolCollector) Describe(descs chan<- *prometheus.Desc) {
	descs <- c.descLoad
	descs <- c.descCount
}

func (c *PoolCollector) Collect(metrics chan<- prometheus.Metric) {
	idx := 0
	c.pool.ForEach(func(p libpol.Poller) {
		label := strconv.Itoa(idx)
		idx++

		metrics <- prometheus.MustNewConstMetric(c.descLoad, prometheus.GaugeValue, p.LoadRatio(), label)
		metrics <- prometheus.MustNewConstMetric(c.descCount, prometheus.GaugeValue, float64(p.FdCount()), label)
	})
}

// SpeedCollector exposes a set of named BytesSpeed counters: one gauge for
// the current rate, one counter for the lifetime total. Entries are added
// and removed as the connections they track come and go.
type SpeedCollector struct {
	mu        sync.Mutex
	entries   map[string]*BytesSpeed
	descSpeed *prometheus.Desc
	descTotal *prometheus.Desc
}

func NewSpeedCollector(prefix string, constLabels prometheus.Labels) *SpeedCollector {
	return &SpeedCollector{
		entries: make(map[string]*BytesSpeed),
		descSpeed: prometheus.NewDesc(
			prometheus.BuildFQName(prefix, "transfer", "bytes_per_second"),
			"Current transfer rate of the tracked connection.",
			[]string{"name"}, constLabels,
		),
		descTotal: prometheus.NewDesc(
			prometheus.BuildFQName(prefix, "transfer", "bytes_total"),
			"Lifetime byte count of the tracked connection.",
			[]string{"name"}, constLabels,
		),
	}
}

// Add registers s under name, replacing any previous entry with that name.
func (c *SpeedCollector) Add(name string, s *BytesSpeed) {
	c.mu.Lock()
	c.entries[name] = s
	c.mu.Unlock()
}

// Remove drops the entry registered under name, if any.
func (c *SpeedCollector) Remove(name string) {
	c.mu.Lock()
	delete(c.entries, name)
	c.mu.Unlock()
}

func (c *SpeedCollector) Describe(descs chan<- *prometheus.Desc) {
	descs <- c.descSpeed
	descs <- c.descTotal
}

func (c *SpeedCollector) Collect(metrics chan<- prometheus.Metric) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for name, s := range c.entries {
		metrics <- prometheus.MustNewConstMetric(c.descSpeed, prometheus.GaugeValue, float64(s.Speed()), name)
		metrics <- prometheus.MustNewConstMetric(c.descTotal, prometheus.CounterValue, float64(s.Total()), name)
	}
}
