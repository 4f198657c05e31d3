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
	"net"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// dnsTTL is how long a resolved host stays in the process-wide cache
// consulted ahead of every TCP connect.
const dnsTTL = 60 * time.Second

type dnsEntry struct {
	ips     []net.IP
	expires time.Time
}

var (
	dnsMu    sync.Mutex
	dnsCache = map[string]dnsEntry{}
)

// resolveHost resolves host to an IP, consulting and refreshing the shared
// 60-second cache. A literal IP short-circuits the cache entirely.
func resolveHost(host string) (net.IP, error) {
	if ip := net.ParseIP(host); ip != nil {
		return ip, nil
	}

	dnsMu.Lock()
	e, ok := dnsCache[host]
	dnsMu.Unlock()

	if ok && time.Now().Before(e.expires) && len(e.ips) > 0 {
		return e.ips[0], nil
	}

	ips, err := net.LookupIP(host)
	if err != nil {
		return nil, errors.Wrap(err, "lookup "+host)
	}
	if len(ips) == 0 {
		return nil, errors.New("lookup " + host + ": no addresses")
	}

	dnsMu.Lock()
	dnsCache[host] = dnsEntry{ips: ips, expires: time.Now().Add(dnsTTL)}
	dnsMu.Unlock()

	return ips[0], nil
}
