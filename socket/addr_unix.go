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

//go:build unix

package socket

import (
	"fmt"
	"net"

	"golang.org/x/sys/unix"
)

// toSockaddr builds a kernel sockaddr from a net.Addr: a nil IP becomes
// 0.0.0.0, an address with an IPv4 form becomes a SockaddrInet4 and any
// other a SockaddrInet6. No IPv4-in-IPv6 mapping is done.
func toSockaddr(addr net.Addr) (unix.Sockaddr, error) {
	var ip net.IP
	var port int

	switch a := addr.(type) {
	case *net.TCPAddr:
		ip, port = a.IP, a.Port
	case *net.UDPAddr:
		ip, port = a.IP, a.Port
	default:
		return nil, fmt.Errorf("socket: unsupported address type %T", addr)
	}

	if ip == nil {
		ip = net.IPv4zero
	}

	if v4 := ip.To4(); v4 != nil {
		sa := &unix.SockaddrInet4{Port: port}
		copy(sa.Addr[:], v4)
		return sa, nil
	}

	sa := &unix.SockaddrInet6{Port: port}
	copy(sa.Addr[:], ip.To16())
	return sa, nil
}

// fromSockaddr is toSockaddr's inverse, used to turn recvfrom's peer
// address into the net.Addr handed to OnRead.
func fromSockaddr(sa unix.Sockaddr, udp bool) net.Addr {
	var ip net.IP
	var port int

	switch a := sa.(type) {
	case *unix.SockaddrInet4:
		ip = net.IP(a.Addr[:])
		port = a.Port
	case *unix.SockaddrInet6:
		ip = net.IP(a.Addr[:])
		port = a.Port
	default:
		return nil
	}

	if udp {
		return &net.UDPAddr{IP: ip, Port: port}
	}
	return &net.TCPAddr{IP: ip, Port: port}
}

func resolveLocal(ip string, port uint16) (unix.Sockaddr, int, error) {
	parsed := net.ParseIP(ip)
	if ip == "" {
		parsed = net.IPv4zero
	}
	if parsed == nil {
		return nil, 0, fmt.Errorf("socket: invalid local ip %q", ip)
	}

	domain := unix.AF_INET
	if parsed.To4() == nil {
		domain = unix.AF_INET6
	}

	if domain == unix.AF_INET {
		sa := &unix.SockaddrInet4{Port: int(port)}
		copy(sa.Addr[:], parsed.To4())
		return sa, domain, nil
	}

	sa := &unix.SockaddrInet6{Port: int(port)}
	copy(sa.Addr[:], parsed.To16())
	return sa, domain, nil
}
