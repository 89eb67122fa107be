package ike

import (
	"bytes"
	"net"
	"strings"

	"github.com/pkg/errors"
)

func AddrToIp(addr net.Addr) net.IP {
	switch a := addr.(type) {
	case *net.UDPAddr:
		return a.IP
	case *net.IPAddr:
		return a.IP
	case *net.TCPAddr:
		return a.IP
	}
	return nil
}

func AddrToPort(addr net.Addr) int {
	if udp, ok := addr.(*net.UDPAddr); ok {
		return udp.Port
	}
	return 0
}

func FirstLastAddressToIPNet(start, end net.IP) *net.IPNet {
	l := len(start)
	if l != len(end) {
		return nil
	}
	// shortcut
	if bytes.Equal(start, end) {
		return &net.IPNet{IP: start, Mask: net.CIDRMask(l*8, l*8)}
	}
	mask := make([]byte, l)
	// This will only work if there are no holes in addresses given
	for idx := range start {
		mask[idx] = ^(end[idx] - start[idx])
	}
	return &net.IPNet{IP: start, Mask: mask}
}

func IPNetToFirstLastAddress(n *net.IPNet) (first, last net.IP, err error) {
	if len(n.IP) != len(n.Mask) {
		ip := n.IP.To4()
		if ip == nil || len(n.Mask) != net.IPv4len {
			return nil, nil, errors.Errorf("address and mask lengths differ: %s", n)
		}
		n = &net.IPNet{IP: ip, Mask: n.Mask}
	}
	first = make([]byte, len(n.IP))
	last = make([]byte, len(n.IP))
	for idx := range n.IP {
		first[idx] = n.IP[idx] & n.Mask[idx]
		last[idx] = (n.IP[idx] & n.Mask[idx]) | ^n.Mask[idx]
	}
	return
}

// ParseSelector accepts a cidr, a single address, or a first-last range
func ParseSelector(s string) (*net.IPNet, error) {
	if strings.Contains(s, "/") {
		_, n, err := net.ParseCIDR(s)
		return n, errors.Wrapf(err, "selector %s", s)
	}
	if parts := strings.SplitN(s, "-", 2); len(parts) == 2 {
		first, last := net.ParseIP(strings.TrimSpace(parts[0])), net.ParseIP(strings.TrimSpace(parts[1]))
		if first == nil || last == nil {
			return nil, errors.Errorf("bad selector range %s", s)
		}
		if f4, l4 := first.To4(), last.To4(); f4 != nil && l4 != nil {
			first, last = f4, l4
		}
		if n := FirstLastAddressToIPNet(first, last); n != nil {
			return n, nil
		}
		return nil, errors.Errorf("bad selector range %s", s)
	}
	ip := net.ParseIP(s)
	if ip == nil {
		return nil, errors.Errorf("bad selector %s", s)
	}
	if ip4 := ip.To4(); ip4 != nil {
		return &net.IPNet{IP: ip4, Mask: net.CIDRMask(32, 32)}, nil
	}
	return &net.IPNet{IP: ip, Mask: net.CIDRMask(128, 128)}, nil
}
