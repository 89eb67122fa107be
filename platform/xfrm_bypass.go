//go:build linux

package platform

import (
	"net"
	"os"
	"syscall"
	"unsafe"

	"github.com/pkg/errors"
	"github.com/vishvananda/netlink"
	"github.com/vishvananda/netlink/nl"
)

const XFRM_POLICY_ALLOW = 0

// SetSocketBypass lets isakmp traffic on conn skip the ipsec policies it negotiates
func SetSocketBypass(conn net.PacketConn) error {
	sc, ok := conn.(syscall.Conn)
	if !ok {
		return errors.New("socket bypass needs a syscall.Conn")
	}
	raw, err := sc.SyscallConn()
	if err != nil {
		return errors.WithStack(err)
	}
	family := uint16(syscall.AF_INET)
	if addr, ok := conn.LocalAddr().(*net.UDPAddr); ok && addr.IP.To4() == nil && addr.IP != nil {
		family = syscall.AF_INET6
	}
	var serr error
	cerr := raw.Control(func(fd uintptr) {
		serr = bypass(int(fd), family)
	})
	if cerr != nil {
		return errors.WithStack(cerr)
	}
	return serr
}

func bypass(fd int, family uint16) error {
	policy := nl.XfrmUserpolicyInfo{}
	policy.Action = XFRM_POLICY_ALLOW
	policy.Sel.Family = family
	sol := syscall.SOL_IP
	ipsecPolicy := syscall.IP_XFRM_POLICY
	if family == syscall.AF_INET6 {
		sol = syscall.SOL_IPV6
		ipsecPolicy = syscall.IPV6_XFRM_POLICY
	}
	policy.Dir = uint8(netlink.XFRM_DIR_IN)
	if err := os.NewSyscallError("setsockopt", setsockopt(fd, sol, ipsecPolicy, unsafe.Pointer(&policy), policy.Len())); err != nil {
		return errors.WithStack(err)
	}
	policy.Dir = uint8(netlink.XFRM_DIR_OUT)
	return os.NewSyscallError("setsockopt", setsockopt(fd, sol, ipsecPolicy, unsafe.Pointer(&policy), policy.Len()))
}
