package ike

import (
	"io"
	"net"
	"os"
	"runtime"
	"syscall"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/msgboxio/ikev1/platform"
	"github.com/msgboxio/ikev1/protocol"
	"github.com/pkg/errors"
	"golang.org/x/net/ipv4"
	"golang.org/x/net/ipv6"
)

// Conn is the datagram transport of the engine
type Conn interface {
	ReadPacket() (b []byte, remoteAddr net.Addr, localIP net.IP, err error)
	WritePacket(reply []byte, remoteAddr net.Addr) error
	LocalAddr() net.Addr
	Close() error
}

type pconnV4 struct {
	*ipv4.PacketConn
	udp    net.PacketConn
	logger log.Logger
}

func (p *pconnV4) Close() error        { return p.udp.Close() }
func (p *pconnV4) LocalAddr() net.Addr { return p.udp.LocalAddr() }

type pconnV6 struct {
	*ipv6.PacketConn
	udp    net.PacketConn
	logger log.Logger
}

func (p *pconnV6) Close() error        { return p.udp.Close() }
func (p *pconnV6) LocalAddr() net.Addr { return p.udp.LocalAddr() }

var ErrorUdpOnly = errors.New("only udp is supported for now")

// normally, if we bind on dual stack address
// on mac, receiving from v4 addresses does not give remote address
func checkV4onX(address string) (bool, error) {
	if runtime.GOOS != "darwin" {
		return false, nil
	}
	addr, err := net.ResolveUDPAddr("udp4", address)
	if err != nil {
		return false, err
	}
	return addr.IP.To4() != nil, nil
}

// Listen opens the isakmp socket, asking for the destination address of each datagram
func Listen(network, address string, logger log.Logger) (Conn, error) {
	isV4, err := checkV4onX(address)
	if err != nil {
		return nil, err
	}
	if isV4 {
		return listenUDP4(address, logger)
	}
	switch network {
	case "udp4":
		return listenUDP4(address, logger)
	case "udp6", "udp":
		return listenUDP6(address, logger)
	}
	return nil, ErrorUdpOnly
}

func listenUDP4(localString string, logger log.Logger) (*pconnV4, error) {
	udp, err := net.ListenPacket("udp4", localString)
	if err != nil {
		return nil, errors.Wrap(err, "listen")
	}
	p := ipv4.NewPacketConn(udp)
	// the socket may be bound to any(0.0.0.0);
	// the exact address the packet came on is needed for the policy
	cf := ipv4.FlagTTL | ipv4.FlagSrc | ipv4.FlagDst | ipv4.FlagInterface
	if err := p.SetControlMessage(cf, true); err != nil {
		if protocolNotSupported(err) {
			level.Warn(logger).Log("msg", "udp destination address detection not supported", "os", runtime.GOOS)
		} else {
			udp.Close()
			return nil, errors.Wrap(err, "control message")
		}
	}
	if err := platform.SetSocketBypass(udp); err != nil {
		level.Warn(logger).Log("msg", "isakmp socket not exempt from ipsec policy", "err", err)
	}
	level.Info(logger).Log("msg", "socket listening", "addr", udp.LocalAddr())
	return &pconnV4{PacketConn: p, udp: udp, logger: logger}, nil
}

func listenUDP6(localString string, logger log.Logger) (*pconnV6, error) {
	udp, err := net.ListenPacket("udp", localString)
	if err != nil {
		return nil, errors.Wrap(err, "listen")
	}
	p := ipv6.NewPacketConn(udp)
	cf := ipv6.FlagSrc | ipv6.FlagDst | ipv6.FlagInterface
	if err := p.SetControlMessage(cf, true); err != nil {
		if protocolNotSupported(err) {
			level.Warn(logger).Log("msg", "udp destination address detection not supported", "os", runtime.GOOS)
		} else {
			udp.Close()
			return nil, errors.Wrap(err, "control message")
		}
	}
	if err := platform.SetSocketBypass(udp); err != nil {
		level.Warn(logger).Log("msg", "isakmp socket not exempt from ipsec policy", "err", err)
	}
	level.Info(logger).Log("msg", "socket listening", "addr", udp.LocalAddr())
	return &pconnV6{PacketConn: p, udp: udp, logger: logger}, nil
}

func (p *pconnV4) ReadPacket() (b []byte, remoteAddr net.Addr, localIP net.IP, err error) {
	b = make([]byte, protocol.MAX_PACKET_LEN)
	n, cm, remoteAddr, err := p.ReadFrom(b)
	if err != nil {
		return nil, nil, nil, err
	}
	b = b[:n]
	if cm != nil {
		localIP = cm.Dst
	}
	level.Debug(p.logger).Log("rx", n, "from", remoteAddr)
	return
}

func (p *pconnV6) ReadPacket() (b []byte, remoteAddr net.Addr, localIP net.IP, err error) {
	b = make([]byte, protocol.MAX_PACKET_LEN)
	n, cm, remoteAddr, err := p.ReadFrom(b)
	if err != nil {
		return nil, nil, nil, err
	}
	b = b[:n]
	if cm != nil { // nil on mac
		localIP = cm.Dst
	}
	level.Debug(p.logger).Log("rx", n, "from", remoteAddr)
	return
}

func (p *pconnV4) WritePacket(reply []byte, remoteAddr net.Addr) error {
	n, err := p.WriteTo(reply, nil, remoteAddr)
	if err != nil {
		return err
	} else if n != len(reply) {
		return io.ErrShortWrite
	}
	level.Debug(p.logger).Log("tx", n, "to", remoteAddr)
	return nil
}

func (p *pconnV6) WritePacket(reply []byte, remoteAddr net.Addr) error {
	n, err := p.WriteTo(reply, nil, remoteAddr)
	if err != nil {
		return err
	} else if n != len(reply) {
		return io.ErrShortWrite
	}
	level.Debug(p.logger).Log("tx", n, "to", remoteAddr)
	return nil
}

// ReadMessage reads an isakmp message from the connection.
// Connection errors are returned, malformed datagrams are logged and skipped
func ReadMessage(conn Conn, logger log.Logger) (*Message, error) {
	for {
		b, remoteAddr, localIP, err := conn.ReadPacket()
		if err != nil {
			return nil, err
		}
		msg, err := DecodeMessage(b, logger)
		if err != nil {
			level.Warn(logger).Log("msg", "dropping datagram", "from", remoteAddr, "err", err)
			continue
		}
		msg.RemoteAddr = remoteAddr
		msg.LocalAddr = conn.LocalAddr()
		if localIP != nil {
			if udp, ok := msg.LocalAddr.(*net.UDPAddr); ok {
				msg.LocalAddr = &net.UDPAddr{IP: localIP, Port: udp.Port}
			}
		}
		return msg, nil
	}
}

// copied from golang.org/x/net/internal/nettest
func protocolNotSupported(err error) bool {
	switch err := err.(type) {
	case syscall.Errno:
		switch err {
		case syscall.EPROTONOSUPPORT, syscall.ENOPROTOOPT:
			return true
		}
	case *os.SyscallError:
		switch err := err.Err.(type) {
		case syscall.Errno:
			switch err {
			case syscall.EPROTONOSUPPORT, syscall.ENOPROTOOPT:
				return true
			}
		}
	}
	return false
}
