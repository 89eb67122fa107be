// Package capture records isakmp datagrams in pcap format
package capture

import (
	"io"
	"net"
	"sync"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	ike "github.com/msgboxio/ikev1"
	"github.com/msgboxio/ikev1/protocol"
	"github.com/pkg/errors"
)

const snapLen = protocol.MAX_PACKET_LEN + 64

// Conn is an ike.Conn that writes every datagram it moves to a pcap stream,
// framed as raw IP and UDP
type Conn struct {
	ike.Conn

	mtx    sync.Mutex
	w      *pcapgo.Writer
	now    func() time.Time
	logger log.Logger
}

// NewConn writes the pcap file header to out and wraps conn
func NewConn(conn ike.Conn, out io.Writer, logger log.Logger) (*Conn, error) {
	w := pcapgo.NewWriter(out)
	if err := w.WriteFileHeader(snapLen, layers.LinkTypeRaw); err != nil {
		return nil, errors.Wrap(err, "pcap header")
	}
	return &Conn{Conn: conn, w: w, now: time.Now, logger: logger}, nil
}

func (c *Conn) ReadPacket() (b []byte, remoteAddr net.Addr, localIP net.IP, err error) {
	b, remoteAddr, localIP, err = c.Conn.ReadPacket()
	if err != nil {
		return
	}
	local := c.Conn.LocalAddr()
	if localIP != nil {
		local = &net.UDPAddr{IP: localIP, Port: ike.AddrToPort(local)}
	}
	c.record(remoteAddr, local, b)
	return
}

func (c *Conn) WritePacket(reply []byte, remoteAddr net.Addr) error {
	if err := c.Conn.WritePacket(reply, remoteAddr); err != nil {
		return err
	}
	c.record(c.Conn.LocalAddr(), remoteAddr, reply)
	return nil
}

// record failures are logged; the datagram itself was already handled
func (c *Conn) record(src, dst net.Addr, payload []byte) {
	frame, err := Frame(src, dst, payload)
	if err != nil {
		level.Warn(c.logger).Log("msg", "datagram not captured", "err", err)
		return
	}
	c.mtx.Lock()
	defer c.mtx.Unlock()
	err = c.w.WritePacket(gopacket.CaptureInfo{
		Timestamp:     c.now(),
		CaptureLength: len(frame),
		Length:        len(frame),
	}, frame)
	if err != nil {
		level.Warn(c.logger).Log("msg", "datagram not captured", "err", err)
	}
}

// Frame builds the IP and UDP headers of a datagram between src and dst.
// Unspecified addresses take the family of the other end
func Frame(src, dst net.Addr, payload []byte) ([]byte, error) {
	srcIP, dstIP := ike.AddrToIp(src), ike.AddrToIp(dst)
	if srcIP == nil || dstIP == nil {
		return nil, errors.Errorf("not an ip endpoint: %v -> %v", src, dst)
	}
	v4 := dstIP.To4() != nil
	if dstIP.IsUnspecified() {
		v4 = srcIP.To4() != nil
	}
	udp := &layers.UDP{
		SrcPort: layers.UDPPort(ike.AddrToPort(src)),
		DstPort: layers.UDPPort(ike.AddrToPort(dst)),
	}
	var network gopacket.SerializableLayer
	if v4 {
		ip := &layers.IPv4{
			Version:  4,
			TTL:      64,
			Protocol: layers.IPProtocolUDP,
			SrcIP:    family(srcIP, true),
			DstIP:    family(dstIP, true),
		}
		udp.SetNetworkLayerForChecksum(ip)
		network = ip
	} else {
		ip := &layers.IPv6{
			Version:    6,
			HopLimit:   64,
			NextHeader: layers.IPProtocolUDP,
			SrcIP:      family(srcIP, false),
			DstIP:      family(dstIP, false),
		}
		udp.SetNetworkLayerForChecksum(ip)
		network = ip
	}
	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	if err := gopacket.SerializeLayers(buf, opts, network, udp, gopacket.Payload(payload)); err != nil {
		return nil, errors.Wrap(err, "serialize")
	}
	return buf.Bytes(), nil
}

func family(ip net.IP, v4 bool) net.IP {
	if v4 {
		if ip4 := ip.To4(); ip4 != nil {
			return ip4
		}
		return net.IPv4zero.To4()
	}
	if ip.To4() != nil && !ip.IsUnspecified() {
		return ip.To16()
	}
	if ip.IsUnspecified() {
		return net.IPv6unspecified
	}
	return ip
}
