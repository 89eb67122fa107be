package capture

import (
	"bytes"
	"net"
	"testing"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubConn struct {
	local   net.Addr
	in      []byte
	from    net.Addr
	localIP net.IP
	sent    [][]byte
}

func (s *stubConn) ReadPacket() ([]byte, net.Addr, net.IP, error) {
	return s.in, s.from, s.localIP, nil
}

func (s *stubConn) WritePacket(b []byte, remote net.Addr) error {
	s.sent = append(s.sent, b)
	return nil
}

func (s *stubConn) LocalAddr() net.Addr { return s.local }
func (s *stubConn) Close() error        { return nil }

func udpOf(t *testing.T, data []byte, first gopacket.LayerType) (*layers.UDP, gopacket.Packet) {
	pkt := gopacket.NewPacket(data, first, gopacket.Default)
	l := pkt.Layer(layers.LayerTypeUDP)
	require.NotNil(t, l, "no udp layer")
	return l.(*layers.UDP), pkt
}

func TestCaptureConn(t *testing.T) {
	inner := &stubConn{
		local:   &net.UDPAddr{IP: net.IPv4zero, Port: 500},
		in:      []byte("request"),
		from:    &net.UDPAddr{IP: net.ParseIP("10.0.0.2"), Port: 4500},
		localIP: net.ParseIP("10.0.0.1"),
	}
	var out bytes.Buffer
	c, err := NewConn(inner, &out, log.NewNopLogger())
	require.NoError(t, err)
	c.now = func() time.Time { return time.Unix(1000, 0) }

	b, from, _, err := c.ReadPacket()
	require.NoError(t, err)
	assert.Equal(t, inner.in, b)
	require.NoError(t, c.WritePacket([]byte("reply"), from))
	assert.Len(t, inner.sent, 1)

	r, err := pcapgo.NewReader(&out)
	require.NoError(t, err)
	assert.Equal(t, layers.LinkTypeRaw, r.LinkType())

	data, ci, err := r.ReadPacketData()
	require.NoError(t, err)
	assert.Equal(t, int64(1000), ci.Timestamp.Unix())
	udp, pkt := udpOf(t, data, layers.LayerTypeIPv4)
	ip := pkt.Layer(layers.LayerTypeIPv4).(*layers.IPv4)
	assert.Equal(t, "10.0.0.2", ip.SrcIP.String())
	assert.Equal(t, "10.0.0.1", ip.DstIP.String(), "destination from the control message")
	assert.Equal(t, layers.UDPPort(4500), udp.SrcPort)
	assert.Equal(t, layers.UDPPort(500), udp.DstPort)
	assert.Equal(t, []byte("request"), udp.Payload)

	data, _, err = r.ReadPacketData()
	require.NoError(t, err)
	udp, pkt = udpOf(t, data, layers.LayerTypeIPv4)
	ip = pkt.Layer(layers.LayerTypeIPv4).(*layers.IPv4)
	assert.Equal(t, "0.0.0.0", ip.SrcIP.String())
	assert.Equal(t, []byte("reply"), udp.Payload)
}

func TestFrameIPv6(t *testing.T) {
	src := &net.UDPAddr{IP: net.IPv6unspecified, Port: 500}
	dst := &net.UDPAddr{IP: net.ParseIP("2001:db8::2"), Port: 500}
	frame, err := Frame(src, dst, []byte("isakmp"))
	require.NoError(t, err)
	udp, pkt := udpOf(t, frame, layers.LayerTypeIPv6)
	ip := pkt.Layer(layers.LayerTypeIPv6).(*layers.IPv6)
	assert.Equal(t, "2001:db8::2", ip.DstIP.String())
	assert.Equal(t, "::", ip.SrcIP.String())
	assert.Equal(t, []byte("isakmp"), udp.Payload)

	_, err = Frame(&net.IPAddr{}, nil, nil)
	assert.Error(t, err)
}
