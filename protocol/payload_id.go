package protocol

import (
	"net"

	"github.com/msgboxio/packets"
)

func (s *IdPayload) Type() PayloadType {
	return PayloadTypeID
}

func (s *IdPayload) Encode() (b []byte) {
	b = make([]byte, 4)
	packets.WriteB8(b, 0, uint8(s.IdType))
	packets.WriteB8(b, 1, s.ProtocolId)
	packets.WriteB16(b, 2, s.Port)
	return append(b, s.Data...)
}

func (s *IdPayload) Decode(b []byte) error {
	if len(b) < 4 {
		return ErrF(ERR_INVALID_SYNTAX, "id too small %d < %d", len(b), 4)
	}
	// Header has already been decoded
	idt, _ := packets.ReadB8(b, 0)
	s.IdType = IdType(idt)
	s.ProtocolId, _ = packets.ReadB8(b, 1)
	s.Port, _ = packets.ReadB16(b, 2)
	s.Data = append([]byte{}, b[4:]...)
	switch s.IdType {
	case ID_IPV4_ADDR:
		if len(s.Data) != net.IPv4len {
			return ErrF(ERR_INVALID_SYNTAX, "ipv4 id length %d", len(s.Data))
		}
	case ID_IPV4_ADDR_SUBNET, ID_IPV4_ADDR_RANGE:
		if len(s.Data) != 2*net.IPv4len {
			return ErrF(ERR_INVALID_SYNTAX, "ipv4 subnet id length %d", len(s.Data))
		}
	case ID_IPV6_ADDR:
		if len(s.Data) != net.IPv6len {
			return ErrF(ERR_INVALID_SYNTAX, "ipv6 id length %d", len(s.Data))
		}
	case ID_IPV6_ADDR_SUBNET, ID_IPV6_ADDR_RANGE:
		if len(s.Data) != 2*net.IPv6len {
			return ErrF(ERR_INVALID_SYNTAX, "ipv6 subnet id length %d", len(s.Data))
		}
	}
	return nil
}

// IdFromAddress builds an address identity
func IdFromAddress(ip net.IP) *IdPayload {
	id := &IdPayload{PayloadHeader: &PayloadHeader{}, IdType: ID_IPV6_ADDR, Data: ip.To16()}
	if ip4 := ip.To4(); ip4 != nil {
		id.IdType = ID_IPV4_ADDR
		id.Data = ip4
	}
	return id
}

// IdFromNetwork builds a subnet identity, as used for quick mode client ids
func IdFromNetwork(n *net.IPNet, proto uint8, port uint16) *IdPayload {
	id := &IdPayload{PayloadHeader: &PayloadHeader{}, ProtocolId: proto, Port: port}
	if ip4 := n.IP.To4(); ip4 != nil {
		id.IdType = ID_IPV4_ADDR_SUBNET
		mask := n.Mask
		if len(mask) == net.IPv6len {
			mask = mask[12:]
		}
		id.Data = append(append([]byte{}, ip4...), mask...)
		return id
	}
	id.IdType = ID_IPV6_ADDR_SUBNET
	id.Data = append(append([]byte{}, n.IP.To16()...), n.Mask...)
	return id
}

// Network returns the address or subnet an id names
func (s *IdPayload) Network() (*net.IPNet, bool) {
	switch s.IdType {
	case ID_IPV4_ADDR:
		return &net.IPNet{IP: net.IP(s.Data), Mask: net.CIDRMask(32, 32)}, true
	case ID_IPV6_ADDR:
		return &net.IPNet{IP: net.IP(s.Data), Mask: net.CIDRMask(128, 128)}, true
	case ID_IPV4_ADDR_SUBNET:
		return &net.IPNet{IP: net.IP(s.Data[:4]), Mask: net.IPMask(s.Data[4:])}, true
	case ID_IPV6_ADDR_SUBNET:
		return &net.IPNet{IP: net.IP(s.Data[:16]), Mask: net.IPMask(s.Data[16:])}, true
	}
	return nil, false
}
