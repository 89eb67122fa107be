package protocol

import (
	"fmt"
	"net"
)

// PolicyParams describes the traffic a phase 2 SA protects
type PolicyParams struct {
	Ini, Res         net.IP // tunnel endpoints
	IniPort, ResPort int
	IniNet, ResNet   *net.IPNet
	// upper layer protocol, 0 for any
	IpProtocolId    uint8
	IsTransportMode bool
}

// ClientIds returns IDci and IDcr for a quick mode exchange
func (p *PolicyParams) ClientIds() (ini, res *IdPayload) {
	ini = IdFromNetwork(p.IniNet, p.IpProtocolId, uint16(p.IniPort))
	res = IdFromNetwork(p.ResNet, p.IpProtocolId, uint16(p.ResPort))
	return
}

// PolicyFromIds builds the responder view of the peer's client ids
func PolicyFromIds(ini, res *IdPayload) (*PolicyParams, error) {
	iniNet, ok := ini.Network()
	if !ok {
		return nil, ErrF(ERR_UNSUPPORTED, "client id type %s", ini.IdType)
	}
	resNet, ok := res.Network()
	if !ok {
		return nil, ErrF(ERR_UNSUPPORTED, "client id type %s", res.IdType)
	}
	if ini.ProtocolId != res.ProtocolId {
		return nil, ErrF(ERR_UNSUPPORTED, "client id protocol mismatch %d != %d", ini.ProtocolId, res.ProtocolId)
	}
	return &PolicyParams{
		IniNet:       iniNet,
		ResNet:       resNet,
		IniPort:      int(ini.Port),
		ResPort:      int(res.Port),
		IpProtocolId: ini.ProtocolId,
	}, nil
}

func (p *PolicyParams) String() string {
	mode := "tunnel"
	if p.IsTransportMode {
		mode = "transport"
	}
	return fmt.Sprintf("%s %s:%d <=> %s:%d proto %d", mode, p.IniNet, p.IniPort, p.ResNet, p.ResPort, p.IpProtocolId)
}
