package protocol

import (
	"github.com/msgboxio/packets"
)

func (s *DeletePayload) Type() PayloadType {
	return PayloadTypeD
}

func (s *DeletePayload) Validate() error {
	if len(s.Spis) == 0 {
		return ErrF(ERR_PAYLOAD_MALFORMED, "delete without spi")
	}
	for _, spi := range s.Spis {
		if len(spi) != len(s.Spis[0]) {
			return ErrF(ERR_PAYLOAD_MALFORMED, "delete with mixed spi sizes")
		}
	}
	return nil
}

func (s *DeletePayload) Encode() (b []byte) {
	b = make([]byte, 8)
	packets.WriteB32(b, 0, s.Doi)
	packets.WriteB8(b, 4, uint8(s.ProtocolId))
	if len(s.Spis) > 0 {
		packets.WriteB8(b, 5, uint8(len(s.Spis[0])))
	}
	packets.WriteB16(b, 6, uint16(len(s.Spis)))
	for _, spi := range s.Spis {
		b = append(b, spi...)
	}
	return
}

func (s *DeletePayload) Decode(b []byte) (err error) {
	if len(b) < 8 {
		return ErrF(ERR_INVALID_SYNTAX, "delete too small %d < %d", len(b), 8)
	}
	s.Doi, _ = packets.ReadB32(b, 0)
	pid, _ := packets.ReadB8(b, 4)
	s.ProtocolId = ProtocolId(pid)
	spiSize, _ := packets.ReadB8(b, 5)
	numSpi, _ := packets.ReadB16(b, 6)
	if spiSize == 0 {
		return ErrF(ERR_INVALID_SYNTAX, "delete with zero spi size")
	}
	b = b[8:]
	if len(b) != int(spiSize)*int(numSpi) {
		return ErrF(ERR_INVALID_SYNTAX, "delete spis: have %d, want %d", len(b), int(spiSize)*int(numSpi))
	}
	for i := 0; i < int(numSpi); i++ {
		s.Spis = append(s.Spis, append([]byte{}, b[:spiSize]...))
		b = b[spiSize:]
	}
	return
}
