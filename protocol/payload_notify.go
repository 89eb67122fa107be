package protocol

import (
	"time"

	"github.com/msgboxio/packets"
)

func (s *NotifyPayload) Type() PayloadType {
	return PayloadTypeN
}

func (s *NotifyPayload) Encode() (b []byte) {
	b = make([]byte, 8)
	packets.WriteB32(b, 0, s.Doi)
	packets.WriteB8(b, 4, uint8(s.ProtocolId))
	packets.WriteB8(b, 5, uint8(len(s.Spi)))
	packets.WriteB16(b, 6, uint16(s.NotificationType))
	b = append(b, s.Spi...)
	b = append(b, s.Data...)
	return
}

func (s *NotifyPayload) Decode(b []byte) (err error) {
	if len(b) < 8 {
		return ErrF(ERR_INVALID_SYNTAX, "notify too small %d < %d", len(b), 8)
	}
	s.Doi, _ = packets.ReadB32(b, 0)
	pId, _ := packets.ReadB8(b, 4)
	s.ProtocolId = ProtocolId(pId)
	spiLen, _ := packets.ReadB8(b, 5)
	if len(b) < 8+int(spiLen) {
		return ErrF(ERR_INVALID_SYNTAX, "notify spi length %d exceeds payload", spiLen)
	}
	nType, _ := packets.ReadB16(b, 6)
	s.NotificationType = NotificationType(nType)
	s.Spi = append([]byte{}, b[8:8+int(spiLen)]...)
	s.Data = append([]byte{}, b[8+int(spiLen):]...)
	return
}

// Lifetime decodes the seconds attribute of a RESPONDER-LIFETIME notify
func (s *NotifyPayload) Lifetime() (time.Duration, bool) {
	if s.NotificationType != RESPONDER_LIFETIME {
		return 0, false
	}
	b := s.Data
	for len(b) > 0 {
		attr, used, err := decodeAttribute(b)
		if err != nil {
			return 0, false
		}
		b = b[used:]
		if attr.Type == IPSEC_SA_LIFE_DURATION {
			return time.Duration(attr.Uint()) * time.Second, true
		}
	}
	return 0, false
}
