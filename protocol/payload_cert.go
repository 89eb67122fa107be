package protocol

import (
	"github.com/msgboxio/packets"
)

func (s *CertPayload) Type() PayloadType {
	return PayloadTypeCERT
}

func (s *CertPayload) Encode() (b []byte) {
	b = []byte{uint8(s.CertEncodingType)}
	return append(b, s.Data...)
}

func (s *CertPayload) Decode(b []byte) error {
	if len(b) < 1 {
		return ErrF(ERR_INVALID_SYNTAX, "cert too small %d", len(b))
	}
	// Header has already been decoded
	ct, _ := packets.ReadB8(b, 0)
	s.CertEncodingType = CertEncodingType(ct)
	s.Data = append([]byte{}, b[1:]...)
	return nil
}

func (s *CertRequestPayload) Type() PayloadType {
	return PayloadTypeCR
}

func (s *CertRequestPayload) Encode() (b []byte) {
	b = []byte{uint8(s.CertEncodingType)}
	return append(b, s.Authority...)
}

func (s *CertRequestPayload) Decode(b []byte) error {
	if len(b) < 1 {
		return ErrF(ERR_INVALID_SYNTAX, "cert request too small %d", len(b))
	}
	ct, _ := packets.ReadB8(b, 0)
	s.CertEncodingType = CertEncodingType(ct)
	s.Authority = append([]byte{}, b[1:]...)
	return nil
}
