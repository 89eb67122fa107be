package protocol

func (s *HashPayload) Type() PayloadType {
	return s.HashPayloadType
}

func (s *HashPayload) Encode() (b []byte) {
	return append([]byte{}, s.Data...)
}

func (s *HashPayload) Decode(b []byte) error {
	if len(b) == 0 {
		return ErrF(ERR_INVALID_SYNTAX, "empty %s payload", s.HashPayloadType)
	}
	s.Data = append([]byte{}, b...)
	return nil
}

// NewHashSlot reserves a zeroed digest of size n, filled in after encoding
func NewHashSlot(n int) *HashPayload {
	return &HashPayload{
		PayloadHeader:   &PayloadHeader{},
		HashPayloadType: PayloadTypeHASH,
		Data:            make([]byte, n),
	}
}

func (s *VendorIdPayload) Type() PayloadType {
	return PayloadTypeVID
}

func (s *VendorIdPayload) Encode() (b []byte) {
	return append([]byte{}, s.Data...)
}

func (s *VendorIdPayload) Decode(b []byte) error {
	s.Data = append([]byte{}, b...)
	return nil
}
