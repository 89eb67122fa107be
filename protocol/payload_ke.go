package protocol

func (s *KePayload) Type() PayloadType { return PayloadTypeKE }

func (s *KePayload) Encode() (b []byte) {
	return append([]byte{}, s.KeyData...)
}

func (s *KePayload) Decode(b []byte) (err error) {
	// Header has already been decoded
	if len(b) == 0 {
		return ErrF(ERR_INVALID_SYNTAX, "empty key exchange data")
	}
	s.KeyData = append([]byte{}, b...)
	return
}
