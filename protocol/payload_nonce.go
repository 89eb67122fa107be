package protocol

const (
	MIN_NONCE_LEN = 8
	MAX_NONCE_LEN = 256
)

func (s *NoncePayload) Type() PayloadType {
	return PayloadTypeNonce
}

func (s *NoncePayload) Encode() (b []byte) {
	return append([]byte{}, s.Data...)
}

func (s *NoncePayload) Decode(b []byte) error {
	// Header has already been decoded
	// between 8 and 256 octets [RFC2409]
	if len(b) < MIN_NONCE_LEN || len(b) > MAX_NONCE_LEN {
		return ErrF(ERR_INVALID_SYNTAX, "nonce length invalid: %d", len(b))
	}
	s.Data = append([]byte{}, b...)
	return nil
}
