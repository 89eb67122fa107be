package crypto

import (
	"github.com/msgboxio/ikev1/protocol"
	"github.com/pkg/errors"
)

// EspKeyLengths returns the cipher and integrity key sizes of an esp transform
func EspKeyLengths(t protocol.Phase2Transform) (encLen, authLen int, err error) {
	switch t.EspId {
	case protocol.ESP_DES:
		encLen = 8
	case protocol.ESP_3DES:
		encLen = 24
	case protocol.ESP_CAST, protocol.ESP_BLOWFISH:
		encLen = 16
		if t.KeyLength != 0 {
			encLen = int(t.KeyLength) / 8
		}
	case protocol.ESP_AES:
		encLen = 16
		if t.KeyLength != 0 {
			encLen = int(t.KeyLength) / 8
		}
		if encLen != 16 && encLen != 24 && encLen != 32 {
			return 0, 0, errors.Wrapf(ErrUnsupported, "esp aes key length %d", t.KeyLength)
		}
	case protocol.ESP_NULL:
	default:
		return 0, 0, errors.Wrapf(ErrUnsupported, "esp transform %d", t.EspId)
	}
	switch t.AuthAlg {
	case protocol.IPSEC_AUTH_NONE:
		if t.EspId == protocol.ESP_NULL {
			return 0, 0, errors.Wrap(ErrUnsupported, "esp without encryption or integrity")
		}
	case protocol.IPSEC_AUTH_HMAC_MD5:
		authLen = 16
	case protocol.IPSEC_AUTH_HMAC_SHA:
		authLen = 20
	case protocol.IPSEC_AUTH_HMAC_SHA2_256:
		authLen = 32
	default:
		return 0, 0, errors.Wrapf(ErrUnsupported, "esp auth algorithm %d", t.AuthAlg)
	}
	return
}

// Phase2Supported checks a peer esp transform against what can be keyed
func Phase2Supported(t protocol.Phase2Transform) error {
	if _, _, err := EspKeyLengths(t); err != nil {
		return err
	}
	if t.Group != protocol.MODP_NONE && !GroupSupported(t.Group) {
		return errors.Wrapf(ErrUnsupported, "pfs group %s", t.Group)
	}
	return nil
}
