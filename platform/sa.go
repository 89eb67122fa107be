package platform

import (
	"fmt"

	"github.com/msgboxio/ikev1/protocol"
	"github.com/pkg/errors"
)

// SaParams is a keyed pair of esp SAs and the policy they protect.
// Keys and spis are named from the initiator's point of view:
// Ei/Ai protect initiator to responder traffic, sent to SpiR,
// Er/Ar protect responder to initiator traffic, sent to SpiI
type SaParams struct {
	*protocol.PolicyParams

	EspTransform protocol.Phase2Transform

	EspEi, EspAi, EspEr, EspAr []byte
	SpiI, SpiR                 uint32

	// the local end initiated the quick mode
	IsInitiator bool
}

func (sa *SaParams) String() string {
	return fmt.Sprintf("esp %08x/%08x %s", sa.SpiI, sa.SpiR, sa.PolicyParams)
}

var ErrAlgorithm = errors.New("algorithm has no kernel name")

// espAlgorithms returns the kernel crypto names of an esp transform
func espAlgorithms(t protocol.Phase2Transform) (crypt, auth string, truncBits int, err error) {
	switch t.EspId {
	case protocol.ESP_AES:
		crypt = "cbc(aes)"
	case protocol.ESP_3DES:
		crypt = "cbc(des3_ede)"
	case protocol.ESP_DES:
		crypt = "cbc(des)"
	case protocol.ESP_BLOWFISH:
		crypt = "cbc(blowfish)"
	case protocol.ESP_CAST:
		crypt = "cbc(cast5)"
	case protocol.ESP_NULL:
		crypt = "ecb(cipher_null)"
	default:
		return "", "", 0, errors.Wrapf(ErrAlgorithm, "esp transform %d", t.EspId)
	}
	switch t.AuthAlg {
	case protocol.IPSEC_AUTH_NONE:
	case protocol.IPSEC_AUTH_HMAC_MD5:
		auth, truncBits = "hmac(md5)", 96
	case protocol.IPSEC_AUTH_HMAC_SHA:
		auth, truncBits = "hmac(sha1)", 96
	case protocol.IPSEC_AUTH_HMAC_SHA2_256:
		// [RFC4868]
		auth, truncBits = "hmac(sha256)", 128
	default:
		return "", "", 0, errors.Wrapf(ErrAlgorithm, "esp auth %d", t.AuthAlg)
	}
	return
}

// reqId ties the policies of an SA pair to its states
func (sa *SaParams) reqId() int {
	return int(sa.SpiI & 0x7fffffff)
}
