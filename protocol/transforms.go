package protocol

import (
	"time"
)

// Phase1Transform is the decoded form of an oakley transform
type Phase1Transform struct {
	Encr      EncrAlgorithm
	KeyLength uint16 // bits, 0 for fixed length ciphers
	Hash      HashAlgorithm
	Auth      AuthMethod
	Group     GroupDescription
	Lifetime  time.Duration
}

// Phase2Transform is the decoded form of an ipsec esp transform
type Phase2Transform struct {
	EspId     uint8
	KeyLength uint16
	AuthAlg   IpsecAuthAlgorithm
	Mode      EncapsulationMode
	Group     GroupDescription // pfs group, MODP_NONE without pfs
	Lifetime  time.Duration
}

func (t Phase1Transform) Transform(number uint8) *SaTransform {
	tr := &SaTransform{Number: number, TransformId: KEY_IKE}
	tr.Attributes = append(tr.Attributes,
		NewAttribute(OAKLEY_ENCRYPTION_ALGORITHM, uint64(t.Encr)),
		NewAttribute(OAKLEY_HASH_ALGORITHM, uint64(t.Hash)),
		NewAttribute(OAKLEY_AUTHENTICATION, uint64(t.Auth)),
		NewAttribute(OAKLEY_GROUP_DESCRIPTION, uint64(t.Group)))
	if t.Lifetime > 0 {
		tr.Attributes = append(tr.Attributes,
			NewAttribute(OAKLEY_LIFE_TYPE, uint64(LIFE_SECONDS)),
			NewAttribute(OAKLEY_LIFE_DURATION, uint64(t.Lifetime/time.Second)))
	}
	if t.KeyLength != 0 {
		tr.Attributes = append(tr.Attributes, NewAttribute(OAKLEY_KEY_LENGTH, uint64(t.KeyLength)))
	}
	return tr
}

// ParsePhase1Transform fails on missing mandatory or unknown attributes
func ParsePhase1Transform(tr *SaTransform) (t Phase1Transform, err error) {
	if tr.TransformId != KEY_IKE {
		return t, ErrF(ERR_UNSUPPORTED, "phase 1 transform id %d", tr.TransformId)
	}
	var lifeType LifeType
	for _, attr := range tr.Attributes {
		v := attr.Uint()
		switch attr.Type {
		case OAKLEY_ENCRYPTION_ALGORITHM:
			t.Encr = EncrAlgorithm(v)
		case OAKLEY_HASH_ALGORITHM:
			t.Hash = HashAlgorithm(v)
		case OAKLEY_AUTHENTICATION:
			t.Auth = AuthMethod(v)
		case OAKLEY_GROUP_DESCRIPTION:
			t.Group = GroupDescription(v)
		case OAKLEY_KEY_LENGTH:
			t.KeyLength = uint16(v)
		case OAKLEY_LIFE_TYPE:
			lifeType = LifeType(v)
		case OAKLEY_LIFE_DURATION:
			// kilobyte lifetimes are not enforced
			if lifeType == LIFE_SECONDS {
				t.Lifetime = time.Duration(v) * time.Second
			}
		case OAKLEY_GROUP_TYPE, OAKLEY_PRF:
			return t, ErrF(ERR_UNSUPPORTED, "oakley attribute %d", attr.Type)
		default:
			return t, ErrF(ERR_UNSUPPORTED, "unknown oakley attribute %d", attr.Type)
		}
	}
	if t.Encr == 0 || t.Hash == 0 || t.Auth == 0 || t.Group == 0 {
		return t, ErrF(ERR_PAYLOAD_MALFORMED, "missing mandatory oakley attribute")
	}
	return
}

func (t Phase2Transform) Transform(number uint8) *SaTransform {
	tr := &SaTransform{Number: number, TransformId: t.EspId}
	if t.Lifetime > 0 {
		tr.Attributes = append(tr.Attributes,
			NewAttribute(IPSEC_SA_LIFE_TYPE, uint64(LIFE_SECONDS)),
			NewAttribute(IPSEC_SA_LIFE_DURATION, uint64(t.Lifetime/time.Second)))
	}
	if t.Group != MODP_NONE {
		tr.Attributes = append(tr.Attributes, NewAttribute(IPSEC_GROUP_DESCRIPTION, uint64(t.Group)))
	}
	tr.Attributes = append(tr.Attributes, NewAttribute(IPSEC_ENCAPSULATION_MODE, uint64(t.Mode)))
	if t.AuthAlg != IPSEC_AUTH_NONE {
		tr.Attributes = append(tr.Attributes, NewAttribute(IPSEC_AUTH_ALGORITHM, uint64(t.AuthAlg)))
	}
	if t.KeyLength != 0 {
		tr.Attributes = append(tr.Attributes, NewAttribute(IPSEC_KEY_LENGTH, uint64(t.KeyLength)))
	}
	return tr
}

func ParsePhase2Transform(tr *SaTransform) (t Phase2Transform, err error) {
	t.EspId = tr.TransformId
	t.Mode = ENCAPSULATION_TUNNEL
	var lifeType LifeType
	for _, attr := range tr.Attributes {
		v := attr.Uint()
		switch attr.Type {
		case IPSEC_SA_LIFE_TYPE:
			lifeType = LifeType(v)
		case IPSEC_SA_LIFE_DURATION:
			if lifeType == LIFE_SECONDS {
				t.Lifetime = time.Duration(v) * time.Second
			}
		case IPSEC_GROUP_DESCRIPTION:
			t.Group = GroupDescription(v)
		case IPSEC_ENCAPSULATION_MODE:
			t.Mode = EncapsulationMode(v)
		case IPSEC_AUTH_ALGORITHM:
			t.AuthAlg = IpsecAuthAlgorithm(v)
		case IPSEC_KEY_LENGTH:
			t.KeyLength = uint16(v)
		default:
			return t, ErrF(ERR_UNSUPPORTED, "ipsec attribute %d", attr.Type)
		}
	}
	return
}

// named presets usable from configuration
var (
	IKE_AES128_SHA1_MODP1024 = Phase1Transform{
		Encr: OAKLEY_AES_CBC, KeyLength: 128, Hash: OAKLEY_SHA,
		Auth: AUTH_PRE_SHARED_KEY, Group: MODP_1024, Lifetime: 8 * time.Hour,
	}
	IKE_AES256_SHA256_MODP2048 = Phase1Transform{
		Encr: OAKLEY_AES_CBC, KeyLength: 256, Hash: OAKLEY_SHA2_256,
		Auth: AUTH_PRE_SHARED_KEY, Group: MODP_2048, Lifetime: 8 * time.Hour,
	}
	IKE_3DES_SHA1_MODP1024 = Phase1Transform{
		Encr: OAKLEY_3DES_CBC, Hash: OAKLEY_SHA,
		Auth: AUTH_PRE_SHARED_KEY, Group: MODP_1024, Lifetime: 8 * time.Hour,
	}
	IKE_CAMELLIA128_SHA256_ECP256 = Phase1Transform{
		Encr: OAKLEY_CAMELLIA_CBC, KeyLength: 128, Hash: OAKLEY_SHA2_256,
		Auth: AUTH_PRE_SHARED_KEY, Group: ECP_256, Lifetime: 8 * time.Hour,
	}

	ESP_AES128_SHA1 = Phase2Transform{
		EspId: ESP_AES, KeyLength: 128, AuthAlg: IPSEC_AUTH_HMAC_SHA,
		Mode: ENCAPSULATION_TUNNEL, Lifetime: time.Hour,
	}
	ESP_AES256_SHA256 = Phase2Transform{
		EspId: ESP_AES, KeyLength: 256, AuthAlg: IPSEC_AUTH_HMAC_SHA2_256,
		Mode: ENCAPSULATION_TUNNEL, Lifetime: time.Hour,
	}
	ESP_3DES_MD5 = Phase2Transform{
		EspId: ESP_3DES, AuthAlg: IPSEC_AUTH_HMAC_MD5,
		Mode: ENCAPSULATION_TUNNEL, Lifetime: time.Hour,
	}
	ESP_NULL_SHA1 = Phase2Transform{
		EspId: ESP_NULL, AuthAlg: IPSEC_AUTH_HMAC_SHA,
		Mode: ENCAPSULATION_TUNNEL, Lifetime: time.Hour,
	}
)

var Phase1Presets = map[string]Phase1Transform{
	"aes128-sha1-modp1024":      IKE_AES128_SHA1_MODP1024,
	"aes256-sha256-modp2048":    IKE_AES256_SHA256_MODP2048,
	"3des-sha1-modp1024":        IKE_3DES_SHA1_MODP1024,
	"camellia128-sha256-ecp256": IKE_CAMELLIA128_SHA256_ECP256,
}

var Phase2Presets = map[string]Phase2Transform{
	"esp-aes128-sha1":   ESP_AES128_SHA1,
	"esp-aes256-sha256": ESP_AES256_SHA256,
	"esp-3des-md5":      ESP_3DES_MD5,
	"esp-null-sha1":     ESP_NULL_SHA1,
}

// Phase1Proposal wraps transforms into an isakmp SA payload,
// one transform per choice inside a single proposal
func Phase1Proposal(choices []Phase1Transform) *SaPayload {
	prop := &SaProposal{Number: 1, ProtocolId: PROTO_ISAKMP, IsLast: true}
	for idx, c := range choices {
		prop.Transforms = append(prop.Transforms, c.Transform(uint8(idx+1)))
	}
	return &SaPayload{
		PayloadHeader: &PayloadHeader{},
		Doi:           DOI_IPSEC,
		Situation:     SIT_IDENTITY_ONLY,
		Proposals:     Proposals{prop},
	}
}

// Phase2Proposal builds an esp SA payload for the given inbound spi
func Phase2Proposal(spi []byte, choices []Phase2Transform) *SaPayload {
	prop := &SaProposal{Number: 1, ProtocolId: PROTO_IPSEC_ESP, Spi: spi, IsLast: true}
	for idx, c := range choices {
		prop.Transforms = append(prop.Transforms, c.Transform(uint8(idx+1)))
	}
	return &SaPayload{
		PayloadHeader: &PayloadHeader{},
		Doi:           DOI_IPSEC,
		Situation:     SIT_IDENTITY_ONLY,
		Proposals:     Proposals{prop},
	}
}
