package protocol

import (
	"fmt"
	"strings"
)

func (p ProtocolId) String() string {
	switch p {
	case PROTO_ISAKMP:
		return "ISAKMP"
	case PROTO_IPSEC_AH:
		return "AH"
	case PROTO_IPSEC_ESP:
		return "ESP"
	case PROTO_IPCOMP:
		return "IPCOMP"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(p))
	}
}

func (p PayloadType) String() string {
	switch p {
	case PayloadTypeNone:
		return "None"
	case PayloadTypeSA:
		return "SA"
	case PayloadTypeP:
		return "P"
	case PayloadTypeT:
		return "T"
	case PayloadTypeKE:
		return "KE"
	case PayloadTypeID:
		return "ID"
	case PayloadTypeCERT:
		return "CERT"
	case PayloadTypeCR:
		return "CR"
	case PayloadTypeHASH:
		return "HASH"
	case PayloadTypeSIG:
		return "SIG"
	case PayloadTypeNonce:
		return "NONCE"
	case PayloadTypeN:
		return "N"
	case PayloadTypeD:
		return "D"
	case PayloadTypeVID:
		return "VID"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(p))
	}
}

func (e ExchangeType) String() string {
	switch e {
	case EXCHANGE_BASE:
		return "BASE"
	case EXCHANGE_IDENTITY_PROTECTION:
		return "MAIN"
	case EXCHANGE_AUTH_ONLY:
		return "AUTH_ONLY"
	case EXCHANGE_AGGRESSIVE:
		return "AGGRESSIVE"
	case EXCHANGE_INFORMATIONAL:
		return "INFORMATIONAL"
	case EXCHANGE_QUICK:
		return "QUICK"
	case EXCHANGE_NEW_GROUP:
		return "NEW_GROUP"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(e))
	}
}

func (f IsakmpFlags) String() string {
	var fl []string
	if f.IsEncrypted() {
		fl = append(fl, "E")
	}
	if f.IsCommit() {
		fl = append(fl, "C")
	}
	if f.IsAuthOnly() {
		fl = append(fl, "A")
	}
	return "[" + strings.Join(fl, "|") + "]"
}

var notifyNames = map[NotificationType]string{
	INVALID_PAYLOAD_TYPE:      "INVALID_PAYLOAD_TYPE",
	DOI_NOT_SUPPORTED:         "DOI_NOT_SUPPORTED",
	SITUATION_NOT_SUPPORTED:   "SITUATION_NOT_SUPPORTED",
	INVALID_COOKIE:            "INVALID_COOKIE",
	INVALID_MAJOR_VERSION:     "INVALID_MAJOR_VERSION",
	INVALID_MINOR_VERSION:     "INVALID_MINOR_VERSION",
	INVALID_EXCHANGE_TYPE:     "INVALID_EXCHANGE_TYPE",
	INVALID_FLAGS:             "INVALID_FLAGS",
	INVALID_MESSAGE_ID:        "INVALID_MESSAGE_ID",
	INVALID_PROTOCOL_ID:       "INVALID_PROTOCOL_ID",
	INVALID_SPI:               "INVALID_SPI",
	INVALID_TRANSFORM_ID:      "INVALID_TRANSFORM_ID",
	ATTRIBUTES_NOT_SUPPORTED:  "ATTRIBUTES_NOT_SUPPORTED",
	NO_PROPOSAL_CHOSEN:        "NO_PROPOSAL_CHOSEN",
	BAD_PROPOSAL_SYNTAX:       "BAD_PROPOSAL_SYNTAX",
	PAYLOAD_MALFORMED:         "PAYLOAD_MALFORMED",
	INVALID_KEY_INFORMATION:   "INVALID_KEY_INFORMATION",
	INVALID_ID_INFORMATION:    "INVALID_ID_INFORMATION",
	INVALID_CERT_ENCODING:     "INVALID_CERT_ENCODING",
	INVALID_CERTIFICATE:       "INVALID_CERTIFICATE",
	CERT_TYPE_UNSUPPORTED:     "CERT_TYPE_UNSUPPORTED",
	INVALID_CERT_AUTHORITY:    "INVALID_CERT_AUTHORITY",
	INVALID_HASH_INFORMATION:  "INVALID_HASH_INFORMATION",
	AUTHENTICATION_FAILED:     "AUTHENTICATION_FAILED",
	INVALID_SIGNATURE:         "INVALID_SIGNATURE",
	ADDRESS_NOTIFICATION:      "ADDRESS_NOTIFICATION",
	NOTIFY_SA_LIFETIME:        "NOTIFY_SA_LIFETIME",
	CERTIFICATE_UNAVAILABLE:   "CERTIFICATE_UNAVAILABLE",
	UNSUPPORTED_EXCHANGE_TYPE: "UNSUPPORTED_EXCHANGE_TYPE",
	UNEQUAL_PAYLOAD_LENGTHS:   "UNEQUAL_PAYLOAD_LENGTHS",
	CONNECTED:                 "CONNECTED",
	RESPONDER_LIFETIME:        "RESPONDER_LIFETIME",
	REPLAY_STATUS:             "REPLAY_STATUS",
	INITIAL_CONTACT:           "INITIAL_CONTACT",
}

func (n NotificationType) String() string {
	if s, ok := notifyNames[n]; ok {
		return s
	}
	return fmt.Sprintf("Unknown(%d)", uint16(n))
}

func (i IdType) String() string {
	switch i {
	case ID_IPV4_ADDR:
		return "IPV4_ADDR"
	case ID_FQDN:
		return "FQDN"
	case ID_USER_FQDN:
		return "USER_FQDN"
	case ID_IPV4_ADDR_SUBNET:
		return "IPV4_ADDR_SUBNET"
	case ID_IPV6_ADDR:
		return "IPV6_ADDR"
	case ID_IPV6_ADDR_SUBNET:
		return "IPV6_ADDR_SUBNET"
	case ID_IPV4_ADDR_RANGE:
		return "IPV4_ADDR_RANGE"
	case ID_IPV6_ADDR_RANGE:
		return "IPV6_ADDR_RANGE"
	case ID_DER_ASN1_DN:
		return "DER_ASN1_DN"
	case ID_DER_ASN1_GN:
		return "DER_ASN1_GN"
	case ID_KEY_ID:
		return "KEY_ID"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(i))
	}
}

func (e EncrAlgorithm) String() string {
	switch e {
	case OAKLEY_DES_CBC:
		return "DES_CBC"
	case OAKLEY_IDEA_CBC:
		return "IDEA_CBC"
	case OAKLEY_BLOWFISH_CBC:
		return "BLOWFISH_CBC"
	case OAKLEY_RC5_CBC:
		return "RC5_CBC"
	case OAKLEY_3DES_CBC:
		return "3DES_CBC"
	case OAKLEY_CAST_CBC:
		return "CAST_CBC"
	case OAKLEY_AES_CBC:
		return "AES_CBC"
	case OAKLEY_CAMELLIA_CBC:
		return "CAMELLIA_CBC"
	default:
		return fmt.Sprintf("Unknown(%d)", uint16(e))
	}
}

func (h HashAlgorithm) String() string {
	switch h {
	case OAKLEY_MD5:
		return "MD5"
	case OAKLEY_SHA:
		return "SHA1"
	case OAKLEY_TIGER:
		return "TIGER"
	case OAKLEY_SHA2_256:
		return "SHA2_256"
	case OAKLEY_SHA2_384:
		return "SHA2_384"
	case OAKLEY_SHA2_512:
		return "SHA2_512"
	default:
		return fmt.Sprintf("Unknown(%d)", uint16(h))
	}
}

func (a AuthMethod) String() string {
	switch a {
	case AUTH_PRE_SHARED_KEY:
		return "PSK"
	case AUTH_DSS_SIG:
		return "DSS_SIG"
	case AUTH_RSA_SIG:
		return "RSA_SIG"
	case AUTH_RSA_ENC:
		return "RSA_ENC"
	case AUTH_RSA_REV_ENC:
		return "RSA_REV_ENC"
	default:
		return fmt.Sprintf("Unknown(%d)", uint16(a))
	}
}

func (g GroupDescription) String() string {
	switch g {
	case MODP_NONE:
		return "NONE"
	case MODP_768:
		return "MODP_768"
	case MODP_1024:
		return "MODP_1024"
	case MODP_1536:
		return "MODP_1536"
	case MODP_2048:
		return "MODP_2048"
	case MODP_3072:
		return "MODP_3072"
	case ECP_256:
		return "ECP_256"
	case ECP_384:
		return "ECP_384"
	default:
		return fmt.Sprintf("Unknown(%d)", uint16(g))
	}
}

func (p *Payloads) String() string {
	var ss []string
	for _, pl := range p.Array {
		switch pl.Type() {
		case PayloadTypeN:
			ss = append(ss, pl.Type().String()+"["+pl.(*NotifyPayload).NotificationType.String()+"]")
		default:
			ss = append(ss, pl.Type().String())
		}
	}
	return strings.Join(ss, ", ")
}

func (prop *SaProposal) String() string {
	var trs []string
	for _, tr := range prop.Transforms {
		trs = append(trs, tr.String())
	}
	return fmt.Sprintf("#%d %s{%s}", prop.Number, prop.ProtocolId, strings.Join(trs, ", "))
}

func (tr *SaTransform) String() string {
	var attrs []string
	for _, a := range tr.Attributes {
		attrs = append(attrs, fmt.Sprintf("%d=%d", a.Type, a.Uint()))
	}
	return fmt.Sprintf("%d:%d[%s]", tr.Number, tr.TransformId, strings.Join(attrs, " "))
}
