package protocol

const (
	IKE_PORT      = 500
	IKE_NATT_PORT = 4500
)

// largest datagram built or accepted
const MAX_PACKET_LEN = 3000

// decoder limits
const (
	MAX_PROPOSALS  = 4
	MAX_TRANSFORMS = 5
	MAX_ATTRIBUTES = 16
)

const (
	ISAKMP_MAJOR_VERSION = 1
	ISAKMP_MINOR_VERSION = 0
)

const COOKIE_LEN = 8

// Cookie identifies one end of an ISAKMP SA
type Cookie [COOKIE_LEN]byte

func (c Cookie) IsSet() bool {
	return c != Cookie{}
}

type ExchangeType uint8

const (
	EXCHANGE_NONE                ExchangeType = 0  // [RFC2408]
	EXCHANGE_BASE                ExchangeType = 1  // [RFC2408]
	EXCHANGE_IDENTITY_PROTECTION ExchangeType = 2  // [RFC2408] Main Mode [RFC2409]
	EXCHANGE_AUTH_ONLY           ExchangeType = 3  // [RFC2408]
	EXCHANGE_AGGRESSIVE          ExchangeType = 4  // [RFC2408]
	EXCHANGE_INFORMATIONAL       ExchangeType = 5  // [RFC2408]
	EXCHANGE_QUICK               ExchangeType = 32 // [RFC2409]
	EXCHANGE_NEW_GROUP           ExchangeType = 33 // [RFC2409]
	// 6-31	ISAKMP Future Use
	// 34-239	DOI Specific Use
	// 240-255	Private Use
)

// Main Mode is Identity Protection with the Oakley payload contract
const EXCHANGE_MAIN = EXCHANGE_IDENTITY_PROTECTION

type PayloadType uint8

const (
	PayloadTypeNone  PayloadType = 0  // [RFC2408]
	PayloadTypeSA    PayloadType = 1  // Security Association [RFC2408]
	PayloadTypeP     PayloadType = 2  // Proposal [RFC2408]
	PayloadTypeT     PayloadType = 3  // Transform [RFC2408]
	PayloadTypeKE    PayloadType = 4  // Key Exchange [RFC2408]
	PayloadTypeID    PayloadType = 5  // Identification [RFC2408]
	PayloadTypeCERT  PayloadType = 6  // Certificate [RFC2408]
	PayloadTypeCR    PayloadType = 7  // Certificate Request [RFC2408]
	PayloadTypeHASH  PayloadType = 8  // Hash [RFC2408]
	PayloadTypeSIG   PayloadType = 9  // Signature [RFC2408]
	PayloadTypeNonce PayloadType = 10 // Nonce [RFC2408]
	PayloadTypeN     PayloadType = 11 // Notification [RFC2408]
	PayloadTypeD     PayloadType = 12 // Delete [RFC2408]
	PayloadTypeVID   PayloadType = 13 // Vendor ID [RFC2408]
	// 14-127	Reserved
	// 128-255	Private Use
)

type IsakmpFlags uint8

const (
	FLAG_ENCRYPTION IsakmpFlags = 1 << 0 // E
	FLAG_COMMIT     IsakmpFlags = 1 << 1 // C
	FLAG_AUTH_ONLY  IsakmpFlags = 1 << 2 // A
)

func (f IsakmpFlags) IsEncrypted() bool { return f&FLAG_ENCRYPTION != 0 }
func (f IsakmpFlags) IsCommit() bool    { return f&FLAG_COMMIT != 0 }
func (f IsakmpFlags) IsAuthOnly() bool  { return f&FLAG_AUTH_ONLY != 0 }

// Domain of Interpretation
const (
	DOI_ISAKMP uint32 = 0
	DOI_IPSEC  uint32 = 1 // [RFC2407]
)

const (
	SIT_IDENTITY_ONLY uint32 = 1 // [RFC2407]
	SIT_SECRECY       uint32 = 2
	SIT_INTEGRITY     uint32 = 4
)

type ProtocolId uint8

const (
	PROTO_ISAKMP    ProtocolId = 1 // [RFC2407]
	PROTO_IPSEC_AH  ProtocolId = 2
	PROTO_IPSEC_ESP ProtocolId = 3
	PROTO_IPCOMP    ProtocolId = 4
)

// transform identifiers
const (
	KEY_IKE uint8 = 1 // ISAKMP proposals

	ESP_DES      uint8 = 2  // [RFC2407]
	ESP_3DES     uint8 = 3  // [RFC2407]
	ESP_CAST     uint8 = 6  // [RFC2407]
	ESP_BLOWFISH uint8 = 7  // [RFC2407]
	ESP_NULL     uint8 = 11 // [RFC2407]
	ESP_AES      uint8 = 12 // [RFC3602]
)

/*
                        1                   2                   3
    0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1
   +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
   !                          Initiator                            !
   !                            Cookie                             !
   +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
   !                          Responder                            !
   !                            Cookie                             !
   +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
   !  Next Payload ! MjVer ! MnVer ! Exchange Type !     Flags     !
   +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
   !                          Message ID                           !
   +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
   !                            Length                             !
   +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
*/
const (
	ISAKMP_HEADER_LEN = 28
	// offset of the total length field
	ISAKMP_LENGTH_OFFSET = 24
)

type IsakmpHeader struct {
	CookieI, CookieR           Cookie
	NextPayload                PayloadType
	MajorVersion, MinorVersion uint8 // 4 bits
	ExchangeType               ExchangeType
	Flags                      IsakmpFlags
	MsgId                      uint32
	MsgLength                  uint32
}

type Payload interface {
	Type() PayloadType
	Decode([]byte) error
	Encode() []byte
	NextPayloadType() PayloadType
	Header() *PayloadHeader
}

/*
    0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1
   +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
   ! Next Payload  !   RESERVED    !         Payload Length        !
   +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
*/
const (
	PAYLOAD_HEADER_LENGTH = 4
)

type PayloadHeader struct {
	NextPayload   PayloadType
	PayloadLength uint16
}

/*
   +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
   ! Next Payload  !   RESERVED    !         Payload Length        !
   +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
   !              Domain of Interpretation  (DOI)                  !
   +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
   !                           Situation                           ~
   +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
   ~                          <Proposals>                          ~
   +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
*/
type Proposals []*SaProposal

type SaPayload struct {
	*PayloadHeader
	Doi       uint32
	Situation uint32
	Proposals
}

/*
   +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
   ! Next Payload  !   RESERVED    !         Payload Length        !
   +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
   !  Proposal #   !  Protocol-Id  !    SPI Size   !# of Transforms!
   +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
   !                        SPI (variable)                         !
   +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
*/
type SaProposal struct {
	IsLast     bool
	Number     uint8
	ProtocolId ProtocolId
	Spi        []byte
	Transforms []*SaTransform
}

/*
   +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
   ! Next Payload  !   RESERVED    !         Payload Length        !
   +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
   !  Transform #  !  Transform-Id !           RESERVED2           !
   +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
   ~                        SA Attributes                          ~
   +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
*/
type SaTransform struct {
	IsLast      bool
	Number      uint8
	TransformId uint8
	Attributes  []*Attribute
}

/*
   +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
   !A!       Attribute Type        !    AF=0  Attribute Length     !
   !F!                             !    AF=1  Attribute Value      !
   +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
   .                   AF=0  Attribute Value                       .
   .                   AF=1  Not Transmitted                       .
   +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
*/
type Attribute struct {
	Type AttributeType
	// TV format when Data is nil
	Value uint16
	Data  []byte
}

type AttributeType uint16

const (
	ATTRIBUTE_FORMAT_TV = 0x8000
	MIN_LEN_ATTRIBUTE   = 4
	MIN_LEN_TRANSFORM   = 8
	MIN_LEN_PROPOSAL    = 8
	MIN_LEN_SA          = 8
)

// Oakley attributes; phase 1 [RFC2409] Appendix A
const (
	OAKLEY_ENCRYPTION_ALGORITHM AttributeType = 1
	OAKLEY_HASH_ALGORITHM       AttributeType = 2
	OAKLEY_AUTHENTICATION       AttributeType = 3
	OAKLEY_GROUP_DESCRIPTION    AttributeType = 4
	OAKLEY_GROUP_TYPE           AttributeType = 5
	OAKLEY_LIFE_TYPE            AttributeType = 11
	OAKLEY_LIFE_DURATION        AttributeType = 12
	OAKLEY_PRF                  AttributeType = 13
	OAKLEY_KEY_LENGTH           AttributeType = 14
)

// IPsec DOI attributes; phase 2 [RFC2407] 4.5
const (
	IPSEC_SA_LIFE_TYPE        AttributeType = 1
	IPSEC_SA_LIFE_DURATION    AttributeType = 2
	IPSEC_GROUP_DESCRIPTION   AttributeType = 3
	IPSEC_ENCAPSULATION_MODE  AttributeType = 4
	IPSEC_AUTH_ALGORITHM      AttributeType = 5
	IPSEC_KEY_LENGTH          AttributeType = 6
	IPSEC_KEY_ROUNDS          AttributeType = 7
	IPSEC_COMPRESS_DICTIONARY AttributeType = 8
)

type EncrAlgorithm uint16

const (
	OAKLEY_DES_CBC      EncrAlgorithm = 1 // [RFC2409]
	OAKLEY_IDEA_CBC     EncrAlgorithm = 2
	OAKLEY_BLOWFISH_CBC EncrAlgorithm = 3
	OAKLEY_RC5_CBC      EncrAlgorithm = 4
	OAKLEY_3DES_CBC     EncrAlgorithm = 5
	OAKLEY_CAST_CBC     EncrAlgorithm = 6
	OAKLEY_AES_CBC      EncrAlgorithm = 7 // [RFC3602]
	OAKLEY_CAMELLIA_CBC EncrAlgorithm = 8 // [RFC4312]
)

type HashAlgorithm uint16

const (
	OAKLEY_MD5      HashAlgorithm = 1 // [RFC2409]
	OAKLEY_SHA      HashAlgorithm = 2
	OAKLEY_TIGER    HashAlgorithm = 3
	OAKLEY_SHA2_256 HashAlgorithm = 4 // [RFC4868]
	OAKLEY_SHA2_384 HashAlgorithm = 5
	OAKLEY_SHA2_512 HashAlgorithm = 6
)

type AuthMethod uint16

const (
	AUTH_PRE_SHARED_KEY AuthMethod = 1 // [RFC2409]
	AUTH_DSS_SIG        AuthMethod = 2
	AUTH_RSA_SIG        AuthMethod = 3
	AUTH_RSA_ENC        AuthMethod = 4
	AUTH_RSA_REV_ENC    AuthMethod = 5
)

func (a AuthMethod) IsSignature() bool {
	return a == AUTH_DSS_SIG || a == AUTH_RSA_SIG
}

type GroupDescription uint16

const (
	MODP_NONE GroupDescription = 0
	MODP_768  GroupDescription = 1  // [RFC2409]
	MODP_1024 GroupDescription = 2  // [RFC2409]
	EC2N_155  GroupDescription = 3  // [RFC2409]
	EC2N_185  GroupDescription = 4  // [RFC2409]
	MODP_1536 GroupDescription = 5  // [RFC3526]
	MODP_2048 GroupDescription = 14 // [RFC3526]
	MODP_3072 GroupDescription = 15 // [RFC3526]
	ECP_256   GroupDescription = 19 // [RFC5903]
	ECP_384   GroupDescription = 20 // [RFC5903]
)

type LifeType uint16

const (
	LIFE_SECONDS   LifeType = 1
	LIFE_KILOBYTES LifeType = 2
)

type EncapsulationMode uint16

const (
	ENCAPSULATION_TUNNEL    EncapsulationMode = 1 // [RFC2407]
	ENCAPSULATION_TRANSPORT EncapsulationMode = 2
)

type IpsecAuthAlgorithm uint16

const (
	IPSEC_AUTH_NONE          IpsecAuthAlgorithm = 0
	IPSEC_AUTH_HMAC_MD5      IpsecAuthAlgorithm = 1 // [RFC2407]
	IPSEC_AUTH_HMAC_SHA      IpsecAuthAlgorithm = 2
	IPSEC_AUTH_HMAC_SHA2_256 IpsecAuthAlgorithm = 5 // [RFC4868]
)

/*
   +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
   ! Next Payload  !   RESERVED    !         Payload Length        !
   +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
   ~                       Key Exchange Data                       ~
   +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
*/
type KePayload struct {
	*PayloadHeader
	KeyData []byte
}

type IdType uint8

const (
	ID_IPV4_ADDR        IdType = 1 // [RFC2407]
	ID_FQDN             IdType = 2
	ID_USER_FQDN        IdType = 3
	ID_IPV4_ADDR_SUBNET IdType = 4
	ID_IPV6_ADDR        IdType = 5
	ID_IPV6_ADDR_SUBNET IdType = 6
	ID_IPV4_ADDR_RANGE  IdType = 7
	ID_IPV6_ADDR_RANGE  IdType = 8
	ID_DER_ASN1_DN      IdType = 9
	ID_DER_ASN1_GN      IdType = 10
	ID_KEY_ID           IdType = 11
)

/*
   +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
   ! Next Payload  !   RESERVED    !        Payload Length         !
   +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
   !   ID Type     !  Protocol ID  !             Port              !
   +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
   ~                     Identification Data                       ~
   +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
*/
type IdPayload struct {
	*PayloadHeader
	IdType     IdType
	ProtocolId uint8
	Port       uint16
	Data       []byte
}

type CertEncodingType uint8

const (
	PKCS_7_WRAPPED_X_509_CERTIFICATE CertEncodingType = 1
	PGP_CERTIFICATE                  CertEncodingType = 2
	DNS_SIGNED_KEY                   CertEncodingType = 3
	X_509_CERTIFICATE_SIGNATURE      CertEncodingType = 4
	X_509_CERTIFICATE_KEY_EXCHANGE   CertEncodingType = 5
	KERBEROS_TOKENS                  CertEncodingType = 6
	CERTIFICATE_REVOCATION_LIST      CertEncodingType = 7
	AUTHORITY_REVOCATION_LIST        CertEncodingType = 8
	SPKI_CERTIFICATE                 CertEncodingType = 9
	X_509_CERTIFICATE_ATTRIBUTE      CertEncodingType = 10
)

/*
   +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
   ! Next Payload  !   RESERVED    !         Payload Length        !
   +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
   ! Cert Encoding !                                               !
   +-+-+-+-+-+-+-+-+                                               !
   ~                       Certificate Data                        ~
   +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
*/
type CertPayload struct {
	*PayloadHeader
	CertEncodingType
	Data []byte
}

type CertRequestPayload struct {
	*PayloadHeader
	CertEncodingType
	Authority []byte
}

/*
   +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
   ! Next Payload  !   RESERVED    !         Payload Length        !
   +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
   ~                    Hash Data / Signature Data                 ~
   +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
*/
// HashPayload carries either HASH or SIG data
type HashPayload struct {
	*PayloadHeader
	HashPayloadType PayloadType
	Data            []byte
}

type NoncePayload struct {
	*PayloadHeader
	Data []byte
}

type NotificationType uint16

const (
	INVALID_PAYLOAD_TYPE       NotificationType = 1 // [RFC2408]
	DOI_NOT_SUPPORTED          NotificationType = 2
	SITUATION_NOT_SUPPORTED    NotificationType = 3
	INVALID_COOKIE             NotificationType = 4
	INVALID_MAJOR_VERSION      NotificationType = 5
	INVALID_MINOR_VERSION      NotificationType = 6
	INVALID_EXCHANGE_TYPE      NotificationType = 7
	INVALID_FLAGS              NotificationType = 8
	INVALID_MESSAGE_ID         NotificationType = 9
	INVALID_PROTOCOL_ID        NotificationType = 10
	INVALID_SPI                NotificationType = 11
	INVALID_TRANSFORM_ID       NotificationType = 12
	ATTRIBUTES_NOT_SUPPORTED   NotificationType = 13
	NO_PROPOSAL_CHOSEN         NotificationType = 14
	BAD_PROPOSAL_SYNTAX        NotificationType = 15
	PAYLOAD_MALFORMED          NotificationType = 16
	INVALID_KEY_INFORMATION    NotificationType = 17
	INVALID_ID_INFORMATION     NotificationType = 18
	INVALID_CERT_ENCODING      NotificationType = 19
	INVALID_CERTIFICATE        NotificationType = 20
	CERT_TYPE_UNSUPPORTED      NotificationType = 21
	INVALID_CERT_AUTHORITY     NotificationType = 22
	INVALID_HASH_INFORMATION   NotificationType = 23
	AUTHENTICATION_FAILED      NotificationType = 24
	INVALID_SIGNATURE          NotificationType = 25
	ADDRESS_NOTIFICATION       NotificationType = 26
	NOTIFY_SA_LIFETIME         NotificationType = 27
	CERTIFICATE_UNAVAILABLE    NotificationType = 28
	UNSUPPORTED_EXCHANGE_TYPE  NotificationType = 29
	UNEQUAL_PAYLOAD_LENGTHS    NotificationType = 30
	// 31-8191	Reserved (Future Use)
	// 8192-16383	Private Use

	CONNECTED NotificationType = 16384 // [RFC2408]

	// IPsec DOI status [RFC2407] 4.6.3
	RESPONDER_LIFETIME NotificationType = 24576
	REPLAY_STATUS      NotificationType = 24577
	INITIAL_CONTACT    NotificationType = 24578
)

// IsError is true for the error range of notify messages
func (n NotificationType) IsError() bool {
	return n > 0 && n < 8192
}

/*
   +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
   ! Next Payload  !   RESERVED    !         Payload Length        !
   +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
   !              Domain of Interpretation  (DOI)                  !
   +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
   !  Protocol-ID  !   SPI Size    !      Notify Message Type      !
   +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
   ~                Security Parameter Index (SPI)                 ~
   +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
   ~                       Notification Data                       ~
   +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
*/
type NotifyPayload struct {
	*PayloadHeader
	Doi              uint32
	ProtocolId       ProtocolId
	NotificationType NotificationType
	Spi              []byte
	Data             []byte
}

/*
   +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
   ! Next Payload  !   RESERVED    !         Payload Length        !
   +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
   !              Domain of Interpretation  (DOI)                  !
   +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
   !  Protocol-Id  !   SPI Size    !           # of SPIs           !
   +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
   ~               Security Parameter Index(es) (SPI)              ~
   +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
*/
type DeletePayload struct {
	*PayloadHeader
	Doi        uint32
	ProtocolId ProtocolId
	Spis       [][]byte
}

type VendorIdPayload struct {
	*PayloadHeader
	Data []byte
}
