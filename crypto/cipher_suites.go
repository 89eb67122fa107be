package crypto

import (
	"hash"
	"io"
	"math/big"

	"github.com/msgboxio/ikev1/protocol"
	"github.com/pkg/errors"
)

var ErrUnsupported = errors.New("unsupported transform")

// CipherSuite is the crypto oracle for one negotiated phase 1 transform
type CipherSuite struct {
	protocol.Phase1Transform

	Prf      prfFunc
	PrfLen   int
	HashFunc func() hash.Hash

	DhGroup dhGroup

	// Lengths, in bytes
	KeyLen, BlockLen int

	Cipher cipherFunc
}

func NewCipherSuite(t protocol.Phase1Transform) (*CipherSuite, error) {
	cs := &CipherSuite{Phase1Transform: t}
	var ok bool
	if cs.HashFunc, cs.PrfLen, ok = hashTransform(t.Hash); !ok {
		return nil, errors.Wrapf(ErrUnsupported, "hash %s", t.Hash)
	}
	cs.Prf = macPrf(cs.HashFunc)
	if cs.DhGroup, ok = kexAlgoMap[t.Group]; !ok {
		return nil, errors.Wrapf(ErrUnsupported, "dh group %s", t.Group)
	}
	if cs.BlockLen, cs.KeyLen, cs.Cipher, ok = cipherTransform(t.Encr, t.KeyLength); !ok {
		return nil, errors.Wrapf(ErrUnsupported, "cipher %s key length %d", t.Encr, t.KeyLength)
	}
	switch t.Auth {
	case protocol.AUTH_PRE_SHARED_KEY, protocol.AUTH_RSA_SIG:
	default:
		return nil, errors.Wrapf(ErrUnsupported, "auth method %s", t.Auth)
	}
	return cs, nil
}

// GroupSupported reports whether a pfs group can be used for phase 2
func GroupSupported(g protocol.GroupDescription) bool {
	_, ok := kexAlgoMap[g]
	return ok
}

// GenerateKey returns a private value and the encoded public value
func GenerateKey(g protocol.GroupDescription, rand io.Reader) (private *big.Int, public []byte, err error) {
	grp, ok := kexAlgoMap[g]
	if !ok {
		return nil, nil, errors.Wrapf(ErrUnsupported, "dh group %s", g)
	}
	private, pub, err := grp.Generate(rand)
	if err != nil {
		return
	}
	public = padded(pub, grp.PublicLen())
	return
}

// SharedSecret computes g^xy from the peers encoded public value
func SharedSecret(g protocol.GroupDescription, theirPublic []byte, private *big.Int) ([]byte, error) {
	grp, ok := kexAlgoMap[g]
	if !ok {
		return nil, errors.Wrapf(ErrUnsupported, "dh group %s", g)
	}
	if len(theirPublic) != grp.PublicLen() {
		return nil, errors.Wrapf(errKeyExchange, "public value length %d != %d", len(theirPublic), grp.PublicLen())
	}
	s, err := grp.DiffieHellman(new(big.Int).SetBytes(theirPublic), private)
	if err != nil {
		return nil, err
	}
	return padded(s, grp.SecretLen()), nil
}

func (cs *CipherSuite) GenerateKey(rand io.Reader) (*big.Int, []byte, error) {
	return GenerateKey(cs.Group, rand)
}

func (cs *CipherSuite) SharedSecret(theirPublic []byte, private *big.Int) ([]byte, error) {
	return SharedSecret(cs.Group, theirPublic, private)
}

// IvPair holds the cbc chaining state of each direction
type IvPair struct {
	Enc, Dec []byte
}

func NewIvPair(iv []byte) *IvPair {
	return &IvPair{Enc: append([]byte{}, iv...), Dec: append([]byte{}, iv...)}
}

// SyncFromEnc makes the next inbound message chain off the last one sent
func (p *IvPair) SyncFromEnc() {
	p.Dec = append(p.Dec[:0], p.Enc...)
}

// SyncFromDec makes the next outbound message chain off the last one received
func (p *IvPair) SyncFromDec() {
	p.Enc = append(p.Enc[:0], p.Dec...)
}

func (p *IvPair) Clone() *IvPair {
	return &IvPair{Enc: append([]byte{}, p.Enc...), Dec: append([]byte{}, p.Dec...)}
}

// Encrypt pads b[offset:] with zeros to the block size and encrypts it in place.
// The returned slice shares b's storage when capacity allows.
func (cs *CipherSuite) Encrypt(b []byte, offset int, key []byte, iv *IvPair) ([]byte, error) {
	if len(iv.Enc) != cs.BlockLen {
		return b, errors.Errorf("iv length %d != %d", len(iv.Enc), cs.BlockLen)
	}
	if pad := (len(b) - offset) % cs.BlockLen; pad != 0 {
		b = append(b, make([]byte, cs.BlockLen-pad)...)
	}
	mode, err := cs.Cipher(key, iv.Enc, false)
	if err != nil {
		return b, err
	}
	clear := b[offset:]
	mode.CryptBlocks(clear, clear)
	iv.Enc = append(iv.Enc[:0], clear[len(clear)-cs.BlockLen:]...)
	return b, nil
}

// Decrypt decrypts b[offset:] in place; padding is left for the decoder to skip
func (cs *CipherSuite) Decrypt(b []byte, offset int, key []byte, iv *IvPair) error {
	enc := b[offset:]
	if len(enc) == 0 || len(enc)%cs.BlockLen != 0 {
		return errors.Errorf("ciphertext length %d is not a multiple of the block size", len(enc))
	}
	if len(iv.Dec) != cs.BlockLen {
		return errors.Errorf("iv length %d != %d", len(iv.Dec), cs.BlockLen)
	}
	mode, err := cs.Cipher(key, iv.Dec, true)
	if err != nil {
		return err
	}
	last := append([]byte{}, enc[len(enc)-cs.BlockLen:]...)
	mode.CryptBlocks(enc, enc)
	iv.Dec = append(iv.Dec[:0], last...)
	return nil
}
