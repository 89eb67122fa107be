package crypto

import (
	"encoding/binary"

	"github.com/msgboxio/ikev1/protocol"
)

// KeyMaterial is the keying state of an isakmp SA [RFC2409] 5
type KeyMaterial struct {
	Skeyid, SkeyidD, SkeyidA, SkeyidE []byte
	// cipher key, expanded from SKEYID_e
	EncKey []byte
}

// SkeyidPsk: SKEYID = prf(pre-shared-key, Ni_b | Nr_b)
func (cs *CipherSuite) SkeyidPsk(psk, ni, nr []byte) []byte {
	return cs.Prf(psk, concat(ni, nr))
}

// SkeyidSig: SKEYID = prf(Ni_b | Nr_b, g^xy)
func (cs *CipherSuite) SkeyidSig(ni, nr, gxy []byte) []byte {
	return cs.Prf(concat(ni, nr), gxy)
}

func (cs *CipherSuite) Skeyid(psk, ni, nr, gxy []byte) []byte {
	if cs.Auth.IsSignature() {
		return cs.SkeyidSig(ni, nr, gxy)
	}
	return cs.SkeyidPsk(psk, ni, nr)
}

func (cs *CipherSuite) DeriveKeys(skeyid, gxy []byte, ckyI, ckyR protocol.Cookie) *KeyMaterial {
	km := &KeyMaterial{Skeyid: skeyid}
	km.SkeyidD = cs.Prf(skeyid, concat(gxy, ckyI[:], ckyR[:], []byte{0}))
	km.SkeyidA = cs.Prf(skeyid, concat(km.SkeyidD, gxy, ckyI[:], ckyR[:], []byte{1}))
	km.SkeyidE = cs.Prf(skeyid, concat(km.SkeyidA, gxy, ckyI[:], ckyR[:], []byte{2}))
	km.EncKey = cs.expandKey(km.SkeyidE)
	return km
}

// expandKey implements [RFC2409] Appendix B
func (cs *CipherSuite) expandKey(skeyidE []byte) []byte {
	if len(skeyidE) >= cs.KeyLen {
		return append([]byte{}, skeyidE[:cs.KeyLen]...)
	}
	k := cs.Prf(skeyidE, []byte{0})
	ka := append([]byte{}, k...)
	for len(ka) < cs.KeyLen {
		k = cs.Prf(skeyidE, k)
		ka = append(ka, k...)
	}
	return ka[:cs.KeyLen]
}

func (cs *CipherSuite) hash(data ...[]byte) []byte {
	h := cs.HashFunc()
	for _, d := range data {
		h.Write(d)
	}
	return h.Sum(nil)
}

// InitialIv is hash(g^xi | g^xr), truncated to the block size
func (cs *CipherSuite) InitialIv(gxi, gxr []byte) []byte {
	return cs.hash(gxi, gxr)[:cs.BlockLen]
}

// Phase2Iv is hash(last phase 1 cbc block | M-ID)
func (cs *CipherSuite) Phase2Iv(lastBlock []byte, msgId uint32) []byte {
	return cs.hash(lastBlock, msgIdBytes(msgId))[:cs.BlockLen]
}

// HashI = prf(SKEYID, g^xi | g^xr | CKY-I | CKY-R | SAi_b | IDii_b)
func (cs *CipherSuite) HashI(skeyid, gxi, gxr []byte, ckyI, ckyR protocol.Cookie, saiB, idiiB []byte) []byte {
	return cs.Prf(skeyid, concat(gxi, gxr, ckyI[:], ckyR[:], saiB, idiiB))
}

// HashR = prf(SKEYID, g^xr | g^xi | CKY-R | CKY-I | SAi_b | IDir_b)
func (cs *CipherSuite) HashR(skeyid, gxi, gxr []byte, ckyI, ckyR protocol.Cookie, saiB, idirB []byte) []byte {
	return cs.Prf(skeyid, concat(gxr, gxi, ckyR[:], ckyI[:], saiB, idirB))
}

type HashKind int

const (
	HASH_1 HashKind = iota + 1
	HASH_2
	HASH_3
	HASH_4
)

// PhaseTwoHash computes the HASH(n) that authenticates quick mode and
// informational messages; rest is the message after the HASH payload
//
//	HASH(1) = prf(SKEYID_a, M-ID | rest)
//	HASH(2) = prf(SKEYID_a, M-ID | Ni_b | rest)
//	HASH(3) = prf(SKEYID_a, 0 | M-ID | Ni_b | Nr_b)
//	HASH(4) = prf(SKEYID_a, M-ID | rest), the commit acknowledgement
func (cs *CipherSuite) PhaseTwoHash(kind HashKind, skeyidA []byte, msgId uint32, niB, nrB, rest []byte) []byte {
	mid := msgIdBytes(msgId)
	switch kind {
	case HASH_2:
		return cs.Prf(skeyidA, concat(mid, niB, rest))
	case HASH_3:
		return cs.Prf(skeyidA, concat([]byte{0}, mid, niB, nrB))
	default:
		return cs.Prf(skeyidA, concat(mid, rest))
	}
}

// Keymat derives length bytes of ipsec keying material [RFC2409] 5.5
//
//	KEYMAT = K1 | K2 | ...
//	K1 = prf(SKEYID_d, [g(qm)^xy |] protocol | SPI | Ni_b | Nr_b)
//	Kn = prf(SKEYID_d, Kn-1 | [g(qm)^xy |] protocol | SPI | Ni_b | Nr_b)
func (cs *CipherSuite) Keymat(skeyidD, gqmxy []byte, proto protocol.ProtocolId, spi, niB, nrB []byte, length int) []byte {
	seed := concat(gqmxy, []byte{uint8(proto)}, spi, niB, nrB)
	k := cs.Prf(skeyidD, seed)
	keymat := append([]byte{}, k...)
	for len(keymat) < length {
		k = cs.Prf(skeyidD, concat(k, seed))
		keymat = append(keymat, k...)
	}
	return keymat[:length]
}

func msgIdBytes(msgId uint32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, msgId)
	return b
}
