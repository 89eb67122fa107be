package protocol

import (
	"bytes"

	"github.com/msgboxio/packets"
)

//   Proposal Substructure

func (prop *SaProposal) IsSpiSizeCorrect(spiSize int) bool {
	switch prop.ProtocolId {
	case PROTO_ISAKMP:
		// spi is optional for isakmp, the cookies identify the SA
		return spiSize == 0 || spiSize == 16
	case PROTO_IPSEC_ESP, PROTO_IPSEC_AH:
		return spiSize == 4
	}
	return false
}

func decodeProposal(b []byte) (prop *SaProposal, used int, err error) {
	if len(b) < MIN_LEN_PROPOSAL {
		err = ErrF(ERR_INVALID_SYNTAX, "proposal too small %d < %d", len(b), MIN_LEN_PROPOSAL)
		return
	}
	prop = &SaProposal{}
	if last, _ := packets.ReadB8(b, 0); last == 0 {
		prop.IsLast = true
	} else if last != uint8(PayloadTypeP) {
		err = ErrF(ERR_INVALID_SYNTAX, "bad proposal next payload %d", last)
		return
	}
	propLength, _ := packets.ReadB16(b, 2)
	prop.Number, _ = packets.ReadB8(b, 4)
	pId, _ := packets.ReadB8(b, 5)
	prop.ProtocolId = ProtocolId(pId)
	spiSize, _ := packets.ReadB8(b, 6)
	numTransforms, _ := packets.ReadB8(b, 7)
	if !prop.IsSpiSizeCorrect(int(spiSize)) {
		err = ErrF(ERR_INVALID_SYNTAX, "bad spi size %d for protocol %s", spiSize, prop.ProtocolId)
		return
	}
	if int(numTransforms) > MAX_TRANSFORMS {
		err = ErrF(ERR_PAYLOAD_MALFORMED, "too many transforms: %d", numTransforms)
		return
	}
	// spi
	used = MIN_LEN_PROPOSAL + int(spiSize)
	if (int(propLength) < used) || len(b) < int(propLength) {
		err = ErrF(ERR_INVALID_SYNTAX, "invalid proposal length %d, have %d", propLength, len(b))
		return
	}
	prop.Spi = append([]byte{}, b[MIN_LEN_PROPOSAL:used]...)
	b = b[used:int(propLength)]
	for len(b) > 0 {
		trans, usedT, errT := decodeTransform(b)
		if errT != nil {
			err = errT
			return
		}
		prop.Transforms = append(prop.Transforms, trans)
		b = b[usedT:]
		if trans.IsLast {
			if len(b) > 0 {
				err = ErrF(ERR_INVALID_SYNTAX, "extra bytes at end of proposal: %d", len(b))
				return
			}
			break
		}
		if len(prop.Transforms) == MAX_TRANSFORMS && len(b) > 0 {
			err = ErrF(ERR_PAYLOAD_MALFORMED, "more than %d transforms", MAX_TRANSFORMS)
			return
		}
	}
	if len(prop.Transforms) != int(numTransforms) {
		err = ErrF(ERR_INVALID_SYNTAX, "incorrect number of transforms: %d != %d",
			len(prop.Transforms), numTransforms)
		return
	}
	used = int(propLength)
	return
}

func (prop *SaProposal) encode(isLast bool) (b []byte) {
	b = make([]byte, MIN_LEN_PROPOSAL)
	if !isLast {
		packets.WriteB8(b, 0, uint8(PayloadTypeP))
	}
	packets.WriteB8(b, 4, prop.Number)
	packets.WriteB8(b, 5, uint8(prop.ProtocolId))
	packets.WriteB8(b, 6, uint8(len(prop.Spi)))
	packets.WriteB8(b, 7, uint8(len(prop.Transforms)))
	b = append(b, prop.Spi...)
	for idx, tr := range prop.Transforms {
		isLast := idx == len(prop.Transforms)-1
		b = append(b, tr.encode(isLast)...)
	}
	packets.WriteB16(b, 2, uint16(len(b)))
	return
}

// IsEqual compares proposal contents; numbering and ordering flags are ignored
func (prop *SaProposal) IsEqual(other *SaProposal) bool {
	if prop == nil || other == nil {
		return false
	}
	if prop.ProtocolId != other.ProtocolId || !bytes.Equal(prop.Spi, other.Spi) {
		return false
	}
	if len(prop.Transforms) != len(other.Transforms) {
		return false
	}
	for i := range prop.Transforms {
		if !prop.Transforms[i].IsEqual(other.Transforms[i]) {
			return false
		}
	}
	return true
}
