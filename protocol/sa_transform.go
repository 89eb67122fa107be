package protocol

import (
	"bytes"

	"github.com/msgboxio/packets"
)

//   Transform Substructure

func decodeAttribute(b []byte) (attr *Attribute, used int, err error) {
	if len(b) < MIN_LEN_ATTRIBUTE {
		err = ErrF(ERR_INVALID_SYNTAX, "attribute too small %d < %d", len(b), MIN_LEN_ATTRIBUTE)
		return
	}
	at, _ := packets.ReadB16(b, 0)
	attr = &Attribute{Type: AttributeType(at &^ ATTRIBUTE_FORMAT_TV)}
	val, _ := packets.ReadB16(b, 2)
	if at&ATTRIBUTE_FORMAT_TV != 0 {
		attr.Value = val
		used = MIN_LEN_ATTRIBUTE
		return
	}
	used = MIN_LEN_ATTRIBUTE + int(val)
	if len(b) < used {
		err = ErrF(ERR_INVALID_SYNTAX, "attribute %d length %d exceeds %d", attr.Type, val, len(b))
		return
	}
	attr.Data = append([]byte{}, b[MIN_LEN_ATTRIBUTE:used]...)
	return
}

func (attr *Attribute) encode() (b []byte) {
	b = make([]byte, MIN_LEN_ATTRIBUTE)
	if attr.Data == nil {
		packets.WriteB16(b, 0, uint16(attr.Type)|ATTRIBUTE_FORMAT_TV)
		packets.WriteB16(b, 2, attr.Value)
		return
	}
	packets.WriteB16(b, 0, uint16(attr.Type))
	packets.WriteB16(b, 2, uint16(len(attr.Data)))
	return append(b, attr.Data...)
}

// Uint returns the attribute value, whichever format carried it
func (attr *Attribute) Uint() uint64 {
	if attr.Data == nil {
		return uint64(attr.Value)
	}
	var v uint64
	for _, c := range attr.Data {
		v = v<<8 | uint64(c)
	}
	return v
}

func (attr *Attribute) IsEqual(other *Attribute) bool {
	return attr.Type == other.Type && attr.Uint() == other.Uint() &&
		(attr.Data == nil) == (other.Data == nil) && bytes.Equal(attr.Data, other.Data)
}

// NewAttribute picks the basic format when v fits
func NewAttribute(t AttributeType, v uint64) *Attribute {
	if v <= 0xffff {
		return &Attribute{Type: t, Value: uint16(v)}
	}
	data := make([]byte, 4)
	packets.WriteB32(data, 0, uint32(v))
	return &Attribute{Type: t, Data: data}
}

func decodeTransform(b []byte) (trans *SaTransform, used int, err error) {
	if len(b) < MIN_LEN_TRANSFORM {
		err = ErrF(ERR_INVALID_SYNTAX, "transform too small %d < %d", len(b), MIN_LEN_TRANSFORM)
		return
	}
	trans = &SaTransform{}
	if last, _ := packets.ReadB8(b, 0); last == 0 {
		trans.IsLast = true
	} else if last != uint8(PayloadTypeT) {
		err = ErrF(ERR_INVALID_SYNTAX, "bad transform next payload %d", last)
		return
	}
	trLength, _ := packets.ReadB16(b, 2)
	if len(b) < int(trLength) || int(trLength) < MIN_LEN_TRANSFORM {
		err = ErrF(ERR_INVALID_SYNTAX, "invalid transform length %d, have %d", trLength, len(b))
		return
	}
	trans.Number, _ = packets.ReadB8(b, 4)
	trans.TransformId, _ = packets.ReadB8(b, 5)
	// variable parts
	b = b[MIN_LEN_TRANSFORM:int(trLength)]
	for len(b) > 0 {
		attr, attrUsed, attrErr := decodeAttribute(b)
		if attrErr != nil {
			err = attrErr
			return
		}
		if len(trans.Attributes) == MAX_ATTRIBUTES {
			err = ErrF(ERR_PAYLOAD_MALFORMED, "too many attributes")
			return
		}
		b = b[attrUsed:]
		trans.Attributes = append(trans.Attributes, attr)
	}
	used = int(trLength)
	return
}

func (trans *SaTransform) encode(isLast bool) (b []byte) {
	b = make([]byte, MIN_LEN_TRANSFORM)
	if !isLast {
		packets.WriteB8(b, 0, uint8(PayloadTypeT))
	}
	packets.WriteB8(b, 4, trans.Number)
	packets.WriteB8(b, 5, trans.TransformId)
	for _, attr := range trans.Attributes {
		b = append(b, attr.encode()...)
	}
	packets.WriteB16(b, 2, uint16(len(b)))
	return
}

func (trans *SaTransform) Attribute(t AttributeType) *Attribute {
	for _, attr := range trans.Attributes {
		if attr.Type == t {
			return attr
		}
	}
	return nil
}

// Value returns the value of attribute t, or 0 when absent
func (trans *SaTransform) Value(t AttributeType) (uint64, bool) {
	if attr := trans.Attribute(t); attr != nil {
		return attr.Uint(), true
	}
	return 0, false
}

// IsEqual ignores transform numbering and attribute order
func (trans *SaTransform) IsEqual(other *SaTransform) bool {
	if trans == nil || other == nil {
		return false
	}
	if trans.TransformId != other.TransformId || len(trans.Attributes) != len(other.Attributes) {
		return false
	}
	for _, attr := range trans.Attributes {
		o := other.Attribute(attr.Type)
		if o == nil || !attr.IsEqual(o) {
			return false
		}
	}
	return true
}
