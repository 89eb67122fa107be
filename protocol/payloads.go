package protocol

import (
	"encoding/hex"

	"github.com/davecgh/go-spew/spew"
	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
)

// PacketLog enables payload dumps at debug level
var PacketLog = false

type validator interface {
	Validate() error
}

// Payloads is an ordered payload chain; bodies holds the
// encoded or received body of each payload, generic header excluded
type Payloads struct {
	Array  []Payload
	bodies [][]byte
	// bytes consumed by the chain when decoded
	wireLen int
}

func MakePayloads() *Payloads {
	return &Payloads{}
}

func (p *Payloads) Get(t PayloadType) Payload {
	for _, pl := range p.Array {
		if pl.Type() == t {
			return pl
		}
	}
	return nil
}

func (p *Payloads) GetAll(t PayloadType) (pls []Payload) {
	for _, pl := range p.Array {
		if pl.Type() == t {
			pls = append(pls, pl)
		}
	}
	return
}

func (p *Payloads) Add(t Payload) {
	p.Array = append(p.Array, t)
	p.bodies = append(p.bodies, nil)
}

func (p *Payloads) Len() int {
	return len(p.Array)
}

// WireLen is the length of the decoded chain, padding excluded
func (p *Payloads) WireLen() int {
	return p.wireLen
}

// First returns the type of the leading payload
func (p *Payloads) First() PayloadType {
	if len(p.Array) == 0 {
		return PayloadTypeNone
	}
	return p.Array[0].Type()
}

// Body returns the raw body of the first payload of type t
func (p *Payloads) Body(t PayloadType) []byte {
	for idx, pl := range p.Array {
		if pl.Type() == t && idx < len(p.bodies) {
			return p.bodies[idx]
		}
	}
	return nil
}

// BodyAt returns the raw body of payload idx
func (p *Payloads) BodyAt(idx int) []byte {
	if idx < 0 || idx >= len(p.bodies) {
		return nil
	}
	return p.bodies[idx]
}

func (p *Payloads) GetNotifications() (ns []*NotifyPayload) {
	for _, pl := range p.Array {
		if pl.Type() == PayloadTypeN {
			ns = append(ns, pl.(*NotifyPayload))
		}
	}
	return
}

func (p *Payloads) GetNotification(nt NotificationType) *NotifyPayload {
	for _, n := range p.GetNotifications() {
		if n.NotificationType == nt {
			return n
		}
	}
	return nil
}

func (p *Payloads) GetIds() (ids []*IdPayload) {
	for _, pl := range p.Array {
		if pl.Type() == PayloadTypeID {
			ids = append(ids, pl.(*IdPayload))
		}
	}
	return
}

func (p *Payloads) GetCerts() (certs []*CertPayload) {
	for _, pl := range p.Array {
		if pl.Type() == PayloadTypeCERT {
			certs = append(certs, pl.(*CertPayload))
		}
	}
	return
}

func newPayload(t PayloadType, h *PayloadHeader) (Payload, error) {
	switch t {
	case PayloadTypeSA:
		return &SaPayload{PayloadHeader: h}, nil
	case PayloadTypeKE:
		return &KePayload{PayloadHeader: h}, nil
	case PayloadTypeID:
		return &IdPayload{PayloadHeader: h}, nil
	case PayloadTypeCERT:
		return &CertPayload{PayloadHeader: h}, nil
	case PayloadTypeCR:
		return &CertRequestPayload{PayloadHeader: h}, nil
	case PayloadTypeHASH, PayloadTypeSIG:
		return &HashPayload{PayloadHeader: h, HashPayloadType: t}, nil
	case PayloadTypeNonce:
		return &NoncePayload{PayloadHeader: h}, nil
	case PayloadTypeN:
		return &NotifyPayload{PayloadHeader: h}, nil
	case PayloadTypeD:
		return &DeletePayload{PayloadHeader: h}, nil
	case PayloadTypeVID:
		return &VendorIdPayload{PayloadHeader: h}, nil
	}
	return nil, ErrF(ERR_INVALID_SYNTAX, "invalid payload type received: 0x%x", uint8(t))
}

func DecodePayloads(b []byte, nextPayload PayloadType, logger log.Logger) (*Payloads, error) {
	payloads := MakePayloads()
	total := len(b)
	for nextPayload != PayloadTypeNone {
		if len(b) < PAYLOAD_HEADER_LENGTH {
			return nil, ErrF(ERR_INVALID_SYNTAX,
				"payload is too small, %d < %d", len(b), PAYLOAD_HEADER_LENGTH)
		}
		pHeader := &PayloadHeader{}
		if err := pHeader.Decode(b[:PAYLOAD_HEADER_LENGTH]); err != nil {
			return nil, err
		}
		if (len(b) < int(pHeader.PayloadLength)) ||
			(int(pHeader.PayloadLength) < PAYLOAD_HEADER_LENGTH) {
			return nil, ErrF(ERR_INVALID_SYNTAX, "incorrect payload length in payload header: %d", pHeader.PayloadLength)
		}
		payload, err := newPayload(nextPayload, pHeader)
		if err != nil {
			return nil, err
		}
		pbuf := b[PAYLOAD_HEADER_LENGTH:pHeader.PayloadLength]
		if err := payload.Decode(pbuf); err != nil {
			return nil, err
		}
		if PacketLog {
			level.Debug(logger).Log("decoded", payload.Type(), "payload", spew.Sdump(payload), "raw", hex.Dump(pbuf))
		}
		payloads.Array = append(payloads.Array, payload)
		payloads.bodies = append(payloads.bodies, pbuf)
		nextPayload = pHeader.NextPayload
		b = b[pHeader.PayloadLength:]
	}
	// trailing bytes may be cbc padding; callers of cleartext messages check
	payloads.wireLen = total - len(b)
	return payloads, nil
}

// EncodePayloads chains the payloads, fixing up next payload and length fields
func EncodePayloads(payloads *Payloads, logger log.Logger) (b []byte, err error) {
	if payloads == nil || len(payloads.Array) == 0 {
		return nil, ErrF(ERR_PAYLOAD_MALFORMED, "empty payload chain")
	}
	payloads.bodies = make([][]byte, len(payloads.Array))
	for idx, pl := range payloads.Array {
		if pl == nil {
			return nil, ErrF(ERR_PAYLOAD_MALFORMED, "nil payload at %d", idx)
		}
		if v, ok := pl.(validator); ok {
			if err = v.Validate(); err != nil {
				return nil, err
			}
		}
		body := pl.Encode()
		if len(body)+PAYLOAD_HEADER_LENGTH > 0xffff {
			return nil, ErrF(ERR_PAYLOAD_MALFORMED, "payload %s too large: %d", pl.Type(), len(body))
		}
		hdr := pl.Header()
		hdr.PayloadLength = uint16(len(body))
		next := PayloadTypeNone
		if idx < len(payloads.Array)-1 {
			next = payloads.Array[idx+1].Type()
		}
		hdr.NextPayload = next
		payloads.bodies[idx] = body
		if PacketLog {
			level.Debug(logger).Log("encoded", pl.Type(), "payload", spew.Sdump(pl), "raw", hex.Dump(body))
		}
		b = append(b, hdr.Encode()...)
		b = append(b, body...)
	}
	return
}

// EncodeMessage writes header and payloads into buf, reusing its capacity
func EncodeMessage(buf []byte, hdr *IsakmpHeader, payloads *Payloads, maxLen int, logger log.Logger) ([]byte, error) {
	body, err := EncodePayloads(payloads, logger)
	if err != nil {
		return buf, err
	}
	total := ISAKMP_HEADER_LEN + len(body)
	if total > maxLen {
		return buf, ErrF(ERR_BUFFER_TOO_SMALL, "message length %d exceeds %d", total, maxLen)
	}
	hdr.NextPayload = payloads.First()
	hdr.MsgLength = uint32(total)
	if cap(buf) < total {
		buf = make([]byte, total, maxLen)
	}
	buf = buf[:ISAKMP_HEADER_LEN]
	hdr.encodeInto(buf)
	buf = append(buf, body...)
	hdr.Log(logger, buf)
	return buf, nil
}

// HashSlot locates the digest of a leading HASH payload in an encoded
// message, and the bytes following that payload which it authenticates
func HashSlot(b []byte) (slot, rest []byte, err error) {
	if len(b) < ISAKMP_HEADER_LEN+PAYLOAD_HEADER_LENGTH {
		return nil, nil, ErrF(ERR_INVALID_SYNTAX, "message too short: %d", len(b))
	}
	if PayloadType(b[16]) != PayloadTypeHASH {
		return nil, nil, ErrF(ERR_PAYLOAD_MALFORMED, "first payload is %s", PayloadType(b[16]))
	}
	h := &PayloadHeader{}
	if err = h.Decode(b[ISAKMP_HEADER_LEN:]); err != nil {
		return
	}
	end := ISAKMP_HEADER_LEN + int(h.PayloadLength)
	if int(h.PayloadLength) < PAYLOAD_HEADER_LENGTH || end > len(b) {
		return nil, nil, ErrF(ERR_INVALID_SYNTAX, "bad hash payload length: %d", h.PayloadLength)
	}
	return b[ISAKMP_HEADER_LEN+PAYLOAD_HEADER_LENGTH : end], b[end:], nil
}
