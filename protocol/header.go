package protocol

import (
	"encoding/hex"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/msgboxio/packets"
)

func DecodeIsakmpHeader(b []byte) (h *IsakmpHeader, err error) {
	if len(b) < ISAKMP_HEADER_LEN {
		return nil, ErrF(ERR_INVALID_SYNTAX, "packet too short: %d", len(b))
	}
	h = &IsakmpHeader{}
	copy(h.CookieI[:], b[:8])
	copy(h.CookieR[:], b[8:16])
	pt, _ := packets.ReadB8(b, 16)
	h.NextPayload = PayloadType(pt)
	ver, _ := packets.ReadB8(b, 16+1)
	h.MajorVersion = ver >> 4
	h.MinorVersion = ver & 0x0f
	et, _ := packets.ReadB8(b, 16+2)
	h.ExchangeType = ExchangeType(et)
	flags, _ := packets.ReadB8(b, 16+3)
	h.Flags = IsakmpFlags(flags)
	h.MsgId, _ = packets.ReadB32(b, 16+4)
	h.MsgLength, _ = packets.ReadB32(b, ISAKMP_LENGTH_OFFSET)
	if h.MsgLength < ISAKMP_HEADER_LEN {
		return nil, ErrF(ERR_INVALID_SYNTAX, "header length too small: %d", h.MsgLength)
	}
	if h.MajorVersion != ISAKMP_MAJOR_VERSION {
		return nil, ErrF(ERR_INVALID_SYNTAX, "bad major version: %d", h.MajorVersion)
	}
	return
}

func (h *IsakmpHeader) Encode() (b []byte) {
	b = make([]byte, ISAKMP_HEADER_LEN)
	h.encodeInto(b)
	return
}

func (h *IsakmpHeader) encodeInto(b []byte) {
	copy(b, h.CookieI[:])
	copy(b[8:], h.CookieR[:])
	packets.WriteB8(b, 16, uint8(h.NextPayload))
	packets.WriteB8(b, 17, h.MajorVersion<<4|h.MinorVersion)
	packets.WriteB8(b, 18, uint8(h.ExchangeType))
	packets.WriteB8(b, 19, uint8(h.Flags))
	packets.WriteB32(b, 20, h.MsgId)
	packets.WriteB32(b, ISAKMP_LENGTH_OFFSET, h.MsgLength)
}

// Log dumps the header at debug level when packet logging is on
func (h *IsakmpHeader) Log(logger log.Logger, b []byte) {
	if !PacketLog {
		return
	}
	level.Debug(logger).Log("ISAKMP", h.ExchangeType, "flags", h.Flags,
		"msgid", h.MsgId, "len", h.MsgLength, "hdr", hex.EncodeToString(b[:ISAKMP_HEADER_LEN]))
}

// ReadLength returns the total length stored at the fixed header offset
func ReadLength(b []byte) (uint32, error) {
	if len(b) < ISAKMP_HEADER_LEN {
		return 0, ErrF(ERR_INVALID_SYNTAX, "packet too short: %d", len(b))
	}
	return packets.ReadB32(b, ISAKMP_LENGTH_OFFSET)
}

// WriteLength rewrites the total length at the fixed header offset
func WriteLength(b []byte, l uint32) error {
	if len(b) < ISAKMP_HEADER_LEN {
		return ErrF(ERR_INVALID_SYNTAX, "packet too short: %d", len(b))
	}
	packets.WriteB32(b, ISAKMP_LENGTH_OFFSET, l)
	return nil
}
