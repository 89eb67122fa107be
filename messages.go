package ike

import (
	"crypto/md5"
	"net"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/msgboxio/ikev1/crypto"
	"github.com/msgboxio/ikev1/protocol"
	"github.com/pkg/errors"
)

// Message is a received isakmp datagram
type Message struct {
	Header                *protocol.IsakmpHeader
	Payloads              *protocol.Payloads
	LocalAddr, RemoteAddr net.Addr

	// the datagram as received, up to the header length
	Data []byte
	// decrypted copy of Data, once decrypted
	plain []byte
}

// DecodeMessage decodes the header, and the payloads of cleartext messages.
// Encrypted payloads are decoded once the receiving exchange has the keys
func DecodeMessage(b []byte, logger log.Logger) (msg *Message, err error) {
	hdr, err := protocol.DecodeIsakmpHeader(b)
	if err != nil {
		return
	}
	if len(b) < int(hdr.MsgLength) {
		return nil, protocol.ErrF(protocol.ERR_INVALID_SYNTAX, "datagram %d shorter than header length %d", len(b), hdr.MsgLength)
	}
	msg = &Message{
		Header: hdr,
		Data:   b[:hdr.MsgLength],
	}
	hdr.Log(logger, msg.Data)
	if hdr.Flags.IsEncrypted() {
		return
	}
	if msg.Payloads, err = protocol.DecodePayloads(msg.Data[protocol.ISAKMP_HEADER_LEN:], hdr.NextPayload, logger); err != nil {
		return nil, err
	}
	if msg.Payloads.WireLen() != len(msg.Data)-protocol.ISAKMP_HEADER_LEN {
		return nil, protocol.ErrF(protocol.ERR_INVALID_SYNTAX, "%d trailing bytes in cleartext message",
			len(msg.Data)-protocol.ISAKMP_HEADER_LEN-msg.Payloads.WireLen())
	}
	level.Debug(logger).Log("msg", "received", "exchange", hdr.ExchangeType, "flags", hdr.Flags,
		"msgid", hdr.MsgId, "payloads", msg.Payloads)
	return
}

// decrypt decrypts a copy of the message with the chaining state in iv, then decodes it
func (msg *Message) decrypt(suite *crypto.CipherSuite, key []byte, iv *crypto.IvPair, logger log.Logger) error {
	if !msg.Header.Flags.IsEncrypted() {
		return nil
	}
	if msg.plain != nil {
		return nil
	}
	plain := append([]byte{}, msg.Data...)
	if err := suite.Decrypt(plain, protocol.ISAKMP_HEADER_LEN, key, iv); err != nil {
		return errors.Wrap(protocol.ERR_PAYLOAD_MALFORMED, err.Error())
	}
	payloads, err := protocol.DecodePayloads(plain[protocol.ISAKMP_HEADER_LEN:], msg.Header.NextPayload, logger)
	if err != nil {
		return err
	}
	msg.plain = plain
	msg.Payloads = payloads
	level.Debug(logger).Log("msg", "decrypted", "exchange", msg.Header.ExchangeType,
		"msgid", msg.Header.MsgId, "payloads", payloads)
	return nil
}

// Plain returns the decrypted bytes, or the datagram itself when sent in the clear
func (msg *Message) Plain() []byte {
	if msg.plain != nil {
		return msg.plain
	}
	return msg.Data
}

// ensure fails with ErrMissingPayload when any of types is absent
func (msg *Message) ensure(types ...protocol.PayloadType) error {
	if msg.Payloads == nil {
		return errors.Wrap(ErrMissingPayload, "message not decoded")
	}
	for _, pt := range types {
		if msg.Payloads.Get(pt) == nil {
			return errors.Wrapf(ErrMissingPayload, "%s in %s", pt, msg.Header.ExchangeType)
		}
	}
	return nil
}

// digest identifies a datagram for duplicate detection
func (msg *Message) digest() [md5.Size]byte {
	return md5.Sum(msg.Data)
}
