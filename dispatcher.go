package ike

import (
	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/msgboxio/ikev1/protocol"
	"github.com/pkg/errors"
)

// send encodes the staged payloads of ex, fills a leading HASH, encrypts
// when the E flag is set, and transmits. Every new message but an
// informational one arms a fresh resend timer
func (e *Engine) send(ex exchange) (err error) {
	n := ex.base()
	if n == nil {
		return ErrNoHandle
	}
	sa := n.ref.resolve(e.dir)
	if sa == nil {
		return ErrNoSa
	}
	n.hdr.CookieI, n.hdr.CookieR = sa.CookieI, sa.CookieR
	buf := n.lastMessage
	if buf == nil {
		buf = make([]byte, 0, e.cfg.MaxPacketLen)
	}
	defer func() {
		// a transport failure keeps the buffer for a later resend
		if ex.isInformational() || (err != nil && errors.Cause(err) != ErrTransport) {
			n.releaseBuffer()
		}
	}()
	if buf, err = protocol.EncodeMessage(buf[:0], &n.hdr, n.out, e.cfg.MaxPacketLen, n.logger); err != nil {
		return errors.Wrap(err, "encode")
	}
	if n.out.First() == protocol.PayloadTypeHASH {
		if err = ex.fillHash(sa, buf); err != nil {
			return errors.Wrap(err, "hash")
		}
	}
	if n.hdr.Flags.IsEncrypted() {
		if sa.Suite == nil || sa.Keys == nil {
			return errors.Wrap(ErrNoSa, "no keys to encrypt with")
		}
		// padding to the cipher block must still fit
		body := len(buf) - protocol.ISAKMP_HEADER_LEN
		padded := protocol.ISAKMP_HEADER_LEN + (body+sa.Suite.BlockLen-1)/sa.Suite.BlockLen*sa.Suite.BlockLen
		if padded > e.cfg.MaxPacketLen {
			return protocol.ErrF(protocol.ERR_BUFFER_TOO_SMALL, "encrypted length %d exceeds %d", padded, e.cfg.MaxPacketLen)
		}
		if buf, err = sa.Suite.Encrypt(buf, protocol.ISAKMP_HEADER_LEN, sa.Keys.EncKey, ex.ivs(sa)); err != nil {
			return errors.Wrap(err, "encrypt")
		}
		n.hdr.MsgLength = uint32(len(buf))
		if err = protocol.WriteLength(buf, n.hdr.MsgLength); err != nil {
			return err
		}
	}
	n.lastMessage = buf
	if n.in != nil {
		n.replied = true
	}
	if err = e.conn.WritePacket(buf, n.remote); err != nil {
		return errors.Wrapf(ErrTransport, "%s: %v", n.hdr.ExchangeType, err)
	}
	level.Debug(n.logger).Log("msg", "sent", "exchange", n.hdr.ExchangeType, "flags", n.hdr.Flags,
		"msgid", n.hdr.MsgId, "len", len(buf), "payloads", n.out)
	if ex.isInformational() {
		return nil
	}
	n.resendBudget = e.cfg.ResendCount
	e.timers.Set(ex.timerKey(), e.cfg.ResendInterval)
	return nil
}

// sendInformational sends payloads on sa, protected by HASH(1) once the SA has keys
func (e *Engine) sendInformational(sa *SA, payloads ...protocol.Payload) error {
	msgId, err := e.newMsgId()
	if err != nil {
		return err
	}
	x := &infoExchange{
		negotiation: negotiation{
			ref:    localSa{sa},
			remote: sa.Remote,
			hdr: protocol.IsakmpHeader{
				CookieI:      sa.CookieI,
				CookieR:      sa.CookieR,
				MajorVersion: protocol.ISAKMP_MAJOR_VERSION,
				MinorVersion: protocol.ISAKMP_MINOR_VERSION,
				ExchangeType: protocol.EXCHANGE_INFORMATIONAL,
			},
			logger: log.With(e.logger, "isakmp", sa.Key()),
		},
		msgId: msgId,
	}
	x.hdr.MsgId = x.msgId
	flags := protocol.IsakmpFlags(0)
	protected := sa.Established && sa.Keys != nil
	if protected {
		flags = protocol.FLAG_ENCRYPTION
		x.iv = newPhase2Iv(sa, x.msgId)
	}
	out := x.outbound(flags)
	if protected {
		out.Add(protocol.NewHashSlot(sa.Suite.PrfLen))
	}
	for _, pl := range payloads {
		out.Add(pl)
	}
	return e.send(x)
}

func (e *Engine) sendNotify(sa *SA, nt protocol.NotificationType, protocolId protocol.ProtocolId, spi []byte) error {
	return e.sendInformational(sa, &protocol.NotifyPayload{
		PayloadHeader:    &protocol.PayloadHeader{},
		Doi:              protocol.DOI_IPSEC,
		ProtocolId:       protocolId,
		NotificationType: nt,
		Spi:              spi,
	})
}

// sendDelete tells the peer the isakmp SA is gone
func (e *Engine) sendDelete(sa *SA) {
	spi := append(append([]byte{}, sa.CookieI[:]...), sa.CookieR[:]...)
	err := e.sendInformational(sa, &protocol.DeletePayload{
		PayloadHeader: &protocol.PayloadHeader{},
		Doi:           protocol.DOI_IPSEC,
		ProtocolId:    protocol.PROTO_ISAKMP,
		Spis:          [][]byte{spi},
	})
	if err != nil {
		level.Warn(e.logger).Log("msg", "delete not sent", "isakmp", sa.Key(), "err", err)
	}
}

// reportFailure tells the peer why a negotiation was abandoned
func (e *Engine) reportFailure(sa *SA, cause error, protocolId protocol.ProtocolId, spi []byte) {
	switch KindOf(cause) {
	case Structural, Policy, Auth:
	default:
		return
	}
	nt := NotifyOf(cause)
	if nt == 0 || sa == nil {
		return
	}
	if err := e.sendNotify(sa, nt, protocolId, spi); err != nil {
		level.Warn(e.logger).Log("msg", "notify not sent", "notify", nt, "err", err)
	}
}
