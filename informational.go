package ike

import (
	"encoding/binary"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/msgboxio/ikev1/crypto"
	"github.com/msgboxio/ikev1/protocol"
	"github.com/msgboxio/ikev1/state"
	"github.com/pkg/errors"
)

// handleInformational processes notifications and deletes. Only messages
// protected by an isakmp SA may change state; cleartext ones are logged
func (e *Engine) handleInformational(msg *Message) error {
	hdr := msg.Header
	logger := log.With(e.logger, "from", msg.RemoteAddr, "msgid", hdr.MsgId)
	if !hdr.Flags.IsEncrypted() {
		if msg.Payloads == nil {
			return errors.Wrap(ErrMissingPayload, "informational")
		}
		for _, n := range msg.Payloads.GetNotifications() {
			level.Warn(logger).Log("msg", "unprotected notify", "notify", n.NotificationType)
		}
		return nil
	}
	sa, ok := e.dir.Get(SaKey{I: hdr.CookieI, R: hdr.CookieR})
	if !ok || sa.Keys == nil {
		return errors.Wrap(ErrInvalidCookie, "no isakmp sa for informational")
	}
	if hdr.MsgId == 0 {
		return errors.Wrap(ErrInvalidMessageId, "protected informational with message id 0")
	}
	iv := crypto.NewIvPair(sa.Suite.Phase2Iv(sa.Iv.Dec, hdr.MsgId))
	if err := msg.decrypt(sa.Suite, sa.Keys.EncKey, iv, logger); err != nil {
		return err
	}
	if err := verifyPhase2Hash(sa, msg, crypto.HASH_1, hdr.MsgId, nil, nil); err != nil {
		return err
	}
	for _, pl := range msg.Payloads.Array {
		switch pl := pl.(type) {
		case *protocol.NotifyPayload:
			e.onNotify(sa, pl, logger)
		case *protocol.DeletePayload:
			e.onDelete(sa, pl, logger)
		}
	}
	return nil
}

func (e *Engine) onNotify(sa *SA, n *protocol.NotifyPayload, logger log.Logger) {
	switch {
	case n.NotificationType == protocol.INITIAL_CONTACT:
		e.initialContact(sa)
	case n.NotificationType.IsError():
		level.Warn(logger).Log("msg", "peer reported error", "notify", n.NotificationType, "proto", n.ProtocolId)
		e.peerError(sa, n)
	default:
		level.Info(logger).Log("msg", "notify", "notify", n.NotificationType)
	}
}

// peerError abandons the negotiation the peer refused
func (e *Engine) peerError(sa *SA, n *protocol.NotifyPayload) {
	cause := errors.Errorf("peer: %s", n.NotificationType)
	if n.ProtocolId == protocol.PROTO_IPSEC_ESP {
		for _, p := range sa.phase2 {
			if !p.machine.IsComplete() && len(n.Spi) == 4 && string(n.Spi) == string(p.spiLocal) {
				e.failPhase2(p, cause)
			}
		}
		return
	}
	if p := sa.phase1; p != nil && !p.machine.IsComplete() {
		e.failPhase1(p, cause)
	}
}

func (e *Engine) onDelete(sa *SA, d *protocol.DeletePayload, logger log.Logger) {
	switch d.ProtocolId {
	case protocol.PROTO_ISAKMP:
		for _, spi := range d.Spis {
			if len(spi) != 2*protocol.COOKIE_LEN {
				continue
			}
			var key SaKey
			copy(key.I[:], spi[:protocol.COOKIE_LEN])
			copy(key.R[:], spi[protocol.COOKIE_LEN:])
			target, ok := e.dir.Get(key)
			// a peer may only delete SAs it shares with us
			if !ok || !sameAddr(target.Remote, sa.Remote) {
				continue
			}
			level.Info(logger).Log("msg", "peer deleted isakmp sa", "isakmp", key)
			e.deleteSa(target, ErrSaDeleted)
		}
	case protocol.PROTO_IPSEC_ESP:
		for _, spi := range d.Spis {
			if len(spi) != 4 {
				continue
			}
			e.removeChild(sa, binary.BigEndian.Uint32(spi), logger)
		}
	default:
		level.Warn(logger).Log("msg", "delete for unsupported protocol", "proto", d.ProtocolId)
	}
}

// removeChild removes the esp SA pair whose outbound spi the peer deleted
func (e *Engine) removeChild(sa *SA, spi uint32, logger log.Logger) {
	for idx, c := range sa.children {
		if c.spiRemote != spi {
			continue
		}
		level.Info(logger).Log("msg", "peer deleted esp sa", "esp", c.params)
		e.uninstall(sa, c)
		sa.children = append(sa.children[:idx], sa.children[idx+1:]...)
		return
	}
}

// deleteSa marks an admitted SA deleted and queues its removal
func (e *Engine) deleteSa(sa *SA, cause error) {
	if sa.IsDeleted() {
		return
	}
	if sa.phase1 != nil {
		sa.phase1.deleted = true
	}
	e.enqueue(deferredEvent{event: state.REMOVE_SA, key: sa.Key(), cause: cause})
}

// initialContact drops every other isakmp SA with the peer of sa
func (e *Engine) initialContact(sa *SA) {
	e.dir.ForEach(func(other *SA) {
		if other.Key() == sa.Key() || !sameAddr(other.Remote, sa.Remote) {
			return
		}
		level.Info(e.logger).Log("msg", "initial contact, dropping old sa", "isakmp", other.Key())
		e.deleteSa(other, ErrSaDeleted)
	})
}
