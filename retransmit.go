package ike

import (
	"encoding/binary"
	"time"

	"github.com/go-kit/kit/log/level"
	"github.com/msgboxio/ikev1/platform"
	"github.com/msgboxio/ikev1/protocol"
	"github.com/msgboxio/ikev1/state"
	"github.com/pkg/errors"
)

// resend transmits the buffered message of ex again, byte for byte.
// The budget is spent whether or not the transport succeeds
func (e *Engine) resend(ex exchange) error {
	if ex == nil {
		return ErrNoHandle
	}
	n := ex.base()
	if n == nil {
		return ErrNoHandle
	}
	if n.ref == nil || n.ref.resolve(e.dir) == nil {
		return ErrNoSa
	}
	if n.lastMessage == nil {
		return ErrNotBuffered
	}
	if n.resendBudget <= 0 {
		return ErrResendExhausted
	}
	l, err := protocol.ReadLength(n.lastMessage)
	if err != nil || int(l) > len(n.lastMessage) {
		n.releaseBuffer()
		return errors.Wrap(ErrNotBuffered, "corrupt buffer")
	}
	n.resendBudget--
	if err := e.conn.WritePacket(n.lastMessage[:l], n.remote); err != nil {
		return errors.Wrapf(ErrTransport, "resend: %v", err)
	}
	level.Debug(n.logger).Log("msg", "resent", "exchange", n.hdr.ExchangeType,
		"msgid", n.hdr.MsgId, "remaining", n.resendBudget)
	return nil
}

// fireTimer is called by the scheduler; stale fires are ignored
func (e *Engine) fireTimer(key TimerKey, gen uint64) {
	e.do(func() error {
		if !e.timers.claim(key, gen) {
			return nil
		}
		if e.closed {
			return nil
		}
		e.handleTimer(key)
		return nil
	})
}

func (e *Engine) handleTimer(key TimerKey) {
	switch key.Event {
	case state.MESSAGE_REPLY:
		e.onMessageReply(key)
	case state.PHASE1_TIMEOUT:
		if p := e.phase1For(key.Subject); p != nil && !p.machine.IsComplete() {
			e.failPhase1(p, errors.Wrap(ErrTimeout, "phase 1"))
		}
	case state.PHASE2_TIMEOUT:
		if p := e.phase2For(key.Subject, key.Aux); p != nil && !p.machine.IsComplete() {
			e.failPhase2(p, errors.Wrap(ErrTimeout, "phase 2"))
		}
	case state.SA_SOFT_TIMEOUT:
		e.onSoftLifetime(key.Subject)
	case state.SA_TIMEOUT:
		e.onLifetime(key.Subject)
	case state.REMOVE_PHASE2:
		if sa, ok := e.dir.GetByInitiator(key.Subject); ok {
			e.removePhase2(sa.Key(), key.Aux, nil)
		}
	default:
		level.Warn(e.logger).Log("msg", "unknown timer", "timer", key)
	}
}

func (e *Engine) onMessageReply(key TimerKey) {
	var ex exchange
	var abandon func(error)
	if key.Aux == 0 {
		p := e.phase1For(key.Subject)
		if p == nil {
			return
		}
		ex, abandon = p, func(err error) { e.failPhase1(p, err) }
	} else {
		p := e.phase2For(key.Subject, key.Aux)
		if p == nil {
			return
		}
		ex, abandon = p, func(err error) { e.failPhase2(p, err) }
	}
	err := e.resend(ex)
	switch errors.Cause(err) {
	case nil, ErrTransport:
		n := ex.base()
		// back off: interval * attempts so far
		attempt := e.cfg.ResendCount - n.resendBudget + 1
		e.timers.Set(key, e.cfg.ResendInterval*time.Duration(attempt))
		if err != nil {
			level.Warn(n.logger).Log("msg", "resend failed", "err", err)
		}
	default:
		abandon(err)
	}
}

// phase1For finds a phase 1 handle by initiator cookie
func (e *Engine) phase1For(cky protocol.Cookie) *Phase1 {
	if p, ok := e.locals[cky]; ok {
		return p
	}
	if sa, ok := e.dir.GetByInitiator(cky); ok {
		return sa.phase1
	}
	return nil
}

func (e *Engine) phase2For(cky protocol.Cookie, msgId uint32) *Phase2 {
	if sa, ok := e.dir.GetByInitiator(cky); ok {
		if p, ok := sa.getPhase2(msgId); ok {
			return p
		}
	}
	return nil
}

// onSoftLifetime starts a replacement isakmp SA before this one expires
func (e *Engine) onSoftLifetime(cky protocol.Cookie) {
	sa, ok := e.dir.GetByInitiator(cky)
	if !ok || sa.IsDeleted() || !sa.IsInitiator {
		return
	}
	level.Info(e.logger).Log("msg", "rekeying isakmp sa", "isakmp", sa.Key())
	if _, err := e.startPhase1(sa.Remote, nil); err != nil {
		level.Warn(e.logger).Log("msg", "rekey failed", "isakmp", sa.Key(), "err", err)
	}
}

// onLifetime deletes an expired isakmp SA
func (e *Engine) onLifetime(cky protocol.Cookie) {
	sa, ok := e.dir.GetByInitiator(cky)
	if !ok || sa.IsDeleted() {
		return
	}
	level.Info(e.logger).Log("msg", "isakmp sa expired", "isakmp", sa.Key())
	e.sendDelete(sa)
	e.deleteSa(sa, ErrSaDeleted)
}

// HandleExpire acts on a kernel lifetime event for one of our inbound esp spis.
// A soft expiry makes the quick mode initiator negotiate a replacement;
// a hard one removes the pair and tells the peer
func (e *Engine) HandleExpire(exp *platform.Expire) {
	e.do(func() error {
		if e.closed {
			return nil
		}
		sa, idx := e.childBySpi(exp.Spi)
		if sa == nil || sa.IsDeleted() {
			return nil
		}
		c := sa.children[idx]
		if !exp.Hard {
			if c.params.IsInitiator {
				level.Info(e.logger).Log("msg", "rekeying esp sa", "esp", c.params)
				if err := e.startPhase2(sa, &phase2Request{}); err != nil {
					level.Warn(e.logger).Log("msg", "esp rekey failed", "esp", c.params, "err", err)
				}
			}
			return nil
		}
		level.Info(e.logger).Log("msg", "esp sa expired", "esp", c.params)
		spi := make([]byte, 4)
		binary.BigEndian.PutUint32(spi, c.spiLocal)
		err := e.sendInformational(sa, &protocol.DeletePayload{
			PayloadHeader: &protocol.PayloadHeader{},
			Doi:           protocol.DOI_IPSEC,
			ProtocolId:    protocol.PROTO_IPSEC_ESP,
			Spis:          [][]byte{spi},
		})
		if err != nil {
			level.Warn(e.logger).Log("msg", "esp delete not sent", "esp", c.params, "err", err)
		}
		e.uninstall(sa, c)
		sa.children = append(sa.children[:idx], sa.children[idx+1:]...)
		return nil
	})
}

func (e *Engine) childBySpi(spi uint32) (found *SA, idx int) {
	e.dir.ForEach(func(sa *SA) {
		for i, c := range sa.children {
			if found == nil && c.spiLocal == spi {
				found, idx = sa, i
			}
		}
	})
	return
}
