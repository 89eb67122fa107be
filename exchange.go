package ike

import (
	"fmt"
	"net"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/google/uuid"
	"github.com/msgboxio/ikev1/platform"
	"github.com/msgboxio/ikev1/protocol"
	"github.com/msgboxio/ikev1/state"
	"github.com/pkg/errors"
)

// lifetime of an isakmp SA whose transform carries none
const ISAKMP_LIFETIME = 8 * time.Hour

// phase2Request is a quick mode waiting for its isakmp SA
type phase2Request struct {
	waiter uuid.UUID
}

// childSa is an installed pair of esp SAs
type childSa struct {
	msgId               uint32
	spiLocal, spiRemote uint32
	params              *platform.SaParams
}

func (e *Engine) dispatch(msg *Message) error {
	hdr := msg.Header
	if hdr.MajorVersion != protocol.ISAKMP_MAJOR_VERSION {
		return errors.Wrapf(ErrUnexpectedMessage, "version %d.%d", hdr.MajorVersion, hdr.MinorVersion)
	}
	if !hdr.CookieI.IsSet() {
		return errors.Wrap(ErrInvalidCookie, "initiator cookie unset")
	}
	switch hdr.ExchangeType {
	case protocol.EXCHANGE_MAIN, protocol.EXCHANGE_AGGRESSIVE:
		return e.dispatchPhase1(msg)
	case protocol.EXCHANGE_QUICK:
		return e.dispatchPhase2(msg)
	case protocol.EXCHANGE_INFORMATIONAL:
		return e.handleInformational(msg)
	}
	return errors.Wrapf(ErrInvalidExchange, "exchange %s", hdr.ExchangeType)
}

func (e *Engine) dispatchPhase1(msg *Message) error {
	hdr := msg.Header
	if hdr.Flags.IsAuthOnly() {
		return errors.Wrapf(ErrInvalidFlags, "%s with flags %s", hdr.ExchangeType, hdr.Flags)
	}
	// phase 1 message ids are always zero
	if hdr.MsgId != 0 {
		return errors.Wrapf(ErrInvalidMessageId, "%s with message id %d", hdr.ExchangeType, hdr.MsgId)
	}
	p, err := e.lookupPhase1(hdr)
	if err != nil {
		return err
	}
	if p == nil {
		if hdr.ExchangeType != e.cfg.Mode {
			return errors.Wrapf(ErrInvalidExchange, "%s not configured", hdr.ExchangeType)
		}
		p = e.newResponder(msg)
	}
	if p.mode != hdr.ExchangeType {
		return errors.Wrapf(ErrInvalidExchange, "%s for %s negotiation", hdr.ExchangeType, p.mode)
	}
	return e.processPhase1(p, msg)
}

// lookupPhase1 finds the negotiation a phase 1 message belongs to;
// nil without error means the message may start a new one
func (e *Engine) lookupPhase1(hdr *protocol.IsakmpHeader) (*Phase1, error) {
	if p, ok := e.locals[hdr.CookieI]; ok {
		sa := p.sa()
		if hdr.CookieR.IsSet() && sa.CookieR.IsSet() && hdr.CookieR != sa.CookieR {
			return nil, errors.Wrap(ErrInvalidCookie, "responder cookie mismatch")
		}
		return p, nil
	}
	var sa *SA
	var ok bool
	if hdr.CookieR.IsSet() {
		sa, ok = e.dir.Get(SaKey{I: hdr.CookieI, R: hdr.CookieR})
	} else {
		sa, ok = e.dir.GetByInitiator(hdr.CookieI)
	}
	if ok {
		if sa.phase1 == nil || sa.IsDeleted() {
			return nil, ErrSaDeleted
		}
		return sa.phase1, nil
	}
	if hdr.CookieR.IsSet() {
		return nil, errors.Wrap(ErrInvalidCookie, "no such sa")
	}
	return nil, nil
}

// newResponder creates the local SA and negotiation for a first message
func (e *Engine) newResponder(msg *Message) *Phase1 {
	hdr := msg.Header
	local := msg.LocalAddr
	if local == nil {
		local = e.conn.LocalAddr()
	}
	sa := newSa(hdr.CookieI, newCookie(msg.RemoteAddr), false, local, msg.RemoteAddr)
	p := e.newPhase1(sa, hdr.ExchangeType, false)
	e.locals[hdr.CookieI] = p
	p.armTimeout()
	level.Info(p.logger).Log("msg", "new responder", "from", msg.RemoteAddr)
	return p
}

func (e *Engine) newPhase1(sa *SA, mode protocol.ExchangeType, isInitiator bool) *Phase1 {
	p := &Phase1{
		negotiation: negotiation{
			id:      uuid.New(),
			engine:  e,
			machine: state.NewMachine(),
			ref:     localSa{sa},
			remote:  sa.Remote,
			hdr: protocol.IsakmpHeader{
				CookieI:      sa.CookieI,
				CookieR:      sa.CookieR,
				MajorVersion: protocol.ISAKMP_MAJOR_VERSION,
				MinorVersion: protocol.ISAKMP_MINOR_VERSION,
				ExchangeType: mode,
			},
			logger: log.With(e.logger, "cky_i", fmt.Sprintf("%x", sa.CookieI[:]), "mode", mode),
		},
		mode:        mode,
		table:       phase1Table(mode),
		isInitiator: isInitiator,
		cookieI:     sa.CookieI,
	}
	if !isInitiator {
		p.machine = state.NewMachineAt(2)
	}
	sa.phase1 = p
	return p
}

func phase1Table(mode protocol.ExchangeType) *state.Table[*Phase1] {
	if mode == protocol.EXCHANGE_AGGRESSIVE {
		return aggressiveTable
	}
	return mainTable
}

// checkResend detects a retransmitted request; the cached reply is resent
// only when it answered that request
func (e *Engine) checkResend(ex exchange, msg *Message) (bool, error) {
	n := ex.base()
	if !n.hasIn || n.inHash != msg.digest() {
		return false, nil
	}
	if !n.replied {
		level.Debug(n.logger).Log("msg", "duplicate dropped", "exchange", msg.Header.ExchangeType)
		return true, nil
	}
	level.Info(n.logger).Log("msg", "retransmitted request, resending reply", "exchange", msg.Header.ExchangeType)
	return true, e.resend(ex)
}

// cookieExpected checks the responder cookie rule: unset on the first
// message of an exchange, set on every later one
func cookieExpected(s state.State, hdr *protocol.IsakmpHeader) error {
	first := s == 2
	if first && hdr.CookieR.IsSet() {
		return errors.Wrap(ErrInvalidCookie, "responder cookie on first message")
	}
	if !first && !hdr.CookieR.IsSet() {
		return errors.Wrap(ErrInvalidCookie, "responder cookie unset")
	}
	return nil
}

func (e *Engine) processPhase1(p *Phase1, msg *Message) error {
	if dup, err := e.checkResend(p, msg); dup {
		return err
	}
	if p.machine.IsComplete() {
		return errors.Wrapf(ErrUnexpectedMessage, "%s is complete", p.mode)
	}
	if err := cookieExpected(p.machine.State(), msg.Header); err != nil {
		return err
	}
	handler, err := p.table.Lookup(p.machine.State())
	if err != nil {
		return errors.Wrap(ErrUnexpectedMessage, err.Error())
	}
	p.inHash, p.hasIn, p.replied = msg.digest(), true, false
	p.in = msg
	err = handler(p)
	p.in = nil
	if err != nil {
		e.failPhase1(p, err)
	}
	return err
}

// logFailure logs authentication failures as errors, everything else as warnings
func logFailure(logger log.Logger, what string, cause error) {
	lvl := level.Warn
	if KindOf(cause) == Auth {
		lvl = level.Error
	}
	lvl(logger).Log("msg", what, "kind", KindOf(cause), "err", cause)
}

// failPhase1 abandons a phase 1 negotiation. An admitted SA is removed
// after the current lock scope, a local one right away
func (e *Engine) failPhase1(p *Phase1, cause error) {
	if p.deleted {
		return
	}
	logFailure(p.logger, "phase 1 failed", cause)
	sa := p.sa()
	e.reportFailure(sa, cause, protocol.PROTO_ISAKMP, nil)
	e.notifyPhase1(p, cause)
	e.timers.Unset(p.timerKey())
	e.timers.Unset(TimerKey{Event: state.PHASE1_TIMEOUT, Subject: p.cookieI})
	if p.ref.isAdmitted() {
		p.deleted = true
		if sa != nil {
			e.enqueue(deferredEvent{event: state.REMOVE_SA, key: sa.Key(), cause: cause})
		}
		return
	}
	delete(e.locals, p.cookieI)
	e.timers.UnsetMatching(p.cookieI)
	p.deleted = true
	p.release()
}

// notifyPhase1 fails everyone waiting on p, including queued quick modes
func (e *Engine) notifyPhase1(p *Phase1, err error) {
	for _, id := range p.waiters {
		e.notify(id, err)
	}
	p.waiters = nil
	for _, req := range p.pending {
		e.notify(req.waiter, err)
	}
	p.pending = nil
}

// admit moves the SA of p into the Directory
func (e *Engine) admit(p *Phase1) error {
	sa := p.sa()
	if err := e.dir.Add(sa); err != nil {
		return err
	}
	delete(e.locals, p.cookieI)
	p.ref = admittedSa{key: sa.Key()}
	level.Debug(p.logger).Log("msg", "sa admitted", "isakmp", sa.Key())
	return nil
}

func (e *Engine) finalizePhase1(p *Phase1) {
	sa := p.sa()
	p.releaseKeying()
	e.timers.Unset(p.timerKey())
	e.timers.Unset(TimerKey{Event: state.PHASE1_TIMEOUT, Subject: p.cookieI})
	sa.Lifetime = p.chosen.Lifetime
	if sa.Lifetime <= 0 {
		sa.Lifetime = ISAKMP_LIFETIME
	}
	e.timers.Set(TimerKey{Event: state.SA_TIMEOUT, Subject: p.cookieI}, sa.Lifetime)
	if sa.IsInitiator {
		if soft := softLifetime(sa.Lifetime); soft > 0 {
			e.timers.Set(TimerKey{Event: state.SA_SOFT_TIMEOUT, Subject: p.cookieI}, soft)
		}
	}
	sa.Established = true
	p.machine.Complete()
	level.Info(p.logger).Log("msg", "isakmp sa established", "isakmp", sa, "suite", sa.Suite,
		"lifetime", sa.Lifetime)
	for _, id := range p.waiters {
		e.notify(id, nil)
	}
	p.waiters = nil
	pending := p.pending
	p.pending = nil
	for _, req := range pending {
		if err := e.startPhase2(sa, req); err != nil {
			level.Warn(p.logger).Log("msg", "queued quick mode failed", "err", err)
		}
	}
}

// removeSa tears down an isakmp SA and everything negotiated under it
func (e *Engine) removeSa(key SaKey, cause error) {
	sa, ok := e.dir.Remove(key)
	if !ok {
		return
	}
	e.timers.UnsetMatching(key.I)
	for id, p2 := range sa.phase2 {
		e.notify(p2.waiter, cause)
		p2.deleted = true
		p2.release()
		delete(sa.phase2, id)
	}
	for _, c := range sa.children {
		e.uninstall(sa, c)
	}
	sa.children = nil
	if p := sa.phase1; p != nil {
		e.notifyPhase1(p, cause)
		p.deleted = true
		p.release()
	}
	level.Info(e.logger).Log("msg", "isakmp sa removed", "isakmp", key, "cause", cause)
}

// removePhase2 drops a quick mode; a nil cause means it finished normally
func (e *Engine) removePhase2(key SaKey, msgId uint32, cause error) {
	sa, ok := e.dir.Get(key)
	if !ok {
		return
	}
	p, ok := sa.getPhase2(msgId)
	if !ok {
		return
	}
	e.timers.Unset(p.timerKey())
	e.timers.Unset(TimerKey{Event: state.PHASE2_TIMEOUT, Subject: key.I, Aux: msgId})
	e.timers.Unset(TimerKey{Event: state.REMOVE_PHASE2, Subject: key.I, Aux: msgId})
	if cause != nil {
		e.notify(p.waiter, cause)
	}
	p.deleted = true
	p.release()
	sa.removePhase2(msgId)
}

func (e *Engine) uninstall(sa *SA, c *childSa) {
	if e.cb == nil {
		return
	}
	if err := e.cb.RemoveSa(sa, c.params); err != nil {
		level.Warn(e.logger).Log("msg", "esp sa not removed", "esp", c.params, "err", err)
	}
}

// localAddr is the address this end uses towards remote
func (e *Engine) localAddr(remote net.Addr) net.Addr {
	local := e.conn.LocalAddr()
	if ip := AddrToIp(local); ip != nil && !ip.IsUnspecified() {
		return local
	}
	ip, err := platform.GetLocalAddress(AddrToIp(remote))
	if err != nil || ip == nil {
		return local
	}
	return &net.UDPAddr{IP: ip, Port: AddrToPort(local)}
}

// startPhase1 begins a phase 1 negotiation with remote
func (e *Engine) startPhase1(remote net.Addr, req *phase2Request) (*Phase1, error) {
	sa := newSa(newCookie(remote), protocol.Cookie{}, true, e.localAddr(remote), remote)
	p := e.newPhase1(sa, e.cfg.Mode, true)
	e.locals[p.cookieI] = p
	if req != nil {
		p.pending = append(p.pending, req)
	}
	level.Info(p.logger).Log("msg", "initiating", "to", remote)
	handler, err := p.table.Lookup(p.machine.State())
	if err == nil {
		err = handler(p)
	}
	if err != nil {
		e.failPhase1(p, err)
		return nil, err
	}
	return p, nil
}

// requestPhase2 runs a quick mode with remote, starting or joining a
// phase 1 negotiation when no isakmp SA is established yet
func (e *Engine) requestPhase2(remote net.Addr, waiter uuid.UUID) error {
	req := &phase2Request{waiter: waiter}
	if sa := e.findSa(remote); sa != nil {
		return e.startPhase2(sa, req)
	}
	for _, p := range e.locals {
		if p.isInitiator && !p.deleted && sameAddr(p.remote, remote) {
			p.pending = append(p.pending, req)
			return nil
		}
	}
	_, err := e.startPhase1(remote, req)
	return err
}

func (e *Engine) newPhase2(sa *SA, msgId uint32, isInitiator bool) *Phase2 {
	p := &Phase2{
		negotiation: negotiation{
			id:      uuid.New(),
			engine:  e,
			machine: state.NewMachine(),
			ref:     admittedSa{key: sa.Key()},
			remote:  sa.Remote,
			hdr: protocol.IsakmpHeader{
				CookieI:      sa.CookieI,
				CookieR:      sa.CookieR,
				MajorVersion: protocol.ISAKMP_MAJOR_VERSION,
				MinorVersion: protocol.ISAKMP_MINOR_VERSION,
				ExchangeType: protocol.EXCHANGE_QUICK,
				MsgId:        msgId,
			},
			logger: log.With(e.logger, "isakmp", sa.Key(), "msgid", msgId),
		},
		table:       quickTable,
		isInitiator: isInitiator,
		cookieI:     sa.CookieI,
		msgId:       msgId,
		iv:          newPhase2Iv(sa, msgId),
	}
	if !isInitiator {
		p.machine = state.NewMachineAt(2)
	}
	sa.addPhase2(p)
	e.timers.Set(TimerKey{Event: state.PHASE2_TIMEOUT, Subject: sa.CookieI, Aux: msgId}, e.cfg.Phase2Timeout)
	return p
}

func (e *Engine) startPhase2(sa *SA, req *phase2Request) error {
	msgId, err := e.newMsgIdFor(sa)
	if err != nil {
		e.notify(req.waiter, err)
		return err
	}
	p := e.newPhase2(sa, msgId, true)
	p.waiter = req.waiter
	p.policy = e.cfg.Policy(sa.Local, sa.Remote)
	handler, err := p.table.Lookup(p.machine.State())
	if err == nil {
		err = handler(p)
	}
	if err != nil {
		e.failPhase2(p, err)
		return err
	}
	return nil
}

func (e *Engine) dispatchPhase2(msg *Message) error {
	hdr := msg.Header
	if hdr.MsgId == 0 {
		return errors.Wrap(ErrInvalidMessageId, "quick mode with message id 0")
	}
	if !hdr.Flags.IsEncrypted() || hdr.Flags.IsAuthOnly() {
		return errors.Wrapf(ErrInvalidFlags, "quick mode with flags %s", hdr.Flags)
	}
	sa, ok := e.dir.Get(SaKey{I: hdr.CookieI, R: hdr.CookieR})
	if !ok {
		return errors.Wrap(ErrInvalidCookie, "no isakmp sa for quick mode")
	}
	if !sa.Established || sa.IsDeleted() {
		return errors.Wrap(ErrUnexpectedMessage, "isakmp sa not established")
	}
	p, ok := sa.getPhase2(hdr.MsgId)
	if !ok {
		p = e.newPhase2(sa, hdr.MsgId, false)
	}
	return e.processPhase2(p, msg)
}

func (e *Engine) processPhase2(p *Phase2, msg *Message) error {
	if dup, err := e.checkResend(p, msg); dup {
		return err
	}
	if p.machine.IsComplete() || p.deleted {
		return errors.Wrap(ErrUnexpectedMessage, "quick mode is complete")
	}
	handler, err := p.table.Lookup(p.machine.State())
	if err != nil {
		return errors.Wrap(ErrUnexpectedMessage, err.Error())
	}
	p.inHash, p.hasIn, p.replied = msg.digest(), true, false
	p.in = msg
	err = handler(p)
	p.in = nil
	if err != nil {
		e.failPhase2(p, err)
	}
	return err
}

// failPhase2 abandons a quick mode; the isakmp SA survives
func (e *Engine) failPhase2(p *Phase2, cause error) {
	if p.deleted {
		return
	}
	logFailure(p.logger, "quick mode failed", cause)
	p.deleted = true
	e.notify(p.waiter, cause)
	e.timers.Unset(p.timerKey())
	e.timers.Unset(TimerKey{Event: state.PHASE2_TIMEOUT, Subject: p.cookieI, Aux: p.msgId})
	sa := p.sa()
	if sa == nil {
		p.release()
		return
	}
	// the peer finds its negotiation by the spi it chose
	e.reportFailure(sa, cause, protocol.PROTO_IPSEC_ESP, p.spiRemote)
	e.enqueue(deferredEvent{event: state.REMOVE_PHASE2, key: sa.Key(), msgId: p.msgId, cause: cause})
}

// finishPhase2 completes a quick mode; the handle lingers to answer retransmissions
func (e *Engine) finishPhase2(p *Phase2) {
	e.timers.Unset(p.timerKey())
	e.timers.Unset(TimerKey{Event: state.PHASE2_TIMEOUT, Subject: p.cookieI, Aux: p.msgId})
	p.machine.Complete()
	p.nonceLocal, p.nonceRemote = nil, nil
	p.dhPrivate, p.dhLocal, p.dhRemote = nil, nil, nil
	e.notify(p.waiter, nil)
	e.timers.Set(TimerKey{Event: state.REMOVE_PHASE2, Subject: p.cookieI, Aux: p.msgId}, e.cfg.Phase2Timeout)
	level.Info(p.logger).Log("msg", "quick mode complete")
}
