package ike

import (
	"crypto/md5"
	"math/big"
	"net"

	"github.com/go-kit/kit/log"
	"github.com/google/uuid"
	"github.com/msgboxio/ikev1/crypto"
	"github.com/msgboxio/ikev1/protocol"
	"github.com/msgboxio/ikev1/state"
)

// negotiation is what every exchange handle has in common
type negotiation struct {
	id      uuid.UUID
	engine  *Engine
	machine state.Machine
	ref     saRef
	remote  net.Addr

	// header and payloads of the message being composed
	hdr protocol.IsakmpHeader
	out *protocol.Payloads

	// last message sent, resent unmodified
	lastMessage  []byte
	resendBudget int

	// digest of the last message processed, and whether it was answered
	inHash  [md5.Size]byte
	hasIn   bool
	replied bool

	// message being processed, nil outside a handler
	in *Message

	deleted bool
	logger  log.Logger
}

func (n *negotiation) base() *negotiation { return n }

// outbound starts a new outbound payload chain
func (n *negotiation) outbound(flags protocol.IsakmpFlags) *protocol.Payloads {
	n.hdr.Flags = flags
	n.out = protocol.MakePayloads()
	return n.out
}

func (n *negotiation) releaseBuffer() {
	n.lastMessage = nil
	n.resendBudget = 0
}

// Phase1 is a main or aggressive mode negotiation
type Phase1 struct {
	negotiation

	mode        protocol.ExchangeType
	table       *state.Table[*Phase1]
	isInitiator bool
	// names the SA in timers, stable across admission
	cookieI protocol.Cookie

	offer  *protocol.SaPayload
	chosen protocol.Phase1Transform

	// raw bodies authenticated by HASH_I and HASH_R
	rawSA, rawIdI, rawIdR []byte

	dhPrivate         *big.Int
	dhLocal, dhRemote []byte
	gxy               []byte

	nonceLocal, nonceRemote []byte
	psk                     []byte

	peerId        *protocol.IdPayload
	certRequested bool

	// phase 1 waiters, and phase 2 requests to start once established
	waiters []uuid.UUID
	pending []*phase2Request
}

func (p *Phase1) base() *negotiation {
	if p == nil {
		return nil
	}
	return &p.negotiation
}

func (p *Phase1) timerKey() TimerKey {
	return TimerKey{Event: state.MESSAGE_REPLY, Subject: p.cookieI}
}

func (p *Phase1) ivs(sa *SA) *crypto.IvPair { return sa.Iv }

func (p *Phase1) sa() *SA { return p.ref.resolve(p.engine.dir) }

func (p *Phase1) fillHash(*SA, []byte) error { return nil }

func (p *Phase1) isInformational() bool { return false }

func (p *Phase1) gxi() []byte {
	if p.isInitiator {
		return p.dhLocal
	}
	return p.dhRemote
}

func (p *Phase1) gxr() []byte {
	if p.isInitiator {
		return p.dhRemote
	}
	return p.dhLocal
}

func (p *Phase1) ni() []byte {
	if p.isInitiator {
		return p.nonceLocal
	}
	return p.nonceRemote
}

func (p *Phase1) nr() []byte {
	if p.isInitiator {
		return p.nonceRemote
	}
	return p.nonceLocal
}

// releaseKeying drops the exchange secrets once the SA keys exist
func (p *Phase1) releaseKeying() {
	p.rawSA, p.rawIdI, p.rawIdR = nil, nil, nil
	p.dhPrivate, p.dhLocal, p.dhRemote, p.gxy = nil, nil, nil, nil
	p.nonceLocal, p.nonceRemote = nil, nil
	p.psk = nil
	p.offer = nil
}

func (p *Phase1) release() {
	p.releaseKeying()
	p.releaseBuffer()
	p.out = nil
	p.in = nil
}

// Phase2 is a quick mode negotiation
type Phase2 struct {
	negotiation

	table       *state.Table[*Phase2]
	isInitiator bool
	cookieI     protocol.Cookie
	msgId       uint32
	iv          *crypto.IvPair
	// the HASH(n) placed in the next message sent
	hashKind crypto.HashKind

	nonceLocal, nonceRemote []byte

	dhPrivate         *big.Int
	dhLocal, dhRemote []byte

	// inbound spi of each end
	spiLocal, spiRemote []byte

	policy *protocol.PolicyParams
	offer  *protocol.SaPayload
	chosen protocol.Phase2Transform
	commit bool

	waiter uuid.UUID
}

func (p *Phase2) base() *negotiation {
	if p == nil {
		return nil
	}
	return &p.negotiation
}

func (p *Phase2) timerKey() TimerKey {
	return TimerKey{Event: state.MESSAGE_REPLY, Subject: p.cookieI, Aux: p.msgId}
}

func (p *Phase2) ivs(*SA) *crypto.IvPair { return p.iv }

func (p *Phase2) sa() *SA { return p.ref.resolve(p.engine.dir) }

func (p *Phase2) isInformational() bool { return false }

func (p *Phase2) ni() []byte {
	if p.isInitiator {
		return p.nonceLocal
	}
	return p.nonceRemote
}

func (p *Phase2) nr() []byte {
	if p.isInitiator {
		return p.nonceRemote
	}
	return p.nonceLocal
}

func (p *Phase2) fillHash(sa *SA, b []byte) error {
	slot, rest, err := protocol.HashSlot(b)
	if err != nil {
		return err
	}
	copy(slot, phase2Hash(sa, p.hashKind, p.msgId, p.ni(), p.nr(), rest))
	return nil
}

func (p *Phase2) release() {
	p.releaseBuffer()
	p.dhPrivate, p.dhLocal, p.dhRemote = nil, nil, nil
	p.nonceLocal, p.nonceRemote = nil, nil
	p.out = nil
	p.in = nil
}

// infoExchange is a one shot informational message, never resent
type infoExchange struct {
	negotiation
	msgId uint32
	iv    *crypto.IvPair
}

func (x *infoExchange) timerKey() TimerKey { return TimerKey{} }

func (x *infoExchange) ivs(*SA) *crypto.IvPair { return x.iv }

func (x *infoExchange) isInformational() bool { return true }

func (x *infoExchange) fillHash(sa *SA, b []byte) error {
	slot, rest, err := protocol.HashSlot(b)
	if err != nil {
		return err
	}
	copy(slot, phase2Hash(sa, crypto.HASH_1, x.msgId, nil, nil, rest))
	return nil
}

// exchange is what the dispatcher and retransmitter need of a handle
type exchange interface {
	base() *negotiation
	timerKey() TimerKey
	ivs(*SA) *crypto.IvPair
	fillHash(*SA, []byte) error
	isInformational() bool
}

var (
	_ exchange = (*Phase1)(nil)
	_ exchange = (*Phase2)(nil)
	_ exchange = (*infoExchange)(nil)
)

// phase2Hash computes HASH(n) with the SA's SKEYID_a
func phase2Hash(sa *SA, kind crypto.HashKind, msgId uint32, ni, nr, rest []byte) []byte {
	return sa.Suite.PhaseTwoHash(kind, sa.Keys.SkeyidA, msgId, ni, nr, rest)
}
