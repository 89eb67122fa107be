package ike

import (
	"github.com/msgboxio/ikev1/crypto"
	"github.com/msgboxio/ikev1/protocol"
	"github.com/msgboxio/ikev1/state"
)

// Aggressive mode [RFC2409] 5
//
//	Initiator                          Responder
//	HDR, SA, KE, Ni, IDii [, CR]  -->
//	                              <--  HDR, SA, KE, Nr, IDir, [CERT,] HASH_R | SIG_R
//	HDR*, [CERT,] HASH_I | SIG_I  -->
var aggressiveTable *state.Table[*Phase1]

func init() {
	aggressiveTable = state.NewTable[*Phase1]("aggressive",
		aggressiveInit,
		aggressiveRespond,
		aggressiveComplete,
		aggressiveFinish,
	)
}

func aggressiveInit(p *Phase1) (err error) {
	e := p.engine
	group := e.cfg.ProposalIke[0].Group
	if p.dhPrivate, p.dhLocal, err = crypto.GenerateKey(group, e.rand); err != nil {
		return
	}
	if p.nonceLocal, err = e.nonce(); err != nil {
		return
	}
	p.offer = protocol.Phase1Proposal(e.cfg.ProposalIke)
	p.rawSA = p.offer.Encode()
	out := p.outbound(0)
	out.Add(p.offer)
	out.Add(&protocol.KePayload{PayloadHeader: &protocol.PayloadHeader{}, KeyData: p.dhLocal})
	out.Add(&protocol.NoncePayload{PayloadHeader: &protocol.PayloadHeader{}, Data: p.nonceLocal})
	out.Add(p.localId())
	p.addCertRequest(out)
	if err = e.send(p); err != nil {
		return
	}
	p.armTimeout()
	return p.machine.Next()
}

func aggressiveRespond(p *Phase1) error {
	if err := aggressiveRecvFirst(p); err != nil {
		return err
	}
	return aggressiveSendReply(p)
}

func aggressiveRecvFirst(p *Phase1) (err error) {
	e, sa, msg := p.engine, p.sa(), p.in
	if err = msg.ensure(protocol.PayloadTypeSA, protocol.PayloadTypeKE,
		protocol.PayloadTypeNonce, protocol.PayloadTypeID); err != nil {
		return
	}
	reply, err := p.chooseOffer(sa, msg)
	if err != nil {
		return
	}
	p.offer = reply
	if err = p.takeKe(msg); err != nil {
		return
	}
	if err = p.takeNonce(msg); err != nil {
		return
	}
	p.takePeerId(sa, msg)
	p.takeCertRequest(msg)
	if err = p.presharedKey(sa); err != nil {
		return
	}
	if p.nonceLocal, err = e.nonce(); err != nil {
		return
	}
	if err = p.deriveKeys(sa); err != nil {
		return
	}
	return e.admit(p)
}

func aggressiveSendReply(p *Phase1) error {
	e, sa := p.engine, p.sa()
	out := p.outbound(0)
	out.Add(p.offer)
	out.Add(&protocol.KePayload{PayloadHeader: &protocol.PayloadHeader{}, KeyData: p.dhLocal})
	out.Add(&protocol.NoncePayload{PayloadHeader: &protocol.PayloadHeader{}, Data: p.nonceLocal})
	out.Add(p.localId())
	if err := p.addAuth(sa, out); err != nil {
		return err
	}
	if err := e.send(p); err != nil {
		return err
	}
	return p.machine.Next()
}

func aggressiveComplete(p *Phase1) error {
	if err := aggressiveRecvReply(p); err != nil {
		return err
	}
	return aggressiveSendAuth(p)
}

func aggressiveRecvReply(p *Phase1) (err error) {
	e, sa, msg := p.engine, p.sa(), p.in
	if err = msg.ensure(protocol.PayloadTypeSA, protocol.PayloadTypeKE,
		protocol.PayloadTypeNonce, protocol.PayloadTypeID); err != nil {
		return
	}
	sa.CookieR = msg.Header.CookieR
	if err = p.checkReply(sa, msg); err != nil {
		return
	}
	if err = p.takeKe(msg); err != nil {
		return
	}
	if err = p.takeNonce(msg); err != nil {
		return
	}
	p.takePeerId(sa, msg)
	p.takeCertRequest(msg)
	if err = p.presharedKey(sa); err != nil {
		return
	}
	if err = p.deriveKeys(sa); err != nil {
		return
	}
	if err = p.verifyPeer(sa, msg); err != nil {
		return
	}
	return e.admit(p)
}

func aggressiveSendAuth(p *Phase1) error {
	e, sa := p.engine, p.sa()
	out := p.outbound(protocol.FLAG_ENCRYPTION)
	if err := p.addAuth(sa, out); err != nil {
		return err
	}
	p.addInitialContact(sa, out)
	if err := e.send(p); err != nil {
		return err
	}
	sa.Iv.SyncFromEnc()
	e.finalizePhase1(p)
	return nil
}

func aggressiveFinish(p *Phase1) error {
	e, sa, msg := p.engine, p.sa(), p.in
	if err := p.decryptIn(sa); err != nil {
		return err
	}
	if err := p.verifyPeer(sa, msg); err != nil {
		return err
	}
	p.peerInitialContact(sa, msg)
	e.finalizePhase1(p)
	return nil
}
