package ike

import (
	"github.com/msgboxio/ikev1/crypto"
	"github.com/msgboxio/ikev1/protocol"
	"github.com/msgboxio/ikev1/state"
	"github.com/pkg/errors"
)

// Main mode [RFC2409] 5
//
//	Initiator                          Responder
//	HDR, SA                       -->
//	                              <--  HDR, SA
//	HDR, KE, Ni [, CR]            -->
//	                              <--  HDR, KE, Nr [, CR]
//	HDR*, IDii, [CERT,] HASH_I    -->
//	                              <--  HDR*, IDir, [CERT,] HASH_R
var mainTable *state.Table[*Phase1]

func init() {
	mainTable = state.NewTable[*Phase1]("main",
		mainInit,
		mainRespondSa,
		mainSendKe,
		mainRespondKe,
		mainSendId,
		mainRespondId,
		mainFinish,
	)
}

func mainInit(p *Phase1) error {
	e := p.engine
	p.offer = protocol.Phase1Proposal(e.cfg.ProposalIke)
	p.rawSA = p.offer.Encode()
	p.outbound(0).Add(p.offer)
	if err := e.send(p); err != nil {
		return err
	}
	p.armTimeout()
	return p.machine.Next()
}

func mainRespondSa(p *Phase1) error {
	e, sa, msg := p.engine, p.sa(), p.in
	if err := msg.ensure(protocol.PayloadTypeSA); err != nil {
		return err
	}
	reply, err := p.chooseOffer(sa, msg)
	if err != nil {
		return err
	}
	p.outbound(0).Add(reply)
	if err := e.send(p); err != nil {
		return err
	}
	return p.machine.Next()
}

func mainSendKe(p *Phase1) (err error) {
	e, sa, msg := p.engine, p.sa(), p.in
	if err = msg.ensure(protocol.PayloadTypeSA); err != nil {
		return
	}
	sa.CookieR = msg.Header.CookieR
	if err = p.checkReply(sa, msg); err != nil {
		return
	}
	if p.dhPrivate, p.dhLocal, err = crypto.GenerateKey(p.chosen.Group, e.rand); err != nil {
		return
	}
	if p.nonceLocal, err = e.nonce(); err != nil {
		return
	}
	out := p.outbound(0)
	out.Add(&protocol.KePayload{PayloadHeader: &protocol.PayloadHeader{}, KeyData: p.dhLocal})
	out.Add(&protocol.NoncePayload{PayloadHeader: &protocol.PayloadHeader{}, Data: p.nonceLocal})
	p.addCertRequest(out)
	if err = e.send(p); err != nil {
		return
	}
	return p.machine.Next()
}

func mainRespondKe(p *Phase1) (err error) {
	e, sa, msg := p.engine, p.sa(), p.in
	if err = msg.ensure(protocol.PayloadTypeKE, protocol.PayloadTypeNonce); err != nil {
		return
	}
	if err = p.takeKe(msg); err != nil {
		return
	}
	if err = p.takeNonce(msg); err != nil {
		return
	}
	p.takeCertRequest(msg)
	// the initiator is not identified yet; its key is found by address
	if err = p.presharedKey(sa); err != nil {
		return
	}
	if p.nonceLocal, err = e.nonce(); err != nil {
		return
	}
	if err = p.deriveKeys(sa); err != nil {
		return
	}
	out := p.outbound(0)
	out.Add(&protocol.KePayload{PayloadHeader: &protocol.PayloadHeader{}, KeyData: p.dhLocal})
	out.Add(&protocol.NoncePayload{PayloadHeader: &protocol.PayloadHeader{}, Data: p.nonceLocal})
	p.addCertRequest(out)
	if err = e.send(p); err != nil {
		return
	}
	return p.machine.Next()
}

func mainSendId(p *Phase1) (err error) {
	e, sa, msg := p.engine, p.sa(), p.in
	if err = msg.ensure(protocol.PayloadTypeKE, protocol.PayloadTypeNonce); err != nil {
		return
	}
	if err = p.takeKe(msg); err != nil {
		return
	}
	if err = p.takeNonce(msg); err != nil {
		return
	}
	p.takeCertRequest(msg)
	if err = p.presharedKey(sa); err != nil {
		return
	}
	if err = p.deriveKeys(sa); err != nil {
		return
	}
	out := p.outbound(protocol.FLAG_ENCRYPTION)
	out.Add(p.localId())
	if err = p.addAuth(sa, out); err != nil {
		return
	}
	p.addInitialContact(sa, out)
	if err = e.send(p); err != nil {
		return
	}
	sa.Iv.SyncFromEnc()
	return p.machine.Next()
}

func mainRespondId(p *Phase1) error {
	e, sa, msg := p.engine, p.sa(), p.in
	if err := mainRecvId(p, sa, msg); err != nil {
		return err
	}
	out := p.outbound(protocol.FLAG_ENCRYPTION)
	out.Add(p.localId())
	if err := p.addAuth(sa, out); err != nil {
		return err
	}
	if err := e.send(p); err != nil {
		return err
	}
	sa.Iv.SyncFromEnc()
	p.peerInitialContact(sa, msg)
	e.finalizePhase1(p)
	return nil
}

func mainFinish(p *Phase1) error {
	sa, msg := p.sa(), p.in
	if err := mainRecvId(p, sa, msg); err != nil {
		return err
	}
	p.engine.finalizePhase1(p)
	return nil
}

// mainRecvId decrypts and authenticates the identity message, then admits the SA
func mainRecvId(p *Phase1, sa *SA, msg *Message) error {
	if !msg.Header.Flags.IsEncrypted() {
		return errors.Wrap(ErrInvalidFlags, "identity sent in the clear")
	}
	if err := p.decryptIn(sa); err != nil {
		return err
	}
	if err := msg.ensure(protocol.PayloadTypeID); err != nil {
		return err
	}
	p.takePeerId(sa, msg)
	if err := p.verifyPeer(sa, msg); err != nil {
		return err
	}
	return p.engine.admit(p)
}
