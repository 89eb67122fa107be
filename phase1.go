package ike

import (
	"github.com/go-kit/kit/log/level"
	"github.com/msgboxio/ikev1/crypto"
	"github.com/msgboxio/ikev1/protocol"
	"github.com/msgboxio/ikev1/state"
	"github.com/pkg/errors"
)

func (p *Phase1) armTimeout() {
	e := p.engine
	e.timers.Set(TimerKey{Event: state.PHASE1_TIMEOUT, Subject: p.cookieI}, e.cfg.Phase1Timeout)
}

// useCerts is true when certificates are exchanged in band
func (p *Phase1) useCerts() bool {
	return p.engine.cfg.InbandCertXchg && p.engine.cfg.LocalID.AuthMethod().IsSignature()
}

// chooseOffer selects a transform from the peer's SA payload
func (p *Phase1) chooseOffer(sa *SA, msg *Message) (*protocol.SaPayload, error) {
	offer := msg.Payloads.Get(protocol.PayloadTypeSA).(*protocol.SaPayload)
	chosen, reply, err := selectPhase1(offer, p.engine.cfg.ProposalIke)
	if err != nil {
		return nil, err
	}
	if sa.Suite, err = crypto.NewCipherSuite(chosen); err != nil {
		return nil, err
	}
	p.chosen = chosen
	p.rawSA = msg.Payloads.Body(protocol.PayloadTypeSA)
	level.Debug(p.logger).Log("msg", "proposal chosen", "suite", sa.Suite)
	return reply, nil
}

// checkReply verifies the responder chose one of the transforms we offered
func (p *Phase1) checkReply(sa *SA, msg *Message) error {
	reply := msg.Payloads.Get(protocol.PayloadTypeSA).(*protocol.SaPayload)
	chosen, err := checkPhase1Reply(p.offer, reply)
	if err != nil {
		return err
	}
	if sa.Suite, err = crypto.NewCipherSuite(chosen); err != nil {
		return err
	}
	p.chosen = chosen
	return nil
}

// takeKe reads the peer's dh public value, generating ours when needed
func (p *Phase1) takeKe(msg *Message) (err error) {
	ke := msg.Payloads.Get(protocol.PayloadTypeKE).(*protocol.KePayload)
	if len(ke.KeyData) == 0 {
		return errors.Wrap(ErrBadKeyExchange, "empty")
	}
	p.dhRemote = append([]byte{}, ke.KeyData...)
	if p.dhPrivate == nil {
		p.dhPrivate, p.dhLocal, err = crypto.GenerateKey(p.chosen.Group, p.engine.rand)
	}
	return
}

func (p *Phase1) takeNonce(msg *Message) error {
	no := msg.Payloads.Get(protocol.PayloadTypeNonce).(*protocol.NoncePayload)
	if len(no.Data) < protocol.MIN_NONCE_LEN || len(no.Data) > protocol.MAX_NONCE_LEN {
		return errors.Wrapf(ErrMissingPayload, "nonce length %d", len(no.Data))
	}
	p.nonceRemote = append([]byte{}, no.Data...)
	return nil
}

// takePeerId records the peer's identity and the raw body its hash covers
func (p *Phase1) takePeerId(sa *SA, msg *Message) {
	p.peerId = msg.Payloads.Get(protocol.PayloadTypeID).(*protocol.IdPayload)
	sa.PeerId = p.peerId
	raw := msg.Payloads.Body(protocol.PayloadTypeID)
	if p.isInitiator {
		p.rawIdR = raw
	} else {
		p.rawIdI = raw
	}
}

func (p *Phase1) takeCertRequest(msg *Message) {
	if msg.Payloads.Get(protocol.PayloadTypeCR) != nil {
		p.certRequested = true
	}
}

// presharedKey finds the key shared with the peer: by its id, then by
// its address, then the key of the primary identity
func (p *Phase1) presharedKey(sa *SA) error {
	if sa.Suite.Auth != protocol.AUTH_PRE_SHARED_KEY {
		return nil
	}
	remote := p.engine.cfg.RemoteID
	if p.peerId != nil {
		p.psk = remote.AuthData(idKey(p.peerId))
	}
	if p.psk == nil {
		p.psk = remote.AuthData(addrKey(sa.Remote))
	}
	if psk, ok := remote.(*PskIdentities); ok && p.psk == nil {
		p.psk = psk.AuthData([]byte(psk.Primary))
	}
	if p.psk == nil {
		return errors.Wrapf(ErrPskNotFound, "peer %s", sa.Remote)
	}
	return nil
}

// deriveKeys computes SKEYID and its derivatives, and the first phase 1 iv
func (p *Phase1) deriveKeys(sa *SA) error {
	gxy, err := crypto.SharedSecret(p.chosen.Group, p.dhRemote, p.dhPrivate)
	if err != nil {
		return errors.Wrap(ErrBadKeyExchange, err.Error())
	}
	p.gxy = gxy
	skeyid := sa.Suite.Skeyid(p.psk, p.ni(), p.nr(), gxy)
	sa.Keys = sa.Suite.DeriveKeys(skeyid, gxy, sa.CookieI, sa.CookieR)
	sa.Iv = crypto.NewIvPair(sa.Suite.InitialIv(p.gxi(), p.gxr()))
	return nil
}

// hashFor computes HASH_I when initiator is set, HASH_R otherwise
func (p *Phase1) hashFor(sa *SA, initiator bool) []byte {
	if initiator {
		return sa.Suite.HashI(sa.Keys.Skeyid, p.gxi(), p.gxr(), sa.CookieI, sa.CookieR, p.rawSA, p.rawIdI)
	}
	return sa.Suite.HashR(sa.Keys.Skeyid, p.gxi(), p.gxr(), sa.CookieI, sa.CookieR, p.rawSA, p.rawIdR)
}

// localId stages our ID payload and keeps its body for the auth hash
func (p *Phase1) localId() *protocol.IdPayload {
	id := idPayload(p.engine.cfg.LocalID)
	if p.isInitiator {
		p.rawIdI = id.Encode()
	} else {
		p.rawIdR = id.Encode()
	}
	return id
}

// addAuth appends our certificate when wanted, then HASH or SIG
func (p *Phase1) addAuth(sa *SA, out *protocol.Payloads) error {
	h := p.hashFor(sa, p.isInitiator)
	if !sa.Suite.Auth.IsSignature() {
		out.Add(&protocol.HashPayload{
			PayloadHeader:   &protocol.PayloadHeader{},
			HashPayloadType: protocol.PayloadTypeHASH,
			Data:            h,
		})
		return nil
	}
	id, ok := p.engine.cfg.LocalID.(*CertIdentity)
	if !ok {
		return errors.Wrap(ErrAuthFailed, "signature auth without a certificate")
	}
	if p.useCerts() && (p.certRequested || p.engine.cfg.SendCertProactively) {
		out.Add(&protocol.CertPayload{
			PayloadHeader:    &protocol.PayloadHeader{},
			CertEncodingType: protocol.X_509_CERTIFICATE_SIGNATURE,
			Data:             id.Certificate.Raw,
		})
	}
	sig, err := signHash(id, p.engine.rand, h, p.logger)
	if err != nil {
		return err
	}
	out.Add(&protocol.HashPayload{
		PayloadHeader:   &protocol.PayloadHeader{},
		HashPayloadType: protocol.PayloadTypeSIG,
		Data:            sig,
	})
	return nil
}

func (p *Phase1) addCertRequest(out *protocol.Payloads) {
	if p.useCerts() {
		out.Add(&protocol.CertRequestPayload{
			PayloadHeader:    &protocol.PayloadHeader{},
			CertEncodingType: protocol.X_509_CERTIFICATE_SIGNATURE,
		})
	}
}

// addInitialContact tells the peer to forget older SAs with us
func (p *Phase1) addInitialContact(sa *SA, out *protocol.Payloads) {
	if !p.engine.cfg.InitialContact {
		return
	}
	out.Add(&protocol.NotifyPayload{
		PayloadHeader:    &protocol.PayloadHeader{},
		Doi:              protocol.DOI_IPSEC,
		ProtocolId:       protocol.PROTO_ISAKMP,
		NotificationType: protocol.INITIAL_CONTACT,
		Spi:              append(append([]byte{}, sa.CookieI[:]...), sa.CookieR[:]...),
	})
}

// verifyPeer checks the peer's HASH or SIG
func (p *Phase1) verifyPeer(sa *SA, msg *Message) error {
	h := p.hashFor(sa, !p.isInitiator)
	if !sa.Suite.Auth.IsSignature() {
		if err := msg.ensure(protocol.PayloadTypeHASH); err != nil {
			return err
		}
		hp := msg.Payloads.Get(protocol.PayloadTypeHASH).(*protocol.HashPayload)
		if !crypto.Equal(hp.Data, h) {
			return errors.Wrap(ErrInvalidHash, "phase 1")
		}
		return nil
	}
	if err := msg.ensure(protocol.PayloadTypeSIG); err != nil {
		return err
	}
	sig := msg.Payloads.Get(protocol.PayloadTypeSIG).(*protocol.HashPayload)
	cert, err := peerCertificate(p.engine.cfg.RemoteID, msg.Payloads.GetCerts(), p.peerId, p.logger)
	if err != nil {
		return err
	}
	return verifyHashSignature(cert, h, sig.Data)
}

// decryptIn decrypts the message being processed with the phase 1 iv
func (p *Phase1) decryptIn(sa *SA) error {
	msg := p.in
	if !msg.Header.Flags.IsEncrypted() {
		return nil
	}
	if sa.Keys == nil {
		return errors.Wrap(ErrInvalidFlags, "encrypted before keys exist")
	}
	if err := msg.decrypt(sa.Suite, sa.Keys.EncKey, sa.Iv, p.logger); err != nil {
		return err
	}
	sa.Iv.SyncFromDec()
	return nil
}

// peerInitialContact acts on an INITIAL-CONTACT sent with the last phase 1 message
func (p *Phase1) peerInitialContact(sa *SA, msg *Message) {
	if msg.Payloads.GetNotification(protocol.INITIAL_CONTACT) != nil {
		p.engine.initialContact(sa)
	}
}
