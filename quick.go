package ike

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/go-kit/kit/log/level"
	"github.com/msgboxio/ikev1/crypto"
	"github.com/msgboxio/ikev1/platform"
	"github.com/msgboxio/ikev1/protocol"
	"github.com/msgboxio/ikev1/state"
	"github.com/pkg/errors"
)

// Quick mode [RFC2409] 5.5
//
//	Initiator                          Responder
//	HDR*, HASH(1), SA, Ni [, KE] [, IDci, IDcr] -->
//	                              <--  HDR*, HASH(2), SA, Nr [, KE] [, IDci, IDcr]
//	HDR*, HASH(3)                 -->
//	                              <--  HDR*, HASH(4), N(CONNECTED)    commit bit only
var quickTable *state.Table[*Phase2]

func init() {
	quickTable = state.NewTable[*Phase2]("quick",
		quickInit,
		quickRespond,
		quickComplete,
		quickFinish,
		quickConnected,
	)
}

func newPhase2Iv(sa *SA, msgId uint32) *crypto.IvPair {
	return crypto.NewIvPair(sa.Suite.Phase2Iv(sa.Iv.Dec, msgId))
}

// newSpi returns a random esp spi outside the reserved range 1-255
func newSpi(rand io.Reader) ([]byte, error) {
	spi := make([]byte, 4)
	for {
		if _, err := io.ReadFull(rand, spi); err != nil {
			return nil, errors.Wrap(err, "spi")
		}
		if binary.BigEndian.Uint32(spi) > 255 {
			return spi, nil
		}
	}
}

func (p *Phase2) flags() protocol.IsakmpFlags {
	if p.commit {
		return protocol.FLAG_ENCRYPTION | protocol.FLAG_COMMIT
	}
	return protocol.FLAG_ENCRYPTION
}

// decryptIn decrypts the message being processed with the exchange iv
func (p *Phase2) decryptIn(sa *SA) error {
	if err := p.in.decrypt(sa.Suite, sa.Keys.EncKey, p.iv, p.logger); err != nil {
		return err
	}
	p.iv.SyncFromDec()
	return nil
}

// verifyPhase2Hash checks the leading HASH(n) of a decrypted message
func verifyPhase2Hash(sa *SA, msg *Message, kind crypto.HashKind, msgId uint32, ni, nr []byte) error {
	if msg.Payloads == nil || msg.Payloads.First() != protocol.PayloadTypeHASH {
		return errors.Wrap(ErrMissingPayload, "hash must come first")
	}
	slot, rest, err := protocol.HashSlot(msg.Plain())
	if err != nil {
		return err
	}
	// padding is not authenticated
	n := msg.Payloads.WireLen() - (len(slot) + protocol.PAYLOAD_HEADER_LENGTH)
	if n < 0 || n > len(rest) {
		return errors.Wrapf(ErrInvalidHash, "hashed length %d", n)
	}
	if !crypto.Equal(slot, phase2Hash(sa, kind, msgId, ni, nr, rest[:n])) {
		return errors.Wrapf(ErrInvalidHash, "HASH(%d)", kind)
	}
	return nil
}

func (p *Phase2) addKe(out *protocol.Payloads, group protocol.GroupDescription) (err error) {
	if group == protocol.MODP_NONE {
		return nil
	}
	if p.dhPrivate == nil {
		if p.dhPrivate, p.dhLocal, err = crypto.GenerateKey(group, p.engine.rand); err != nil {
			return
		}
	}
	out.Add(&protocol.KePayload{PayloadHeader: &protocol.PayloadHeader{}, KeyData: p.dhLocal})
	return nil
}

// takeKe reads the peer's pfs public value; one is required exactly when the group asks for it
func (p *Phase2) takeKe(msg *Message, group protocol.GroupDescription) error {
	pl := msg.Payloads.Get(protocol.PayloadTypeKE)
	if group == protocol.MODP_NONE {
		if pl != nil {
			return errors.Wrap(ErrUnexpectedPayload, "KE without pfs")
		}
		return nil
	}
	if pl == nil {
		return errors.Wrap(ErrMissingPayload, "pfs KE")
	}
	ke := pl.(*protocol.KePayload)
	p.dhRemote = append([]byte{}, ke.KeyData...)
	return nil
}

func (p *Phase2) takeNonce(msg *Message) error {
	no := msg.Payloads.Get(protocol.PayloadTypeNonce).(*protocol.NoncePayload)
	if len(no.Data) < protocol.MIN_NONCE_LEN || len(no.Data) > protocol.MAX_NONCE_LEN {
		return errors.Wrapf(ErrMissingPayload, "nonce length %d", len(no.Data))
	}
	p.nonceRemote = append([]byte{}, no.Data...)
	return nil
}

func quickInit(p *Phase2) (err error) {
	e, sa := p.engine, p.sa()
	if p.spiLocal, err = newSpi(e.rand); err != nil {
		return
	}
	if p.nonceLocal, err = e.nonce(); err != nil {
		return
	}
	p.commit = e.cfg.Commit
	p.offer = protocol.Phase2Proposal(p.spiLocal, e.cfg.ProposalEsp)
	out := p.outbound(p.flags())
	out.Add(protocol.NewHashSlot(sa.Suite.PrfLen))
	out.Add(p.offer)
	out.Add(&protocol.NoncePayload{PayloadHeader: &protocol.PayloadHeader{}, Data: p.nonceLocal})
	if err = p.addKe(out, e.cfg.pfsGroup()); err != nil {
		return
	}
	idci, idcr := p.policy.ClientIds()
	out.Add(idci)
	out.Add(idcr)
	p.hashKind = crypto.HASH_1
	if err = e.send(p); err != nil {
		return
	}
	p.iv.SyncFromEnc()
	return p.machine.Next()
}

func quickRespond(p *Phase2) error {
	if err := quickRecvOffer(p); err != nil {
		return err
	}
	return quickSendReply(p)
}

func quickRecvOffer(p *Phase2) (err error) {
	e, sa, msg := p.engine, p.sa(), p.in
	if err = p.decryptIn(sa); err != nil {
		return
	}
	if err = verifyPhase2Hash(sa, msg, crypto.HASH_1, p.msgId, nil, nil); err != nil {
		return
	}
	if err = msg.ensure(protocol.PayloadTypeSA, protocol.PayloadTypeNonce); err != nil {
		return
	}
	offer := msg.Payloads.Get(protocol.PayloadTypeSA).(*protocol.SaPayload)
	if len(offer.Proposals) > 0 {
		p.spiRemote = append([]byte{}, offer.Proposals[0].Spi...)
	}
	chosen, prop, tr, err := selectPhase2(offer, e.cfg.ProposalEsp)
	if err != nil {
		return
	}
	p.chosen = chosen
	p.spiRemote = append([]byte{}, prop.Spi...)
	if err = p.takeNonce(msg); err != nil {
		return
	}
	if err = p.takeKe(msg, chosen.Group); err != nil {
		return
	}
	if p.policy, err = e.responderPolicy(sa, msg, chosen); err != nil {
		return
	}
	p.commit = msg.Header.Flags.IsCommit()
	if p.spiLocal, err = newSpi(e.rand); err != nil {
		return
	}
	p.offer = phase2Reply(offer, prop, tr, p.spiLocal)
	return nil
}

// responderPolicy checks the client ids of a quick mode offer against our selectors
func (e *Engine) responderPolicy(sa *SA, msg *Message, chosen protocol.Phase2Transform) (*protocol.PolicyParams, error) {
	var policy *protocol.PolicyParams
	switch ids := msg.Payloads.GetIds(); len(ids) {
	case 0:
		// host to host between the isakmp endpoints
		policy = e.cfg.Policy(sa.Remote, sa.Local)
		policy.IniNet = hostNet(AddrToIp(sa.Remote))
		policy.ResNet = hostNet(AddrToIp(sa.Local))
	case 2:
		var err error
		if policy, err = protocol.PolicyFromIds(ids[0], ids[1]); err != nil {
			return nil, errors.Wrap(ErrInvalidIdentity, err.Error())
		}
		if e.cfg.RemoteNet != nil && policy.IniNet.String() != e.cfg.RemoteNet.String() {
			return nil, errors.Wrapf(ErrInvalidIdentity, "initiator selector %s", policy.IniNet)
		}
		if e.cfg.LocalNet != nil && policy.ResNet.String() != e.cfg.LocalNet.String() {
			return nil, errors.Wrapf(ErrInvalidIdentity, "responder selector %s", policy.ResNet)
		}
	default:
		return nil, errors.Wrapf(ErrMissingPayload, "%d client ids", len(ids))
	}
	policy.Ini = AddrToIp(sa.Remote)
	policy.Res = AddrToIp(sa.Local)
	policy.IsTransportMode = chosen.Mode == protocol.ENCAPSULATION_TRANSPORT
	return policy, nil
}

func quickSendReply(p *Phase2) (err error) {
	e, sa, msg := p.engine, p.sa(), p.in
	if p.nonceLocal, err = e.nonce(); err != nil {
		return
	}
	out := p.outbound(p.flags())
	out.Add(protocol.NewHashSlot(sa.Suite.PrfLen))
	out.Add(p.offer)
	out.Add(&protocol.NoncePayload{PayloadHeader: &protocol.PayloadHeader{}, Data: p.nonceLocal})
	if err = p.addKe(out, p.chosen.Group); err != nil {
		return
	}
	for _, id := range msg.Payloads.GetIds() {
		out.Add(&protocol.IdPayload{
			PayloadHeader: &protocol.PayloadHeader{},
			IdType:        id.IdType,
			ProtocolId:    id.ProtocolId,
			Port:          id.Port,
			Data:          id.Data,
		})
	}
	p.hashKind = crypto.HASH_2
	if err = e.send(p); err != nil {
		return
	}
	p.iv.SyncFromEnc()
	return p.machine.Next()
}

func quickComplete(p *Phase2) (err error) {
	e, sa, msg := p.engine, p.sa(), p.in
	if err = p.decryptIn(sa); err != nil {
		return
	}
	if err = verifyPhase2Hash(sa, msg, crypto.HASH_2, p.msgId, p.ni(), nil); err != nil {
		return
	}
	if err = msg.ensure(protocol.PayloadTypeSA, protocol.PayloadTypeNonce); err != nil {
		return
	}
	reply := msg.Payloads.Get(protocol.PayloadTypeSA).(*protocol.SaPayload)
	if p.chosen, p.spiRemote, err = checkPhase2Reply(p.offer, reply); err != nil {
		return
	}
	if err = p.takeNonce(msg); err != nil {
		return
	}
	if err = p.takeKe(msg, p.chosen.Group); err != nil {
		return
	}
	if ids := msg.Payloads.GetIds(); len(ids) != 0 {
		idci, idcr := p.policy.ClientIds()
		if len(ids) != 2 || !bytes.Equal(ids[0].Encode(), idci.Encode()) || !bytes.Equal(ids[1].Encode(), idcr.Encode()) {
			return errors.Wrap(ErrInvalidIdentity, "client ids changed")
		}
	}
	p.policy.IsTransportMode = p.chosen.Mode == protocol.ENCAPSULATION_TRANSPORT
	// the responder may drop the commit request
	p.commit = p.commit && msg.Header.Flags.IsCommit()
	out := p.outbound(p.flags())
	out.Add(protocol.NewHashSlot(sa.Suite.PrfLen))
	p.hashKind = crypto.HASH_3
	if err = e.send(p); err != nil {
		return
	}
	p.iv.SyncFromEnc()
	if p.commit {
		return p.machine.Next()
	}
	if err = e.install(p); err != nil {
		return
	}
	e.finishPhase2(p)
	return nil
}

func quickFinish(p *Phase2) (err error) {
	e, sa, msg := p.engine, p.sa(), p.in
	if err = p.decryptIn(sa); err != nil {
		return
	}
	if err = verifyPhase2Hash(sa, msg, crypto.HASH_3, p.msgId, p.ni(), p.nr()); err != nil {
		return
	}
	if err = e.install(p); err != nil {
		return
	}
	if p.commit {
		out := p.outbound(protocol.FLAG_ENCRYPTION)
		out.Add(protocol.NewHashSlot(sa.Suite.PrfLen))
		out.Add(&protocol.NotifyPayload{
			PayloadHeader:    &protocol.PayloadHeader{},
			Doi:              protocol.DOI_IPSEC,
			ProtocolId:       protocol.PROTO_IPSEC_ESP,
			NotificationType: protocol.CONNECTED,
			Spi:              p.spiLocal,
		})
		p.hashKind = crypto.HASH_4
		if err = e.send(p); err != nil {
			return
		}
		p.iv.SyncFromEnc()
	}
	e.finishPhase2(p)
	return nil
}

func quickConnected(p *Phase2) (err error) {
	e, sa, msg := p.engine, p.sa(), p.in
	if err = p.decryptIn(sa); err != nil {
		return
	}
	if err = verifyPhase2Hash(sa, msg, crypto.HASH_4, p.msgId, nil, nil); err != nil {
		return
	}
	if msg.Payloads.GetNotification(protocol.CONNECTED) == nil {
		return errors.Wrap(ErrMissingPayload, "CONNECTED")
	}
	if err = e.install(p); err != nil {
		return
	}
	e.finishPhase2(p)
	return nil
}

// install derives the esp keys [RFC2409] 5.5 and hands the SAs to the callback.
// Each direction is keyed with the spi of its receiver
func (e *Engine) install(p *Phase2) error {
	sa := p.sa()
	encLen, authLen, err := crypto.EspKeyLengths(p.chosen)
	if err != nil {
		return err
	}
	var gqmxy []byte
	if p.chosen.Group != protocol.MODP_NONE {
		if gqmxy, err = crypto.SharedSecret(p.chosen.Group, p.dhRemote, p.dhPrivate); err != nil {
			return errors.Wrap(ErrBadKeyExchange, err.Error())
		}
	}
	spiI, spiR := p.spiLocal, p.spiRemote
	if !p.isInitiator {
		spiI, spiR = p.spiRemote, p.spiLocal
	}
	keymat := func(spi []byte) []byte {
		return sa.Suite.Keymat(sa.Keys.SkeyidD, gqmxy, protocol.PROTO_IPSEC_ESP, spi, p.ni(), p.nr(), encLen+authLen)
	}
	toR, toI := keymat(spiR), keymat(spiI)
	params := &platform.SaParams{
		PolicyParams: p.policy,
		EspTransform: p.chosen,
		EspEi:        toR[:encLen],
		EspAi:        toR[encLen:],
		EspEr:        toI[:encLen],
		EspAr:        toI[encLen:],
		SpiI:         binary.BigEndian.Uint32(spiI),
		SpiR:         binary.BigEndian.Uint32(spiR),
		IsInitiator:  p.isInitiator,
	}
	if e.cb != nil {
		if err := e.cb.AddSa(sa, params); err != nil {
			return errors.Wrap(err, "install")
		}
	}
	sa.children = append(sa.children, &childSa{
		msgId:     p.msgId,
		spiLocal:  binary.BigEndian.Uint32(p.spiLocal),
		spiRemote: binary.BigEndian.Uint32(p.spiRemote),
		params:    params,
	})
	level.Info(p.logger).Log("msg", "esp sa installed", "esp", params)
	return nil
}
