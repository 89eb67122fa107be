package ike

import (
	"time"

	"github.com/msgboxio/ikev1/crypto"
	"github.com/msgboxio/ikev1/protocol"
	"github.com/pkg/errors"
)

func samePhase1(a, b protocol.Phase1Transform) bool {
	return a.Encr == b.Encr && a.KeyLength == b.KeyLength && a.Hash == b.Hash &&
		a.Auth == b.Auth && a.Group == b.Group
}

func samePhase2(a, b protocol.Phase2Transform) bool {
	return a.EspId == b.EspId && a.KeyLength == b.KeyLength && a.AuthAlg == b.AuthAlg &&
		a.Mode == b.Mode && a.Group == b.Group
}

// acceptedLifetime is the shorter of two lifetimes, 0 meaning unset
func acceptedLifetime(peer, local time.Duration) time.Duration {
	if peer == 0 || (local != 0 && local < peer) {
		return local
	}
	return peer
}

// selectPhase1 picks the first offered transform our policy allows. The
// reply echoes the chosen transform as received, in a single proposal
func selectPhase1(offer *protocol.SaPayload, policy []protocol.Phase1Transform) (protocol.Phase1Transform, *protocol.SaPayload, error) {
	if offer.Doi != protocol.DOI_IPSEC {
		return protocol.Phase1Transform{}, nil, errors.Wrapf(ErrAttrNotSupported, "doi %d", offer.Doi)
	}
	for _, prop := range offer.Proposals {
		if prop.ProtocolId != protocol.PROTO_ISAKMP {
			continue
		}
		for _, tr := range prop.Transforms {
			t, err := protocol.ParsePhase1Transform(tr)
			if err != nil {
				continue
			}
			for _, mine := range policy {
				if !samePhase1(t, mine) {
					continue
				}
				if _, err := crypto.NewCipherSuite(t); err != nil {
					continue
				}
				t.Lifetime = acceptedLifetime(t.Lifetime, mine.Lifetime)
				return t, &protocol.SaPayload{
					PayloadHeader: &protocol.PayloadHeader{},
					Doi:           offer.Doi,
					Situation:     offer.Situation,
					Proposals: protocol.Proposals{{
						IsLast:     true,
						Number:     prop.Number,
						ProtocolId: prop.ProtocolId,
						Spi:        prop.Spi,
						Transforms: []*protocol.SaTransform{tr},
					}},
				}, nil
			}
		}
	}
	return protocol.Phase1Transform{}, nil, errors.Wrap(ErrNoProposalChosen, "phase 1")
}

// chosenTransform checks that a reply carries exactly one proposal with a
// single transform, identical to one we offered
func chosenTransform(offer, reply *protocol.SaPayload) (*protocol.SaProposal, *protocol.SaTransform, error) {
	if len(reply.Proposals) != 1 || len(reply.Proposals[0].Transforms) != 1 {
		return nil, nil, errors.Wrapf(ErrProposalTampered, "%d proposals in reply", len(reply.Proposals))
	}
	prop := reply.Proposals[0]
	tr := prop.Transforms[0]
	for _, offered := range offer.Proposals {
		if offered.ProtocolId != prop.ProtocolId {
			continue
		}
		for _, mine := range offered.Transforms {
			if mine.IsEqual(tr) {
				return prop, tr, nil
			}
		}
	}
	return nil, nil, errors.Wrap(ErrProposalTampered, "transform was not offered")
}

func checkPhase1Reply(offer, reply *protocol.SaPayload) (protocol.Phase1Transform, error) {
	if offer == nil {
		return protocol.Phase1Transform{}, errors.Wrap(ErrProposalTampered, "nothing offered")
	}
	_, tr, err := chosenTransform(offer, reply)
	if err != nil {
		return protocol.Phase1Transform{}, err
	}
	return protocol.ParsePhase1Transform(tr)
}

// selectPhase2 picks the first esp transform our policy allows; the
// returned proposal still carries the peer's spi
func selectPhase2(offer *protocol.SaPayload, policy []protocol.Phase2Transform) (protocol.Phase2Transform, *protocol.SaProposal, *protocol.SaTransform, error) {
	for _, prop := range offer.Proposals {
		if prop.ProtocolId != protocol.PROTO_IPSEC_ESP || len(prop.Spi) != 4 {
			continue
		}
		for _, tr := range prop.Transforms {
			t, err := protocol.ParsePhase2Transform(tr)
			if err != nil {
				continue
			}
			for _, mine := range policy {
				if !samePhase2(t, mine) {
					continue
				}
				if err := crypto.Phase2Supported(t); err != nil {
					continue
				}
				return t, prop, tr, nil
			}
		}
	}
	return protocol.Phase2Transform{}, nil, nil, errors.Wrap(ErrNoProposalChosen, "quick mode")
}

// phase2Reply answers with the chosen transform and our inbound spi
func phase2Reply(offer *protocol.SaPayload, prop *protocol.SaProposal, tr *protocol.SaTransform, spi []byte) *protocol.SaPayload {
	return &protocol.SaPayload{
		PayloadHeader: &protocol.PayloadHeader{},
		Doi:           offer.Doi,
		Situation:     offer.Situation,
		Proposals: protocol.Proposals{{
			IsLast:     true,
			Number:     prop.Number,
			ProtocolId: prop.ProtocolId,
			Spi:        spi,
			Transforms: []*protocol.SaTransform{tr},
		}},
	}
}

// checkPhase2Reply returns the transform and the responder spi of a quick mode reply
func checkPhase2Reply(offer, reply *protocol.SaPayload) (protocol.Phase2Transform, []byte, error) {
	prop, tr, err := chosenTransform(offer, reply)
	if err != nil {
		return protocol.Phase2Transform{}, nil, err
	}
	if len(prop.Spi) != 4 {
		return protocol.Phase2Transform{}, nil, errors.Wrapf(ErrProposalTampered, "spi size %d", len(prop.Spi))
	}
	t, err := protocol.ParsePhase2Transform(tr)
	return t, prop.Spi, err
}
