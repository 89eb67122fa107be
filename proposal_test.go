package ike

import (
	"testing"
	"time"

	"github.com/msgboxio/ikev1/protocol"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectPhase1(t *testing.T) {
	offer := protocol.Phase1Proposal([]protocol.Phase1Transform{
		protocol.IKE_3DES_SHA1_MODP1024,
		protocol.IKE_AES128_SHA1_MODP1024,
	})
	mine := protocol.IKE_AES128_SHA1_MODP1024
	mine.Lifetime = time.Hour
	chosen, reply, err := selectPhase1(offer, []protocol.Phase1Transform{mine})
	require.NoError(t, err)
	assert.Equal(t, protocol.OAKLEY_AES_CBC, chosen.Encr)
	assert.Equal(t, time.Hour, chosen.Lifetime, "shorter lifetime wins")

	// the reply echoes the offered transform untouched
	require.Len(t, reply.Proposals, 1)
	require.Len(t, reply.Proposals[0].Transforms, 1)
	assert.Equal(t, uint8(2), reply.Proposals[0].Transforms[0].Number)
	got, err := checkPhase1Reply(offer, reply)
	require.NoError(t, err)
	assert.Equal(t, 8*time.Hour, got.Lifetime)

	_, _, err = selectPhase1(offer, []protocol.Phase1Transform{protocol.IKE_AES256_SHA256_MODP2048})
	assert.Equal(t, ErrNoProposalChosen, errors.Cause(err))
	assert.Equal(t, protocol.NO_PROPOSAL_CHOSEN, NotifyOf(err))

	offer.Doi = 7
	_, _, err = selectPhase1(offer, []protocol.Phase1Transform{mine})
	assert.Equal(t, ErrAttrNotSupported, errors.Cause(err))
}

func TestPhase1ReplyTampered(t *testing.T) {
	offer := protocol.Phase1Proposal([]protocol.Phase1Transform{protocol.IKE_AES128_SHA1_MODP1024})

	_, err := checkPhase1Reply(nil, offer)
	assert.Equal(t, ErrProposalTampered, errors.Cause(err))

	// a transform we never offered
	reply := protocol.Phase1Proposal([]protocol.Phase1Transform{protocol.IKE_3DES_SHA1_MODP1024})
	_, err = checkPhase1Reply(offer, reply)
	assert.Equal(t, ErrProposalTampered, errors.Cause(err))

	// a modified lifetime is a different transform
	longer := protocol.IKE_AES128_SHA1_MODP1024
	longer.Lifetime = 24 * time.Hour
	_, err = checkPhase1Reply(offer, protocol.Phase1Proposal([]protocol.Phase1Transform{longer}))
	assert.Equal(t, ErrProposalTampered, errors.Cause(err))

	// more than one transform in the reply
	multi := protocol.Phase1Proposal([]protocol.Phase1Transform{protocol.IKE_AES128_SHA1_MODP1024, protocol.IKE_AES128_SHA1_MODP1024})
	_, err = checkPhase1Reply(offer, multi)
	assert.Equal(t, ErrProposalTampered, errors.Cause(err))
	assert.Equal(t, Policy, KindOf(err))
}

func TestSelectPhase2(t *testing.T) {
	spiI := []byte{1, 2, 3, 4}
	offer := protocol.Phase2Proposal(spiI, []protocol.Phase2Transform{protocol.ESP_3DES_MD5, protocol.ESP_AES128_SHA1})
	chosen, prop, tr, err := selectPhase2(offer, []protocol.Phase2Transform{protocol.ESP_AES128_SHA1})
	require.NoError(t, err)
	assert.Equal(t, protocol.ESP_AES128_SHA1, chosen)
	assert.Equal(t, spiI, prop.Spi)

	spiR := []byte{5, 6, 7, 8}
	reply := phase2Reply(offer, prop, tr, spiR)
	got, spi, err := checkPhase2Reply(offer, reply)
	require.NoError(t, err)
	assert.Equal(t, protocol.ESP_AES128_SHA1, got)
	assert.Equal(t, spiR, spi)

	reply.Proposals[0].Spi = []byte{1}
	_, _, err = checkPhase2Reply(offer, reply)
	assert.Equal(t, ErrProposalTampered, errors.Cause(err))

	_, _, _, err = selectPhase2(offer, []protocol.Phase2Transform{protocol.ESP_AES256_SHA256})
	assert.Equal(t, ErrNoProposalChosen, errors.Cause(err))

	// proposals without a 4 byte spi are skipped
	_, _, _, err = selectPhase2(protocol.Phase2Proposal([]byte{1, 2}, []protocol.Phase2Transform{protocol.ESP_AES128_SHA1}),
		[]protocol.Phase2Transform{protocol.ESP_AES128_SHA1})
	assert.Equal(t, ErrNoProposalChosen, errors.Cause(err))
}

func TestAcceptedLifetime(t *testing.T) {
	assert.Equal(t, time.Minute, acceptedLifetime(time.Hour, time.Minute))
	assert.Equal(t, time.Minute, acceptedLifetime(time.Minute, time.Hour))
	assert.Equal(t, time.Hour, acceptedLifetime(0, time.Hour))
	assert.Equal(t, time.Hour, acceptedLifetime(time.Hour, 0))
	assert.Zero(t, acceptedLifetime(0, 0))
}
