package ike

import (
	"testing"
	"testing/iotest"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/google/uuid"
	"github.com/msgboxio/ikev1/protocol"
	"github.com/msgboxio/ikev1/state"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func aggressiveHeader(t *testing.T, msgId uint32, flags protocol.IsakmpFlags) []byte {
	payloads := protocol.MakePayloads()
	payloads.Add(&protocol.NoncePayload{PayloadHeader: &protocol.PayloadHeader{}, Data: make([]byte, NONCE_LEN)})
	hdr := &protocol.IsakmpHeader{
		CookieI:      protocol.Cookie{4, 5, 6},
		MajorVersion: protocol.ISAKMP_MAJOR_VERSION,
		ExchangeType: protocol.EXCHANGE_AGGRESSIVE,
		Flags:        flags,
		MsgId:        msgId,
	}
	b, err := protocol.EncodeMessage(nil, hdr, payloads, protocol.MAX_PACKET_LEN, log.NewNopLogger())
	require.NoError(t, err)
	return b
}

func TestPhase1HeaderChecks(t *testing.T) {
	r := newTestPeer(t, pskConfig(protocol.EXCHANGE_AGGRESSIVE), newPipeConn(addrR))

	err := deliver(t, r, aggressiveHeader(t, 5, 0))
	assert.Equal(t, ErrInvalidMessageId, errors.Cause(err))
	assert.Equal(t, Sequencing, KindOf(err))

	// the auth only flag is refused before the message id is looked at
	err = deliver(t, r, aggressiveHeader(t, 5, protocol.FLAG_AUTH_ONLY))
	assert.Equal(t, ErrInvalidFlags, errors.Cause(err))
	err = deliver(t, r, aggressiveHeader(t, 0, protocol.FLAG_AUTH_ONLY))
	assert.Equal(t, ErrInvalidFlags, errors.Cause(err))

	assert.Zero(t, r.localsLen())
	assert.Zero(t, r.e.Directory().Len())
	assert.Empty(t, r.conn.packets())
}

func TestCompletedPhase1RefusesMessages(t *testing.T) {
	i, r := newManualPair(t, pskConfig(protocol.EXCHANGE_AGGRESSIVE), pskConfig(protocol.EXCHANGE_AGGRESSIVE))
	aggressive(t, i, r)
	sent := len(r.conn.packets())

	// the first message again is neither a duplicate of the last one nor expected
	err := deliver(t, r, i.conn.packets()[0])
	assert.Equal(t, ErrUnexpectedMessage, errors.Cause(err))
	assert.Equal(t, 1, r.established())
	assert.Len(t, r.conn.packets(), sent)
}

func TestAggressiveDuplicateFirstMessage(t *testing.T) {
	i, r := newManualPair(t, pskConfig(protocol.EXCHANGE_AGGRESSIVE), pskConfig(protocol.EXCHANGE_AGGRESSIVE))
	startInitiator(t, i)
	msg1 := i.conn.last()
	require.NoError(t, deliver(t, r, msg1))
	require.NoError(t, deliver(t, r, msg1))

	// the responder admitted one SA and answered the copy from its cache
	pkts := r.conn.packets()
	require.Len(t, pkts, 2)
	assert.Equal(t, pkts[0], pkts[1])
	assert.Equal(t, 1, r.e.Directory().Len())
	assert.Zero(t, r.localsLen())

	require.NoError(t, deliver(t, i, pkts[0]))
	require.NoError(t, deliver(t, r, i.conn.last()))
	assert.Equal(t, 1, i.established())
	assert.Equal(t, 1, r.established())
}

func TestAggressiveReplyTampered(t *testing.T) {
	i, r := newManualPair(t, pskConfig(protocol.EXCHANGE_AGGRESSIVE), pskConfig(protocol.EXCHANGE_AGGRESSIVE))
	_, done := startInitiator(t, i)
	require.NoError(t, deliver(t, r, i.conn.last()))

	msg, err := DecodeMessage(append([]byte{}, r.conn.last()...), log.NewNopLogger())
	require.NoError(t, err)
	sa, ok := msg.Payloads.Get(protocol.PayloadTypeSA).(*protocol.SaPayload)
	require.True(t, ok)
	require.NotEmpty(t, sa.Proposals)
	require.NotEmpty(t, sa.Proposals[0].Transforms)
	changed := false
	for _, attr := range sa.Proposals[0].Transforms[0].Attributes {
		if attr.Data == nil {
			attr.Value ^= 1
			changed = true
			break
		}
	}
	require.True(t, changed)
	tampered, err := protocol.EncodeMessage(nil, msg.Header, msg.Payloads, protocol.MAX_PACKET_LEN, log.NewNopLogger())
	require.NoError(t, err)

	err = deliver(t, i, tampered)
	assert.Equal(t, ErrProposalTampered, errors.Cause(err))
	assert.Equal(t, Policy, KindOf(err))
	select {
	case err := <-done:
		assert.Equal(t, ErrProposalTampered, errors.Cause(err))
	case <-time.After(5 * time.Second):
		t.Fatal("waiter not notified")
	}
	assert.Zero(t, i.localsLen())
	assert.Zero(t, i.established())
	assert.Zero(t, i.e.Directory().Len())
}

func TestAdmittedPhase1FailureRemovesLater(t *testing.T) {
	i, r := newManualPair(t, pskConfig(protocol.EXCHANGE_AGGRESSIVE), pskConfig(protocol.EXCHANGE_AGGRESSIVE))
	startInitiator(t, i)
	require.NoError(t, deliver(t, r, i.conn.last()))
	require.NoError(t, deliver(t, i, r.conn.last()))
	require.Equal(t, 1, r.e.Directory().Len())

	// a corrupt third message cannot be decrypted or authenticated
	corrupt := append([]byte{}, i.conn.last()...)
	corrupt[protocol.ISAKMP_HEADER_LEN] ^= 0xff
	msg, err := DecodeMessage(corrupt, log.NewNopLogger())
	require.NoError(t, err)
	msg.RemoteAddr, msg.LocalAddr = addrI, addrR

	r.e.do(func() error {
		var sa *SA
		r.e.dir.ForEach(func(s *SA) { sa = s })
		require.NotNil(t, sa)
		assert.Error(t, r.e.dispatch(msg))
		// removal waits for the lock scope to end
		_, ok := r.e.dir.Get(sa.Key())
		assert.True(t, ok)
		assert.True(t, sa.IsDeleted())
		return nil
	})
	assert.Zero(t, r.e.Directory().Len())
	assert.Zero(t, r.established())
}

func TestRemoveSaTimerIgnored(t *testing.T) {
	i, r := newManualPair(t, pskConfig(protocol.EXCHANGE_AGGRESSIVE), pskConfig(protocol.EXCHANGE_AGGRESSIVE))
	key := aggressive(t, i, r)
	tk := TimerKey{Event: state.REMOVE_SA, Subject: key.I}
	r.e.do(func() error {
		r.e.timers.Set(tk, time.Second)
		return nil
	})
	fire(t, r.e, tk)
	// removal only happens through the deferred queue
	assert.Equal(t, 1, r.e.Directory().Len())
	assert.Equal(t, 1, r.established())
}

func TestMessageIdWithoutEntropy(t *testing.T) {
	i, r := newManualPair(t, pskConfig(protocol.EXCHANGE_AGGRESSIVE), pskConfig(protocol.EXCHANGE_AGGRESSIVE))
	key := aggressive(t, i, r)
	sent := len(i.conn.packets())
	i.e.do(func() error {
		i.e.rand = iotest.ErrReader(errors.New("no entropy"))
		return nil
	})

	var notifyErr, quickErr error
	var done chan error
	i.e.do(func() error {
		sa, ok := i.e.dir.Get(key)
		require.True(t, ok)
		notifyErr = i.e.sendNotify(sa, protocol.INITIAL_CONTACT, protocol.PROTO_ISAKMP, nil)
		var id uuid.UUID
		id, done = i.e.addWaiter()
		quickErr = i.e.startPhase2(sa, &phase2Request{waiter: id})
		return nil
	})
	assert.Error(t, notifyErr)
	assert.Contains(t, notifyErr.Error(), "no entropy")
	assert.Error(t, quickErr)
	select {
	case err := <-done:
		assert.Contains(t, err.Error(), "no entropy")
	default:
		t.Fatal("waiter not notified")
	}
	assert.Len(t, i.conn.packets(), sent)
	assert.Equal(t, 1, i.established())
}

func TestEncryptedMessageTooLong(t *testing.T) {
	i, r := newManualPair(t, pskConfig(protocol.EXCHANGE_AGGRESSIVE), pskConfig(protocol.EXCHANGE_AGGRESSIVE))
	key := aggressive(t, i, r)
	sent := len(i.conn.packets())

	var err error
	i.e.do(func() error {
		sa, ok := i.e.dir.Get(key)
		require.True(t, ok)
		// the clear message fits exactly; its padded form does not
		payloads := protocol.MakePayloads()
		payloads.Add(protocol.NewHashSlot(sa.Suite.PrfLen))
		payloads.Add(&protocol.NotifyPayload{
			PayloadHeader:    &protocol.PayloadHeader{},
			Doi:              protocol.DOI_IPSEC,
			ProtocolId:       protocol.PROTO_ISAKMP,
			NotificationType: protocol.INITIAL_CONTACT,
		})
		plain, encErr := protocol.EncodeMessage(nil, &protocol.IsakmpHeader{}, payloads, protocol.MAX_PACKET_LEN, log.NewNopLogger())
		require.NoError(t, encErr)
		require.NotZero(t, (len(plain)-protocol.ISAKMP_HEADER_LEN)%sa.Suite.BlockLen)
		i.e.cfg.MaxPacketLen = len(plain)
		err = i.e.sendNotify(sa, protocol.INITIAL_CONTACT, protocol.PROTO_ISAKMP, nil)
		return nil
	})
	assert.Equal(t, protocol.ERR_BUFFER_TOO_SMALL, errors.Cause(err))
	assert.Len(t, i.conn.packets(), sent)
}
