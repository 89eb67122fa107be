package ike

import (
	"encoding/binary"
	"testing"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/msgboxio/ikev1/platform"
	"github.com/msgboxio/ikev1/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// aggressive runs one phase 1 between manually connected peers
func aggressive(t *testing.T, i, r *testPeer) SaKey {
	p1, _ := startInitiator(t, i)
	require.NoError(t, deliver(t, r, i.conn.last()))
	require.NoError(t, deliver(t, i, r.conn.last()))
	require.NoError(t, deliver(t, r, i.conn.last()))
	return p1.sa().Key()
}

func TestDeferredRemoval(t *testing.T) {
	i, r := newManualPair(t, pskConfig(protocol.EXCHANGE_AGGRESSIVE), pskConfig(protocol.EXCHANGE_AGGRESSIVE))
	key := aggressive(t, i, r)
	r.e.do(func() error {
		sa, ok := r.e.dir.Get(key)
		require.True(t, ok)
		r.e.deleteSa(sa, ErrSaDeleted)
		// still reachable until the lock scope ends
		_, ok = r.e.dir.Get(key)
		assert.True(t, ok)
		assert.True(t, sa.IsDeleted())
		return nil
	})
	assert.Zero(t, r.e.Directory().Len())
	assert.Zero(t, r.established())
}

func TestInitialContact(t *testing.T) {
	cfg := pskConfig(protocol.EXCHANGE_AGGRESSIVE)
	cfg.InitialContact = true
	i, r := newManualPair(t, cfg, pskConfig(protocol.EXCHANGE_AGGRESSIVE))
	aggressive(t, i, r)
	second := aggressive(t, i, r)

	// the responder keeps only the newest SA with the peer
	require.Equal(t, 1, r.e.Directory().Len())
	_, ok := r.e.Directory().Get(second)
	assert.True(t, ok)
	assert.Equal(t, 2, i.established())
}

func TestUnprotectedNotifyIgnored(t *testing.T) {
	i, _ := newManualPair(t, pskConfig(protocol.EXCHANGE_MAIN), pskConfig(protocol.EXCHANGE_MAIN))
	p1, _ := startInitiator(t, i)

	payloads := protocol.MakePayloads()
	payloads.Add(&protocol.NotifyPayload{
		PayloadHeader:    &protocol.PayloadHeader{},
		Doi:              protocol.DOI_IPSEC,
		ProtocolId:       protocol.PROTO_ISAKMP,
		NotificationType: protocol.NO_PROPOSAL_CHOSEN,
	})
	hdr := &protocol.IsakmpHeader{
		CookieI:      p1.cookieI,
		MajorVersion: protocol.ISAKMP_MAJOR_VERSION,
		ExchangeType: protocol.EXCHANGE_INFORMATIONAL,
	}
	b, err := protocol.EncodeMessage(nil, hdr, payloads, protocol.MAX_PACKET_LEN, log.NewNopLogger())
	require.NoError(t, err)

	assert.NoError(t, deliver(t, i, b))
	assert.Equal(t, 1, i.localsLen(), "negotiation continues")
	assert.False(t, p1.deleted)
}

func TestPeerDeletesEsp(t *testing.T) {
	i, r := newTestPair(t, pskConfig(protocol.EXCHANGE_MAIN), pskConfig(protocol.EXCHANGE_MAIN))
	initiate(t, i, addrR, 2)
	checkChildren(t, i, r)

	err := i.e.do(func() error {
		var sent error
		i.e.dir.ForEach(func(sa *SA) {
			require.Len(t, sa.children, 1)
			spi := make([]byte, 4)
			binary.BigEndian.PutUint32(spi, sa.children[0].spiLocal)
			sent = i.e.sendInformational(sa, &protocol.DeletePayload{
				PayloadHeader: &protocol.PayloadHeader{},
				Doi:           protocol.DOI_IPSEC,
				ProtocolId:    protocol.PROTO_IPSEC_ESP,
				Spis:          [][]byte{spi},
			})
		})
		return sent
	})
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		_, removed := r.cb.counts()
		return removed == 1
	}, 5*time.Second, 10*time.Millisecond)
	// the isakmp SA is unaffected
	assert.Equal(t, 1, r.established())
}

func TestEspHardExpire(t *testing.T) {
	i, r := newTestPair(t, pskConfig(protocol.EXCHANGE_MAIN), pskConfig(protocol.EXCHANGE_MAIN))
	initiate(t, i, addrR, 2)
	checkChildren(t, i, r)

	// unknown spis are ignored
	i.e.HandleExpire(&platform.Expire{Spi: 1, Hard: true})
	_, removed := i.cb.counts()
	assert.Zero(t, removed)

	i.e.HandleExpire(&platform.Expire{Spi: i.cb.first().SpiI, Hard: true})
	_, removed = i.cb.counts()
	assert.Equal(t, 1, removed)
	require.Eventually(t, func() bool {
		_, removed := r.cb.counts()
		return removed == 1
	}, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, i.established())
}

func TestEspSoftExpireRekeys(t *testing.T) {
	i, r := newTestPair(t, pskConfig(protocol.EXCHANGE_MAIN), pskConfig(protocol.EXCHANGE_MAIN))
	initiate(t, i, addrR, 2)
	checkChildren(t, i, r)

	// only the quick mode initiator renegotiates
	r.e.HandleExpire(&platform.Expire{Spi: r.cb.first().SpiR})
	i.e.HandleExpire(&platform.Expire{Spi: i.cb.first().SpiI})
	require.Eventually(t, func() bool {
		added, _ := r.cb.counts()
		return added == 2
	}, 5*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool {
		added, _ := i.cb.counts()
		return added == 2
	}, 5*time.Second, 10*time.Millisecond)
	_, removed := i.cb.counts()
	assert.Zero(t, removed)
}
