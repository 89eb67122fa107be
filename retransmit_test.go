package ike

import (
	"bytes"
	"testing"
	"time"

	"github.com/google/gopacket/bytediff"
	"github.com/google/uuid"
	"github.com/msgboxio/ikev1/protocol"
	"github.com/msgboxio/ikev1/state"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// startInitiator sends the first message of a phase 1 negotiation
func startInitiator(t *testing.T, p *testPeer) (*Phase1, chan error) {
	var p1 *Phase1
	var done chan error
	err := p.e.do(func() error {
		var err error
		if p1, err = p.e.startPhase1(addrR, nil); err != nil {
			return err
		}
		var id uuid.UUID
		id, done = p.e.addWaiter()
		p1.waiters = append(p1.waiters, id)
		return nil
	})
	require.NoError(t, err)
	return p1, done
}

func TestResendErrors(t *testing.T) {
	p := newTestPeer(t, pskConfig(protocol.EXCHANGE_MAIN), newPipeConn(addrI))
	e := p.e
	assert.Equal(t, ErrNoHandle, e.resend(nil))
	assert.Equal(t, ErrNoHandle, e.resend((*Phase1)(nil)))

	orphan := &Phase1{negotiation: negotiation{ref: admittedSa{key: SaKey{I: protocol.Cookie{9}}}}}
	assert.Equal(t, ErrNoSa, e.resend(orphan))

	sa := newSa(protocol.Cookie{1}, protocol.Cookie{}, true, addrI, addrR)
	p1 := e.newPhase1(sa, protocol.EXCHANGE_MAIN, true)
	assert.Equal(t, ErrNotBuffered, e.resend(p1))

	p1.lastMessage = []byte{1, 2, 3}
	assert.Equal(t, ErrResendExhausted, e.resend(p1))

	p1.resendBudget = 1
	assert.Equal(t, ErrNotBuffered, errors.Cause(e.resend(p1)), "corrupt buffer")
	assert.Nil(t, p1.lastMessage)
	assert.Empty(t, p.conn.packets())
}

func TestResendIdentical(t *testing.T) {
	p := newTestPeer(t, pskConfig(protocol.EXCHANGE_MAIN), newPipeConn(addrI))
	p1, _ := startInitiator(t, p)
	key := p1.timerKey()
	fire(t, p.e, key)
	fire(t, p.e, key)
	pkts := p.conn.packets()
	require.Len(t, pkts, 3)
	for _, pkt := range pkts[1:] {
		if !bytes.Equal(pkts[0], pkt) {
			t.Errorf("resend differs:\n%s", bytediff.BashOutput.String(bytediff.Diff(pkts[0], pkt)))
		}
	}
	assert.Equal(t, RESEND_COUNT-2, p1.resendBudget)
	// back off: interval * attempts
	assert.Equal(t, 3*RESEND_INTERVAL, p.sched.lastDelay())
}

func TestResendExhausted(t *testing.T) {
	p := newTestPeer(t, pskConfig(protocol.EXCHANGE_MAIN), newPipeConn(addrI))
	p1, done := startInitiator(t, p)
	for i := 0; i < RESEND_COUNT; i++ {
		fire(t, p.e, p1.timerKey())
	}
	assert.Zero(t, p1.resendBudget)
	fire(t, p.e, p1.timerKey())

	select {
	case err := <-done:
		assert.Equal(t, ErrResendExhausted, errors.Cause(err))
	case <-time.After(time.Second):
		t.Fatal("waiter not notified")
	}
	assert.Len(t, p.conn.packets(), 1+RESEND_COUNT)
	assert.Zero(t, p.localsLen())
	assert.Zero(t, p.e.timers.Len(), "no timer outlives the negotiation")
}

func TestResendTransportFailure(t *testing.T) {
	p := newTestPeer(t, pskConfig(protocol.EXCHANGE_MAIN), newPipeConn(addrI))
	p1, _ := startInitiator(t, p)
	p.conn.setFail(errors.New("unreachable"))
	fire(t, p.e, p1.timerKey())
	// the budget is spent and the buffer kept for the next try
	assert.Equal(t, RESEND_COUNT-1, p1.resendBudget)
	assert.NotNil(t, p1.lastMessage)
	assert.True(t, p.e.timers.IsSet(p1.timerKey()))

	p.conn.setFail(nil)
	fire(t, p.e, p1.timerKey())
	assert.Len(t, p.conn.packets(), 2)
}

func TestInitiateTransportFailure(t *testing.T) {
	conn := newPipeConn(addrI)
	conn.setFail(errors.New("unreachable"))
	p := newTestPeer(t, pskConfig(protocol.EXCHANGE_MAIN), conn)
	err := p.e.do(func() error {
		_, err := p.e.startPhase1(addrR, nil)
		return err
	})
	assert.Equal(t, ErrTransport, errors.Cause(err))
	assert.Zero(t, p.localsLen())
}

func TestPhase1Timeout(t *testing.T) {
	p := newTestPeer(t, pskConfig(protocol.EXCHANGE_AGGRESSIVE), newPipeConn(addrI))
	p1, done := startInitiator(t, p)
	fire(t, p.e, TimerKey{Event: state.PHASE1_TIMEOUT, Subject: p1.cookieI})
	assert.Equal(t, ErrTimeout, errors.Cause(<-done))
	assert.True(t, p1.deleted)
	assert.Nil(t, p1.lastMessage)
}

func TestDuplicateResendsReply(t *testing.T) {
	i, r := newManualPair(t, pskConfig(protocol.EXCHANGE_MAIN), pskConfig(protocol.EXCHANGE_MAIN))
	startInitiator(t, i)
	msg1 := i.conn.last()
	require.NoError(t, deliver(t, r, msg1))
	require.Len(t, r.conn.packets(), 1)

	// a retransmitted request is answered with the cached reply
	require.NoError(t, deliver(t, r, msg1))
	pkts := r.conn.packets()
	require.Len(t, pkts, 2)
	assert.Equal(t, pkts[0], pkts[1])
	assert.Equal(t, 1, r.localsLen(), "no second negotiation")

	// a duplicate reply makes the initiator resend its answer
	require.NoError(t, deliver(t, i, pkts[0]))
	require.Len(t, i.conn.packets(), 2)
	require.NoError(t, deliver(t, i, pkts[1]))
	assert.Len(t, i.conn.packets(), 3)
	assert.Equal(t, i.conn.packets()[1], i.conn.packets()[2])
}

func TestResponderCookieChecks(t *testing.T) {
	i, r := newManualPair(t, pskConfig(protocol.EXCHANGE_MAIN), pskConfig(protocol.EXCHANGE_MAIN))
	startInitiator(t, i)
	msg1 := i.conn.last()

	// a first message carrying a responder cookie names an unknown SA
	bogus := append([]byte{}, msg1...)
	bogus[protocol.COOKIE_LEN] = 0xff
	err := deliver(t, r, bogus)
	assert.Equal(t, ErrInvalidCookie, errors.Cause(err))
	assert.Zero(t, r.localsLen())

	require.NoError(t, deliver(t, r, msg1))
	msg2 := r.conn.last()

	// a reply without the responder cookie is refused without teardown
	stripped := append([]byte{}, msg2...)
	copy(stripped[protocol.COOKIE_LEN:2*protocol.COOKIE_LEN], make([]byte, protocol.COOKIE_LEN))
	err = deliver(t, i, stripped)
	assert.Equal(t, ErrInvalidCookie, errors.Cause(err))
	assert.Equal(t, Sequencing, KindOf(err))
	assert.Equal(t, 1, i.localsLen())
	assert.Len(t, i.conn.packets(), 1)

	require.NoError(t, deliver(t, i, msg2))
	assert.Len(t, i.conn.packets(), 2)
}

func TestInformationalNeverResent(t *testing.T) {
	i, r := newManualPair(t, pskConfig(protocol.EXCHANGE_AGGRESSIVE), pskConfig(protocol.EXCHANGE_AGGRESSIVE))
	startInitiator(t, i)
	require.NoError(t, deliver(t, r, i.conn.last()))
	require.NoError(t, deliver(t, i, r.conn.last()))
	require.NoError(t, deliver(t, r, i.conn.last()))
	require.Equal(t, 1, i.established())
	require.Equal(t, 1, r.established())

	before := i.e.timers.Len()
	sent := len(i.conn.packets())
	i.e.do(func() error {
		i.e.dir.ForEach(func(sa *SA) {
			require.NoError(t, i.e.sendNotify(sa, protocol.RESPONDER_LIFETIME, protocol.PROTO_ISAKMP, nil))
		})
		return nil
	})
	assert.Equal(t, before, i.e.timers.Len())
	require.Len(t, i.conn.packets(), sent+1)

	// the protected notify is accepted by the peer
	assert.NoError(t, deliver(t, r, i.conn.last()))
}
