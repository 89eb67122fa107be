package ike

import (
	"bytes"
	"context"
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/go-kit/kit/log"
	"github.com/msgboxio/ikev1/platform"
	"github.com/msgboxio/ikev1/protocol"
	"github.com/msgboxio/ikev1/state"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	addrI = &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 5001}
	addrR = &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 5002}
)

// pipeConn is one end of an in memory datagram link. Every packet
// written is recorded; it is forwarded when the end has a peer
type pipeConn struct {
	local net.Addr
	peer  *pipeConn
	in    chan []byte
	done  chan struct{}
	once  sync.Once

	mtx  sync.Mutex
	sent [][]byte
	fail error
	// drop returns true for packets that are lost in transit
	drop func([]byte) bool
}

func newPipeConn(local net.Addr) *pipeConn {
	return &pipeConn{local: local, in: make(chan []byte, 64), done: make(chan struct{})}
}

func newPipe(a, b net.Addr) (*pipeConn, *pipeConn) {
	ca, cb := newPipeConn(a), newPipeConn(b)
	ca.peer, cb.peer = cb, ca
	return ca, cb
}

func (c *pipeConn) ReadPacket() ([]byte, net.Addr, net.IP, error) {
	select {
	case b := <-c.in:
		var from net.Addr
		if c.peer != nil {
			from = c.peer.local
		}
		return b, from, nil, nil
	case <-c.done:
		return nil, nil, nil, io.EOF
	}
}

func (c *pipeConn) WritePacket(b []byte, remote net.Addr) error {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	if c.fail != nil {
		return c.fail
	}
	pkt := append([]byte{}, b...)
	c.sent = append(c.sent, pkt)
	if c.peer == nil || (c.drop != nil && c.drop(pkt)) {
		return nil
	}
	select {
	case c.peer.in <- pkt:
	case <-c.peer.done:
	}
	return nil
}

func (c *pipeConn) LocalAddr() net.Addr { return c.local }

func (c *pipeConn) Close() error {
	c.once.Do(func() { close(c.done) })
	return nil
}

func (c *pipeConn) packets() [][]byte {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	return append([][]byte{}, c.sent...)
}

func (c *pipeConn) last() []byte {
	pkts := c.packets()
	if len(pkts) == 0 {
		return nil
	}
	return pkts[len(pkts)-1]
}

func (c *pipeConn) setFail(err error) {
	c.mtx.Lock()
	c.fail = err
	c.mtx.Unlock()
}

// fakeScheduler never fires on its own; tests fire timers explicitly
type fakeScheduler struct {
	mtx    sync.Mutex
	delays []time.Duration
}

type fakeTimer struct{ stopped bool }

func (t *fakeTimer) Stop() bool {
	was := !t.stopped
	t.stopped = true
	return was
}

func (s *fakeScheduler) AfterFunc(d time.Duration, f func()) Stopper {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	s.delays = append(s.delays, d)
	return &fakeTimer{}
}

func (s *fakeScheduler) lastDelay() time.Duration {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	if len(s.delays) == 0 {
		return 0
	}
	return s.delays[len(s.delays)-1]
}

type recordingCallback struct {
	mtx            sync.Mutex
	added, removed []*platform.SaParams
	fail           error
}

func (r *recordingCallback) AddSa(sa *SA, params *platform.SaParams) error {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	if r.fail != nil {
		return r.fail
	}
	r.added = append(r.added, params)
	return nil
}

func (r *recordingCallback) RemoveSa(sa *SA, params *platform.SaParams) error {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	r.removed = append(r.removed, params)
	return nil
}

func (r *recordingCallback) counts() (added, removed int) {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	return len(r.added), len(r.removed)
}

func (r *recordingCallback) first() *platform.SaParams {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	if len(r.added) == 0 {
		return nil
	}
	return r.added[0]
}

type testPeer struct {
	e     *Engine
	conn  *pipeConn
	sched *fakeScheduler
	cb    *recordingCallback
}

func newTestPeer(t *testing.T, cfg *Config, conn *pipeConn) *testPeer {
	p := &testPeer{conn: conn, sched: &fakeScheduler{}, cb: &recordingCallback{}}
	var err error
	p.e, err = newEngine(cfg, conn, p.cb, p.sched, log.NewNopLogger())
	require.NoError(t, err)
	return p
}

// newTestPair connects two engines and runs them until the test ends
func newTestPair(t *testing.T, ini, res *Config) (*testPeer, *testPeer) {
	ci, cr := newPipe(addrI, addrR)
	i, r := newTestPeer(t, ini, ci), newTestPeer(t, res, cr)
	ctx, cancel := context.WithCancel(context.Background())
	go i.e.Run(ctx)
	go r.e.Run(ctx)
	t.Cleanup(func() {
		cancel()
		ci.Close()
		cr.Close()
	})
	return i, r
}

// newManualPair connects two engines whose packets are only recorded;
// tests move them with deliver
func newManualPair(t *testing.T, ini, res *Config) (*testPeer, *testPeer) {
	return newTestPeer(t, ini, newPipeConn(addrI)), newTestPeer(t, res, newPipeConn(addrR))
}

// deliver hands pkt to p as if received from the other end
func deliver(t *testing.T, p *testPeer, pkt []byte) error {
	from := addrI
	if p.conn.local == addrI {
		from = addrR
	}
	msg, err := DecodeMessage(append([]byte{}, pkt...), log.NewNopLogger())
	require.NoError(t, err)
	msg.RemoteAddr = from
	msg.LocalAddr = p.conn.local
	return p.e.HandleMessage(msg)
}

// fire runs the pending timer named by key
func fire(t *testing.T, e *Engine, key TimerKey) {
	e.mtx.Lock()
	entry, ok := e.timers.pending[key]
	e.mtx.Unlock()
	require.True(t, ok, "timer %s not pending", key)
	e.fireTimer(key, entry.gen)
}

func (p *testPeer) established() (n int) {
	p.e.do(func() error {
		p.e.dir.ForEach(func(sa *SA) {
			if sa.Established && !sa.IsDeleted() {
				n++
			}
		})
		return nil
	})
	return
}

func (p *testPeer) localsLen() (n int) {
	p.e.do(func() error {
		n = len(p.e.locals)
		return nil
	})
	return
}

func pskIdentities() *PskIdentities {
	return &PskIdentities{
		Primary: "ike.test",
		Ids:     map[string][]byte{"ike.test": []byte("foo")},
	}
}

func pskConfig(mode protocol.ExchangeType) *Config {
	cfg := DefaultConfig()
	cfg.Mode = mode
	cfg.LocalID = pskIdentities()
	cfg.RemoteID = pskIdentities()
	return cfg
}

func certConfigs(t *testing.T) (ini, res *Config) {
	caCert, caKey, err := NewRSACA("ike test ca", 2048)
	require.NoError(t, err)
	roots := newPool(caCert)
	identity := func(name string) *CertIdentity {
		key := mustRSAKey(t)
		cert, err := NewSignedCert(CertID{CommonName: name}, key.Public(), caCert, caKey)
		require.NoError(t, err)
		return &CertIdentity{Certificate: cert, PrivateKey: key}
	}
	mk := func(local *CertIdentity, peer string) *Config {
		cfg := DefaultConfig()
		tr := protocol.IKE_AES128_SHA1_MODP1024
		tr.Auth = protocol.AUTH_RSA_SIG
		cfg.ProposalIke = []protocol.Phase1Transform{tr}
		cfg.LocalID = local
		cfg.RemoteID = &CertIdentity{Roots: roots, Name: peer}
		cfg.InbandCertXchg = true
		return cfg
	}
	return mk(identity("initiator.test"), "responder.test"), mk(identity("responder.test"), "initiator.test")
}

func initiate(t *testing.T, p *testPeer, remote net.Addr, phase int) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()
	require.NoError(t, p.e.Initiate(ctx, remote, phase))
}

// checkChildren verifies both ends installed the same keys for each direction
func checkChildren(t *testing.T, i, r *testPeer) {
	require.Eventually(t, func() bool {
		a, _ := r.cb.counts()
		return a == 1
	}, 5*time.Second, 10*time.Millisecond)
	pi, pr := i.cb.first(), r.cb.first()
	require.NotNil(t, pi)
	require.NotNil(t, pr)
	assert.True(t, pi.IsInitiator)
	assert.False(t, pr.IsInitiator)
	assert.Equal(t, pi.SpiI, pr.SpiI)
	assert.Equal(t, pi.SpiR, pr.SpiR)
	assert.NotEqual(t, pi.SpiI, pi.SpiR)
	if !bytes.Equal(pi.EspEi, pr.EspEi) || !bytes.Equal(pi.EspAr, pr.EspAr) {
		t.Errorf("keys differ:\n%s\n%s", spew.Sdump(pi), spew.Sdump(pr))
	}
	assert.NotEqual(t, pi.EspEi, pi.EspEr, "each direction has its own keys")
	assert.Len(t, pi.EspEi, 16)
	assert.Len(t, pi.EspAi, 20)
}

func TestAggressiveModePsk(t *testing.T) {
	i, r := newTestPair(t, pskConfig(protocol.EXCHANGE_AGGRESSIVE), pskConfig(protocol.EXCHANGE_AGGRESSIVE))
	initiate(t, i, addrR, 1)
	assert.Equal(t, 1, i.established())
	require.Eventually(t, func() bool { return r.established() == 1 }, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, 0, i.localsLen())
	assert.Equal(t, 0, r.localsLen())
	// the responder answers once
	assert.Len(t, r.conn.packets(), 1)
}

func TestMainModePsk(t *testing.T) {
	i, r := newTestPair(t, pskConfig(protocol.EXCHANGE_MAIN), pskConfig(protocol.EXCHANGE_MAIN))
	initiate(t, i, addrR, 1)
	assert.Equal(t, 1, i.established())
	assert.Equal(t, 1, r.established())
	assert.Len(t, i.conn.packets(), 3)
	assert.Len(t, r.conn.packets(), 3)
	var keys []SaKey
	for _, p := range []*testPeer{i, r} {
		p.e.dir.ForEach(func(sa *SA) { keys = append(keys, sa.Key()) })
	}
	require.Len(t, keys, 2)
	assert.Equal(t, keys[0], keys[1])
}

func TestMainModeCertificates(t *testing.T) {
	ini, res := certConfigs(t)
	i, r := newTestPair(t, ini, res)
	initiate(t, i, addrR, 1)
	assert.Equal(t, 1, r.established())
	r.e.dir.ForEach(func(sa *SA) {
		require.NotNil(t, sa.PeerId)
		assert.Equal(t, protocol.ID_DER_ASN1_DN, sa.PeerId.IdType)
	})
}

func TestMainModeWrongPsk(t *testing.T) {
	res := pskConfig(protocol.EXCHANGE_MAIN)
	res.RemoteID = &PskIdentities{Primary: "ike.test", Ids: map[string][]byte{"ike.test": []byte("bar")}}
	i, r := newTestPair(t, pskConfig(protocol.EXCHANGE_MAIN), res)
	result := make(chan error, 1)
	go func() {
		result <- i.e.Initiate(context.Background(), addrR, 1)
	}()
	// the responder cannot read the identity message and gives up
	require.Eventually(t, func() bool {
		return len(r.conn.packets()) >= 2 && r.localsLen() == 0
	}, 5*time.Second, 10*time.Millisecond)
	assert.Zero(t, r.established())
	assert.Zero(t, r.e.Directory().Len())

	// an unprotected notify never ends the initiator's negotiation; its timeout does
	var cky protocol.Cookie
	i.e.do(func() error {
		for c := range i.e.locals {
			cky = c
		}
		return nil
	})
	require.True(t, cky.IsSet())
	fire(t, i.e, TimerKey{Event: state.PHASE1_TIMEOUT, Subject: cky})
	select {
	case err := <-result:
		assert.Equal(t, ErrTimeout, errors.Cause(err))
		assert.Equal(t, Resource, KindOf(err))
	case <-time.After(5 * time.Second):
		t.Fatal("initiate did not return")
	}
	assert.Zero(t, i.localsLen())
}

func TestQuickModeAfterMainMode(t *testing.T) {
	i, r := newTestPair(t, pskConfig(protocol.EXCHANGE_MAIN), pskConfig(protocol.EXCHANGE_MAIN))
	initiate(t, i, addrR, 2)
	checkChildren(t, i, r)
	// a second quick mode reuses the isakmp SA
	initiate(t, i, addrR, 2)
	added, _ := i.cb.counts()
	assert.Equal(t, 2, added)
	assert.Equal(t, 1, i.e.Directory().Len())
}

func TestQuickModeAggressivePfs(t *testing.T) {
	ini := pskConfig(protocol.EXCHANGE_AGGRESSIVE)
	res := pskConfig(protocol.EXCHANGE_AGGRESSIVE)
	esp := protocol.ESP_AES128_SHA1
	esp.Group = protocol.MODP_1024
	ini.ProposalEsp = []protocol.Phase2Transform{esp}
	res.ProposalEsp = []protocol.Phase2Transform{esp}
	i, r := newTestPair(t, ini, res)
	initiate(t, i, addrR, 2)
	checkChildren(t, i, r)
	assert.Equal(t, protocol.MODP_1024, i.cb.first().EspTransform.Group)
}

func TestQuickModeCommit(t *testing.T) {
	ini := pskConfig(protocol.EXCHANGE_MAIN)
	ini.Commit = true
	i, r := newTestPair(t, ini, pskConfig(protocol.EXCHANGE_MAIN))
	initiate(t, i, addrR, 2)
	checkChildren(t, i, r)
	// HASH(4) with CONNECTED follows the responder's install
	ack := r.conn.last()
	msg, err := DecodeMessage(ack, log.NewNopLogger())
	require.NoError(t, err)
	assert.Equal(t, protocol.EXCHANGE_QUICK, msg.Header.ExchangeType)
}

func TestQuickModeNoProposal(t *testing.T) {
	res := pskConfig(protocol.EXCHANGE_MAIN)
	res.ProposalEsp = []protocol.Phase2Transform{protocol.ESP_3DES_MD5}
	i, r := newTestPair(t, pskConfig(protocol.EXCHANGE_MAIN), res)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()
	err := i.e.Initiate(ctx, addrR, 2)
	require.Error(t, err)
	// the responder's notify aborts the quick mode, the isakmp SA survives
	assert.Contains(t, err.Error(), "NO_PROPOSAL_CHOSEN")
	assert.Equal(t, 1, i.established())
	assert.Equal(t, 1, r.established())
	added, _ := r.cb.counts()
	assert.Zero(t, added)
}

func TestShutdownDeletesPeerSa(t *testing.T) {
	i, r := newTestPair(t, pskConfig(protocol.EXCHANGE_MAIN), pskConfig(protocol.EXCHANGE_MAIN))
	initiate(t, i, addrR, 2)
	checkChildren(t, i, r)
	i.e.Shutdown()
	assert.Zero(t, i.e.Directory().Len())
	_, removed := i.cb.counts()
	assert.Equal(t, 1, removed)
	require.Eventually(t, func() bool { return r.e.Directory().Len() == 0 }, 5*time.Second, 10*time.Millisecond)
	_, removed = r.cb.counts()
	assert.Equal(t, 1, removed)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.Equal(t, ErrEngineClosed, i.e.Initiate(ctx, addrR, 1))
}

func TestInitiateCancelled(t *testing.T) {
	i := newTestPeer(t, pskConfig(protocol.EXCHANGE_MAIN), newPipeConn(addrI))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Equal(t, context.Canceled, i.e.Initiate(ctx, addrR, 1))
	// the negotiation itself continues until it times out
	assert.Equal(t, 1, i.localsLen())
	i.e.mtx.Lock()
	assert.Empty(t, i.e.waiters)
	i.e.mtx.Unlock()
}

func TestInitiateBadPhase(t *testing.T) {
	i := newTestPeer(t, pskConfig(protocol.EXCHANGE_MAIN), newPipeConn(addrI))
	assert.Error(t, i.e.Initiate(context.Background(), addrR, 3))
	assert.Empty(t, i.e.waiters)
}

func TestRunStopsOnCancel(t *testing.T) {
	p := newTestPeer(t, pskConfig(protocol.EXCHANGE_MAIN), newPipeConn(addrI))
	ctx, cancel := context.WithCancel(context.Background())
	result := make(chan error, 1)
	go func() {
		result <- p.e.Run(ctx)
	}()
	cancel()
	select {
	case err := <-result:
		assert.Equal(t, context.Canceled, err)
	case <-time.After(5 * time.Second):
		t.Fatal("run did not return")
	}
	assert.Equal(t, ErrEngineClosed, p.e.HandleMessage(&Message{Header: &protocol.IsakmpHeader{}}))
}

func TestShutdownReleasesNegotiations(t *testing.T) {
	p := newTestPeer(t, pskConfig(protocol.EXCHANGE_MAIN), newPipeConn(addrI))
	p1, done := startInitiator(t, p)
	require.NotNil(t, p1.lastMessage)
	p.e.Shutdown()
	assert.Equal(t, ErrEngineClosed, errors.Cause(<-done))
	assert.Zero(t, p.localsLen())
	assert.True(t, p1.deleted)
	assert.Nil(t, p1.lastMessage)
	p.e.mtx.Lock()
	assert.Empty(t, p.e.timers.pending)
	p.e.mtx.Unlock()
}
