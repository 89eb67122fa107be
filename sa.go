package ike

import (
	"fmt"
	"net"
	"time"

	"github.com/msgboxio/ikev1/crypto"
	"github.com/msgboxio/ikev1/protocol"
)

// SaKey names an isakmp SA by its cookie pair
type SaKey struct {
	I, R protocol.Cookie
}

func (k SaKey) String() string {
	return fmt.Sprintf("%x:%x", k.I[:], k.R[:])
}

// SA is an isakmp security association
type SA struct {
	CookieI, CookieR protocol.Cookie
	IsInitiator      bool
	Local, Remote    net.Addr

	// nil until a transform is chosen
	Suite *crypto.CipherSuite
	// nil until key material is derived
	Keys *crypto.KeyMaterial
	Iv   *crypto.IvPair

	Lifetime    time.Duration
	Established bool
	PeerId      *protocol.IdPayload

	// owning phase 1 negotiation
	phase1 *Phase1
	// quick mode negotiations keyed by message id
	phase2 map[uint32]*Phase2
	// installed ipsec SAs, for removal
	children []*childSa
}

func newSa(ckyI, ckyR protocol.Cookie, isInitiator bool, local, remote net.Addr) *SA {
	return &SA{
		CookieI:     ckyI,
		CookieR:     ckyR,
		IsInitiator: isInitiator,
		Local:       local,
		Remote:      remote,
		phase2:      make(map[uint32]*Phase2),
	}
}

func (sa *SA) Key() SaKey {
	return SaKey{I: sa.CookieI, R: sa.CookieR}
}

func (sa *SA) String() string {
	return fmt.Sprintf("%s %s<=>%s", sa.Key(), sa.Local, sa.Remote)
}

// IsDeleted reports whether the SA is marked for deferred removal
func (sa *SA) IsDeleted() bool {
	return sa.phase1 != nil && sa.phase1.deleted
}

func (sa *SA) addPhase2(p2 *Phase2) {
	sa.phase2[p2.msgId] = p2
}

func (sa *SA) getPhase2(msgId uint32) (*Phase2, bool) {
	p2, ok := sa.phase2[msgId]
	return p2, ok
}

func (sa *SA) removePhase2(msgId uint32) {
	delete(sa.phase2, msgId)
}

// saRef is how a negotiation reaches its SA: either the SA is owned by the
// negotiation until admission, or it is named in the Directory
type saRef interface {
	resolve(*Directory) *SA
	isAdmitted() bool
}

type localSa struct {
	sa *SA
}

func (l localSa) resolve(*Directory) *SA { return l.sa }
func (l localSa) isAdmitted() bool       { return false }

type admittedSa struct {
	key SaKey
}

func (a admittedSa) resolve(d *Directory) *SA {
	sa, _ := d.Get(a.key)
	return sa
}
func (a admittedSa) isAdmitted() bool { return true }
