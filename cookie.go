package ike

import (
	"crypto/rand"
	"crypto/sha1"
	"encoding/binary"
	"net"
	"sync/atomic"
	"time"

	"github.com/msgboxio/ikev1/protocol"
)

// Cookies as suggested in [RFC2408] 2.5.3:
// hash of the peer address and port, a local secret, a counter and the time

// Secret for cookies
var cookieSecret [64]byte

var cookieCounter uint64

func init() {
	rand.Read(cookieSecret[:])
}

func newCookie(remote net.Addr) (cky protocol.Cookie) {
	for !cky.IsSet() {
		var b [16]byte
		binary.BigEndian.PutUint64(b[:8], atomic.AddUint64(&cookieCounter, 1))
		binary.BigEndian.PutUint64(b[8:], uint64(time.Now().UnixNano()))
		digest := sha1.New()
		digest.Write(AddrToIp(remote))
		binary.Write(digest, binary.BigEndian, uint16(AddrToPort(remote)))
		digest.Write(cookieSecret[:])
		digest.Write(b[:])
		copy(cky[:], digest.Sum(nil))
	}
	return
}
