package ike

import (
	"crypto"
	"crypto/x509"
	"net"

	"github.com/msgboxio/ikev1/protocol"
)

// Identity is how this end names and authenticates itself, and how it
// finds the secrets it uses to authenticate peers
type Identity interface {
	IdType() protocol.IdType
	Id() []byte
	AuthMethod() protocol.AuthMethod
	// AuthData returns the shared secret for a peer, nil if none
	AuthData(id []byte) []byte
}

// PskIdentities holds pre-shared keys keyed by peer id or peer address
type PskIdentities struct {
	Ids     map[string][]byte
	Primary string
	Type    protocol.IdType
}

func (psk *PskIdentities) IdType() protocol.IdType {
	if psk.Type == 0 {
		return protocol.ID_FQDN
	}
	return psk.Type
}

func (psk *PskIdentities) Id() []byte {
	switch psk.IdType() {
	case protocol.ID_IPV4_ADDR:
		return net.ParseIP(psk.Primary).To4()
	case protocol.ID_IPV6_ADDR:
		return net.ParseIP(psk.Primary).To16()
	}
	return []byte(psk.Primary)
}

func (psk *PskIdentities) AuthMethod() protocol.AuthMethod {
	return protocol.AUTH_PRE_SHARED_KEY
}

func (psk *PskIdentities) AuthData(id []byte) []byte {
	if d, ok := psk.Ids[string(id)]; ok {
		return d
	}
	return nil
}

type CertIdentity struct {
	Certificate *x509.Certificate
	PrivateKey  crypto.Signer
	Roots       *x509.CertPool
	// name the peer certificate must carry, empty to accept any verified chain
	Name string
}

func (c *CertIdentity) IdType() protocol.IdType {
	return protocol.ID_DER_ASN1_DN
}

func (c *CertIdentity) Id() []byte {
	if c.Certificate == nil {
		return nil
	}
	return c.Certificate.RawSubject
}

func (c *CertIdentity) AuthData(id []byte) []byte {
	return nil
}

func (c *CertIdentity) AuthMethod() protocol.AuthMethod {
	return protocol.AUTH_RSA_SIG
}

func idPayload(id Identity) *protocol.IdPayload {
	return &protocol.IdPayload{
		PayloadHeader: &protocol.PayloadHeader{},
		IdType:        id.IdType(),
		Data:          id.Id(),
	}
}

// idKey is the lookup key of a received id in a PskIdentities table
func idKey(id *protocol.IdPayload) []byte {
	switch id.IdType {
	case protocol.ID_IPV4_ADDR, protocol.ID_IPV6_ADDR:
		return []byte(net.IP(id.Data).String())
	}
	return id.Data
}

// addrKey is the lookup key of a peer known only by address
func addrKey(addr net.Addr) []byte {
	return []byte(AddrToIp(addr).String())
}
