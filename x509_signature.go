package ike

import (
	"crypto"
	"crypto/rsa"
	"crypto/x509"
	"fmt"
	"io"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/msgboxio/ikev1/protocol"
	"github.com/pkg/errors"
)

// signHash signs HASH_I or HASH_R; [RFC2409] 5.1 signs the prf output
// itself, so no digest info is wrapped around it
func signHash(id *CertIdentity, rand io.Reader, hash []byte, logger log.Logger) ([]byte, error) {
	if id.Certificate == nil {
		return nil, errors.New("missing certificate")
	}
	if id.PrivateKey == nil {
		return nil, errors.New("missing private key")
	}
	if _, ok := id.PrivateKey.Public().(*rsa.PublicKey); !ok {
		return nil, errors.Wrapf(ErrCertUnsupported, "%T key", id.PrivateKey.Public())
	}
	cert := FormatCert(id.Certificate)
	logger.Log("AUTH", fmt.Sprintf("OUR_CERT[%s]", cert.String()))
	return id.PrivateKey.Sign(rand, hash, crypto.Hash(0))
}

func verifyHashSignature(cert *x509.Certificate, hash, sig []byte) error {
	pub, ok := cert.PublicKey.(*rsa.PublicKey)
	if !ok {
		return errors.Wrapf(ErrCertUnsupported, "%T key", cert.PublicKey)
	}
	if err := rsa.VerifyPKCS1v15(pub, crypto.Hash(0), hash, sig); err != nil {
		return errors.Wrap(ErrInvalidSig, err.Error())
	}
	return nil
}

// peerCertificate verifies the certificates a peer sent against the configured roots
func peerCertificate(remote Identity, certs []*protocol.CertPayload, peerId *protocol.IdPayload, logger log.Logger) (*x509.Certificate, error) {
	certID, ok := remote.(*CertIdentity)
	if !ok {
		return nil, errors.Wrap(ErrAuthFailed, "no certificate policy for peer")
	}
	var chain []*x509.Certificate
	for _, c := range certs {
		if c.CertEncodingType != protocol.X_509_CERTIFICATE_SIGNATURE {
			return nil, errors.Wrapf(ErrCertUnsupported, "encoding %d", c.CertEncodingType)
		}
		cert, err := x509.ParseCertificate(c.Data)
		if err != nil {
			return nil, errors.Wrap(ErrCertificateBad, err.Error())
		}
		chain = append(chain, cert)
	}
	if len(chain) == 0 {
		if certID.Certificate == nil {
			return nil, errors.Wrap(ErrAuthFailed, "peer sent no certificate")
		}
		// configured out of band
		chain = append(chain, certID.Certificate)
	}
	leaf := chain[0]
	id := FormatCert(leaf)
	logger.Log("AUTH", fmt.Sprintf("PEER_CERT[%s]", id.String()))
	// the key must belong to the name in the ID payload
	if peerId != nil && peerId.IdType == protocol.ID_DER_ASN1_DN && string(peerId.Data) != string(leaf.RawSubject) {
		return nil, errors.Wrap(ErrInvalidIdentity, "id does not match certificate subject")
	}
	opts := x509.VerifyOptions{
		Roots:         certID.Roots,
		Intermediates: x509.NewCertPool(),
		KeyUsages:     []x509.ExtKeyUsage{x509.ExtKeyUsageAny},
	}
	for _, c := range chain[1:] {
		opts.Intermediates.AddCert(c)
	}
	if _, err := leaf.Verify(opts); err != nil {
		level.Error(logger).Log("msg", "certificate verification", "err", err)
		return nil, errors.Wrap(ErrCertificateBad, err.Error())
	}
	if certID.Name != "" && !MatchNameFromCert(&id, certID.Name) {
		return nil, errors.Wrapf(ErrAuthFailed, "certificate is not authorized for name %s", certID.Name)
	}
	return leaf, nil
}
