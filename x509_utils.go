package ike

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"fmt"
	"math"
	"math/big"
	"net"
	"time"

	"github.com/pkg/errors"
)

// AltNames are the subject alternative names of a certificate
type AltNames struct {
	DNSNames []string
	IPs      []net.IP
	Emails   []string
}

type CertID struct {
	CommonName          string
	Organization        []string
	AltNames            AltNames
	Issuer              string
	NotBefore, NotAfter time.Time
	IsCA                bool
}

func (c *CertID) alts() (names []string) {
	names = append(names, c.AltNames.DNSNames...)
	for _, ip := range c.AltNames.IPs {
		names = append(names, ip.String())
	}
	return append(names, c.AltNames.Emails...)
}

func (c *CertID) String() string {
	res := fmt.Sprintf("Issuer: CN=%s | Subject: CN=%s | CA: %t", c.Issuer, c.CommonName, c.IsCA)
	res += fmt.Sprintf(" | Not before: %s Not After: %s", c.NotBefore, c.NotAfter)
	if an := c.alts(); len(an) > 0 {
		res += fmt.Sprintf(" | Alternate Names: %v", an)
	}
	return res
}

// FormatCert extracts the names of a certificate
func FormatCert(c *x509.Certificate) (id CertID) {
	id.AltNames.IPs = append([]net.IP{}, c.IPAddresses...)
	id.AltNames.DNSNames = append([]string{}, c.DNSNames...)
	id.AltNames.Emails = append([]string{}, c.EmailAddresses...)
	id.Issuer = c.Issuer.CommonName
	id.CommonName = c.Subject.CommonName
	id.Organization = c.Subject.Organization
	id.IsCA = c.IsCA
	id.NotBefore = c.NotBefore
	id.NotAfter = c.NotAfter
	return
}

// MatchNameFromCert checks if name is specified in Subject or Altnames
func MatchNameFromCert(cert *CertID, name string) bool {
	if cert.CommonName != "" && cert.CommonName == name {
		return true
	}
	for _, alt := range cert.alts() {
		if alt != "" && alt == name {
			return true
		}
	}
	return false
}

// NewRSACA creates a self signed CA certificate
func NewRSACA(name string, bits int) (*x509.Certificate, *rsa.PrivateKey, error) {
	key, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, nil, errors.Wrap(err, "ca private key")
	}
	now := time.Now()
	tmpl := x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: name},
		NotBefore:             now.Add(-time.Minute).UTC(),
		NotAfter:              now.Add(24 * time.Hour).UTC(),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		BasicConstraintsValid: true,
		IsCA:                  true,
	}
	der, err := x509.CreateCertificate(rand.Reader, &tmpl, &tmpl, key.Public(), key)
	if err != nil {
		return nil, nil, errors.WithStack(err)
	}
	cert, err := x509.ParseCertificate(der)
	return cert, key, errors.WithStack(err)
}

// NewSignedCert creates a certificate for publicKey signed by the given CA
func NewSignedCert(cfg CertID, publicKey interface{}, caCert *x509.Certificate, caKey interface{}) (*x509.Certificate, error) {
	serial, err := rand.Int(rand.Reader, new(big.Int).SetInt64(math.MaxInt64))
	if err != nil {
		return nil, errors.WithStack(err)
	}
	tmpl := x509.Certificate{
		Subject: pkix.Name{
			CommonName:   cfg.CommonName,
			Organization: caCert.Subject.Organization,
		},
		DNSNames:     cfg.AltNames.DNSNames,
		IPAddresses:  cfg.AltNames.IPs,
		SerialNumber: serial,
		NotBefore:    caCert.NotBefore,
		NotAfter:     caCert.NotAfter,
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageAny},
	}
	der, err := x509.CreateCertificate(rand.Reader, &tmpl, caCert, publicKey, caKey)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return x509.ParseCertificate(der)
}
