package ike

import (
	"crypto"
	"crypto/x509"
	"encoding/pem"
	"os"

	"github.com/pkg/errors"
)

func LoadRoot(caCert string) (*x509.CertPool, error) {
	// try and load the system certs if caCert has not been given
	if caCert == "" {
		return x509.SystemCertPool()
	}
	roots := x509.NewCertPool()
	rootPEM, err := os.ReadFile(caCert)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if ok := roots.AppendCertsFromPEM(rootPEM); !ok {
		return nil, errors.New("failed to parse root certificate")
	}
	return roots, nil
}

func LoadPEMCert(certFile string) (*x509.Certificate, error) {
	certPEM, err := os.ReadFile(certFile)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	block, _ := pem.Decode(certPEM)
	if block == nil {
		return nil, errors.Errorf("no pem data in %s", certFile)
	}
	return x509.ParseCertificate(block.Bytes)
}

// LoadKey reads a PEM encoded PKCS1 or PKCS8 private key
func LoadKey(keyFile string) (crypto.Signer, error) {
	keyPEM, err := os.ReadFile(keyFile)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	block, _ := pem.Decode(keyPEM)
	if block == nil {
		return nil, errors.Errorf("no pem data in %s", keyFile)
	}
	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}
	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, errors.Wrap(err, "parse private key")
	}
	signer, ok := key.(crypto.Signer)
	if !ok {
		return nil, errors.Errorf("%T is not a signer", key)
	}
	return signer, nil
}
