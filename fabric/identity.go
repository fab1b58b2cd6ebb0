package fabric

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
)

var ErrKeyMismatch = errors.New("private key does not match certificate")

// VerifyKeyPair checks that the enrollment certificate was issued for the
// private key the gateway will sign with.
func VerifyKeyPair(certPEM, keyPEM []byte) error {
	keyBlock, _ := pem.Decode(keyPEM)
	if keyBlock == nil {
		return errors.New("failed to decode private key PEM block")
	}

	var privateKey any
	var err error
	switch keyBlock.Type {
	case "EC PRIVATE KEY":
		privateKey, err = x509.ParseECPrivateKey(keyBlock.Bytes)
	case "RSA PRIVATE KEY":
		privateKey, err = x509.ParsePKCS1PrivateKey(keyBlock.Bytes)
	default:
		privateKey, err = x509.ParsePKCS8PrivateKey(keyBlock.Bytes)
	}
	if err != nil {
		return fmt.Errorf("failed to parse private key: %w", err)
	}

	certBlock, _ := pem.Decode(certPEM)
	if certBlock == nil || certBlock.Type != "CERTIFICATE" {
		return errors.New("failed to decode certificate PEM block")
	}
	cert, err := x509.ParseCertificate(certBlock.Bytes)
	if err != nil {
		return fmt.Errorf("failed to parse certificate: %w", err)
	}

	signer, ok := privateKey.(crypto.Signer)
	if !ok {
		return fmt.Errorf("unsupported private key type %T", privateKey)
	}

	type equaler interface {
		Equal(crypto.PublicKey) bool
	}
	switch pub := cert.PublicKey.(type) {
	case *ecdsa.PublicKey, *rsa.PublicKey, ed25519.PublicKey:
		if !pub.(equaler).Equal(signer.Public()) {
			return ErrKeyMismatch
		}
		return nil
	default:
		return fmt.Errorf("unsupported certificate key type %T", pub)
	}
}
