// Package authtest builds throwaway signing keys for tests.
package authtest

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"testing"

	"github.com/floroz/gavel-listings/pkg/auth"
)

const Issuer = "test-issuer"

// NewSigner returns a signer backed by a freshly generated RSA key
func NewSigner(t *testing.T) *auth.Signer {
	t.Helper()
	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("failed to generate RSA key: %v", err)
	}

	privPEM := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(privateKey),
	})
	pubBytes, err := x509.MarshalPKIXPublicKey(&privateKey.PublicKey)
	if err != nil {
		t.Fatalf("failed to marshal public key: %v", err)
	}
	pubPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubBytes})

	signer, err := auth.NewSigner(privPEM, pubPEM, Issuer)
	if err != nil {
		t.Fatalf("failed to build signer: %v", err)
	}
	return signer
}
