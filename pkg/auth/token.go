package auth

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// SessionClaims are carried by the session cookie. The JWT ID is the session
// id used to look up the server-side record, the subject is the user id.
type SessionClaims struct {
	jwt.RegisteredClaims
	Username string `json:"username"`
}

// Signer issues and validates RS256 session tokens.
type Signer struct {
	privateKey *rsa.PrivateKey
	publicKey  *rsa.PublicKey
	issuer     string
}

// NewSigner creates a Signer from PEM-encoded keys.
func NewSigner(privateKeyPEM, publicKeyPEM []byte, issuer string) (*Signer, error) {
	block, _ := pem.Decode(privateKeyPEM)
	if block == nil {
		return nil, errors.New("failed to parse private key PEM")
	}
	priv, err := x509.ParsePKCS1PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}

	pub, err := parsePublicKey(publicKeyPEM)
	if err != nil {
		return nil, err
	}

	return &Signer{
		privateKey: priv,
		publicKey:  pub,
		issuer:     issuer,
	}, nil
}

// NewSignerFromPublicKey creates a Signer that can only validate tokens.
func NewSignerFromPublicKey(publicKeyPEM []byte, issuer string) (*Signer, error) {
	pub, err := parsePublicKey(publicKeyPEM)
	if err != nil {
		return nil, err
	}
	return &Signer{publicKey: pub, issuer: issuer}, nil
}

// LoadSigner reads both PEM files from disk.
func LoadSigner(privateKeyPath, publicKeyPath, issuer string) (*Signer, error) {
	privPEM, err := os.ReadFile(privateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read private key: %w", err)
	}
	pubPEM, err := os.ReadFile(publicKeyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read public key: %w", err)
	}
	return NewSigner(privPEM, pubPEM, issuer)
}

func parsePublicKey(publicKeyPEM []byte) (*rsa.PublicKey, error) {
	blockPub, _ := pem.Decode(publicKeyPEM)
	if blockPub == nil {
		return nil, errors.New("failed to parse public key PEM")
	}
	pub, err := x509.ParsePKIXPublicKey(blockPub.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse public key: %w", err)
	}
	rsaPub, ok := pub.(*rsa.PublicKey)
	if !ok {
		return nil, errors.New("public key is not RSA")
	}
	return rsaPub, nil
}

// IssueSessionToken signs a token for sess that expires after ttl.
func (s *Signer) IssueSessionToken(sess Session, ttl time.Duration) (string, time.Time, error) {
	if s.privateKey == nil {
		return "", time.Time{}, errors.New("signer has no private key")
	}

	now := time.Now()
	expiresAt := now.Add(ttl)
	claims := &SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sess.ID,
			Subject:   sess.UserID.String(),
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Username: sess.Username,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	signed, err := token.SignedString(s.privateKey)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// ValidateToken parses and verifies the JWT signature, expiry and issuer.
func (s *Signer) ValidateToken(tokenString string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.publicKey, nil
	}, jwt.WithIssuer(s.issuer), jwt.WithExpirationRequired())
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// Session converts validated claims back into a Session value.
func (c *SessionClaims) Session() (Session, error) {
	userID, err := uuid.Parse(c.Subject)
	if err != nil {
		return Session{}, fmt.Errorf("invalid subject: %w", err)
	}
	return Session{ID: c.ID, UserID: userID, Username: c.Username}, nil
}
