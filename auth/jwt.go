package auth

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/GoCodeAlone/gcprest/gcperrors"
	"github.com/GoCodeAlone/gcprest/secbuf"
)

// jwtClaims is the JWT-bearer assertion claim set from spec.md §4.3.
type jwtClaims struct {
	jwt.RegisteredClaims
	Scope string `json:"scope"`
}

// JWTSigner mints RS256 JWT-bearer assertions from a service-account
// private key. The key material lives in a SecureBuffer and is parsed on
// each Sign call rather than kept as a long-lived *rsa.PrivateKey, so it
// can be zeroized independently of the parsed form.
type JWTSigner struct {
	keyID      string
	issuer     string
	audience   string
	privateKey *secbuf.Buffer

	now func() time.Time
}

// NewJWTSigner builds a signer for the given service account credential.
func NewJWTSigner(c *ServiceAccountCredential) *JWTSigner {
	return &JWTSigner{
		keyID:      c.PrivateKeyID,
		issuer:     c.ClientEmail,
		audience:   c.TokenURI,
		privateKey: secbuf.FromString(c.PrivateKey),
		now:        time.Now,
	}
}

// Sign mints a compact, RS256-signed JWT-bearer assertion for scope.
func (s *JWTSigner) Sign(scope string) (string, error) {
	key, err := s.parseKey()
	if err != nil {
		return "", err
	}

	now := s.now()
	claims := jwtClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Audience:  jwt.ClaimStrings{s.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
		Scope: strings.Join(strings.Fields(scope), " "),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = s.keyID

	signed, err := token.SignedString(key)
	if err != nil {
		return "", gcperrors.NewTokenRequestFailed("failed to sign assertion: " + err.Error())
	}
	return signed, nil
}

func (s *JWTSigner) parseKey() (*rsa.PrivateKey, error) {
	var key *rsa.PrivateKey
	err := s.privateKey.WithUTF8(func(pemText string) {
		block, _ := pem.Decode([]byte(pemText))
		if block == nil {
			return
		}
		if parsed, parseErr := x509.ParsePKCS8PrivateKey(block.Bytes); parseErr == nil {
			if rsaKey, ok := parsed.(*rsa.PrivateKey); ok {
				key = rsaKey
			}
		}
	})
	if err != nil {
		return nil, gcperrors.NewInvalidPrivateKey("private key buffer is cleared")
	}
	if key == nil {
		return nil, gcperrors.NewInvalidPrivateKey("could not parse RSA private key")
	}
	return key, nil
}

// Close zeroizes the signer's private key material.
func (s *JWTSigner) Close() {
	s.privateKey.Clear()
}
