package http

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/hkdf"

	"github.com/example/conference-central/internal/application"
)

const signingKeySize = 32

var (
	hkdfInfoTokenSigning = []byte("conference.token.hs256.v1")

	// ErrInvalidToken is returned for bearer tokens that fail verification.
	ErrInvalidToken = errors.New("invalid bearer token")
)

// TokenAuthority issues and verifies HS256 bearer tokens carrying the
// principal's identity. The signing key is derived from the configured
// secret with HKDF-SHA256.
type TokenAuthority struct {
	key    []byte
	issuer string
	now    func() time.Time
}

type principalClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
}

// NewTokenAuthority derives the signing key from secret. Tokens must carry
// issuer when it is non-empty.
func NewTokenAuthority(secret, issuer string) (*TokenAuthority, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, fmt.Errorf("token secret cannot be empty")
	}
	reader := hkdf.New(sha256.New, []byte(secret), nil, hkdfInfoTokenSigning)
	key := make([]byte, signingKeySize)
	if _, err := io.ReadFull(reader, key); err != nil {
		return nil, fmt.Errorf("derive token signing key: %w", err)
	}
	return &TokenAuthority{key: key, issuer: strings.TrimSpace(issuer), now: time.Now}, nil
}

// Issue signs a token for principal valid for ttl.
func (a *TokenAuthority) Issue(principal application.Principal, ttl time.Duration) (string, error) {
	if strings.TrimSpace(principal.UserID) == "" {
		return "", fmt.Errorf("token subject cannot be empty")
	}
	now := a.now()
	claims := principalClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   principal.UserID,
			Issuer:    a.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Email: principal.Email,
		Name:  principal.Name,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.key)
}

// Verify parses token and returns the principal it names.
func (a *TokenAuthority) Verify(token string) (application.Principal, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(a.now),
	}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}

	var claims principalClaims
	if _, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return a.key, nil
	}, opts...); err != nil {
		return application.Principal{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return application.Principal{}, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return application.Principal{
		UserID: claims.Subject,
		Email:  claims.Email,
		Name:   claims.Name,
	}, nil
}
