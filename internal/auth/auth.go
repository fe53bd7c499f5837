// Package auth issues and verifies the short-lived bearer credential used by
// polling consumers and the dispatcher. A configured API key is exchanged at
// the token endpoint for an HS256 JWT.
package auth

import (
	"crypto/subtle"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const DefaultTokenTTL = time.Hour

var (
	ErrBadCredentials = errors.New("invalid username or API key")
	ErrInvalidToken   = errors.New("invalid or expired token")
)

type Issuer struct {
	secret   []byte
	username string
	apiKey   string
	ttl      time.Duration
	now      func() time.Time
}

type Option func(*Issuer)

func WithTTL(ttl time.Duration) Option {
	return func(i *Issuer) {
		i.ttl = ttl
	}
}

func WithClock(now func() time.Time) Option {
	return func(i *Issuer) {
		i.now = now
	}
}

func NewIssuer(signingSecret, username, apiKey string, opts ...Option) *Issuer {
	issuer := &Issuer{
		secret:   []byte(signingSecret),
		username: username,
		apiKey:   apiKey,
		ttl:      DefaultTokenTTL,
		now:      time.Now,
	}

	for _, o := range opts {
		o(issuer)
	}

	return issuer
}

// TTL is the lifetime of issued tokens.
func (i *Issuer) TTL() time.Duration {
	return i.ttl
}

// Exchange trades a username and API key for a bearer token. The key
// comparison is constant time.
func (i *Issuer) Exchange(username, apiKey string) (string, error) {
	usernameOK := subtle.ConstantTimeCompare([]byte(username), []byte(i.username)) == 1
	keyOK := subtle.ConstantTimeCompare([]byte(apiKey), []byte(i.apiKey)) == 1

	if !usernameOK || !keyOK {
		return "", ErrBadCredentials
	}

	now := i.now()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   username,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
	})

	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", err
	}

	return signed, nil
}

// Verify checks the token signature and expiry and returns the subject.
func (i *Issuer) Verify(tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(*jwt.Token) (any, error) { return i.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil || !token.Valid {
		return "", ErrInvalidToken
	}

	return claims.Subject, nil
}
