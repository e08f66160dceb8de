// Package jwt signs HS256 tokens. One Codec per token purpose, each with its own secret.
package jwt

import (
	"errors"
	"fmt"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
)

var (
	ErrExpired  = errors.New("token expired")
	ErrInvalid  = errors.New("token invalid")
	ErrCreation = errors.New("token creation failed")
)

// Envelope carries the registered claims stamped by the codec. Payload types
// embed it.
type Envelope struct {
	gojwt.RegisteredClaims
}

func (e *Envelope) Stamp(issuedAt, expiresAt time.Time) {
	e.IssuedAt = gojwt.NewNumericDate(issuedAt)
	e.ExpiresAt = gojwt.NewNumericDate(expiresAt)
}

type Claims interface {
	gojwt.Claims
	Stamp(issuedAt, expiresAt time.Time)
}

type Codec struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

type Option func(*Codec)

func WithClock(now func() time.Time) Option {
	return func(c *Codec) {
		c.now = now
	}
}

func New(secret string, ttl time.Duration, opts ...Option) *Codec {
	c := &Codec{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Codec) TTL() time.Duration { return c.ttl }

func (c *Codec) Issue(claims Claims) (string, error) {
	const op = "jwt.Issue"

	if len(c.secret) == 0 {
		return "", fmt.Errorf("%s: %w: empty secret", op, ErrCreation)
	}
	if c.ttl <= 0 {
		return "", fmt.Errorf("%s: %w: non-positive ttl", op, ErrCreation)
	}

	now := c.now()
	claims.Stamp(now, now.Add(c.ttl))

	signed, err := gojwt.NewWithClaims(gojwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("%s: %w: %w", op, ErrCreation, err)
	}

	return signed, nil
}

// Verify checks signature and expiry and decodes the payload into claims.
// It returns ErrExpired for a well-signed token past its expiry and
// ErrInvalid for every other failure.
func (c *Codec) Verify(token string, claims Claims) error {
	const op = "jwt.Verify"

	if len(c.secret) == 0 {
		return fmt.Errorf("%s: %w: empty secret", op, ErrInvalid)
	}

	_, err := gojwt.ParseWithClaims(token, claims, func(t *gojwt.Token) (interface{}, error) {
		return c.secret, nil
	},
		gojwt.WithValidMethods([]string{gojwt.SigningMethodHS256.Alg()}),
		gojwt.WithExpirationRequired(),
		gojwt.WithTimeFunc(c.now),
	)
	if err != nil {
		if errors.Is(err, gojwt.ErrTokenExpired) && !errors.Is(err, gojwt.ErrTokenSignatureInvalid) {
			return fmt.Errorf("%s: %w", op, ErrExpired)
		}
		return fmt.Errorf("%s: %w: %w", op, ErrInvalid, err)
	}

	return nil
}
