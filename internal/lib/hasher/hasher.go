// Package hasher wraps bcrypt for credentials and refresh-token secrets.
package hasher

import (
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const DefaultCost = 12

var ErrMismatch = errors.New("hash mismatch")

type Bcrypt struct {
	cost int
}

// New returns a hasher with the given bcrypt cost. Costs outside bcrypt's
// accepted range fall back to DefaultCost.
func New(cost int) *Bcrypt {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultCost
	}
	return &Bcrypt{cost: cost}
}

func (b *Bcrypt) Hash(secret string) ([]byte, error) {
	const op = "hasher.Hash"

	hash, err := bcrypt.GenerateFromPassword([]byte(secret), b.cost)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return hash, nil
}

func (b *Bcrypt) Compare(hash []byte, secret string) error {
	if err := bcrypt.CompareHashAndPassword(hash, []byte(secret)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrMismatch
		}
		return fmt.Errorf("hasher.Compare: %w", err)
	}
	return nil
}

// HashToken hashes a long token. bcrypt only reads the first 72 bytes of its
// input, so the token is reduced to a SHA-256 fingerprint first.
func (b *Bcrypt) HashToken(token string) ([]byte, error) {
	return b.Hash(fingerprint(token))
}

func (b *Bcrypt) CompareToken(hash []byte, token string) error {
	return b.Compare(hash, fingerprint(token))
}

func fingerprint(token string) string {
	sum := sha256.Sum256([]byte(token))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
