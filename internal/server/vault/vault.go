// Package vault implements one-way hashing and verification of secrets
// (login passwords and refresh tokens) with bcrypt.
//
// bcrypt only consumes the first 72 bytes of its input, while refresh tokens
// are JWTs several hundred bytes long whose prefix (header and the start of
// the payload) is shared by many tokens. Every secret is therefore reduced to
// base64(SHA-256(secret)) before it is handed to bcrypt, so the whole secret
// is bound by the hash.
package vault

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"fmt"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/poolx"
	"golang.org/x/crypto/bcrypt"
)

// Vault hashes and verifies secrets on a bounded worker pool.
type Vault struct {
	cost      int
	pool      *poolx.Pool
	dummyHash []byte
}

// Option customizes a Vault.
type Option func(*Vault)

// WithCost overrides the bcrypt work factor. Values outside
// [bcrypt.MinCost, bcrypt.MaxCost] are clamped into that range.
func WithCost(cost int) Option {
	return func(v *Vault) {
		v.cost = min(max(cost, bcrypt.MinCost), bcrypt.MaxCost)
	}
}

// New returns a Vault using the default work factor of 10. The hash that
// VerifyNothing compares against is computed here, at the same cost.
func New(pool *poolx.Pool, opts ...Option) *Vault {
	v := &Vault{cost: common.DefaultHashCost, pool: pool}
	for _, o := range opts {
		o(v)
	}
	v.dummyHash = newDummyHash(v.cost)
	return v
}

func newDummyHash(cost int) []byte {
	random, err := common.MakeRandHexString(32)
	if err != nil {
		panic(fmt.Errorf("vault: read random: %w", err))
	}
	hash, err := bcrypt.GenerateFromPassword(prehash(random), cost)
	if err != nil {
		panic(fmt.Errorf("vault: dummy hash: %w", err))
	}
	return hash
}

// Cost returns the configured bcrypt work factor.
func (v *Vault) Cost() int {
	return v.cost
}

// Hash returns a salted bcrypt hash of secret.
func (v *Vault) Hash(ctx context.Context, secret string) (string, error) {
	var hash []byte
	err := v.pool.Do(ctx, func() error {
		var err error
		hash, err = bcrypt.GenerateFromPassword(prehash(secret), v.cost)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("hash secret: %w", err)
	}
	return string(hash), nil
}

// Verify reports whether secret matches hash. Mismatches, malformed hashes
// and cancelled contexts all yield false.
func (v *Vault) Verify(ctx context.Context, secret string, hash string) bool {
	ok := false
	_ = v.pool.Do(ctx, func() error {
		ok = bcrypt.CompareHashAndPassword([]byte(hash), prehash(secret)) == nil
		return nil
	})
	return ok
}

// VerifyNothing spends the same effort as a real Verify against a hash that
// can never match. Used when there is no stored hash to compare with, so the
// caller's latency does not reveal that fact.
func (v *Vault) VerifyNothing(ctx context.Context, secret string) {
	_ = v.pool.Do(ctx, func() error {
		_ = bcrypt.CompareHashAndPassword(v.dummyHash, prehash(secret))
		return nil
	})
}

func prehash(secret string) []byte {
	sum := sha256.Sum256([]byte(secret))
	out := make([]byte, base64.StdEncoding.EncodedLen(len(sum)))
	base64.StdEncoding.Encode(out, sum[:])
	return out
}
