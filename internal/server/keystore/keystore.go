// Package keystore holds the RSA key pairs used to sign and verify tokens,
// each addressed by a key identifier (kid).
//
// Exactly one pair is active for new signatures. Other pairs stay resolvable
// for verification until an operator removes them, which must not happen
// before every token they signed (refresh tokens live 7 days) has expired.
//
// The key set is immutable: every rotation action builds a new set and
// publishes it with a single atomic swap, so a concurrent verifier sees
// either the old or the new set, never a mix.
package keystore

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/dmitrijs2005/authkeeper/internal/common"
)

var (
	ErrDuplicateKID    = errors.New("duplicate kid")
	ErrCannotSign      = errors.New("key pair has no private key")
	ErrRemoveActiveKey = errors.New("cannot remove the active signing key")
)

// SigningKeyPair is one RSA key pair. PrivateKey is nil for verify-only
// (retired) entries.
type SigningKeyPair struct {
	KID        string
	PrivateKey *rsa.PrivateKey
	PublicKey  *rsa.PublicKey
}

// CanSign reports whether the pair holds a private key.
func (p *SigningKeyPair) CanSign() bool {
	return p.PrivateKey != nil
}

type keySet struct {
	active string
	keys   map[string]*SigningKeyPair
}

// Store is safe for concurrent use. Reads are lock-free.
type Store struct {
	mu  sync.Mutex
	set atomic.Pointer[keySet]
}

// NewStore validates pairs and activeKID and returns a ready Store.
func NewStore(pairs []*SigningKeyPair, activeKID string) (*Store, error) {
	keys := make(map[string]*SigningKeyPair, len(pairs))
	for _, p := range pairs {
		if p == nil || p.KID == "" || p.PublicKey == nil {
			return nil, errors.New("invalid key pair")
		}
		if _, dup := keys[p.KID]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateKID, p.KID)
		}
		keys[p.KID] = p
	}

	if err := checkActive(keys, activeKID); err != nil {
		return nil, err
	}

	s := &Store{}
	s.set.Store(&keySet{active: activeKID, keys: keys})
	return s, nil
}

func checkActive(keys map[string]*SigningKeyPair, kid string) error {
	p, ok := keys[kid]
	if !ok {
		return fmt.Errorf("active kid %q: %w", kid, common.ErrorNotFound)
	}
	if !p.CanSign() {
		return fmt.Errorf("active kid %q: %w", kid, ErrCannotSign)
	}
	return nil
}

// ActiveSigningKey returns the pair used for all new signatures.
func (s *Store) ActiveSigningKey() (*SigningKeyPair, error) {
	set := s.set.Load()
	p, ok := set.keys[set.active]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return p, nil
}

// PublicKeyFor resolves kid to its verification key. Unknown kids return
// common.ErrorNotFound.
func (s *Store) PublicKeyFor(kid string) (*rsa.PublicKey, error) {
	p, ok := s.set.Load().keys[kid]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return p.PublicKey, nil
}

// PublicKeyPEM returns the PKIX "PUBLIC KEY" PEM encoding of kid's public key.
func (s *Store) PublicKeyPEM(kid string) ([]byte, error) {
	pub, err := s.PublicKeyFor(kid)
	if err != nil {
		return nil, err
	}
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return nil, fmt.Errorf("marshal public key: %w", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}), nil
}

// KIDs lists every resolvable kid in sorted order.
func (s *Store) KIDs() []string {
	return slices.Sorted(maps.Keys(s.set.Load().keys))
}

// ActiveKID returns the kid of the active pair.
func (s *Store) ActiveKID() string {
	return s.set.Load().active
}

// Add makes a new pair resolvable without changing the active key.
func (s *Store) Add(p *SigningKeyPair) error {
	if p == nil || p.KID == "" || p.PublicKey == nil {
		return errors.New("invalid key pair")
	}
	return s.update(func(next *keySet) error {
		if _, dup := next.keys[p.KID]; dup {
			return fmt.Errorf("%w: %q", ErrDuplicateKID, p.KID)
		}
		next.keys[p.KID] = p
		return nil
	})
}

// Activate switches new signatures to kid. The previous active pair stays
// resolvable for verification.
func (s *Store) Activate(kid string) error {
	return s.update(func(next *keySet) error {
		if err := checkActive(next.keys, kid); err != nil {
			return err
		}
		next.active = kid
		return nil
	})
}

// Remove drops kid. Tokens signed with it stop verifying immediately.
func (s *Store) Remove(kid string) error {
	return s.update(func(next *keySet) error {
		if kid == next.active {
			return ErrRemoveActiveKey
		}
		if _, ok := next.keys[kid]; !ok {
			return common.ErrorNotFound
		}
		delete(next.keys, kid)
		return nil
	})
}

func (s *Store) update(fn func(next *keySet) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.set.Load()
	next := &keySet{active: cur.active, keys: maps.Clone(cur.keys)}
	if err := fn(next); err != nil {
		return err
	}
	s.set.Store(next)
	return nil
}
