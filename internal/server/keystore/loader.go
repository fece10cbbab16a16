package keystore

import (
	"context"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dmitrijs2005/authkeeper/internal/cryptox"
	"github.com/dmitrijs2005/authkeeper/internal/server/config"
)

// MinKeyBits is the smallest RSA modulus accepted for signing or verification.
const MinKeyBits = 2048

// SourceReader fetches raw key material for a source string.
type SourceReader struct {
	// S3 serves "s3://" sources. When nil such sources fail.
	S3 ObjectGetter
}

// Read resolves src as inline PEM, an s3:// object or a local file.
func (r *SourceReader) Read(ctx context.Context, src string) ([]byte, error) {
	switch {
	case strings.HasPrefix(strings.TrimSpace(src), "-----BEGIN"):
		return []byte(src), nil
	case strings.HasPrefix(src, "s3://"):
		if r.S3 == nil {
			return nil, errors.New("s3 source configured but no s3 client available")
		}
		return readS3Object(ctx, r.S3, src)
	default:
		return os.ReadFile(strings.TrimPrefix(src, "file:"))
	}
}

// Load reads every configured key eagerly and builds a Store. Any unreadable
// or malformed key fails the whole load.
func Load(ctx context.Context, sources []config.KeySource, activeKID string, r *SourceReader) (*Store, error) {
	if r == nil {
		r = &SourceReader{}
	}

	pairs := make([]*SigningKeyPair, 0, len(sources))
	for _, src := range sources {
		data, err := r.Read(ctx, src.Source)
		if err != nil {
			return nil, fmt.Errorf("read key %q: %w", src.KID, err)
		}

		pair, err := ParseKeyPEM(src.KID, data, src.Passphrase)
		if err != nil {
			return nil, fmt.Errorf("parse key %q: %w", src.KID, err)
		}
		pairs = append(pairs, pair)
	}

	return NewStore(pairs, activeKID)
}

// ParseKeyPEM decodes one PEM key. Private keys (PKCS#1 or PKCS#8) yield a
// signing pair; public keys yield a verify-only pair. Encrypted blocks are
// opened with passphrase first.
func ParseKeyPEM(kid string, data []byte, passphrase string) (*SigningKeyPair, error) {
	if cryptox.IsEncryptedPEM(data) {
		if passphrase == "" {
			return nil, errors.New("key is encrypted but no passphrase configured")
		}
		plain, err := cryptox.DecryptPEM(data, []byte(passphrase))
		if err != nil {
			return nil, err
		}
		data = plain
	}

	block, _ := pem.Decode(data)
	if block == nil {
		return nil, errors.New("no PEM block found")
	}

	pair := &SigningKeyPair{KID: kid}
	switch block.Type {
	case "PUBLIC KEY", "RSA PUBLIC KEY":
		pub, err := jwt.ParseRSAPublicKeyFromPEM(data)
		if err != nil {
			return nil, err
		}
		pair.PublicKey = pub
	default:
		priv, err := jwt.ParseRSAPrivateKeyFromPEM(data)
		if err != nil {
			return nil, err
		}
		pair.PrivateKey = priv
		pair.PublicKey = &priv.PublicKey
	}

	if bits := pair.PublicKey.N.BitLen(); bits < MinKeyBits {
		return nil, fmt.Errorf("rsa key too small: %d bits", bits)
	}
	return pair, nil
}
