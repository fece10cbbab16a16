// Package keygen creates RSA signing keys in the layout the server's key
// loader expects: <kid>_private_key.pem next to <kid>_public_key.pem.
package keygen

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/dmitrijs2005/authkeeper/internal/cryptox"
	"github.com/dmitrijs2005/authkeeper/internal/filex"
	"github.com/dmitrijs2005/authkeeper/internal/server/keystore"
)

const DefaultBits = 2048

var ErrInvalidOptions = errors.New("invalid options")

type Options struct {
	KID        string
	Bits       int
	OutDir     string
	Passphrase string
}

type Result struct {
	PrivateKeyPath string
	PublicKeyPath  string
}

// PrivateKeyFile and PublicKeyFile name the files for kid.
func PrivateKeyFile(kid string) string { return kid + "_private_key.pem" }

func PublicKeyFile(kid string) string { return kid + "_public_key.pem" }

// Encode renders the private key as PKCS#8 and the public key as PKIX PEM.
// A non-empty passphrase seals the private document with cryptox.
func Encode(key *rsa.PrivateKey, passphrase string) (privPEM, pubPEM []byte, err error) {
	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal private key: %w", err)
	}
	privPEM = pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})

	if passphrase != "" {
		privPEM, err = cryptox.EncryptPEM(privPEM, []byte(passphrase))
		if err != nil {
			return nil, nil, fmt.Errorf("encrypt private key: %w", err)
		}
	}

	pubDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal public key: %w", err)
	}
	pubPEM = pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER})

	return privPEM, pubPEM, nil
}

// Generate creates a fresh pair and writes both files. Existing files are
// never overwritten.
func Generate(o Options) (*Result, error) {
	if o.KID == "" {
		return nil, fmt.Errorf("%w: empty kid", ErrInvalidOptions)
	}
	if o.Bits == 0 {
		o.Bits = DefaultBits
	}
	if o.Bits < keystore.MinKeyBits {
		return nil, fmt.Errorf("%w: key size %d below %d bits", ErrInvalidOptions, o.Bits, keystore.MinKeyBits)
	}
	if o.OutDir == "" {
		o.OutDir = "."
	}

	dir, err := filex.EnsureDir(o.OutDir)
	if err != nil {
		return nil, err
	}

	key, err := rsa.GenerateKey(rand.Reader, o.Bits)
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}

	privPEM, pubPEM, err := Encode(key, o.Passphrase)
	if err != nil {
		return nil, err
	}

	res := &Result{
		PrivateKeyPath: filepath.Join(dir, PrivateKeyFile(o.KID)),
		PublicKeyPath:  filepath.Join(dir, PublicKeyFile(o.KID)),
	}

	if err := filex.WriteNew(res.PrivateKeyPath, privPEM, 0o600); err != nil {
		return nil, err
	}
	if err := filex.WriteNew(res.PublicKeyPath, pubPEM, 0o644); err != nil {
		return nil, err
	}

	return res, nil
}
