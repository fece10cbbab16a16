// Package cryptox encrypts signing-key material at rest with a passphrase.
//
// The passphrase is stretched with argon2id and the payload is sealed with
// AES-256-GCM. The sealed layout is salt || nonce || ciphertext.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/pem"
	"errors"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"golang.org/x/crypto/argon2"
)

// EncryptedKeyBlockType is the PEM block type of an encrypted private key.
const EncryptedKeyBlockType = "AUTHKEEPER ENCRYPTED KEY"

const (
	saltSize  = 16
	nonceSize = 12
	keySize   = 32
)

var ErrDecrypt = errors.New("unable to decrypt key material")

// DeriveKey stretches a passphrase into a 256-bit AES key.
func DeriveKey(passphrase []byte, salt []byte) []byte {
	return argon2.IDKey(passphrase, salt, 1, 64*1024, 4, keySize)
}

// Seal encrypts plaintext under passphrase with a fresh random salt and nonce.
func Seal(plaintext, passphrase []byte) ([]byte, error) {
	salt := common.GenerateRandByteArray(saltSize)
	nonce := common.GenerateRandByteArray(nonceSize)

	key := DeriveKey(passphrase, salt)
	defer common.WipeByteArray(key)

	aead, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, saltSize+nonceSize+len(plaintext)+aead.Overhead())
	out = append(out, salt...)
	out = append(out, nonce...)
	return aead.Seal(out, nonce, plaintext, nil), nil
}

// Open reverses Seal. A wrong passphrase or tampered input yields ErrDecrypt.
func Open(sealed, passphrase []byte) ([]byte, error) {
	if len(sealed) < saltSize+nonceSize {
		return nil, ErrDecrypt
	}
	salt := sealed[:saltSize]
	nonce := sealed[saltSize : saltSize+nonceSize]

	key := DeriveKey(passphrase, salt)
	defer common.WipeByteArray(key)

	aead, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	plaintext, err := aead.Open(nil, nonce, sealed[saltSize+nonceSize:], nil)
	if err != nil {
		return nil, ErrDecrypt
	}
	return plaintext, nil
}

// EncryptPEM seals a PEM document and wraps the result in an
// EncryptedKeyBlockType block.
func EncryptPEM(plainPEM, passphrase []byte) ([]byte, error) {
	sealed, err := Seal(plainPEM, passphrase)
	if err != nil {
		return nil, err
	}
	return pem.EncodeToMemory(&pem.Block{Type: EncryptedKeyBlockType, Bytes: sealed}), nil
}

// IsEncryptedPEM reports whether data starts with an EncryptedKeyBlockType block.
func IsEncryptedPEM(data []byte) bool {
	block, _ := pem.Decode(data)
	return block != nil && block.Type == EncryptedKeyBlockType
}

// DecryptPEM unwraps an EncryptedKeyBlockType block and returns the inner PEM.
func DecryptPEM(data, passphrase []byte) ([]byte, error) {
	block, _ := pem.Decode(data)
	if block == nil || block.Type != EncryptedKeyBlockType {
		return nil, ErrDecrypt
	}
	return Open(block.Bytes, passphrase)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
