package tokens

import (
	"crypto/rsa"
	"errors"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dmitrijs2005/authkeeper/internal/common"
)

// PublicKeys resolves a kid to its verification key.
type PublicKeys interface {
	PublicKeyFor(kid string) (*rsa.PublicKey, error)
}

// Verifier validates tokens against the key named by their kid header.
// Every failure is reported as common.ErrInvalidToken.
type Verifier struct {
	keys   PublicKeys
	parser *jwt.Parser
}

func NewVerifier(keys PublicKeys, opts ...Option) *Verifier {
	o := buildOptions(opts)
	return &Verifier{
		keys: keys,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{common.SigningAlgorithm}),
			jwt.WithExpirationRequired(),
			jwt.WithTimeFunc(o.now),
		),
	}
}

// Verify checks signature, algorithm and expiry and returns the claims.
func (v *Verifier) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := v.parser.ParseWithClaims(tokenString, claims, v.keyFunc)
	if err != nil || !token.Valid {
		return nil, common.ErrInvalidToken
	}
	if claims.Subject == "" {
		return nil, common.ErrInvalidToken
	}
	return claims, nil
}

// VerifyAccess is Verify restricted to access tokens.
func (v *Verifier) VerifyAccess(tokenString string) (*Claims, error) {
	return v.verifyUse(tokenString, UseAccess)
}

// VerifyRefresh is Verify restricted to refresh tokens. The jti claim must
// be present.
func (v *Verifier) VerifyRefresh(tokenString string) (*Claims, error) {
	claims, err := v.verifyUse(tokenString, UseRefresh)
	if err != nil {
		return nil, err
	}
	if claims.ID == "" {
		return nil, common.ErrInvalidToken
	}
	return claims, nil
}

func (v *Verifier) verifyUse(tokenString, use string) (*Claims, error) {
	claims, err := v.Verify(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.Use != use {
		return nil, common.ErrInvalidToken
	}
	return claims, nil
}

func (v *Verifier) keyFunc(t *jwt.Token) (any, error) {
	if t.Method.Alg() != common.SigningAlgorithm {
		return nil, errors.New("unexpected signing method")
	}
	kid, _ := t.Header["kid"].(string)
	if kid == "" {
		return nil, errors.New("missing kid")
	}
	return v.keys.PublicKeyFor(kid)
}
