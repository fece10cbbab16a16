package tokens

import (
	"context"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/dmitrijs2005/authkeeper/internal/poolx"
	"github.com/dmitrijs2005/authkeeper/internal/server/keystore"
)

// SigningKeys yields the key pair used for new signatures.
type SigningKeys interface {
	ActiveSigningKey() (*keystore.SigningKeyPair, error)
}

// Issuer signs tokens with the store's active key.
type Issuer struct {
	keys SigningKeys
	pool *poolx.Pool
	opts options
}

func NewIssuer(keys SigningKeys, pool *poolx.Pool, opts ...Option) *Issuer {
	return &Issuer{keys: keys, pool: pool, opts: buildOptions(opts)}
}

// AccessTTLSeconds is the access token lifetime reported to clients.
func (i *Issuer) AccessTTLSeconds() int64 {
	return int64(i.opts.accessTTL.Seconds())
}

// IssueAccessToken returns a signed access token for subject.
func (i *Issuer) IssueAccessToken(ctx context.Context, subject string) (string, error) {
	return i.issue(ctx, subject, uuid.NewString(), UseAccess)
}

// IssueRefreshToken returns a signed refresh token for subject together with
// its jti, which doubles as the id of the persisted refresh record.
func (i *Issuer) IssueRefreshToken(ctx context.Context, subject string) (tokenID, token string, err error) {
	tokenID = uuid.NewString()
	token, err = i.issue(ctx, subject, tokenID, UseRefresh)
	if err != nil {
		return "", "", err
	}
	return tokenID, token, nil
}

func (i *Issuer) issue(ctx context.Context, subject, jti, use string) (string, error) {
	key, err := i.keys.ActiveSigningKey()
	if err != nil {
		return "", fmt.Errorf("active signing key: %w", err)
	}

	ttl := i.opts.accessTTL
	if use == UseRefresh {
		ttl = i.opts.refreshTTL
	}

	now := i.opts.now()
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        jti,
		},
		Use: use,
	})
	token.Header["kid"] = key.KID

	var signed string
	err = i.pool.Do(ctx, func() error {
		var err error
		signed, err = token.SignedString(key.PrivateKey)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", use, err)
	}

	if i.opts.onIssue != nil {
		i.opts.onIssue(use)
	}
	return signed, nil
}
