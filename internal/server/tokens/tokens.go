// Package tokens mints and validates the RS256 JWTs handed to clients.
//
// Access and refresh tokens share one shape: header {alg, kid, typ} and
// claims {sub, iat, exp, jti, token_use}. The token_use claim keeps the two
// kinds apart so neither can stand in for the other.
package tokens

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dmitrijs2005/authkeeper/internal/common"
)

// Values of the token_use claim.
const (
	UseAccess  = "access"
	UseRefresh = "refresh"
)

// Claims are the registered JWT claims plus the token kind.
type Claims struct {
	jwt.RegisteredClaims
	Use string `json:"token_use"`
}

type options struct {
	now        func() time.Time
	accessTTL  time.Duration
	refreshTTL time.Duration
	onIssue    func(use string)
}

func defaultOptions() options {
	return options{
		now:        time.Now,
		accessTTL:  common.AccessTokenLifetime,
		refreshTTL: common.RefreshTokenLifetime,
	}
}

// Option configures an Issuer or a Verifier.
type Option func(*options)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithLifetimes overrides the access and refresh token lifetimes. Zero values
// keep the defaults.
func WithLifetimes(access, refresh time.Duration) Option {
	return func(o *options) {
		if access > 0 {
			o.accessTTL = access
		}
		if refresh > 0 {
			o.refreshTTL = refresh
		}
	}
}

// WithIssueHook registers fn to be called after every successfully signed
// token with its token_use value.
func WithIssueHook(fn func(use string)) Option {
	return func(o *options) { o.onIssue = fn }
}

func buildOptions(opts []Option) options {
	o := defaultOptions()
	for _, fn := range opts {
		fn(&o)
	}
	return o
}
