// Package common contains shared constants and sentinel errors used across
// authkeeper components.
package common

import "time"

// AccessTokenHeaderName is the gRPC metadata key used to carry the
// access token on outbound requests.
const AccessTokenHeaderName = "access_token"

// Fixed token parameters.
const (
	SigningAlgorithm     = "RS256"
	AccessTokenLifetime  = 5 * time.Minute
	RefreshTokenLifetime = 7 * 24 * time.Hour
	DefaultHashCost      = 10
)
