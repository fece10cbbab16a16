// Package authpb defines the wire contract of the authkeeper.v1.AuthService
// gRPC service: request and response messages, the service descriptor, a
// typed client and the JSON codec the messages travel in.
package authpb

import "time"

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// TokenResponse answers Register, Login and Refresh.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

// IdentifyRequest carries the user id; the access token travels in the
// access_token metadata entry.
type IdentifyRequest struct {
	UserID string `json:"user_id"`
}

type IdentifyResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

type GetPublicKeyRequest struct {
	Kid string `json:"kid"`
}

type GetPublicKeyResponse struct {
	Kid       string `json:"kid"`
	PublicKey string `json:"public_key"`
}

type PingRequest struct{}

type PingResponse struct {
	Status string `json:"status"`
}
