// Package client contains client-side building blocks for authkeeper.
//
// # Overview
//
// The package provides:
//  1. A transport-agnostic API contract (see the Client interface):
//     Register, Login, Refresh, Identify, PublicKey and Ping.
//  2. A concrete gRPC implementation (see GRPCClient) that holds the token
//     pair, injects the access token via an interceptor and, when Identify
//     answers Unauthenticated, refreshes once and retries.
//  3. Local persistence bootstrap (InitDatabase, RunMigrations) for the CLI
//     session cache, an SQLite database with embedded goose migrations.
//
// # Error Handling
//
// gRPC status codes are mapped to sentinel errors that callers can match
// with errors.Is: ErrUnavailable, ErrUnauthorized, ErrConflict,
// ErrInvalidInput, ErrNotFound. ErrNotLoggedIn is returned locally when an
// operation needs a session that does not exist.
package client
