// Package cli provides the interactive authkeeper command-line client.
//
// It wires configuration, the local session cache and the gRPC client into a
// small REPL. A cached session is restored on start, so a returning user can
// run whoami straight away; the client refreshes the access token on demand.
//
// Commands:
//   - register, login: prompt for email and password (no echo)
//   - whoami: show the signed-in account
//   - refresh: rotate the token pair
//   - pubkey <kid>: print a signing key's public PEM
//   - logout: drop the local session
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
