// Package session persists the CLI's sign-in state in the local SQLite
// database (table "session", created by the client migrations). The table
// holds a single row: the signed-in email, the user id and the current
// refresh token.
package session
