// Package repositories implements SQLite persistence for client-local state.
//
// The client keeps very little on disk: the session token and the identity it was issued to.
// Both live in the client_state key/value table managed by [ClientStateRepository].
//
// Repositories never cache. Every call reads or writes the database, so a value cleared by
// another process (or another command invocation) is observed on the next read.
package repositories
