// Package session owns the authentication token and the identity it was issued to.
//
// A [Manager] is the only writer of the persisted session. It keeps no copy in memory: each
// call re-reads the client_state table, so a token cleared by another command (or by a 401
// handled elsewhere) is seen on the next check.
//
// States:
//
//	Anonymous --Acquire--> Authenticated --Clear--> Anonymous
//
// Protected actions call [Manager.RequireSession] before doing any work.
package session
