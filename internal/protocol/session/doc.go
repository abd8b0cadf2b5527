// Package session implements the stateful command exchange with the VNDB
// API: connect, login handshake, then request/response "get" commands.
//
// Ownership boundary:
// - connection state machine (disconnected, connected, authenticated)
// - login payload and credential policy
// - "results" envelope parsing into ResultSet
//
// One command is in flight per Session; a failed command closes the
// underlying transport and the Session must be rebuilt by the caller.
package session
