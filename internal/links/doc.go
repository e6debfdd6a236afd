// Package links owns the set of open peer connections.
//
// Ownership boundary:
// - link registration and teardown
// - one reader goroutine per link: frame -> wire decode -> Router
// - broadcast with per-link failure isolation
//
// Links carry no identity into the board: the Router sees only event
// payloads. Closing a link changes no board state.
package links
