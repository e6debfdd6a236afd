// Package engine is the board protocol state machine.
//
// Ownership boundary:
// - folding inbound wire events into the local store
// - local actions: validate, apply through the same handlers, broadcast
// - UI hooks fired after state actually changes
// - the single goroutine (Loop) that serialises all store access
//
// Every kind is handled idempotently against whatever the store holds.
// References to unknown tasks are no-ops; nothing inbound is an error.
package engine
