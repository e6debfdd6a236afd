// Package api is the local HTTP surface a UI renders the board from.
//
// Ownership boundary:
// - read endpoints returning store snapshots
// - action endpoints that run engine local actions on the engine loop
// - validation failures as transient notices (HTTP 400)
// - the websocket stream of engine hook events
//
// Handlers never touch board state directly. Every read and write is a
// closure run on the engine loop through Room.Call.
package api
