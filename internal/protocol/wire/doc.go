// Package wire owns the board event contract exchanged between peers.
//
// Ownership boundary:
// - the closed set of event kinds and their JSON shapes
// - Encode/Decode and decode error classification
// - exhaustive dispatch through Handler
//
// Each event is one UTF-8 JSON object tagged by its "type" field. Decode
// rejects payloads it cannot classify; it never consults local state.
package wire
