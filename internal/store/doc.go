// Package store holds one peer's in-memory view of the board.
//
// Ownership boundary:
// - roster, creator marker, tasks and comments
// - total mutators: absent ids are no-ops, never errors
// - copy-out readers for rendering
// - the merge policy deciding how incoming values combine with held ones
//
// A Store is not safe for concurrent use. The engine loop is its only
// writer and reader.
package store
