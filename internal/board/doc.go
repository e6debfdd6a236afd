// Package board owns the shared task-board data model.
//
// Ownership boundary:
// - task, comment and category shapes
// - addressee and @-mention parsing
// - local input validation (rejected before any message is built)
//
// Board values carry no identity beyond their payload: authors and
// addressees are display names that peers claim for themselves.
package board
