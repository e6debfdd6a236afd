package store

import "github.com/danmuck/peerboard/internal/board"

// MergePolicy decides how an incoming value combines with the held one.
// Creations never conflict: a repeated id is stored as another task.
type MergePolicy interface {
	MergePatch(current board.Task, patch board.TaskPatch) board.Task
	MergeCreator(current, incoming string) string
	MergePin(current bool) bool
}

// LastWriteWins applies whatever arrives last, in local processing order.
type LastWriteWins struct{}

var _ MergePolicy = LastWriteWins{}

func (LastWriteWins) MergePatch(current board.Task, patch board.TaskPatch) board.Task {
	return current.Apply(patch)
}

func (LastWriteWins) MergeCreator(_, incoming string) string {
	return incoming
}

// MergePin toggles. Two concurrent pins cancel out at peers that see both.
func (LastWriteWins) MergePin(current bool) bool {
	return !current
}
