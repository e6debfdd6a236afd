package engine

import "github.com/danmuck/peerboard/internal/board"

// Hooks are called on the engine goroutine after a state change. Nil
// hooks are skipped.
type Hooks struct {
	OnTaskAdded      func(board.Task)
	OnTaskEdited     func(board.Task)
	OnTaskDeleted    func(id string)
	OnTaskPinned     func(id string, pinned bool)
	OnCommentAdded   func(board.Comment)
	OnRosterChanged  func(roster []string)
	OnCreatorChanged func(name string)
	// OnNotify fires when a peer creates a task that mentions the local name.
	OnNotify func(from, title string)
}

// Chain returns hooks that call h first and then next.
func (h Hooks) Chain(next Hooks) Hooks {
	return Hooks{
		OnTaskAdded:      chain1(h.OnTaskAdded, next.OnTaskAdded),
		OnTaskEdited:     chain1(h.OnTaskEdited, next.OnTaskEdited),
		OnTaskDeleted:    chain1(h.OnTaskDeleted, next.OnTaskDeleted),
		OnTaskPinned:     chain2(h.OnTaskPinned, next.OnTaskPinned),
		OnCommentAdded:   chain1(h.OnCommentAdded, next.OnCommentAdded),
		OnRosterChanged:  chain1(h.OnRosterChanged, next.OnRosterChanged),
		OnCreatorChanged: chain1(h.OnCreatorChanged, next.OnCreatorChanged),
		OnNotify:         chain2(h.OnNotify, next.OnNotify),
	}
}

func chain1[A any](a, b func(A)) func(A) {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(v A) {
		a(v)
		b(v)
	}
}

func chain2[A, B any](a, b func(A, B)) func(A, B) {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(x A, y B) {
		a(x, y)
		b(x, y)
	}
}
