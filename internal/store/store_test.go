package store

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/danmuck/peerboard/internal/board"
	"github.com/danmuck/peerboard/internal/testutil/testlog"
)

func task(id, title string) board.Task {
	return board.Task{ID: id, Title: title, Author: "alice", To: []string{"@bob"}, Mentions: []string{"bob"}}
}

func TestRosterHoldsEachNameOnce(t *testing.T) {
	testlog.Start(t)
	s := New(nil)
	for _, n := range []string{"alice", "bob", "alice", "carol", "bob", "alice"} {
		s.UpsertRoster(n)
	}
	require.Equal(t, []string{"alice", "bob", "carol"}, s.Roster())
	require.False(t, s.UpsertRoster("carol"))
	require.False(t, s.UpsertRoster("  "))
	require.True(t, s.InRoster("bob"))
	require.False(t, s.InRoster("Bob"))
}

func TestSetCreatorLastWriterWins(t *testing.T) {
	testlog.Start(t)
	s := New(nil)
	require.True(t, s.SetCreator("alice"))
	require.False(t, s.SetCreator("alice"))
	require.True(t, s.SetCreator("bob"))
	require.Equal(t, "bob", s.Creator())
	require.False(t, s.SetCreator(""))
	require.Equal(t, "bob", s.Creator())
}

func TestRepeatedIDKeepsBothTasks(t *testing.T) {
	testlog.Start(t)
	s := New(nil)
	require.Equal(t, 1, s.InsertTask(task("t1", "from alice")))
	require.Equal(t, 1, s.InsertTask(task("t2", "two")))
	dup := task("t1", "from bob")
	dup.Author = "bob"
	require.Equal(t, 2, s.InsertTask(dup))

	tasks := s.Tasks()
	require.Len(t, tasks, 3)
	require.Equal(t, "from alice", tasks[0].Title)
	require.Equal(t, "two", tasks[1].Title)
	require.Equal(t, "from bob", tasks[2].Title)
	require.Equal(t, "bob", tasks[2].Author)

	first, ok := s.Task("t1")
	require.True(t, ok)
	require.Equal(t, "from alice", first.Title)
	require.Len(t, s.Views("t1"), 2)
	require.Equal(t, 3, s.TaskCount())
}

func TestRepeatedIDMutationsReachEveryTask(t *testing.T) {
	testlog.Start(t)
	s := New(nil)
	s.InsertTask(task("t1", "one"))
	s.InsertTask(task("t2", "two"))
	s.InsertTask(task("t1", "one again"))

	require.Equal(t, 2, s.AppendComment(board.Comment{TaskID: "t1", Author: "bob", Text: "hi"}))
	for _, v := range s.Views("t1") {
		require.Len(t, v.Comments, 1)
	}

	patched := s.PatchTask("t1", board.TaskPatch{Title: "edited", To: []string{}})
	require.Len(t, patched, 2)
	for _, v := range s.Views("t1") {
		require.Equal(t, "edited", v.Title)
	}

	require.Equal(t, []bool{true, true}, s.TogglePin("t1"))

	require.Equal(t, 2, s.DeleteTask("t1"))
	require.False(t, s.HasTask("t1"))
	tasks := s.Tasks()
	require.Len(t, tasks, 1)
	require.Equal(t, "t2", tasks[0].ID)
}

func TestInsertWithoutIDIsDropped(t *testing.T) {
	testlog.Start(t)
	s := New(nil)
	require.Zero(t, s.InsertTask(board.Task{Title: "no id"}))
	require.Zero(t, s.TaskCount())
}

func TestDeleteAbsentIsNoop(t *testing.T) {
	testlog.Start(t)
	s := New(nil)
	s.InsertTask(task("t1", "one"))
	before := s.Snapshot()
	require.Zero(t, s.DeleteTask("missing"))
	require.Equal(t, before, s.Snapshot())
}

func TestDeleteDropsComments(t *testing.T) {
	testlog.Start(t)
	s := New(nil)
	s.InsertTask(task("t1", "one"))
	s.AppendComment(board.Comment{TaskID: "t1", Author: "bob", Text: "hi"})
	require.Equal(t, 1, s.DeleteTask("t1"))
	require.False(t, s.HasTask("t1"))
	require.Empty(t, s.Comments("t1"))
	require.Zero(t, s.TaskCount())

	// a re-created task starts with no comments
	s.InsertTask(task("t1", "one"))
	require.Empty(t, s.Comments("t1"))
}

func TestPatchTask(t *testing.T) {
	testlog.Start(t)
	s := New(nil)
	require.Empty(t, s.PatchTask("t1", board.TaskPatch{Title: "x"}))
	require.Zero(t, s.TaskCount())

	s.InsertTask(task("t1", "one"))
	s.TogglePin("t1")
	patched := s.PatchTask("t1", board.TaskPatch{
		Title:      "edited",
		Body:       "body",
		To:         []string{"@carol"},
		Categories: []board.Category{board.CategoryDesign},
	})
	require.Len(t, patched, 1)
	got := patched[0]
	require.Equal(t, "edited", got.Title)
	require.Equal(t, []string{"carol"}, got.Mentions)
	require.True(t, got.Pinned)
	require.Equal(t, "alice", got.Author)
}

func TestTogglePinTwiceRestores(t *testing.T) {
	testlog.Start(t)
	s := New(nil)
	require.Empty(t, s.TogglePin("t1"))

	s.InsertTask(task("t1", "one"))
	require.Equal(t, []bool{true}, s.TogglePin("t1"))
	require.Equal(t, []bool{false}, s.TogglePin("t1"))
}

func TestCommentOnUnknownTaskDropped(t *testing.T) {
	testlog.Start(t)
	s := New(nil)
	require.Zero(t, s.AppendComment(board.Comment{TaskID: "nope", Text: "x"}))
	require.Empty(t, s.Snapshot().Tasks)
}

func TestReadersReturnCopies(t *testing.T) {
	testlog.Start(t)
	s := New(nil)
	s.InsertTask(task("t1", "one"))
	got, _ := s.Task("t1")
	got.To[0] = "@mallory"
	got.Title = "changed"
	again, _ := s.Task("t1")
	require.Equal(t, "one", again.Title)
	require.Equal(t, "@bob", again.To[0])

	roster := s.Roster()
	s.UpsertRoster("alice")
	require.Empty(t, roster)
}

type stickyCreator struct{ LastWriteWins }

func (stickyCreator) MergeCreator(current, incoming string) string {
	if current != "" {
		return current
	}
	return incoming
}

func TestMergePolicyIsPluggable(t *testing.T) {
	testlog.Start(t)
	s := New(stickyCreator{})
	require.True(t, s.SetCreator("alice"))
	require.False(t, s.SetCreator("bob"))
	require.Equal(t, "alice", s.Creator())
}
