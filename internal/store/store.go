package store

import (
	"strings"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/danmuck/peerboard/internal/board"
)

// Store is the Local State Store.
//
// Task ids are not unique: two peers may mint the same id, and both tasks
// are kept. Every id-keyed mutation applies to each task holding the id.
type Store struct {
	policy MergePolicy

	roster      mapset.Set[string]
	rosterOrder []string
	creator     string

	records []*record
	byID    map[string][]*record
}

type record struct {
	task     board.Task
	comments []board.Comment
}

// TaskView is a task together with its comments.
type TaskView struct {
	board.Task
	Comments []board.Comment `json:"comments"`
}

// Snapshot is an immutable copy of the whole view.
type Snapshot struct {
	Roster  []string   `json:"roster"`
	Creator string     `json:"creator"`
	Tasks   []TaskView `json:"tasks"`
}

// New returns an empty store. A nil policy selects LastWriteWins.
func New(policy MergePolicy) *Store {
	if policy == nil {
		policy = LastWriteWins{}
	}
	return &Store{
		policy: policy,
		roster: mapset.NewThreadUnsafeSet[string](),
		byID:   make(map[string][]*record),
	}
}

// UpsertRoster adds name if absent and reports whether it was added.
// Blank names are ignored.
func (s *Store) UpsertRoster(name string) bool {
	if strings.TrimSpace(name) == "" {
		return false
	}
	if !s.roster.Add(name) {
		return false
	}
	s.rosterOrder = append(s.rosterOrder, name)
	return true
}

// SetCreator records a creator claim and reports whether the marker changed.
func (s *Store) SetCreator(name string) bool {
	if strings.TrimSpace(name) == "" {
		return false
	}
	next := s.policy.MergeCreator(s.creator, name)
	if next == s.creator {
		return false
	}
	s.creator = next
	return true
}

// InsertTask appends t to the board and returns how many tasks now hold
// t.ID. A task without an id is not stored.
func (s *Store) InsertTask(t board.Task) int {
	if t.ID == "" {
		return 0
	}
	r := &record{task: t.Clone()}
	s.records = append(s.records, r)
	s.byID[t.ID] = append(s.byID[t.ID], r)
	return len(s.byID[t.ID])
}

// DeleteTask removes every task holding id, with their comments, and
// returns how many were removed.
func (s *Store) DeleteTask(id string) int {
	held := s.byID[id]
	if len(held) == 0 {
		return 0
	}
	delete(s.byID, id)
	kept := s.records[:0]
	for _, r := range s.records {
		if r.task.ID != id {
			kept = append(kept, r)
		}
	}
	for i := len(kept); i < len(s.records); i++ {
		s.records[i] = nil
	}
	s.records = kept
	return len(held)
}

// PatchTask overwrites the editable fields of every task holding id and
// returns the patched tasks in board order.
func (s *Store) PatchTask(id string, p board.TaskPatch) []board.Task {
	held := s.byID[id]
	if len(held) == 0 {
		return nil
	}
	out := make([]board.Task, 0, len(held))
	for _, r := range held {
		r.task = s.policy.MergePatch(r.task, p)
		out = append(out, r.task.Clone())
	}
	return out
}

// TogglePin flips the pinned flag of every task holding id and returns the
// new values in board order. Tasks sharing an id toggle independently.
func (s *Store) TogglePin(id string) []bool {
	held := s.byID[id]
	if len(held) == 0 {
		return nil
	}
	out := make([]bool, 0, len(held))
	for _, r := range held {
		r.task.Pinned = s.policy.MergePin(r.task.Pinned)
		out = append(out, r.task.Pinned)
	}
	return out
}

// AppendComment adds c to every task holding c.TaskID and returns how many
// received it. Comments on unknown tasks are dropped.
func (s *Store) AppendComment(c board.Comment) int {
	held := s.byID[c.TaskID]
	for _, r := range held {
		r.comments = append(r.comments, c)
	}
	return len(held)
}

func (s *Store) Roster() []string {
	out := make([]string, len(s.rosterOrder))
	copy(out, s.rosterOrder)
	return out
}

func (s *Store) InRoster(name string) bool {
	return s.roster.Contains(name)
}

func (s *Store) Creator() string {
	return s.creator
}

// Task returns the first task on the board holding id.
func (s *Store) Task(id string) (board.Task, bool) {
	held := s.byID[id]
	if len(held) == 0 {
		return board.Task{}, false
	}
	return held[0].task.Clone(), true
}

// View returns the first task holding id together with its comments.
func (s *Store) View(id string) (TaskView, bool) {
	held := s.byID[id]
	if len(held) == 0 {
		return TaskView{}, false
	}
	return held[0].view(), true
}

// Views returns every task holding id in board order.
func (s *Store) Views(id string) []TaskView {
	held := s.byID[id]
	out := make([]TaskView, 0, len(held))
	for _, r := range held {
		out = append(out, r.view())
	}
	return out
}

func (s *Store) HasTask(id string) bool {
	return len(s.byID[id]) > 0
}

// Tasks returns held tasks in insertion order.
func (s *Store) Tasks() []board.Task {
	out := make([]board.Task, 0, len(s.records))
	for _, r := range s.records {
		out = append(out, r.task.Clone())
	}
	return out
}

// Comments returns the comments of the first task holding id.
func (s *Store) Comments(id string) []board.Comment {
	held := s.byID[id]
	if len(held) == 0 {
		return []board.Comment{}
	}
	return copyComments(held[0].comments)
}

func (s *Store) TaskCount() int {
	return len(s.records)
}

func (s *Store) Snapshot() Snapshot {
	snap := Snapshot{
		Roster:  s.Roster(),
		Creator: s.creator,
		Tasks:   make([]TaskView, 0, len(s.records)),
	}
	for _, r := range s.records {
		snap.Tasks = append(snap.Tasks, r.view())
	}
	return snap
}

func (r *record) view() TaskView {
	return TaskView{Task: r.task.Clone(), Comments: copyComments(r.comments)}
}

func copyComments(src []board.Comment) []board.Comment {
	out := make([]board.Comment, len(src))
	copy(out, src)
	return out
}
