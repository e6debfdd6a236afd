package engine

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/danmuck/peerboard/internal/board"
	"github.com/danmuck/peerboard/internal/presence"
	"github.com/danmuck/peerboard/internal/protocol/wire"
	"github.com/danmuck/peerboard/internal/store"
)

var ErrUnknownTask = errors.New("engine: unknown task")

// Broadcaster delivers an event to every open peer link and returns how
// many links accepted it.
type Broadcaster interface {
	Broadcast(wire.Event) int
}

// Engine applies board events to a store it owns exclusively.
type Engine struct {
	store *store.Store
	out   Broadcaster
	hooks Hooks

	name           string
	claimedCreator bool
}

var _ wire.Handler = (*Engine)(nil)

// New builds an engine over st. out may be nil while no transport exists.
func New(st *store.Store, out Broadcaster, hooks Hooks) *Engine {
	if st == nil {
		st = store.New(nil)
	}
	return &Engine{store: st, out: out, hooks: hooks}
}

// Apply folds one inbound event into local state.
func (e *Engine) Apply(ev wire.Event) {
	if ev == nil {
		return
	}
	ev.Accept(e)
}

func (e *Engine) Name() string { return e.name }

// IsCreator reports whether this peer created the room.
func (e *Engine) IsCreator() bool { return e.claimedCreator }

func (e *Engine) Snapshot() store.Snapshot { return e.store.Snapshot() }

// Task returns the first task on the board holding id.
func (e *Engine) Task(id string) (store.TaskView, bool) {
	return e.store.View(id)
}

// Greeting is what a newly opened link is sent first.
func (e *Engine) Greeting() presence.Claims {
	c := presence.Claims{Name: e.name}
	if e.claimedCreator {
		c.Creator = e.name
	}
	return c
}

// Inbound handlers.

func (e *Engine) HandleName(ev wire.Name)             { e.applyName(ev) }
func (e *Engine) HandleCreator(ev wire.Creator)       { e.applyCreator(ev) }
func (e *Engine) HandleMessage(ev wire.Message)       { e.applyMessage(ev, false) }
func (e *Engine) HandleDeleteTodo(ev wire.DeleteTodo) { e.applyDelete(ev) }
func (e *Engine) HandleEditTodo(ev wire.EditTodo)     { e.applyEdit(ev) }
func (e *Engine) HandlePinTodo(ev wire.PinTodo)       { e.applyPin(ev) }
func (e *Engine) HandleComment(ev wire.Comment)       { e.applyComment(ev) }

func (e *Engine) applyName(ev wire.Name) bool {
	if !e.store.UpsertRoster(ev.Name) {
		return false
	}
	if e.hooks.OnRosterChanged != nil {
		e.hooks.OnRosterChanged(e.store.Roster())
	}
	return true
}

func (e *Engine) applyCreator(ev wire.Creator) bool {
	if !e.store.SetCreator(ev.Name) {
		return false
	}
	if e.hooks.OnCreatorChanged != nil {
		e.hooks.OnCreatorChanged(e.store.Creator())
	}
	return true
}

func (e *Engine) applyMessage(ev wire.Message, local bool) board.Task {
	t := taskFromMessage(ev)
	n := e.store.InsertTask(t)
	if n == 0 {
		return board.Task{}
	}
	if n > 1 {
		log.Debug().Str("id", t.ID).Str("from", t.Author).Int("held", n).Msg("engine.applyMessage repeated task id")
	}
	if e.hooks.OnTaskAdded != nil {
		e.hooks.OnTaskAdded(t)
	}
	if !local && e.hooks.OnNotify != nil && t.Addressed(e.name) {
		e.hooks.OnNotify(t.Author, t.Title)
	}
	return t
}

func (e *Engine) applyDelete(ev wire.DeleteTodo) bool {
	if e.store.DeleteTask(ev.ID) == 0 {
		return false
	}
	if e.hooks.OnTaskDeleted != nil {
		e.hooks.OnTaskDeleted(ev.ID)
	}
	return true
}

// applyEdit patches every task holding the id and returns the first.
func (e *Engine) applyEdit(ev wire.EditTodo) (board.Task, bool) {
	patched := e.store.PatchTask(ev.ID, board.TaskPatch{
		Title:      ev.Title,
		Body:       ev.Message,
		To:         ev.To,
		Categories: toCategories(ev.Categories),
	})
	if len(patched) == 0 {
		return board.Task{}, false
	}
	if e.hooks.OnTaskEdited != nil {
		for _, t := range patched {
			e.hooks.OnTaskEdited(t)
		}
	}
	return patched[0], true
}

// applyPin toggles every task holding the id and returns the first one's
// new value.
func (e *Engine) applyPin(ev wire.PinTodo) (bool, bool) {
	states := e.store.TogglePin(ev.ID)
	if len(states) == 0 {
		return false, false
	}
	if e.hooks.OnTaskPinned != nil {
		for _, pinned := range states {
			e.hooks.OnTaskPinned(ev.ID, pinned)
		}
	}
	return states[0], true
}

func (e *Engine) applyComment(ev wire.Comment) (board.Comment, bool) {
	c := board.Comment{TaskID: ev.TodoID, Author: ev.Author, Text: ev.Comment}
	if e.store.AppendComment(c) == 0 {
		return board.Comment{}, false
	}
	if e.hooks.OnCommentAdded != nil {
		e.hooks.OnCommentAdded(c)
	}
	return c, true
}

// Local actions. Each validates, applies locally, then broadcasts.

// SetName changes the local display name and announces it.
func (e *Engine) SetName(raw string) (string, error) {
	name, err := board.NormalizeName(raw)
	if err != nil {
		return "", err
	}
	e.name = name
	ev := wire.Name{Name: name}
	e.applyName(ev)
	e.broadcast(ev)
	if e.claimedCreator {
		claim := wire.Creator{Name: name}
		e.applyCreator(claim)
		e.broadcast(claim)
	}
	return name, nil
}

// ClaimCreator marks the local peer as the room creator. Without a name
// the claim is only announced once SetName succeeds.
func (e *Engine) ClaimCreator() {
	e.claimedCreator = true
	if strings.TrimSpace(e.name) == "" {
		return
	}
	ev := wire.Creator{Name: e.name}
	e.applyCreator(ev)
	e.broadcast(ev)
}

func (e *Engine) AddTask(d board.TaskDraft) (board.Task, error) {
	t, err := d.Task(board.NewTaskID(), e.name)
	if err != nil {
		return board.Task{}, err
	}
	ev := messageFromTask(t)
	held := e.applyMessage(ev, true)
	e.broadcast(ev)
	return held, nil
}

func (e *Engine) EditTask(id string, in board.TaskEdit) (board.Task, error) {
	if !e.store.HasTask(id) {
		return board.Task{}, fmt.Errorf("%w: %s", ErrUnknownTask, id)
	}
	p, err := in.Patch()
	if err != nil {
		return board.Task{}, err
	}
	ev := wire.EditTodo{
		ID:         id,
		Title:      p.Title,
		Message:    p.Body,
		To:         nonNil(p.To),
		Categories: fromCategories(p.Categories),
	}
	t, _ := e.applyEdit(ev)
	e.broadcast(ev)
	return t, nil
}

func (e *Engine) DeleteTask(id string) error {
	ev := wire.DeleteTodo{ID: id}
	if !e.applyDelete(ev) {
		return fmt.Errorf("%w: %s", ErrUnknownTask, id)
	}
	e.broadcast(ev)
	return nil
}

// PinTask toggles the local pin and returns the new value.
func (e *Engine) PinTask(id string) (bool, error) {
	ev := wire.PinTodo{ID: id}
	pinned, ok := e.applyPin(ev)
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrUnknownTask, id)
	}
	e.broadcast(ev)
	return pinned, nil
}

func (e *Engine) AddComment(id, text string) (board.Comment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return board.Comment{}, board.ErrEmptyComment
	}
	ev := wire.Comment{TodoID: id, Comment: text, Author: e.name}
	c, ok := e.applyComment(ev)
	if !ok {
		return board.Comment{}, fmt.Errorf("%w: %s", ErrUnknownTask, id)
	}
	e.broadcast(ev)
	return c, nil
}

func (e *Engine) broadcast(ev wire.Event) {
	if e.out == nil {
		return
	}
	n := e.out.Broadcast(ev)
	log.Debug().Str("kind", string(ev.Kind())).Int("links", n).Msg("engine.broadcast")
}

func taskFromMessage(m wire.Message) board.Task {
	to := nonNil(m.To)
	return board.Task{
		ID:         m.ID,
		Title:      m.Title,
		Body:       m.Message,
		Author:     m.From,
		To:         to,
		Mentions:   board.ParseMentions(to),
		Categories: toCategories(m.Categories),
		StartDate:  m.StartDate,
		EndDate:    m.EndDate,
	}
}

func messageFromTask(t board.Task) wire.Message {
	return wire.Message{
		ID:         t.ID,
		From:       t.Author,
		To:         nonNil(t.To),
		Title:      t.Title,
		Message:    t.Body,
		StartDate:  t.StartDate,
		EndDate:    t.EndDate,
		Categories: fromCategories(t.Categories),
	}
}

// toCategories keeps unknown peer categories verbatim.
func toCategories(in []string) []board.Category {
	out := make([]board.Category, 0, len(in))
	for _, c := range in {
		out = append(out, board.Category(c))
	}
	return out
}

func fromCategories(in []board.Category) []string {
	out := make([]string, 0, len(in))
	for _, c := range in {
		out = append(out, string(c))
	}
	return out
}

func nonNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}
