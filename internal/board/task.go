package board

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// DateLayout is the wire and form layout for optional task dates.
const DateLayout = "2006-01-02"

// Task is one shared todo as held in a peer's local view.
type Task struct {
	ID         string     `json:"id"`
	Title      string     `json:"title"`
	Body       string     `json:"message"`
	Author     string     `json:"from"`
	To         []string   `json:"to"`
	Mentions   []string   `json:"mentions"`
	Categories []Category `json:"categories"`
	StartDate  string     `json:"startDate,omitempty"`
	EndDate    string     `json:"endDate,omitempty"`
	Pinned     bool       `json:"pinned"`
}

// TaskPatch holds the fields an edit overwrites.
type TaskPatch struct {
	Title      string
	Body       string
	To         []string
	Categories []Category
}

// Comment belongs to exactly one task.
type Comment struct {
	TaskID string `json:"todoId"`
	Author string `json:"author"`
	Text   string `json:"comment"`
}

// NewTaskID returns a time-ordered random id. Ids are low-collision, not
// globally unique.
func NewTaskID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// Addressed reports whether name is among the task's @-mentions.
func (t Task) Addressed(name string) bool {
	name = strings.TrimSpace(name)
	if name == "" {
		return false
	}
	for _, m := range t.Mentions {
		if m == name {
			return true
		}
	}
	return false
}

// Clone returns a copy that shares no slices with t.
func (t Task) Clone() Task {
	t.To = cloneStrings(t.To)
	t.Mentions = cloneStrings(t.Mentions)
	t.Categories = cloneCategories(t.Categories)
	return t
}

// Apply overwrites the editable fields of t with p and re-derives mentions.
func (t Task) Apply(p TaskPatch) Task {
	t.Title = p.Title
	t.Body = p.Body
	t.To = cloneStrings(p.To)
	t.Mentions = ParseMentions(p.To)
	t.Categories = cloneCategories(p.Categories)
	return t
}

// ParseDate parses an optional date. Empty input yields the zero time.
func ParseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	return time.Parse(DateLayout, raw)
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func cloneCategories(in []Category) []Category {
	if in == nil {
		return nil
	}
	out := make([]Category, len(in))
	copy(out, in)
	return out
}
