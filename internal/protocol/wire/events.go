package wire

// Kind is the value of an event's "type" field.
type Kind string

const (
	KindName       Kind = "name"
	KindCreator    Kind = "creator"
	KindMessage    Kind = "message"
	KindDeleteTodo Kind = "deleteTodo"
	KindEditTodo   Kind = "editTodo"
	KindPinTodo    Kind = "pinTodo"
	KindComment    Kind = "comment"
)

// Kinds lists every event kind in wire-table order.
func Kinds() []Kind {
	return []Kind{
		KindName,
		KindCreator,
		KindMessage,
		KindDeleteTodo,
		KindEditTodo,
		KindPinTodo,
		KindComment,
	}
}

// Event is one of the seven board event kinds. The set is closed: only
// types in this package implement it.
type Event interface {
	Kind() Kind
	Accept(Handler)
	isEvent()
}

// Handler receives each event kind through its own method. A new kind
// must be added here, which breaks every implementation until handled.
type Handler interface {
	HandleName(Name)
	HandleCreator(Creator)
	HandleMessage(Message)
	HandleDeleteTodo(DeleteTodo)
	HandleEditTodo(EditTodo)
	HandlePinTodo(PinTodo)
	HandleComment(Comment)
}

// Name announces the sender's display name.
type Name struct {
	Name string `json:"name"`
}

// Creator claims the room creator marker for Name.
type Creator struct {
	Name string `json:"name"`
}

// Message creates a task.
type Message struct {
	ID         string   `json:"id"`
	From       string   `json:"from"`
	To         []string `json:"to"`
	Title      string   `json:"title"`
	Message    string   `json:"message"`
	StartDate  string   `json:"startDate,omitempty"`
	EndDate    string   `json:"endDate,omitempty"`
	Categories []string `json:"categories"`
}

// DeleteTodo removes a task.
type DeleteTodo struct {
	ID string `json:"id"`
}

// EditTodo overwrites a task's editable fields.
type EditTodo struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	Message    string   `json:"message"`
	To         []string `json:"to"`
	Categories []string `json:"categories"`
}

// PinTodo toggles a task's pinned flag.
type PinTodo struct {
	ID string `json:"id"`
}

// Comment appends a comment to a task.
type Comment struct {
	TodoID  string `json:"todoId"`
	Comment string `json:"comment"`
	Author  string `json:"author"`
}

func (Name) Kind() Kind       { return KindName }
func (Creator) Kind() Kind    { return KindCreator }
func (Message) Kind() Kind    { return KindMessage }
func (DeleteTodo) Kind() Kind { return KindDeleteTodo }
func (EditTodo) Kind() Kind   { return KindEditTodo }
func (PinTodo) Kind() Kind    { return KindPinTodo }
func (Comment) Kind() Kind    { return KindComment }

func (e Name) Accept(h Handler)       { h.HandleName(e) }
func (e Creator) Accept(h Handler)    { h.HandleCreator(e) }
func (e Message) Accept(h Handler)    { h.HandleMessage(e) }
func (e DeleteTodo) Accept(h Handler) { h.HandleDeleteTodo(e) }
func (e EditTodo) Accept(h Handler)   { h.HandleEditTodo(e) }
func (e PinTodo) Accept(h Handler)    { h.HandlePinTodo(e) }
func (e Comment) Accept(h Handler)    { h.HandleComment(e) }

func (Name) isEvent()       {}
func (Creator) isEvent()    {}
func (Message) isEvent()    {}
func (DeleteTodo) isEvent() {}
func (EditTodo) isEvent()   {}
func (PinTodo) isEvent()    {}
func (Comment) isEvent()    {}
