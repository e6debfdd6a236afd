package wire

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrMalformed   = errors.New("wire: malformed event")
	ErrUnknownKind = errors.New("wire: unknown event kind")
	ErrNilEvent    = errors.New("wire: nil event")
)

// DecodeError reports why a payload could not be turned into an Event.
type DecodeError struct {
	Kind   Kind
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Kind != "" {
		return fmt.Sprintf("%v: %s: %s", e.Err, e.Kind, e.Reason)
	}
	return fmt.Sprintf("%v: %s", e.Err, e.Reason)
}

func (e *DecodeError) Unwrap() error { return e.Err }

func malformed(kind Kind, reason string) error {
	return &DecodeError{Kind: kind, Reason: reason, Err: ErrMalformed}
}

// Encode serializes ev as a single tagged JSON object.
func Encode(ev Event) ([]byte, error) {
	if ev == nil {
		return nil, ErrNilEvent
	}
	return json.Marshal(ev)
}

// Decode parses one tagged JSON object. Unknown fields are ignored.
func Decode(data []byte) (Event, error) {
	var probe struct {
		Type *string `json:"type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, malformed("", err.Error())
	}
	if probe.Type == nil {
		return nil, malformed("", "missing type")
	}
	kind := Kind(*probe.Type)
	var (
		ev  Event
		err error
		key string
	)
	switch kind {
	case KindName:
		ev, err = decodeAs[Name](kind, data)
	case KindCreator:
		ev, err = decodeAs[Creator](kind, data)
	case KindMessage:
		var m Message
		m, err = decodeAs[Message](kind, data)
		ev, key = m, m.ID
	case KindDeleteTodo:
		var d DeleteTodo
		d, err = decodeAs[DeleteTodo](kind, data)
		ev, key = d, d.ID
	case KindEditTodo:
		var e EditTodo
		e, err = decodeAs[EditTodo](kind, data)
		ev, key = e, e.ID
	case KindPinTodo:
		var p PinTodo
		p, err = decodeAs[PinTodo](kind, data)
		ev, key = p, p.ID
	case KindComment:
		var c Comment
		c, err = decodeAs[Comment](kind, data)
		ev, key = c, c.TodoID
	default:
		return nil, &DecodeError{Kind: kind, Reason: "unrecognized type", Err: ErrUnknownKind}
	}
	if err != nil {
		return nil, err
	}
	if taskKeyed(kind) && strings.TrimSpace(key) == "" {
		return nil, malformed(kind, "missing task id")
	}
	return ev, nil
}

func taskKeyed(kind Kind) bool {
	return kind != KindName && kind != KindCreator
}

func decodeAs[T Event](kind Kind, data []byte) (T, error) {
	var ev T
	if err := json.Unmarshal(data, &ev); err != nil {
		var zero T
		return zero, malformed(kind, err.Error())
	}
	return ev, nil
}

// MarshalJSON methods add the "type" tag. The local alias types drop the
// method set so the embedded fields encode without recursion.

func (e Name) MarshalJSON() ([]byte, error) {
	type fields Name
	return json.Marshal(struct {
		Type Kind `json:"type"`
		fields
	}{KindName, fields(e)})
}

func (e Creator) MarshalJSON() ([]byte, error) {
	type fields Creator
	return json.Marshal(struct {
		Type Kind `json:"type"`
		fields
	}{KindCreator, fields(e)})
}

func (e Message) MarshalJSON() ([]byte, error) {
	type fields Message
	return json.Marshal(struct {
		Type Kind `json:"type"`
		fields
	}{KindMessage, fields(e)})
}

func (e DeleteTodo) MarshalJSON() ([]byte, error) {
	type fields DeleteTodo
	return json.Marshal(struct {
		Type Kind `json:"type"`
		fields
	}{KindDeleteTodo, fields(e)})
}

func (e EditTodo) MarshalJSON() ([]byte, error) {
	type fields EditTodo
	return json.Marshal(struct {
		Type Kind `json:"type"`
		fields
	}{KindEditTodo, fields(e)})
}

func (e PinTodo) MarshalJSON() ([]byte, error) {
	type fields PinTodo
	return json.Marshal(struct {
		Type Kind `json:"type"`
		fields
	}{KindPinTodo, fields(e)})
}

func (e Comment) MarshalJSON() ([]byte, error) {
	type fields Comment
	return json.Marshal(struct {
		Type Kind `json:"type"`
		fields
	}{KindComment, fields(e)})
}
