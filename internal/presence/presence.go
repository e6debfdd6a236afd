// Package presence builds what a peer announces when a link opens.
package presence

import (
	"github.com/rs/zerolog/log"

	"github.com/danmuck/peerboard/internal/protocol/wire"
)

// Claims is what the local peer asserts about itself.
type Claims struct {
	Name string
	// Creator is set only when this peer created the room.
	Creator string
}

// Sender is one open peer link.
type Sender interface {
	ID() string
	Send(wire.Event) error
}

// Announcements returns the greeting for a new link: the name first, then
// the creator claim when held. The name is sent even when blank.
func Announcements(c Claims) []wire.Event {
	out := []wire.Event{wire.Name{Name: c.Name}}
	if c.Creator != "" {
		out = append(out, wire.Creator{Name: c.Creator})
	}
	return out
}

// Greet writes the announcements to one link and returns how many were
// written. A failed write is logged and does not stop the rest.
func Greet(s Sender, c Claims) int {
	sent := 0
	for _, ev := range Announcements(c) {
		if err := s.Send(ev); err != nil {
			log.Warn().Err(err).Str("peer", s.ID()).Str("kind", string(ev.Kind())).Msg("presence.Greet write failed")
			continue
		}
		sent++
	}
	return sent
}
