package presence

import (
	"errors"
	"testing"

	"github.com/danmuck/peerboard/internal/protocol/wire"
	"github.com/danmuck/peerboard/internal/testutil/testlog"
)

type recorder struct {
	sent   []wire.Event
	failOn wire.Kind
}

func (r *recorder) ID() string { return "peer-1" }

func (r *recorder) Send(ev wire.Event) error {
	if ev.Kind() == r.failOn {
		return errors.New("broken pipe")
	}
	r.sent = append(r.sent, ev)
	return nil
}

func TestAnnouncementsNameOnly(t *testing.T) {
	testlog.Start(t)
	got := Announcements(Claims{Name: "bob"})
	if len(got) != 1 || got[0] != (wire.Name{Name: "bob"}) {
		t.Fatalf("unexpected announcements %#v", got)
	}
}

func TestAnnouncementsBlankNameStillSent(t *testing.T) {
	testlog.Start(t)
	got := Announcements(Claims{})
	if len(got) != 1 || got[0].Kind() != wire.KindName {
		t.Fatalf("expected a single blank name announcement, got %#v", got)
	}
}

func TestAnnouncementsCreatorAfterName(t *testing.T) {
	testlog.Start(t)
	got := Announcements(Claims{Name: "alice", Creator: "alice"})
	if len(got) != 2 {
		t.Fatalf("expected two announcements, got %d", len(got))
	}
	if got[0].Kind() != wire.KindName || got[1] != (wire.Creator{Name: "alice"}) {
		t.Fatalf("unexpected order %#v", got)
	}
}

func TestGreetContinuesPastFailure(t *testing.T) {
	testlog.Start(t)
	r := &recorder{failOn: wire.KindName}
	if n := Greet(r, Claims{Name: "alice", Creator: "alice"}); n != 1 {
		t.Fatalf("expected one successful write, got %d", n)
	}
	if len(r.sent) != 1 || r.sent[0].Kind() != wire.KindCreator {
		t.Fatalf("expected creator to be sent after name failure, got %#v", r.sent)
	}
}
