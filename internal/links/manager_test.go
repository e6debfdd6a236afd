package links

import (
	"net"
	"testing"
	"time"

	"github.com/danmuck/peerboard/internal/protocol/frame"
	"github.com/danmuck/peerboard/internal/protocol/wire"
	"github.com/danmuck/peerboard/internal/testutil/testlog"
)

type chanRouter struct {
	opened chan *Link
	closed chan *Link
	events chan wire.Event
}

func newChanRouter() *chanRouter {
	return &chanRouter{
		opened: make(chan *Link, 8),
		closed: make(chan *Link, 8),
		events: make(chan wire.Event, 64),
	}
}

func (r *chanRouter) PeerOpened(l *Link) {
	l.Admit()
	r.opened <- l
}

func (r *chanRouter) PeerClosed(l *Link)    { r.closed <- l }
func (r *chanRouter) Receive(ev wire.Event) { r.events <- ev }

func writeEvent(t *testing.T, conn net.Conn, ev wire.Event) {
	t.Helper()
	payload, err := wire.Encode(ev)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := frame.WriteFrame(conn, frame.New(1, payload), frame.DefaultLimits()); err != nil {
		t.Fatalf("write frame: %v", err)
	}
}

// readAsync reads one event from conn on its own goroutine. The channel
// yields nil when the read fails.
func readAsync(conn net.Conn) <-chan wire.Event {
	out := make(chan wire.Event, 1)
	go func() {
		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		f, err := frame.ReadFrame(conn, frame.DefaultLimits())
		if err != nil {
			out <- nil
			return
		}
		ev, err := wire.Decode(f.Payload)
		if err != nil {
			out <- nil
			return
		}
		out <- ev
	}()
	return out
}

func waitEvent(t *testing.T, r *chanRouter) wire.Event {
	t.Helper()
	select {
	case ev := <-r.events:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for event")
		return nil
	}
}

func waitCount(t *testing.T, m *Manager, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if m.Count() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("expected %d links, got %d", want, m.Count())
}

func TestAttachNotifiesRouterAndDeliversEvents(t *testing.T) {
	testlog.Start(t)
	router := newChanRouter()
	m := NewManager(DefaultConfig(), router)
	defer m.Close()

	local, remote := net.Pipe()
	defer remote.Close()
	link, err := m.Attach(local)
	if err != nil {
		t.Fatalf("attach: %v", err)
	}
	if got := <-router.opened; got != link {
		t.Fatalf("router saw a different link")
	}
	if m.Count() != 1 {
		t.Fatalf("expected one link, got %d", m.Count())
	}

	writeEvent(t, remote, wire.Name{Name: "bob"})
	if ev := waitEvent(t, router); ev != (wire.Name{Name: "bob"}) {
		t.Fatalf("unexpected event %#v", ev)
	}
}

func TestUndecodablePayloadIsDroppedAndLinkSurvives(t *testing.T) {
	testlog.Start(t)
	router := newChanRouter()
	m := NewManager(DefaultConfig(), router)
	defer m.Close()

	local, remote := net.Pipe()
	defer remote.Close()
	if _, err := m.Attach(local); err != nil {
		t.Fatalf("attach: %v", err)
	}
	<-router.opened

	if err := frame.WriteFrame(remote, frame.New(1, []byte("not json")), frame.DefaultLimits()); err != nil {
		t.Fatalf("write garbage: %v", err)
	}
	if err := frame.WriteFrame(remote, frame.New(2, []byte(`{"type":"leave"}`)), frame.DefaultLimits()); err != nil {
		t.Fatalf("write unknown kind: %v", err)
	}
	writeEvent(t, remote, wire.PinTodo{ID: "t1"})

	if ev := waitEvent(t, router); ev != (wire.PinTodo{ID: "t1"}) {
		t.Fatalf("expected only the valid event, got %#v", ev)
	}
	if m.Count() != 1 {
		t.Fatalf("link should survive undecodable payloads")
	}
}

func TestBadFrameClosesOnlyThatLink(t *testing.T) {
	testlog.Start(t)
	router := newChanRouter()
	m := NewManager(DefaultConfig(), router)
	defer m.Close()

	badLocal, badRemote := net.Pipe()
	goodLocal, goodRemote := net.Pipe()
	defer badRemote.Close()
	defer goodRemote.Close()
	bad, _ := m.Attach(badLocal)
	m.Attach(goodLocal)
	<-router.opened
	<-router.opened

	h := frame.Header{Magic: 0xdeadbeef, Version: frame.Version, HeaderLen: frame.FixedHeaderLen}
	if _, err := badRemote.Write(frame.EncodeHeader(h)); err != nil {
		t.Fatalf("write bad header: %v", err)
	}
	waitCount(t, m, 1)
	select {
	case l := <-router.closed:
		if l != bad {
			t.Fatalf("closed the wrong link: %s", l.ID())
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("router never saw the bad link close")
	}

	writeEvent(t, goodRemote, wire.Name{Name: "still here"})
	if ev := waitEvent(t, router); ev != (wire.Name{Name: "still here"}) {
		t.Fatalf("unexpected event %#v", ev)
	}
}

func TestBroadcastIsolatesFailedLink(t *testing.T) {
	testlog.Start(t)
	router := newChanRouter()
	m := NewManager(Config{WriteTimeout: 500 * time.Millisecond}, router)
	defer m.Close()

	deadLocal, deadRemote := net.Pipe()
	liveLocal, liveRemote := net.Pipe()
	defer liveRemote.Close()
	m.Attach(deadLocal)
	m.Attach(liveLocal)
	<-router.opened
	<-router.opened
	deadRemote.Close()

	got := readAsync(liveRemote)

	want := wire.Comment{TodoID: "t1", Comment: "hi", Author: "alice"}
	if n := m.Broadcast(want); n != 1 {
		t.Fatalf("expected one successful write, got %d", n)
	}
	select {
	case ev := <-got:
		if ev != want {
			t.Fatalf("unexpected event %#v", ev)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("live link never received broadcast")
	}
}

func TestLinkSendWritesToOneLink(t *testing.T) {
	testlog.Start(t)
	router := newChanRouter()
	m := NewManager(DefaultConfig(), router)
	defer m.Close()

	local, remote := net.Pipe()
	defer remote.Close()
	link, _ := m.Attach(local)
	<-router.opened

	got := readAsync(remote)
	if err := link.Send(wire.Creator{Name: "alice"}); err != nil {
		t.Fatalf("send: %v", err)
	}
	if ev := <-got; ev != (wire.Creator{Name: "alice"}) {
		t.Fatalf("unexpected event %#v", ev)
	}
}

func TestCloseDetachesEverything(t *testing.T) {
	testlog.Start(t)
	router := newChanRouter()
	m := NewManager(DefaultConfig(), router)

	for i := 0; i < 3; i++ {
		local, remote := net.Pipe()
		defer remote.Close()
		if _, err := m.Attach(local); err != nil {
			t.Fatalf("attach: %v", err)
		}
		<-router.opened
	}
	m.Close()
	if m.Count() != 0 {
		t.Fatalf("expected no links after close, got %d", m.Count())
	}
	local, remote := net.Pipe()
	defer remote.Close()
	if _, err := m.Attach(local); err != ErrManagerClosed {
		t.Fatalf("expected ErrManagerClosed, got %v", err)
	}
	if m.Broadcast(wire.Name{Name: "x"}) != 0 {
		t.Fatalf("broadcast after close should reach nobody")
	}
}

type holdRouter struct {
	opened chan *Link
}

func (r *holdRouter) PeerOpened(l *Link) { r.opened <- l }
func (r *holdRouter) PeerClosed(*Link)   {}
func (r *holdRouter) Receive(wire.Event) {}

func TestBroadcastWaitsForAdmission(t *testing.T) {
	testlog.Start(t)
	router := &holdRouter{opened: make(chan *Link, 1)}
	m := NewManager(DefaultConfig(), router)
	defer m.Close()

	local, remote := net.Pipe()
	defer remote.Close()
	if _, err := m.Attach(local); err != nil {
		t.Fatalf("attach: %v", err)
	}
	link := <-router.opened

	if n := m.Broadcast(wire.Name{Name: "early"}); n != 0 {
		t.Fatalf("unadmitted link received a broadcast")
	}

	got := readAsync(remote)
	if err := link.Send(wire.Name{Name: "greeting"}); err != nil {
		t.Fatalf("send greeting: %v", err)
	}
	if ev := <-got; ev != (wire.Name{Name: "greeting"}) {
		t.Fatalf("expected greeting first, got %#v", ev)
	}

	link.Admit()
	got = readAsync(remote)
	if n := m.Broadcast(wire.Name{Name: "late"}); n != 1 {
		t.Fatalf("expected one write after admission, got %d", n)
	}
	if ev := <-got; ev != (wire.Name{Name: "late"}) {
		t.Fatalf("unexpected event %#v", ev)
	}
}
