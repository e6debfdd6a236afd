package links

import (
	"errors"
	"fmt"
	"io"
	"net"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog/log"

	"github.com/danmuck/peerboard/internal/observability"
	"github.com/danmuck/peerboard/internal/protocol/frame"
	"github.com/danmuck/peerboard/internal/protocol/wire"
)

var (
	ErrManagerClosed = errors.New("links: manager closed")
	ErrLinkClosed    = errors.New("links: link closed")
)

// Router receives link lifecycle and decoded events. Every method is
// called from link goroutines and must not block for long. PeerOpened
// must eventually Admit the link for it to receive broadcasts.
type Router interface {
	PeerOpened(*Link)
	PeerClosed(*Link)
	Receive(wire.Event)
}

// Manager is the Peer Link Manager.
type Manager struct {
	cfg    Config
	router Router

	mu     sync.Mutex
	links  map[string]*Link
	closed bool
	seq    atomic.Uint64
	wg     sync.WaitGroup
}

func NewManager(cfg Config, router Router) *Manager {
	return &Manager{
		cfg:    cfg.WithDefaults(),
		router: router,
		links:  make(map[string]*Link),
	}
}

// Attach registers conn, tells the router it opened, then starts reading.
// Without a router the link is admitted to broadcasts at once.
func (m *Manager) Attach(conn net.Conn) (*Link, error) {
	remote := ""
	if addr := conn.RemoteAddr(); addr != nil {
		remote = addr.String()
	}
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		_ = conn.Close()
		return nil, ErrManagerClosed
	}
	id := fmt.Sprintf("link-%d", m.seq.Add(1))
	l := newLink(id, remote, conn, m.cfg)
	m.links[id] = l
	count := len(m.links)
	m.wg.Add(1)
	m.mu.Unlock()

	observability.SetLinksOpen(count)
	log.Info().Str("peer", id).Str("remote", remote).Int("links", count).Msg("links.Manager.Attach opened")

	if m.router != nil {
		m.router.PeerOpened(l)
	} else {
		l.Admit()
	}
	go m.readLoop(l)
	return l, nil
}

// Broadcast encodes ev once and writes it to every admitted link. A failed
// write is logged and counted; the remaining links still receive ev.
// Returns the number of successful writes.
func (m *Manager) Broadcast(ev wire.Event) int {
	payload, err := wire.Encode(ev)
	if err != nil {
		log.Error().Err(err).Msg("links.Manager.Broadcast encode failed")
		return 0
	}
	observability.RecordBroadcast(string(ev.Kind()))

	sent := 0
	for _, l := range m.snapshot() {
		if !l.admitted.Load() {
			continue
		}
		if err := l.write(payload); err != nil {
			observability.RecordLinkWriteFailure()
			log.Warn().Err(err).Str("peer", l.id).Str("kind", string(ev.Kind())).Msg("links.Manager.Broadcast write failed")
			continue
		}
		sent++
	}
	return sent
}

// Count is the number of open links.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.links)
}

// Remotes lists the remote addresses of open links.
func (m *Manager) Remotes() []string {
	links := m.snapshot()
	out := make([]string, 0, len(links))
	for _, l := range links {
		out = append(out, l.remote)
	}
	return out
}

// Close closes every link and waits for their readers to exit.
func (m *Manager) Close() {
	m.mu.Lock()
	m.closed = true
	links := make([]*Link, 0, len(m.links))
	for _, l := range m.links {
		links = append(links, l)
	}
	m.mu.Unlock()

	for _, l := range links {
		_ = l.close()
	}
	m.wg.Wait()
}

func (m *Manager) snapshot() []*Link {
	m.mu.Lock()
	out := make([]*Link, 0, len(m.links))
	for _, l := range m.links {
		out = append(out, l)
	}
	m.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].opened.Before(out[j].opened) })
	return out
}

func (m *Manager) readLoop(l *Link) {
	defer m.wg.Done()
	defer m.detach(l)

	for {
		f, err := frame.ReadFrame(l.conn, m.cfg.Limits)
		if err != nil {
			m.logReadError(l, err)
			return
		}
		if f.Header.MessageType != frame.TypeBoardEvent {
			observability.RecordEventDropped(observability.DropFrame)
			log.Warn().Str("peer", l.id).Uint32("message_type", f.Header.MessageType).Msg("links.readLoop unknown frame type dropped")
			continue
		}
		ev, err := wire.Decode(f.Payload)
		if err != nil {
			observability.RecordEventDropped(observability.DropDecode)
			log.Warn().Err(err).Str("peer", l.id).Uint64("message_id", f.Header.MessageID).Msg("links.readLoop decode failed dropped")
			continue
		}
		observability.RecordEventReceived(string(ev.Kind()))
		if m.router != nil {
			m.router.Receive(ev)
		}
	}
}

func (m *Manager) logReadError(l *Link, err error) {
	switch {
	case l.closed.Load(), errors.Is(err, io.EOF), errors.Is(err, net.ErrClosed):
		log.Debug().Str("peer", l.id).Msg("links.readLoop closed")
	case errors.Is(err, frame.ErrInvalidMagic),
		errors.Is(err, frame.ErrUnsupportedVersion),
		errors.Is(err, frame.ErrHeaderLenMismatch),
		errors.Is(err, frame.ErrPayloadTooLarge):
		observability.RecordEventDropped(observability.DropFrame)
		log.Warn().Err(err).Str("peer", l.id).Msg("links.readLoop bad frame, closing link")
	default:
		log.Warn().Err(err).Str("peer", l.id).Msg("links.readLoop error")
	}
}

func (m *Manager) detach(l *Link) {
	_ = l.close()
	m.mu.Lock()
	_, tracked := m.links[l.id]
	delete(m.links, l.id)
	count := len(m.links)
	m.mu.Unlock()
	if !tracked {
		return
	}
	observability.SetLinksOpen(count)
	log.Info().Str("peer", l.id).Int("links", count).Msg("links.Manager closed link")
	m.router.PeerClosed(l)
}
