package links

import (
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/danmuck/peerboard/internal/protocol/frame"
	"github.com/danmuck/peerboard/internal/protocol/wire"
)

// Link is one open duplex connection to a peer.
type Link struct {
	id     string
	remote string
	conn   net.Conn
	cfg    Config

	writeMu  sync.Mutex
	seq      atomic.Uint64
	closed   atomic.Bool
	admitted atomic.Bool
	opened   time.Time
}

func newLink(id, remote string, conn net.Conn, cfg Config) *Link {
	return &Link{id: id, remote: remote, conn: conn, cfg: cfg, opened: time.Now()}
}

func (l *Link) ID() string     { return l.id }
func (l *Link) Remote() string { return l.remote }

// Admit adds the link to broadcasts. The router calls it once the greeting
// has been sent, so no broadcast reaches a peer ahead of its greeting.
func (l *Link) Admit() { l.admitted.Store(true) }

// Send encodes and writes one event to this link only.
func (l *Link) Send(ev wire.Event) error {
	payload, err := wire.Encode(ev)
	if err != nil {
		return err
	}
	return l.write(payload)
}

func (l *Link) write(payload []byte) error {
	if l.closed.Load() {
		return ErrLinkClosed
	}
	l.writeMu.Lock()
	defer l.writeMu.Unlock()
	if l.cfg.WriteTimeout > 0 {
		_ = l.conn.SetWriteDeadline(time.Now().Add(l.cfg.WriteTimeout))
	}
	return frame.WriteFrame(l.conn, frame.New(l.seq.Add(1), payload), l.cfg.Limits)
}

func (l *Link) close() error {
	if !l.closed.CompareAndSwap(false, true) {
		return nil
	}
	return l.conn.Close()
}
