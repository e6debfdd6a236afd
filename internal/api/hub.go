package api

import (
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/danmuck/peerboard/internal/board"
	"github.com/danmuck/peerboard/internal/engine"
)

const (
	HookTaskAdded      = "taskAdded"
	HookTaskEdited     = "taskEdited"
	HookTaskDeleted    = "taskDeleted"
	HookTaskPinned     = "taskPinned"
	HookCommentAdded   = "commentAdded"
	HookRosterChanged  = "rosterChanged"
	HookCreatorChanged = "creatorChanged"
	HookNotify         = "notify"
	HookPeersChanged   = "peersChanged"
)

const (
	clientBuffer = 64
	writeWait    = 5 * time.Second
)

// HookEvent is one message on the /events stream.
type HookEvent struct {
	Hook    string         `json:"hook"`
	Task    *board.Task    `json:"task,omitempty"`
	ID      string         `json:"id,omitempty"`
	Pinned  *bool          `json:"pinned,omitempty"`
	Comment *board.Comment `json:"comment,omitempty"`
	Roster  []string       `json:"roster,omitempty"`
	Name    string         `json:"name,omitempty"`
	From    string         `json:"from,omitempty"`
	Title   string         `json:"title,omitempty"`
	Peers   int            `json:"peers,omitempty"`
}

// Hub fans hook events out to websocket clients. Publish never blocks; a
// client that falls behind loses events.
type Hub struct {
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*hubClient]struct{}
	origins map[string]struct{}
}

type hubClient struct {
	send chan HookEvent
}

// NewHub builds a hub that accepts same-origin clients and the listed
// browser origins.
func NewHub(origins ...string) *Hub {
	h := &Hub{clients: make(map[*hubClient]struct{})}
	h.AllowOrigins(origins)
	h.upgrader = websocket.Upgrader{CheckOrigin: h.checkOrigin}
	return h
}

// AllowOrigins replaces the browser origins allowed to open the stream.
func (h *Hub) AllowOrigins(origins []string) {
	set := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o != "" {
			set[strings.ToLower(o)] = struct{}{}
		}
	}
	h.mu.Lock()
	h.origins = set
	h.mu.Unlock()
}

// checkOrigin allows requests without an Origin header (non-browser
// clients), same-origin pages and listed origins.
func (h *Hub) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	if strings.EqualFold(u.Host, r.Host) {
		return true
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.origins[strings.ToLower(strings.TrimRight(origin, "/"))]
	return ok
}

// Hooks returns engine hooks that publish to the hub.
func (h *Hub) Hooks() engine.Hooks {
	return engine.Hooks{
		OnTaskAdded: func(t board.Task) {
			h.Publish(HookEvent{Hook: HookTaskAdded, Task: &t})
		},
		OnTaskEdited: func(t board.Task) {
			h.Publish(HookEvent{Hook: HookTaskEdited, Task: &t})
		},
		OnTaskDeleted: func(id string) {
			h.Publish(HookEvent{Hook: HookTaskDeleted, ID: id})
		},
		OnTaskPinned: func(id string, pinned bool) {
			h.Publish(HookEvent{Hook: HookTaskPinned, ID: id, Pinned: &pinned})
		},
		OnCommentAdded: func(c board.Comment) {
			h.Publish(HookEvent{Hook: HookCommentAdded, Comment: &c})
		},
		OnRosterChanged: func(roster []string) {
			h.Publish(HookEvent{Hook: HookRosterChanged, Roster: roster})
		},
		OnCreatorChanged: func(name string) {
			h.Publish(HookEvent{Hook: HookCreatorChanged, Name: name})
		},
		OnNotify: func(from, title string) {
			h.Publish(HookEvent{Hook: HookNotify, From: from, Title: title})
		},
	}
}

// PeersChanged publishes the displayed peer count.
func (h *Hub) PeersChanged(peers int) {
	h.Publish(HookEvent{Hook: HookPeersChanged, Peers: peers})
}

func (h *Hub) Publish(ev HookEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- ev:
		default:
			log.Warn().Str("hook", ev.Hook).Msg("api.Hub.Publish client behind, event dropped")
		}
	}
}

func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) register() *hubClient {
	c := &hubClient{send: make(chan HookEvent, clientBuffer)}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	return c
}

func (h *Hub) unregister(c *hubClient) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// ServeWS upgrades the request and streams hook events until the client
// goes away.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("api.Hub.ServeWS upgrade failed")
		return
	}
	c := h.register()
	log.Debug().Str("remote", r.RemoteAddr).Msg("api.Hub.ServeWS client connected")

	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range c.send {
			_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WriteJSON(ev); err != nil {
				log.Debug().Err(err).Msg("api.Hub.ServeWS write failed")
				return
			}
		}
	}()

	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			break
		}
	}
	h.unregister(c)
	<-done
	_ = ws.Close()
	log.Debug().Str("remote", r.RemoteAddr).Msg("api.Hub.ServeWS client gone")
}
