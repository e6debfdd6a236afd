package room

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/danmuck/peerboard/internal/api"
	"github.com/danmuck/peerboard/internal/engine"
	"github.com/danmuck/peerboard/internal/links"
	"github.com/danmuck/peerboard/internal/presence"
	"github.com/danmuck/peerboard/internal/protocol/wire"
	"github.com/danmuck/peerboard/internal/store"
	"github.com/danmuck/peerboard/internal/swarm"
)

var (
	ErrInvalidHeartbeatInterval = errors.New("room: invalid heartbeat interval")
	ErrLifecycleOrder           = errors.New("room: invalid lifecycle transition")
)

// Phase is where the room is in setup -> loading -> ready.
type Phase string

const (
	PhaseSetup   Phase = "setup"
	PhaseLoading Phase = "loading"
	PhaseReady   Phase = "ready"
)

// StartFunc creates or joins the room once the service is running.
type StartFunc func(ctx context.Context, s *Service) error

// Create starts a new room under a random topic.
func Create(ctx context.Context, s *Service) error {
	_, err := s.Create(ctx)
	return err
}

// JoinTopic joins an existing room by its hex topic.
func JoinTopic(topicHex string) StartFunc {
	return func(ctx context.Context, s *Service) error {
		_, err := s.Join(ctx, topicHex)
		return err
	}
}

// Service wires the engine loop, peer links, swarm and api into one room.
type Service struct {
	cfg   ServiceConfig
	hub   *api.Hub
	loop  *engine.Loop
	links *links.Manager
	swarm *swarm.Swarm
	api   *api.Server

	mu    sync.RWMutex
	phase Phase
	topic swarm.Topic
	join  *swarm.Join
	ready chan struct{}
}

// NewService builds a room. Extra hooks run after the api stream hooks.
// Discovery defaults to what cfg.Swarm enables.
func NewService(cfg ServiceConfig, hooks engine.Hooks, discovery ...swarm.Discovery) *Service {
	s := &Service{
		cfg:   cfg,
		hub:   api.NewHub(),
		phase: PhaseSetup,
		ready: make(chan struct{}),
	}
	s.links = links.NewManager(cfg.Links, s)

	notify := engine.Hooks{
		OnNotify: func(from, title string) {
			log.Info().Str("from", from).Str("title", title).Msg("room.Service notified")
		},
	}
	e := engine.New(store.New(nil), s.links, s.hub.Hooks().Chain(notify).Chain(hooks))
	s.loop = engine.NewLoop(e, cfg.LoopDepth)
	s.swarm = swarm.New(cfg.Swarm, s.attach, discovery...)
	s.api = api.NewServer(cfg.API, s, s.hub)
	return s
}

func (s *Service) attach(conn net.Conn) {
	if _, err := s.links.Attach(conn); err != nil {
		log.Warn().Err(err).Msg("room.Service.attach rejected")
	}
}

// PeerOpened greets a new link from the engine goroutine, then admits it
// to broadcasts. Every broadcast also runs on that goroutine, so the
// greeting is the first thing the peer receives.
func (s *Service) PeerOpened(l *links.Link) {
	s.loop.Post(func(e *engine.Engine) {
		presence.Greet(l, e.Greeting())
		l.Admit()
	})
	s.hub.PeersChanged(s.PeerCount())
}

func (s *Service) PeerClosed(*links.Link) {
	s.hub.PeersChanged(s.PeerCount())
}

// Receive queues an inbound event behind earlier ones from every link.
func (s *Service) Receive(ev wire.Event) {
	s.loop.Post(func(e *engine.Engine) {
		e.Apply(ev)
	})
}

// Call runs fn on the engine loop.
func (s *Service) Call(ctx context.Context, fn func(*engine.Engine) error) error {
	return s.loop.Call(ctx, fn)
}

func (s *Service) API() *api.Server { return s.api }

func (s *Service) Phase() Phase {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.phase
}

// Topic is the joined topic. It is zero before Create or Join.
func (s *Service) Topic() swarm.Topic {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.topic
}

// Ready is closed once the join has flushed.
func (s *Service) Ready() <-chan struct{} { return s.ready }

// ListenAddr is the peer listener address, nil before the room is joined.
func (s *Service) ListenAddr() net.Addr { return s.swarm.Addr() }

// PeerCount counts this peer plus every open link.
func (s *Service) PeerCount() int {
	return s.links.Count() + 1
}

func (s *Service) Status(ctx context.Context) (api.RoomStatus, error) {
	st := api.RoomStatus{Phase: string(s.Phase()), Peers: s.PeerCount()}
	if s.Phase() == PhaseReady {
		st.Topic = s.Topic().String()
	}
	err := s.loop.Call(ctx, func(e *engine.Engine) error {
		st.Name = e.Name()
		st.Creator = e.Snapshot().Creator
		st.IsCreator = e.IsCreator()
		return nil
	})
	return st, err
}

// SetName sets the local display name.
func (s *Service) SetName(ctx context.Context, name string) error {
	return s.loop.Call(ctx, func(e *engine.Engine) error {
		_, err := e.SetName(name)
		return err
	})
}

// Create claims the creator marker and joins a fresh random topic. The
// claim is announced once a name is set.
func (s *Service) Create(ctx context.Context) (swarm.Topic, error) {
	err := s.loop.Call(ctx, func(e *engine.Engine) error {
		e.ClaimCreator()
		return nil
	})
	if err != nil {
		return swarm.Topic{}, err
	}
	topic, err := swarm.NewTopic()
	if err != nil {
		return swarm.Topic{}, err
	}
	return topic, s.joinTopic(ctx, topic)
}

// Join joins the room identified by topicHex.
func (s *Service) Join(ctx context.Context, topicHex string) (swarm.Topic, error) {
	topic, err := swarm.ParseTopic(topicHex)
	if err != nil {
		return swarm.Topic{}, err
	}
	return topic, s.joinTopic(ctx, topic)
}

func (s *Service) joinTopic(ctx context.Context, topic swarm.Topic) error {
	s.mu.Lock()
	if s.phase != PhaseSetup {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s -> %s", ErrLifecycleOrder, s.phase, PhaseLoading)
	}
	s.phase = PhaseLoading
	s.topic = topic
	s.mu.Unlock()

	j, err := s.swarm.Join(ctx, topic)
	if err != nil {
		s.mu.Lock()
		s.phase = PhaseSetup
		s.topic = swarm.Topic{}
		s.mu.Unlock()
		return err
	}
	s.mu.Lock()
	s.join = j
	s.mu.Unlock()
	log.Info().Str("topic", topic.String()).Msg("room.Service.join loading")

	go func() {
		select {
		case <-j.Flushed():
		case <-ctx.Done():
			return
		}
		s.mu.Lock()
		s.phase = PhaseReady
		s.mu.Unlock()
		close(s.ready)
		log.Info().Str("topic", topic.String()).Int("peers", s.PeerCount()).Msg("room.Service.join ready")
	}()
	return nil
}

// RunUntilSignal runs the room until SIGINT or SIGTERM.
func (s *Service) RunUntilSignal(start StartFunc) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return s.Run(ctx, start)
}

// Run starts the engine loop and api, calls start, then logs a heartbeat
// until ctx is cancelled.
func (s *Service) Run(ctx context.Context, start StartFunc) error {
	if s.cfg.HeartbeatInterval <= 0 {
		return ErrInvalidHeartbeatInterval
	}
	ctx, cancel := context.WithCancel(ctx)

	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		_ = s.loop.Run(ctx)
	}()
	defer s.shutdown(cancel, loopDone)

	apiErr := make(chan error, 1)
	if s.cfg.ServeAPI {
		go func() {
			apiErr <- s.api.ListenAndServe(ctx)
		}()
	}

	if name := s.cfg.Name; name != "" {
		if err := s.SetName(ctx, name); err != nil {
			return err
		}
	}
	if start != nil {
		if err := start(ctx, s); err != nil {
			return err
		}
	}

	ticker := time.NewTicker(s.cfg.HeartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("room.Service.serve shutdown")
			return nil
		case err := <-apiErr:
			if err != nil {
				return err
			}
		case <-ticker.C:
			log.Info().
				Str("phase", string(s.Phase())).
				Str("topic", s.Topic().String()).
				Int("peers", s.PeerCount()).
				Int("event_clients", s.hub.ClientCount()).
				Msg("room.Service.heartbeat")
		}
	}
}

func (s *Service) shutdown(cancel context.CancelFunc, loopDone <-chan struct{}) {
	cancel()
	s.mu.RLock()
	j := s.join
	s.mu.RUnlock()
	if j != nil {
		j.Leave()
	}
	if err := s.swarm.Close(); err != nil {
		log.Warn().Err(err).Msg("room.Service.shutdown swarm close")
	}
	s.links.Close()
	<-loopDone
}
