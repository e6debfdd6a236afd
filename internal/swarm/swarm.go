package swarm

import (
	"context"
	"errors"
	"math/rand"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

var (
	ErrNotListening = errors.New("swarm: not listening")
	ErrClosed       = errors.New("swarm: closed")
	ErrNoDiscovery  = errors.New("swarm: no discovery configured")
)

// ConnHandler takes ownership of a connected peer stream.
type ConnHandler func(net.Conn)

// Swarm listens for peers and dials the ones discovery reports.
type Swarm struct {
	cfg       Config
	handler   ConnHandler
	discovery []Discovery

	mu       sync.Mutex
	ln       net.Listener
	dialing  map[string]struct{}
	joins    []*Join
	closed   bool
	rng      *rand.Rand
	wg       sync.WaitGroup
	rootCtx  context.Context
	rootStop context.CancelFunc
}

// New builds a swarm. Discovery defaults to mDNS and/or the static peer
// list from cfg when none is passed.
func New(cfg Config, handler ConnHandler, discovery ...Discovery) *Swarm {
	cfg = cfg.WithDefaults()
	if cfg.NodeID == "" {
		cfg.NodeID = uuid.NewString()
	}
	if len(discovery) == 0 {
		if cfg.MDNS {
			discovery = append(discovery, NewMDNSDiscovery(cfg.ServiceName, cfg.Domain))
		}
		if len(cfg.Peers) > 0 {
			discovery = append(discovery, StaticDiscovery{Addrs: cfg.Peers})
		}
	}
	ctx, stop := context.WithCancel(context.Background())
	return &Swarm{
		cfg:       cfg,
		handler:   handler,
		discovery: discovery,
		dialing:   make(map[string]struct{}),
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
		rootCtx:   ctx,
		rootStop:  stop,
	}
}

func (s *Swarm) NodeID() string { return s.cfg.NodeID }

// Listen starts accepting peer connections.
func (s *Swarm) Listen() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if s.ln != nil {
		return nil
	}
	ln, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return err
	}
	s.ln = ln
	s.wg.Add(1)
	go s.acceptLoop(ln)
	log.Info().Str("addr", ln.Addr().String()).Str("node", s.cfg.NodeID).Msg("swarm.Listen accepting")
	return nil
}

// Addr is the listener address, nil before Listen.
func (s *Swarm) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

func (s *Swarm) acceptLoop(ln net.Listener) {
	defer s.wg.Done()
	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			log.Warn().Err(err).Msg("swarm.acceptLoop accept failed")
			continue
		}
		log.Debug().Str("remote", conn.RemoteAddr().String()).Msg("swarm.acceptLoop accepted")
		s.handler(conn)
	}
}

// Join announces this node on topic and starts dialing peers found there.
// It listens first when Listen has not been called.
func (s *Swarm) Join(ctx context.Context, topic Topic) (*Join, error) {
	if len(s.discovery) == 0 {
		return nil, ErrNoDiscovery
	}
	if err := s.Listen(); err != nil {
		return nil, err
	}
	port := 0
	if tcp, ok := s.Addr().(*net.TCPAddr); ok {
		port = tcp.Port
	}

	jctx, cancel := context.WithCancel(s.rootCtx)
	j := &Join{topic: topic, flushed: make(chan struct{}), cancel: cancel}

	ann := Announcement{Topic: topic, NodeID: s.cfg.NodeID, Port: port}
	for _, d := range s.discovery {
		stop, err := d.Announce(ctx, ann)
		if err != nil {
			cancel()
			j.stopAnnouncements()
			return nil, err
		}
		j.stops = append(j.stops, stop)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		cancel()
		j.stopAnnouncements()
		return nil, ErrClosed
	}
	s.joins = append(s.joins, j)
	s.mu.Unlock()

	found := make(chan Endpoint, 16)
	for _, d := range s.discovery {
		s.wg.Add(1)
		go func(d Discovery) {
			defer s.wg.Done()
			if err := d.Browse(jctx, topic, found); err != nil {
				log.Warn().Err(err).Msg("swarm.Join browse failed")
			}
		}(d)
	}
	s.wg.Add(1)
	go s.consume(jctx, found)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		t := time.NewTimer(s.cfg.BrowseWindow)
		defer t.Stop()
		select {
		case <-t.C:
		case <-jctx.Done():
			return
		}
		close(j.flushed)
		log.Info().Str("topic", topic.String()).Msg("swarm.Join flushed")
	}()
	return j, nil
}

func (s *Swarm) consume(ctx context.Context, found <-chan Endpoint) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case ep := <-found:
			s.maybeDial(ctx, ep)
		}
	}
}

// maybeDial dials ep unless it is this node, it will dial us, or a dial
// to it is already in flight or done. Between two nodes that both know
// each other's id only the lower id dials.
func (s *Swarm) maybeDial(ctx context.Context, ep Endpoint) {
	if ep.NodeID == s.cfg.NodeID {
		return
	}
	if ep.NodeID != "" && s.cfg.NodeID > ep.NodeID {
		return
	}
	key := ep.NodeID
	if key == "" {
		key = ep.Addr
	}
	s.mu.Lock()
	if _, ok := s.dialing[key]; ok || s.closed {
		s.mu.Unlock()
		return
	}
	s.dialing[key] = struct{}{}
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		if !s.dial(ctx, ep) {
			s.mu.Lock()
			delete(s.dialing, key)
			s.mu.Unlock()
		}
	}()
}

func (s *Swarm) dial(ctx context.Context, ep Endpoint) bool {
	d := net.Dialer{Timeout: s.cfg.DialTimeout}
	for attempt := 1; attempt <= s.cfg.MaxDialAttempts; attempt++ {
		conn, err := d.DialContext(ctx, "tcp", ep.Addr)
		if err == nil {
			log.Info().Str("remote", ep.Addr).Str("node", ep.NodeID).Int("attempt", attempt).Msg("swarm.dial connected")
			s.handler(conn)
			return true
		}
		if ctx.Err() != nil {
			return false
		}
		log.Warn().Err(err).Str("remote", ep.Addr).Int("attempt", attempt).Msg("swarm.dial failed")

		s.mu.Lock()
		delay := NextBackoffDelay(s.cfg.Backoff, attempt, s.rng)
		s.mu.Unlock()
		t := time.NewTimer(delay)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return false
		}
	}
	return false
}

// Close leaves every topic, stops listening and waits for background work.
func (s *Swarm) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	ln := s.ln
	joins := s.joins
	s.joins = nil
	s.mu.Unlock()

	s.rootStop()
	for _, j := range joins {
		j.Leave()
	}
	var err error
	if ln != nil {
		err = ln.Close()
	}
	s.wg.Wait()
	return err
}

// Join is one topic membership.
type Join struct {
	topic   Topic
	flushed chan struct{}
	cancel  context.CancelFunc

	once  sync.Once
	stops []func()
}

func (j *Join) Topic() Topic { return j.topic }

// Flushed is closed once the announcement is registered and the first
// browse window has passed.
func (j *Join) Flushed() <-chan struct{} { return j.flushed }

// Leave withdraws the announcement and stops browsing.
func (j *Join) Leave() {
	j.once.Do(func() {
		j.cancel()
		j.stopAnnouncements()
	})
}

func (j *Join) stopAnnouncements() {
	for _, stop := range j.stops {
		if stop != nil {
			stop()
		}
	}
	j.stops = nil
}
