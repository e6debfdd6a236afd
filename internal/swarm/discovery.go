package swarm

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/grandcat/zeroconf"
	"github.com/rs/zerolog/log"
)

const (
	txtTopic = "topic="
	txtNode  = "node="
)

// Announcement is what a joining peer publishes about itself.
type Announcement struct {
	Topic  Topic
	NodeID string
	Port   int
}

// Endpoint is a dialable peer found while browsing. NodeID is empty when
// the source cannot tell.
type Endpoint struct {
	NodeID string
	Addr   string
}

// Discovery finds peers sharing a topic.
type Discovery interface {
	// Announce publishes a until stop is called.
	Announce(ctx context.Context, a Announcement) (stop func(), err error)
	// Browse sends endpoints for topic to found until ctx is done.
	Browse(ctx context.Context, topic Topic, found chan<- Endpoint) error
}

// MDNSDiscovery announces and browses the topic on the local network.
type MDNSDiscovery struct {
	Service string
	Domain  string
}

func NewMDNSDiscovery(service, domain string) *MDNSDiscovery {
	if service == "" {
		service = DefaultServiceName
	}
	if domain == "" {
		domain = DefaultDomain
	}
	return &MDNSDiscovery{Service: service, Domain: domain}
}

func (d *MDNSDiscovery) Announce(_ context.Context, a Announcement) (func(), error) {
	instance := fmt.Sprintf("peerboard-%s", shortID(a.NodeID))
	server, err := zeroconf.Register(
		instance,
		d.Service,
		d.Domain,
		a.Port,
		[]string{txtTopic + a.Topic.String(), txtNode + a.NodeID},
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("swarm: mdns register: %w", err)
	}
	log.Debug().Str("instance", instance).Int("port", a.Port).Msg("swarm.MDNSDiscovery.Announce registered")
	return server.Shutdown, nil
}

func (d *MDNSDiscovery) Browse(ctx context.Context, topic Topic, found chan<- Endpoint) error {
	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return fmt.Errorf("swarm: mdns resolver: %w", err)
	}
	entries := make(chan *zeroconf.ServiceEntry)
	if err := resolver.Browse(ctx, d.Service, d.Domain, entries); err != nil {
		return fmt.Errorf("swarm: mdns browse: %w", err)
	}
	want := topic.String()
	for {
		select {
		case <-ctx.Done():
			return nil
		case entry, ok := <-entries:
			if !ok {
				return nil
			}
			ep, match := endpointFromEntry(entry, want)
			if !match {
				continue
			}
			select {
			case found <- ep:
			case <-ctx.Done():
				return nil
			}
		}
	}
}

func endpointFromEntry(entry *zeroconf.ServiceEntry, topic string) (Endpoint, bool) {
	if entry == nil {
		return Endpoint{}, false
	}
	var gotTopic, node string
	for _, txt := range entry.Text {
		switch {
		case strings.HasPrefix(txt, txtTopic):
			gotTopic = strings.TrimPrefix(txt, txtTopic)
		case strings.HasPrefix(txt, txtNode):
			node = strings.TrimPrefix(txt, txtNode)
		}
	}
	if gotTopic != topic {
		return Endpoint{}, false
	}
	var ip net.IP
	switch {
	case len(entry.AddrIPv4) > 0:
		ip = entry.AddrIPv4[0]
	case len(entry.AddrIPv6) > 0:
		ip = entry.AddrIPv6[0]
	default:
		return Endpoint{}, false
	}
	return Endpoint{
		NodeID: node,
		Addr:   net.JoinHostPort(ip.String(), strconv.Itoa(entry.Port)),
	}, true
}

// StaticDiscovery dials a fixed address list and announces nothing.
type StaticDiscovery struct {
	Addrs []string
}

func (d StaticDiscovery) Announce(context.Context, Announcement) (func(), error) {
	return func() {}, nil
}

func (d StaticDiscovery) Browse(ctx context.Context, _ Topic, found chan<- Endpoint) error {
	for _, addr := range d.Addrs {
		addr = strings.TrimSpace(addr)
		if addr == "" {
			continue
		}
		select {
		case found <- Endpoint{Addr: addr}:
		case <-ctx.Done():
			return nil
		}
	}
	<-ctx.Done()
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
