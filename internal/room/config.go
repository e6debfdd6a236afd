package room

import (
	"time"

	"github.com/danmuck/peerboard/internal/api"
	"github.com/danmuck/peerboard/internal/links"
	"github.com/danmuck/peerboard/internal/swarm"
)

// ServiceConfig configures one board room process.
type ServiceConfig struct {
	Name              string
	HeartbeatInterval time.Duration
	LoopDepth         int
	// ServeAPI starts the HTTP surface on API.Addr during Run.
	ServeAPI bool
	API      api.Config
	Links    links.Config
	Swarm    swarm.Config
}

func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		HeartbeatInterval: 10 * time.Second,
		LoopDepth:         256,
		ServeAPI:          true,
		API:               api.DefaultConfig(),
		Links:             links.DefaultConfig(),
		Swarm:             swarm.DefaultConfig(),
	}
}
