package links

import (
	"time"

	"github.com/danmuck/peerboard/internal/protocol/frame"
)

// Config bounds per-link resource use.
type Config struct {
	WriteTimeout time.Duration
	Limits       frame.Limits
}

func DefaultConfig() Config {
	return Config{
		WriteTimeout: 5 * time.Second,
		Limits:       frame.DefaultLimits(),
	}
}

// WithDefaults fills zero fields from DefaultConfig.
func (c Config) WithDefaults() Config {
	d := DefaultConfig()
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = d.WriteTimeout
	}
	if c.Limits.MaxPayloadBytes == 0 {
		c.Limits = d.Limits
	}
	return c
}
