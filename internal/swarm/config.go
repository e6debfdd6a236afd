package swarm

import "time"

const (
	DefaultServiceName = "_peerboard._tcp"
	DefaultDomain      = "local."
)

// Config defines listener, discovery and dial behavior.
type Config struct {
	// NodeID identifies this process in announcements. Generated when empty.
	NodeID          string
	ListenAddr      string
	ServiceName     string
	Domain          string
	BrowseWindow    time.Duration
	DialTimeout     time.Duration
	MaxDialAttempts int
	Backoff         BackoffConfig
	MDNS            bool
	Peers           []string
}

func DefaultConfig() Config {
	return Config{
		ListenAddr:      ":0",
		ServiceName:     DefaultServiceName,
		Domain:          DefaultDomain,
		BrowseWindow:    2 * time.Second,
		DialTimeout:     5 * time.Second,
		MaxDialAttempts: 5,
		Backoff: BackoffConfig{
			InitialDelay: 250 * time.Millisecond,
			Multiplier:   2.0,
			MaxDelay:     5 * time.Second,
			Jitter:       true,
		},
		MDNS: true,
	}
}

// WithDefaults fills zero fields from DefaultConfig. MDNS and Peers are
// taken as given.
func (c Config) WithDefaults() Config {
	d := DefaultConfig()
	if c.ListenAddr == "" {
		c.ListenAddr = d.ListenAddr
	}
	if c.ServiceName == "" {
		c.ServiceName = d.ServiceName
	}
	if c.Domain == "" {
		c.Domain = d.Domain
	}
	if c.BrowseWindow <= 0 {
		c.BrowseWindow = d.BrowseWindow
	}
	if c.DialTimeout <= 0 {
		c.DialTimeout = d.DialTimeout
	}
	if c.MaxDialAttempts <= 0 {
		c.MaxDialAttempts = d.MaxDialAttempts
	}
	if c.Backoff.InitialDelay <= 0 {
		c.Backoff = d.Backoff
	}
	return c
}
