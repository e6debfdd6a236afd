package api

// Config configures the local HTTP surface.
type Config struct {
	Addr        string
	NodeName    string
	CORSOrigins []string
	// Token, when set, is required as a bearer token on mutating routes.
	Token string
}

func DefaultConfig() Config {
	return Config{
		Addr:        "127.0.0.1:7410",
		NodeName:    "peerboard",
		CORSOrigins: []string{"http://localhost:3000"},
	}
}

func (c Config) WithDefaults() Config {
	d := DefaultConfig()
	if c.NodeName == "" {
		c.NodeName = d.NodeName
	}
	if len(c.CORSOrigins) == 0 {
		c.CORSOrigins = d.CORSOrigins
	}
	return c
}
