package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/danmuck/peerboard/internal/config"
	"github.com/danmuck/peerboard/internal/room"
)

// boardctl config.toml key mapping to room runtime settings.
type fileConfig struct {
	Name            string   `toml:"name"`
	ListenAddr      string   `toml:"listen_addr"`
	APIAddr         string   `toml:"api_addr"`
	CorsOrigins     []string `toml:"cors_origins"`
	APIToken        string   `toml:"api_token"`
	ServiceName     string   `toml:"service_name"`
	Domain          string   `toml:"domain"`
	MDNS            bool     `toml:"mdns"`
	Peers           []string `toml:"peers"`
	BrowseWindow    string   `toml:"browse_window"`
	DialTimeout     string   `toml:"dial_timeout"`
	WriteTimeout    string   `toml:"write_timeout"`
	MaxDialAttempts int      `toml:"max_dial_attempts"`
	Heartbeat       string   `toml:"heartbeat"`
}

// boardctl loader for TOML config with default overlay.
func loadServiceConfig(path string) (room.ServiceConfig, error) {
	cfg := room.DefaultServiceConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return room.ServiceConfig{}, fmt.Errorf("load board config: %w", err)
	}

	if meta.IsDefined("name") {
		cfg.Name = strings.TrimSpace(raw.Name)
	}
	if meta.IsDefined("listen_addr") {
		cfg.Swarm.ListenAddr = strings.TrimSpace(raw.ListenAddr)
	}
	if meta.IsDefined("api_addr") {
		addr := strings.TrimSpace(raw.APIAddr)
		cfg.API.Addr = addr
		cfg.ServeAPI = addr != ""
	}
	if meta.IsDefined("cors_origins") {
		cfg.API.CORSOrigins = normalizeList(raw.CorsOrigins)
	}
	if meta.IsDefined("api_token") {
		cfg.API.Token = strings.TrimSpace(raw.APIToken)
	}
	if meta.IsDefined("service_name") {
		cfg.Swarm.ServiceName = strings.TrimSpace(raw.ServiceName)
	}
	if meta.IsDefined("domain") {
		cfg.Swarm.Domain = strings.TrimSpace(raw.Domain)
	}
	if meta.IsDefined("mdns") {
		cfg.Swarm.MDNS = raw.MDNS
	}
	if meta.IsDefined("peers") {
		cfg.Swarm.Peers = normalizeList(raw.Peers)
	}
	if meta.IsDefined("max_dial_attempts") {
		if raw.MaxDialAttempts < 0 {
			return room.ServiceConfig{}, fmt.Errorf("max_dial_attempts must not be negative: %d", raw.MaxDialAttempts)
		}
		cfg.Swarm.MaxDialAttempts = raw.MaxDialAttempts
	}

	durations := []struct {
		key string
		raw string
		dst *time.Duration
	}{
		{"browse_window", raw.BrowseWindow, &cfg.Swarm.BrowseWindow},
		{"dial_timeout", raw.DialTimeout, &cfg.Swarm.DialTimeout},
		{"write_timeout", raw.WriteTimeout, &cfg.Links.WriteTimeout},
		{"heartbeat", raw.Heartbeat, &cfg.HeartbeatInterval},
	}
	for _, d := range durations {
		if !meta.IsDefined(d.key) {
			continue
		}
		v, err := time.ParseDuration(strings.TrimSpace(d.raw))
		if err != nil {
			return room.ServiceConfig{}, fmt.Errorf("parse %s: %w", d.key, err)
		}
		if v <= 0 {
			return room.ServiceConfig{}, fmt.Errorf("%s must be positive: %s", d.key, v)
		}
		*d.dst = v
	}

	return cfg, nil
}

// validateServiceConfig checks resolved settings with the same rules
// configgen applies to config files.
func validateServiceConfig(cfg room.ServiceConfig) error {
	mdns := cfg.Swarm.MDNS
	sw := cfg.Swarm.WithDefaults()
	board := config.BoardConfig{
		Name:            cfg.Name,
		ListenAddr:      sw.ListenAddr,
		CorsOrigins:     cfg.API.CORSOrigins,
		APIToken:        cfg.API.Token,
		ServiceName:     sw.ServiceName,
		Domain:          sw.Domain,
		MDNS:            &mdns,
		Peers:           cfg.Swarm.Peers,
		BrowseWindow:    durationText(cfg.Swarm.BrowseWindow),
		DialTimeout:     durationText(cfg.Swarm.DialTimeout),
		WriteTimeout:    durationText(cfg.Links.WriteTimeout),
		MaxDialAttempts: cfg.Swarm.MaxDialAttempts,
		Heartbeat:       durationText(cfg.HeartbeatInterval),
	}
	if cfg.ServeAPI {
		board.APIAddr = cfg.API.Addr
	}
	if err := config.ValidateBoardConfig(board); err != nil {
		return fmt.Errorf("boardctl config invalid: %w", err)
	}
	return nil
}

// durationText leaves unset durations empty so their defaults apply.
func durationText(d time.Duration) string {
	if d == 0 {
		return ""
	}
	return d.String()
}

func normalizeList(in []string) []string {
	if len(in) == 0 {
		return []string{}
	}
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}
