package config

import (
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/danmuck/peerboard/internal/swarm"
)

// BoardConfig is the on-disk shape of a board peer config.
type BoardConfig struct {
	Name            string   `toml:"name"`
	ListenAddr      string   `toml:"listen_addr"`
	APIAddr         string   `toml:"api_addr"`
	CorsOrigins     []string `toml:"cors_origins"`
	APIToken        string   `toml:"api_token"`
	ServiceName     string   `toml:"service_name"`
	Domain          string   `toml:"domain"`
	MDNS            *bool    `toml:"mdns"`
	Peers           []string `toml:"peers"`
	BrowseWindow    string   `toml:"browse_window"`
	DialTimeout     string   `toml:"dial_timeout"`
	WriteTimeout    string   `toml:"write_timeout"`
	MaxDialAttempts int      `toml:"max_dial_attempts"`
	Heartbeat       string   `toml:"heartbeat"`
}

func LoadBoardConfig(path string) (BoardConfig, error) {
	var cfg BoardConfig
	if err := loadToml(path, &cfg); err != nil {
		return BoardConfig{}, err
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":0"
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = swarm.DefaultServiceName
	}
	if cfg.Domain == "" {
		cfg.Domain = swarm.DefaultDomain
	}
	if err := ValidateBoardConfig(cfg); err != nil {
		return BoardConfig{}, err
	}
	return cfg, nil
}

func loadToml(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if err := toml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	return nil
}

func ValidateBoardConfig(cfg BoardConfig) error {
	if _, _, err := net.SplitHostPort(strings.TrimSpace(cfg.ListenAddr)); err != nil {
		return fmt.Errorf("board config listen_addr invalid: %w", err)
	}
	if api := strings.TrimSpace(cfg.APIAddr); api != "" {
		if _, _, err := net.SplitHostPort(api); err != nil {
			return fmt.Errorf("board config api_addr invalid: %w", err)
		}
	}
	if !strings.HasPrefix(cfg.ServiceName, "_") || !strings.Contains(cfg.ServiceName, "._") {
		return fmt.Errorf("board config service_name must look like _name._tcp: %q", cfg.ServiceName)
	}
	for key, raw := range map[string]string{
		"browse_window": cfg.BrowseWindow,
		"dial_timeout":  cfg.DialTimeout,
		"write_timeout": cfg.WriteTimeout,
		"heartbeat":     cfg.Heartbeat,
	} {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		d, err := time.ParseDuration(strings.TrimSpace(raw))
		if err != nil {
			return fmt.Errorf("board config %s invalid: %w", key, err)
		}
		if d <= 0 {
			return fmt.Errorf("board config %s must be positive", key)
		}
	}
	if cfg.MaxDialAttempts < 0 {
		return fmt.Errorf("board config max_dial_attempts must not be negative")
	}
	for i, peer := range cfg.Peers {
		if _, _, err := net.SplitHostPort(strings.TrimSpace(peer)); err != nil {
			return fmt.Errorf("peer[%d] invalid: %w", i, err)
		}
	}
	mdns := cfg.MDNS == nil || *cfg.MDNS
	if !mdns && len(cfg.Peers) == 0 {
		return fmt.Errorf("board config needs mdns or at least one peer")
	}
	return nil
}
