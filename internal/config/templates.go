package config

import (
	"fmt"
	"os"
	"strings"
)

func Template(kind string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "board":
		return boardTemplate, nil
	default:
		return "", fmt.Errorf("unknown config kind: %s", kind)
	}
}

func WriteTemplate(path, kind string, overwrite bool) error {
	template, err := Template(kind)
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(template), 0o600)
}

const boardTemplate = `name = "alice"
listen_addr = ":0"
api_addr = "127.0.0.1:7410"
cors_origins = ["http://localhost:3000"]
api_token = ""

service_name = "_peerboard._tcp"
domain = "local."
mdns = true
peers = []

browse_window = "2s"
dial_timeout = "5s"
write_timeout = "5s"
max_dial_attempts = 5
heartbeat = "10s"
`
