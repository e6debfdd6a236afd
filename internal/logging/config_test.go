package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]zerolog.Level{
		"trace":    zerolog.TraceLevel,
		" DEBUG ":  zerolog.DebugLevel,
		"warning":  zerolog.WarnLevel,
		"error":    zerolog.ErrorLevel,
		"off":      zerolog.Disabled,
		"info":     zerolog.InfoLevel,
	}
	for raw, want := range cases {
		got, ok := parseLevel(raw)
		if !ok || got != want {
			t.Fatalf("parseLevel(%q) = %v,%v want %v", raw, got, ok, want)
		}
	}
	if _, ok := parseLevel("loud"); ok {
		t.Fatalf("expected unknown level to be rejected")
	}
	if _, ok := parseLevel(""); ok {
		t.Fatalf("expected empty level to be ignored")
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv(EnvLogLevel, "error")
	t.Setenv(EnvLogTimestamp, "false")
	t.Setenv(EnvLogNoColor, "1")
	t.Setenv(EnvLogBypass, "nope")

	cfg := defaultConfig(ProfileRuntime)
	applyEnvOverrides(&cfg)
	if cfg.Level != zerolog.ErrorLevel {
		t.Fatalf("unexpected level: %v", cfg.Level)
	}
	if cfg.Timestamp {
		t.Fatalf("expected timestamp disabled")
	}
	if !cfg.NoColor {
		t.Fatalf("expected no color")
	}
	if cfg.Bypass {
		t.Fatalf("invalid bool must not enable bypass")
	}
}

func TestApplyBypassWritesJSON(t *testing.T) {
	prev := log.Logger
	prevLevel := zerolog.GlobalLevel()
	defer func() {
		log.Logger = prev
		zerolog.SetGlobalLevel(prevLevel)
	}()

	var buf bytes.Buffer
	Apply(Config{Level: zerolog.InfoLevel, Bypass: true, Out: &buf})
	log.Info().Str("peer", "p1").Msg("links.attach")
	log.Debug().Msg("hidden")

	out := buf.String()
	if !strings.Contains(out, `"peer":"p1"`) || !strings.Contains(out, `"message":"links.attach"`) {
		t.Fatalf("unexpected output: %q", out)
	}
	if strings.Contains(out, "hidden") {
		t.Fatalf("debug line should be filtered: %q", out)
	}
}

func TestApplyConsoleWithoutTimestamp(t *testing.T) {
	prev := log.Logger
	prevLevel := zerolog.GlobalLevel()
	defer func() {
		log.Logger = prev
		zerolog.SetGlobalLevel(prevLevel)
	}()

	var buf bytes.Buffer
	Apply(Config{Level: zerolog.InfoLevel, NoColor: true, Out: &buf})
	log.Info().Str("peer", "p1").Msg("links.attach")

	out := buf.String()
	if strings.Contains(out, "<nil>") {
		t.Fatalf("time column printed without a timestamp: %q", out)
	}
	if !strings.HasPrefix(out, "INF") || !strings.Contains(out, "peer=p1") {
		t.Fatalf("unexpected output: %q", out)
	}
}
