// Moodloop - Affect-Aware Content Recommendation Service
// Copyright 2026 M. Laurel (moodloop)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/moodloop/moodloop

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadFrom("")
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}

	if cfg.Server.Addr() != "0.0.0.0:8080" {
		t.Errorf("Addr() = %q", cfg.Server.Addr())
	}
	if cfg.Learning.Alpha != 0.10 || cfg.Learning.Gamma != 0.95 {
		t.Errorf("learning defaults = %+v", cfg.Learning)
	}
	if cfg.Exploration.Initial != 0.30 || cfg.Exploration.Min != 0.05 || cfg.Exploration.Decay != 0.995 {
		t.Errorf("exploration defaults = %+v", cfg.Exploration)
	}
	if cfg.Reward.ProximityThreshold != 0.30 {
		t.Errorf("proximity threshold = %v", cfg.Reward.ProximityThreshold)
	}
	if cfg.Experience.RingSize != 1000 {
		t.Errorf("ring size = %d", cfg.Experience.RingSize)
	}
	if cfg.Session.TTL() != 24*time.Hour {
		t.Errorf("session ttl = %v", cfg.Session.TTL())
	}
	if cfg.API.RecommendPerMinute != 60 || cfg.API.AnalyzePerMinute != 30 || cfg.API.ReadPerMinute != 1000 {
		t.Errorf("rate limits = %+v", cfg.API)
	}
	if cfg.Engine.DefaultLimit != 5 || cfg.Engine.MaxLimit != 20 {
		t.Errorf("engine limits = %+v", cfg.Engine)
	}
}

func TestLoadYAMLOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := strings.Join([]string{
		"server:",
		"  port: 9090",
		"learning:",
		"  alpha: 0.2",
		"session:",
		"  ttl_seconds: 600",
	}, "\n")
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Learning.Alpha != 0.2 {
		t.Errorf("alpha = %v, want 0.2", cfg.Learning.Alpha)
	}
	if cfg.Session.TTL() != 10*time.Minute {
		t.Errorf("ttl = %v, want 10m", cfg.Session.TTL())
	}
	// Untouched sections keep their defaults.
	if cfg.Learning.Gamma != 0.95 {
		t.Errorf("gamma = %v, want default", cfg.Learning.Gamma)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("Q_LEARNING_RATE", "0.25")
	t.Setenv("Q_DISCOUNT", "0.9")
	t.Setenv("EPSILON_INITIAL", "0.5")
	t.Setenv("SESSION_TTL_SECONDS", "3600")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("DISABLE_RATE_LIMIT", "true")

	cfg, err := LoadFrom("")
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.Learning.Alpha != 0.25 || cfg.Learning.Gamma != 0.9 {
		t.Errorf("learning = %+v", cfg.Learning)
	}
	if cfg.Exploration.Initial != 0.5 {
		t.Errorf("epsilon initial = %v", cfg.Exploration.Initial)
	}
	if cfg.Session.TTL() != time.Hour {
		t.Errorf("ttl = %v, want 1h", cfg.Session.TTL())
	}
	want := []string{"https://a.example", "https://b.example"}
	if len(cfg.API.CORSOrigins) != 2 || cfg.API.CORSOrigins[0] != want[0] || cfg.API.CORSOrigins[1] != want[1] {
		t.Errorf("cors origins = %v, want %v", cfg.API.CORSOrigins, want)
	}
	if !cfg.API.RateLimitDisabled {
		t.Error("rate limit not disabled")
	}
}

func TestEnvOverridesBeatYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: 9090\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("HTTP_PORT", "7070")

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.Server.Port != 7070 {
		t.Errorf("port = %d, want env value 7070", cfg.Server.Port)
	}
}

func TestEnvTransformIgnoresUnmapped(t *testing.T) {
	if got := envTransform("Q_DISCOUNT"); got != "learning.gamma" {
		t.Errorf("Q_DISCOUNT -> %q", got)
	}
	if got := envTransform("HOME"); got != "" {
		t.Errorf("HOME -> %q, want skipped", got)
	}
}

func TestFindConfigFileHonorsConfigPath(t *testing.T) {
	t.Setenv("CONFIG_PATH", "/tmp/custom-moodloop.yaml")
	if got := findConfigFile(); got != "/tmp/custom-moodloop.yaml" {
		t.Errorf("findConfigFile = %q", got)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero port", func(c *Config) { c.Server.Port = 0 }},
		{"alpha above one", func(c *Config) { c.Learning.Alpha = 1.5 }},
		{"gamma at one", func(c *Config) { c.Learning.Gamma = 1.0 }},
		{"epsilon min above initial", func(c *Config) { c.Exploration.Min = 0.8 }},
		{"max limit below default limit", func(c *Config) { c.Engine.MaxLimit = 1 }},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }},
		{"non-http oracle url", func(c *Config) { c.Oracle.BaseURL = "ftp://oracle" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate accepted invalid config")
			}
		})
	}
}

func TestLoadFromMissingFile(t *testing.T) {
	if _, err := LoadFrom(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
