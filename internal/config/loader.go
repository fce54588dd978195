// Moodloop - Affect-Aware Content Recommendation Service
// Copyright 2026 M. Laurel (moodloop)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/moodloop/moodloop

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/moodloop/moodloop/internal/validation"
)

// envMappings is the allowlist of environment variables. Anything not in
// this table is ignored, so host environments with unrelated variables do
// not bleed into the configuration.
var envMappings = map[string]string{
	"HTTP_HOST":        "server.host",
	"HTTP_PORT":        "server.port",
	"SHUTDOWN_TIMEOUT": "server.shutdown_timeout",

	"BADGER_PATH":        "store.path",
	"BADGER_IN_MEMORY":   "store.in_memory",
	"BADGER_GC_INTERVAL": "store.gc_interval",

	"CATALOG_PATH": "catalog.path",

	"ORACLE_URL":     "oracle.base_url",
	"ORACLE_API_KEY": "oracle.api_key",
	"ORACLE_TIMEOUT": "oracle.timeout",
	"ORACLE_RPS":     "oracle.requests_per_second",

	"Q_LEARNING_RATE": "learning.alpha",
	"Q_DISCOUNT":      "learning.gamma",

	"EPSILON_INITIAL": "exploration.initial",
	"EPSILON_MIN":     "exploration.min",
	"EPSILON_DECAY":   "exploration.decay",

	"REWARD_PROXIMITY_THRESHOLD": "reward.proximity_threshold",
	"EXPERIENCE_RING":            "experience.ring_size",
	"SESSION_TTL_SECONDS":        "session.ttl_seconds",
	"PERSIST_INTERVAL":           "persist.interval",

	"CORS_ORIGINS":         "api.cors_origins",
	"RATE_LIMIT_RECOMMEND": "api.recommend_per_minute",
	"RATE_LIMIT_ANALYZE":   "api.analyze_per_minute",
	"RATE_LIMIT_READ":      "api.read_per_minute",
	"DISABLE_RATE_LIMIT":   "api.rate_limit_disabled",

	"LOG_LEVEL":  "logging.level",
	"LOG_FORMAT": "logging.format",
	"LOG_CALLER": "logging.caller",
}

// sliceFields are koanf paths whose env values are comma-separated lists.
var sliceFields = []string{
	"api.cors_origins",
}

// envTransform maps an environment variable name to its koanf path. An
// empty return tells the env provider to skip the variable.
func envTransform(name string) string {
	return envMappings[name]
}

// Load reads configuration from defaults, an optional discovered YAML file
// and the environment, then validates the result.
func Load() (*Config, error) {
	return LoadFrom(findConfigFile())
}

// LoadFrom is Load with an explicit file path. An empty path skips the
// file layer.
func LoadFrom(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	processSliceFields(k)

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// processSliceFields splits comma-separated env strings into the slices
// the config struct expects.
func processSliceFields(k *koanf.Koanf) {
	for _, path := range sliceFields {
		raw, ok := k.Get(path).(string)
		if !ok {
			continue
		}
		parts := strings.Split(raw, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		_ = k.Set(path, out)
	}
}

// findConfigFile returns the first config file that exists: CONFIG_PATH if
// set, then the conventional locations.
func findConfigFile() string {
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		return path
	}
	candidates := []string{
		"config.yaml",
		"config.yml",
		"/etc/moodloop/config.yaml",
	}
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c
		}
	}
	return ""
}

// Validate checks field constraints and the handful of relations between
// sections.
func (c *Config) Validate() error {
	if verr := validation.ValidateStruct(c); verr != nil {
		return fmt.Errorf("config: %s", verr.Error())
	}
	if c.Oracle.BaseURL != "" && !strings.HasPrefix(c.Oracle.BaseURL, "http://") &&
		!strings.HasPrefix(c.Oracle.BaseURL, "https://") {
		return fmt.Errorf("config: oracle.base_url must be an http(s) URL, got %q", c.Oracle.BaseURL)
	}
	return nil
}
