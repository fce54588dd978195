// Moodloop - Affect-Aware Content Recommendation Service
// Copyright 2026 M. Laurel (moodloop)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/moodloop/moodloop

// Package config loads layered configuration: struct defaults, then an
// optional YAML file, then environment variables. Later layers win.
package config

import (
	"fmt"
	"time"
)

// Config is the full application configuration.
type Config struct {
	Server      ServerConfig      `koanf:"server"`
	Store       StoreConfig       `koanf:"store"`
	Catalog     CatalogConfig     `koanf:"catalog"`
	Oracle      OracleConfig      `koanf:"oracle"`
	Learning    LearningConfig    `koanf:"learning"`
	Exploration ExplorationConfig `koanf:"exploration"`
	Reward      RewardConfig      `koanf:"reward"`
	Experience  ExperienceConfig  `koanf:"experience"`
	Session     SessionConfig     `koanf:"session"`
	Persist     PersistConfig     `koanf:"persist"`
	API         APIConfig         `koanf:"api"`
	Engine      EngineConfig      `koanf:"engine"`
	Logging     LoggingConfig     `koanf:"logging"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port" validate:"gte=1,lte=65535"`
	ReadTimeout     time.Duration `koanf:"read_timeout" validate:"gt=0"`
	WriteTimeout    time.Duration `koanf:"write_timeout" validate:"gt=0"`
	IdleTimeout     time.Duration `koanf:"idle_timeout" validate:"gt=0"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`
}

// Addr returns the host:port listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// StoreConfig configures the BadgerDB store.
type StoreConfig struct {
	// Path is the on-disk location. Ignored when InMemory is set.
	Path string `koanf:"path"`
	// InMemory runs Badger without files.
	InMemory bool `koanf:"in_memory"`
	// GCInterval is the spacing between value-log GC passes.
	GCInterval time.Duration `koanf:"gc_interval" validate:"gt=0"`
}

// CatalogConfig locates the content catalog.
type CatalogConfig struct {
	Path string `koanf:"path" validate:"required"`
}

// OracleConfig configures the emotion analyzer client. An empty BaseURL
// selects the built-in lexicon analyzer.
type OracleConfig struct {
	BaseURL           string        `koanf:"base_url"`
	APIKey            string        `koanf:"api_key"`
	Timeout           time.Duration `koanf:"timeout" validate:"gt=0"`
	RequestsPerSecond float64       `koanf:"requests_per_second" validate:"gte=0"`
}

// LearningConfig holds the Q-update hyperparameters.
type LearningConfig struct {
	// Alpha is the learning rate.
	Alpha float64 `koanf:"alpha" validate:"gt=0,lte=1"`
	// Gamma is the discount factor.
	Gamma float64 `koanf:"gamma" validate:"gte=0,lt=1"`
}

// ExplorationConfig holds the epsilon-greedy schedule.
type ExplorationConfig struct {
	Initial float64 `koanf:"initial" validate:"gte=0,lte=1"`
	Min     float64 `koanf:"min" validate:"gte=0,ltefield=Initial"`
	Decay   float64 `koanf:"decay" validate:"gt=0,lte=1"`
}

// RewardConfig holds the reward-shaping knobs.
type RewardConfig struct {
	ProximityThreshold float64 `koanf:"proximity_threshold" validate:"gt=0"`
}

// ExperienceConfig sizes the per-user experience ring.
type ExperienceConfig struct {
	RingSize int `koanf:"ring_size" validate:"gte=1"`
}

// SessionConfig bounds pending recommend/feedback sessions.
type SessionConfig struct {
	TTLSeconds int `koanf:"ttl_seconds" validate:"gte=1"`
}

// TTL returns the session lifetime as a duration.
func (s SessionConfig) TTL() time.Duration {
	return time.Duration(s.TTLSeconds) * time.Second
}

// PersistConfig configures the debounced persister.
type PersistConfig struct {
	Interval time.Duration `koanf:"interval" validate:"gt=0"`
}

// APIConfig holds the HTTP surface knobs.
type APIConfig struct {
	CORSOrigins        []string `koanf:"cors_origins"`
	RecommendPerMinute int      `koanf:"recommend_per_minute" validate:"gte=0"`
	AnalyzePerMinute   int      `koanf:"analyze_per_minute" validate:"gte=0"`
	ReadPerMinute      int      `koanf:"read_per_minute" validate:"gte=0"`
	RateLimitDisabled  bool     `koanf:"rate_limit_disabled"`
}

// EngineConfig holds the recommendation engine knobs.
type EngineConfig struct {
	DefaultLimit        int           `koanf:"default_limit" validate:"gte=1"`
	MaxLimit            int           `koanf:"max_limit" validate:"gtefield=DefaultLimit"`
	CandidateMultiplier int           `koanf:"candidate_multiplier" validate:"gte=1"`
	ExplorationBonus    float64       `koanf:"exploration_bonus" validate:"gte=0"`
	CacheTTL            time.Duration `koanf:"cache_ttl" validate:"gte=0"`
}

// LoggingConfig configures the global logger.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error fatal panic disabled"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// defaultConfig is the bottom layer of the load.
func defaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Store: StoreConfig{
			Path:       "./data/badger",
			GCInterval: 5 * time.Minute,
		},
		Catalog: CatalogConfig{
			Path: "./catalog.json",
		},
		Oracle: OracleConfig{
			Timeout:           10 * time.Second,
			RequestsPerSecond: 5,
		},
		Learning: LearningConfig{
			Alpha: 0.10,
			Gamma: 0.95,
		},
		Exploration: ExplorationConfig{
			Initial: 0.30,
			Min:     0.05,
			Decay:   0.995,
		},
		Reward: RewardConfig{
			ProximityThreshold: 0.30,
		},
		Experience: ExperienceConfig{
			RingSize: 1000,
		},
		Session: SessionConfig{
			TTLSeconds: 86400,
		},
		Persist: PersistConfig{
			Interval: time.Second,
		},
		API: APIConfig{
			RecommendPerMinute: 60,
			AnalyzePerMinute:   30,
			ReadPerMinute:      1000,
		},
		Engine: EngineConfig{
			DefaultLimit:        5,
			MaxLimit:            20,
			CandidateMultiplier: 3,
			ExplorationBonus:    0.20,
			CacheTTL:            500 * time.Millisecond,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Default returns the built-in configuration, useful for tests.
func Default() Config {
	return defaultConfig()
}
