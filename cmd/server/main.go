// Moodloop - Affect-Aware Content Recommendation Service
// Copyright 2026 M. Laurel (moodloop)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/moodloop/moodloop

// Package main is the entry point for the Moodloop server.
//
// Moodloop recommends content against a user's emotional state and learns
// from feedback with per-user Q-learning. The server initializes components
// in the following order:
//
//  1. Configuration: layered load via Koanf v2 (defaults, YAML, environment)
//  2. Store: BadgerDB for Q-tables, exploration state, experiences, sessions
//  3. Catalog: content items embedded into the in-memory vector index
//  4. Oracle: emotion analyzer client (remote HTTP or built-in lexicon)
//  5. Engine: recommendation engine wiring policy, reward and sessions
//  6. HTTP server: REST API under /api/v1 with Prometheus metrics
//
// All long-running pieces run under a Suture supervisor tree with two
// layers: data (persister, session sweeper, badger GC) and api (HTTP
// server).
//
// # Configuration
//
// Highest priority wins:
//   - Environment variables (Q_LEARNING_RATE, EPSILON_INITIAL, ...)
//   - Config file (config.yaml, or CONFIG_PATH)
//   - Built-in defaults
//
// # Signal Handling
//
// SIGINT and SIGTERM trigger graceful shutdown: the HTTP server drains
// in-flight requests, the persister flushes pending learning state, and
// the store closes last.
//
// # Example Usage
//
//	export CATALOG_PATH=./catalog.json
//	export BADGER_PATH=/data/moodloop
//	./moodloop
//
// With a remote emotion analyzer:
//
//	export ORACLE_URL=https://oracle.internal
//	export ORACLE_API_KEY=your-api-key
//	./moodloop
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/moodloop/moodloop/internal/api"
	"github.com/moodloop/moodloop/internal/config"
	"github.com/moodloop/moodloop/internal/embed"
	"github.com/moodloop/moodloop/internal/experience"
	"github.com/moodloop/moodloop/internal/logging"
	"github.com/moodloop/moodloop/internal/metrics"
	"github.com/moodloop/moodloop/internal/oracle"
	"github.com/moodloop/moodloop/internal/policy"
	"github.com/moodloop/moodloop/internal/profile"
	"github.com/moodloop/moodloop/internal/recommend"
	"github.com/moodloop/moodloop/internal/reward"
	"github.com/moodloop/moodloop/internal/session"
	"github.com/moodloop/moodloop/internal/store"
	"github.com/moodloop/moodloop/internal/supervisor"
	"github.com/moodloop/moodloop/internal/supervisor/services"
	"github.com/moodloop/moodloop/internal/vecindex"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Default logger; config is not available yet.
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})
	logger := logging.Logger()

	logging.Info().
		Str("version", version).
		Str("addr", cfg.Server.Addr()).
		Str("catalog", cfg.Catalog.Path).
		Bool("in_memory_store", cfg.Store.InMemory).
		Msg("Starting Moodloop")
	metrics.SetAppInfo(version)

	st, err := store.Open(store.Options{
		Path:     cfg.Store.Path,
		InMemory: cfg.Store.InMemory,
	}, logger)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open store")
	}
	defer func() {
		if err := st.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing store")
		}
	}()

	persister := store.NewPersister(cfg.Persist.Interval, logger)

	// Learning state.
	qstore := policy.NewQStore(st, persister, logger)
	explore := policy.NewExplorationController(policy.ExplorationParams{
		Initial: cfg.Exploration.Initial,
		Min:     cfg.Exploration.Min,
		Decay:   cfg.Exploration.Decay,
	}, st, persister, logger)
	rewards := reward.NewCalculator(reward.Params{
		ProximityThreshold: cfg.Reward.ProximityThreshold,
	})
	expLog := experience.NewLog(cfg.Experience.RingSize, st, persister, logger)
	sessions := session.NewStore(cfg.Session.TTL(), st, logger)

	// Catalog and retrieval.
	idx := vecindex.New()
	codec := embed.NewCodec()
	profiler := profile.NewProfiler(idx, codec, logger)

	items, err := profile.LoadCatalogFile(cfg.Catalog.Path)
	if err != nil {
		logging.Warn().Err(err).Str("path", cfg.Catalog.Path).
			Msg("Catalog not loaded; starting empty, reload via POST /api/v1/catalog/reload")
	} else if err := profiler.Load(items); err != nil {
		logging.Fatal().Err(err).Msg("Failed to load catalog")
	} else {
		metrics.CatalogItems.Set(float64(len(items)))
		logging.Info().Int("items", len(items)).Msg("Catalog loaded")
	}

	var oracleClient oracle.Client
	if cfg.Oracle.BaseURL != "" {
		oracleClient = oracle.NewHTTPClient(oracle.HTTPConfig{
			BaseURL:           cfg.Oracle.BaseURL,
			APIKey:            cfg.Oracle.APIKey,
			Timeout:           cfg.Oracle.Timeout,
			RequestsPerSecond: cfg.Oracle.RequestsPerSecond,
		}, logger)
		logging.Info().Str("oracle_url", cfg.Oracle.BaseURL).Msg("Remote emotion oracle enabled")
	} else {
		oracleClient = oracle.NewStaticClient()
		logging.Info().Msg("Built-in lexicon analyzer enabled (ORACLE_URL not set)")
	}

	engine := recommend.NewEngine(recommend.Config{
		DefaultLimit:        cfg.Engine.DefaultLimit,
		MaxLimit:            cfg.Engine.MaxLimit,
		CandidateMultiplier: cfg.Engine.CandidateMultiplier,
		ExplorationBonus:    cfg.Engine.ExplorationBonus,
		CacheTTL:            cfg.Engine.CacheTTL,
		Learning: policy.LearningParams{
			Alpha: cfg.Learning.Alpha,
			Gamma: cfg.Learning.Gamma,
		},
	}, idx, profiler, codec, qstore, explore, rewards, expLog, sessions, logger)

	handler := api.NewHandler(engine, oracleClient, profiler, st, cfg.Catalog.Path, logger)
	router := api.NewRouter(handler, api.RouterConfig{
		CORSAllowedOrigins: cfg.API.CORSOrigins,
		RecommendPerMinute: cfg.API.RecommendPerMinute,
		AnalyzePerMinute:   cfg.API.AnalyzePerMinute,
		ReadPerMinute:      cfg.API.ReadPerMinute,
		RateLimitDisabled:  cfg.API.RateLimitDisabled,
	})
	if cfg.API.RateLimitDisabled {
		logging.Warn().Msg("Rate limiting is DISABLED (DISABLE_RATE_LIMIT=true)")
	}

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	tree.AddDataService(services.NewLoopService("persister", persister.Serve))
	tree.AddDataService(services.NewLoopService("session-sweeper", sessions.Serve))
	if !cfg.Store.InMemory {
		tree.AddDataService(services.NewTickerService("badger-gc", cfg.Store.GCInterval, st.RunGC))
	}
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	// Persister's Serve already flushed on cancel; one more pass covers
	// saves marked during shutdown.
	persister.Flush()

	logging.Info().Msg("Moodloop stopped gracefully")
}
