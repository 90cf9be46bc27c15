package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/JohnCCarter/crypto-bot-dashboard-nexus-sub001/internal/api"
	"github.com/JohnCCarter/crypto-bot-dashboard-nexus-sub001/internal/config"
	"github.com/JohnCCarter/crypto-bot-dashboard-nexus-sub001/internal/coordinator"
	"github.com/JohnCCarter/crypto-bot-dashboard-nexus-sub001/internal/model"
	"github.com/JohnCCarter/crypto-bot-dashboard-nexus-sub001/internal/push"
	"github.com/JohnCCarter/crypto-bot-dashboard-nexus-sub001/internal/scheduler"
	"github.com/JohnCCarter/crypto-bot-dashboard-nexus-sub001/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/syncd.local.yaml", "path to config file")
	healthAddr := flag.String("health", ":8080", "health server listen address")
	flag.Parse()

	// Set up structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	logger.Info("starting syncd",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
	)

	// Load configuration
	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Info("configuration loaded",
		"instance_id", cfg.Instance.ID,
		"symbol", cfg.Instance.Symbol,
		"api_url", cfg.API.RestURL,
		"push_enabled", cfg.Push.PushEnabled(),
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Create API client for the pull channel
	apiClient := api.NewClient(
		cfg.API.RestURL,
		cfg.API.APIKey,
		api.WithLogger(logger),
		api.WithTimeout(cfg.API.Timeout),
		api.WithRetries(cfg.API.MaxRetries, time.Second),
	)
	fetcher := api.FetcherFor(apiClient, cfg.Instance.Symbol, cfg.API.OrderbookDepth)

	// Create push adapter when the push channel is configured
	var adapter *push.Adapter
	if cfg.Push.PushEnabled() {
		adapter = push.NewAdapter(push.Config{
			URL:                 cfg.Push.URL,
			APIKey:              cfg.API.APIKey,
			Symbol:              cfg.Instance.Symbol,
			HeartbeatTimeout:    cfg.Push.HeartbeatTimeout,
			MaxMissedHeartbeats: cfg.Push.MaxMissedHeartbeats,
			ReconnectBaseDelay:  cfg.Push.ReconnectBaseDelay,
			ReconnectMaxDelay:   cfg.Push.ReconnectMaxDelay,
		}, logger)
	}

	coord := coordinator.New(coordinatorConfig(cfg), fetcher, adapter, logger)

	if err := coordinator.Register(cfg.Instance.ID, coord); err != nil {
		logger.Error("failed to register coordinator", "error", err)
		os.Exit(1)
	}
	if cfg.Instance.ID != coordinator.DefaultID {
		if err := coordinator.SetDefault(coord); err != nil {
			logger.Error("failed to set default coordinator", "error", err)
			os.Exit(1)
		}
	}

	if err := coord.Start(ctx); err != nil {
		logger.Error("failed to start coordinator", "error", err)
		os.Exit(1)
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		if err := coord.Stop(shutdownCtx); err != nil {
			logger.Error("coordinator shutdown error", "error", err)
		}
	}()

	// The daemon itself subscribes to every feed so the cache stays
	// warm for the health and debug endpoints.
	latest := &latestSnapshot{}
	sub, err := coord.Subscribe(latest.observe, model.AllEndpoints()...)
	if err != nil {
		logger.Error("failed to subscribe", "error", err)
		os.Exit(1)
	}
	defer sub.Unsubscribe()
	latest.set(sub.Snapshot)

	// Health server
	healthServer := &http.Server{
		Addr:    *healthAddr,
		Handler: createHealthHandler(coord, latest),
	}

	go func() {
		logger.Info("starting health server", "addr", *healthAddr)
		if err := healthServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("health server error", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		healthServer.Shutdown(shutdownCtx)
	}()

	<-ctx.Done()

	logger.Info("syncd stopped")
}

// latestSnapshot retains the most recent delivered snapshot for the
// debug endpoint.
type latestSnapshot struct {
	mu   sync.Mutex
	snap model.Snapshot
}

func (l *latestSnapshot) observe(s model.Snapshot) { l.set(s) }

func (l *latestSnapshot) set(s model.Snapshot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.snap = s
}

func (l *latestSnapshot) get() model.Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.snap
}

// coordinatorConfig maps the YAML config onto the coordinator's
// settings, overlaying per-endpoint cadence overrides onto the
// staggered defaults.
func coordinatorConfig(cfg *config.SyncConfig) coordinator.Config {
	endpoints := scheduler.DefaultEndpoints()
	for name, ep := range cfg.Scheduler.Endpoints {
		endpoints[model.EndpointKey(name)] = scheduler.Endpoint{
			MinInterval: ep.MinInterval,
			Staleness:   ep.Staleness,
		}
	}

	c := coordinator.DefaultConfig()
	c.Symbol = cfg.Instance.Symbol
	c.Scheduler = scheduler.Config{
		Tick:      cfg.Scheduler.Tick,
		Timeout:   cfg.Scheduler.Timeout,
		Endpoints: endpoints,
	}
	c.Debounce = cfg.Notify.Debounce
	c.MaxLatency = cfg.Notify.MaxLatency
	return c
}

// createHealthHandler creates the HTTP handler for health checks.
func createHealthHandler(coord *coordinator.Coordinator, latest *latestSnapshot) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		state := coord.ConnectionState()
		stats := coord.Stats()

		health := struct {
			Status     string                 `json:"status"`
			Components map[string]interface{} `json:"components"`
		}{
			Status:     "healthy",
			Components: make(map[string]interface{}),
		}

		health.Components["push"] = string(state)
		health.Components["coordinator"] = map[string]interface{}{
			"subscribers":    stats.Subscribers,
			"notifications":  stats.Notifications,
			"push_applied":   stats.PushApplied,
			"push_discarded": stats.PushDiscarded,
			"failovers":      stats.Failovers,
		}

		snap := latest.get()
		staleCount := 0
		for _, key := range model.AllEndpoints() {
			if snap.MetaFor(key).Stale {
				staleCount++
			}
		}
		health.Components["stale_feeds"] = staleCount
		if staleCount > 0 {
			health.Status = "degraded"
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(health)
	})

	mux.HandleFunc("/debug/snapshot", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(latest.get())
	})

	return mux
}
