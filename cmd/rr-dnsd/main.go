// Command rr-dnsd runs the recursive DNS resolver as a standalone UDP
// server: load config, wire the cache and resolution engine, bind the
// listener, and serve until a shutdown signal arrives.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/valarpirai/rr-dns/internal/dns/cache"
	"github.com/valarpirai/rr-dns/internal/dns/common/clock"
	"github.com/valarpirai/rr-dns/internal/dns/common/log"
	"github.com/valarpirai/rr-dns/internal/dns/config"
	"github.com/valarpirai/rr-dns/internal/dns/resolver"
	"github.com/valarpirai/rr-dns/internal/dns/transport"
)

const (
	version = "0.1.0-dev"

	defaultShutdownTimeout = 10 * time.Second
)

// Application holds the wired components of a running resolver process.
type Application struct {
	config    *config.AppConfig
	transport *transport.UDPTransport
	engine    *resolver.Engine
	cache     *cache.Cache
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	if err := log.Configure(cfg.Env, cfg.Log.Level); err != nil {
		fmt.Fprintf(os.Stderr, "logging configuration error: %v\n", err)
		os.Exit(1)
	}

	log.Info(map[string]any{
		"version":   version,
		"env":       cfg.Env,
		"log_level": cfg.Log.Level,
		"port":      cfg.Server.Port,
	}, "starting rr-dnsd")

	app, err := buildApplication(cfg)
	if err != nil {
		log.Fatal(map[string]any{"error": err.Error()}, "failed to build application")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Info(map[string]any{"signal": sig.String()}, "shutdown signal received")
		cancel()
	}()

	if err := app.Run(ctx); err != nil {
		log.Fatal(map[string]any{"error": err.Error()}, "server failed")
	}

	log.Info(nil, "rr-dnsd stopped gracefully")
}

// buildApplication constructs the cache, resolution engine, and UDP
// transport and wires them into an Application.
func buildApplication(cfg *config.AppConfig) (*Application, error) {
	logger := log.GetLogger()
	clk := clock.RealClock{}

	respCache, err := cache.New(cache.Config{
		MaxEntries:     cfg.Cache.MaxEntries,
		MaxMemoryBytes: cfg.Cache.MaxMemoryBytes,
		MinTTLSeconds:  uint32(cfg.Cache.MinTTLSeconds),
	}, clk)
	if err != nil {
		return nil, fmt.Errorf("build cache: %w", err)
	}

	hints := rootHintsFromConfig(cfg)
	timeout := time.Duration(cfg.Resolver.TimeoutMs) * time.Millisecond
	querier := resolver.NewQuerier(timeout, nil)

	engine := resolver.NewEngine(resolver.EngineOptions{
		Querier:   querier,
		Cache:     respCache,
		Logger:    logger,
		RootHints: hints,
		MaxDepth:  cfg.Resolver.MaxDepth,
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	udpTransport := transport.NewUDPTransport(addr, logger)

	return &Application{
		config:    cfg,
		transport: udpTransport,
		engine:    engine,
		cache:     respCache,
	}, nil
}

// rootHintsFromConfig overrides the built-in 13 root servers when
// resolver.roots is set; each entry is an "ip:port" address used
// as both the hint's display name and its dial target.
func rootHintsFromConfig(cfg *config.AppConfig) []resolver.RootHint {
	if len(cfg.Resolver.RootServers) == 0 {
		return resolver.DefaultRootHints
	}
	hints := make([]resolver.RootHint, len(cfg.Resolver.RootServers))
	for i, addr := range cfg.Resolver.RootServers {
		hints[i] = resolver.RootHint{Name: addr, Addr: addr}
	}
	return hints
}

// Run starts the UDP transport and the background stats ticker, then
// blocks until ctx is cancelled, at which point it shuts both down within
// defaultShutdownTimeout.
func (app *Application) Run(ctx context.Context) error {
	if err := app.transport.Start(ctx, app.engine); err != nil {
		return fmt.Errorf("start udp transport: %w", err)
	}
	log.Info(map[string]any{"address": app.transport.Address()}, "dns server started")

	statsStop := make(chan struct{})
	go app.runStatsTicker(statsStop)

	<-ctx.Done()
	log.Info(nil, "shutdown initiated")
	close(statsStop)

	done := make(chan error, 1)
	go func() {
		err := app.transport.Stop()
		app.cache.Clear()
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			log.Warn(map[string]any{"error": err.Error()}, "error during transport shutdown")
		}
		log.Info(nil, "graceful shutdown completed")
		return nil
	case <-time.After(defaultShutdownTimeout):
		log.Warn(map[string]any{"timeout": defaultShutdownTimeout}, "shutdown timeout exceeded")
		return fmt.Errorf("shutdown timeout")
	}
}

// runStatsTicker logs cache.Stats() every StatsIntervalSeconds until
// stopCh closes. A zero interval disables the ticker entirely.
func (app *Application) runStatsTicker(stopCh chan struct{}) {
	interval := app.config.Cache.StatsIntervalSeconds
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(time.Duration(interval) * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			stats := app.cache.Stats()
			log.Info(map[string]any{
				"hits":              stats.Hits,
				"misses":            stats.Misses,
				"evictions":         stats.Evictions,
				"entries":           stats.Entries,
				"approximate_bytes": stats.ApproximateBytes,
			}, "cache stats")
		}
	}
}
