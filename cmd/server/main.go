package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/centrifugal/centrifuge"
	"github.com/jonboulle/clockwork"
	"github.com/vamnguyen/tiktok-live-games/internal/broadcast"
	"github.com/vamnguyen/tiktok-live-games/internal/config"
	"github.com/vamnguyen/tiktok-live-games/internal/live"
	"github.com/vamnguyen/tiktok-live-games/internal/logging"
	"github.com/vamnguyen/tiktok-live-games/internal/normalize"
	"github.com/vamnguyen/tiktok-live-games/internal/realtime"
	"github.com/vamnguyen/tiktok-live-games/internal/server"
	"github.com/vamnguyen/tiktok-live-games/internal/tiktok"
	"github.com/vamnguyen/tiktok-live-games/internal/version"
)

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func setupNode(logLevel string) *centrifuge.Node {
	node, err := realtime.NewNode(logLevel)
	if err != nil {
		slog.Error("Failed to create realtime node", "error", err)
		os.Exit(1)
	}
	return node
}

func runGracefulShutdown(srv *server.Server, janitor *live.Janitor, pool *live.Pool, node *centrifuge.Node) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}

		janitor.Stop()
		pool.Close()

		nodeCtx, nodeCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer nodeCancel()
		if err := node.Shutdown(nodeCtx); err != nil {
			slog.Error("Realtime node shutdown error", "error", err)
		}

		close(done)
	}()

	return done
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	// Initialize structured logging
	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Application starting", "env", cfg.AppEnv, "port", cfg.Port, "version", version.Get().Version)

	node := setupNode(cfg.LogLevel)

	source := tiktok.NewSource(tiktok.Config{
		WebBaseURL:        cfg.TikTokWebBaseURL,
		WebcastURL:        cfg.TikTokWebcastURL,
		HeartbeatInterval: cfg.HeartbeatInterval,
	}, clock)

	broadcaster := broadcast.New(realtime.NewNodePublisher(node))
	registry := live.NewSubscriberRegistry()
	pool := live.NewPool(source, normalize.New(clock), broadcaster, clock, cfg.UpstreamConnectTimeout)

	gateway := realtime.NewGateway(registry, pool, cfg.MaxSubscribersPerTenant)
	realtime.AttachGateway(node, gateway)

	if err := node.Run(); err != nil {
		slog.Error("Failed to run realtime node", "error", err)
		os.Exit(1)
	}

	janitor := live.NewJanitor(pool, registry, clock, cfg.CleanupInterval, cfg.IdleThreshold)
	janitor.Start()

	websocketHandler := centrifuge.NewWebsocketHandler(node, centrifuge.WebsocketConfig{
		CheckOrigin: realtime.NewCheckOrigin(cfg.PublicURL, cfg.IsDevelopment()),
	})

	healthChecks := []server.HealthCheck{
		{Name: "pool", Check: pool.Ready},
	}

	srv, err := server.NewServer(cfg, pool, registry, source, realtime.NewPresenceChecker(node), websocketHandler, healthChecks)
	if err != nil {
		slog.Error("Failed to create server", "error", err)
		os.Exit(1)
	}

	done := runGracefulShutdown(srv, janitor, pool, node)

	slog.Info("Server starting", "port", cfg.Port)
	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	<-done
}
