package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"parking_twin/internal/api"
	"parking_twin/internal/config"
	"parking_twin/internal/grid"
	"parking_twin/internal/scenario"
	"parking_twin/internal/store"
	"parking_twin/internal/twin"
	"parking_twin/pkg/concurrency"
	"parking_twin/pkg/liveserver"
	"parking_twin/pkg/logging"
	"parking_twin/pkg/telemetry"
)

var (
	// Version information (set via build flags)
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "configs/twin_server.yaml", "Path to configuration file")
	port := flag.String("port", "", "Server port (overrides config)")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	// Show version if requested
	if *showVersion {
		fmt.Printf("twin_server version %s (built %s)\n", version, buildTime)
		os.Exit(0)
	}

	// Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Override port if specified
	if *port != "" {
		cfg.Server.Port = *port
	}

	// Initialize logger
	logger, err := logging.NewZapLogger(cfg.Logging.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	logging.SetGlobalLogger(logger)

	logger.Info("Starting twin_server",
		"version", version,
		"lot", cfg.App.LotID,
		"rows", cfg.App.Rows,
		"cols", cfg.App.Cols,
		"port", cfg.Server.Port,
	)

	// Initialize metrics
	if cfg.Telemetry.EnableMetrics {
		if err := telemetry.InitMetrics(); err != nil {
			logger.Warn("Failed to initialize metrics exporter", "error", err)
		} else {
			logger.Info("Metrics exporter initialized")
		}
	}

	// Open the durable store
	slotStore, err := store.NewSQLiteStore(cfg.Storage.Path)
	if err != nil {
		logger.Error("Failed to open slot store", "error", err, "path", cfg.Storage.Path)
		os.Exit(1)
	}
	defer slotStore.Close()

	// Shutdown on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Create WebSocket hub
	hub := liveserver.NewHub(logger)

	// Build the grid service
	gridState := grid.New(cfg.App.LotID, cfg.App.Rows, cfg.App.Cols)
	engine := scenario.NewEngine(nil)
	service := twin.NewService(gridState, slotStore, hub, engine, logger)

	// New connections receive the full grid before any live updates
	hub.SetSnapshotProvider(func() interface{} {
		return service.Snapshot()
	})

	// Bootstrap state: load persisted slots, or seed a fresh lot
	seedSrc := rand.NewSource(time.Now().UnixNano())
	if cfg.App.Seed != 0 {
		seedSrc = rand.NewSource(cfg.App.Seed)
	}
	if err := service.Bootstrap(ctx, rand.New(seedSrc)); err != nil {
		logger.Error("Failed to bootstrap grid state", "error", err)
		os.Exit(1)
	}
	logger.Info("Grid state ready", "slots", len(service.Snapshot().Slots))

	// Worker pool for periodic broadcast work
	pool := concurrency.NewWorkerPool(concurrency.PoolConfig{
		Name:        "TwinBroadcastPool",
		MaxWorkers:  cfg.Concurrency.BroadcastPoolSize,
		MaxCapacity: cfg.Concurrency.BroadcastPoolBuffer,
		NonBlocking: true,
	}, logger)
	defer pool.Stop()

	// Create and configure HTTP/WebSocket server
	server := liveserver.NewServer(hub, logger, cfg.Server.AllowedOrigins)
	server.SetMaxConnections(cfg.Server.MaxConnections)
	server.SetRateLimit(cfg.Server.RateLimit, cfg.Server.RateBurst)
	server.SetProduction(cfg.Server.Production)
	if cfg.Server.WebDirectory != "" {
		server.SetStaticDir(cfg.Server.WebDirectory)
	}
	server.RegisterAPI(api.NewHandler(service, logger).Register)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})
	logger.Info("WebSocket hub started")

	// Start stream handlers
	streams := NewStreamHandlers(service, hub, pool, cfg, logger)
	streams.StartAll(gctx)
	logger.Info("Stream handlers started", "price_interval_s", cfg.Streams.PriceInterval)

	g.Go(func() error {
		logger.Info("Starting HTTP/WebSocket server", "port", cfg.Server.Port, "web_dir", cfg.Server.WebDirectory)
		return server.Start(gctx, cfg.Server.Port)
	})

	// Log startup complete
	logger.Info("twin_server is running",
		"websocket_url", fmt.Sprintf("ws://localhost%s/ws/stream", cfg.Server.Port),
		"health_url", fmt.Sprintf("http://localhost%s/health", cfg.Server.Port),
		"slots_url", fmt.Sprintf("http://localhost%s/lots/%s/slots", cfg.Server.Port, cfg.App.LotID),
	)

	if err := g.Wait(); err != nil {
		logger.Error("Server exited with error", "error", err)
	}

	logger.Info("twin_server stopped")
}
