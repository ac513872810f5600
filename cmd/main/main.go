package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"watershed-sync/src/config"
	"watershed-sync/src/fetch"
	"watershed-sync/src/ingest"
	"watershed-sync/src/interfaces"
	"watershed-sync/src/logger"
	"watershed-sync/src/network"
	"watershed-sync/src/provider"
	"watershed-sync/src/series"
	"watershed-sync/src/server"
	"watershed-sync/src/storage"
	"watershed-sync/src/syncer"
)

// -----------------------------------------------------------------------------

func main() {

	// Parse command line flags
	configPath := flag.String("config", "../../config/default.yaml", "path to config file")
	runOnce := flag.String("run-once", "", "run the named job once and exit")
	flag.Parse()

	// Load config from YAML file
	config, err := config.NewConfig(*configPath)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	// Setup logger
	appLogger := logger.NewLogger(config.LogLevel, config.Name)

	// 2. Setup Storage
	var db interfaces.IDatabase

	switch config.Storage.DBType {
	case "postgres":
		db, err = storage.NewPostgresDB(config.MConfig, appLogger)
	default:
		// Default to SQLite
		db, err = storage.NewAsyncSQLiteDB(config.MConfig, appLogger)
	}

	if err != nil {
		appLogger.Critical("Failed to init db: %v", err)
	}
	if err := db.Initialize(); err != nil {
		appLogger.Critical("Failed to migrate db: %v", err)
	}
	defer db.Close()

	// 3. Setup Components
	var networkManager interfaces.INetworkManager = network.NewAsyncNetworkManager(config.MConfig, appLogger)
	catalog := provider.NewCatalog(networkManager, config.MConfig, appLogger)

	workerPath := config.Worker.BinaryPath
	orchestrator := fetch.NewOrchestrator(func() interfaces.IFetchWorker {
		return fetch.NewExecWorker(workerPath)
	}, appLogger)

	regularizer := series.NewRegularizer(config.Storage.Location, config.Storage.SiteLabel)
	ingester := ingest.NewIngester(regularizer, db, appLogger)

	// 4. Warm the provider catalog so bad credentials surface before any run
	if _, err := catalog.Watersheds(); err != nil {
		appLogger.Warning("Catalog fetch failed: %v", err)
	}

	// 5. One-shot mode: run the named job and exit with its success flag
	if *runOnce != "" {
		runner := syncer.NewRunner(config.MConfig, db, catalog, orchestrator, ingester, nil, appLogger)
		service := syncer.NewService(config.MConfig, runner, appLogger)

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		summary, err := service.RunJob(ctx, *runOnce)
		if err != nil {
			appLogger.Error("Run failed: %v", err)
			os.Exit(1)
		}
		if !summary.Success {
			os.Exit(1)
		}
		return
	}

	// 6. Watch mode: monitor server + scheduled runs
	srv := server.NewMonitorServer(config.MConfig, appLogger, catalog)
	runner := syncer.NewRunner(config.MConfig, db, catalog, orchestrator, ingester, srv, appLogger)
	service := syncer.NewService(config.MConfig, runner, appLogger)

	go func() {
		if err := srv.Start(); err != nil {
			appLogger.Error("Server failed: %v", err)
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := service.Start(ctx); err != nil {
		appLogger.Critical("Failed to start sync service: %v", err)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	appLogger.Info("Watching %d jobs...", len(config.Jobs))

	<-quit
	appLogger.Info("Shutting down...")
	service.Stop()
	srv.Stop()
}
