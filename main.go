package main

import (
	"context"
	"log" // Only for fatal errors before the structured logger is ready
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tradetracker/config"
	"tradetracker/internal/adapters/binancequotes"
	"tradetracker/internal/adapters/logger"
	"tradetracker/internal/adapters/sqlite"
	"tradetracker/internal/adapters/yahooquotes"
	"tradetracker/internal/app"
	"tradetracker/internal/auth"
	"tradetracker/internal/ports"
	"tradetracker/internal/scheduler"
	"tradetracker/internal/server"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}

	// 2. Initialize Logger
	appLogger := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: cfg.LogPretty})
	appLogger.Info(context.Background(), "Logger initialized", map[string]interface{}{"level": cfg.LogLevel})

	// 3. Initialize Repository (Database Adapter)
	repo, err := sqlite.NewRepository(sqlite.Config{
		DBPath: cfg.DBPath,
		Logger: appLogger,
	})
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize database repository: %v", err)
	}
	defer func() {
		if err := repo.Close(); err != nil {
			appLogger.Error(context.Background(), err, "Error closing database repository")
		}
	}()
	appLogger.Info(context.Background(), "Database repository initialized")

	// 4. Initialize Quote Provider
	var quotes ports.QuoteProvider
	switch cfg.QuoteProvider {
	case "binance":
		quotes, err = binancequotes.New(binancequotes.Config{
			APIKey:    cfg.BinanceAPIKey,
			SecretKey: cfg.BinanceSecretKey,
			Logger:    appLogger,
		})
	default:
		quotes, err = yahooquotes.New(yahooquotes.Config{
			Logger:     appLogger,
			Timeout:    cfg.QuoteTimeout,
			MaxRetries: cfg.QuoteMaxRetries,
		})
	}
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize quote provider: %v", err)
	}
	appLogger.Info(context.Background(), "Quote provider initialized", map[string]interface{}{"provider": cfg.QuoteProvider})

	// 5. Initialize Auth Manager
	authMgr, err := auth.New(auth.Config{Secret: cfg.JWTSecret, TokenTTL: cfg.TokenTTL})
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize auth manager: %v", err)
	}

	// 6. Initialize Application Service
	service, err := app.NewTradeService(appLogger, repo, repo, repo, quotes, authMgr)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize trade service: %v", err)
	}

	// 7. Initialize Scheduler
	sched := scheduler.New(appLogger)
	if cfg.RefreshEnabled {
		if err := sched.AddPriceRefresh(cfg.RefreshSchedule, service); err != nil {
			log.Fatalf("FATAL: Failed to register price refresh job: %v", err)
		}
	}
	sched.Start()
	defer sched.Stop()

	// 8. Initialize and start HTTP Server
	srv, err := server.New(server.Config{
		Port:    cfg.Port,
		Logger:  appLogger,
		Service: service,
		Auth:    authMgr,
	})
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize HTTP server: %v", err)
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Handle graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		appLogger.Info(context.Background(), "Received shutdown signal", map[string]interface{}{"signal": sig.String()})
	case err := <-errCh:
		appLogger.Error(context.Background(), err, "HTTP server failed")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error(context.Background(), err, "Error during server shutdown")
	}
}
