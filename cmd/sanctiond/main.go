package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/time/rate"

	"tg-sanction/internal/bot"
	"tg-sanction/internal/config"
	"tg-sanction/internal/crash"
	"tg-sanction/internal/directory"
	"tg-sanction/internal/handler"
	"tg-sanction/internal/logger"
	"tg-sanction/internal/service"
	"tg-sanction/internal/storage"
)

func main() {
	defer crash.RecoverAndExit("main")
	crash.Setup()

	configPath := flag.String("config", "configs/config.yaml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if err := logger.Setup(cfg); err != nil {
		log.Fatalf("Failed to set up logger: %v", err)
	}
	if err := directory.CheckMutedRole(cfg.Sanction.MutedRole); err != nil {
		log.Fatalf("Invalid sanction.muted_role: %v", err)
	}

	if cfg.Database.Enabled {
		if err := storage.Initialize(cfg); err != nil {
			logger.Fatalf("Failed to initialize database: %v", err)
		}
		if err := storage.MigrateAll(storage.DB); err != nil {
			logger.Fatalf("Failed to migrate database: %v", err)
		}
	} else {
		logger.Info("Database support is disabled, bans will not be audited")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tgBot, err := bot.NewBot(cfg)
	if err != nil {
		logger.Fatalf("Failed to create bot: %v", err)
	}

	var limiter *rate.Limiter
	if cfg.Bot.APIRateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.Bot.APIRateLimit), 1)
	}
	dir := directory.NewTelegramDirectory(tgBot, cfg.Sanction.MutedRole, limiter)
	if err := service.Initialize(ctx, cfg, dir); err != nil {
		logger.Fatalf("Failed to initialize sanction engine: %v", err)
	}

	botService, server, err := bot.Initialize(ctx, cfg, tgBot)
	if err != nil {
		logger.Fatalf("Failed to initialize bot: %v", err)
	}

	handler.Initialize(cfg)
	handler.SetupMessageHandlers(botService.Handler, botService.Bot)

	crash.SafeGoroutine("http-server", func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("HTTP server error: %v", err)
		}
	})

	// Re-arm sanctions that were pending when the previous process stopped.
	// Overdue ones resolve right away.
	if _, err := service.RestorePending(ctx); err != nil {
		logger.Errorf("Failed to restore pending sanctions: %v", err)
	}

	crash.SafeGoroutine("bot-handler", botService.Start)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)

	sig := <-sigChan
	logger.Infof("Received signal: %v, shutting down...", sig)

	logger.Info("Waiting for update handlers to complete...")
	stopCtx, stopCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer stopCancel()
	if err := botService.Stop(stopCtx); err != nil {
		logger.Warningf("Error stopping bot handler: %v", err)
	}
	done := make(chan struct{})
	go func() {
		handler.WaitForHandlers()
		close(done)
	}()
	select {
	case <-done:
		logger.Info("All update handlers completed")
	case <-stopCtx.Done():
		logger.Warning("Timeout waiting for update handlers, proceeding with shutdown")
	}

	// timers stop, records stay for the next start
	service.Shutdown()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("HTTP server shutdown error: %v", err)
	}

	logger.Info("Server gracefully stopped")
}
