package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/shadowstrike/topup-bot/internal/adminstore"
	"github.com/shadowstrike/topup-bot/internal/backend"
	"github.com/shadowstrike/topup-bot/internal/config"
	"github.com/shadowstrike/topup-bot/internal/dedup"
	"github.com/shadowstrike/topup-bot/internal/health"
	"github.com/shadowstrike/topup-bot/internal/notifier"
	"github.com/shadowstrike/topup-bot/internal/telegram"
)

func main() {
	// Setup logger
	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(log)

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Debug("no .env file found")
	}

	// Load config
	cfg := config.Load()

	if cfg.BotToken == "" {
		log.Error("TELEGRAM_BOT_TOKEN is required")
		os.Exit(1)
	}
	if cfg.AdminUsername == "" {
		log.Warn("BOT_ADMIN_USERNAME is empty, admin commands are disabled")
	}
	if cfg.BotAPIKey == "" {
		log.Warn("BOT_API_KEY is empty, server operations will be refused")
	}

	// Shared state
	admins := adminstore.New(cfg.AdminStatePath)
	seen := dedup.NewRegistry()

	// Game server client
	api := backend.NewClient(cfg.ServerBaseURL, cfg.BotAPIKey)
	log.Info("server client initialized", "base_url", cfg.ServerBaseURL)

	// Telegram bot. A token rejected by Telegram fails here.
	tgBot, err := telegram.New(cfg, api, admins, seen, log)
	if err != nil {
		log.Error("init telegram bot", "error", err)
		os.Exit(1)
	}
	log.Info("telegram bot initialized")

	// Topup notifier
	notify := notifier.New(cfg, admins, seen, api, tgBot, log)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start health server
	if cfg.HealthPort > 0 {
		healthServer := health.NewServer(log)
		go func() {
			if err := healthServer.Start(ctx, cfg.HealthPort); err != nil && err != http.ErrServerClosed {
				log.Error("health server", "error", err)
			}
		}()
	}

	// Start notification loop
	go notify.Start(ctx, cfg.NotifyInterval)

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		log.Info("shutting down...")
		cancel()
	}()

	// Start bot polling
	log.Info("starting bot polling...")
	tgBot.Start(ctx)
}
