package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"gopkg.in/natefinch/lumberjack.v2"

	"moviemate/bot"
	"moviemate/config"
	"moviemate/handlers"
	"moviemate/internal/database"
	"moviemate/internal/telegram"
	"moviemate/services/catalog"
	"moviemate/services/kinopoisk"
	"moviemate/services/tmdb"
	"moviemate/services/watchlist"
	"moviemate/utils"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("[main] %v", err)
	}
}

func run() error {
	settingsPath := os.Getenv("MOVIEMATE_CONFIG")
	if settingsPath == "" {
		settingsPath = "data/settings.json"
	}

	settings, err := config.NewManager(settingsPath).Load()
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	if settings.LogPath != "" {
		log.SetOutput(io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   settings.LogPath,
			MaxSize:    20, // MB
			MaxBackups: 3,
			MaxAge:     14, // days
		}))
	}

	if settings.TelegramToken == "" {
		return errors.New("TELEGRAM_BOT_TOKEN is not set")
	}

	provider, err := pickProvider(settings)
	if err != nil {
		return err
	}
	log.Printf("[main] primary provider: %s", provider.Name())

	db, err := database.Open(database.Config{
		PostgresDSN: settings.DatabaseURL,
		SQLitePath:  settings.DatabasePath,
	})
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	tg := telegram.NewClient(settings.TelegramToken)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	me, err := tg.GetMe(ctx)
	if err != nil {
		return fmt.Errorf("verify bot token: %w", err)
	}
	log.Printf("[main] authorized as @%s", me.Username)

	store := watchlist.NewService(db, settings.RefreshProfiles)
	catalogSvc := catalog.NewService(provider)
	b := bot.New(tg, catalogSvc, store, settings.PageSize)
	defer b.Close()

	if settings.WebhookURL != "" {
		return runWebhook(ctx, tg, b, settings)
	}
	return runPolling(ctx, tg, b)
}

// pickProvider resolves the primary provider from config, falling back to whichever
// one actually has credentials.
func pickProvider(settings config.Settings) (catalog.Provider, error) {
	switch settings.PrimaryProvider {
	case config.ProviderKinopoisk:
		if settings.KinopoiskAPIKey != "" {
			return kinopoisk.NewClient(kinopoisk.DefaultBaseURL, settings.KinopoiskAPIKey), nil
		}
	case config.ProviderTMDB, "":
		if settings.TMDBAPIKey != "" {
			return tmdb.NewClient(tmdb.DefaultBaseURL, settings.TMDBAPIKey), nil
		}
	default:
		return nil, fmt.Errorf("unknown primary provider %q", settings.PrimaryProvider)
	}

	// Configured provider has no key; take the other one if it is usable.
	if settings.TMDBAPIKey != "" {
		return tmdb.NewClient(tmdb.DefaultBaseURL, settings.TMDBAPIKey), nil
	}
	if settings.KinopoiskAPIKey != "" {
		return kinopoisk.NewClient(kinopoisk.DefaultBaseURL, settings.KinopoiskAPIKey), nil
	}
	return nil, errors.New("no provider API key configured (TMDB_API_KEY or KINOPOISK_API_KEY)")
}

func runPolling(ctx context.Context, tg *telegram.Client, b *bot.Bot) error {
	// A stale webhook blocks getUpdates.
	if err := tg.DeleteWebhook(ctx); err != nil {
		log.Printf("[main] delete webhook failed: %v", err)
	}
	return b.Run(ctx)
}

func runWebhook(ctx context.Context, tg *telegram.Client, b *bot.Bot, settings config.Settings) error {
	secret := settings.WebhookSecret
	if secret == "" {
		secret = uuid.NewString()
		log.Printf("[main] generated webhook secret for this run")
	}

	webhookURL := strings.TrimRight(settings.WebhookURL, "/") + "/webhook/" + secret
	if err := tg.SetWebhook(ctx, webhookURL, secret); err != nil {
		return fmt.Errorf("set webhook: %w", err)
	}

	router := utils.NewRouter()
	handlers.NewWebhookHandler(secret, b).Register(router)

	server := &http.Server{
		Addr:         settings.ListenAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("[main] webhook server listening on %s", settings.ListenAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("webhook server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("[main] server shutdown: %v", err)
	}
	if err := tg.DeleteWebhook(shutdownCtx); err != nil {
		log.Printf("[main] delete webhook failed: %v", err)
	}
	return nil
}
