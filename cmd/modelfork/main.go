// modelfork API server — proxies chat completions to LLM providers and
// persists chat history.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/modelfork/modelfork/pkg/api"
	"github.com/modelfork/modelfork/pkg/catalog"
	"github.com/modelfork/modelfork/pkg/cleanup"
	"github.com/modelfork/modelfork/pkg/completion"
	"github.com/modelfork/modelfork/pkg/config"
	"github.com/modelfork/modelfork/pkg/database"
	"github.com/modelfork/modelfork/pkg/provider"
	"github.com/modelfork/modelfork/pkg/services"
	"github.com/modelfork/modelfork/pkg/version"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Warn("Could not load .env file, continuing with existing environment", "error", err)
	}

	cfg, err := config.LoadFromEnv()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting modelfork",
		"version", version.Full(),
		"http_port", cfg.HTTPPort)

	ctx := context.Background()

	// 1. Database
	dbConfig, err := database.LoadConfigFromEnv()
	if err != nil {
		slog.Error("Failed to load database config", "error", err)
		os.Exit(1)
	}
	dbClient, err := database.NewClient(ctx, dbConfig)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			slog.Error("Error closing database client", "error", err)
		}
	}()
	slog.Info("Connected to PostgreSQL database")

	// 2. Services
	chatService := services.NewChatService(dbClient.DB())

	// 3. Provider gateways. A provider with no API key stays unregistered
	// and its models are reported as not available.
	registry := provider.NewRegistry()
	if cfg.OpenAIAPIKey != "" {
		registry.Register(catalog.ProviderOpenAI,
			provider.NewOpenAIGateway(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.StreamMaxTokens))
		slog.Info("OpenAI gateway registered")
	} else {
		slog.Warn("OPENAI_API_KEY not set, OpenAI models unavailable")
	}
	if cfg.GeminiAPIKey != "" {
		gemini, err := provider.NewGeminiGateway(ctx, cfg.GeminiAPIKey, cfg.StreamMaxTokens)
		if err != nil {
			slog.Error("Failed to initialize Gemini gateway", "error", err)
			os.Exit(1)
		}
		registry.Register(catalog.ProviderGemini, gemini)
		slog.Info("Gemini gateway registered")
	}

	completer := completion.NewCompleter(chatService, registry, slog.Default(),
		cfg.TitleModel, cfg.HistoryWindow)

	// 4. Retention loop
	cleanupService := cleanup.NewService(chatService, cfg.ChatTTL, cfg.CleanupInterval)
	cleanupService.Start(ctx)
	defer cleanupService.Stop()

	// 5. HTTP server
	httpServer := api.NewServer(dbClient, chatService, completer, cfg.AllowedOrigins)

	errCh := make(chan error, 1)
	go func() {
		addr := ":" + cfg.HTTPPort
		slog.Info("HTTP server listening", "addr", addr)
		if err := httpServer.Start(addr); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			errCh <- err
		}
	}()

	// 6. Wait for shutdown signal or server error
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	select {
	case sig := <-sigCh:
		slog.Info("Received shutdown signal", "signal", sig)
	case err := <-errCh:
		slog.Error("Server failed", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("Graceful shutdown failed", "error", err)
	}
	slog.Info("modelfork stopped")
}
