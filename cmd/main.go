package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"fanshub-chat/api"
	"fanshub-chat/auth"
	"fanshub-chat/logs"
	"fanshub-chat/moderation"
	"fanshub-chat/presence"
	"fanshub-chat/repositories"
	"fanshub-chat/runtime"
	"fanshub-chat/runtime/workers"
	"fanshub-chat/services"
	"fanshub-chat/storage"
	"fanshub-chat/ws"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/samber/lo"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run initializes all components, manages the server lifecycle, and
// centralizes error reporting, so every defer (database close included)
// executes before the process exits.
func run() error {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := logs.FromString(config.LogLevel)

	// 2. Database (BadgerDB)
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.INFO))
	if err != nil {
		return fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	// 3. Storage & Repositories
	blobs, err := storage.NewDiskBlobStore(config.BlobDir, config.BlobBaseURL, log)
	if err != nil {
		return fmt.Errorf("blob store setup failed: %w", err)
	}
	messageRepository := repositories.NewMessageRepository(db, log, config.LimitMessages)
	conversationRepository := repositories.NewConversationRepository(db, log)

	// 4. Moderation (optional: no word list, no censoring)
	var moderator *moderation.Moderator
	if config.CensoredWordsPath != "" {
		words, err := loadCensoredWords(config.CensoredWordsPath)
		if err != nil {
			return fmt.Errorf("censored words loading failed: %w", err)
		}
		maskRune, err := config.MaskRune()
		if err != nil {
			return err
		}
		m, err := moderation.NewModerator(words, maskRune)
		if err != nil {
			return fmt.Errorf("moderator setup failed: %w", err)
		}
		moderator = &m
		log.Info("Moderation enabled", "words", len(words))
	}

	// 5. Runtime: registry, broadcaster, presence, workers
	registry := runtime.NewRegistry()
	broadcaster := runtime.NewBroadcaster(registry, config.BufferSize, config.SinkTimeout, log)
	tracker := presence.NewTracker(broadcaster, config.PresenceCooldown, log)
	telemetry := workers.NewTelemetryWorker(config.MetricInterval, log)

	sup := workers.NewSupervisor(log, config.RestartInterval)
	sup.Add(
		runtime.NewFanoutWorker(broadcaster, log),
		telemetry,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	supDone := make(chan struct{})
	go func() {
		defer close(supDone)
		sup.Run(ctx)
	}()

	// 6. Service & HTTP surface
	tokens := auth.NewTokenService(config.JWTSecret)
	chatService := services.NewChatService(
		conversationRepository, messageRepository, blobs,
		registry, tracker, broadcaster, moderator, log,
	)

	mux := http.NewServeMux()
	mux.Handle("GET /ws/chats/{id}", ws.NewHandler(chatService, tokens, config.ConnectionBufferSize, log))
	api.NewHandlers(chatService, tokens, registry, broadcaster, telemetry, log).Register(mux)
	mux.Handle("GET "+config.BlobBaseURL+"/", http.StripPrefix(config.BlobBaseURL+"/",
		http.FileServer(http.Dir(config.BlobDir))))

	address := fmt.Sprintf("%s:%d", config.Host, config.Port)
	server := &http.Server{Addr: address, Handler: mux}

	errChan := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", "address", address, "at", time.Now().UTC())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// 7. Wait for Stop or Error
	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
	case err := <-errChan:
		return err
	}

	// 8. Final Cleanup
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = server.Shutdown(shutdownCtx)
	sup.Stop()
	<-supDone
	log.Info("Program stopped cleanly")

	return nil
}

// loadCensoredWords reads one word or phrase per line, skipping blanks and
// comments.
func loadCensoredWords(path string) ([]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	lines := strings.Split(string(raw), "\n")
	return lo.FilterMap(lines, func(line string, _ int) (string, bool) {
		word := strings.TrimSpace(line)
		return word, word != "" && !strings.HasPrefix(word, "#")
	}), nil
}
