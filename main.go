package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/anshulsoni4/whisper-well/api"
	"github.com/anshulsoni4/whisper-well/classifier"
	"github.com/anshulsoni4/whisper-well/composer"
	"github.com/anshulsoni4/whisper-well/config"
	"github.com/anshulsoni4/whisper-well/hub"
	"github.com/anshulsoni4/whisper-well/llm"
	"github.com/anshulsoni4/whisper-well/recall"
	"github.com/anshulsoni4/whisper-well/session"
	"github.com/anshulsoni4/whisper-well/store"
)

func main() {
	// Load configuration
	cfg := config.Load()

	log.Printf("Starting whisper-well...")
	log.Printf("HTTP Port: %d", cfg.HTTPPort)
	log.Printf("Database: %s", cfg.DatabaseURL)
	log.Printf("Model: %s", cfg.OpenAIModel)

	if err := cfg.Validate(); err != nil {
		// The server still starts so the client gets a clear blocking
		// message on remote-call paths instead of a dead socket.
		log.Printf("WARN: %v; completion requests will fail until it is set", err)
	}

	// Initialize store
	kv, err := store.NewSQLiteKV(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}
	defer kv.Close()

	entries := store.NewEntryStore(kv)

	// Initialize completion client
	llmClient := llm.NewClient(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.Temperature, cfg.MaxTokens, cfg.LLMTimeout)

	// Initialize connection hub
	connectionHub := hub.NewHub()
	go connectionHub.Run()

	// Initialize core services
	cls := classifier.New(llmClient)
	cmp := composer.New(entries)
	sessions := session.NewManager(entries, cls, cmp, llmClient, connectionHub)
	recallScheduler := recall.NewScheduler(entries, sessions, cfg.RecallDelay)

	// Initialize handler
	h := api.NewHandler(sessions, recallScheduler, entries, connectionHub)

	// Create Echo server
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	// Register routes
	h.RegisterRoutes(e)

	// Start server
	go func() {
		addr := fmt.Sprintf(":%d", cfg.HTTPPort)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	log.Printf("API started on port %d", cfg.HTTPPort)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down whisper-well...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("Failed to shutdown server gracefully: %v", err)
	}

	log.Println("Whisper-well stopped")
}
