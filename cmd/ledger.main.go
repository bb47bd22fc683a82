package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ledger-service/internal/config"
	"ledger-service/internal/server"

	"github.com/joho/godotenv"
)

func main() {
	// Load .env (optional)
	if err := godotenv.Load(); err != nil {
		log.Println("Ledger: No .env file found, relying on system env vars")
	}

	// Load config
	cfg := config.Load()

	// Start the ledger HTTP server in a goroutine
	errCh := make(chan error, 1)
	go func() {
		log.Printf("Ledger HTTP server starting on %s", cfg.HTTPAddr)
		// Session validation is wired by the deployment; nil keeps the
		// dev profile open.
		server.NewLedgerHTTPServer(cfg, nil)
		errCh <- nil
	}()

	// Handle graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		log.Println("Ledger service shutting down gracefully...")
		_, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
	case err := <-errCh:
		if err != nil {
			log.Fatalf("Ledger service failed: %v", err)
		}
	}
}
