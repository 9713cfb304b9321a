package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/saviobatista/ais-logger/internal/config"
	"github.com/saviobatista/ais-logger/internal/logging"
	"github.com/saviobatista/ais-logger/internal/nats"
	"github.com/saviobatista/ais-logger/internal/storage"
	"github.com/saviobatista/ais-logger/internal/types"
)

// MessageWriter persists raw lines
type MessageWriter interface {
	WriteMessage(message []byte) error
}

func main() {
	if err := runLogger(); err != nil {
		log.Printf("Logger failed: %v", err)
		os.Exit(1)
	}
}

// runLogger contains the main application logic and can be tested
func runLogger() error {
	logCfg, err := config.LoadLogging()
	if err != nil {
		return fmt.Errorf("failed to load logging configuration: %w", err)
	}
	closer, err := logging.Setup("logger", logCfg)
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}
	defer closer.Close()

	outputDir, natsURL := parseEnvironment()

	if err := os.MkdirAll(outputDir, 0o750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	store := storage.New(outputDir)
	if err := store.Start(); err != nil {
		return fmt.Errorf("failed to start storage: %w", err)
	}
	defer func() {
		if err := store.Stop(); err != nil {
			log.Printf("Failed to close log file: %v", err)
		}
	}()

	client, err := nats.New(natsURL)
	if err != nil {
		return fmt.Errorf("failed to create NATS client: %w", err)
	}

	if err := client.SubscribeAISRaw(messageHandler(store)); err != nil {
		client.Close()
		return fmt.Errorf("failed to subscribe to AIS messages: %w", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Println("Shutting down...")
	// Stop delivery before the file is closed
	client.Close()
	return nil
}

// parseEnvironment extracts environment variables with defaults
func parseEnvironment() (string, string) {
	outputDir := os.Getenv("OUTPUT_DIR")
	if outputDir == "" {
		outputDir = "./logs" // Default output directory
	}

	return outputDir, config.LoadServices().NATSURL
}

// messageHandler writes each raw line exactly as received
func messageHandler(w MessageWriter) func(*types.AISMessage) {
	return func(msg *types.AISMessage) {
		if msg.Raw == "" {
			return
		}
		if err := w.WriteMessage([]byte(msg.Raw)); err != nil {
			log.Printf("Failed to write message: %v", err)
		}
	}
}
