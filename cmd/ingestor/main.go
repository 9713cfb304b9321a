package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/saviobatista/ais-logger/internal/capture"
	"github.com/saviobatista/ais-logger/internal/config"
	"github.com/saviobatista/ais-logger/internal/logging"
	"github.com/saviobatista/ais-logger/internal/nats"
	"github.com/saviobatista/ais-logger/internal/types"
)

// NATSClient interface for testability
type NATSClient interface {
	PublishAISMessage(msg *types.AISMessage) error
	Close()
}

func main() {
	if err := run(); err != nil {
		log.Printf("Ingestor failed: %v", err)
		os.Exit(1)
	}
}

func run() error {
	logCfg, err := config.LoadLogging()
	if err != nil {
		return fmt.Errorf("failed to load logging configuration: %w", err)
	}
	closer, err := logging.Setup("ingestor", logCfg)
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}
	defer closer.Close()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	client, err := nats.New(parseEnvironment())
	if err != nil {
		return fmt.Errorf("failed to create NATS client: %w", err)
	}
	defer client.Close()

	c := capture.New(cfg.Sources)
	if err := c.Start(); err != nil {
		return fmt.Errorf("failed to start capture: %w", err)
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down...")
		c.Stop()
	}()

	published := forward(c.Messages(), client)
	log.Printf("Published %d messages", published)
	return nil
}

// parseEnvironment returns the NATS URL
func parseEnvironment() string {
	return config.LoadServices().NATSURL
}

// forward publishes every captured line until the channel closes
func forward(msgs <-chan capture.Message, client NATSClient) uint64 {
	var published uint64
	for msg := range msgs {
		if err := client.PublishAISMessage(toAISMessage(msg)); err != nil {
			log.Printf("Failed to publish message from %s: %v", msg.Source, err)
			continue
		}
		published++
	}
	return published
}

func toAISMessage(msg capture.Message) *types.AISMessage {
	return &types.AISMessage{
		Raw:       string(msg.Data),
		Timestamp: msg.Timestamp,
		Source:    msg.Source,
	}
}
