package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/maralydev/revabrain-sub000/internal/scheduling"
	"github.com/maralydev/revabrain-sub000/pkg/config"
	"github.com/maralydev/revabrain-sub000/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger := logger.New(cfg.LogLevel)

	// Initialize Scheduling Service
	service := scheduling.New(cfg, logger)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)

	// Start service in a goroutine
	go func() {
		logger.Infof("Starting Scheduling Service on %s", addr)
		if err := service.Start(addr); err != nil {
			logger.Fatalf("Failed to start Scheduling Service: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down Scheduling Service...")
	if err := service.Stop(); err != nil {
		logger.Errorf("Error during shutdown: %v", err)
	}
	logger.Info("Scheduling Service stopped")
}
