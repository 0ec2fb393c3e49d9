package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"fallwatch/camera"
	"fallwatch/common/config"
	"fallwatch/common/log"
	"fallwatch/common/metrics"
	"fallwatch/service"
)

const ConfigFile = "configs/config.json"

func main() {
	log.Info("starting Fall Detection System")

	// Initialize frame rate and DEBUG mode from environment
	config.InitFrameRate()
	config.InitDebugMode()

	cfg, err := config.Load(ConfigFile)
	if err != nil {
		log.Warn(fmt.Sprintf("failed to load config, using defaults: %v", err))
		cfg = config.DefaultConfig()
	}

	if err := os.MkdirAll(cfg.UploadsDir, 0755); err != nil {
		log.Warn(fmt.Sprintf("failed to create uploads directory: %v", err))
	}

	m := metrics.New()
	registry := camera.NewStatusRegistry()
	manager := camera.NewManager(registry, m, cfg.InferenceURL)

	webServer := service.NewWebServer(manager, m, cfg.UploadsDir, cfg.WebPort)

	// Setup signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := webServer.Start(); err != nil {
			log.Error(fmt.Sprintf("web server error: %v", err))
		}
	}()

	log.Info("fall detection system is running. Press Ctrl+C to stop.")
	log.Info(fmt.Sprintf("open http://localhost:%d in your browser", cfg.WebPort))
	<-sigChan

	log.Info("received shutdown signal, stopping...")

	// Stop all camera pipelines
	manager.StopAll()

	// Flush and close the async logger
	log.Close()
}
