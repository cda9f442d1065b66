// Command registrar runs a standalone Registrar server: the in-memory
// directory actors register with and discover each other through
// (SPEC_FULL.md §4.10).
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/JeffersonLab/dift-sub001/internal/config"
	"github.com/JeffersonLab/dift-sub001/internal/registrar"
	"github.com/JeffersonLab/dift-sub001/public/actor"
)

func main() {
	var cfg *config.Config
	var configSource string

	if len(os.Args) >= 2 {
		configFile := os.Args[1]
		loaded, err := config.Load(configFile)
		if err != nil {
			log.Fatalf("Failed to load config from %s: %v", configFile, err)
		}
		cfg = loaded
		configSource = fmt.Sprintf("config file: %s", configFile)
	} else if _, err := os.Stat("config/registrar.yaml"); err == nil {
		loaded, err := config.Load("config/registrar.yaml")
		if err != nil {
			log.Printf("Warning: config/registrar.yaml exists but failed to load: %v", err)
			log.Printf("Using hardcoded defaults instead")
			cfg = config.Default()
			configSource = "hardcoded defaults (config/registrar.yaml failed to parse)"
		} else {
			cfg = loaded
			configSource = "config/registrar.yaml"
		}
	} else {
		cfg = config.Default()
		configSource = "hardcoded defaults"
	}

	log.Printf("Starting registrar using %s", configSource)
	if cfg.Debug {
		log.Printf("Debug enabled for app: %s", cfg.AppName)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	svcCtx := actor.NewContext(cfg.Registrar.IOThreads, cfg.Registrar.MaxSockets)
	svc := registrar.NewService(registrar.Config{
		Host:  cfg.Registrar.Host,
		Port:  cfg.Registrar.Port,
		Debug: cfg.Debug,
	}, svcCtx)

	done := make(chan error, 1)
	go func() { done <- svc.Start(ctx) }()

	log.Printf("Registrar listening: %s:%d", cfg.Registrar.Host, cfg.Registrar.Port)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		log.Printf("Received signal: %s, shutting down...", sig)
		cancel()
		select {
		case <-done:
			log.Println("Registrar shut down successfully")
		case <-time.After(10 * time.Second):
			log.Println("Shutdown timeout exceeded")
		}
	case err := <-done:
		if err != nil {
			log.Printf("Registrar service error: %v", err)
		}
	}
}
