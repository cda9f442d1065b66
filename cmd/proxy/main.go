// Command proxy runs a standalone Proxy server: the topic-based
// message router actors publish to and subscribe through
// (SPEC_FULL.md §4.9).
//
// Configuration Loading Strategy:
// 1. Command line argument: uses the specified config file path.
// 2. Default file: attempts to load config/proxy.yaml.
// 3. Hardcoded defaults: falls back to config.Default().
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
	"github.com/JeffersonLab/dift-sub001/internal/proxy"
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
	} else if _, err := os.Stat("config/proxy.yaml"); err == nil {
		loaded, err := config.Load("config/proxy.yaml")
		if err != nil {
			log.Printf("Warning: config/proxy.yaml exists but failed to load: %v", err)
			log.Printf("Using hardcoded defaults instead")
			cfg = config.Default()
			configSource = "hardcoded defaults (config/proxy.yaml failed to parse)"
		} else {
			cfg = loaded
			configSource = "config/proxy.yaml"
		}
	} else {
		cfg = config.Default()
		configSource = "hardcoded defaults"
	}

	log.Printf("Starting proxy using %s", configSource)
	if cfg.Debug {
		log.Printf("Debug enabled for app: %s", cfg.AppName)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	svcCtx := actor.NewContext(cfg.Proxy.IOThreads, cfg.Proxy.MaxSockets)
	svc := proxy.NewService(proxy.Config{
		Host:        cfg.Proxy.Host,
		PubPort:     cfg.Proxy.PubPort,
		SubPort:     cfg.Proxy.SubPort,
		ControlPort: cfg.Proxy.ControlPort,
		Debug:       cfg.Debug,
	}, svcCtx)

	done := make(chan error, 1)
	go func() { done <- svc.Start(ctx) }()

	log.Printf("Proxy listening: pub=%s:%d sub=%s:%d control=%s:%d",
		cfg.Proxy.Host, cfg.Proxy.PubPort,
		cfg.Proxy.Host, cfg.Proxy.SubPort,
		cfg.Proxy.Host, cfg.Proxy.ControlPort)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		log.Printf("Received signal: %s, shutting down...", sig)
		cancel()
		select {
		case <-done:
			log.Println("Proxy shut down successfully")
		case <-time.After(10 * time.Second):
			log.Println("Shutdown timeout exceeded")
		}
	case err := <-done:
		if err != nil {
			log.Printf("Proxy service error: %v", err)
		}
	}
}
