package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/yndnr/resonance-go/internal/agent"
	"github.com/yndnr/resonance-go/internal/agent/config"
	"github.com/yndnr/resonance-go/internal/infra/buildinfo"
	"github.com/yndnr/resonance-go/internal/infra/shutdown"
	"github.com/yndnr/resonance-go/internal/telemetry/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configFile  = flag.String("config", "", "Path to configuration file (default ~/.resonance/agent.yaml)")
		showVersion = flag.Bool("version", false, "Show version information")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("resonance-agent %s\n", buildinfo.String())
		return nil
	}

	cfg, err := config.Load(*configFile, nil)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: os.Stdout,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	logger.SetDefault(log)

	log.Info("starting resonance-agent",
		"version", buildinfo.String(),
		"config", *configFile,
		"socket", cfg.Gateway.SocketPath)

	path := *configFile
	if path == "" {
		if _, err := os.Stat(config.DefaultConfigFile()); err == nil {
			path = config.DefaultConfigFile()
		}
	}

	a, err := agent.New(cfg, path, log)
	if err != nil {
		return fmt.Errorf("init agent: %w", err)
	}

	startCtx, cancel := context.WithTimeout(context.Background(), 2*cfg.Network.Timeout)
	err = a.Start(startCtx)
	cancel()
	if err != nil {
		shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		_ = a.Shutdown(shutdownCtx)
		return err
	}

	handler := shutdown.NewHandler(shutdown.DefaultTimeout, log)
	handler.OnShutdown("agent", a.Shutdown)

	log.Info("agent started, press Ctrl+C to stop")
	if err := handler.Wait(context.Background()); err != nil {
		log.Error("shutdown error", "error", err)
		return err
	}

	log.Info("agent stopped")
	return nil
}
