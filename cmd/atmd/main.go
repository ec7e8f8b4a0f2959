// Command atmd is the background daemon that tracks every active
// Claude Code session on the machine and broadcasts consolidated views
// to connected terminal clients over a local Unix socket.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/damelLP/atmd/internal/config"
	"github.com/damelLP/atmd/internal/discovery"
	"github.com/damelLP/atmd/internal/logging"
	"github.com/damelLP/atmd/internal/procmon"
	"github.com/damelLP/atmd/internal/registry"
	"github.com/damelLP/atmd/internal/server"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (defaults to ~/.config/atmd/config.yaml)")
	socketPath := flag.String("socket", "", "Override the Unix socket path")
	flag.Parse()

	cfgPath := *configPath
	if cfgPath == "" {
		cfgPath = config.DefaultConfigPath()
	}

	cfg, err := config.LoadOrDefault(cfgPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}
	if *socketPath != "" {
		cfg.Socket.Path = *socketPath
	}

	logger, err := logging.New(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	handle, events := registry.Spawn(ctx, logging.Component(logger, "registry"), discovery.CheckLiveness)

	disc := discovery.New(handle, cfg.Discovery.ToDiscoveryConfig(), logging.Component(logger, "discovery"))
	go disc.Run(ctx)

	mon, err := procmon.New(int32(os.Getpid()), cfg.Process.ToThresholds(), logging.Component(logger, "procmon"))
	if err != nil {
		logger.Warn("self-monitoring unavailable", zap.Error(err))
	} else {
		go mon.Run(ctx)
	}

	srv := server.New(handle, logging.Component(logger, "server"), cfg.Privacy.NewPrivacyFilter(), disc.ScanOnce)
	if err := srv.Listen(cfg.Socket.Path); err != nil {
		logger.Fatal("binding socket", zap.String("path", cfg.Socket.Path), zap.Error(err))
	}
	logger.Info("atmd listening", zap.String("socket", cfg.Socket.Path))

	serveErrCh := make(chan error, 1)
	go func() {
		serveErrCh <- srv.Serve(ctx, events)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		logger.Info("shutting down")
		cancel()
		srv.Close()
		os.Remove(cfg.Socket.Path)
	case err := <-serveErrCh:
		if err != nil {
			logger.Error("server exited", zap.Error(err))
		}
		cancel()
		os.Remove(cfg.Socket.Path)
	}
}
