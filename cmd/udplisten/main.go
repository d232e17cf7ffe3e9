package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/cjeanneret/snapcam/internal/config"
	"github.com/cjeanneret/snapcam/internal/datagram"
	"github.com/cjeanneret/snapcam/internal/debug"
)

func main() {
	cfgPath := flag.String("config", "", "path to a YAML config file; empty uses compiled-in defaults")
	addr := flag.String("addr", "", "override the listen address (host:port)")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("load config failed: %v", err)
	}
	debug.Init(cfg.Defaults.DebugLevel)

	listenAddr := cfg.Listener.Addr
	if *addr != "" {
		listenAddr = *addr
	}

	logger, err := datagram.Listen(listenAddr, os.Stdout, cfg.Listener.BufferSize)
	if err != nil {
		log.Fatalf("%v", err)
	}
	if err := logger.Run(ctx); err != nil {
		log.Fatalf("datagram logger: %v", err)
	}
}
