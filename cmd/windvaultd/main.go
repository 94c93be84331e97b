package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/windvault/windvault/internal/buildinfo"
	"github.com/windvault/windvault/internal/config"
	"github.com/windvault/windvault/internal/daemon"
)

func main() {
	var showVersion bool
	var configPath string

	flag.BoolVar(&showVersion, "version", false, "print version and exit")
	flag.StringVar(&configPath, "config", "", "path to config file")
	flag.Parse()

	if showVersion {
		fmt.Println(buildinfo.String())
		return
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		// A missing config file is fine; defaults apply. Anything else is fatal.
		if !errors.Is(err, os.ErrNotExist) {
			log.Fatalf("windvaultd: %v", err)
		}
		cfg = config.DefaultConfig()
		if configPath != "" {
			cfg.ConfigPath = configPath
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := daemon.Run(ctx, cfg); err != nil {
		log.Fatalf("windvaultd: %v", err)
	}
}
