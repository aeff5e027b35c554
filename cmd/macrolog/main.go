// Macrolog - Offline-first nutrition and exercise tracking
//
// Log meals and workouts locally and sync them to your account across
// devices. Local writes never wait on the network.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/macrolog/macrolog/internal/cli"
	"github.com/macrolog/macrolog/internal/config"
	"github.com/macrolog/macrolog/internal/db"
	"github.com/macrolog/macrolog/internal/log"
	"github.com/macrolog/macrolog/internal/telemetry"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	// Load config and open database for persistent tracking ID
	cfg, err := config.Load()
	if err != nil {
		os.Exit(1)
	}

	paths := config.GetPaths(cfg)
	if err := log.Init(paths.Logs); err != nil {
		os.Exit(1)
	}
	defer func() { _ = log.Close() }()

	database, err := db.New(db.DefaultConfig(paths.Database))
	if err != nil {
		os.Exit(1)
	}
	defer func() {
		_ = database.Close()
	}()

	// Use persistent tracking ID from database
	telemetryClient := telemetry.New(database)
	defer telemetryClient.Close()

	if err := cli.Execute(ctx, telemetryClient); err != nil {
		os.Exit(1)
	}
}
