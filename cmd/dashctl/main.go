package main

import (
	"context"
	"os"

	"github.com/betjuliano/sefa-dashboard/internal/backend"
	"github.com/betjuliano/sefa-dashboard/internal/cli"
	"github.com/betjuliano/sefa-dashboard/internal/config"
	"github.com/betjuliano/sefa-dashboard/internal/local"
	"github.com/betjuliano/sefa-dashboard/internal/logging"
)

func main() {
	ctx := context.Background()

	cfg := config.LoadConfig()
	log := logging.NewDefault()

	engine, err := local.NewEngine(cfg, log)
	if err != nil {
		log.Error(ctx, "storage initialization failed", "error", err)
		os.Exit(1)
	}

	var remote backend.Remote
	if cfg.RemoteConfigured() {
		remote = backend.NewHTTPRemote(cfg.RemoteURL, cfg.RemoteKey)
		defer remote.Close()
	}

	coord := backend.NewCoordinator(cfg, engine, remote, log)

	app := cli.NewApp(coord, os.Stdin, os.Stdout)
	app.Run(ctx)
}
