package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/ytmproxy/internal/catalog"
	"github.com/desertthunder/ytmproxy/internal/resolver"
	"github.com/desertthunder/ytmproxy/internal/server"
)

// Serve starts the HTTP API and blocks until SIGINT or SIGTERM.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	config, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}

	serverCfg := config.Server
	if host := cmd.String("host"); host != "" {
		serverCfg.Host = host
	}
	if port := int(cmd.Int("port")); port > 0 {
		serverCfg.Port = port
	}

	var opts []resolver.Option
	db, journal, err := r.openJournal(config)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
		opts = append(opts, resolver.WithRecorder(journal))
		r.logger.Info("recording resolutions", "path", config.Database.Path)
	}

	pipeline, err := resolver.NewFromConfig(config, r.logger, opts...)
	if err != nil {
		return fmt.Errorf("failed to build resolver: %w", err)
	}
	r.logger.Info("resolver ready", "strategies", pipeline.Strategies(), "cache_ttl", config.Resolver.CacheTTL.Duration)

	router := server.NewRouter(server.Deps{
		Resolver: pipeline,
		Catalog:  catalog.New(config.Catalog, r.logger),
		Cache:    pipeline.Cache(),
		Logger:   r.logger,
		Config:   serverCfg,
	})

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return server.New(serverCfg, router, r.logger).Run(ctx)
}
