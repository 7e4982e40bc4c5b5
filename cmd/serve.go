package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/desertthunder/linesync/internal/server"
	"github.com/urfave/cli/v3"
)

// Serve runs the status server and the background refresh loop until interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	if err := r.bootstrap(ctx); err != nil {
		return err
	}
	if err := r.requireAuth(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if r.config.Sync.PreloadOnStart {
		for t, err := range r.coordinator.PreloadAll(ctx) {
			if err != nil {
				r.logger.Warn("preload failed", "resource", t, "error", err)
			}
		}
	}

	r.coordinator.Start(ctx)
	defer r.coordinator.Stop()

	addr := cmd.String("addr")
	if addr == "" {
		addr = r.config.Server.Addr()
	}
	router := server.NewRouter(r.logger, []server.Handler{server.NewStatusHandler(r.coordinator, r.logger)})
	return server.New(addr, router, r.logger).Run(ctx)
}
