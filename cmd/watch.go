package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/linesync/internal/shared"
	"github.com/desertthunder/linesync/internal/ui"
	"github.com/urfave/cli/v3"
)

// Watch launches the interactive status dashboard with the background refresh loop running.
func (r *Runner) Watch(ctx context.Context, cmd *cli.Command) error {
	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger(r.config.Log.File)
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	shared.SetLogLevel(fileLogger, shared.ParseLogLevel(r.config.Log.Level))
	r.SetLogger(fileLogger)

	if err := r.bootstrap(ctx); err != nil {
		return err
	}
	if err := r.requireAuth(); err != nil {
		return err
	}

	model := ui.NewModel(ctx, r.coordinator)
	defer model.Close()

	if r.config.Sync.PreloadOnStart {
		go r.coordinator.PreloadAll(ctx)
	}
	r.coordinator.Start(ctx)
	defer r.coordinator.Stop()

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
