package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/desertthunder/linesync/internal/formatter"
	"github.com/desertthunder/linesync/internal/shared"
	"github.com/desertthunder/linesync/internal/tasks"
	"github.com/urfave/cli/v3"
)

// SyncPreload loads every empty collection concurrently.
func (r *Runner) SyncPreload(ctx context.Context, cmd *cli.Command) error {
	if err := r.bootstrap(ctx); err != nil {
		return err
	}
	if err := r.requireAuth(); err != nil {
		return err
	}
	return r.reportResults(r.coordinator.PreloadAll(ctx))
}

// SyncRefresh refreshes the named collection, or every collection for "all".
func (r *Runner) SyncRefresh(ctx context.Context, cmd *cli.Command) error {
	name := cmd.StringArg("type")
	if name == "" {
		return fmt.Errorf("%w: collection type", shared.ErrMissingArgument)
	}
	resources, err := parseResources([]string{name}, nil)
	if err != nil {
		return err
	}

	if err := r.bootstrap(ctx); err != nil {
		return err
	}
	if err := r.requireAuth(); err != nil {
		return err
	}

	results := make(map[tasks.ResourceType]error, len(resources))
	for _, t := range resources {
		results[t] = r.coordinator.Refresh(ctx, t)
	}
	return r.reportResults(results)
}

// SyncStatus prints count, refresh age, staleness and last error per collection.
func (r *Runner) SyncStatus(ctx context.Context, cmd *cli.Command) error {
	if err := r.bootstrap(ctx); err != nil {
		return err
	}

	statuses := r.coordinator.Statuses()
	if cmd.Bool("json") {
		return r.writeJSON(statuses, true)
	}

	tbl := formatter.Table{Headers: []string{"Collection", "Items", "Updated", "Stale", "Last error"}}
	now := time.Now()
	for _, s := range statuses {
		tbl.Rows = append(tbl.Rows, []string{
			s.Resource.Label(),
			strconv.Itoa(s.Count),
			shared.FormatAge(now, s.LastRefreshedAt),
			strconv.FormatBool(s.Stale),
			s.LastError,
		})
	}
	r.writePlain("%s\n", formatter.RenderTable(tbl))
	r.writePlain("Refresh interval: %s\n", r.coordinator.Interval())
	return nil
}
