package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/linesync/internal/formatter"
	"github.com/desertthunder/linesync/internal/shared"
	"github.com/desertthunder/linesync/internal/tasks"
	"github.com/urfave/cli/v3"
)

// CallsList prints call history.
func (r *Runner) CallsList(ctx context.Context, cmd *cli.Command) error {
	return r.listCollection(ctx, cmd, tasks.Calls)
}

// RecordingsList prints call recordings.
func (r *Runner) RecordingsList(ctx context.Context, cmd *cli.Command) error {
	return r.listCollection(ctx, cmd, tasks.Recordings)
}

// NumbersList prints personal numbers, or platform numbers with --platform.
func (r *Runner) NumbersList(ctx context.Context, cmd *cli.Command) error {
	if cmd.Bool("platform") {
		return r.listCollection(ctx, cmd, tasks.PlatformNumbers)
	}
	return r.listCollection(ctx, cmd, tasks.PersonalNumbers)
}

// listCollection loads t from the cache, fetching when empty or when --refresh is set.
// A failed fetch still prints previously cached items.
func (r *Runner) listCollection(ctx context.Context, cmd *cli.Command, t tasks.ResourceType) error {
	if err := r.bootstrap(ctx); err != nil {
		return err
	}
	if err := r.requireAuth(); err != nil {
		return err
	}

	var err error
	if cmd.Bool("refresh") {
		err = r.coordinator.Refresh(ctx, t)
	} else {
		err = r.coordinator.LoadIfEmpty(ctx, t)
	}

	status, statusErr := r.coordinator.Status(t)
	if statusErr != nil {
		return statusErr
	}
	if err != nil {
		if status.Count == 0 {
			return err
		}
		r.logger.Warn("showing cached items", "resource", t, "error", err)
	}

	return r.printCollection(cmd.String("format"), t, status)
}

func (r *Runner) printCollection(format string, t tasks.ResourceType, status tasks.Status) error {
	tbl, err := r.coordinator.Table(t)
	if err != nil {
		return err
	}

	if strings.EqualFold(format, "table") || format == "" {
		r.writePlain("%s\n", formatter.RenderTable(tbl))
		r.writePlain("%d items · updated %s\n", status.Count, shared.FormatAge(time.Now(), status.LastRefreshedAt))
		return nil
	}

	f, err := formatter.ParseFormat(format)
	if err != nil {
		return err
	}
	items, err := r.coordinator.Items(t)
	if err != nil {
		return err
	}
	data, err := formatter.Render(f, tbl, items)
	if err != nil {
		return err
	}
	if _, err := r.output.Write(data); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

// CallsExport writes collections to disk concurrently and records a manifest.
func (r *Runner) CallsExport(ctx context.Context, cmd *cli.Command) error {
	if err := r.bootstrap(ctx); err != nil {
		return err
	}
	if err := r.requireAuth(); err != nil {
		return err
	}

	f, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}
	resources, err := parseResources(cmd.StringSlice("resource"), []tasks.ResourceType{tasks.Calls})
	if err != nil {
		return err
	}

	if !cmd.Bool("refresh") {
		for _, t := range resources {
			if err := r.coordinator.LoadIfEmpty(ctx, t); err != nil {
				r.logger.Warn("failed to load collection", "resource", t, "error", err)
			}
		}
	}

	result, err := r.coordinator.Export(ctx, tasks.ExportOpts{
		Format:     f,
		OutputDir:  cmd.String("output"),
		Resources:  resources,
		Refresh:    cmd.Bool("refresh"),
		NumWorkers: cmd.Int("workers"),
	})
	if err != nil {
		return err
	}

	r.writePlainHeader("Export Complete")
	r.writePlain("Output directory: %s\n", result.OutputDirectory)
	r.writePlain("Format: %s\n", result.Format)
	r.writePlain("Successful: %d, Failed: %d\n", result.Successful, result.Failed)
	for _, res := range result.Results {
		switch {
		case res.File == "":
			r.writePlain("  ✗ %s: %s\n", res.Resource.Label(), res.Error)
		case res.Error != "":
			r.writePlain("  ! %s → %s (%d items, cached: %s)\n", res.Resource.Label(), res.File, res.Count, res.Error)
		default:
			r.writePlain("  ✓ %s → %s (%d items)\n", res.Resource.Label(), res.File, res.Count)
		}
	}
	r.writePlain("Manifest: %s\n", result.ManifestPath)

	if result.Failed > 0 {
		return fmt.Errorf("%d of %d collections failed to export", result.Failed, len(result.Results))
	}
	return nil
}

// parseResources maps names to resource types; "all" expands to every type.
func parseResources(names []string, fallback []tasks.ResourceType) ([]tasks.ResourceType, error) {
	if len(names) == 0 {
		return fallback, nil
	}

	var out []tasks.ResourceType
	seen := map[tasks.ResourceType]bool{}
	for _, name := range names {
		if strings.EqualFold(strings.TrimSpace(name), "all") {
			return tasks.ResourceTypes(), nil
		}
		t, err := tasks.ParseResourceType(name)
		if err != nil {
			return nil, err
		}
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out, nil
}
