package tasks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/desertthunder/linesync/internal/formatter"
	"github.com/desertthunder/linesync/internal/shared"
)

// ExportOpts contains configuration for exporting collections to disk.
type ExportOpts struct {
	Format     formatter.Format // Export format: json, csv, markdown, txt
	OutputDir  string           // Base output directory (default: linesync_export_{epoch})
	Resources  []ResourceType   // Collections to export (default: all)
	Refresh    bool             // Refresh each collection before writing it
	NumWorkers int              // Concurrent writers (default: 4)
}

// ResourceExportResult is the outcome of exporting one collection.
type ResourceExportResult struct {
	Resource ResourceType `json:"resource"`
	Count    int          `json:"count"`
	File     string       `json:"file,omitempty"`
	Error    string       `json:"error,omitempty"`
}

// ExportResult summarizes an export run.
type ExportResult struct {
	OutputDirectory string                 `json:"output_directory"`
	Format          formatter.Format       `json:"format"`
	ExportedAt      time.Time              `json:"exported_at"`
	Results         []ResourceExportResult `json:"results"`
	Successful      int                    `json:"successful"`
	Failed          int                    `json:"failed"`
	ManifestPath    string                 `json:"-"`
}

// Export writes the requested collections concurrently and records a manifest.
//
// A failed collection does not stop the others. With Refresh set, a failed refresh still exports the
// previously cached items and the refresh error is recorded.
func (c *Coordinator) Export(ctx context.Context, opts ExportOpts) (*ExportResult, error) {
	if opts.Format == "" {
		opts.Format = formatter.FormatJSON
	}
	if opts.OutputDir == "" {
		opts.OutputDir = fmt.Sprintf("linesync_export_%d", c.now().Unix())
	}
	if len(opts.Resources) == 0 {
		opts.Resources = ResourceTypes()
	}
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 4
	}

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	jobs := make(chan ResourceType, len(opts.Resources))
	results := make(chan ResourceExportResult, len(opts.Resources))

	var wg sync.WaitGroup
	for range opts.NumWorkers {
		wg.Add(1)
		go c.exportWorker(ctx, &wg, jobs, results, opts)
	}

	for _, t := range opts.Resources {
		jobs <- t
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	result := &ExportResult{
		OutputDirectory: opts.OutputDir,
		Format:          opts.Format,
		ExportedAt:      c.now().UTC(),
	}
	for res := range results {
		result.Results = append(result.Results, res)
		if res.File != "" {
			result.Successful++
		} else {
			result.Failed++
		}
	}

	manifestPath := filepath.Join(opts.OutputDir, "export_manifest.json")
	data, err := shared.MarshalJSON(result, true)
	if err != nil {
		return result, fmt.Errorf("export completed but failed to encode manifest: %w", err)
	}
	if err := os.WriteFile(manifestPath, data, 0644); err != nil {
		return result, fmt.Errorf("export completed but failed to write manifest: %w", err)
	}
	result.ManifestPath = manifestPath
	return result, nil
}

// exportWorker exports collections from the jobs channel.
func (c *Coordinator) exportWorker(
	ctx context.Context,
	wg *sync.WaitGroup,
	jobs <-chan ResourceType,
	results chan<- ResourceExportResult,
	opts ExportOpts,
) {
	defer wg.Done()

	for t := range jobs {
		select {
		case <-ctx.Done():
			results <- ResourceExportResult{Resource: t, Error: ctx.Err().Error()}
			continue
		default:
		}
		results <- c.exportOne(ctx, t, opts)
	}
}

func (c *Coordinator) exportOne(ctx context.Context, t ResourceType, opts ExportOpts) ResourceExportResult {
	res := ResourceExportResult{Resource: t}

	var refreshErr error
	if opts.Refresh {
		refreshErr = c.Refresh(ctx, t)
	}

	tbl, items, count, err := c.table(t)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	res.Count = count

	path, err := formatter.WriteExport(opts.OutputDir, string(t), opts.Format, tbl, items)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	res.File = path

	if refreshErr != nil {
		res.Error = refreshErr.Error()
	}
	return res
}

// table returns the display table, raw items and count for t.
func (c *Coordinator) table(t ResourceType) (formatter.Table, any, int, error) {
	switch t {
	case Calls:
		s := c.Calls()
		return formatter.CallsTable(s.Items), s.Items, len(s.Items), nil
	case Recordings:
		s := c.Recordings()
		return formatter.RecordingsTable(s.Items), s.Items, len(s.Items), nil
	case PersonalNumbers:
		s := c.PersonalNumbers()
		return formatter.NumbersTable(t.Label(), s.Items), s.Items, len(s.Items), nil
	case PlatformNumbers:
		s := c.PlatformNumbers()
		return formatter.NumbersTable(t.Label(), s.Items), s.Items, len(s.Items), nil
	default:
		return formatter.Table{}, nil, 0, fmt.Errorf("%w: %q", shared.ErrUnknownResource, t)
	}
}

// Table returns the display table for t.
func (c *Coordinator) Table(t ResourceType) (formatter.Table, error) {
	tbl, _, _, err := c.table(t)
	return tbl, err
}

// Items returns the cached items of t as a typed slice.
func (c *Coordinator) Items(t ResourceType) (any, error) {
	_, items, _, err := c.table(t)
	return items, err
}
