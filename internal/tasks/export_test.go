package tasks

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/desertthunder/linesync/internal/formatter"
	"github.com/desertthunder/linesync/internal/services"
	"github.com/desertthunder/linesync/internal/shared"
	tu "github.com/desertthunder/linesync/internal/testing"
)

func TestExport(t *testing.T) {
	ctx := context.Background()

	t.Run("writes every collection and a manifest", func(t *testing.T) {
		f := newFixture(t)
		for _, err := range f.coord.PreloadAll(ctx) {
			if err != nil {
				t.Fatalf("preload failed: %v", err)
			}
		}

		dir := filepath.Join(t.TempDir(), "out")
		result, err := f.coord.Export(ctx, ExportOpts{Format: formatter.FormatCSV, OutputDir: dir, NumWorkers: 2})
		if err != nil {
			t.Fatalf("Export failed: %v", err)
		}

		if result.Successful != 4 || result.Failed != 0 {
			t.Errorf("expected 4 successful and 0 failed, got %d and %d", result.Successful, result.Failed)
		}
		if len(result.Results) != 4 {
			t.Fatalf("expected 4 results, got %d", len(result.Results))
		}

		for _, rt := range ResourceTypes() {
			tu.AssertFileExists(t, filepath.Join(dir, string(rt)+".csv"))
		}

		calls := tu.MustReadFile(t, filepath.Join(dir, "calls.csv"))
		if lines := strings.Split(strings.TrimSpace(calls), "\n"); len(lines) != 3 {
			t.Errorf("expected header and 2 rows, got %d lines:\n%s", len(lines), calls)
		}

		var manifest ExportResult
		if err := json.Unmarshal([]byte(tu.MustReadFile(t, result.ManifestPath)), &manifest); err != nil {
			t.Fatalf("manifest is not valid JSON: %v", err)
		}
		if manifest.Format != formatter.FormatCSV {
			t.Errorf("expected manifest format csv, got %s", manifest.Format)
		}
		if manifest.Successful != 4 {
			t.Errorf("expected manifest successful 4, got %d", manifest.Successful)
		}
	})

	t.Run("refresh failure still exports cached items", func(t *testing.T) {
		f := newFixture(t)
		if err := f.coord.Refresh(ctx, Calls); err != nil {
			t.Fatalf("Refresh failed: %v", err)
		}
		f.source.setErr(services.FamilyCalls, shared.ErrAllEndpointsExhausted)

		result, err := f.coord.Export(ctx, ExportOpts{
			OutputDir: t.TempDir(),
			Resources: []ResourceType{Calls},
			Refresh:   true,
		})
		if err != nil {
			t.Fatalf("Export failed: %v", err)
		}

		got := result.Results[0]
		if got.File == "" {
			t.Fatal("expected a file to be written")
		}
		if got.Count != 2 {
			t.Errorf("expected 2 cached items, got %d", got.Count)
		}
		if !strings.Contains(got.Error, "all endpoints exhausted") {
			t.Errorf("expected refresh error to be recorded, got %q", got.Error)
		}
		if f.source.count(services.FamilyCalls) != 2 {
			t.Errorf("expected a second fetch, got %d", f.source.count(services.FamilyCalls))
		}
	})

	t.Run("unknown resource is recorded as failed", func(t *testing.T) {
		f := newFixture(t)

		result, err := f.coord.Export(ctx, ExportOpts{
			OutputDir: t.TempDir(),
			Resources: []ResourceType{Calls, ResourceType("voicemail")},
		})
		if err != nil {
			t.Fatalf("Export failed: %v", err)
		}
		if result.Successful != 1 || result.Failed != 1 {
			t.Errorf("expected 1 successful and 1 failed, got %d and %d", result.Successful, result.Failed)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		f := newFixture(t)
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		result, err := f.coord.Export(cctx, ExportOpts{OutputDir: t.TempDir()})
		if err != nil {
			t.Fatalf("Export failed: %v", err)
		}
		if result.Failed != 4 {
			t.Errorf("expected all 4 to fail, got %d", result.Failed)
		}
		tu.AssertFileExists(t, result.ManifestPath)
	})
}
