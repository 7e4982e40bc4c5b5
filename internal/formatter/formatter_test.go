package formatter

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/linesync/internal/models"
	"github.com/desertthunder/linesync/internal/shared"
	th "github.com/desertthunder/linesync/internal/testing"
)

func sampleCalls() []models.CallRecord {
	return []models.CallRecord{
		{
			ID:              "c1",
			ContactName:     "Ada",
			Number:          "+442079460000",
			Direction:       models.DirectionInbound,
			StartedAt:       time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
			DurationSeconds: 75,
		},
		{
			ID:              "c2",
			Number:          "+15550001111",
			Direction:       models.DirectionMissed,
			DurationSeconds: 0,
		},
	}
}

func TestExporters(t *testing.T) {
	t.Run("ExportToCSV", func(t *testing.T) {
		data, err := ExportToCSV(CallsTable(sampleCalls()))
		if err != nil {
			t.Fatalf("ExportToCSV failed: %v", err)
		}

		output := string(data)
		if !strings.Contains(output, "Time,Direction,Contact,Number,Duration") {
			t.Errorf("CSV missing headers, got: %s", output)
		}
		if !strings.Contains(output, "inbound,Ada,+442079460000,1:15") {
			t.Errorf("CSV missing first call, got: %s", output)
		}
		if !strings.Contains(output, "-,missed,+15550001111,+15550001111,0:00") {
			t.Errorf("CSV should fall back to number for contact, got: %s", output)
		}
	})

	t.Run("ExportToMarkdown", func(t *testing.T) {
		t.Run("with rows", func(t *testing.T) {
			data, err := ExportToMarkdown(NumbersTable("My numbers", []models.PhoneNumber{
				{Number: "+442079460000", Country: "GB", Label: "Office | Main", Kind: models.NumberPersonal},
			}))
			if err != nil {
				t.Fatalf("ExportToMarkdown failed: %v", err)
			}

			output := string(data)
			if !strings.Contains(output, "# My numbers") {
				t.Errorf("Markdown missing title")
			}
			if !strings.Contains(output, "**Items**: 1") {
				t.Errorf("Markdown missing count")
			}
			if !strings.Contains(output, "| Number | Country | Label | Kind |") {
				t.Errorf("Markdown missing header row, got: %s", output)
			}
			if !strings.Contains(output, `Office \| Main`) {
				t.Errorf("Markdown should escape pipes, got: %s", output)
			}
		})

		t.Run("empty", func(t *testing.T) {
			data, err := ExportToMarkdown(RecordingsTable(nil))
			if err != nil {
				t.Fatalf("ExportToMarkdown failed: %v", err)
			}
			if !strings.Contains(string(data), "_No items._") {
				t.Errorf("Markdown should note empty table, got: %s", data)
			}
		})
	})

	t.Run("ExportToText", func(t *testing.T) {
		data, err := ExportToText(RecordingsTable([]models.Recording{
			{ID: "r1", Number: "+15550001111", URL: "https://x/r1.mp3", DurationSeconds: 3661},
		}))
		if err != nil {
			t.Fatalf("ExportToText failed: %v", err)
		}

		output := string(data)
		if !strings.Contains(output, "Recordings: 1") {
			t.Errorf("Text missing count, got: %s", output)
		}
		if !strings.Contains(output, "1. +15550001111 - 1:01:01 - https://x/r1.mp3") {
			t.Errorf("Text missing row, got: %s", output)
		}
	})

	t.Run("AccountTable", func(t *testing.T) {
		tbl := AccountTable(models.Account{UserID: "u-1", AccountID: 42, Balance: 3.5, Currency: "EUR", Source: models.AccountFromAPI})
		want := [][]string{{"User ID", "u-1"}, {"Account ID", "42"}, {"Balance", "3.50 EUR"}, {"Source", "api"}}
		if len(tbl.Rows) != len(want) {
			t.Fatalf("expected %d rows, got %v", len(want), tbl.Rows)
		}
		for i := range want {
			if tbl.Rows[i][0] != want[i][0] || tbl.Rows[i][1] != want[i][1] {
				t.Errorf("row %d: expected %v, got %v", i, want[i], tbl.Rows[i])
			}
		}
	})

	t.Run("RenderTable", func(t *testing.T) {
		out := RenderTable(CallsTable(sampleCalls()))
		if !strings.Contains(out, "Direction") || !strings.Contains(out, "+15550001111") {
			t.Errorf("terminal table missing content, got: %s", out)
		}
	})
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in   string
		want Format
	}{
		{"", FormatJSON},
		{"JSON", FormatJSON},
		{"csv", FormatCSV},
		{"md", FormatMarkdown},
		{"markdown", FormatMarkdown},
		{"text", FormatText},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if err != nil {
			t.Errorf("ParseFormat(%q) failed: %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ParseFormat(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}

	if _, err := ParseFormat("xml"); !errors.Is(err, shared.ErrInvalidFlag) {
		t.Errorf("expected ErrInvalidFlag, got %v", err)
	}
}

func TestWriteExport(t *testing.T) {
	t.Run("json", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "nested")
		calls := sampleCalls()

		path, err := WriteExport(dir, "calls", FormatJSON, CallsTable(calls), calls)
		if err != nil {
			t.Fatalf("WriteExport failed: %v", err)
		}

		th.AssertFileExists(t, path)
		if filepath.Base(path) != "calls.json" {
			t.Errorf("expected calls.json, got %s", path)
		}

		var got []models.CallRecord
		if err := json.Unmarshal([]byte(th.MustReadFile(t, path)), &got); err != nil {
			t.Fatalf("export is not valid JSON: %v", err)
		}
		if len(got) != 2 || got[0].ID != "c1" {
			t.Errorf("unexpected export content: %+v", got)
		}
	})

	t.Run("csv", func(t *testing.T) {
		dir := t.TempDir()
		path, err := WriteExport(dir, "numbers", FormatCSV, NumbersTable("Numbers", nil), nil)
		if err != nil {
			t.Fatalf("WriteExport failed: %v", err)
		}
		if !strings.HasSuffix(path, ".csv") {
			t.Errorf("expected .csv extension, got %s", path)
		}
		if content := th.MustReadFile(t, path); !strings.HasPrefix(content, "Number,Country,Label,Kind") {
			t.Errorf("unexpected CSV content: %s", content)
		}
	})

	t.Run("unwritable directory", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "file")
		if err := os.WriteFile(file, []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
		if _, err := WriteExport(file, "calls", FormatText, CallsTable(nil), nil); err == nil {
			t.Error("expected error when directory is a file")
		}
	})
}
