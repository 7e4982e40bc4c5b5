// package formatter renders synced collections as CSV, Markdown, plain text, JSON or a terminal table
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/desertthunder/linesync/internal/models"
	"github.com/desertthunder/linesync/internal/shared"
)

// Format is an export file format.
type Format string

const (
	FormatJSON     Format = "json"
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "markdown"
	FormatText     Format = "txt"
)

// ParseFormat accepts json, csv, markdown (or md) and txt (or text).
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return FormatJSON, nil
	case "csv":
		return FormatCSV, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "txt", "text":
		return FormatText, nil
	default:
		return "", fmt.Errorf("%w: unknown format %q", shared.ErrInvalidFlag, s)
	}
}

// Extension returns the file extension for f, including the dot.
func (f Format) Extension() string {
	switch f {
	case FormatCSV:
		return ".csv"
	case FormatMarkdown:
		return ".md"
	case FormatText:
		return ".txt"
	default:
		return ".json"
	}
}

// Table is a titled grid of display strings built from a collection.
type Table struct {
	Title   string
	Headers []string
	Rows    [][]string
}

const timeLayout = "2006-01-02 15:04"

// CallsTable lays out call history with columns: Time, Direction, Contact, Number, Duration
func CallsTable(calls []models.CallRecord) Table {
	t := Table{Title: "Call history", Headers: []string{"Time", "Direction", "Contact", "Number", "Duration"}}
	for _, c := range calls {
		t.Rows = append(t.Rows, []string{
			formatTime(c.StartedAt),
			string(c.Direction),
			c.DisplayName(),
			c.Number,
			shared.FormatDuration(c.DurationSeconds),
		})
	}
	return t
}

// RecordingsTable lays out recordings with columns: Created, Number, Duration, URL
func RecordingsTable(recordings []models.Recording) Table {
	t := Table{Title: "Recordings", Headers: []string{"Created", "Number", "Duration", "URL"}}
	for _, r := range recordings {
		t.Rows = append(t.Rows, []string{
			formatTime(r.CreatedAt),
			r.Number,
			shared.FormatDuration(r.DurationSeconds),
			r.URL,
		})
	}
	return t
}

// NumbersTable lays out phone numbers with columns: Number, Country, Label, Kind
func NumbersTable(title string, numbers []models.PhoneNumber) Table {
	t := Table{Title: title, Headers: []string{"Number", "Country", "Label", "Kind"}}
	for _, n := range numbers {
		t.Rows = append(t.Rows, []string{n.Number, n.Country, n.Label, string(n.Kind)})
	}
	return t
}

// AccountTable lays out an account as field/value rows.
func AccountTable(a models.Account) Table {
	t := Table{Title: "Account", Headers: []string{"Field", "Value"}}
	add := func(field, value string) {
		if value != "" {
			t.Rows = append(t.Rows, []string{field, value})
		}
	}
	add("User ID", a.UserID)
	if a.AccountID != 0 {
		add("Account ID", strconv.FormatInt(a.AccountID, 10))
	}
	add("Email", a.Email)
	add("Name", a.Name)
	if a.Currency != "" || a.Balance != 0 {
		add("Balance", strings.TrimSpace(strconv.FormatFloat(a.Balance, 'f', 2, 64)+" "+a.Currency))
	}
	add("Source", string(a.Source))
	return t
}

// ExportToCSV converts a [Table] to CSV with a header row.
func ExportToCSV(t Table) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write(t.Headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, row := range t.Rows {
		if err := writer.Write(row); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown converts a [Table] to a Markdown document with a pipe table.
func ExportToMarkdown(t Table) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("# %s\n\n", t.Title))
	buf.WriteString(fmt.Sprintf("**Items**: %d\n\n", len(t.Rows)))

	if len(t.Rows) == 0 {
		buf.WriteString("_No items._\n")
		return buf.Bytes(), nil
	}

	buf.WriteString("| " + strings.Join(escapeCells(t.Headers), " | ") + " |\n")
	buf.WriteString("|" + strings.Repeat(" --- |", len(t.Headers)) + "\n")
	for _, row := range t.Rows {
		buf.WriteString("| " + strings.Join(escapeCells(row), " | ") + " |\n")
	}

	return buf.Bytes(), nil
}

// ExportToText converts a [Table] to numbered plain text lines.
func ExportToText(t Table) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("%s: %d\n\n", t.Title, len(t.Rows)))
	for i, row := range t.Rows {
		buf.WriteString(fmt.Sprintf("%d. %s\n", i+1, strings.Join(nonEmpty(row), " - ")))
	}

	return buf.Bytes(), nil
}

// Render encodes items in format f. JSON encodes items directly; the other formats render t.
func Render(f Format, t Table, items any) ([]byte, error) {
	switch f {
	case FormatCSV:
		return ExportToCSV(t)
	case FormatMarkdown:
		return ExportToMarkdown(t)
	case FormatText:
		return ExportToText(t)
	default:
		return shared.MarshalJSON(items, true)
	}
}

// WriteExport renders and writes one collection to dir/{name}{ext}, creating dir when needed.
func WriteExport(dir, name string, f Format, t Table, items any) (string, error) {
	data, err := Render(f, t, items)
	if err != nil {
		return "", fmt.Errorf("failed to render %s: %w", name, err)
	}

	if dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", fmt.Errorf("failed to create directory: %w", err)
		}
	}

	path := filepath.Join(dir, name+f.Extension())
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// RenderTable draws t for a terminal with rounded borders.
func RenderTable(t Table) string {
	tbl := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		Headers(t.Headers...).
		Rows(t.Rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	return tbl.Render()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format(timeLayout)
}

func escapeCells(cells []string) []string {
	out := make([]string, len(cells))
	for i, c := range cells {
		out[i] = strings.ReplaceAll(c, "|", `\|`)
	}
	return out
}

func nonEmpty(cells []string) []string {
	out := make([]string, 0, len(cells))
	for _, c := range cells {
		if c != "" && c != "-" {
			out = append(out, c)
		}
	}
	return out
}
