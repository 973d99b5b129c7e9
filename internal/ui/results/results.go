// Package results renders statement results for the terminal and for
// machine-readable output.
package results

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/cockroachdb/errors"
	"github.com/mattn/go-runewidth"

	"github.com/sadopc/toydb/internal/catalogerr"
	"github.com/sadopc/toydb/internal/session"
	"github.com/sadopc/toydb/internal/theme"
)

// Format selects how a result is written.
type Format string

const (
	FormatTSV   Format = "tsv"
	FormatTable Format = "table"
	FormatCSV   Format = "csv"
	FormatJSON  Format = "json"
)

// Formats lists the accepted output formats.
var Formats = []Format{FormatTSV, FormatTable, FormatCSV, FormatJSON}

// ParseFormat validates an output format name.
func ParseFormat(name string) (Format, error) {
	for _, f := range Formats {
		if strings.EqualFold(name, string(f)) {
			return f, nil
		}
	}
	return "", errors.WithHint(
		errors.Newf("unknown output format %q", name),
		"use tsv, table, csv or json",
	)
}

// MaxCellWidth bounds the display width of a table cell.
const MaxCellWidth = 40

// Write writes res to w in format f. th styles the table format and may be
// nil for the others.
func Write(w io.Writer, f Format, res *session.Result, th *theme.Theme) error {
	if res == nil {
		return nil
	}
	switch f {
	case FormatTable:
		_, err := fmt.Fprintln(w, RenderTable(res, th, MaxCellWidth))
		return err
	case FormatCSV:
		return WriteCSV(w, res)
	case FormatJSON:
		return WriteJSON(w, res)
	default:
		return WriteTSV(w, res)
	}
}

// WriteTSV writes one line per row with cells separated by tabs. A result
// without columns writes its message instead.
func WriteTSV(w io.Writer, res *session.Result) error {
	if len(res.Columns) == 0 {
		if res.Message == "" {
			return nil
		}
		_, err := fmt.Fprintln(w, res.Message)
		return err
	}
	for _, row := range res.Rows {
		if _, err := fmt.Fprintln(w, strings.Join(row, "\t")); err != nil {
			return err
		}
	}
	return nil
}

// RenderTable draws res as a bordered table with a row count footer.
// Cells wider than maxWidth are truncated; maxWidth <= 0 disables it. A
// result without columns renders as its message.
func RenderTable(res *session.Result, th *theme.Theme, maxWidth int) string {
	if th == nil {
		th = theme.Default()
	}
	if len(res.Columns) == 0 {
		return th.SuccessText.Render(res.Message)
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(th.ResultsBorder).
		Headers(res.Columns...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return th.ResultsHeader
			}
			return th.ResultsCell
		})
	for _, row := range res.Rows {
		t.Row(truncateRow(row, maxWidth)...)
	}

	return t.Render() + "\n" + footer(len(res.Rows), th)
}

func footer(n int, th *theme.Theme) string {
	switch n {
	case 0:
		return th.ResultsEmpty.Render("(0 rows)")
	case 1:
		return th.MutedText.Render("(1 row)")
	default:
		return th.MutedText.Render(fmt.Sprintf("(%d rows)", n))
	}
}

func truncateRow(row []string, maxWidth int) []string {
	if maxWidth <= 0 {
		return row
	}
	out := make([]string, len(row))
	for i, cell := range row {
		out[i] = runewidth.Truncate(cell, maxWidth, "…")
	}
	return out
}

// RenderError formats err as an "ERROR:" line followed by one "hint:" line
// per hint attached to it.
func RenderError(err error, th *theme.Theme) string {
	if th == nil {
		th = theme.Default()
	}
	var b strings.Builder
	b.WriteString(th.ErrorText.Render("ERROR: " + err.Error()))
	for _, h := range catalogerr.Hints(err) {
		b.WriteByte('\n')
		b.WriteString(th.HintText.Render("hint: " + h))
	}
	return b.String()
}
