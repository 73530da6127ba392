package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/vvka-141/pgstage/internal/services"
	"github.com/vvka-141/pgstage/internal/typemap"
	"github.com/vvka-141/pgstage/pkg/pgstage"
)

// Output formats accepted by --output.
const (
	FormatTable    = "table"
	FormatMarkdown = "markdown"
	FormatCSV      = "csv"
)

// checksumPreview is how many hex digits of a file checksum a table shows.
const checksumPreview = 12

// ParseFormat validates an --output value. Empty means FormatTable.
func ParseFormat(s string) (string, error) {
	switch strings.ToLower(s) {
	case "", FormatTable:
		return FormatTable, nil
	case FormatMarkdown, "md":
		return FormatMarkdown, nil
	case FormatCSV:
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want table, markdown or csv): %w", s, pgstage.ErrInvalidConfig)
	}
}

func newWriter(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	return t
}

func render(t table.Writer, format string) {
	switch format {
	case FormatMarkdown:
		t.RenderMarkdown()
	case FormatCSV:
		t.RenderCSV()
	default:
		t.Render()
	}
}

func rightAligned(numbers ...int) []table.ColumnConfig {
	cfgs := make([]table.ColumnConfig, len(numbers))
	for i, n := range numbers {
		cfgs[i] = table.ColumnConfig{Number: n, Align: text.AlignRight, AlignFooter: text.AlignRight}
	}
	return cfgs
}

func shortChecksum(sum string) string {
	if len(sum) > checksumPreview {
		return sum[:checksumPreview]
	}
	return sum
}

// WriteRun prints the outcome of a load. A committed run gets one table of
// per-file counts; a rolled-back run gets the error and a statement that
// nothing was committed.
func WriteRun(w io.Writer, outcome pgstage.RunOutcome, format string) {
	if !outcome.Committed() {
		fmt.Fprintf(w, "Error: %v\n", outcome.Err)
		fmt.Fprintln(w, "No data was committed.")
		return
	}

	if len(outcome.Files) == 0 {
		fmt.Fprintln(w, "No files loaded.")
		return
	}

	t := newWriter(w)
	t.SetTitle("Run %s", outcome.RunID)
	t.AppendHeader(table.Row{"#", "File", "Table", "Batches", "Rows", "SHA-256", "Duration"})
	for i, f := range outcome.Files {
		t.AppendRow(table.Row{
			i + 1,
			f.File.Name,
			f.File.Table,
			f.Batches,
			f.RowsPromoted,
			shortChecksum(f.Checksum),
			f.Duration.Round(time.Millisecond),
		})
	}
	t.AppendFooter(table.Row{"", "Total", "", "", outcome.TotalRows(), "", outcome.Duration().Round(time.Millisecond)})
	t.SetColumnConfigs(rightAligned(1, 4, 5, 7))
	render(t, format)
}

// WriteCheck prints one row per checked file.
func WriteCheck(w io.Writer, report services.CheckReport, format string) {
	if len(report.Files) == 0 {
		fmt.Fprintln(w, "No files checked.")
		return
	}

	t := newWriter(w)
	t.AppendHeader(table.Row{"File", "Table", "Columns", "Rows", "Unmapped", "Status"})
	for _, fc := range report.Files {
		status := "ok"
		if !fc.OK() {
			status = fc.Err.Error()
		}
		t.AppendRow(table.Row{
			fc.File.Name,
			fc.File.Table,
			fc.Columns,
			fc.Rows,
			columnNames(fc.Unmapped),
			status,
		})
	}
	t.AppendFooter(table.Row{"Total", "", "", report.TotalRows(), "", fmt.Sprintf("%d failed", report.Failed())})
	t.SetColumnConfigs(append(rightAligned(3, 4), table.ColumnConfig{Number: 6, WidthMax: 80}))
	render(t, format)
}

// WritePlans prints how each column of each table would be parsed.
func WritePlans(w io.Writer, plans []typemap.Plan, format string) {
	for i, plan := range plans {
		if i > 0 && format == FormatTable {
			fmt.Fprintln(w)
		}

		t := newWriter(w)
		t.SetTitle(plan.Schema.QualifiedName().Sanitize())
		t.AppendHeader(table.Row{"#", "Column", "Declared type", "Tag", "Directive", "Nullable"})
		for j, col := range plan.Schema.Columns {
			t.AppendRow(table.Row{
				col.Position,
				col.Name,
				col.DeclaredType,
				col.Tag,
				plan.Directives[j],
				yesNo(col.Nullable),
			})
		}
		t.SetColumnConfigs(rightAligned(1))
		render(t, format)
	}
}

func columnNames(cols []pgstage.Column) string {
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	return strings.Join(names, ", ")
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
