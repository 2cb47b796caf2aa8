// Package output provides standardized formatting for the engine's
// optional structured run-report output, keeping the fmt-to-stdout
// formatting in one place.
package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
)

// TableWriter builds a run-summary table row by row before rendering
// it in one pass, so callers don't need to pre-compute column widths.
type TableWriter struct {
	writer     *tabwriter.Writer
	headers    []string
	rows       [][]string
	separator  string
	showBorder bool
}

// NewTable creates a table writer that renders to stdout.
func NewTable() *TableWriter {
	return NewTableTo(os.Stdout)
}

// NewTableTo creates a table writer that renders to w.
func NewTableTo(w io.Writer) *TableWriter {
	return &TableWriter{
		writer:     tabwriter.NewWriter(w, 0, 0, 2, ' ', 0),
		separator:  "-",
		showBorder: true,
	}
}

// WithHeaders sets the column headers.
func (t *TableWriter) WithHeaders(headers ...string) *TableWriter {
	t.headers = headers
	return t
}

// WithSeparator sets the rule character drawn above and below the header
// row.
func (t *TableWriter) WithSeparator(sep string) *TableWriter {
	t.separator = sep
	return t
}

// WithBorder controls whether the header rule is drawn at all.
func (t *TableWriter) WithBorder(show bool) *TableWriter {
	t.showBorder = show
	return t
}

// AddRow appends one row of column values.
func (t *TableWriter) AddRow(values ...string) *TableWriter {
	t.rows = append(t.rows, values)
	return t
}

// AddRows appends every row in rows, in order.
func (t *TableWriter) AddRows(rows [][]string) *TableWriter {
	t.rows = append(t.rows, rows...)
	return t
}

// Render writes the accumulated headers and rows, tab-aligned, flushing
// the underlying tabwriter.
func (t *TableWriter) Render() error {
	if t.showBorder && len(t.headers) > 0 {
		totalWidth := 0
		for _, h := range t.headers {
			totalWidth += len(h) + 4
		}
		fmt.Fprintln(t.writer, strings.Repeat(t.separator, totalWidth))
	}

	if len(t.headers) > 0 {
		fmt.Fprintln(t.writer, strings.Join(t.headers, "\t"))
		if t.showBorder {
			separators := make([]string, len(t.headers))
			for i, h := range t.headers {
				separators[i] = strings.Repeat(t.separator, len(h))
			}
			fmt.Fprintln(t.writer, strings.Join(separators, "\t"))
		}
	}

	for _, row := range t.rows {
		fmt.Fprintln(t.writer, strings.Join(row, "\t"))
	}

	return t.writer.Flush()
}
