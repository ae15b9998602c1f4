package postprocess

import (
	"encoding/csv"
	"io"
	"net/url"
	"sort"
	"strings"

	"multisearch/internal/pager"
)

// RowRenderer turns processed rows into display cells.
type RowRenderer interface {
	// Columns returns the output columns for the given result columns.
	Columns(cols []string) []string
	// Render returns one cell per entry of Columns(cols).
	Render(row pager.Row, cols []string) []string
}

// PlainRenderer prints every value as text.
type PlainRenderer struct{}

func (PlainRenderer) Columns(cols []string) []string {
	return cols
}

func (PlainRenderer) Render(row pager.Row, cols []string) []string {
	cells := make([]string, len(cols))
	for i, c := range cols {
		cells[i] = Stringify(row[c])
	}
	return cells
}

// LinkColumn is the column LinkRenderer appends.
const LinkColumn = "link"

// LinkRenderer appends a record link built from Template, in which %field is
// replaced by the URL-escaped value and %lower(field) by its lower-cased form.
type LinkRenderer struct {
	Template string
}

func (r LinkRenderer) Columns(cols []string) []string {
	out := make([]string, len(cols), len(cols)+1)
	copy(out, cols)
	return append(out, LinkColumn)
}

func (r LinkRenderer) Render(row pager.Row, cols []string) []string {
	return append(PlainRenderer{}.Render(row, cols), RecordLink(r.Template, row))
}

// RecordLink expands a record link template against row.
func RecordLink(template string, row pager.Row) string {
	keys := make([]string, 0, len(row))
	for k := range row {
		keys = append(keys, k)
	}
	// longest first so %title is not eaten by a %tit placeholder
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})

	link := template
	for _, k := range keys {
		v := Stringify(row[k])
		link = strings.ReplaceAll(link, "%lower("+k+")", url.QueryEscape(strings.ToLower(v)))
		link = strings.ReplaceAll(link, "%"+k, url.QueryEscape(v))
	}
	return link
}

// Renderer picks LinkRenderer when a template is configured.
func Renderer(recordLink string) RowRenderer {
	if recordLink == "" {
		return PlainRenderer{}
	}
	return LinkRenderer{Template: recordLink}
}

// Records renders rows as column -> cell maps.
func Records(rows []pager.Row, cols []string, r RowRenderer) []map[string]string {
	outCols := r.Columns(cols)
	out := make([]map[string]string, len(rows))
	for i, row := range rows {
		cells := r.Render(row, cols)
		rec := make(map[string]string, len(outCols))
		for j, c := range outCols {
			rec[c] = cells[j]
		}
		out[i] = rec
	}
	return out
}

// WriteCSV writes a header line (headings override column names) followed by
// one record per row.
func WriteCSV(w io.Writer, cols []string, headings map[string]string, rows []pager.Row, r RowRenderer) error {
	cw := csv.NewWriter(w)

	outCols := r.Columns(cols)
	header := make([]string, len(outCols))
	for i, c := range outCols {
		header[i] = c
		if label, ok := headings[c]; ok && label != "" {
			header[i] = label
		}
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, row := range rows {
		if err := cw.Write(r.Render(row, cols)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
