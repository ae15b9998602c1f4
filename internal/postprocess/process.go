package postprocess

import (
	"fmt"

	"multisearch/internal/pager"
)

// Processor strips and recodes columns after retrieval. Exclusion is not
// pushed into the SQL projection because excluded names may be display-only
// columns.
type Processor struct {
	Exclude []string
	// Show, when non-empty, keeps only these columns (after Exclude).
	Show []string
	// Codings maps column -> raw value -> display label.
	Codings map[string]map[string]string
}

func (p Processor) keep() func(string) bool {
	excluded := make(map[string]bool, len(p.Exclude))
	for _, c := range p.Exclude {
		excluded[c] = true
	}
	var shown map[string]bool
	if len(p.Show) > 0 {
		shown = make(map[string]bool, len(p.Show))
		for _, c := range p.Show {
			shown[c] = true
		}
	}
	return func(col string) bool {
		if excluded[col] {
			return false
		}
		return shown == nil || shown[col]
	}
}

// Columns filters a column list the same way Process filters rows.
func (p Processor) Columns(cols []string) []string {
	keep := p.keep()
	out := make([]string, 0, len(cols))
	for _, c := range cols {
		if keep(c) {
			out = append(out, c)
		}
	}
	return out
}

// Process returns new rows; the input rows are not modified. Each value is
// looked up once against the original row, so a label that happens to equal
// another key is never recoded again within the same call.
func (p Processor) Process(rows []pager.Row) []pager.Row {
	keep := p.keep()
	out := make([]pager.Row, len(rows))
	for i, row := range rows {
		next := make(pager.Row, len(row))
		for col, v := range row {
			if !keep(col) {
				continue
			}
			next[col] = p.code(col, v)
		}
		out[i] = next
	}
	return out
}

func (p Processor) code(col string, v any) any {
	table, ok := p.Codings[col]
	if !ok || v == nil {
		return v
	}
	if label, ok := table[Stringify(v)]; ok {
		return label
	}
	return v
}

// Stringify renders a database value for display and coding lookups.
func Stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	case fmt.Stringer:
		return x.String()
	}
	return fmt.Sprint(v)
}
