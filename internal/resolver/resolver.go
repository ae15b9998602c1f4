package resolver

import (
	"context"
	"errors"
	"fmt"

	"multisearch/internal/catalog"
	"multisearch/internal/logger"
	"multisearch/internal/model"
	"multisearch/internal/pager"
	"multisearch/internal/search"
)

// ErrUnsupportedExportFormat is returned for any exportformat but csv.
var ErrUnsupportedExportFormat = errors.New("unsupported export format")

// ExportCSV is the only export format.
const ExportCSV = "csv"

// Deps are the collaborators a search runs against.
type Deps struct {
	Catalog catalog.Supplier
	Exec    pager.Executor
}

// Result is either a page or an export.
type Result struct {
	Mode         search.Mode
	Page         *pager.PageResult
	Export       *pager.RowSet
	ExportFormat string
}

// Columns returns the post-processed column list of whichever result is set.
func (r *Result) Columns() []string {
	switch {
	case r.Page != nil:
		return r.Page.Columns
	case r.Export != nil:
		return r.Export.Columns
	}
	return nil
}

// Run executes one search request against the definition m:
// classify, compile, assemble, count and fetch (or export), postprocess.
func Run(ctx context.Context, m *model.Model, params map[string]string, deps Deps) (*Result, error) {
	req := search.NormalizeRequest(params, m.IgnoredKeys())
	if req.ExportFormat != "" && req.ExportFormat != ExportCSV {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedExportFormat, req.ExportFormat)
	}

	fields, err := fieldsFor(ctx, m, deps.Catalog)
	if err != nil {
		return nil, err
	}

	compiled, err := search.Build(req, fields, m.SearchOptions())
	if err != nil {
		if errors.Is(err, search.ErrInvalidSearchParameters) {
			logger.Info("search_invalid_parameters", map[string]any{
				"model":  m.Name,
				"params": req.Keys(),
			})
		}
		return nil, err
	}

	logFields := map[string]any{
		"model":   m.Name,
		"mode":    compiled.Mode.String(),
		"clauses": len(compiled.Clauses),
		"source":  compiled.Query.Datasource,
	}
	proc := m.Processor()
	res := &Result{Mode: compiled.Mode}

	if req.ExportFormat != "" {
		rs, err := pager.Export(ctx, deps.Exec, compiled.Query, m.HardCap)
		if err != nil {
			logger.Error("search_export_failed", logger.With(logFields, map[string]any{"error": err.Error()}))
			return nil, err
		}
		rs.Columns = proc.Columns(rs.Columns)
		rs.Rows = proc.Process(rs.Rows)
		res.Export = &rs
		res.ExportFormat = req.ExportFormat
		logger.Info("search_export", logger.With(logFields, map[string]any{"rows": len(rs.Rows)}))
		return res, nil
	}

	page, err := pager.Execute(ctx, deps.Exec, compiled.Query, pager.ParsePage(req.Page), m.PageSize, m.HardCap)
	if err != nil {
		logger.Error("search_failed", logger.With(logFields, map[string]any{"error": err.Error()}))
		return nil, err
	}
	page.Columns = proc.Columns(page.Columns)
	page.Rows = proc.Process(page.Rows)
	res.Page = &page
	logger.Info("search", logger.With(logFields, map[string]any{
		"total":     page.TotalMatched,
		"page":      page.CurrentPage,
		"capped_at": page.CappedAt,
	}))
	return res, nil
}

// Count runs only the count part of a search.
func Count(ctx context.Context, m *model.Model, params map[string]string, deps Deps) (total, matched int, cappedAt *int, err error) {
	req := search.NormalizeRequest(params, m.IgnoredKeys())
	fields, err := fieldsFor(ctx, m, deps.Catalog)
	if err != nil {
		return 0, 0, nil, err
	}
	compiled, err := search.Build(req, fields, m.SearchOptions())
	if err != nil {
		return 0, 0, nil, err
	}
	return pager.Count(ctx, deps.Exec, compiled.Query, m.HardCap)
}

func fieldsFor(ctx context.Context, m *model.Model, sup catalog.Supplier) ([]catalog.FieldDescriptor, error) {
	if len(m.Fields) > 0 {
		return catalog.Static(m.Fields).GetFields(ctx, m.Database, m.Table)
	}
	if sup == nil {
		return nil, fmt.Errorf("resolver: no field catalog for %s", m.Name)
	}
	fields, err := sup.GetFields(ctx, m.Database, m.Table)
	if err != nil {
		return nil, fmt.Errorf("field catalog for %s: %w", m.Name, err)
	}
	return fields, nil
}
