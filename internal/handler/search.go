package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"multisearch/internal/logger"
	"multisearch/internal/model"
	"multisearch/internal/pager"
	"multisearch/internal/postprocess"
	"multisearch/internal/resolver"
	"multisearch/internal/search"
)

// Backend holds the collaborators every search runs against. It is set once
// at startup.
var Backend resolver.Deps

// ModelKey selects the search definition; it never reaches the search itself.
const ModelKey = "model"

type SearchResponse struct {
	Description  string              `json:"description"`
	Mode         string              `json:"mode"`
	Summary      string              `json:"summary"`
	Total        int                 `json:"total"`
	TotalMatched int                 `json:"total_matched"`
	TotalPages   int                 `json:"total_pages"`
	Page         int                 `json:"page"`
	CappedAt     *int                `json:"capped_at,omitempty"`
	Columns      []string            `json:"columns"`
	Rows         []map[string]string `json:"rows"`
}

type errorResponse struct {
	Error string `json:"error"`
	Link  string `json:"link,omitempty"`
}

// SearchHandler runs one search described by the query string:
// GET /api/search?model=<name>&<field>=<value>...&page=N[&exportformat=csv]
func SearchHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		logger.Warn("method_not_allowed", map[string]any{
			"endpoint": "/api/search",
			"method":   r.Method,
		})
		http.Error(w, "Only GET allowed", http.StatusMethodNotAllowed)
		return
	}

	m, params, ok := lookupModel(w, r)
	if !ok {
		return
	}

	res, err := resolver.Run(r.Context(), m, params, Backend)
	if err != nil {
		writeSearchError(w, r, m, err)
		return
	}

	if res.Export != nil {
		writeExport(w, m, res.Export)
		return
	}

	cols := res.Page.Columns
	renderer := m.Renderer()
	writeJSON(w, http.StatusOK, SearchResponse{
		Description:  m.Description,
		Mode:         res.Mode.String(),
		Summary:      res.Page.Summary(),
		Total:        res.Page.TotalAvailable,
		TotalMatched: res.Page.TotalMatched,
		TotalPages:   res.Page.TotalPages,
		Page:         res.Page.CurrentPage,
		CappedAt:     res.Page.CappedAt,
		Columns:      renderer.Columns(cols),
		Rows:         postprocess.Records(res.Page.Rows, cols, renderer),
	})
}

func writeExport(w http.ResponseWriter, m *model.Model, rs *pager.RowSet) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", m.Name+".csv"))
	if err := postprocess.WriteCSV(w, rs.Columns, m.Headings, rs.Rows, m.Renderer()); err != nil {
		// headers are already out; all that is left is to log
		logger.Error("write_export_failed", map[string]any{
			"model": m.Name,
			"error": err.Error(),
		})
	}
}

// lookupModel resolves the definition named by the model key and flattens
// the remaining query values, keeping the first value of repeated keys.
func lookupModel(w http.ResponseWriter, r *http.Request) (*model.Model, map[string]string, bool) {
	q := r.URL.Query()
	name := q.Get(ModelKey)
	if name == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "model is required"})
		return nil, nil, false
	}
	m, ok := model.Get(name)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: fmt.Sprintf("search %s not found", name)})
		return nil, nil, false
	}
	return m, flatten(q), true
}

func flatten(q url.Values) map[string]string {
	params := make(map[string]string, len(q))
	for k, vs := range q {
		if k == ModelKey || len(vs) == 0 {
			continue
		}
		params[k] = vs[0]
	}
	return params
}

func writeSearchError(w http.ResponseWriter, r *http.Request, m *model.Model, err error) {
	switch {
	case errors.Is(err, search.ErrInvalidSearchParameters):
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error: fmt.Sprintf("No valid search parameters were supplied. Please go back and search the %s again.", m.Description),
			Link:  r.URL.Path + "?" + ModelKey + "=" + url.QueryEscape(m.Name),
		})
	case errors.Is(err, resolver.ErrUnsupportedExportFormat):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	default:
		logger.Error("search_error", map[string]any{
			"model": m.Name,
			"error": err.Error(),
		})
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Failed to run search: " + err.Error()})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("write_response_failed", map[string]any{"error": err.Error()})
	}
}
