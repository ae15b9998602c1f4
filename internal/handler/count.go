package handler

import (
	"net/http"

	"multisearch/internal/resolver"
)

type CountResponse struct {
	Total        int  `json:"total"`
	TotalMatched int  `json:"total_matched"`
	CappedAt     *int `json:"capped_at,omitempty"`
}

// CountHandler answers how many rows a search matches without fetching any.
// It takes the same query string as SearchHandler.
func CountHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Only GET allowed", http.StatusMethodNotAllowed)
		return
	}
	m, params, ok := lookupModel(w, r)
	if !ok {
		return
	}

	total, matched, cappedAt, err := resolver.Count(r.Context(), m, params, Backend)
	if err != nil {
		writeSearchError(w, r, m, err)
		return
	}
	writeJSON(w, http.StatusOK, CountResponse{Total: total, TotalMatched: matched, CappedAt: cappedAt})
}
