package search

import (
	"errors"
	"sort"
	"strings"
)

var (
	// ErrInvalidSearchParameters means no recognised field survived filtering.
	ErrInvalidSearchParameters = errors.New("no valid search parameters were supplied")
	// ErrUnsupportedFieldType means a catalog type has no search strategy.
	ErrUnsupportedFieldType = errors.New("unsupported field type")
)

const (
	KeySearch       = "search"
	KeyPage         = "page"
	KeyExportFormat = "exportformat"
)

// DefaultIgnoredKeys are dropped from every request before classification.
var DefaultIgnoredKeys = []string{"action"}

// Request is a normalized search request: only field keys with non-empty
// values remain in Fields.
type Request struct {
	Fields       map[string]string
	Page         string
	ExportFormat string
}

// NormalizeRequest strips the control keys and empty values from params.
func NormalizeRequest(params map[string]string, ignored []string) Request {
	req := Request{Fields: make(map[string]string, len(params))}
	skip := make(map[string]bool, len(ignored))
	for _, k := range ignored {
		skip[k] = true
	}
	for k, v := range params {
		switch {
		case k == KeyPage:
			req.Page = v
		case strings.EqualFold(k, KeyExportFormat):
			req.ExportFormat = strings.ToLower(strings.TrimSpace(v))
		case skip[k]:
		case strings.TrimSpace(v) == "":
		default:
			req.Fields[k] = v
		}
	}
	return req
}

// Keys returns the field keys in sorted order.
func (r Request) Keys() []string {
	keys := make([]string, 0, len(r.Fields))
	for k := range r.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Mode is the search mode of a request.
type Mode int

const (
	ModeNone Mode = iota
	ModeSimple
	ModeAdvanced
	ModeGeographicOnly
)

func (m Mode) String() string {
	switch m {
	case ModeSimple:
		return "simple"
	case ModeAdvanced:
		return "advanced"
	case ModeGeographicOnly:
		return "geographic"
	}
	return "none"
}

func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// Classify decides the mode of req. geometryKey is empty when geographic
// search is disabled.
func Classify(req Request, geometryKey string) Mode {
	_, hasSearch := req.Fields[KeySearch]
	hasGeometry := false
	if geometryKey != "" {
		_, hasGeometry = req.Fields[geometryKey]
	}

	switch n := len(req.Fields); {
	case n == 0:
		return ModeNone
	case n == 1 && hasSearch:
		return ModeSimple
	case n == 2 && hasSearch && hasGeometry:
		return ModeSimple
	case n == 1 && hasGeometry:
		return ModeGeographicOnly
	}
	return ModeAdvanced
}
