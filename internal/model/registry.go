package model

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"multisearch/internal/pager"
	"multisearch/internal/search"
)

var (
	registryMu sync.RWMutex
	// Registry maps definition name to definition. It is replaced as a whole
	// on reload and never mutated in place; use Get from request paths.
	Registry = map[string]*Model{}
)

// InitRegistry loads and validates every definition in dir and installs them.
// On error the current registry is left untouched.
func InitRegistry(dir string) error {
	loaded, err := LoadModelsFromDir(dir)
	if err != nil {
		return fmt.Errorf("load error: %w", err)
	}
	if err := ValidateAll(loaded); err != nil {
		return fmt.Errorf("validation error: %w", err)
	}
	SetRegistry(loaded)
	return nil
}

// SetRegistry installs reg and returns the previous registry.
func SetRegistry(reg map[string]*Model) map[string]*Model {
	registryMu.Lock()
	defer registryMu.Unlock()
	prev := Registry
	Registry = reg
	return prev
}

// ValidateAll applies defaults to and checks every definition in reg.
func ValidateAll(reg map[string]*Model) error {
	for _, name := range sortedNames(reg) {
		if err := reg[name].Validate(); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

// Validate fills defaults and resolves the dialect.
func (m *Model) Validate() error {
	if strings.TrimSpace(m.Table) == "" {
		return fmt.Errorf("table is required")
	}
	if m.KeyField == "" {
		m.KeyField = "id"
	}
	if m.MainSubjectField == "" {
		return fmt.Errorf("main_subject_field is required")
	}
	if m.Description == "" {
		m.Description = "catalogue"
	}
	if m.PageSize <= 0 {
		m.PageSize = pager.DefaultPageSize
	}
	if m.HardCap < 0 {
		return fmt.Errorf("hard_cap must not be negative")
	}
	if m.Vendor == "" {
		m.Vendor = "postgres"
	}
	if m.Geographic.Field == "" {
		m.Geographic.Field = "geometry"
	}
	if m.Geographic.Enabled && m.Geographic.Field == search.KeySearch {
		return fmt.Errorf("geographic.field must not be %q", search.KeySearch)
	}
	for i, f := range m.Fields {
		if f.Name == "" {
			return fmt.Errorf("fields[%d]: name is required", i)
		}
	}

	d, err := search.LookupDialect(m.Vendor, search.DialectOptions{
		SRID:       m.Geographic.SRID,
		TrueWithin: m.Geographic.TrueWithin,
	})
	if err != nil {
		return err
	}
	m._Dialect = d
	return nil
}

// Get returns a registered definition.
func Get(name string) (*Model, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	m, ok := Registry[name]
	return m, ok
}

// Names lists the registered definitions in sorted order.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return sortedNames(Registry)
}

func sortedNames(reg map[string]*Model) []string {
	names := make([]string, 0, len(reg))
	for name := range reg {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
