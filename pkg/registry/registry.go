// pkg/registry/registry.go
package registry

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
	"unicode"
)

//go:embed parameters.json
var defaultCatalog []byte

// Registry resolves raw parameter names to canonical IDs. It is immutable
// after construction and safe for concurrent use.
type Registry struct {
	catalog  ParameterRegistry
	byID     map[ParameterID]Parameter
	matchers []matcher
}

type matcher struct {
	id        ParameterID
	phrase    string
	wholeWord bool
	order     int
}

var (
	defaultOnce sync.Once
	defaultReg  *Registry
)

// Default returns the registry built from the embedded catalog.
func Default() *Registry {
	defaultOnce.Do(func() {
		var doc ParameterRegistry
		if err := json.Unmarshal(defaultCatalog, &doc); err != nil {
			panic(fmt.Sprintf("embedded parameter catalog is invalid: %v", err))
		}
		reg, err := New(doc)
		if err != nil {
			panic(fmt.Sprintf("embedded parameter catalog is invalid: %v", err))
		}
		defaultReg = reg
	})
	return defaultReg
}

// LoadRegistry reads a catalog file from disk without compiling it.
func LoadRegistry(path string) (*ParameterRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc ParameterRegistry
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &doc, nil
}

// LoadFile reads and compiles a catalog file.
func LoadFile(path string) (*Registry, error) {
	doc, err := LoadRegistry(path)
	if err != nil {
		return nil, err
	}
	return New(*doc)
}

// New validates doc and builds the lookup index.
func New(doc ParameterRegistry) (*Registry, error) {
	if err := Validate(doc); err != nil {
		return nil, err
	}

	r := &Registry{catalog: doc, byID: make(map[ParameterID]Parameter, len(doc.Parameters))}
	for i, p := range doc.Parameters {
		r.byID[p.ID] = p
		for _, a := range p.Aliases {
			r.matchers = append(r.matchers, matcher{id: p.ID, phrase: NormalizeName(a), order: i})
		}
		for _, t := range p.Tokens {
			r.matchers = append(r.matchers, matcher{id: p.ID, phrase: NormalizeName(t), wholeWord: true, order: i})
		}
	}
	return r, nil
}

// Validate checks IDs are unique, categories known and every entry has at
// least one alias or token.
func Validate(doc ParameterRegistry) error {
	seen := make(map[ParameterID]bool, len(doc.Parameters))
	for i, p := range doc.Parameters {
		if p.ID == "" {
			return fmt.Errorf("parameter %d: id is required", i)
		}
		if seen[p.ID] {
			return fmt.Errorf("parameter %s: duplicate id", p.ID)
		}
		seen[p.ID] = true

		if !isValidCategory(p.Category) {
			return fmt.Errorf("parameter %s: unknown category %q", p.ID, p.Category)
		}
		if len(p.Aliases)+len(p.Tokens) == 0 {
			return fmt.Errorf("parameter %s: at least one alias or token is required", p.ID)
		}
		for _, a := range append(append([]string{}, p.Aliases...), p.Tokens...) {
			if NormalizeName(a) == "" {
				return fmt.Errorf("parameter %s: blank alias", p.ID)
			}
		}
		if p.Weight < 0 {
			return fmt.Errorf("parameter %s: weight must not be negative", p.ID)
		}
	}
	return nil
}

func isValidCategory(c Category) bool {
	for _, v := range ValidCategories {
		if v == c {
			return true
		}
	}
	return false
}

// Resolve maps a raw parameter name to at most one canonical ID. The longest
// matching alias wins; ties go to the entry listed first in the catalog.
func (r *Registry) Resolve(rawName string) (ParameterID, bool) {
	name := NormalizeName(rawName)
	if name == "" {
		return "", false
	}
	padded := " " + name + " "

	best := -1
	for i, m := range r.matchers {
		var hit bool
		if m.wholeWord {
			hit = strings.Contains(padded, " "+m.phrase+" ")
		} else {
			hit = strings.Contains(name, m.phrase)
		}
		if !hit {
			continue
		}
		if best < 0 {
			best = i
			continue
		}
		cur := r.matchers[best]
		if len(m.phrase) > len(cur.phrase) || (len(m.phrase) == len(cur.phrase) && m.order < cur.order) {
			best = i
		}
	}
	if best < 0 {
		return "", false
	}
	return r.matchers[best].id, true
}

// Get returns the catalog entry for id.
func (r *Registry) Get(id ParameterID) (Parameter, bool) {
	p, ok := r.byID[id]
	return p, ok
}

// Parameters returns the catalog entries in file order.
func (r *Registry) Parameters() []Parameter {
	out := make([]Parameter, len(r.catalog.Parameters))
	copy(out, r.catalog.Parameters)
	return out
}

// ByCategory returns the entries tagged with c.
func (r *Registry) ByCategory(c Category) []Parameter {
	var out []Parameter
	for _, p := range r.catalog.Parameters {
		if p.Category == c {
			out = append(out, p)
		}
	}
	return out
}

// Version is the catalog version string.
func (r *Registry) Version() string {
	return r.catalog.Version
}

// NormalizeName lowercases s and collapses every run of non-alphanumeric
// characters into a single space.
func NormalizeName(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	space := false
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			space = false
			b.WriteRune(r)
			continue
		}
		space = true
	}
	return b.String()
}
