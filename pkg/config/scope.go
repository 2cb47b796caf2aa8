// Package config provides the resolved, read-only view over the job
// configuration tree: an immutable scope hierarchy (global, per-host,
// per-directory) with inheritance, plus typed accessors that coerce
// booleans and durations the way the rest of the system expects. The file
// format itself is HCL2 (see load.go); this file implements the
// scope-lookup semantics the rest of the engine consumes.
package config

import (
	"strings"
	"time"
)

// Scope is one level of the global/host/directory hierarchy. Values is a
// case-insensitive map from key to its accumulated raw values: multi-valued
// keys like Directory and Exclude keep every occurrence in order. Scalar
// keys also keep every occurrence; scalar lookups use the first value of
// the innermost scope that defines the key (resolved at lookup time, not at
// construction).
type Scope struct {
	Name     string
	Values   map[string][]string
	Parent   *Scope
	Children []*Scope
}

// NewScope creates a scope with the given parent; parent is nil for the
// global scope.
func NewScope(name string, parent *Scope) *Scope {
	return &Scope{Name: name, Values: map[string][]string{}, Parent: parent}
}

func normalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

// Add appends value to key's accumulated list in this scope. Block parsing
// calls this once per directive occurrence.
func (s *Scope) Add(key, value string) {
	k := normalizeKey(key)
	s.Values[k] = append(s.Values[k], value)
}

// lookupAll walks from this scope outward, returning the first scope (the
// innermost) that defines key at all, along with its accumulated values.
// Because inner scopes override rather than merge for scalars, only the
// innermost definition is returned — callers needing cross-scope
// accumulation use LookupAccumulated.
func (s *Scope) lookupAll(key string) ([]string, bool) {
	k := normalizeKey(key)
	for scope := s; scope != nil; scope = scope.Parent {
		if vals, ok := scope.Values[k]; ok {
			return vals, true
		}
	}
	return nil, false
}

// LookupAccumulated gathers key's values across every scope from this one
// out to the root, innermost first, for keys like Directory and Exclude
// that accumulate rather than override.
func (s *Scope) LookupAccumulated(key string) []string {
	k := normalizeKey(key)
	var out []string
	for scope := s; scope != nil; scope = scope.Parent {
		out = append(out, scope.Values[k]...)
	}
	return out
}

// String returns the first value of key visible from this scope (innermost
// scope that defines it wins), or def if key is unset anywhere.
func (s *Scope) String(key, def string) string {
	vals, ok := s.lookupAll(key)
	if !ok || len(vals) == 0 {
		return def
	}
	return vals[0]
}

// List returns the innermost definition of a multi-valued key as a slice,
// or def if unset. Unlike LookupAccumulated, this does not merge across
// scopes: an inner BackupDirectory's own Exclude list fully overrides an
// outer one if present, per the accumulate-within-one-scope semantics in
// the key table.
func (s *Scope) List(key string, def []string) []string {
	vals, ok := s.lookupAll(key)
	if !ok {
		return def
	}
	return vals
}

// Bool coerces key's resolved value: "yes|y|on|true|1" (case-insensitive,
// with non-alphanumeric characters stripped first) is true, anything else
// is false.
func (s *Scope) Bool(key string, def bool) bool {
	vals, ok := s.lookupAll(key)
	if !ok || len(vals) == 0 {
		return def
	}
	return ParseBool(vals[0])
}

// Uint coerces key's resolved value to a non-negative integer, returning
// def if unset or unparsable.
func (s *Scope) Uint(key string, def uint) uint {
	vals, ok := s.lookupAll(key)
	if !ok || len(vals) == 0 {
		return def
	}
	n, err := parseUint(vals[0])
	if err != nil {
		return def
	}
	return n
}

// Duration coerces key's resolved value using ParseDuration, returning def
// if unset.
func (s *Scope) Duration(key string, def time.Duration) (time.Duration, error) {
	vals, ok := s.lookupAll(key)
	if !ok || len(vals) == 0 {
		return def, nil
	}
	return ParseDuration(vals[0])
}
