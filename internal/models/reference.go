package models

import (
	"encoding/json"
	"sort"
	"strings"
)

// PathSet is a set of path strings compared case-insensitively.
// The first spelling added for a path is the one that is kept.
type PathSet struct {
	items map[string]string
}

// NewPathSet returns a set holding the given paths.
func NewPathSet(paths ...string) *PathSet {
	s := &PathSet{items: make(map[string]string)}
	for _, p := range paths {
		s.Add(p)
	}
	return s
}

// Add inserts p and reports whether it was new.
func (s *PathSet) Add(p string) bool {
	if s.items == nil {
		s.items = make(map[string]string)
	}
	key := strings.ToLower(p)
	if _, ok := s.items[key]; ok {
		return false
	}
	s.items[key] = p
	return true
}

// Contains reports whether p is in the set, ignoring case.
func (s *PathSet) Contains(p string) bool {
	if s == nil {
		return false
	}
	_, ok := s.items[strings.ToLower(p)]
	return ok
}

// Len returns the number of distinct paths.
func (s *PathSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.items)
}

// Items returns the stored spellings sorted case-insensitively.
func (s *PathSet) Items() []string {
	if s == nil {
		return nil
	}
	out := make([]string, 0, len(s.items))
	for _, v := range s.items {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i]) < strings.ToLower(out[j])
	})
	return out
}

// Union adds every path of other to s.
func (s *PathSet) Union(other *PathSet) {
	for _, p := range other.Items() {
		s.Add(p)
	}
}

// MarshalJSON encodes the set as a sorted array.
func (s PathSet) MarshalJSON() ([]byte, error) {
	items := s.Items()
	if items == nil {
		items = []string{}
	}
	return json.Marshal(items)
}

// UnmarshalJSON decodes an array of paths.
func (s *PathSet) UnmarshalJSON(data []byte) error {
	var items []string
	if err := json.Unmarshal(data, &items); err != nil {
		return err
	}
	s.items = make(map[string]string, len(items))
	for _, p := range items {
		s.Add(p)
	}
	return nil
}

// ReferenceSet holds the asset paths extracted from one scene document.
type ReferenceSet struct {
	Document    string   `json:"document"`
	Textures    *PathSet `json:"textures"`
	Proxies     *PathSet `json:"proxies"`
	Other       *PathSet `json:"other"`
	Errors      []string `json:"errors,omitempty"`
	Diagnostics []string `json:"diagnostics,omitempty"`
}

// NewReferenceSet returns an empty set for document.
func NewReferenceSet(document string) *ReferenceSet {
	return &ReferenceSet{
		Document: document,
		Textures: NewPathSet(),
		Proxies:  NewPathSet(),
		Other:    NewPathSet(),
	}
}

// Set returns the path set that holds cat.
func (r *ReferenceSet) Set(cat Category) *PathSet {
	switch cat {
	case CategoryTexture:
		return r.Textures
	case CategoryProxy:
		return r.Proxies
	default:
		return r.Other
	}
}

// Add stores p under cat.
func (r *ReferenceSet) Add(cat Category, p string) bool {
	return r.Set(cat).Add(p)
}

// All returns every reference across categories, sorted.
func (r *ReferenceSet) All() []string {
	all := NewPathSet()
	for _, cat := range Categories {
		all.Union(r.Set(cat))
	}
	return all.Items()
}

// Len returns the total number of references.
func (r *ReferenceSet) Len() int {
	return r.Textures.Len() + r.Proxies.Len() + r.Other.Len()
}

// AddError records a failure that emptied or truncated the result.
func (r *ReferenceSet) AddError(msg string) {
	r.Errors = append(r.Errors, msg)
}

// AddDiagnostic records a non-fatal note, such as a skipped stream.
func (r *ReferenceSet) AddDiagnostic(msg string) {
	r.Diagnostics = append(r.Diagnostics, msg)
}
