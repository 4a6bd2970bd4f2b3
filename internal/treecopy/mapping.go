package treecopy

import (
	"fmt"
)

// Pair is one source to destination entry of a Mapping.
type Pair struct {
	Source      string `json:"source"`
	Destination string `json:"destination"`
}

// Mapping records source entity ids and the destination ids they were copied
// to, in the order they were copied. Containers are recorded before their
// children.
//
// A Mapping is created by Copy and written only by its entity walk. Once Copy
// returns it is read-only; CopyWiki and callers only read it.
type Mapping struct {
	index map[string]int
	pairs []Pair
}

// NewMapping returns an empty mapping.
func NewMapping() *Mapping {
	return &Mapping{index: make(map[string]int)}
}

// Set records that src was copied to dst. A source can be mapped only once.
func (m *Mapping) Set(src, dst string) error {
	if _, ok := m.index[src]; ok {
		return fmt.Errorf("%s is already mapped to %s", src, m.pairs[m.index[src]].Destination)
	}
	m.index[src] = len(m.pairs)
	m.pairs = append(m.pairs, Pair{Source: src, Destination: dst})
	return nil
}

// Get returns the destination of src.
func (m *Mapping) Get(src string) (string, bool) {
	i, ok := m.index[src]
	if !ok {
		return "", false
	}
	return m.pairs[i].Destination, true
}

// Len returns the number of mapped ids.
func (m *Mapping) Len() int {
	return len(m.pairs)
}

// Keys returns the source ids in copy order.
func (m *Mapping) Keys() []string {
	keys := make([]string, len(m.pairs))
	for i, p := range m.pairs {
		keys[i] = p.Source
	}
	return keys
}

// Pairs returns the entries in copy order.
func (m *Mapping) Pairs() []Pair {
	return append([]Pair(nil), m.pairs...)
}

// Map returns a snapshot of the mapping as a plain map.
func (m *Mapping) Map() map[string]string {
	out := make(map[string]string, len(m.pairs))
	for _, p := range m.pairs {
		out[p.Source] = p.Destination
	}
	return out
}
