package reconcile

import (
	"slices"
	"strings"
	"sync"
	"unicode/utf8"
)

// Exclusions is the set of canonical names already accounted for by the
// reference list. Add is safe to call from many goroutines.
type Exclusions struct {
	mu    sync.Mutex
	names map[string]struct{}
}

// NewExclusions returns an empty set.
func NewExclusions() *Exclusions {
	return &Exclusions{names: make(map[string]struct{})}
}

// Add inserts name and reports whether it was new. Empty names are ignored.
func (e *Exclusions) Add(name string) bool {
	if name == "" {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.names[name]; ok {
		return false
	}
	e.names[name] = struct{}{}
	return true
}

// Has reports whether name is in the set.
func (e *Exclusions) Has(name string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.names[name]
	return ok
}

// Len returns the number of names.
func (e *Exclusions) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.names)
}

// Names returns the names in sorted order.
func (e *Exclusions) Names() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	names := make([]string, 0, len(e.names))
	for n := range e.names {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// MatchMode selects how a canonical label is compared against the corpus.
type MatchMode int

const (
	// MatchSubstring accepts a label that occurs anywhere in the joined corpus.
	// A short label also matches an unrelated longer name that contains it.
	MatchSubstring MatchMode = iota
	// MatchExact accepts only a label equal to a corpus name.
	MatchExact
)

func (m MatchMode) String() string {
	switch m {
	case MatchSubstring:
		return "substring"
	case MatchExact:
		return "exact"
	default:
		return "unknown"
	}
}

// corpusSeparator joins corpus names. Canonical names never contain it
// because punctuation is stripped.
const corpusSeparator = "|"

// Corpus is a frozen snapshot of the exclusion names used for matching.
type Corpus struct {
	joined string
	names  map[string]struct{}
}

// NewCorpus keeps the names longer than minLen runes.
func NewCorpus(names []string, minLen int) *Corpus {
	kept := make([]string, 0, len(names))
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		if utf8.RuneCountInString(n) <= minLen {
			continue
		}
		if _, dup := set[n]; dup {
			continue
		}
		set[n] = struct{}{}
		kept = append(kept, n)
	}
	slices.Sort(kept)
	return &Corpus{joined: strings.Join(kept, corpusSeparator), names: set}
}

// Len returns the number of names in the corpus.
func (c *Corpus) Len() int { return len(c.names) }

// Exact reports whether name is one of the corpus names.
func (c *Corpus) Exact(name string) bool {
	_, ok := c.names[name]
	return ok
}

// Substring reports whether name occurs anywhere in the joined corpus.
// The empty name never matches.
func (c *Corpus) Substring(name string) bool {
	return name != "" && strings.Contains(c.joined, name)
}

// Match applies mode.
func (c *Corpus) Match(name string, mode MatchMode) bool {
	if mode == MatchExact {
		return c.Exact(name)
	}
	return c.Substring(name)
}
