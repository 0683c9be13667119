package reconcile

import (
	"cmp"
	"math"
	"slices"
	"strconv"

	"github.com/codeGROOVE-dev/theoremgap/pkg/wiki"
	"github.com/codeGROOVE-dev/theoremgap/pkg/wikidata"
)

// Classification is the outcome for an entry whose label is not in the corpus.
type Classification int

const (
	// NoRedirect means no page exists under the label.
	NoRedirect Classification = iota
	// MatchedViaRedirect means the label redirects to a page in the corpus.
	MatchedViaRedirect
	// MismatchDifferentTarget means the label redirects to an unlisted page
	// with another name.
	MismatchDifferentTarget
	// MismatchSameTarget means the label has its own page, and it is unlisted.
	MismatchSameTarget
)

func (c Classification) String() string {
	switch c {
	case NoRedirect:
		return "no redirect"
	case MatchedViaRedirect:
		return "matched via redirect"
	case MismatchDifferentTarget:
		return "mismatch, different target"
	case MismatchSameTarget:
		return "mismatch, same target"
	default:
		return "Classification(" + strconv.Itoa(int(c)) + ")"
	}
}

// Missing reports whether the classification marks a real gap in the
// reference list.
func (c Classification) Missing() bool {
	return c == MismatchDifferentTarget || c == MismatchSameTarget
}

// Classified is an unmatched entry together with its redirect outcome.
type Classified struct {
	Entry      wikidata.Entry
	Class      Classification
	Resolution wiki.Resolution
	Fields     []string
}

// Report is everything one run produced.
type Report struct {
	ReferenceTitles int // titles declared by the reference list
	Redirected      int // distinct pages the reference titles resolved to
	Alternates      int // alternate names mined from resolved pages
	Exclusions      []string
	CorpusSize      int

	Labeled       []wikidata.Entry
	Unlabeled     []wikidata.Entry
	Matched       []wikidata.Entry
	SubstringOnly []wikidata.Entry // matched only by substring containment

	// Classified holds every unmatched labeled entry, ordered by ID suffix.
	Classified []Classified
}

// Missing returns the entries that are real results absent from the
// reference list.
func (r *Report) Missing() []Classified {
	var out []Classified
	for _, c := range r.Classified {
		if c.Class.Missing() {
			out = append(out, c)
		}
	}
	return out
}

// Count returns how many entries received class.
func (r *Report) Count(class Classification) int {
	n := 0
	for _, c := range r.Classified {
		if c.Class == class {
			n++
		}
	}
	return n
}

// Unresolved returns how many unmatched entries had no page.
func (r *Report) Unresolved() int {
	return r.Count(NoRedirect)
}

// idSuffix returns the number formed by the trailing digits of id.
// IDs without trailing digits sort after every numbered ID.
func idSuffix(id string) uint64 {
	i := len(id)
	for i > 0 && id[i-1] >= '0' && id[i-1] <= '9' {
		i--
	}
	if i == len(id) {
		return math.MaxUint64
	}
	n, err := strconv.ParseUint(id[i:], 10, 64)
	if err != nil {
		return math.MaxUint64
	}
	return n
}

func sortByID(entries []wikidata.Entry) {
	slices.SortStableFunc(entries, func(a, b wikidata.Entry) int {
		return cmp.Or(cmp.Compare(idSuffix(a.ID), idSuffix(b.ID)), cmp.Compare(a.ID, b.ID))
	})
}
