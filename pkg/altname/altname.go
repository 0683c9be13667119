// Package altname mines alternate names of a result from its article text.
//
// Wikipedia articles open with the subject's names in bold ("The
// '''Pythagorean theorem''' or '''Pythagoras' theorem''' ..."). Bold spans
// that look like names of results are alternate spellings worth matching.
package altname

import (
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/codeGROOVE-dev/theoremgap/pkg/canon"
	"github.com/codeGROOVE-dev/theoremgap/pkg/wikitext"
)

// DefaultKeywords are the words that mark a bold span as a result name.
var DefaultKeywords = []string{
	"theorem", "lemma", "corollary", "proposition", "correspondence", "identity", "conjecture", "duality",
}

// DefaultMargin is how many characters a name must have beyond its keyword.
const DefaultMargin = 3

// Options holds the tables used by a Miner.
type Options struct {
	Keywords []string `yaml:"keywords"`
	Margin   int      `yaml:"margin"`
}

// DefaultOptions returns the default keyword table.
func DefaultOptions() Options {
	return Options{Keywords: slices.Clone(DefaultKeywords), Margin: DefaultMargin}
}

// Miner filters bold spans down to plausible alternate result names.
type Miner struct {
	canon    *canon.Canonicalizer
	keywords []string
	margin   int
}

// New creates a Miner. A nil canonicalizer uses canon's default tables.
func New(c *canon.Canonicalizer, opts Options) *Miner {
	if c == nil {
		c = canon.New(canon.DefaultOptions())
	}
	keywords := make([]string, 0, len(opts.Keywords))
	for _, k := range opts.Keywords {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			keywords = append(keywords, k)
		}
	}
	return &Miner{canon: c, keywords: keywords, margin: opts.Margin}
}

// Accept reports whether the canonical name contains a keyword and is more
// than Margin characters longer than it. This rejects a bare keyword and
// trivial decorations of it ("theorem 1", "lemmas").
func (m *Miner) Accept(name string) bool {
	n := utf8.RuneCountInString(name)
	for _, k := range m.keywords {
		if strings.Contains(name, k) && utf8.RuneCountInString(k)+m.margin < n {
			return true
		}
	}
	return false
}

// Mine returns the canonical forms of the bold spans in raw that are accepted
// and not already known. known may be nil.
func (m *Miner) Mine(raw string, known func(string) bool) []string {
	var names []string
	seen := map[string]bool{}
	for _, span := range wikitext.Bold(raw) {
		name := m.canon.Name(span)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		if known != nil && known(name) {
			continue
		}
		if m.Accept(name) {
			names = append(names, name)
		}
	}
	return names
}
