// Package canon reduces theorem names to a comparable canonical form.
//
// Names arrive from wiki page titles, URL path segments, HTML anchor text and
// SPARQL labels. Each source encodes the same name differently, so every name
// is pushed through one pipeline before it is compared:
//
//	canon.Name("Fermat%27s_Last_Theorem")  // "fermat last theorem"
//	canon.Name("Gödel's incompleteness theorems (logic)") // "godel incompleteness theorems"
package canon

import (
	"html"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Replacement maps one substring to another.
type Replacement struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

// Options holds the data tables used by a Canonicalizer.
type Options struct {
	// Apostrophes are byte sequences that should read as a plain apostrophe.
	Apostrophes []string `yaml:"apostrophes"`
	// Transliterations fold spelling variants (e.g. "ae" -> "a").
	// They are applied to the lower-cased name until nothing changes.
	Transliterations []Replacement `yaml:"transliterations"`
}

// DefaultOptions returns the tables used by Name.
func DefaultOptions() Options {
	return Options{
		Apostrophes: []string{"’", "‘", "â€™", ".27"},
		Transliterations: []Replacement{
			{From: "aa", To: "a"},
			{From: "ae", To: "a"},
			{From: "oe", To: "o"},
			{From: "ue", To: "u"},
		},
	}
}

// Canonicalizer applies the canonicalization pipeline.
// It is safe for concurrent use.
type Canonicalizer struct {
	apostrophes      *strings.Replacer
	transliterations []Replacement
}

var (
	dashReplacer = strings.NewReplacer(
		"–", "-", "—", "-", "‒", "-", "―", "-", "−", "-", "‐", "-", "‑", "-",
	)
	dashRun     = regexp.MustCompile(`-{2,}`)
	parenthesis = regexp.MustCompile(`\(.*?\)`)

	defaultCanonicalizer = New(DefaultOptions())
)

// New creates a Canonicalizer from the given tables.
func New(opts Options) *Canonicalizer {
	var pairs []string
	for _, a := range opts.Apostrophes {
		// Artifacts are matched after decomposition, so decompose them too.
		if a != "" {
			pairs = append(pairs, norm.NFKD.String(a), "'")
		}
	}
	var tr []Replacement
	for _, r := range opts.Transliterations {
		// Only shrinking replacements terminate when run to a fixpoint.
		if r.From != "" && len(r.To) < len(r.From) {
			tr = append(tr, Replacement{From: strings.ToLower(r.From), To: strings.ToLower(r.To)})
		}
	}
	return &Canonicalizer{
		apostrophes:      strings.NewReplacer(pairs...),
		transliterations: tr,
	}
}

// Name canonicalizes s with the default tables.
func Name(s string) string {
	return defaultCanonicalizer.Name(s)
}

// Name returns the canonical form of s. It never fails: sequences that cannot
// be decoded are carried through and later stripped or kept as text.
func (c *Canonicalizer) Name(s string) string {
	s = Unquote(s)
	s = html.UnescapeString(s)
	s = norm.NFKD.String(s)
	s = c.apostrophes.Replace(s)
	s = strings.ReplaceAll(s, "'s", "")
	s = strings.ReplaceAll(s, "'", "")
	s = stripMarks(s)
	s = dashReplacer.Replace(s)
	s = dashRun.ReplaceAllString(s, "-")
	s = parenthesis.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "_", " ")
	s = stripPunctuation(s)
	s = strings.Join(strings.Fields(s), " ")
	s = c.transliterate(strings.ToLower(s))
	return stripMarks(strings.ToLower(s))
}

func (c *Canonicalizer) transliterate(s string) string {
	for {
		before := s
		for _, r := range c.transliterations {
			s = strings.ReplaceAll(s, r.From, r.To)
		}
		if s == before {
			return s
		}
	}
}

// stripMarks decomposes s and drops every nonspacing mark.
func stripMarks(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)))
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

func stripPunctuation(s string) string {
	return strings.Map(func(r rune) rune {
		if r < utf8.RuneSelf && isASCIIPunct(byte(r)) {
			return -1
		}
		if unicode.IsPunct(r) {
			return -1
		}
		return r
	}, s)
}

// isASCIIPunct reports whether b is one of !"#$%&'()*+,-./:;<=>?@[\]^_`{|}~.
func isASCIIPunct(b byte) bool {
	return (b >= '!' && b <= '/') || (b >= ':' && b <= '@') || (b >= '[' && b <= '`') || (b >= '{' && b <= '~')
}
