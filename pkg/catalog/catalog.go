// Package catalog extracts named results from a wiki page index.
//
// A page index is a flat list of links. Extract keeps the links whose text
// names a result of one kind (theorem, lemma, ...), drops banned and blocked
// titles, and reduces the remainder with Subsume.
package catalog

import (
	"slices"
	"strings"

	"github.com/codeGROOVE-dev/theoremgap/pkg/htmlutil"
)

// Rule selects titles of one kind from a page index.
type Rule struct {
	// Keyword must occur in the case-folded title; a title equal to it is rejected.
	Keyword string `yaml:"keyword"`
	// Banned substrings reject any title containing them (case-insensitive).
	Banned []string `yaml:"banned"`
	// Blocked titles are rejected on exact case-insensitive match.
	Blocked []string `yaml:"blocked"`
	// ExcludeFromTotal keeps the category out of Total.
	ExcludeFromTotal bool `yaml:"exclude_from_total"`
}

// Category is the result of applying one Rule.
type Category struct {
	Keyword          string
	Titles           []string
	ExcludeFromTotal bool
}

// Extract applies rule to links and returns the surviving titles, sorted and
// reduced by Subsume.
func Extract(links []htmlutil.Link, rule Rule) []string {
	keyword := strings.ToLower(rule.Keyword)

	blocked := make(map[string]bool, len(rule.Blocked))
	for _, b := range rule.Blocked {
		blocked[strings.ToLower(b)] = true
	}
	banned := make([]string, 0, len(rule.Banned))
	for _, b := range rule.Banned {
		banned = append(banned, strings.ToLower(b))
	}

	var titles []string
	for _, l := range links {
		title := strings.TrimSpace(l.Text)
		lower := strings.ToLower(title)
		if l.Href == "" || !strings.Contains(lower, keyword) || lower == keyword {
			continue
		}
		if blocked[lower] || slices.ContainsFunc(banned, func(b string) bool { return strings.Contains(lower, b) }) {
			continue
		}
		titles = append(titles, title)
	}

	return Subsume(titles)
}

// ExtractAll applies every rule in order.
func ExtractAll(links []htmlutil.Link, rules []Rule) []Category {
	categories := make([]Category, 0, len(rules))
	for _, r := range rules {
		categories = append(categories, Category{
			Keyword:          r.Keyword,
			Titles:           Extract(links, r),
			ExcludeFromTotal: r.ExcludeFromTotal,
		})
	}
	return categories
}

// Total returns the sorted union of the titles of every category not marked
// ExcludeFromTotal.
func Total(categories []Category) []string {
	var all []string
	for _, c := range categories {
		if c.ExcludeFromTotal {
			continue
		}
		all = append(all, c.Titles...)
	}
	slices.Sort(all)
	return slices.Compact(all)
}

// CommonBanned lists substrings that mark auxiliary pages (histories, tables,
// lecture notes) rather than results.
var CommonBanned = []string{
	"> history", "- svg", "- contents", "-- table", "- table", "-- references", "-- section", "lecture",
}

// Blocked lists index titles that contain a keyword but do not name a result.
var Blocked = []string{
	"A mechanization of the Blakers-Massey connectivity theorem in Homotopy Type Theory",
	"correspondence type",
	"one-to-one correspondence",
	"Mochizuki's corollary 3.12",
	"duality involution",
	"dependent correspondence",
	"deduction theorem",
}

// DefaultRules returns the rules used for the nLab page index.
// Propositions and identities are left out: the index has no named ones that
// are not generic concepts. Corollaries are listed but not counted in Total.
func DefaultRules() []Rule {
	rule := func(keyword string, banned ...string) Rule {
		return Rule{
			Keyword: keyword,
			Banned:  append(banned, CommonBanned...),
			Blocked: slices.Clone(Blocked),
		}
	}
	corollary := rule("corollary", "corollaries")
	corollary.ExcludeFromTotal = true
	return []Rule{
		rule("theorem", "theorems"),
		rule("lemma", "lemmas"),
		rule("conjecture", "conjectures"),
		corollary,
		rule("correspondence", "correspondences", "correspondence between"),
		rule("duality", "dualities"),
	}
}
