// Package reconcile finds knowledge-base theorems that a reference list lacks.
//
// A run builds a set of canonical names from the reference list, widens it
// with redirect targets and alternate names mined from those targets, then
// compares every knowledge-base label against it. Labels that miss are
// resolved through redirects and classified.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/codeGROOVE-dev/theoremgap/pkg/altname"
	"github.com/codeGROOVE-dev/theoremgap/pkg/canon"
	"github.com/codeGROOVE-dev/theoremgap/pkg/wiki"
	"github.com/codeGROOVE-dev/theoremgap/pkg/wikidata"
)

// ErrReferenceUnavailable is returned when the reference list cannot be read.
var ErrReferenceUnavailable = errors.New("reference list unavailable")

// ReferenceSource supplies the titles declared by the reference list.
type ReferenceSource interface {
	ReferenceTitles(ctx context.Context) ([]string, error)
}

// Resolver follows a name through redirects. A failed lookup is an empty
// Resolution, never an error.
type Resolver interface {
	Resolve(ctx context.Context, name string) wiki.Resolution
}

// PageSource returns the raw wikitext of a page.
type PageSource interface {
	Raw(ctx context.Context, title string) (string, error)
}

// KnowledgeBase supplies theorem entries. Two nil slices mean the source was
// unavailable.
type KnowledgeBase interface {
	Theorems(ctx context.Context) (labeled, unlabeled []wikidata.Entry)
}

// FieldSource supplies the fields each entry belongs to, keyed by ID.
type FieldSource interface {
	Fields(ctx context.Context) map[string][]string
}

const (
	defaultConcurrency = 16
	defaultMinLength   = 3
)

// Reconciler runs reconciliations. It holds no per-run state and may be
// reused.
type Reconciler struct {
	ref         ReferenceSource
	resolver    Resolver
	pages       PageSource
	kb          KnowledgeBase
	fields      FieldSource
	logger      *slog.Logger
	canon       *canon.Canonicalizer
	miner       *altname.Miner
	concurrency int
	minLength   int
	mode        MatchMode
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Reconciler) { r.logger = logger }
}

// WithConcurrency bounds the number of lookups in flight.
func WithConcurrency(n int) Option {
	return func(r *Reconciler) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

// WithCanonicalizer replaces the default canonicalization tables.
func WithCanonicalizer(c *canon.Canonicalizer) Option {
	return func(r *Reconciler) { r.canon = c }
}

// WithMiner replaces the default alternate-name miner.
func WithMiner(m *altname.Miner) Option {
	return func(r *Reconciler) { r.miner = m }
}

// WithMinLength sets the length a name must exceed, in runes, to enter the
// corpus.
func WithMinLength(n int) Option {
	return func(r *Reconciler) { r.minLength = n }
}

// WithMatchMode selects substring or exact corpus matching.
func WithMatchMode(m MatchMode) Option {
	return func(r *Reconciler) { r.mode = m }
}

// WithFieldSource attaches field labels to classified entries.
func WithFieldSource(f FieldSource) Option {
	return func(r *Reconciler) { r.fields = f }
}

// New creates a Reconciler over the given sources.
func New(ref ReferenceSource, resolver Resolver, pages PageSource, kb KnowledgeBase, opts ...Option) *Reconciler {
	r := &Reconciler{
		ref:         ref,
		resolver:    resolver,
		pages:       pages,
		kb:          kb,
		logger:      slog.Default(),
		concurrency: defaultConcurrency,
		minLength:   defaultMinLength,
		mode:        MatchSubstring,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.canon == nil {
		r.canon = canon.New(canon.DefaultOptions())
	}
	if r.miner == nil {
		r.miner = altname.New(r.canon, altname.DefaultOptions())
	}
	return r
}

// Run performs one reconciliation. It fails only when the reference list
// cannot be fetched or ctx is cancelled; every other failure degrades the
// affected entries and is logged.
func (r *Reconciler) Run(ctx context.Context) (*Report, error) {
	report := &Report{}
	excl := NewExclusions()

	titles, err := r.referenceTitles(ctx, excl)
	if err != nil {
		return nil, err
	}
	report.ReferenceTitles = len(titles)

	targets, err := r.addRedirectTargets(ctx, titles, excl)
	if err != nil {
		return nil, err
	}
	report.Redirected = len(targets)

	report.Alternates, err = r.addAlternates(ctx, targets, excl)
	if err != nil {
		return nil, err
	}

	report.Exclusions = excl.Names()
	corpus := NewCorpus(report.Exclusions, r.minLength)
	report.CorpusSize = corpus.Len()
	r.logger.InfoContext(ctx, "exclusion corpus assembled",
		"names", len(report.Exclusions), "corpus", corpus.Len(), "mode", r.mode)

	report.Labeled, report.Unlabeled = r.kb.Theorems(ctx)
	if report.Labeled == nil && report.Unlabeled == nil {
		r.logger.WarnContext(ctx, "knowledge base returned nothing; no entries to compare")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	unmatched := r.diff(report, corpus)

	var fields map[string][]string
	if r.fields != nil && len(unmatched) > 0 {
		fields = r.fields.Fields(ctx)
	}

	report.Classified, err = r.classify(ctx, unmatched, corpus, fields)
	if err != nil {
		return nil, err
	}

	r.logger.InfoContext(ctx, "reconciliation complete",
		"matched", len(report.Matched),
		"unmatched", len(report.Classified),
		"unresolved", report.Unresolved(),
		"missing", len(report.Missing()))
	return report, nil
}

// referenceTitles fetches the reference list and seeds excl with it.
func (r *Reconciler) referenceTitles(ctx context.Context, excl *Exclusions) ([]string, error) {
	titles, err := r.ref.ReferenceTitles(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReferenceUnavailable, err)
	}
	if len(titles) == 0 {
		r.logger.WarnContext(ctx, "reference list yielded no titles")
	}

	slices.Sort(titles)
	titles = slices.Compact(titles)
	for _, t := range titles {
		excl.Add(r.canon.Name(t))
	}
	r.logger.InfoContext(ctx, "reference list read", "titles", len(titles), "names", excl.Len())
	return titles, nil
}

// addRedirectTargets resolves every reference title and adds each target's
// canonical name. It returns the distinct resolved page titles.
func (r *Reconciler) addRedirectTargets(ctx context.Context, titles []string, excl *Exclusions) ([]string, error) {
	resolutions := make([]wiki.Resolution, len(titles))
	err := r.forEach(ctx, len(titles), func(ctx context.Context, i int) {
		res := r.resolver.Resolve(ctx, titles[i])
		if !res.Found() {
			return
		}
		resolutions[i] = res
		excl.Add(r.canon.Name(res.Title))
	})
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(resolutions))
	var targets []string
	for _, res := range resolutions {
		if !res.Found() {
			continue
		}
		if _, dup := seen[res.Title]; dup {
			continue
		}
		seen[res.Title] = struct{}{}
		targets = append(targets, res.Title)
	}
	r.logger.InfoContext(ctx, "reference titles resolved",
		"titles", len(titles), "pages", len(targets), "names", excl.Len())
	return targets, nil
}

// addAlternates mines bold alternate names from each target page.
func (r *Reconciler) addAlternates(ctx context.Context, targets []string, excl *Exclusions) (int, error) {
	added := make([]int, len(targets))
	err := r.forEach(ctx, len(targets), func(ctx context.Context, i int) {
		raw, err := r.pages.Raw(ctx, targets[i])
		if err != nil {
			r.logger.DebugContext(ctx, "page fetch failed", "title", targets[i], "error", err)
			return
		}
		for _, name := range r.miner.Mine(raw, excl.Has) {
			if excl.Add(name) {
				added[i]++
			}
		}
	})
	if err != nil {
		return 0, err
	}

	total := 0
	for _, n := range added {
		total += n
	}
	r.logger.InfoContext(ctx, "alternate names mined", "pages", len(targets), "added", total)
	return total, nil
}

// diff sorts labeled entries into matched and unmatched. Unmatched entries are
// returned in ID-suffix order.
func (r *Reconciler) diff(report *Report, corpus *Corpus) []wikidata.Entry {
	var unmatched []wikidata.Entry
	for _, e := range report.Labeled {
		name := r.canon.Name(e.Label)
		if corpus.Exact(name) {
			report.Matched = append(report.Matched, e)
			continue
		}
		if corpus.Substring(name) {
			report.SubstringOnly = append(report.SubstringOnly, e)
			if r.mode == MatchSubstring {
				report.Matched = append(report.Matched, e)
				continue
			}
		}
		unmatched = append(unmatched, e)
	}
	sortByID(unmatched)
	return unmatched
}

// classify resolves each unmatched entry's label and assigns its class.
// Results keep the order of entries.
func (r *Reconciler) classify(ctx context.Context, entries []wikidata.Entry, corpus *Corpus, fields map[string][]string) ([]Classified, error) {
	results := make([]Classified, len(entries))
	err := r.forEach(ctx, len(entries), func(ctx context.Context, i int) {
		e := entries[i]
		res := r.resolver.Resolve(ctx, e.Label)
		results[i] = Classified{
			Entry:      e,
			Class:      r.classOf(e, res, corpus),
			Resolution: res,
			Fields:     fields[e.ID],
		}
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

func (r *Reconciler) classOf(e wikidata.Entry, res wiki.Resolution, corpus *Corpus) Classification {
	if !res.Found() {
		return NoRedirect
	}
	target := r.canon.Name(res.Title)
	switch {
	case corpus.Match(target, r.mode):
		return MatchedViaRedirect
	case target == r.canon.Name(e.Label):
		return MismatchSameTarget
	default:
		return MismatchDifferentTarget
	}
}

// forEach calls fn for 0..n-1 with at most r.concurrency calls in flight.
// fn handles its own failures. forEach returns ctx.Err() once every started
// call has returned.
func (r *Reconciler) forEach(ctx context.Context, n int, fn func(ctx context.Context, i int)) error {
	var g errgroup.Group
	g.SetLimit(r.concurrency)
	for i := range n {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			fn(ctx, i)
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // tasks never fail
	return ctx.Err()
}
