// Package theoremgap finds named theorems that Wikipedia's "List of theorems"
// does not mention.
//
// Basic usage:
//
//	report, err := theoremgap.Reconcile(ctx, "you@example.com")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, c := range report.Missing() {
//	    fmt.Println(c.Entry.ID, c.Entry.Label)
//	}
//
// The contact string is sent in the User-Agent, as Wikimedia's usage policy
// requires. Lower-level clients live in pkg/wiki, pkg/wikidata and
// pkg/catalog.
package theoremgap

import (
	"context"
	"log/slog"

	"github.com/codeGROOVE-dev/theoremgap/pkg/catalog"
	"github.com/codeGROOVE-dev/theoremgap/pkg/config"
	"github.com/codeGROOVE-dev/theoremgap/pkg/httpcache"
	"github.com/codeGROOVE-dev/theoremgap/pkg/reconcile"
	"github.com/codeGROOVE-dev/theoremgap/pkg/wiki"
	"github.com/codeGROOVE-dev/theoremgap/pkg/wikidata"
)

type (
	// Report re-exports reconcile.Report for convenience.
	Report = reconcile.Report
	// Classified re-exports reconcile.Classified for convenience.
	Classified = reconcile.Classified
	// Category re-exports catalog.Category for convenience.
	Category = catalog.Category
	// HTTPCache re-exports httpcache.Cacher for convenience.
	HTTPCache = httpcache.Cacher
)

// ErrReferenceUnavailable is returned when the reference list cannot be read.
var ErrReferenceUnavailable = reconcile.ErrReferenceUnavailable

// Option configures a Reconcile or Catalog call.
type Option func(*options)

type options struct {
	cache       httpcache.Cacher
	logger      *slog.Logger
	cfg         *config.Config
	wikiURL     string
	sparqlURL   string
	catalogURL  string
	concurrency int
	mode        reconcile.MatchMode
	fields      bool
}

// WithHTTPCache sets the HTTP cache for responses.
func WithHTTPCache(httpCache httpcache.Cacher) Option {
	return func(o *options) { o.cache = httpCache }
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithConfig replaces the built-in matching tables.
func WithConfig(cfg *config.Config) Option {
	return func(o *options) { o.cfg = cfg }
}

// WithConcurrency bounds the number of page lookups in flight.
func WithConcurrency(n int) Option {
	return func(o *options) { o.concurrency = n }
}

// WithExactMatch compares labels by exact name instead of by substring.
func WithExactMatch() Option {
	return func(o *options) { o.mode = reconcile.MatchExact }
}

// WithFields attaches knowledge-base field labels to unmatched entries.
func WithFields() Option {
	return func(o *options) { o.fields = true }
}

// WithWikiURL points page lookups at another MediaWiki site.
func WithWikiURL(u string) Option {
	return func(o *options) { o.wikiURL = u }
}

// WithSPARQLEndpoint points knowledge-base queries at another endpoint.
func WithSPARQLEndpoint(u string) Option {
	return func(o *options) { o.sparqlURL = u }
}

// WithCatalogURL points Catalog at another page index.
func WithCatalogURL(u string) Option {
	return func(o *options) { o.catalogURL = u }
}

func newOptions(opts []Option) *options {
	o := &options{
		logger:    slog.Default(),
		cfg:       config.Default(),
		wikiURL:   wiki.DefaultBaseURL,
		sparqlURL: wikidata.DefaultEndpoint,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Reconcile compares Wikidata's theorems against Wikipedia's list of theorems.
// contact identifies the operator to Wikimedia.
func Reconcile(ctx context.Context, contact string, opts ...Option) (*Report, error) {
	o := newOptions(opts)

	wikiOpts := []wiki.Option{wiki.WithLogger(o.logger), wiki.WithBaseURL(o.wikiURL)}
	if o.cache != nil {
		wikiOpts = append(wikiOpts, wiki.WithHTTPCache(o.cache))
	}
	wc, err := wiki.New(contact, wikiOpts...)
	if err != nil {
		return nil, err
	}
	kb := wikidata.New(contact, wikidata.WithLogger(o.logger), wikidata.WithEndpoint(o.sparqlURL))

	cz := o.cfg.Canonicalizer()
	recOpts := []reconcile.Option{
		reconcile.WithLogger(o.logger),
		reconcile.WithCanonicalizer(cz),
		reconcile.WithMiner(o.cfg.Miner(cz)),
		reconcile.WithMinLength(o.cfg.MinLength),
		reconcile.WithMatchMode(o.mode),
		reconcile.WithConcurrency(o.concurrency),
	}
	if o.fields {
		recOpts = append(recOpts, reconcile.WithFieldSource(kb))
	}

	return reconcile.New(wc, wc, wc, kb, recOpts...).Run(ctx)
}

// Catalog extracts named results from the nLab page index, one category per
// configured keyword.
func Catalog(ctx context.Context, opts ...Option) ([]Category, error) {
	o := newOptions(opts)

	catOpts := []catalog.Option{catalog.WithLogger(o.logger), catalog.WithRules(o.cfg.Catalog)}
	if o.cache != nil {
		catOpts = append(catOpts, catalog.WithHTTPCache(o.cache))
	}
	if o.catalogURL != "" {
		catOpts = append(catOpts, catalog.WithIndexURL(o.catalogURL))
	}
	return catalog.New(catOpts...).Fetch(ctx)
}
