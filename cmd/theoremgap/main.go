// Command theoremgap lists Wikidata theorems missing from Wikipedia's list of
// theorems.
//
// Usage:
//
//	theoremgap you@example.com          # full reconciliation
//	theoremgap --exact you@example.com  # exact name matching only
//	theoremgap catalog                  # nLab theorem index
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/codeGROOVE-dev/theoremgap"
	"github.com/codeGROOVE-dev/theoremgap/pkg/canon"
	"github.com/codeGROOVE-dev/theoremgap/pkg/catalog"
	"github.com/codeGROOVE-dev/theoremgap/pkg/config"
	"github.com/codeGROOVE-dev/theoremgap/pkg/httpcache"
	"github.com/codeGROOVE-dev/theoremgap/pkg/reconcile"
)

type flags struct {
	debug       bool
	noCache     bool
	cacheTTL    time.Duration
	minDelay    time.Duration
	configPath  string
	concurrency int
	exact       bool
	fields      bool
}

func main() {
	if err := rootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	f := &flags{}
	cmd := &cobra.Command{
		Use:   "theoremgap [flags] <contact>",
		Short: "Find Wikidata theorems missing from Wikipedia's list of theorems",
		Long: `theoremgap compares every Wikidata item that is an instance of "theorem"
against Wikipedia's "List of theorems", following redirects and alternate
names, and prints the theorems the list does not mention.

The contact (usually an email address) is sent in the User-Agent header as
Wikimedia's usage policy requires.`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReconcile(cmd.Context(), cmd.OutOrStdout(), f, args[0])
		},
	}

	pf := cmd.PersistentFlags()
	pf.BoolVarP(&f.debug, "debug", "v", false, "enable debug logging")
	pf.BoolVar(&f.noCache, "no-cache", false, "disable HTTP caching (enabled by default with 75-day TTL)")
	pf.DurationVar(&f.cacheTTL, "cache-ttl", 75*24*time.Hour, "cache time-to-live")
	pf.DurationVar(&f.minDelay, "min-delay", 50*time.Millisecond, "minimum delay between requests to one host")
	pf.StringVar(&f.configPath, "config", "", "YAML file overriding the matching tables")

	cmd.Flags().IntVar(&f.concurrency, "concurrency", 16, "maximum page lookups in flight")
	cmd.Flags().BoolVar(&f.exact, "exact", false, "match labels by exact name instead of substring")
	cmd.Flags().BoolVar(&f.fields, "fields", false, "show the fields each missing theorem belongs to")

	cmd.AddCommand(catalogCmd(f))
	return cmd
}

func catalogCmd(f *flags) *cobra.Command {
	return &cobra.Command{
		Use:          "catalog",
		Short:        "List named results from the nLab page index",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCatalog(cmd.Context(), cmd.OutOrStdout(), f)
		},
	}
}

// setup builds the logger, cache and shared options. The returned cleanup
// closes the cache.
func setup(f *flags) (opts []theoremgap.Option, logger *slog.Logger, cleanup func(), err error) {
	logLevel := slog.LevelInfo
	if f.debug {
		logLevel = slog.LevelDebug
	}
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	cfg, err := config.Load(f.configPath)
	if err != nil {
		return nil, nil, nil, err
	}

	httpcache.DefaultLimiter.SetDelay(f.minDelay)

	opts = []theoremgap.Option{theoremgap.WithLogger(logger), theoremgap.WithConfig(cfg)}
	cleanup = func() {}

	if !f.noCache {
		httpCache, err := httpcache.New(f.cacheTTL)
		if err != nil {
			logger.Warn("failed to initialize cache, continuing without cache", "error", err)
		} else {
			cleanup = func() {
				if err := httpCache.Close(); err != nil {
					logger.Warn("failed to close cache", "error", err)
				}
			}
			logger.Debug("HTTP cache initialized", "ttl", f.cacheTTL.String())
			opts = append(opts, theoremgap.WithHTTPCache(httpCache))
		}
	}
	return opts, logger, cleanup, nil
}

func runReconcile(ctx context.Context, w io.Writer, f *flags, contact string) error {
	opts, logger, cleanup, err := setup(f)
	if err != nil {
		return err
	}
	defer cleanup()

	opts = append(opts, theoremgap.WithConcurrency(f.concurrency))
	if f.exact {
		opts = append(opts, theoremgap.WithExactMatch())
	}
	if f.fields {
		opts = append(opts, theoremgap.WithFields())
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	report, err := theoremgap.Reconcile(ctx, contact, opts...)
	if err != nil {
		return err
	}

	printReport(w, report)
	stats := httpcache.CacheStats()
	logger.Debug("cache statistics", "hits", stats.Hits, "misses", stats.Misses)
	return nil
}

func runCatalog(ctx context.Context, w io.Writer, f *flags) error {
	opts, _, cleanup, err := setup(f)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	categories, err := theoremgap.Catalog(ctx, opts...)
	if err != nil {
		return err
	}
	printCatalog(w, categories)
	return nil
}

// marker returns the one-character tag printed before a classified entry.
func marker(c reconcile.Classification) string {
	switch c {
	case reconcile.NoRedirect:
		return "?"
	case reconcile.MatchedViaRedirect:
		return "="
	case reconcile.MismatchDifferentTarget:
		return ">"
	case reconcile.MismatchSameTarget:
		return "!"
	default:
		return " "
	}
}

func printReport(w io.Writer, r *theoremgap.Report) {
	fmt.Fprintf(w, "Reference list: %d titles, %d resolved pages, %d alternate names\n",
		r.ReferenceTitles, r.Redirected, r.Alternates)
	fmt.Fprintf(w, "Exclusion corpus: %d names (%d long enough to match)\n", len(r.Exclusions), r.CorpusSize)
	fmt.Fprintf(w, "Knowledge base: %d labeled, %d unlabeled\n", len(r.Labeled), len(r.Unlabeled))
	if len(r.Labeled) == 0 && len(r.Unlabeled) == 0 {
		fmt.Fprintln(w, "WARNING: knowledge base returned no entries; it may be unavailable")
	}
	fmt.Fprintf(w, "Matched: %d (%d by substring only)\n", len(r.Matched), len(r.SubstringOnly))
	fmt.Fprintf(w, "Unresolved redirects: %d\n\n", r.Unresolved())

	for i, c := range r.Classified {
		fmt.Fprintf(w, "%s %5d WDID(%s) %s", marker(c.Class), i+1, c.Entry.ID, c.Entry.Label)
		if c.Resolution.Found() {
			fmt.Fprintf(w, " -> %s <%s>", c.Resolution.Title, c.Resolution.URL)
		}
		if len(c.Fields) > 0 {
			fmt.Fprintf(w, " [%s]", strings.Join(c.Fields, ", "))
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "\n%d theorems missing from the reference list (%d same target, %d different target)\n",
		len(r.Missing()), r.Count(reconcile.MismatchSameTarget), r.Count(reconcile.MismatchDifferentTarget))
}

func printCatalog(w io.Writer, categories []theoremgap.Category) {
	for _, c := range categories {
		fmt.Fprintf(w, "%s (%d)", c.Keyword, len(c.Titles))
		if c.ExcludeFromTotal {
			fmt.Fprint(w, " not counted in total")
		}
		fmt.Fprintln(w)
		for _, t := range c.Titles {
			fmt.Fprintf(w, "  %s\n", canon.Unquote(t))
		}
	}
	fmt.Fprintf(w, "total: %d\n", len(catalog.Total(categories)))
}
