package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/codeGROOVE-dev/theoremgap/pkg/htmlutil"
	"github.com/codeGROOVE-dev/theoremgap/pkg/httpcache"
)

// DefaultIndexURL is the nLab "all pages" index.
const DefaultIndexURL = "https://ncatlab.org/nlab/all_pages"

// Client fetches a page index and extracts categories from it.
type Client struct {
	httpClient *http.Client
	cache      httpcache.Cacher
	logger     *slog.Logger
	indexURL   string
	userAgent  string
	rules      []Rule
}

// Option configures a Client.
type Option func(*config)

type config struct {
	cache     httpcache.Cacher
	logger    *slog.Logger
	indexURL  string
	userAgent string
	rules     []Rule
}

// WithHTTPCache sets the HTTP cache.
func WithHTTPCache(httpCache httpcache.Cacher) Option {
	return func(c *config) { c.cache = httpCache }
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) { c.logger = logger }
}

// WithIndexURL overrides the page index location.
func WithIndexURL(u string) Option {
	return func(c *config) { c.indexURL = u }
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *config) { c.userAgent = ua }
}

// WithRules replaces DefaultRules.
func WithRules(rules []Rule) Option {
	return func(c *config) { c.rules = rules }
}

// New creates a catalog client.
func New(opts ...Option) *Client {
	cfg := &config{
		logger:    slog.Default(),
		indexURL:  DefaultIndexURL,
		userAgent: "theoremgap/1.0",
		rules:     DefaultRules(),
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.cache == nil {
		cfg.cache = httpcache.NewNull()
	}

	return &Client{
		httpClient: &http.Client{Timeout: 2 * time.Minute},
		cache:      cfg.cache,
		logger:     cfg.logger,
		indexURL:   cfg.indexURL,
		userAgent:  cfg.userAgent,
		rules:      cfg.rules,
	}
}

// Fetch downloads the page index and applies every rule. A fetch failure is
// returned as an error; an index without matching links yields empty categories.
func (c *Client) Fetch(ctx context.Context) ([]Category, error) {
	c.logger.InfoContext(ctx, "fetching page index", "url", c.indexURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.indexURL, http.NoBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "text/html")

	body, err := httpcache.FetchURL(ctx, c.cache, c.httpClient, req, c.logger)
	if err != nil {
		return nil, fmt.Errorf("fetch page index: %w", err)
	}

	links, err := htmlutil.Links(string(body))
	if err != nil {
		return nil, err
	}
	if len(links) == 0 {
		c.logger.WarnContext(ctx, "page index contains no links", "url", c.indexURL)
	}

	categories := ExtractAll(links, c.rules)
	for _, cat := range categories {
		c.logger.DebugContext(ctx, "extracted category", "keyword", cat.Keyword, "count", len(cat.Titles))
	}
	return categories, nil
}
