// Package wiki talks to a MediaWiki site: it resolves page names through
// redirects and fetches raw wikitext.
package wiki

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/codeGROOVE-dev/theoremgap/pkg/canon"
	"github.com/codeGROOVE-dev/theoremgap/pkg/httpcache"
	"github.com/codeGROOVE-dev/theoremgap/pkg/wikitext"
)

const (
	// DefaultBaseURL is English Wikipedia.
	DefaultBaseURL = "https://en.wikipedia.org"
	// DefaultReferencePage lists named theorems.
	DefaultReferencePage = "List of theorems"
)

// Resolution is the outcome of resolving a page name.
// Both fields are empty when no page exists under the name.
type Resolution struct {
	Title string // canonical page title, spaces restored
	URL   string // final page URL after redirects
}

// Found reports whether the name resolved to a page.
func (r Resolution) Found() bool { return r.Title != "" }

// Client handles MediaWiki requests.
type Client struct {
	httpClient    *http.Client
	cache         httpcache.Cacher
	logger        *slog.Logger
	base          *url.URL
	userAgent     string
	referencePage string
}

// Option configures a Client.
type Option func(*config)

type config struct {
	cache         httpcache.Cacher
	logger        *slog.Logger
	baseURL       string
	referencePage string
	timeout       time.Duration
}

// WithHTTPCache sets the HTTP cache.
func WithHTTPCache(httpCache httpcache.Cacher) Option {
	return func(c *config) { c.cache = httpCache }
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) { c.logger = logger }
}

// WithBaseURL points the client at another MediaWiki site.
func WithBaseURL(u string) Option {
	return func(c *config) { c.baseURL = u }
}

// WithReferencePage sets the page that ReferenceTitles reads.
func WithReferencePage(title string) Option {
	return func(c *config) { c.referencePage = title }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *config) { c.timeout = d }
}

// New creates a MediaWiki client. contact is included in the User-Agent as
// Wikimedia's usage policy requires.
func New(contact string, opts ...Option) (*Client, error) {
	cfg := &config{
		logger:        slog.Default(),
		baseURL:       DefaultBaseURL,
		referencePage: DefaultReferencePage,
		timeout:       30 * time.Second,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.cache == nil {
		cfg.cache = httpcache.NewNull()
	}

	base, err := url.Parse(strings.TrimSuffix(cfg.baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base URL: %w", err)
	}

	return &Client{
		httpClient:    &http.Client{Timeout: cfg.timeout},
		cache:         cfg.cache,
		logger:        cfg.logger,
		base:          base,
		userAgent:     UserAgent(contact),
		referencePage: cfg.referencePage,
	}, nil
}

// UserAgent returns the User-Agent sent to Wikimedia services.
func UserAgent(contact string) string {
	return fmt.Sprintf("theoremgap/1.0 (%s)", contact)
}

// pageName converts a title to the underscore form used in page URLs.
func pageName(title string) string {
	return strings.ReplaceAll(strings.TrimSpace(title), " ", "_")
}

// Resolve looks name up once, following redirects. Any failure, including a
// transport error, yields an empty Resolution: a miss is a valid outcome and
// is never retried.
func (c *Client) Resolve(ctx context.Context, name string) Resolution {
	page := *c.base
	page.Path = c.base.Path + "/wiki/" + pageName(name)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, page.String(), http.NoBody)
	if err != nil {
		c.logger.DebugContext(ctx, "bad page name", "name", name, "error", err)
		return Resolution{}
	}
	req.Header.Set("User-Agent", c.userAgent)

	final, err := httpcache.ResolveFinal(ctx, c.cache, c.httpClient, req, c.logger)
	if err != nil {
		c.logger.DebugContext(ctx, "page lookup failed", "name", name, "error", err)
		return Resolution{}
	}
	if final == "" {
		return Resolution{}
	}
	return Resolution{Title: titleFromURL(final), URL: final}
}

// titleFromURL recovers a page title from a page URL: everything after
// "/wiki/", or the last path segment when the URL has another shape.
func titleFromURL(raw string) string {
	segment := raw
	if u, err := url.Parse(raw); err == nil {
		segment = u.EscapedPath()
	}
	if _, after, found := strings.Cut(segment, "/wiki/"); found {
		segment = after
	} else if i := strings.LastIndex(segment, "/"); i >= 0 {
		segment = segment[i+1:]
	}
	return strings.ReplaceAll(canon.Unquote(segment), "_", " ")
}

// Raw returns the wikitext of the page with the given title.
func (c *Client) Raw(ctx context.Context, title string) (string, error) {
	page := *c.base
	page.Path = c.base.Path + "/w/index.php"
	page.RawQuery = url.Values{"title": {pageName(title)}, "action": {"raw"}}.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, page.String(), http.NoBody)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", c.userAgent)

	body, err := httpcache.FetchURL(ctx, c.cache, c.httpClient, req, c.logger)
	if err != nil {
		return "", fmt.Errorf("fetch wikitext for %q: %w", title, err)
	}
	return string(body), nil
}

// ReferenceTitles fetches the reference list page and returns the titles it
// declares. A page that cannot be fetched is an error; a page without list
// entries yields an empty slice.
func (c *Client) ReferenceTitles(ctx context.Context) ([]string, error) {
	c.logger.InfoContext(ctx, "fetching reference list", "page", c.referencePage)

	raw, err := c.Raw(ctx, c.referencePage)
	if err != nil {
		return nil, err
	}

	titles := wikitext.ReferenceTitles(raw)
	if len(titles) == 0 {
		c.logger.WarnContext(ctx, "reference list has no list entries", "page", c.referencePage, "bytes", len(raw))
	}
	return titles, nil
}
