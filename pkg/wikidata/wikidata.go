// Package wikidata queries the Wikidata SPARQL endpoint for theorem entities.
package wikidata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/codeGROOVE-dev/retry"

	"github.com/codeGROOVE-dev/theoremgap/pkg/httpcache"
)

// DefaultEndpoint is the public Wikidata query service.
const DefaultEndpoint = "https://query.wikidata.org/sparql"

const (
	attempts     = 3
	defaultDelay = 5 * time.Second
	// maxResponse bounds a query result; 50000 rows of JSON bindings fit easily.
	maxResponse = 128 << 20
)

// theoremsQuery selects every instance of "theorem" (Q65943) with its English
// label and, when present, its P818 cross reference.
const theoremsQuery = `SELECT ?theorem ?theoremLabel ?identifier WHERE {
  ?theorem wdt:P31 wd:Q65943.
  OPTIONAL { ?theorem wdt:P818 ?identifier }
  SERVICE wikibase:label { bd:serviceParam wikibase:language "en". }
}
LIMIT 50000`

// fieldsQuery selects the fields (P2579, "studied by") of every theorem.
const fieldsQuery = `SELECT ?theorem ?theoremLabel ?fieldLabel WHERE {
  ?theorem wdt:P31 wd:Q65943.
  ?theorem wdt:P2579 ?field.
  SERVICE wikibase:label { bd:serviceParam wikibase:language "en". }
}`

// Entry is one theorem row.
type Entry struct {
	ID         string // entity ID, e.g. "Q11518"
	Label      string // English label; may be empty or equal to ID
	Identifier string // optional cross reference, empty when absent
}

// Client runs SPARQL queries against a Wikidata-compatible endpoint.
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	endpoint   string
	userAgent  string
	retryDelay time.Duration
}

// Option configures a Client.
type Option func(*config)

type config struct {
	httpClient *http.Client
	logger     *slog.Logger
	endpoint   string
	retryDelay time.Duration
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) { c.logger = logger }
}

// WithEndpoint points the client at another SPARQL endpoint.
func WithEndpoint(u string) Option {
	return func(c *config) { c.endpoint = u }
}

// WithRetryDelay sets the fixed delay between query attempts.
func WithRetryDelay(d time.Duration) Option {
	return func(c *config) { c.retryDelay = d }
}

// WithHTTPClient sets the HTTP client used for queries.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *config) { c.httpClient = hc }
}

// New creates a Wikidata client. contact identifies the operator in the
// User-Agent, as the query service usage policy requires.
func New(contact string, opts ...Option) *Client {
	cfg := &config{
		httpClient: &http.Client{Timeout: 5 * time.Minute},
		logger:     slog.Default(),
		endpoint:   DefaultEndpoint,
		retryDelay: defaultDelay,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return &Client{
		httpClient: cfg.httpClient,
		logger:     cfg.logger,
		endpoint:   cfg.endpoint,
		userAgent:  fmt.Sprintf("theoremgap/1.0 (%s)", contact),
		retryDelay: cfg.retryDelay,
	}
}

type binding struct {
	Value string `json:"value"`
}

type results struct {
	Results struct {
		Bindings []map[string]binding `json:"bindings"`
	} `json:"results"`
}

// Theorems returns every theorem entity, split into entries with a usable
// label and entries without one. If the query fails on every attempt, both
// slices are nil: callers must read that as "source unavailable".
func (c *Client) Theorems(ctx context.Context) (labeled, unlabeled []Entry) {
	c.logger.InfoContext(ctx, "querying knowledge base", "endpoint", c.endpoint)

	res, err := c.query(ctx, theoremsQuery)
	if err != nil {
		c.logger.WarnContext(ctx, "knowledge base unavailable", "attempts", attempts, "error", err)
		return nil, nil
	}

	for _, row := range res.Results.Bindings {
		e := Entry{
			ID:         entityID(row["theorem"].Value),
			Label:      strings.TrimSpace(row["theoremLabel"].Value),
			Identifier: row["identifier"].Value,
		}
		if e.Label == "" || e.Label == e.ID {
			unlabeled = append(unlabeled, e)
			continue
		}
		labeled = append(labeled, e)
	}

	c.logger.InfoContext(ctx, "knowledge base answered", "labeled", len(labeled), "unlabeled", len(unlabeled))
	return labeled, unlabeled
}

// Fields returns the field labels of each theorem, keyed by entity ID.
// A failed query yields an empty map.
func (c *Client) Fields(ctx context.Context) map[string][]string {
	fields := make(map[string][]string)

	res, err := c.query(ctx, fieldsQuery)
	if err != nil {
		c.logger.WarnContext(ctx, "field query failed", "error", err)
		return fields
	}

	for _, row := range res.Results.Bindings {
		id := entityID(row["theorem"].Value)
		field := row["fieldLabel"].Value
		if id == "" || field == "" {
			continue
		}
		fields[id] = append(fields[id], field)
	}
	return fields
}

// query runs q with the fixed-delay retry policy.
func (c *Client) query(ctx context.Context, q string) (*results, error) {
	return retry.DoWithData(
		func() (*results, error) {
			return c.do(ctx, q)
		},
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.Delay(c.retryDelay),
		retry.DelayType(retry.FixedDelay),
		retry.OnRetry(func(n uint, err error) {
			c.logger.WarnContext(ctx, "query failed", "attempt", n+1, "error", err)
		}),
	)
}

func (c *Client) do(ctx context.Context, q string) (*results, error) {
	u := c.endpoint + "?" + url.Values{"query": {q}, "format": {"json"}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/sparql-results+json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close() //nolint:errcheck // intentional

	if resp.StatusCode != http.StatusOK {
		return nil, &httpcache.HTTPError{URL: c.endpoint, StatusCode: resp.StatusCode}
	}

	var res results
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponse)).Decode(&res); err != nil {
		return nil, fmt.Errorf("decode query results: %w", err)
	}
	return &res, nil
}

// entityID returns the last path segment of an entity URI.
func entityID(uri string) string {
	if i := strings.LastIndex(uri, "/"); i >= 0 {
		return uri[i+1:]
	}
	return uri
}
