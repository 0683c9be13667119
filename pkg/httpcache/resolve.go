package httpcache

import (
	"context"
	"io"
	"log/slog"
	"net/http"
)

// ResolveFinal sends req once, following HTTP redirects, and returns the URL of
// the page that finally answered with 200 OK. A conclusive non-200 answer
// (404, 410, ...) is a miss and yields "" with a nil error. Transient statuses
// (429, 5xx) return an *HTTPError and transport failures return their error.
// The request is never retried.
//
// When cache is non-nil, answers and conclusive misses are cached under a key
// derived from the request URL. Errors are not cached.
func ResolveFinal(ctx context.Context, cache Cacher, client *http.Client, req *http.Request, logger *slog.Logger) (string, error) {
	if cache == nil {
		recordMiss()
		return resolveFinal(ctx, client, req, logger)
	}

	var wasFetched bool
	data, err := cache.GetSet(ctx, "redirect:"+URLToKey(req.URL.String()), func(ctx context.Context) ([]byte, error) {
		wasFetched = true
		recordMiss()
		final, err := resolveFinal(ctx, client, req, logger)
		if err != nil {
			return nil, err
		}
		return []byte(final), nil
	}, cache.TTL())

	if !wasFetched {
		recordHit()
	}
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func resolveFinal(ctx context.Context, client *http.Client, req *http.Request, logger *slog.Logger) (string, error) {
	if err := DefaultLimiter.Wait(ctx, req.URL.String(), logger); err != nil {
		return "", err
	}

	resp, err := client.Do(req.Clone(ctx))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close() //nolint:errcheck // intentional
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024)) //nolint:errcheck // drain for connection reuse

	if resp.StatusCode != http.StatusOK {
		httpErr := &HTTPError{URL: req.URL.String(), StatusCode: resp.StatusCode}
		if isRetryableError(httpErr) {
			return "", httpErr
		}
		if logger != nil {
			logger.Debug("redirect lookup missed", "url", req.URL.String(), "status", resp.StatusCode)
		}
		return "", nil
	}

	final := resp.Request.URL.String()
	if logger != nil && final != req.URL.String() {
		logger.Debug("followed redirect", "from", req.URL.String(), "to", final)
	}
	return final, nil
}
