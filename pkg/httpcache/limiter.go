package httpcache

import (
	"context"
	"log/slog"
	"net/url"
	"sync"
	"time"
)

// DefaultLimiter spaces out every request made through this package.
var DefaultLimiter = NewLimiter(50 * time.Millisecond)

// Limiter enforces a minimum delay between requests to the same host.
type Limiter struct {
	lastRequest sync.Map // host -> time.Time
	mu          sync.Map // host -> *sync.Mutex

	cfgMu     sync.RWMutex
	overrides map[string]time.Duration
	minDelay  time.Duration
}

// NewLimiter creates a Limiter with the given default spacing.
func NewLimiter(minDelay time.Duration) *Limiter {
	return &Limiter{
		minDelay:  minDelay,
		overrides: map[string]time.Duration{},
	}
}

// SetDelay changes the default spacing.
func (l *Limiter) SetDelay(d time.Duration) {
	l.cfgMu.Lock()
	l.minDelay = d
	l.cfgMu.Unlock()
}

// SetHostDelay overrides the spacing for a single host.
func (l *Limiter) SetHostDelay(host string, d time.Duration) {
	l.cfgMu.Lock()
	l.overrides[host] = d
	l.cfgMu.Unlock()
}

func (l *Limiter) delay(host string) time.Duration {
	l.cfgMu.RLock()
	defer l.cfgMu.RUnlock()
	if d, ok := l.overrides[host]; ok {
		return d
	}
	return l.minDelay
}

// Wait blocks until a request to rawURL's host may be sent, or ctx is done.
func (l *Limiter) Wait(ctx context.Context, rawURL string, logger *slog.Logger) error {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return nil
	}
	host := u.Host

	delay := l.delay(host)
	if delay <= 0 {
		return nil
	}

	muI, _ := l.mu.LoadOrStore(host, &sync.Mutex{})
	mu, ok := muI.(*sync.Mutex)
	if !ok {
		return nil
	}

	mu.Lock()
	defer mu.Unlock()

	if lastI, ok := l.lastRequest.Load(host); ok {
		if last, ok := lastI.(time.Time); ok {
			if elapsed := time.Since(last); elapsed < delay {
				wait := delay - elapsed
				if logger != nil {
					logger.Debug("rate limit pause", "host", host, "wait", wait)
				}
				timer := time.NewTimer(wait)
				select {
				case <-ctx.Done():
					timer.Stop()
					return ctx.Err()
				case <-timer.C:
				}
			}
		}
	}

	l.lastRequest.Store(host, time.Now())
	return nil
}
