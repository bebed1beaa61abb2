package pipeline

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/accordhq/accord/internal/cache"
	"github.com/accordhq/accord/internal/model"
	"github.com/accordhq/accord/internal/util"
	"github.com/accordhq/accord/internal/worker"
)

const fetchMaxRetries = 3

// ErrRobotsBlocked marks a fetch refused because robots.txt disallows the
// path for our agent. Callers match it with errors.Is.
var ErrRobotsBlocked = errors.New("blocked by robots.txt")

// fetchSleepFunc is the sleep function used between retries (injectable for tests)
var fetchSleepFunc = time.Sleep

// Fetcher retrieves policy documents over HTTP. Robots checking, per-host
// rate limiting, and the layered cache are optional collaborators; each is
// skipped while its field is nil.
type Fetcher struct {
	httpClient *http.Client
	userAgent  string
	maxBytes   int64

	Robots   *util.RobotsChecker
	Limiter  *worker.Limiter
	Store    cache.Cache
	StoreTTL time.Duration
}

// NewFetcher creates a new Fetcher with the given HTTP behavior
func NewFetcher(timeout time.Duration, userAgent string, maxBytes int64, insecureTLS bool, httpProxy, httpsProxy, noProxy string) *Fetcher {
	transport := &http.Transport{
		Proxy: util.NewProxyFunc(httpProxy, httpsProxy, noProxy),
	}
	if insecureTLS {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return &Fetcher{
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: transport,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("stopped after 3 redirects")
				}
				return nil
			},
		},
		userAgent: userAgent,
		maxBytes:  maxBytes,
	}
}

// FetcherFromConfig builds a fully wired Fetcher: robots checking unless
// disabled, polite per-host rate limiting, and the document cache when
// enabled.
func FetcherFromConfig(httpCfg model.HTTPConfig, cacheCfg model.CacheConfig) *Fetcher {
	f := NewFetcher(httpCfg.Timeout, httpCfg.UserAgent, httpCfg.MaxBodyBytes, httpCfg.InsecureTLS,
		httpCfg.HTTPProxy, httpCfg.HTTPSProxy, httpCfg.NoProxy)

	if !httpCfg.IgnoreRobots {
		f.Robots = util.NewRobotsChecker(httpCfg.UserAgent, httpCfg.Timeout)
	}
	if httpCfg.RatePerSecond > 0 {
		f.Limiter = worker.NewLimiter(httpCfg.RatePerSecond, httpCfg.Burst)
	}
	if store := cache.FromConfig(cacheCfg); store != nil {
		f.Store = store
		f.StoreTTL = cacheCfg.DiskTTL
	}
	return f
}

// FetchResult contains a fetched document body and its transport metadata
type FetchResult struct {
	Body      string          `json:"body"`
	Meta      model.FetchMeta `json:"meta"`
	FinalURL  string          `json:"final_url"`
	FromCache bool            `json:"-"`
}

// Fetch retrieves the document at the given URL. Cache hits skip robots
// and rate-limit checks since no request leaves the process.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*FetchResult, error) {
	if f.Store != nil {
		if data, ok := f.Store.Get(cache.CacheKey(rawURL)); ok {
			var cached FetchResult
			if err := json.Unmarshal(data, &cached); err == nil {
				cached.FromCache = true
				return &cached, nil
			}
			// A corrupt entry is refetched
		}
	}

	var crawlDelay time.Duration
	if f.Robots != nil {
		allowed, delay, err := f.Robots.CanFetch(ctx, rawURL)
		if err != nil {
			return nil, fmt.Errorf("robots check: %w", err)
		}
		if !allowed {
			return nil, fmt.Errorf("%w: %s", ErrRobotsBlocked, rawURL)
		}
		crawlDelay = delay
	}

	if f.Limiter != nil {
		if err := f.Limiter.WaitWithDelay(ctx, rawURL, crawlDelay); err != nil {
			return nil, fmt.Errorf("rate limit: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,text/markdown;q=0.9,text/plain;q=0.8,*/*;q=0.5")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	meta := model.FetchMeta{
		StatusCode:   resp.StatusCode,
		ContentType:  resp.Header.Get("Content-Type"),
		LastModified: resp.Header.Get("Last-Modified"),
		ETag:         resp.Header.Get("ETag"),
		Headers:      make(map[string]string),
	}

	// Store selected headers
	for _, key := range []string{"Content-Length", "Server", "Cache-Control"} {
		if val := resp.Header.Get(key); val != "" {
			meta.Headers[key] = val
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status: %d %s", resp.StatusCode, resp.Status)
	}

	// Read body with size limit
	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	result := &FetchResult{
		Body:     string(body),
		Meta:     meta,
		FinalURL: resp.Request.URL.String(),
	}

	if f.Store != nil {
		if data, err := json.Marshal(result); err == nil {
			_ = f.Store.Set(cache.CacheKey(rawURL), data, f.StoreTTL)
		}
	}

	return result, nil
}

// FetchWithRetry fetches with up to fetchMaxRetries attempts, backing off
// linearly between them. Non-retryable errors fail immediately.
func (f *Fetcher) FetchWithRetry(ctx context.Context, rawURL string) (*FetchResult, error) {
	var lastErr error
	for attempt := 1; attempt <= fetchMaxRetries; attempt++ {
		result, err := f.Fetch(ctx, rawURL)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !isRetryableFetchError(err) {
			return nil, err
		}
		if attempt < fetchMaxRetries {
			fetchSleepFunc(time.Duration(attempt) * time.Second)
		}
	}
	return nil, lastErr
}

// isRetryableFetchError reports whether a fetch failure is worth retrying:
// 5xx and 429 statuses, and transport-level failures. Client errors and
// local failures (bad URL, truncated body) are permanent.
func isRetryableFetchError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()

	if rest, ok := strings.CutPrefix(msg, "unexpected status: "); ok {
		if len(rest) >= 3 {
			if rest[:3] == "429" {
				return true
			}
			if rest[0] == '5' {
				return true
			}
		}
		return false
	}

	return strings.HasPrefix(msg, "fetch: ")
}
