package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Retry timing; overridden by tests.
var (
	backoffUnit       = time.Second
	retryBuffer       = 5 * time.Second
	defaultRetryDelay = 60 * time.Second
)

// ---------------------------------------------------------------------------
// Rate limit state (global pause for parallel workers)
// ---------------------------------------------------------------------------

type rateLimitState struct {
	mu       sync.Mutex
	paused   int32 // atomic: 1 = paused
	pauseEnd time.Time
}

func (r *rateLimitState) isPaused() bool {
	return atomic.LoadInt32(&r.paused) == 1
}

func (r *rateLimitState) pause(duration time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pauseEnd = time.Now().Add(duration)
	atomic.StoreInt32(&r.paused, 1)
}

func (r *rateLimitState) unpause() {
	atomic.StoreInt32(&r.paused, 0)
}

// waitIfPaused blocks until the rate limit pause is over.
func (r *rateLimitState) waitIfPaused(ctx context.Context) error {
	for r.isPaused() {
		r.mu.Lock()
		remaining := time.Until(r.pauseEnd)
		r.mu.Unlock()
		if remaining <= 0 {
			r.unpause()
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(min(remaining, 100*time.Millisecond)):
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// HTTP client with proxy support
// ---------------------------------------------------------------------------

func makeHTTPClient(proxyURL string, timeout time.Duration) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()

	if proxyURL != "" {
		parsed, err := url.Parse(proxyURL)
		if err == nil {
			transport.Proxy = http.ProxyURL(parsed)
		}
	} else {
		transport.Proxy = http.ProxyFromEnvironment
	}

	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}
}

// poster sends requests with retries, shared by every HTTP-based client.
type poster struct {
	name       string
	client     *http.Client
	rl         *rateLimitState
	maxRetries int
	debugf     func(format string, args ...any)
}

func newPoster(opts Options) *poster {
	return &poster{
		name:       opts.Provider.Name,
		client:     makeHTTPClient(opts.Provider.Proxy, opts.effectiveTimeout()),
		rl:         &rateLimitState{},
		maxRetries: opts.effectiveMaxRetries(),
		debugf:     opts.debugf,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

func backoff(attempt int) time.Duration {
	return time.Duration(math.Pow(2, float64(attempt))) * backoffUnit
}

// post sends body to endpoint and returns the body of a 200 response.
// Transport errors and 5xx are retried with exponential backoff; 429 pauses
// every worker sharing this poster for the server-advertised delay.
func (p *poster) post(ctx context.Context, endpoint string, headers map[string]string, body []byte) ([]byte, error) {
	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		if err := p.rl.waitIfPaused(ctx); err != nil {
			return nil, err
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("creating request: %w", err)
		}
		for k, v := range headers {
			req.Header.Set(k, v)
		}

		p.debugf("%s attempt %d: POST %s", p.name, attempt+1, redactURL(endpoint))

		resp, err := p.client.Do(req)
		if err != nil {
			if attempt < p.maxRetries {
				if err := sleepCtx(ctx, backoff(attempt)); err != nil {
					return nil, err
				}
				continue
			}
			return nil, fmt.Errorf("API request failed: %w", err)
		}

		respBody, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests {
			retryDelay := parseRetryDelay(respBody)
			p.debugf("429 rate limited, waiting %v before retry (attempt %d/%d)", retryDelay, attempt+1, p.maxRetries)
			p.rl.pause(retryDelay)
			if attempt < p.maxRetries {
				if err := sleepCtx(ctx, retryDelay); err != nil {
					return nil, err
				}
				p.rl.unpause()
				continue
			}
			return nil, fmt.Errorf("rate limited after %d retries: %s", p.maxRetries, truncate(string(respBody), 300))
		}

		if resp.StatusCode != http.StatusOK {
			if attempt < p.maxRetries && resp.StatusCode >= 500 {
				if err := sleepCtx(ctx, backoff(attempt)); err != nil {
					return nil, err
				}
				continue
			}
			return nil, fmt.Errorf("API returned status %d: %s", resp.StatusCode, apiErrorMessage(respBody))
		}

		return respBody, nil
	}

	return nil, fmt.Errorf("exhausted all %d retries", p.maxRetries)
}

// redactURL drops the query so API keys passed as ?key= never reach logs.
func redactURL(endpoint string) string {
	if i := strings.IndexByte(endpoint, '?'); i >= 0 {
		return endpoint[:i]
	}
	return endpoint
}

// apiErrorMessage returns error.message from a JSON error body, or the
// truncated body.
func apiErrorMessage(body []byte) string {
	var errResp struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &errResp) == nil && errResp.Error.Message != "" {
		return errResp.Error.Message
	}
	return truncate(string(body), 500)
}

// parseRetryDelay extracts the retry delay from a 429 response body.
// Looks for Google's RetryInfo detail with retryDelay field and adds a
// safety buffer; defaults to one minute plus the buffer.
func parseRetryDelay(body []byte) time.Duration {
	var errResp struct {
		Error struct {
			Details []struct {
				Type       string `json:"@type"`
				RetryDelay string `json:"retryDelay"`
			} `json:"details"`
		} `json:"error"`
	}

	if err := json.Unmarshal(body, &errResp); err != nil {
		return defaultRetryDelay + retryBuffer
	}

	for _, detail := range errResp.Error.Details {
		if strings.Contains(detail.Type, "RetryInfo") && detail.RetryDelay != "" {
			d := strings.TrimSuffix(detail.RetryDelay, "s")
			if secs, err := strconv.ParseFloat(d, 64); err == nil {
				return time.Duration(secs*1000)*time.Millisecond + retryBuffer
			}
		}
	}

	return defaultRetryDelay + retryBuffer
}

// truncate truncates a string to maxLen bytes.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
