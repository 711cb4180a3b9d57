package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/dnscache"
)

var (
	// ErrNotFound is returned when the upstream responds with 404.
	ErrNotFound = errors.New("resource not found")
	// ErrRateLimited is returned when the upstream responds with 429.
	ErrRateLimited = errors.New("rate limited by upstream")
	// ErrUnavailable is returned when the upstream responds with a 5xx status
	// or its circuit breaker is open.
	ErrUnavailable = errors.New("upstream unavailable")
)

const (
	// defaultMaxRetries is the default number of extra attempts per request.
	defaultMaxRetries = 3
	// defaultBaseDelay is the default first backoff delay between attempts.
	defaultBaseDelay = 500 * time.Millisecond
	// dnsRefreshInterval is how often cached DNS entries are refreshed.
	dnsRefreshInterval = 5 * time.Minute
)

// Response is the body of a successful GET.
type Response struct {
	// Body streams the payload. The caller must close it.
	Body io.ReadCloser
	// Size is the Content-Length, or -1 if unknown.
	Size int64
}

// Client performs HTTP requests against the catalog, metadata, and artifact
// hosts with retries, cached DNS, and a circuit breaker per host.
type Client struct {
	httpClient *http.Client
	userAgent  string
	maxRetries int
	baseDelay  time.Duration

	breakers *hostBreakers
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(f *Client) {
		f.httpClient = c
	}
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) Option {
	return func(f *Client) {
		f.userAgent = ua
	}
}

// WithMaxRetries sets the number of extra attempts after a transient failure.
func WithMaxRetries(n int) Option {
	return func(f *Client) {
		f.maxRetries = n
	}
}

// WithBaseDelay sets the first backoff delay between attempts.
func WithBaseDelay(d time.Duration) Option {
	return func(f *Client) {
		f.baseDelay = d
	}
}

// New creates a Client with the given options.
// The default transport caches DNS lookups and refreshes them periodically,
// since an install plan hits the same few hosts hundreds of times.
func New(opts ...Option) *Client {
	resolver := &dnscache.Resolver{}

	go func() {
		ticker := time.NewTicker(dnsRefreshInterval)
		defer ticker.Stop()

		for range ticker.C {
			resolver.Refresh(true)
		}
	}()

	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	c := &Client{
		httpClient: &http.Client{
			// Runtime archives run to hundreds of megabytes.
			Timeout: 10 * time.Minute,
			Transport: &http.Transport{
				DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
					host, port, err := net.SplitHostPort(addr)
					if err != nil {
						return nil, err
					}

					ips, err := resolver.LookupHost(ctx, host)
					if err != nil {
						return nil, err
					}

					for _, ip := range ips {
						conn, dialErr := dialer.DialContext(ctx, network, net.JoinHostPort(ip, port))
						if dialErr == nil {
							return conn, nil
						}

						err = dialErr
					}

					return nil, fmt.Errorf("dial %s: %w", addr, err)
				},
				MaxIdleConns:          100,
				MaxIdleConnsPerHost:   10,
				IdleConnTimeout:       90 * time.Second,
				TLSHandshakeTimeout:   10 * time.Second,
				ExpectContinueTimeout: 1 * time.Second,
			},
		},
		userAgent:  "CottageLauncher",
		maxRetries: defaultMaxRetries,
		baseDelay:  defaultBaseDelay,
		breakers:   newHostBreakers(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Get downloads the resource at the given URL.
// Transient failures (timeouts, 429, 5xx) are retried with exponential
// backoff; repeated failures against one host open its circuit breaker.
// The caller must close the returned Response.Body.
func (c *Client) Get(ctx context.Context, rawURL string) (*Response, error) {
	breaker := c.breakers.forURL(rawURL)
	if !breaker.Ready() {
		return nil, fmt.Errorf("circuit open for %s: %w", hostOf(rawURL), ErrUnavailable)
	}

	var resp *Response

	err := breaker.Call(func() error {
		var getErr error
		resp, getErr = c.getWithRetry(ctx, rawURL)

		return getErr
	}, 0)
	if err != nil {
		return nil, err
	}

	return resp, nil
}

// GetJSON downloads and decodes a JSON document into out.
func (c *Client) GetJSON(ctx context.Context, rawURL string, out any) error {
	resp, err := c.Get(ctx, rawURL)
	if err != nil {
		return err
	}

	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response from %s: %w", rawURL, err)
	}

	return nil
}

func (c *Client) getWithRetry(ctx context.Context, rawURL string) (*Response, error) {
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			// Exponential backoff with 10% jitter to avoid thundering herds
			// when many workers hit the same host.
			delay := c.baseDelay * time.Duration(math.Pow(2, float64(attempt-1)))
			delay += time.Duration(float64(delay) * (rand.Float64() * 0.1)) //nolint:gosec // Jitter needs no crypto randomness.

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		resp, err := c.doGet(ctx, rawURL)
		if err == nil {
			return resp, nil
		}

		lastErr = err

		if !isRetryable(ctx, err) {
			return nil, err
		}
	}

	return nil, lastErr
}

func (c *Client) doGet(ctx context.Context, rawURL string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "*/*")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", rawURL, err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		size := int64(-1)
		if cl := resp.Header.Get("Content-Length"); cl != "" {
			if n, parseErr := strconv.ParseInt(cl, 10, 64); parseErr == nil {
				size = n
			}
		}

		return &Response{Body: resp.Body, Size: size}, nil

	case resp.StatusCode == http.StatusNotFound:
		_ = resp.Body.Close()

		return nil, fmt.Errorf("get %s: %w", rawURL, ErrNotFound)

	case resp.StatusCode == http.StatusTooManyRequests:
		_ = resp.Body.Close()

		return nil, fmt.Errorf("get %s: %w", rawURL, ErrRateLimited)

	case resp.StatusCode >= http.StatusInternalServerError:
		_ = resp.Body.Close()

		return nil, fmt.Errorf("get %s: status %d: %w", rawURL, resp.StatusCode, ErrUnavailable)

	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		_ = resp.Body.Close()

		return nil, fmt.Errorf("get %s: unexpected status %d: %s", rawURL, resp.StatusCode, string(body))
	}
}

// isRetryable reports whether another attempt could succeed.
// Missing resources and other client errors are final; rate limits,
// server errors, and transport failures are worth retrying.
func isRetryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}

	if errors.Is(err, ErrNotFound) {
		return false
	}

	if errors.Is(err, ErrRateLimited) || errors.Is(err, ErrUnavailable) {
		return true
	}

	var urlErr *url.Error

	return errors.As(err, &urlErr)
}

// hostOf extracts the host part of a URL for breaker grouping and messages.
func hostOf(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		if len(rawURL) > 50 {
			return rawURL[:50]
		}

		return rawURL
	}

	return parsed.Host
}
