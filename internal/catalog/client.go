package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"

	"github.com/WillHanighen/CottageLauncher/internal/fetch"
)

var (
	// ErrUnavailable is returned when the catalog or a metadata service is
	// unreachable or answers with a malformed body. The caller may try
	// again later; the client itself only retries a bounded number of times.
	ErrUnavailable = errors.New("catalog unavailable")
	// ErrNotFound is returned when a project or version does not exist.
	ErrNotFound = errors.New("not found in catalog")
)

// DefaultSearchLimit caps search results when the caller does not say.
const DefaultSearchLimit = 24

// Client talks to the pack catalog and the loader and game metadata
// services. All responses are treated as untrusted: nothing the catalog
// claims is believed until file checksums verify on download.
type Client struct {
	http          *fetch.Client
	catalogURL    string
	loaderMetaURL string
	gameMetaURL   string
	loaderMaven   string
}

// Option customizes a catalog client.
type Option func(*Client)

// WithLoaderMaven overrides the Maven repository holding the loader and
// intermediary jars.
func WithLoaderMaven(repo string) Option {
	return func(c *Client) {
		c.loaderMaven = strings.TrimSuffix(repo, "/")
	}
}

// New creates a catalog client over the given HTTP client and base URLs.
func New(httpClient *fetch.Client, catalogURL, loaderMetaURL, gameMetaURL string, opts ...Option) *Client {
	c := &Client{
		http:          httpClient,
		catalogURL:    strings.TrimSuffix(catalogURL, "/"),
		loaderMetaURL: strings.TrimSuffix(loaderMetaURL, "/"),
		gameMetaURL:   strings.TrimSuffix(gameMetaURL, "/"),
		loaderMaven:   fabricMaven,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Search queries the catalog for projects matching the query string.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]SearchHit, error) {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	searchURL := fmt.Sprintf("%s/search?query=%s&limit=%s",
		c.catalogURL, url.QueryEscape(query), strconv.Itoa(limit))

	var resp searchResponse
	if err := c.getJSON(ctx, searchURL, &resp); err != nil {
		return nil, err
	}

	return resp.Hits, nil
}

// Project fetches catalog metadata for one project by id or slug.
func (c *Client) Project(ctx context.Context, idOrSlug string) (*Project, error) {
	var project Project
	if err := c.getJSON(ctx, fmt.Sprintf("%s/project/%s", c.catalogURL, url.PathEscape(idOrSlug)), &project); err != nil {
		return nil, err
	}

	return &project, nil
}

// version fetches one specific published version of a project.
func (c *Client) version(ctx context.Context, versionID string) (*projectVersion, error) {
	var v projectVersion
	if err := c.getJSON(ctx, fmt.Sprintf("%s/version/%s", c.catalogURL, url.PathEscape(versionID)), &v); err != nil {
		return nil, err
	}

	return &v, nil
}

// versions fetches all published versions of a project, newest first.
func (c *Client) versions(ctx context.Context, idOrSlug string) ([]projectVersion, error) {
	var list []projectVersion
	if err := c.getJSON(ctx, fmt.Sprintf("%s/project/%s/version", c.catalogURL, url.PathEscape(idOrSlug)), &list); err != nil {
		return nil, err
	}

	return list, nil
}

// getJSON wraps transport and decoding failures into the catalog taxonomy.
func (c *Client) getJSON(ctx context.Context, rawURL string, out any) error {
	err := c.http.GetJSON(ctx, rawURL, out)
	if err == nil {
		return nil
	}

	if errors.Is(err, fetch.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, rawURL)
	}

	if ctx.Err() != nil {
		return err
	}

	return fmt.Errorf("%w: %s", ErrUnavailable, err)
}

// getText fetches a small plain-text resource, such as a Maven digest file.
func (c *Client) getText(ctx context.Context, rawURL string) (string, error) {
	resp, err := c.http.Get(ctx, rawURL)
	if err != nil {
		if errors.Is(err, fetch.ErrNotFound) {
			return "", fmt.Errorf("%w: %s", ErrNotFound, rawURL)
		}

		if ctx.Err() != nil {
			return "", err
		}

		return "", fmt.Errorf("%w: %s", ErrUnavailable, err)
	}

	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1024))
	if err != nil {
		return "", fmt.Errorf("%w: read %s: %s", ErrUnavailable, rawURL, err)
	}

	return strings.TrimSpace(string(data)), nil
}
