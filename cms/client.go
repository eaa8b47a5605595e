// Package cms reads content entries from the practice's headless CMS REST API.
package cms

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

var (
	ErrNotFound           = errors.New("cms: entry not found")
	ErrFieldMissing       = errors.New("cms: field missing")
	ErrUnexpectedResponse = errors.New("cms: unexpected response")
)

// Collection slugs of the practice website.
const (
	CollectionPages      = "pages"
	CollectionTreatments = "treatments"
	CollectionTeam       = "team"
	CollectionFAQs       = "faqs"
	CollectionPricing    = "pricing"
	CollectionCareers    = "careers"
	CollectionLegal      = "legal"
)

type Client struct {
	baseURL        string
	apiKey         string
	authCollection string
	httpClient     *http.Client
	attempts       uint
	delay          time.Duration
	logger         *zap.Logger
}

type Option func(*Client)

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// WithAPIKey authenticates requests as a user of authCollection
// (usually "users").
func WithAPIKey(authCollection, key string) Option {
	return func(c *Client) {
		c.authCollection = authCollection
		c.apiKey = key
	}
}

// WithRetry sets how often a transient failure (network error, 429, 5xx)
// is attempted in total.
func WithRetry(attempts uint, delay time.Duration) Option {
	return func(c *Client) {
		if attempts > 0 {
			c.attempts = attempts
		}
		c.delay = delay
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		authCollection: "users",
		httpClient:     http.DefaultClient,
		attempts:       3,
		delay:          200 * time.Millisecond,
		logger:         zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FindByID loads a single entry.
func (c *Client) FindByID(ctx context.Context, collection, id string) (*Entry, error) {
	if id == "" {
		return nil, fmt.Errorf("%s: empty id: %w", collection, ErrNotFound)
	}
	body, err := c.get(ctx, "/api/"+url.PathEscape(collection)+"/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}
	if !gjson.ValidBytes(body) || !gjson.ParseBytes(body).IsObject() {
		return nil, fmt.Errorf("%s/%s: %w", collection, id, ErrUnexpectedResponse)
	}
	return &Entry{Collection: collection, raw: body}, nil
}

// FindBySlug loads the first entry whose slug field equals slug.
func (c *Client) FindBySlug(ctx context.Context, collection, slug string) (*Entry, error) {
	query := url.Values{}
	query.Set("where[slug][equals]", slug)
	query.Set("limit", "1")
	entries, err := c.find(ctx, collection, query)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%s with slug %q: %w", collection, slug, ErrNotFound)
	}
	return entries[0], nil
}

// List returns up to limit entries of a collection in the CMS default order.
func (c *Client) List(ctx context.Context, collection string, limit int) ([]*Entry, error) {
	query := url.Values{}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	return c.find(ctx, collection, query)
}

func (c *Client) find(ctx context.Context, collection string, query url.Values) ([]*Entry, error) {
	body, err := c.get(ctx, "/api/"+url.PathEscape(collection), query)
	if err != nil {
		return nil, err
	}
	docs := gjson.GetBytes(body, "docs")
	if !docs.IsArray() {
		return nil, fmt.Errorf("%s: missing docs: %w", collection, ErrUnexpectedResponse)
	}
	var entries []*Entry
	docs.ForEach(func(_, doc gjson.Result) bool {
		if doc.IsObject() {
			entries = append(entries, &Entry{Collection: collection, raw: []byte(doc.Raw)})
		}
		return true
	})
	return entries, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return retry.DoWithData(
		func() ([]byte, error) {
			return c.do(ctx, u)
		},
		retry.Context(ctx),
		retry.Attempts(c.attempts),
		retry.Delay(c.delay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			c.logger.Warn("retrying CMS request", zap.String("url", u), zap.Uint("attempt", n+1), zap.Error(err))
		}),
	)
}

func (c *Client) do(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, retry.Unrecoverable(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", c.authCollection+" API-Key "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", u, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return body, nil
	case resp.StatusCode == http.StatusNotFound:
		return nil, retry.Unrecoverable(fmt.Errorf("%s: %w", u, ErrNotFound))
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, fmt.Errorf("CMS request failed with status: %d", resp.StatusCode)
	default:
		return nil, retry.Unrecoverable(fmt.Errorf("CMS request failed with status: %d", resp.StatusCode))
	}
}
