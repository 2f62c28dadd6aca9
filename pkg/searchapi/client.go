// Package searchapi provides clients for the public French company registry
// search API (recherche-entreprises.api.gouv.fr), either called directly or
// through a search-companies proxy.
package searchapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"time"

	"go.uber.org/zap"

	"github.com/annuaire-entreprises/annuaire-engine/pkg/metrics"
	"github.com/annuaire-entreprises/annuaire-engine/pkg/models"
)

// DefaultBaseURL is the public registry API.
const DefaultBaseURL = "https://recherche-entreprises.api.gouv.fr"

// DefaultTimeout is the maximum time to wait for a registry response.
const DefaultTimeout = 10 * time.Second

// maxErrorBody bounds how much of an error response is kept.
const maxErrorBody = 512

// Source is a company registry search backend.
type Source interface {
	// Search runs a search and decodes the page.
	Search(ctx context.Context, params url.Values) (*models.SearchResponse, error)
	// SearchRaw runs a search and returns the response body untouched.
	SearchRaw(ctx context.Context, params url.Values) ([]byte, error)
}

// Options configures a Client or ProxyClient. Zero values use the defaults.
type Options struct {
	BaseURL    string
	Timeout    time.Duration
	UserAgent  string
	HTTPClient *http.Client
	Metrics    *metrics.Metrics
}

func (o Options) httpClient() *http.Client {
	if o.HTTPClient != nil {
		return o.HTTPClient
	}
	timeout := o.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{Timeout: timeout}
}

// Client calls the registry's /search endpoint directly.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	metrics    *metrics.Metrics
	logger     *zap.Logger
}

var _ Source = (*Client)(nil)

// NewClient creates a registry client.
func NewClient(opts Options, logger *zap.Logger) *Client {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:    baseURL,
		userAgent:  opts.UserAgent,
		httpClient: opts.httpClient(),
		metrics:    opts.Metrics,
		logger:     logger.Named("searchapi"),
	}
}

func (c *Client) Search(ctx context.Context, params url.Values) (*models.SearchResponse, error) {
	body, err := c.SearchRaw(ctx, params)
	if err != nil {
		return nil, err
	}
	resp, err := decodeSearchResponse(body)
	if err != nil {
		c.metrics.ObserveUpstream("direct", metrics.OutcomeDecode, 0)
		return nil, err
	}
	return resp, nil
}

func (c *Client) SearchRaw(ctx context.Context, params url.Values) ([]byte, error) {
	endpoint, err := buildURL(c.baseURL, "search")
	if err != nil {
		return nil, fmt.Errorf("failed to build URL: %w", err)
	}
	endpoint += "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	c.logger.Debug("Searching company registry", zap.String("url", endpoint))

	return do(c.httpClient, req, "direct", c.metrics, c.logger)
}

// do executes req and returns the body of a 2xx response.
func do(client *http.Client, req *http.Request, name string, m *metrics.Metrics, logger *zap.Logger) ([]byte, error) {
	start := time.Now()

	body, err := roundTrip(client, req)
	if err != nil {
		var apiErr *Error
		if errors.As(err, &apiErr) {
			m.ObserveUpstream(name, apiErr.outcome(), time.Since(start))
			logger.Warn("Search API call failed",
				zap.Int("status", apiErr.StatusCode),
				zap.Error(err))
		}
		return nil, err
	}

	m.ObserveUpstream(name, metrics.OutcomeSuccess, time.Since(start))
	return body, nil
}

func roundTrip(client *http.Client, req *http.Request) ([]byte, error) {
	resp, err := client.Do(req)
	if err != nil {
		return nil, &Error{Kind: KindTransport, Err: err, Canceled: req.Context().Err() != nil}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{
			Kind:     KindTransport,
			Err:      fmt.Errorf("failed to read response: %w", err),
			Canceled: req.Context().Err() != nil,
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if len(body) > maxErrorBody {
			body = body[:maxErrorBody]
		}
		return nil, &Error{Kind: KindStatus, StatusCode: resp.StatusCode, Body: string(body)}
	}

	return body, nil
}

func decodeSearchResponse(body []byte) (*models.SearchResponse, error) {
	var resp models.SearchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &Error{Kind: KindDecode, Err: err}
	}
	if resp.Results == nil {
		resp.Results = []models.Company{}
	}
	return &resp, nil
}

// buildURL constructs a URL by parsing the base and joining path segments.
func buildURL(baseURL string, pathSegments ...string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid base URL: %w", err)
	}

	segments := append([]string{u.Path}, pathSegments...)
	u.Path = path.Join(segments...)

	return u.String(), nil
}
