package searchapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"github.com/annuaire-entreprises/annuaire-engine/pkg/logging"
	"github.com/annuaire-entreprises/annuaire-engine/pkg/metrics"
	"github.com/annuaire-entreprises/annuaire-engine/pkg/models"
)

// ProxyRequest is the body accepted by a search-companies proxy: the
// URL-encoded registry query string.
type ProxyRequest struct {
	SearchParams string `json:"searchParams"`
}

// ProxyClient searches through a search-companies proxy instead of the
// registry itself, for deployments where only the proxy may reach it.
type ProxyClient struct {
	proxyURL   string
	userAgent  string
	httpClient *http.Client
	metrics    *metrics.Metrics
	logger     *zap.Logger
}

var _ Source = (*ProxyClient)(nil)

// NewProxyClient creates a client posting to proxyURL.
func NewProxyClient(proxyURL string, opts Options, logger *zap.Logger) *ProxyClient {
	return &ProxyClient{
		proxyURL:   proxyURL,
		userAgent:  opts.UserAgent,
		httpClient: opts.httpClient(),
		metrics:    opts.Metrics,
		logger:     logger.Named("searchapi-proxy"),
	}
}

func (c *ProxyClient) Search(ctx context.Context, params url.Values) (*models.SearchResponse, error) {
	body, err := c.SearchRaw(ctx, params)
	if err != nil {
		return nil, err
	}
	resp, err := decodeSearchResponse(body)
	if err != nil {
		c.metrics.ObserveUpstream("proxy", metrics.OutcomeDecode, 0)
		return nil, err
	}
	return resp, nil
}

func (c *ProxyClient) SearchRaw(ctx context.Context, params url.Values) ([]byte, error) {
	payload, err := json.Marshal(ProxyRequest{SearchParams: params.Encode()})
	if err != nil {
		return nil, fmt.Errorf("failed to encode proxy request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.proxyURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	c.logger.Debug("Searching company registry through proxy",
		zap.String("proxy_url", logging.SanitizeURL(c.proxyURL)),
		zap.String("search_params", params.Encode()))

	return do(c.httpClient, req, "proxy", c.metrics, c.logger)
}
