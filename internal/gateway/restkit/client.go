// Package restkit holds the HTTP plumbing shared by the REST connectors:
// proxy-aware clients, per-exchange request pacing and gjson decoding.
package restkit

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"tgescan/internal/gateway/exchange"

	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"
)

const maxErrorBody = 256

// NewHTTPClient returns a client with the given timeout, routed through
// proxyURL when it is set. Params attached with WithParams are added to
// each request's query.
func NewHTTPClient(timeout time.Duration, proxyURL string) (*http.Client, error) {
	httpClient := &http.Client{
		Timeout:   timeout,
		Transport: &paramTransport{base: http.DefaultTransport},
	}
	proxyURL = strings.TrimSpace(proxyURL)
	if proxyURL == "" {
		return httpClient, nil
	}
	parsed, err := url.Parse(proxyURL)
	if err != nil {
		return nil, fmt.Errorf("invalid REST proxy url: %w", err)
	}
	baseTransport, ok := http.DefaultTransport.(*http.Transport)
	if !ok || baseTransport == nil {
		return nil, fmt.Errorf("http DefaultTransport is not *http.Transport")
	}
	transport := baseTransport.Clone()
	transport.Proxy = http.ProxyURL(parsed)
	httpClient.Transport = &paramTransport{base: transport}
	return httpClient, nil
}

// NewLimiter paces one exchange's requests. rps <= 0 disables pacing.
func NewLimiter(rps float64) *rate.Limiter {
	if rps <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Limit(rps), 1)
}

// Client issues paced GET requests against one exchange.
type Client struct {
	name    string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	header  http.Header
}

func New(name string, s exchange.Settings) (*Client, error) {
	httpClient, err := NewHTTPClient(s.HTTPTimeout, s.ProxyURL)
	if err != nil {
		return nil, err
	}
	return &Client{
		name:    name,
		baseURL: strings.TrimRight(s.RESTBaseURL, "/"),
		http:    httpClient,
		limiter: NewLimiter(s.RequestsPerSecond),
		header:  make(http.Header),
	}, nil
}

// SetHeader adds a header sent with every request, such as an API key.
func (c *Client) SetHeader(key, value string) {
	c.header.Set(key, value)
}

// SetTransport swaps the HTTP transport, keeping timeout and pacing. Tests
// use it to replay recorded exchange traffic.
func (c *Client) SetTransport(rt http.RoundTripper) {
	c.http.Transport = rt
}

// Wait blocks until the limiter admits one more request.
func (c *Client) Wait(ctx context.Context) error {
	return c.limiter.Wait(ctx)
}

// GetJSON performs GET baseURL+path?query and returns the parsed body.
func (c *Client) GetJSON(ctx context.Context, path string, query url.Values) (gjson.Result, error) {
	if err := c.Wait(ctx); err != nil {
		return gjson.Result{}, err
	}
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return gjson.Result{}, err
	}
	for k, vs := range c.header {
		req.Header[k] = vs
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("%s GET %s: %w", c.name, path, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("%s GET %s: read body: %w", c.name, path, err)
	}
	if resp.StatusCode >= 300 {
		return gjson.Result{}, fmt.Errorf("%s GET %s: status %d: %s", c.name, path, resp.StatusCode, truncate(body))
	}
	if !gjson.ValidBytes(body) {
		return gjson.Result{}, fmt.Errorf("%s GET %s: invalid json: %s", c.name, path, truncate(body))
	}
	return gjson.ParseBytes(body), nil
}

// SetParams copies extra request params onto a query.
func SetParams(q url.Values, params map[string]string) {
	for k, v := range params {
		q.Set(k, v)
	}
}

func truncate(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > maxErrorBody {
		return s[:maxErrorBody] + "..."
	}
	return s
}
