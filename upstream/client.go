package upstream

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aeroscan/aeroscan/auth"
)

const (
	// defaultTimeout bounds ordinary proxied upstream calls
	defaultTimeout = 30 * time.Second

	// probeTimeout bounds the health-check credential probe so a slow
	// upstream cannot hang the health endpoint
	probeTimeout = 5 * time.Second

	// maxResponseBody caps how much of an upstream response is read
	maxResponseBody = 16 << 20 // 16 MiB
)

// Response is an upstream reply: status, content type, and the raw body.
// Non-2xx responses are passed through to the caller unchanged.
type Response struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// OK reports whether the response status is 2xx.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Client issues authenticated requests against the partner API base URL.
type Client struct {
	baseURL          string
	httpClient       *http.Client
	bearerStrategies []HeaderStrategy
	recordFallback   func(ctx context.Context, strategy string)
	logger           *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithBearerStrategies overrides the fallback header chain for bearer tokens.
func WithBearerStrategies(strategies []HeaderStrategy) Option {
	return func(c *Client) {
		if len(strategies) > 0 {
			c.bearerStrategies = strategies
		}
	}
}

// WithFallbackRecorder registers a callback invoked each time a 401/403
// moves a bearer request on to the next header strategy. The strategy passed
// is the one that was just rejected.
func WithFallbackRecorder(record func(ctx context.Context, strategy string)) Option {
	return func(c *Client) {
		if record != nil {
			c.recordFallback = record
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a partner API client for the given base URL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:          strings.TrimRight(baseURL, "/"),
		httpClient:       &http.Client{Timeout: defaultTimeout},
		bearerStrategies: DefaultBearerStrategies(),
		logger:           slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get forwards a GET with the given query parameters, resolving the
// credential into upstream headers.
//
// API-key credentials are sent with the single unambiguous header shape.
// Bearer credentials walk the strategy chain: a 401/403 moves on to the next
// shape, any other status (or the end of the list) is the final answer. The
// extra round trips buy resilience against the upstream changing its expected
// header convention.
func (c *Client) Get(ctx context.Context, path string, query url.Values, cred *auth.Credential) (*Response, error) {
	strategies := []HeaderStrategy{APIKeyStrategy()}
	if cred.Mode == auth.ModeOAuth {
		strategies = c.bearerStrategies
	}

	var resp *Response
	for i, strategy := range strategies {
		var err error
		resp, err = c.do(ctx, path, query, cred.Secret, strategy)
		if err != nil {
			return nil, err
		}

		if resp.StatusCode != http.StatusUnauthorized && resp.StatusCode != http.StatusForbidden {
			return resp, nil
		}

		if i < len(strategies)-1 {
			c.logger.Debug("Upstream rejected auth header shape, trying next",
				"path", path,
				"strategy", strategy.Name,
				"status", resp.StatusCode)
			if c.recordFallback != nil {
				c.recordFallback(ctx, strategy.Name)
			}
		}
	}

	// Chain exhausted: the last 401/403 is the answer
	return resp, nil
}

// CheckCredential probes the upstream with a parameter-less availability call
// to infer whether a credential is valid. 401/403 means rejected; any other
// status (including 400 for the missing parameters) means the credential was
// accepted. The probe is bounded so health checks cannot hang on a slow
// upstream.
//
// This inference is an implicit contract with the upstream API's status-code
// behavior rather than a documented check, hence its isolation here.
func (c *Client) CheckCredential(ctx context.Context, cred *auth.Credential) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	resp, err := c.Get(ctx, "/availability", nil, cred)
	if err != nil {
		return false, err
	}

	return resp.StatusCode != http.StatusUnauthorized && resp.StatusCode != http.StatusForbidden, nil
}

// do issues a single upstream request with one header strategy.
func (c *Client) do(ctx context.Context, path string, query url.Values, credential string, strategy HeaderStrategy) (*Response, error) {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("building upstream request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	strategy.Apply(req.Header, credential)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upstream request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, fmt.Errorf("reading upstream response: %w", err)
	}

	return &Response{
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}
