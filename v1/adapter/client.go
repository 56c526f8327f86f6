package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// maxErrorBody bounds how much of an error response is kept in the error message.
const maxErrorBody = 512

// TransportFunc lets tests replace the RoundTripper with a function.
type TransportFunc func(*http.Request) (*http.Response, error)

func (f TransportFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

// Validator is implemented by response types that check their own content after
// decoding. A failure becomes a schema error.
type Validator interface {
	Validate() error
}

// HTTPClient performs JSON calls against one external service and classifies every
// failure as an *Error. It never retries.
type HTTPClient struct {
	service    string
	baseURL    string
	token      string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewHTTPClient creates a client for service. The service name is used in errors.
func NewHTTPClient(service string, cfg Config) (*HTTPClient, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: invalid config: %w", service, err)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	hc := &http.Client{Timeout: cfg.Timeout}
	if cfg.Transport != nil {
		hc.Transport = cfg.Transport
	}

	c := &HTTPClient{
		service:    service,
		baseURL:    strings.TrimRight(cfg.Endpoint, "/"),
		token:      cfg.Token,
		httpClient: hc,
	}
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = DefaultBurst
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}
	return c, nil
}

// Service returns the service name used in errors.
func (c *HTTPClient) Service() string {
	return c.service
}

// GetJSON issues a GET and decodes the response into out.
func (c *HTTPClient) GetJSON(ctx context.Context, path string, query url.Values, out any) error {
	return c.Do(ctx, http.MethodGet, path, query, nil, out)
}

// PostJSON issues a POST with a JSON body and decodes the response into out.
func (c *HTTPClient) PostJSON(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPost, path, nil, body, out)
}

// Do performs one request. Non-2xx responses, transport failures and decode failures
// are returned as *Error.
func (c *HTTPClient) Do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return Transport(c.service, fmt.Errorf("rate limiter: %w", err))
		}
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return InvalidInput(c.service, fmt.Sprintf("encode request: %v", err))
		}
		reader = bytes.NewReader(data)
	}

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return InvalidInput(c.service, fmt.Sprintf("build request: %v", err))
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Transport(c.service, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return FromStatus(c.service, resp.StatusCode, strings.TrimSpace(string(detail)), retryAfter(resp.Header))
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return Schema(c.service, fmt.Errorf("decode response: %w", err))
	}
	if v, ok := out.(Validator); ok {
		if err := v.Validate(); err != nil {
			return Schema(c.service, err)
		}
	}
	return nil
}

// retryAfter parses a Retry-After header given in seconds or as an HTTP date.
func retryAfter(h http.Header) time.Duration {
	v := h.Get("Retry-After")
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}
