package util

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/nelson-zack/job-radar/internal/scrape/types"
)

const DefaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"

// maxBody caps any single response we read.
const maxBody = 8 << 20

// Client is the shared HTTP plumbing for providers: per-host rate limiting, a
// browser user agent and a per-call timeout.
type Client struct {
	HC        *http.Client
	Limiter   *HostLimiter
	UserAgent string
	Timeout   time.Duration
}

func NewClient(limiter *HostLimiter, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	return &Client{
		HC:        &http.Client{Timeout: 2 * timeout},
		Limiter:   limiter,
		UserAgent: DefaultUserAgent,
		Timeout:   timeout,
	}
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	URL    string
	Status int
}

func (e *StatusError) Error() string { return fmt.Sprintf("GET %s: status %d", e.URL, e.Status) }

// Do sends req after waiting on the host limiter and returns the body of a
// 2xx response.
func (c *Client) Do(ctx context.Context, req *http.Request) ([]byte, error) {
	if err := c.Limiter.WaitURL(ctx, req.URL.String()); err != nil {
		return nil, err
	}
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}
	resp, err := c.HC.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return body, &StatusError{URL: req.URL.String(), Status: resp.StatusCode}
	}
	return body, nil
}

// Get fetches url with a per-call timeout.
func (c *Client) Get(ctx context.Context, url string, accept string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	return c.Do(ctx, req)
}

// GetJSON fetches url and decodes the body into out.
func (c *Client) GetJSON(ctx context.Context, url string, out any) error {
	body, err := c.Get(ctx, url, "application/json")
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s: %w", url, err)
	}
	return nil
}

// FetchPage is the best-effort detail fetch used by enrichment; failures are
// reported in the Page rather than returned.
func (c *Client) FetchPage(ctx context.Context, url string) types.Page {
	p := types.Page{URL: url}
	if strings.TrimSpace(url) == "" {
		p.Failure = "empty url"
		return p
	}
	body, err := c.Get(ctx, url, "text/html,application/xhtml+xml")
	if err != nil {
		var se *StatusError
		if errors.As(err, &se) {
			p.Status = se.Status
		}
		p.Failure = err.Error()
		return p
	}
	p.Status = http.StatusOK
	p.Body = string(body)
	return p
}
