// Package kegg talks to the KEGG REST API (https://www.kegg.jp/kegg/rest/keggapi.html).
package kegg

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/yumyai/ggenrich/logger"
	"go.uber.org/zap"
)

var (
	ErrNotFound = errors.New("KEGG entry not found")
	ErrStatus   = errors.New("unexpected KEGG response")
)

// LookupError records which request failed and after how many attempts.
type LookupError struct {
	Path     string
	Status   int
	Attempts int
	Err      error
}

func (e *LookupError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("KEGG %s: status %d after %d attempt(s): %v", e.Path, e.Status, e.Attempts, e.Err)
	}
	return fmt.Sprintf("KEGG %s after %d attempt(s): %v", e.Path, e.Attempts, e.Err)
}

func (e *LookupError) Unwrap() error { return e.Err }

type Client struct {
	baseURL    string
	httpClient *http.Client
	retries    int
	backoff    time.Duration
	sleep      func(context.Context, time.Duration) error
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRetry sets how many times a failed request is repeated and the first delay;
// each further delay doubles.
func WithRetry(retries int, backoff time.Duration) Option {
	return func(c *Client) {
		c.retries = retries
		c.backoff = backoff
	}
}

func NewClient(baseURL string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		retries:    3,
		backoff:    time.Second,
		sleep:      sleepContext,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// ListModules returns the module universe (GET /list/module).
func (c *Client) ListModules(ctx context.Context) ([]ModuleEntry, error) {
	body, err := c.get(ctx, "/list/module")
	if err != nil {
		return nil, err
	}
	entries := parseList(body)
	if len(entries) == 0 {
		return nil, &LookupError{Path: "/list/module", Attempts: 1, Err: fmt.Errorf("%w: empty module list", ErrStatus)}
	}
	return entries, nil
}

// GetModule fetches one module entry (GET /get/<id>).
func (c *Client) GetModule(ctx context.Context, id string) (*Module, error) {
	path := "/get/" + id
	body, err := c.get(ctx, path)
	if err != nil {
		return nil, err
	}
	m, err := parseModule(body)
	if err != nil {
		return nil, &LookupError{Path: path, Attempts: 1, Err: err}
	}
	if m.ID == "" {
		m.ID = id
	}
	return m, nil
}

// Release returns the module database release (GET /info/module), the cache key
// for stored definitions.
func (c *Client) Release(ctx context.Context) (string, error) {
	body, err := c.get(ctx, "/info/module")
	if err != nil {
		return "", err
	}
	rel := parseRelease(body)
	if rel == "" {
		return "", &LookupError{Path: "/info/module", Attempts: 1, Err: fmt.Errorf("%w: no release line", ErrStatus)}
	}
	return rel, nil
}

// get retries transport errors, 429 and 5xx with exponential backoff. 404 and
// other statuses fail at once.
func (c *Client) get(ctx context.Context, path string) (string, error) {
	var (
		lastErr    error
		lastStatus int
	)
	attempts := 0
	for i := 0; i <= c.retries; i++ {
		if i > 0 {
			delay := c.backoff * time.Duration(1<<uint(i-1))
			logger.Warn("Retrying KEGG request",
				zap.String("path", path),
				zap.Int("attempt", i+1),
				zap.Duration("delay", delay),
				zap.Error(lastErr))
			if err := c.sleep(ctx, delay); err != nil {
				return "", &LookupError{Path: path, Status: lastStatus, Attempts: attempts, Err: err}
			}
		}
		attempts++

		body, status, err := c.do(ctx, path)
		lastStatus = status
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return "", &LookupError{Path: path, Attempts: attempts, Err: ctx.Err()}
			}
			lastErr = err
			continue
		case status == http.StatusOK:
			logger.Debug("KEGG request done", zap.String("path", path), zap.Int("attempts", attempts))
			return body, nil
		case status == http.StatusNotFound:
			return "", &LookupError{Path: path, Status: status, Attempts: attempts, Err: ErrNotFound}
		case status == http.StatusTooManyRequests || status >= 500:
			lastErr = fmt.Errorf("%w: %s", ErrStatus, http.StatusText(status))
			continue
		default:
			return "", &LookupError{Path: path, Status: status, Attempts: attempts, Err: fmt.Errorf("%w: %s", ErrStatus, http.StatusText(status))}
		}
	}
	return "", &LookupError{Path: path, Status: lastStatus, Attempts: attempts, Err: lastErr}
}

func (c *Client) do(ctx context.Context, path string) (string, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return "", 0, fmt.Errorf("build request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", 0, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", resp.StatusCode, fmt.Errorf("read response: %w", err)
	}
	return string(data), resp.StatusCode, nil
}
