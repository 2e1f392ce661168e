// Package httpcheck implements the URLChecker port: a HEAD-equivalent probe
// that reports the response status code. Some servers reject HEAD outright,
// so a 405 falls back to GET with the body discarded.
package httpcheck

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/dverity/docdrill/pkg/ports"
)

// Checker probes URLs over HTTP.
type Checker struct {
	client *http.Client
}

// CheckerOption configures the checker.
type CheckerOption func(*Checker)

// WithClient replaces the underlying HTTP client.
func WithClient(c *http.Client) CheckerOption {
	return func(ch *Checker) { ch.client = c }
}

// NewChecker creates a checker with a 30 second client timeout.
func NewChecker(opts ...CheckerOption) *Checker {
	ch := &Checker{client: &http.Client{Timeout: 30 * time.Second}}
	for _, opt := range opts {
		opt(ch)
	}
	return ch
}

var _ ports.URLChecker = (*Checker)(nil)

// Check issues the request and returns the status code.
func (ch *Checker) Check(ctx context.Context, method, url string) (int, error) {
	if method == "" {
		method = http.MethodHead
	}
	status, err := ch.do(ctx, method, url)
	if err != nil {
		return 0, err
	}
	if status == http.StatusMethodNotAllowed && method == http.MethodHead {
		return ch.do(ctx, http.MethodGet, url)
	}
	return status, nil
}

func (ch *Checker) do(ctx context.Context, method, url string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return 0, err
	}
	resp, err := ch.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))
	return resp.StatusCode, nil
}
