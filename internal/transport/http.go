package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/net/proxy"

	"github.com/stasis-io/fetchcache/internal/bufpool"
)

// HTTP is the production Transport over net/http. The zero value is
// usable; fields tune the client.
type HTTP struct {
	// Client is the underlying HTTP client. When nil, a default client
	// is built from the remaining fields.
	Client *http.Client
	// UserAgent is sent with every request when non-empty.
	UserAgent string
	// MaxAttempts includes the initial attempt. Minimum 1. Only
	// transient failures (5xx, connection errors) are retried, and only
	// while nothing has been written to the destination yet.
	MaxAttempts int
	// PerRequestTimeout bounds each request. Zero means no timeout
	// beyond the caller's context.
	PerRequestTimeout time.Duration
	// RedirectMaxHops caps redirect following. Zero means default (5).
	RedirectMaxHops int
	// MaxConcurrent limits in-flight requests per instance. Zero means
	// unlimited.
	MaxConcurrent int
	// ProxyURL optionally routes requests through a SOCKS5 proxy,
	// e.g. "socks5://127.0.0.1:1080".
	ProxyURL string

	limiter     chan struct{}
	limiterOnce sync.Once

	clientOnce sync.Once
	client     *http.Client
	clientErr  error
}

func (t *HTTP) acquire() {
	t.limiterOnce.Do(func() {
		if t.MaxConcurrent > 0 {
			t.limiter = make(chan struct{}, t.MaxConcurrent)
		}
	})
	if t.limiter != nil {
		t.limiter <- struct{}{}
	}
}

func (t *HTTP) release() {
	if t.limiter != nil {
		<-t.limiter
	}
}

func (t *HTTP) checkRedirect(req *http.Request, via []*http.Request) error {
	max := t.RedirectMaxHops
	if max <= 0 {
		max = 5
	}
	if len(via) >= max {
		return fmt.Errorf("stopped after %d redirects", max)
	}
	return nil
}

func (t *HTTP) httpClient() (*http.Client, error) {
	t.clientOnce.Do(func() {
		var base http.Client
		if t.Client != nil {
			base = *t.Client
		} else {
			base = http.Client{Timeout: t.PerRequestTimeout}
		}
		base.CheckRedirect = t.checkRedirect

		if strings.TrimSpace(t.ProxyURL) != "" {
			u, err := url.Parse(t.ProxyURL)
			if err != nil {
				t.clientErr = fmt.Errorf("parse proxy url: %w", err)
				return
			}
			dialer, err := proxy.FromURL(u, proxy.Direct)
			if err != nil {
				t.clientErr = fmt.Errorf("proxy dialer: %w", err)
				return
			}
			rt := http.DefaultTransport.(*http.Transport).Clone()
			if cd, ok := dialer.(proxy.ContextDialer); ok {
				rt.DialContext = cd.DialContext
			} else {
				rt.DialContext = func(_ context.Context, network, addr string) (net.Conn, error) {
					return dialer.Dial(network, addr)
				}
			}
			rt.Proxy = nil
			base.Transport = rt
		}

		t.client = &base
	})
	return t.client, t.clientErr
}

func (t *HTTP) newRequest(ctx context.Context, method, uri string) (*http.Request, context.CancelFunc, error) {
	if t.PerRequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.PerRequestTimeout)
		req, err := http.NewRequestWithContext(ctx, method, uri, nil)
		if err != nil {
			cancel()
			return nil, nil, fmt.Errorf("new request: %w", err)
		}
		return req, cancel, nil
	}
	req, err := http.NewRequestWithContext(ctx, method, uri, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("new request: %w", err)
	}
	return req, func() {}, nil
}

func (t *HTTP) prepare(req *http.Request) error {
	if req.URL == nil || !isHTTPScheme(req.URL) {
		return fmt.Errorf("unsupported URL scheme: %q", req.URL.String())
	}
	if t.UserAgent != "" {
		req.Header.Set("User-Agent", t.UserAgent)
	}
	return nil
}

func isHTTPScheme(u *url.URL) bool {
	return u.Scheme == "http" || u.Scheme == "https"
}

// statusError maps an unexpected response status to the transport error
// taxonomy.
func statusError(code int) error {
	switch code {
	case http.StatusNotFound, http.StatusGone:
		return fmt.Errorf("%w (status %d)", ErrNotFound, code)
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusProxyAuthRequired:
		return fmt.Errorf("%w (status %d)", ErrAuthFailed, code)
	default:
		return fmt.Errorf("unexpected status: %d", code)
	}
}

// Download implements Transport. A Range header forwards the start
// offset; when the server ignores it and replies 200, the skipped bytes
// are discarded locally so dst still starts at offset.
func (t *HTTP) Download(ctx context.Context, uri string, dst io.Writer, offset int64) (Result, error) {
	t.acquire()
	defer t.release()

	attempts := t.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var res Result
	op := func() error {
		r, err := t.tryDownload(ctx, uri, dst, offset)
		res = r
		if err == nil {
			return nil
		}
		// A destination that has already received bytes cannot be
		// retried without duplicating them.
		if r.Length > 0 || !isTransient(r.StatusCode, err) {
			return backoff.Permanent(err)
		}
		return err
	}

	bo := backoff.WithContext(backoff.WithMaxRetries(newBackOff(), uint64(attempts-1)), ctx)
	if err := backoff.Retry(op, bo); err != nil {
		return res, err
	}
	return res, nil
}

func newBackOff() backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 200 * time.Millisecond
	bo.MaxInterval = 2 * time.Second
	return bo
}

// isTransient treats HTTP 5xx, deadlines, and timing-out network errors
// as retryable.
func isTransient(status int, err error) bool {
	if status >= 500 && status <= 599 {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var nerr net.Error
	return errors.As(err, &nerr) && nerr.Timeout()
}

func (t *HTTP) tryDownload(ctx context.Context, uri string, dst io.Writer, offset int64) (Result, error) {
	req, cancel, err := t.newRequest(ctx, http.MethodGet, uri)
	if err != nil {
		return Result{}, err
	}
	defer cancel()
	if err := t.prepare(req); err != nil {
		return Result{}, err
	}
	if offset > 0 {
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-", offset))
	}

	client, err := t.httpClient()
	if err != nil {
		return Result{}, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return Result{}, err
	}
	defer resp.Body.Close()

	res := Result{StatusCode: resp.StatusCode}
	if lm := resp.Header.Get("Last-Modified"); lm != "" {
		if ts, perr := http.ParseTime(lm); perr == nil {
			res.LastModified = ts
		}
	}

	switch {
	case resp.StatusCode == http.StatusOK, resp.StatusCode == http.StatusPartialContent:
	default:
		return res, statusError(resp.StatusCode)
	}

	body := io.Reader(resp.Body)
	if offset > 0 && resp.StatusCode == http.StatusOK {
		// Server ignored the Range header; drop the leading bytes.
		if _, err := io.CopyN(io.Discard, body, offset); err != nil {
			return res, fmt.Errorf("skip to offset: %w", err)
		}
	}

	n, err := bufpool.Copy(dst, body)
	res.Length = n
	if err != nil {
		return res, fmt.Errorf("read body: %w", err)
	}
	return res, nil
}

// OpenStream implements Transport. Streams are handed to the caller
// untouched and are never retried.
func (t *HTTP) OpenStream(ctx context.Context, uri string) (io.ReadCloser, error) {
	t.acquire()
	defer t.release()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	if err := t.prepare(req); err != nil {
		return nil, err
	}

	client, err := t.httpClient()
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, statusError(resp.StatusCode)
	}
	return resp.Body, nil
}

// LastModified implements Transport with a HEAD request. A missing
// Last-Modified header yields the zero time without an error.
func (t *HTTP) LastModified(ctx context.Context, uri string) (time.Time, error) {
	t.acquire()
	defer t.release()

	req, cancel, err := t.newRequest(ctx, http.MethodHead, uri)
	if err != nil {
		return time.Time{}, err
	}
	defer cancel()
	if err := t.prepare(req); err != nil {
		return time.Time{}, err
	}

	client, err := t.httpClient()
	if err != nil {
		return time.Time{}, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return time.Time{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return time.Time{}, statusError(resp.StatusCode)
	}
	lm := resp.Header.Get("Last-Modified")
	if lm == "" {
		return time.Time{}, nil
	}
	ts, err := http.ParseTime(lm)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse Last-Modified: %w", err)
	}
	return ts, nil
}
