package httpclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// UserAgent identifies loadsweep page loads in target access logs.
const UserAgent = "loadsweep/1.0"

// StatusError is returned when the target responds with a 4xx or 5xx status.
type StatusError struct {
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("unexpected status: %s", e.Status)
	}
	return fmt.Sprintf("unexpected status code: %d", e.Code)
}

// RequestBuilder produces the GET request a simulated user issues for the
// target page.
type RequestBuilder struct {
	target  string
	headers http.Header
}

func NewRequestBuilder(target string) (*RequestBuilder, error) {
	target = strings.TrimSpace(target)
	if target == "" {
		return nil, errors.New("target URL is required")
	}
	u, err := url.Parse(target)
	if err != nil {
		return nil, fmt.Errorf("parse target: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("target %q must use http or https", target)
	}

	headers := http.Header{}
	headers.Set("User-Agent", UserAgent)
	headers.Set("Accept", "text/html,application/xhtml+xml,*/*;q=0.8")

	return &RequestBuilder{target: u.String(), headers: headers}, nil
}

func (b *RequestBuilder) Build(ctx context.Context) (*http.Request, error) {
	if b == nil {
		return nil, errors.New("builder cannot be nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.target, nil)
	if err != nil {
		return nil, err
	}
	req.Header = b.headers.Clone()
	return req, nil
}

// Load sends req and reads the whole response body, returning the number of
// body bytes read. Responses with status >= 400 yield a *StatusError.
func Load(client *http.Client, req *http.Request) (int64, error) {
	return send(client, req, io.Discard, -1)
}

// Fetch sends req and returns at most limit bytes of the response body.
// Responses with status >= 400 yield a *StatusError.
func Fetch(client *http.Client, req *http.Request, limit int64) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := send(client, req, &buf, limit); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// send copies the body into w, up to limit bytes when limit >= 0. The rest of
// the body is discarded so the connection can be reused.
func send(client *http.Client, req *http.Request, w io.Writer, limit int64) (int64, error) {
	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	var body io.Reader = resp.Body
	if limit >= 0 {
		body = io.LimitReader(resp.Body, limit)
	}
	n, err := io.Copy(w, body)
	if err != nil {
		return n, fmt.Errorf("read body: %w", err)
	}
	if limit >= 0 {
		_, _ = io.Copy(io.Discard, resp.Body)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return n, &StatusError{Code: resp.StatusCode, Status: resp.Status}
	}
	return n, nil
}

// NewClient returns a client with its own transport, so connections are never
// shared between simulated users.
func NewClient(timeout time.Duration) *http.Client {
	if timeout < 0 {
		timeout = 0
	}

	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          16,
		MaxIdleConnsPerHost:   8,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}
