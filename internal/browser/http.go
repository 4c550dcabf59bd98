package browser

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/torosent/loadsweep/internal/httpclient"
	"github.com/torosent/loadsweep/internal/tracing"
)

// HTTPOptions configure NewHTTPLauncher.
type HTTPOptions struct {
	Timeout   time.Duration
	Propagate bool
}

// HTTPLauncher measures document download time with a plain HTTP client. It
// does not execute scripts or fetch subresources.
type HTTPLauncher struct {
	opts HTTPOptions
}

func NewHTTPLauncher(opts HTTPOptions) *HTTPLauncher {
	return &HTTPLauncher{opts: opts}
}

func (l *HTTPLauncher) Launch(ctx context.Context) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &httpSession{
		client:    httpclient.NewClient(l.opts.Timeout),
		propagate: l.opts.Propagate,
	}, nil
}

type httpSession struct {
	client    *http.Client
	propagate bool
}

func (s *httpSession) Navigate(ctx context.Context, target string) error {
	builder, err := httpclient.NewRequestBuilder(target)
	if err != nil {
		return err
	}
	req, err := builder.Build(ctx)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if s.propagate {
		tracing.InjectHTTPHeaders(ctx, req.Header)
	}
	_, err = httpclient.Load(s.client, req)
	return err
}

func (s *httpSession) Close() error {
	s.client.CloseIdleConnections()
	return nil
}
