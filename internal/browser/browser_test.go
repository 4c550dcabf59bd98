package browser

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os/exec"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/torosent/loadsweep/internal/config"
	"github.com/torosent/loadsweep/internal/httpclient"
)

func TestNewSelectsEngine(t *testing.T) {
	cfg := config.Defaults()
	cfg.Engine = config.EngineHTTP

	l, err := New(context.Background(), cfg, Options{})
	if err != nil {
		t.Fatalf("New(http) error = %v", err)
	}
	if _, ok := l.(*HTTPLauncher); !ok {
		t.Fatalf("New(http) = %T, want *HTTPLauncher", l)
	}

	cfg.Engine = config.EngineChrome
	l, err = New(context.Background(), cfg, Options{})
	if err != nil {
		t.Fatalf("New(chrome) error = %v", err)
	}
	if _, ok := l.(*ChromeLauncher); !ok {
		t.Fatalf("New(chrome) = %T, want *ChromeLauncher", l)
	}

	cfg.Engine = "firefox"
	if _, err := New(context.Background(), cfg, Options{}); err == nil {
		t.Fatal("New(firefox) expected error")
	}
	if _, err := New(context.Background(), nil, Options{}); err == nil {
		t.Fatal("New(nil) expected error")
	}
}

func TestNewResolvesRemoteURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"webSocketDebuggerUrl": "ws://10.0.0.5:9222/devtools/browser/x"}`))
	}))
	defer server.Close()

	cfg := config.Defaults()
	cfg.Browser.RemoteURL = server.URL

	l, err := New(context.Background(), cfg, Options{DiscoveryClient: server.Client()})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	chrome := l.(*ChromeLauncher)
	if chrome.opts.RemoteURL != "ws://10.0.0.5:9222/devtools/browser/x" {
		t.Fatalf("RemoteURL = %q", chrome.opts.RemoteURL)
	}
}

func TestNewRemoteDiscoveryFailure(t *testing.T) {
	cfg := config.Defaults()
	cfg.Browser.RemoteURL = "gopher://nowhere"
	if _, err := New(context.Background(), cfg, Options{}); err == nil {
		t.Fatal("expected discovery error")
	}
}

func TestHTTPSessionNavigate(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte("<html><body>ok</body></html>"))
	}))
	defer server.Close()

	l := NewHTTPLauncher(HTTPOptions{Timeout: time.Second})
	s, err := l.Launch(context.Background())
	if err != nil {
		t.Fatalf("Launch() error = %v", err)
	}
	defer s.Close()

	if err := s.Navigate(context.Background(), server.URL); err != nil {
		t.Fatalf("Navigate() error = %v", err)
	}
	if hits.Load() != 1 {
		t.Fatalf("server hits = %d, want 1", hits.Load())
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}
}

func TestHTTPSessionNavigateStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	s, err := NewHTTPLauncher(HTTPOptions{Timeout: time.Second}).Launch(context.Background())
	if err != nil {
		t.Fatalf("Launch() error = %v", err)
	}
	defer s.Close()

	err = s.Navigate(context.Background(), server.URL)
	var statusErr *httpclient.StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("Navigate() error = %v, want *httpclient.StatusError", err)
	}
}

func TestHTTPSessionNavigateTimeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer server.Close()
	defer close(release)

	s, err := NewHTTPLauncher(HTTPOptions{}).Launch(context.Background())
	if err != nil {
		t.Fatalf("Launch() error = %v", err)
	}
	defer s.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err = s.Navigate(ctx, server.URL)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Navigate() error = %v, want deadline exceeded", err)
	}
}

func TestHTTPLaunchCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewHTTPLauncher(HTTPOptions{}).Launch(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("Launch() error = %v, want context.Canceled", err)
	}
}

func TestHTTPSessionPropagatesTraceContext(t *testing.T) {
	tp := sdktrace.NewTracerProvider()
	defer func() { _ = tp.Shutdown(context.Background()) }()
	otel.SetTextMapPropagator(propagation.TraceContext{})

	var traceparent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceparent = r.Header.Get("Traceparent")
	}))
	defer server.Close()

	ctx, span := tp.Tracer("test").Start(context.Background(), "navigate")
	defer span.End()

	s, err := NewHTTPLauncher(HTTPOptions{Timeout: time.Second, Propagate: true}).Launch(ctx)
	if err != nil {
		t.Fatalf("Launch() error = %v", err)
	}
	defer s.Close()

	if err := s.Navigate(ctx, server.URL); err != nil {
		t.Fatalf("Navigate() error = %v", err)
	}
	if !strings.Contains(traceparent, span.SpanContext().TraceID().String()) {
		t.Fatalf("traceparent %q does not carry trace id %s", traceparent, span.SpanContext().TraceID())
	}
}

func TestChromeSessionNavigate(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping browser test in short mode")
	}
	found := false
	for _, name := range []string{"google-chrome", "chromium", "chromium-browser", "headless-shell"} {
		if _, err := exec.LookPath(name); err == nil {
			found = true
			break
		}
	}
	if !found {
		t.Skip("no Chrome executable found")
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><body><main id="app">ready</main></body></html>`))
	}))
	defer server.Close()

	l := NewChromeLauncher(ChromeOptions{Headless: true, WaitSelector: "#app"})
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	s, err := l.Launch(ctx)
	if err != nil {
		t.Fatalf("Launch() error = %v", err)
	}
	if err := s.Navigate(ctx, server.URL); err != nil {
		t.Fatalf("Navigate() error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
}
