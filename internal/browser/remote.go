package browser

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/torosent/loadsweep/internal/httpclient"
)

const maxVersionResponse = 1 << 20

// ResolveDebuggerURL turns a DevTools endpoint into the browser websocket URL.
// ws:// and wss:// URLs are returned unchanged; for http:// and https:// the
// URL is read from the endpoint's /json/version document.
func ResolveDebuggerURL(ctx context.Context, client *http.Client, raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("remote browser url: %w", err)
	}

	switch u.Scheme {
	case "ws", "wss":
		return raw, nil
	case "http", "https":
	default:
		return "", fmt.Errorf("remote browser url %q: scheme must be ws, wss, http or https", raw)
	}
	if u.Host == "" {
		return "", fmt.Errorf("remote browser url %q: missing host", raw)
	}

	versionURL := url.URL{Scheme: u.Scheme, Host: u.Host, Path: "/json/version"}
	builder, err := httpclient.NewRequestBuilder(versionURL.String())
	if err != nil {
		return "", fmt.Errorf("remote browser url: %w", err)
	}
	req, err := builder.Build(ctx)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "application/json")

	body, err := httpclient.Fetch(client, req, maxVersionResponse)
	if err != nil {
		return "", fmt.Errorf("discover remote browser at %s: %w", versionURL.String(), err)
	}

	ws := gjson.GetBytes(body, "webSocketDebuggerUrl")
	if !ws.Exists() || ws.String() == "" {
		return "", fmt.Errorf("discover remote browser: %s has no webSocketDebuggerUrl", versionURL.String())
	}
	return ws.String(), nil
}
