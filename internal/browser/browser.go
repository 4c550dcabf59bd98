// Package browser launches the isolated sessions each simulated user loads the
// target page with.
package browser

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/torosent/loadsweep/internal/config"
)

// Session is one isolated page-loading context. A session is used by exactly
// one simulated user for one navigation and then closed.
type Session interface {
	// Navigate loads target and returns once the page counts as loaded.
	Navigate(ctx context.Context, target string) error
	// Close releases the session. It is safe to call more than once.
	Close() error
}

// Launcher creates sessions. Implementations must be safe for concurrent use.
type Launcher interface {
	Launch(ctx context.Context) (Session, error)
}

// LauncherFunc adapts a function to the Launcher interface.
type LauncherFunc func(ctx context.Context) (Session, error)

func (f LauncherFunc) Launch(ctx context.Context) (Session, error) {
	return f(ctx)
}

// Options carry process-level settings that are not part of config.Config.
type Options struct {
	// Propagate injects W3C trace context into outgoing HTTP requests.
	Propagate bool
	// DiscoveryClient resolves http:// DevTools endpoints. Defaults to a
	// client with a 10s timeout.
	DiscoveryClient *http.Client
}

// New returns the Launcher for cfg.Engine.
func New(ctx context.Context, cfg *config.Config, opts Options) (Launcher, error) {
	if cfg == nil {
		return nil, fmt.Errorf("browser: config cannot be nil")
	}

	switch cfg.Engine {
	case config.EngineHTTP:
		return NewHTTPLauncher(HTTPOptions{
			Timeout:   cfg.NavigationTimeout,
			Propagate: opts.Propagate,
		}), nil
	case config.EngineChrome, "":
		chromeOpts := ChromeOptions{
			Headless:     cfg.Browser.Headless,
			ExecPath:     cfg.Browser.ExecPath,
			WaitSelector: cfg.Browser.WaitSelector,
		}
		if cfg.Browser.RemoteURL != "" {
			client := opts.DiscoveryClient
			if client == nil {
				client = &http.Client{Timeout: 10 * time.Second}
			}
			wsURL, err := ResolveDebuggerURL(ctx, client, cfg.Browser.RemoteURL)
			if err != nil {
				return nil, err
			}
			chromeOpts.RemoteURL = wsURL
		}
		return NewChromeLauncher(chromeOpts), nil
	default:
		return nil, fmt.Errorf("browser: unsupported engine %q", cfg.Engine)
	}
}
