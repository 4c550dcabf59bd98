package browser

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

const tabCloseTimeout = 5 * time.Second

// ChromeOptions configure NewChromeLauncher.
type ChromeOptions struct {
	Headless bool
	ExecPath string
	// RemoteURL is a DevTools websocket URL. When set, sessions open tabs in
	// that browser instead of starting their own process.
	RemoteURL    string
	WaitSelector string
}

// ChromeLauncher starts one Chrome process (or one remote connection) per
// session, so sessions share no cookies, cache or connections.
type ChromeLauncher struct {
	opts      ChromeOptions
	allocOpts []chromedp.ExecAllocatorOption
}

func NewChromeLauncher(opts ChromeOptions) *ChromeLauncher {
	allocOpts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	allocOpts = append(allocOpts, chromedp.Flag("headless", opts.Headless))
	if opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
	}
	// Chrome refuses to start its sandbox as root, which is the norm in containers.
	if os.Geteuid() == 0 {
		allocOpts = append(allocOpts, chromedp.NoSandbox)
	}
	return &ChromeLauncher{opts: opts, allocOpts: allocOpts}
}

// Launch starts the browser and opens a blank tab. The session outlives ctx;
// ctx only bounds the launch itself.
func (l *ChromeLauncher) Launch(ctx context.Context) (Session, error) {
	base := context.WithoutCancel(ctx)

	var (
		allocCtx    context.Context
		allocCancel context.CancelFunc
	)
	remote := l.opts.RemoteURL != ""
	if remote {
		allocCtx, allocCancel = chromedp.NewRemoteAllocator(base, l.opts.RemoteURL, chromedp.NoModifyURL)
	} else {
		allocCtx, allocCancel = chromedp.NewExecAllocator(base, l.allocOpts...)
	}
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)

	stop := context.AfterFunc(ctx, tabCancel)
	err := chromedp.Run(tabCtx)
	stop()
	if err != nil {
		tabCancel()
		allocCancel()
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("launch chrome: %w", err)
	}

	return &chromeSession{
		tabCtx:       tabCtx,
		tabCancel:    tabCancel,
		allocCancel:  allocCancel,
		remote:       remote,
		waitSelector: l.opts.WaitSelector,
	}, nil
}

type chromeSession struct {
	tabCtx       context.Context
	tabCancel    context.CancelFunc
	allocCancel  context.CancelFunc
	remote       bool
	waitSelector string

	closeOnce sync.Once
	closeErr  error
}

func (s *chromeSession) Navigate(ctx context.Context, target string) error {
	runCtx, cancel := context.WithCancel(s.tabCtx)
	defer cancel()
	if deadline, ok := ctx.Deadline(); ok {
		var cancelDeadline context.CancelFunc
		runCtx, cancelDeadline = context.WithDeadline(runCtx, deadline)
		defer cancelDeadline()
	}
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	actions := []chromedp.Action{chromedp.Navigate(target)}
	if s.waitSelector != "" {
		actions = append(actions, chromedp.WaitReady(s.waitSelector, chromedp.ByQuery))
	}

	if err := chromedp.Run(runCtx, actions...); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("navigate: %w", err)
	}
	return nil
}

func (s *chromeSession) Close() error {
	s.closeOnce.Do(func() {
		if s.remote {
			// Leave the shared browser running; only the tab goes away.
			closeCtx, cancel := context.WithTimeout(s.tabCtx, tabCloseTimeout)
			s.closeErr = chromedp.Run(closeCtx, page.Close())
			cancel()
		} else {
			s.closeErr = chromedp.Cancel(s.tabCtx)
		}
		s.tabCancel()
		s.allocCancel()
		if errors.Is(s.closeErr, context.Canceled) {
			s.closeErr = nil
		}
	})
	return s.closeErr
}
