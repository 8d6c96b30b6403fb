// Package browser implements the BrowserDriver contract on top of chromedp.
// Exactly one session/document exists per Driver; all calls are blocking and
// sequential, which is why no locking beyond close-tracking is needed.
package browser

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/kaidhar/prism-cli/api/schemas"
)

// Options tunes driver construction.
type Options struct {
	Headless bool
	// ActionTimeout is the per-command ceiling. An action exceeding it fails
	// with schemas.ErrDriverTimeout and enters the caller's retry path.
	ActionTimeout time.Duration
	// NetworkQuiet is the quiet period for the network-idle wait.
	NetworkQuiet time.Duration
}

// DefaultOptions returns production defaults.
func DefaultOptions() Options {
	return Options{
		Headless:      true,
		ActionTimeout: 30 * time.Second,
		NetworkQuiet:  500 * time.Millisecond,
	}
}

// Driver drives a single Chrome tab through the CDP. It implements
// schemas.BrowserDriver.
type Driver struct {
	allocCtx      context.Context
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc

	watcher *netWatcher
	logger  *zap.Logger
	opts    Options

	mu       sync.Mutex
	isClosed bool
}

var _ schemas.BrowserDriver = (*Driver)(nil)

// New launches the browser process and connects a tab. The caller owns the
// returned driver and must Close it on every exit path; leaking the external
// browser session is the one resource failure this program cannot recover
// from.
func New(ctx context.Context, opts Options, logger *zap.Logger) (*Driver, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocOpts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	d := &Driver{
		allocCtx:      allocCtx,
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
		watcher:       newNetWatcher(),
		logger:        logger.Named("browser"),
		opts:          opts,
	}
	d.watcher.attach(browserCtx)

	// Establish the tab eagerly so startup failures surface here rather
	// than on the first navigation.
	if err := d.run(ctx, chromedp.ActionFunc(func(context.Context) error { return nil })); err != nil {
		allocCancel()
		return nil, fmt.Errorf("failed to start browser session: %w", err)
	}
	d.logger.Debug("Browser session established.")
	return d, nil
}

// run executes chromedp actions under the per-action timeout, translating
// deadline errors into the driver's sentinel.
func (d *Driver) run(ctx context.Context, actions ...chromedp.Action) error {
	d.mu.Lock()
	if d.isClosed {
		d.mu.Unlock()
		return schemas.ErrDriverClosed
	}
	d.mu.Unlock()

	timeout := d.opts.ActionTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	runCtx, cancel := context.WithTimeout(d.browserCtx, timeout)
	defer cancel()

	// Propagate cancellation from the caller's context as well.
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return schemas.ErrDriverTimeout
		}
	}
	return err
}

// Open navigates to url and returns the main document's response status.
func (d *Driver) Open(ctx context.Context, url string) (int, error) {
	d.logger.Debug("Navigating.", zap.String("url", url))
	if err := d.run(ctx, chromedp.Navigate(url)); err != nil {
		return 0, err
	}
	status := d.watcher.lastMainStatus()
	if status >= 400 {
		return status, &schemas.NavigationError{URL: url, Status: status}
	}
	return status, nil
}

// Click dispatches a click on a snapshot ref or CSS selector.
func (d *Driver) Click(ctx context.Context, refOrSelector string) error {
	sel := refOrSelector
	if looksLikeRef(sel) {
		sel = refSelector(sel)
	}
	return d.run(ctx, chromedp.Click(sel, chromedp.ByQuery))
}

// Fill replaces the value of the input identified by ref or selector.
func (d *Driver) Fill(ctx context.Context, refOrSelector, value string) error {
	sel := refOrSelector
	if looksLikeRef(sel) {
		sel = refSelector(sel)
	}
	return d.run(ctx,
		chromedp.Clear(sel, chromedp.ByQuery),
		chromedp.SendKeys(sel, value, chromedp.ByQuery),
	)
}

// Press sends a single key to the focused element.
func (d *Driver) Press(ctx context.Context, key string) error {
	return d.run(ctx, chromedp.KeyEvent(key))
}

// Sleep blocks for ms milliseconds.
func (d *Driver) Sleep(ctx context.Context, ms int) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(time.Duration(ms) * time.Millisecond):
		return nil
	}
}

// WaitFor blocks until the named readiness condition holds.
func (d *Driver) WaitFor(ctx context.Context, cond schemas.WaitCondition) error {
	switch cond {
	case schemas.WaitNetworkIdle:
		waitCtx, cancel := context.WithTimeout(ctx, d.opts.ActionTimeout)
		defer cancel()
		if err := d.watcher.waitIdle(waitCtx, d.opts.NetworkQuiet); err != nil {
			if ctx.Err() == nil {
				return schemas.ErrDriverTimeout
			}
			return err
		}
		return nil
	case schemas.WaitLoad:
		return d.waitReadyState(ctx, "complete")
	case schemas.WaitDOMReady:
		return d.waitReadyState(ctx, "interactive")
	default:
		return fmt.Errorf("unknown wait condition %q", cond)
	}
}

// waitReadyState polls document.readyState until it reaches at least want.
func (d *Driver) waitReadyState(ctx context.Context, want string) error {
	rank := map[string]int{"loading": 0, "interactive": 1, "complete": 2}
	deadline := time.Now().Add(d.opts.ActionTimeout)
	for {
		var state string
		if err := d.run(ctx, chromedp.Evaluate(`document.readyState`, &state)); err != nil {
			return err
		}
		if rank[state] >= rank[want] {
			return nil
		}
		if time.Now().After(deadline) {
			return schemas.ErrDriverTimeout
		}
		if err := d.Sleep(ctx, 100); err != nil {
			return err
		}
	}
}

// Screenshot writes a capture of the page to path and returns its size.
func (d *Driver) Screenshot(ctx context.Context, path string, fullPage bool) (int64, error) {
	var buf []byte
	var action chromedp.Action
	if fullPage {
		action = chromedp.FullScreenshot(&buf, 90)
	} else {
		action = chromedp.CaptureScreenshot(&buf)
	}
	if err := d.run(ctx, action); err != nil {
		return 0, err
	}
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		return 0, fmt.Errorf("failed to write screenshot %s: %w", path, err)
	}
	return int64(len(buf)), nil
}

// Eval runs a JavaScript expression and returns its result coerced to a
// string.
func (d *Driver) Eval(ctx context.Context, expr string) (string, error) {
	var result string
	wrapped := fmt.Sprintf("String((function(){ return (%s); })())", expr)
	if err := d.run(ctx, chromedp.Evaluate(wrapped, &result)); err != nil {
		return "", err
	}
	return result, nil
}

// Snapshot returns the textual structural snapshot of the current page.
func (d *Driver) Snapshot(ctx context.Context, includeInteractive bool) (string, error) {
	script := strings.Replace(snapshotScript, "%INCLUDE_INTERACTIVE%", fmt.Sprintf("%t", includeInteractive), 1)
	var out string
	if err := d.run(ctx, chromedp.Evaluate(script, &out)); err != nil {
		return "", err
	}
	return out, nil
}

// Get returns a named page property.
func (d *Driver) Get(ctx context.Context, property string) (string, error) {
	var out string
	switch property {
	case schemas.PropURL:
		err := d.run(ctx, chromedp.Location(&out))
		return out, err
	case schemas.PropTitle:
		err := d.run(ctx, chromedp.Title(&out))
		return out, err
	case schemas.PropHTML:
		err := d.run(ctx, chromedp.OuterHTML("html", &out, chromedp.ByQuery))
		return out, err
	default:
		return "", fmt.Errorf("unknown page property %q", property)
	}
}

// SetViewport resizes the emulated viewport.
func (d *Driver) SetViewport(ctx context.Context, width, height int64) error {
	return d.run(ctx, chromedp.EmulateViewport(width, height))
}

// Close tears the session and browser process down. Idempotent; always safe
// in deferred cleanup.
func (d *Driver) Close(ctx context.Context) error {
	d.mu.Lock()
	if d.isClosed {
		d.mu.Unlock()
		return nil
	}
	d.isClosed = true
	d.mu.Unlock()

	d.logger.Debug("Closing browser session.")
	if d.browserCancel != nil {
		d.browserCancel()
	}
	if d.allocCancel != nil {
		d.allocCancel()
	}
	return nil
}
