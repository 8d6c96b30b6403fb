// Package mocks provides shared test doubles. The fake browser driver is
// scriptable per URL so capture and auth flows can be exercised without a
// real browser process.
package mocks

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/kaidhar/prism-cli/api/schemas"
)

// FakePage scripts the driver's behavior for one URL.
type FakePage struct {
	Status     int
	Title      string
	HTML       string
	Snapshot   string
	PageHeight string
	// OpenErr, when set, fails the navigation outright.
	OpenErr error
	// FailOpens fails this many Open calls before succeeding, for retry tests.
	FailOpens int
	// RedirectTo, when set, makes the driver report this URL after Open.
	RedirectTo string
}

// FakeDriver implements schemas.BrowserDriver against scripted pages.
type FakeDriver struct {
	mu sync.Mutex

	Pages map[string]*FakePage

	// Defaults applied when a page leaves a field empty.
	DefaultHeight string

	currentURL string
	// pendingRedirect holds a page's RedirectTo until the submit (Click or
	// Press) fires, so the pre-submit URL and snapshot stay on the opened page.
	pendingRedirect string
	Closed          bool

	// Call records for assertions.
	Opened      []string
	Filled      map[string]string
	Clicked     []string
	Screenshots []string
	// ScreenshotBytes is the simulated screenshot size (default 10000).
	ScreenshotBytes int64
	// EvalResults maps expression substrings to canned results.
	EvalResults map[string]string
	// WaitErr, when set, is returned by every WaitFor call.
	WaitErr error
}

var _ schemas.BrowserDriver = (*FakeDriver)(nil)

// NewFakeDriver returns an empty scriptable driver.
func NewFakeDriver() *FakeDriver {
	return &FakeDriver{
		Pages:           make(map[string]*FakePage),
		Filled:          make(map[string]string),
		EvalResults:     make(map[string]string),
		DefaultHeight:   "1200",
		ScreenshotBytes: 10000,
	}
}

func (d *FakeDriver) page() *FakePage {
	if p, ok := d.Pages[d.currentURL]; ok {
		return p
	}
	return &FakePage{Status: 200, Title: "Untitled", HTML: "<html><body></body></html>"}
}

func (d *FakeDriver) Open(ctx context.Context, url string) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Opened = append(d.Opened, url)
	p, ok := d.Pages[url]
	if !ok {
		d.currentURL = url
		return 404, &schemas.NavigationError{URL: url, Status: 404}
	}
	if p.FailOpens > 0 {
		p.FailOpens--
		return 0, schemas.ErrDriverTimeout
	}
	if p.OpenErr != nil {
		return 0, p.OpenErr
	}
	d.currentURL = url
	d.pendingRedirect = p.RedirectTo
	status := p.Status
	if status == 0 {
		status = 200
	}
	if status >= 400 {
		return status, &schemas.NavigationError{URL: url, Status: status}
	}
	return status, nil
}

func (d *FakeDriver) Click(ctx context.Context, refOrSelector string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Clicked = append(d.Clicked, refOrSelector)
	d.applyPendingRedirect()
	return nil
}

func (d *FakeDriver) Fill(ctx context.Context, refOrSelector, value string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Filled[refOrSelector] = value
	return nil
}

func (d *FakeDriver) Press(ctx context.Context, key string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.applyPendingRedirect()
	return nil
}

// applyPendingRedirect moves the driver to the scripted post-submit URL.
// Callers must hold d.mu.
func (d *FakeDriver) applyPendingRedirect() {
	if d.pendingRedirect != "" {
		d.currentURL = d.pendingRedirect
		d.pendingRedirect = ""
	}
}

func (d *FakeDriver) Sleep(ctx context.Context, ms int) error {
	// Fakes never actually sleep; tests should be fast.
	return ctx.Err()
}

func (d *FakeDriver) WaitFor(ctx context.Context, cond schemas.WaitCondition) error {
	if d.WaitErr != nil {
		return d.WaitErr
	}
	return ctx.Err()
}

func (d *FakeDriver) Screenshot(ctx context.Context, path string, fullPage bool) (int64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Screenshots = append(d.Screenshots, path)
	data := make([]byte, d.ScreenshotBytes)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return 0, err
	}
	return d.ScreenshotBytes, nil
}

func (d *FakeDriver) Eval(ctx context.Context, expr string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for substr, result := range d.EvalResults {
		if substr != "" && contains(expr, substr) {
			return result, nil
		}
	}
	// Height probes are common enough to default.
	if contains(expr, "scrollHeight") {
		if h := d.page().PageHeight; h != "" {
			return h, nil
		}
		return d.DefaultHeight, nil
	}
	return "", fmt.Errorf("fake driver: no eval scripted for %q", expr)
}

func (d *FakeDriver) Snapshot(ctx context.Context, includeInteractive bool) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.page().Snapshot, nil
}

func (d *FakeDriver) Get(ctx context.Context, property string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	p := d.page()
	switch property {
	case schemas.PropURL:
		return d.currentURL, nil
	case schemas.PropTitle:
		return p.Title, nil
	case schemas.PropHTML:
		return p.HTML, nil
	}
	return "", fmt.Errorf("fake driver: unknown property %q", property)
}

func (d *FakeDriver) SetViewport(ctx context.Context, width, height int64) error { return nil }

func (d *FakeDriver) Close(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Closed = true
	return nil
}

func contains(s, substr string) bool {
	return substr != "" && strings.Contains(s, substr)
}
