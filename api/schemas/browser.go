package schemas

import (
	"context"
	"errors"
	"fmt"
)

// -- Browser Driver Schemas --

// WaitCondition names a page state the driver can block on.
type WaitCondition string

const (
	// WaitNetworkIdle blocks until in-flight requests have drained for a quiet period.
	WaitNetworkIdle WaitCondition = "network-idle"
	// WaitLoad blocks until the window "load" event has fired.
	WaitLoad WaitCondition = "load"
	// WaitDOMReady blocks until the document reaches readyState "interactive" or later.
	WaitDOMReady WaitCondition = "dom-ready"
)

// Viewport is a named width x height configuration captured independently per page.
type Viewport struct {
	Name   string `json:"name" mapstructure:"name"`
	Width  int64  `json:"width" mapstructure:"width"`
	Height int64  `json:"height" mapstructure:"height"`
}

// BrowserDriver is the blocking command executor the core drives the browser
// through. The core never parses the DOM directly; it only ever sees the
// textual snapshot and Eval results. Implementations own exactly one
// session/document; calls are strictly sequential.
type BrowserDriver interface {
	// Open navigates to the given URL and returns the final response status.
	Open(ctx context.Context, url string) (int, error)
	// Click dispatches a click on the element identified by a snapshot ref
	// (e.g. "e12") or a CSS selector.
	Click(ctx context.Context, refOrSelector string) error
	// Fill replaces the value of an input identified by ref or selector.
	Fill(ctx context.Context, refOrSelector, value string) error
	// Press sends a single key (e.g. "Enter") to the focused element.
	Press(ctx context.Context, key string) error
	// Sleep blocks for the given number of milliseconds.
	Sleep(ctx context.Context, ms int) error
	// WaitFor blocks until the named condition holds or the action times out.
	WaitFor(ctx context.Context, cond WaitCondition) error
	// Screenshot writes a capture of the page (optionally full-page) to path
	// and returns the number of bytes written.
	Screenshot(ctx context.Context, path string, fullPage bool) (int64, error)
	// Eval runs a JavaScript expression and returns its string result.
	Eval(ctx context.Context, expr string) (string, error)
	// Snapshot returns a textual structural snapshot of the page, one node
	// per line. With includeInteractive, form controls carry [ref=...] tags.
	Snapshot(ctx context.Context, includeInteractive bool) (string, error)
	// Get returns a named page property ("url", "title", "html", ...).
	Get(ctx context.Context, property string) (string, error)
	// SetViewport resizes the emulated viewport.
	SetViewport(ctx context.Context, width, height int64) error
	// Close tears the session down. Safe to call more than once.
	Close(ctx context.Context) error
}

// Page properties understood by BrowserDriver.Get.
const (
	PropURL   = "url"
	PropTitle = "title"
	PropHTML  = "html"
)

// -- Driver Error Schemas --

// Sentinel driver failures the capture layer keys its retry policy on.
var (
	// ErrDriverTimeout indicates a per-action deadline was exceeded.
	ErrDriverTimeout = errors.New("browser driver: action timed out")
	// ErrDriverClosed indicates the session was already closed.
	ErrDriverClosed = errors.New("browser driver: session closed")
)

// NavigationError reports a navigation that completed with a non-OK status.
type NavigationError struct {
	URL    string
	Status int
}

func (e *NavigationError) Error() string {
	return fmt.Sprintf("navigation to %s returned status %d", e.URL, e.Status)
}

// IsNotFound reports whether the navigation failed with HTTP 404.
func (e *NavigationError) IsNotFound() bool { return e.Status == 404 }
