package browser

import (
	"context"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

// netWatcher tracks in-flight network requests via CDP events so the driver
// can implement the network-idle wait. SPA hydration traffic does not show
// up in the document lifecycle events, which is why this signal exists at
// all alongside load/DOM-ready.
type netWatcher struct {
	mu       sync.Mutex
	inflight map[network.RequestID]struct{}
	lastIdle time.Time
	// mainStatus holds the HTTP status of the most recent main-document
	// response, used by Open to judge navigation success.
	mainStatus int
	mainURL    string
}

func newNetWatcher() *netWatcher {
	return &netWatcher{
		inflight: make(map[network.RequestID]struct{}),
		lastIdle: time.Now(),
	}
}

// attach registers the CDP event listener on the browser context.
func (w *netWatcher) attach(ctx context.Context) {
	chromedp.ListenTarget(ctx, func(ev interface{}) {
		switch e := ev.(type) {
		case *network.EventRequestWillBeSent:
			w.mu.Lock()
			w.inflight[e.RequestID] = struct{}{}
			w.mu.Unlock()
		case *network.EventResponseReceived:
			if e.Type == network.ResourceTypeDocument && e.Response != nil {
				w.mu.Lock()
				w.mainStatus = int(e.Response.Status)
				w.mainURL = e.Response.URL
				w.mu.Unlock()
			}
		case *network.EventLoadingFinished:
			w.finish(e.RequestID)
		case *network.EventLoadingFailed:
			w.finish(e.RequestID)
		}
	})
}

func (w *netWatcher) finish(id network.RequestID) {
	w.mu.Lock()
	delete(w.inflight, id)
	if len(w.inflight) == 0 {
		w.lastIdle = time.Now()
	}
	w.mu.Unlock()
}

// lastMainStatus returns the status of the latest main-document response,
// or 0 when none was observed (e.g. about:blank).
func (w *netWatcher) lastMainStatus() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.mainStatus
}

// idleFor reports whether the network has been quiet for at least d.
func (w *netWatcher) idleFor(d time.Duration) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.inflight) == 0 && time.Since(w.lastIdle) >= d
}

// waitIdle blocks until the network has been quiet for quiet, polling at a
// short interval, or until the context is done.
func (w *netWatcher) waitIdle(ctx context.Context, quiet time.Duration) error {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for {
		if w.idleFor(quiet) {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
